package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// abiInfo describes one supported Android ABI. The triples feed the
// clang -target flag and the sysroot include/runtime folder names.
type abiInfo struct {
	Value         int
	Name          string
	ClangTarget   string
	IncludeTriple string
	RuntimeTriple string
	UnwindArch    string
}

func abiInfoFor(abi int) abiInfo {
	if abi == abiArm64 {
		return abiInfo{abiArm64, "arm64-v8a", "aarch64-linux-android21", "aarch64-linux-android", "aarch64-linux-android", "aarch64"}
	}
	return abiInfo{abiArm7, "armeabi-v7a", "armv7a-linux-androideabi21", "arm-linux-androideabi", "arm-linux-androideabi", "arm"}
}

// androidToolchain is the resolved tool and path set for compiling and
// packaging Android builds.
type androidToolchain struct {
	AndroidSdk string
	AndroidNdk string
	JavaHome   string

	BuildToolsRoot string
	PlatformJar    string

	PrebuiltRoot string
	Sysroot      string
	CppInclude   string

	Clang     string
	ClangXX   string
	LlvmAr    string
	LlvmStrip string

	Aapt      string
	Dx        string
	D8        string
	Apksigner string
	Adb       string
	Keytool   string
	Javac     string
}

func envOr(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func resolveToolInDir(dir, name string) string {
	suffixes := []string{""}
	if runtime.GOOS == "windows" {
		suffixes = []string{".exe", ".bat", ".cmd", ""}
	}
	for _, suffix := range suffixes {
		candidate := filepath.Join(dir, name+suffix)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// pickNdk keeps an existing explicit NDK, otherwise prefers the highest
// versioned install under <sdk>/ndk/.
func pickNdk(androidSdk, preferred string) string {
	if preferred != "" && dirExists(preferred) {
		return preferred
	}
	if latest := latestVersionDir(filepath.Join(androidSdk, "ndk")); latest != "" {
		return filepath.Join(androidSdk, "ndk", latest)
	}
	return preferred
}

func pickBuildToolsVersion(androidSdk, preferred string) string {
	root := filepath.Join(androidSdk, "build-tools")
	if preferred != "" && dirExists(filepath.Join(root, preferred)) {
		return preferred
	}
	if latest := latestVersionDir(root); latest != "" {
		return latest
	}
	return preferred
}

func pickPlatformVersion(androidSdk, preferred string) string {
	root := filepath.Join(androidSdk, "platforms")
	if preferred != "" && fileExists(filepath.Join(root, preferred, "android.jar")) {
		return preferred
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return preferred
	}
	best := ""
	for _, entry := range entries {
		if !entry.IsDir() || !fileExists(filepath.Join(root, entry.Name(), "android.jar")) {
			continue
		}
		if best == "" || versionLess(best, entry.Name()) {
			best = entry.Name()
		}
	}
	if best == "" {
		return preferred
	}
	return best
}

func pickPrebuiltRoot(androidNdk string) string {
	root := filepath.Join(androidNdk, "toolchains", "llvm", "prebuilt")
	var host string
	switch runtime.GOOS {
	case "windows":
		host = "windows-x86_64"
	case "darwin":
		host = "darwin-x86_64"
	default:
		host = "linux-x86_64"
	}
	if dirExists(filepath.Join(root, host)) {
		return filepath.Join(root, host)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return filepath.Join(root, entry.Name())
		}
	}
	return ""
}

// resolveAndroidToolchain layers environment variables over the
// workspace config over the conventional install locations.
func resolveAndroidToolchain(cfg ToolchainConfig) androidToolchain {
	sdk := envOr("ANDROID_SDK_ROOT", "ANDROID_HOME")
	if sdk == "" {
		sdk = cfg.AndroidSdk
	}
	if sdk == "" {
		sdk = "/home/djoker/android/android-sdk"
	}
	ndk := envOr("ANDROID_NDK_ROOT")
	if ndk == "" {
		ndk = cfg.AndroidNdk
	}
	if ndk == "" {
		ndk = "/home/djoker/android/android-ndk-r27d"
	}
	java := envOr("JAVA_HOME")
	if java == "" {
		java = cfg.JavaSdk
	}
	if java == "" {
		java = "/usr/lib/jvm/java-11-openjdk-amd64"
	}
	buildTools := envOr("CROSSIDE_BUILD_TOOLS")
	if buildTools == "" {
		buildTools = cfg.BuildTools
	}
	if buildTools == "" {
		buildTools = "30.0.2"
	}
	platform := envOr("CROSSIDE_PLATFORM")
	if platform == "" {
		platform = cfg.Platform
	}
	if platform == "" {
		platform = "android-31"
	}

	var tc androidToolchain
	tc.AndroidSdk = sdk
	tc.AndroidNdk = pickNdk(sdk, ndk)
	tc.JavaHome = java

	buildTools = pickBuildToolsVersion(sdk, buildTools)
	platform = pickPlatformVersion(sdk, platform)
	tc.BuildToolsRoot = filepath.Join(sdk, "build-tools", buildTools)
	tc.PlatformJar = filepath.Join(sdk, "platforms", platform, "android.jar")

	tc.PrebuiltRoot = pickPrebuiltRoot(tc.AndroidNdk)
	tc.Sysroot = filepath.Join(tc.PrebuiltRoot, "sysroot")
	tc.CppInclude = filepath.Join(tc.Sysroot, "usr", "include", "c++", "v1")

	bin := filepath.Join(tc.PrebuiltRoot, "bin")
	tc.Clang = resolveToolInDir(bin, "clang")
	tc.ClangXX = resolveToolInDir(bin, "clang++")
	tc.LlvmAr = resolveToolInDir(bin, "llvm-ar")
	tc.LlvmStrip = resolveToolInDir(bin, "llvm-strip")

	tc.Aapt = resolveToolInDir(tc.BuildToolsRoot, "aapt")
	tc.Dx = resolveToolInDir(tc.BuildToolsRoot, "dx")
	tc.D8 = resolveToolInDir(tc.BuildToolsRoot, "d8")
	tc.Apksigner = resolveToolInDir(tc.BuildToolsRoot, "apksigner")

	tc.Adb = resolveToolInDir(filepath.Join(sdk, "platform-tools"), "adb")
	tc.Keytool = resolveToolInDir(filepath.Join(java, "bin"), "keytool")
	tc.Javac = resolveToolInDir(filepath.Join(java, "bin"), "javac")

	if tc.Keytool == "" {
		tc.Keytool = "keytool"
	}
	if tc.Javac == "" {
		tc.Javac = "javac"
	}
	if tc.Dx == "" {
		tc.Dx = "dx"
	}
	if tc.D8 == "" {
		tc.D8 = "d8"
	}
	return tc
}

func (tc androidToolchain) validateCompile() error {
	required := []string{tc.AndroidSdk, tc.AndroidNdk, tc.PrebuiltRoot, tc.Sysroot, tc.Clang, tc.ClangXX, tc.LlvmAr}
	for _, path := range required {
		if path == "" || !pathExists(path) {
			return fmt.Errorf("%w: missing Android compile toolchain path: %s", errToolchainMissing, path)
		}
	}
	return nil
}

func (tc androidToolchain) validatePackage() error {
	required := []string{tc.Aapt, tc.Apksigner, tc.PlatformJar, tc.Adb}
	for _, path := range required {
		if path == "" || !pathExists(path) {
			return fmt.Errorf("%w: missing Android packaging path: %s", errToolchainMissing, path)
		}
	}
	return nil
}

// findLatestLibUnwind walks the bundled clang versions from newest to
// oldest looking for the static unwinder for the ABI.
func findLatestLibUnwind(tc androidToolchain, abi abiInfo) string {
	clangRoot := filepath.Join(tc.PrebuiltRoot, "lib", "clang")
	entries, err := os.ReadDir(clangRoot)
	if err != nil {
		return ""
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sortVersions(versions)
	for i := len(versions) - 1; i >= 0; i-- {
		candidate := filepath.Join(clangRoot, versions[i], "lib", "linux", abi.UnwindArch, "libunwind.a")
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}
