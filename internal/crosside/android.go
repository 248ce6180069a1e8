package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const androidFolder = "Android"

// androidCompileArgs builds the fixed clang argument prefix for one
// translation unit. The per-ABI codegen flags come before user flags so
// descriptors can still override them.
func androidCompileArgs(tc androidToolchain, abi abiInfo, baseRoot, src, obj string, userFlags []string, cpp bool) []string {
	args := []string{
		"-target", abi.ClangTarget,
		"--sysroot", tc.Sysroot,
		"-fdata-sections",
		"-ffunction-sections",
		"-fstack-protector-strong",
		"-funwind-tables",
		"-no-canonical-prefixes",
		"-D_FORTIFY_SOURCE=2",
		"-fpic",
		"-Wformat",
		"-Werror=format-security",
		"-fno-strict-aliasing",
		"-DNDEBUG",
		"-DANDROID",
		"-DPLATFORM_ANDROID",
	}
	if abi.Value == abiArm7 {
		args = append(args, "-march=armv7-a", "-mthumb", "-Oz")
	} else {
		args = append(args, "-O2")
	}
	args = append(args,
		"-I"+filepath.Join(tc.Sysroot, "usr", "include", abi.IncludeTriple),
		"-I"+filepath.Join(tc.Sysroot, "usr", "include"),
		"-I"+baseRoot,
		"-I"+filepath.Dir(src),
	)
	if cpp {
		args = append(args, "-nostdinc++", "-I"+tc.CppInclude)
	}
	args = append(args, userFlags...)
	args = append(args, "-c", src, "-o", obj)
	return args
}

// compileAndroidSources compiles every stale source for one ABI and
// reports whether any translation unit was C++.
func compileAndroidSources(ex *Executor, tc androidToolchain, abi abiInfo, baseRoot, objRoot string, sources []string, ccFlags, cppFlags []string, full bool) (objects []string, hasCpp bool, err error) {
	if err := ensureDir(objRoot); err != nil {
		return nil, false, err
	}
	jobs, objects := planCompile(sources, objRoot, baseRoot, full)
	for _, src := range sources {
		if isCppSource(src) {
			hasCpp = true
			break
		}
	}
	for _, job := range jobs {
		if err := ensureDir(filepath.Dir(job.Obj)); err != nil {
			return nil, false, err
		}
		tool, flags := tc.Clang, ccFlags
		if job.Cpp {
			tool, flags = tc.ClangXX, cppFlags
		}
		args := androidCompileArgs(tc, abi, baseRoot, job.Src, job.Obj, flags, job.Cpp)
		if err := ex.Run(tool, args, ""); err != nil {
			return nil, false, fmt.Errorf("compile %s: %w", job.Src, err)
		}
	}
	return objects, hasCpp, nil
}

// appendCppRuntimeLibs adds the static C++ runtime archives from the
// NDK sysroot, plus the newest bundled libunwind.
func appendCppRuntimeLibs(args []string, tc androidToolchain, abi abiInfo) []string {
	runtimeDir := filepath.Join(tc.Sysroot, "usr", "lib", abi.RuntimeTriple)
	for _, lib := range []string{"libc++_static.a", "libc++abi.a"} {
		if path := filepath.Join(runtimeDir, lib); fileExists(path) {
			args = append(args, path)
		}
	}
	if unwind := findLatestLibUnwind(tc, abi); unwind != "" {
		args = append(args, unwind)
	}
	return args
}

// linkAndroidShared links objects into lib<name>.so and strips it.
func linkAndroidShared(ex *Executor, repoRoot string, tc androidToolchain, abi abiInfo, name string, objects, ldFlags []string, hasCpp bool, output string) error {
	if len(objects) == 0 {
		return fmt.Errorf("no objects to link for %s", name)
	}
	if err := ensureDir(filepath.Dir(output)); err != nil {
		return err
	}
	args := []string{"-Wl,-soname,lib" + name + ".so", "-shared"}
	args = append(args, objects...)
	if libRoot := filepath.Join(repoRoot, "libs", "android", abi.Name); dirExists(libRoot) {
		args = appendUnique(args, "-L"+libRoot)
	}
	args = appendUnique(args, "-Wl,--no-whole-archive")
	if hasCpp {
		args = appendCppRuntimeLibs(args, tc, abi)
	}
	args = append(args, "-target", abi.ClangTarget, "--sysroot", tc.Sysroot, "-no-canonical-prefixes", "-Wl,--build-id")
	if hasCpp {
		args = append(args, "-nostdlib++")
	}
	args = append(args, "-Wl,--no-undefined", "-Wl,--fatal-warnings")
	args = append(args, ldFlags...)
	args = append(args, "-o", output)

	tool := tc.Clang
	if hasCpp {
		tool = tc.ClangXX
	}
	if err := ex.Run(tool, args, ""); err != nil {
		return fmt.Errorf("link %s: %w", output, err)
	}
	if tc.LlvmStrip != "" && fileExists(tc.LlvmStrip) {
		if err := ex.Run(tc.LlvmStrip, []string{"--strip-unneeded", output}, ""); err != nil {
			warnf("Strip failed for %s", output)
		}
	}
	return nil
}

func archiveAndroidStatic(ex *Executor, tc androidToolchain, output string, objects []string) error {
	if len(objects) == 0 {
		return fmt.Errorf("no objects to archive for %s", output)
	}
	if err := ensureDir(filepath.Dir(output)); err != nil {
		return err
	}
	if !ex.DryRun {
		os.Remove(output)
	}
	args := append([]string{"rcs", output}, objects...)
	if err := ex.Run(tc.LlvmAr, args, ""); err != nil {
		return fmt.Errorf("archive %s: %w", output, err)
	}
	return nil
}

// appendAndroidLibLinkArgs emits -l tokens for a dependency's Android
// output folder, tolerating case-skewed archive names.
func appendAndroidLibLinkArgs(ld []string, libDir, moduleName string) []string {
	hasCanonical := fileExists(filepath.Join(libDir, "lib"+moduleName+".a")) ||
		fileExists(filepath.Join(libDir, "lib"+moduleName+".so"))
	if hasCanonical {
		return appendUnique(ld, "-l"+moduleName)
	}
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return ld
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".a" && ext != ".so" {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !strings.HasPrefix(strings.ToLower(stem), "lib") || len(stem) <= 3 {
			continue
		}
		alt := stem[3:]
		if alt == "" || alt == moduleName || !strings.EqualFold(alt, moduleName) {
			continue
		}
		ld = appendUnique(ld, "-l"+alt)
	}
	return ld
}

// androidModuleLibDir is where a module's per-ABI artifacts live.
func androidModuleLibDir(mod *ModuleSpec, abi abiInfo) string {
	return filepath.Join(mod.Dir, androidFolder, abi.Name)
}

// appendAndroidDepFlags folds the dependency closure's includes and
// link contributions into the flag lanes.
func appendAndroidDepFlags(mods ModuleMap, roots []string, abi abiInfo, cc, cpp, ld []string) ([]string, []string, []string) {
	for _, depName := range ModuleClosure(mods, roots) {
		dep := mods[depName]
		for _, inc := range moduleIncludeFlags(dep, targetAndroid, &dep.Android) {
			cc = appendUnique(cc, inc)
			cpp = appendUnique(cpp, inc)
		}
		libDir := androidModuleLibDir(dep, abi)
		ld = appendUnique(ld, "-L"+libDir)
		ld = appendAndroidLibLinkArgs(ld, libDir, dep.Name)
		ld = appendAll(ld, dep.Main.Flags.LDArgs)
		ld = appendAll(ld, dep.Android.Flags.LDArgs)
	}
	return cc, cpp, ld
}

// findPrebuiltAndroidOutput looks for a module artifact with any name
// casing in outDir.
func findPrebuiltAndroidOutput(outDir, moduleName string, static bool) string {
	wantExt := ".so"
	if static {
		wantExt = ".a"
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != wantExt {
			continue
		}
		stem := strings.TrimPrefix(strings.TrimSuffix(name, wantExt), "lib")
		if strings.EqualFold(stem, moduleName) {
			return filepath.Join(outDir, name)
		}
	}
	return ""
}

// copyLibraryArtifacts mirrors every .a/.so from srcDir into dstDir,
// skipping the module's own artifact which is staged separately.
func copyLibraryArtifacts(srcDir, dstDir, skipModuleLower string) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return
	}
	if err := ensureDir(dstDir); err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".a" && ext != ".so" {
			continue
		}
		if skipModuleLower != "" {
			stem := strings.TrimPrefix(strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))), "lib")
			if stem == skipModuleLower {
				continue
			}
		}
		src := filepath.Join(srcDir, name)
		if err := copyFile(src, filepath.Join(dstDir, name)); err != nil {
			warnf("Failed copy artifact %s: %v", src, err)
		}
	}
}

// removeDuplicateModuleArtifacts drops stale same-module archives that
// differ only by casing from the canonical output.
func removeDuplicateModuleArtifacts(outDir, keepLib, moduleNameLower string) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(outDir, name)
		if path == keepLib {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".a" && ext != ".so" {
			continue
		}
		stem := strings.TrimPrefix(strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))), "lib")
		if stem != moduleNameLower {
			continue
		}
		if err := os.Remove(path); err != nil {
			warnf("Failed remove duplicate module artifact %s: %v", path, err)
		}
	}
}

func resolveNdkBuildTool(tc androidToolchain) string {
	candidates := []string{"ndk-build"}
	if runtime.GOOS == "windows" {
		candidates = []string{"ndk-build.cmd", "ndk-build.bat", "ndk-build"}
	}
	for _, name := range candidates {
		path := filepath.Join(tc.AndroidNdk, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// tryBuildModuleWithNdkBuild builds a sourceless module through its own
// Android.mk, then stages whatever artifacts came out.
func tryBuildModuleWithNdkBuild(ex *Executor, tc androidToolchain, mod *ModuleSpec, abi abiInfo, outDir, outLib string) bool {
	androidMk := filepath.Join(mod.Dir, "Android.mk")
	if !fileExists(androidMk) {
		return false
	}
	ndkBuild := resolveNdkBuildTool(tc)
	if ndkBuild == "" {
		warnf("ndk-build not found for module %s (expected under %s)", mod.Name, tc.AndroidNdk)
		return false
	}

	ndkOut := filepath.Join(mod.Dir, "obj", "ndk")
	args := []string{
		"-C", mod.Dir,
		"APP_BUILD_SCRIPT=Android.mk",
		"NDK_PROJECT_PATH=" + mod.Dir,
		"NDK_OUT=" + ndkOut,
		"NDK_LIBS_OUT=" + filepath.Join(mod.Dir, androidFolder),
		"APP_PLATFORM=android-21",
		"APP_ABI=" + abi.Name,
		"APP_STL=c++_static",
		"-j8",
	}
	if err := ex.Run(ndkBuild, args, ""); err != nil {
		warnf("ndk-build failed for module %s [%s]", mod.Name, abi.Name)
		return false
	}
	if err := ensureDir(outDir); err != nil {
		errorf("Failed create module Android output dir: %s", outDir)
		return false
	}

	localOut := filepath.Join(ndkOut, "local", abi.Name)
	nameLower := strings.ToLower(mod.Name)
	copyLibraryArtifacts(localOut, outDir, nameLower)
	copyLibraryArtifacts(filepath.Join(mod.Dir, "obj", "local", abi.Name), outDir, nameLower)

	built := findPrebuiltAndroidOutput(outDir, mod.Name, mod.StaticForAndroid())
	if built == "" {
		built = findPrebuiltAndroidOutput(localOut, mod.Name, mod.StaticForAndroid())
	}
	if built == "" {
		built = findPrebuiltAndroidOutput(filepath.Join(mod.Dir, "obj", "local", abi.Name), mod.Name, mod.StaticForAndroid())
	}
	if built == "" {
		warnf("ndk-build finished but output for module %s [%s] was not found", mod.Name, abi.Name)
		return false
	}
	if built != outLib {
		if err := copyFile(built, outLib); err != nil {
			errorf("Failed stage module output %s -> %s: %v", built, outLib, err)
			return false
		}
	}
	removeDuplicateModuleArtifacts(outDir, outLib, nameLower)
	logf("Build module %s via ndk-build for %s -> %s", mod.Name, abi.Name, outLib)
	return true
}

func buildAndroidModuleForABI(ex *Executor, repoRoot string, tc androidToolchain, mods ModuleMap, mod *ModuleSpec, abi abiInfo, full bool) error {
	outDir := androidModuleLibDir(mod, abi)
	ext := ".so"
	if mod.StaticForAndroid() {
		ext = ".a"
	}
	outLib := filepath.Join(outDir, "lib"+mod.Name+ext)

	var sources []string
	for _, src := range moduleSources(mod, &mod.Android) {
		if fileExists(src) && isCompilableSource(src) {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		// Sourceless modules can still provide prebuilts, either via
		// their own Android.mk or already staged archives.
		if full || !fileExists(outLib) {
			if tryBuildModuleWithNdkBuild(ex, tc, mod, abi, outDir, outLib) {
				return nil
			}
		}
		if fileExists(outLib) {
			if full {
				warnf("Full build requested but module %s has no Android sources; using prebuilt %s", mod.Name, outLib)
			} else {
				logf("Use prebuilt Android module %s: %s", mod.Name, outLib)
			}
			return nil
		}
		prebuilt := findPrebuiltAndroidOutput(outDir, mod.Name, mod.StaticForAndroid())
		if prebuilt == "" {
			return fmt.Errorf("no Android sources for module %s and no prebuilt output at %s", mod.Name, outLib)
		}
		if err := ensureDir(outDir); err != nil {
			return err
		}
		if err := copyFile(prebuilt, outLib); err != nil {
			return fmt.Errorf("alias prebuilt module output %s -> %s: %w", prebuilt, outLib, err)
		}
		logf("Use prebuilt Android module %s: %s -> %s", mod.Name, prebuilt, outLib)
		return nil
	}

	cc := appendAll([]string(nil), mod.Main.Flags.CCArgs)
	cpp := appendAll([]string(nil), mod.Main.Flags.CPPArgs)
	ld := appendAll([]string(nil), mod.Main.Flags.LDArgs)
	cc = appendAll(cc, mod.Android.Flags.CCArgs)
	cpp = appendAll(cpp, mod.Android.Flags.CPPArgs)
	ld = appendAll(ld, mod.Android.Flags.LDArgs)
	for _, inc := range moduleIncludeFlags(mod, targetAndroid, &mod.Android) {
		cc = appendUnique(cc, inc)
		cpp = appendUnique(cpp, inc)
	}
	cc, cpp, ld = appendAndroidDepFlags(mods, mod.Depends, abi, cc, cpp, ld)

	objRoot := filepath.Join(mod.Dir, "obj", androidFolder, mod.Name, abi.Name)
	objects, hasCpp, err := compileAndroidSources(ex, tc, abi, mod.Dir, objRoot, sources, cc, cpp, full)
	if err != nil {
		return err
	}
	if err := ensureDir(outDir); err != nil {
		return err
	}
	if mod.StaticForAndroid() {
		return archiveAndroidStatic(ex, tc, outLib, objects)
	}
	return linkAndroidShared(ex, repoRoot, tc, abi, mod.Name, objects, ld, hasCpp, outLib)
}

// BuildAndroidModule builds one module for every requested ABI.
func BuildAndroidModule(ex *Executor, repoRoot string, cfg ToolchainConfig, mods ModuleMap, mod *ModuleSpec, full bool, abis []int) error {
	if !mod.SupportsSystem("android") {
		logf("Skip module %s for android (unsupported by module.json)", mod.Name)
		return nil
	}
	tc := resolveAndroidToolchain(cfg)
	if err := tc.validateCompile(); err != nil {
		return err
	}
	for _, value := range abis {
		abi := abiInfoFor(value)
		logf("Build module %s for %s", mod.Name, abi.Name)
		if err := buildAndroidModuleForABI(ex, repoRoot, tc, mods, mod, abi, full); err != nil {
			return err
		}
	}
	return nil
}

func buildAndroidProjectForABI(ex *Executor, repoRoot string, tc androidToolchain, mods ModuleMap, p *ProjectSpec, active []string, abi abiInfo, full bool) error {
	var sources []string
	seen := map[string]bool{}
	for _, src := range p.Src {
		if !fileExists(src) || !isCompilableSource(src) {
			continue
		}
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("project %s: %w", p.Name, errNoCompilableFiles)
	}

	cc := appendAll([]string(nil), p.Main.CCArgs)
	cpp := appendAll([]string(nil), p.Main.CPPArgs)
	ld := appendAll([]string(nil), p.Main.LDArgs)
	cc = appendAll(cc, p.Android.CCArgs)
	cpp = appendAll(cpp, p.Android.CPPArgs)
	ld = appendAll(ld, p.Android.LDArgs)
	for _, inc := range p.Include {
		cc = appendUnique(cc, "-I"+inc)
		cpp = appendUnique(cpp, "-I"+inc)
	}

	closure := ModuleClosure(mods, active)
	known := map[string]bool{}
	for _, name := range closure {
		known[name] = true
		mod := mods[name]
		for _, inc := range moduleIncludeFlags(mod, targetAndroid, &mod.Android) {
			cc = appendUnique(cc, inc)
			cpp = appendUnique(cpp, inc)
		}
		libDir := androidModuleLibDir(mod, abi)
		ld = appendUnique(ld, "-L"+libDir)
		ld = appendAndroidLibLinkArgs(ld, libDir, mod.Name)
		ld = appendAll(ld, mod.Main.Flags.LDArgs)
		ld = appendAll(ld, mod.Android.Flags.LDArgs)
	}
	for _, name := range active {
		if name == "" || known[name] {
			continue
		}
		dir := filepath.Join(repoRoot, "modules", name)
		for _, inc := range []string{filepath.Join(dir, "include"), filepath.Join(dir, "include", "android")} {
			cc = appendUnique(cc, "-I"+inc)
			cpp = appendUnique(cpp, "-I"+inc)
		}
		libDir := filepath.Join(dir, androidFolder, abi.Name)
		ld = appendUnique(ld, "-L"+libDir)
		ld = appendAndroidLibLinkArgs(ld, libDir, name)
	}

	ld = appendUnique(ld, "-u")
	ld = append(ld, "ANativeActivity_onCreate")

	objRoot := filepath.Join(p.Root, "obj", androidFolder, p.BuildCacheKey(), abi.Name)
	objects, hasCpp, err := compileAndroidSources(ex, tc, abi, p.Root, objRoot, sources, cc, cpp, full)
	if err != nil {
		return err
	}

	outDir := filepath.Join(p.Root, androidFolder, abi.Name)
	if err := ensureDir(outDir); err != nil {
		return err
	}
	outLib := filepath.Join(outDir, "lib"+p.Name+".so")
	needsCppRuntime := hasCpp || len(active) > 0
	return linkAndroidShared(ex, repoRoot, tc, abi, p.Name, objects, ld, needsCppRuntime, outLib)
}

// BuildAndroidProject builds the native libraries for every ABI, then
// packages (and optionally installs and launches) the APK.
func BuildAndroidProject(ex *Executor, repoRoot string, cfg ToolchainConfig, mods ModuleMap, p *ProjectSpec, active []string, full, runAfter, autoModules bool, abis []int) error {
	tc := resolveAndroidToolchain(cfg)
	if err := tc.validateCompile(); err != nil {
		return err
	}
	if err := tc.validatePackage(); err != nil {
		return err
	}

	if autoModules {
		for _, name := range ModuleClosure(mods, active) {
			mod, ok := mods[name]
			if !ok {
				warnf("Missing module for auto-build: %s", name)
				continue
			}
			if err := BuildAndroidModule(ex, repoRoot, cfg, mods, mod, full, abis); err != nil {
				return fmt.Errorf("auto-build module %s for android: %w", name, err)
			}
		}
	}

	for _, value := range abis {
		abi := abiInfoFor(value)
		logf("Build app %s native lib for %s", p.Name, abi.Name)
		if err := buildAndroidProjectForABI(ex, repoRoot, tc, mods, p, active, abi, full); err != nil {
			return err
		}
	}
	return buildAndroidProjectAPK(ex, repoRoot, p, tc, runAfter)
}

// validateAndroidArtifacts checks per-ABI module libraries exist when
// module builds are skipped.
func validateAndroidArtifacts(mods ModuleMap, active []string, abis []int) error {
	var missing []string
	for _, name := range ModuleClosure(mods, active) {
		mod := mods[name]
		for _, value := range abis {
			abi := abiInfoFor(value)
			dir := androidModuleLibDir(mod, abi)
			if findPrebuiltAndroidOutput(dir, mod.Name, mod.StaticForAndroid()) == "" {
				missing = append(missing, name+" ["+abi.Name+"]")
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing android artifacts for modules: %s (build them or pass --build-modules)", joinComma(missing))
	}
	return nil
}
