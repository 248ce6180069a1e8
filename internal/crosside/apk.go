package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sys/unix"
	"lukechampine.com/blake3"
)

const (
	debugKeystoreAlias = "djokersoft"
	debugKeystorePass  = "14781478"
	fallbackPackage    = "com.djokersoft.game"
)

var (
	nonPackageChars    = regexp.MustCompile(`[^A-Za-z0-9_.]`)
	repeatedDots       = regexp.MustCompile(`\.+`)
	nonIdentifierChars = regexp.MustCompile(`[^A-Za-z0-9_]`)
	manifestIconRef    = regexp.MustCompile(`android:icon="(@[^"]+)"`)
	manifestRoundRef   = regexp.MustCompile(`android:roundIcon="(@[^"]+)"`)
	applicationTag     = regexp.MustCompile(`<application\b[^>]*>`)
)

// sanitizeAndroidPackage squeezes an arbitrary string into a valid
// Android application id. Fewer than two surviving segments falls back
// to the stock package name.
func sanitizeAndroidPackage(name string) string {
	value := strings.ReplaceAll(name, "/", ".")
	value = nonPackageChars.ReplaceAllString(value, "")
	value = repeatedDots.ReplaceAllString(value, ".")
	value = strings.Trim(value, ".")

	var parts []string
	for _, token := range strings.Split(value, ".") {
		token = nonIdentifierChars.ReplaceAllString(token, "")
		if token == "" {
			continue
		}
		if unicode.IsDigit(rune(token[0])) {
			token = "p" + token
		}
		parts = append(parts, token)
	}
	if len(parts) < 2 {
		return fallbackPackage
	}
	return strings.Join(parts, ".")
}

// normalizeActivity resolves the launch activity name against the
// package: empty means NativeActivity, a leading dot or a bare name
// gets the package prefix.
func normalizeActivity(packageName, activity string) string {
	if activity == "" {
		activity = "android.app.NativeActivity"
	}
	if strings.HasPrefix(activity, ".") {
		return packageName + activity
	}
	if !strings.Contains(activity, ".") {
		return packageName + "." + activity
	}
	return activity
}

// useNativeManifestTemplate picks between the native and Java manifest
// variants from the declared mode, falling back to sniffing the
// activity name.
func useNativeManifestTemplate(p *ProjectSpec, activity string) bool {
	switch strings.ToLower(p.AndroidManifestMode) {
	case "native":
		return true
	case "java", "sdl", "sdl2":
		return false
	}
	return strings.Contains(strings.ToLower(activity), "nativeactivity")
}

// buildManifest substitutes the well-known and custom placeholders.
// Custom keys replace both @KEY@ and ${KEY} forms.
func buildManifest(tmpl, packageName, label, activity, libName string, customVars map[string]string) string {
	out := tmpl
	if out == "" {
		out = templateManifestNative
	}
	for from, to := range map[string]string{
		"@apppkg@":       packageName,
		"@applbl@":       label,
		"@appact@":       activity,
		"@appactv@":      activity,
		"@appLIBNAME@":   libName,
		"@APP_PACKAGE@":  packageName,
		"@APP_LABEL@":    label,
		"@APP_ACTIVITY@": activity,
		"@APP_LIB_NAME@": libName,
	} {
		out = strings.ReplaceAll(out, from, to)
	}
	for key, value := range customVars {
		if key == "" {
			continue
		}
		if strings.Contains(key, "@") {
			out = strings.ReplaceAll(out, key, value)
			continue
		}
		out = strings.ReplaceAll(out, "@"+key+"@", value)
		out = strings.ReplaceAll(out, "${"+key+"}", value)
	}
	return out
}

func pickPath(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && pathExists(c) {
			return c
		}
	}
	return ""
}

// loadManifestTemplate resolves the manifest text: a project override,
// then the workspace Templates/Android files, then the embedded copy.
func loadManifestTemplate(repoRoot string, p *ProjectSpec, activity string) (string, error) {
	if p.AndroidManifestTemplate != "" {
		path := p.AndroidManifestTemplate
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.Root, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read Android manifest template %s: %w", path, err)
		}
		return string(data), nil
	}

	native := useNativeManifestTemplate(p, activity)
	var path string
	if native {
		path = pickPath(
			filepath.Join(repoRoot, "Templates", "Android", "AndroidManifest.xml"),
			filepath.Join(repoRoot, "Templates", "Android", "AndroidManifest.template.xml"),
		)
	} else {
		path = pickPath(
			filepath.Join(repoRoot, "Templates", "Android", "AndroidManifest.java.xml"),
			filepath.Join(repoRoot, "Templates", "Android", "AndroidManifest_java.xml"),
			filepath.Join(repoRoot, "Templates", "Android", "AndroidManifest.sdl2.xml"),
			filepath.Join(repoRoot, "Templates", "Android", "AndroidManifest_sdl2.xml"),
		)
	}
	embedded := templateManifestNative
	if !native {
		embedded = templateManifestJava
	}
	if path == "" {
		return embedded, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		warnf("Failed read default Android manifest template, using embedded fallback: %s", path)
		return embedded, nil
	}
	return string(data), nil
}

// resourceExistsForRef checks whether an @type/name reference resolves
// under the staged res/ tree. Platform references always pass.
func resourceExistsForRef(resRoot, ref string) bool {
	if ref == "" || ref[0] != '@' {
		return true
	}
	if strings.HasPrefix(ref, "@android:") {
		return true
	}
	body := ref[1:]
	slash := strings.IndexByte(body, '/')
	if slash <= 0 || slash+1 >= len(body) {
		return false
	}
	resType, name := body[:slash], body[slash+1:]
	entries, err := os.ReadDir(resRoot)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := entry.Name()
		if folder != resType && !strings.HasPrefix(folder, resType+"-") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(resRoot, folder))
		if err != nil {
			continue
		}
		for _, file := range files {
			stem := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
			if stem == name {
				return true
			}
		}
	}
	return false
}

// ensureManifestIconFallback patches a dangling android:icon reference
// to the platform default icon.
func ensureManifestIconFallback(manifestPath, resRoot string) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return
	}
	content := string(data)
	match := manifestIconRef.FindStringSubmatchIndex(content)
	if match == nil {
		return
	}
	ref := content[match[2]:match[3]]
	if resourceExistsForRef(resRoot, ref) {
		return
	}
	const fallback = "@android:drawable/sym_def_app_icon"
	patched := content[:match[2]] + fallback + content[match[3]:]
	if err := os.WriteFile(manifestPath, []byte(patched), 0o644); err == nil {
		warnf("Missing icon resource %s, using %s", ref, fallback)
	}
}

// ensureManifestRoundIcon inserts or repairs the roundIcon attribute
// when a round launcher resource was staged.
func ensureManifestRoundIcon(manifestPath, resRoot string) {
	const desiredRef = "@mipmap/ic_launcher_round"
	if !resourceExistsForRef(resRoot, desiredRef) {
		return
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return
	}
	content := string(data)
	if match := manifestRoundRef.FindStringSubmatchIndex(content); match != nil {
		current := content[match[2]:match[3]]
		if resourceExistsForRef(resRoot, current) {
			return
		}
		fallbackRef := desiredRef
		if resourceExistsForRef(resRoot, "@mipmap/ic_launcher") {
			fallbackRef = "@mipmap/ic_launcher"
		}
		patched := content[:match[2]] + fallbackRef + content[match[3]:]
		if err := os.WriteFile(manifestPath, []byte(patched), 0o644); err == nil {
			warnf("Missing round icon resource %s, using %s", current, fallbackRef)
		}
		return
	}

	loc := applicationTag.FindStringIndex(content)
	if loc == nil {
		return
	}
	tag := content[loc[0]:loc[1]]
	var patchedTag string
	if strings.HasSuffix(tag, "/>") {
		patchedTag = tag[:len(tag)-2] + "\n      android:roundIcon=\"" + desiredRef + "\"/>"
	} else {
		patchedTag = tag[:len(tag)-1] + "\n      android:roundIcon=\"" + desiredRef + "\">"
	}
	patched := content[:loc[0]] + patchedTag + content[loc[1]:]
	os.WriteFile(manifestPath, []byte(patched), 0o644)
}

// maybeWriteManifest rewrites the manifest only when the content
// actually changed, keeping its mtime stable for incremental aapt runs.
func maybeWriteManifest(manifestPath, text string) error {
	if existing, err := os.ReadFile(manifestPath); err == nil {
		want := blake3.Sum256([]byte(text))
		have := blake3.Sum256(existing)
		if want == have {
			return nil
		}
	}
	return os.WriteFile(manifestPath, []byte(text), 0o644)
}

var iconBuckets = []string{
	"mipmap-mdpi",
	"mipmap-hdpi",
	"mipmap-xhdpi",
	"mipmap-xxhdpi",
	"mipmap-xxxhdpi",
}

// normalizeIconBucketKey folds user spellings (hdpi, mipmap-hdpi, HDPI)
// onto the canonical bucket folder name.
func normalizeIconBucketKey(value string) string {
	key := ""
	for _, r := range value {
		if !unicode.IsSpace(r) {
			key += string(unicode.ToLower(r))
		}
	}
	for _, bucket := range iconBuckets {
		if key == bucket || "mipmap-"+key == bucket {
			return bucket
		}
	}
	return ""
}

// copyLauncherIconSet stages one icon file per density bucket: the
// per-bucket map wins, then the single icon, then the workspace
// fallback icon.
func copyLauncherIconSet(resRoot, outputFileName, label, singleIcon string, iconMap map[string]string, fallbackIcon string, copiedAny *bool) error {
	iconByBucket := map[string]string{}
	for rawKey, rawPath := range iconMap {
		bucket := normalizeIconBucketKey(rawKey)
		if bucket == "" {
			warnf("Unknown Android icon bucket key: %s", rawKey)
			continue
		}
		if rawPath == "" || !fileExists(rawPath) {
			warnf("%s file not found for %s: %s", label, rawKey, rawPath)
			continue
		}
		iconByBucket[bucket] = rawPath
	}
	hasSingle := singleIcon != "" && fileExists(singleIcon)
	if singleIcon != "" && !hasSingle {
		warnf("%s file not found: %s", label, singleIcon)
	}
	hasFallback := fallbackIcon != "" && fileExists(fallbackIcon)
	for _, bucket := range iconBuckets {
		source := iconByBucket[bucket]
		if source == "" && hasSingle {
			source = singleIcon
		}
		if source == "" && hasFallback {
			source = fallbackIcon
		}
		if source == "" {
			continue
		}
		dest := filepath.Join(resRoot, bucket, outputFileName)
		if err := copyFile(source, dest); err != nil {
			return fmt.Errorf("copy Android icon %s -> %s: %w", source, dest, err)
		}
		*copiedAny = true
	}
	return nil
}

func buildAdaptiveIconXML(backgroundRef, foregroundRef, monochromeRef string) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	b.WriteString("<adaptive-icon xmlns:android=\"http://schemas.android.com/apk/res/android\">\n")
	b.WriteString("    <background android:drawable=\"" + backgroundRef + "\"/>\n")
	b.WriteString("    <foreground android:drawable=\"" + foregroundRef + "\"/>\n")
	if monochromeRef != "" {
		b.WriteString("    <monochrome android:drawable=\"" + monochromeRef + "\"/>\n")
	}
	b.WriteString("</adaptive-icon>\n")
	return b.String()
}

// ensureAdaptiveLauncherIcons materializes the adaptive icon resources
// under drawable/ and mipmap-anydpi-v26/.
func ensureAdaptiveLauncherIcons(p *ProjectSpec, resRoot string, createdRound *bool) error {
	icon := p.AndroidAdaptive
	if icon.Foreground == "" {
		return nil
	}
	if !fileExists(icon.Foreground) {
		return fmt.Errorf("android adaptive icon foreground not found: %s", icon.Foreground)
	}
	drawableRoot := filepath.Join(resRoot, "drawable")
	adaptiveRoot := filepath.Join(resRoot, "mipmap-anydpi-v26")
	if err := ensureDir(drawableRoot); err != nil {
		return err
	}
	if err := ensureDir(adaptiveRoot); err != nil {
		return err
	}
	if err := copyFile(icon.Foreground, filepath.Join(drawableRoot, "ic_launcher_foreground.png")); err != nil {
		return fmt.Errorf("copy adaptive foreground icon: %w", err)
	}

	monochromeRef := ""
	if icon.Monochrome != "" {
		if !fileExists(icon.Monochrome) {
			return fmt.Errorf("android adaptive monochrome icon not found: %s", icon.Monochrome)
		}
		if err := copyFile(icon.Monochrome, filepath.Join(drawableRoot, "ic_launcher_monochrome.png")); err != nil {
			return fmt.Errorf("copy adaptive monochrome icon: %w", err)
		}
		monochromeRef = "@drawable/ic_launcher_monochrome"
	}

	backgroundRef := "@drawable/ic_launcher_background"
	if icon.BackgroundImage != "" {
		if !fileExists(icon.BackgroundImage) {
			return fmt.Errorf("android adaptive background image not found: %s", icon.BackgroundImage)
		}
		if err := copyFile(icon.BackgroundImage, filepath.Join(drawableRoot, "ic_launcher_background.png")); err != nil {
			return fmt.Errorf("copy adaptive background image: %w", err)
		}
	} else {
		color := icon.BackgroundColor
		if color == "" {
			color = "#FFFFFF"
		}
		backgroundXML := "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
			"<shape xmlns:android=\"http://schemas.android.com/apk/res/android\" android:shape=\"rectangle\">\n" +
			"    <solid android:color=\"" + color + "\"/>\n" +
			"</shape>\n"
		if err := os.WriteFile(filepath.Join(drawableRoot, "ic_launcher_background.xml"), []byte(backgroundXML), 0o644); err != nil {
			return fmt.Errorf("write adaptive background xml: %w", err)
		}
	}

	adaptiveXML := buildAdaptiveIconXML(backgroundRef, "@drawable/ic_launcher_foreground", monochromeRef)
	if err := os.WriteFile(filepath.Join(adaptiveRoot, "ic_launcher.xml"), []byte(adaptiveXML), 0o644); err != nil {
		return fmt.Errorf("write adaptive launcher xml: %w", err)
	}
	if icon.Round {
		if err := os.WriteFile(filepath.Join(adaptiveRoot, "ic_launcher_round.xml"), []byte(adaptiveXML), 0o644); err != nil {
			return fmt.Errorf("write adaptive round launcher xml: %w", err)
		}
		*createdRound = true
	}
	return nil
}

func ensureProjectLauncherIcons(repoRoot string, p *ProjectSpec, resRoot string) error {
	fallbackIcon := filepath.Join(repoRoot, "Templates", "Android", "Res", "mipmap-hdpi", "ic_launcher.png")

	copiedMain := false
	if err := copyLauncherIconSet(resRoot, "ic_launcher.png", "Android ICON", p.AndroidIcon, p.AndroidIcons, fallbackIcon, &copiedMain); err != nil {
		return err
	}
	roundSingle := p.AndroidRoundIcon
	if roundSingle == "" {
		roundSingle = p.AndroidIcon
	}
	roundMap := p.AndroidRoundIcons
	if len(roundMap) == 0 {
		roundMap = p.AndroidIcons
	}
	copiedRound := false
	if err := copyLauncherIconSet(resRoot, "ic_launcher_round.png", "Android ROUND_ICON", roundSingle, roundMap, fallbackIcon, &copiedRound); err != nil {
		return err
	}
	adaptiveRound := false
	if err := ensureAdaptiveLauncherIcons(p, resRoot, &adaptiveRound); err != nil {
		return err
	}
	if !copiedMain {
		warnf("No launcher icon copied. Configure Android.ICON or Android.ICONS in project main.mk")
	}
	if !copiedRound && !adaptiveRound {
		warnf("No round launcher icon copied. Configure Android.ROUND_ICON/ROUND_ICONS or ADAPTIVE_ICON")
	}
	return nil
}

// androidAppLayout holds the per-project packaging directories under
// <project.root>/Android/<name>/.
type androidAppLayout struct {
	AppRoot  string
	ResRoot  string
	JavaRoot string
	TmpRoot  string
	JavaOut  string
	DexRoot  string
	Manifest string
}

func copyProjectJavaSources(p *ProjectSpec, javaRoot string) error {
	for _, input := range p.AndroidJavaSources {
		if input == "" || !pathExists(input) {
			warnf("Android Java source path not found: %s", input)
			continue
		}
		if dirExists(input) {
			if err := copyDir(input, javaRoot); err != nil {
				warnf("Failed copy Java dir %s: %v", input, err)
				continue
			}
			logf("copy java dir %s -> %s", input, javaRoot)
			continue
		}
		target := filepath.Join(javaRoot, filepath.Base(input))
		if rel, err := filepath.Rel(p.Root, input); err == nil && !strings.HasPrefix(rel, "..") {
			target = filepath.Join(javaRoot, rel)
		}
		if err := copyFile(input, target); err != nil {
			return fmt.Errorf("copy Java file %s -> %s: %w", input, target, err)
		}
		logf("copy java file %s -> %s", input, target)
	}
	return nil
}

func ensureAndroidProjectLayout(repoRoot string, p *ProjectSpec, packageName, activity string) (androidAppLayout, error) {
	var layout androidAppLayout
	layout.AppRoot = filepath.Join(p.Root, androidFolder, p.Name)
	layout.ResRoot = filepath.Join(layout.AppRoot, "res")
	layout.JavaRoot = filepath.Join(layout.AppRoot, "java")
	layout.TmpRoot = filepath.Join(layout.AppRoot, "tmp")
	layout.JavaOut = filepath.Join(layout.AppRoot, "out")
	layout.DexRoot = filepath.Join(layout.AppRoot, "dex")
	layout.Manifest = filepath.Join(layout.AppRoot, "AndroidManifest.xml")

	for _, dir := range []string{layout.AppRoot, layout.ResRoot, layout.JavaRoot, layout.TmpRoot, layout.JavaOut, layout.DexRoot} {
		if err := ensureDir(dir); err != nil {
			return layout, fmt.Errorf("create Android project output folders for %s: %w", p.Name, err)
		}
	}
	if err := copyProjectJavaSources(p, layout.JavaRoot); err != nil {
		return layout, err
	}
	if err := ensureProjectLauncherIcons(repoRoot, p, layout.ResRoot); err != nil {
		return layout, err
	}

	label := p.AndroidLabel
	if label == "" {
		label = p.Name
		if label == "" {
			label = "app"
		}
	}
	tmpl, err := loadManifestTemplate(repoRoot, p, activity)
	if err != nil {
		return layout, err
	}
	text := buildManifest(tmpl, packageName, label, activity, p.Name, p.AndroidManifestVars)
	if err := maybeWriteManifest(layout.Manifest, text); err != nil {
		return layout, fmt.Errorf("write manifest %s: %w", layout.Manifest, err)
	}
	ensureManifestIconFallback(layout.Manifest, layout.ResRoot)
	ensureManifestRoundIcon(layout.Manifest, layout.ResRoot)
	return layout, nil
}

// removeGeneratedJavaResources drops stale aapt output before a fresh
// -J generation pass.
func removeGeneratedJavaResources(javaRoot string) {
	filepath.WalkDir(javaRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "R.java" || strings.HasPrefix(name, "R$") {
			os.Remove(path)
		}
		return nil
	})
}

func collectFilesByExtension(root, ext string) []string {
	var out []string
	want := strings.ToLower(ext)
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == want {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

func runAaptGenerateResources(ex *Executor, tc androidToolchain, layout androidAppLayout) error {
	removeGeneratedJavaResources(layout.JavaRoot)
	args := []string{
		"package", "-f", "-m",
		"-J", layout.JavaRoot,
		"-M", layout.Manifest,
		"-S", layout.ResRoot,
		"-I", tc.PlatformJar,
	}
	if err := ex.Run(tc.Aapt, args, ""); err != nil {
		return fmt.Errorf("aapt resource generation failed: %w", err)
	}
	return nil
}

func compileJavaSources(ex *Executor, tc androidToolchain, layout androidAppLayout) error {
	javaFiles := collectFilesByExtension(layout.JavaRoot, ".java")
	if len(javaFiles) == 0 {
		logf("No Java sources found, skipping javac")
		return nil
	}
	os.RemoveAll(layout.JavaOut)
	if err := ensureDir(layout.JavaOut); err != nil {
		return err
	}
	classpath := tc.PlatformJar + string(os.PathListSeparator) + layout.JavaOut
	sourcepath := strings.Join([]string{layout.JavaRoot, filepath.Join(layout.JavaRoot, "org"), layout.JavaOut}, string(os.PathListSeparator))
	args := []string{
		"-nowarn", "-Xlint:none", "-J-Xmx2048m", "-Xlint:unchecked",
		"-source", "1.8", "-target", "1.8",
		"-d", layout.JavaOut,
		"-classpath", classpath,
		"-sourcepath", sourcepath,
	}
	args = append(args, javaFiles...)
	if err := ex.Run(tc.Javac, args, ""); err != nil {
		return fmt.Errorf("java compilation failed: %w", err)
	}
	return nil
}

func buildDex(ex *Executor, tc androidToolchain, layout androidAppLayout) error {
	os.RemoveAll(layout.DexRoot)
	if err := ensureDir(layout.DexRoot); err != nil {
		return err
	}
	classes := collectFilesByExtension(layout.JavaOut, ".class")
	if len(classes) == 0 {
		logf("No .class files found, skipping dex")
		return nil
	}
	if tc.D8 != "" {
		args := []string{"--release", "--output", layout.DexRoot, "--lib", tc.PlatformJar}
		args = append(args, classes...)
		if err := ex.Run(tc.D8, args, ""); err == nil {
			return nil
		}
		warnf("d8 failed, trying dx fallback")
	}
	if tc.Dx == "" {
		return fmt.Errorf("dx fallback not found and d8 failed")
	}
	args := []string{"--dex", "--output=" + filepath.Join(layout.DexRoot, "classes.dex")}
	args = append(args, classes...)
	if err := ex.Run(tc.Dx, args, ""); err != nil {
		return fmt.Errorf("dx failed while creating classes.dex: %w", err)
	}
	return nil
}

// checkStageDiskSpace refuses to stage onto an almost-full filesystem,
// which otherwise surfaces as an opaque aapt failure mid-way.
func checkStageDiskSpace(dir string) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return nil
	}
	free := st.Bavail * uint64(st.Bsize)
	const minFree = 64 << 20
	if free < minFree {
		return fmt.Errorf("not enough free disk space under %s (%d bytes available)", dir, free)
	}
	return nil
}

var apkAssetFolders = [][2]string{
	{"scripts", "assets/scripts"},
	{"assets", "assets/assets"},
	{"resources", "assets/resources"},
	{"data", "assets/data"},
	{"media", "assets/media"},
}

// stageNativeLibsAndAssets lays the APK payload out under tmp/apk_stage
// with the paths aapt add will record verbatim.
func stageNativeLibsAndAssets(p *ProjectSpec, stageRoot, dexRoot string) error {
	os.RemoveAll(stageRoot)
	if err := ensureDir(stageRoot); err != nil {
		return fmt.Errorf("create APK stage dir %s: %w", stageRoot, err)
	}
	if err := checkStageDiskSpace(stageRoot); err != nil {
		return err
	}
	for _, abiName := range []string{"armeabi-v7a", "arm64-v8a"} {
		libFile := filepath.Join(p.Root, androidFolder, abiName, "lib"+p.Name+".so")
		if !fileExists(libFile) {
			continue
		}
		dst := filepath.Join(stageRoot, "lib", abiName, "lib"+p.Name+".so")
		if err := copyFile(libFile, dst); err != nil {
			return fmt.Errorf("stage native library %s: %w", libFile, err)
		}
	}
	for _, pair := range apkAssetFolders {
		src := filepath.Join(p.Root, pair[0])
		if !dirExists(src) {
			continue
		}
		dst := filepath.Join(stageRoot, filepath.FromSlash(pair[1]))
		if err := copyDir(src, dst); err != nil {
			warnf("Failed pack %s: %v", pair[0], err)
			continue
		}
		logf("pack %s -> %s", pair[0], pair[1])
	}
	for _, dex := range collectFilesByExtension(dexRoot, ".dex") {
		if err := copyFile(dex, filepath.Join(stageRoot, filepath.Base(dex))); err != nil {
			return fmt.Errorf("stage dex file %s: %w", dex, err)
		}
	}
	return nil
}

func collectRelativeFiles(root string) []string {
	var out []string
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(out)
	return out
}

// addFilesToAPK feeds the staged files to aapt add in chunks so the
// argument list stays under the platform limit.
func addFilesToAPK(ex *Executor, tc androidToolchain, apkPath, stageRoot string, files []string) error {
	const chunkSize = 180
	for i := 0; i < len(files); i += chunkSize {
		end := i + chunkSize
		if end > len(files) {
			end = len(files)
		}
		args := append([]string{"add", apkPath}, files[i:end]...)
		if err := ex.Run(tc.Aapt, args, stageRoot); err != nil {
			return fmt.Errorf("aapt add failed while adding staged files to apk: %w", err)
		}
	}
	return nil
}

// verifyAPKEntries opens the packaged archive and checks the staged
// payload actually made it in.
func verifyAPKEntries(apkPath string, wanted []string) error {
	r, err := zip.OpenReader(apkPath)
	if err != nil {
		return fmt.Errorf("open apk %s: %w", apkPath, err)
	}
	defer r.Close()
	have := map[string]bool{}
	for _, f := range r.File {
		have[f.Name] = true
	}
	var missing []string
	for _, name := range wanted {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("apk %s is missing staged entries: %s", apkPath, joinComma(missing))
	}
	return nil
}

func ensureDebugKeystore(ex *Executor, tc androidToolchain, keystorePath string) error {
	if fileExists(keystorePath) {
		return nil
	}
	args := []string{
		"-genkeypair",
		"-validity", "1000",
		"-dname", "CN=djokersoft,O=Android,C=PT",
		"-keystore", keystorePath,
		"-storepass", debugKeystorePass,
		"-keypass", debugKeystorePass,
		"-alias", debugKeystoreAlias,
		"-keyalg", "RSA",
	}
	if err := ex.Run(tc.Keytool, args, ""); err != nil {
		return fmt.Errorf("generate debug keystore %s: %w", keystorePath, err)
	}
	return nil
}

func signAPK(ex *Executor, tc androidToolchain, unsignedAPK, signedAPK, keystore string) error {
	args := []string{
		"sign",
		"--ks", keystore,
		"--ks-key-alias", debugKeystoreAlias,
		"--ks-pass", "pass:" + debugKeystorePass,
		"--in", unsignedAPK,
		"--out", signedAPK,
	}
	if err := ex.Run(tc.Apksigner, args, ""); err != nil {
		return fmt.Errorf("apksigner failed for %s: %w", signedAPK, err)
	}
	return nil
}

// adbInstall installs the APK, retrying once after an uninstall when a
// signature mismatch blocks the replace.
func adbInstall(ex *Executor, tc androidToolchain, signedAPK, packageName string) error {
	if err := ex.Run(tc.Adb, []string{"install", "-r", signedAPK}, ""); err == nil {
		return nil
	}
	ex.Run(tc.Adb, []string{"uninstall", packageName}, "")
	return ex.Run(tc.Adb, []string{"install", "-r", signedAPK}, "")
}

func adbRun(ex *Executor, tc androidToolchain, packageName, activity string) error {
	ex.Run(tc.Adb, []string{"shell", "am", "force-stop", packageName}, "")
	component := packageName + "/" + activity
	return ex.Run(tc.Adb, []string{"shell", "am", "start", "-n", component}, "")
}

// buildAndroidProjectAPK packages the built native libraries into a
// signed APK and optionally deploys it to a connected device.
func buildAndroidProjectAPK(ex *Executor, repoRoot string, p *ProjectSpec, tc androidToolchain, runAfter bool) error {
	packageName := sanitizeAndroidPackage(p.AndroidPackage)
	activity := normalizeActivity(packageName, p.AndroidActivity)

	layout, err := ensureAndroidProjectLayout(repoRoot, p, packageName, activity)
	if err != nil {
		return err
	}
	if err := runAaptGenerateResources(ex, tc, layout); err != nil {
		return err
	}
	if err := compileJavaSources(ex, tc, layout); err != nil {
		return err
	}
	if err := buildDex(ex, tc, layout); err != nil {
		return err
	}

	unalignedAPK := filepath.Join(layout.TmpRoot, p.Name+".unaligned.apk")
	args := []string{
		"package", "-f", "-m",
		"-F", unalignedAPK,
		"-M", layout.Manifest,
		"-S", layout.ResRoot,
		"-I", tc.PlatformJar,
	}
	if err := ex.Run(tc.Aapt, args, ""); err != nil {
		return fmt.Errorf("aapt base apk packaging failed: %w", err)
	}

	stageRoot := filepath.Join(layout.TmpRoot, "apk_stage")
	if err := stageNativeLibsAndAssets(p, stageRoot, layout.DexRoot); err != nil {
		return err
	}
	stagedFiles := collectRelativeFiles(stageRoot)
	if err := addFilesToAPK(ex, tc, unalignedAPK, stageRoot, stagedFiles); err != nil {
		return err
	}
	if !ex.DryRun {
		if err := verifyAPKEntries(unalignedAPK, stagedFiles); err != nil {
			return err
		}
	}

	debugKey := filepath.Join(layout.AppRoot, p.Name+".key")
	if err := ensureDebugKeystore(ex, tc, debugKey); err != nil {
		return err
	}
	signedAPK := filepath.Join(layout.AppRoot, p.Name+".signed.apk")
	if err := signAPK(ex, tc, unalignedAPK, signedAPK, debugKey); err != nil {
		return err
	}
	logf("Signed APK: %s", signedAPK)

	if runAfter {
		if err := adbInstall(ex, tc, signedAPK, packageName); err != nil {
			return fmt.Errorf("adb install failed for %s: %w", signedAPK, err)
		}
		if err := adbRun(ex, tc, packageName, activity); err != nil {
			return fmt.Errorf("adb run failed for component %s/%s: %w", packageName, activity, err)
		}
	}
	return nil
}
