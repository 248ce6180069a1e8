package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// hostDesktopKey names the desktop entry inside a module's "plataforms"
// object. The key is spelled the way the descriptors spell it.
func hostDesktopKey() string {
	if runtime.GOOS == "windows" {
		return "windows"
	}
	return "linux"
}

// desktopFolder is the artifact folder for the host desktop target.
func desktopFolder() string {
	if runtime.GOOS == "windows" {
		return "Windows"
	}
	return "Linux"
}

func parseFlagBlock(obj map[string]any) FlagBlock {
	if obj == nil {
		return FlagBlock{}
	}
	return FlagBlock{
		CPPArgs: stringOrList(obj["CPP_ARGS"]),
		CCArgs:  stringOrList(obj["CC_ARGS"]),
		LDArgs:  stringOrList(obj["LD_ARGS"]),
	}
}

// parseProjectFlagBlock reads a project lane block. Project descriptors
// spell the lanes CPP/CC/LD; module descriptors use CPP_ARGS/CC_ARGS/LD_ARGS.
func parseProjectFlagBlock(obj map[string]any) FlagBlock {
	if obj == nil {
		return FlagBlock{}
	}
	return FlagBlock{
		CPPArgs: stringOrList(obj["CPP"]),
		CCArgs:  stringOrList(obj["CC"]),
		LDArgs:  stringOrList(obj["LD"]),
	}
}

func parsePlatformBlock(obj map[string]any) PlatformBlock {
	if obj == nil {
		return PlatformBlock{}
	}
	block := PlatformBlock{
		Src:           toStringList(obj["src"]),
		Include:       toStringList(obj["include"]),
		Flags:         parseFlagBlock(obj),
		ShellTemplate: getString(obj, "template"),
	}
	if b := getBoolPtr(obj, "static"); b != nil {
		block.StaticLib = b
	} else if b := getBoolPtr(obj, "shared"); b != nil {
		inv := !*b
		block.StaticLib = &inv
	}
	return block
}

// LoadModuleFile parses a modules/<name>/module.json descriptor. The
// per-target sections live under the literal "plataforms" key.
func LoadModuleFile(path string) (*ModuleSpec, error) {
	obj, err := decodeJSONFile(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	mod := &ModuleSpec{
		Name:      getString(obj, "module"),
		Dir:       dir,
		About:     getString(obj, "about"),
		Author:    getString(obj, "author"),
		Version:   getString(obj, "version"),
		StaticLib: getBool(obj, "static", true),
		Depends:   toStringList(obj["depends"]),
		Systems:   toStringList(obj["system"]),
	}
	if mod.Name == "" {
		mod.Name = filepath.Base(dir)
	}
	mod.Main = PlatformBlock{
		Src:     toStringList(obj["src"]),
		Include: toStringList(obj["include"]),
		Flags:   parseFlagBlock(obj),
	}
	if plat := getObject(obj, "plataforms"); plat != nil {
		mod.Desktop = parsePlatformBlock(getObject(plat, hostDesktopKey()))
		mod.Android = parsePlatformBlock(getObject(plat, "android"))
		mod.Web = parsePlatformBlock(getObject(plat, "emscripten"))
	}
	return mod, nil
}

func projectValue(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			return v
		}
	}
	return nil
}

func projectObject(obj map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if m := getObject(obj, key); m != nil {
			return m
		}
	}
	return nil
}

func projectString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := getString(obj, key); s != "" {
			return s
		}
	}
	return ""
}

func absAgainst(root, path string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func absListAgainst(root string, list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, absAgainst(root, item))
	}
	return out
}

func parseAdaptiveIcon(p *ProjectSpec, android map[string]any) {
	icon := AdaptiveIcon{Round: true}
	if block := getObject(android, "ADAPTIVE_ICON"); block != nil {
		icon.Foreground = getString(block, "FOREGROUND")
		icon.Monochrome = getString(block, "MONOCHROME")
		if bg := getString(block, "BACKGROUND"); bg != "" {
			if strings.HasPrefix(bg, "#") {
				icon.BackgroundColor = bg
			} else {
				icon.BackgroundImage = bg
			}
		}
		icon.Round = getBool(block, "ROUND", true)
	}
	if v := getString(android, "ADAPTIVE_FOREGROUND"); v != "" {
		icon.Foreground = v
	}
	if v := getString(android, "ADAPTIVE_MONOCHROME"); v != "" {
		icon.Monochrome = v
	}
	if v := getString(android, "ADAPTIVE_BACKGROUND"); v != "" {
		if strings.HasPrefix(v, "#") {
			icon.BackgroundColor = v
			icon.BackgroundImage = ""
		} else {
			icon.BackgroundImage = v
			icon.BackgroundColor = ""
		}
	}
	if b := getBoolPtr(android, "ADAPTIVE_ROUND"); b != nil {
		icon.Round = *b
	}
	icon.Foreground = absAgainst(p.Root, icon.Foreground)
	icon.Monochrome = absAgainst(p.Root, icon.Monochrome)
	icon.BackgroundImage = absAgainst(p.Root, icon.BackgroundImage)
	p.AndroidAdaptive = icon
}

func parseAndroidPackaging(p *ProjectSpec, android map[string]any) {
	if android == nil {
		return
	}
	p.AndroidPackage = getString(android, "PACKAGE")
	p.AndroidActivity = getString(android, "ACTIVITY")
	p.AndroidLabel = getString(android, "LABEL")
	p.AndroidManifestMode = projectString(android, "MANIFEST_MODE", "MANIFEST_TYPE")
	p.AndroidIcon = absAgainst(p.Root, getString(android, "ICON"))
	p.AndroidRoundIcon = absAgainst(p.Root, getString(android, "ROUND_ICON"))
	if icons := getStringMap(android, "ICONS"); icons != nil {
		p.AndroidIcons = make(map[string]string, len(icons))
		for bucket, path := range icons {
			p.AndroidIcons[bucket] = absAgainst(p.Root, path)
		}
	}
	if icons := getStringMap(android, "ROUND_ICONS"); icons != nil {
		p.AndroidRoundIcons = make(map[string]string, len(icons))
		for bucket, path := range icons {
			p.AndroidRoundIcons[bucket] = absAgainst(p.Root, path)
		}
	}
	for _, key := range []string{"JAVA_SOURCES", "JAVA", "JAVA_DIRS"} {
		for _, entry := range stringOrList(android[key]) {
			p.AndroidJavaSources = append(p.AndroidJavaSources, absAgainst(p.Root, entry))
		}
	}
	parseAdaptiveIcon(p, android)
	if tmpl := projectString(android, "MANIFEST_TEMPLATE", "MANIFEST"); tmpl != "" {
		p.AndroidManifestTemplate = absAgainst(p.Root, tmpl)
	}
	p.AndroidManifestVars = getStringMap(android, "MANIFEST_VARS")
}

// mergeReleaseFlags appends a profile's flag lanes onto the base blocks.
func mergeReleaseFlags(p *ProjectSpec, profile map[string]any) {
	appendLanes := func(dst *FlagBlock, obj map[string]any) {
		b := parseProjectFlagBlock(obj)
		dst.CPPArgs = appendAll(dst.CPPArgs, b.CPPArgs)
		dst.CCArgs = appendAll(dst.CCArgs, b.CCArgs)
		dst.LDArgs = appendAll(dst.LDArgs, b.LDArgs)
	}
	appendLanes(&p.Main, profile)
	appendLanes(&p.Desktop, projectObject(profile, "desktop", "Desktop"))
	appendLanes(&p.Android, projectObject(profile, "android", "Android"))
	appendLanes(&p.Web, projectObject(profile, "web", "Web"))
}

// LoadProjectFile parses a main.mk descriptor. release selects a named
// entry of the "Releases" map; when release is empty and useDefaultRelease
// is set, the descriptor's DefaultRelease (or Release) key applies.
func LoadProjectFile(path, release string, useDefaultRelease bool) (*ProjectSpec, error) {
	obj, err := decodeJSONFile(path)
	if err != nil {
		return nil, err
	}
	p := &ProjectSpec{
		Name:     getString(obj, "Name"),
		FilePath: path,
	}
	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	p.Root = filepath.Dir(path)
	if alt := projectString(obj, "Path", "path"); alt != "" {
		p.Root = absAgainst(filepath.Dir(path), alt)
	}
	p.Modules = toStringList(projectValue(obj, "Modules", "modules"))
	p.Src = absListAgainst(p.Root, toStringList(projectValue(obj, "Src", "src")))
	p.Include = absListAgainst(p.Root, toStringList(projectValue(obj, "Include", "include")))
	p.Main = parseProjectFlagBlock(projectObject(obj, "Main", "main"))
	p.Desktop = parseProjectFlagBlock(projectObject(obj, "Desktop", "desktop"))
	android := projectObject(obj, "Android", "android")
	p.Android = parseProjectFlagBlock(android)
	web := projectObject(obj, "Web", "web")
	p.Web = parseProjectFlagBlock(web)
	parseAndroidPackaging(p, android)
	if web != nil {
		p.WebShell = projectString(web, "SHELL", "Shell", "shell")
	}

	releases := projectObject(obj, "Releases", "releases")
	name := release
	if name == "" && useDefaultRelease {
		name = projectString(obj, "DefaultRelease", "Release")
	}
	if name != "" {
		profile := getObject(releases, name)
		if profile == nil {
			return nil, fmt.Errorf("project %s: release profile %q not defined", p.Name, name)
		}
		mergeReleaseFlags(p, profile)
		p.ReleaseProfile = name
	}
	return p, nil
}

// ResolveModuleFile maps a module name (or explicit descriptor path) to
// its module.json location. Explicit paths may be absolute or repo
// relative; names resolve under <repo>/modules/<name>/.
func ResolveModuleFile(repoRoot, name, explicit string) string {
	if explicit != "" {
		if filepath.IsAbs(explicit) {
			return explicit
		}
		return filepath.Join(repoRoot, explicit)
	}
	return filepath.Join(repoRoot, "modules", name, "module.json")
}

// ResolveProjectFile maps a project hint to its descriptor. A hint that
// names a directory gains a trailing main.mk.
func ResolveProjectFile(repoRoot, hint, explicit string) string {
	if explicit != "" {
		if filepath.IsAbs(explicit) {
			return explicit
		}
		return filepath.Join(repoRoot, explicit)
	}
	if filepath.IsAbs(hint) {
		if dirExists(hint) {
			return filepath.Join(hint, "main.mk")
		}
		return hint
	}
	candidate := filepath.Join(repoRoot, hint)
	if dirExists(candidate) {
		return filepath.Join(candidate, "main.mk")
	}
	if fileExists(candidate) {
		return candidate
	}
	return filepath.Join(repoRoot, "projects", hint, "main.mk")
}

// DiscoverModules loads every module.json one level under <repo>/modules.
// Unparsable descriptors are warned about and skipped.
func DiscoverModules(repoRoot string) ModuleMap {
	mods := ModuleMap{}
	for _, file := range listModuleJSONFiles(filepath.Join(repoRoot, "modules")) {
		mod, err := LoadModuleFile(file)
		if err != nil {
			warnf("Skipping module descriptor %s: %v", file, err)
			continue
		}
		mods[mod.Name] = mod
	}
	return mods
}

// DetectRepoRoot walks up from the working directory, then from the
// executable's directory, looking for the modules/ + projects/ pair.
func DetectRepoRoot() string {
	probe := func(start string) string {
		dir := start
		for i := 0; i < 8; i++ {
			if dirExists(filepath.Join(dir, "modules")) && dirExists(filepath.Join(dir, "projects")) {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
		return ""
	}
	if cwd, err := os.Getwd(); err == nil {
		if root := probe(cwd); root != "" {
			return root
		}
	}
	if exe, err := os.Executable(); err == nil {
		if root := probe(filepath.Dir(exe)); root != "" {
			return root
		}
	}
	cwd, _ := os.Getwd()
	return cwd
}
