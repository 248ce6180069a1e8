package crosside

import (
	"os"
	"path/filepath"
	"strings"
)

var cppExtensions = map[string]bool{
	".cc":  true,
	".cpp": true,
	".cxx": true,
	".mm":  true,
	".xpp": true,
}

// isCppSource classifies a source file by extension, lowercased so the
// same file picks the same compiler on every filesystem.
func isCppSource(path string) bool {
	return cppExtensions[strings.ToLower(filepath.Ext(path))]
}

func isCompilableSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".c" || ext == ".m" || cppExtensions[ext]
}

// stripModeFlags removes optimization and debug tokens so the selected
// build mode controls them exclusively.
func stripModeFlags(flags []string) []string {
	var out []string
	for _, f := range flags {
		if f == "" || f == "-DDEBUG" || f == "-DNDEBUG" || f == "-s" {
			continue
		}
		if strings.HasPrefix(f, "-O") || strings.HasPrefix(f, "-g") {
			continue
		}
		out = append(out, f)
	}
	return out
}

// modeFlags are the tokens a build mode injects into both compile lanes.
func modeFlags(mode string) []string {
	if mode == "debug" {
		return []string{"-O0", "-g3", "-DDEBUG", "-fno-omit-frame-pointer"}
	}
	return []string{"-O2", "-DNDEBUG"}
}

// includeSubdir is the per-target folder under a module's include/.
func includeSubdir(target string) string {
	switch target {
	case targetAndroid:
		return "android"
	case targetWeb:
		return "web"
	default:
		if hostDesktopKey() == "windows" {
			return "windows"
		}
		return "linux"
	}
}

// moduleIncludeFlags emits the module's -I contributions for a target:
// the conventional src/, include/ and include/<platform> folders, then
// the explicit base and per-target include entries.
func moduleIncludeFlags(mod *ModuleSpec, target string, block *PlatformBlock) []string {
	var out []string
	add := func(dir string) {
		out = appendUnique(out, "-I"+dir)
	}
	add(filepath.Join(mod.Dir, "src"))
	add(filepath.Join(mod.Dir, "include"))
	add(filepath.Join(mod.Dir, "include", includeSubdir(target)))
	for _, inc := range mod.Main.Include {
		add(absAgainst(mod.Dir, inc))
	}
	if block != nil {
		for _, inc := range block.Include {
			add(absAgainst(mod.Dir, inc))
		}
	}
	return out
}

// moduleLinkFlags emits -L/-l tokens for a dependency's output folder.
// When the canonical lib<name>.{a,so} is missing, the folder is scanned
// for case-skewed variants so ndk-build artifacts still link.
func moduleLinkFlags(mod *ModuleSpec, outDir string) []string {
	flags := []string{"-L" + outDir}
	canonical := false
	for _, ext := range []string{".a", ".so"} {
		if fileExists(filepath.Join(outDir, "lib"+mod.Name+ext)) {
			canonical = true
			break
		}
	}
	if canonical {
		return append(flags, "-l"+mod.Name)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return append(flags, "-l"+mod.Name)
	}
	found := false
	for _, entry := range entries {
		name := entry.Name()
		var stem string
		switch {
		case strings.HasSuffix(name, ".a"):
			stem = strings.TrimSuffix(name, ".a")
		case strings.HasSuffix(name, ".so"):
			stem = strings.TrimSuffix(name, ".so")
		default:
			continue
		}
		stem = strings.TrimPrefix(stem, "lib")
		if strings.EqualFold(stem, mod.Name) {
			flags = appendUnique(flags, "-l"+stem)
			found = true
		}
	}
	if !found {
		flags = append(flags, "-l"+mod.Name)
	}
	return flags
}

// blockFor selects a module's per-target platform block.
func blockFor(mod *ModuleSpec, target string) *PlatformBlock {
	switch target {
	case targetAndroid:
		return &mod.Android
	case targetWeb:
		return &mod.Web
	default:
		return &mod.Desktop
	}
}

// blockForProject selects a project's per-target flag block.
func blockForProject(p *ProjectSpec, target string) *FlagBlock {
	switch target {
	case targetAndroid:
		return &p.Android
	case targetWeb:
		return &p.Web
	default:
		return &p.Desktop
	}
}

// composeLanes merges base and per-target flag lanes: compile lanes are
// deduplicated by literal token, linker tokens keep every occurrence.
func composeLanes(base, target FlagBlock) FlagBlock {
	var out FlagBlock
	for _, f := range base.CCArgs {
		out.CCArgs = appendUnique(out.CCArgs, f)
	}
	for _, f := range target.CCArgs {
		out.CCArgs = appendUnique(out.CCArgs, f)
	}
	for _, f := range base.CPPArgs {
		out.CPPArgs = appendUnique(out.CPPArgs, f)
	}
	for _, f := range target.CPPArgs {
		out.CPPArgs = appendUnique(out.CPPArgs, f)
	}
	out.LDArgs = appendAll(appendAll(nil, base.LDArgs), target.LDArgs)
	return out
}

// moduleSources resolves a module's effective source list for a target:
// base sources then target sources, deduplicated by absolute path.
func moduleSources(mod *ModuleSpec, block *PlatformBlock) []string {
	seen := map[string]bool{}
	var out []string
	add := func(entry string) {
		abs := absAgainst(mod.Dir, entry)
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}
	for _, src := range mod.Main.Src {
		add(src)
	}
	if block != nil {
		for _, src := range block.Src {
			add(src)
		}
	}
	return out
}
