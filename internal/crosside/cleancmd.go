package crosside

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type cleanOptions struct {
	Kind        string
	Name        string
	Targets     []string
	ProjectFile string
	ModuleFile  string
	Release     string
	WithDeps    bool
	DryRun      bool
	ABIs        []int
}

func parseCleanArgs(args []string) (cleanOptions, error) {
	opts := cleanOptions{
		Kind: "app",
		ABIs: []int{abiArm7, abiArm64},
	}
	var positionals []string
	next := func(i *int, flag string) (string, error) {
		*i++
		if *i >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "module", "mod":
			if opts.Name == "" && len(positionals) == 0 {
				opts.Kind = "module"
				continue
			}
			positionals = append(positionals, arg)
		case "app", "project", "proj":
			if opts.Name == "" && len(positionals) == 0 {
				opts.Kind = "app"
				continue
			}
			positionals = append(positionals, arg)
		case "--with-deps":
			opts.WithDeps = true
		case "--dry-run":
			opts.DryRun = true
		case "--project-file":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.ProjectFile = value
		case "--module-file":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.ModuleFile = value
		case "--release":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.Release = value
		case "--abis":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			abis, err := parseABIs(value)
			if err != nil {
				return opts, err
			}
			opts.ABIs = abis
		default:
			if strings.HasPrefix(arg, "--") {
				return opts, fmt.Errorf("unknown clean option %s", arg)
			}
			positionals = append(positionals, arg)
		}
	}
	if len(positionals) == 0 {
		return opts, fmt.Errorf("clean requires a module or project name")
	}
	opts.Name = positionals[0]
	opts.Targets = normalizeTargets(positionals[1:])
	if len(opts.Targets) == 0 {
		opts.Targets = []string{targetDesktop, targetAndroid, targetWeb}
	}
	return opts, nil
}

// cleanModuleTarget removes one module's objects and artifacts for a
// target. Returns the number of entries that existed.
func cleanModuleTarget(mod *ModuleSpec, target string, abis []int, dryRun bool) int {
	removed := 0
	remove := func(path string) {
		if removePath(path, dryRun) {
			removed++
		}
	}
	switch target {
	case targetDesktop:
		remove(filepath.Join(mod.Dir, "obj", desktopFolder(), mod.Name))
		for _, ext := range []string{".a", ".so", ".dll"} {
			remove(filepath.Join(mod.Dir, desktopFolder(), "lib"+mod.Name+ext))
		}
	case targetWeb:
		remove(filepath.Join(mod.Dir, "obj", webFolder, mod.Name))
		remove(filepath.Join(mod.Dir, webFolder, "lib"+mod.Name+".a"))
		for _, ext := range []string{".html", ".js", ".wasm", ".data"} {
			remove(filepath.Join(mod.Dir, webFolder, mod.Name+ext))
		}
	case targetAndroid:
		remove(filepath.Join(mod.Dir, "obj", androidFolder, mod.Name))
		for _, value := range abis {
			abi := abiInfoFor(value)
			for _, ext := range []string{".a", ".so"} {
				remove(filepath.Join(mod.Dir, androidFolder, abi.Name, "lib"+mod.Name+ext))
			}
		}
	}
	return removed
}

// cleanProjectTarget removes a project's objects, executables and
// exports for a target, including any release-profile object mirrors.
func cleanProjectTarget(p *ProjectSpec, target string, abis []int, dryRun bool) int {
	removed := 0
	remove := func(path string) {
		if removePath(path, dryRun) {
			removed++
		}
	}
	objKeys := []string{p.Name}
	if key := p.BuildCacheKey(); key != p.Name {
		objKeys = append(objKeys, key)
	}
	switch target {
	case targetDesktop:
		for _, key := range objKeys {
			remove(filepath.Join(p.Root, "obj", desktopFolder(), key))
		}
		remove(filepath.Join(p.Root, p.Name))
		remove(filepath.Join(p.Root, p.Name+".exe"))
	case targetWeb:
		for _, key := range objKeys {
			remove(filepath.Join(p.Root, "obj", webFolder, key))
		}
		for _, ext := range []string{".html", ".js", ".wasm", ".data", ".worker.js"} {
			remove(filepath.Join(p.Root, webFolder, p.Name+ext))
		}
	case targetAndroid:
		for _, key := range objKeys {
			remove(filepath.Join(p.Root, "obj", androidFolder, key))
		}
		for _, value := range abis {
			abi := abiInfoFor(value)
			remove(filepath.Join(p.Root, androidFolder, abi.Name, "lib"+p.Name+".so"))
		}
		remove(filepath.Join(p.Root, androidFolder, p.Name))
	}
	return removed
}

func handleCleanCommand(args []string) error {
	opts, err := parseCleanArgs(args)
	if err != nil {
		return err
	}
	repoRoot := DetectRepoRoot()
	mods := DiscoverModules(repoRoot)

	removed := 0
	if opts.Name == "all" || opts.Name == "*" {
		if opts.ModuleFile != "" {
			warnf("Ignoring --module-file for clean all")
		}
		if opts.WithDeps {
			warnf("--with-deps has no effect for clean all")
		}
		var names []string
		for name := range mods {
			names = append(names, name)
		}
		sort.Strings(names)
		// Interactive confirmation guards the widest sweep.
		if !opts.DryRun && stdinIsTerminal() {
			if !confirmPrompt(fmt.Sprintf("Clean %d modules for %s?", len(names), joinComma(opts.Targets))) {
				logf("Aborted.")
				return nil
			}
		}
		for _, name := range names {
			for _, target := range opts.Targets {
				removed += cleanModuleTarget(mods[name], target, opts.ABIs, opts.DryRun)
			}
		}
	} else if opts.Kind == "module" {
		file := ResolveModuleFile(repoRoot, opts.Name, opts.ModuleFile)
		mod, err := LoadModuleFile(file)
		if err != nil {
			return fmt.Errorf("%w: %s (%v)", errModuleNotFound, opts.Name, err)
		}
		mods[mod.Name] = mod
		order := []string{mod.Name}
		if opts.WithDeps {
			order = ModuleClosure(mods, []string{mod.Name})
		}
		for _, name := range order {
			for _, target := range opts.Targets {
				removed += cleanModuleTarget(mods[name], target, opts.ABIs, opts.DryRun)
			}
		}
	} else {
		file := ResolveProjectFile(repoRoot, opts.Name, opts.ProjectFile)
		p, err := LoadProjectFile(file, opts.Release, opts.Release != "")
		if err != nil {
			return fmt.Errorf("%w: %s (%v)", errProjectNotFound, opts.Name, err)
		}
		for _, target := range opts.Targets {
			removed += cleanProjectTarget(p, target, opts.ABIs, opts.DryRun)
		}
		if opts.WithDeps {
			for _, name := range ModuleClosure(mods, p.Modules) {
				for _, target := range opts.Targets {
					removed += cleanModuleTarget(mods[name], target, opts.ABIs, opts.DryRun)
				}
			}
		}
	}

	if opts.DryRun {
		logf("Dry-run done. Candidates: %d", removed)
	} else {
		logf("Removed entries: %d", removed)
	}
	return nil
}

// confirmPrompt asks a yes/no question on the terminal.
func confirmPrompt(question string) bool {
	colNote.Printf("%s [y/N] ", question)
	var answer string
	fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
