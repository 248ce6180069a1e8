package crosside

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// BuildOptions is the parsed surface of the build command.
type BuildOptions struct {
	Kind        string // "module" or "app"
	Name        string
	Targets     []string
	Mode        string
	ProjectFile string
	ModuleFile  string
	Release     string
	Full        bool
	Run         bool
	Detach      bool
	SkipModules bool
	NoDeps      bool
	DryRun      bool
	Check       bool
	ABIs        []int
	Port        int
}

func parseBuildArgs(args []string) (BuildOptions, error) {
	opts := BuildOptions{
		Kind:        "app",
		Mode:        "release",
		SkipModules: true,
		NoDeps:      true,
		ABIs:        []int{abiArm7, abiArm64},
		Port:        8080,
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
		case "--full":
			opts.Full = true
		case "--run":
			opts.Run = true
		case "--detach":
			opts.Detach = true
		case "--skip-modules":
			opts.SkipModules = true
		case "--build-modules":
			opts.SkipModules = false
		case "--no-deps":
			opts.NoDeps = true
		case "--with-deps":
			opts.NoDeps = false
		case "--dry-run":
			opts.DryRun = true
		case "--check":
			opts.Check = true
		case "--mode":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			if value != "release" && value != "debug" {
				return opts, fmt.Errorf("invalid --mode %q (release|debug)", value)
			}
			opts.Mode = value
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
		case "--port":
			value, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			port, err := strconv.Atoi(value)
			if err != nil || port < 1 || port > 65535 {
				return opts, fmt.Errorf("invalid --port %q", value)
			}
			opts.Port = port
		default:
			if strings.HasPrefix(arg, "--") {
				return opts, fmt.Errorf("unknown build option %s", arg)
			}
			positionals = append(positionals, arg)
		}
	}
	if len(positionals) == 0 {
		return opts, fmt.Errorf("build requires a module or project name")
	}
	opts.Name = positionals[0]
	opts.Targets = normalizeTargets(positionals[1:])
	return opts, nil
}

// resolveSingleFileSource checks whether the build subject names a
// compilable source file instead of a project.
func resolveSingleFileSource(repoRoot, raw string) string {
	if !isCompilableSource(raw) {
		return ""
	}
	candidates := []string{raw}
	if !filepath.IsAbs(raw) {
		if cwd, err := filepath.Abs(raw); err == nil {
			candidates = append(candidates, cwd)
		}
		candidates = append(candidates,
			filepath.Join(repoRoot, raw),
			filepath.Join(repoRoot, "projects", raw),
		)
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			abs, err := filepath.Abs(candidate)
			if err == nil {
				return abs
			}
			return candidate
		}
	}
	return ""
}

func handleBuildCommand(args []string) error {
	opts, err := parseBuildArgs(args)
	if err != nil {
		return err
	}
	repoRoot := DetectRepoRoot()
	cfg := LoadWorkspaceConfig(repoRoot)
	if len(opts.Targets) == 0 {
		opts.Targets = []string{cfg.DefaultTarget()}
	}

	ex := Exec
	ex.DryRun = opts.DryRun
	mods := DiscoverModules(repoRoot)

	if opts.Detach && !opts.Run {
		warnf("--detach has no effect without --run")
	}

	if opts.Kind == "module" {
		return buildModuleSubject(ex, repoRoot, cfg, mods, opts)
	}
	return buildAppSubject(ex, repoRoot, cfg, mods, opts)
}

func buildModuleSubject(ex *Executor, repoRoot string, cfg WorkspaceConfig, mods ModuleMap, opts BuildOptions) error {
	file := ResolveModuleFile(repoRoot, opts.Name, opts.ModuleFile)
	mod, err := LoadModuleFile(file)
	if err != nil {
		return fmt.Errorf("%w: %s (%v)", errModuleNotFound, opts.Name, err)
	}
	mods[mod.Name] = mod

	order := []string{mod.Name}
	if !opts.NoDeps {
		order = ModuleClosure(mods, []string{mod.Name})
	}
	if opts.Run || opts.Detach {
		warnf("--run/--detach are ignored for module builds")
	}
	for _, target := range opts.Targets {
		mode := effectiveMode(target, opts.Mode)
		for _, name := range order {
			m := mods[name]
			logf("Build module %s -> %s", m.Name, target)
			switch target {
			case targetDesktop:
				err = buildDesktopModule(ex, mods, m, mode, opts.Full, !opts.NoDeps)
			case targetAndroid:
				err = BuildAndroidModule(ex, repoRoot, cfg.Toolchain, mods, m, opts.Full, opts.ABIs)
			case targetWeb:
				err = buildWebModule(ex, mods, m, opts.Full, !opts.NoDeps)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// effectiveMode forces release for cross targets, which do their own
// optimization-level selection.
func effectiveMode(target, mode string) string {
	if target != targetDesktop && mode != "release" {
		logf("Target %s always builds in release mode", target)
		return "release"
	}
	return mode
}

func buildAppSubject(ex *Executor, repoRoot string, cfg WorkspaceConfig, mods ModuleMap, opts BuildOptions) error {
	if opts.ProjectFile == "" {
		if src := resolveSingleFileSource(repoRoot, opts.Name); src != "" {
			return buildSingleFileApp(ex, repoRoot, cfg, mods, opts, src)
		}
	}

	desktopOnly := len(opts.Targets) == 1 && opts.Targets[0] == targetDesktop
	useDefaultRelease := !(desktopOnly && opts.Release == "")
	if desktopOnly && opts.Release == "" {
		logf("Desktop build without --release: using base project content")
	}

	file := ResolveProjectFile(repoRoot, opts.Name, opts.ProjectFile)
	p, err := LoadProjectFile(file, opts.Release, useDefaultRelease)
	if err != nil {
		return fmt.Errorf("%w: %s (%v)", errProjectNotFound, opts.Name, err)
	}
	if p.WebShell == "" {
		p.WebShell = cfg.WebShell
	}
	return buildProjectTargets(ex, repoRoot, cfg, mods, p, opts)
}

func buildSingleFileApp(ex *Executor, repoRoot string, cfg WorkspaceConfig, mods ModuleMap, opts BuildOptions, src string) error {
	base := filepath.Base(src)
	p := &ProjectSpec{
		Name:    strings.TrimSuffix(base, filepath.Ext(base)),
		Root:    filepath.Dir(src),
		Src:     []string{src},
		Modules: cfg.SingleFileModuleSet(),
	}
	if p.WebShell == "" {
		p.WebShell = cfg.WebShell
	}
	logf("Single file mode: %s (no main.mk)", src)
	if len(p.Modules) == 0 {
		logf("Single file modules: (none)")
	} else {
		logf("Single file modules: %s", joinComma(p.Modules))
	}
	return buildProjectTargets(ex, repoRoot, cfg, mods, p, opts)
}

func buildProjectTargets(ex *Executor, repoRoot string, cfg WorkspaceConfig, mods ModuleMap, p *ProjectSpec, opts BuildOptions) error {
	active := p.Modules
	if len(active) == 0 {
		active = cfg.GlobalModules()
	}
	logf("Build app %s from %s", p.Name, p.Root)
	if key := p.BuildCacheKey(); key != p.Name {
		logf("Build cache key: %s", key)
	}
	if opts.SkipModules {
		logf("Auto-build modules: off")
	} else {
		logf("Auto-build modules: on")
	}

	for _, target := range opts.Targets {
		mode := effectiveMode(target, opts.Mode)
		if opts.SkipModules {
			switch target {
			case targetDesktop:
				if err := validateDesktopArtifacts(mods, active); err != nil {
					return err
				}
			case targetAndroid:
				if err := validateAndroidArtifacts(mods, active, opts.ABIs); err != nil {
					return err
				}
			}
			// Web artifacts are validated lazily at link time since
			// header-only modules have nothing to archive.
		}

		switch target {
		case targetDesktop:
			if err := buildDesktopProject(ex, mods, p, active, mode, opts.Full, !opts.SkipModules, !opts.NoDeps); err != nil {
				return err
			}
			if opts.Run {
				if err := runDesktopProject(ex, p, opts.Detach); err != nil {
					return err
				}
			}
		case targetAndroid:
			if opts.Detach {
				warnf("--detach is not supported for android")
			}
			if err := BuildAndroidProject(ex, repoRoot, cfg.Toolchain, mods, p, active, opts.Full, opts.Run, !opts.SkipModules, opts.ABIs); err != nil {
				return err
			}
		case targetWeb:
			if err := buildWebProject(ex, repoRoot, mods, p, active, opts.Full, !opts.SkipModules, !opts.NoDeps); err != nil {
				return err
			}
			if opts.Check {
				if err := checkWebExport(ex.Context, p); err != nil {
					return err
				}
			}
			if opts.Run {
				if err := runWebProject(ex, p, opts.Port, opts.Detach); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
