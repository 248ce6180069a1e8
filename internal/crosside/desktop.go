package crosside

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	ccDriver  = "gcc"
	cxxDriver = "g++"
)

// desktopModuleFlags composes the full flag set for one module build:
// merged lanes with mode tokens normalized, the module's own include
// flags, then each dependency's includes and link contribution.
func desktopModuleFlags(mods ModuleMap, mod *ModuleSpec, mode string, withDeps bool) (cc, cpp, ld []string) {
	lanes := composeLanes(mod.Main.Flags, mod.Desktop.Flags)
	cc = append(stripModeFlags(lanes.CCArgs), modeFlags(mode)...)
	cpp = append(stripModeFlags(lanes.CPPArgs), modeFlags(mode)...)
	ld = lanes.LDArgs

	includes := moduleIncludeFlags(mod, targetDesktop, &mod.Desktop)
	if withDeps {
		for _, dep := range ModuleClosure(mods, mod.Depends) {
			d := mods[dep]
			includes = append(includes, moduleIncludeFlags(d, targetDesktop, &d.Desktop)...)
			ld = append(ld, moduleLinkFlags(d, filepath.Join(d.Dir, desktopFolder()))...)
			ld = appendAll(ld, d.Main.Flags.LDArgs)
			ld = appendAll(ld, d.Desktop.Flags.LDArgs)
		}
	}
	for _, inc := range includes {
		cc = appendUnique(cc, inc)
		cpp = appendUnique(cpp, inc)
	}
	return cc, cpp, ld
}

// buildDesktopModule compiles one module for the host desktop and packs
// it into lib<name>.a or lib<name>.so under <dir>/<Desktop>/.
func buildDesktopModule(ex *Executor, mods ModuleMap, mod *ModuleSpec, mode string, full, withDeps bool) error {
	sources := moduleSources(mod, &mod.Desktop)
	if len(sources) == 0 {
		return fmt.Errorf("module %s: %w", mod.Name, errNoCompilableFiles)
	}
	cc, cpp, ld := desktopModuleFlags(mods, mod, mode, withDeps)
	objRoot := filepath.Join(mod.Dir, "obj", desktopFolder(), mod.Name)
	jobs, objects := planCompile(sources, objRoot, mod.Dir, full)
	if err := compilePass(ex, jobs, ccDriver, cxxDriver, cc, cpp, []string{"-fPIC"}); err != nil {
		return err
	}

	outDir := filepath.Join(mod.Dir, desktopFolder())
	if err := ensureDir(outDir); err != nil {
		return err
	}
	if mod.StaticForDesktop() {
		outLib := filepath.Join(outDir, "lib"+mod.Name+".a")
		if !ex.DryRun {
			os.Remove(outLib)
		}
		args := append([]string{"rcs", outLib}, objects...)
		if err := ex.Run("ar", args, ""); err != nil {
			return fmt.Errorf("archive %s: %w", mod.Name, err)
		}
		logf("Module library: %s", outLib)
		return nil
	}
	outLib := filepath.Join(outDir, "lib"+mod.Name+".so")
	tool := ccDriver
	for _, src := range sources {
		if isCppSource(src) {
			tool = cxxDriver
			break
		}
	}
	args := []string{"-shared", "-fPIC", "-Wl,--no-undefined", "-o", outLib}
	args = append(args, objects...)
	args = append(args, ld...)
	if err := ex.Run(tool, args, ""); err != nil {
		return fmt.Errorf("link %s: %w", mod.Name, err)
	}
	logf("Module library: %s", outLib)
	return nil
}

// desktopOutputPath is the linked executable for a project.
func desktopOutputPath(p *ProjectSpec) string {
	return filepath.Join(p.Root, p.Name)
}

// buildDesktopProject compiles the project sources and links them with
// the active modules' artifacts in a single --start-group block.
func buildDesktopProject(ex *Executor, mods ModuleMap, p *ProjectSpec, active []string, mode string, full, autoModules, withDeps bool) error {
	closure := ModuleClosure(mods, active)
	if autoModules {
		for _, name := range closure {
			if err := buildDesktopModule(ex, mods, mods[name], mode, full, withDeps); err != nil {
				return err
			}
		}
	}

	lanes := composeLanes(p.Main, p.Desktop)
	cc := append(stripModeFlags(lanes.CCArgs), modeFlags(mode)...)
	cpp := append(stripModeFlags(lanes.CPPArgs), modeFlags(mode)...)
	for _, inc := range p.Include {
		cc = appendUnique(cc, "-I"+inc)
		cpp = appendUnique(cpp, "-I"+inc)
	}
	var linkGroup, sysLd []string
	for _, name := range closure {
		mod := mods[name]
		for _, inc := range moduleIncludeFlags(mod, targetDesktop, &mod.Desktop) {
			cc = appendUnique(cc, inc)
			cpp = appendUnique(cpp, inc)
		}
		linkGroup = append(linkGroup, moduleLinkFlags(mod, filepath.Join(mod.Dir, desktopFolder()))...)
		sysLd = appendAll(sysLd, mod.Main.Flags.LDArgs)
		sysLd = appendAll(sysLd, mod.Desktop.Flags.LDArgs)
	}

	if len(p.Src) == 0 {
		return fmt.Errorf("project %s: %w", p.Name, errNoCompilableFiles)
	}
	objRoot := filepath.Join(p.Root, "obj", desktopFolder(), p.BuildCacheKey())
	jobs, objects := planCompile(p.Src, objRoot, p.Root, full)
	if err := compilePass(ex, jobs, ccDriver, cxxDriver, cc, cpp, nil); err != nil {
		return err
	}

	out := desktopOutputPath(p)
	tool := ccDriver
	for _, src := range p.Src {
		if isCppSource(src) {
			tool = cxxDriver
			break
		}
	}
	args := append([]string{}, objects...)
	args = append(args, "-o", out)
	args = append(args, lanes.LDArgs...)
	if len(linkGroup) > 0 {
		args = append(args, "-Wl,--start-group")
		args = append(args, linkGroup...)
		args = append(args, "-Wl,--end-group")
	}
	args = append(args, sysLd...)
	if err := ex.Run(tool, args, ""); err != nil {
		return fmt.Errorf("link %s: %w", p.Name, err)
	}
	logf("Desktop executable: %s", out)
	return nil
}

// resolveDesktopRunScript finds the optional startup script passed to
// the executable as its first argument, relative to the project root.
func resolveDesktopRunScript(p *ProjectSpec) string {
	for _, rel := range []string{filepath.Join("scripts", "main.bu"), "main.bu"} {
		if fileExists(filepath.Join(p.Root, rel)) {
			return rel
		}
	}
	return ""
}

// runDesktopProject launches the freshly linked executable from the
// project root, optionally detached.
func runDesktopProject(ex *Executor, p *ProjectSpec, detach bool) error {
	exe := desktopOutputPath(p)
	if !fileExists(exe) && !ex.DryRun {
		return fmt.Errorf("executable %s not found", exe)
	}
	var args []string
	if script := resolveDesktopRunScript(p); script != "" {
		args = append(args, script)
	}
	if detach {
		pid, err := ex.RunDetached(exe, args, p.Root)
		if err != nil {
			return err
		}
		logf("Detached run started (pid %d)", pid)
		return nil
	}
	return ex.Run(exe, args, p.Root)
}

// validateDesktopArtifacts checks that every active module already has
// a desktop library when module builds are skipped.
func validateDesktopArtifacts(mods ModuleMap, active []string) error {
	var missing []string
	for _, name := range ModuleClosure(mods, active) {
		mod := mods[name]
		dir := filepath.Join(mod.Dir, desktopFolder())
		if !fileExists(filepath.Join(dir, "lib"+mod.Name+".a")) &&
			!fileExists(filepath.Join(dir, "lib"+mod.Name+".so")) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing desktop artifacts for modules: %s (build them or pass --build-modules)", joinComma(missing))
	}
	return nil
}
