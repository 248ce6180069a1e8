package crosside

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	webFolder          = "Web"
	defaultEmsdkPrefix = "/media/projectos/projects/emsdk/upstream/emscripten"
)

// resolveWebTool picks an Emscripten driver: environment override,
// then the conventional emsdk install, then the bare command on PATH.
func resolveWebTool(bare string, envKeys ...string) (string, error) {
	for _, key := range envKeys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if strings.ContainsRune(v, os.PathSeparator) && !fileExists(v) {
				return "", fmt.Errorf("%s points at %s which does not exist", key, v)
			}
			return v, nil
		}
	}
	candidate := filepath.Join(defaultEmsdkPrefix, bare)
	if fileExists(candidate) {
		return candidate, nil
	}
	return bare, nil
}

type webTools struct {
	CC  string
	CXX string
	AR  string
}

func resolveWebTools() (webTools, error) {
	var t webTools
	var err error
	if t.CC, err = resolveWebTool("emcc", "EMCC"); err != nil {
		return t, err
	}
	if t.CXX, err = resolveWebTool("em++", "EMCPP", "EMXX"); err != nil {
		return t, err
	}
	if t.AR, err = resolveWebTool("emar", "EMAR"); err != nil {
		return t, err
	}
	return t, nil
}

// moduleSupportsWeb filters modules by their systems list.
func moduleSupportsWeb(mod *ModuleSpec) bool {
	if mod.SupportsSystem("emscripten", "web") {
		return true
	}
	logf("Skip %s: no web support declared", mod.Name)
	return false
}

var webRuntimeExports = "-sEXPORTED_RUNTIME_METHODS=['HEAP8','HEAPU8','HEAP16','HEAPU16'," +
	"'HEAP32','HEAPU32','HEAPF32','HEAPF64','ccall','cwrap','requestFullscreen']"

// normalizeWebLdArgs rewrites linker tokens for the Emscripten driver:
// a detached "-s KEY" pair becomes "-sKEY", stray single characters are
// dropped, and when ensureRuntime is set the async and runtime-method
// settings are appended unless already present.
func normalizeWebLdArgs(args []string, ensureRuntime bool) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		token := strings.TrimSpace(args[i])
		if token == "-s" {
			if i+1 < len(args) {
				next := strings.TrimSpace(args[i+1])
				if next != "" && !strings.HasPrefix(next, "-") {
					out = append(out, "-s"+next)
					i++
					continue
				}
			}
			// An -s with no KEY to merge means nothing to emcc.
			continue
		}
		if len(token) <= 1 {
			continue
		}
		out = append(out, token)
	}
	if ensureRuntime {
		hasAsync, hasExports := false, false
		for _, token := range out {
			if strings.HasPrefix(token, "-sASYNCIFY") {
				hasAsync = true
			}
			if strings.HasPrefix(token, "-sEXPORTED_RUNTIME_METHODS") {
				hasExports = true
			}
		}
		if !hasAsync {
			out = append(out, "-sASYNCIFY")
		}
		if !hasExports {
			out = append(out, webRuntimeExports)
		}
	}
	return out
}

// webDepFlags emits a dependency's include and link contribution for
// web builds. The -l token is only emitted when the archive exists.
func webDepFlags(mod *ModuleSpec) (includes, ld []string) {
	includes = moduleIncludeFlags(mod, targetWeb, &mod.Web)
	outDir := filepath.Join(mod.Dir, webFolder)
	ld = append(ld, "-L"+outDir)
	if fileExists(filepath.Join(outDir, "lib"+mod.Name+".a")) {
		ld = append(ld, "-l"+mod.Name)
	}
	ld = appendAll(ld, mod.Main.Flags.LDArgs)
	ld = appendAll(ld, mod.Web.Flags.LDArgs)
	return includes, ld
}

// removeStaleWebOutputs deletes the sibling files a previous link left
// next to the target so a failed link cannot pass for a fresh one.
func removeStaleWebOutputs(htmlPath string) {
	base := strings.TrimSuffix(htmlPath, filepath.Ext(htmlPath))
	for _, suffix := range []string{".html", ".js", ".wasm", ".data", ".worker.js"} {
		os.Remove(base + suffix)
	}
}

// buildWebModule compiles one module with Emscripten. Static modules
// produce Web/lib<name>.a, shared ones link straight to HTML.
func buildWebModule(ex *Executor, mods ModuleMap, mod *ModuleSpec, full, withDeps bool) error {
	if !moduleSupportsWeb(mod) {
		return nil
	}
	tools, err := resolveWebTools()
	if err != nil {
		return err
	}
	sources := moduleSources(mod, &mod.Web)
	if len(sources) == 0 {
		return fmt.Errorf("module %s: %w", mod.Name, errNoCompilableFiles)
	}
	lanes := composeLanes(mod.Main.Flags, mod.Web.Flags)
	cc := append(stripModeFlags(lanes.CCArgs), modeFlags("release")...)
	cpp := append(stripModeFlags(lanes.CPPArgs), modeFlags("release")...)
	ld := lanes.LDArgs
	includes := moduleIncludeFlags(mod, targetWeb, &mod.Web)
	if withDeps {
		for _, dep := range ModuleClosure(mods, mod.Depends) {
			depIncludes, depLd := webDepFlags(mods[dep])
			includes = append(includes, depIncludes...)
			ld = appendAll(ld, depLd)
		}
	}
	for _, inc := range includes {
		cc = appendUnique(cc, inc)
		cpp = appendUnique(cpp, inc)
	}

	objRoot := filepath.Join(mod.Dir, "obj", webFolder, mod.Name)
	jobs, objects := planCompile(sources, objRoot, mod.Dir, full)
	if err := compilePass(ex, jobs, tools.CC, tools.CXX, cc, cpp, nil); err != nil {
		return err
	}

	outDir := filepath.Join(mod.Dir, webFolder)
	if err := ensureDir(outDir); err != nil {
		return err
	}
	if mod.StaticForWeb() {
		outLib := filepath.Join(outDir, "lib"+mod.Name+".a")
		if !ex.DryRun {
			os.Remove(outLib)
		}
		args := append([]string{"rcs", outLib}, objects...)
		if err := ex.Run(tools.AR, args, ""); err != nil {
			return fmt.Errorf("archive %s: %w", mod.Name, err)
		}
		if !ex.DryRun {
			info, err := os.Stat(outLib)
			if err != nil || info.Size() <= 8 {
				return fmt.Errorf("module %s: generated web archive is empty", mod.Name)
			}
		}
		logf("Web archive: %s", outLib)
		return nil
	}

	out := filepath.Join(outDir, mod.Name+".html")
	removeStaleWebOutputs(out)
	args := []string{"-o", out}
	args = append(args, objects...)
	args = append(args, normalizeWebLdArgs(ld, true)...)
	if err := ex.Run(tools.CXX, args, ""); err != nil {
		return fmt.Errorf("link %s: %w", mod.Name, err)
	}
	logf("Web export: %s", out)
	return nil
}

// resolveWebShell picks the HTML shell template for a project export:
// the project's own setting first, then the first active module that
// declares one, then whatever default the workspace config injected.
func resolveWebShell(repoRoot string, p *ProjectSpec, mods ModuleMap, active []string) string {
	if p.WebShell != "" {
		shell := p.WebShell
		if !filepath.IsAbs(shell) {
			shell = filepath.Join(p.Root, shell)
		}
		if fileExists(shell) {
			return shell
		}
		warnf("Web shell %s not found", shell)
	}
	for _, name := range active {
		mod, ok := mods[name]
		if !ok || mod.Web.ShellTemplate == "" {
			continue
		}
		shell := absAgainst(mod.Dir, mod.Web.ShellTemplate)
		if fileExists(shell) {
			return shell
		}
	}
	return ""
}

// preloadFolders are the project-root content folders mounted into the
// Emscripten virtual filesystem.
var preloadFolders = []string{"scripts", "assets", "resources", "data", "media"}

func webPreloadFlags(p *ProjectSpec) []string {
	var out []string
	for _, folder := range preloadFolders {
		dir := filepath.Join(p.Root, folder)
		if dirExists(dir) {
			out = append(out, "--preload-file", dir+"@/"+folder)
		}
	}
	return out
}

// buildWebProject compiles and links a project into Web/<name>.html.
func buildWebProject(ex *Executor, repoRoot string, mods ModuleMap, p *ProjectSpec, active []string, full, autoModules, withDeps bool) error {
	tools, err := resolveWebTools()
	if err != nil {
		return err
	}
	closure := ModuleClosure(mods, active)
	if autoModules {
		for _, name := range closure {
			if err := buildWebModule(ex, mods, mods[name], full, withDeps); err != nil {
				return err
			}
		}
	}

	lanes := composeLanes(p.Main, p.Web)
	cc := append(stripModeFlags(lanes.CCArgs), modeFlags("release")...)
	cpp := append(stripModeFlags(lanes.CPPArgs), modeFlags("release")...)
	for _, inc := range p.Include {
		cc = appendUnique(cc, "-I"+inc)
		cpp = appendUnique(cpp, "-I"+inc)
	}
	ld := appendAll([]string(nil), lanes.LDArgs)
	known := map[string]bool{}
	for _, name := range closure {
		known[name] = true
		mod := mods[name]
		if !moduleSupportsWeb(mod) {
			continue
		}
		depIncludes, depLd := webDepFlags(mod)
		for _, inc := range depIncludes {
			cc = appendUnique(cc, inc)
			cpp = appendUnique(cpp, inc)
		}
		ld = appendAll(ld, depLd)
	}
	// Modules named by the project but absent from the workspace map
	// still get the conventional folder wired in.
	for _, name := range active {
		if known[name] || name == "" {
			continue
		}
		dir := filepath.Join(repoRoot, "modules", name)
		cc = appendUnique(cc, "-I"+filepath.Join(dir, "include"))
		cpp = appendUnique(cpp, "-I"+filepath.Join(dir, "include"))
		ld = append(ld, "-L"+filepath.Join(dir, webFolder))
		if fileExists(filepath.Join(dir, webFolder, "lib"+name+".a")) {
			ld = append(ld, "-l"+name)
		}
	}

	if len(p.Src) == 0 {
		return fmt.Errorf("project %s: %w", p.Name, errNoCompilableFiles)
	}
	objRoot := filepath.Join(p.Root, "obj", webFolder, p.BuildCacheKey())
	jobs, objects := planCompile(p.Src, objRoot, p.Root, full)
	if err := compilePass(ex, jobs, tools.CC, tools.CXX, cc, cpp, nil); err != nil {
		return err
	}

	outDir := filepath.Join(p.Root, webFolder)
	if err := ensureDir(outDir); err != nil {
		return err
	}
	out := filepath.Join(outDir, p.Name+".html")
	removeStaleWebOutputs(out)

	args := []string{"-o", out}
	args = append(args, objects...)
	if shell := resolveWebShell(repoRoot, p, mods, active); shell != "" {
		args = append(args, "--shell-file", shell)
	}
	args = append(args, webPreloadFlags(p)...)
	args = append(args, normalizeWebLdArgs(ld, true)...)
	if libs := filepath.Join(repoRoot, "libs", webFolder); dirExists(libs) {
		args = append(args, "-L"+libs)
	}
	if err := ex.Run(tools.CXX, args, ""); err != nil {
		return fmt.Errorf("link %s: %w", p.Name, err)
	}
	logf("Web export: %s", out)
	return nil
}

// resolveWebExport finds a project's exported HTML entry point.
func resolveWebExport(p *ProjectSpec) (string, error) {
	candidates := []string{
		filepath.Join(p.Root, webFolder, p.Name+".html"),
		filepath.Join(p.Root, webFolder, p.Name, p.Name+".html"),
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", errWebOutputMissing, candidates[0])
}

// resolveAvailableRunPort probes the preferred port and up to 64
// successors on the loopback interface.
func resolveAvailableRunPort(preferred int) (int, error) {
	for port := preferred; port <= preferred+64; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		if port != preferred {
			warnf("Port %d busy, using %d", preferred, port)
		}
		return port, nil
	}
	return 0, fmt.Errorf("no free web port found from %d to %d", preferred, preferred+64)
}

// tryOpenBrowser best-effort opens url with the host's opener.
func tryOpenBrowser(ex *Executor, url string) {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
		args = []string{url}
	case "windows":
		name = "cmd"
		args = []string{"/c", "start", url}
	default:
		name = "xdg-open"
		args = []string{url}
	}
	if err := ex.Run(name, args, ""); err != nil {
		warnf("Could not open browser: %v", err)
	}
}

// runWebProject serves the exported HTML over loopback HTTP, either in
// process or via a detached re-exec of this binary's serve command.
func runWebProject(ex *Executor, p *ProjectSpec, port int, detach bool) error {
	html, err := resolveWebExport(p)
	if err != nil {
		return err
	}
	port, err = resolveAvailableRunPort(port)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	logf("Serve URL: %s%s", url, filepath.Base(html))
	if detach {
		self, err := currentExecutablePath()
		if err != nil {
			return err
		}
		args := []string{"serve", html, "--host", "127.0.0.1", "--port", strconv.Itoa(port), "--no-open"}
		pid, err := ex.RunDetached(self, args, "")
		if err != nil {
			return err
		}
		logf("Detached web server started (pid %d)", pid)
		tryOpenBrowser(ex, url)
		return nil
	}
	tryOpenBrowser(ex, url)
	return serveStaticHTTP(ex.Context, filepath.Dir(html), "127.0.0.1", port, filepath.Base(html))
}
