package crosside

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadModuleFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "raylib", "module.json")
	writeFixture(t, file, `{
		"module": "raylib",
		"about": "graphics library",
		"author": "djokersoft",
		"version": "5.0",
		"static": true,
		"system": ["linux", "windows", "android", "emscripten"],
		"depends": ["glfw"],
		"src": ["src/rcore.c"],
		"include": ["include"],
		"CC_ARGS": ["-DPLATFORM_DESKTOP"],
		"LD_ARGS": "-lm -lpthread",
		"plataforms": {
			"linux": {
				"src": ["src/linux_glue.c"],
				"CC_ARGS": ["-D_GLFW_X11"]
			},
			"android": {
				"src": ["src/android_glue.c"],
				"shared": true
			},
			"emscripten": {
				"CC_ARGS": ["-DPLATFORM_WEB"],
				"template": "shell.html"
			}
		}
	}`)

	mod, err := LoadModuleFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if mod.Name != "raylib" {
		t.Errorf("Name = %q, want %q", mod.Name, "raylib")
	}
	if mod.Dir != filepath.Dir(file) {
		t.Errorf("Dir = %q, want %q", mod.Dir, filepath.Dir(file))
	}
	if !mod.StaticLib {
		t.Error("StaticLib must be true")
	}
	if want := []string{"glfw"}; !reflect.DeepEqual(mod.Depends, want) {
		t.Errorf("Depends = %v, want %v", mod.Depends, want)
	}
	if want := []string{"-lm", "-lpthread"}; !reflect.DeepEqual(mod.Main.Flags.LDArgs, want) {
		t.Errorf("LDArgs = %v, want %v", mod.Main.Flags.LDArgs, want)
	}
	if want := []string{"src/android_glue.c"}; !reflect.DeepEqual(mod.Android.Src, want) {
		t.Errorf("Android.Src = %v, want %v", mod.Android.Src, want)
	}
	// "shared": true inverts to a non-static override.
	if mod.Android.StaticLib == nil || *mod.Android.StaticLib {
		t.Error("android shared:true must override to non-static")
	}
	if mod.Web.ShellTemplate != "shell.html" {
		t.Errorf("Web.ShellTemplate = %q", mod.Web.ShellTemplate)
	}
	if got := mod.Web.Flags.CCArgs; !reflect.DeepEqual(got, []string{"-DPLATFORM_WEB"}) {
		t.Errorf("Web.CCArgs = %v", got)
	}
}

func TestLoadModuleFileDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tinylib", "module.json")
	writeFixture(t, file, `{"src": ["src/tiny.c"]}`)

	mod, err := LoadModuleFile(file)
	if err != nil {
		t.Fatal(err)
	}
	// Missing "module" key falls back to the directory name.
	if mod.Name != "tinylib" {
		t.Errorf("Name = %q, want %q", mod.Name, "tinylib")
	}
	if !mod.StaticLib {
		t.Error("static defaults to true")
	}
	if len(mod.Systems) != 0 {
		t.Errorf("Systems = %v, want empty", mod.Systems)
	}
	if !mod.SupportsSystem("android") {
		t.Error("empty system list must support every target")
	}
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "game", "main.mk")
	writeFixture(t, file, `{
		"Name": "game",
		"Modules": ["raylib", "physics"],
		"Src": ["src/main.c"],
		"Include": ["src"],
		"Main": {"CC": "-Wall -DCOMMON", "LD": ["-lm"]},
		"Desktop": {"CC": ["-DDESKTOP"], "LD": ["-lGL"]},
		"Android": {
			"PACKAGE": "com.example.game",
			"LABEL": "My Game",
			"LD": ["-lEGL"]
		},
		"Web": {"SHELL": "shell.html"}
	}`)

	p, err := LoadProjectFile(file, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "game" {
		t.Errorf("Name = %q", p.Name)
	}
	// The Main block's CC lane is a whitespace-split string.
	if want := []string{"-Wall", "-DCOMMON"}; !reflect.DeepEqual(p.Main.CCArgs, want) {
		t.Errorf("Main.CCArgs = %v, want %v", p.Main.CCArgs, want)
	}
	if want := []string{"-lm"}; !reflect.DeepEqual(p.Main.LDArgs, want) {
		t.Errorf("Main.LDArgs = %v, want %v", p.Main.LDArgs, want)
	}
	if want := []string{"-DDESKTOP"}; !reflect.DeepEqual(p.Desktop.CCArgs, want) {
		t.Errorf("Desktop.CCArgs = %v, want %v", p.Desktop.CCArgs, want)
	}
	if want := []string{"-lGL"}; !reflect.DeepEqual(p.Desktop.LDArgs, want) {
		t.Errorf("Desktop.LDArgs = %v, want %v", p.Desktop.LDArgs, want)
	}
	if want := []string{"-lEGL"}; !reflect.DeepEqual(p.Android.LDArgs, want) {
		t.Errorf("Android.LDArgs = %v, want %v", p.Android.LDArgs, want)
	}
	if p.Root != filepath.Dir(file) {
		t.Errorf("Root = %q, want %q", p.Root, filepath.Dir(file))
	}
	if want := []string{"raylib", "physics"}; !reflect.DeepEqual(p.Modules, want) {
		t.Errorf("Modules = %v, want %v", p.Modules, want)
	}
	if want := filepath.Join(p.Root, "src/main.c"); p.Src[0] != want {
		t.Errorf("Src[0] = %q, want %q", p.Src[0], want)
	}
	if p.AndroidPackage != "com.example.game" {
		t.Errorf("AndroidPackage = %q", p.AndroidPackage)
	}
	if p.AndroidLabel != "My Game" {
		t.Errorf("AndroidLabel = %q", p.AndroidLabel)
	}
	if p.WebShell != "shell.html" {
		t.Errorf("WebShell = %q", p.WebShell)
	}
	if p.BuildCacheKey() != "game" {
		t.Errorf("BuildCacheKey = %q, want %q", p.BuildCacheKey(), "game")
	}
}

func TestLoadProjectFileReleaseProfile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "game", "main.mk")
	writeFixture(t, file, `{
		"Name": "game",
		"Main": {"CC": ["-Wall"]},
		"DefaultRelease": "itchio",
		"Releases": {
			"itchio": {
				"CC": ["-DITCHIO"],
				"web": {"LD": ["-sASSERTIONS=0"]}
			},
			"steam": {
				"CC": ["-DSTEAM"]
			}
		}
	}`)

	t.Run("explicit profile", func(t *testing.T) {
		p, err := LoadProjectFile(file, "steam", false)
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"-Wall", "-DSTEAM"}; !reflect.DeepEqual(p.Main.CCArgs, want) {
			t.Errorf("CCArgs = %v, want %v", p.Main.CCArgs, want)
		}
		if p.BuildCacheKey() != "game-steam" {
			t.Errorf("BuildCacheKey = %q, want %q", p.BuildCacheKey(), "game-steam")
		}
	})

	t.Run("default profile", func(t *testing.T) {
		p, err := LoadProjectFile(file, "", true)
		if err != nil {
			t.Fatal(err)
		}
		if p.ReleaseProfile != "itchio" {
			t.Errorf("ReleaseProfile = %q, want %q", p.ReleaseProfile, "itchio")
		}
		if want := []string{"-sASSERTIONS=0"}; !reflect.DeepEqual(p.Web.LDArgs, want) {
			t.Errorf("Web.LDArgs = %v, want %v", p.Web.LDArgs, want)
		}
	})

	t.Run("base content without default", func(t *testing.T) {
		p, err := LoadProjectFile(file, "", false)
		if err != nil {
			t.Fatal(err)
		}
		if p.ReleaseProfile != "" {
			t.Errorf("ReleaseProfile = %q, want empty", p.ReleaseProfile)
		}
		if want := []string{"-Wall"}; !reflect.DeepEqual(p.Main.CCArgs, want) {
			t.Errorf("CCArgs = %v, want %v", p.Main.CCArgs, want)
		}
	})

	t.Run("undefined profile", func(t *testing.T) {
		if _, err := LoadProjectFile(file, "gog", false); err == nil {
			t.Error("undefined release profile must error")
		}
	})
}

func TestResolveModuleFile(t *testing.T) {
	repo := t.TempDir()
	if got, want := ResolveModuleFile(repo, "raylib", ""), filepath.Join(repo, "modules", "raylib", "module.json"); got != want {
		t.Errorf("by name = %q, want %q", got, want)
	}
	if got, want := ResolveModuleFile(repo, "x", "custom/mod.json"), filepath.Join(repo, "custom", "mod.json"); got != want {
		t.Errorf("relative explicit = %q, want %q", got, want)
	}
	abs := filepath.Join(repo, "elsewhere", "module.json")
	if got := ResolveModuleFile(repo, "x", abs); got != abs {
		t.Errorf("absolute explicit = %q, want %q", got, abs)
	}
}

func TestResolveProjectFile(t *testing.T) {
	repo := t.TempDir()
	gameDir := filepath.Join(repo, "game")
	writeFixture(t, filepath.Join(gameDir, "main.mk"), `{}`)

	if got, want := ResolveProjectFile(repo, "game", ""), filepath.Join(gameDir, "main.mk"); got != want {
		t.Errorf("repo-relative dir = %q, want %q", got, want)
	}
	if got, want := ResolveProjectFile(repo, gameDir, ""), filepath.Join(gameDir, "main.mk"); got != want {
		t.Errorf("absolute dir = %q, want %q", got, want)
	}
	if got, want := ResolveProjectFile(repo, "demo", ""), filepath.Join(repo, "projects", "demo", "main.mk"); got != want {
		t.Errorf("fallback = %q, want %q", got, want)
	}
}

func TestDiscoverModulesSkipsBroken(t *testing.T) {
	repo := t.TempDir()
	writeFixture(t, filepath.Join(repo, "modules", "good", "module.json"), `{"module": "good"}`)
	writeFixture(t, filepath.Join(repo, "modules", "broken", "module.json"), `{not json`)

	mods := DiscoverModules(repo)
	if len(mods) != 1 {
		t.Fatalf("modules = %d, want 1", len(mods))
	}
	if _, ok := mods["good"]; !ok {
		t.Error("good module missing")
	}
}
