package crosside

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseCleanArgs(t *testing.T) {
	opts, err := parseCleanArgs([]string{"module", "raylib", "web", "--with-deps", "--dry-run"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Kind != "module" {
		t.Errorf("Kind = %q, want module", opts.Kind)
	}
	if opts.Name != "raylib" {
		t.Errorf("Name = %q", opts.Name)
	}
	if want := []string{targetWeb}; !reflect.DeepEqual(opts.Targets, want) {
		t.Errorf("Targets = %v, want %v", opts.Targets, want)
	}
	if !opts.WithDeps || !opts.DryRun {
		t.Error("flags not set")
	}
}

func TestParseCleanArgsDefaults(t *testing.T) {
	opts, err := parseCleanArgs([]string{"game"})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Kind != "app" {
		t.Errorf("Kind = %q, want app", opts.Kind)
	}
	want := []string{targetDesktop, targetAndroid, targetWeb}
	if !reflect.DeepEqual(opts.Targets, want) {
		t.Errorf("Targets = %v, want %v", opts.Targets, want)
	}

	if _, err := parseCleanArgs(nil); err == nil {
		t.Error("missing name must error")
	}
}

func TestCleanModuleTarget(t *testing.T) {
	dir := t.TempDir()
	mod := &ModuleSpec{Name: "raylib", Dir: dir}

	objDir := filepath.Join(dir, "obj", webFolder, "raylib")
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, webFolder, "libraylib.a")
	if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(archive, []byte("!<arch>\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Dry run leaves everything in place but counts candidates.
	if got := cleanModuleTarget(mod, targetWeb, []int{abiArm7, abiArm64}, true); got != 2 {
		t.Errorf("dry candidates = %d, want 2", got)
	}
	if !dirExists(objDir) || !fileExists(archive) {
		t.Fatal("dry run must not delete")
	}

	if got := cleanModuleTarget(mod, targetWeb, []int{abiArm7, abiArm64}, false); got != 2 {
		t.Errorf("removed = %d, want 2", got)
	}
	if dirExists(objDir) {
		t.Error("object dir survived")
	}
	if fileExists(archive) {
		t.Error("archive survived")
	}
}

func TestCleanProjectTargetCacheKey(t *testing.T) {
	root := t.TempDir()
	p := &ProjectSpec{Name: "game", Root: root, ReleaseProfile: "itchio"}

	base := filepath.Join(root, "obj", desktopFolder(), "game")
	profiled := filepath.Join(root, "obj", desktopFolder(), "game-itchio")
	exe := filepath.Join(root, "game")
	for _, dir := range []string{base, profiled} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(exe, []byte{0x7f}, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := cleanProjectTarget(p, targetDesktop, nil, false); got != 3 {
		t.Errorf("removed = %d, want 3", got)
	}
	for _, path := range []string{base, profiled, exe} {
		if pathExists(path) {
			t.Errorf("%s survived", path)
		}
	}
}
