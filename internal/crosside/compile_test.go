package crosside

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestObjectPath(t *testing.T) {
	tests := []struct {
		name    string
		objRoot string
		baseDir string
		src     string
		want    string
	}{
		{
			"source at base root",
			"/ws/obj/Linux/core", "/ws/modules/core",
			"/ws/modules/core/main.c",
			"/ws/obj/Linux/core/main.o",
		},
		{
			"nested source mirrors",
			"/ws/obj/Linux/core", "/ws/modules/core",
			"/ws/modules/core/src/audio/mixer.c",
			"/ws/obj/Linux/core/src/audio/mixer.o",
		},
		{
			"outside base falls back to parent name",
			"/ws/obj/Linux/core", "/ws/modules/core",
			"/ws/shared/glue/bind.c",
			"/ws/obj/Linux/core/glue/bind.o",
		},
		{
			"cpp extension stripped",
			"/ws/obj/Web/game", "/ws/projects/game",
			"/ws/projects/game/src/main.cpp",
			"/ws/obj/Web/game/src/main.o",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := objectPath(tt.objRoot, tt.baseDir, tt.src)
			if got != filepath.FromSlash(tt.want) {
				t.Errorf("objectPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNeedsCompile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	obj := filepath.Join(dir, "main.o")
	if err := os.WriteFile(src, []byte("int main(void){return 0;}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !needsCompile(src, obj, false) {
		t.Error("missing object should need compile")
	}

	if err := os.WriteFile(obj, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	newer := time.Now().Add(time.Hour)
	if err := os.Chtimes(obj, newer, newer); err != nil {
		t.Fatal(err)
	}
	if needsCompile(src, obj, false) {
		t.Error("fresh object should not need compile")
	}
	if !needsCompile(src, obj, true) {
		t.Error("full build must recompile fresh objects")
	}

	older := time.Now().Add(-time.Hour)
	if err := os.Chtimes(obj, older, older); err != nil {
		t.Fatal(err)
	}
	if !needsCompile(src, obj, false) {
		t.Error("stale object should need compile")
	}

	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}
	if !needsCompile(src, obj, false) {
		t.Error("unreadable source timestamp should need compile")
	}
}

func TestPlanCompile(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	objRoot := filepath.Join(dir, "obj")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	fresh := filepath.Join(srcDir, "fresh.c")
	stale := filepath.Join(srcDir, "stale.cpp")
	for _, f := range []string{fresh, stale} {
		if err := os.WriteFile(f, []byte("\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	freshObj := objectPath(objRoot, dir, fresh)
	if err := os.MkdirAll(filepath.Dir(freshObj), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(freshObj, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(freshObj, future, future); err != nil {
		t.Fatal(err)
	}

	jobs, objects := planCompile([]string{fresh, stale}, objRoot, dir, false)
	if len(objects) != 2 {
		t.Fatalf("objects = %d, want 2", len(objects))
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
	if jobs[0].Src != stale {
		t.Errorf("job src = %q, want %q", jobs[0].Src, stale)
	}
	if !jobs[0].Cpp {
		t.Error("cpp source must be marked Cpp")
	}
}
