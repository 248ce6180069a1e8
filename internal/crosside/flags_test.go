package crosside

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestIsCppSource(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"main.cpp", true},
		{"main.cc", true},
		{"main.cxx", true},
		{"main.xpp", true},
		{"view.mm", true},
		{"MAIN.CPP", true},
		{"main.c", false},
		{"main.m", false},
		{"main.h", false},
		{"main", false},
	}
	for _, tt := range tests {
		if got := isCppSource(tt.path); got != tt.want {
			t.Errorf("isCppSource(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsCompilableSource(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"game.c", true},
		{"game.m", true},
		{"game.cpp", true},
		{"game.h", false},
		{"game.hpp", false},
		{"game.o", false},
	}
	for _, tt := range tests {
		if got := isCompilableSource(tt.path); got != tt.want {
			t.Errorf("isCompilableSource(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestStripModeFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags []string
		want  []string
	}{
		{
			"optimization and debug removed",
			[]string{"-O2", "-g", "-Wall", "-O0", "-g3", "-DFOO"},
			[]string{"-Wall", "-DFOO"},
		},
		{
			"mode defines removed",
			[]string{"-DDEBUG", "-DNDEBUG", "-DPLATFORM"},
			[]string{"-DPLATFORM"},
		},
		{
			"bare -s and empties removed",
			[]string{"", "-s", "-fPIC"},
			[]string{"-fPIC"},
		},
		{
			"size optimization removed",
			[]string{"-Oz", "-Os", "-pthread"},
			[]string{"-pthread"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripModeFlags(tt.flags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stripModeFlags(%v) = %v, want %v", tt.flags, got, tt.want)
			}
		})
	}
}

func TestModeFlags(t *testing.T) {
	debug := modeFlags("debug")
	want := []string{"-O0", "-g3", "-DDEBUG", "-fno-omit-frame-pointer"}
	if !reflect.DeepEqual(debug, want) {
		t.Errorf("modeFlags(debug) = %v, want %v", debug, want)
	}
	release := modeFlags("release")
	want = []string{"-O2", "-DNDEBUG"}
	if !reflect.DeepEqual(release, want) {
		t.Errorf("modeFlags(release) = %v, want %v", release, want)
	}
}

func TestIncludeSubdir(t *testing.T) {
	if got := includeSubdir(targetAndroid); got != "android" {
		t.Errorf("includeSubdir(android) = %q, want %q", got, "android")
	}
	if got := includeSubdir(targetWeb); got != "web" {
		t.Errorf("includeSubdir(web) = %q, want %q", got, "web")
	}
	got := includeSubdir(targetDesktop)
	if got != "linux" && got != "windows" {
		t.Errorf("includeSubdir(desktop) = %q, want linux or windows", got)
	}
}

func TestComposeLanes(t *testing.T) {
	base := FlagBlock{
		CCArgs:  []string{"-Wall", "-pthread"},
		CPPArgs: []string{"-std=c++17"},
		LDArgs:  []string{"-lm"},
	}
	target := FlagBlock{
		CCArgs:  []string{"-pthread", "-DANDROID"},
		CPPArgs: []string{"-std=c++17", "-fexceptions"},
		LDArgs:  []string{"-lm", "-llog"},
	}
	got := composeLanes(base, target)
	if want := []string{"-Wall", "-pthread", "-DANDROID"}; !reflect.DeepEqual(got.CCArgs, want) {
		t.Errorf("CCArgs = %v, want %v", got.CCArgs, want)
	}
	if want := []string{"-std=c++17", "-fexceptions"}; !reflect.DeepEqual(got.CPPArgs, want) {
		t.Errorf("CPPArgs = %v, want %v", got.CPPArgs, want)
	}
	// Linker tokens are order-sensitive and keep duplicates.
	if want := []string{"-lm", "-lm", "-llog"}; !reflect.DeepEqual(got.LDArgs, want) {
		t.Errorf("LDArgs = %v, want %v", got.LDArgs, want)
	}
}

func TestModuleLinkFlagsCanonical(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "libraylib.a"), []byte("!<arch>\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mod := &ModuleSpec{Name: "raylib"}
	got := moduleLinkFlags(mod, dir)
	want := []string{"-L" + dir, "-lraylib"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("moduleLinkFlags = %v, want %v", got, want)
	}
}

func TestModuleLinkFlagsCaseSkewed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "libRayLib.so"), []byte{0x7f}, 0o644); err != nil {
		t.Fatal(err)
	}
	mod := &ModuleSpec{Name: "raylib"}
	got := moduleLinkFlags(mod, dir)
	want := []string{"-L" + dir, "-lRayLib"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("moduleLinkFlags = %v, want %v", got, want)
	}
}

func TestModuleLinkFlagsMissingLibrary(t *testing.T) {
	dir := t.TempDir()
	mod := &ModuleSpec{Name: "ghost"}
	got := moduleLinkFlags(mod, dir)
	want := []string{"-L" + dir, "-lghost"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("moduleLinkFlags = %v, want %v", got, want)
	}
}

func TestModuleSources(t *testing.T) {
	mod := &ModuleSpec{
		Name: "core",
		Dir:  "/ws/modules/core",
		Main: PlatformBlock{Src: []string{"src/a.c", "src/b.c"}},
	}
	block := &PlatformBlock{Src: []string{"src/b.c", "src/android.c"}}
	got := moduleSources(mod, block)
	want := []string{
		filepath.Join("/ws/modules/core", "src/a.c"),
		filepath.Join("/ws/modules/core", "src/b.c"),
		filepath.Join("/ws/modules/core", "src/android.c"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("moduleSources = %v, want %v", got, want)
	}
}
