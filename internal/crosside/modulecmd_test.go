package crosside

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestToIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"raylib", "raylib"},
		{"RayLib", "raylib"},
		{"my-module", "my_module"},
		{"my.module", "my_module"},
		{"2d", "_2d"},
		{"", "module"},
	}
	for _, tt := range tests {
		if got := toIdentifier(tt.name); got != tt.want {
			t.Errorf("toIdentifier(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestToHeaderGuard(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"raylib", "MODULE_RAYLIB_H"},
		{"my-module", "MODULE_MY_MODULE_H"},
		{"2d", "MODULE__2D_H"},
	}
	for _, tt := range tests {
		if got := toHeaderGuard(tt.name); got != tt.want {
			t.Errorf("toHeaderGuard(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestIsValidModuleName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"raylib", true},
		{"my-module", true},
		{"my_module.v2", true},
		{"", false},
		{"bad name", false},
		{"bad/name", false},
	}
	for _, tt := range tests {
		if got := isValidModuleName(tt.name); got != tt.want {
			t.Errorf("isValidModuleName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestModuleScaffoldRoundTrip(t *testing.T) {
	repo := t.TempDir()
	dir := filepath.Join(repo, "modules", "physics")
	for _, sub := range []string{"src", "include"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	descriptor := filepath.Join(dir, "module.json")
	if err := os.WriteFile(descriptor, []byte(moduleDescriptorJSON("physics", "djokersoft", true)), 0o644); err != nil {
		t.Fatal(err)
	}

	mod, err := LoadModuleFile(descriptor)
	if err != nil {
		t.Fatalf("generated descriptor does not parse: %v", err)
	}
	if mod.Name != "physics" {
		t.Errorf("Name = %q, want physics", mod.Name)
	}
	if mod.Author != "djokersoft" {
		t.Errorf("Author = %q", mod.Author)
	}
	if !mod.StaticLib {
		t.Error("scaffold defaults to static")
	}
	for _, sys := range []string{"linux", "windows", "android", "emscripten"} {
		if !mod.SupportsSystem(sys) {
			t.Errorf("scaffold must support %s", sys)
		}
	}
	if len(mod.Main.Src) != 1 || mod.Main.Src[0] != "src/physics.c" {
		t.Errorf("Src = %v", mod.Main.Src)
	}
}

func TestModuleScaffoldSources(t *testing.T) {
	header := moduleHeaderSource("my-module")
	for _, want := range []string{"#ifndef MODULE_MY_MODULE_H", "int my_module_ping(void);", `extern "C"`} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q", want)
		}
	}
	body := moduleBodySource("my-module")
	for _, want := range []string{`#include "my-module.h"`, "int my_module_ping(void)"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
