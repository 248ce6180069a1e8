package crosside

import (
	"reflect"
	"testing"
)

func depsModule(name string, depends ...string) *ModuleSpec {
	return &ModuleSpec{Name: name, Depends: depends}
}

func TestModuleClosure(t *testing.T) {
	mods := ModuleMap{
		"core":  depsModule("core"),
		"math":  depsModule("math", "core"),
		"image": depsModule("image", "core", "math"),
		"audio": depsModule("audio", "core"),
		"game":  depsModule("game", "image", "audio"),
	}

	tests := []struct {
		name  string
		roots []string
		want  []string
	}{
		{"single leaf", []string{"core"}, []string{"core"}},
		{"linear chain", []string{"math"}, []string{"core", "math"}},
		{"diamond", []string{"image"}, []string{"core", "math", "image"}},
		{"full graph", []string{"game"}, []string{"core", "math", "image", "audio", "game"}},
		{"shared dep deduped", []string{"math", "audio"}, []string{"core", "math", "audio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModuleClosure(mods, tt.roots)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ModuleClosure(%v) = %v, want %v", tt.roots, got, tt.want)
			}
		})
	}
}

func TestModuleClosureCycle(t *testing.T) {
	mods := ModuleMap{
		"a": depsModule("a", "b"),
		"b": depsModule("b", "a"),
	}
	got := ModuleClosure(mods, []string{"a"})
	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ModuleClosure cycle = %v, want %v", got, want)
	}
}

func TestModuleClosureMissingDependency(t *testing.T) {
	mods := ModuleMap{
		"app": depsModule("app", "ghost", "core"),
		"core": depsModule("core"),
	}
	got := ModuleClosure(mods, []string{"app"})
	want := []string{"core", "app"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ModuleClosure with missing dep = %v, want %v", got, want)
	}
}

func TestModuleClosureSelfDependency(t *testing.T) {
	mods := ModuleMap{
		"solo": depsModule("solo", "solo"),
	}
	got := ModuleClosure(mods, []string{"solo"})
	want := []string{"solo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ModuleClosure self dep = %v, want %v", got, want)
	}
}

func TestModuleClosureIdempotent(t *testing.T) {
	mods := ModuleMap{
		"core": depsModule("core"),
		"math": depsModule("math", "core"),
		"game": depsModule("game", "math"),
	}
	once := ModuleClosure(mods, []string{"game"})
	twice := ModuleClosure(mods, once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("closure not idempotent: %v vs %v", once, twice)
	}
	seen := map[string]bool{}
	for _, name := range once {
		if seen[name] {
			t.Errorf("duplicate %s in closure %v", name, once)
		}
		seen[name] = true
	}
}
