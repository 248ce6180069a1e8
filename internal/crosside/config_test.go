package crosside

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadWorkspaceConfig(t *testing.T) {
	repo := t.TempDir()
	writeFixture(t, filepath.Join(repo, "config.json"), `{
		"Configuration": {
			"Modules": ["raylib", "physics"],
			"SingleFileModules": ["raylib"],
			"Session": {"CurrentPlatform": 1},
			"Web": {"SHELL": "templates/shell.html"},
			"Toolchain": {
				"AndroidSdk": "/opt/android-sdk",
				"BuildTools": "34.0.0"
			}
		}
	}`)

	cfg := LoadWorkspaceConfig(repo)
	if want := []string{"raylib", "physics"}; !reflect.DeepEqual(cfg.Modules, want) {
		t.Errorf("Modules = %v, want %v", cfg.Modules, want)
	}
	if cfg.DefaultTarget() != targetAndroid {
		t.Errorf("DefaultTarget = %q, want android", cfg.DefaultTarget())
	}
	if cfg.Toolchain.AndroidSdk != "/opt/android-sdk" {
		t.Errorf("AndroidSdk = %q", cfg.Toolchain.AndroidSdk)
	}
	if cfg.Toolchain.BuildTools != "34.0.0" {
		t.Errorf("BuildTools = %q", cfg.Toolchain.BuildTools)
	}
	if cfg.WebShell == "" {
		t.Error("WebShell not resolved")
	}
}

func TestLoadWorkspaceConfigMissing(t *testing.T) {
	cfg := LoadWorkspaceConfig(t.TempDir())
	if cfg.DefaultTarget() != targetDesktop {
		t.Errorf("DefaultTarget = %q, want desktop", cfg.DefaultTarget())
	}
	if len(cfg.GlobalModules()) != 0 {
		t.Errorf("GlobalModules = %v, want empty", cfg.GlobalModules())
	}
}

func TestSingleFileModuleSetPrecedence(t *testing.T) {
	// A dedicated single-file list wins over the global module list.
	cfg := WorkspaceConfig{
		Modules:           []string{"raylib", "physics"},
		SingleFileModules: []string{"raylib"},
	}
	if want := []string{"raylib"}; !reflect.DeepEqual(cfg.SingleFileModuleSet(), want) {
		t.Errorf("SingleFileModuleSet = %v, want %v", cfg.SingleFileModuleSet(), want)
	}

	cfg.SingleFileModules = nil
	if want := []string{"raylib", "physics"}; !reflect.DeepEqual(cfg.SingleFileModuleSet(), want) {
		t.Errorf("fallback SingleFileModuleSet = %v, want %v", cfg.SingleFileModuleSet(), want)
	}
}

func TestDefaultTarget(t *testing.T) {
	tests := []struct {
		platform int
		want     string
	}{
		{0, targetDesktop},
		{1, targetAndroid},
		{2, targetWeb},
		{9, targetDesktop},
	}
	for _, tt := range tests {
		cfg := WorkspaceConfig{CurrentPlatform: tt.platform}
		if got := cfg.DefaultTarget(); got != tt.want {
			t.Errorf("DefaultTarget(%d) = %q, want %q", tt.platform, got, tt.want)
		}
	}
}

func TestResolveSingleFileSource(t *testing.T) {
	repo := t.TempDir()
	writeFixture(t, filepath.Join(repo, "projects", "demo.c"), "int main(void){return 0;}\n")

	if got := resolveSingleFileSource(repo, "not_a_source.txt"); got != "" {
		t.Errorf("non-source = %q, want empty", got)
	}
	got := resolveSingleFileSource(repo, "demo.c")
	want := filepath.Join(repo, "projects", "demo.c")
	if got != want {
		t.Errorf("resolveSingleFileSource = %q, want %q", got, want)
	}
	if got := resolveSingleFileSource(repo, "missing.c"); got != "" {
		t.Errorf("missing source = %q, want empty", got)
	}
}

func TestUploadConfigWithEnv(t *testing.T) {
	t.Setenv("CROSSIDE_UPLOAD_BUCKET", "releases")
	t.Setenv("CROSSIDE_UPLOAD_ACCESS_KEY", "ak")
	u := UploadConfig{Bucket: "ignored", Region: "weur"}.withEnv()
	if u.Bucket != "releases" {
		t.Errorf("Bucket = %q, want releases", u.Bucket)
	}
	if u.AccessKey != "ak" {
		t.Errorf("AccessKey = %q, want ak", u.AccessKey)
	}
	if u.Region != "weur" {
		t.Errorf("Region = %q, want weur", u.Region)
	}
}
