package crosside

import (
	"os"
	"path/filepath"
)

// ToolchainConfig points at the Android build toolchain. Empty fields
// fall back to environment variables, then to the built-in defaults.
type ToolchainConfig struct {
	AndroidSdk string
	AndroidNdk string
	JavaSdk    string
	BuildTools string
	Platform   string
}

// UploadConfig holds the S3-compatible bucket for dist --upload.
type UploadConfig struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// WorkspaceConfig is the optional <repo>/config.json. Every field is
// optional; a missing or broken file yields the zero value.
type WorkspaceConfig struct {
	Modules           []string
	SingleFileModules []string
	CurrentPlatform   int
	WebShell          string
	Toolchain         ToolchainConfig
	Upload            UploadConfig
}

// LoadWorkspaceConfig reads <repoRoot>/config.json. Exported tooling
// wraps the payload in a "Configuration" object; both shapes load.
func LoadWorkspaceConfig(repoRoot string) WorkspaceConfig {
	var cfg WorkspaceConfig
	obj, err := decodeJSONFile(filepath.Join(repoRoot, "config.json"))
	if err != nil {
		return cfg
	}
	if inner := getObject(obj, "Configuration"); inner != nil {
		obj = inner
	}
	cfg.Modules = toStringList(projectValue(obj, "Modules", "modules"))
	cfg.SingleFileModules = toStringList(projectValue(obj, "SingleFileModules", "singleFileModules"))
	if session := getObject(obj, "Session"); session != nil {
		if n, ok := session["CurrentPlatform"].(float64); ok {
			cfg.CurrentPlatform = int(n)
		}
	}
	if web := projectObject(obj, "Web", "web"); web != nil {
		cfg.WebShell = projectString(web, "SHELL", "Shell", "ShellTemplate", "Template")
	}
	if cfg.WebShell == "" {
		cfg.WebShell = getString(obj, "WebShell")
	}
	if cfg.WebShell != "" {
		cfg.WebShell = absAgainst(repoRoot, cfg.WebShell)
	}
	if tc := getObject(obj, "Toolchain"); tc != nil {
		cfg.Toolchain = ToolchainConfig{
			AndroidSdk: getString(tc, "AndroidSdk"),
			AndroidNdk: getString(tc, "AndroidNdk"),
			JavaSdk:    getString(tc, "JavaSdk"),
			BuildTools: getString(tc, "BuildTools"),
			Platform:   getString(tc, "Platform"),
		}
	}
	if up := getObject(obj, "Upload"); up != nil {
		cfg.Upload = UploadConfig{
			Bucket:    getString(up, "Bucket"),
			Endpoint:  getString(up, "Endpoint"),
			Region:    getString(up, "Region"),
			AccessKey: getString(up, "AccessKey"),
			SecretKey: getString(up, "SecretKey"),
			Prefix:    getString(up, "Prefix"),
		}
	}
	return cfg
}

// DefaultTarget maps the saved session platform to a build target.
// Anything unexpected falls back to desktop.
func (c WorkspaceConfig) DefaultTarget() string {
	switch c.CurrentPlatform {
	case 1:
		return targetAndroid
	case 2:
		return targetWeb
	default:
		return targetDesktop
	}
}

// GlobalModules is the module set used when a project lists none.
func (c WorkspaceConfig) GlobalModules() []string { return c.Modules }

// SingleFileModuleSet is the module set for descriptor-less builds. The
// dedicated list wins; the global list is the fallback.
func (c WorkspaceConfig) SingleFileModuleSet() []string {
	if len(c.SingleFileModules) > 0 {
		return c.SingleFileModules
	}
	return c.Modules
}

func (u UploadConfig) withEnv() UploadConfig {
	pick := func(cur, env string) string {
		if v := os.Getenv(env); v != "" {
			return v
		}
		return cur
	}
	u.Bucket = pick(u.Bucket, "CROSSIDE_UPLOAD_BUCKET")
	u.Endpoint = pick(u.Endpoint, "CROSSIDE_UPLOAD_ENDPOINT")
	u.Region = pick(u.Region, "CROSSIDE_UPLOAD_REGION")
	u.AccessKey = pick(u.AccessKey, "CROSSIDE_UPLOAD_ACCESS_KEY")
	u.SecretKey = pick(u.SecretKey, "CROSSIDE_UPLOAD_SECRET_KEY")
	u.Prefix = pick(u.Prefix, "CROSSIDE_UPLOAD_PREFIX")
	return u
}
