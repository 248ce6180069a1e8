package crosside

import "strings"

// FlagBlock holds the three ordered flag lanes shared by modules and
// projects. Order is preserved; consumers dedupe where it matters.
type FlagBlock struct {
	CPPArgs []string
	CCArgs  []string
	LDArgs  []string
}

// PlatformBlock is the per-target bundle inside a module descriptor.
// Src and Include are module-relative.
type PlatformBlock struct {
	Src     []string
	Include []string
	Flags   FlagBlock

	// ShellTemplate is only meaningful on the web block.
	ShellTemplate string

	// StaticLib overrides the module-level static flag for this target.
	StaticLib *bool
}

// ModuleSpec is one modules/<name>/module.json, paths resolved at load time.
type ModuleSpec struct {
	Name      string
	Dir       string
	About     string
	Author    string
	Version   string
	StaticLib bool
	Depends   []string
	Systems   []string

	Main    PlatformBlock
	Desktop PlatformBlock
	Android PlatformBlock
	Web     PlatformBlock
}

// ModuleMap indexes modules by name.
type ModuleMap map[string]*ModuleSpec

// staticFor returns the effective static flag for a target block.
func (m *ModuleSpec) staticFor(block *PlatformBlock) bool {
	if block != nil && block.StaticLib != nil {
		return *block.StaticLib
	}
	return m.StaticLib
}

// StaticForDesktop reports whether the desktop artifact is a static archive.
func (m *ModuleSpec) StaticForDesktop() bool { return m.staticFor(&m.Desktop) }

// StaticForAndroid reports whether the android artifact is a static archive.
func (m *ModuleSpec) StaticForAndroid() bool { return m.staticFor(&m.Android) }

// StaticForWeb reports whether the web artifact is a static archive.
func (m *ModuleSpec) StaticForWeb() bool { return m.staticFor(&m.Web) }

// SupportsSystem reports whether the module lists the given system key.
// An empty systems list means every target is supported.
func (m *ModuleSpec) SupportsSystem(keys ...string) bool {
	if len(m.Systems) == 0 {
		return true
	}
	for _, have := range m.Systems {
		for _, want := range keys {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// AdaptiveIcon carries the adaptive launcher icon triplet.
type AdaptiveIcon struct {
	Foreground      string
	Monochrome      string
	BackgroundImage string
	BackgroundColor string // "#RRGGBB" form
	Round           bool
}

// ProjectSpec is a parsed main.mk / project.mk. Src and Include hold
// absolute paths.
type ProjectSpec struct {
	Name     string
	Root     string
	FilePath string
	Modules  []string
	Src      []string
	Include  []string

	Main    FlagBlock
	Desktop FlagBlock
	Android FlagBlock
	Web     FlagBlock

	// Android packaging metadata.
	AndroidPackage          string
	AndroidActivity         string
	AndroidLabel            string
	AndroidManifestMode     string
	AndroidJavaSources      []string
	AndroidIcon             string
	AndroidIcons            map[string]string
	AndroidRoundIcon        string
	AndroidRoundIcons       map[string]string
	AndroidAdaptive         AdaptiveIcon
	AndroidManifestTemplate string
	AndroidManifestVars     map[string]string

	WebShell string

	// ReleaseProfile is the active profile name, empty for base content.
	ReleaseProfile string
}

// BuildCacheKey names the object mirror for this project. Base builds use
// the project name; a release profile gets its own mirror so switching
// profiles does not poison incremental state.
func (p *ProjectSpec) BuildCacheKey() string {
	if p.ReleaseProfile == "" {
		return p.Name
	}
	return p.Name + "-" + p.ReleaseProfile
}
