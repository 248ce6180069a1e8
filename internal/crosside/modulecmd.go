package crosside

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// toIdentifier lowercases a module name into a valid C identifier.
func toIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	ident := b.String()
	if ident == "" {
		return "module"
	}
	if unicode.IsDigit(rune(ident[0])) {
		ident = "_" + ident
	}
	return ident
}

func toHeaderGuard(name string) string {
	return "MODULE_" + strings.ToUpper(toIdentifier(name)) + "_H"
}

func isValidModuleName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

func moduleDescriptorJSON(name, author string, static bool) string {
	staticStr := "false"
	if static {
		staticStr = "true"
	}
	return fmt.Sprintf(`{
    "module": %q,
    "about": "Module %s",
    "author": %q,
    "version": "1.0.0",
    "static": %s,
    "system": ["linux", "windows", "android", "emscripten"],
    "depends": [],
    "src": ["src/%s.c"],
    "include": ["include"],
    "CC_ARGS": [],
    "CPP_ARGS": [],
    "LD_ARGS": [],
    "plataforms": {
        "linux": {
            "src": [],
            "include": [],
            "CC_ARGS": [],
            "LD_ARGS": []
        },
        "windows": {
            "src": [],
            "include": [],
            "CC_ARGS": [],
            "LD_ARGS": []
        },
        "android": {
            "src": [],
            "include": [],
            "CC_ARGS": [],
            "LD_ARGS": []
        },
        "emscripten": {
            "src": [],
            "include": [],
            "CC_ARGS": [],
            "LD_ARGS": [],
            "template": ""
        }
    }
}
`, name, name, author, staticStr, name)
}

func moduleHeaderSource(name string) string {
	guard := toHeaderGuard(name)
	ident := toIdentifier(name)
	return fmt.Sprintf(`#ifndef %s
#define %s

#ifdef __cplusplus
extern "C" {
#endif

int %s_ping(void);

#ifdef __cplusplus
}
#endif

#endif
`, guard, guard, ident)
}

func moduleBodySource(name string) string {
	ident := toIdentifier(name)
	return fmt.Sprintf(`#include "%s.h"

int %s_ping(void)
{
    return 1;
}
`, name, ident)
}

func handleModuleCommand(args []string) error {
	if len(args) == 0 || args[0] != "init" {
		return fmt.Errorf("usage: module init <name> [--force] [--shared|--static] [--author NAME]")
	}
	args = args[1:]

	name := ""
	force := false
	static := true
	author := "djokersoft"
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--force":
			force = true
		case "--shared":
			static = false
		case "--static":
			static = true
		case "--author":
			i++
			if i >= len(args) {
				return fmt.Errorf("--author requires a value")
			}
			author = args[i]
		default:
			if strings.HasPrefix(args[i], "--") {
				return fmt.Errorf("unknown module init option %s", args[i])
			}
			if name != "" {
				return fmt.Errorf("module init takes a single name")
			}
			name = args[i]
		}
	}
	if name == "" {
		return fmt.Errorf("module init requires a name")
	}
	if !isValidModuleName(name) {
		return fmt.Errorf("invalid module name %q (letters, digits, '_', '-', '.')", name)
	}

	repoRoot := DetectRepoRoot()
	dir := filepath.Join(repoRoot, "modules", name)
	descriptor := filepath.Join(dir, "module.json")
	if fileExists(descriptor) && !force {
		return fmt.Errorf("module %s already exists at %s (use --force to overwrite)", name, dir)
	}

	if err := ensureDir(filepath.Join(dir, "src")); err != nil {
		return err
	}
	if err := ensureDir(filepath.Join(dir, "include")); err != nil {
		return err
	}
	files := map[string]string{
		descriptor: moduleDescriptorJSON(name, author, static),
		filepath.Join(dir, "include", name+".h"): moduleHeaderSource(name),
		filepath.Join(dir, "src", name+".c"):     moduleBodySource(name),
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	logf("Module scaffold created: %s", dir)
	logf("Next steps:")
	fmt.Printf("  edit %s\n", descriptor)
	fmt.Printf("  crosside build module %s desktop\n", name)
	return nil
}
