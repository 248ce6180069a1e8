package crosside

import (
	"io"
	"os"
	"path/filepath"
	"sort"
)

// ensureDir creates path (and parents) when missing.
func ensureDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return os.ErrExist
	}
	return os.MkdirAll(path, 0o755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := ensureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	// Copy file mode
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}

// copyDir recursively copies a directory from src to dst
func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// listModuleJSONFiles returns every modules/<name>/module.json, sorted.
func listModuleJSONFiles(modulesRoot string) []string {
	var out []string
	entries, err := os.ReadDir(modulesRoot)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		file := filepath.Join(modulesRoot, entry.Name(), "module.json")
		if fileExists(file) {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out
}

// listProjectFiles finds every main.mk / project.mk under projectsRoot.
func listProjectFiles(projectsRoot string) []string {
	var out []string
	filepath.WalkDir(projectsRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "main.mk" || name == "project.mk" {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// removePath deletes a file or directory tree. Returns true when something
// existed. With dryRun it only reports the candidate.
func removePath(path string, dryRun bool) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if dryRun {
		logf("Would remove: %s", path)
		return true
	}

	logf("Remove: %s", path)
	if info.IsDir() {
		if err := os.RemoveAll(path); err != nil {
			errorf("Failed remove %s: %v", path, err)
			return false
		}
		return true
	}
	if err := os.Remove(path); err != nil {
		errorf("Failed remove %s: %v", path, err)
		return false
	}
	return true
}

// latestVersionDir returns the numerically highest-named subdirectory of
// root, used for ndk/<ver> and build-tools/<ver> discovery. Names compare by
// dotted numeric components; non-numeric names lose to numeric ones.
func latestVersionDir(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	best := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if best == "" || versionLess(best, entry.Name()) {
			best = entry.Name()
		}
	}
	return best
}

// sortVersions orders names from oldest to newest.
func sortVersions(names []string) {
	sort.Slice(names, func(i, j int) bool { return versionLess(names[i], names[j]) })
}

// versionLess compares dotted version-ish names numerically where possible.
func versionLess(a, b string) bool {
	as := splitVersion(a)
	bs := splitVersion(b)
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		var aNum, bNum bool
		if i < len(as) {
			av, aNum = as[i].num, as[i].isNum
		}
		if i < len(bs) {
			bv, bNum = bs[i].num, bs[i].isNum
		}
		switch {
		case aNum && bNum:
			if av != bv {
				return av < bv
			}
		case aNum != bNum:
			// numeric components sort after plain text
			return bNum
		default:
			var at, bt string
			if i < len(as) {
				at = as[i].text
			}
			if i < len(bs) {
				bt = bs[i].text
			}
			if at != bt {
				return at < bt
			}
		}
	}
	return false
}

type versionPart struct {
	num   int
	isNum bool
	text  string
}

func splitVersion(v string) []versionPart {
	var parts []versionPart
	cur := ""
	flush := func() {
		if cur == "" {
			return
		}
		n := 0
		isNum := true
		for _, ch := range cur {
			if ch < '0' || ch > '9' {
				isNum = false
				break
			}
			n = n*10 + int(ch-'0')
		}
		parts = append(parts, versionPart{num: n, isNum: isNum, text: cur})
		cur = ""
	}
	for _, ch := range v {
		if ch == '.' || ch == '-' || ch == '_' {
			flush()
			continue
		}
		cur += string(ch)
	}
	flush()
	return parts
}
