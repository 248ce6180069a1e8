package crosside

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type moduleRow struct {
	Name    string
	Systems string
	Dir     string
}

type projectRow struct {
	Label string
	File  string
	Valid bool
	Name  string
}

func collectModuleRows(repoRoot string) []moduleRow {
	mods := DiscoverModules(repoRoot)
	var names []string
	for name := range mods {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]moduleRow, 0, len(names))
	for _, name := range names {
		mod := mods[name]
		systems := "-"
		if len(mod.Systems) > 0 {
			systems = strings.Join(mod.Systems, ",")
		}
		rows = append(rows, moduleRow{Name: name, Systems: systems, Dir: mod.Dir})
	}
	return rows
}

func collectProjectRows(repoRoot string) []projectRow {
	files := listProjectFiles(repoRoot)
	sort.Strings(files)
	rows := make([]projectRow, 0, len(files))
	for _, file := range files {
		row := projectRow{File: file, Label: filepath.Base(filepath.Dir(file))}
		p, err := LoadProjectFile(file, "", false)
		if err == nil {
			row.Valid = true
			row.Name = p.Name
		}
		rows = append(rows, row)
	}
	return rows
}

func printModuleList(repoRoot string) {
	rows := collectModuleRows(repoRoot)
	logf("Modules:")
	if len(rows) == 0 {
		fmt.Println("  <none>")
		return
	}
	for _, row := range rows {
		fmt.Printf("  %s  [%s]  %s\n", row.Name, row.Systems, row.Dir)
	}
}

func printProjectList(repoRoot string) {
	rows := collectProjectRows(repoRoot)
	logf("Projects:")
	if len(rows) == 0 {
		fmt.Println("  <none>")
		return
	}
	for _, row := range rows {
		if row.Valid {
			fmt.Printf("  %s (name=%s)  %s\n", row.Label, row.Name, row.File)
		} else {
			fmt.Printf("  %s  [invalid]\n", row.File)
		}
	}
}

func handleListCommand(args []string) error {
	scope := "all"
	tui := false
	for _, arg := range args {
		switch arg {
		case "--tui":
			tui = true
		case "all", "modules", "apps", "projects":
			scope = arg
		default:
			return fmt.Errorf("unknown list argument %s", arg)
		}
	}
	repoRoot := DetectRepoRoot()
	if tui {
		return runListTUI(repoRoot)
	}
	switch scope {
	case "modules":
		printModuleList(repoRoot)
	case "apps", "projects":
		printProjectList(repoRoot)
	default:
		printModuleList(repoRoot)
		printProjectList(repoRoot)
	}
	return nil
}
