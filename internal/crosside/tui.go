package crosside

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// runListTUI opens an interactive browser over the workspace modules
// and projects. Arrow keys navigate, Tab switches panes, q quits.
func runListTUI(repoRoot string) error {
	modules := collectModuleRows(repoRoot)
	projects := collectProjectRows(repoRoot)

	app := tview.NewApplication()
	details := tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	details.SetBorder(true).SetTitle(" details ")

	moduleList := tview.NewList().ShowSecondaryText(false)
	moduleList.SetBorder(true).SetTitle(fmt.Sprintf(" modules (%d) ", len(modules)))
	for _, row := range modules {
		moduleList.AddItem(row.Name, "", 0, nil)
	}
	moduleList.SetChangedFunc(func(index int, _ string, _ string, _ rune) {
		if index < 0 || index >= len(modules) {
			details.SetText("")
			return
		}
		row := modules[index]
		var b strings.Builder
		fmt.Fprintf(&b, "[yellow]module[-] %s\n\n", row.Name)
		fmt.Fprintf(&b, "systems: %s\n", row.Systems)
		fmt.Fprintf(&b, "dir:     %s\n", row.Dir)
		details.SetText(b.String())
	})

	projectList := tview.NewList().ShowSecondaryText(false)
	projectList.SetBorder(true).SetTitle(fmt.Sprintf(" projects (%d) ", len(projects)))
	for _, row := range projects {
		label := row.Label
		if !row.Valid {
			label += " [invalid]"
		}
		projectList.AddItem(label, "", 0, nil)
	}
	projectList.SetChangedFunc(func(index int, _ string, _ string, _ rune) {
		if index < 0 || index >= len(projects) {
			details.SetText("")
			return
		}
		row := projects[index]
		var b strings.Builder
		fmt.Fprintf(&b, "[yellow]project[-] %s\n\n", row.Label)
		if row.Valid {
			fmt.Fprintf(&b, "name: %s\n", row.Name)
		} else {
			fmt.Fprintf(&b, "name: [red]unparsable[-]\n")
		}
		fmt.Fprintf(&b, "file: %s\n", row.File)
		details.SetText(b.String())
	})

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(moduleList, 0, 1, true).
		AddItem(projectList, 0, 1, false)
	layout := tview.NewFlex().
		AddItem(left, 0, 1, true).
		AddItem(details, 0, 2, false)

	panes := []tview.Primitive{moduleList, projectList}
	active := 0
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyTab:
			active = (active + 1) % len(panes)
			app.SetFocus(panes[active])
			return nil
		case event.Key() == tcell.KeyEscape || event.Rune() == 'q':
			app.Stop()
			return nil
		}
		return event
	})

	if len(modules) > 0 {
		moduleList.SetCurrentItem(0)
	}
	return app.SetRoot(layout, true).Run()
}
