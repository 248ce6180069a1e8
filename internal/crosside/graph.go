package crosside

// ModuleClosure resolves the transitive dependency order for the given
// roots: dependencies come before dependents, each module at most once.
// Cycles and unknown names are warned about and dropped instead of
// failing the build.
func ModuleClosure(mods ModuleMap, roots []string) []string {
	visited := map[string]bool{}
	active := map[string]bool{}
	var order []string

	var visit func(name string)
	visit = func(name string) {
		if name == "" || visited[name] {
			return
		}
		if active[name] {
			warnf("Circular dependency at %s", name)
			return
		}
		mod, ok := mods[name]
		if !ok {
			warnf("Missing module dependency: %s", name)
			return
		}
		active[name] = true
		for _, dep := range mod.Depends {
			if dep == "" || dep == name {
				continue
			}
			visit(dep)
		}
		active[name] = false
		visited[name] = true
		order = append(order, name)
	}

	for _, root := range roots {
		visit(root)
	}
	return order
}
