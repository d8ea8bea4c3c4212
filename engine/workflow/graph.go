package workflow

import "fmt"

// Connection-graph utilities shared by the diff engine and the validators.

// RenameNode rewrites every connection referencing oldName, as source or
// target, in a single pass, then renames the node itself. Callers must have
// checked that newName is not already taken.
func (w *Workflow) RenameNode(oldName, newName string) {
	if node := w.NodeByName(oldName); node != nil {
		node.Name = newName
	}
	if w.Connections == nil {
		return
	}
	if classes, ok := w.Connections[oldName]; ok {
		delete(w.Connections, oldName)
		w.Connections[newName] = classes
	}
	for _, classes := range w.Connections {
		for _, branches := range classes {
			for _, branch := range branches {
				for i := range branch {
					if branch[i].Node == oldName {
						branch[i].Node = newName
					}
				}
			}
		}
	}
}

// RemoveNodeConnections drops every connection touching the named node.
func (w *Workflow) RemoveNodeConnections(name string) {
	if w.Connections == nil {
		return
	}
	delete(w.Connections, name)
	for source, classes := range w.Connections {
		for class, branches := range classes {
			for bi, branch := range branches {
				kept := branch[:0]
				for _, ep := range branch {
					if ep.Node != name {
						kept = append(kept, ep)
					}
				}
				branches[bi] = kept
			}
			classes[class] = branches
		}
		w.Connections[source] = classes
	}
}

// AddConnection appends an endpoint at the given source branch, growing the
// branch list as needed. Duplicate endpoints are ignored.
func (w *Workflow) AddConnection(source, class string, branch int, ep Endpoint) {
	if w.Connections == nil {
		w.Connections = Connections{}
	}
	classes := w.Connections[source]
	if classes == nil {
		classes = map[string][][]Endpoint{}
		w.Connections[source] = classes
	}
	branches := classes[class]
	for len(branches) <= branch {
		branches = append(branches, []Endpoint{})
	}
	for _, existing := range branches[branch] {
		if existing == ep {
			classes[class] = branches
			return
		}
	}
	branches[branch] = append(branches[branch], ep)
	classes[class] = branches
}

// RemoveConnection drops a single endpoint from the given source branch.
// It reports whether anything was removed.
func (w *Workflow) RemoveConnection(source, class string, branch int, target string) bool {
	classes, ok := w.Connections[source]
	if !ok {
		return false
	}
	branches, ok := classes[class]
	if !ok || branch >= len(branches) {
		return false
	}
	kept := branches[branch][:0]
	removed := false
	for _, ep := range branches[branch] {
		if ep.Node == target {
			removed = true
			continue
		}
		kept = append(kept, ep)
	}
	branches[branch] = kept
	classes[class] = branches
	return removed
}

// StaleConnections returns every connection endpoint or source whose node no
// longer exists, as "source.class[branch] → target" descriptors.
func (w *Workflow) StaleConnections() []string {
	var stale []string
	for source, classes := range w.Connections {
		if !w.HasNode(source) {
			stale = append(stale, source)
			continue
		}
		for class, branches := range classes {
			for bi, branch := range branches {
				for _, ep := range branch {
					if !w.HasNode(ep.Node) {
						stale = append(stale, connDescriptor(source, class, bi, ep.Node))
					}
				}
			}
		}
	}
	return stale
}

// PruneStaleConnections removes every connection touching a missing node and
// returns how many entries were dropped.
func (w *Workflow) PruneStaleConnections() int {
	removed := 0
	for source, classes := range w.Connections {
		if !w.HasNode(source) {
			delete(w.Connections, source)
			removed++
			continue
		}
		for class, branches := range classes {
			for bi, branch := range branches {
				kept := branch[:0]
				for _, ep := range branch {
					if w.HasNode(ep.Node) {
						kept = append(kept, ep)
					} else {
						removed++
					}
				}
				branches[bi] = kept
			}
			classes[class] = branches
		}
	}
	return removed
}

// HasErrorOutput reports whether the node has any endpoint wired from an
// error branch (the branch after the declared main outputs).
func (w *Workflow) HasErrorOutput(name string, mainOutputs int) bool {
	classes, ok := w.Connections[name]
	if !ok {
		return false
	}
	branches, ok := classes[ClassMain]
	if !ok {
		return false
	}
	for bi := mainOutputs; bi < len(branches); bi++ {
		if len(branches[bi]) > 0 {
			return true
		}
	}
	return false
}

func connDescriptor(source, class string, branch int, target string) string {
	return fmt.Sprintf("%s.%s[%d] -> %s", source, class, branch, target)
}
