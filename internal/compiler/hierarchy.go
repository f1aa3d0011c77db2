package compiler

import (
	"sort"
	"strings"

	"github.com/roach88/stiprobe/internal/ir"
)

// InheritanceCycle is a loop in extends references.
type InheritanceCycle struct {
	Path    []string `json:"path"` // ["A", "B", "A"]
	Message string   `json:"message"`
}

// AnalyzeHierarchy walks every extends chain and reports each loop once.
//
// Every entity has at most one parent, so the extends graph is a functional
// graph: walking parents from any node either reaches a root, an unknown
// name, or a node already on the current walk.
func AnalyzeHierarchy(schemas []ir.EntitySchema) []InheritanceCycle {
	idx := ir.Index(schemas)

	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)

	done := make(map[string]bool)
	var cycles []InheritanceCycle

	for _, start := range names {
		if done[start] {
			continue
		}
		onPath := make(map[string]int)
		var path []string
		for cur := start; cur != ""; {
			if done[cur] {
				break
			}
			if pos, ok := onPath[cur]; ok {
				loop := append(append([]string{}, path[pos:]...), cur)
				cycles = append(cycles, InheritanceCycle{
					Path:    loop,
					Message: "inheritance cycle: " + strings.Join(loop, " -> "),
				})
				break
			}
			s, ok := idx[cur]
			if !ok {
				break
			}
			onPath[cur] = len(path)
			path = append(path, cur)
			cur = s.Extends
		}
		for _, name := range path {
			done[name] = true
		}
	}

	return cycles
}

// Hierarchies groups entity names by the root of their chain. Entities on a
// cycle or with an unknown ancestor are left out.
func Hierarchies(schemas []ir.EntitySchema) map[string][]string {
	idx := ir.Index(schemas)
	out := make(map[string][]string)
	for _, s := range schemas {
		chain := idx.Chain(s.Name)
		if len(chain) == 0 || !chain[0].IsRoot() {
			continue
		}
		root := chain[0].Name
		out[root] = append(out[root], s.Name)
	}
	return out
}
