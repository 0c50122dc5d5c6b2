// SPDX-License-Identifier: MIT

package conceptjoin

// InheritanceGraph is a directed graph over Wikidata concept ids built from
// P279 ("subclass of") claims. Vertices are interned lazily the first time
// an id appears as either an entity or a subclass-of target. Edges run
// superclass -> subclass, matching the direction a reverse walk from a
// concept needs to find its ancestors.
type InheritanceGraph struct {
	index  map[string]int
	ids    []string
	labels []string
	out    [][]int // out[v] = subclasses of v (superclass -> subclass)
	in     [][]int // in[v] = superclasses of v
}

// NewInheritanceGraph returns an empty graph.
func NewInheritanceGraph() *InheritanceGraph {
	return &InheritanceGraph{index: make(map[string]int)}
}

func (g *InheritanceGraph) intern(id string) int {
	if v, ok := g.index[id]; ok {
		return v
	}
	v := len(g.ids)
	g.index[id] = v
	g.ids = append(g.ids, id)
	g.labels = append(g.labels, "")
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	return v
}

// AddSubclassOf records one P279 claim: subject is a subclass of super.
func (g *InheritanceGraph) AddSubclassOf(subject, super string) {
	s := g.intern(subject)
	p := g.intern(super)
	g.out[p] = append(g.out[p], s)
	g.in[s] = append(g.in[s], p)
}

// SetLabel records the display label (typically the English label) for a
// concept id already known to the graph, a no-op if the id was never
// interned by a subclass-of claim.
func (g *InheritanceGraph) SetLabel(id, label string) {
	v, ok := g.index[id]
	if !ok {
		return
	}
	g.labels[v] = label
}

// Label returns the recorded display label for id, or "" if none was set.
func (g *InheritanceGraph) Label(id string) string {
	v, ok := g.index[id]
	if !ok {
		return ""
	}
	return g.labels[v]
}

// Ancestors returns the set of all ids reachable by walking edges in
// reverse from id, including id itself. Guards against cycles (Wikidata's
// subclass-of graph does contain them) with an explicit seen-set.
func (g *InheritanceGraph) Ancestors(id string) map[string]struct{} {
	result := map[string]struct{}{id: {}}
	v, ok := g.index[id]
	if !ok {
		return result
	}
	seen := map[int]bool{v: true}
	var stack []int
	stack = append(stack, v)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parent := range g.in[cur] {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			result[g.ids[parent]] = struct{}{}
			stack = append(stack, parent)
		}
	}
	return result
}

// Descendants returns every id reachable by walking outgoing (subclass-of)
// edges forward from id, not including id itself, deduplicated via an
// explicit seen-set.
func (g *InheritanceGraph) Descendants(id string) []string {
	v, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := map[int]bool{v: true}
	var stack []int
	stack = append(stack, v)
	var result []string
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range g.out[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			result = append(result, g.ids[child])
			stack = append(stack, child)
		}
	}
	return result
}

// AncestorsOfAll unions Ancestors(c) for every c in concepts, the
// recursive_instance_of / recursive_subclass_of computation the joiner
// needs.
func (g *InheritanceGraph) AncestorsOfAll(concepts map[string]struct{}) map[string]struct{} {
	result := make(map[string]struct{})
	for c := range concepts {
		for a := range g.Ancestors(c) {
			result[a] = struct{}{}
		}
	}
	return result
}
