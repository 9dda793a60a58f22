// Package scheduler linearizes a pipeline graph into the order the
// execution driver walks it. Ordering is Kahn's algorithm with a canvas
// position tie-break, so the same document always yields the same plan.
package scheduler

import (
	"sort"

	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// Order returns every node exactly once, in execution order.
//
// Dependencies are respected wherever possible: a node never precedes a
// node it depends on unless the two sit on a cycle. When several nodes
// are simultaneously ready, the leftmost on the canvas goes first (X
// ascending, Y as secondary). Nodes trapped on cycles — self-loops
// included — cannot be ordered by dependency and are appended at the
// end, position-sorted; ordering never fails.
func Order(nodes []*core.Node, edges []*core.Edge) []*core.Node {
	if len(nodes) == 0 {
		return nil
	}

	known := make(map[string]*core.Node, len(nodes))
	for _, n := range nodes {
		known[n.ID] = n
	}

	inDegree := make(map[string]int, len(nodes))
	successors := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		if _, ok := known[e.Source]; !ok {
			continue
		}
		if _, ok := known[e.Target]; !ok {
			continue
		}
		inDegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	var ready []*core.Node
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			ready = append(ready, n)
		}
	}
	sortByPosition(ready)

	order := make([]*core.Node, 0, len(nodes))
	scheduled := make(map[string]bool, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		scheduled[n.ID] = true

		var unlocked []*core.Node
		for _, succ := range successors[n.ID] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				unlocked = append(unlocked, known[succ])
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sortByPosition(ready)
		}
	}

	// Anything left sits on a cycle. Append it position-sorted rather
	// than failing: a malformed document still produces a usable plan.
	if len(order) < len(nodes) {
		var remaining []*core.Node
		for _, n := range nodes {
			if !scheduled[n.ID] {
				remaining = append(remaining, n)
			}
		}
		sortByPosition(remaining)
		order = append(order, remaining...)
	}

	return order
}

// sortByPosition orders nodes left-to-right, then top-to-bottom. The sort
// is stable so coincident nodes keep their document order.
func sortByPosition(nodes []*core.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Position.X != nodes[j].Position.X {
			return nodes[i].Position.X < nodes[j].Position.X
		}
		return nodes[i].Position.Y < nodes[j].Position.Y
	})
}
