package outline

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// Problem describes one structural inconsistency found by CheckOutline.
type Problem struct {
	Gnx     string
	Message string
}

func (p Problem) String() string { return fmt.Sprintf("%s: %s", p.Gnx, p.Message) }

// CheckOutline verifies link consistency and gnx uniqueness over all
// reachable vnodes. With repair set, parent links are rebuilt from the
// child lists and duplicate gnxs are reissued. Every problem is logged.
func (o *Outline) CheckOutline(repair bool) []Problem {
	var problems []Problem
	report := func(v *VNode, format string, args ...any) {
		pr := Problem{Gnx: v.gnx, Message: fmt.Sprintf(format, args...)}
		problems = append(problems, pr)
		o.log.Warn("outline check", "gnx", pr.Gnx, "problem", pr.Message)
	}

	nodes := []*VNode{o.hiddenRoot}
	for v := range o.AllUniqueNodes() {
		nodes = append(nodes, v)
	}
	live := roaring.New()
	for _, v := range nodes {
		live.Add(v.id)
	}

	// Expected parent multiset from child lists.
	expected := make(map[*VNode]map[*VNode]int, len(nodes))
	for _, v := range nodes {
		for _, c := range v.children {
			if expected[c] == nil {
				expected[c] = make(map[*VNode]int)
			}
			expected[c][v]++
		}
	}
	for _, v := range nodes[1:] {
		actual := make(map[*VNode]int)
		for _, p := range v.parents {
			actual[p]++
		}
		bad := false
		for p := range expected[v] {
			if actual[p] == 0 {
				report(v, "missing parent link to %s", p.gnx)
				bad = true
			}
		}
		for p, n := range actual {
			if !live.Contains(p.id) {
				report(v, "dangling parent link to %s", p.gnx)
				bad = true
			} else if expected[v][p] != n {
				report(v, "parent %s links %d times, holds %d slots", p.gnx, n, expected[v][p])
				bad = true
			}
		}
		if bad && repair {
			v.parents = v.parents[:0]
			for _, p := range nodes {
				for _, c := range p.children {
					if c == v {
						v.parents = append(v.parents, p)
					}
				}
			}
		}
	}

	// Gnx uniqueness.
	seen := make(map[string]*VNode, len(nodes))
	for _, v := range nodes[1:] {
		if v.gnx == "" {
			report(v, "empty gnx")
			if repair {
				v.gnx = o.indices.NewIndex(v)
			}
			continue
		}
		if first, ok := seen[v.gnx]; ok && first != v {
			report(v, "duplicate gnx")
			if repair {
				v.gnx = o.indices.NewIndex(v)
			}
			continue
		}
		seen[v.gnx] = v
	}
	if repair {
		o.indices.reindex(seen)
	}
	return problems
}
