// Package query selects outline nodes with JSONPath.
//
// The outline is presented as a list of top-level node objects:
//
//	{"gnx": ..., "head": ..., "body": ..., "level": 0, "marked": false,
//	 "dirty": false, "clone": false, "kind": "@file", "children": [...]}
//
// A clone appears in full under each of its parents.
package query

import (
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/leo-editor/leo/internal/outline"
)

// Match is one selected value. Position is set when the value is a node
// object.
type Match struct {
	Position *outline.Position
	Value    any
}

// keyField holds the position key linking a node object back to its
// position. It is removed from the values returned to callers.
const keyField = "_key"

// Tree returns the JSON shape of o. With keys set every node object carries
// its position key.
func Tree(o *outline.Outline, keys bool) []any {
	var convert func(p *outline.Position) map[string]any
	convert = func(p *outline.Position) map[string]any {
		v := p.V()
		node := map[string]any{
			"gnx":    v.Gnx(),
			"head":   v.HeadString(),
			"body":   v.BodyString(),
			"level":  int64(p.Level()),
			"marked": v.IsMarked(),
			"dirty":  v.IsDirty(),
			"clone":  v.IsCloned(),
			"kind":   v.Kind().String(),
		}
		if keys {
			node[keyField] = p.Key()
		}
		children := []any{}
		for c := range p.Children() {
			children = append(children, convert(c))
		}
		node["children"] = children
		return node
	}
	out := []any{}
	for p := o.RootPosition(); p.Valid(); p.MoveToNext() {
		out = append(out, convert(p.Copy()))
	}
	return out
}

// Select evaluates expr against Tree(o).
func Select(o *outline.Outline, expr string) ([]Match, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	positions := make(map[string]*outline.Position)
	for p := range o.AllPositions() {
		positions[p.Key()] = p
	}

	results := x.Get(Tree(o, true))
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{Value: strip(r)}
		if node, ok := r.(map[string]any); ok {
			if key, ok := node[keyField].(string); ok {
				m.Position = positions[key]
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Positions returns the positions of the node objects selected by expr.
func Positions(o *outline.Outline, expr string) ([]*outline.Position, error) {
	matches, err := Select(o, expr)
	if err != nil {
		return nil, err
	}
	var out []*outline.Position
	for _, m := range matches {
		if m.Position != nil {
			out = append(out, m.Position)
		}
	}
	return out, nil
}

// strip returns v without position keys.
func strip(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if k != keyField {
				out[k] = strip(e)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = strip(e)
		}
		return out
	default:
		return v
	}
}
