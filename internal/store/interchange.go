package store

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/leo-editor/leo/internal/outline"
)

// Document is the interchange shape of an outline: the tree of headlines in
// VNodes and every body once in TNodes, keyed by gnx. A clone appears in
// full at each of its positions.
type Document struct {
	Header map[string]any            `json:"leoHeader,omitempty" yaml:"header,omitempty"`
	VNodes []*Node                   `json:"vnodes" yaml:"vnodes"`
	TNodes map[string]string         `json:"tnodes" yaml:"tnodes"`
	UA     map[string]map[string]any `json:"ua,omitempty" yaml:"ua,omitempty"`
}

// Node is one position in a Document.
type Node struct {
	Gnx      string  `json:"gnx" yaml:"gnx"`
	Head     string  `json:"vh" yaml:"vh"`
	Status   uint32  `json:"status,omitempty" yaml:"status,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

const documentFormat = 2

// NewDocument converts o into its interchange shape.
func NewDocument(o *outline.Outline) *Document {
	d := &Document{
		Header: map[string]any{"fileFormat": documentFormat},
		TNodes: make(map[string]string),
	}
	var convert func(v *outline.VNode) *Node
	convert = func(v *outline.VNode) *Node {
		n := &Node{Gnx: v.Gnx(), Head: v.HeadString(), Status: uint32(v.Status() & outline.PersistentStatus)}
		if _, seen := d.TNodes[v.Gnx()]; !seen {
			d.TNodes[v.Gnx()] = v.BodyString()
			if len(v.UA) > 0 {
				if d.UA == nil {
					d.UA = make(map[string]map[string]any)
				}
				d.UA[v.Gnx()] = v.UA
			}
		}
		for _, c := range v.Children() {
			n.Children = append(n.Children, convert(c))
		}
		return n
	}
	for _, v := range o.HiddenRoot().Children() {
		d.VNodes = append(d.VNodes, convert(v))
	}
	return d
}

// Outline builds a new outline from d. Nodes without a gnx get a fresh
// one; the children of a repeated gnx are taken from its first occurrence.
func (d *Document) Outline(opts outline.Options) (*outline.Outline, error) {
	if len(d.VNodes) == 0 && d.TNodes == nil {
		return nil, fmt.Errorf("%w: no vnodes", ErrFormat)
	}
	o := outline.New(opts)

	type item struct {
		parent *outline.VNode
		node   *Node
	}
	expanded := make(map[*outline.VNode]bool)
	queue := make([]item, 0, len(d.VNodes))
	for _, n := range d.VNodes {
		queue = append(queue, item{node: n})
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		v := o.VNodeForGnx(it.node.Gnx)
		if !expanded[v] {
			v.SetHeadString(it.node.Head)
			v.SetBodyString(d.TNodes[v.Gnx()])
			v.SetStatus(outline.Status(it.node.Status) & outline.PersistentStatus)
			if ua := d.UA[v.Gnx()]; len(ua) > 0 {
				v.UA = ua
			}
		}
		if err := o.AppendChild(it.parent, v); err != nil {
			o.Logger().Warn("dropping node", "gnx", v.Gnx(), "err", err)
			continue
		}
		if expanded[v] {
			continue
		}
		expanded[v] = true
		for _, c := range it.node.Children {
			queue = append(queue, item{parent: v, node: c})
		}
	}
	o.Indices().RecomputeLastIndex(o)
	o.ClearChanged()
	return o, nil
}

// ExportJSON writes o as an indented JSON document.
func ExportJSON(w io.Writer, o *outline.Outline) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(o)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ImportJSON reads a JSON document written by ExportJSON.
func ImportJSON(r io.Reader, opts outline.Options) (*outline.Outline, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrFormat, err)
	}
	return d.Outline(opts)
}

// ExportYAML writes o as a YAML document.
func ExportYAML(w io.Writer, o *outline.Outline) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(o)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a YAML document written by ExportYAML.
func ImportYAML(r io.Reader, opts outline.Options) (*outline.Outline, error) {
	var d Document
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrFormat, err)
	}
	return d.Outline(opts)
}
