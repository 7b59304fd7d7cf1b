package tangle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	sqllang "github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// SyntaxError locates the first parse error in a tangled file.
type SyntaxError struct {
	Path   string
	Line   uint32 // 0-indexed
	Column uint32 // 0-indexed
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line+1, e.Column+1)
}

var grammars = map[string]func() *sitter.Language{
	".go":   golang.GetLanguage,
	".py":   python.GetLanguage,
	".js":   javascript.GetLanguage,
	".ts":   typescript.GetLanguage,
	".c":    c.GetLanguage,
	".h":    c.GetLanguage,
	".cc":   cpp.GetLanguage,
	".cpp":  cpp.GetLanguage,
	".hpp":  cpp.GetLanguage,
	".java": java.GetLanguage,
	".rs":   rust.GetLanguage,
	".sh":   bash.GetLanguage,
	".sql":  sqllang.GetLanguage,
	".yaml": yaml.GetLanguage,
	".yml":  yaml.GetLanguage,
}

// Validate parses content with the tree-sitter grammar for the file's
// extension. Unknown extensions are not checked.
func Validate(ctx context.Context, content []byte, path string) error {
	grammar, ok := grammars[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil
	}
	parser := sitter.NewParser()
	parser.SetLanguage(grammar())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	root := tree.RootNode()
	if root == nil || !root.HasError() {
		return nil
	}
	se := &SyntaxError{Path: path}
	if n := firstError(root); n != nil {
		se.Line, se.Column = n.StartPoint().Row, n.StartPoint().Column
	}
	return se
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := firstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}
