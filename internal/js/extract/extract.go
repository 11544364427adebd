// Package extract lists the modules a JavaScript or TypeScript file imports.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ParseError reports source that does not parse. Line and Column are 1-based
// and point at the first erroneous node.
type ParseError struct {
	File   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: parse failed: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error", e.File, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Language returns the grammar used for path, chosen by extension.
func Language(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// Extract returns the distinct specifiers of the static import declarations
// in src, sorted. Re-exports, require calls and dynamic imports are not
// import declarations and are not reported.
func Extract(ctx context.Context, path string, src []byte) ([]string, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(Language(path))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{File: path, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := 1, 1
		if n := firstError(root); n != nil {
			p := n.StartPoint()
			line, col = int(p.Row)+1, int(p.Column)+1
		}
		return nil, &ParseError{File: path, Line: line, Column: col}
	}

	seen := make(map[string]bool)
	collect(root, src, seen)

	specs := make([]string, 0, len(seen))
	for s := range seen {
		specs = append(specs, s)
	}
	sort.Strings(specs)
	return specs, nil
}

// collect walks the tree and records the source of every import_statement.
func collect(n *sitter.Node, src []byte, seen map[string]bool) {
	if n.Type() == "import_statement" {
		// `import x = require("y")` has no source field.
		if s := n.ChildByFieldName("source"); s != nil {
			if spec := stringValue(s, src); spec != "" {
				seen[spec] = true
			}
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collect(n.NamedChild(i), src, seen)
	}
}

// stringValue returns the value of a string literal node with its escape
// sequences decoded.
func stringValue(n *sitter.Node, src []byte) string {
	raw := n.Content(src)
	if len(raw) < 2 {
		return ""
	}
	if n.NamedChildCount() == 0 {
		return raw[1 : len(raw)-1]
	}

	quote := raw[0]
	var b strings.Builder
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "string_fragment":
			b.WriteString(c.Content(src))
		case "escape_sequence":
			b.WriteString(unescape(c.Content(src), quote))
		}
	}
	return b.String()
}

// unescape decodes one escape sequence of a JavaScript string literal.
func unescape(seq string, quote byte) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	switch seq[1] {
	case 'x', 'u':
		hex := strings.TrimSuffix(strings.TrimPrefix(seq[2:], "{"), "}")
		if r, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return string(rune(r))
		}
	case '\n', '\r':
		// Line continuation.
		return ""
	case '0':
		if len(seq) == 2 {
			return "\x00"
		}
	}
	if r, _, tail, err := strconv.UnquoteChar(seq, quote); err == nil && tail == "" {
		return string(r)
	}
	return seq[1:]
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.HasError() && !c.IsMissing() {
			continue
		}
		if e := firstError(c); e != nil {
			return e
		}
	}
	return nil
}
