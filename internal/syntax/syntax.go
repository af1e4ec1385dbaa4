// Package syntax runs tree-sitter's Ruby grammar over spec and source files.
//
// It is diagnostic only: extraction and coverage stay textual, and a parse
// error never blocks a write. The generate pipeline uses it to warn when a
// spliced spec no longer parses, and coverage --verify uses it to cross-check
// the textual method scan.
package syntax

import (
	"context"
	"fmt"
	"os"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"
)

// Diagnostic is one parse problem. Line and Column are 1-indexed.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

// Result is the outcome of a Check.
type Result struct {
	Valid       bool
	Diagnostics []Diagnostic
}

// Checker parses Ruby. It is safe for concurrent use.
type Checker struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewChecker creates a checker for Ruby.
func NewChecker() *Checker {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &Checker{parser: p}
}

func (c *Checker) parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tree, err := c.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse source: nil tree")
	}
	return tree, nil
}

// Check parses src and collects ERROR and MISSING nodes.
func (c *Checker) Check(ctx context.Context, src []byte) (*Result, error) {
	tree, err := c.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	res := &Result{Valid: !root.HasError()}
	if res.Valid {
		return res, nil
	}

	walk(root, func(n *sitter.Node) bool {
		switch {
		case n.IsMissing():
			res.Diagnostics = append(res.Diagnostics, diagnostic(n, fmt.Sprintf("missing %s", n.Type())))
			return false
		case n.Type() == "ERROR":
			res.Diagnostics = append(res.Diagnostics, diagnostic(n, "syntax error"))
			return false
		}
		return n.HasError()
	})
	return res, nil
}

// CheckFile reads and checks path.
func (c *Checker) CheckFile(ctx context.Context, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.Check(ctx, src)
}

// Methods returns the names of method and singleton-method definitions in
// source order. A name repeated in the source appears once.
func (c *Checker) Methods(ctx context.Context, src []byte) ([]string, error) {
	tree, err := c.parse(ctx, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var names []string
	seen := make(map[string]bool)
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Type() == "method" || n.Type() == "singleton_method" {
			if name := n.ChildByFieldName("name"); name != nil {
				s := name.Content(src)
				if !seen[s] {
					seen[s] = true
					names = append(names, s)
				}
			}
		}
		return true
	})
	return names, nil
}

// walk visits n depth-first. fn returns false to skip a node's children.
func walk(n *sitter.Node, fn func(*sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), fn)
	}
}

func diagnostic(n *sitter.Node, msg string) Diagnostic {
	p := n.StartPoint()
	return Diagnostic{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Message: msg}
}
