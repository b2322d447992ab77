// Package ast defines the AST node framework: the common
// Node interface and the per-operation "vtable" of
// {to-string, to-lvalue, postprocess, get-constexpr, get-constexpr-spread,
// get-funname, cg-evaluate, cg-spread, cg-discard, cg-force, cg-define,
// cg-set-up, cg-tear-down} — each optional, with absence yielding a
// specific error.
//
// Rather than a fixed interface every node satisfies in full, each
// operation is modeled as its own small single-method interface
// (ToLvaluer, Evaluator, ...) that a concrete node type implements only
// for the operations it actually supports, dispatched through
// package-level helper functions (Evaluate, ToLvalue, ...) that perform
// the type assertion and return the named error when a node lacks the
// capability — the idiomatic Go analogue of optional interfaces such as
// http.Hijacker or io.ReaderFrom, and a closer fit to "operation is
// optional" than an always-present method set would be.
package ast

import (
	"fmt"
	"strings"

	"github.com/ava-lang/avc/lang/token"
)

// Node is the interface every AST node satisfies.
type Node interface {
	fmt.Stringer

	// Span reports the node's source location.
	Span() token.Span

	// Walk visits the node's direct children to implement the Visitor
	// pattern.
	Walk(v Visitor)
}

// NodeBase supplies the bookkeeping every concrete node needs (its
// location); node types embed it and add their own fields, String() and
// Walk() methods.
type NodeBase struct {
	Sp token.Span
}

// Span implements Node.
func (b *NodeBase) Span() token.Span { return b.Sp }

// Describe renders a short, single-line label for n for use in
// diagnostics ("if (2 clauses)", "funcall (1 args)", ...).
func Describe(n Node) string {
	if n == nil {
		return "<nil node>"
	}
	s := n.String()
	if s == "" {
		return fmt.Sprintf("%T", n)
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
