package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented, one-line-per-node textual rendering of n and its
// descendants to w: the AST's "to-string" debugging aid. Unlike a
// position-annotated pretty-printer that needs an external file table to
// format positions, this is a simpler always-plain dump, since
// token.Span already carries its own filename and line/column.
func Dump(w io.Writer, n Node) error {
	d := &dumper{w: w}
	Walk(d, n)
	return d.err
}

type dumper struct {
	w     io.Writer
	depth int
	err   error
}

func (d *dumper) Visit(n Node, dir VisitDirection) Visitor {
	if dir == VisitExit {
		d.depth--
		return nil
	}
	if d.err != nil {
		return nil
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s  [%s]\n", strings.Repeat(". ", d.depth), Describe(n), n.Span())
	d.depth++
	return d
}
