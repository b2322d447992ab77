// Package srcerr implements the compile-error accumulator:
// an append-only, FIFO list of structured errors with source locations, and
// a renderer that allocates a caller-supplied line budget across the list,
// awarding full context to the earliest errors and progressively terser
// forms to later ones.
//
// The accumulator never rejects an error once another has been recorded;
// every pass that can detect more than one problem keeps going so the
// caller sees as much as the budget allows.
package srcerr

import (
	"fmt"
	"go/scanner"
	gotoken "go/token"
	"sort"
	"strings"

	"github.com/ava-lang/avc/lang/token"
	"golang.org/x/text/width"
)

// Error is a single compile error: a message and the source location it
// refers to.
type Error struct {
	Span token.Span
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Msg)
}

// List is a FIFO, append-only list of Errors. The zero value is ready to
// use. Sort reorders the list in place by source position for deterministic
// reporting order; errors at the same position keep their insertion order.
type List struct {
	errs []*Error
}

// Add appends a new error to the list. It never fails and never discards a
// prior error.
func (l *List) Add(span token.Span, format string, args ...interface{}) {
	l.errs = append(l.errs, &Error{Span: span, Msg: fmt.Sprintf(format, args...)})
}

// Len reports the number of accumulated errors.
func (l *List) Len() int { return len(l.errs) }

// All returns the accumulated errors in insertion (FIFO) order.
func (l *List) All() []*Error { return l.errs }

// Sort orders the list by source position, but is a stable sort so that
// errors reported at the same position keep their original relative order
// (the symbol-table/macro-substitution invariant: "the earliest error is
// shown first" refers to insertion order among same-position errors).
func (l *List) Sort() {
	sort.SliceStable(l.errs, func(i, j int) bool {
		a, b := l.errs[i].Span, l.errs[j].Span
		if a.Filename() != b.Filename() {
			return a.Filename() < b.Filename()
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
}

// Err returns an error value wrapping the accumulated errors, or nil if the
// list is empty. The returned error is backed by go/scanner.ErrorList so it
// composes with any caller tooling already built around that standard-library
// type.
func (l *List) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	var sl scanner.ErrorList
	for _, e := range l.errs {
		sl.Add(scannerPosition(e.Span), e.Msg)
	}
	return sl.Err()
}

func scannerPosition(s token.Span) gotoken.Position {
	return gotoken.Position{
		Filename: s.Filename(),
		Line:     s.StartLine,
		Column:   s.StartCol,
	}
}

// RenderOptions configures Render.
type RenderOptions struct {
	// LineBudget is the maximum number of output lines Render may produce,
	// not counting a trailing overflow summary. Zero means "unbounded".
	LineBudget int
	// Color enables ANSI coloring of the rendered report.
	Color bool
}

const (
	ansiRed    = "\x1b[31m"
	ansiBold   = "\x1b[1m"
	ansiReset  = "\x1b[0m"
	ansiYellow = "\x1b[33m"
)

// Render produces a human-readable report of the accumulated errors. Errors
// are rendered in their current list order (call Sort first for positional
// ordering), earliest errors getting full context — filename, the source
// line, and a caret range under the offending columns — and later errors
// getting progressively terser one-line forms once the line budget starts
// running out. If the budget is exhausted before every error is rendered,
// an overflow summary line is appended naming how many were omitted.
func (l *List) Render(opts RenderOptions) string {
	var b strings.Builder
	budget := opts.LineBudget
	unbounded := budget <= 0

	linesUsed := 0
	shown := 0
	for _, e := range l.errs {
		full := linesUsed+3 <= budget || unbounded
		terse := linesUsed+1 <= budget || unbounded
		if !full && !terse {
			break
		}
		if full {
			renderFull(&b, e, opts.Color)
			linesUsed += 3
		} else {
			renderTerse(&b, e, opts.Color)
			linesUsed++
		}
		shown++
	}

	if shown < len(l.errs) {
		omitted := len(l.errs) - shown
		if opts.Color {
			fmt.Fprintf(&b, "%s%d more error(s) omitted%s\n", ansiYellow, omitted, ansiReset)
		} else {
			fmt.Fprintf(&b, "%d more error(s) omitted\n", omitted)
		}
	}
	return b.String()
}

func renderFull(b *strings.Builder, e *Error, color bool) {
	if color {
		fmt.Fprintf(b, "%s%s%s: %s%s%s\n", ansiBold, e.Span, ansiReset, ansiRed, e.Msg, ansiReset)
	} else {
		fmt.Fprintf(b, "%s: %s\n", e.Span, e.Msg)
	}

	line := e.Span.File.Line(e.Span.StartLine)
	fmt.Fprintf(b, "%s\n", line)
	fmt.Fprintf(b, "%s\n", caretLine(line, e.Span))
}

func renderTerse(b *strings.Builder, e *Error, color bool) {
	if color {
		fmt.Fprintf(b, "%s%s%s: %s\n", ansiBold, e.Span, ansiReset, e.Msg)
	} else {
		fmt.Fprintf(b, "%s: %s\n", e.Span, e.Msg)
	}
}

// caretLine builds a line of spaces and '^' characters underlining the
// columns covered by span on its start line, accounting for wide runes so
// the carets line up visually with the source line above them.
func caretLine(line string, span token.Span) string {
	runes := []rune(line)
	var b strings.Builder
	col := 1
	endCol := span.EndCol
	if span.EndLine != span.StartLine || endCol <= span.StartCol {
		endCol = span.StartCol + 1
	}
	for _, r := range runes {
		if col >= endCol {
			break
		}
		w := 1
		if width.LookupRune(r).Kind() == width.EastAsianWide {
			w = 2
		}
		if col < span.StartCol {
			b.WriteString(strings.Repeat(" ", w))
		} else {
			b.WriteString(strings.Repeat("^", w))
		}
		col++
	}
	return b.String()
}
