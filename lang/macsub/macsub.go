// Package macsub implements the macro-substitution engine:
// the driver that walks a statement's units looking for a macro to invoke
// at each precedence class, dispatches into that macro's substitution
// function, and falls back to an ordinary function-call interpretation
// when no macro claims the statement.
//
// Its dispatch loop is translated from a goto-based tail-call loop into
// an explicit Go loop, and its top-down statement/block driver shape
// threads a running Context (symtab/varscope/errors) through nested
// pushes the way a resolver walking a statement list threads a running
// scope.
package macsub

import (
	"fmt"
	"hash/fnv"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/srcerr"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
	"github.com/ava-lang/avc/lang/varscope"
)

// Status reports how a macro's substitution function disposes of its
// invocation: either done (here is the finished node) or again (replace
// the statement and re-dispatch).
type Status uint8

const (
	Done Status = iota
	Again
)

// Result is what a SubstFunc returns.
type Result struct {
	Status Status

	// Node is the finished AST node, valid when Status is Done.
	Node ast.Node

	// Statement is the replacement statement to re-dispatch from the top,
	// valid when Status is Again (tail-call semantics).
	Statement unit.Statement

	// Consumed is how many of the statements following this one the macro
	// absorbed as part of its own expansion (e.g. a bodyless `namespace`
	// header pulling in the rest of the enclosing block). The driver skips
	// that many statements after this one returns.
	Consumed int
}

// SubstFunc is the function a macro symbol's symtab.MacroData.Subst holds,
// type-asserted back to this concrete type at dispatch time (symtab can't
// import macsub without an import cycle, so it stores Subst as
// interface{}; see symtab.MacroData's doc comment).
//
// provoker is the unit that resolved to this macro (normally stmt's first
// unit, but an operator macro's provoker may be any unit in stmt); rest is
// every statement following stmt in the enclosing block, for macros that
// consume more than one statement.
type SubstFunc func(ctx *Context, stmt unit.Statement, provoker unit.Unit, rest []unit.Statement) (Result, error)

// gensymState is shared by a Context and every Context derived from it via
// PushMajor/PushMinor, so names stay unique across an entire module
// regardless of how many nested contexts generate them (original's
// ava_macsub_gensym_status, shared through the context tree the same way).
type gensymState struct {
	lastSeed string
	prefix   string
	generation int64
}

// reseed recomputes the gensym prefix from seedText's FNV-1a hash whenever
// the seed text actually changes, avoiding a rehash for consecutive
// gensyms at the same source location.
func (g *gensymState) reseed(seedText string) {
	if seedText == g.lastSeed {
		return
	}
	g.lastSeed = seedText
	h := fnv.New64a()
	_, _ = h.Write([]byte(seedText))
	g.prefix = hashPrefix(h.Sum64())
}

func hashPrefix(h uint64) string {
	const digits = "0123456789abcdefghijklmnopqrstuv"
	buf := make([]byte, 13)
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = digits[h&0x1f]
		h >>= 5
	}
	return "$g[" + string(buf) + "]"
}

func (g *gensymState) next(key string) string {
	g.generation++
	return fmt.Sprintf("%s%d;%s", g.prefix, g.generation, key)
}

// Context carries the state a macro-substitution pass threads through a
// module: the symbol table frame currently in scope, the varscope
// accumulating captures for the enclosing function (if any), the shared
// error accumulator, the name-mangling prefix new symbols get, the lexical
// nesting level, and the gensym counter.
type Context struct {
	Symtab   *symtab.Table
	Varscope *varscope.Varscope
	Errors   *srcerr.List
	Prefix   string
	Level    uint

	gensym *gensymState
}

// NewContext creates the root Context for compiling one module: a fresh
// root symbol table frame, no varscope (module scope isn't itself a
// function), the given shared error accumulator, and prefix as the
// module's own namespace prefix (e.g. "mymodule:").
func NewContext(st *symtab.Table, errs *srcerr.List, prefix string) *Context {
	return &Context{
		Symtab: st,
		Errors: errs,
		Prefix: prefix,
		gensym: &gensymState{},
	}
}

// PushMajor derives a child Context for a new function body: a new child
// symbol-table frame one lexical level deeper, a fresh Varscope to collect
// this function's captures, and Prefix extended by interfix. Per the
// original's ava_macsub_context_push_major.
func (c *Context) PushMajor(interfix string) *Context {
	return &Context{
		Symtab:   symtab.EnterLevel(c.Symtab),
		Varscope: varscope.New(),
		Errors:   c.Errors,
		Prefix:   c.Prefix + interfix,
		Level:    c.Level + 1,
		gensym:   c.gensym,
	}
}

// PushMinor derives a child Context for a nested lexical block that isn't
// its own function (an if/loop/try body): same symbol-table frame,
// varscope and level as c, only the prefix changes (for diagnostics and
// for any symbols the block itself introduces at the same level). Per the
// original's ava_macsub_context_push_minor.
func (c *Context) PushMinor(interfix string) *Context {
	return &Context{
		Symtab:   c.Symtab,
		Varscope: c.Varscope,
		Errors:   c.Errors,
		Prefix:   c.Prefix + interfix,
		Level:    c.Level,
		gensym:   c.gensym,
	}
}

// ApplyPrefix mangles a simple (unqualified) name into this context's
// fully-qualified form.
func (c *Context) ApplyPrefix(simpleName string) string {
	return c.Prefix + simpleName
}

// PutSymbol installs sym (already built with the correct Level and
// FullName) into c.Symtab, recording a compile error instead of panicking
// when sym can't be legally visible at this nesting level, and recording a
// redefinition error on conflict, per the original's ava_macsub_put_symbol.
func (c *Context) PutSymbol(sym *symtab.Symbol, sp token.Span) {
	if c.Level > 0 && sym.Visibility != symtab.Private {
		c.Errors.Add(sp, "symbol %s: non-private visibility is not allowed in a nested scope", sym.FullName)
	}
	if conflict := c.Symtab.Put(sym); conflict != nil {
		c.Errors.Add(sp, "symbol %s redefined (previously defined as %s)", sym.FullName, conflict.Type)
	}
}

// GensymSeed reseeds the gensym generator from sp's source text, if it
// differs from the last seed used. Callers reseed once per
// top-level statement (or once per macro invocation, for finer
// granularity); repeated calls with the same span's text are cheap
// no-ops.
func (c *Context) GensymSeed(sp token.Span) {
	c.gensym.reseed(sp.Text())
}

// Gensym returns a name guaranteed not to collide with any other gensym
// produced by this Context tree, built from the current seed plus a
// monotonic counter mixed with key.
func (c *Context) Gensym(key string) string {
	return c.gensym.next(key)
}
