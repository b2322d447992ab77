// Package symtab implements the symbol table: a tree of
// lexically nested scope frames with visibility levels, absolute/weak
// import aliasing and ambiguity detection. Beyond local/free/predeclared
// variable bindings, it additionally models namespaces, import aliasing
// and macro variant data (precedence, substitution function, user data).
package symtab

import (
	"fmt"
	"strings"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"
)

// Type identifies the kind of a Symbol, modeled on the original
// ava_symbol_type enum.
type Type uint8

const (
	GlobalVar Type = iota
	GlobalFun
	LocalVar
	LocalFun
	Struct
	ControlMacro
	OperatorMacro
	FunctionMacro
	Other
)

func (t Type) String() string {
	switch t {
	case GlobalVar:
		return "global-var"
	case GlobalFun:
		return "global-fun"
	case LocalVar:
		return "local-var"
	case LocalFun:
		return "local-fun"
	case Struct:
		return "struct"
	case ControlMacro:
		return "control-macro"
	case OperatorMacro:
		return "operator-macro"
	case FunctionMacro:
		return "function-macro"
	case Other:
		return "other"
	default:
		return "<invalid symbol type>"
	}
}

// IsMacro reports whether t is one of the three macro symbol types.
func (t Type) IsMacro() bool {
	return t == ControlMacro || t == OperatorMacro || t == FunctionMacro
}

// Visibility orders a symbol's reach, from private (this module only) to
// public (everywhere). The zero value is Private.
type Visibility uint8

const (
	Private Visibility = iota
	Internal
	Public
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Internal:
		return "internal"
	case Public:
		return "public"
	default:
		return "<invalid visibility>"
	}
}

// MaxOperatorMacroPrecedence is the maximum (inclusive) precedence of an
// operator macro, matching the original AVA_MAX_OPERATOR_MACRO_PRECEDENCE.
const MaxOperatorMacroPrecedence = 40

// OtherTypeTag identifies the actual meaning of an Other-typed symbol. Two
// Other symbols have the same "type" only if they share the same *OtherTypeTag
// pointer — equality is by identity, not by Name, matching the original
// ava_symbol_other_type contract (symbol.h).
type OtherTypeTag struct {
	Name string
}

// ArgKind identifies the shape of one argument-binding slot in a function
// prototype.
type ArgKind uint8

const (
	Positional ArgKind = iota
	PositionalWithDefault
	Named
	NamedWithDefault
	Varargs
	EmptyMarker
)

// ArgBinding is one parameter-binding slot of a function prototype.
type ArgBinding struct {
	Kind    ArgKind
	Name    string
	Default interface{} // nil unless Kind has a default; an opaque constant value
}

// Prototype is the partial argument-binding specification of a function
// symbol, sufficient to perform static binding at a call site.
type Prototype struct {
	Args []ArgBinding
}

// VarData is the variant data carried by global/local variable and
// function symbols.
type VarData struct {
	// Mutable reports whether the variable may be written; immutable
	// variables may never be converted to an lvalue.
	Mutable bool
	// Name is the original, unmangled name of the symbol.
	Name string
	// Proto is non-nil for function symbols.
	Proto *Prototype
	// Scope, when non-nil, is the *varscope.Varscope governing this
	// function; held as interface{} to avoid a symtab<->varscope import
	// cycle (varscope.Varscope embeds *Symbol references back into symtab).
	Scope interface{}
}

// StructData is the variant data carried by Struct symbols.
type StructData struct {
	// Def is an opaque struct descriptor, matching the runtime's external
	// struct descriptor type.
	Def interface{}
}

// MacroData is the variant data carried by the three macro symbol types.
type MacroData struct {
	// Precedence is between 0 and MaxOperatorMacroPrecedence, inclusive.
	// Always 0 for control and function macros.
	Precedence int
	// Subst is the function invoked to substitute this macro. It is typed
	// as interface{} (rather than a concrete func type) to avoid a
	// symtab<->macsub import cycle; lang/macsub defines the concrete
	// function type and type-asserts when it dispatches.
	Subst interface{}
	// Userdata is arbitrary data for use by Subst.
	Userdata interface{}
}

// OtherData is the variant data carried by Other-typed symbols.
type OtherData struct {
	TypeTag  *OtherTypeTag
	Userdata interface{}
}

// Symbol is an entry in a symbol table.
type Symbol struct {
	Type       Type
	Level      uint
	Visibility Visibility

	// PCodeIndex is filled lazily when the defining AST node is
	// code-generated; HasPCodeIndex reports whether that has happened yet.
	PCodeIndex    int
	HasPCodeIndex bool

	// Definer is the AST node responsible for this symbol's definition, an
	// interface{} to avoid a symtab<->ast import cycle (lang/ast imports
	// lang/symtab, not the reverse).
	Definer interface{}

	// FullName is this symbol's fully-qualified name, used both as the
	// table key and for diagnostics.
	FullName string

	Var    *VarData
	Struct *StructData
	Macro  *MacroData
	Other  *OtherData
}

// String renders a short human-readable description of the symbol.
func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s (level %d, %s)", s.Type, s.FullName, s.Level, s.Visibility)
}

type importEntry struct {
	oldPrefix, newPrefix string
	absolute             bool
	strong               bool
}

// Table is one scope frame in the symbol-table tree.
type Table struct {
	parent *Table
	root   *Table
	level  uint

	bindings *swiss.Map[string, *Symbol]
	imports  []importEntry
}

// New creates a new scope frame, the child of parent (nil for the root
// frame of a module). The new frame's level is parent.level, or 0 for a
// root frame; callers that need a deeper lexical level (entering a
// function body) use EnterLevel instead.
func New(parent *Table) *Table {
	t := &Table{parent: parent, bindings: swiss.NewMap[string, *Symbol](uint32(8))}
	if parent == nil {
		t.root = t
	} else {
		t.root = parent.root
		t.level = parent.level
	}
	return t
}

// EnterLevel creates a child frame one lexical nesting level deeper than t
// (level ≥1 = lexical nesting depth inside functions), used when the
// macro-substitution engine or AST postprocess pass enters a new function
// body.
func EnterLevel(parent *Table) *Table {
	t := New(parent)
	t.level = parent.level + 1
	return t
}

// Level reports this frame's lexical nesting level.
func (t *Table) Level() uint { return t.level }

// Parent returns the enclosing frame, or nil for a root frame.
func (t *Table) Parent() *Table { return t.parent }

// Put inserts sym into t, keyed by sym.FullName. It returns the
// previously-bound symbol with that full name in this same frame, if any;
// sym is not inserted when a conflict is found, leaving the table
// unchanged — a name can only be shadowed in a child block, never
// redefined within the same one.
//
// Put panics if sym.Level != t.Level(): a symbol must be inserted into a
// frame whose level matches the symbol's own level; a mismatch indicates
// a bug in the caller (the macro engine or a postprocess pass), not a
// user-diagnosable error.
func (t *Table) Put(sym *Symbol) (conflict *Symbol) {
	if sym.Level != t.level {
		panic(fmt.Sprintf("symtab: symbol level %d does not match frame level %d", sym.Level, t.level))
	}
	if sym.Level > 0 {
		sym.Visibility = Private
	}
	if prior, ok := t.bindings.Get(sym.FullName); ok {
		return prior
	}
	t.bindings.Put(sym.FullName, sym)
	return nil
}

// Get resolves an unqualified or qualified name to every symbol it could
// refer to, per : lexical (block-nested) bindings shadow import
// aliasing; when no lexical binding exists, each registered import (from
// the current frame outward to the root, each frame's own imports tried in
// reverse insertion order, i.e. most-recently-registered first) is tried by
// rewriting the query's newPrefix to oldPrefix and looking the rewritten
// name up among the root frame's global bindings. An absolute import that
// produces a match stops the search immediately; otherwise all matches
// accumulate so the caller can see ambiguity.
//
// Get never fails; it may return zero, one, or many symbols. Two or more
// results indicate an ambiguous use.
func (t *Table) Get(name string) []*Symbol {
	var results []*Symbol
	seen := make(map[*Symbol]bool)
	add := func(s *Symbol) {
		if !seen[s] {
			seen[s] = true
			results = append(results, s)
		}
	}

	for f := t; f != nil; f = f.parent {
		if sym, ok := f.bindings.Get(name); ok {
			add(sym)
		}
	}
	if len(results) > 0 {
		return results
	}

	for f := t; f != nil; f = f.parent {
		for i := len(f.imports) - 1; i >= 0; i-- {
			imp := f.imports[i]
			rewritten, ok := rewrite(name, imp)
			if !ok {
				continue
			}
			if sym, ok := t.root.bindings.Get(rewritten); ok {
				add(sym)
				if imp.absolute {
					return results
				}
			}
		}
	}
	return results
}

func rewrite(name string, imp importEntry) (string, bool) {
	if !strings.HasPrefix(name, imp.newPrefix) {
		return "", false
	}
	return imp.oldPrefix + strings.TrimPrefix(name, imp.newPrefix), true
}

// Import registers a prefix rewrite rule on t: references in t (and its
// descendant frames, until shadowed by a closer import of the same
// newPrefix) that begin with newPrefix are resolved by substituting
// oldPrefix instead.
//
// absolutised is oldPrefix, returned for convenience so callers can report
// it in diagnostics without holding on to the original argument. ambiguous
// reports whether newPrefix, at the moment of import, already names two or
// more distinct symbols (e.g. because it collides with another import or a
// same-named local) — the caller decides whether that makes this
// particular import an error.
func (t *Table) Import(oldPrefix, newPrefix string, absolute, strong bool) (absolutised string, ambiguous bool) {
	pre := t.Get(newPrefix)
	t.imports = append(t.imports, importEntry{oldPrefix: oldPrefix, newPrefix: newPrefix, absolute: absolute, strong: strong})
	return oldPrefix, len(pre) > 1
}

// Candidates is a convenience wrapper that sorts Get's result by full name,
// for deterministic diagnostic output.
func Candidates(syms []*Symbol) []*Symbol {
	out := append([]*Symbol(nil), syms...)
	slices.SortFunc(out, func(a, b *Symbol) int { return strings.Compare(a.FullName, b.FullName) })
	return out
}
