// Package varscope implements the varscope: the ordered set
// of local variables and transitive captures referenced from an inner
// function, used to materialize closure captures as implicit leading
// parameters at code-generation time.
//
// It generalizes a two-tier local/cell/free capture model (promoting a
// local binding to a captured cell and building a free-variable list on
// the inner function) into a single named Varscope abstraction.
package varscope

import "github.com/ava-lang/avc/lang/symtab"

// Entry is one member of a Varscope's ordered set.
type Entry struct {
	Sym *symtab.Symbol
	// Capture reports whether this entry is a capture from an outer
	// function (true) as opposed to a plain local reference recorded for
	// bookkeeping (false). In this implementation every entry a Varscope
	// holds is marked as a capture — RefVar sets the flag on every entry it
	// records and does not itself check where sym is declared — but the flag is
	// kept explicit since Varscope is conceptually a set of (symbol,
	// is-capture-from-outer) pairs, and a future producer (e.g. a
	// diagnostic pass listing all touched variables, captured or not)
	// may want to add non-capture entries.
	Capture bool
}

// Varscope is the set of local variables and transitive captures of one
// function body, with a stable index per variable so
// later code generation can address a capture by position.
type Varscope struct {
	order []*Entry
	index map[*symtab.Symbol]int
}

// New returns an empty Varscope.
func New() *Varscope {
	return &Varscope{index: make(map[*symtab.Symbol]int)}
}

// RefVar records that sym (a local variable of some enclosing function) is
// referenced from the function owning this Varscope: reading a
// non-captured local in an inner function records the cross-function use.
// It is idempotent: referencing the same symbol twice
// returns the same stable index. The returned index is the entry's position
// within the eventual capture prefix (see CapturePrefix).
func (v *Varscope) RefVar(sym *symtab.Symbol) int {
	if i, ok := v.index[sym]; ok {
		return i
	}
	i := len(v.order)
	v.order = append(v.order, &Entry{Sym: sym, Capture: true})
	v.index[sym] = i
	return i
}

// RefScope unions callee's capture set into v: when a function body
// references another function value that itself captures outer
// variables, the referencing function must also capture those same
// variables so it can pass them through. A nil callee is a no-op.
func (v *Varscope) RefScope(callee *Varscope) {
	if callee == nil {
		return
	}
	for _, e := range callee.order {
		v.RefVar(e.Sym)
	}
}

// Index reports the stable index assigned to sym, if any.
func (v *Varscope) Index(sym *symtab.Symbol) (int, bool) {
	i, ok := v.index[sym]
	return i, ok
}

// Entries returns the varscope's members in the (stable) order they were
// first referenced.
func (v *Varscope) Entries() []*Entry {
	return v.order
}

// Len reports how many distinct variables this varscope captures.
func (v *Varscope) Len() int { return len(v.order) }

// CapturePrefix materializes the capture set as a prefix of positional
// implicit parameters to prepend to the function's declared prototype, so
// the calling convention carries every capture explicitly.
func (v *Varscope) CapturePrefix() []symtab.ArgBinding {
	prefix := make([]symtab.ArgBinding, len(v.order))
	for i, e := range v.order {
		name := e.Sym.FullName
		if e.Sym.Var != nil && e.Sym.Var.Name != "" {
			name = e.Sym.Var.Name
		}
		prefix[i] = symtab.ArgBinding{Kind: symtab.Positional, Name: name}
	}
	return prefix
}
