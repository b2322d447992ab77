// Package unit defines the parse-unit data model: the tagged variant
// produced by the parser and consumed, never reparsed, by the
// macro-substitution engine (lang/macsub), the AST node framework
// (lang/ast) and the user-macro interpreter (lang/macroexec).
//
// The parser itself lives in a separate program; this package only
// defines the shapes its output takes so the rest of the pipeline has
// something concrete to operate on.
package unit

import "github.com/ava-lang/avc/lang/token"

// Kind identifies which variant of Unit a value holds.
type Kind uint8

const (
	KindBareword Kind = iota
	KindAString       // A-string: plain literal text, no substitutions
	KindLString       // L-string: substitutions permitted on the left (prefix) side
	KindRString       // R-string: substitutions permitted on the right (suffix) side
	KindLRString      // LR-string: substitutions permitted on both sides
	KindVerbatim      // raw, unescaped text
	KindExpander      // a "$name"-shaped escape inside a bareword, expanded to a variable read
	KindKeysym        // a keyword symbol, e.g. a reserved control-macro name used as data
	KindSubstitution  // a parenthesized list of statements evaluated for its value
	KindBlock         // a braced list of statements evaluated for effect
	KindSemiLiteral   // a literal list of units, e.g. a literal list/vector construction
	KindSpread        // a single wrapped unit whose value is spread into its container
)

func (k Kind) String() string {
	switch k {
	case KindBareword:
		return "bareword"
	case KindAString:
		return "a-string"
	case KindLString:
		return "l-string"
	case KindRString:
		return "r-string"
	case KindLRString:
		return "lr-string"
	case KindVerbatim:
		return "verbatim"
	case KindExpander:
		return "expander"
	case KindKeysym:
		return "keysym"
	case KindSubstitution:
		return "substitution"
	case KindBlock:
		return "block"
	case KindSemiLiteral:
		return "semi-literal"
	case KindSpread:
		return "spread"
	default:
		return "<invalid unit kind>"
	}
}

// Statement is an ordered list of units, the basic input to the macro
// engine.
type Statement []Unit

// Span returns the union of every unit's span, or the zero Span if the
// statement is empty.
func (s Statement) Span() token.Span {
	if len(s) == 0 {
		return token.Span{}
	}
	sp := s[0].Span()
	for _, u := range s[1:] {
		sp = sp.Union(u.Span())
	}
	return sp
}

// Clone returns a deep copy of the statement. The macro-substitution engine
// clones units whenever it must reparent them into a new statement, since
// Unit values may otherwise be shared between the original and rewritten
// statements.
func (s Statement) Clone() Statement {
	out := make(Statement, len(s))
	for i, u := range s {
		out[i] = u.Clone()
	}
	return out
}

// Unit is a single parse unit: a tagged variant over the Kind constants
// above. Concrete types below implement this interface; type-switch on
// the concrete type (or compare Kind()) to discriminate.
type Unit interface {
	Kind() Kind
	Span() token.Span
	// Clone returns a deep copy of this unit, safe to reparent into another
	// statement without aliasing the original's mutable state.
	Clone() Unit
}

// Bareword is a plain identifier-shaped unit, eligible to name a macro or a
// variable (the "provoker" when it triggers a macro dispatch).
type Bareword struct {
	Sp   token.Span
	Name string
}

func (b *Bareword) Kind() Kind       { return KindBareword }
func (b *Bareword) Span() token.Span { return b.Sp }
func (b *Bareword) Clone() Unit      { c := *b; return &c }

// Lit is the common shape of the five literal unit kinds (A/L/R/LR-string
// and verbatim): a kind tag plus raw text.
type Lit struct {
	Sp   token.Span
	K    Kind
	Text string
}

func (l *Lit) Kind() Kind       { return l.K }
func (l *Lit) Span() token.Span { return l.Sp }
func (l *Lit) Clone() Unit      { c := *l; return &c }

// Expander is a "$name" escape found inside a bareword, later rewritten by
// the macro engine into a variable-read node.
type Expander struct {
	Sp   token.Span
	Name string // empty for a lone "$" referencing the current context variable
}

func (e *Expander) Kind() Kind       { return KindExpander }
func (e *Expander) Span() token.Span { return e.Sp }
func (e *Expander) Clone() Unit      { c := *e; return &c }

// Keysym is a reserved keyword-shaped symbol used as data rather than as a
// macro invocation.
type Keysym struct {
	Sp   token.Span
	Name string
}

func (k *Keysym) Kind() Kind       { return KindKeysym }
func (k *Keysym) Span() token.Span { return k.Sp }
func (k *Keysym) Clone() Unit      { c := *k; return &c }

// Substitution is a parenthesized list of statements evaluated for its
// value.
type Substitution struct {
	Sp    token.Span
	Stmts []Statement
}

func (s *Substitution) Kind() Kind       { return KindSubstitution }
func (s *Substitution) Span() token.Span { return s.Sp }
func (s *Substitution) Clone() Unit {
	c := &Substitution{Sp: s.Sp, Stmts: make([]Statement, len(s.Stmts))}
	for i, st := range s.Stmts {
		c.Stmts[i] = st.Clone()
	}
	return c
}

// Block is a braced list of statements evaluated for effect (discarding
// any value).
type Block struct {
	Sp    token.Span
	Stmts []Statement
}

func (b *Block) Kind() Kind       { return KindBlock }
func (b *Block) Span() token.Span { return b.Sp }
func (b *Block) Clone() Unit {
	c := &Block{Sp: b.Sp, Stmts: make([]Statement, len(b.Stmts))}
	for i, st := range b.Stmts {
		c.Stmts[i] = st.Clone()
	}
	return c
}

// SemiLiteral is a literal list of units, e.g. the bracketed form used to
// build literal list/vector values without invoking macro substitution on
// its contents.
type SemiLiteral struct {
	Sp    token.Span
	Units []Unit
}

func (s *SemiLiteral) Kind() Kind       { return KindSemiLiteral }
func (s *SemiLiteral) Span() token.Span { return s.Sp }
func (s *SemiLiteral) Clone() Unit {
	c := &SemiLiteral{Sp: s.Sp, Units: make([]Unit, len(s.Units))}
	for i, u := range s.Units {
		c.Units[i] = u.Clone()
	}
	return c
}

// Spread wraps a single unit whose value should be spread (flattened) into
// its containing list or argument list at evaluation time.
type Spread struct {
	Sp   token.Span
	Unit Unit
}

func (s *Spread) Kind() Kind       { return KindSpread }
func (s *Spread) Span() token.Span { return s.Sp }
func (s *Spread) Clone() Unit {
	return &Spread{Sp: s.Sp, Unit: s.Unit.Clone()}
}
