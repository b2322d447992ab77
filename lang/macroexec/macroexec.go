// Package macroexec implements the user-macro interpreter:
// a small stack machine that executes a macro's compiled instruction list
// against a stack of parse statements and parse units, producing the
// substituted statement a user macro invocation expands to.
//
// The machine drives a closed opcode set over a single stack the way a
// typical expression-value stack machine does, generalized to a
// two-category (statement/unit) stack with slicing and composition
// opcodes, plus a gensym counter that reseeds from the invoking
// statement's source text so repeated compiles of identical input produce
// identical gensym output.
package macroexec

import (
	"fmt"
	"hash/fnv"

	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
)

// Op is one of the closed set of macro-instruction operations.
type Op uint8

const (
	// shape
	OpStatement Op = iota
	OpSubst
	OpBlock
	OpSemilit
	OpSpread

	// token emit
	OpBareword
	OpExpander
	OpAString
	OpLString
	OpRString
	OpLRString
	OpVerbatim
	OpGensym

	// context
	OpLeft
	OpRight

	// slicing
	OpHead
	OpTail
	OpBehead
	OpCurtail
	OpNonempty
	OpSingular

	// composition
	OpAppend

	// control
	OpDie
	OpContext
)

// Instr is one macro instruction: an operation plus whatever operand it
// needs (a literal token's text, a slice count, a diagnostic label).
type Instr struct {
	Op   Op
	Text string // bareword/expander/string/verbatim payload, gensym tag, context label, die message
	N    int    // head/tail/behead/curtail count
}

// elem is a stack slot: exactly one of Stmt or U is set, discriminating the
// two categories the macro interpreter's stack holds ("parse statements or
// parse units").
type elem struct {
	stmt unit.Statement
	u    unit.Unit
}

func stmtElem(s unit.Statement) elem { return elem{stmt: s} }
func unitElem(u unit.Unit) elem      { return elem{u: u} }
func (e elem) isStatement() bool     { return e.u == nil }

// Machine executes one macro body against its starting stack (
// "Starting stack: one empty statement").
type Machine struct {
	stack []elem
	left  []unit.Unit
	right []unit.Unit

	// gensymSeed is the per-location stable hash (source text + monotonic
	// counter) that Gensym mixes into each generated name, so identical
	// inputs reproduce identical names across compiler runs (
	// "Gensym").
	gensymSeed  uint64
	gensymCount int

	sp token.Span // span attached to synthesized units/statements
}

// New returns a Machine ready to execute one macro invocation. srcText is
// the macro-invocation's own source text (used to seed Gensym); left/right
// are clones of the units surrounding the provoking bareword in the
// invoking statement.
func New(srcText string, left, right []unit.Unit, sp token.Span) *Machine {
	h := fnv.New64a()
	_, _ = h.Write([]byte(srcText))
	return &Machine{
		stack:      []elem{stmtElem(nil)},
		left:       left,
		right:      right,
		gensymSeed: h.Sum64(),
		sp:         sp,
	}
}

// Run executes instrs in order and returns the single resulting statement.
// Per , execution must finish with exactly one non-empty statement
// on the stack.
func (m *Machine) Run(instrs []Instr) (unit.Statement, error) {
	for _, in := range instrs {
		if err := m.step(in); err != nil {
			return nil, err
		}
	}
	if len(m.stack) != 1 {
		return nil, fmt.Errorf("macroexec: expected exactly one statement on the stack at end of execution, got %d", len(m.stack))
	}
	top := m.stack[0]
	if !top.isStatement() {
		return nil, fmt.Errorf("macroexec: top of stack is a unit, not a statement, at end of execution")
	}
	if len(top.stmt) == 0 {
		return nil, fmt.Errorf("macroexec: resulting statement is empty")
	}
	return top.stmt, nil
}

func (m *Machine) push(e elem)   { m.stack = append(m.stack, e) }
func (m *Machine) peek() elem    { return m.stack[len(m.stack)-1] }
func (m *Machine) pop() elem {
	e := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return e
}

func (m *Machine) die(format string, args ...interface{}) error {
	return fmt.Errorf("macroexec: "+format, args...)
}

func (m *Machine) step(in Instr) error {
	switch in.Op {
	case OpStatement:
		m.push(stmtElem(nil))
	case OpSubst:
		m.push(unitElem(&unit.Substitution{Sp: m.sp}))
	case OpBlock:
		m.push(unitElem(&unit.Block{Sp: m.sp}))
	case OpSemilit:
		m.push(unitElem(&unit.SemiLiteral{Sp: m.sp}))
	case OpSpread:
		top := m.pop()
		if top.isStatement() {
			return m.die("spread: top of stack is a statement, not a unit")
		}
		m.push(unitElem(&unit.Spread{Sp: m.sp, Unit: top.u}))

	case OpBareword:
		m.push(unitElem(&unit.Bareword{Sp: m.sp, Name: in.Text}))
	case OpExpander:
		m.push(unitElem(&unit.Expander{Sp: m.sp, Name: in.Text}))
	case OpAString:
		m.push(unitElem(&unit.Lit{Sp: m.sp, K: unit.KindAString, Text: in.Text}))
	case OpLString:
		m.push(unitElem(&unit.Lit{Sp: m.sp, K: unit.KindLString, Text: in.Text}))
	case OpRString:
		m.push(unitElem(&unit.Lit{Sp: m.sp, K: unit.KindRString, Text: in.Text}))
	case OpLRString:
		m.push(unitElem(&unit.Lit{Sp: m.sp, K: unit.KindLRString, Text: in.Text}))
	case OpVerbatim:
		m.push(unitElem(&unit.Lit{Sp: m.sp, K: unit.KindVerbatim, Text: in.Text}))
	case OpGensym:
		m.push(unitElem(&unit.Bareword{Sp: m.sp, Name: m.gensym(in.Text)}))

	case OpLeft:
		m.push(stmtElem(cloneUnits(m.left)))
	case OpRight:
		m.push(stmtElem(cloneUnits(m.right)))

	case OpHead:
		if err := m.sliceTop(func(s unit.Statement) (unit.Statement, error) { return headN(s, in.N) }); err != nil {
			return err
		}
	case OpTail:
		if err := m.sliceTop(func(s unit.Statement) (unit.Statement, error) { return tailN(s, in.N) }); err != nil {
			return err
		}
	case OpBehead:
		if err := m.sliceTop(func(s unit.Statement) (unit.Statement, error) { return beheadN(s, in.N) }); err != nil {
			return err
		}
	case OpCurtail:
		if err := m.sliceTop(func(s unit.Statement) (unit.Statement, error) { return curtailN(s, in.N) }); err != nil {
			return err
		}
	case OpNonempty:
		top := m.peek()
		if !top.isStatement() {
			return m.die("nonempty: top of stack is a unit, not a statement")
		}
		if len(top.stmt) == 0 {
			return m.die("nonempty: statement is empty")
		}
	case OpSingular:
		top := m.pop()
		if !top.isStatement() {
			return m.die("singular: top of stack is a unit, not a statement")
		}
		if len(top.stmt) != 1 {
			return m.die("singular: expected a 1-element statement, got %d elements", len(top.stmt))
		}
		m.push(unitElem(top.stmt[0]))

	case OpAppend:
		src := m.pop()
		dst := m.pop()
		merged, err := appendInto(dst, src)
		if err != nil {
			return err
		}
		m.push(merged)

	case OpDie:
		return m.die("%s", in.Text)
	case OpContext:
		// diagnostic-label bookkeeping only; no stack effect.
	default:
		return m.die("unknown instruction opcode %d", in.Op)
	}
	return nil
}

// gensym derives a deterministically unique bareword name from tag, the
// per-invocation seed, and a monotonic per-Machine counter (
// "Gensym"): identical source text always produces the same sequence of
// names, but two different call sites (or two gensym calls at the same
// site) never collide.
func (m *Machine) gensym(tag string) string {
	m.gensymCount++
	return fmt.Sprintf("$g%s-%x-%d", tag, m.gensymSeed, m.gensymCount)
}

func cloneUnits(units []unit.Unit) unit.Statement {
	out := make(unit.Statement, len(units))
	for i, u := range units {
		out[i] = u.Clone()
	}
	return out
}

func (m *Machine) sliceTop(f func(unit.Statement) (unit.Statement, error)) error {
	top := m.pop()
	if !top.isStatement() {
		return m.die("slice operation: top of stack is a unit, not a statement")
	}
	result, err := f(top.stmt)
	if err != nil {
		return err
	}
	m.push(stmtElem(result))
	return nil
}

func headN(s unit.Statement, n int) (unit.Statement, error) {
	if n > len(s) {
		return nil, fmt.Errorf("macroexec: head(%d): statement has only %d units", n, len(s))
	}
	return append(unit.Statement{}, s[:n]...), nil
}

func tailN(s unit.Statement, n int) (unit.Statement, error) {
	if n > len(s) {
		return nil, fmt.Errorf("macroexec: tail(%d): statement has only %d units", n, len(s))
	}
	return append(unit.Statement{}, s[len(s)-n:]...), nil
}

func beheadN(s unit.Statement, n int) (unit.Statement, error) {
	if n > len(s) {
		return nil, fmt.Errorf("macroexec: behead(%d): statement has only %d units", n, len(s))
	}
	return append(unit.Statement{}, s[n:]...), nil
}

func curtailN(s unit.Statement, n int) (unit.Statement, error) {
	if n > len(s) {
		return nil, fmt.Errorf("macroexec: curtail(%d): statement has only %d units", n, len(s))
	}
	return append(unit.Statement{}, s[:len(s)-n]...), nil
}

// appendInto pops src and appends it into dst, with rules that depend on
// dst's container kind:
//   - a statement container concatenates another statement or accepts a
//     single unit;
//   - a block/substitution container (itself a unit wrapping statements)
//     accepts one statement as its next child statement;
//   - a semi-literal container accepts either a statement (flattened to
//     its units) or a single unit.
func appendInto(dst, src elem) (elem, error) {
	if dst.isStatement() {
		if src.isStatement() {
			return stmtElem(append(append(unit.Statement{}, dst.stmt...), src.stmt...)), nil
		}
		return stmtElem(append(append(unit.Statement{}, dst.stmt...), src.u)), nil
	}

	switch c := dst.u.(type) {
	case *unit.Block:
		if !src.isStatement() {
			return elem{}, fmt.Errorf("macroexec: append into block: source must be a statement")
		}
		c.Stmts = append(c.Stmts, src.stmt)
		return dst, nil
	case *unit.Substitution:
		if !src.isStatement() {
			return elem{}, fmt.Errorf("macroexec: append into substitution: source must be a statement")
		}
		c.Stmts = append(c.Stmts, src.stmt)
		return dst, nil
	case *unit.SemiLiteral:
		if src.isStatement() {
			c.Units = append(c.Units, src.stmt...)
		} else {
			c.Units = append(c.Units, src.u)
		}
		return dst, nil
	default:
		return elem{}, fmt.Errorf("macroexec: append into %T: unsupported container", dst.u)
	}
}
