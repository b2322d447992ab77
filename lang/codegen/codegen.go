// Package codegen implements the codegen context: the
// per-function state threaded through AST code generation as it drives
// lang/pcode's builders to emit one function body. It tracks one
// function's executable builder and per-register-type
// stack heights while walking the AST, plus an explicit jump-protection
// stack for try/finally and defer targets, which a single-stack bytecode
// model has no equivalent of.
package codegen

import (
	"fmt"

	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/srcerr"
	"github.com/ava-lang/avc/lang/token"
)

// JumpProtKind distinguishes the two reasons a region of code can refuse or
// intercept a jump out of it.
type JumpProtKind uint8

const (
	// JumpProtCleanup entries run an on-exit callback (e.g. a defer, or a
	// finally block's ordinary cleanup code) whenever control leaves the
	// protected region via goto/ret/break/continue, then allow the jump to
	// proceed.
	JumpProtCleanup JumpProtKind = iota
	// JumpProtBarrier entries reject any attempt to jump out of the region
	// entirely: a finally block's own body may not itself be jumped out of
	// mid-cleanup.
	JumpProtBarrier
)

// JumpProt is one entry of the jump-protection stack, pushed when codegen
// enters a try/finally or a scope with an active defer, and popped when it
// exits normally.
type JumpProt struct {
	Kind JumpProtKind
	// OnExit, for JumpProtCleanup entries, emits whatever code must run
	// before control actually leaves the protected region (e.g. executing
	// the deferred statement, or the finally block's body). It is invoked
	// once per intervening jump, not once per entry into the region.
	OnExit func(ctx *Context)
	// Reason is the human-readable protected-region description
	// (for JumpProtBarrier, used to build the "jump out of finally"
	// diagnostic).
	Reason string
}

// Context is the per-function codegen state. One Context exists
// per function body being generated; nested function literals get their own
// Context and communicate with the enclosing one only through the already
// code-generated lang/varscope capture prefix.
type Context struct {
	Globals *pcode.GlobalBuilder
	exec    *pcode.ExecBuilder

	// Errors accumulates codegen-time failures (an unsupported AST
	// operation, an invalid lvalue, ...) the way lang/macsub.Context.Errors
	// accumulates substitution-time ones: per spec mode 1, codegen never
	// aborts a module over one definition's problem. New gives every
	// Context its own fresh list; a child Context created for a nested
	// function body (see lang/ast.Defun.CgDefine) should instead share its
	// parent's Errors so every function's errors land in one report.
	Errors *srcerr.List

	height    [numStackRegTypes]int
	maxHeight [numStackRegTypes]int

	lastPos token.Span
	havePos bool

	labelSeq int

	jprot []JumpProt
}

// numStackRegTypes is the count of P-Code register types that behave as
// lexical stacks (var registers are named slots, not a stack, and are
// excluded). Keep in sync with lang/pcode.RegType's non-var members.
const numStackRegTypes = 5

func stackSlot(t pcode.RegType) int {
	switch t {
	case pcode.RegData:
		return 0
	case pcode.RegInt:
		return 1
	case pcode.RegList:
		return 2
	case pcode.RegParm:
		return 3
	case pcode.RegFunction:
		return 4
	default:
		panic(fmt.Sprintf("codegen: register type %s is not a stack", t))
	}
}

// New returns a fresh Context generating into a new function body, backed
// by the given global builder (shared across every function of one module).
func New(globals *pcode.GlobalBuilder) *Context {
	return &Context{Globals: globals, exec: pcode.NewExecBuilder(), Errors: &srcerr.List{}}
}

// AddError records a codegen-time failure against sp without aborting: the
// caller substitutes a placeholder and keeps generating the rest of the
// module.
func (c *Context) AddError(sp token.Span, format string, args ...interface{}) {
	c.Errors.Add(sp, format, args...)
}

// Push emits a push instruction for the given register type and returns the
// register it pushed, tracking the stack's new height. Var registers are
// not tracked here: callers address a var register directly by index, they
// are never pushed/popped.
func (c *Context) Push(t pcode.RegType) pcode.Reg {
	slot := stackSlot(t)
	reg := pcode.Reg{Type: t, Index: c.height[slot]}
	insn := pcode.NewInsn(pcode.Push)
	insn.Dst = reg
	c.emit(insn)
	c.height[slot]++
	if c.height[slot] > c.maxHeight[slot] {
		c.maxHeight[slot] = c.height[slot]
	}
	return reg
}

// Pop emits a pop instruction for the given register type, asserting (by
// process abort) that the stack is not already empty: an empty-stack pop
// means codegen itself has a register-balance bug, not a user-facing
// compile error.
func (c *Context) Pop(t pcode.RegType) {
	slot := stackSlot(t)
	if c.height[slot] == 0 {
		panic(fmt.Sprintf("codegen: pop on empty %s stack: compiler bug", t))
	}
	c.height[slot]--
	insn := pcode.NewInsn(pcode.Pop)
	insn.Dst = pcode.Reg{Type: t, Index: c.height[slot]}
	c.emit(insn)
}

// Height reports the current depth of the named register-type stack, used
// by callers that need to snapshot-and-restore around a sub-expression
// (e.g. cg_discard double-checking that it left the stack exactly where it
// found it).
func (c *Context) Height(t pcode.RegType) int { return c.height[stackSlot(t)] }

// Label allocates a fresh, function-unique label name, monotonic within
// this Context.
func (c *Context) Label() string {
	c.labelSeq++
	return fmt.Sprintf("L%d", c.labelSeq)
}

// SetPos updates the source location attached to subsequently emitted
// instructions. A position is only actually recorded on the next emitted
// instruction when it differs from the last one recorded, keeping the
// instruction stream from carrying a redundant src-pos on every single
// instruction.
func (c *Context) SetPos(sp token.Span) {
	if sp == c.lastPos {
		return
	}
	c.lastPos = sp
	c.havePos = true
}

// emit appends insn to the function body, attaching the current source
// position only the first time it's emitted since the last SetPos call with
// a new value.
func (c *Context) emit(insn pcode.Insn) int {
	if c.havePos {
		insn.Pos = c.lastPos
		c.havePos = false
	}
	return c.exec.Append(insn)
}

// Emit appends a fully-constructed instruction verbatim, for instructions
// that don't go through Push/Pop (branches, loads, invokes, ...).
func (c *Context) Emit(insn pcode.Insn) int { return c.emit(insn) }

// EmitLabel appends a label pseudo-instruction marking a jump target.
func (c *Context) EmitLabel(name string) {
	insn := pcode.NewInsn(pcode.Label)
	insn.Label = name
	c.emit(insn)
}

// EmitJump appends an unconditional jump to the named label.
func (c *Context) EmitJump(label string) {
	insn := pcode.NewInsn(pcode.Jump)
	insn.Label = label
	c.emit(insn)
}

// EmitBranchIf appends a conditional jump to label when src is truthy.
func (c *Context) EmitBranchIf(src pcode.Reg, label string) {
	insn := pcode.NewInsn(pcode.BranchIf)
	insn.Src1 = src
	insn.Label = label
	c.emit(insn)
}

// PushJumpProt pushes a new entry onto the jump-protection stack, returning
// an index to pass to PopJumpProt for symmetry checking.
func (c *Context) PushJumpProt(jp JumpProt) int {
	c.jprot = append(c.jprot, jp)
	return len(c.jprot) - 1
}

// PopJumpProt pops the jump-protection stack, asserting the caller is
// popping the entry it thinks it is (a mismatched pop is a codegen bug).
func (c *Context) PopJumpProt(want int) {
	if want != len(c.jprot)-1 {
		panic("codegen: jump-protection stack popped out of order: compiler bug")
	}
	c.jprot = c.jprot[:want]
}

// EmitExit runs the on-exit callback of every jump-protection entry above
// target (exclusive), in innermost-first order; it does not emit the jump
// or return that leaves them, which the caller emits afterwards — used by
// break/continue/goto/return codegen to thread through any intervening
// try/finally or defer cleanup. It returns
// an error naming the offending JumpProtBarrier entry's Reason if target is
// inside a finally barrier ("jump out of finally").
func (c *Context) EmitExit(target int) error {
	for i := len(c.jprot) - 1; i > target; i-- {
		entry := c.jprot[i]
		if entry.Kind == JumpProtBarrier {
			return fmt.Errorf("jump out of finally: %s", entry.Reason)
		}
		if entry.OnExit != nil {
			entry.OnExit(c)
		}
	}
	return nil
}

// Build finalizes the function body generated so far. maxHeight per stack
// type is available via MaxHeight for callers that need to preallocate the
// runtime's register stacks.
func (c *Context) Build() *pcode.Executable { return c.exec.Build() }

// MaxHeight reports the high-water mark reached by the named stack type
// over the lifetime of this Context.
func (c *Context) MaxHeight(t pcode.RegType) int { return c.maxHeight[stackSlot(t)] }

// Balanced reports whether every stack-type register has returned to
// height zero: cg_evaluate/cg_discard must leave every stack at its entry
// height ("codegen register balance").
func (c *Context) Balanced() bool {
	for _, h := range c.height {
		if h != 0 {
			return false
		}
	}
	return true
}
