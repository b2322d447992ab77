package ast

import (
	"fmt"

	"github.com/ava-lang/avc/lang/codegen"
	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/varscope"
)

// Seq is an ordered sequence of statements executed for effect, the
// top-level shape of a function body or any braced block.
type Seq struct {
	NodeBase
	Stmts []Node
}

func (n *Seq) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
func (n *Seq) String() string { return fmt.Sprintf("sequence (%d stmts)", len(n.Stmts)) }

func (n *Seq) CgDiscard(ctx *codegen.Context) error {
	return cgDiscardStmts(n.Stmts, ctx)
}

// cgDiscardStmts runs every statement's optional cg-set-up, then (if it
// also generates code for effect) its cg-discard, then runs every
// registered cg-tear-down in reverse order once the whole sequence has
// executed — the orchestration a Defer statement needs to actually run at
// scope exit, shared by Seq and ExprSeq.
func cgDiscardStmts(stmts []Node, ctx *codegen.Context) error {
	var pending []Node
	for _, s := range stmts {
		if err := CgSetUp(s, ctx); err != nil {
			return err
		}
		if _, ok := s.(Discarder); ok {
			if err := CgDiscard(s, ctx); err != nil {
				return err
			}
		}
		if _, ok := s.(TearDowner); ok {
			pending = append(pending, s)
		}
	}
	for i := len(pending) - 1; i >= 0; i-- {
		if err := CgTearDown(pending[i], ctx); err != nil {
			return err
		}
	}
	return nil
}

// ExprSeq is a sequence of statements evaluated for its value: the body of
// a parenthesized substitution unit, or any other construct whose value
// is the value of its last statement, the empty string if it has none.
type ExprSeq struct {
	NodeBase
	Stmts []Node
}

func (n *ExprSeq) Walk(v Visitor) {
	for _, s := range n.Stmts {
		Walk(v, s)
	}
}
func (n *ExprSeq) String() string { return fmt.Sprintf("expr-sequence (%d stmts)", len(n.Stmts)) }

func (n *ExprSeq) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	if len(n.Stmts) == 0 {
		insn := pcode.NewInsn(pcode.LdImmStr)
		insn.Dst = dst
		ctx.Emit(insn)
		return nil
	}
	if err := cgDiscardStmts(n.Stmts[:len(n.Stmts)-1], ctx); err != nil {
		return err
	}
	last := n.Stmts[len(n.Stmts)-1]
	if err := CgSetUp(last, ctx); err != nil {
		return err
	}
	if err := CgForce(last, ctx, dst); err != nil {
		return err
	}
	return CgTearDown(last, ctx)
}

func (n *ExprSeq) CgDiscard(ctx *codegen.Context) error {
	return cgDiscardStmts(n.Stmts, ctx)
}

// Assign lowers `target = value`: it converts target to an lvalue/reader
// pair, discards the reader, and drives that lvalue's cg-define with value
// as the producer. No compound (read-modify-write) form is lowered here.
type Assign struct {
	NodeBase
	Target, Value Node
}

func (n *Assign) Walk(v Visitor) {
	Walk(v, n.Target)
	Walk(v, n.Value)
}
func (n *Assign) String() string { return "assignment" }

func (n *Assign) CgDiscard(ctx *codegen.Context) error {
	ctx.SetPos(n.Sp)
	lvalue, _, err := ToLvalue(n.Target, n.Value)
	if err != nil {
		return err
	}
	return CgDefine(lvalue, ctx)
}

// IfClause is one `<cond> <result>` arm of an If chain (spec §4.4.1's
// "odd-or-even unit sequence"); Cond is nil for the trailing else arm.
type IfClause struct {
	Cond, Result Node
}

// If is a chain of one or more conditional clauses plus an optional
// trailing else (the clause whose Cond is nil). ExpressionForm records
// whether every clause's result is a substitution, producing a value
// (spec §8 "expression form requires else"), rather than a block,
// discarding it.
type If struct {
	NodeBase
	Clauses        []IfClause
	ExpressionForm bool
}

func (n *If) Walk(v Visitor) {
	for _, c := range n.Clauses {
		if c.Cond != nil {
			Walk(v, c.Cond)
		}
		Walk(v, c.Result)
	}
}
func (n *If) String() string { return fmt.Sprintf("if (%d clauses)", len(n.Clauses)) }

func (n *If) CgDiscard(ctx *codegen.Context) error {
	if n.ExpressionForm {
		return fmt.Errorf("if: expression-form result is discarded")
	}
	return n.cgCommon(ctx, nil)
}

func (n *If) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	if !n.ExpressionForm {
		return fmt.Errorf("if: statement form does not produce a value")
	}
	return n.cgCommon(ctx, &dst)
}

// cgCommon implements both cg-discard (dst == nil) and cg-evaluate
// (dst != nil), walking the clause chain in order and branching past each
// conditional clause's result to the next clause's condition check,
// grounded directly on original_source's ava_intr_if_cg_common.
func (n *If) cgCommon(ctx *codegen.Context, dst *pcode.Reg) error {
	ctx.SetPos(n.Sp)
	endLabel := ctx.Label()
	condDst := ctx.Push(pcode.RegData)
	boolDst := ctx.Push(pcode.RegInt)

	for _, clause := range n.Clauses {
		var elseLabel string
		if clause.Cond != nil {
			elseLabel = ctx.Label()
			if err := CgEvaluate(clause.Cond, ctx, condDst); err != nil {
				return err
			}
			boolInsn := pcode.NewInsn(pcode.Bool)
			boolInsn.Dst, boolInsn.Src1 = boolDst, condDst
			ctx.Emit(boolInsn)
			ctx.EmitBranchIf(boolDst, elseLabel)
		}

		if n.ExpressionForm {
			if err := CgEvaluate(clause.Result, ctx, *dst); err != nil {
				return err
			}
		} else if err := CgDiscard(clause.Result, ctx); err != nil {
			return err
		}
		ctx.EmitJump(endLabel)

		if clause.Cond != nil {
			ctx.EmitLabel(elseLabel)
		}
	}

	// No explicit else in expression form: fall through here only when
	// every clause's condition was false, so supply the empty string.
	if n.ExpressionForm && n.Clauses[len(n.Clauses)-1].Cond != nil {
		insn := pcode.NewInsn(pcode.LdImmStr)
		insn.Dst = *dst
		ctx.Emit(insn)
	}

	ctx.EmitLabel(endLabel)
	ctx.Pop(pcode.RegInt)
	ctx.Pop(pcode.RegData)
	return nil
}

// Loop is a structured loop with a condition checked before each
// iteration (a `while`-shaped loop). Iteration over a list (`each`) has
// its own node, LoopEach.
// BreakLabel/ContinueLabel are allocated once and referenced by any
// break/continue nodes nested in Body.
type Loop struct {
	NodeBase
	Cond, Body           Node
	BreakLabel, ContinueLabel string
}

func (n *Loop) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *Loop) String() string { return "loop" }

func (n *Loop) CgSetUp(ctx *codegen.Context) error {
	n.BreakLabel = ctx.Label()
	n.ContinueLabel = ctx.Label()
	return nil
}

func (n *Loop) CgDiscard(ctx *codegen.Context) error {
	if n.BreakLabel == "" {
		if err := n.CgSetUp(ctx); err != nil {
			return err
		}
	}
	top := ctx.Label()
	ctx.EmitLabel(top)
	ctx.EmitLabel(n.ContinueLabel)

	condDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.Cond, ctx, condDst); err != nil {
		return err
	}
	boolDst := ctx.Push(pcode.RegInt)
	boolInsn := pcode.NewInsn(pcode.Bool)
	boolInsn.Dst, boolInsn.Src1 = boolDst, condDst
	ctx.Emit(boolInsn)
	ctx.Pop(pcode.RegData)
	ctx.EmitBranchIf(boolDst, n.BreakLabel)
	ctx.Pop(pcode.RegInt)

	mark := ctx.PushJumpProt(codegen.JumpProt{Kind: codegen.JumpProtCleanup, Reason: "loop body"})
	if err := CgDiscard(n.Body, ctx); err != nil {
		return err
	}
	ctx.PopJumpProt(mark)

	ctx.EmitJump(top)
	ctx.EmitLabel(n.BreakLabel)
	return nil
}

// LoopEach implements the `each <var> in <list-expr>` composable loop
// clause: it walks List by index, binding VarSym to each element in turn
// and discarding Body every iteration, then (when Collect is set)
// appending Collect's value onto an accumulator list that CgEvaluate
// returns as the loop's expression-form value. Else, when present, runs
// once at loop completion in place of the accumulator — this includes the
// empty-list case, but also an ordinary non-empty completion, matching
// the original's unconditional "else clause overwrites accum at the
// completion label" behavior (spec §8's empty-list boundary case is the
// most common instance of this, not the only one).
type LoopEach struct {
	NodeBase
	VarSym                    *symtab.Symbol
	List, Body                Node
	Collect, Else             Node
	BreakLabel, ContinueLabel string
}

func (n *LoopEach) Walk(v Visitor) {
	Walk(v, n.List)
	if n.Body != nil {
		Walk(v, n.Body)
	}
	if n.Collect != nil {
		Walk(v, n.Collect)
	}
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *LoopEach) String() string { return "loop-each" }

func (n *LoopEach) CgSetUp(ctx *codegen.Context) error {
	n.BreakLabel = ctx.Label()
	n.ContinueLabel = ctx.Label()
	return nil
}

func (n *LoopEach) CgDiscard(ctx *codegen.Context) error {
	return n.cg(ctx, nil)
}

func (n *LoopEach) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	return n.cg(ctx, &dst)
}

// cg implements both cg-discard (dst == nil) and cg-evaluate (dst != nil)
// for the shared each/collect/else lowering: an accumulator data register
// seeded empty, an index/length pair of int registers driving an
// lindex-based walk of the evaluated list, and a completion label the
// index-bounds check and any break target jump to. Grounded directly on
// original_source's ava_intr_loop_cg_evaluate: init phase (evaluate list,
// llength, zero the index), iterate phase (icmp the index against the
// length, lindex the current element, bind it, iadd-imm the index, run
// Body, run Collect), update phase (jump back to iterate), completion
// phase (Else, then load accum into dst).
func (n *LoopEach) cg(ctx *codegen.Context, dst *pcode.Reg) error {
	ctx.SetPos(n.Sp)
	if n.BreakLabel == "" {
		if err := n.CgSetUp(ctx); err != nil {
			return err
		}
	}
	completion := ctx.Label()
	iterate := ctx.Label()

	accum := ctx.Push(pcode.RegData)
	accumInit := pcode.NewInsn(pcode.LdImmStr)
	accumInit.Dst = accum
	ctx.Emit(accumInit)

	listTmp := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.List, ctx, listTmp); err != nil {
		return err
	}
	listReg := ctx.Push(pcode.RegList)
	ldList := pcode.NewInsn(pcode.LdReg)
	ldList.Dst, ldList.Src1 = listReg, listTmp
	ctx.Emit(ldList)
	ctx.Pop(pcode.RegData)

	lenReg := ctx.Push(pcode.RegInt)
	lenInsn := pcode.NewInsn(pcode.LLength)
	lenInsn.Dst, lenInsn.Src1 = lenReg, listReg
	ctx.Emit(lenInsn)

	idxReg := ctx.Push(pcode.RegInt)
	idxInit := pcode.NewInsn(pcode.LdImmInt)
	idxInit.Dst = idxReg
	idxInit.ImmInt = 0
	ctx.Emit(idxInit)

	ctx.EmitLabel(iterate)

	cmpReg := ctx.Push(pcode.RegInt)
	cmpInsn := pcode.NewInsn(pcode.ICmp)
	cmpInsn.Dst, cmpInsn.Src1, cmpInsn.Src2 = cmpReg, idxReg, lenReg
	cmpInsn.ImmInt = -1 // branch to completion once idx is no longer < len
	ctx.Emit(cmpInsn)
	ctx.EmitBranchIf(cmpReg, n.BreakLabel)
	ctx.Pop(pcode.RegInt)

	elemReg := ctx.Push(pcode.RegData)
	idxRead := pcode.NewInsn(pcode.LIndex)
	idxRead.Dst, idxRead.Src1, idxRead.Src2 = elemReg, listReg, idxReg
	ctx.Emit(idxRead)
	incInsn := pcode.NewInsn(pcode.IAddImm)
	incInsn.Dst, incInsn.Src1, incInsn.ImmInt = idxReg, idxReg, 1
	ctx.Emit(incInsn)

	if idx, ok := localVarIndex(n.VarSym); ok {
		bind := pcode.NewInsn(pcode.LdReg)
		bind.Dst = pcode.Reg{Type: pcode.RegVar, Index: idx}
		bind.Src1 = elemReg
		ctx.Emit(bind)
	}
	ctx.Pop(pcode.RegData)

	mark := ctx.PushJumpProt(codegen.JumpProt{Kind: codegen.JumpProtCleanup, Reason: "each loop body"})
	if n.Body != nil {
		if err := CgDiscard(n.Body, ctx); err != nil {
			return err
		}
	}
	ctx.PopJumpProt(mark)

	if n.Collect != nil {
		collectDst := ctx.Push(pcode.RegData)
		if err := CgEvaluate(n.Collect, ctx, collectDst); err != nil {
			return err
		}
		app := pcode.NewInsn(pcode.LAppend)
		app.Dst, app.Src1, app.Src2 = accum, accum, collectDst
		ctx.Emit(app)
		ctx.Pop(pcode.RegData)
	}

	ctx.EmitLabel(n.ContinueLabel)
	ctx.EmitJump(iterate)
	ctx.EmitLabel(n.BreakLabel)
	ctx.EmitLabel(completion)

	if n.Else != nil {
		if dst != nil {
			if err := CgForce(n.Else, ctx, accum); err != nil {
				return err
			}
		} else if err := CgDiscard(n.Else, ctx); err != nil {
			return err
		}
	}

	if dst != nil {
		final := pcode.NewInsn(pcode.LdReg)
		final.Dst, final.Src1 = *dst, accum
		ctx.Emit(final)
	}

	ctx.Pop(pcode.RegInt)   // idxReg
	ctx.Pop(pcode.RegInt)   // lenReg
	ctx.Pop(pcode.RegList)  // listReg
	ctx.Pop(pcode.RegData)  // accum
	return nil
}

// Break transfers control to the nearest enclosing loop's break label,
// unwinding any intervening jump-protection entries first.
type Break struct {
	NodeBase
	Target      *Loop
	ProtDepth   int
}

func (n *Break) Walk(Visitor)    {}
func (n *Break) String() string  { return "break" }
func (n *Break) CgDiscard(ctx *codegen.Context) error {
	if err := ctx.EmitExit(n.ProtDepth); err != nil {
		return err
	}
	ctx.EmitJump(n.Target.BreakLabel)
	return nil
}

// Continue transfers control to the nearest enclosing loop's continue
// label.
type Continue struct {
	NodeBase
	Target    *Loop
	ProtDepth int
}

func (n *Continue) Walk(Visitor)   {}
func (n *Continue) String() string { return "continue" }
func (n *Continue) CgDiscard(ctx *codegen.Context) error {
	if err := ctx.EmitExit(n.ProtDepth); err != nil {
		return err
	}
	ctx.EmitJump(n.Target.ContinueLabel)
	return nil
}

// Throw raises Value as an exception.
type Throw struct {
	NodeBase
	Value Node
}

func (n *Throw) Walk(v Visitor)  { Walk(v, n.Value) }
func (n *Throw) String() string  { return "throw" }
func (n *Throw) CgDiscard(ctx *codegen.Context) error {
	ctx.SetPos(n.Sp)
	dst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.Value, ctx, dst); err != nil {
		return err
	}
	ctx.Emit(pcode.NewInsn(pcode.RequireCaughtException))
	ctx.Emit(pcode.NewInsn(pcode.Rethrow))
	ctx.Pop(pcode.RegData)
	return nil
}

// Try runs Body with Catch as its landing pad. When Finally is present it
// nests an outer try around both Body and Catch, so Finally always runs on
// the way out -- whether Body completed normally, threw into Catch, or
// Catch itself threw or rethrew. Finally's own body is protected by a
// JumpProtBarrier: nothing inside it may jump back out past it.
type Try struct {
	NodeBase
	Body, Catch, Finally Node
}

func (n *Try) Walk(v Visitor) {
	Walk(v, n.Body)
	if n.Catch != nil {
		Walk(v, n.Catch)
	}
	if n.Finally != nil {
		Walk(v, n.Finally)
	}
}
func (n *Try) String() string { return "try-statement" }

// runFinallyChecked code-generates Finally under a JumpProtBarrier (a
// finally block's own body may not itself be jumped out of), per
// original_source eh.c's finally_jprot.
func (n *Try) runFinallyChecked(ctx *codegen.Context) error {
	mark := ctx.PushJumpProt(codegen.JumpProt{Kind: codegen.JumpProtBarrier, Reason: "finally at " + n.Sp.String()})
	err := CgDiscard(n.Finally, ctx)
	ctx.PopJumpProt(mark)
	return err
}

func (n *Try) CgDiscard(ctx *codegen.Context) error {
	ctx.SetPos(n.Sp)
	joinLabel := ctx.Label()

	// A finally clause wraps body *and* catch dispatch in an outer try
	// landing at finallyLabel, kept active while the inner catch-dispatch
	// try runs, so a throw from inside the catch body -- including an
	// explicit rethrow -- still lands somewhere and is routed through
	// finally before propagating further, instead of escaping unprotected.
	// Mirrors original_source eh.c's nested do_finally_jprot/
	// try(ava_true, finally_label) wrapping the inner
	// try(ava_false, start_catch_label).
	var finallyLabel string
	outerMark := -1
	if n.Finally != nil {
		finallyLabel = ctx.Label()
		outerTry := pcode.NewInsn(pcode.Try)
		outerTry.Label = finallyLabel
		ctx.Emit(outerTry)
		outerMark = ctx.PushJumpProt(codegen.JumpProt{
			Kind: codegen.JumpProtCleanup,
			OnExit: func(c *codegen.Context) {
				c.Emit(pcode.NewInsn(pcode.Yrt))
				_ = n.runFinallyChecked(c)
			},
			Reason: "try/finally",
		})
	}

	var landingPad string
	if n.Catch != nil {
		landingPad = ctx.Label()
		innerTry := pcode.NewInsn(pcode.Try)
		innerTry.Label = landingPad
		ctx.Emit(innerTry)
	}

	if err := CgDiscard(n.Body, ctx); err != nil {
		return err
	}
	if n.Catch != nil {
		ctx.Emit(pcode.NewInsn(pcode.Yrt))
	}
	if n.Finally != nil {
		ctx.Emit(pcode.NewInsn(pcode.Yrt))
		if err := n.runFinallyChecked(ctx); err != nil {
			return err
		}
	}
	ctx.EmitJump(joinLabel)

	if n.Catch != nil {
		ctx.EmitLabel(landingPad)
		ctx.Emit(pcode.NewInsn(pcode.RequireCaughtException))
		if err := CgDiscard(n.Catch, ctx); err != nil {
			return err
		}
		if n.Finally != nil {
			ctx.Emit(pcode.NewInsn(pcode.Yrt))
			if err := n.runFinallyChecked(ctx); err != nil {
				return err
			}
		}
		ctx.EmitJump(joinLabel)
	}

	if n.Finally != nil {
		ctx.PopJumpProt(outerMark)
		ctx.EmitLabel(finallyLabel)
		ctx.Emit(pcode.NewInsn(pcode.RequireCaughtException))
		if err := n.runFinallyChecked(ctx); err != nil {
			return err
		}
		ctx.Emit(pcode.NewInsn(pcode.Rethrow))
	}

	ctx.EmitLabel(joinLabel)
	return nil
}

// Defer schedules Stmt to run when the enclosing block exits normally
// (CgTearDown) or is left by a jump that unwinds through it, by pushing a
// cleanup jump-protection entry for the remainder of the enclosing scope.
// No exception handler is set up, so an exception propagating out of the
// block does not run Stmt.
type Defer struct {
	NodeBase
	Stmt Node

	mark int
}

func (n *Defer) Walk(v Visitor) { Walk(v, n.Stmt) }
func (n *Defer) String() string { return "defer" }

func (n *Defer) CgSetUp(ctx *codegen.Context) error {
	n.mark = ctx.PushJumpProt(codegen.JumpProt{
		Kind:   codegen.JumpProtCleanup,
		OnExit: func(c *codegen.Context) { _ = CgDiscard(n.Stmt, c) },
		Reason: "defer",
	})
	return nil
}

func (n *Defer) CgTearDown(ctx *codegen.Context) error {
	ctx.PopJumpProt(n.mark)
	return CgDiscard(n.Stmt, ctx)
}

// Defun defines a function: it registers a fun global (capturing Params'
// shape plus the capture prefix lang/varscope assigned) and code-generates
// Body into that global's executable using a fresh codegen.Context.
type Defun struct {
	NodeBase
	Sym      *symtab.Symbol
	Params   []symtab.ArgBinding
	Captures *varscope.Varscope
	Body     Node

	globalIndex int
}

func (n *Defun) Walk(v Visitor) { Walk(v, n.Body) }
func (n *Defun) String() string { return fmt.Sprintf("defun %s", n.Sym.FullName) }

func (n *Defun) FunName() (string, bool) { return n.Sym.FullName, true }

// DeclareGlobal reserves the function's global index and stamps it onto
// Sym before any body is generated, so callers processed earlier in file
// order (including Sym itself, for recursion) already see a valid
// PCodeIndex. Idempotent: a second call is a no-op.
func (n *Defun) DeclareGlobal(ctx *codegen.Context) error {
	if n.Sym.HasPCodeIndex {
		return nil
	}
	proto := toArgProtos(n.Params)
	var captureNames []string
	if n.Captures != nil {
		for _, e := range n.Captures.Entries() {
			captureNames = append(captureNames, e.Sym.FullName)
		}
	}
	idx := ctx.Globals.AddFun(n.Sym.FullName, proto, captureNames)
	n.globalIndex = idx
	n.Sym.PCodeIndex = idx
	n.Sym.HasPCodeIndex = true
	return nil
}

// CgDefine code-generates n's body into its own function-level Context.
// A codegen failure here never aborts the enclosing module (spec §7 mode
// 1): it is recorded to ctx.Errors and the global gets a no-op placeholder
// body instead, so every remaining top-level definer still gets generated
// and every remaining codegen problem in this function (or the rest of the
// module) is still reported.
func (n *Defun) CgDefine(ctx *codegen.Context) error {
	ctx.SetPos(n.Sp)
	if !n.Sym.HasPCodeIndex {
		if err := n.DeclareGlobal(ctx); err != nil {
			return err
		}
	}

	fnCtx := codegen.New(ctx.Globals)
	fnCtx.Errors = ctx.Errors
	fnCtx.SetPos(n.Sp)
	if err := CgDiscard(n.Body, fnCtx); err != nil {
		ctx.AddError(n.Sp, "defun %s: %v", n.Sym.FullName, err)
		ctx.Globals.SetBody(n.globalIndex, placeholderBody(ctx.Globals))
		return nil
	}
	if !fnCtx.Balanced() {
		ctx.AddError(n.Sp, "defun %s: register stacks unbalanced after body codegen: compiler bug", n.Sym.FullName)
		ctx.Globals.SetBody(n.globalIndex, placeholderBody(ctx.Globals))
		return nil
	}
	ctx.Globals.SetBody(n.globalIndex, fnCtx.Build())
	return nil
}

// placeholderBody is the no-op function body substituted for a definition
// whose own codegen failed: a single unconditional return, so the module
// as a whole still links and the real error is only visible through
// ctx.Errors, not a panic or invalid bytecode at link time.
func placeholderBody(globals *pcode.GlobalBuilder) *pcode.Executable {
	c := codegen.New(globals)
	c.Emit(pcode.NewInsn(pcode.Ret))
	return c.Build()
}

func toArgProtos(params []symtab.ArgBinding) []pcode.ArgProto {
	out := make([]pcode.ArgProto, len(params))
	for i, p := range params {
		var kind string
		switch p.Kind {
		case symtab.Positional:
			kind = "positional"
		case symtab.PositionalWithDefault:
			kind = "positional-default"
		case symtab.Named:
			kind = "named"
		case symtab.NamedWithDefault:
			kind = "named-default"
		case symtab.Varargs:
			kind = "varargs"
		default:
			kind = "empty"
		}
		def := ""
		if p.Default != nil {
			def = fmt.Sprintf("%v", p.Default)
		}
		out[i] = pcode.ArgProto{Kind: kind, Name: p.Name, Default: def}
	}
	return out
}

// Extern declares an external variable or function, backed at link time by
// another compiled module (an ext-var/ext-fun global).
type Extern struct {
	NodeBase
	Sym    *symtab.Symbol
	Params []symtab.ArgBinding // nil for ext-var
}

func (n *Extern) Walk(Visitor) {}
func (n *Extern) String() string {
	if n.Sym.Type == symtab.GlobalFun {
		return fmt.Sprintf("extern-fun %s", n.Sym.FullName)
	}
	return fmt.Sprintf("extern-var %s", n.Sym.FullName)
}

func (n *Extern) DeclareGlobal(ctx *codegen.Context) error {
	if n.Sym.HasPCodeIndex {
		return nil
	}
	var idx int
	if n.Sym.Type == symtab.GlobalFun {
		idx = ctx.Globals.AddExtFun(n.Sym.FullName, toArgProtos(n.Params))
	} else {
		idx = ctx.Globals.AddExtVar(n.Sym.FullName)
	}
	n.Sym.PCodeIndex = idx
	n.Sym.HasPCodeIndex = true
	return nil
}

func (n *Extern) CgDefine(ctx *codegen.Context) error {
	return n.DeclareGlobal(ctx)
}

// ImportAlias records a namespace import (strong or weak, absolute or
// relative), replayed at link time against lang/symtab.Table.Import.
type ImportAlias struct {
	NodeBase
	OldPrefix, NewPrefix string
	Absolute, Strong     bool
}

func (n *ImportAlias) Walk(Visitor) {}
func (n *ImportAlias) String() string {
	return fmt.Sprintf("import %s -> %s", n.OldPrefix, n.NewPrefix)
}

func (n *ImportAlias) CgDefine(ctx *codegen.Context) error {
	ctx.Globals.AddImportAlias(n.OldPrefix, n.NewPrefix, n.Absolute, n.Strong)
	return nil
}

// MacroDef records a user-macro definition: the `macro` control
// intrinsic's only job is to compile the invocation into the P-Code
// macro global every other module linking against this one needs to
// reconstitute the same lang/macroexec-executable symbol. Like an
// import alias, it only implements CgDefine (with CgDiscard aliased onto it)
// and produces no value.
type MacroDef struct {
	NodeBase
	Name       string
	Type       string // "control", "operator" or "function"
	Precedence int
	Body       []byte // lang/macroexec-encoded instruction list
}

func (n *MacroDef) Walk(Visitor) {}
func (n *MacroDef) String() string {
	return fmt.Sprintf("macro %s (%s, precedence %d)", n.Name, n.Type, n.Precedence)
}

func (n *MacroDef) CgDefine(ctx *codegen.Context) error {
	ctx.Globals.AddMacro(n.Name, n.Type, n.Precedence, n.Body)
	return nil
}

// CgDiscard is aliased onto CgDefine, matching the original vtable's "sic"
// comment: a macro definition found in statement (not just top-level)
// position still needs its global emitted exactly once.
func (n *MacroDef) CgDiscard(ctx *codegen.Context) error {
	return n.CgDefine(ctx)
}

// ErrorPlaceholder stands in for a subtree that failed to resolve, so that
// later passes can keep walking the rest of the AST and surface additional
// diagnostics instead of aborting at the first error ( mode 1,
// "accumulated compile errors"). Every optional operation reports the
// captured error rather than panicking or silently producing garbage code.
type ErrorPlaceholder struct {
	NodeBase
	Err error
}

func (n *ErrorPlaceholder) Walk(Visitor)   {}
func (n *ErrorPlaceholder) String() string { return fmt.Sprintf("error-placeholder: %v", n.Err) }

func (n *ErrorPlaceholder) CgEvaluate(*codegen.Context, pcode.Reg) error { return n.Err }
func (n *ErrorPlaceholder) CgDiscard(*codegen.Context) error             { return n.Err }
func (n *ErrorPlaceholder) CgDefine(*codegen.Context) error              { return n.Err }
