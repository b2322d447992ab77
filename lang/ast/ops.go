package ast

import (
	"fmt"

	"github.com/ava-lang/avc/lang/codegen"
	"github.com/ava-lang/avc/lang/pcode"
)

// LvalueProducer is implemented by a node that can appear on the
// right-hand side of an assignment whose left-hand side is being converted
// to an lvalue. It's a marker: callers pass the producer node itself,
// ToLvalue only inspects its type via the target's ToLvaluer
// implementation.
type LvalueProducer = Node

// ToLvaluer is the optional "to-lvalue" operation: a node that can serve as
// an assignment target converts itself into a (lvalue, reader) pair, where
// reader re-reads the same location (used when an assignment operator
// needs the prior value, e.g. compound assignment lowering).
type ToLvaluer interface {
	ToLvalue(producer LvalueProducer) (lvalue, reader Node, err error)
}

// Postprocessor is the optional "postprocess" operation, run once after a
// node's subtree is fully built (by macro substitution or by a parent
// node's own postprocess), used for checks or rewrites that need the whole
// subtree in place first.
type Postprocessor interface {
	Postprocess() error
}

// ConstExprer is the optional "get-constexpr" operation: a node that is
// statically known to reduce to a single constant value reports it here
// (used by codegen to fold constants and by the macro engine to evaluate
// compile-time conditionals).
type ConstExprer interface {
	ConstExpr() (value interface{}, ok bool)
}

// ConstExprSpreader is the optional "get-constexpr-spread" operation: like
// ConstExprer but for a node that spreads to zero or more constant values
// (e.g. a semi-literal of all-constant units).
type ConstExprSpreader interface {
	ConstExprSpread() (values []interface{}, ok bool)
}

// Funnamer is the optional "get-funname" operation: a node that names a
// function definition directly (used for better diagnostics and for
// recursive self-reference) reports that name here.
type Funnamer interface {
	FunName() (name string, ok bool)
}

// Evaluator is the optional "cg-evaluate" operation: generate code that
// computes the node's value into dst, leaving every register stack at its
// entry height except for dst's own push (codegen register balance).
type Evaluator interface {
	CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error
}

// Spreader is the optional "cg-spread" operation: generate code that
// computes the node's zero-or-more values into the given destination
// registers (e.g. a spread-of-list expands to however many elements the
// list holds at evaluation time, so dsts is produced dynamically by the
// node itself rather than supplied by the caller for this operation — see
// lang/macroexec's spread unit for the analogous parse-time shape).
type Spreader interface {
	CgSpread(ctx *codegen.Context) ([]pcode.Reg, error)
}

// Discarder is the optional "cg-discard" operation: generate code that
// evaluates the node purely for its side effects, leaving no value behind
// and every register stack at its entry height.
type Discarder interface {
	CgDiscard(ctx *codegen.Context) error
}

// Forcer is the optional "cg-force" operation: like CgEvaluate but for a
// node that may or may not already have a value computed (e.g. a deferred
// thunk), forcing it to materialize into dst.
type Forcer interface {
	CgForce(ctx *codegen.Context, dst pcode.Reg) error
}

// Definer is the optional "cg-define" operation: generate the code that
// introduces a new binding (a var/fun/struct/macro global or a local
// declaration) rather than reading or computing a value.
type Definer interface {
	CgDefine(ctx *codegen.Context) error
}

// Declarer is the optional "declare-global" operation: reserve a global's
// P-Code index (filling in its defining symtab.Symbol's PCodeIndex) without
// generating its body. A Module runs this over every top-level Definer
// before generating any bodies, so that a function compiled early in file
// order can still call one defined later — the pcode index is filled
// lazily with respect to the symbol's first use, not with respect to
// file order.
type Declarer interface {
	DeclareGlobal(ctx *codegen.Context) error
}

// SetUpper is the optional "cg-set-up" operation: generate entry code for a
// construct with its own lexical region (e.g. a loop's induction variable
// initialization, a try's landing pad registration).
type SetUpper interface {
	CgSetUp(ctx *codegen.Context) error
}

// TearDowner is the optional "cg-tear-down" operation: the SetUpper
// counterpart, generating exit code for the same construct (e.g. a try's
// yrt, a loop's final cleanup), called directly by the enclosing
// construct's codegen when the region it set up ends.
type TearDowner interface {
	CgTearDown(ctx *codegen.Context) error
}

// notSupported builds the "does not support operation" diagnostic for a
// node lacking one of the optional interfaces above.
func notSupported(n Node, verb string) error {
	return fmt.Errorf("%s: %s", Describe(n), verb)
}

// ToLvalue dispatches the optional to-lvalue operation, or reports that n
// cannot be assigned to.
func ToLvalue(n Node, producer LvalueProducer) (lvalue, reader Node, err error) {
	t, ok := n.(ToLvaluer)
	if !ok {
		return nil, nil, notSupported(n, "cannot be used as an assignment target")
	}
	return t.ToLvalue(producer)
}

// Postprocess dispatches the optional postprocess operation; nodes that
// don't need any are simply skipped (absence here is not an error, unlike
// the other operations, since every node is postprocessed as a matter of
// course while only some need it).
func Postprocess(n Node) error {
	if p, ok := n.(Postprocessor); ok {
		return p.Postprocess()
	}
	return nil
}

// GetConstExpr dispatches the optional get-constexpr operation.
func GetConstExpr(n Node) (interface{}, bool) {
	if c, ok := n.(ConstExprer); ok {
		return c.ConstExpr()
	}
	return nil, false
}

// GetConstExprSpread dispatches the optional get-constexpr-spread
// operation.
func GetConstExprSpread(n Node) ([]interface{}, bool) {
	if c, ok := n.(ConstExprSpreader); ok {
		return c.ConstExprSpread()
	}
	return nil, false
}

// GetFunName dispatches the optional get-funname operation.
func GetFunName(n Node) (string, bool) {
	if f, ok := n.(Funnamer); ok {
		return f.FunName()
	}
	return "", false
}

// CgEvaluate dispatches the optional cg-evaluate operation, or reports that
// n does not produce a value.
func CgEvaluate(n Node, ctx *codegen.Context, dst pcode.Reg) error {
	e, ok := n.(Evaluator)
	if !ok {
		return notSupported(n, "does not produce a value")
	}
	return e.CgEvaluate(ctx, dst)
}

// CgSpread dispatches the optional cg-spread operation.
func CgSpread(n Node, ctx *codegen.Context) ([]pcode.Reg, error) {
	s, ok := n.(Spreader)
	if !ok {
		return nil, notSupported(n, "does not support spreading")
	}
	return s.CgSpread(ctx)
}

// CgDiscard dispatches the optional cg-discard operation. A node that does
// not implement CgDiscard is an error here, even if it supports
// CgEvaluate; value-producing nodes get discard-by-evaluating by defining
// CgDiscard in terms of CgDiscardEvaluate.
func CgDiscard(n Node, ctx *codegen.Context) error {
	d, ok := n.(Discarder)
	if !ok {
		return notSupported(n, "is pure but would discard its value")
	}
	return d.CgDiscard(ctx)
}

// CgForce dispatches the optional cg-force operation, falling back to
// CgEvaluate when a node doesn't distinguish forcing from evaluating (the
// common case), and further falling back to CgDiscard followed by loading
// the empty string into dst when the node produces no value at all (a
// bare statement used in value position, e.g. the last statement of a
// substitution whose value nobody needed until now).
func CgForce(n Node, ctx *codegen.Context, dst pcode.Reg) error {
	if f, ok := n.(Forcer); ok {
		return f.CgForce(ctx, dst)
	}
	if _, ok := n.(Evaluator); ok {
		return CgEvaluate(n, ctx, dst)
	}
	if err := CgDiscard(n, ctx); err != nil {
		return err
	}
	insn := pcode.NewInsn(pcode.LdImmStr)
	insn.Dst = dst
	ctx.Emit(insn)
	return nil
}

// CgDefine dispatches the optional cg-define operation.
func CgDefine(n Node, ctx *codegen.Context) error {
	d, ok := n.(Definer)
	if !ok {
		return notSupported(n, "cannot be used as a definition")
	}
	return d.CgDefine(ctx)
}

// DeclareGlobal dispatches the optional declare-global operation; nodes
// that have no forward-reference concern (imports, plain statements) skip
// it silently.
func DeclareGlobal(n Node, ctx *codegen.Context) error {
	if d, ok := n.(Declarer); ok {
		return d.DeclareGlobal(ctx)
	}
	return nil
}

// CgSetUp dispatches the optional cg-set-up operation; absence is not an
// error since most nodes have no entry-side setup.
func CgSetUp(n Node, ctx *codegen.Context) error {
	if s, ok := n.(SetUpper); ok {
		return s.CgSetUp(ctx)
	}
	return nil
}

// CgTearDown dispatches the optional cg-tear-down operation; absence is
// not an error, mirroring CgSetUp.
func CgTearDown(n Node, ctx *codegen.Context) error {
	if td, ok := n.(TearDowner); ok {
		return td.CgTearDown(ctx)
	}
	return nil
}

// DiscardByEvaluate is an embeddable marker for Evaluator nodes that have
// no side-effect-only form. It has no methods, so embedding it does not by
// itself satisfy Discarder; the node still defines CgDiscard, which calls
// CgDiscardEvaluate to evaluate into a scratch register and pop it.
type DiscardByEvaluate struct{}

// CgDiscardEvaluate implements the fallback described on DiscardByEvaluate.
// Concrete node types embed DiscardByEvaluate and add:
//
//	func (n *SomeNode) CgDiscard(ctx *codegen.Context) error {
//	    return CgDiscardEvaluate(n, ctx, pcode.RegData)
//	}
func CgDiscardEvaluate(n Evaluator, ctx *codegen.Context, t pcode.RegType) error {
	dst := ctx.Push(t)
	if err := n.CgEvaluate(ctx, dst); err != nil {
		return err
	}
	ctx.Pop(t)
	return nil
}
