package ast

import (
	"fmt"

	"github.com/ava-lang/avc/lang/codegen"
	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/varscope"
)

// LiteralKind distinguishes the three immediate-value shapes an AST
// literal can carry, mirroring lang/pcode's ld-imm-* instruction family.
type LiteralKind uint8

const (
	LitInt LiteralKind = iota
	LitString
	LitData
)

// Literal is a compile-time constant value written directly in source.
type Literal struct {
	NodeBase
	Kind   LiteralKind
	IntVal int64
	StrVal string
}

func (n *Literal) Walk(Visitor) {}

func (n *Literal) String() string {
	switch n.Kind {
	case LitInt:
		return fmt.Sprintf("int-literal %d", n.IntVal)
	case LitString:
		return fmt.Sprintf("string-literal %q", n.StrVal)
	default:
		return fmt.Sprintf("data-literal %q", n.StrVal)
	}
}

func (n *Literal) ConstExpr() (interface{}, bool) {
	switch n.Kind {
	case LitInt:
		return n.IntVal, true
	default:
		return n.StrVal, true
	}
}

func (n *Literal) regType() pcode.RegType {
	if n.Kind == LitInt {
		return pcode.RegInt
	}
	return pcode.RegData
}

func (n *Literal) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	ctx.SetPos(n.Sp)
	var insn pcode.Insn
	switch n.Kind {
	case LitInt:
		insn = pcode.NewInsn(pcode.LdImmInt)
		insn.ImmInt = n.IntVal
	case LitString:
		insn = pcode.NewInsn(pcode.LdImmStr)
		insn.ImmStr = n.StrVal
	default:
		insn = pcode.NewInsn(pcode.LdImmData)
		insn.ImmStr = n.StrVal
	}
	insn.Dst = dst
	ctx.Emit(insn)
	return nil
}

func (n *Literal) CgDiscard(ctx *codegen.Context) error {
	return CgDiscardEvaluate(n, ctx, n.regType())
}

// VariableRead reads the current value of a resolved symbol: a global
// variable (ld-glob), a local variable of the enclosing function (ld-reg
// against a var register), or a captured variable (ld-reg against the
// capture-prefix index assigned by lang/varscope).
type VariableRead struct {
	NodeBase
	Sym *symtab.Symbol
}

func (n *VariableRead) Walk(Visitor) {}
func (n *VariableRead) String() string {
	return fmt.Sprintf("variable-read %s", n.Sym.FullName)
}

func (n *VariableRead) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	ctx.SetPos(n.Sp)
	if n.Sym.Level == 0 {
		if !n.Sym.HasPCodeIndex {
			return fmt.Errorf("variable-read %s: global has no assigned P-Code index", n.Sym.FullName)
		}
		insn := pcode.NewInsn(pcode.LdGlob)
		insn.Dst = dst
		insn.GlobalIndex = n.Sym.PCodeIndex
		ctx.Emit(insn)
		return nil
	}

	idx, ok := localVarIndex(n.Sym)
	if !ok {
		return fmt.Errorf("variable-read %s: local variable has no assigned register", n.Sym.FullName)
	}
	insn := pcode.NewInsn(pcode.LdReg)
	insn.Dst = dst
	insn.Src1 = pcode.Reg{Type: pcode.RegVar, Index: idx}
	ctx.Emit(insn)
	return nil
}

func (n *VariableRead) CgDiscard(ctx *codegen.Context) error {
	return CgDiscardEvaluate(n, ctx, pcode.RegData)
}

// ToLvalue makes a variable reference a valid assignment target, refusing
// one that symtab marked immutable: only a var declared with a mutable
// binding may ever be converted to an lvalue.
func (n *VariableRead) ToLvalue(producer LvalueProducer) (Node, Node, error) {
	if n.Sym.Var == nil || !n.Sym.Var.Mutable {
		return nil, nil, fmt.Errorf("variable %s is not mutable", n.Sym.FullName)
	}
	lvalue := &variableAssign{NodeBase: n.NodeBase, sym: n.Sym, producer: producer}
	reader := &VariableRead{NodeBase: n.NodeBase, Sym: n.Sym}
	return lvalue, reader, nil
}

// variableAssign is the lvalue-side node ToLvalue produces for a
// VariableRead target: cg-define evaluates producer and writes it to sym's
// global slot or local var register.
type variableAssign struct {
	NodeBase
	sym      *symtab.Symbol
	producer LvalueProducer
}

func (n *variableAssign) Walk(v Visitor) { Walk(v, n.producer) }
func (n *variableAssign) String() string { return fmt.Sprintf("variable-assign %s", n.sym.FullName) }

func (n *variableAssign) CgDefine(ctx *codegen.Context) error {
	ctx.SetPos(n.Sp)
	valDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.producer, ctx, valDst); err != nil {
		return err
	}
	if n.sym.Level == 0 {
		if !n.sym.HasPCodeIndex {
			return fmt.Errorf("variable-assign %s: global has no assigned P-Code index", n.sym.FullName)
		}
		insn := pcode.NewInsn(pcode.SetGlob)
		insn.Src1 = valDst
		insn.GlobalIndex = n.sym.PCodeIndex
		ctx.Emit(insn)
		ctx.Pop(pcode.RegData)
		return nil
	}

	idx, ok := localVarIndex(n.sym)
	if !ok {
		return fmt.Errorf("variable-assign %s: local variable has no assigned register", n.sym.FullName)
	}
	insn := pcode.NewInsn(pcode.LdReg)
	insn.Dst = pcode.Reg{Type: pcode.RegVar, Index: idx}
	insn.Src1 = valDst
	ctx.Emit(insn)
	ctx.Pop(pcode.RegData)
	return nil
}

// localVarIndex recovers the var-register index lang/varscope assigned to
// sym, if any. symtab.VarData.Scope is typed interface{} to avoid a
// symtab<->varscope import cycle; this is the one place that narrows it
// back.
func localVarIndex(sym *symtab.Symbol) (int, bool) {
	if sym.Var == nil || sym.Var.Scope == nil {
		return 0, false
	}
	vs, ok := sym.Var.Scope.(*varscope.Varscope)
	if !ok {
		return 0, false
	}
	return vs.Index(sym)
}

// Funcall invokes a function value, with either a statically known callee
// global (invoke-ss/invoke-sd) or a dynamically evaluated callee
// expression (invoke-dd).
type Funcall struct {
	NodeBase
	Callee Node
	Args   []Node
	// CalleeGlobal is the callee's global index when statically known at
	// construction time; negative when Callee must itself be evaluated to
	// a function register.
	CalleeGlobal int
	// CalleeSym, when set, overrides CalleeGlobal: the callee's index is
	// read from Sym.PCodeIndex at codegen time instead, since macro
	// substitution builds this node long before any global is registered.
	// A Module declares every top-level global before generating any body,
	// so by the time any Funcall is code-generated every statically
	// resolved callee already has an index, regardless of file order.
	CalleeSym *symtab.Symbol
	// Spread marks that the final entry of Args is a spread-of-list rather
	// than a single value, selecting invoke-sd over invoke-ss.
	Spread bool
}

func (n *Funcall) calleeGlobal() (idx int, static bool, err error) {
	if n.CalleeSym != nil {
		if !n.CalleeSym.HasPCodeIndex {
			return 0, true, fmt.Errorf("funcall: callee %s has no assigned global index yet: compiler bug", n.CalleeSym.FullName)
		}
		return n.CalleeSym.PCodeIndex, true, nil
	}
	if n.CalleeGlobal < 0 {
		return 0, false, nil
	}
	return n.CalleeGlobal, true, nil
}

func (n *Funcall) Walk(v Visitor) {
	if n.CalleeSym == nil && n.CalleeGlobal < 0 {
		Walk(v, n.Callee)
	}
	for _, a := range n.Args {
		Walk(v, a)
	}
}

func (n *Funcall) String() string { return fmt.Sprintf("funcall (%d args)", len(n.Args)) }

func (n *Funcall) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	ctx.SetPos(n.Sp)
	lo := ctx.Height(pcode.RegData)
	for _, a := range n.Args {
		argDst := ctx.Push(pcode.RegData)
		if err := CgEvaluate(a, ctx, argDst); err != nil {
			return err
		}
	}
	hi := ctx.Height(pcode.RegData)

	global, static, err := n.calleeGlobal()
	if err != nil {
		return err
	}
	usesFunReg := !static

	var insn pcode.Insn
	switch {
	case !usesFunReg && !n.Spread:
		insn = pcode.NewInsn(pcode.InvokeSS)
		insn.GlobalIndex = global
	case !usesFunReg && n.Spread:
		insn = pcode.NewInsn(pcode.InvokeSD)
		insn.GlobalIndex = global
	default:
		insn = pcode.NewInsn(pcode.InvokeDD)
		fnReg := ctx.Push(pcode.RegFunction)
		if err := CgEvaluate(n.Callee, ctx, fnReg); err != nil {
			return err
		}
		insn.Src1 = fnReg
	}
	insn.ArgLo, insn.ArgHi = lo, hi
	insn.Dst = dst
	ctx.Emit(insn)

	for i := hi - 1; i >= lo; i-- {
		ctx.Pop(pcode.RegData)
	}
	if usesFunReg {
		ctx.Pop(pcode.RegFunction)
	}
	return nil
}

func (n *Funcall) CgDiscard(ctx *codegen.Context) error {
	return CgDiscardEvaluate(n, ctx, pcode.RegData)
}

func (n *Funcall) FunName() (string, bool) {
	if n.CalleeSym != nil {
		return n.CalleeSym.FullName, true
	}
	if v, ok := n.Callee.(*VariableRead); ok {
		return v.Sym.FullName, true
	}
	return "", false
}

// Subscript reads (or, via ToLvalue, writes) one element of a composite
// value by key: `composite[key]`.
type Subscript struct {
	NodeBase
	Composite, Key Node
}

func (n *Subscript) Walk(v Visitor) {
	Walk(v, n.Composite)
	Walk(v, n.Key)
}
func (n *Subscript) String() string { return "subscript" }

func (n *Subscript) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	ctx.SetPos(n.Sp)
	compositeDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.Composite, ctx, compositeDst); err != nil {
		return err
	}
	keyDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.Key, ctx, keyDst); err != nil {
		return err
	}
	insn := pcode.NewInsn(pcode.LIndex)
	insn.Dst, insn.Src1, insn.Src2 = dst, compositeDst, keyDst
	ctx.Emit(insn)
	ctx.Pop(pcode.RegData)
	ctx.Pop(pcode.RegData)
	return nil
}

func (n *Subscript) CgDiscard(ctx *codegen.Context) error {
	return CgDiscardEvaluate(n, ctx, pcode.RegData)
}

// ToLvalue makes a subscript expression a valid assignment target
// (`composite[key] = value`); the reader node is a second Subscript over
// the same Composite and Key nodes, so reading through it evaluates both
// of them again.
func (n *Subscript) ToLvalue(producer LvalueProducer) (Node, Node, error) {
	lvalue := &subscriptAssign{NodeBase: n.NodeBase, target: n, producer: producer}
	reader := &Subscript{NodeBase: n.NodeBase, Composite: n.Composite, Key: n.Key}
	return lvalue, reader, nil
}

// subscriptAssign is the lvalue-side node ToLvalue produces for a
// Subscript target: cg-define writes producer's value into
// target.Composite at target.Key.
type subscriptAssign struct {
	NodeBase
	target   *Subscript
	producer LvalueProducer
}

func (n *subscriptAssign) Walk(v Visitor) { Walk(v, n.target) }
func (n *subscriptAssign) String() string { return "subscript-assign" }

func (n *subscriptAssign) CgDefine(ctx *codegen.Context) error {
	ctx.SetPos(n.Sp)
	compositeDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.target.Composite, ctx, compositeDst); err != nil {
		return err
	}
	keyDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.target.Key, ctx, keyDst); err != nil {
		return err
	}
	valDst := ctx.Push(pcode.RegData)
	if err := CgEvaluate(n.producer, ctx, valDst); err != nil {
		return err
	}
	// composite[key] := value is represented uniformly as an lappend
	// against a key/value pair; the runtime collaborator interprets this
	// as its map/list "add" operation.
	insn := pcode.NewInsn(pcode.LAppend)
	insn.Dst, insn.Src1, insn.Src2 = compositeDst, keyDst, valDst
	ctx.Emit(insn)
	ctx.Pop(pcode.RegData)
	ctx.Pop(pcode.RegData)
	ctx.Pop(pcode.RegData)
	return nil
}

// SemiLiteral builds a list value from a fixed sequence of unit nodes
// (the semi-literal parse unit, after macro substitution has resolved
// each unit to an expression node).
type SemiLiteral struct {
	NodeBase
	Units []Node
}

func (n *SemiLiteral) Walk(v Visitor) {
	for _, u := range n.Units {
		Walk(v, u)
	}
}
func (n *SemiLiteral) String() string { return fmt.Sprintf("semi-literal (%d units)", len(n.Units)) }

func (n *SemiLiteral) ConstExprSpread() ([]interface{}, bool) {
	out := make([]interface{}, 0, len(n.Units))
	for _, u := range n.Units {
		v, ok := GetConstExpr(u)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func (n *SemiLiteral) CgEvaluate(ctx *codegen.Context, dst pcode.Reg) error {
	ctx.SetPos(n.Sp)
	empty := pcode.NewInsn(pcode.LEmpty)
	empty.Dst = dst
	ctx.Emit(empty)
	for _, u := range n.Units {
		elemDst := ctx.Push(pcode.RegData)
		if err := CgEvaluate(u, ctx, elemDst); err != nil {
			return err
		}
		app := pcode.NewInsn(pcode.LAppend)
		app.Dst, app.Src1, app.Src2 = dst, dst, elemDst
		ctx.Emit(app)
		ctx.Pop(pcode.RegData)
	}
	return nil
}

func (n *SemiLiteral) CgDiscard(ctx *codegen.Context) error {
	for _, u := range n.Units {
		if err := CgDiscard(u, ctx); err != nil {
			return err
		}
	}
	return nil
}

// Spread marks a single node as contributing zero or more values to an
// enclosing argument list or semi-literal (a spread-of-unit parse unit),
// rather than exactly one.
type Spread struct {
	NodeBase
	Inner Node
}

func (n *Spread) Walk(v Visitor) { Walk(v, n.Inner) }
func (n *Spread) String() string { return "spread" }

func (n *Spread) CgSpread(ctx *codegen.Context) ([]pcode.Reg, error) {
	return CgSpread(n.Inner, ctx)
}
