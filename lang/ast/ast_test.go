package ast_test

import (
	"strings"
	"testing"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/codegen"
	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteralCgEvaluate(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	lit := &ast.Literal{Kind: ast.LitInt, IntVal: 13}
	dst := ctx.Push(pcode.RegInt)
	require.NoError(t, ast.CgEvaluate(lit, ctx, dst))

	exec := ctx.Build()
	require.Len(t, exec.Insns, 2)
	assert.Equal(t, pcode.LdImmInt, exec.Insns[1].Op)
	assert.Equal(t, int64(13), exec.Insns[1].ImmInt)
}

func TestVariableReadMissingPCodeIndexErrors(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	sym := &symtab.Symbol{Type: symtab.GlobalVar, FullName: "m:x"}
	read := &ast.VariableRead{Sym: sym}
	dst := ctx.Push(pcode.RegData)
	err := ast.CgEvaluate(read, ctx, dst)
	assert.Error(t, err)
}

func TestFuncallStaticInvokeBalancesStack(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	call := &ast.Funcall{
		CalleeGlobal: 0,
		Args: []ast.Node{
			&ast.Literal{Kind: ast.LitInt, IntVal: 1},
			&ast.Literal{Kind: ast.LitInt, IntVal: 2},
		},
	}
	require.NoError(t, ast.CgDiscard(call, ctx))
	assert.True(t, ctx.Balanced())
}

func TestIfCodegenBalancesStack(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.If{
		Clauses: []ast.IfClause{
			{
				Cond:   &ast.Literal{Kind: ast.LitInt, IntVal: 1},
				Result: &ast.Seq{Stmts: []ast.Node{&ast.Literal{Kind: ast.LitInt, IntVal: 1}}},
			},
			{
				Result: &ast.Seq{Stmts: []ast.Node{&ast.Literal{Kind: ast.LitInt, IntVal: 0}}},
			},
		},
	}
	require.NoError(t, ast.CgDiscard(stmt, ctx))
	assert.True(t, ctx.Balanced())
}

func TestIfExpressionFormChainEvaluatesAndBalances(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.If{
		ExpressionForm: true,
		Clauses: []ast.IfClause{
			{Cond: &ast.Literal{Kind: ast.LitInt, IntVal: 0}, Result: &ast.Literal{Kind: ast.LitInt, IntVal: 1}},
			{Cond: &ast.Literal{Kind: ast.LitInt, IntVal: 0}, Result: &ast.Literal{Kind: ast.LitInt, IntVal: 2}},
			{Result: &ast.Literal{Kind: ast.LitInt, IntVal: 3}},
		},
	}
	dst := ctx.Push(pcode.RegData)
	require.NoError(t, ast.CgEvaluate(stmt, ctx, dst))
	ctx.Pop(pcode.RegData)
	assert.True(t, ctx.Balanced())
}

func TestIfStatementFormCgEvaluateErrors(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.If{
		Clauses: []ast.IfClause{
			{Cond: &ast.Literal{Kind: ast.LitInt, IntVal: 1}, Result: &ast.Seq{}},
		},
	}
	dst := ctx.Push(pcode.RegData)
	assert.Error(t, ast.CgEvaluate(stmt, ctx, dst))
}

func TestIfExpressionFormCgDiscardErrors(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.If{
		ExpressionForm: true,
		Clauses: []ast.IfClause{
			{Result: &ast.Literal{Kind: ast.LitInt, IntVal: 1}},
		},
	}
	assert.Error(t, ast.CgDiscard(stmt, ctx))
}

func TestTryFinallyNestsTryAroundCatchSoRethrowStillRunsFinally(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.Try{
		Body: &ast.Throw{Value: &ast.Literal{Kind: ast.LitString, StrVal: "boom"}},
		Catch: &ast.Throw{Value: &ast.Literal{Kind: ast.LitString, StrVal: "rethrown"}},
		Finally: &ast.Literal{Kind: ast.LitInt, IntVal: 0},
	}
	require.NoError(t, ast.CgDiscard(stmt, ctx))
	assert.True(t, ctx.Balanced())

	exec := ctx.Build()
	var tryCount, labelCount, rethrowCount int
	for _, insn := range exec.Insns {
		switch insn.Op {
		case pcode.Try:
			tryCount++
		case pcode.Label:
			labelCount++
		case pcode.Rethrow:
			rethrowCount++
		}
	}
	// Two try frames: the inner catch-dispatch try and the outer
	// finally try wrapping both body and catch.
	assert.Equal(t, 2, tryCount, "expected two nested try frames when both catch and finally are present")
	assert.GreaterOrEqual(t, labelCount, 2, "expected at least the catch and finally landing pads")
	// One rethrow from Body's own Throw, one from Catch's own Throw, and
	// one unconditional rethrow at the end of the finally handler.
	assert.Equal(t, 3, rethrowCount)
}

func TestTryFinallyWithoutCatchUsesSingleTry(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.Try{
		Body:    &ast.Literal{Kind: ast.LitInt, IntVal: 1},
		Finally: &ast.Literal{Kind: ast.LitInt, IntVal: 0},
	}
	require.NoError(t, ast.CgDiscard(stmt, ctx))
	assert.True(t, ctx.Balanced())

	exec := ctx.Build()
	var tryCount int
	for _, insn := range exec.Insns {
		if insn.Op == pcode.Try {
			tryCount++
		}
	}
	assert.Equal(t, 1, tryCount, "try/finally without a catch clause needs only the outer try")
}

func TestTryCatchWithoutFinallyUsesSingleTry(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	stmt := &ast.Try{
		Body:  &ast.Literal{Kind: ast.LitInt, IntVal: 1},
		Catch: &ast.Literal{Kind: ast.LitInt, IntVal: 0},
	}
	require.NoError(t, ast.CgDiscard(stmt, ctx))
	assert.True(t, ctx.Balanced())

	exec := ctx.Build()
	var tryCount int
	for _, insn := range exec.Insns {
		if insn.Op == pcode.Try {
			tryCount++
		}
	}
	assert.Equal(t, 1, tryCount, "try/catch without a finally clause needs only the one try")
}

func TestModuleCgDefineAccumulatesErrorsAndKeepsGoing(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	broken := &ast.Defun{
		Sym:  &symtab.Symbol{Type: symtab.GlobalFun, FullName: "m:broken"},
		Body: &ast.ErrorPlaceholder{Err: assert.AnError},
	}
	fine := &ast.Defun{
		Sym:  &symtab.Symbol{Type: symtab.GlobalFun, FullName: "m:fine"},
		Body: &ast.Literal{Kind: ast.LitInt, IntVal: 1},
	}
	mod := &ast.Module{Name: "m", Stmts: []ast.Node{broken, fine}}

	require.NoError(t, ast.CgDefine(mod, ctx))
	assert.Equal(t, 1, ctx.Errors.Len(), "the broken definer's failure should be recorded, not returned")
	assert.True(t, fine.Sym.HasPCodeIndex)
	assert.True(t, broken.Sym.HasPCodeIndex, "the broken definer still gets a global, just with a placeholder body")
}

func TestLoopEachCollectBalancesStackAndReturnsAccumulator(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	sym := &symtab.Symbol{Type: symtab.LocalVar, FullName: "x", Level: 1, Var: &symtab.VarData{Mutable: true, Name: "x"}}
	loop := &ast.LoopEach{
		List: &ast.SemiLiteral{Units: []ast.Node{
			&ast.Literal{Kind: ast.LitInt, IntVal: 1},
			&ast.Literal{Kind: ast.LitInt, IntVal: 2},
		}},
		VarSym:  sym,
		Collect: &ast.Literal{Kind: ast.LitInt, IntVal: 0},
	}
	dst := ctx.Push(pcode.RegData)
	require.NoError(t, ast.CgEvaluate(loop, ctx, dst))
	ctx.Pop(pcode.RegData)
	assert.True(t, ctx.Balanced())

	exec := ctx.Build()
	var sawLength, sawIndex, sawBranch bool
	for _, insn := range exec.Insns {
		switch insn.Op {
		case pcode.LLength:
			sawLength = true
		case pcode.LIndex:
			sawIndex = true
		case pcode.BranchIf:
			sawBranch = true
		}
	}
	assert.True(t, sawLength, "expected an llength instruction")
	assert.True(t, sawIndex, "expected an lindex instruction")
	assert.True(t, sawBranch, "expected a bounds-check branch")
}

func TestLoopEachDiscardWithoutCollectBalancesStack(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	sym := &symtab.Symbol{Type: symtab.LocalVar, FullName: "x", Level: 1, Var: &symtab.VarData{Mutable: true, Name: "x"}}
	loop := &ast.LoopEach{
		List:   &ast.SemiLiteral{},
		VarSym: sym,
		Body:   &ast.Seq{},
	}
	require.NoError(t, ast.CgDiscard(loop, ctx))
	assert.True(t, ctx.Balanced())
}

func TestErrorPlaceholderPropagatesError(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	sentinel := assert.AnError
	ph := &ast.ErrorPlaceholder{Err: sentinel}
	assert.ErrorIs(t, ast.CgDiscard(ph, ctx), sentinel)
	assert.ErrorIs(t, ast.CgDefine(ph, ctx), sentinel)
}

func TestCgEvaluateOnNonEvaluatorReportsSpecificError(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	imp := &ast.ImportAlias{OldPrefix: "a:", NewPrefix: "b:"}
	err := ast.CgEvaluate(imp, ctx, pcode.Reg{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not produce a value")
}

func TestDumpProducesIndentedTree(t *testing.T) {
	var b strings.Builder
	tree := &ast.Seq{Stmts: []ast.Node{
		&ast.Literal{Kind: ast.LitInt, IntVal: 1},
		&ast.Literal{Kind: ast.LitInt, IntVal: 2},
	}}
	require.NoError(t, ast.Dump(&b, tree))
	out := b.String()
	assert.Contains(t, out, "sequence")
	assert.Contains(t, out, "int-literal 1")
	assert.Contains(t, out, "int-literal 2")
}

func TestSemiLiteralConstExprSpread(t *testing.T) {
	sl := &ast.SemiLiteral{Units: []ast.Node{
		&ast.Literal{Kind: ast.LitInt, IntVal: 1},
		&ast.Literal{Kind: ast.LitInt, IntVal: 2},
	}}
	vals, ok := ast.GetConstExprSpread(sl)
	require.True(t, ok)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, vals)
}

func TestSubscriptToLvalue(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	sub := &ast.Subscript{
		Composite: &ast.Literal{Kind: ast.LitData, StrVal: "m"},
		Key:       &ast.Literal{Kind: ast.LitString, StrVal: "k"},
	}
	value := &ast.Literal{Kind: ast.LitInt, IntVal: 42}
	lvalue, reader, err := ast.ToLvalue(sub, value)
	require.NoError(t, err)
	require.NotNil(t, reader)
	require.NoError(t, ast.CgDefine(lvalue, ctx))
	assert.True(t, ctx.Balanced())
}
