package macsub_test

import (
	"strings"
	"testing"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/macsub"
	"github.com/ava-lang/avc/lang/srcerr"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRootContext() (*macsub.Context, *symtab.Table, *srcerr.List) {
	root := symtab.New(nil)
	errs := &srcerr.List{}
	ctx := macsub.NewContext(root, errs, "")
	return ctx, root, errs
}

func TestPlainFunctionCallFallback(t *testing.T) {
	ctx, root, errs := newRootContext()
	sym := &symtab.Symbol{Type: symtab.GlobalFun, FullName: "foo", Var: &symtab.VarData{Name: "foo"}}
	root.Put(sym)

	stmt := unit.Statement{
		&unit.Bareword{Name: "foo"},
		&unit.Lit{K: unit.KindAString, Text: "hi"},
	}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq, ok := node.(*ast.Seq)
	require.True(t, ok)
	require.Len(t, seq.Stmts, 1)

	call, ok := seq.Stmts[0].(*ast.Funcall)
	require.True(t, ok)
	assert.Same(t, sym, call.CalleeSym)
	require.Len(t, call.Args, 1)
	lit, ok := call.Args[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "hi", lit.StrVal)
}

func TestUndefinedBarewordStatementRecordsError(t *testing.T) {
	ctx, _, errs := newRootContext()
	stmt := unit.Statement{&unit.Bareword{Name: "bar"}}
	_, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 1, errs.Len())
	assert.Contains(t, errs.All()[0].Error(), "undefined reference")
}

func TestAmbiguousControlMacroAcrossFrames(t *testing.T) {
	ctx, root, errs := newRootContext()
	root.Put(&symtab.Symbol{
		Type: symtab.ControlMacro, FullName: "dup",
		Macro: &symtab.MacroData{Subst: macsub.SubstFunc(func(c *macsub.Context, s unit.Statement, p unit.Unit, r []unit.Statement) (macsub.Result, error) {
			return macsub.Result{Status: macsub.Done, Node: &ast.Literal{Kind: ast.LitString}}, nil
		})},
	})
	inner := ctx.PushMajor("f:")
	// A distinct symbol, also literally named "dup", bound in a separate
	// (child) frame: lang/symtab.Table.Get walks every frame in the lexical
	// chain and accumulates same-named bindings from each, so this makes
	// "dup" ambiguous from inner's point of view without needing two
	// bindings in the same frame (which Put would simply reject).
	conflict := inner.Symtab.Put(&symtab.Symbol{
		Type: symtab.LocalVar, Level: 1, Visibility: symtab.Private, FullName: "dup",
		Var: &symtab.VarData{Name: "dup"},
	})
	require.Nil(t, conflict)

	stmt := unit.Statement{&unit.Bareword{Name: "dup"}, &unit.Bareword{Name: "x"}}
	_, err := macsub.Run(inner, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 1, errs.Len())
	assert.Contains(t, errs.All()[0].Error(), "ambiguous")
}

func TestIfIntrinsicBuildsIfNode(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	condSubst := &unit.Substitution{Stmts: []unit.Statement{
		{&unit.Lit{K: unit.KindAString, Text: "c"}},
	}}
	thenBlock := &unit.Block{Stmts: []unit.Statement{
		{&unit.Lit{K: unit.KindAString, Text: "yes"}},
	}}
	stmt := unit.Statement{
		&unit.Bareword{Name: "if"},
		condSubst,
		thenBlock,
	}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq := node.(*ast.Seq)
	require.Len(t, seq.Stmts, 1)
	ifNode, ok := seq.Stmts[0].(*ast.If)
	require.True(t, ok)
	assert.False(t, ifNode.ExpressionForm)
	require.Len(t, ifNode.Clauses, 1)
	assert.NotNil(t, ifNode.Clauses[0].Cond)

	then, ok := ifNode.Clauses[0].Result.(*ast.Seq)
	require.True(t, ok)
	require.Len(t, then.Stmts, 1)
}

func TestIfIntrinsicBuildsClauseChainWithElse(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	cond1 := &unit.Substitution{Stmts: []unit.Statement{{&unit.Lit{K: unit.KindAString, Text: "c1"}}}}
	cond2 := &unit.Substitution{Stmts: []unit.Statement{{&unit.Lit{K: unit.KindAString, Text: "c2"}}}}
	res1 := &unit.Substitution{Stmts: []unit.Statement{{&unit.Lit{K: unit.KindAString, Text: "r1"}}}}
	res2 := &unit.Substitution{Stmts: []unit.Statement{{&unit.Lit{K: unit.KindAString, Text: "r2"}}}}
	elseRes := &unit.Substitution{Stmts: []unit.Statement{{&unit.Lit{K: unit.KindAString, Text: "r3"}}}}

	stmt := unit.Statement{
		&unit.Bareword{Name: "if"},
		cond1, res1,
		cond2, res2,
		&unit.Bareword{Name: "else"}, elseRes,
	}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq := node.(*ast.Seq)
	ifNode, ok := seq.Stmts[0].(*ast.If)
	require.True(t, ok)
	assert.True(t, ifNode.ExpressionForm)
	require.Len(t, ifNode.Clauses, 3)
	assert.NotNil(t, ifNode.Clauses[0].Cond)
	assert.NotNil(t, ifNode.Clauses[1].Cond)
	assert.Nil(t, ifNode.Clauses[2].Cond)
}

func TestEachIntrinsicBuildsLoopEachNodeWithCollect(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	list := &unit.SemiLiteral{Units: []unit.Unit{
		&unit.Lit{K: unit.KindAString, Text: "1"},
		&unit.Lit{K: unit.KindAString, Text: "2"},
		&unit.Lit{K: unit.KindAString, Text: "3"},
	}}
	body := &unit.Block{}
	stmt := unit.Statement{
		&unit.Bareword{Name: "each"},
		&unit.Bareword{Name: "x"},
		&unit.Bareword{Name: "in"},
		list,
		body,
		&unit.Bareword{Name: "collect"},
		&unit.Bareword{Name: "x"},
	}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq := node.(*ast.Seq)
	require.Len(t, seq.Stmts, 1)
	loop, ok := seq.Stmts[0].(*ast.LoopEach)
	require.True(t, ok)
	assert.Nil(t, loop.Else)

	listNode, ok := loop.List.(*ast.SemiLiteral)
	require.True(t, ok)
	assert.Len(t, listNode.Units, 3)

	collect, ok := loop.Collect.(*ast.VariableRead)
	require.True(t, ok)
	assert.Same(t, loop.VarSym, collect.Sym)
}

func TestVarIntrinsicDeclaresMutableVariable(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	stmt := unit.Statement{
		&unit.Bareword{Name: "var"},
		&unit.Bareword{Name: "x"},
		&unit.Bareword{Name: "="},
		&unit.Lit{K: unit.KindAString, Text: "hello"},
	}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq := node.(*ast.Seq)
	require.Len(t, seq.Stmts, 1)
	assign, ok := seq.Stmts[0].(*ast.Assign)
	require.True(t, ok)

	target, ok := assign.Target.(*ast.VariableRead)
	require.True(t, ok)
	assert.True(t, target.Sym.Var.Mutable)

	syms := root.Get("x")
	require.Len(t, syms, 1)
	assert.Same(t, target.Sym, syms[0])
}

func TestFunIntrinsicDeclaresFunctionAndBindsParams(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	params := &unit.SemiLiteral{Units: []unit.Unit{&unit.Bareword{Name: "a"}, &unit.Bareword{Name: "b"}}}
	body := &unit.Block{Stmts: []unit.Statement{
		{&unit.Bareword{Name: "a"}},
	}}
	stmt := unit.Statement{
		&unit.Bareword{Name: "fun"},
		&unit.Bareword{Name: "add"},
		params,
		body,
	}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq := node.(*ast.Seq)
	require.Len(t, seq.Stmts, 1)
	defun, ok := seq.Stmts[0].(*ast.Defun)
	require.True(t, ok)
	assert.Equal(t, "add", defun.Sym.Var.Name)
	require.Len(t, defun.Params, 2)
	assert.Equal(t, "a", defun.Params[0].Name)
	assert.Equal(t, "b", defun.Params[1].Name)

	syms := root.Get("add")
	require.Len(t, syms, 1)
	assert.Equal(t, symtab.GlobalFun, syms[0].Type)
}

func TestGensymStableUntilSeedTextChanges(t *testing.T) {
	ctx, _, _ := newRootContext()
	file := &token.File{Name: "t", Source: "stmt one\nstmt two\n"}
	sp1 := token.MakeSpan(file, token.MakePos(1, 1), token.MakePos(1, 9))
	sp2 := token.MakeSpan(file, token.MakePos(2, 1), token.MakePos(2, 9))

	ctx.GensymSeed(sp1)
	a := ctx.Gensym("k")
	b := ctx.Gensym("k")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$g["))

	aPrefix := a[:strings.IndexByte(a, ']')]

	ctx.GensymSeed(sp2)
	c := ctx.Gensym("k")
	cPrefix := c[:strings.IndexByte(c, ']')]
	assert.NotEqual(t, aPrefix, cPrefix)
}

func TestStringPseudoSymbolOperatorMacro(t *testing.T) {
	ctx, _, errs := newRootContext()
	stmt := unit.Statement{&unit.Lit{K: unit.KindLString, Text: "left"}}
	node, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq := node.(*ast.Seq)
	require.Len(t, seq.Stmts, 1)
	lit, ok := seq.Stmts[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.LitString, lit.Kind)
	assert.Equal(t, "left", lit.StrVal)
}

func TestNamespaceIntrinsicPrefixesInnerDeclarations(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	inner := &unit.Block{Stmts: []unit.Statement{
		{&unit.Bareword{Name: "var"}, &unit.Bareword{Name: "y"}},
	}}
	stmt := unit.Statement{&unit.Bareword{Name: "namespace"}, &unit.Bareword{Name: "ns"}, inner}
	_, err := macsub.Run(ctx, []unit.Statement{stmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	assert.Empty(t, root.Get("y"))
	syms := root.Get("ns:y")
	require.Len(t, syms, 1)
}
