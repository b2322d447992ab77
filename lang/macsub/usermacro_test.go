package macsub_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/ast"
	"github.com/ava-lang/avc/lang/macsub"
	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUserMacroDefinitionAndInvocation exercises the full round trip of a
// user-defined macro: a `macro` definition compiles its body into a
// lang/macroexec program and installs a symbol; a later statement that
// provokes that symbol is re-dispatched through the rewritten statement
// rather than interpreted as-is.
func TestUserMacroDefinitionAndInvocation(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)
	root.Put(&symtab.Symbol{Type: symtab.GlobalVar, FullName: "bar", Var: &symtab.VarData{Name: "bar", Mutable: true}})

	// macro twice control { right append right append }
	defStmt := unit.Statement{
		&unit.Bareword{Name: "macro"},
		&unit.Bareword{Name: "twice"},
		&unit.Bareword{Name: "control"},
		&unit.Block{Stmts: []unit.Statement{
			{&unit.Bareword{Name: "right"}, &unit.Bareword{Name: "append"}, &unit.Bareword{Name: "right"}, &unit.Bareword{Name: "append"}},
		}},
	}

	invokeStmt := unit.Statement{
		&unit.Bareword{Name: "twice"},
		&unit.Bareword{Name: "bar"},
	}

	node, err := macsub.Run(ctx, []unit.Statement{defStmt, invokeStmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	seq, ok := node.(*ast.Seq)
	require.True(t, ok)
	require.Len(t, seq.Stmts, 2)

	_, ok = seq.Stmts[0].(*ast.MacroDef)
	require.True(t, ok, "expected a macro definition node, got %T", seq.Stmts[0])

	call, ok := seq.Stmts[1].(*ast.Funcall)
	require.True(t, ok, "expected the invocation to re-dispatch to a funcall, got %T", seq.Stmts[1])
	require.Len(t, call.Args, 1)

	calleeRead, ok := call.Callee.(*ast.VariableRead)
	require.True(t, ok)
	assert.Equal(t, "bar", calleeRead.Sym.FullName)

	argRead, ok := call.Args[0].(*ast.VariableRead)
	require.True(t, ok)
	assert.Equal(t, "bar", argRead.Sym.FullName)

	sym := root.Get("twice")
	require.Len(t, sym, 1)
	assert.Equal(t, symtab.ControlMacro, sym[0].Type)
}

// TestUserMacroOperatorPrecedence confirms an `op` macro definition
// installs with the precedence it names and is reachable through the
// operator-macro resolution step ( step 3), not just as a
// control macro.
func TestUserMacroOperatorPrecedence(t *testing.T) {
	ctx, root, errs := newRootContext()
	macsub.RegisterIntrinsics(root)

	defStmt := unit.Statement{
		&unit.Bareword{Name: "macro"},
		&unit.Bareword{Name: "also"},
		&unit.Bareword{Name: "op"},
		&unit.Bareword{Name: "12"},
		&unit.Block{Stmts: []unit.Statement{
			{&unit.Bareword{Name: "!ok"}, &unit.Bareword{Name: "append"}},
		}},
	}
	_, err := macsub.Run(ctx, []unit.Statement{defStmt})
	require.NoError(t, err)
	require.Equal(t, 0, errs.Len())

	syms := root.Get("also")
	require.Len(t, syms, 1)
	assert.Equal(t, symtab.OperatorMacro, syms[0].Type)
	assert.Equal(t, 12, syms[0].Macro.Precedence)
}
