package unit_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/token"
	"github.com/ava-lang/avc/lang/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementSpan(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "foo bar baz"}
	s := unit.Statement{
		&unit.Bareword{Sp: token.MakeSpan(f, token.MakePos(1, 1), token.MakePos(1, 4)), Name: "foo"},
		&unit.Bareword{Sp: token.MakeSpan(f, token.MakePos(1, 9), token.MakePos(1, 12)), Name: "baz"},
	}
	sp := s.Span()
	assert.Equal(t, 1, sp.StartCol)
	assert.Equal(t, 12, sp.EndCol)
}

func TestCloneIsDeepAndIndependent(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "x"}
	inner := &unit.Bareword{Sp: token.MakeSpan(f, token.MakePos(1, 1), token.MakePos(1, 2)), Name: "x"}
	block := &unit.Block{Stmts: []unit.Statement{{inner}}}

	cloned := block.Clone().(*unit.Block)
	clonedInner := cloned.Stmts[0][0].(*unit.Bareword)
	clonedInner.Name = "y"

	require.Equal(t, "x", inner.Name, "cloning must not alias the original unit")
	assert.Equal(t, "y", clonedInner.Name)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "bareword", unit.KindBareword.String())
	assert.Equal(t, "spread", unit.KindSpread.String())
}
