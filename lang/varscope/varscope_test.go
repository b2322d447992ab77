package varscope_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/symtab"
	"github.com/ava-lang/avc/lang/varscope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localSym(name string) *symtab.Symbol {
	return &symtab.Symbol{Type: symtab.LocalVar, Level: 1, FullName: name, Var: &symtab.VarData{Mutable: true, Name: name}}
}

func TestRefVarIdempotent(t *testing.T) {
	vs := varscope.New()
	x := localSym("x")

	i1 := vs.RefVar(x)
	i2 := vs.RefVar(x)
	assert.Equal(t, i1, i2)
	assert.Equal(t, 1, vs.Len())
}

func TestRefVarOrderIsStable(t *testing.T) {
	vs := varscope.New()
	x, y := localSym("x"), localSym("y")

	ix := vs.RefVar(x)
	iy := vs.RefVar(y)
	assert.Equal(t, 0, ix)
	assert.Equal(t, 1, iy)

	entries := vs.Entries()
	require.Len(t, entries, 2)
	assert.Same(t, x, entries[0].Sym)
	assert.Same(t, y, entries[1].Sym)
}

func TestRefScopeUnion(t *testing.T) {
	inner := varscope.New()
	a, b := localSym("a"), localSym("b")
	inner.RefVar(a)
	inner.RefVar(b)

	outer := varscope.New()
	c := localSym("c")
	outer.RefVar(c)
	outer.RefScope(inner)

	assert.Equal(t, 3, outer.Len())
	_, ok := outer.Index(a)
	assert.True(t, ok)
	_, ok = outer.Index(b)
	assert.True(t, ok)
}

func TestCapturePrefix(t *testing.T) {
	vs := varscope.New()
	vs.RefVar(localSym("x"))
	vs.RefVar(localSym("y"))

	prefix := vs.CapturePrefix()
	require.Len(t, prefix, 2)
	assert.Equal(t, "x", prefix[0].Name)
	assert.Equal(t, symtab.Positional, prefix[0].Kind)
}

func TestRefScopeNilIsNoop(t *testing.T) {
	vs := varscope.New()
	vs.RefScope(nil)
	assert.Equal(t, 0, vs.Len())
}
