package symtab_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/symtab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func globalVar(name string) *symtab.Symbol {
	return &symtab.Symbol{Type: symtab.GlobalVar, FullName: name, Var: &symtab.VarData{Mutable: true, Name: name}}
}

func TestPutGetRoundTrip(t *testing.T) {
	root := symtab.New(nil)
	sym := globalVar("m:Foo")

	require.Nil(t, root.Put(sym))
	got := root.Get("m:Foo")
	require.Len(t, got, 1)
	assert.Same(t, sym, got[0])
}

func TestPutConflict(t *testing.T) {
	root := symtab.New(nil)
	first := globalVar("m:Foo")
	second := globalVar("m:Foo")

	require.Nil(t, root.Put(first))
	conflict := root.Put(second)
	require.NotNil(t, conflict)
	assert.Same(t, first, conflict)

	// the conflicting symbol must not have replaced the original
	got := root.Get("m:Foo")
	require.Len(t, got, 1)
	assert.Same(t, first, got[0])
}

func TestChildShadowsParent(t *testing.T) {
	root := symtab.New(nil)
	outer := globalVar("x")
	require.Nil(t, root.Put(outer))

	child := symtab.EnterLevel(root)
	inner := &symtab.Symbol{Type: symtab.LocalVar, Level: 1, FullName: "x", Var: &symtab.VarData{Mutable: true, Name: "x"}}
	require.Nil(t, child.Put(inner))

	got := child.Get("x")
	require.Len(t, got, 1)
	assert.Same(t, inner, got[0], "lexical shadowing: inner binding wins")

	// the parent frame on its own still resolves to the outer symbol
	got = root.Get("x")
	require.Len(t, got, 1)
	assert.Same(t, outer, got[0])
}

func TestLevelMismatchPanics(t *testing.T) {
	root := symtab.New(nil)
	bad := &symtab.Symbol{Type: symtab.LocalVar, Level: 1, FullName: "x"}
	assert.Panics(t, func() { root.Put(bad) })
}

func TestNestedLevelForcesPrivateVisibility(t *testing.T) {
	root := symtab.New(nil)
	child := symtab.EnterLevel(root)
	sym := &symtab.Symbol{Type: symtab.LocalVar, Level: 1, Visibility: symtab.Public, FullName: "y"}
	child.Put(sym)
	assert.Equal(t, symtab.Private, sym.Visibility, "level > 0 forces private visibility")
}

func TestImportWeakAmbiguity(t *testing.T) {
	root := symtab.New(nil)
	require.Nil(t, root.Put(globalVar("pkg1:helper")))
	require.Nil(t, root.Put(globalVar("pkg2:helper")))

	ns := symtab.New(root)
	ns.Import("pkg1:", "", false, false)
	ns.Import("pkg2:", "", false, false)

	got := ns.Get("helper")
	assert.Len(t, got, 2, "two weak imports matching the same name are ambiguous, not an error by themselves")
}

func TestImportAbsoluteStopsSearch(t *testing.T) {
	root := symtab.New(nil)
	require.Nil(t, root.Put(globalVar("pkg1:helper")))
	require.Nil(t, root.Put(globalVar("pkg2:helper")))

	ns := symtab.New(root)
	ns.Import("pkg2:", "", false, false) // registered first, so tried second (reverse order)
	ns.Import("pkg1:", "", true, false)  // absolute, registered last, tried first

	got := ns.Get("helper")
	require.Len(t, got, 1)
	assert.Equal(t, "pkg1:helper", got[0].FullName)
}

func TestCandidatesSorted(t *testing.T) {
	syms := []*symtab.Symbol{globalVar("b"), globalVar("a")}
	sorted := symtab.Candidates(syms)
	assert.Equal(t, "a", sorted[0].FullName)
	assert.Equal(t, "b", sorted[1].FullName)
}
