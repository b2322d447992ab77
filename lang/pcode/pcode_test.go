package pcode_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/pcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSmallProgram() *pcode.Program {
	gb := pcode.NewGlobalBuilder()
	gb.AddVar("m:counter")

	ldImm := pcode.NewInsn(pcode.LdImmInt)
	ldImm.Dst = pcode.Reg{Type: pcode.RegData, Index: 0}
	ldImm.ImmInt = 13

	setGlob := pcode.NewInsn(pcode.SetGlob)
	setGlob.Src1 = pcode.Reg{Type: pcode.RegData, Index: 0}
	setGlob.GlobalIndex = 0

	eb := pcode.NewExecBuilder()
	eb.Append(ldImm)
	eb.Append(setGlob)
	eb.Append(pcode.NewInsn(pcode.Ret))

	idx := gb.AddFun("m:init-counter", nil, nil)
	gb.SetBody(idx, eb.Build())
	gb.AddInit(idx)
	return gb.Program()
}

func TestGlobalBuilderStableIndices(t *testing.T) {
	gb := pcode.NewGlobalBuilder()
	i0 := gb.AddVar("a")
	i1 := gb.AddVar("b")
	i2 := gb.AddFun("f", nil, nil)

	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Equal(t, 2, i2)
	require.Len(t, gb.Program().Globals, 3)
	assert.Equal(t, pcode.GFun, gb.Program().Globals[2].Kind)
}

func TestExecBuilderBuildCopiesSlice(t *testing.T) {
	eb := pcode.NewExecBuilder()
	eb.Append(pcode.NewInsn(pcode.Ret))
	built := eb.Build()
	require.Len(t, built.Insns, 1)

	eb.Append(pcode.NewInsn(pcode.Yrt))
	assert.Len(t, built.Insns, 1, "Build must snapshot, not alias, the builder's backing slice")
}

func TestWithLabelDoesNotMutateOriginal(t *testing.T) {
	orig := pcode.NewInsn(pcode.Jump).WithLabel("L0")
	relabeled := orig.WithLabel("L1")

	assert.Equal(t, "L0", orig.Label)
	assert.Equal(t, "L1", relabeled.Label)
}

func TestWithBlockTargetDoesNotMutateOriginal(t *testing.T) {
	orig := pcode.NewInsn(pcode.Jump).WithLabel("L0")
	require.Equal(t, -1, orig.BlockTarget)

	rewritten := orig.WithBlockTarget(0)
	assert.Equal(t, -1, orig.BlockTarget, "rewriting a copy must not touch the shared original")
	assert.Equal(t, 0, rewritten.BlockTarget)
}

func TestOpPredicates(t *testing.T) {
	assert.True(t, pcode.Jump.IsTerminal())
	assert.True(t, pcode.Ret.IsTerminal())
	assert.False(t, pcode.LdImmInt.IsTerminal())

	assert.True(t, pcode.InvokeSS.IsThrowing())
	assert.True(t, pcode.LIndex.IsThrowing())
	assert.False(t, pcode.LdReg.IsThrowing())
}

func TestRegString(t *testing.T) {
	r := pcode.Reg{Type: pcode.RegData, Index: 3}
	assert.Equal(t, "data3", r.String())
	assert.True(t, pcode.Reg{}.IsZero())
	assert.False(t, r.IsZero())
}

func TestSerializeParseRoundTrip(t *testing.T) {
	prog := buildSmallProgram()
	text := pcode.Serialize(prog)

	parsed, err := pcode.Parse(text)
	require.NoError(t, err)
	require.Len(t, parsed.Globals, 3)

	assert.Equal(t, pcode.GVar, parsed.Globals[0].Kind)
	assert.Equal(t, "m:counter", parsed.Globals[0].Name)

	fn := parsed.Globals[1]
	require.Equal(t, pcode.GFun, fn.Kind)
	assert.Equal(t, "m:init-counter", fn.Name)
	require.NotNil(t, fn.Body)
	require.Len(t, fn.Body.Insns, 3)
	assert.Equal(t, pcode.LdImmInt, fn.Body.Insns[0].Op)
	assert.Equal(t, int64(13), fn.Body.Insns[0].ImmInt)
	assert.Equal(t, pcode.Reg{Type: pcode.RegData, Index: 0}, fn.Body.Insns[0].Dst)
	assert.Equal(t, pcode.SetGlob, fn.Body.Insns[1].Op)
	assert.Equal(t, pcode.Ret, fn.Body.Insns[2].Op)

	init := parsed.Globals[2]
	require.Equal(t, pcode.GInit, init.Kind)
	assert.Equal(t, fn.Index, init.FunRef)

	// re-serializing the parsed program must reproduce the same text,
	// confirming parse(serialize(p)) is a fixed point.
	assert.Equal(t, text, pcode.Serialize(parsed))
}

func TestParseRejectsMissingHeader(t *testing.T) {
	_, err := pcode.Parse("global var \"x\"\n")
	assert.Error(t, err)
}

func TestParseRejectsUnterminatedFun(t *testing.T) {
	_, err := pcode.Parse("pcode v1\nfun \"f\" [] captures=\n\tret\n")
	assert.Error(t, err)
}
