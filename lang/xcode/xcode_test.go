package xcode_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/srcerr"
	"github.com/ava-lang/avc/lang/xcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildProgram(proto []pcode.ArgProto, insns ...pcode.Insn) *pcode.Program {
	gb := pcode.NewGlobalBuilder()
	eb := pcode.NewExecBuilder()
	for _, insn := range insns {
		eb.Append(insn)
	}
	idx := gb.AddFun("m:f", proto, nil)
	gb.SetBody(idx, eb.Build())
	return gb.Program()
}

func reg(t pcode.RegType, i int) pcode.Reg { return pcode.Reg{Type: t, Index: i} }

func TestValidateAcceptsBalancedFunction(t *testing.T) {
	ldImm := pcode.NewInsn(pcode.LdImmInt)
	ldImm.Dst = reg(pcode.RegData, 0)
	ldImm.ImmInt = 5

	ret := pcode.NewInsn(pcode.Ret)

	push := pcode.NewInsn(pcode.Push)
	push.Dst = reg(pcode.RegData, 0)
	pop := pcode.NewInsn(pcode.Pop)
	pop.Dst = reg(pcode.RegData, 0)

	prog := buildProgram(nil, push, ldImm, pop, ret)

	var errs srcerr.List
	fns := xcode.Validate(&errs, prog)
	assert.Equal(t, 0, errs.Len(), "unexpected errors: %v", errs.All())
	require.Len(t, fns, 1)

	fn := fns[0]
	require.NotEmpty(t, fn.Blocks)
	assert.True(t, fn.Blocks[0].Fallthrough == -1 || len(fn.Blocks) == 1)
}

func TestValidateFlagsUninitializedRegister(t *testing.T) {
	push := pcode.NewInsn(pcode.Push)
	push.Dst = reg(pcode.RegData, 0)

	// reads data0 before anything ever wrote it
	iaddImm := pcode.NewInsn(pcode.IAddImm)
	iaddImm.Dst = reg(pcode.RegData, 0)
	iaddImm.Src1 = reg(pcode.RegData, 0)
	iaddImm.ImmInt = 1

	pop := pcode.NewInsn(pcode.Pop)
	pop.Dst = reg(pcode.RegData, 0)
	ret := pcode.NewInsn(pcode.Ret)

	prog := buildProgram(nil, push, iaddImm, pop, ret)

	var errs srcerr.List
	xcode.Validate(&errs, prog)
	require.Greater(t, errs.Len(), 0)
	found := false
	for _, e := range errs.All() {
		if contains(e.Msg, "uninitialized") {
			found = true
		}
	}
	assert.True(t, found, "expected an uninitialized-register diagnostic, got: %v", errs.All())
}

func TestValidateRejectsPopOnEmptyStack(t *testing.T) {
	pop := pcode.NewInsn(pcode.Pop)
	pop.Dst = reg(pcode.RegData, 0)
	ret := pcode.NewInsn(pcode.Ret)

	prog := buildProgram(nil, pop, ret)

	var errs srcerr.List
	fns := xcode.Validate(&errs, prog)
	assert.Greater(t, errs.Len(), 0)
	assert.Empty(t, fns, "a function that fails register tallying should be omitted")
}

func TestValidateRejectsDuplicateLabel(t *testing.T) {
	l1 := pcode.NewInsn(pcode.Label)
	l1.Label = "L1"
	l2 := pcode.NewInsn(pcode.Label)
	l2.Label = "L1"
	ret := pcode.NewInsn(pcode.Ret)

	prog := buildProgram(nil, l1, l2, ret)

	var errs srcerr.List
	fns := xcode.Validate(&errs, prog)
	assert.Greater(t, errs.Len(), 0)
	assert.Empty(t, fns)
}

func TestValidateRejectsYrtWithNoOpenTry(t *testing.T) {
	yrt := pcode.NewInsn(pcode.Yrt)
	ret := pcode.NewInsn(pcode.Ret)

	prog := buildProgram(nil, yrt, ret)

	var errs srcerr.List
	xcode.Validate(&errs, prog)
	require.Greater(t, errs.Len(), 0)
	found := false
	for _, e := range errs.All() {
		if contains(e.Msg, "yrt with no open try frame") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateChecksStaticCallArity(t *testing.T) {
	gb := pcode.NewGlobalBuilder()
	calleeIdx := gb.AddFun("m:needs-two", []pcode.ArgProto{
		{Kind: "positional", Name: "a"},
		{Kind: "positional", Name: "b"},
	}, nil)
	gb.SetBody(calleeIdx, pcode.NewExecBuilder().Build())

	push := pcode.NewInsn(pcode.Push)
	push.Dst = reg(pcode.RegData, 0)
	invoke := pcode.NewInsn(pcode.InvokeSS)
	invoke.Dst = reg(pcode.RegData, 0)
	invoke.GlobalIndex = calleeIdx
	invoke.ArgLo, invoke.ArgHi = 0, 1 // only one arg supplied, callee needs two
	pop := pcode.NewInsn(pcode.Pop)
	pop.Dst = reg(pcode.RegData, 0)
	ret := pcode.NewInsn(pcode.Ret)

	eb := pcode.NewExecBuilder()
	eb.Append(push)
	eb.Append(invoke)
	eb.Append(pop)
	eb.Append(ret)
	callerIdx := gb.AddFun("m:caller", nil, nil)
	gb.SetBody(callerIdx, eb.Build())

	var errs srcerr.List
	xcode.Validate(&errs, gb.Program())
	require.Greater(t, errs.Len(), 0)
	found := false
	for _, e := range errs.All() {
		if contains(e.Msg, "needs at least 2") {
			found = true
		}
	}
	assert.True(t, found, "expected an arity diagnostic, got: %v", errs.All())
}

func TestValidateRejectsSetGlobOnImmutableGlobal(t *testing.T) {
	gb := pcode.NewGlobalBuilder()
	extVarIdx := gb.AddExtVar("m:CONST")

	push := pcode.NewInsn(pcode.Push)
	push.Dst = reg(pcode.RegData, 0)
	ldImm := pcode.NewInsn(pcode.LdImmInt)
	ldImm.Dst = reg(pcode.RegData, 0)
	ldImm.ImmInt = 1
	setGlob := pcode.NewInsn(pcode.SetGlob)
	setGlob.Src1 = reg(pcode.RegData, 0)
	setGlob.GlobalIndex = extVarIdx
	pop := pcode.NewInsn(pcode.Pop)
	pop.Dst = reg(pcode.RegData, 0)
	ret := pcode.NewInsn(pcode.Ret)

	eb := pcode.NewExecBuilder()
	eb.Append(push)
	eb.Append(ldImm)
	eb.Append(setGlob)
	eb.Append(pop)
	eb.Append(ret)
	fnIdx := gb.AddFun("m:f", nil, nil)
	gb.SetBody(fnIdx, eb.Build())

	var errs srcerr.List
	xcode.Validate(&errs, gb.Program())
	require.Greater(t, errs.Len(), 0)
	found := false
	for _, e := range errs.All() {
		if contains(e.Msg, "immutable global") {
			found = true
		}
	}
	assert.True(t, found, "expected an immutable-global diagnostic, got: %v", errs.All())
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
