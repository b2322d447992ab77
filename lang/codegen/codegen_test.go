package codegen_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/codegen"
	"github.com/ava-lang/avc/lang/pcode"
	"github.com/ava-lang/avc/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopBalance(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	r := ctx.Push(pcode.RegData)
	assert.Equal(t, 0, r.Index)
	assert.Equal(t, 1, ctx.Height(pcode.RegData))
	ctx.Pop(pcode.RegData)
	assert.Equal(t, 0, ctx.Height(pcode.RegData))
	assert.True(t, ctx.Balanced())
}

func TestPopOnEmptyStackPanics(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	assert.Panics(t, func() { ctx.Pop(pcode.RegData) })
}

func TestLabelMonotonic(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	l1 := ctx.Label()
	l2 := ctx.Label()
	assert.NotEqual(t, l1, l2)
}

func TestMaxHeightTracksHighWaterMark(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	ctx.Push(pcode.RegInt)
	ctx.Push(pcode.RegInt)
	ctx.Pop(pcode.RegInt)
	assert.Equal(t, 2, ctx.MaxHeight(pcode.RegInt))
	assert.Equal(t, 1, ctx.Height(pcode.RegInt))
}

func TestJumpProtCleanupRunsOnExit(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	var ran bool
	mark := ctx.PushJumpProt(codegen.JumpProt{
		Kind:   codegen.JumpProtCleanup,
		OnExit: func(*codegen.Context) { ran = true },
		Reason: "defer",
	})
	err := ctx.EmitExit(mark - 1)
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestJumpProtBarrierRejectsExit(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	mark := ctx.PushJumpProt(codegen.JumpProt{Kind: codegen.JumpProtBarrier, Reason: "finally at line 10"})
	err := ctx.EmitExit(mark - 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jump out of finally")
}

func TestPopJumpProtOutOfOrderPanics(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	ctx.PushJumpProt(codegen.JumpProt{Kind: codegen.JumpProtCleanup})
	ctx.PushJumpProt(codegen.JumpProt{Kind: codegen.JumpProtCleanup})
	assert.Panics(t, func() { ctx.PopJumpProt(0) })
}

func TestNewContextHasUsableErrorsList(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	require.NotNil(t, ctx.Errors)
	assert.Equal(t, 0, ctx.Errors.Len())
	ctx.AddError(token.Span{}, "bad thing: %s", "oops")
	assert.Equal(t, 1, ctx.Errors.Len())
}

func TestEmitJumpAndLabelRoundTripThroughBuild(t *testing.T) {
	ctx := codegen.New(pcode.NewGlobalBuilder())
	l := ctx.Label()
	ctx.EmitJump(l)
	ctx.EmitLabel(l)
	exec := ctx.Build()
	require.Len(t, exec.Insns, 2)
	assert.Equal(t, pcode.Jump, exec.Insns[0].Op)
	assert.Equal(t, l, exec.Insns[0].Label)
	assert.Equal(t, pcode.Label, exec.Insns[1].Op)
}
