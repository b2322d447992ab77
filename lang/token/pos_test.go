package token_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosLineCol(t *testing.T) {
	p := token.MakePos(12, 34)
	l, c := p.LineCol()
	assert.Equal(t, 12, l)
	assert.Equal(t, 34, c)
	assert.False(t, p.Unknown())
	assert.True(t, token.Pos(0).Unknown())
}

func TestFileLine(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "one\ntwo\nthree"}
	assert.Equal(t, "one", f.Line(1))
	assert.Equal(t, "two", f.Line(2))
	assert.Equal(t, "three", f.Line(3))
	assert.Equal(t, "", f.Line(4))
}

func TestSpanUnion(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "abcdefgh"}
	a := token.MakeSpan(f, token.MakePos(1, 1), token.MakePos(1, 3))
	b := token.MakeSpan(f, token.MakePos(1, 5), token.MakePos(2, 2))
	u := a.Union(b)
	require.Equal(t, 1, u.StartLine)
	assert.Equal(t, 1, u.StartCol)
	assert.Equal(t, 2, u.EndLine)
	assert.Equal(t, 2, u.EndCol)

	other := &token.File{Name: "other.ava", Source: "x"}
	c := token.MakeSpan(other, token.MakePos(1, 1), token.MakePos(1, 1))
	assert.Equal(t, a, a.Union(c), "different filenames leave the span unchanged")
}
