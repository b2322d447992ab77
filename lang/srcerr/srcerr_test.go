package srcerr_test

import (
	"strings"
	"testing"

	"github.com/ava-lang/avc/lang/srcerr"
	"github.com/ava-lang/avc/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(f *token.File, sl, sc, el, ec int) token.Span {
	return token.Span{File: f, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}

func TestListOrderPreserved(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "Foo = bar\nBaz = qux\n"}
	var l srcerr.List
	l.Add(span(f, 2, 1, 2, 4), "undefined: Baz")
	l.Add(span(f, 1, 1, 1, 4), "undefined: Foo")

	require.Equal(t, 2, l.Len())
	assert.Equal(t, "undefined: Baz", l.All()[0].Msg, "insertion order retained before Sort")

	l.Sort()
	assert.Equal(t, "undefined: Foo", l.All()[0].Msg, "earliest source position shown first after Sort")
}

func TestErrNilWhenEmpty(t *testing.T) {
	var l srcerr.List
	assert.Nil(t, l.Err())
}

func TestErrNonNil(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "x\n"}
	var l srcerr.List
	l.Add(span(f, 1, 1, 1, 2), "boom")
	require.Error(t, l.Err())
}

func TestRenderDegradesUnderBudget(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "Foo = 1\nBar = 2\nBaz = 3\n"}
	var l srcerr.List
	l.Add(span(f, 1, 1, 1, 4), "error one")
	l.Add(span(f, 2, 1, 2, 4), "error two")
	l.Add(span(f, 3, 1, 3, 4), "error three")

	out := l.Render(srcerr.RenderOptions{LineBudget: 4})
	assert.Contains(t, out, "error one")
	assert.True(t, strings.Count(out, "^") > 0, "first error gets a caret line")
}

func TestRenderReportsOverflow(t *testing.T) {
	f := &token.File{Name: "m.ava", Source: "a\nb\nc\n"}
	var l srcerr.List
	l.Add(span(f, 1, 1, 1, 2), "e1")
	l.Add(span(f, 2, 1, 2, 2), "e2")
	l.Add(span(f, 3, 1, 3, 2), "e3")

	out := l.Render(srcerr.RenderOptions{LineBudget: 1})
	assert.Contains(t, out, "more error(s) omitted")
}
