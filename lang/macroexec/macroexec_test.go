package macroexec_test

import (
	"testing"

	"github.com/ava-lang/avc/lang/macroexec"
	"github.com/ava-lang/avc/lang/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBuildsSingleStatementFromBarewords(t *testing.T) {
	instrs, err := macroexec.Parse("!foo append !bar append", nil)
	require.NoError(t, err)

	m := macroexec.New("src", nil, nil, unit.Statement{}.Span())
	stmt, err := m.Run(instrs)
	require.NoError(t, err)
	require.Len(t, stmt, 2)
	assert.Equal(t, "foo", stmt[0].(*unit.Bareword).Name)
	assert.Equal(t, "bar", stmt[1].(*unit.Bareword).Name)
}

func TestGensymIsDeterministicPerSource(t *testing.T) {
	instrs, err := macroexec.Parse("?tmp append", nil)
	require.NoError(t, err)

	run := func() string {
		m := macroexec.New("same source", nil, nil, unit.Statement{}.Span())
		stmt, err := m.Run(instrs)
		require.NoError(t, err)
		return stmt[0].(*unit.Bareword).Name
	}
	assert.Equal(t, run(), run())
}

func TestGensymDiffersAcrossSources(t *testing.T) {
	instrs, err := macroexec.Parse("?tmp append", nil)
	require.NoError(t, err)

	nameFor := func(src string) string {
		m := macroexec.New(src, nil, nil, unit.Statement{}.Span())
		stmt, err := m.Run(instrs)
		require.NoError(t, err)
		return stmt[0].(*unit.Bareword).Name
	}
	assert.NotEqual(t, nameFor("site-a"), nameFor("site-b"))
}

func TestPercentSigilResolvesViaCallback(t *testing.T) {
	instrs, err := macroexec.Parse("%helper append", func(name string) (string, error) {
		return "m:" + name, nil
	})
	require.NoError(t, err)

	m := macroexec.New("src", nil, nil, unit.Statement{}.Span())
	stmt, err := m.Run(instrs)
	require.NoError(t, err)
	assert.Equal(t, "m:helper", stmt[0].(*unit.Bareword).Name)
}

func TestHeadSlicing(t *testing.T) {
	instrs, err := macroexec.Parse("!a append !b append !c append <2", nil)
	require.NoError(t, err)

	m := macroexec.New("src", nil, nil, unit.Statement{}.Span())
	stmt, err := m.Run(instrs)
	require.NoError(t, err)
	require.Len(t, stmt, 2)
	assert.Equal(t, "a", stmt[0].(*unit.Bareword).Name)
	assert.Equal(t, "b", stmt[1].(*unit.Bareword).Name)
}

func TestSingularUnwrapsOneElementStatement(t *testing.T) {
	instrs, err := macroexec.Parse("!only append singular", nil)
	require.NoError(t, err)

	m := macroexec.New("src", nil, nil, unit.Statement{}.Span())
	_, err = m.Run(instrs)
	// after singular the stack top is a unit, not a statement, so Run's
	// final shape check must reject it.
	require.Error(t, err)
}

func TestLeftPushClones(t *testing.T) {
	left := unit.Statement{&unit.Bareword{Name: "L"}}
	right := unit.Statement{&unit.Bareword{Name: "R"}}

	instrs, err := macroexec.Parse("left append", nil)
	require.NoError(t, err)
	m := macroexec.New("src", left, right, unit.Statement{}.Span())
	stmt, err := m.Run(instrs)
	require.NoError(t, err)
	require.Len(t, stmt, 1)
	assert.Equal(t, "L", stmt[0].(*unit.Bareword).Name)
	assert.NotSame(t, left[0], stmt[0], "left must push a clone, not alias the original unit")
}

func TestDieProducesError(t *testing.T) {
	instrs, err := macroexec.Parse("die:boom", nil)
	require.NoError(t, err)
	m := macroexec.New("src", nil, nil, unit.Statement{}.Span())
	_, err = m.Run(instrs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
