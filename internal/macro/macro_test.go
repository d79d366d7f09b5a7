package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBasic(t *testing.T) {
	tbl := New()
	tbl.Parse("name=foo,pvsys=ca, debug = 1")
	v, ok := tbl.Get("name")
	require.True(t, ok)
	assert.Equal(t, "foo", v)

	v, ok = tbl.Get("pvsys")
	require.True(t, ok)
	assert.Equal(t, "ca", v)

	v, ok = tbl.Get("debug")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestCallerWinsOnConflict(t *testing.T) {
	tbl := New()
	tbl.Parse("name=embedded,pvsys=ca")
	tbl.ParseOverwrite("name=caller")

	v, _ := tbl.Get("name")
	assert.Equal(t, "caller", v)
	v, _ = tbl.Get("pvsys")
	assert.Equal(t, "ca", v)
}

func TestEvalSubstitutesNames(t *testing.T) {
	tbl := New()
	tbl.Parse("unit=01,sys=test")
	out := tbl.Eval("{sys}:motor{unit}")
	assert.Equal(t, "test:motor01", out)
}

func TestEvalUnboundNameBecomesEmpty(t *testing.T) {
	tbl := New()
	out := tbl.Eval("prefix{missing}suffix")
	assert.Equal(t, "prefixsuffix", out)
}

func TestQuotedValueWithComma(t *testing.T) {
	tbl := New()
	tbl.Parse(`msg="hello, world",name=x`)
	v, ok := tbl.Get("msg")
	require.True(t, ok)
	assert.Equal(t, "hello, world", v)
	v, _ = tbl.Get("name")
	assert.Equal(t, "x", v)
}

func TestStringRoundTrip(t *testing.T) {
	tbl := New()
	tbl.Parse("b=2,a=1")
	assert.Equal(t, "a=1,b=2", tbl.String())
}

func TestEmptyTableString(t *testing.T) {
	tbl := New()
	assert.Equal(t, "", tbl.String())
}
