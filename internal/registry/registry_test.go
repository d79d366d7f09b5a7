package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFindRemove(t *testing.T) {
	r := New()
	a := "instance-a"
	b := "instance-b"

	idxA := r.Add("myprog", a)
	idxB := r.Add("myprog", b)
	assert.Equal(t, 0, idxA)
	assert.Equal(t, 1, idxB)

	list := r.Find("myprog")
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0])
	assert.Equal(t, b, list[1])

	r.Remove("myprog", a)
	list = r.Find("myprog")
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0])

	r.Remove("myprog", b)
	assert.Empty(t, r.Find("myprog"))
	assert.NotContains(t, r.Names(), "myprog")
}

func TestNamesSorted(t *testing.T) {
	r := New()
	r.Add("zeta", 1)
	r.Add("alpha", 2)
	r.Add("mid", 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestTraverse(t *testing.T) {
	r := New()
	r.Add("p1", "x")
	r.Add("p1", "y")
	r.Add("p2", "z")

	seen := map[string][]string{}
	r.Traverse(func(name string, instance any) {
		seen[name] = append(seen[name], instance.(string))
	})
	assert.ElementsMatch(t, []string{"x", "y"}, seen["p1"])
	assert.ElementsMatch(t, []string{"z"}, seen["p2"])
}

func TestThreadRegistration(t *testing.T) {
	r := New()
	r.RegisterThread("prog#0/ss1", "statesetA")
	v, ok := r.Thread("prog#0/ss1")
	require.True(t, ok)
	assert.Equal(t, "statesetA", v)

	r.UnregisterThread("prog#0/ss1")
	_, ok = r.Thread("prog#0/ss1")
	assert.False(t, ok)
}

func TestAddAfterRemoveDoesNotReuseLiveIndex(t *testing.T) {
	r := New()
	a, b, c := "a", "b", "c"

	idxA := r.Add("myprog", a)
	idxB := r.Add("myprog", b)
	idxC := r.Add("myprog", c)
	assert.Equal(t, 0, idxA)
	assert.Equal(t, 1, idxB)
	assert.Equal(t, 2, idxC)

	r.Remove("myprog", b)

	d := "d"
	idxD := r.Add("myprog", d)
	assert.Equal(t, 3, idxD, "new instance must not reuse index 2, still held by the surviving instance c")
}

func TestRemoveMissingIsNoop(t *testing.T) {
	r := New()
	r.Add("p", "a")
	r.Remove("p", "not-present")
	assert.Len(t, r.Find("p"), 1)
}
