package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioS2MonitorQueueOverflow mirrors end-to-end scenario S2:
// a capacity-3 queue receiving five puts (1..5) yields 1, 2, 3 on
// successive gets, then empty.
func TestScenarioS2MonitorQueueOverflow(t *testing.T) {
	q := New[int](3)
	for _, v := range []int{1, 2, 3, 4, 5} {
		q.Put(v)
	}

	v1, empty1 := q.Get()
	require.False(t, empty1)
	assert.Equal(t, 1, v1)

	v2, empty2 := q.Get()
	require.False(t, empty2)
	assert.Equal(t, 2, v2)

	v3, empty3 := q.Get()
	require.False(t, empty3)
	assert.Equal(t, 3, v3)

	_, empty4 := q.Get()
	assert.True(t, empty4)
}

func TestPutReturnsOverwrittenWhenFull(t *testing.T) {
	q := New[int](2)
	assert.False(t, q.Put(1))
	assert.False(t, q.Put(2))
	assert.True(t, q.Put(3))
	assert.Equal(t, 1, q.Overflow())
}

func TestFlushClearsQueue(t *testing.T) {
	q := New[string](2)
	q.Put("a")
	q.Put("b")
	q.Flush()
	assert.True(t, q.IsEmpty())
	_, empty := q.Get()
	assert.True(t, empty)
}

func TestUsedFreeNumElems(t *testing.T) {
	q := New[int](4)
	q.Put(1)
	q.Put(2)
	assert.Equal(t, 2, q.Used())
	assert.Equal(t, 2, q.Free())
	assert.Equal(t, 4, q.NumElems())
	assert.False(t, q.IsFull())
}

func TestGetThenPutReusesFreedSlot(t *testing.T) {
	q := New[int](2)
	q.Put(1)
	q.Put(2)
	v, _ := q.Get()
	assert.Equal(t, 1, v)
	assert.False(t, q.Put(3))
	v2, _ := q.Get()
	assert.Equal(t, 2, v2)
	v3, _ := q.Get()
	assert.Equal(t, 3, v3)
}

func TestEmptyQueueGet(t *testing.T) {
	q := New[int](1)
	_, empty := q.Get()
	assert.True(t, empty)
}
