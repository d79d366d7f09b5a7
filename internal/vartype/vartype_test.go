package vartype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLongRoundTrip(t *testing.T) {
	area := make([]byte, 16)
	ref := Ref{Tag: Long, Offset: 4, Count: 2}
	PutLong(area, ref, 0, 42)
	PutLong(area, ref, 1, -7)
	assert.Equal(t, int32(42), GetLong(area, ref, 0))
	assert.Equal(t, int32(-7), GetLong(area, ref, 1))
}

func TestDoubleRoundTrip(t *testing.T) {
	area := make([]byte, 24)
	ref := Ref{Tag: Double, Offset: 0, Count: 1}
	PutDouble(area, ref, 0, 3.25)
	assert.Equal(t, 3.25, GetDouble(area, ref, 0))
}

func TestStringRoundTrip(t *testing.T) {
	area := make([]byte, 40)
	ref := Ref{Tag: String, Offset: 0, Count: 1}
	PutString(area, ref, "hello")
	assert.Equal(t, "hello", GetString(area, ref))
}

func TestStringTruncatesToCapacity(t *testing.T) {
	area := make([]byte, 5)
	ref := Ref{Tag: Char, Offset: 0, Count: 5}
	PutString(area, ref, "abcdefgh")
	assert.Equal(t, "abcde", GetString(area, ref))
}

func TestByteLenAndSlice(t *testing.T) {
	area := make([]byte, 32)
	ref := Ref{Tag: Long, Offset: 8, Count: 4}
	assert.Equal(t, 16, ref.ByteLen())
	assert.Len(t, ref.Slice(area), 16)
}
