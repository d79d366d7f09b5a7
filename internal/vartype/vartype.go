// Package vartype implements the type-erased scalar/array/string
// variable access described in spec §9 "Type-erased variable access":
// a raw []byte variable area addressed by an explicit type tag plus
// an offset/count pair, rather than unsafe reinterpretation.
//
// Grounded on the teacher's internal/uapi/marshal.go manual field
// packing style (encoding/binary.LittleEndian, one function per wire
// type) rather than its reflect+unsafe directMarshal fallback — the
// sequencer's variable area is a handful of known scalar kinds, so a
// switch over Tag plays the same role as uapi's per-struct marshal
// functions.
package vartype

import (
	"encoding/binary"
	"math"
)

// Tag identifies the SNL scalar type stored at a variable's offset.
type Tag int

const (
	Char Tag = iota
	Short
	Long
	Float
	Double
	String
)

// Size returns the wire size in bytes of one element of the given tag.
func (t Tag) Size() int {
	switch t {
	case Char:
		return 1
	case Short:
		return 2
	case Long:
		return 4
	case Float:
		return 4
	case Double:
		return 8
	case String:
		return 40 // fixed-capacity character array, per the reference runtime's MAX_STRING_SIZE
	default:
		return 0
	}
}

// Ref is an explicit type tag + offset/count pair into a shared
// variable-area []byte, replacing ad hoc pointer reinterpretation.
// Arrays are row-major; strings are fixed-capacity byte arrays whose
// semantic length is determined by the first NUL.
type Ref struct {
	Tag    Tag
	Offset int
	Count  int
}

// ByteLen returns the total number of bytes this Ref occupies in the
// variable area.
func (r Ref) ByteLen() int {
	return r.Tag.Size() * r.Count
}

// Slice returns the sub-slice of area covered by this Ref.
func (r Ref) Slice(area []byte) []byte {
	return area[r.Offset : r.Offset+r.ByteLen()]
}

// GetLong reads element i (0-based) of a Long-tagged Ref.
func GetLong(area []byte, r Ref, i int) int32 {
	b := r.Slice(area)[i*4 : i*4+4]
	return int32(binary.LittleEndian.Uint32(b))
}

// PutLong writes element i of a Long-tagged Ref.
func PutLong(area []byte, r Ref, i int, v int32) {
	b := r.Slice(area)[i*4 : i*4+4]
	binary.LittleEndian.PutUint32(b, uint32(v))
}

// GetDouble reads element i of a Double-tagged Ref.
func GetDouble(area []byte, r Ref, i int) float64 {
	b := r.Slice(area)[i*8 : i*8+8]
	bits := binary.LittleEndian.Uint64(b)
	return math.Float64frombits(bits)
}

// PutDouble writes element i of a Double-tagged Ref.
func PutDouble(area []byte, r Ref, i int, v float64) {
	b := r.Slice(area)[i*8 : i*8+8]
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}

// GetString reads the NUL-terminated string stored in a String-tagged
// Ref (count is always 1 for a scalar string variable; arrays of
// strings are not modeled, matching the reference runtime).
func GetString(area []byte, r Ref) string {
	b := r.Slice(area)
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// PutString writes s into a String-tagged Ref, truncating to its
// fixed capacity and NUL-terminating (or not, if s exactly fills it —
// matching the reference runtime's fixed-capacity character arrays).
func PutString(area []byte, r Ref, s string) {
	b := r.Slice(area)
	n := copy(b, s)
	if n < len(b) {
		b[n] = 0
	}
}
