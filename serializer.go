package lsmpage

import "encoding/binary"

// Serializer is the delta-aware serialization contract used by the
// key/value and summary codecs. Put/Get store a value on its own, the Delta
// variants store it relative to the previous value on the page. All methods
// return the offset right after the value.
type Serializer[T any] interface {
	Size(v T) int
	SizeDelta(v, prev T) int

	Put(page []byte, off int, v T) int
	PutDelta(page []byte, off int, v, prev T) int

	Get(page []byte, off int) (T, int)
	GetDelta(page []byte, off int, prev T) (T, int)
}

// KeyEncoder turns keys into the byte strings fed into bloom filters.
type KeyEncoder[K any] interface {
	AppendKey(dst []byte, k K) []byte
}

var (
	_ Serializer[uint64] = Uint64Serializer{}
	_ Serializer[[]byte] = BytesSerializer{}
	_ Serializer[Triple] = TripleSerializer{}

	_ KeyEncoder[uint64] = Uint64Serializer{}
	_ KeyEncoder[[]byte] = BytesSerializer{}
	_ KeyEncoder[Triple] = TripleSerializer{}
)

// --------------------------------------------------------------------

// Uint64Serializer stores numbers as uvarints, deltas as wrapping
// differences.
type Uint64Serializer struct{}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Size implements Serializer.
func (Uint64Serializer) Size(v uint64) int { return uvarintLen(v) }

// SizeDelta implements Serializer.
func (Uint64Serializer) SizeDelta(v, prev uint64) int { return uvarintLen(v - prev) }

// Put implements Serializer.
func (Uint64Serializer) Put(page []byte, off int, v uint64) int {
	return off + binary.PutUvarint(page[off:], v)
}

// PutDelta implements Serializer.
func (Uint64Serializer) PutDelta(page []byte, off int, v, prev uint64) int {
	return off + binary.PutUvarint(page[off:], v-prev)
}

// Get implements Serializer.
func (Uint64Serializer) Get(page []byte, off int) (uint64, int) {
	v, n := binary.Uvarint(page[off:])
	return v, off + n
}

// GetDelta implements Serializer.
func (Uint64Serializer) GetDelta(page []byte, off int, prev uint64) (uint64, int) {
	v, n := binary.Uvarint(page[off:])
	return prev + v, off + n
}

// AppendKey implements KeyEncoder.
func (Uint64Serializer) AppendKey(dst []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(dst, tmp[:]...)
}

// --------------------------------------------------------------------

// BytesSerializer stores byte strings with a uvarint length prefix. Deltas
// share the prefix common with the previous value:
//
//	+-----------------------+-----------------------+------------------+
//	| shared len (uvarint)  | suffix len (uvarint)  | suffix (varlen)  |
//	+-----------------------+-----------------------+------------------+
//
// Get returns a sub-slice of the page; GetDelta allocates.
type BytesSerializer struct{}

// Size implements Serializer.
func (BytesSerializer) Size(v []byte) int { return uvarintLen(uint64(len(v))) + len(v) }

// SizeDelta implements Serializer.
func (BytesSerializer) SizeDelta(v, prev []byte) int {
	shared := sharedPrefixLen(v, prev)
	rest := len(v) - shared
	return uvarintLen(uint64(shared)) + uvarintLen(uint64(rest)) + rest
}

// Put implements Serializer.
func (BytesSerializer) Put(page []byte, off int, v []byte) int {
	off += binary.PutUvarint(page[off:], uint64(len(v)))
	return off + copy(page[off:], v)
}

// PutDelta implements Serializer.
func (BytesSerializer) PutDelta(page []byte, off int, v, prev []byte) int {
	shared := sharedPrefixLen(v, prev)
	off += binary.PutUvarint(page[off:], uint64(shared))
	off += binary.PutUvarint(page[off:], uint64(len(v)-shared))
	return off + copy(page[off:], v[shared:])
}

// Get implements Serializer.
func (BytesSerializer) Get(page []byte, off int) ([]byte, int) {
	ln, n := binary.Uvarint(page[off:])
	off += n
	return page[off : off+int(ln)], off + int(ln)
}

// GetDelta implements Serializer.
func (BytesSerializer) GetDelta(page []byte, off int, prev []byte) ([]byte, int) {
	shared, n := binary.Uvarint(page[off:])
	off += n
	rest, n := binary.Uvarint(page[off:])
	off += n

	v := make([]byte, 0, int(shared)+int(rest))
	v = append(v, prev[:shared]...)
	v = append(v, page[off:off+int(rest)]...)
	return v, off + int(rest)
}

// AppendKey implements KeyEncoder.
func (BytesSerializer) AppendKey(dst []byte, v []byte) []byte { return append(dst, v...) }

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
