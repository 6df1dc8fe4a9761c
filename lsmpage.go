package lsmpage

import "github.com/pkg/errors"

var magic = []byte{76, 83, 77, 80, 97, 103, 101, 49}

const (
	frameNoCompression     = 0
	frameSnappyCompression = 1
)

// ErrNotFound is returned by the run reader when a key cannot be found.
var ErrNotFound = errors.New("lsmpage: not found")

var (
	errClosed         = errors.New("lsmpage: is closed")
	errBadMagic       = errors.New("lsmpage: bad magic byte sequence")
	errBadChecksum    = errors.New("lsmpage: bad page checksum")
	errBadCompression = errors.New("lsmpage: bad compression codec")
	errBadDescriptor  = errors.New("lsmpage: bad codec descriptor")
	errEntryTooLarge  = errors.New("lsmpage: entry does not fit into an empty page")
	errReleased       = errors.New("lsmpage: iterator was released")
)

// Entry is a single key/value pair stored on a page. Removed entries
// (tombstones) carry no value bytes on the page.
type Entry[K, V any] struct {
	Key     K
	Value   V
	Removed bool
}

// TripleEntry is the entry type of the triple codec. Key and Value are
// always identical.
type TripleEntry = Entry[Triple, Triple]

// Source is a forward-only sequence of values. Next must be called before
// the first call to Entry.
type Source[T any] interface {
	// Next advances to the next value and returns true if successful.
	Next() bool
	// Entry returns the current value.
	Entry() T
}

// SliceSource returns a Source over a slice.
func SliceSource[T any](items []T) Source[T] {
	return &sliceSource[T]{items: items, pos: -1}
}

type sliceSource[T any] struct {
	items []T
	pos   int
}

func (s *sliceSource[T]) Next() bool {
	if s.pos+1 < len(s.items) {
		s.pos++
		return true
	}
	return false
}

func (s *sliceSource[T]) Entry() T { return s.items[s.pos] }

// --------------------------------------------------------------------

// Compression is the compression codec applied to page frames of a run file.
type Compression byte

func (c Compression) isValid() bool {
	return c >= SnappyCompression && c < unknownCompression
}

// Supported compression codecs
const (
	SnappyCompression Compression = iota
	NoCompression
	unknownCompression
)
