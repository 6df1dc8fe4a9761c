package lsmpage

import (
	"strings"

	"github.com/pkg/errors"
)

// Triple positions.
const (
	Subject = iota
	Predicate
	Object
)

// Triple is an RDF-style triple of dictionary-encoded integers, indexed by
// Subject, Predicate and Object.
type Triple [3]uint32

// CollationOrder is a permutation of the three triple positions defining
// the primary, secondary and tertiary sort key of a run.
type CollationOrder uint8

// Supported collation orders.
const (
	SPO CollationOrder = iota
	SOP
	PSO
	POS
	OSP
	OPS
	unknownOrder
)

var collationPositions = [...][3]int{
	SPO: {Subject, Predicate, Object},
	SOP: {Subject, Object, Predicate},
	PSO: {Predicate, Subject, Object},
	POS: {Predicate, Object, Subject},
	OSP: {Object, Subject, Predicate},
	OPS: {Object, Predicate, Subject},
}

// ParseCollationOrder parses names like "SPO" or "pos".
func ParseCollationOrder(s string) (CollationOrder, error) {
	for o := SPO; o < unknownOrder; o++ {
		if strings.EqualFold(s, o.String()) {
			return o, nil
		}
	}
	return 0, errors.Errorf("lsmpage: unknown collation order %q", s)
}

func (o CollationOrder) isValid() bool { return o < unknownOrder }

// Positions returns the primary, secondary and tertiary triple positions.
func (o CollationOrder) Positions() [3]int { return collationPositions[o] }

// Compare compares two triples under o and returns -1, 0 or +1.
func (o CollationOrder) Compare(a, b Triple) int {
	for _, p := range collationPositions[o] {
		if a[p] < b[p] {
			return -1
		} else if a[p] > b[p] {
			return 1
		}
	}
	return 0
}

func (o CollationOrder) String() string {
	if !o.isValid() {
		return "unknown"
	}
	var b [3]byte
	for i, p := range collationPositions[o] {
		b[i] = "SPO"[p]
	}
	return string(b[:])
}

// --------------------------------------------------------------------

// deltaShape enumerates the encodings of a triple.
type deltaShape uint8

const (
	shapeRaw       deltaShape = iota // first triple of a page, no flags
	shapeTertiary                    // flags 1
	shapeSecondary                   // flags 01
	shapePrimary                     // flags 00
)

// tripleDelta is the encoded form of a triple: up to three integers, each
// either a wrapping difference to the predecessor or a raw value.
type tripleDelta struct {
	shape deltaShape
	n     int
	vals  [3]uint32
}

// delta selects the encoding of t following prev (nil for raw).
func (o CollationOrder) delta(t, prev *Triple) tripleDelta {
	p := collationPositions[o]
	switch {
	case prev == nil:
		return tripleDelta{shape: shapeRaw, n: 3, vals: [3]uint32{t[p[0]], t[p[1]], t[p[2]]}}
	case t[p[0]] == prev[p[0]] && t[p[1]] == prev[p[1]]:
		return tripleDelta{shape: shapeTertiary, n: 1, vals: [3]uint32{t[p[2]] - prev[p[2]]}}
	case t[p[0]] == prev[p[0]]:
		return tripleDelta{shape: shapeSecondary, n: 2, vals: [3]uint32{t[p[1]] - prev[p[1]], t[p[2]]}}
	default:
		return tripleDelta{shape: shapePrimary, n: 3, vals: [3]uint32{t[p[0]] - prev[p[0]], t[p[1]], t[p[2]]}}
	}
}

func (d *tripleDelta) flagBits() int {
	switch d.shape {
	case shapeRaw:
		return 0
	case shapeTertiary:
		return 1
	default:
		return 2
	}
}

// bits returns the number of bit-vector bits the delta occupies.
func (d *tripleDelta) bits() int { return d.flagBits() + 2*d.n }

func (d *tripleDelta) payload() int {
	n := 0
	for _, v := range d.vals[:d.n] {
		n += intLength(v)
	}
	return n
}

func (d *tripleDelta) encode(page []byte, c *cursor) {
	switch d.shape {
	case shapeTertiary:
		c.write1Bit(page, true)
	case shapeSecondary:
		c.write1Bit(page, false)
		c.write1Bit(page, true)
	case shapePrimary:
		c.write1Bit(page, false)
		c.write1Bit(page, false)
	}

	var lens [3]int
	for i, v := range d.vals[:d.n] {
		lens[i] = intLength(v)
		c.write2Bits(page, lens[i])
	}
	for i, v := range d.vals[:d.n] {
		c.writeInt(page, v, lens[i])
	}
}

// decodeTriple mirrors delta+encode.
func (o CollationOrder) decodeTriple(page []byte, c *cursor, prev *Triple) Triple {
	shape := shapeRaw
	if prev != nil {
		switch {
		case c.read1Bit(page):
			shape = shapeTertiary
		case c.read1Bit(page):
			shape = shapeSecondary
		default:
			shape = shapePrimary
		}
	}

	n := 3
	switch shape {
	case shapeTertiary:
		n = 1
	case shapeSecondary:
		n = 2
	}

	var lens [3]int
	for i := 0; i < n; i++ {
		lens[i] = c.readLengthOfInteger(page)
	}
	var vals [3]uint32
	for i := 0; i < n; i++ {
		vals[i] = c.readInteger(page, lens[i])
	}

	p := collationPositions[o]
	var t Triple
	switch shape {
	case shapeRaw:
		t[p[0]], t[p[1]], t[p[2]] = vals[0], vals[1], vals[2]
	case shapeTertiary:
		t = *prev
		t[p[2]] = prev[p[2]] + vals[0]
	case shapeSecondary:
		t[p[0]] = prev[p[0]]
		t[p[1]] = prev[p[1]] + vals[0]
		t[p[2]] = vals[1]
	case shapePrimary:
		t[p[0]] = prev[p[0]] + vals[0]
		t[p[1]], t[p[2]] = vals[1], vals[2]
	}
	return t
}

// --------------------------------------------------------------------

// TripleCodec stores triple entries on pages. Each entry is a tombstone bit
// followed by the triple, encoded raw for the first entry of a page and as
// a delta against its predecessor thereafter.
//
// Entries must be sorted under the codec's collation order for compact
// storage; unsorted input is stored correctly, just less compactly.
type TripleCodec struct {
	order CollationOrder
}

// NewTripleCodec returns a codec for the given collation order.
func NewTripleCodec(order CollationOrder) *TripleCodec {
	return &TripleCodec{order: order}
}

// NewTripleCodecFromDescriptor restores a codec persisted via its Descriptor.
func NewTripleCodecFromDescriptor(d Descriptor) (*TripleCodec, error) {
	if d.Kind != KindTriple || !d.Order.isValid() {
		return nil, errBadDescriptor
	}
	return NewTripleCodec(d.Order), nil
}

// Order returns the collation order.
func (c *TripleCodec) Order() CollationOrder { return c.order }

// Descriptor returns the persistable codec configuration.
func (c *TripleCodec) Descriptor() Descriptor {
	return Descriptor{Kind: KindTriple, Order: c.order}
}

// Store appends entries to page, starting at off. See storePage for the
// pending entry contract.
func (c *TripleCodec) Store(pending *TripleEntry, src Source[TripleEntry], max int, page []byte, off int) (int, *TripleEntry) {
	return storePage[TripleEntry](tripleEntries{c.order}, pending, src, max, page, off)
}

// Entries returns an iterator over the entries of a page written by Store.
func (c *TripleCodec) Entries(page []byte, off, maxBytes, max int) *Iterator[TripleEntry] {
	return newIterator[TripleEntry](tripleEntries{c.order}, page, off, maxBytes, max)
}

type tripleEntries struct{ order CollationOrder }

func (x tripleEntries) size(c *cursor, e, prev *TripleEntry) int {
	d := x.order.delta(&e.Key, prevKey(prev))
	return c.bitBytes(1+d.bits()) + d.payload()
}

func (x tripleEntries) encode(page []byte, c *cursor, e, prev *TripleEntry) {
	d := x.order.delta(&e.Key, prevKey(prev))
	c.write1Bit(page, e.Removed)
	d.encode(page, c)
}

func (x tripleEntries) decode(page []byte, c *cursor, dst, prev *TripleEntry) {
	dst.Removed = c.read1Bit(page)
	dst.Key = x.order.decodeTriple(page, c, prevKey(prev))
	dst.Value = dst.Key
}

func prevKey(prev *TripleEntry) *Triple {
	if prev == nil {
		return nil
	}
	return &prev.Key
}

// --------------------------------------------------------------------

// TripleSerializer serializes standalone triples, e.g. as keys of the
// key/value and summary codecs. Each triple is prefixed by a private
// bit-vector byte holding its flags and integer lengths.
type TripleSerializer struct {
	Order CollationOrder
}

// Size implements Serializer.
func (s TripleSerializer) Size(t Triple) int {
	d := s.Order.delta(&t, nil)
	return 1 + d.payload()
}

// SizeDelta implements Serializer.
func (s TripleSerializer) SizeDelta(t, prev Triple) int {
	d := s.Order.delta(&t, &prev)
	return 1 + d.payload()
}

// Put implements Serializer.
func (s TripleSerializer) Put(page []byte, off int, t Triple) int {
	c := newCursor(off)
	d := s.Order.delta(&t, nil)
	d.encode(page, &c)
	return c.off
}

// PutDelta implements Serializer.
func (s TripleSerializer) PutDelta(page []byte, off int, t, prev Triple) int {
	c := newCursor(off)
	d := s.Order.delta(&t, &prev)
	d.encode(page, &c)
	return c.off
}

// Get implements Serializer.
func (s TripleSerializer) Get(page []byte, off int) (Triple, int) {
	c := newCursor(off)
	t := s.Order.decodeTriple(page, &c, nil)
	return t, c.off
}

// GetDelta implements Serializer.
func (s TripleSerializer) GetDelta(page []byte, off int, prev Triple) (Triple, int) {
	c := newCursor(off)
	t := s.Order.decodeTriple(page, &c, &prev)
	return t, c.off
}

// AppendKey implements KeyEncoder.
func (s TripleSerializer) AppendKey(dst []byte, t Triple) []byte {
	for _, v := range t {
		dst = append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return dst
}
