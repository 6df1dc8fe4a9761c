package lsmpage

import (
	"io"

	"github.com/pkg/errors"
)

// CodecKind identifies a codec variant.
type CodecKind uint8

// Supported codec kinds.
const (
	KindTriple CodecKind = iota + 1
	KindKeyValue
	KindSummary
	unknownKind
)

func (k CodecKind) isValid() bool { return k >= KindTriple && k < unknownKind }

func (k CodecKind) String() string {
	switch k {
	case KindTriple:
		return "triple"
	case KindKeyValue:
		return "kv"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Descriptor is the persisted configuration of a codec. It carries no data,
// only enough to reconstruct the codec when a run is reopened.
type Descriptor struct {
	Kind  CodecKind
	Order CollationOrder // only meaningful for KindTriple
}

const descriptorLen = 2

func (d Descriptor) isValid() bool {
	return d.Kind.isValid() && d.Order.isValid()
}

func (d Descriptor) bytes() [descriptorLen]byte {
	return [descriptorLen]byte{byte(d.Kind), byte(d.Order)}
}

func parseDescriptor(p []byte) (Descriptor, error) {
	d := Descriptor{Kind: CodecKind(p[0]), Order: CollationOrder(p[1])}
	if !d.isValid() {
		return Descriptor{}, errBadDescriptor
	}
	return d, nil
}

// WriteTo writes the descriptor to w.
func (d Descriptor) WriteTo(w io.Writer) (int64, error) {
	p := d.bytes()
	n, err := w.Write(p[:])
	return int64(n), err
}

// ReadDescriptor reads a descriptor previously written by WriteTo.
func ReadDescriptor(r io.Reader) (Descriptor, error) {
	var p [descriptorLen]byte
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return Descriptor{}, errors.Wrap(err, "lsmpage: read descriptor")
	}
	return parseDescriptor(p[:])
}
