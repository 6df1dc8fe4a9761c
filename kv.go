package lsmpage

// KeyValueCodec stores arbitrary key/value entries on pages. Keys are
// delta-encoded against their predecessor, values are stored on their own
// and omitted entirely for removed entries.
//
// Tombstones are tracked in marker bytes: a marker byte precedes entries
// 0, 8, 16, ... of a page and bit i%8 of it is set when entry i is removed.
type KeyValueCodec[K, V any] struct {
	Keys   Serializer[K]
	Values Serializer[V]
}

// NewKeyValueCodec returns a codec using the given serializers.
func NewKeyValueCodec[K, V any](keys Serializer[K], values Serializer[V]) *KeyValueCodec[K, V] {
	return &KeyValueCodec[K, V]{Keys: keys, Values: values}
}

// Descriptor returns the persistable codec configuration.
func (c *KeyValueCodec[K, V]) Descriptor() Descriptor {
	return Descriptor{Kind: KindKeyValue}
}

// Store appends entries to page, starting at off. See TripleCodec.Store.
func (c *KeyValueCodec[K, V]) Store(pending *Entry[K, V], src Source[Entry[K, V]], max int, page []byte, off int) (int, *Entry[K, V]) {
	return storePage[Entry[K, V]](kvEntries[K, V]{c}, pending, src, max, page, off)
}

// Entries returns an iterator over the entries of a page written by Store.
// Removed entries are decoded with a zero Value.
func (c *KeyValueCodec[K, V]) Entries(page []byte, off, maxBytes, max int) *Iterator[Entry[K, V]] {
	return newIterator[Entry[K, V]](kvEntries[K, V]{c}, page, off, maxBytes, max)
}

type kvEntries[K, V any] struct{ *KeyValueCodec[K, V] }

func (x kvEntries[K, V]) size(c *cursor, e, prev *Entry[K, V]) int {
	n := c.bitBytes(1)
	if prev == nil {
		n += x.Keys.Size(e.Key)
	} else {
		n += x.Keys.SizeDelta(e.Key, prev.Key)
	}
	if !e.Removed {
		n += x.Values.Size(e.Value)
	}
	return n
}

func (x kvEntries[K, V]) encode(page []byte, c *cursor, e, prev *Entry[K, V]) {
	c.write1Bit(page, e.Removed)
	if prev == nil {
		c.off = x.Keys.Put(page, c.off, e.Key)
	} else {
		c.off = x.Keys.PutDelta(page, c.off, e.Key, prev.Key)
	}
	if !e.Removed {
		c.off = x.Values.Put(page, c.off, e.Value)
	}
}

func (x kvEntries[K, V]) decode(page []byte, c *cursor, dst, prev *Entry[K, V]) {
	dst.Removed = c.read1Bit(page)
	if prev == nil {
		dst.Key, c.off = x.Keys.Get(page, c.off)
	} else {
		dst.Key, c.off = x.Keys.GetDelta(page, c.off, prev.Key)
	}
	if dst.Removed {
		var zero V
		dst.Value = zero
	} else {
		dst.Value, c.off = x.Values.Get(page, c.off)
	}
}
