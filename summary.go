package lsmpage

import "encoding/binary"

// SummaryEntry maps the first key of a page to its page number.
type SummaryEntry[K any] struct {
	Key  K
	Page uint32
}

// SummaryCodec stores a sparse index over the pages of a run. Only the
// first entry of a summary page carries its page number (as a uvarint),
// every following entry implicitly refers to the next page. Keys are
// delta-encoded against their predecessor.
//
// Callers must therefore store one entry per consecutive page; gaps in the
// page numbers are not preserved.
type SummaryCodec[K any] struct {
	Keys Serializer[K]
}

// NewSummaryCodec returns a summary codec.
func NewSummaryCodec[K any](keys Serializer[K]) *SummaryCodec[K] {
	return &SummaryCodec[K]{Keys: keys}
}

// Descriptor returns the persistable codec configuration.
func (c *SummaryCodec[K]) Descriptor() Descriptor {
	return Descriptor{Kind: KindSummary}
}

// Store appends summary entries to page, starting at off. See
// TripleCodec.Store for the pending entry contract.
func (c *SummaryCodec[K]) Store(pending *SummaryEntry[K], src Source[SummaryEntry[K]], max int, page []byte, off int) (int, *SummaryEntry[K]) {
	return storePage[SummaryEntry[K]](summaryEntries[K]{c}, pending, src, max, page, off)
}

// Entries returns an iterator over the entries of a summary page.
func (c *SummaryCodec[K]) Entries(page []byte, off, maxBytes, max int) *Iterator[SummaryEntry[K]] {
	return newIterator[SummaryEntry[K]](summaryEntries[K]{c}, page, off, maxBytes, max)
}

type summaryEntries[K any] struct{ *SummaryCodec[K] }

func (x summaryEntries[K]) size(_ *cursor, e, prev *SummaryEntry[K]) int {
	if prev == nil {
		return uvarintLen(uint64(e.Page)) + x.Keys.Size(e.Key)
	}
	return x.Keys.SizeDelta(e.Key, prev.Key)
}

func (x summaryEntries[K]) encode(page []byte, c *cursor, e, prev *SummaryEntry[K]) {
	if prev == nil {
		c.off += binary.PutUvarint(page[c.off:], uint64(e.Page))
		c.off = x.Keys.Put(page, c.off, e.Key)
		return
	}
	c.off = x.Keys.PutDelta(page, c.off, e.Key, prev.Key)
}

func (x summaryEntries[K]) decode(page []byte, c *cursor, dst, prev *SummaryEntry[K]) {
	if prev == nil {
		pno, n := binary.Uvarint(page[c.off:])
		c.off += n
		dst.Page = uint32(pno)
		dst.Key, c.off = x.Keys.Get(page, c.off)
		return
	}
	dst.Page = prev.Page + 1
	dst.Key, c.off = x.Keys.GetDelta(page, c.off, prev.Key)
}
