package lsmpage

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
)

// PageCodec is implemented by the entry codecs which can be used to build
// runs, i.e. TripleCodec and KeyValueCodec.
type PageCodec[K, V any] interface {
	Descriptor() Descriptor
	Store(pending *Entry[K, V], src Source[Entry[K, V]], max int, page []byte, off int) (int, *Entry[K, V])
	Entries(page []byte, off, maxBytes, max int) *Iterator[Entry[K, V]]
}

// KeySerializer serializes the keys of a run into its summary and bloom
// filter.
type KeySerializer[K any] interface {
	Serializer[K]
	KeyEncoder[K]
}

var (
	_ PageCodec[Triple, Triple] = (*TripleCodec)(nil)
	_ PageCodec[uint64, []byte] = (*KeyValueCodec[uint64, []byte])(nil)
	_ KeySerializer[Triple]     = TripleSerializer{}
	_ KeySerializer[[]byte]     = BytesSerializer{}
	_ KeySerializer[uint64]     = Uint64Serializer{}
)

// RunOptions define run writer specific options.
type RunOptions struct {
	// PageSize is the size of each (uncompressed) page in bytes.
	// Default: 8KiB.
	PageSize int

	// MaxEntriesPerPage limits the number of entries stored on a page.
	// Default: 4096.
	MaxEntriesPerPage int

	// The compression codec to use for page frames.
	// Default: SnappyCompression.
	Compression Compression

	// FirstPage is the absolute number of the first page of the run.
	FirstPage uint32

	// ExpectedEntries sizes the bloom filter built while writing.
	// Default: 65536.
	ExpectedEntries int

	// FalsePositiveRate of the bloom filter.
	// Default: 0.01.
	FalsePositiveRate float64

	// Logger receives debug output. Default: discard.
	Logger *slog.Logger
}

func (o *RunOptions) norm() *RunOptions {
	var oo RunOptions
	if o != nil {
		oo = *o
	}

	if oo.PageSize < 1 {
		oo.PageSize = 8 << 10
	}
	if oo.MaxEntriesPerPage < 1 {
		oo.MaxEntriesPerPage = 4096
	}
	if !oo.Compression.isValid() {
		oo.Compression = SnappyCompression
	}
	if oo.ExpectedEntries < 1 {
		oo.ExpectedEntries = 1 << 16
	}
	if oo.Logger == nil {
		oo.Logger = slog.New(discardHandler{})
	}
	return &oo
}

// RunWriter builds a run file. Entries must be written in order.
type RunWriter[K, V any] struct {
	w     io.Writer
	o     *RunOptions
	codec PageCodec[K, V]
	keys  KeySerializer[K]
	bloom *BloomFilter[K]

	offset     int64
	frames     []int64  // frame offsets
	firstKeys  [][]byte // serialized first key of each data page
	numEntries uint64

	page []byte // page buffer
	buf  []byte // frame buffer
	snp  []byte // snappy buffer
	tmp  []byte // scratch buffer
}

// NewRunWriter wraps a writer and returns a RunWriter.
func NewRunWriter[K, V any](w io.Writer, codec PageCodec[K, V], keys KeySerializer[K], o *RunOptions) *RunWriter[K, V] {
	o = o.norm()
	return &RunWriter[K, V]{
		w:     w,
		o:     o,
		codec: codec,
		keys:  keys,
		bloom: NewBloomFilter[K](o.ExpectedEntries, keys, &BloomOptions{FalsePositiveRate: o.FalsePositiveRate}),
		page:  make([]byte, o.PageSize),
		tmp:   make([]byte, 2*binary.MaxVarintLen64),
	}
}

// Write stores all entries of src, page by page. Every call starts on a
// fresh page. If src exposes an Err() error method, like RunIterator, its
// error is returned once src is exhausted.
func (w *RunWriter[K, V]) Write(src Source[Entry[K, V]]) error {
	if w.tmp == nil {
		return errClosed
	}

	ps := &pageSource[K, V]{src: BloomSource(src, w.bloom), keys: w.keys}
	defer func() { w.numEntries += ps.n }()

	var pending *Entry[K, V]
	for {
		ps.reset(pending)

		n, next := w.codec.Store(pending, ps, w.o.MaxEntriesPerPage, w.page, 0)
		if n == 0 {
			if next != nil {
				return errEntryTooLarge
			}
			return sourceErr(src)
		}

		if err := w.flushPage(ps.first, w.page[:n]); err != nil {
			return err
		}

		pending = next
		if pending == nil && ps.done {
			return sourceErr(src)
		}
	}
}

func sourceErr(src any) error {
	if s, ok := src.(interface{ Err() error }); ok {
		return s.Err()
	}
	return nil
}

// BloomFilter returns the bloom filter over all keys written so far.
func (w *RunWriter[K, V]) BloomFilter() *BloomFilter[K] { return w.bloom }

// NumPages returns the number of data pages written so far.
func (w *RunWriter[K, V]) NumPages() int { return len(w.firstKeys) }

// Close writes the summary and the footer. It does not close the
// underlying writer.
func (w *RunWriter[K, V]) Close() error {
	if w.tmp == nil {
		return errClosed
	}

	dataPages := len(w.frames)
	if err := w.writeSummary(); err != nil {
		return err
	}
	summaryPages := len(w.frames) - dataPages

	indexOffset := w.offset
	if err := w.writeIndex(); err != nil {
		return err
	}
	if err := w.writeFooter(indexOffset, dataPages, summaryPages); err != nil {
		return err
	}

	w.o.Logger.Debug("lsmpage: run closed",
		"kind", w.codec.Descriptor().Kind.String(),
		"entries", w.numEntries,
		"pages", dataPages,
		"summaryPages", summaryPages,
		"bytes", w.offset,
	)
	w.tmp = nil
	return nil
}

func (w *RunWriter[K, V]) flushPage(firstKey, payload []byte) error {
	w.firstKeys = append(w.firstKeys, append([]byte(nil), firstKey...))

	w.o.Logger.Debug("lsmpage: page flushed",
		"page", w.o.FirstPage+uint32(len(w.firstKeys)-1),
		"bytes", len(payload),
	)
	return w.writeFrame(payload)
}

func (w *RunWriter[K, V]) writeSummary() error {
	entries := make([]SummaryEntry[K], 0, len(w.firstKeys))
	for i, enc := range w.firstKeys {
		key, _ := w.keys.Get(enc, 0)
		entries = append(entries, SummaryEntry[K]{Key: key, Page: w.o.FirstPage + uint32(i)})
	}

	codec := NewSummaryCodec[K](w.keys)
	src := SliceSource(entries)

	var pending *SummaryEntry[K]
	for {
		n, next := codec.Store(pending, src, w.o.MaxEntriesPerPage, w.page, 0)
		if n == 0 {
			if next != nil {
				return errEntryTooLarge
			}
			return nil
		}
		if err := w.writeFrame(w.page[:n]); err != nil {
			return err
		}
		pending = next
	}
}

func (w *RunWriter[K, V]) writeFrame(payload []byte) error {
	switch w.o.Compression {
	case SnappyCompression:
		w.snp = snappy.Encode(w.snp[:cap(w.snp)], payload)
		if len(w.snp) < len(payload)-len(payload)/4 {
			w.buf = append(append(w.buf[:0], w.snp...), frameSnappyCompression)
		} else {
			w.buf = append(append(w.buf[:0], payload...), frameNoCompression)
		}
	default:
		w.buf = append(append(w.buf[:0], payload...), frameNoCompression)
	}

	binary.LittleEndian.PutUint64(w.tmp, xxhash.Sum64(w.buf))
	w.buf = append(w.buf, w.tmp[:8]...)

	w.frames = append(w.frames, w.offset)
	return w.writeRaw(w.buf)
}

func (w *RunWriter[K, V]) writeIndex() error {
	var prev int64
	for _, off := range w.frames {
		n := binary.PutUvarint(w.tmp, uint64(off-prev))
		prev = off

		if err := w.writeRaw(w.tmp[:n]); err != nil {
			return err
		}
	}
	return nil
}

func (w *RunWriter[K, V]) writeFooter(indexOffset int64, dataPages, summaryPages int) error {
	var footer [footerLen]byte
	binary.LittleEndian.PutUint64(footer[0:], uint64(indexOffset))
	binary.LittleEndian.PutUint64(footer[8:], w.numEntries)
	binary.LittleEndian.PutUint32(footer[16:], uint32(dataPages))
	binary.LittleEndian.PutUint32(footer[20:], uint32(summaryPages))
	binary.LittleEndian.PutUint32(footer[24:], w.o.FirstPage)
	binary.LittleEndian.PutUint32(footer[28:], uint32(w.o.MaxEntriesPerPage))
	desc := w.codec.Descriptor().bytes()
	copy(footer[32:], desc[:])
	copy(footer[34:], magic)
	return w.writeRaw(footer[:])
}

func (w *RunWriter[K, V]) writeRaw(p []byte) error {
	n, err := w.w.Write(p)
	w.offset += int64(n)
	return err
}

// --------------------------------------------------------------------

// pageSource tracks the first key of the page currently being stored and
// whether the wrapped source is exhausted. The key is kept serialized, as
// keys may reference buffers owned by the source.
type pageSource[K, V any] struct {
	src  Source[Entry[K, V]]
	keys KeySerializer[K]

	first    []byte
	hasFirst bool
	done     bool
	n        uint64
}

func (s *pageSource[K, V]) reset(pending *Entry[K, V]) {
	s.hasFirst = false
	if pending != nil {
		s.capture(pending.Key)
	}
}

func (s *pageSource[K, V]) capture(key K) {
	n := s.keys.Size(key)
	if cap(s.first) < n {
		s.first = make([]byte, n)
	}
	s.first = s.first[:n]
	s.keys.Put(s.first, 0, key)
	s.hasFirst = true
}

func (s *pageSource[K, V]) Next() bool {
	if s.done || !s.src.Next() {
		s.done = true
		return false
	}
	s.n++
	if !s.hasFirst {
		s.capture(s.src.Entry().Key)
	}
	return true
}

func (s *pageSource[K, V]) Entry() Entry[K, V] { return s.src.Entry() }

// --------------------------------------------------------------------

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
