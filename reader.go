package lsmpage

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

const footerLen = 42

var errBadIndex = errors.New("lsmpage: bad frame index")

// RunReader instances can seek and iterate across the entries of a run.
type RunReader[K, V any] struct {
	r       io.ReaderAt
	codec   PageCodec[K, V]
	keys    KeySerializer[K]
	compare func(a, b K) int

	frames     []int64
	maxOffset  int64 // end of the last frame
	dataPages  int
	firstPage  uint32
	perPage    int
	numEntries uint64
	summary    []SummaryEntry[K]
}

// NewRunReader opens a run. The codec must match the one the run was
// written with, compare must implement the order of the keys.
func NewRunReader[K, V any](r io.ReaderAt, size int64, codec PageCodec[K, V], keys KeySerializer[K], compare func(a, b K) int) (*RunReader[K, V], error) {
	if size < footerLen {
		return nil, errBadMagic
	}

	// read footer
	footerOffset := size - footerLen
	footer := make([]byte, footerLen)
	if _, err := r.ReadAt(footer, footerOffset); err != nil {
		return nil, errors.Wrap(err, "lsmpage: read footer")
	}

	// parse footer
	if !bytes.Equal(footer[34:], magic) {
		return nil, errBadMagic
	}
	desc, err := parseDescriptor(footer[32:34])
	if err != nil {
		return nil, err
	}
	if want := codec.Descriptor(); desc.Kind != want.Kind || desc.Order != want.Order {
		return nil, errors.Wrapf(errBadDescriptor, "run has %s/%s, codec is %s/%s", desc.Kind, desc.Order, want.Kind, want.Order)
	}

	rr := &RunReader[K, V]{
		r:          r,
		codec:      codec,
		keys:       keys,
		compare:    compare,
		numEntries: binary.LittleEndian.Uint64(footer[8:]),
		dataPages:  int(binary.LittleEndian.Uint32(footer[16:])),
		firstPage:  binary.LittleEndian.Uint32(footer[24:]),
		perPage:    int(binary.LittleEndian.Uint32(footer[28:])),
	}
	summaryPages := int(binary.LittleEndian.Uint32(footer[20:]))

	// read index
	indexOffset := int64(binary.LittleEndian.Uint64(footer[0:]))
	if indexOffset < 0 || indexOffset > footerOffset {
		return nil, errBadIndex
	}
	index := make([]byte, footerOffset-indexOffset)
	if _, err := r.ReadAt(index, indexOffset); err != nil {
		return nil, errors.Wrap(err, "lsmpage: read index")
	}

	var off int64
	for pos := 0; pos < len(index); {
		u, n := binary.Uvarint(index[pos:])
		if n <= 0 {
			return nil, errBadIndex
		}
		pos += n
		off += int64(u)
		rr.frames = append(rr.frames, off)
	}
	if len(rr.frames) != rr.dataPages+summaryPages {
		return nil, errBadIndex
	}
	rr.maxOffset = indexOffset

	// read summary
	if err := rr.readSummary(); err != nil {
		return nil, err
	}
	return rr, nil
}

func (r *RunReader[K, V]) readSummary() error {
	codec := NewSummaryCodec[K](r.keys)
	for fpos := r.dataPages; fpos < len(r.frames); fpos++ {
		page, err := r.readFrame(fpos)
		if err != nil {
			return err
		}

		iter := codec.Entries(page, 0, len(page), math.MaxInt32)
		for iter.Next() {
			r.summary = append(r.summary, iter.Entry())
		}
	}
	if len(r.summary) != r.dataPages {
		return errBadIndex
	}
	return nil
}

// NumPages returns the number of data pages.
func (r *RunReader[K, V]) NumPages() int { return r.dataPages }

// NumEntries returns the number of entries, including tombstones.
func (r *RunReader[K, V]) NumEntries() uint64 { return r.numEntries }

// FirstPage returns the absolute number of the first page.
func (r *RunReader[K, V]) FirstPage() uint32 { return r.firstPage }

// Summary returns the first key of every data page.
func (r *RunReader[K, V]) Summary() []SummaryEntry[K] { return r.summary }

// ReadPage returns an iterator over the entries of the n-th data page.
func (r *RunReader[K, V]) ReadPage(n int) (*Iterator[Entry[K, V]], error) {
	if n < 0 || n >= r.dataPages {
		return nil, errors.Errorf("lsmpage: page %d out of range [0,%d)", n, r.dataPages)
	}
	page, err := r.readFrame(n)
	if err != nil {
		return nil, err
	}
	return r.codec.Entries(page, 0, len(page), r.perPage), nil
}

// Iter returns an iterator over all entries of the run.
func (r *RunReader[K, V]) Iter() *RunIterator[K, V] {
	return &RunIterator[K, V]{r: r, ppos: -1}
}

// Seek returns an iterator starting at the first entry with a key >= key.
func (r *RunReader[K, V]) Seek(key K) (*RunIterator[K, V], error) {
	// page before the first one starting at or after key; keys may repeat
	// across page boundaries
	ppos := sort.Search(len(r.summary), func(i int) bool {
		return r.compare(r.summary[i].Key, key) >= 0
	}) - 1
	if ppos < 0 {
		ppos = 0
	}

	iter := &RunIterator[K, V]{r: r, ppos: ppos - 1}
	for iter.Next() {
		if r.compare(iter.Entry().Key, key) >= 0 {
			iter.held = true
			break
		}
	}
	return iter, iter.Err()
}

// Get retrieves a single entry for a key. Removed entries are returned
// with Removed set, as they shadow older runs. It may return an
// ErrNotFound error.
func (r *RunReader[K, V]) Get(key K) (Entry[K, V], error) {
	iter, err := r.Seek(key)
	if err != nil {
		return Entry[K, V]{}, err
	}

	if !iter.Next() || r.compare(iter.Entry().Key, key) != 0 {
		iter.Release()
		return Entry[K, V]{}, ErrNotFound
	}

	// not released, the entry may reference the page
	return iter.Entry(), nil
}

// BloomFilter rebuilds the bloom filter of the run in a single scan.
func (r *RunReader[K, V]) BloomFilter(o *BloomOptions) (*BloomFilter[K], error) {
	f := NewBloomFilter[K](int(r.numEntries), r.keys, o)

	iter := r.Iter()
	defer iter.Release()

	src := BloomSource[K, V](iter, f)
	for src.Next() {
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

func (r *RunReader[K, V]) readFrame(fpos int) ([]byte, error) {
	min := r.frames[fpos]
	max := r.maxOffset
	if next := fpos + 1; next < len(r.frames) {
		max = r.frames[next]
	}
	if max-min < 9 {
		return nil, errBadIndex
	}

	raw := fetchBuffer(int(max - min))
	if _, err := r.r.ReadAt(raw, min); err != nil {
		releaseBuffer(raw)
		return nil, errors.Wrapf(err, "lsmpage: read frame %d", fpos)
	}

	body := raw[:len(raw)-8]
	if xxhash.Sum64(body) != binary.LittleEndian.Uint64(raw[len(body):]) {
		releaseBuffer(raw)
		return nil, errors.Wrapf(errBadChecksum, "frame %d", fpos)
	}

	switch cpos := len(body) - 1; body[cpos] {
	case frameNoCompression:
		return body[:cpos], nil
	case frameSnappyCompression:
		defer releaseBuffer(raw)

		sz, err := snappy.DecodedLen(body[:cpos])
		if err != nil {
			return nil, errors.Wrapf(err, "lsmpage: decode frame %d", fpos)
		}

		plain := fetchBuffer(sz)
		page, err := snappy.Decode(plain, body[:cpos])
		if err != nil {
			releaseBuffer(plain)
			return nil, errors.Wrapf(err, "lsmpage: decode frame %d", fpos)
		}
		return page, nil
	default:
		releaseBuffer(raw)
		return nil, errBadCompression
	}
}

// --------------------------------------------------------------------

// RunIterator (forward-) iterates over entries across page boundaries.
// It is a Source, so runs can be copied into other runs.
type RunIterator[K, V any] struct {
	r    *RunReader[K, V]
	ppos int // the current page position
	page []byte
	iter *Iterator[Entry[K, V]]
	held bool // the current entry was positioned by Seek, but not consumed

	err error
}

// Next advances the cursor to the next entry and returns true if successful.
func (i *RunIterator[K, V]) Next() bool {
	if i.err != nil {
		return false
	}
	if i.held {
		i.held = false
		return true
	}

	for {
		if i.iter != nil && i.iter.Next() {
			return true
		}

		// more pages
		next := i.ppos + 1
		if next >= i.r.dataPages {
			return false
		}

		page, err := i.r.readFrame(next)
		if err != nil {
			i.err = err
			return false
		}

		// the previous page is not released, entries handed out (and
		// pending entries of a run copy) may still reference it
		i.ppos, i.page = next, page
		i.iter = i.r.codec.Entries(page, 0, len(page), i.r.perPage)
	}
}

// Entry returns the current entry. Please note that values may be
// temporary buffers and must be copied if used beyond the next cursor move.
func (i *RunIterator[K, V]) Entry() Entry[K, V] { return i.iter.Entry() }

// Page returns the absolute number of the current page. Before the first
// page is read it returns the number of the first page of the run.
func (i *RunIterator[K, V]) Page() uint32 {
	if i.ppos < 0 {
		return i.r.firstPage
	}
	return i.r.firstPage + uint32(i.ppos)
}

// Err exposes iterator errors, if any.
func (i *RunIterator[K, V]) Err() error {
	return i.err
}

// Release releases the iterator and frees up resources. The iterator must
// not be used after this method is called.
func (i *RunIterator[K, V]) Release() {
	releaseBuffer(i.page)
	i.page, i.iter = nil, nil
	i.err = errReleased
}

// --------------------------------------------------------------------

var bufPool sync.Pool

func fetchBuffer(sz int) []byte {
	if v := bufPool.Get(); v != nil {
		if p := v.([]byte); sz <= cap(p) {
			return p[:sz]
		}
	}
	return make([]byte, sz)
}

func releaseBuffer(p []byte) {
	if cap(p) != 0 {
		bufPool.Put(p)
	}
}
