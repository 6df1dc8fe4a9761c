package lsmpage

// pageCodec encodes and decodes single values of type T on a page. prev is
// nil for the first value of a page, which is always stored in raw form.
type pageCodec[T any] interface {
	// size returns the exact number of bytes encode would append at c.
	size(c *cursor, v, prev *T) int
	encode(page []byte, c *cursor, v, prev *T)
	decode(page []byte, c *cursor, dst, prev *T)
}

// storePage appends up to max values to page, starting at off. The pending
// value, if any, is stored first, followed by values pulled from src.
//
// It returns the offset reached and, when the page is full, the value that
// did not fit. That value has been consumed from src and must be passed as
// pending to the next call. No value is ever partially written.
func storePage[T any](pc pageCodec[T], pending *T, src Source[T], max int, page []byte, off int) (int, *T) {
	c := newCursor(off)

	var cur, prev T
	for i := 0; i < max; i++ {
		if pending != nil {
			cur, pending = *pending, nil
		} else if src != nil && src.Next() {
			cur = src.Entry()
		} else {
			break
		}

		var pp *T
		if i != 0 {
			pp = &prev
		}
		if c.off+pc.size(&c, &cur, pp) > len(page) {
			return c.off, &cur
		}
		pc.encode(page, &c, &cur, pp)
		prev = cur
	}
	return c.off, pending
}

// --------------------------------------------------------------------

// Iterator decodes values lazily out of a single page. The first value is
// decoded in raw form, every subsequent one against its predecessor.
// Iterators are not safe for concurrent use and must not be used once the
// underlying page is recycled.
type Iterator[T any] struct {
	pc   pageCodec[T]
	page []byte
	c    cursor

	maxBytes int // offset at which decoding stops
	max      int // maximum number of values
	n        int // number of values decoded

	cur, prev T
}

func newIterator[T any](pc pageCodec[T], page []byte, off, maxBytes, max int) *Iterator[T] {
	if maxBytes > len(page) {
		maxBytes = len(page)
	}
	return &Iterator[T]{
		pc:       pc,
		page:     page,
		c:        newCursor(off),
		maxBytes: maxBytes,
		max:      max,
	}
}

// More returns true if another value can be decoded.
func (it *Iterator[T]) More() bool {
	return it.n < it.max && it.c.off < it.maxBytes
}

// Next decodes the next value and returns true if successful.
func (it *Iterator[T]) Next() bool {
	if !it.More() {
		return false
	}

	if it.n == 0 {
		it.pc.decode(it.page, &it.c, &it.cur, nil)
	} else {
		it.prev = it.cur
		it.pc.decode(it.page, &it.c, &it.cur, &it.prev)
	}
	it.n++
	return true
}

// Decode decodes the next value into the caller-owned dst. It returns false
// when the page is exhausted.
func (it *Iterator[T]) Decode(dst *T) bool {
	if !it.Next() {
		return false
	}
	*dst = it.cur
	return true
}

// Entry returns the current value. Values which reference the page (e.g.
// byte slices) must be copied if used beyond the next cursor move.
func (it *Iterator[T]) Entry() T { return it.cur }

// Offset returns the page offset right after the current value.
func (it *Iterator[T]) Offset() int { return it.c.off }

// Count returns the number of values decoded so far.
func (it *Iterator[T]) Count() int { return it.n }
