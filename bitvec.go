package lsmpage

// cursor tracks the write/read position within a page. Payload bytes are
// appended at off, flag bits are packed into the bit-vector byte at bits.
// Once a bit-vector byte is exhausted the next bit claims a fresh byte at
// off, so bit-vector bytes are interleaved with the payload.
type cursor struct {
	off  int  // next payload byte
	bits int  // offset of the active bit-vector byte
	bit  uint // next bit within the active byte, 8 when exhausted
}

func newCursor(off int) cursor {
	return cursor{off: off, bits: -1, bit: 8}
}

// bitBytes returns the number of bit-vector bytes that writing n more bits
// would claim.
func (c *cursor) bitBytes(n int) int {
	free := 8 - int(c.bit)
	if n <= free {
		return 0
	}
	return (n - free + 7) / 8
}

func (c *cursor) write1Bit(page []byte, set bool) {
	if c.bit == 8 {
		c.bits = c.off
		page[c.off] = 0
		c.off++
		c.bit = 0
	}
	if set {
		page[c.bits] |= 1 << c.bit
	}
	c.bit++
}

func (c *cursor) read1Bit(page []byte) bool {
	if c.bit == 8 {
		c.bits = c.off
		c.off++
		c.bit = 0
	}
	set := page[c.bits]>>c.bit&1 == 1
	c.bit++
	return set
}

// write2Bits stores a length in 1..4 as two bits.
func (c *cursor) write2Bits(page []byte, n int) {
	v := n - 1
	c.write1Bit(page, v&1 != 0)
	c.write1Bit(page, v&2 != 0)
}

func (c *cursor) readLengthOfInteger(page []byte) int {
	n := 1
	if c.read1Bit(page) {
		n++
	}
	if c.read1Bit(page) {
		n += 2
	}
	return n
}

// writeInt stores the n least significant bytes of v, lowest first.
func (c *cursor) writeInt(page []byte, v uint32, n int) {
	for i := 0; i < n; i++ {
		page[c.off] = byte(v)
		v >>= 8
		c.off++
	}
}

func (c *cursor) readInteger(page []byte, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		v |= uint32(page[c.off]) << (8 * uint(i))
		c.off++
	}
	return v
}

// intLength returns the number of bytes needed to store v, at least 1.
func intLength(v uint32) int {
	switch {
	case v < 1<<8:
		return 1
	case v < 1<<16:
		return 2
	case v < 1<<24:
		return 3
	default:
		return 4
	}
}
