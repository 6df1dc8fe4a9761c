package lsmpage_test

import (
	"github.com/bsm/lsmpage"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("BitCursor", func() {
	var page []byte

	BeforeEach(func() {
		page = make([]byte, 16)
	})

	It("should claim bit-vector bytes lazily", func() {
		c := lsmpage.NewBitCursor(2)
		Expect(c.Offset()).To(Equal(2))
		Expect(c.BitBytes(1)).To(Equal(1))

		c.Write1Bit(page, true)
		Expect(c.BitsOffset()).To(Equal(2))
		Expect(c.Offset()).To(Equal(3))
		Expect(c.BitBytes(7)).To(Equal(0))
		Expect(c.BitBytes(8)).To(Equal(1))
		Expect(c.BitBytes(16)).To(Equal(2))
	})

	It("should spill into the next free byte", func() {
		c := lsmpage.NewBitCursor(0)
		for i := 0; i < 7; i++ {
			c.Write1Bit(page, i%2 == 0)
		}
		c.WriteInt(page, 0xAB, 1)
		c.Write1Bit(page, true) // 8th bit, same byte
		c.Write1Bit(page, true) // spills
		Expect(c.Offset()).To(Equal(3))
		Expect(page[:3]).To(Equal([]byte{0xD5, 0xAB, 0x01}))

		r := lsmpage.NewBitCursor(0)
		for i := 0; i < 7; i++ {
			Expect(r.Read1Bit(page)).To(Equal(i%2 == 0))
		}
		Expect(r.ReadInteger(page, 1)).To(Equal(uint32(0xAB)))
		Expect(r.Read1Bit(page)).To(BeTrue())
		Expect(r.Read1Bit(page)).To(BeTrue())
		Expect(r.Offset()).To(Equal(3))
	})

	It("should write/read lengths", func() {
		c := lsmpage.NewBitCursor(0)
		for _, n := range []int{1, 2, 3, 4, 4, 1} {
			c.Write2Bits(page, n)
		}
		Expect(c.Offset()).To(Equal(2))
		Expect(page[:2]).To(Equal([]byte{0xE4, 0x03}))

		r := lsmpage.NewBitCursor(0)
		for _, n := range []int{1, 2, 3, 4, 4, 1} {
			Expect(r.ReadLengthOfInteger(page)).To(Equal(n))
		}
	})

	It("should write/read integers little-endian", func() {
		c := lsmpage.NewBitCursor(0)
		c.WriteInt(page, 0x01020304, 4)
		c.WriteInt(page, 0x0506, 2)
		Expect(page[:6]).To(Equal([]byte{4, 3, 2, 1, 6, 5}))

		r := lsmpage.NewBitCursor(0)
		Expect(r.ReadInteger(page, 4)).To(Equal(uint32(0x01020304)))
		Expect(r.ReadInteger(page, 2)).To(Equal(uint32(0x0506)))
		Expect(r.Offset()).To(Equal(6))
	})

	It("should compute integer lengths", func() {
		Expect(lsmpage.IntLength(0)).To(Equal(1))
		Expect(lsmpage.IntLength(255)).To(Equal(1))
		Expect(lsmpage.IntLength(256)).To(Equal(2))
		Expect(lsmpage.IntLength(1<<16 - 1)).To(Equal(2))
		Expect(lsmpage.IntLength(1 << 16)).To(Equal(3))
		Expect(lsmpage.IntLength(1 << 24)).To(Equal(4))
		Expect(lsmpage.IntLength(^uint32(0))).To(Equal(4))
	})
})
