package lsmpage_test

import (
	"github.com/bsm/lsmpage"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("SummaryCodec", func() {
	type sumEntry = lsmpage.SummaryEntry[uint64]

	var subject *lsmpage.SummaryCodec[uint64]

	BeforeEach(func() {
		subject = lsmpage.NewSummaryCodec[uint64](lsmpage.Uint64Serializer{})
	})

	It("should store the first page number only", func() {
		entries := []sumEntry{
			{Key: 100, Page: 300},
			{Key: 110, Page: 301},
			{Key: 125, Page: 302},
		}
		page := make([]byte, 32)

		n, pending := subject.Store(nil, lsmpage.SliceSource(entries), 10, page, 0)
		Expect(pending).To(BeNil())
		Expect(page[:n]).To(Equal([]byte{0xAC, 0x02, 100, 10, 15}))
		Expect(collect[sumEntry](subject.Entries(page, 0, n, 10))).To(Equal(entries))
	})

	It("should number pages by counting", func() {
		var entries []sumEntry
		for i := 0; i < 500; i++ {
			entries = append(entries, sumEntry{Key: uint64(i * 1000), Page: uint32(7 + i)})
		}

		pages := paginate[sumEntry](subject.Store, entries, 64, 1000)
		Expect(len(pages)).To(BeNumerically(">", 1))

		var last uint32
		for n, page := range pages {
			iter := subject.Entries(page, 0, len(page), 1000)
			for i := 0; iter.Next(); i++ {
				pno := iter.Entry().Page
				if n != 0 || i != 0 {
					Expect(pno).To(Equal(last + 1))
				}
				last = pno
			}
		}
		Expect(last).To(Equal(uint32(506)))

		Expect(decodePages[sumEntry](subject.Entries, pages, 1000)).To(Equal(entries))
	})

	It("should support triple keys", func() {
		codec := lsmpage.NewSummaryCodec[lsmpage.Triple](lsmpage.TripleSerializer{Order: lsmpage.OSP})
		entries := []lsmpage.SummaryEntry[lsmpage.Triple]{
			{Key: lsmpage.Triple{1, 2, 3}, Page: 0},
			{Key: lsmpage.Triple{2, 2, 3}, Page: 1},
			{Key: lsmpage.Triple{9, 1, 4}, Page: 2},
		}
		pages := paginate[lsmpage.SummaryEntry[lsmpage.Triple]](codec.Store, entries, 16, 10)
		Expect(decodePages[lsmpage.SummaryEntry[lsmpage.Triple]](codec.Entries, pages, 10)).To(Equal(entries))
	})
})
