package lsmpage_test

import (
	"github.com/bsm/lsmpage"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("BloomFilter", func() {
	It("should be populated by a source", func() {
		entries := seedDenseTriples(1000)
		filter := lsmpage.NewBloomFilter[lsmpage.Triple](len(entries), lsmpage.TripleSerializer{}, nil)

		src := lsmpage.BloomSource(lsmpage.SliceSource(entries), filter)
		Expect(collect(src)).To(Equal(entries))

		for _, ent := range entries {
			Expect(filter.Has(ent.Key)).To(BeTrue(), "for %v", ent.Key)
		}

		misses := 0
		for i := uint32(0); i < 1000; i++ {
			if filter.Has(lsmpage.Triple{100 + i, i, i}) {
				misses++
			}
		}
		Expect(misses).To(BeNumerically("<", 50))
	})

	It("should add keys directly", func() {
		filter := lsmpage.NewBloomFilter[[]byte](0, lsmpage.BytesSerializer{}, &lsmpage.BloomOptions{FalsePositiveRate: 0.001})
		filter.Add([]byte("foo"))
		Expect(filter.Has([]byte("foo"))).To(BeTrue())
	})

	It("should wrap page iterators", func() {
		codec := lsmpage.NewKeyValueCodec[uint64, []byte](lsmpage.Uint64Serializer{}, lsmpage.BytesSerializer{})
		page := make([]byte, 64)
		n, _ := codec.Store(nil, lsmpage.SliceSource([]lsmpage.Entry[uint64, []byte]{
			{Key: 11, Value: []byte("x")},
			{Key: 22, Removed: true},
			{Key: 33, Value: []byte("z")},
		}), 10, page, 0)

		filter := lsmpage.NewBloomFilter[uint64](3, lsmpage.Uint64Serializer{}, nil)
		src := lsmpage.BloomSource[uint64, []byte](codec.Entries(page, 0, n, 10), filter)
		Expect(collect(src)).To(HaveLen(3))
		Expect(filter.Has(11)).To(BeTrue())
		Expect(filter.Has(22)).To(BeTrue())
		Expect(filter.Has(33)).To(BeTrue())
	})
})
