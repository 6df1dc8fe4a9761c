package lsmpage_test

import (
	"bytes"
	"log/slog"

	"github.com/bsm/lsmpage"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("RunWriter", func() {
	var buf *bytes.Buffer
	var subject *lsmpage.RunWriter[lsmpage.Triple, lsmpage.Triple]

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		subject = lsmpage.NewRunWriter[lsmpage.Triple, lsmpage.Triple](buf, lsmpage.NewTripleCodec(lsmpage.SPO), lsmpage.TripleSerializer{Order: lsmpage.SPO}, &lsmpage.RunOptions{
			PageSize: 256,
		})
	})

	AfterEach(func() {
		_ = subject.Close()
	})

	It("should write empty", func() {
		Expect(subject.Close()).To(Succeed())
		Expect(buf.Len()).To(Equal(42))
		Expect(buf.String()[buf.Len()-8:]).To(Equal("LSMPage1"))
	})

	It("should reject writes after close", func() {
		Expect(subject.Close()).To(Succeed())
		Expect(subject.Write(lsmpage.SliceSource(seedDenseTriples(1)))).To(MatchError(`lsmpage: is closed`))
		Expect(subject.Close()).To(MatchError(`lsmpage: is closed`))
	})

	It("should write pages", func() {
		Expect(subject.Write(lsmpage.SliceSource(seedDenseTriples(1000)))).To(Succeed())
		Expect(subject.NumPages()).To(BeNumerically(">", 3))
		Expect(subject.Close()).To(Succeed())
		Expect(buf.String()[buf.Len()-8:]).To(Equal("LSMPage1"))
	})

	It("should build a bloom filter while writing", func() {
		entries := seedDenseTriples(500)
		Expect(subject.Write(lsmpage.SliceSource(entries))).To(Succeed())

		filter := subject.BloomFilter()
		for _, ent := range entries {
			Expect(filter.Has(ent.Key)).To(BeTrue())
		}
	})

	It("should reject entries larger than a page", func() {
		w := lsmpage.NewRunWriter[uint64, []byte](new(bytes.Buffer), lsmpage.NewKeyValueCodec[uint64, []byte](lsmpage.Uint64Serializer{}, lsmpage.BytesSerializer{}), lsmpage.Uint64Serializer{}, &lsmpage.RunOptions{
			PageSize: 16,
		})
		err := w.Write(lsmpage.SliceSource([]lsmpage.Entry[uint64, []byte]{
			{Key: 1, Value: []byte("short")},
			{Key: 2, Value: bytes.Repeat([]byte{'x'}, 32)},
		}))
		Expect(err).To(MatchError(`lsmpage: entry does not fit into an empty page`))
	})

	It("should log", func() {
		logs := new(bytes.Buffer)
		w := lsmpage.NewRunWriter[lsmpage.Triple, lsmpage.Triple](new(bytes.Buffer), lsmpage.NewTripleCodec(lsmpage.SPO), lsmpage.TripleSerializer{}, &lsmpage.RunOptions{
			Logger: slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		})
		Expect(w.Write(lsmpage.SliceSource(seedDenseTriples(10)))).To(Succeed())
		Expect(w.Close()).To(Succeed())
		Expect(logs.String()).To(ContainSubstring(`msg="lsmpage: page flushed" page=0`))
		Expect(logs.String()).To(ContainSubstring(`msg="lsmpage: run closed" kind=triple entries=10 pages=1`))
	})
})
