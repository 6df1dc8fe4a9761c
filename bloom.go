package lsmpage

import "github.com/AndreasBriese/bbloom"

// BloomOptions define bloom filter specific options.
type BloomOptions struct {
	// FalsePositiveRate is the targeted false positive probability.
	// Default: 0.01.
	FalsePositiveRate float64
}

func (o *BloomOptions) norm() *BloomOptions {
	var oo BloomOptions
	if o != nil {
		oo = *o
	}

	if oo.FalsePositiveRate <= 0 || oo.FalsePositiveRate >= 1 {
		oo.FalsePositiveRate = 0.01
	}
	return &oo
}

// BloomFilter is a bloom filter over the keys of a run. It is not safe for
// concurrent use.
type BloomFilter[K any] struct {
	keys  KeyEncoder[K]
	bloom bbloom.Bloom
	tmp   []byte
}

// NewBloomFilter creates a filter sized for maxRunLength keys.
func NewBloomFilter[K any](maxRunLength int, keys KeyEncoder[K], o *BloomOptions) *BloomFilter[K] {
	o = o.norm()
	if maxRunLength < 1 {
		maxRunLength = 1
	}
	return &BloomFilter[K]{
		keys:  keys,
		bloom: bbloom.New(float64(maxRunLength), o.FalsePositiveRate),
	}
}

// Add inserts a key.
func (f *BloomFilter[K]) Add(key K) {
	f.tmp = f.keys.AppendKey(f.tmp[:0], key)
	f.bloom.Add(f.tmp)
}

// Has returns false if the key was definitely never added.
func (f *BloomFilter[K]) Has(key K) bool {
	f.tmp = f.keys.AppendKey(f.tmp[:0], key)
	return f.bloom.Has(f.tmp)
}

// BloomSource decorates src, adding the key of every entry pulled from it
// to f before passing the entry on unchanged. It allows a bloom filter to
// be built in the same pass that writes or re-scans a run.
func BloomSource[K, V any](src Source[Entry[K, V]], f *BloomFilter[K]) Source[Entry[K, V]] {
	return &bloomSource[K, V]{src: src, f: f}
}

type bloomSource[K, V any] struct {
	src Source[Entry[K, V]]
	f   *BloomFilter[K]
}

func (s *bloomSource[K, V]) Next() bool {
	if !s.src.Next() {
		return false
	}
	s.f.Add(s.src.Entry().Key)
	return true
}

func (s *bloomSource[K, V]) Entry() Entry[K, V] { return s.src.Entry() }
