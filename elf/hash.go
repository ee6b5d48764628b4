// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// SysvHash is the symbol hash function of SHT_HASH tables.
func SysvHash(name string) uint32 {
	h := uint32(0)
	for _, c := range []byte(name) {
		h = 16*h + uint32(c)
		h ^= h >> 24 & 0xf0
	}
	return h & 0xfffffff
}

// GnuHash is the symbol hash function of SHT_GNU_HASH tables.
func GnuHash(name string) uint32 {
	h := uint32(5381)
	for _, c := range []byte(name) {
		h += h*32 + uint32(c)
	}
	return h
}

// HashTable is a SysV SHT_HASH table. Its words are 32-bit in both classes.
type HashTable struct {
	file        *File
	bucketCount uint32
	chainCount  uint32
	buckets     []byte
	chains      []byte
}

func newHashTable(f *File, data []byte) (*HashTable, error) {
	hdr, err := hashHeaderLayout.decode(data, f.order)
	if err != nil {
		return nil, errors.WithMessage(err, "hash table header")
	}
	size := uint64(hashHeaderLayout.size())
	words := uint64(hdr.BucketCount) + uint64(hdr.ChainCount)
	if words*4 > uint64(len(data))-size {
		return nil, errors.Wrapf(ErrTruncated, "hash table with %d buckets and %d chains in %d bytes", hdr.BucketCount, hdr.ChainCount, len(data))
	}
	buckets := data[size : size+uint64(hdr.BucketCount)*4]
	return &HashTable{
		file:        f,
		bucketCount: hdr.BucketCount,
		chainCount:  hdr.ChainCount,
		buckets:     buckets,
		chains:      data[size+uint64(len(buckets)) : size+words*4],
	}, nil
}

func (h *HashTable) BucketCount() uint32 {
	return h.bucketCount
}

// ChainCount is the number of symbols the table covers.
func (h *HashTable) ChainCount() uint32 {
	return h.chainCount
}

// Find looks name up in symbols, which must be the table the hash table was built for.
func (h *HashTable) Find(name string, symbols *SymbolTable) (Symbol, bool, error) {
	if h.bucketCount == 0 {
		return Symbol{}, false, nil
	}
	hash := SysvHash(name)
	i := h.file.order.Uint32(h.buckets[uint64(hash%h.bucketCount)*4:])
	for steps := uint32(0); i != 0; steps++ {
		if steps >= h.chainCount {
			return Symbol{}, false, errors.Wrapf(ErrMalformedChain, "hash chain for %q does not terminate", name)
		}
		if i >= h.chainCount {
			return Symbol{}, false, errors.Wrapf(ErrInvalidIndex, "hash chain entry %d of %d", i, h.chainCount)
		}
		sym, ok, err := matchSymbol(symbols, i, name)
		if err != nil || ok {
			return sym, ok, err
		}
		i = h.file.order.Uint32(h.chains[uint64(i)*4:])
	}
	return Symbol{}, false, nil
}

// GnuHashTable is a SHT_GNU_HASH table. Bloom filter words are as wide as an address.
type GnuHashTable struct {
	file    *File
	header  gnuHashHeader
	bloom   entries[uint64]
	buckets []byte
	chains  []byte
}

// gnuChainRead, if set, is called with each symbol index read from a GNU
// hash chain array. Tests use it to observe bloom filter rejections.
var gnuChainRead func(index uint32)

func newGnuHashTable(f *File, data []byte) (*GnuHashTable, error) {
	hdr, err := gnuHashHeaderLayout.decode(data, f.order)
	if err != nil {
		return nil, errors.WithMessage(err, "GNU hash table header")
	}
	if hdr.BucketCount != 0 && hdr.BloomCount == 0 {
		return nil, errors.Wrap(ErrSizeMismatch, "GNU hash table without bloom filter words")
	}
	rest := data[gnuHashHeaderLayout.size():]
	bloomSize := uint64(hdr.BloomCount) * uint64(f.layout.wordSize)
	bucketSize := uint64(hdr.BucketCount) * 4
	if bloomSize+bucketSize > uint64(len(rest)) {
		return nil, errors.Wrapf(ErrTruncated, "GNU hash table with %d bloom words and %d buckets in %d bytes", hdr.BloomCount, hdr.BucketCount, len(data))
	}
	bloom, err := newEntries(rest[:bloomSize], f.layout.word, f.order)
	if err != nil {
		return nil, err
	}
	return &GnuHashTable{
		file:    f,
		header:  hdr,
		bloom:   bloom,
		buckets: rest[bloomSize : bloomSize+bucketSize],
		chains:  rest[bloomSize+bucketSize:],
	}, nil
}

func (h *GnuHashTable) BucketCount() uint32 {
	return h.header.BucketCount
}

// SymbolBase is the index of the first symbol the table covers.
func (h *GnuHashTable) SymbolBase() uint32 {
	return h.header.SymbolBase
}

// MayContain reports whether the bloom filter admits a name with the given hash.
func (h *GnuHashTable) MayContain(hash uint32) (bool, error) {
	if h.header.BucketCount == 0 {
		return false, nil
	}
	bits := uint32(h.file.layout.wordSize * 8)
	word, err := h.bloom.get(int((hash / bits) % h.header.BloomCount))
	if err != nil {
		return false, err
	}
	mask := uint64(1)<<(hash%bits) | uint64(1)<<((hash>>h.header.BloomShift)%bits)
	return word&mask == mask, nil
}

// Find looks name up in symbols, which must be the table the hash table was built for.
func (h *GnuHashTable) Find(name string, symbols *SymbolTable) (Symbol, bool, error) {
	hash := GnuHash(name)
	ok, err := h.MayContain(hash)
	if err != nil || !ok {
		return Symbol{}, false, err
	}

	i := h.file.order.Uint32(h.buckets[uint64(hash%h.header.BucketCount)*4:])
	if i == 0 {
		return Symbol{}, false, nil
	}
	if i < h.header.SymbolBase {
		return Symbol{}, false, errors.Wrapf(ErrInvalidIndex, "GNU hash bucket starts at symbol %d below base %d", i, h.header.SymbolBase)
	}
	for {
		offset := uint64(i-h.header.SymbolBase) * 4
		if offset+4 > uint64(len(h.chains)) {
			return Symbol{}, false, errors.Wrapf(ErrTruncated, "GNU hash chain entry for symbol %d", i)
		}
		if gnuChainRead != nil {
			gnuChainRead(i)
		}
		stored := h.file.order.Uint32(h.chains[offset:])
		if stored|1 == hash|1 {
			sym, ok, err := matchSymbol(symbols, i, name)
			if err != nil || ok {
				return sym, ok, err
			}
		}
		if stored&1 != 0 {
			return Symbol{}, false, nil
		}
		i++
	}
}

func matchSymbol(symbols *SymbolTable, i uint32, name string) (Symbol, bool, error) {
	sym, err := symbols.Symbol(int(i))
	if err != nil {
		return Symbol{}, false, err
	}
	n, err := symbols.strings.Bytes(sym.NameOffset)
	if err != nil {
		return Symbol{}, false, errors.WithMessagef(err, "name of symbol %d", i)
	}
	if string(n) != name {
		return Symbol{}, false, nil
	}
	return sym, true, nil
}

// HashTable returns the SysV hash table of section i.
func (t *SectionTable) HashTable(i int) (*HashTable, error) {
	data, err := t.dataOfType(i, SHT_HASH)
	if err != nil {
		return nil, err
	}
	h, err := newHashTable(t.file, data)
	if err != nil {
		level.Debug(t.file.opts.logger).Log("msg", "invalid hash table", "section", i, "err", err)
		return nil, errors.WithMessagef(err, "section %d", i)
	}
	return h, nil
}

// GnuHashTable returns the GNU hash table of section i.
func (t *SectionTable) GnuHashTable(i int) (*GnuHashTable, error) {
	data, err := t.dataOfType(i, SHT_GNU_HASH)
	if err != nil {
		return nil, err
	}
	h, err := newGnuHashTable(t.file, data)
	if err != nil {
		level.Debug(t.file.opts.logger).Log("msg", "invalid GNU hash table", "section", i, "err", err)
		return nil, errors.WithMessagef(err, "section %d", i)
	}
	return h, nil
}

func (t *SectionTable) dataOfType(i int, typ SectionHeaderType) ([]byte, error) {
	s, err := t.Section(i)
	if err != nil {
		return nil, err
	}
	if s.Type != typ {
		return nil, errors.Wrapf(ErrInvalidIndex, "section %d has type %#x, expected %#x", i, uint32(s.Type), uint32(typ))
	}
	return t.Data(i)
}

// HashTable returns the SysV hash table built for this symbol table, if any.
func (t *SymbolTable) HashTable() (*HashTable, bool, error) {
	s, ok := t.sections.linked(SHT_HASH, t.index)
	if !ok || t.symbols.Len() == 0 {
		return nil, false, nil
	}
	h, err := t.sections.HashTable(s.Index)
	return h, err == nil, err
}

// GnuHashTable returns the GNU hash table built for this symbol table, if any.
func (t *SymbolTable) GnuHashTable() (*GnuHashTable, bool, error) {
	s, ok := t.sections.linked(SHT_GNU_HASH, t.index)
	if !ok || t.symbols.Len() == 0 {
		return nil, false, nil
	}
	h, err := t.sections.GnuHashTable(s.Index)
	return h, err == nil, err
}

// Lookup finds name through the GNU hash table, then the SysV hash table,
// falling back to a linear scan when the table has neither.
func (t *SymbolTable) Lookup(name string) (Symbol, bool, error) {
	if gnu, ok, err := t.GnuHashTable(); err != nil {
		return Symbol{}, false, err
	} else if ok {
		return gnu.Find(name, t)
	}
	if sysv, ok, err := t.HashTable(); err != nil {
		return Symbol{}, false, err
	} else if ok {
		return sysv.Find(name, t)
	}
	return t.SymbolByName(name)
}
