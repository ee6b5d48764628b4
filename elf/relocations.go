// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// relocationRegion is one REL, RELA or RELR table, read from a section or
// located through the dynamic table.
type relocationRegion struct {
	kind RelocationKind
	data []byte
}

// RelocationIterator walks one or more relocation tables in order. Use it
// like a bufio.Scanner:
//
//	for it.Next() {
//		r := it.Relocation()
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type RelocationIterator struct {
	file    *File
	regions []relocationRegion
	region  int
	offset  int
	current Relocation
	err     error

	// RELR state: relrBase is the address following the last explicit
	// entry, relrBitmap holds the bits of the current bitmap entry not yet
	// visited and relrAddr is the address the lowest of them stands for.
	relrBase   uint64
	relrBitmap uint64
	relrAddr   uint64
}

func newRelocationIterator(f *File, regions []relocationRegion) *RelocationIterator {
	return &RelocationIterator{file: f, regions: regions}
}

// Next advances to the next relocation. It returns false at the end of the
// last table or on error.
func (it *RelocationIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.region < len(it.regions) {
		r := &it.regions[it.region]
		var ok bool
		if r.kind == RelocationRELR {
			ok, it.err = it.nextRelr(r.data)
		} else {
			ok, it.err = it.nextRel(r)
		}
		if it.err != nil {
			return false
		}
		if ok {
			return true
		}
		it.region++
		it.offset = 0
		it.relrBase, it.relrBitmap, it.relrAddr = 0, 0, 0
	}
	return false
}

// Relocation returns the relocation Next advanced to.
func (it *RelocationIterator) Relocation() Relocation {
	return it.current
}

func (it *RelocationIterator) Err() error {
	return it.err
}

// Collect drains the iterator.
func (it *RelocationIterator) Collect() ([]Relocation, error) {
	var relocations []Relocation
	for it.Next() {
		relocations = append(relocations, it.Relocation())
	}
	return relocations, it.Err()
}

func (it *RelocationIterator) nextRel(r *relocationRegion) (bool, error) {
	layout := it.file.layout.rel
	if r.kind == RelocationRELA {
		layout = it.file.layout.rela
	}
	if it.offset >= len(r.data) {
		return false, nil
	}
	rel, err := layout.decode(r.data[it.offset:], it.file.order)
	if err != nil {
		return false, errors.WithMessagef(err, "relocation at %#x", it.offset)
	}
	it.offset += layout.size()
	rel.splitInfo(it.file.header.Class, it.file.isMips64el())
	it.current = rel
	return true, nil
}

// nextRelr decodes the compact relative relocation format: an even word is
// an address to relocate, an odd word is a bitmap of the words following the
// previous address, one bit per word.
func (it *RelocationIterator) nextRelr(data []byte) (bool, error) {
	word := uint64(it.file.layout.wordSize)
	for {
		for it.relrBitmap != 0 {
			set := it.relrBitmap&1 != 0
			addr := it.relrAddr
			it.relrBitmap >>= 1
			it.relrAddr += word
			if set {
				it.emitRelr(addr)
				return true, nil
			}
		}

		if it.offset >= len(data) {
			return false, nil
		}
		w, err := it.file.layout.word.decode(data[it.offset:], it.file.order)
		if err != nil {
			return false, errors.WithMessagef(err, "relative relocation at %#x", it.offset)
		}
		it.offset += int(word)

		if w&1 == 0 {
			it.emitRelr(w)
			it.relrBase = w + word
			return true, nil
		}
		it.relrBitmap = w >> 1
		it.relrAddr = it.relrBase
		it.relrBase += (word*8 - 1) * word
	}
}

func (it *RelocationIterator) emitRelr(addr uint64) {
	it.current = Relocation{
		Offset: addr,
		Type:   relativeRelocationType(it.file.header.Machine),
		Kind:   RelocationRELR,
	}
}

// Relocations iterates over the SHT_REL, SHT_RELA or SHT_RELR section i.
func (t *SectionTable) Relocations(i int) (*RelocationIterator, error) {
	s, err := t.Section(i)
	if err != nil {
		return nil, err
	}
	var kind RelocationKind
	var size int
	switch s.Type {
	case SHT_REL:
		kind, size = RelocationREL, t.file.layout.rel.size()
	case SHT_RELA:
		kind, size = RelocationRELA, t.file.layout.rela.size()
	case SHT_RELR:
		kind, size = RelocationRELR, t.file.layout.wordSize
	default:
		return nil, errors.Wrapf(ErrUnsupported, "section %d of type %#x has no relocations", i, uint32(s.Type))
	}
	if err := checkEntrySize(s.EntrySize, size); err != nil {
		return nil, errors.WithMessagef(err, "relocation section %d", i)
	}
	data, err := t.Data(i)
	if err != nil {
		return nil, err
	}
	if len(data)%size != 0 {
		return nil, errors.Wrapf(ErrSizeMismatch, "relocation section %d has %d bytes, entry size %d", i, len(data), size)
	}
	return newRelocationIterator(t.file, []relocationRegion{{kind: kind, data: data}}), nil
}

// dynamicRelocationTable names the dynamic tags describing one relocation table.
type dynamicRelocationTable struct {
	kind                RelocationKind
	address, size, ents DynamicTag
}

var dynamicRelocationTables = []dynamicRelocationTable{
	{RelocationRELA, DT_RELA, DT_RELASZ, DT_RELAENT},
	{RelocationREL, DT_REL, DT_RELSZ, DT_RELENT},
	{RelocationRELR, DT_RELR, DT_RELRSZ, DT_RELRENT},
}

// DynamicRelocations iterates over the relocation tables named by the dynamic
// table: DT_RELA, DT_REL, DT_RELR and the PLT relocations at DT_JMPREL, in
// that order. Addresses are mapped to the file through PT_LOAD segments.
func (f *File) DynamicRelocations() (*RelocationIterator, error) {
	d, ok, err := f.Dynamic()
	if err != nil {
		return nil, err
	}
	if !ok {
		return newRelocationIterator(f, nil), nil
	}
	if d.Has(DT_ANDROID_REL, DT_ANDROID_RELSZ, DT_ANDROID_RELA, DT_ANDROID_RELASZ, DT_ANDROID_RELR, DT_ANDROID_RELRSZ) {
		return nil, errors.Wrap(ErrUnsupported, "Android packed relocations")
	}

	var regions []relocationRegion
	for _, table := range dynamicRelocationTables {
		addr, ok := d.Value(table.address)
		if !ok {
			continue
		}
		size, ok := d.Value(table.size)
		if !ok {
			return nil, errors.Wrapf(ErrSizeMismatch, "dynamic tag %#x without size", int64(table.address))
		}
		if ent, ok := d.Value(table.ents); ok {
			if err := checkEntrySize(ent, f.relocationEntrySize(table.kind)); err != nil {
				return nil, errors.WithMessagef(err, "dynamic tag %#x", int64(table.ents))
			}
		}
		region, err := f.dynamicRelocationRegion(d, table.kind, addr, size)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}

	if addr, ok := d.Value(DT_JMPREL); ok {
		size, ok := d.Value(DT_PLTRELSZ)
		if !ok {
			return nil, errors.Wrap(ErrSizeMismatch, "DT_JMPREL without DT_PLTRELSZ")
		}
		pltrel, _ := d.Value(DT_PLTREL)
		var kind RelocationKind
		switch DynamicTag(pltrel) {
		case DT_REL:
			kind = RelocationREL
		case DT_RELA:
			kind = RelocationRELA
		default:
			return nil, errors.Wrapf(ErrUnsupported, "DT_PLTREL %d", pltrel)
		}
		region, err := f.dynamicRelocationRegion(d, kind, addr, size)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}
	return newRelocationIterator(f, regions), nil
}

func (f *File) relocationEntrySize(kind RelocationKind) int {
	switch kind {
	case RelocationREL:
		return f.layout.rel.size()
	case RelocationRELA:
		return f.layout.rela.size()
	}
	return f.layout.wordSize
}

func (f *File) dynamicRelocationRegion(d *DynamicTable, kind RelocationKind, addr, size uint64) (relocationRegion, error) {
	if size%uint64(f.relocationEntrySize(kind)) != 0 {
		return relocationRegion{}, errors.Wrapf(ErrSizeMismatch, "relocation table at %#x has %d bytes", addr, size)
	}
	if size == 0 {
		return relocationRegion{kind: kind}, nil
	}
	data, err := d.segments.DataAt(addr, size)
	if err != nil {
		level.Debug(f.opts.logger).Log("msg", "dynamic relocations not mapped", "addr", addr, "size", size, "err", err)
		return relocationRegion{}, errors.WithMessage(err, "dynamic relocations")
	}
	return relocationRegion{kind: kind, data: data}, nil
}
