// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"iter"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Section is a section header together with its position in the section table.
type Section struct {
	SectionHeader
	Index int
}

// SectionTable is a bounds-checked view of the section header table.
type SectionTable struct {
	file     *File
	headers  entries[SectionHeader]
	strings  StringTable
	strIndex int
}

// Sections derives the section table from the file header. Counts that do not
// fit the header (e_shnum == 0, e_shstrndx == SHN_XINDEX) are taken from section 0.
func (f *File) Sections() (*SectionTable, error) {
	t := &SectionTable{
		file:    f,
		headers: entries[SectionHeader]{layout: f.layout.sectionHeader, order: f.order},
	}

	zero, ok, err := f.sectionZero()
	if err != nil {
		level.Debug(f.opts.logger).Log("msg", "invalid section header table", "offset", f.header.SecHdrOffset, "err", err)
		return nil, err
	}
	if !ok {
		return t, nil
	}

	count := uint64(f.header.SecHdrCount)
	if count == 0 {
		count = zero.Size
	}
	size := uint64(f.layout.sectionHeader.size())
	if count > uint64(len(f.data))/size {
		return nil, errors.Wrapf(ErrOutOfBounds, "%d section headers at %#x", count, f.header.SecHdrOffset)
	}
	b, err := sliceAt(f.data, f.header.SecHdrOffset, count*size)
	if err != nil {
		return nil, errors.WithMessage(err, "section header table")
	}
	if t.headers, err = newEntries(b, f.layout.sectionHeader, f.order); err != nil {
		return nil, err
	}

	strIndex := uint32(f.header.SecHdrStrIdx)
	if strIndex == SHN_XINDEX {
		strIndex = zero.Link
	}
	if strIndex == SHN_UNDEF {
		return t, nil
	}
	if uint64(strIndex) >= count {
		return nil, errors.Wrapf(ErrInvalidIndex, "section name table index %d of %d sections", strIndex, count)
	}
	strtab, err := t.headers.get(int(strIndex))
	if err != nil {
		return nil, err
	}
	if strtab.Type != SHT_STRTAB {
		return nil, errors.Wrapf(ErrInvalidIndex, "section name table %d has type %#x", strIndex, uint32(strtab.Type))
	}
	t.strIndex = int(strIndex)
	data, err := t.Data(t.strIndex)
	if err != nil {
		return nil, err
	}
	t.strings = StringTable(data)
	return t, nil
}

func (t *SectionTable) Len() int {
	return t.headers.Len()
}

// Section returns the header at index i.
func (t *SectionTable) Section(i int) (Section, error) {
	sh, err := t.headers.get(i)
	if err != nil {
		return Section{}, errors.WithMessage(err, "section")
	}
	return Section{SectionHeader: sh, Index: i}, nil
}

// All iterates over every section in table order.
func (t *SectionTable) All() iter.Seq2[int, Section] {
	return func(yield func(int, Section) bool) {
		for i := range t.Len() {
			s, err := t.Section(i)
			if err != nil {
				return
			}
			if !yield(i, s) {
				return
			}
		}
	}
}

// RawHeader returns the undecoded bytes of the header at index i.
func (t *SectionTable) RawHeader(i int) ([]byte, error) {
	return t.headers.raw(i)
}

// StringIndex returns the index of the section name string table, or 0 if there is none.
func (t *SectionTable) StringIndex() int {
	return t.strIndex
}

// Name resolves the name of section i through the section name string table.
func (t *SectionTable) Name(i int) (string, error) {
	s, err := t.Section(i)
	if err != nil {
		return "", err
	}
	name, err := t.strings.String(s.NameOffset)
	if err != nil {
		return "", errors.WithMessagef(err, "name of section %d", i)
	}
	return name, nil
}

// SectionByName returns the first section called name.
func (t *SectionTable) SectionByName(name string) (Section, bool, error) {
	for i := range t.Len() {
		n, err := t.Name(i)
		if err != nil {
			return Section{}, false, err
		}
		if n == name {
			s, err := t.Section(i)
			return s, err == nil, err
		}
	}
	return Section{}, false, nil
}

// OfType returns every section of type typ, in table order.
func (t *SectionTable) OfType(typ SectionHeaderType) []Section {
	all := make([]Section, 0, t.Len())
	for _, s := range t.All() {
		all = append(all, s)
	}
	return lo.Filter(all, func(s Section, _ int) bool {
		return s.Type == typ
	})
}

// Data returns the file bytes of section i. SHT_NOBITS sections have none.
func (t *SectionTable) Data(i int) ([]byte, error) {
	s, err := t.Section(i)
	if err != nil {
		return nil, err
	}
	offset, size := s.FileRange()
	b, err := sliceAt(t.file.data, offset, size)
	if err != nil {
		level.Debug(t.file.opts.logger).Log("msg", "section data outside file", "section", i, "offset", offset, "size", size)
		return nil, errors.WithMessagef(err, "data of section %d", i)
	}
	return b, nil
}

// Link returns the section named by sh_link of section i.
func (t *SectionTable) Link(i int) (Section, error) {
	s, err := t.Section(i)
	if err != nil {
		return Section{}, err
	}
	if uint64(s.Link) >= uint64(t.Len()) {
		return Section{}, errors.Wrapf(ErrInvalidIndex, "section %d links to %d of %d sections", i, s.Link, t.Len())
	}
	return t.Section(int(s.Link))
}

// linked returns the first section of type typ whose sh_link is index.
func (t *SectionTable) linked(typ SectionHeaderType, index int) (Section, bool) {
	for _, s := range t.All() {
		if s.Type == typ && int(s.Link) == index {
			return s, true
		}
	}
	return Section{}, false
}
