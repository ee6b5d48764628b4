// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Comdat is a SHT_GROUP section. Its data is a flag word followed by the
// indices of the member sections.
type Comdat struct {
	sections *SectionTable
	// Section is the index of the group section.
	Section int
	Flags   uint32
	// Symbol is the index of the signature symbol in the symbol table named by sh_link.
	Symbol  uint32
	members []byte
}

// Comdats returns the groups flagged GRP_COMDAT, in section table order.
func (f *File) Comdats() ([]*Comdat, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, err
	}
	var comdats []*Comdat
	for _, s := range sections.OfType(SHT_GROUP) {
		c, err := sections.Group(s.Index)
		if err != nil {
			return nil, err
		}
		if c.Flags&GRP_COMDAT != 0 {
			comdats = append(comdats, c)
		}
	}
	return comdats, nil
}

// Group decodes the SHT_GROUP section i.
func (t *SectionTable) Group(i int) (*Comdat, error) {
	data, err := t.dataOfType(i, SHT_GROUP)
	if err != nil {
		return nil, err
	}
	s, _ := t.Section(i)
	if err := checkEntrySize(s.EntrySize, 4); err != nil {
		return nil, errors.WithMessagef(err, "group section %d", i)
	}
	if len(data) < 4 {
		return nil, errors.Wrapf(ErrTruncated, "group section %d has no flag word", i)
	}
	if len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrSizeMismatch, "group section %d has %d bytes", i, len(data))
	}
	return &Comdat{
		sections: t,
		Section:  i,
		Flags:    t.file.order.Uint32(data),
		Symbol:   s.Info,
		members:  data[4:],
	}, nil
}

// Len returns the number of members.
func (c *Comdat) Len() int {
	return len(c.members) / 4
}

// Member returns the section index of member i. Indices outside the section
// table, and the group section itself, are rejected.
func (c *Comdat) Member(i int) (int, error) {
	if i < 0 || i >= c.Len() {
		return 0, errors.Wrapf(ErrInvalidIndex, "member %d of %d", i, c.Len())
	}
	index := c.sections.file.order.Uint32(c.members[i*4:])
	if uint64(index) >= uint64(c.sections.Len()) {
		return 0, errors.Wrapf(ErrInvalidIndex, "group %d member %d of %d sections", c.Section, index, c.sections.Len())
	}
	if int(index) == c.Section {
		return 0, errors.Wrapf(ErrInvalidIndex, "group %d contains itself", c.Section)
	}
	return int(index), nil
}

// Members returns every member section index.
func (c *Comdat) Members() ([]int, error) {
	members := make([]int, c.Len())
	for i := range members {
		m, err := c.Member(i)
		if err != nil {
			return nil, err
		}
		members[i] = m
	}
	return members, nil
}

// SignatureSymbol resolves the symbol that names the group.
func (c *Comdat) SignatureSymbol() (Symbol, *SymbolTable, error) {
	s, err := c.sections.Section(c.Section)
	if err != nil {
		return Symbol{}, nil, err
	}
	symbols, err := c.sections.SymbolTable(int(s.Link))
	if err != nil {
		return Symbol{}, nil, errors.WithMessagef(err, "symbols of group %d", c.Section)
	}
	sym, err := symbols.Symbol(int(c.Symbol))
	if err != nil {
		return Symbol{}, nil, errors.WithMessagef(err, "signature of group %d", c.Section)
	}
	return sym, symbols, nil
}

// Name returns the name of the signature symbol.
func (c *Comdat) Name() (string, error) {
	sym, symbols, err := c.SignatureSymbol()
	if err != nil {
		return "", err
	}
	return symbols.Name(sym)
}

// Contains reports whether section is a member of the group.
func (c *Comdat) Contains(section int) (bool, error) {
	members, err := c.Members()
	if err != nil {
		return false, err
	}
	return lo.Contains(members, section), nil
}
