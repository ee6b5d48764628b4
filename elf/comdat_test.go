// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// comdatElf builds an object file with a COMDAT group holding an inline
// function and its relocations, and a plain group holding .data.
func comdatElf(class FileClass, endian FileEndian, members ...uint32) *testElf {
	b := minimalElf(class, endian)
	b.typ = ET_REL
	inline := b.addSection(&testSection{Name: ".text._Z6inlinev", Type: SHT_PROGBITS, Flags: SHF_ALLOC | SHF_EXECINSTR | SHF_GROUP, AddrAlign: 1, Data: []byte{0xc3}})
	data := b.addSection(&testSection{Name: ".data", Type: SHT_PROGBITS, Flags: SHF_ALLOC | SHF_WRITE | SHF_GROUP, AddrAlign: 1, Data: []byte{0}})
	symtab := b.addSymbolTable(SHT_SYMTAB, ".symtab", ".strtab", []testSymbol{
		{Name: "_Z6inlinev", Info: symbolInfo(STB_WEAK, STT_FUNC), Section: uint16(inline)},
		{Name: "plain_group", Info: symbolInfo(STB_LOCAL, STT_OBJECT), Section: uint16(data)},
	})
	if members == nil {
		members = []uint32{uint32(inline)}
	}
	b.addSection(&testSection{
		Name: ".group", Type: SHT_GROUP, Link: uint32(symtab), Info: 1, AddrAlign: 4, EntrySize: 4,
		Data: b.encode(uint32(GRP_COMDAT), members),
	})
	b.addSection(&testSection{
		Name: ".group", Type: SHT_GROUP, Link: uint32(symtab), Info: 2, AddrAlign: 4, EntrySize: 4,
		Data: b.encode(uint32(0), uint32(data)),
	})
	return b
}

func TestComdats(t *testing.T) {
	for _, tc := range testClasses {
		t.Run(tc.name, func(t *testing.T) {
			b := comdatElf(tc.class, tc.endian)
			f, err := b.parse()
			require.NoError(t, err)

			comdats, err := f.Comdats()
			require.NoError(t, err)
			require.Len(t, comdats, 1)
			c := comdats[0]
			assert.Equal(t, b.sectionIndex(".group"), c.Section)
			assert.Equal(t, uint32(GRP_COMDAT), c.Flags)
			assert.Equal(t, 1, c.Len())

			members, err := c.Members()
			require.NoError(t, err)
			assert.Equal(t, []int{2}, members)
			ok, err := c.Contains(2)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = c.Contains(3)
			require.NoError(t, err)
			assert.False(t, ok)

			name, err := c.Name()
			require.NoError(t, err)
			assert.Equal(t, "_Z6inlinev", name)
			sym, _, err := c.SignatureSymbol()
			require.NoError(t, err)
			assert.Equal(t, STB_WEAK, sym.Binding())

			sections, err := f.Sections()
			require.NoError(t, err)
			plain, err := sections.Group(c.Section + 1)
			require.NoError(t, err)
			assert.Equal(t, uint32(0), plain.Flags)
			name, err = plain.Name()
			require.NoError(t, err)
			assert.Equal(t, "plain_group", name)
		})
	}
}

func TestComdatMembers(t *testing.T) {
	// .text, .text._Z6inlinev, .data, .strtab, .symtab, then the COMDAT group at 6
	for _, tc := range []struct {
		name    string
		members []uint32
	}{
		{"itself", []uint32{2, 6}},
		{"past the table", []uint32{2, 100}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := comdatElf(ELFCLASS32, ELFDATA2LSB, tc.members...)
			require.Equal(t, 6, b.sectionIndex(".group"))
			f, err := b.parse()
			require.NoError(t, err)
			comdats, err := f.Comdats()
			require.NoError(t, err)
			require.Len(t, comdats, 1)

			first, err := comdats[0].Member(0)
			require.NoError(t, err)
			assert.Equal(t, 2, first)
			_, err = comdats[0].Member(1)
			assert.True(t, errors.Is(err, ErrInvalidIndex))
			_, err = comdats[0].Members()
			assert.True(t, errors.Is(err, ErrInvalidIndex))
			_, err = comdats[0].Member(2)
			assert.True(t, errors.Is(err, ErrInvalidIndex))
		})
	}
}

func TestGroupSectionSize(t *testing.T) {
	t.Run("no flag word", func(t *testing.T) {
		b := comdatElf(ELFCLASS64, ELFDATA2LSB)
		b.section(".group").Data = []byte{1, 0}
		f, err := b.parse()
		require.NoError(t, err)
		_, err = f.Comdats()
		assert.True(t, errors.Is(err, ErrTruncated))
	})

	t.Run("partial member", func(t *testing.T) {
		b := comdatElf(ELFCLASS64, ELFDATA2LSB)
		s := b.section(".group")
		s.Data = append(s.Data, 0, 0)
		f, err := b.parse()
		require.NoError(t, err)
		_, err = f.Comdats()
		assert.True(t, errors.Is(err, ErrSizeMismatch))
	})

	t.Run("not a group", func(t *testing.T) {
		f, err := comdatElf(ELFCLASS64, ELFDATA2LSB).parse()
		require.NoError(t, err)
		sections, err := f.Sections()
		require.NoError(t, err)
		_, err = sections.Group(1)
		assert.True(t, errors.Is(err, ErrInvalidIndex))
	})
}
