// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalElf(class FileClass, endian FileEndian) *testElf {
	b := newTestElf(class, endian)
	b.addSection(&testSection{Name: ".text", Type: SHT_PROGBITS, Flags: SHF_ALLOC | SHF_EXECINSTR, AddrAlign: 16, Data: []byte{0x90, 0x90, 0xc3}})
	return b
}

func TestParseHeader(t *testing.T) {
	for _, tc := range testClasses {
		t.Run(tc.name, func(t *testing.T) {
			b := minimalElf(tc.class, tc.endian)
			f, err := b.parse()
			require.NoError(t, err)

			h := f.Header()
			assert.Equal(t, tc.class, f.Class())
			assert.Equal(t, tc.endian, h.Endian)
			assert.Equal(t, ET_DYN, h.Type)
			assert.Equal(t, EM_X86_64, h.Machine)
			assert.Equal(t, uint32(EV_CURRENT), h.Version)
			assert.Equal(t, uint16(3), h.SecHdrCount, "null, .text, .shstrtab")
			assert.Equal(t, uint16(2), h.SecHdrStrIdx)
			assert.Equal(t, byteOrder(tc.endian), f.ByteOrder())
			assert.Equal(t, b.bytes(), f.Data())
		})
	}
}

func TestParseRejects(t *testing.T) {
	valid := minimalElf(ELFCLASS64, ELFDATA2LSB).bytes()
	patched := func(offset int, value byte) []byte {
		data := bytes.Clone(valid)
		data[offset] = value
		return data
	}

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrTruncated},
		{"short identification", valid[:8], ErrTruncated},
		{"bad magic", patched(1, 'X'), ErrInvalidMagic},
		{"bad class", patched(EI_CLASS, 3), ErrUnsupportedClass},
		{"no class", patched(EI_CLASS, 0), ErrUnsupportedClass},
		{"bad endianness", patched(EI_DATA, 3), ErrUnsupportedEndianness},
		{"bad identification version", patched(EI_VERSION, 2), ErrUnsupportedVersion},
		{"short header", valid[:EI_NIDENT+10], ErrTruncated},
		{"bad file version", patched(EI_NIDENT+4, 2), ErrUnsupportedVersion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Parse(tc.data)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tc.err), "got %v, want %v", err, tc.err)
		})
	}
}

func TestParseLogsRejectedHeader(t *testing.T) {
	var buf bytes.Buffer
	_, err := Parse([]byte("not an ELF file"), WithLogger(log.NewLogfmtLogger(&buf)))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "rejected ELF header")
}

func TestSectionTableOutOfBounds(t *testing.T) {
	for _, tc := range testClasses {
		t.Run(tc.name, func(t *testing.T) {
			data := minimalElf(tc.class, tc.endian).bytes()
			// the section header table is last, cut its final byte
			f, err := Parse(data[:len(data)-1])
			require.NoError(t, err)

			_, err = f.Sections()
			assert.True(t, errors.Is(err, ErrOutOfBounds))
			assert.True(t, errors.Is(err, ErrTruncated))

			_, _, err = f.SectionByName(".text")
			assert.True(t, errors.Is(err, ErrTruncated))
			_, err = f.Symbols()
			assert.True(t, errors.Is(err, ErrTruncated))
		})
	}
}

func TestSectionEntrySizeMismatch(t *testing.T) {
	data := minimalElf(ELFCLASS64, ELFDATA2LSB).bytes()
	// e_shentsize of a 64-bit header
	binary.LittleEndian.PutUint16(data[EI_NIDENT+42:], 100)
	f, err := Parse(data)
	require.NoError(t, err)
	_, err = f.Sections()
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestProgramHeaderTableOutOfBounds(t *testing.T) {
	b := minimalElf(ELFCLASS32, ELFDATA2MSB)
	b.addSegment(&testSegment{Type: PT_LOAD, Flags: PF_R | PF_X, Align: 0x1000})
	data := b.bytes()
	// e_phnum of a 32-bit header
	binary.BigEndian.PutUint16(data[EI_NIDENT+28:], 0x4000)
	f, err := Parse(data)
	require.NoError(t, err)
	_, err = f.Segments()
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestExtendedCounts(t *testing.T) {
	for _, tc := range testClasses {
		t.Run(tc.name, func(t *testing.T) {
			b := minimalElf(tc.class, tc.endian)
			b.addSegment(&testSegment{Type: PT_LOAD, Align: 0x1000})
			b.extendedCounts = true
			f, err := b.parse()
			require.NoError(t, err)
			assert.Equal(t, uint16(0), f.Header().SecHdrCount)
			assert.Equal(t, uint16(SHN_XINDEX), f.Header().SecHdrStrIdx)

			sections, err := f.Sections()
			require.NoError(t, err)
			assert.Equal(t, 3, sections.Len())
			assert.Equal(t, 2, sections.StringIndex())
			name, err := sections.Name(1)
			require.NoError(t, err)
			assert.Equal(t, ".text", name)

			segments, err := f.Segments()
			require.NoError(t, err)
			assert.Equal(t, 1, segments.Len())
		})
	}
}

func TestNoSectionTable(t *testing.T) {
	b := minimalElf(ELFCLASS64, ELFDATA2LSB)
	b.noSections = true
	f, err := b.parse()
	require.NoError(t, err)

	sections, err := f.Sections()
	require.NoError(t, err)
	assert.Equal(t, 0, sections.Len())
	_, ok, err := f.SectionByName(".text")
	require.NoError(t, err)
	assert.False(t, ok)
	symbols, err := f.Symbols()
	require.NoError(t, err)
	assert.Equal(t, 0, symbols.Len())
}

func TestSectionData(t *testing.T) {
	f, err := minimalElf(ELFCLASS64, ELFDATA2MSB).parse()
	require.NoError(t, err)
	data, err := f.SectionData(".text")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x90, 0xc3}, data)

	_, err = f.SectionData(".data")
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}
