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

const testInterpreter = "/lib64/ld-linux-x86-64.so.2"

func executableElf(class FileClass, endian FileEndian) *testElf {
	b := minimalElf(class, endian)
	b.typ = ET_EXEC
	b.addSection(&testSection{Name: ".interp", Type: SHT_PROGBITS, Flags: SHF_ALLOC, AddrAlign: 1, Data: []byte(testInterpreter + "\x00")})
	b.addSegment(&testSegment{Type: PT_INTERP, Flags: PF_R, Align: 1, Section: ".interp"})
	b.addSegment(&testSegment{Type: PT_LOAD, Flags: PF_R | PF_X, Align: 0x1000})
	return b
}

func TestSegmentTable(t *testing.T) {
	for _, tc := range testClasses {
		t.Run(tc.name, func(t *testing.T) {
			b := executableElf(tc.class, tc.endian)
			data := b.bytes()
			f, err := Parse(data)
			require.NoError(t, err)
			segments, err := f.Segments()
			require.NoError(t, err)
			require.Equal(t, 2, segments.Len())

			entsize := uint64(f.Header().ProgHdrEntrySize)
			for i, s := range segments.All() {
				assert.Equal(t, i, s.Index)
				raw, err := segments.RawHeader(i)
				require.NoError(t, err)
				start := f.Header().ProgHdrOffset + uint64(i)*entsize
				assert.Equal(t, data[start:start+entsize], raw)
			}

			interp, err := segments.Segment(0)
			require.NoError(t, err)
			assert.Equal(t, PT_INTERP, interp.Type)
			assert.Equal(t, PF_R, interp.Flags)
			assert.Equal(t, b.offsetOf(".interp"), interp.Offset)
			assert.Equal(t, b.addrOf(".interp"), interp.VAddr)

			path, ok, err := segments.Interpreter()
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, testInterpreter, path)

			load, err := segments.Data(1)
			require.NoError(t, err)
			assert.Equal(t, data, load)

			_, err = segments.Segment(2)
			assert.True(t, errors.Is(err, ErrInvalidIndex))
		})
	}
}

func TestSegmentAddressTranslation(t *testing.T) {
	for _, tc := range testClasses {
		t.Run(tc.name, func(t *testing.T) {
			b := executableElf(tc.class, tc.endian)
			f, err := b.parse()
			require.NoError(t, err)
			segments, err := f.Segments()
			require.NoError(t, err)

			offset, err := segments.OffsetOf(b.addrOf(".text"), 3)
			require.NoError(t, err)
			assert.Equal(t, b.offsetOf(".text"), offset)

			code, err := segments.DataAt(b.addrOf(".text"), 3)
			require.NoError(t, err)
			assert.Equal(t, []byte{0x90, 0x90, 0xc3}, code)

			_, err = segments.OffsetOf(0x1000, 4)
			assert.True(t, errors.Is(err, ErrOutOfBounds), "below the loaded segment")
			size := uint64(len(f.Data()))
			_, err = segments.OffsetOf(testBase+size-2, 4)
			assert.True(t, errors.Is(err, ErrOutOfBounds), "crossing the end of the loaded segment")
		})
	}
}

func TestSegmentDataTruncated(t *testing.T) {
	b := executableElf(ELFCLASS64, ELFDATA2LSB)
	b.segments[0].FileSize = 0x100000
	f, err := b.parse()
	require.NoError(t, err)
	segments, err := f.Segments()
	require.NoError(t, err)

	_, err = segments.Data(0)
	assert.True(t, errors.Is(err, ErrTruncated))
	_, _, err = segments.Interpreter()
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestNoSegments(t *testing.T) {
	f, err := minimalElf(ELFCLASS32, ELFDATA2LSB).parse()
	require.NoError(t, err)
	segments, err := f.Segments()
	require.NoError(t, err)
	assert.Equal(t, 0, segments.Len())
	_, ok, err := segments.Interpreter()
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = segments.OffsetOf(testBase, 1)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestSegmentNotNote(t *testing.T) {
	f, err := executableElf(ELFCLASS32, ELFDATA2MSB).parse()
	require.NoError(t, err)
	segments, err := f.Segments()
	require.NoError(t, err)
	_, err = segments.Notes(1)
	assert.True(t, errors.Is(err, ErrInvalidIndex))
}
