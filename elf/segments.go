// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"
	"iter"

	"github.com/WonderfulToolchain/elfview/region"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Segment is a program header together with its position in the program header table.
type Segment struct {
	ProgramHeader
	Index int
}

// loadedRange is the file-backed part of a PT_LOAD segment, placed at its virtual address.
type loadedRange struct {
	Segment
}

func (r loadedRange) Offset() uint64 {
	return r.VAddr
}

func (r loadedRange) Size() uint64 {
	return r.FileSize
}

// SegmentTable is a bounds-checked view of the program header table.
type SegmentTable struct {
	file    *File
	headers entries[ProgramHeader]
	loads   *region.RegionList[loadedRange]
}

// Segments derives the program header table from the file header. A count of
// PN_XNUM is replaced by sh_info of section 0.
func (f *File) Segments() (*SegmentTable, error) {
	t := &SegmentTable{
		file:    f,
		headers: entries[ProgramHeader]{layout: f.layout.programHeader, order: f.order},
		loads:   region.NewRegionList[loadedRange](),
	}

	count := uint64(f.header.ProgHdrCount)
	if f.header.ProgHdrOffset == 0 || count == 0 {
		return t, nil
	}
	if count == PN_XNUM {
		zero, ok, err := f.sectionZero()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrap(ErrInvalidIndex, "extended program header count without section 0")
		}
		count = uint64(zero.Info)
	}

	if err := checkEntrySize(uint64(f.header.ProgHdrEntrySize), f.layout.programHeader.size()); err != nil {
		level.Debug(f.opts.logger).Log("msg", "invalid program header table", "entsize", f.header.ProgHdrEntrySize, "err", err)
		return nil, errors.WithMessage(err, "program header")
	}
	size := uint64(f.layout.programHeader.size())
	if count > uint64(len(f.data))/size {
		return nil, errors.Wrapf(ErrOutOfBounds, "%d program headers at %#x", count, f.header.ProgHdrOffset)
	}
	b, err := sliceAt(f.data, f.header.ProgHdrOffset, count*size)
	if err != nil {
		return nil, errors.WithMessage(err, "program header table")
	}
	if t.headers, err = newEntries(b, f.layout.programHeader, f.order); err != nil {
		return nil, err
	}

	for _, s := range t.All() {
		if s.Type == PT_LOAD {
			t.loads.Insert(loadedRange{s})
		}
	}
	return t, nil
}

func (t *SegmentTable) Len() int {
	return t.headers.Len()
}

// Segment returns the header at index i.
func (t *SegmentTable) Segment(i int) (Segment, error) {
	ph, err := t.headers.get(i)
	if err != nil {
		return Segment{}, errors.WithMessage(err, "segment")
	}
	return Segment{ProgramHeader: ph, Index: i}, nil
}

// All iterates over every segment in table order.
func (t *SegmentTable) All() iter.Seq2[int, Segment] {
	return func(yield func(int, Segment) bool) {
		for i := range t.Len() {
			s, err := t.Segment(i)
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
func (t *SegmentTable) RawHeader(i int) ([]byte, error) {
	return t.headers.raw(i)
}

// Data returns the file-backed bytes of segment i.
func (t *SegmentTable) Data(i int) ([]byte, error) {
	s, err := t.Segment(i)
	if err != nil {
		return nil, err
	}
	b, err := sliceAt(t.file.data, s.Offset, s.FileSize)
	if err != nil {
		level.Debug(t.file.opts.logger).Log("msg", "segment data outside file", "segment", i, "offset", s.Offset, "size", s.FileSize)
		return nil, errors.WithMessagef(err, "data of segment %d", i)
	}
	return b, nil
}

// OffsetOf translates the virtual address range [addr, addr+size) to a file
// offset through the PT_LOAD segment that holds it in the file.
func (t *SegmentTable) OffsetOf(addr uint64, size uint64) (uint64, error) {
	ok, load := t.loads.FindRange(addr, size)
	if !ok {
		return 0, errors.Wrapf(ErrOutOfBounds, "address range %#x+%#x is not in a loaded segment", addr, size)
	}
	return load.ProgramHeader.Offset + (addr - load.VAddr), nil
}

// DataAt returns the file bytes backing the virtual address range [addr, addr+size).
func (t *SegmentTable) DataAt(addr uint64, size uint64) ([]byte, error) {
	offset, err := t.OffsetOf(addr, size)
	if err != nil {
		return nil, err
	}
	return sliceAt(t.file.data, offset, size)
}

// Interpreter returns the path named by the PT_INTERP segment.
func (t *SegmentTable) Interpreter() (string, bool, error) {
	for i, s := range t.All() {
		if s.Type != PT_INTERP {
			continue
		}
		b, err := t.Data(i)
		if err != nil {
			return "", false, err
		}
		if end := bytes.IndexByte(b, 0); end >= 0 {
			b = b[:end]
		}
		return string(b), true, nil
	}
	return "", false, nil
}
