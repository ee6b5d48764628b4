// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"encoding/binary"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// File is a parsed ELF file. It borrows data for its whole lifetime and never
// modifies it; every table is derived on demand from the header, so a File
// may be shared between goroutines as long as data is not written to.
type File struct {
	data   []byte
	header FileHeader
	layout *classLayout
	order  binary.ByteOrder
	opts   options
}

// Parse validates the identification and file header of data.
func Parse(data []byte, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	fh, layout, err := readFileHeader(data)
	if err != nil {
		level.Debug(o.logger).Log("msg", "rejected ELF header", "size", len(data), "err", err)
		return nil, err
	}
	if int(fh.HeaderSize) < EI_NIDENT+layout.fileHeader.size() {
		return nil, errors.Wrapf(ErrSizeMismatch, "header size %d", fh.HeaderSize)
	}

	f := &File{
		data:   data,
		header: fh,
		layout: layout,
		order:  byteOrder(fh.Endian),
		opts:   o,
	}
	level.Debug(o.logger).Log(
		"msg", "parsed ELF header",
		"class", fh.Class,
		"endian", fh.Endian,
		"type", fh.Type,
		"machine", fh.Machine,
		"sections", fh.SecHdrCount,
		"segments", fh.ProgHdrCount,
	)
	return f, nil
}

func (f *File) Header() FileHeader {
	return f.header
}

func (f *File) Class() FileClass {
	return f.header.Class
}

func (f *File) ByteOrder() binary.ByteOrder {
	return f.order
}

// Data returns the buffer the file was parsed from.
func (f *File) Data() []byte {
	return f.data
}

// isMips64el reports whether relocation info words use the MIPS64 little-endian layout.
func (f *File) isMips64el() bool {
	return f.header.Class == ELFCLASS64 && f.header.Endian == ELFDATA2LSB && f.header.Machine == EM_MIPS
}

// sectionZero reads the first section header, which holds the real section
// count, string table index and segment count when they overflow the file header.
func (f *File) sectionZero() (SectionHeader, bool, error) {
	if f.header.SecHdrOffset == 0 {
		return SectionHeader{}, false, nil
	}
	if err := checkEntrySize(uint64(f.header.SecHdrEntrySize), f.layout.sectionHeader.size()); err != nil {
		return SectionHeader{}, false, errors.WithMessage(err, "section header")
	}
	b, err := sliceAt(f.data, f.header.SecHdrOffset, uint64(f.layout.sectionHeader.size()))
	if err != nil {
		return SectionHeader{}, false, errors.WithMessage(err, "section header table")
	}
	sh, err := f.layout.sectionHeader.decode(b, f.order)
	if err != nil {
		return SectionHeader{}, false, err
	}
	return sh, true, nil
}

// sectionsOrNil returns the section table, or nil when it cannot be read.
// Segment-based lookups use it to fall back to the program headers.
func (f *File) sectionsOrNil() *SectionTable {
	sections, err := f.Sections()
	if err != nil {
		level.Debug(f.opts.logger).Log("msg", "ignoring section header table", "err", err)
		return nil
	}
	return sections
}

// SectionByName returns the first section called name, in table order.
func (f *File) SectionByName(name string) (Section, bool, error) {
	sections, err := f.Sections()
	if err != nil {
		return Section{}, false, err
	}
	return sections.SectionByName(name)
}

// SectionData returns the file bytes of the first section called name.
func (f *File) SectionData(name string) ([]byte, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, err
	}
	s, ok, err := sections.SectionByName(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrInvalidIndex, "no section %q", name)
	}
	return sections.Data(s.Index)
}
