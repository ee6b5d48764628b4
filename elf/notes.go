// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Note is one record of a note section or segment.
type Note struct {
	Type uint32
	// Name is the owner of the note, without its terminating NUL.
	Name []byte
	Desc []byte
}

// NoteIterator walks the variable-length records of a note region.
type NoteIterator struct {
	data    []byte
	order   binary.ByteOrder
	align   uint64
	offset  uint64
	current Note
	err     error
}

// newNoteIterator accepts the alignment of the section or segment. Anything
// up to 4 means 4-byte aligned records.
func newNoteIterator(data []byte, order binary.ByteOrder, align uint64) (*NoteIterator, error) {
	switch {
	case align <= 4:
		align = 4
	case align == 8:
	default:
		return nil, errors.Wrapf(ErrUnsupported, "note alignment %d", align)
	}
	return &NoteIterator{data: data, order: order, align: align}, nil
}

func (it *NoteIterator) Next() bool {
	if it.err != nil || it.offset >= uint64(len(it.data)) {
		return false
	}
	rest := it.data[it.offset:]
	hdr, err := noteHeaderLayout.decode(rest, it.order)
	if err != nil {
		it.err = errors.WithMessagef(err, "note at %#x", it.offset)
		return false
	}

	nameStart := uint64(noteHeaderLayout.size())
	nameEnd := nameStart + uint64(hdr.NameSize)
	descStart := alignUp(nameEnd, it.align)
	descEnd := descStart + uint64(hdr.DescSize)
	if nameEnd > uint64(len(rest)) || descEnd > uint64(len(rest)) {
		it.err = errors.Wrapf(ErrTruncated, "note at %#x with %d name and %d descriptor bytes", it.offset, hdr.NameSize, hdr.DescSize)
		return false
	}

	name := rest[nameStart:nameEnd]
	if n := len(name); n > 0 && name[n-1] == 0 {
		name = name[:n-1]
	}
	it.current = Note{Type: hdr.Type, Name: name, Desc: rest[descStart:descEnd]}
	it.offset += alignUp(descEnd, it.align)
	return true
}

func (it *NoteIterator) Note() Note {
	return it.current
}

func (it *NoteIterator) Err() error {
	return it.err
}

// Notes iterates over the records of the SHT_NOTE section i.
func (t *SectionTable) Notes(i int) (*NoteIterator, error) {
	data, err := t.dataOfType(i, SHT_NOTE)
	if err != nil {
		return nil, err
	}
	s, _ := t.Section(i)
	it, err := newNoteIterator(data, t.file.order, s.AddrAlign)
	if err != nil {
		return nil, errors.WithMessagef(err, "section %d", i)
	}
	return it, nil
}

// Notes iterates over the records of the PT_NOTE segment i.
func (t *SegmentTable) Notes(i int) (*NoteIterator, error) {
	s, err := t.Segment(i)
	if err != nil {
		return nil, err
	}
	if s.Type != PT_NOTE {
		return nil, errors.Wrapf(ErrInvalidIndex, "segment %d has type %#x, not a note segment", i, uint32(s.Type))
	}
	data, err := t.Data(i)
	if err != nil {
		return nil, err
	}
	it, err := newNoteIterator(data, t.file.order, s.Align)
	if err != nil {
		return nil, errors.WithMessagef(err, "segment %d", i)
	}
	return it, nil
}

// BuildID returns the descriptor of the GNU build ID note. Note sections are
// searched first, then note segments when the file has no usable sections.
func (f *File) BuildID() ([]byte, bool, error) {
	var regions []*NoteIterator

	sections := f.sectionsOrNil()
	if sections != nil {
		for _, s := range sections.OfType(SHT_NOTE) {
			it, err := sections.Notes(s.Index)
			if err != nil {
				return nil, false, err
			}
			regions = append(regions, it)
		}
	}
	if sections == nil || sections.Len() == 0 {
		segments, err := f.Segments()
		if err != nil {
			return nil, false, err
		}
		for i, s := range segments.All() {
			if s.Type != PT_NOTE {
				continue
			}
			it, err := segments.Notes(i)
			if err != nil {
				return nil, false, err
			}
			regions = append(regions, it)
		}
	}

	for _, it := range regions {
		for it.Next() {
			n := it.Note()
			if n.Type == NT_GNU_BUILD_ID && bytes.Equal(n.Name, ELF_NOTE_GNU) {
				return n.Desc, true, nil
			}
		}
		if err := it.Err(); err != nil {
			return nil, false, err
		}
	}
	return nil, false, nil
}
