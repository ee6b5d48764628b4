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

// DynamicTable is the array of dynamic entries, up to but excluding DT_NULL.
type DynamicTable struct {
	file     *File
	entries  entries[DynamicEntry]
	count    int
	segments *SegmentTable
	// strings is the section index of the linked string table, or 0 when
	// the table was found through PT_DYNAMIC.
	strings int
	// sections is set when the table came from a SHT_DYNAMIC section.
	sections *SectionTable
}

// Dynamic locates the dynamic table through the SHT_DYNAMIC section, or the
// PT_DYNAMIC segment when the file has no usable section headers. The second
// result is false for files that are not dynamically linked.
func (f *File) Dynamic() (*DynamicTable, bool, error) {
	segments, err := f.Segments()
	if err != nil {
		return nil, false, err
	}
	sections := f.sectionsOrNil()

	d := &DynamicTable{file: f, segments: segments}
	var data []byte
	var dyn []Section
	if sections != nil {
		dyn = sections.OfType(SHT_DYNAMIC)
	}
	if len(dyn) > 0 {
		s := dyn[0]
		if err := checkEntrySize(s.EntrySize, f.layout.dyn.size()); err != nil {
			return nil, false, errors.WithMessagef(err, "dynamic section %d", s.Index)
		}
		if data, err = sections.Data(s.Index); err != nil {
			return nil, false, err
		}
		d.sections = sections
		d.strings = int(s.Link)
	} else {
		found := false
		for i, s := range segments.All() {
			if s.Type != PT_DYNAMIC {
				continue
			}
			if data, err = segments.Data(i); err != nil {
				return nil, false, err
			}
			found = true
			break
		}
		if !found {
			return nil, false, nil
		}
	}

	// Trailing padding after DT_NULL is common, so only whole entries are kept.
	data = data[:len(data)-len(data)%f.layout.dyn.size()]
	if d.entries, err = newEntries(data, f.layout.dyn, f.order); err != nil {
		return nil, false, err
	}
	d.count = d.entries.Len()
	for i := range d.entries.Len() {
		e, err := d.entries.get(i)
		if err != nil {
			return nil, false, err
		}
		if e.Tag == DT_NULL {
			d.count = i
			break
		}
	}
	return d, true, nil
}

func (d *DynamicTable) Len() int {
	return d.count
}

// Entry returns the entry at index i.
func (d *DynamicTable) Entry(i int) (DynamicEntry, error) {
	if i < 0 || i >= d.count {
		return DynamicEntry{}, errors.Wrapf(ErrInvalidIndex, "dynamic entry %d of %d", i, d.count)
	}
	return d.entries.get(i)
}

// All iterates over the entries in table order.
func (d *DynamicTable) All() iter.Seq2[int, DynamicEntry] {
	return func(yield func(int, DynamicEntry) bool) {
		for i := range d.count {
			e, err := d.entries.get(i)
			if err != nil {
				return
			}
			if !yield(i, e) {
				return
			}
		}
	}
}

// Values returns the value of every entry with the given tag.
func (d *DynamicTable) Values(tag DynamicTag) []uint64 {
	var values []uint64
	for _, e := range d.All() {
		if e.Tag == tag {
			values = append(values, e.Value)
		}
	}
	return values
}

// Value returns the value of the first entry with the given tag.
func (d *DynamicTable) Value(tag DynamicTag) (uint64, bool) {
	values := d.Values(tag)
	if len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// Has reports whether any entry carries one of tags.
func (d *DynamicTable) Has(tags ...DynamicTag) bool {
	for _, e := range d.All() {
		if lo.Contains(tags, e.Tag) {
			return true
		}
	}
	return false
}

// Strings returns the dynamic string table. The section link is used when
// present, otherwise DT_STRTAB and DT_STRSZ are mapped through the loaded segments.
func (d *DynamicTable) Strings() (StringTable, error) {
	if d.sections != nil && d.strings != 0 {
		s, err := d.sections.Section(d.strings)
		if err != nil {
			return nil, errors.WithMessage(err, "dynamic string table")
		}
		if s.Type != SHT_STRTAB {
			return nil, errors.Wrapf(ErrInvalidIndex, "dynamic string table %d has type %#x", s.Index, uint32(s.Type))
		}
		data, err := d.sections.Data(s.Index)
		if err != nil {
			return nil, err
		}
		return StringTable(data), nil
	}

	addr, ok := d.Value(DT_STRTAB)
	if !ok {
		return nil, errors.Wrap(ErrInvalidIndex, "no DT_STRTAB")
	}
	size, ok := d.Value(DT_STRSZ)
	if !ok {
		return nil, errors.Wrap(ErrInvalidIndex, "no DT_STRSZ")
	}
	data, err := d.segments.DataAt(addr, size)
	if err != nil {
		level.Debug(d.file.opts.logger).Log("msg", "dynamic string table not mapped", "addr", addr, "size", size, "err", err)
		return nil, errors.WithMessage(err, "dynamic string table")
	}
	return StringTable(data), nil
}

// String resolves the value of a string-valued entry such as DT_NEEDED.
func (d *DynamicTable) String(e DynamicEntry) (string, error) {
	if !e.Tag.IsString() {
		return "", errors.Wrapf(ErrUnsupported, "dynamic tag %#x is not a string", int64(e.Tag))
	}
	strings, err := d.Strings()
	if err != nil {
		return "", err
	}
	if e.Value > uint64(^uint32(0)) {
		return "", errors.Wrapf(ErrOutOfBounds, "dynamic string offset %#x", e.Value)
	}
	return strings.String(uint32(e.Value))
}

// Needed returns the DT_NEEDED library names in table order.
func (d *DynamicTable) Needed() ([]string, error) {
	return d.stringsOf(DT_NEEDED)
}

// SOName returns the DT_SONAME of the file.
func (d *DynamicTable) SOName() (string, bool, error) {
	names, err := d.stringsOf(DT_SONAME)
	if err != nil || len(names) == 0 {
		return "", false, err
	}
	return names[0], true, nil
}

func (d *DynamicTable) stringsOf(tag DynamicTag) ([]string, error) {
	var names []string
	for _, e := range d.All() {
		if e.Tag != tag {
			continue
		}
		name, err := d.String(e)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
