// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"
	"encoding/binary"
	"slices"
)

// testBase is the virtual address the first byte of a built file is loaded at.
const testBase = 0x400000

type stringTable struct {
	strings map[string]uint32
	pos     uint32
}

func newStringTable() stringTable {
	t := stringTable{
		strings: make(map[string]uint32),
		pos:     0,
	}
	t.Add("")
	return t
}

func (e *stringTable) Add(s string) uint32 {
	if val, ok := e.strings[s]; ok {
		return val
	}
	sPos := e.pos
	e.pos += uint32(len(s)) + 1
	e.strings[s] = sPos
	return sPos
}

func (e *stringTable) ToData() []byte {
	data := make([]byte, e.pos)
	for s, i := range e.strings {
		data = slices.Replace(data, int(i), int(i)+len(s), []byte(s)...)
	}
	return data
}

type testSection struct {
	Name      string
	Type      SectionHeaderType
	Flags     SectionHeaderFlag
	Address   uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntrySize uint64
	Data      []byte
	// HeaderSize, if non-zero, replaces the size written to the header.
	HeaderSize uint64
}

func (s *testSection) size() uint64 {
	return uint64(len(s.Data))
}

type testSegment struct {
	Type  ProgramHeaderType
	Flags ProgramHeaderFlag
	Align uint64
	// Section names the section the segment covers. A PT_LOAD segment
	// without one covers the whole file.
	Section string
	// FileSize, if non-zero, replaces the size written to the header.
	FileSize uint64
}

// testElf lays out and encodes synthetic ELF files:
// file header, program headers, section data, section headers.
type testElf struct {
	class    FileClass
	endian   FileEndian
	typ      FileType
	machine  MachineType
	sections []*testSection
	segments []*testSegment

	// strIndex, if not -1, replaces e_shstrndx.
	strIndex int
	// extendedCounts stores the section count, string table index and
	// segment count in section 0.
	extendedCounts bool
	// noSections omits the section header table.
	noSections bool
}

func newTestElf(class FileClass, endian FileEndian) *testElf {
	return &testElf{
		class:    class,
		endian:   endian,
		typ:      ET_DYN,
		machine:  EM_X86_64,
		strIndex: -1,
	}
}

func (b *testElf) order() binary.ByteOrder {
	return byteOrder(b.endian)
}

func (b *testElf) layout() *classLayout {
	return layouts[b.class]
}

func (b *testElf) wordSize() int {
	return b.layout().wordSize
}

// addSection appends s and returns its index in the built file.
func (b *testElf) addSection(s *testSection) int {
	b.sections = append(b.sections, s)
	return len(b.sections)
}

func (b *testElf) section(name string) *testSection {
	for _, s := range b.sections {
		if s.Name == name {
			return s
		}
	}
	panic("no test section " + name)
}

func (b *testElf) sectionIndex(name string) int {
	for i, s := range b.sections {
		if s.Name == name {
			return i + 1
		}
	}
	panic("no test section " + name)
}

func (b *testElf) addSegment(s *testSegment) {
	b.segments = append(b.segments, s)
}

// allSections returns the null section, the added sections and .shstrtab.
func (b *testElf) allSections() []*testSection {
	names := newStringTable()
	for _, s := range b.sections {
		names.Add(s.Name)
	}
	names.Add(".shstrtab")
	all := []*testSection{{}}
	all = append(all, b.sections...)
	return append(all, &testSection{Name: ".shstrtab", Type: SHT_STRTAB, AddrAlign: 1, Data: names.ToData()})
}

type testLayout struct {
	phoff   uint64
	offsets []uint64
	shoff   uint64
	size    uint64
}

// computeLayout depends only on section sizes, so data referring to
// addresses can be filled in after asking for them.
func (b *testElf) computeLayout() testLayout {
	var l testLayout
	pos := uint64(EI_NIDENT + b.layout().fileHeader.size())
	if len(b.segments) > 0 {
		l.phoff = pos
		pos += uint64(len(b.segments) * b.layout().programHeader.size())
	}
	for _, s := range b.allSections() {
		if !s.Type.HasDataInFile() {
			l.offsets = append(l.offsets, pos)
			continue
		}
		pos = alignUp(pos, max(s.AddrAlign, 1))
		l.offsets = append(l.offsets, pos)
		pos += s.size()
	}
	if !b.noSections {
		pos = alignUp(pos, 8)
		l.shoff = pos
		pos += uint64(len(b.allSections()) * b.layout().sectionHeader.size())
	}
	l.size = pos
	return l
}

func (b *testElf) offsetOf(name string) uint64 {
	return b.computeLayout().offsets[b.sectionIndex(name)]
}

func (b *testElf) addrOf(name string) uint64 {
	s := b.section(name)
	if s.Address != 0 {
		return s.Address
	}
	return testBase + b.offsetOf(name)
}

func (b *testElf) put(out []byte, offset uint64, v any) {
	if _, err := binary.Encode(out[offset:], b.order(), v); err != nil {
		panic(err)
	}
}

func (b *testElf) bytes() []byte {
	l := b.computeLayout()
	out := make([]byte, l.size)
	all := b.allSections()

	copy(out, elfMagic[:])
	out[EI_CLASS] = byte(b.class)
	out[EI_DATA] = byte(b.endian)
	out[EI_VERSION] = EV_CURRENT

	shnum := uint16(len(all))
	shstrndx := uint16(len(all) - 1)
	phnum := uint16(len(b.segments))
	if b.strIndex >= 0 {
		shstrndx = uint16(b.strIndex)
	}
	if b.extendedCounts {
		all[0] = &testSection{HeaderSize: uint64(len(all)), Link: uint32(shstrndx), Info: uint32(phnum)}
		shnum, shstrndx, phnum = 0, SHN_XINDEX, PN_XNUM
	}
	if b.noSections {
		shnum, shstrndx = 0, 0
	}

	fh := FileHeader{
		Type:             b.typ,
		Machine:          b.machine,
		Version:          EV_CURRENT,
		ProgHdrOffset:    l.phoff,
		SecHdrOffset:     l.shoff,
		HeaderSize:       uint16(EI_NIDENT + b.layout().fileHeader.size()),
		ProgHdrEntrySize: uint16(b.layout().programHeader.size()),
		ProgHdrCount:     phnum,
		SecHdrEntrySize:  uint16(b.layout().sectionHeader.size()),
		SecHdrCount:      shnum,
		SecHdrStrIdx:     shstrndx,
	}
	if len(b.segments) == 0 {
		fh.ProgHdrEntrySize = 0
	}
	b.put(out, EI_NIDENT, b.rawFileHeader(fh))

	for i, seg := range b.segments {
		ph := ProgramHeader{Type: seg.Type, Flags: seg.Flags, Align: seg.Align, VAddr: testBase, PAddr: testBase, FileSize: l.size, MemSize: l.size}
		if seg.Section != "" {
			idx := b.sectionIndex(seg.Section)
			ph.Offset = l.offsets[idx]
			ph.VAddr = b.addrOf(seg.Section)
			ph.PAddr = ph.VAddr
			ph.FileSize = all[idx].size()
			ph.MemSize = ph.FileSize
		}
		if seg.FileSize != 0 {
			ph.FileSize = seg.FileSize
		}
		b.put(out, l.phoff+uint64(i*b.layout().programHeader.size()), b.rawProgramHeader(ph))
	}

	names := newStringTable()
	for i, s := range all {
		if s.Type.HasDataInFile() {
			copy(out[l.offsets[i]:], s.Data)
		}
		if b.noSections {
			continue
		}
		sh := SectionHeader{
			NameOffset: names.Add(s.Name),
			Type:       s.Type,
			Flags:      s.Flags,
			Address:    s.Address,
			Offset:     l.offsets[i],
			Size:       s.size(),
			Link:       s.Link,
			Info:       s.Info,
			AddrAlign:  s.AddrAlign,
			EntrySize:  s.EntrySize,
		}
		if i == 0 {
			sh.Offset = 0
		}
		if sh.Address == 0 && s.Flags&SHF_ALLOC != 0 {
			sh.Address = testBase + l.offsets[i]
		}
		if s.HeaderSize != 0 {
			sh.Size = s.HeaderSize
		}
		b.put(out, l.shoff+uint64(i*b.layout().sectionHeader.size()), b.rawSectionHeader(sh))
	}
	return out
}

func (b *testElf) rawFileHeader(fh FileHeader) any {
	if b.class == ELFCLASS32 {
		return elfHeader32{
			Type: uint16(fh.Type), Machine: uint16(fh.Machine), Version: fh.Version,
			Entry: uint32(fh.Entry), ProgHdrOff: uint32(fh.ProgHdrOffset), SecHdrOff: uint32(fh.SecHdrOffset),
			Flags: fh.Flags, HeaderSize: fh.HeaderSize,
			ProgHdrEntrySize: fh.ProgHdrEntrySize, ProgHdrCount: fh.ProgHdrCount,
			SecHdrEntrySize: fh.SecHdrEntrySize, SecHdrCount: fh.SecHdrCount, SecHdrStrIndex: fh.SecHdrStrIdx,
		}
	}
	return elfHeader64{
		Type: uint16(fh.Type), Machine: uint16(fh.Machine), Version: fh.Version,
		Entry: fh.Entry, ProgHdrOff: fh.ProgHdrOffset, SecHdrOff: fh.SecHdrOffset,
		Flags: fh.Flags, HeaderSize: fh.HeaderSize,
		ProgHdrEntrySize: fh.ProgHdrEntrySize, ProgHdrCount: fh.ProgHdrCount,
		SecHdrEntrySize: fh.SecHdrEntrySize, SecHdrCount: fh.SecHdrCount, SecHdrStrIndex: fh.SecHdrStrIdx,
	}
}

func (b *testElf) rawSectionHeader(sh SectionHeader) any {
	if b.class == ELFCLASS32 {
		return sectionHeader32{
			Name: sh.NameOffset, Type: uint32(sh.Type), Flags: uint32(sh.Flags),
			Address: uint32(sh.Address), Offset: uint32(sh.Offset), Size: uint32(sh.Size),
			Link: sh.Link, Info: sh.Info, AddrAlign: uint32(sh.AddrAlign), EntrySize: uint32(sh.EntrySize),
		}
	}
	return sectionHeader64{
		Name: sh.NameOffset, Type: uint32(sh.Type), Flags: uint64(sh.Flags),
		Address: sh.Address, Offset: sh.Offset, Size: sh.Size,
		Link: sh.Link, Info: sh.Info, AddrAlign: sh.AddrAlign, EntrySize: sh.EntrySize,
	}
}

func (b *testElf) rawProgramHeader(ph ProgramHeader) any {
	if b.class == ELFCLASS32 {
		return programHeader32{
			Type: uint32(ph.Type), Offset: uint32(ph.Offset), VAddr: uint32(ph.VAddr), PAddr: uint32(ph.PAddr),
			FileSize: uint32(ph.FileSize), MemSize: uint32(ph.MemSize), Flags: uint32(ph.Flags), Align: uint32(ph.Align),
		}
	}
	return programHeader64{
		Type: uint32(ph.Type), Flags: uint32(ph.Flags), Offset: ph.Offset, VAddr: ph.VAddr, PAddr: ph.PAddr,
		FileSize: ph.FileSize, MemSize: ph.MemSize, Align: ph.Align,
	}
}

// encode concatenates the encodings of values in the file's byte order.
func (b *testElf) encode(values ...any) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		if err := binary.Write(&buf, b.order(), v); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// word encodes an address-sized value.
func (b *testElf) word(v uint64) any {
	if b.class == ELFCLASS32 {
		return uint32(v)
	}
	return v
}

type testSymbol struct {
	Name    string
	Info    uint8
	Other   uint8
	Section uint16
	Value   uint64
	Size    uint64
}

func (b *testElf) rawSymbol(name uint32, s testSymbol) any {
	if b.class == ELFCLASS32 {
		return symbol32{Name: name, Value: uint32(s.Value), Size: uint32(s.Size), Info: s.Info, Other: s.Other, SectionIndex: s.Section}
	}
	return symbol64{Name: name, Info: s.Info, Other: s.Other, SectionIndex: s.Section, Value: s.Value, Size: s.Size}
}

// addSymbolTable adds a symbol table section of type typ and its string
// table. The null symbol is added in front of symbols. It returns the index
// of the symbol table section.
func (b *testElf) addSymbolTable(typ SectionHeaderType, name string, strtabName string, symbols []testSymbol) int {
	strs := newStringTable()
	values := []any{b.rawSymbol(0, testSymbol{})}
	for _, s := range symbols {
		values = append(values, b.rawSymbol(strs.Add(s.Name), s))
	}
	var flags SectionHeaderFlag
	if typ == SHT_DYNSYM {
		flags = SHF_ALLOC
	}
	strtab := b.addSection(&testSection{Name: strtabName, Type: SHT_STRTAB, Flags: flags, AddrAlign: 1, Data: strs.ToData()})
	return b.addSection(&testSection{
		Name:      name,
		Type:      typ,
		Flags:     flags,
		Link:      uint32(strtab),
		Info:      1,
		AddrAlign: uint64(b.wordSize()),
		EntrySize: uint64(b.layout().symbol.size()),
		Data:      b.encode(values...),
	})
}

func symbolInfo(bind SymbolBinding, typ SymbolType) uint8 {
	return uint8(bind)<<4 | uint8(typ)&0xf
}

func (b *testElf) rawRel(kind RelocationKind, offset uint64, sym uint32, typ uint32, addend int64) any {
	if b.class == ELFCLASS32 {
		info := sym<<8 | typ&0xff
		if kind == RelocationRELA {
			return rela32{Offset: uint32(offset), Info: info, Addend: int32(addend)}
		}
		return rel32{Offset: uint32(offset), Info: info}
	}
	info := uint64(sym)<<32 | uint64(typ)
	if kind == RelocationRELA {
		return rela64{Offset: offset, Info: info, Addend: addend}
	}
	return rel64{Offset: offset, Info: info}
}

func (b *testElf) rawDyn(tag DynamicTag, value uint64) any {
	if b.class == ELFCLASS32 {
		return dyn32{Tag: int32(tag), Value: uint32(value)}
	}
	return dyn64{Tag: int64(tag), Value: value}
}

func (b *testElf) parse() (*File, error) {
	return Parse(b.bytes())
}

// parseWithSectionTableAt parses the file with e_shoff replaced by offset.
func (b *testElf) parseWithSectionTableAt(offset uint64) (*File, error) {
	data := b.bytes()
	if b.class == ELFCLASS32 {
		b.order().PutUint32(data[0x20:], uint32(offset))
	} else {
		b.order().PutUint64(data[0x28:], offset)
	}
	return Parse(data)
}

// testClasses lists every class and byte order combination.
var testClasses = []struct {
	name   string
	class  FileClass
	endian FileEndian
}{
	{"ELF32LE", ELFCLASS32, ELFDATA2LSB},
	{"ELF32BE", ELFCLASS32, ELFDATA2MSB},
	{"ELF64LE", ELFCLASS64, ELFDATA2LSB},
	{"ELF64BE", ELFCLASS64, ELFDATA2MSB},
}
