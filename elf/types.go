// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

// FileHeader is the class-independent form of the ELF file header.
type FileHeader struct {
	// Identification
	Class         FileClass
	Endian        FileEndian
	HeaderVersion uint8
	ABI           FileABI
	ABIVersion    uint8

	// Header
	Type             FileType
	Machine          MachineType
	Version          uint32
	Entry            uint64
	ProgHdrOffset    uint64
	SecHdrOffset     uint64
	Flags            uint32
	HeaderSize       uint16
	ProgHdrEntrySize uint16
	ProgHdrCount     uint16
	SecHdrEntrySize  uint16
	SecHdrCount      uint16
	SecHdrStrIdx     uint16
}

type ProgramHeader struct {
	Type     ProgramHeaderType
	Flags    ProgramHeaderFlag
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

type SectionHeader struct {
	NameOffset uint32
	Type       SectionHeaderType
	Flags      SectionHeaderFlag
	Address    uint64
	Offset     uint64
	Size       uint64
	Link       uint32
	Info       uint32
	AddrAlign  uint64
	EntrySize  uint64
}

// FileRange returns the bytes of the file the section occupies; SHT_NOBITS sections occupy none.
func (s SectionHeader) FileRange() (offset, size uint64) {
	if !s.Type.HasDataInFile() {
		return 0, 0
	}
	return s.Offset, s.Size
}

// Symbol is one entry of a symbol table. Index is its position in the table.
type Symbol struct {
	Index        int
	NameOffset   uint32
	Info         uint8
	Other        uint8
	SectionIndex uint16
	Value        uint64
	Size         uint64
}

func (s Symbol) Type() SymbolType {
	return SymbolType(s.Info & 0xF)
}

func (s Symbol) Binding() SymbolBinding {
	return SymbolBinding(s.Info >> 4)
}

func (s Symbol) Visibility() SymbolVisibility {
	return SymbolVisibility(s.Other & 0x3)
}

func (s Symbol) IsUndefined() bool {
	return s.SectionIndex == SHN_UNDEF
}

func (s Symbol) IsAbsolute() bool {
	return s.SectionIndex == SHN_ABS
}

func (s Symbol) IsCommon() bool {
	return s.SectionIndex == SHN_COMMON || s.Type() == STT_COMMON
}

// RelocationKind records which on-disk encoding a relocation came from.
type RelocationKind uint8

const (
	RelocationREL RelocationKind = iota + 1
	RelocationRELA
	RelocationRELR
)

// Relocation is the unified shape of REL, RELA and RELR entries, whether they
// were read from a section or located through the dynamic table.
type Relocation struct {
	Offset      uint64
	SymbolIndex uint32
	Type        uint32
	Addend      int64
	Kind        RelocationKind
	info        uint64
}

// HasExplicitAddend reports whether Addend was stored in the entry. Otherwise
// the addend is held in the relocated location.
func (r Relocation) HasExplicitAddend() bool {
	return r.Kind == RelocationRELA
}

type DynamicEntry struct {
	Tag   DynamicTag
	Value uint64
}

type CompressionHeader struct {
	Type      CompressionType
	Size      uint64
	AddrAlign uint64
}

type NoteHeader struct {
	NameSize uint32
	DescSize uint32
	Type     uint32
}
