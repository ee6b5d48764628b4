// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

// classLayout bundles the on-disk layouts of every structure kind for one
// ELF class. It is picked once from the identification bytes and every table
// decodes through it, so no algorithm is written twice.
type classLayout struct {
	class FileClass
	// wordSize is the size of an address, a RELR entry and a GNU hash bloom word.
	wordSize int

	fileHeader        entryLayout[FileHeader]
	sectionHeader     entryLayout[SectionHeader]
	programHeader     entryLayout[ProgramHeader]
	symbol            entryLayout[Symbol]
	rel               entryLayout[Relocation]
	rela              entryLayout[Relocation]
	dyn               entryLayout[DynamicEntry]
	compressionHeader entryLayout[CompressionHeader]
	word              entryLayout[uint64]
}

var layout32 = &classLayout{
	class:             ELFCLASS32,
	wordSize:          4,
	fileHeader:        fixed[elfHeader32, FileHeader]{},
	sectionHeader:     fixed[sectionHeader32, SectionHeader]{},
	programHeader:     fixed[programHeader32, ProgramHeader]{},
	symbol:            fixed[symbol32, Symbol]{},
	rel:               fixed[rel32, Relocation]{},
	rela:              fixed[rela32, Relocation]{},
	dyn:               fixed[dyn32, DynamicEntry]{},
	compressionHeader: fixed[compressionHeader32, CompressionHeader]{},
	word:              fixed[relrWord32, uint64]{},
}

var layout64 = &classLayout{
	class:             ELFCLASS64,
	wordSize:          8,
	fileHeader:        fixed[elfHeader64, FileHeader]{},
	sectionHeader:     fixed[sectionHeader64, SectionHeader]{},
	programHeader:     fixed[programHeader64, ProgramHeader]{},
	symbol:            fixed[symbol64, Symbol]{},
	rel:               fixed[rel64, Relocation]{},
	rela:              fixed[rela64, Relocation]{},
	dyn:               fixed[dyn64, DynamicEntry]{},
	compressionHeader: fixed[compressionHeader64, CompressionHeader]{},
	word:              fixed[relrWord64, uint64]{},
}

var layouts = map[FileClass]*classLayout{
	ELFCLASS32: layout32,
	ELFCLASS64: layout64,
}

// relocation returns the layout of entries in a SHT_REL or SHT_RELA table.
func (l *classLayout) relocation(t SectionHeaderType) entryLayout[Relocation] {
	if t == SHT_RELA {
		return l.rela
	}
	return l.rel
}
