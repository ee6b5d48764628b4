// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"iter"

	"github.com/go-kit/log/level"
	"github.com/ianlancetaylor/demangle"
	"github.com/pkg/errors"
)

// SymbolTable is a SHT_SYMTAB or SHT_DYNSYM section paired with its string table.
type SymbolTable struct {
	file     *File
	sections *SectionTable
	index    int
	symbols  entries[Symbol]
	strings  StringTable
}

// Symbols returns the first SHT_SYMTAB table. Files without one yield an empty table.
func (f *File) Symbols() (*SymbolTable, error) {
	return f.symbolTableOfType(SHT_SYMTAB)
}

// DynamicSymbols returns the first SHT_DYNSYM table. Files without one yield an empty table.
func (f *File) DynamicSymbols() (*SymbolTable, error) {
	return f.symbolTableOfType(SHT_DYNSYM)
}

func (f *File) symbolTableOfType(typ SectionHeaderType) (*SymbolTable, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, err
	}
	if found := sections.OfType(typ); len(found) > 0 {
		return sections.SymbolTable(found[0].Index)
	}
	return &SymbolTable{
		file:     f,
		sections: sections,
		symbols:  entries[Symbol]{layout: f.layout.symbol, order: f.order},
	}, nil
}

// SymbolTable returns the symbol table held by section i.
func (t *SectionTable) SymbolTable(i int) (*SymbolTable, error) {
	s, err := t.Section(i)
	if err != nil {
		return nil, err
	}
	if !s.Type.IsSymbolTable() {
		return nil, errors.Wrapf(ErrInvalidIndex, "section %d has type %#x, not a symbol table", i, uint32(s.Type))
	}
	layout := t.file.layout.symbol
	if err := checkEntrySize(s.EntrySize, layout.size()); err != nil {
		level.Debug(t.file.opts.logger).Log("msg", "invalid symbol table", "section", i, "err", err)
		return nil, errors.WithMessagef(err, "symbol table %d", i)
	}
	data, err := t.Data(i)
	if err != nil {
		return nil, err
	}
	symbols, err := newEntries(data, layout, t.file.order)
	if err != nil {
		return nil, errors.WithMessagef(err, "symbol table %d", i)
	}

	strtab, err := t.Link(i)
	if err != nil {
		return nil, errors.WithMessagef(err, "string table of symbol table %d", i)
	}
	if strtab.Type != SHT_STRTAB {
		return nil, errors.Wrapf(ErrInvalidIndex, "symbol table %d links to section %d of type %#x", i, strtab.Index, uint32(strtab.Type))
	}
	strings, err := t.Data(strtab.Index)
	if err != nil {
		return nil, err
	}

	return &SymbolTable{
		file:     t.file,
		sections: t,
		index:    i,
		symbols:  symbols,
		strings:  StringTable(strings),
	}, nil
}

func (t *SymbolTable) Len() int {
	return t.symbols.Len()
}

// Section returns the index of the section the table was read from.
func (t *SymbolTable) Section() int {
	return t.index
}

// Strings returns the string table symbol names resolve through.
func (t *SymbolTable) Strings() StringTable {
	return t.strings
}

// Symbol returns the symbol at index i.
func (t *SymbolTable) Symbol(i int) (Symbol, error) {
	sym, err := t.symbols.get(i)
	if err != nil {
		return Symbol{}, errors.WithMessage(err, "symbol")
	}
	sym.Index = i
	return sym, nil
}

// RawSymbol returns the undecoded bytes of the symbol at index i.
func (t *SymbolTable) RawSymbol(i int) ([]byte, error) {
	return t.symbols.raw(i)
}

// All iterates over every symbol in table order, including the null symbol at index 0.
func (t *SymbolTable) All() iter.Seq2[int, Symbol] {
	return func(yield func(int, Symbol) bool) {
		for i := range t.Len() {
			sym, err := t.Symbol(i)
			if err != nil {
				return
			}
			if !yield(i, sym) {
				return
			}
		}
	}
}

func (t *SymbolTable) Name(sym Symbol) (string, error) {
	name, err := t.strings.String(sym.NameOffset)
	if err != nil {
		return "", errors.WithMessagef(err, "name of symbol %d", sym.Index)
	}
	return name, nil
}

// DemangledName returns the name of sym demangled with the options given to
// Parse. Names that are not mangled are returned unchanged.
func (t *SymbolTable) DemangledName(sym Symbol) (string, error) {
	name, err := t.Name(sym)
	if err != nil {
		return "", err
	}
	return demangle.Filter(name, t.file.opts.demangleOptions...), nil
}

// SymbolByName scans the table for name. When several symbols share the
// name, the one with the lowest index is returned.
func (t *SymbolTable) SymbolByName(name string) (Symbol, bool, error) {
	for i := range t.Len() {
		sym, err := t.Symbol(i)
		if err != nil {
			return Symbol{}, false, err
		}
		if sym.NameOffset == 0 && name != "" {
			continue
		}
		n, err := t.strings.Bytes(sym.NameOffset)
		if err != nil {
			return Symbol{}, false, errors.WithMessagef(err, "name of symbol %d", i)
		}
		if string(n) == name {
			return sym, true, nil
		}
	}
	return Symbol{}, false, nil
}

// SectionIndex resolves the section sym is defined in. Reserved indices such
// as SHN_ABS are returned as is; SHN_XINDEX is resolved through the
// SHT_SYMTAB_SHNDX section linked to this table.
func (t *SymbolTable) SectionIndex(sym Symbol) (int, error) {
	index := uint32(sym.SectionIndex)
	if index == SHN_XINDEX {
		var err error
		if index, err = t.extendedIndex(sym.Index); err != nil {
			return 0, err
		}
	} else if index == SHN_UNDEF || index >= SHN_LORESERVE {
		return int(index), nil
	}
	if uint64(index) >= uint64(t.sections.Len()) {
		return 0, errors.Wrapf(ErrInvalidIndex, "symbol %d is in section %d of %d", sym.Index, index, t.sections.Len())
	}
	return int(index), nil
}

func (t *SymbolTable) extendedIndex(i int) (uint32, error) {
	shndx, ok := t.sections.linked(SHT_SYMTAB_SHNDX, t.index)
	if !ok {
		return 0, errors.Wrapf(ErrInvalidIndex, "symbol %d uses SHN_XINDEX but table %d has no extended index section", i, t.index)
	}
	data, err := t.sections.Data(shndx.Index)
	if err != nil {
		return 0, err
	}
	if uint64(len(data)) != uint64(t.Len())*4 {
		return 0, errors.Wrapf(ErrSizeMismatch, "extended index section %d has %d bytes for %d symbols", shndx.Index, len(data), t.Len())
	}
	if i < 0 || i >= t.Len() {
		return 0, errors.Wrapf(ErrInvalidIndex, "symbol %d of %d", i, t.Len())
	}
	return t.file.order.Uint32(data[i*4:]), nil
}
