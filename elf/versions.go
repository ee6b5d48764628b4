// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"encoding/binary"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// chain walks records that store the offset of their successor relative to
// themselves. Every chain ends at the first zero link; a bounded one also
// stops after count records.
type chain[N any] struct {
	data      []byte
	order     binary.ByteOrder
	layout    entryLayout[N]
	link      func(N) uint32
	strings   StringTable
	count     uint32
	unbounded bool

	visited uint32
	offset  uint64
	next    uint32
	current N
	err     error
}

func newChain[N any](data []byte, order binary.ByteOrder, layout entryLayout[N], link func(N) uint32, strings StringTable, start uint64, count uint32, unbounded bool) chain[N] {
	return chain[N]{
		data:      data,
		order:     order,
		layout:    layout,
		link:      link,
		strings:   strings,
		count:     count,
		unbounded: unbounded,
		offset:    start,
	}
}

func (c *chain[N]) Next() bool {
	if c.err != nil || (!c.unbounded && c.visited == c.count) {
		return false
	}
	if c.visited > 0 {
		if c.next == 0 {
			return false
		}
		if uint64(c.next) < uint64(c.layout.size()) {
			c.err = errors.Wrapf(ErrMalformedChain, "record at %#x links %d bytes ahead, inside itself", c.offset, c.next)
			return false
		}
		c.offset += uint64(c.next)
	}
	if c.offset >= uint64(len(c.data)) {
		c.err = errors.Wrapf(ErrTruncated, "record at %#x of %#x bytes", c.offset, len(c.data))
		return false
	}
	rec, err := c.layout.decode(c.data[c.offset:], c.order)
	if err != nil {
		c.err = errors.WithMessagef(err, "record at %#x", c.offset)
		return false
	}
	c.current = rec
	c.next = c.link(rec)
	c.visited++
	return true
}

func (c *chain[N]) Err() error {
	return c.err
}

// Offset returns the position of the current record in the section.
func (c *chain[N]) Offset() uint64 {
	return c.offset
}

// sub starts the chain of count auxiliary records of the current record,
// the first of them aux bytes after it.
func sub[P, N any](c *chain[P], layout entryLayout[N], link func(N) uint32, aux uint32, count uint16) chain[N] {
	s := newChain(c.data, c.order, layout, link, c.strings, c.offset+uint64(aux), uint32(count), false)
	if count != 0 && uint64(aux) < uint64(c.layout.size()) {
		s.err = errors.Wrapf(ErrMalformedChain, "auxiliary records of %#x start inside it", c.offset)
	}
	return s
}

// VerdefIterator walks the entries of a SHT_GNU_verdef section.
type VerdefIterator struct {
	chain[Verdef]
}

func (it *VerdefIterator) Verdef() Verdef {
	return it.current
}

// Aux iterates over the names of the current definition. The first is the
// version itself, the others its parents.
func (it *VerdefIterator) Aux() *VerdauxIterator {
	return &VerdauxIterator{sub(&it.chain, verdauxLayout, func(a Verdaux) uint32 { return a.Next }, it.current.Aux, it.current.Count)}
}

// VerdauxIterator walks the auxiliary records of one Verdef.
type VerdauxIterator struct {
	chain[Verdaux]
}

func (it *VerdauxIterator) Verdaux() Verdaux {
	return it.current
}

func (it *VerdauxIterator) Name() (string, error) {
	return it.strings.String(it.current.Name)
}

// VerneedIterator walks the entries of a SHT_GNU_verneed section.
type VerneedIterator struct {
	chain[Verneed]
}

func (it *VerneedIterator) Verneed() Verneed {
	return it.current
}

// File returns the name of the needed file.
func (it *VerneedIterator) File() (string, error) {
	return it.strings.String(it.current.File)
}

// Aux iterates over the versions needed from the current file.
func (it *VerneedIterator) Aux() *VernauxIterator {
	return &VernauxIterator{sub(&it.chain, vernauxLayout, func(a Vernaux) uint32 { return a.Next }, it.current.Aux, it.current.Count)}
}

// VernauxIterator walks the auxiliary records of one Verneed.
type VernauxIterator struct {
	chain[Vernaux]
}

func (it *VernauxIterator) Vernaux() Vernaux {
	return it.current
}

func (it *VernauxIterator) Name() (string, error) {
	return it.strings.String(it.current.Name)
}

// Verdefs iterates over the SHT_GNU_verdef section i. A non-zero sh_info caps
// the number of entries read.
func (t *SectionTable) Verdefs(i int) (*VerdefIterator, error) {
	data, strings, count, err := t.versionSection(i, SHT_GNU_VERDEF)
	if err != nil {
		return nil, err
	}
	return &VerdefIterator{newChain(data, t.file.order, verdefLayout, func(v Verdef) uint32 { return v.Next }, strings, 0, count, count == 0)}, nil
}

// Verneeds iterates over the SHT_GNU_verneed section i. A non-zero sh_info caps
// the number of entries read.
func (t *SectionTable) Verneeds(i int) (*VerneedIterator, error) {
	data, strings, count, err := t.versionSection(i, SHT_GNU_VERNEED)
	if err != nil {
		return nil, err
	}
	return &VerneedIterator{newChain(data, t.file.order, verneedLayout, func(v Verneed) uint32 { return v.Next }, strings, 0, count, count == 0)}, nil
}

func (t *SectionTable) versionSection(i int, typ SectionHeaderType) ([]byte, StringTable, uint32, error) {
	data, err := t.dataOfType(i, typ)
	if err != nil {
		return nil, nil, 0, err
	}
	s, err := t.Link(i)
	if err != nil {
		return nil, nil, 0, errors.WithMessagef(err, "string table of version section %d", i)
	}
	if s.Type != SHT_STRTAB {
		return nil, nil, 0, errors.Wrapf(ErrInvalidIndex, "version section %d links to section %d of type %#x", i, s.Index, uint32(s.Type))
	}
	strings, err := t.Data(s.Index)
	if err != nil {
		return nil, nil, 0, err
	}
	sh, _ := t.Section(i)
	return data, StringTable(strings), sh.Info, nil
}

// VersionIndex is an entry of the SHT_GNU_versym array.
type VersionIndex uint16

// Index returns the version index without the hidden bit.
func (v VersionIndex) Index() uint16 {
	return uint16(v) & VERSYM_VERSION
}

// IsHidden reports whether the symbol is not visible to references without a version.
func (v VersionIndex) IsHidden() bool {
	return uint16(v)&VERSYM_HIDDEN != 0
}

func (v VersionIndex) IsLocal() bool {
	return v.Index() == VER_NDX_LOCAL
}

func (v VersionIndex) IsGlobal() bool {
	return v.Index() == VER_NDX_GLOBAL
}

// Version is a symbol version defined by this file or needed from another.
type Version struct {
	Name  string
	Hash  uint32
	Flags uint16
	// File is the file the version is needed from. It is empty for definitions.
	File string
}

// VersionTable resolves the version indices of dynamic symbols.
type VersionTable struct {
	order    binary.ByteOrder
	versym   []byte
	versions map[uint16]Version
}

// VersionTable builds the version table from the SHT_GNU_versym section and
// the verdef and verneed sections. The second result is false when the file
// has no symbol versions.
func (f *File) VersionTable() (*VersionTable, bool, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, false, err
	}
	versyms := sections.OfType(SHT_GNU_VERSYM)
	if len(versyms) == 0 {
		return nil, false, nil
	}
	versym := versyms[0]
	if err := checkEntrySize(versym.EntrySize, 2); err != nil {
		return nil, false, errors.WithMessagef(err, "version symbol section %d", versym.Index)
	}
	data, err := sections.Data(versym.Index)
	if err != nil {
		return nil, false, err
	}
	symbols, err := sections.SymbolTable(int(versym.Link))
	if err != nil {
		return nil, false, errors.WithMessagef(err, "symbols of version section %d", versym.Index)
	}
	if uint64(len(data)) != uint64(symbols.Len())*2 {
		return nil, false, errors.Wrapf(ErrSizeMismatch, "%d version entries for %d dynamic symbols", len(data)/2, symbols.Len())
	}

	vt := &VersionTable{order: f.order, versym: data, versions: make(map[uint16]Version)}
	for _, s := range sections.OfType(SHT_GNU_VERDEF) {
		if err := vt.addDefinitions(sections, s.Index); err != nil {
			level.Debug(f.opts.logger).Log("msg", "invalid version definitions", "section", s.Index, "err", err)
			return nil, false, err
		}
	}
	for _, s := range sections.OfType(SHT_GNU_VERNEED) {
		if err := vt.addNeeds(sections, s.Index); err != nil {
			level.Debug(f.opts.logger).Log("msg", "invalid version needs", "section", s.Index, "err", err)
			return nil, false, err
		}
	}
	return vt, true, nil
}

func (vt *VersionTable) add(index uint16, v Version) {
	index &= VERSYM_VERSION
	if index <= VER_NDX_GLOBAL {
		return
	}
	if _, ok := vt.versions[index]; !ok {
		vt.versions[index] = v
	}
}

func (vt *VersionTable) addDefinitions(sections *SectionTable, i int) error {
	defs, err := sections.Verdefs(i)
	if err != nil {
		return err
	}
	for defs.Next() {
		def := defs.Verdef()
		aux := defs.Aux()
		if !aux.Next() {
			if err := aux.Err(); err != nil {
				return err
			}
			continue
		}
		name, err := aux.Name()
		if err != nil {
			return err
		}
		vt.add(def.Index, Version{Name: name, Hash: def.Hash, Flags: def.Flags})
	}
	return defs.Err()
}

func (vt *VersionTable) addNeeds(sections *SectionTable, i int) error {
	needs, err := sections.Verneeds(i)
	if err != nil {
		return err
	}
	for needs.Next() {
		file, err := needs.File()
		if err != nil {
			return err
		}
		aux := needs.Aux()
		for aux.Next() {
			a := aux.Vernaux()
			name, err := aux.Name()
			if err != nil {
				return err
			}
			vt.add(a.Other, Version{Name: name, Hash: a.Hash, Flags: a.Flags, File: file})
		}
		if err := aux.Err(); err != nil {
			return err
		}
	}
	return needs.Err()
}

// Len returns the number of symbols with a version index.
func (vt *VersionTable) Len() int {
	return len(vt.versym) / 2
}

// VersionIndex returns the version index of the dynamic symbol at symIndex.
func (vt *VersionTable) VersionIndex(symIndex int) (VersionIndex, error) {
	if symIndex < 0 || symIndex >= vt.Len() {
		return 0, errors.Wrapf(ErrInvalidIndex, "version of symbol %d of %d", symIndex, vt.Len())
	}
	return VersionIndex(vt.order.Uint16(vt.versym[symIndex*2:])), nil
}

// Version returns the version an index stands for, or nil for the local and
// global indices.
func (vt *VersionTable) Version(index VersionIndex) (*Version, error) {
	if index.Index() <= VER_NDX_GLOBAL {
		return nil, nil
	}
	v, ok := vt.versions[index.Index()]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidIndex, "version index %d is not defined or needed", index.Index())
	}
	return &v, nil
}

// SymbolVersion returns the version of the dynamic symbol at symIndex.
func (vt *VersionTable) SymbolVersion(symIndex int) (*Version, error) {
	index, err := vt.VersionIndex(symIndex)
	if err != nil {
		return nil, err
	}
	return vt.Version(index)
}
