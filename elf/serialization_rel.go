// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

type rel32 struct {
	Offset uint32
	Info   uint32
}

type rel64 struct {
	Offset uint64
	Info   uint64
}

type rela32 struct {
	Offset uint32
	Info   uint32
	Addend int32
}

type rela64 struct {
	Offset uint64
	Info   uint64
	Addend int64
}

func (rel rel32) normalize() Relocation {
	return Relocation{Offset: uint64(rel.Offset), info: uint64(rel.Info), Kind: RelocationREL}
}

func (rel rel64) normalize() Relocation {
	return Relocation{Offset: rel.Offset, info: rel.Info, Kind: RelocationREL}
}

func (rel rela32) normalize() Relocation {
	return Relocation{Offset: uint64(rel.Offset), info: uint64(rel.Info), Addend: int64(rel.Addend), Kind: RelocationRELA}
}

func (rel rela64) normalize() Relocation {
	return Relocation{Offset: rel.Offset, info: rel.Info, Addend: rel.Addend, Kind: RelocationRELA}
}

// splitInfo fills in SymbolIndex and Type from the raw r_info field.
func (r *Relocation) splitInfo(class FileClass, mips64el bool) {
	if class == ELFCLASS32 {
		r.SymbolIndex = uint32(r.info >> 8)
		r.Type = uint32(r.info & 0xFF)
		return
	}
	info := r.info
	if mips64el {
		// r_sym is stored little-endian, followed by r_ssym, r_type3, r_type2 and r_type bytes.
		info = (info << 32) |
			((info >> 8) & 0xff000000) |
			((info >> 24) & 0x00ff0000) |
			((info >> 40) & 0x0000ff00) |
			((info >> 56) & 0x000000ff)
	}
	r.SymbolIndex = uint32(info >> 32)
	r.Type = uint32(info)
}

type dyn32 struct {
	Tag   int32
	Value uint32
}

type dyn64 struct {
	Tag   int64
	Value uint64
}

func (d dyn32) normalize() DynamicEntry {
	return DynamicEntry{Tag: DynamicTag(d.Tag), Value: uint64(d.Value)}
}

func (d dyn64) normalize() DynamicEntry {
	return DynamicEntry{Tag: DynamicTag(d.Tag), Value: d.Value}
}

type relrWord32 struct {
	Value uint32
}

type relrWord64 struct {
	Value uint64
}

func (w relrWord32) normalize() uint64 {
	return uint64(w.Value)
}

func (w relrWord64) normalize() uint64 {
	return w.Value
}
