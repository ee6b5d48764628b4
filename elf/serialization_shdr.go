// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

type sectionHeader32 struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Address   uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	AddrAlign uint32
	EntrySize uint32
}

type sectionHeader64 struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Address   uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntrySize uint64
}

func (sh sectionHeader32) normalize() SectionHeader {
	return SectionHeader{
		NameOffset: sh.Name,
		Type:       SectionHeaderType(sh.Type),
		Flags:      SectionHeaderFlag(sh.Flags),
		Address:    uint64(sh.Address),
		Offset:     uint64(sh.Offset),
		Size:       uint64(sh.Size),
		Link:       sh.Link,
		Info:       sh.Info,
		AddrAlign:  uint64(sh.AddrAlign),
		EntrySize:  uint64(sh.EntrySize),
	}
}

func (sh sectionHeader64) normalize() SectionHeader {
	return SectionHeader{
		NameOffset: sh.Name,
		Type:       SectionHeaderType(sh.Type),
		Flags:      SectionHeaderFlag(sh.Flags),
		Address:    sh.Address,
		Offset:     sh.Offset,
		Size:       sh.Size,
		Link:       sh.Link,
		Info:       sh.Info,
		AddrAlign:  sh.AddrAlign,
		EntrySize:  sh.EntrySize,
	}
}

type compressionHeader32 struct {
	Type      uint32
	Size      uint32
	AddrAlign uint32
}

type compressionHeader64 struct {
	Type      uint32
	Reserved  uint32
	Size      uint64
	AddrAlign uint64
}

func (ch compressionHeader32) normalize() CompressionHeader {
	return CompressionHeader{
		Type:      CompressionType(ch.Type),
		Size:      uint64(ch.Size),
		AddrAlign: uint64(ch.AddrAlign),
	}
}

func (ch compressionHeader64) normalize() CompressionHeader {
	return CompressionHeader{
		Type:      CompressionType(ch.Type),
		Size:      ch.Size,
		AddrAlign: ch.AddrAlign,
	}
}
