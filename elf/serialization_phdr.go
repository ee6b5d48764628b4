// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

type programHeader32 struct {
	Type     uint32
	Offset   uint32
	VAddr    uint32
	PAddr    uint32
	FileSize uint32
	MemSize  uint32
	Flags    uint32
	Align    uint32
}

type programHeader64 struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	PAddr    uint64
	FileSize uint64
	MemSize  uint64
	Align    uint64
}

func (ph programHeader32) normalize() ProgramHeader {
	return ProgramHeader{
		Type:     ProgramHeaderType(ph.Type),
		Flags:    ProgramHeaderFlag(ph.Flags),
		Offset:   uint64(ph.Offset),
		VAddr:    uint64(ph.VAddr),
		PAddr:    uint64(ph.PAddr),
		FileSize: uint64(ph.FileSize),
		MemSize:  uint64(ph.MemSize),
		Align:    uint64(ph.Align),
	}
}

func (ph programHeader64) normalize() ProgramHeader {
	return ProgramHeader{
		Type:     ProgramHeaderType(ph.Type),
		Flags:    ProgramHeaderFlag(ph.Flags),
		Offset:   ph.Offset,
		VAddr:    ph.VAddr,
		PAddr:    ph.PAddr,
		FileSize: ph.FileSize,
		MemSize:  ph.MemSize,
		Align:    ph.Align,
	}
}
