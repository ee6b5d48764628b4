// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

// noteHeader has the same layout in both classes.
type noteHeader struct {
	NameSize uint32
	DescSize uint32
	Type     uint32
}

func (nh noteHeader) normalize() NoteHeader {
	return NoteHeader{NameSize: nh.NameSize, DescSize: nh.DescSize, Type: nh.Type}
}

var noteHeaderLayout entryLayout[NoteHeader] = fixed[noteHeader, NoteHeader]{}
