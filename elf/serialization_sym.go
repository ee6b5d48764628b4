// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

type symbol32 struct {
	Name         uint32
	Value        uint32
	Size         uint32
	Info         uint8
	Other        uint8
	SectionIndex uint16
}

type symbol64 struct {
	Name         uint32
	Info         uint8
	Other        uint8
	SectionIndex uint16
	Value        uint64
	Size         uint64
}

func (sh symbol32) normalize() Symbol {
	return Symbol{
		NameOffset:   sh.Name,
		Info:         sh.Info,
		Other:        sh.Other,
		SectionIndex: sh.SectionIndex,
		Value:        uint64(sh.Value),
		Size:         uint64(sh.Size),
	}
}

func (sh symbol64) normalize() Symbol {
	return Symbol{
		NameOffset:   sh.Name,
		Info:         sh.Info,
		Other:        sh.Other,
		SectionIndex: sh.SectionIndex,
		Value:        sh.Value,
		Size:         sh.Size,
	}
}
