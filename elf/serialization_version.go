// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

// The version records have the same layout in both classes.

type verdef struct {
	Version uint16
	Flags   uint16
	Index   uint16
	Count   uint16
	Hash    uint32
	Aux     uint32
	Next    uint32
}

type verdaux struct {
	Name uint32
	Next uint32
}

type verneed struct {
	Version uint16
	Count   uint16
	File    uint32
	Aux     uint32
	Next    uint32
}

type vernaux struct {
	Hash  uint32
	Flags uint16
	Other uint16
	Name  uint32
	Next  uint32
}

// Verdef is an entry of a SHT_GNU_verdef section.
type Verdef struct {
	Version uint16
	Flags   uint16
	Index   uint16
	Count   uint16
	Hash    uint32
	Aux     uint32
	Next    uint32
}

// Verdaux is an auxiliary record of a Verdef, naming the version or its parents.
type Verdaux struct {
	Name uint32
	Next uint32
}

// Verneed is an entry of a SHT_GNU_verneed section, naming a needed file.
type Verneed struct {
	Version uint16
	Count   uint16
	File    uint32
	Aux     uint32
	Next    uint32
}

// Vernaux is an auxiliary record of a Verneed, naming one needed version.
type Vernaux struct {
	Hash  uint32
	Flags uint16
	Other uint16
	Name  uint32
	Next  uint32
}

func (v verdef) normalize() Verdef   { return Verdef(v) }
func (v verdaux) normalize() Verdaux { return Verdaux(v) }
func (v verneed) normalize() Verneed { return Verneed(v) }
func (v vernaux) normalize() Vernaux { return Vernaux(v) }

var (
	verdefLayout  entryLayout[Verdef]  = fixed[verdef, Verdef]{}
	verdauxLayout entryLayout[Verdaux] = fixed[verdaux, Verdaux]{}
	verneedLayout entryLayout[Verneed] = fixed[verneed, Verneed]{}
	vernauxLayout entryLayout[Vernaux] = fixed[vernaux, Vernaux]{}
)
