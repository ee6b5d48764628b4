// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

type hashHeader struct {
	BucketCount uint32
	ChainCount  uint32
}

type gnuHashHeader struct {
	BucketCount uint32
	SymbolBase  uint32
	BloomCount  uint32
	BloomShift  uint32
}

func (h hashHeader) normalize() hashHeader       { return h }
func (h gnuHashHeader) normalize() gnuHashHeader { return h }

var (
	hashHeaderLayout    entryLayout[hashHeader]    = fixed[hashHeader, hashHeader]{}
	gnuHashHeaderLayout entryLayout[gnuHashHeader] = fixed[gnuHashHeader, gnuHashHeader]{}
)
