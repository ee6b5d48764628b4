// SPDX-License-Identifier: MIT
//
// Copyright (c) 2023, 2024 Adrian "asie" Siekierka

// Package region looks up address ranges, such as the loadable segments of an
// ELF file, by the addresses they cover.
package region

import (
	"slices"
	"sort"
)

type RegionPlaceable interface {
	Offset() uint64
	Size() uint64
}

// Contains reports whether [offset, offset+size) lies inside entry. An empty
// range must start before the end of the entry.
func Contains[T RegionPlaceable](entry T, offset uint64, size uint64) bool {
	start := entry.Offset()
	end := start + entry.Size()
	if end < start || offset < start || offset >= end {
		return false
	}
	return end-offset >= size
}

// RegionList keeps entries ordered by offset. Entries may overlap; lookups
// prefer the entry with the highest offset at or below the address, then the
// one inserted first.
type RegionList[T RegionPlaceable] struct {
	entries []T
}

func NewRegionList[T RegionPlaceable](entries ...T) *RegionList[T] {
	r := &RegionList[T]{entries: make([]T, 0, len(entries))}
	for _, e := range entries {
		r.Insert(e)
	}
	return r
}

func (r RegionList[T]) Len() int {
	return len(r.entries)
}

func (r RegionList[T]) Empty() bool {
	return len(r.entries) == 0
}

func (r RegionList[T]) Entries() []T {
	return slices.Clone(r.entries)
}

// Insert adds entry after every entry with an offset lower or equal to its own.
func (r *RegionList[T]) Insert(entry T) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Offset() > entry.Offset()
	})
	r.entries = slices.Insert(r.entries, i, entry)
}

// FindRange returns the entry that wholly contains [offset, offset+size).
func (r RegionList[T]) FindRange(offset uint64, size uint64) (bool, T) {
	if offset+size < offset {
		var zero T
		return false, zero
	}
	// entries[:i] all start at or below offset
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Offset() > offset
	})
	for ; i > 0; i-- {
		start := r.entries[i-1].Offset()
		// walk back to the first entry with the same offset
		j := i - 1
		for j > 0 && r.entries[j-1].Offset() == start {
			j--
		}
		for k := j; k < i; k++ {
			if Contains(r.entries[k], offset, size) {
				return true, r.entries[k]
			}
		}
		i = j + 1
	}
	var zero T
	return false, zero
}

// Find returns the entry containing offset.
func (r RegionList[T]) Find(offset uint64) (bool, T) {
	return r.FindRange(offset, 1)
}
