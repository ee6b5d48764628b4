// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"github.com/pkg/errors"
)

// RelocationSections maps a section index to the relocation sections whose
// sh_info names it as their target.
type RelocationSections struct {
	targets map[int][]int
}

func (f *File) RelocationSections() (*RelocationSections, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, err
	}
	return sections.RelocationSections()
}

// RelocationSections scans the table for relocation sections. Sections with
// sh_info 0, such as dynamic relocation sections, apply to no section.
func (t *SectionTable) RelocationSections() (*RelocationSections, error) {
	r := &RelocationSections{targets: make(map[int][]int)}
	for i, s := range t.All() {
		if !s.Type.IsRelocation() || s.Info == 0 {
			continue
		}
		if uint64(s.Info) >= uint64(t.Len()) || int(s.Info) == i {
			return nil, errors.Wrapf(ErrInvalidIndex, "relocation section %d targets section %d of %d", i, s.Info, t.Len())
		}
		target := int(s.Info)
		r.targets[target] = append(r.targets[target], i)
	}
	return r, nil
}

// Get returns the relocation sections applying to section, in table order.
func (r *RelocationSections) Get(section int) []int {
	return r.targets[section]
}

func (r *RelocationSections) Len() int {
	return len(r.targets)
}

// ReachableSections returns, in table order, the sections a linker
// performing section garbage collection would keep: roots, SHF_GNU_RETAIN
// sections, and every section defining a symbol referenced by a relocation
// of a kept section.
func (f *File) ReachableSections(roots ...int) ([]int, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, err
	}
	relocationSections, err := sections.RelocationSections()
	if err != nil {
		return nil, err
	}

	retainedSections := make(map[int]bool)
	for _, root := range roots {
		if root < 0 || root >= sections.Len() {
			return nil, errors.Wrapf(ErrInvalidIndex, "root section %d of %d", root, sections.Len())
		}
		retainedSections[root] = true
	}
	for i, section := range sections.All() {
		if (section.Flags & SHF_GNU_RETAIN) != 0 {
			retainedSections[i] = true
		}
	}

	// Build a tree of relations where child section is dependent on a parent section
	sectionChildren := make(map[int]map[int]bool)
	symbolTables := make(map[int]*SymbolTable)
	for parentSection, relocationIndexes := range relocationSections.targets {
		for _, relocationIndex := range relocationIndexes {
			relocationSection, err := sections.Section(relocationIndex)
			if err != nil {
				return nil, err
			}
			if relocationSection.Type == SHT_RELR {
				continue
			}
			symbols, ok := symbolTables[int(relocationSection.Link)]
			if !ok {
				if symbols, err = sections.SymbolTable(int(relocationSection.Link)); err != nil {
					return nil, errors.WithMessagef(err, "symbols of relocation section %d", relocationIndex)
				}
				symbolTables[int(relocationSection.Link)] = symbols
			}

			it, err := sections.Relocations(relocationIndex)
			if err != nil {
				return nil, err
			}
			for it.Next() {
				relocation := it.Relocation()
				if relocation.SymbolIndex == 0 {
					continue
				}
				symbol, err := symbols.Symbol(int(relocation.SymbolIndex))
				if err != nil {
					return nil, err
				}
				// Reserved indices are skipped before SHN_XINDEX is resolved,
				// since an extended index may itself be 0xff00 or above.
				if symbol.SectionIndex == SHN_UNDEF || (symbol.SectionIndex >= SHN_LORESERVE && symbol.SectionIndex != SHN_XINDEX) {
					continue
				}
				childSection, err := symbols.SectionIndex(symbol)
				if err != nil {
					return nil, err
				}
				children, ok := sectionChildren[parentSection]
				if !ok {
					children = make(map[int]bool)
					sectionChildren[parentSection] = children
				}
				children[childSection] = true
			}
			if err := it.Err(); err != nil {
				return nil, err
			}
		}
	}

	// Traverse the tree of parent<->child relations
	newlyRetainedSections := retainedSections
	retainedSections = make(map[int]bool)

	for len(newlyRetainedSections) > 0 {
		nextRetainedSections := make(map[int]bool)
		for retainedSection := range newlyRetainedSections {
			retainedSections[retainedSection] = true

			for childOfRetainedSection := range sectionChildren[retainedSection] {
				if _, ok := retainedSections[childOfRetainedSection]; !ok {
					nextRetainedSections[childOfRetainedSection] = true
				}
			}
		}

		newlyRetainedSections = nextRetainedSections
	}

	reachable := make([]int, 0, len(retainedSections))
	for i := range sections.Len() {
		if retainedSections[i] {
			reachable = append(reachable, i)
		}
	}
	return reachable, nil
}
