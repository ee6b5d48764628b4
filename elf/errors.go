// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import "github.com/pkg/errors"

// Error kinds returned by the parser. Every error carries one of these and
// can be matched with errors.Is; the message adds the failing structure.
var (
	// ErrTruncated is returned when a declared offset or size reaches past the end of the data.
	ErrTruncated = errors.New("elf: truncated")
	// ErrOutOfBounds is returned when a table derived from a header does not fit in the buffer.
	// It matches ErrTruncated as well.
	ErrOutOfBounds = errors.Wrap(ErrTruncated, "elf: out of bounds")

	ErrInvalidMagic          = errors.New("elf: invalid magic")
	ErrUnsupportedClass      = errors.New("elf: unsupported class")
	ErrUnsupportedEndianness = errors.New("elf: unsupported endianness")
	ErrUnsupportedVersion    = errors.New("elf: unsupported version")

	// ErrInvalidIndex is returned when a table reference points outside its target
	// table or at an entry of the wrong kind.
	ErrInvalidIndex = errors.New("elf: invalid index")
	// ErrSizeMismatch is returned when an entry size or count does not agree with the data size.
	ErrSizeMismatch = errors.New("elf: size mismatch")
	// ErrMalformedChain is returned when a self-describing linked structure does not advance.
	ErrMalformedChain = errors.New("elf: malformed chain")
	// ErrUnsupported is returned for recognized layouts this package does not handle.
	ErrUnsupported = errors.New("elf: unsupported")
	// ErrCorruptData is returned when a compressed section or MiniDebugInfo stream fails to decompress.
	ErrCorruptData = errors.New("elf: corrupt compressed data")
)
