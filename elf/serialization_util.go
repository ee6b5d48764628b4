// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// normalizer is implemented by every raw on-disk layout. It widens the
// decoded fields into the class-independent form N.
type normalizer[N any] interface {
	normalize() N
}

// entryLayout is the on-disk representation of one structure kind in one
// ELF class.
type entryLayout[N any] interface {
	size() int
	decode(b []byte, order binary.ByteOrder) (N, error)
}

// fixed implements entryLayout for a raw struct R that normalizes into N.
type fixed[R normalizer[N], N any] struct{}

func (fixed[R, N]) size() int {
	var raw R
	return binary.Size(raw)
}

func (l fixed[R, N]) decode(b []byte, order binary.ByteOrder) (N, error) {
	var raw R
	if len(b) < l.size() {
		var zero N
		return zero, errors.Wrapf(ErrTruncated, "need %d bytes, have %d", l.size(), len(b))
	}
	if _, err := binary.Decode(b, order, &raw); err != nil {
		var zero N
		return zero, errors.Wrapf(ErrTruncated, "%v", err)
	}
	return raw.normalize(), nil
}

// sliceAt returns data[offset:offset+size] without copying.
func sliceAt(data []byte, offset, size uint64) ([]byte, error) {
	end := offset + size
	if end < offset || end > uint64(len(data)) {
		return nil, errors.Wrapf(ErrOutOfBounds, "range %#x+%#x exceeds %#x bytes", offset, size, len(data))
	}
	return data[offset:end], nil
}

// entries is a fixed-stride view of records of one kind.
type entries[N any] struct {
	data   []byte
	layout entryLayout[N]
	order  binary.ByteOrder
}

func newEntries[N any](data []byte, layout entryLayout[N], order binary.ByteOrder) (entries[N], error) {
	if len(data)%layout.size() != 0 {
		return entries[N]{}, errors.Wrapf(ErrSizeMismatch, "%d bytes is not a multiple of entry size %d", len(data), layout.size())
	}
	return entries[N]{data: data, layout: layout, order: order}, nil
}

// checkEntrySize validates a declared entry size against the layout. Zero means undeclared.
func checkEntrySize(declared uint64, size int) error {
	if declared != 0 && declared != uint64(size) {
		return errors.Wrapf(ErrSizeMismatch, "entry size %d, expected %d", declared, size)
	}
	return nil
}

func (e entries[N]) Len() int {
	if e.layout == nil {
		return 0
	}
	return len(e.data) / e.layout.size()
}

func (e entries[N]) raw(i int) ([]byte, error) {
	if i < 0 || i >= e.Len() {
		return nil, errors.Wrapf(ErrInvalidIndex, "entry %d of %d", i, e.Len())
	}
	size := e.layout.size()
	return e.data[i*size : (i+1)*size], nil
}

func (e entries[N]) get(i int) (N, error) {
	b, err := e.raw(i)
	if err != nil {
		var zero N
		return zero, err
	}
	return e.layout.decode(b, e.order)
}

// StringTable is a view of a NUL-separated string section.
type StringTable []byte

// Bytes returns the NUL-terminated string at offset, without the terminator.
func (t StringTable) Bytes(offset uint32) ([]byte, error) {
	if uint64(offset) >= uint64(len(t)) {
		if offset == 0 && len(t) == 0 {
			return nil, nil
		}
		return nil, errors.Wrapf(ErrOutOfBounds, "string offset %#x in table of %#x bytes", offset, len(t))
	}
	s := t[offset:]
	end := bytes.IndexByte(s, 0)
	if end < 0 {
		return nil, errors.Wrapf(ErrTruncated, "unterminated string at %#x", offset)
	}
	return s[:end], nil
}

// String is like Bytes, but returns a string.
func (t StringTable) String(offset uint32) (string, error) {
	b, err := t.Bytes(offset)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func alignUp[T constraints.Unsigned](v, align T) T {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func byteOrder(e FileEndian) binary.ByteOrder {
	if e == ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
