// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"

	"github.com/pkg/errors"
)

type elfHeader32 struct {
	Type             uint16
	Machine          uint16
	Version          uint32
	Entry            uint32
	ProgHdrOff       uint32
	SecHdrOff        uint32
	Flags            uint32
	HeaderSize       uint16
	ProgHdrEntrySize uint16
	ProgHdrCount     uint16
	SecHdrEntrySize  uint16
	SecHdrCount      uint16
	SecHdrStrIndex   uint16
}

type elfHeader64 struct {
	Type             uint16
	Machine          uint16
	Version          uint32
	Entry            uint64
	ProgHdrOff       uint64
	SecHdrOff        uint64
	Flags            uint32
	HeaderSize       uint16
	ProgHdrEntrySize uint16
	ProgHdrCount     uint16
	SecHdrEntrySize  uint16
	SecHdrCount      uint16
	SecHdrStrIndex   uint16
}

func (fh elfHeader32) normalize() FileHeader {
	return FileHeader{
		Type:             FileType(fh.Type),
		Machine:          MachineType(fh.Machine),
		Version:          fh.Version,
		Entry:            uint64(fh.Entry),
		ProgHdrOffset:    uint64(fh.ProgHdrOff),
		SecHdrOffset:     uint64(fh.SecHdrOff),
		Flags:            fh.Flags,
		HeaderSize:       fh.HeaderSize,
		ProgHdrEntrySize: fh.ProgHdrEntrySize,
		ProgHdrCount:     fh.ProgHdrCount,
		SecHdrEntrySize:  fh.SecHdrEntrySize,
		SecHdrCount:      fh.SecHdrCount,
		SecHdrStrIdx:     fh.SecHdrStrIndex,
	}
}

func (fh elfHeader64) normalize() FileHeader {
	return FileHeader{
		Type:             FileType(fh.Type),
		Machine:          MachineType(fh.Machine),
		Version:          fh.Version,
		Entry:            fh.Entry,
		ProgHdrOffset:    fh.ProgHdrOff,
		SecHdrOffset:     fh.SecHdrOff,
		Flags:            fh.Flags,
		HeaderSize:       fh.HeaderSize,
		ProgHdrEntrySize: fh.ProgHdrEntrySize,
		ProgHdrCount:     fh.ProgHdrCount,
		SecHdrEntrySize:  fh.SecHdrEntrySize,
		SecHdrCount:      fh.SecHdrCount,
		SecHdrStrIdx:     fh.SecHdrStrIndex,
	}
}

// readFileHeader validates the identification bytes and decodes the header
// that follows them in the file's own class and byte order.
func readFileHeader(data []byte) (FileHeader, *classLayout, error) {
	if len(data) < EI_NIDENT {
		return FileHeader{}, nil, errors.Wrapf(ErrTruncated, "%d bytes is too short for an ELF identification", len(data))
	}
	ident := data[:EI_NIDENT]

	if !bytes.Equal(ident[:4], elfMagic[:]) {
		return FileHeader{}, nil, errors.Wrapf(ErrInvalidMagic, "% x", ident[:4])
	}

	class := FileClass(ident[EI_CLASS])
	layout, ok := layouts[class]
	if !ok {
		return FileHeader{}, nil, errors.Wrapf(ErrUnsupportedClass, "class %d", class)
	}

	endian := FileEndian(ident[EI_DATA])
	if endian != ELFDATA2LSB && endian != ELFDATA2MSB {
		return FileHeader{}, nil, errors.Wrapf(ErrUnsupportedEndianness, "data encoding %d", endian)
	}

	if ident[EI_VERSION] != EV_CURRENT {
		return FileHeader{}, nil, errors.Wrapf(ErrUnsupportedVersion, "identification version %d", ident[EI_VERSION])
	}

	if len(data) < EI_NIDENT+layout.fileHeader.size() {
		return FileHeader{}, nil, errors.Wrapf(ErrTruncated, "%d bytes is too short for an %s header", len(data), class)
	}
	fh, err := layout.fileHeader.decode(data[EI_NIDENT:], byteOrder(endian))
	if err != nil {
		return FileHeader{}, nil, err
	}
	if fh.Version != EV_CURRENT {
		return FileHeader{}, nil, errors.Wrapf(ErrUnsupportedVersion, "file version %d", fh.Version)
	}

	fh.Class = class
	fh.Endian = endian
	fh.HeaderVersion = ident[EI_VERSION]
	fh.ABI = FileABI(ident[EI_OSABI])
	fh.ABIVersion = ident[EI_ABIVERSION]
	return fh, layout, nil
}
