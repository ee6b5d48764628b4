// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Legacy .zdebug_* sections start with this magic and a big-endian 64-bit size.
var zdebugMagic = []byte("ZLIB")

const zdebugHeaderSize = 12

// CompressionHeader returns the compression header of section i. The second
// result is false when the section is not SHF_COMPRESSED.
func (t *SectionTable) CompressionHeader(i int) (CompressionHeader, bool, error) {
	s, err := t.Section(i)
	if err != nil {
		return CompressionHeader{}, false, err
	}
	if s.Flags&SHF_COMPRESSED == 0 {
		return CompressionHeader{}, false, nil
	}
	data, err := t.Data(i)
	if err != nil {
		return CompressionHeader{}, false, err
	}
	ch, err := t.file.layout.compressionHeader.decode(data, t.file.order)
	if err != nil {
		return CompressionHeader{}, false, errors.WithMessagef(err, "compression header of section %d", i)
	}
	return ch, true, nil
}

// UncompressedData returns the contents of section i, inflating SHF_COMPRESSED
// and legacy .zdebug sections. Other sections are returned without copying.
func (t *SectionTable) UncompressedData(i int) ([]byte, error) {
	data, err := t.Data(i)
	if err != nil {
		return nil, err
	}

	ch, compressed, err := t.CompressionHeader(i)
	if err != nil {
		return nil, err
	}
	if compressed {
		out, err := t.file.decompress(ch.Type, data[t.file.layout.compressionHeader.size():], ch.Size)
		if err != nil {
			level.Debug(t.file.opts.logger).Log("msg", "cannot decompress section", "section", i, "type", ch.Type, "err", err)
			return nil, errors.WithMessagef(err, "section %d", i)
		}
		return out, nil
	}

	name, err := t.Name(i)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(name, ".zdebug_") && bytes.HasPrefix(data, zdebugMagic) {
		if len(data) < zdebugHeaderSize {
			return nil, errors.Wrapf(ErrTruncated, "section %s header", name)
		}
		size := binary.BigEndian.Uint64(data[4:zdebugHeaderSize])
		out, err := t.file.decompress(ELFCOMPRESS_ZLIB, data[zdebugHeaderSize:], size)
		if err != nil {
			return nil, errors.WithMessagef(err, "section %s", name)
		}
		return out, nil
	}
	return data, nil
}

// decompress inflates body, which must produce exactly size bytes.
func (f *File) decompress(typ CompressionType, body []byte, size uint64) ([]byte, error) {
	if size > f.opts.maxDecompressedSize {
		return nil, errors.Wrapf(ErrUnsupported, "uncompressed size %d exceeds limit %d", size, f.opts.maxDecompressedSize)
	}

	var r io.Reader
	switch typ {
	case ELFCOMPRESS_ZLIB:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptData, "zlib: %v", err)
		}
		defer zr.Close()
		r = zr
	case ELFCOMPRESS_ZSTD:
		zr, err := zstd.NewReader(bytes.NewReader(body), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrapf(ErrCorruptData, "zstd: %v", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, errors.Wrapf(ErrUnsupported, "compression type %d", typ)
	}

	return readExactly(r, size)
}

// readLimited reads r to the end. Streams longer than limit bytes are
// rejected after reading at most limit+1 bytes.
func readLimited(r io.Reader, limit uint64) ([]byte, error) {
	n := int64(math.MaxInt64)
	if limit < math.MaxInt64 {
		n = int64(limit) + 1
	}
	out, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptData, "%v", err)
	}
	if uint64(len(out)) > limit {
		return nil, errors.Wrapf(ErrUnsupported, "decompressed data exceeds %d bytes", limit)
	}
	return out, nil
}

// readExactly reads r to the end and fails unless it produced size bytes.
func readExactly(r io.Reader, size uint64) ([]byte, error) {
	out, err := readLimited(r, size)
	if err != nil && !errors.Is(err, ErrUnsupported) {
		return nil, err
	}
	if err != nil || uint64(len(out)) != size {
		return nil, errors.Wrapf(ErrSizeMismatch, "decompressed size does not match %d from the header", size)
	}
	return out, nil
}
