// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"bytes"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

const miniDebugInfoSection = ".gnu_debugdata"

// MiniDebugInfo opens the xz-compressed ELF file embedded in the
// .gnu_debugdata section. It is parsed with the same options as f and owns
// its decompressed buffer.
func (f *File) MiniDebugInfo() (*File, bool, error) {
	sections, err := f.Sections()
	if err != nil {
		return nil, false, err
	}
	s, ok, err := sections.SectionByName(miniDebugInfoSection)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := sections.Data(s.Index)
	if err != nil {
		return nil, false, err
	}

	reader, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, errors.Wrapf(ErrCorruptData, "xz: %v", err)
	}
	uncompressed, err := readLimited(reader, f.opts.maxDecompressedSize)
	if err != nil {
		return nil, false, errors.WithMessage(err, miniDebugInfoSection)
	}

	opts := f.opts
	nested, err := Parse(uncompressed, func(o *options) { *o = opts })
	if err != nil {
		level.Debug(f.opts.logger).Log("msg", "invalid MiniDebugInfo", "err", err)
		return nil, false, errors.WithMessage(err, miniDebugInfoSection)
	}
	return nested, true, nil
}
