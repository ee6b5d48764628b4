// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

import (
	"github.com/go-kit/log"
	"github.com/ianlancetaylor/demangle"
)

// Option configures a File.
type Option func(*options)

type options struct {
	logger          log.Logger
	demangleOptions []demangle.Option
	// maxDecompressedSize bounds the output of compressed sections and MiniDebugInfo.
	maxDecompressedSize uint64
}

const defaultMaxDecompressedSize = 1 << 30

func defaultOptions() options {
	return options{
		logger:              log.NewNopLogger(),
		maxDecompressedSize: defaultMaxDecompressedSize,
	}
}

// WithLogger sets the logger used to report rejected structures at debug level.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDemangleOptions sets the options SymbolTable.DemangledName passes to the demangler.
func WithDemangleOptions(opts ...demangle.Option) Option {
	return func(o *options) {
		o.demangleOptions = opts
	}
}

// WithMaxDecompressedSize limits how large a decompressed section may be.
func WithMaxDecompressedSize(size uint64) Option {
	return func(o *options) {
		o.maxDecompressedSize = size
	}
}
