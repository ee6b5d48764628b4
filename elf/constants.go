// SPDX-License-Identifier: MIT
//
// Copyright (c) 2024 Adrian "asie" Siekierka

package elf

// Identification
const (
	EI_NIDENT     = 16
	EI_CLASS      = 4
	EI_DATA       = 5
	EI_VERSION    = 6
	EI_OSABI      = 7
	EI_ABIVERSION = 8

	EV_CURRENT = 1
)

var elfMagic = [4]byte{0x7F, 'E', 'L', 'F'}

type FileClass uint8

const (
	ELFCLASSNONE FileClass = 0
	ELFCLASS32   FileClass = 1
	ELFCLASS64   FileClass = 2
)

func (c FileClass) String() string {
	switch c {
	case ELFCLASS32:
		return "ELF32"
	case ELFCLASS64:
		return "ELF64"
	}
	return "unknown class"
}

type FileEndian uint8

const (
	ELFDATANONE FileEndian = 0
	ELFDATA2LSB FileEndian = 1
	ELFDATA2MSB FileEndian = 2
)

func (e FileEndian) String() string {
	switch e {
	case ELFDATA2LSB:
		return "little endian"
	case ELFDATA2MSB:
		return "big endian"
	}
	return "unknown endianness"
}

type FileABI uint8

const (
	ELFOSABI_NONE  FileABI = 0
	ELFOSABI_LINUX FileABI = 3
)

type FileType uint16

const (
	ET_NONE   FileType = 0
	ET_REL    FileType = 1
	ET_EXEC   FileType = 2
	ET_DYN    FileType = 3
	ET_CORE   FileType = 4
	ET_LOOS   FileType = 0xFE00
	ET_HIOS   FileType = 0xFEFF
	ET_LOPROC FileType = 0xFF00
	ET_HIPROC FileType = 0xFFFF
)

type MachineType uint16

const (
	EM_NONE      MachineType = 0   // None.
	EM_386       MachineType = 3   // 386-compatible processor; also used by gcc-ia16 to denote 8086-compatible processor.
	EM_MIPS      MachineType = 8   // MIPS processor
	EM_PPC       MachineType = 20  // PowerPC
	EM_PPC64     MachineType = 21  // 64-bit PowerPC
	EM_S390      MachineType = 22  // IBM S/390
	EM_ARM       MachineType = 40  // ARM processor
	EM_X86_64    MachineType = 62  // AMD x86-64
	EM_AARCH64   MachineType = 183 // ARM 64-bit
	EM_RISCV     MachineType = 243 // RISC-V
	EM_LOONGARCH MachineType = 258 // LoongArch
)

// Section header index
const (
	SHN_UNDEF     = 0
	SHN_LORESERVE = 0xFF00
	SHN_ABS       = 0xFFF1
	SHN_COMMON    = 0xFFF2
	SHN_XINDEX    = 0xFFFF
)

// Program header count escape, the real count lives in sh_info of section 0.
const PN_XNUM = 0xFFFF

type SectionHeaderType uint32

const (
	SHT_NULL           SectionHeaderType = 0
	SHT_PROGBITS       SectionHeaderType = 1
	SHT_SYMTAB         SectionHeaderType = 2
	SHT_STRTAB         SectionHeaderType = 3
	SHT_RELA           SectionHeaderType = 4
	SHT_HASH           SectionHeaderType = 5
	SHT_DYNAMIC        SectionHeaderType = 6
	SHT_NOTE           SectionHeaderType = 7
	SHT_NOBITS         SectionHeaderType = 8
	SHT_REL            SectionHeaderType = 9
	SHT_SHLIB          SectionHeaderType = 10
	SHT_DYNSYM         SectionHeaderType = 11
	SHT_INIT_ARRAY     SectionHeaderType = 14
	SHT_FINI_ARRAY     SectionHeaderType = 15
	SHT_PREINIT_ARRAY  SectionHeaderType = 16
	SHT_GROUP          SectionHeaderType = 17
	SHT_SYMTAB_SHNDX   SectionHeaderType = 18
	SHT_RELR           SectionHeaderType = 19
	SHT_GNU_ATTRIBUTES SectionHeaderType = 0x6ffffff5
	SHT_GNU_HASH       SectionHeaderType = 0x6ffffff6
	SHT_GNU_LIBLIST    SectionHeaderType = 0x6ffffff7
	SHT_GNU_VERDEF     SectionHeaderType = 0x6ffffffd
	SHT_GNU_VERNEED    SectionHeaderType = 0x6ffffffe
	SHT_GNU_VERSYM     SectionHeaderType = 0x6fffffff
)

func (s SectionHeaderType) HasSectionInInfo() bool {
	return s == SHT_REL || s == SHT_RELA || s == SHT_RELR
}

func (s SectionHeaderType) HasDataInFile() bool {
	return s != SHT_NOBITS && s != SHT_NULL
}

func (s SectionHeaderType) IsRelocation() bool {
	return s == SHT_REL || s == SHT_RELA || s == SHT_RELR
}

func (s SectionHeaderType) IsSymbolTable() bool {
	return s == SHT_SYMTAB || s == SHT_DYNSYM
}

// Section header flags
type SectionHeaderFlag uint64

const (
	SHF_WRITE            SectionHeaderFlag = 0x00000001
	SHF_ALLOC            SectionHeaderFlag = 0x00000002
	SHF_EXECINSTR        SectionHeaderFlag = 0x00000004
	SHF_MERGE            SectionHeaderFlag = 0x00000010
	SHF_STRINGS          SectionHeaderFlag = 0x00000020
	SHF_INFO_LINK        SectionHeaderFlag = 0x00000040
	SHF_LINK_ORDER       SectionHeaderFlag = 0x00000080
	SHF_OS_NONCONFORMING SectionHeaderFlag = 0x00000100
	SHF_GROUP            SectionHeaderFlag = 0x00000200
	SHF_TLS              SectionHeaderFlag = 0x00000400
	SHF_COMPRESSED       SectionHeaderFlag = 0x00000800
	SHF_GNU_RETAIN       SectionHeaderFlag = 0x00200000
	SHF_EXCLUDE          SectionHeaderFlag = 0x80000000
)

// Compression types of SHF_COMPRESSED sections
type CompressionType uint32

const (
	ELFCOMPRESS_ZLIB CompressionType = 1
	ELFCOMPRESS_ZSTD CompressionType = 2
)

// Symbol table type
type SymbolType int

const (
	STT_NOTYPE    SymbolType = 0
	STT_OBJECT    SymbolType = 1
	STT_FUNC      SymbolType = 2
	STT_SECTION   SymbolType = 3
	STT_FILE      SymbolType = 4
	STT_COMMON    SymbolType = 5
	STT_TLS       SymbolType = 6
	STT_GNU_IFUNC SymbolType = 10
)

type SymbolBinding int

const (
	STB_LOCAL      SymbolBinding = 0
	STB_GLOBAL     SymbolBinding = 1
	STB_WEAK       SymbolBinding = 2
	STB_GNU_UNIQUE SymbolBinding = 10
)

type SymbolVisibility int

const (
	STV_DEFAULT   SymbolVisibility = 0
	STV_INTERNAL  SymbolVisibility = 1
	STV_HIDDEN    SymbolVisibility = 2
	STV_PROTECTED SymbolVisibility = 3
)

// Section group flags
const (
	GRP_COMDAT = 1
)

type ProgramHeaderType uint32

const (
	PT_NULL         ProgramHeaderType = 0
	PT_LOAD         ProgramHeaderType = 1
	PT_DYNAMIC      ProgramHeaderType = 2
	PT_INTERP       ProgramHeaderType = 3
	PT_NOTE         ProgramHeaderType = 4
	PT_SHLIB        ProgramHeaderType = 5
	PT_PHDR         ProgramHeaderType = 6
	PT_TLS          ProgramHeaderType = 7
	PT_GNU_EH_FRAME ProgramHeaderType = 0x6474e550
	PT_GNU_STACK    ProgramHeaderType = 0x6474e551
	PT_GNU_RELRO    ProgramHeaderType = 0x6474e552
	PT_GNU_PROPERTY ProgramHeaderType = 0x6474e553
)

type ProgramHeaderFlag uint32

const (
	PF_X ProgramHeaderFlag = 0x1
	PF_W ProgramHeaderFlag = 0x2
	PF_R ProgramHeaderFlag = 0x4
)

type DynamicTag int64

const (
	DT_NULL            DynamicTag = 0
	DT_NEEDED          DynamicTag = 1
	DT_PLTRELSZ        DynamicTag = 2
	DT_PLTGOT          DynamicTag = 3
	DT_HASH            DynamicTag = 4
	DT_STRTAB          DynamicTag = 5
	DT_SYMTAB          DynamicTag = 6
	DT_RELA            DynamicTag = 7
	DT_RELASZ          DynamicTag = 8
	DT_RELAENT         DynamicTag = 9
	DT_STRSZ           DynamicTag = 10
	DT_SYMENT          DynamicTag = 11
	DT_INIT            DynamicTag = 12
	DT_FINI            DynamicTag = 13
	DT_SONAME          DynamicTag = 14
	DT_RPATH           DynamicTag = 15
	DT_SYMBOLIC        DynamicTag = 16
	DT_REL             DynamicTag = 17
	DT_RELSZ           DynamicTag = 18
	DT_RELENT          DynamicTag = 19
	DT_PLTREL          DynamicTag = 20
	DT_DEBUG           DynamicTag = 21
	DT_TEXTREL         DynamicTag = 22
	DT_JMPREL          DynamicTag = 23
	DT_BIND_NOW        DynamicTag = 24
	DT_INIT_ARRAY      DynamicTag = 25
	DT_FINI_ARRAY      DynamicTag = 26
	DT_INIT_ARRAYSZ    DynamicTag = 27
	DT_FINI_ARRAYSZ    DynamicTag = 28
	DT_RUNPATH         DynamicTag = 29
	DT_FLAGS           DynamicTag = 30
	DT_RELRSZ          DynamicTag = 35
	DT_RELR            DynamicTag = 36
	DT_RELRENT         DynamicTag = 37
	DT_ANDROID_REL     DynamicTag = 0x6000000f
	DT_ANDROID_RELSZ   DynamicTag = 0x60000010
	DT_ANDROID_RELA    DynamicTag = 0x60000011
	DT_ANDROID_RELASZ  DynamicTag = 0x60000012
	DT_ANDROID_RELR    DynamicTag = 0x6fffe000
	DT_ANDROID_RELRSZ  DynamicTag = 0x6fffe001
	DT_ANDROID_RELRENT DynamicTag = 0x6fffe003
	DT_GNU_HASH        DynamicTag = 0x6ffffef5
	DT_VERSYM          DynamicTag = 0x6ffffff0
	DT_RELACOUNT       DynamicTag = 0x6ffffff9
	DT_RELCOUNT        DynamicTag = 0x6ffffffa
	DT_FLAGS_1         DynamicTag = 0x6ffffffb
	DT_VERDEF          DynamicTag = 0x6ffffffc
	DT_VERDEFNUM       DynamicTag = 0x6ffffffd
	DT_VERNEED         DynamicTag = 0x6ffffffe
	DT_VERNEEDNUM      DynamicTag = 0x6fffffff
)

// IsString reports whether the tag value is an offset into the dynamic string table.
func (t DynamicTag) IsString() bool {
	switch t {
	case DT_NEEDED, DT_SONAME, DT_RPATH, DT_RUNPATH:
		return true
	}
	return false
}

// Symbol versioning
const (
	VER_NDX_LOCAL  = 0
	VER_NDX_GLOBAL = 1
	VERSYM_HIDDEN  = 0x8000
	VERSYM_VERSION = 0x7fff

	VER_DEF_CURRENT  = 1
	VER_NEED_CURRENT = 1

	VER_FLG_BASE = 0x1
	VER_FLG_WEAK = 0x2
	VER_FLG_INFO = 0x4
)

// Note types
const (
	NT_GNU_ABI_TAG         = 1
	NT_GNU_HWCAP           = 2
	NT_GNU_BUILD_ID        = 3
	NT_GNU_GOLD_VERSION    = 4
	NT_GNU_PROPERTY_TYPE_0 = 5
)

var ELF_NOTE_GNU = []byte("GNU")

type R_386 int

const (
	R_386_NONE        R_386 = 0
	R_386_32          R_386 = 1
	R_386_PC32        R_386 = 2
	R_386_GLOB_DAT    R_386 = 6
	R_386_JMP_SLOT    R_386 = 7
	R_386_RELATIVE    R_386 = 8
	R_386_16          R_386 = 20
	R_386_PC16        R_386 = 21
	R_386_SEG16       R_386 = 45
	R_386_SUB16       R_386 = 46
	R_386_SUB32       R_386 = 47
	R_386_SEGRELATIVE R_386 = 48
	R_386_OZSEG16     R_386 = 80
	R_386_OZRELSEG16  R_386 = 81
)

type R_X86_64 int

const (
	R_X86_64_NONE      R_X86_64 = 0
	R_X86_64_64        R_X86_64 = 1
	R_X86_64_PC32      R_X86_64 = 2
	R_X86_64_GLOB_DAT  R_X86_64 = 6
	R_X86_64_JUMP_SLOT R_X86_64 = 7
	R_X86_64_RELATIVE  R_X86_64 = 8
)

type R_ARM int

const (
	R_ARM_NONE     R_ARM = 0
	R_ARM_ABS32    R_ARM = 2
	R_ARM_RELATIVE R_ARM = 23
)

type R_AARCH64 int

const (
	R_AARCH64_NONE     R_AARCH64 = 0
	R_AARCH64_ABS64    R_AARCH64 = 257
	R_AARCH64_RELATIVE R_AARCH64 = 1027
)

const (
	R_PPC_RELATIVE   = 22
	R_PPC64_RELATIVE = 22
	R_390_RELATIVE   = 12
	R_RISCV_RELATIVE = 3
	R_LARCH_RELATIVE = 3
	R_MIPS_REL32     = 3
)

// relativeRelocationType is the type reported for RELR entries, which carry no type of their own.
func relativeRelocationType(m MachineType) uint32 {
	switch m {
	case EM_386:
		return uint32(R_386_RELATIVE)
	case EM_X86_64:
		return uint32(R_X86_64_RELATIVE)
	case EM_ARM:
		return uint32(R_ARM_RELATIVE)
	case EM_AARCH64:
		return uint32(R_AARCH64_RELATIVE)
	case EM_PPC:
		return R_PPC_RELATIVE
	case EM_PPC64:
		return R_PPC64_RELATIVE
	case EM_S390:
		return R_390_RELATIVE
	case EM_RISCV:
		return R_RISCV_RELATIVE
	case EM_LOONGARCH:
		return R_LARCH_RELATIVE
	case EM_MIPS:
		return R_MIPS_REL32
	}
	return 0
}
