// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package probe determines the binary type of a Windows executable
// (MZ/NE/LE/PE) and, for PE images, locates named resources — just enough
// PE-parsing machinery (ImageDOSHeader, ImageNtHeader, the resource
// directory walk) to find the Inno Setup bootstrap, wherever the
// installer's build happens to have put it.
package probe

import (
	"encoding/binary"
	"errors"
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/saferwall/innoextract/log"
)

// Type identifies which executable family the MZ stub turned out to be.
type Type int

// Recognized executable families.
const (
	TypeUnknown Type = iota
	TypeMZ           // plain DOS .exe, no new-header pointer recognized
	TypeNE           // OS/2 / Win16 New Executable
	TypeLE           // Linear Executable / VxD
	TypePE           // Win32/Win64 Portable Executable
)

func (t Type) String() string {
	switch t {
	case TypeMZ:
		return "MZ"
	case TypeNE:
		return "NE"
	case TypeLE:
		return "LE"
	case TypePE:
		return "PE"
	default:
		return "unknown"
	}
}

// Errors returned while probing.
var (
	ErrDOSMagicNotFound = errors.New("probe: DOS header magic (MZ) not found")
	ErrInvalidNewHeader = errors.New("probe: new-header offset (e_lfanew) out of range")
	ErrOutsideBoundary  = errors.New("probe: read outside file boundary")
)

const (
	imageDOSSignature = 0x5A4D // "MZ"
	imageNTSignature  = 0x00004550
	imageOS2Signature = 0x454E // "NE"
	imageLESignature  = 0x454C // "LE"

	newHeaderOffsetPos = 0x3C

	imageNtOptionalHeader32Magic = 0x10b
	imageNtOptionalHeader64Magic = 0x20b

	optionalHeader32SizeToDataDirs = 96  // bytes before the data directory array in PE32
	optionalHeader64SizeToDataDirs = 112 // bytes before the data directory array in PE32+

	imageDirectoryEntryResource = 2
	numDataDirectoriesMinimum   = 3
)

// File is an opened executable, probed for its type and (for PE) its
// section table, ready to resolve resources.
type File struct {
	data    []byte
	backing mmap.MMap
	f       *os.File
	logger  *log.Helper

	exeType Type

	// PE-only fields.
	is64        bool
	numSections uint16
	sections    []peSection
	dataDirs    []imageDataDirectory
}

type peSection struct {
	name                 [8]byte
	virtualSize          uint32
	virtualAddress       uint32
	sizeOfRawData        uint32
	pointerToRawData     uint32
}

type imageDataDirectory struct {
	virtualAddress uint32
	size           uint32
}

// Open memory-maps path read-only and probes its header, the way the
// teacher's pe.New does for the files it parses.
func Open(path string, logger *log.Helper) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	file := &File{data: data, backing: data, f: f, logger: logger}
	if file.logger == nil {
		file.logger = log.Default()
	}
	if err := file.detect(); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// OpenBytes probes an in-memory image, for callers (such as tests) that
// already have the executable bytes loaded.
func OpenBytes(data []byte, logger *log.Helper) (*File, error) {
	file := &File{data: data, logger: logger}
	if file.logger == nil {
		file.logger = log.Default()
	}
	if err := file.detect(); err != nil {
		return nil, err
	}
	return file, nil
}

// Close releases the memory mapping and underlying file handle, if any.
func (f *File) Close() error {
	if f.backing != nil {
		_ = f.backing.Unmap()
	}
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

// Type reports the detected executable family.
func (f *File) Type() Type { return f.exeType }

// Data exposes the raw image bytes, e.g. so the bootstrap locator can read
// at a fixed offset.
func (f *File) Data() []byte { return f.data }

// Size returns the image length in bytes.
func (f *File) Size() int64 { return int64(len(f.data)) }

func (f *File) detect() error {
	if len(f.data) < 2 || f.data[0] != 'M' || f.data[1] != 'Z' {
		return ErrDOSMagicNotFound
	}
	f.exeType = TypeMZ

	if len(f.data) < newHeaderOffsetPos+4 {
		return nil
	}
	newHeaderOffset := binary.LittleEndian.Uint32(f.data[newHeaderOffsetPos:])
	if newHeaderOffset == 0 || uint64(newHeaderOffset)+4 > uint64(len(f.data)) {
		// Not fatal: plenty of real installers' stub is a tiny bare-MZ
		// blob and the bootstrap is found at the fixed 0x30 offset anyway.
		return nil
	}

	magic := f.data[newHeaderOffset : newHeaderOffset+2]
	switch {
	case magic[0] == 'P' && magic[1] == 'E':
		f.exeType = TypePE
		return f.parsePEHeaders(newHeaderOffset)
	case magic[0] == 'N' && magic[1] == 'E':
		f.exeType = TypeNE
	case magic[0] == 'L' && magic[1] == 'E':
		f.exeType = TypeLE
	}
	return nil
}

// parsePEHeaders walks just enough of the PE headers (COFF + section table)
// to later resolve an RVA to a file offset and find the resource directory.
func (f *File) parsePEHeaders(newHeaderOffset uint32) error {
	coffOffset := newHeaderOffset + 4 // past "PE\0\0"
	if uint64(coffOffset)+20 > uint64(len(f.data)) {
		return ErrOutsideBoundary
	}

	numberOfSections := binary.LittleEndian.Uint16(f.data[coffOffset+2:])
	sizeOfOptionalHeader := binary.LittleEndian.Uint16(f.data[coffOffset+16:])

	optHeaderOffset := coffOffset + 20
	if uint64(optHeaderOffset)+2 > uint64(len(f.data)) {
		return ErrOutsideBoundary
	}
	optMagic := binary.LittleEndian.Uint16(f.data[optHeaderOffset:])

	var sizeToDataDirs uint32
	switch optMagic {
	case imageNtOptionalHeader64Magic:
		f.is64 = true
		sizeToDataDirs = optionalHeader64SizeToDataDirs
	case imageNtOptionalHeader32Magic:
		f.is64 = false
		sizeToDataDirs = optionalHeader32SizeToDataDirs
	default:
		// Unrecognized optional-header magic: still MZ/PE-shaped, but we
		// can't walk its data directories. Not fatal to type detection.
		f.logger.Warnf("probe: unrecognized optional header magic 0x%x", optMagic)
		return nil
	}

	dataDirsOffset := optHeaderOffset + sizeToDataDirs
	sectionTableOffset := optHeaderOffset + uint32(sizeOfOptionalHeader)

	numDirs := (uint32(sizeOfOptionalHeader) - sizeToDataDirs) / 8
	if numDirs < numDataDirectoriesMinimum {
		f.logger.Warnf("probe: only %d data directories present", numDirs)
		return nil
	}
	if uint64(dataDirsOffset)+uint64(numDirs)*8 > uint64(len(f.data)) {
		return ErrOutsideBoundary
	}

	f.dataDirs = make([]imageDataDirectory, numDirs)
	for i := uint32(0); i < numDirs; i++ {
		off := dataDirsOffset + i*8
		f.dataDirs[i] = imageDataDirectory{
			virtualAddress: binary.LittleEndian.Uint32(f.data[off:]),
			size:           binary.LittleEndian.Uint32(f.data[off+4:]),
		}
	}

	f.numSections = numberOfSections
	if uint64(sectionTableOffset)+uint64(numberOfSections)*40 > uint64(len(f.data)) {
		return ErrOutsideBoundary
	}
	f.sections = make([]peSection, numberOfSections)
	for i := uint16(0); i < numberOfSections; i++ {
		off := sectionTableOffset + uint32(i)*40
		var sec peSection
		copy(sec.name[:], f.data[off:off+8])
		sec.virtualSize = binary.LittleEndian.Uint32(f.data[off+8:])
		sec.virtualAddress = binary.LittleEndian.Uint32(f.data[off+12:])
		sec.sizeOfRawData = binary.LittleEndian.Uint32(f.data[off+16:])
		sec.pointerToRawData = binary.LittleEndian.Uint32(f.data[off+20:])
		f.sections[i] = sec
	}

	return nil
}

// rvaToOffset maps a relative virtual address to a file offset by locating
// the section whose virtual range contains it. Mirrors
// pe.File.GetOffsetFromRva's fallback-to-raw-rva behavior when no section
// contains the address (headers-region data).
func (f *File) rvaToOffset(rva uint32) (uint32, bool) {
	for _, s := range f.sections {
		if rva >= s.virtualAddress && rva < s.virtualAddress+max32(s.virtualSize, s.sizeOfRawData) {
			return rva - s.virtualAddress + s.pointerToRawData, true
		}
	}
	if rva < uint32(len(f.data)) {
		return rva, true
	}
	return 0, false
}

func max32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// ResourceDirectoryRVA returns the resource data directory's RVA and size,
// or (0, 0, false) if the image has none (PE only).
func (f *File) ResourceDirectoryRVA() (rva, size uint32, ok bool) {
	if f.exeType != TypePE || len(f.dataDirs) <= imageDirectoryEntryResource {
		return 0, 0, false
	}
	dir := f.dataDirs[imageDirectoryEntryResource]
	if dir.virtualAddress == 0 {
		return 0, 0, false
	}
	return dir.virtualAddress, dir.size, true
}
