// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package probe

import (
	"encoding/binary"
)

// RTRCData is the resource type Inno Setup's bootstrap locator looks under
// (RT_RCDATA in the Windows SDK headers).
const RTRCData = 10

// maxResourceEntries guards against a crafted or corrupt resource directory
// causing an unbounded walk.
const maxResourceEntries = 0x1000

// Resource is a located leaf in the resource tree: its data's file offset
// and size, ready to be read directly out of File.Data().
type Resource struct {
	Offset uint32
	Size   uint32
}

// FindResource walks the three-level PE resource directory (type, name,
// language) looking for a leaf under the given type and numeric name. The
// type level must point to a name sub-table (a leaf there is not a match);
// the name level may hold either a language sub-table or a leaf directly.
// The high bit of each directory entry's OffsetToData distinguishes them.
// The language level is always a leaf layer; the first language found under
// the matching name is returned, mirroring how installers typically carry a
// single neutral-language RCDATA blob.
func (f *File) FindResource(resType, name uint32) (Resource, bool) {
	if f.exeType != TypePE {
		return Resource{}, false
	}
	rva, size, ok := f.ResourceDirectoryRVA()
	if !ok {
		return Resource{}, false
	}
	baseOffset, ok := f.rvaToOffset(rva)
	if !ok {
		return Resource{}, false
	}

	typeEntry, ok := f.findDirectoryEntry(baseOffset, size, resType)
	if !ok {
		return Resource{}, false
	}
	if !typeEntry.isDirectory {
		return Resource{}, false
	}
	nameTableOffset := baseOffset + (typeEntry.offset &^ 0x80000000)

	nameEntry, ok := f.findDirectoryEntry(nameTableOffset, size, name)
	if !ok {
		return Resource{}, false
	}
	if !nameEntry.isDirectory {
		return f.resourceDataEntry(baseOffset + (nameEntry.offset &^ 0x80000000))
	}
	langTableOffset := baseOffset + (nameEntry.offset &^ 0x80000000)

	// Language level: take the first leaf entry present.
	hdr, ok := f.readResourceDirHeader(langTableOffset)
	if !ok {
		return Resource{}, false
	}
	count := int(hdr.numberOfNamedEntries) + int(hdr.numberOfIDEntries)
	entryOffset := langTableOffset + 16
	for i := 0; i < count && i < maxResourceEntries; i++ {
		e, ok := f.readDirectoryEntryAt(entryOffset)
		if !ok {
			break
		}
		if !e.isDirectory {
			return f.resourceDataEntry(baseOffset + (e.offset &^ 0x80000000))
		}
		entryOffset += 8
	}
	return Resource{}, false
}

type resourceDirHeader struct {
	numberOfNamedEntries uint16
	numberOfIDEntries    uint16
}

func (f *File) readResourceDirHeader(offset uint32) (resourceDirHeader, bool) {
	if uint64(offset)+16 > uint64(len(f.data)) {
		return resourceDirHeader{}, false
	}
	return resourceDirHeader{
		numberOfNamedEntries: binary.LittleEndian.Uint16(f.data[offset+12:]),
		numberOfIDEntries:    binary.LittleEndian.Uint16(f.data[offset+14:]),
	}, true
}

type directoryEntry struct {
	id          uint32
	isDirectory bool
	offset      uint32
}

func (f *File) readDirectoryEntryAt(offset uint32) (directoryEntry, bool) {
	if uint64(offset)+8 > uint64(len(f.data)) {
		return directoryEntry{}, false
	}
	name := binary.LittleEndian.Uint32(f.data[offset:])
	offsetToData := binary.LittleEndian.Uint32(f.data[offset+4:])
	return directoryEntry{
		id:          name,
		isDirectory: offsetToData&0x80000000 != 0,
		offset:      offsetToData,
	}, true
}

// findDirectoryEntry scans the numeric (non-named) entries of the resource
// directory table at dirOffset for one matching id. Named entries are
// skipped: the bootstrap only ever looks up numeric type/name pairs.
func (f *File) findDirectoryEntry(dirOffset, size, id uint32) (directoryEntry, bool) {
	hdr, ok := f.readResourceDirHeader(dirOffset)
	if !ok {
		return directoryEntry{}, false
	}
	total := int(hdr.numberOfNamedEntries) + int(hdr.numberOfIDEntries)
	if total > maxResourceEntries {
		f.logger.Warnf("probe: resource directory has %d entries, refusing to walk", total)
		return directoryEntry{}, false
	}

	// Numeric entries are stored after all named entries.
	entryOffset := dirOffset + 16 + uint32(hdr.numberOfNamedEntries)*8
	for i := 0; i < int(hdr.numberOfIDEntries); i++ {
		e, ok := f.readDirectoryEntryAt(entryOffset)
		if !ok {
			return directoryEntry{}, false
		}
		if e.id == id {
			return e, true
		}
		entryOffset += 8
	}
	return directoryEntry{}, false
}

func (f *File) resourceDataEntry(offset uint32) (Resource, bool) {
	if uint64(offset)+16 > uint64(len(f.data)) {
		return Resource{}, false
	}
	dataRVA := binary.LittleEndian.Uint32(f.data[offset:])
	size := binary.LittleEndian.Uint32(f.data[offset+4:])
	fileOffset, ok := f.rvaToOffset(dataRVA)
	if !ok {
		return Resource{}, false
	}
	return Resource{Offset: fileOffset, Size: size}, true
}

// neResourceTable entries use bit-shift-based offsets relative to the start
// of the NE resource table, rather than RVAs, and only have a two-level
// (type, name) hierarchy with no language level.
type neResourceEntry struct {
	typeID uint16
	offset uint32
	length uint32
}

// FindNEResource walks the flatter OS/2 NE two-level resource table,
// starting at neTableOffset (the file offset of the NE header's
// rsrc_tab field, already resolved by the caller). shift is the table's
// alignment shift count, stored as the first uint16 of the table.
func (f *File) FindNEResource(neTableOffset uint32, resType uint16) (Resource, bool) {
	if uint64(neTableOffset)+2 > uint64(len(f.data)) {
		return Resource{}, false
	}
	shift := binary.LittleEndian.Uint16(f.data[neTableOffset:])
	offset := neTableOffset + 2

	for i := 0; i < maxResourceEntries; i++ {
		if uint64(offset)+8 > uint64(len(f.data)) {
			return Resource{}, false
		}
		typeID := binary.LittleEndian.Uint16(f.data[offset:])
		if typeID == 0 {
			// End-of-table marker.
			return Resource{}, false
		}
		count := binary.LittleEndian.Uint16(f.data[offset+2:])
		offset += 8 // TYPEINFO header: rtTypeID, rtResourceCount, reserved(4)

		isTarget := typeID == (resType | 0x8000)
		for n := uint16(0); n < count; n++ {
			if uint64(offset)+12 > uint64(len(f.data)) {
				return Resource{}, false
			}
			entryOffset := binary.LittleEndian.Uint16(f.data[offset:])
			entryLength := binary.LittleEndian.Uint16(f.data[offset+2:])
			if isTarget {
				return Resource{
					Offset: uint32(entryOffset) << shift,
					Size:   uint32(entryLength) << shift,
				}, true
			}
			offset += 12 // NAMEINFO: rnOffset, rnLength, rnFlags, rnID, rnHandle, rnUsage
		}
	}
	return Resource{}, false
}
