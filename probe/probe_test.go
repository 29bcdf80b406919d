// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package probe

import (
	"encoding/binary"
	"testing"
)

func minimalMZ() []byte {
	data := make([]byte, 0x40)
	data[0], data[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(data[newHeaderOffsetPos:], 0) // no new header
	return data
}

func TestDetectPlainMZ(t *testing.T) {
	f, err := OpenBytes(minimalMZ(), nil)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if f.Type() != TypeMZ {
		t.Errorf("got %v, want TypeMZ", f.Type())
	}
}

func TestDetectMissingDOSMagic(t *testing.T) {
	_, err := OpenBytes([]byte{0, 0, 0, 0}, nil)
	if err != ErrDOSMagicNotFound {
		t.Errorf("got %v, want ErrDOSMagicNotFound", err)
	}
}

func TestDetectNESignature(t *testing.T) {
	data := make([]byte, 0x200)
	data[0], data[1] = 'M', 'Z'
	const newHeader = 0x80
	binary.LittleEndian.PutUint32(data[newHeaderOffsetPos:], newHeader)
	data[newHeader], data[newHeader+1] = 'N', 'E'

	f, err := OpenBytes(data, nil)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if f.Type() != TypeNE {
		t.Errorf("got %v, want TypeNE", f.Type())
	}
}

func TestDetectLESignature(t *testing.T) {
	data := make([]byte, 0x200)
	data[0], data[1] = 'M', 'Z'
	const newHeader = 0x80
	binary.LittleEndian.PutUint32(data[newHeaderOffsetPos:], newHeader)
	data[newHeader], data[newHeader+1] = 'L', 'E'

	f, err := OpenBytes(data, nil)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if f.Type() != TypeLE {
		t.Errorf("got %v, want TypeLE", f.Type())
	}
}

// buildMinimalPE32 constructs a PE32 image with one section and one
// resource directory tree containing a single RT_RCDATA/name=11111 leaf,
// large enough to exercise FindResource end to end.
func buildMinimalPE32(t *testing.T, resourceTypeID, resourceNameID uint32, payload []byte) []byte {
	t.Helper()

	const (
		newHeader          = 0x80
		coffOffset         = newHeader + 4
		optHeaderOffset    = coffOffset + 20
		sizeOfOptionalHdr  = 224 // 96 fixed fields + 16 dirs * 8
		numDataDirectories = 16
		sectionTableOffset = optHeaderOffset + sizeOfOptionalHdr
		sectionRawOffset   = 0x400
		sectionVA          = 0x1000
	)

	// Resource directory layout within the section, at sectionVA:
	//   [0:16]   root dir header (0 named, 1 id entry)
	//   [16:24]  root entry: id=resourceTypeID -> subdir at +40 (high bit set)
	//   [40:56]  type-level dir header (0 named, 1 id entry)
	//   [56:64]  type entry: id=resourceNameID -> subdir at +80
	//   [80:96]  name-level dir header (0 named, 1 id entry)
	//   [96:104] name entry: id=0 (lang) -> data entry at +104 (no high bit)
	//   [104:120] IMAGE_RESOURCE_DATA_ENTRY{OffsetToData=RVA of payload, Size}
	//   [120:...] payload
	const (
		rootDirOff   = 0
		rootEntOff   = 16
		typeDirOff   = 40
		typeEntOff   = 56
		nameDirOff   = 80
		nameEntOff   = 96
		dataEntOff   = 104
		payloadOff   = 120
	)
	payloadRVA := sectionVA + payloadOff

	rsrc := make([]byte, payloadOff+len(payload))
	putDirHeader := func(off int, idEntries uint16) {
		binary.LittleEndian.PutUint16(rsrc[off+12:], 0)
		binary.LittleEndian.PutUint16(rsrc[off+14:], idEntries)
	}
	putEntry := func(off int, id, offsetToData uint32, isDir bool) {
		binary.LittleEndian.PutUint32(rsrc[off:], id)
		if isDir {
			offsetToData |= 0x80000000
		}
		binary.LittleEndian.PutUint32(rsrc[off+4:], offsetToData)
	}

	putDirHeader(rootDirOff, 1)
	putEntry(rootEntOff, resourceTypeID, typeDirOff, true)
	putDirHeader(typeDirOff, 1)
	putEntry(typeEntOff, resourceNameID, nameDirOff, true)
	putDirHeader(nameDirOff, 1)
	putEntry(nameEntOff, 0, dataEntOff, false)
	binary.LittleEndian.PutUint32(rsrc[dataEntOff:], uint32(payloadRVA))
	binary.LittleEndian.PutUint32(rsrc[dataEntOff+4:], uint32(len(payload)))
	copy(rsrc[payloadOff:], payload)

	totalSize := sectionRawOffset + len(rsrc)
	data := make([]byte, totalSize)
	data[0], data[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(data[newHeaderOffsetPos:], newHeader)
	copy(data[newHeader:], []byte("PE\x00\x00"))
	binary.LittleEndian.PutUint16(data[coffOffset+2:], 1) // NumberOfSections
	binary.LittleEndian.PutUint16(data[coffOffset+16:], sizeOfOptionalHdr)

	binary.LittleEndian.PutUint16(data[optHeaderOffset:], imageNtOptionalHeader32Magic)

	// Data directories start at optHeaderOffset+96; resource dir is index 2.
	dataDirsOff := optHeaderOffset + optionalHeader32SizeToDataDirs
	binary.LittleEndian.PutUint32(data[dataDirsOff+imageDirectoryEntryResource*8:], sectionVA)
	binary.LittleEndian.PutUint32(data[dataDirsOff+imageDirectoryEntryResource*8+4:], uint32(len(rsrc)))
	_ = numDataDirectories

	// Section header ".rsrc".
	secOff := sectionTableOffset
	copy(data[secOff:], []byte(".rsrc\x00\x00\x00"))
	binary.LittleEndian.PutUint32(data[secOff+8:], uint32(len(rsrc)))  // VirtualSize
	binary.LittleEndian.PutUint32(data[secOff+12:], sectionVA)         // VirtualAddress
	binary.LittleEndian.PutUint32(data[secOff+16:], uint32(len(rsrc))) // SizeOfRawData
	binary.LittleEndian.PutUint32(data[secOff+20:], sectionRawOffset)  // PointerToRawData

	copy(data[sectionRawOffset:], rsrc)

	return data
}

func TestFindResourceRCData(t *testing.T) {
	payload := []byte("bootstrap-blob")
	data := buildMinimalPE32(t, RTRCData, 11111, payload)

	f, err := OpenBytes(data, nil)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if f.Type() != TypePE {
		t.Fatalf("got %v, want TypePE", f.Type())
	}

	res, ok := f.FindResource(RTRCData, 11111)
	if !ok {
		t.Fatal("FindResource: not found")
	}
	got := data[res.Offset : res.Offset+res.Size]
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestFindResourceMiss(t *testing.T) {
	data := buildMinimalPE32(t, RTRCData, 11111, []byte("x"))
	f, err := OpenBytes(data, nil)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if _, ok := f.FindResource(RTRCData, 22222); ok {
		t.Error("FindResource: expected miss for unknown name id")
	}
}
