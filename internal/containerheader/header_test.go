package containerheader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/reloaded-project/utoc-emulator/internal/ioname"
)

func TestBuildSelfConsistency(t *testing.T) {
	packages := []Package{
		{Hash: 0x1, Size: 100, ExportCount: 1, ExportBundleCount: 1, ImportIDs: nil},
		{Hash: 0x2, Size: 200, ExportCount: 2, ExportBundleCount: 1, ImportIDs: []uint64{0xAAAA, 0xBBBB}},
		{Hash: 0x3, Size: 300, ExportCount: 3, ExportBundleCount: 1, ImportIDs: []uint64{0xCCCC}},
	}
	containerID := ioname.Hash16("Game")
	data, err := Build(containerID, packages)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	r := bytes.NewReader(data)
	var gotContainerID uint64
	binary.Read(r, binary.LittleEndian, &gotContainerID)
	if gotContainerID != containerID {
		t.Errorf("container ID mismatch: got %x, want %x", gotContainerID, containerID)
	}

	var packageNameCount, namesLen, hashesLen uint32
	binary.Read(r, binary.LittleEndian, &packageNameCount)
	binary.Read(r, binary.LittleEndian, &namesLen)
	binary.Read(r, binary.LittleEndian, &hashesLen)
	if packageNameCount != uint32(len(packages)) {
		t.Errorf("package-name count = %d, want %d", packageNameCount, len(packages))
	}
	if hashesLen != 8 {
		t.Errorf("degenerate name-hashes array length = %d, want 8", hashesLen)
	}
	var algoID uint64
	binary.Read(r, binary.LittleEndian, &algoID)
	if algoID != ioname.NameHashAlgorithm {
		t.Errorf("algorithm id = %x, want %x", algoID, ioname.NameHashAlgorithm)
	}

	var packageIDCount uint32
	binary.Read(r, binary.LittleEndian, &packageIDCount)
	if packageIDCount != uint32(len(packages)) {
		t.Fatalf("package-ID count = %d, want %d", packageIDCount, len(packages))
	}
	gotHashes := make([]uint64, packageIDCount)
	for i := range gotHashes {
		binary.Read(r, binary.LittleEndian, &gotHashes[i])
	}
	for i, p := range packages {
		if gotHashes[i] != p.Hash {
			t.Errorf("package hash[%d] = %x, want %x", i, gotHashes[i], p.Hash)
		}
	}

	var blobLen uint32
	binary.Read(r, binary.LittleEndian, &blobLen)
	blob := make([]byte, blobLen)
	if _, err := r.Read(blob); err != nil {
		t.Fatalf("read store-entries blob: %v", err)
	}

	for i, p := range packages {
		entryOff := i * storeEntrySize
		entry := blob[entryOff : entryOff+storeEntrySize]
		relOff := binary.LittleEndian.Uint32(entry[28:32])
		impCount := binary.LittleEndian.Uint32(entry[24:28])
		if impCount != uint32(len(p.ImportIDs)) {
			t.Errorf("entry %d imported_package_count = %d, want %d", i, impCount, len(p.ImportIDs))
		}
		if len(p.ImportIDs) == 0 {
			if relOff != 0 {
				t.Errorf("entry %d with no imports should have relative offset 0, got %d", i, relOff)
			}
			continue
		}
		// The offset resolves from the field to a position inside the blob;
		// that position must be 8-byte aligned relative to the blob start.
		importsStart := entryOff + 28 + int(relOff)
		if importsStart%8 != 0 {
			t.Errorf("entry %d import list offset %d in the blob is not 8-byte aligned", i, importsStart)
		}
		for j, id := range p.ImportIDs {
			got := binary.LittleEndian.Uint64(blob[importsStart+j*8 : importsStart+j*8+8])
			if got != id {
				t.Errorf("entry %d import[%d] = %x, want %x", i, j, got, id)
			}
		}
	}
}
