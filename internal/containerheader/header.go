// Package containerheader builds the per-container package-store blob that
// the TOC resolver places at the trailing chunk of the virtual CAS.
//
// Layout is grounded on original_source/io_toc.rs's ContainerHeader and
// io_package.rs's ContainerHeaderPackage::to_buffer_store_entry.
package containerheader

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/reloaded-project/utoc-emulator/internal/ioname"
)

// storeEntrySize is the fixed size of one package's 32-byte store entry.
const storeEntrySize = 32

// Package is one export-bundle file's contribution to the container
// header.
type Package struct {
	Hash              uint64
	Size              uint64 // export_bundle_size: the file's byte length
	ExportCount       uint32
	ExportBundleCount uint32
	LoadOrder         uint32
	ImportIDs         []uint64
}

// Build serializes the container header blob for containerID (normally
// ioname.Hash16("Game")) and the given packages, in the order they should
// appear (flatten order).
func Build(containerID uint64, packages []Package) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, containerID); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(packages))); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(0)); err != nil { // names array length, unused
		return nil, err
	}
	// Degenerate two-element name-hashes array the loader expects: a
	// length of 8 followed by the single algorithm-id constant.
	if err := binary.Write(&buf, binary.LittleEndian, uint32(8)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, ioname.NameHashAlgorithm); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(packages))); err != nil {
		return nil, err
	}
	for _, p := range packages {
		if err := binary.Write(&buf, binary.LittleEndian, p.Hash); err != nil {
			return nil, err
		}
	}

	storeEntries, importRegion, err := buildStoreEntries(packages)
	if err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(storeEntries)+len(importRegion))); err != nil {
		return nil, err
	}
	buf.Write(storeEntries)
	buf.Write(importRegion)

	if err := binary.Write(&buf, binary.LittleEndian, uint32(0)); err != nil { // culture-package map length
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(0)); err != nil { // package-redirects length
		return nil, err
	}

	return buf.Bytes(), nil
}

// buildStoreEntries lays out the fixed 32-byte-per-package region followed
// by the appended import-ID lists it points into. The relative offset in
// each entry is measured from that field to the start of the entry's
// import list; entries with no imports write 0.
func buildStoreEntries(packages []Package) (entries []byte, imports []byte, err error) {
	var entryBuf bytes.Buffer
	var importBuf bytes.Buffer

	importRegionStart := uint32(len(packages)) * storeEntrySize

	for _, p := range packages {
		if err := binary.Write(&entryBuf, binary.LittleEndian, p.Size); err != nil {
			return nil, nil, err
		}
		if err := binary.Write(&entryBuf, binary.LittleEndian, p.ExportCount); err != nil {
			return nil, nil, err
		}
		if err := binary.Write(&entryBuf, binary.LittleEndian, p.ExportBundleCount); err != nil {
			return nil, nil, err
		}
		if err := binary.Write(&entryBuf, binary.LittleEndian, p.LoadOrder); err != nil {
			return nil, nil, err
		}
		if err := binary.Write(&entryBuf, binary.LittleEndian, uint32(0)); err != nil { // padding
			return nil, nil, err
		}
		if err := binary.Write(&entryBuf, binary.LittleEndian, uint32(len(p.ImportIDs))); err != nil {
			return nil, nil, err
		}

		relativeOffsetFieldPos := uint32(entryBuf.Len())
		var relativeOffset uint32
		if len(p.ImportIDs) > 0 {
			importListStart := importRegionStart + uint32(importBuf.Len())
			if importListStart%8 != 0 {
				return nil, nil, fmt.Errorf("containerheader: import list for package %x is not 8-byte aligned", p.Hash)
			}
			relativeOffset = importListStart - relativeOffsetFieldPos
			for _, id := range p.ImportIDs {
				if err := binary.Write(&importBuf, binary.LittleEndian, id); err != nil {
					return nil, nil, err
				}
			}
		}
		if err := binary.Write(&entryBuf, binary.LittleEndian, relativeOffset); err != nil {
			return nil, nil, err
		}
	}

	return entryBuf.Bytes(), importBuf.Bytes(), nil
}
