// Package iopackage inspects Unreal IO-store export-bundle headers
// (.uasset/.umap Package Summaries) well enough to recover the export count,
// export-bundle count, and imported-package IDs the container header needs,
// without doing a full package deserialization.
//
// Offsets and the export-bundle-count heuristic are grounded on
// original_source/io_package.rs's PackageSummary2 and
// ExportBundleHeader4::from_buffer, the layout shared by UE 4.25+, 4.26 and
// 4.27 ("normal, plus, chaos").
package iopackage

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CookedAssetMagic is the first 4 bytes (little-endian u32) of a PAK cooked
// .uasset. A loose IO-store export bundle must never begin with it.
const CookedAssetMagic uint32 = 0x9E2A83C1

// exportMapEntrySize is the serialized size of one FExportMapEntry.
const exportMapEntrySize = 0x48

// exportBundleEntrySize is the serialized size of one FExportBundleEntry.
const exportBundleEntrySize = 8

// summary holds the PackageSummary2 fields the container header builder
// needs.
type summary struct {
	nameOffset         uint32
	nameCount          uint32
	exportOffset       uint32
	exportBundleOffset uint32
	graphOffset        uint32
}

// readSummary reads a PackageSummary2 from the start of r (the reader must
// be positioned at offset 0 of the package).
//
//	0x00 name                 FMappedName (u64)
//	0x08 source_name          FMappedName (u64)
//	0x10 package_flags        u32
//	0x14 cooked_header_size   u32
//	0x18 name_map_names_offset i32
//	0x1C name_map_names_size   i32
//	0x20 name_map_hashes_offset i32
//	0x24 name_map_hashes_size   i32
//	0x28 import_map_offset    i32
//	0x2C export_map_offset    i32
//	0x30 export_bundles_offset i32
//	0x34 graph_data_offset    i32
func readSummary(r io.ReadSeeker) (summary, error) {
	if _, err := r.Seek(0x18, io.SeekStart); err != nil {
		return summary{}, err
	}
	var nameOffset uint32
	if err := binary.Read(r, binary.LittleEndian, &nameOffset); err != nil {
		return summary{}, fmt.Errorf("iopackage: read name_map_names_offset: %w", err)
	}
	if _, err := r.Seek(0x8, io.SeekCurrent); err != nil {
		return summary{}, err
	}
	var nameHashesSize uint32
	if err := binary.Read(r, binary.LittleEndian, &nameHashesSize); err != nil {
		return summary{}, fmt.Errorf("iopackage: read name_map_hashes_size: %w", err)
	}
	// The 8-byte deduction removes the algorithm-id prefix written ahead of
	// the per-name hash blocks.
	nameCount := (nameHashesSize - 8) / 8
	var importMapOffset, exportOffset, exportBundleOffset, graphOffset uint32
	for _, dst := range []*uint32{&importMapOffset, &exportOffset, &exportBundleOffset, &graphOffset} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return summary{}, fmt.Errorf("iopackage: read package summary: %w", err)
		}
	}
	return summary{
		nameOffset:         nameOffset,
		nameCount:          nameCount,
		exportOffset:       exportOffset,
		exportBundleOffset: exportBundleOffset,
		graphOffset:        graphOffset,
	}, nil
}

func (s summary) exportCount() uint32 {
	return (s.exportBundleOffset - s.exportOffset) / exportMapEntrySize
}

// exportBundleCount re-derives the number of export bundles by reading
// candidate (first_entry_index, entry_count) pairs until they stop being
// contiguous or hit a zero count, then trimming the guess down until the
// summed entry counts exactly span the gap between the export-bundle
// section and the graph section. UE's on-disk header has no explicit
// export-bundle count field, so this reconstructs it the same way the
// original program does; the algorithm is kept verbatim on purpose.
func exportBundleCount(r io.ReadSeeker, s summary) (uint32, error) {
	if _, err := r.Seek(int64(s.exportBundleOffset), io.SeekStart); err != nil {
		return 0, err
	}
	type bundle struct{ first, count uint32 }
	var predicted []bundle
	var nextFirst uint32
	for {
		var first uint32
		if err := binary.Read(r, binary.LittleEndian, &first); err != nil {
			return 0, fmt.Errorf("iopackage: read export bundle header: %w", err)
		}
		if len(predicted) > 0 && first != nextFirst {
			break
		}
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return 0, fmt.Errorf("iopackage: read export bundle header: %w", err)
		}
		if count == 0 {
			break
		}
		predicted = append(predicted, bundle{first, count})
		nextFirst += count
	}
	actualEntries := (s.graphOffset - s.exportBundleOffset - uint32(len(predicted))*exportBundleEntrySize) / exportBundleEntrySize
	actualCount := len(predicted)
	sum := func(to int) uint32 {
		var total uint32
		for i := 0; i < to; i++ {
			total += predicted[i].count
		}
		return total
	}
	for actualCount > 0 && sum(actualCount) != actualEntries {
		actualCount--
	}
	if actualCount > 0 {
		return uint32(actualCount), nil
	}
	return 1, nil
}
