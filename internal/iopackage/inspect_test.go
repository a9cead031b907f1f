package iopackage

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/reloaded-project/utoc-emulator/internal/ioname"
)

// buildSinglePackage assembles a minimal PackageSummary2 + export bundle +
// graph section for a package with a single export bundle, exportCount
// exports and the given imported package IDs.
func buildSinglePackage(t *testing.T, exportCount uint32, importIDs []uint64) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	w(uint64(0)) // name
	w(uint64(0)) // source_name
	w(uint32(0)) // package_flags
	w(uint32(0)) // cooked_header_size

	const headerSize = 0x40
	exportMapOffset := uint32(headerSize)
	exportBundleOffset := exportMapOffset + exportCount*exportMapEntrySize
	graphOffset := exportBundleOffset + exportBundleEntrySize + exportCount*exportBundleEntrySize

	w(int32(0))                  // name_map_names_offset
	w(int32(0))                  // name_map_names_size
	w(int32(0))                  // name_map_hashes_offset
	w(uint32(8))                 // name_map_hashes_size -> nameCount 0 (just the algorithm-id prefix)
	w(int32(0))                  // import_map_offset
	w(int32(exportMapOffset))    // export_map_offset
	w(int32(exportBundleOffset)) // export_bundles_offset
	w(int32(graphOffset))        // graph_data_offset
	w(int32(0))                  // graph_data_size
	w(int32(0))                  // pad

	if uint32(buf.Len()) != headerSize {
		t.Fatalf("header size drifted: wrote %d, want %d", buf.Len(), headerSize)
	}

	buf.Write(make([]byte, exportCount*exportMapEntrySize))

	w(uint32(0))           // first_entry_index
	w(uint32(exportCount)) // entry_count
	for i := uint32(0); i < exportCount; i++ {
		w(uint32(0)) // local_export_index
		w(uint32(0)) // command_type (Create)
	}

	w(uint32(len(importIDs)))
	for _, id := range importIDs {
		w(id)
		w(uint32(0)) // external_arc_count
	}

	return buf.Bytes()
}

func TestInspectSingleBundle(t *testing.T) {
	ids := []uint64{0xAAAAAAAAAAAAAAAA, 0xBBBBBBBBBBBBBBBB}
	data := buildSinglePackage(t, 3, ids)
	entry, err := Inspect(data, nil)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if entry.ExportCount != 3 {
		t.Errorf("ExportCount = %d, want 3", entry.ExportCount)
	}
	if entry.ExportBundleCount != 1 {
		t.Errorf("ExportBundleCount = %d, want 1", entry.ExportBundleCount)
	}
	if len(entry.ImportIDs) != len(ids) {
		t.Fatalf("ImportIDs = %v, want %v", entry.ImportIDs, ids)
	}
	for i, id := range ids {
		if entry.ImportIDs[i] != id {
			t.Errorf("ImportIDs[%d] = %x, want %x", i, entry.ImportIDs[i], id)
		}
	}
}

// buildMultiBundlePackage assembles a package with two export bundles (2
// exports then 1), a graph section listing 4 imports, and a name map whose
// first two entries are the path-shaped names two of those imports hash to.
// Exercises exportBundleCount's multi-header reconstruction and
// filterImportIDs' bundleCount != 1 branch.
func buildMultiBundlePackage(t *testing.T) (data []byte, pathImport1, pathImport2, droppedImport, bypassedImport uint64) {
	t.Helper()
	pathImport1 = ioname.Hash16("/Game/A")
	pathImport2 = ioname.Hash16("/Game/B")
	droppedImport = 0xDEADBEEFDEADBEEF
	bypassedImport = 0xCAFEBABECAFEBABE

	var buf bytes.Buffer
	w := func(v interface{}) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	const exportCount = 3
	const headerSize = 0x40
	exportMapOffset := uint32(headerSize)
	exportBundleOffset := exportMapOffset + exportCount*exportMapEntrySize
	// two bundle headers (8 bytes each) plus exportCount entries (8 bytes each).
	exportBundleSectionSize := uint32(2*8) + exportCount*exportBundleEntrySize
	graphOffset := exportBundleOffset + exportBundleSectionSize
	const importCount = 4
	graphSectionSize := uint32(4) + importCount*(8+4)
	nameOffset := graphOffset + graphSectionSize
	const nameCount = 3
	nameHashesSize := uint32(nameCount*8 + 8)

	w(uint64(0)) // name
	w(uint64(0)) // source_name
	w(uint32(0)) // package_flags
	w(uint32(0)) // cooked_header_size

	w(int32(nameOffset))         // name_map_names_offset
	w(int32(0))                  // name_map_names_size
	w(int32(0))                  // name_map_hashes_offset
	w(nameHashesSize)            // name_map_hashes_size
	w(int32(0))                  // import_map_offset
	w(int32(exportMapOffset))    // export_map_offset
	w(int32(exportBundleOffset)) // export_bundles_offset
	w(int32(graphOffset))        // graph_data_offset
	w(int32(0))                  // graph_data_size
	w(int32(0))                  // pad

	if uint32(buf.Len()) != headerSize {
		t.Fatalf("header size drifted: wrote %d, want %d", buf.Len(), headerSize)
	}

	buf.Write(make([]byte, exportCount*exportMapEntrySize))

	// bundle headers: bundle 1 starts where bundle 0's entries end.
	w(uint32(0)) // bundle 0 first_entry_index
	w(uint32(2)) // bundle 0 entry_count
	w(uint32(2)) // bundle 1 first_entry_index
	w(uint32(1)) // bundle 1 entry_count
	for i := 0; i < exportCount; i++ {
		w(uint32(0)) // local_export_index
		w(uint32(0)) // command_type (Create)
	}

	w(uint32(importCount))
	for _, id := range []uint64{pathImport1, pathImport2, droppedImport, bypassedImport} {
		w(id)
		w(uint32(0)) // external_arc_count
	}

	for _, name := range []string{"/Game/A", "/Game/B", "Other"} {
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(name))); err != nil {
			t.Fatalf("write name length: %v", err)
		}
		buf.WriteString(name)
	}

	return buf.Bytes(), pathImport1, pathImport2, droppedImport, bypassedImport
}

func TestInspectMultiBundleFiltersImportsByPathNameHash(t *testing.T) {
	data, pathImport1, pathImport2, droppedImport, bypassedImport := buildMultiBundlePackage(t)

	isBypassed := func(id uint64) bool { return id == bypassedImport }
	entry, err := Inspect(data, isBypassed)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if entry.ExportCount != 3 {
		t.Errorf("ExportCount = %d, want 3", entry.ExportCount)
	}
	if entry.ExportBundleCount != 2 {
		t.Errorf("ExportBundleCount = %d, want 2", entry.ExportBundleCount)
	}
	want := []uint64{pathImport1, pathImport2, bypassedImport}
	if len(entry.ImportIDs) != len(want) {
		t.Fatalf("ImportIDs = %x, want %x", entry.ImportIDs, want)
	}
	for i, id := range want {
		if entry.ImportIDs[i] != id {
			t.Errorf("ImportIDs[%d] = %x, want %x", i, entry.ImportIDs[i], id)
		}
	}
	for _, id := range entry.ImportIDs {
		if id == droppedImport {
			t.Errorf("dropped import %x survived the path-name filter", droppedImport)
		}
	}
}

func TestIsAcceptableAssetRejectsCookedMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cooked.uasset")
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, CookedAssetMagic)
	buf.Write([]byte("rest of a pak asset"))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ok, err := IsAcceptableAsset(path)
	if err != nil {
		t.Fatalf("IsAcceptableAsset failed: %v", err)
	}
	if ok {
		t.Error("IsAcceptableAsset accepted a cooked-magic file")
	}
}

func TestIsAcceptableAssetAcceptsLoosePackage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Loose.uasset")
	data := buildSinglePackage(t, 1, nil)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ok, err := IsAcceptableAsset(path)
	if err != nil {
		t.Fatalf("IsAcceptableAsset failed: %v", err)
	}
	if !ok {
		t.Error("IsAcceptableAsset rejected a loose IO-store package")
	}
}
