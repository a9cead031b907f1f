package iopackage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/reloaded-project/utoc-emulator/internal/ioname"
)

// Entry is everything the container header builder needs to know about one
// loose IO-store package: its export counts and the packages it imports.
type Entry struct {
	ExportCount       uint32
	ExportBundleCount uint32
	LoadOrder         uint32
	ImportIDs         []uint64
}

// IsAcceptableAsset reports whether the file at path is a loose IO-store
// export bundle rather than a PAK-cooked .uasset/.umap. A read error is
// returned as-is; callers should treat it as a failed ingest entry, not a
// rejection.
func IsAcceptableAsset(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("iopackage: open %s: %w", path, err)
	}
	defer f.Close()
	var magic uint32
	if err := binary.Read(f, binary.LittleEndian, &magic); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return true, nil
		}
		return false, fmt.Errorf("iopackage: read magic of %s: %w", path, err)
	}
	return magic != CookedAssetMagic, nil
}

// Inspect parses the package summary, export bundle section and graph
// section at the front of data and returns the fields the container header
// needs. isBypassed, if non-nil, names graph-package import IDs that skip
// the "/"-prefix name filter entirely (the metadata sidecar's alt-auto-
// import override).
func Inspect(data []byte, isBypassed func(uint64) bool) (Entry, error) {
	r := bytes.NewReader(data)
	s, err := readSummary(r)
	if err != nil {
		return Entry{}, err
	}
	bundleCount, err := exportBundleCount(r, s)
	if err != nil {
		return Entry{}, err
	}
	graphPackages, err := readGraphPackages(r, s.graphOffset)
	if err != nil {
		return Entry{}, err
	}
	var importIDs []uint64
	if bundleCount == 1 {
		importIDs = filterImportIDs(graphPackages, bundleCount, nil, isBypassed)
	} else {
		pathHashes, err := readPathNameHashes(r, s, ioname.Hash16)
		if err != nil {
			return Entry{}, err
		}
		importIDs = filterImportIDs(graphPackages, bundleCount, pathHashes, isBypassed)
	}
	return Entry{
		ExportCount:       s.exportCount(),
		ExportBundleCount: bundleCount,
		LoadOrder:         0,
		ImportIDs:         importIDs,
	}, nil
}

// InspectFile opens path and calls Inspect on its contents.
func InspectFile(path string, isBypassed func(uint64) bool) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("iopackage: read %s: %w", path, err)
	}
	return Inspect(data, isBypassed)
}
