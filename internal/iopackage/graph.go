package iopackage

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// graphPackage is one entry of the package's dependency graph: an imported
// package's hashed ID and the external arcs UE uses to order bundle
// execution. The arcs themselves never feed into the container header and
// are read only to advance the cursor past them.
type graphPackage struct {
	importedPackageID uint64
}

func readGraphPackages(r io.ReadSeeker, graphOffset uint32) ([]graphPackage, error) {
	if _, err := r.Seek(int64(graphOffset), io.SeekStart); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("iopackage: read imported_packages_count: %w", err)
	}
	packages := make([]graphPackage, 0, count)
	for i := uint32(0); i < count; i++ {
		var id uint64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("iopackage: read graph package %d: %w", i, err)
		}
		var arcCount uint32
		if err := binary.Read(r, binary.LittleEndian, &arcCount); err != nil {
			return nil, fmt.Errorf("iopackage: read graph package %d external arc count: %w", i, err)
		}
		if _, err := r.Seek(int64(arcCount)*8, io.SeekCurrent); err != nil {
			return nil, err
		}
		packages = append(packages, graphPackage{importedPackageID: id})
	}
	return packages, nil
}

// readPathNameHashes reads the first entries of the name map up to (and
// excluding) the first name that doesn't start with "/": UE always
// serializes asset file paths first, followed by script/object names, so
// this isolates the path-shaped prefix and hashes each one with Hash16.
func readPathNameHashes(r io.ReadSeeker, s summary, hash16 func(string) uint64) ([]uint64, error) {
	if _, err := r.Seek(int64(s.nameOffset), io.SeekStart); err != nil {
		return nil, err
	}
	var hashes []uint64
	for i := uint32(0); i < s.nameCount; i++ {
		name, err := readShortNameText(r)
		if err != nil {
			return nil, fmt.Errorf("iopackage: read name map entry %d: %w", i, err)
		}
		if !strings.HasPrefix(name, "/") {
			break
		}
		hashes = append(hashes, hash16(name))
	}
	return hashes, nil
}

// readShortNameText reads one text block of the short two-block name map: a
// big-endian u16 length and the raw bytes. The hash blocks live in their own
// region after all text blocks and are not read here.
func readShortNameText(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// filterImportIDs decides which graph-package import IDs belong in the
// container header's import list.
//
// When a package has only one export bundle, every graph-package import is
// trusted as-is. Packages with more than one bundle also pull in
// localization-data dependencies that the graph section does not
// distinguish from real imports, so those are filtered down to the ones
// whose hash also appears among the package's own path-shaped name-map
// entries.
//
// isBypassed, if non-nil, names graph-package IDs that skip the filter
// entirely and are always kept, matching the metadata sidecar's alt-auto-
// import override.
func filterImportIDs(graphPackages []graphPackage, bundleCount uint32, pathHashes []uint64, isBypassed func(uint64) bool) []uint64 {
	if isBypassed == nil {
		isBypassed = func(uint64) bool { return false }
	}
	if bundleCount == 1 {
		ids := make([]uint64, 0, len(graphPackages))
		for _, g := range graphPackages {
			ids = append(ids, g.importedPackageID)
		}
		return ids
	}
	set := make(map[uint64]struct{}, len(pathHashes))
	for _, h := range pathHashes {
		set[h] = struct{}{}
	}
	var ids []uint64
	for _, g := range graphPackages {
		if _, ok := set[g.importedPackageID]; ok || isBypassed(g.importedPackageID) {
			ids = append(ids, g.importedPackageID)
		}
	}
	return ids
}
