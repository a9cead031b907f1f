// Package metasidecar parses the optional ".utocmeta" override file a mod
// may ship alongside its assets and exposes it as the toc package's
// MetadataOverrides interface.
//
// Layout is grounded on spec.md §4.6; there is no original_source
// equivalent file, since the sidecar format is new to this system rather
// than carried over from the cooker.
package metasidecar

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CompressionFlags reports which codecs a compressed-package record claims,
// as data only: this system never applies compression (see spec.md
// Non-goals), it only carries the flag byte through for a future
// consumer.
type CompressionFlags byte

const (
	FlagZlib  CompressionFlags = 0x1
	FlagOodle CompressionFlags = 0x2
	FlagLZ4   CompressionFlags = 0x4
	FlagGzip  CompressionFlags = 0x8
)

// Map is a parsed .utocmeta file's contents, queried by the TOC resolver
// while it assembles container-header package records. The zero Map has no
// overrides and behaves like an absent sidecar.
type Map struct {
	Version           uint32
	bypassedImports   map[uint64]bool
	manualImports     map[uint64][]uint64
	compressionFlags  map[uint64]CompressionFlags
}

// IsAutoImportBypassed implements toc.MetadataOverrides.
func (m *Map) IsAutoImportBypassed(graphPackageID uint64) bool {
	if m == nil {
		return false
	}
	return m.bypassedImports[graphPackageID]
}

// ManualImports implements toc.MetadataOverrides.
func (m *Map) ManualImports(assetHash uint64) ([]uint64, bool) {
	if m == nil {
		return nil, false
	}
	ids, ok := m.manualImports[assetHash]
	return ids, ok
}

// CompressionFlagsFor returns the compression flags recorded for assetHash,
// if any. Carried as data only; see CompressionFlags.
func (m *Map) CompressionFlagsFor(assetHash uint64) (CompressionFlags, bool) {
	if m == nil {
		return 0, false
	}
	f, ok := m.compressionFlags[assetHash]
	return f, ok
}

// Merge folds other into m, overwriting any entry m already has for a given
// key. Used when more than one ingested mod ships a .utocmeta file.
func (m *Map) Merge(other *Map) {
	if other == nil {
		return
	}
	m.Version = other.Version
	for k, v := range other.bypassedImports {
		m.ensureBypassed()
		m.bypassedImports[k] = v
	}
	for k, v := range other.manualImports {
		m.ensureManual()
		m.manualImports[k] = v
	}
	for k, v := range other.compressionFlags {
		m.ensureCompression()
		m.compressionFlags[k] = v
	}
}

func (m *Map) ensureBypassed() {
	if m.bypassedImports == nil {
		m.bypassedImports = make(map[uint64]bool)
	}
}

func (m *Map) ensureManual() {
	if m.manualImports == nil {
		m.manualImports = make(map[uint64][]uint64)
	}
}

func (m *Map) ensureCompression() {
	if m.compressionFlags == nil {
		m.compressionFlags = make(map[uint64]CompressionFlags)
	}
}

// Parse reads a complete .utocmeta file per spec.md §4.6:
//
//	u32 version
//	u32 alt_auto_import_count (N1)
//	u32 manual_import_count (N2)
//	u32 compressed_package_count (N3)
//	N1 x u64 asset hashes (auto-import bypass set)
//	N2 x (u64 asset hash, u64 import count k, k x u64 import hashes)
//	N3 x u64 asset hashes, then N3 x u8 flag bytes
func Parse(r io.Reader) (*Map, error) {
	var version, n1, n2, n3 uint32
	for _, dst := range []*uint32{&version, &n1, &n2, &n3} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("metasidecar: read header: %w", err)
		}
	}

	m := &Map{Version: version}

	if n1 > 0 {
		m.ensureBypassed()
		for i := uint32(0); i < n1; i++ {
			var hash uint64
			if err := binary.Read(r, binary.LittleEndian, &hash); err != nil {
				return nil, fmt.Errorf("metasidecar: read bypass hash %d: %w", i, err)
			}
			m.bypassedImports[hash] = true
		}
	}

	if n2 > 0 {
		m.ensureManual()
		for i := uint32(0); i < n2; i++ {
			var assetHash, importCount uint64
			if err := binary.Read(r, binary.LittleEndian, &assetHash); err != nil {
				return nil, fmt.Errorf("metasidecar: read manual-import asset hash %d: %w", i, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &importCount); err != nil {
				return nil, fmt.Errorf("metasidecar: read manual-import count %d: %w", i, err)
			}
			ids := make([]uint64, importCount)
			for j := range ids {
				if err := binary.Read(r, binary.LittleEndian, &ids[j]); err != nil {
					return nil, fmt.Errorf("metasidecar: read manual import %d/%d: %w", i, j, err)
				}
			}
			m.manualImports[assetHash] = ids
		}
	}

	if n3 > 0 {
		hashes := make([]uint64, n3)
		for i := range hashes {
			if err := binary.Read(r, binary.LittleEndian, &hashes[i]); err != nil {
				return nil, fmt.Errorf("metasidecar: read compressed-package hash %d: %w", i, err)
			}
		}
		m.ensureCompression()
		for i, hash := range hashes {
			var flag byte
			if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
				return nil, fmt.Errorf("metasidecar: read compression flag %d: %w", i, err)
			}
			m.compressionFlags[hash] = CompressionFlags(flag)
		}
	}

	return m, nil
}
