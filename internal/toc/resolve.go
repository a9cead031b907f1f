package toc

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/reloaded-project/utoc-emulator/internal/assettree"
	"github.com/reloaded-project/utoc-emulator/internal/containerheader"
	"github.com/reloaded-project/utoc-emulator/internal/ioname"
	"github.com/reloaded-project/utoc-emulator/internal/iopackage"
)

// Options configures a single Build call.
type Options struct {
	Version                   Version
	CompressionBlockAlignment uint32
}

// DefaultCompressionBlockAlignment is the 4.27 default; UE coerces any
// smaller configured value up to 0x10.
const DefaultCompressionBlockAlignment uint32 = 0x800

func (o Options) alignment() uint32 {
	if o.CompressionBlockAlignment < 0x10 {
		return 0x10
	}
	return o.CompressionBlockAlignment
}

// MetadataOverrides is the subset of the metadata sidecar's behavior the
// resolver consults while building container-header package records.
type MetadataOverrides interface {
	// IsAutoImportBypassed reports whether a graph-package import ID
	// bypasses the "/"-prefix name filter and is always kept.
	IsAutoImportBypassed(graphPackageID uint64) bool
	// ManualImports returns a dependency-list override for the
	// export-bundle file whose chunk hash is assetHash, if one exists.
	ManualImports(assetHash uint64) ([]uint64, bool)
}

// PartitionBlock maps a byte range of the virtual CAS to a file on disk.
type PartitionBlock struct {
	OSPath string
	Start  uint64
	Length uint64
}

// Result is everything a successful Build produces.
type Result struct {
	TOC               []byte
	Partitions        []PartitionBlock
	ContainerName     string
	ContainerID       uint64
	ContainerPackages []containerheader.Package
	ContainerHeader   []byte
}

// Build flattens root and serializes the complete TOC byte buffer, per
// §4.4 and §6. overrides may be nil.
func Build(root *assettree.Directory, opts Options, overrides MetadataOverrides) (Result, error) {
	pool := &StringPool{}
	dirs, files, records := flattenTree(root, pool)

	var chunkIDs []ChunkID
	var offsets []OffsetAndLength
	var blocks []CompressionBlockEntry
	var metas []MetaEntry
	var partitions []PartitionBlock
	var packages []containerheader.Package

	alignment := opts.alignment()
	casPointer := uint64(0)

	for i, fe := range files {
		_ = fe
		rec := records[i]
		raw, err := hashPath(rec.rawPath)
		if err != nil {
			return Result{}, err
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rec.osPath), "."))
		chunkType, err := ChunkExtension(ext)
		if err != nil {
			return Result{}, err
		}
		chunkID := NewChunkID(raw, chunkType)
		chunkIDs = append(chunkIDs, chunkID)

		fileOffset := uint64(len(blocks)) * uint64(CompressionBlockSize)
		offsets = append(offsets, OffsetAndLength{Offset: fileOffset, Length: rec.size})

		newBlocks, err := generateCompressionBlocks(rec.size, casPointer)
		if err != nil {
			return Result{}, err
		}
		blocks = append(blocks, newBlocks...)

		metas = append(metas, MetaEntry{})

		if chunkType == ChunkTypeExportBundleData {
			pkg, err := inspectPackage(rec.osPath, chunkID.Hash, rec.size, overrides)
			if err != nil {
				return Result{}, fmt.Errorf("toc: inspecting %s: %w", rec.osPath, err)
			}
			packages = append(packages, pkg)
		}

		partitions = append(partitions, PartitionBlock{OSPath: rec.osPath, Start: casPointer, Length: rec.size})

		casPointer += rec.size
		casPointer = alignUp(casPointer, uint64(alignment))
	}

	containerID := ioname.Hash16("Game")

	containerHeader, err := containerheader.Build(containerID, packages)
	if err != nil {
		return Result{}, err
	}
	headerChunkID := ChunkID{Hash: containerID, Index: 0, Type: ChunkTypeContainerHeader}
	chunkIDs = append(chunkIDs, headerChunkID)
	headerOffset := uint64(len(blocks)) * uint64(CompressionBlockSize)
	offsets = append(offsets, OffsetAndLength{Offset: headerOffset, Length: uint64(len(containerHeader))})
	headerBlocks, err := generateCompressionBlocks(uint64(len(containerHeader)), casPointer)
	if err != nil {
		return Result{}, err
	}
	blocks = append(blocks, headerBlocks...)
	metas = append(metas, MetaEntry{})

	dirIndexSize := directoryIndexSize(dirs, files, pool)

	header := Header{
		Version:              opts.Version,
		EntryCount:           uint32(len(files) + 1),
		CompressedBlockCount: uint32(len(blocks)),
		DirectoryIndexSize:   dirIndexSize,
		ContainerID:          containerID,
	}

	var buf bytes.Buffer
	if err := header.Write(&buf); err != nil {
		return Result{}, err
	}
	for _, c := range chunkIDs {
		if err := c.Write(&buf); err != nil {
			return Result{}, err
		}
	}
	for _, o := range offsets {
		if err := o.Write(&buf); err != nil {
			return Result{}, err
		}
	}
	for _, b := range blocks {
		if err := b.Write(&buf); err != nil {
			return Result{}, err
		}
	}
	if err := writeMountPoint(&buf); err != nil {
		return Result{}, err
	}
	if err := writeDirectoryIndex(&buf, dirs); err != nil {
		return Result{}, err
	}
	if err := writeFileIndex(&buf, files); err != nil {
		return Result{}, err
	}
	if err := writeStringPool(&buf, pool); err != nil {
		return Result{}, err
	}
	for _, m := range metas {
		if err := m.Write(&buf); err != nil {
			return Result{}, err
		}
	}

	return Result{
		TOC:               buf.Bytes(),
		Partitions:        partitions,
		ContainerName:     "Game",
		ContainerID:       containerID,
		ContainerPackages: packages,
		ContainerHeader:   containerHeader,
	}, nil
}

func inspectPackage(osPath string, chunkHash uint64, size uint64, overrides MetadataOverrides) (containerheader.Package, error) {
	data, err := os.ReadFile(osPath)
	if err != nil {
		return containerheader.Package{}, err
	}
	var bypass func(uint64) bool
	if overrides != nil {
		bypass = overrides.IsAutoImportBypassed
	}
	entry, err := iopackage.Inspect(data, bypass)
	if err != nil {
		return containerheader.Package{}, err
	}
	importIDs := entry.ImportIDs
	if overrides != nil {
		if manual, ok := overrides.ManualImports(chunkHash); ok {
			importIDs = manual
		}
	}
	return containerheader.Package{
		Hash:              chunkHash,
		Size:              size,
		ExportCount:       entry.ExportCount,
		ExportBundleCount: entry.ExportBundleCount,
		LoadOrder:         entry.LoadOrder,
		ImportIDs:         importIDs,
	}, nil
}

// generateCompressionBlocks produces ceil(size/blockSize) entries, offsets
// advancing by CompressionBlockSize from base, sizes equal to
// min(blockSize, remaining). A zero-size file still gets exactly one
// zero-length block, matching the container-header trailer's needs when a
// header happens to serialize to nothing (never happens in practice, kept
// for uniformity with file entries).
func generateCompressionBlocks(size uint64, base uint64) ([]CompressionBlockEntry, error) {
	count := uint64(math.Ceil(float64(size) / float64(CompressionBlockSize)))
	if count == 0 {
		count = 1
	}
	blocks := make([]CompressionBlockEntry, 0, count)
	remaining := size
	for i := uint64(0); i < count; i++ {
		blockSize := uint64(CompressionBlockSize)
		if remaining < blockSize {
			blockSize = remaining
		}
		blocks = append(blocks, CompressionBlockEntry{
			Offset:           base + i*uint64(CompressionBlockSize),
			CompressedSize:   uint32(blockSize),
			UncompressedSize: uint32(blockSize),
		})
		if remaining >= uint64(CompressionBlockSize) {
			remaining -= uint64(CompressionBlockSize)
		}
	}
	return blocks, nil
}

func alignUp(v, alignment uint64) uint64 {
	rem := v % alignment
	if rem == 0 {
		return v
	}
	return v + (alignment - rem)
}

// directoryIndexSize is the byte length of §4.4 items 5 through 8 combined:
// the mount point string, the directory index, the file index, and the
// string pool.
func directoryIndexSize(dirs []DirectoryIndexEntry, files []FileIndexEntry, pool *StringPool) uint32 {
	const directoryEntrySize = 16
	const fileEntrySize = 12
	size := ioname.TOCStringExpectedLength(mountPoint)
	size += 4 + uint32(len(dirs))*directoryEntrySize
	size += 4 + uint32(len(files))*fileEntrySize
	size += 4
	for _, n := range pool.Names() {
		size += ioname.TOCStringExpectedLength(n)
	}
	return size
}
