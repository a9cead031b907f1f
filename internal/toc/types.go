// Package toc flattens an asset tree into the exact on-disk byte layout of
// an Unreal IO Store table of contents: chunk IDs, offset-and-length and
// compression-block tables, directory/file indices, a string pool, and the
// per-entry meta array.
//
// Offsets and field order are grounded on
// original_source/.../io_toc.rs and toc_factory.rs.
package toc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/reloaded-project/utoc-emulator/internal/ioname"
)

// NoIndex is the sentinel meaning "no link" in directory/file index entries.
const NoIndex uint32 = 0xFFFFFFFF

// CompressionBlockSize is the fixed virtual block size used to lay out
// offsets, regardless of the alignment a particular build rounds
// cas_pointer to between files.
const CompressionBlockSize uint32 = 0x10000

// ChunkType is the IoChunkType4 tag recorded in a chunk ID.
type ChunkType uint8

const (
	ChunkTypeInvalid                ChunkType = 0
	ChunkTypeInstallManifest        ChunkType = 1
	ChunkTypeExportBundleData       ChunkType = 2
	ChunkTypeBulkData               ChunkType = 3
	ChunkTypeOptionalBulkData       ChunkType = 4
	ChunkTypeMemoryMappedBulkData   ChunkType = 5
	ChunkTypeLoaderGlobalMeta       ChunkType = 6
	ChunkTypeLoaderInitialLoadMeta  ChunkType = 7
	ChunkTypeLoaderGlobalNames      ChunkType = 8
	ChunkTypeLoaderGlobalNameHashes ChunkType = 9
	ChunkTypeContainerHeader        ChunkType = 10
)

// ChunkExtension maps an asset extension to the chunk type it serializes
// as. Extensions not present here never reach the resolver: they are
// filtered out during ingest.
func ChunkExtension(ext string) (ChunkType, error) {
	switch ext {
	case "uasset", "umap":
		return ChunkTypeExportBundleData, nil
	case "ubulk":
		return ChunkTypeBulkData, nil
	case "uptnl":
		return ChunkTypeOptionalBulkData, nil
	default:
		return ChunkTypeInvalid, fmt.Errorf("toc: unsupported extension %q reached the resolver", ext)
	}
}

// ChunkID is the 96-bit identifier for one CAS-addressable unit.
type ChunkID struct {
	Hash  uint64
	Index uint16
	Type  ChunkType
}

// NewChunkID hashes path with Hash16 and tags it with typ.
func NewChunkID(path string, typ ChunkType) ChunkID {
	return ChunkID{Hash: ioname.Hash16(path), Index: 0, Type: typ}
}

// Write serializes the 12-byte wire form: hash, index, one pad byte, type.
func (c ChunkID) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, c.Hash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.Index); err != nil {
		return err
	}
	_, err := w.Write([]byte{0, byte(c.Type)})
	return err
}

// maxFortyBit is the largest value a 5-byte (40-bit) field can hold.
const maxFortyBit = (1 << 40) - 1

// OffsetAndLength is the 10-byte packed (5-byte offset, 5-byte length)
// record, both big-endian.
type OffsetAndLength struct {
	Offset uint64
	Length uint64
}

func writeUint40BE(w io.Writer, v uint64) error {
	if v > maxFortyBit {
		return fmt.Errorf("toc: value %d exceeds 40-bit field capacity", v)
	}
	var b [5]byte
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
	_, err := w.Write(b[:])
	return err
}

// Write serializes the offset then the length, each 5 bytes big-endian.
func (o OffsetAndLength) Write(w io.Writer) error {
	if err := writeUint40BE(w, o.Offset); err != nil {
		return err
	}
	return writeUint40BE(w, o.Length)
}

// CompressionBlockEntry is the 12-byte packed compression-block record.
// Method is always 0 (none): this system never compresses a byte.
type CompressionBlockEntry struct {
	Offset           uint64
	CompressedSize   uint32
	UncompressedSize uint32
}

// Write serializes offset (5 bytes BE), compressed size (3 bytes LE),
// uncompressed size (3 bytes LE), method index (1 byte, always 0).
func (c CompressionBlockEntry) Write(w io.Writer) error {
	if err := writeUint40BE(w, c.Offset); err != nil {
		return err
	}
	if c.CompressedSize > 1<<24-1 {
		return fmt.Errorf("toc: compressed size %d exceeds 24-bit field capacity", c.CompressedSize)
	}
	var sizes [6]byte
	sizes[0] = byte(c.CompressedSize)
	sizes[1] = byte(c.CompressedSize >> 8)
	sizes[2] = byte(c.CompressedSize >> 16)
	sizes[3] = byte(c.UncompressedSize)
	sizes[4] = byte(c.UncompressedSize >> 8)
	sizes[5] = byte(c.UncompressedSize >> 16)
	if _, err := w.Write(sizes[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// DirectoryIndexEntry is the 16-byte flattened directory record.
type DirectoryIndexEntry struct {
	Name        uint32
	FirstChild  uint32
	NextSibling uint32
	FirstFile   uint32
}

func (d DirectoryIndexEntry) Write(w io.Writer) error {
	for _, v := range []uint32{d.Name, d.FirstChild, d.NextSibling, d.FirstFile} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// FileIndexEntry is the 12-byte flattened file record.
type FileIndexEntry struct {
	Name     uint32
	NextFile uint32
	UserData uint32
}

func (f FileIndexEntry) Write(w io.Writer) error {
	for _, v := range []uint32{f.Name, f.NextFile, f.UserData} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// MetaEntry is the 33-byte per-chunk metadata record: a 32-byte content
// hash (always zero, SHA-1 hashing is out of scope) and a 1-byte flags
// field.
type MetaEntry struct {
	Flags byte
}

func (m MetaEntry) Write(w io.Writer) error {
	var hash [32]byte
	if _, err := w.Write(hash[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte{m.Flags})
	return err
}

// StringPool deduplicates leaf names by linear search, exactly as the
// resolver it backs does for directory/file name indices.
type StringPool struct {
	names []string
}

// IndexFor returns the pool index for name, appending it if not already
// present.
func (p *StringPool) IndexFor(name string) uint32 {
	for i, n := range p.names {
		if n == name {
			return uint32(i)
		}
	}
	p.names = append(p.names, name)
	return uint32(len(p.names) - 1)
}

// Names returns the pool's contents in insertion order.
func (p *StringPool) Names() []string { return p.names }
