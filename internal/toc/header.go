package toc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the fixed 16-byte TOC file signature.
var Magic = [16]byte{'-', '=', '=', '-', '-', '=', '=', '-', '-', '=', '=', '-', '-', '=', '=', '-'}

// ContainerFlagIndexed is the only container flag this system ever sets.
const ContainerFlagIndexed byte = 0x08

// Version selects which on-disk TOC header layout to emit. Only 4.26 and
// 4.27 are supported; pre-plus 4.25 and UE5 Zen are out of scope.
type Version uint8

const (
	// Version2 is the UE 4.26 header: no partition fields.
	Version2 Version = 2
	// Version3 is the UE 4.27 header: adds partition_count/partition_size.
	Version3 Version = 3
)

// Header holds the fields every TOC header variant shares.
type Header struct {
	Version                  Version
	EntryCount               uint32
	CompressedBlockCount     uint32
	DirectoryIndexSize       uint32
	ContainerID              uint64
}

// Write serializes h in the layout selected by h.Version.
func (h Header) Write(w io.Writer) error {
	switch h.Version {
	case Version2:
		return h.writeV2(w)
	case Version3:
		return h.writeV3(w)
	default:
		return fmt.Errorf("toc: unsupported header version %d", h.Version)
	}
}

// writeV3 emits the UE 4.27 header: exactly 144 bytes (0x90), matching the
// toc_header_size field it carries. The reserved tail is 48 bytes; an
// additional 4-byte pad separates the container flags from partition_size,
// mirroring IoStoreTocHeaderType3::to_buffer's field layout.
func (h Header) writeV3(w io.Writer) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(h.Version), 0, 0, 0}); err != nil {
		return err
	}
	fields := []uint32{
		0x90,                     // toc_header_size
		h.EntryCount,             // toc_entry_count
		h.CompressedBlockCount,   // compressed_block_entry_count
		12,                       // compressed_block_entry_size
		0,                        // compression_method_name_count
		32,                       // compression_method_name_length
		CompressionBlockSize,     // compression_block_size
		h.DirectoryIndexSize,     // directory_index_size
		1,                        // partition_count
	}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, h.ContainerID); err != nil {
		return err
	}
	var guid [16]byte
	if _, err := w.Write(guid[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{ContainerFlagIndexed, 0, 0, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(0)); err != nil { // pad before partition_size
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ^uint64(0)); err != nil { // partition_size = u64::MAX
		return err
	}
	var reserved [48]byte
	_, err := w.Write(reserved[:])
	return err
}

// writeV2 emits the UE 4.26 header: no partition_count/partition_size
// fields, a larger reserved tail.
func (h Header) writeV2(w io.Writer) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(h.Version), 0, 0, 0}); err != nil {
		return err
	}
	const headerSize = 16 + 4 + 4*8 + 4 + 8 + 16 + 4 + 15*8
	fields := []uint32{
		headerSize,
		h.EntryCount,
		h.CompressedBlockCount,
		12,
		0,
		32,
		CompressionBlockSize,
		h.DirectoryIndexSize,
	}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(0)); err != nil { // padding before container_id
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.ContainerID); err != nil {
		return err
	}
	var guid [16]byte
	if _, err := w.Write(guid[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{ContainerFlagIndexed, 0, 0, 0}); err != nil {
		return err
	}
	var reserved [15 * 8]byte
	_, err := w.Write(reserved[:])
	return err
}
