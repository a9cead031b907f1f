package ioname

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// WritePakString writes the PAK name-map encoding: u32 length (including the
// trailing NUL), the bytes, the NUL, and a trailing u32 hash. The hash value
// is supplied by the caller; PAK name maps are a legacy format this module
// only ever writes, never recomputes the hash of.
func WritePakString(w io.Writer, s string, hash uint32) error {
	if err := writeTOCString(w, s); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, hash)
}

// ReadPakString reads the PAK name-map encoding. A zero length (no bytes, no
// NUL) is rejected.
func ReadPakString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if length == 0 {
		return "", fmt.Errorf("ioname: zero-length PAK string")
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	var hash uint32
	if err := binary.Read(r, binary.LittleEndian, &hash); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf, "\x00")), nil
}

// WriteTOCString writes the TOC string-pool encoding: u32 length (including
// the trailing NUL), the bytes, and the NUL. Used for the mount point and the
// directory-index string pool.
func WriteTOCString(w io.Writer, s string) error {
	return writeTOCString(w, s)
}

func writeTOCString(w io.Writer, s string) error {
	length := uint32(len(s)) + 1
	if err := binary.Write(w, binary.LittleEndian, length); err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// TOCStringExpectedLength returns the serialized byte length of s under the
// TOC string-pool encoding, used to compute directory_index_size up front.
func TOCStringExpectedLength(s string) uint32 {
	return 4 + uint32(len(s)) + 1
}

// WriteShortNameText writes the text block of the short two-block (IO name
// map) encoding: a big-endian u16 length followed by the raw bytes, with no
// NUL terminator.
func WriteShortNameText(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("ioname: name %q too long for short-form length field", s)
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// WriteShortNameHash writes the hash block of the short two-block encoding:
// an 8-byte CityHash64 (Hash16) of the lowercased name.
func WriteShortNameHash(w io.Writer, s string) error {
	return binary.Write(w, binary.LittleEndian, Hash16(s))
}

// ReadShortName reads one text block of the short two-block (IO name map)
// encoding, as written by WriteShortNameText, and returns its text. The hash
// blocks follow all text blocks in a separate region and are not consumed.
func ReadShortName(r io.Reader) (string, error) {
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

// ShortNameBlockAlignment is the byte alignment the writer must reach before
// emitting the hash block of a short two-block name map.
const ShortNameBlockAlignment = 8

// WriteShortNameMap writes a complete IO name map: for every name, all text
// blocks in order, then zero-fill up to the next 8-byte boundary, then the
// 8-byte algorithm-id constant, then all hash blocks in order.
//
// pos is the writer's current absolute stream position (needed because
// io.Writer has no Tell); it is used only to compute the padding length and
// is not validated against the writer's actual position.
func WriteShortNameMap(w io.Writer, pos int64, names []string) error {
	for _, n := range names {
		if err := WriteShortNameText(w, n); err != nil {
			return err
		}
		pos += 2 + int64(len(n))
	}
	if rem := pos % ShortNameBlockAlignment; rem != 0 {
		pad := ShortNameBlockAlignment - rem
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, NameHashAlgorithm); err != nil {
		return err
	}
	for _, n := range names {
		if err := WriteShortNameHash(w, n); err != nil {
			return err
		}
	}
	return nil
}

// MappedName is Unreal's FMappedName: a name-map index plus an extra index,
// packed little-endian into a single 64-bit word.
type MappedName struct {
	NameIndex  uint32
	ExtraIndex uint32
}

// Pack returns the 64-bit packed representation of m.
func (m MappedName) Pack() uint64 {
	return uint64(m.NameIndex) | uint64(m.ExtraIndex)<<32
}

// UnpackMappedName reverses MappedName.Pack.
func UnpackMappedName(v uint64) MappedName {
	return MappedName{
		NameIndex:  uint32(v & 0xFFFFFFFF),
		ExtraIndex: uint32(v >> 32),
	}
}
