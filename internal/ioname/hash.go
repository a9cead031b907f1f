// Package ioname implements Unreal Engine's serialized string encodings and
// the two CityHash64 entry points used throughout the IO Store wire formats.
package ioname

import (
	"strings"
	"unicode/utf16"

	"github.com/tenfyzhong/cityhash"
)

// NameHashAlgorithm is FNameHash::AlgorithmId, written as the first 8 bytes of
// every FString16 hash block.
const NameHashAlgorithm uint64 = 0xC1640000

// Hash8 is CityHash64 over the UTF-8 bytes of the lowercased string. Only a
// small set of legacy sites (PAK name maps) use this entry point.
func Hash8(s string) uint64 {
	return cityhash.CityHash64([]byte(strings.ToLower(s)))
}

// Hash16 lowercases s, re-encodes it as UTF-16 little-endian (no NUL
// terminator), and runs CityHash64 over the resulting bytes. Chunk IDs,
// import/export name hashes, and container IDs all use this entry point; it
// must not be conflated with Hash8.
func Hash16(s string) uint64 {
	return cityhash.CityHash64(utf16LEBytes(strings.ToLower(s)))
}

// utf16LEBytes re-encodes s as UTF-16 little-endian bytes. The encoding is a
// wire-format invariant, not a host-platform choice: it does not vary with
// host byte order.
func utf16LEBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[2*i] = byte(u)
		out[2*i+1] = byte(u >> 8)
	}
	return out
}
