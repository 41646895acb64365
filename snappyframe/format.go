// Package snappyframe implements the block-oriented compressing writer and
// its symmetric reader described as the framed-Snappy container: a stream
// identifier followed by typed chunks, each carrying a masked CRC-32C of its
// uncompressed content. The wire format matches the public "Snappy framing
// format" so output can be read by any conforming reader.
package snappyframe

import "hash/crc32"

// MaxBlockSize is the largest uncompressed block this writer will ever
// buffer between chunks, and the largest a reader must be prepared to
// decompress in one call.
const MaxBlockSize = 65536

// streamID is the fixed 10-byte stream identifier chunk: chunk type 0xff,
// 3-byte length 0x000006, followed by the literal "sNaPpY".
var streamID = []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59}

const (
	chunkCompressed   = 0x00
	chunkUncompressed = 0x01
	chunkPadding      = 0xfe
	chunkStreamID     = 0xff
)

// isSkippable reports whether a reader must tolerate and skip chunk type t
// without understanding its payload (0x80..0xfd, plus padding).
func isSkippable(t byte) bool {
	return t == chunkPadding || (t >= 0x80 && t <= 0xfd)
}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// maskCRC applies the framing format's CRC mask: ((crc>>15)|(crc<<17)) +
// 0xa282ead8, mod 2^32. Masking avoids the checksum being confused with the
// data it covers when both appear in a data stream that is itself scanned
// for this checksum's bit pattern.
func maskCRC(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + 0xa282ead8
}

func crc32cOf(p []byte) uint32 {
	return crc32.Checksum(p, crcTable)
}
