package snappyframe

import (
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/s2"

	streamio "github.com/cairn-systems/streamio"
	"github.com/cairn-systems/streamio/status"
)

// Reader decodes a framed-Snappy stream read from an underlying io.Reader.
// It validates the stream identifier on first use, then serves decompressed
// bytes from one chunk at a time, skipping padding and vendor-reserved
// skippable chunks and rejecting anything else it does not recognize.
// Reader itself implements io.Reader, so it composes with the rest of the
// standard library the way the writer side composes with streamio.Writer.
type Reader struct {
	src io.Reader

	sawStreamID bool
	pending     streamio.Buffer
	pendingOff  int
	done        bool

	err error
}

var _ io.Reader = (*Reader)(nil)

// NewReader wraps src, which must be positioned at the start of a
// framed-Snappy stream.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// readFull reads exactly len(p) bytes from src, translating a premature EOF
// into DataLoss (a clean EOF is only legal between chunks, never mid-chunk).
func (r *Reader) readFull(p []byte) error {
	_, err := io.ReadFull(r.src, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return status.Wrap(status.DataLoss, "framed-snappy: unexpected end of stream mid-chunk", err)
	}
	return err
}

// Read implements io.Reader, pulling and decoding further chunks from src as
// needed.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if !r.sawStreamID {
		if err := r.expectStreamID(); err != nil {
			r.err = err
			return 0, err
		}
	}
	for r.pendingOff >= r.pending.Len() {
		if r.done {
			r.err = io.EOF
			return 0, io.EOF
		}
		if err := r.nextChunk(); err != nil {
			r.err = err
			return 0, err
		}
	}
	n := copy(p, r.pending.Bytes()[r.pendingOff:])
	r.pendingOff += n
	return n, nil
}

func (r *Reader) expectStreamID() error {
	header := make([]byte, 4)
	if err := r.readFull(header); err != nil {
		return err
	}
	if header[0] != chunkStreamID {
		return status.Newf(status.DataLoss, "framed-snappy: expected stream identifier chunk, got type 0x%02x", header[0])
	}
	length := int(header[1]) | int(header[2])<<8 | int(header[3])<<16
	if length != len(streamID)-4 {
		return status.Newf(status.DataLoss, "framed-snappy: stream identifier chunk has wrong length %d", length)
	}
	body := make([]byte, length)
	if err := r.readFull(body); err != nil {
		return err
	}
	for i, b := range body {
		if b != streamID[4+i] {
			return status.New(status.DataLoss, "framed-snappy: stream identifier chunk has wrong payload")
		}
	}
	r.sawStreamID = true
	return nil
}

// nextChunk reads and decodes one chunk into r.pending, looping internally
// past any padding/skippable/repeated-stream-identifier chunks. It sets
// r.done on a clean end of stream (no bytes at all where a chunk header was
// expected).
func (r *Reader) nextChunk() error {
	for {
		header := make([]byte, 4)
		n, err := io.ReadFull(r.src, header[:1])
		if err == io.EOF && n == 0 {
			r.done = true
			return nil
		}
		if err != nil {
			return status.Wrap(status.DataLoss, "framed-snappy: reading chunk header", err)
		}
		if err := r.readFull(header[1:4]); err != nil {
			return err
		}
		chunkType := header[0]
		length := int(header[1]) | int(header[2])<<8 | int(header[3])<<16

		if isSkippable(chunkType) || chunkType == chunkStreamID {
			if err := r.discard(length); err != nil {
				return err
			}
			continue
		}
		if chunkType != chunkCompressed && chunkType != chunkUncompressed {
			return status.Newf(status.DataLoss, "framed-snappy: unrecognized non-skippable chunk type 0x%02x", chunkType)
		}
		if length < 4 {
			return status.Newf(status.DataLoss, "framed-snappy: chunk too short to hold a checksum (%d bytes)", length)
		}
		body := make([]byte, length)
		if err := r.readFull(body); err != nil {
			return err
		}
		wantCRC := binary.LittleEndian.Uint32(body[:4])
		payload := body[4:]

		var content []byte
		if chunkType == chunkUncompressed {
			content = payload
		} else {
			decoded, err := s2.Decode(nil, payload)
			if err != nil {
				return status.Wrap(status.DataLoss, "framed-snappy: decompressing block", err)
			}
			content = decoded
		}
		if maskCRC(crc32cOf(content)) != wantCRC {
			return status.New(status.DataLoss, "framed-snappy: checksum mismatch")
		}
		r.pending.Set(content)
		r.pendingOff = 0
		return nil
	}
}

func (r *Reader) discard(n int) error {
	buf := make([]byte, 4096)
	for n > 0 {
		take := n
		if take > len(buf) {
			take = len(buf)
		}
		if err := r.readFull(buf[:take]); err != nil {
			return err
		}
		n -= take
	}
	return nil
}
