package framelink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Wire format: a 4-byte magic, uint16 width, uint16 height, uint32 sequence
// counter, then width*height little-endian uint16 samples. There is no
// trailer; the reader resynchronises on the magic after any garbage.
var frameMagic = [4]byte{'P', 'H', 'F', '1'}

// maxFrameDim bounds the dimensions accepted from the wire. A header with a
// larger dimension is treated as garbage and skipped during resync.
const maxFrameDim = 4096

// RawFrame is one decoded camera-link frame.
type RawFrame struct {
	Width  int
	Height int
	Seq    uint32
	Pix    []uint16
}

// EncodeFrame writes a frame in wire format. Used by the mock port, test
// fixtures, and the frame recorder tooling.
func EncodeFrame(w io.Writer, f *RawFrame) error {
	if f.Width <= 0 || f.Height <= 0 || f.Width > maxFrameDim || f.Height > maxFrameDim {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return fmt.Errorf("payload length %d does not match %dx%d", len(f.Pix), f.Width, f.Height)
	}

	header := make([]byte, 12)
	copy(header, frameMagic[:])
	binary.LittleEndian.PutUint16(header[4:], uint16(f.Width))
	binary.LittleEndian.PutUint16(header[6:], uint16(f.Height))
	binary.LittleEndian.PutUint32(header[8:], f.Seq)
	if _, err := w.Write(header); err != nil {
		return err
	}

	payload := make([]byte, 2*len(f.Pix))
	for i, v := range f.Pix {
		binary.LittleEndian.PutUint16(payload[2*i:], v)
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame decodes the next frame from the stream, skipping any bytes that
// precede a valid magic. Returns the underlying read error (io.EOF included)
// once the stream ends.
func ReadFrame(r *bufio.Reader) (*RawFrame, error) {
	if err := syncToMagic(r); err != nil {
		return nil, err
	}

	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	width := int(binary.LittleEndian.Uint16(header[0:]))
	height := int(binary.LittleEndian.Uint16(header[2:]))
	seq := binary.LittleEndian.Uint32(header[4:])

	if width == 0 || height == 0 || width > maxFrameDim || height > maxFrameDim {
		// Corrupt header; treat as garbage and resync on the next magic.
		return ReadFrame(r)
	}

	payload := make([]byte, 2*width*height)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	pix := make([]uint16, width*height)
	for i := range pix {
		pix[i] = binary.LittleEndian.Uint16(payload[2*i:])
	}
	return &RawFrame{Width: width, Height: height, Seq: seq, Pix: pix}, nil
}

// syncToMagic consumes bytes until the full magic sequence has been read.
func syncToMagic(r *bufio.Reader) error {
	matched := 0
	for matched < len(frameMagic) {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case b == frameMagic[matched]:
			matched++
		case b == frameMagic[0]:
			matched = 1
		default:
			matched = 0
		}
	}
	return nil
}
