package packet

import (
	"encoding/binary"
	"errors"
	"math"
)

// Frame header layout: [1B kind][1B reserved=0][4B LE payload length].
const headerSize = 6

// DefaultMaxString bounds decoded string payloads. Strings longer than
// this fail with ErrOversize.
const DefaultMaxString = 64 * 1024

var (
	// ErrTruncated reports a frame or field cut short by the end of the buffer.
	ErrTruncated = errors.New("packet: truncated")
	// ErrOversize reports a string field exceeding the configured bound.
	ErrOversize = errors.New("packet: oversize string")
)

// Frame is one decoded wire frame. Payload aliases the input buffer; it is
// valid as long as the buffer is.
type Frame struct {
	Kind    Kind
	Payload []byte
}

// FrameReader yields frames from a raw request body until it is exhausted.
type FrameReader struct {
	buf []byte
	off int
}

func NewFrameReader(buf []byte) *FrameReader {
	return &FrameReader{buf: buf}
}

// Next returns the next frame, or (nil, nil) when the buffer is exhausted.
// A short trailing fragment fails with ErrTruncated.
func (fr *FrameReader) Next() (*Frame, error) {
	if fr.off == len(fr.buf) {
		return nil, nil
	}
	if fr.off+headerSize > len(fr.buf) {
		return nil, ErrTruncated
	}
	kind := Kind(fr.buf[fr.off])
	length := int(binary.LittleEndian.Uint32(fr.buf[fr.off+2:]))
	if fr.off+headerSize+length > len(fr.buf) {
		return nil, ErrTruncated
	}
	payload := fr.buf[fr.off+headerSize : fr.off+headerSize+length]
	fr.off += headerSize + length
	return &Frame{Kind: kind, Payload: payload}, nil
}

// Reader decodes primitive fields from a single frame payload.
// Reads past the end set a sticky error, observable via Err(); the
// individual reads return zero values, matching the tolerant style of the
// client (which pads short payloads).
type Reader struct {
	data      []byte
	off       int
	maxString int
	err       error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, maxString: DefaultMaxString}
}

// SetMaxString overrides the string size bound.
func (r *Reader) SetMaxString(n int) { r.maxString = n }

// Err returns the first decode error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread payload bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) take(n int) []byte {
	if r.off+n > len(r.data) {
		if r.err == nil {
			r.err = ErrTruncated
		}
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadU8 reads 1 unsigned byte.
func (r *Reader) ReadU8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool reads 1 byte, nonzero means true.
func (r *Reader) ReadBool() bool { return r.ReadU8() != 0 }

// ReadI16 reads 2 bytes little-endian signed.
func (r *Reader) ReadI16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

// ReadI32 reads 4 bytes little-endian signed.
func (r *Reader) ReadI32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// ReadU32 reads 4 bytes little-endian unsigned.
func (r *Reader) ReadU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadI64 reads 8 bytes little-endian signed.
func (r *Reader) ReadI64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

// ReadU64 reads 8 bytes little-endian unsigned.
func (r *Reader) ReadU64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadF32 reads an IEEE-754 single.
func (r *Reader) ReadF32() float32 {
	return math.Float32frombits(r.ReadU32())
}

// ReadF64 reads an IEEE-754 double.
func (r *Reader) ReadF64() float64 {
	return math.Float64frombits(r.ReadU64())
}

// ReadString reads an osu string: 0x00 = empty, 0x0b = ULEB128 length
// followed by UTF-8 bytes.
func (r *Reader) ReadString() string {
	tag := r.ReadU8()
	switch tag {
	case 0x00:
		return ""
	case 0x0b:
		n := r.readULEB128()
		if n > uint64(r.maxString) {
			if r.err == nil {
				r.err = ErrOversize
			}
			return ""
		}
		b := r.take(int(n))
		if b == nil {
			return ""
		}
		return string(b)
	default:
		if r.err == nil {
			r.err = ErrTruncated
		}
		return ""
	}
}

// ReadI32List reads an i16 count followed by that many i32 values.
func (r *Reader) ReadI32List() []int32 {
	count := r.ReadI16()
	if count <= 0 || r.err != nil {
		return nil
	}
	out := make([]int32, 0, count)
	for i := int16(0); i < count; i++ {
		out = append(out, r.ReadI32())
		if r.err != nil {
			return nil
		}
	}
	return out
}

// ReadBytes reads n raw bytes (copy).
func (r *Reader) ReadBytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *Reader) readULEB128() uint64 {
	var v uint64
	var shift uint
	for {
		b := r.take(1)
		if b == nil {
			return 0
		}
		v |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return v
		}
		shift += 7
		if shift > 63 {
			if r.err == nil {
				r.err = ErrTruncated
			}
			return 0
		}
	}
}
