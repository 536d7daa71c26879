package packet

import (
	"encoding/binary"
	"math"
)

// Writer builds one packet payload. All multi-byte writes are little-endian.
type Writer struct {
	buf       []byte
	maxString int
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64), maxString: DefaultMaxString}
}

// WriteU8 writes 1 byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteBool writes a boolean as one byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// WriteI16 writes 2 bytes little-endian.
func (w *Writer) WriteI16(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteI32 writes 4 bytes little-endian.
func (w *Writer) WriteI32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteU32 writes 4 bytes little-endian unsigned.
func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteI64 writes 8 bytes little-endian.
func (w *Writer) WriteI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

// WriteU64 writes 8 bytes little-endian unsigned.
func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteF32 writes an IEEE-754 single.
func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

// WriteF64 writes an IEEE-754 double.
func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteString writes an osu string. Empty strings emit the 0x00 tag.
// Strings beyond the bound are truncated at the bound.
func (w *Writer) WriteString(s string) {
	if len(s) == 0 {
		w.buf = append(w.buf, 0x00)
		return
	}
	if len(s) > w.maxString {
		s = s[:w.maxString]
	}
	w.buf = append(w.buf, 0x0b)
	w.writeULEB128(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteI32List writes an i16 count followed by the elements.
func (w *Writer) WriteI32List(vs []int32) {
	w.WriteI16(int16(len(vs)))
	for _, v := range vs {
		w.WriteI32(v)
	}
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the current payload length.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) writeULEB128(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			return
		}
	}
}

// Pack frames a payload with the wire header.
func Pack(kind Kind, payload []byte) []byte {
	out := make([]byte, headerSize+len(payload))
	out[0] = uint8(kind)
	out[1] = 0 // reserved
	binary.LittleEndian.PutUint32(out[2:], uint32(len(payload)))
	copy(out[headerSize:], payload)
	return out
}

// Concat joins already-framed packets into one response body.
func Concat(packets ...[]byte) []byte {
	n := 0
	for _, p := range packets {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range packets {
		out = append(out, p...)
	}
	return out
}
