package bmff

import "math"

// ByteReader is a seekable big-endian reader over an immutable byte
// span. It is the low-level primitive the box tree and sample-table
// parsers are built on; unlike [Reader] it knows nothing about box
// structure and reports underflow instead of silently stopping.
type ByteReader struct {
	buf []byte
	pos int
}

// NewByteReader creates a ByteReader over buf.
func NewByteReader(buf []byte) ByteReader {
	return ByteReader{buf: buf}
}

// Position returns the current read offset.
func (r *ByteReader) Position() int { return r.pos }

// Count returns the total length of the underlying buffer.
func (r *ByteReader) Count() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *ByteReader) Remaining() int { return len(r.buf) - r.pos }

// HasRemaining reports whether any unread bytes remain.
func (r *ByteReader) HasRemaining() bool { return r.pos < len(r.buf) }

func (r *ByteReader) need(n int) error {
	if r.Remaining() < n {
		return EndOfData(n, r.Remaining())
	}
	return nil
}

// Uint8 reads one byte.
func (r *ByteReader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// Uint16 reads a big-endian uint16.
func (r *ByteReader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := be.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// Uint32 reads a big-endian uint32.
func (r *ByteReader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := be.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// Uint64 reads a big-endian uint64.
func (r *ByteReader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := be.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Int32 reads a big-endian int32.
func (r *ByteReader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Int64 reads a big-endian int64.
func (r *ByteReader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// FourCC reads exactly 4 ASCII bytes and returns them as a string.
func (r *ByteReader) FourCC() (string, error) {
	if err := r.need(4); err != nil {
		return "", err
	}
	b := r.buf[r.pos : r.pos+4]
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return "", InvalidMP4("four_cc: non-ASCII byte")
		}
	}
	r.pos += 4
	return string(b), nil
}

// Fixed1616 reads a 16.16 fixed-point value as f64.
func (r *ByteReader) Fixed1616() (float64, error) {
	v, err := r.Uint32()
	if err != nil {
		return 0, err
	}
	return float64(v) / 65536.0, nil
}

// Fixed88 reads an 8.8 fixed-point value as f64.
func (r *ByteReader) Fixed88() (float64, error) {
	v, err := r.Uint16()
	if err != nil {
		return 0, err
	}
	return float64(v) / 256.0, nil
}

// ReadBytes reads and returns the next n bytes.
func (r *ByteReader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// CString reads a null-terminated UTF-8 string, stopping at 0x00 or
// end of buffer. The position advances past the terminator when one
// is present.
func (r *ByteReader) CString() string {
	start := r.pos
	end := start
	for end < len(r.buf) && r.buf[end] != 0 {
		end++
	}
	s := string(r.buf[start:end])
	if end < len(r.buf) {
		end++ // consume terminator
	}
	r.pos = end
	return s
}

// Skip advances the position by n bytes, bounds-checked.
func (r *ByteReader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.buf) || r.pos+n < 0 {
		return InvalidMP4("skip out of bounds")
	}
	r.pos += n
	return nil
}

// Seek moves the position to an absolute offset, bounds-checked.
func (r *ByteReader) Seek(abs int) error {
	if abs < 0 || abs > len(r.buf) {
		return InvalidMP4("seek out of bounds")
	}
	r.pos = abs
	return nil
}

// SubReader returns a new ByteReader over the next n bytes and
// advances this reader past them.
func (r *ByteReader) SubReader(n int) (ByteReader, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return ByteReader{}, err
	}
	return ByteReader{buf: b}, nil
}

// ByteWriter is a growing big-endian writer. Unlike [Writer] it has no
// notion of box nesting; it is used where raw typed writes are needed
// without box framing.
type ByteWriter struct {
	buf []byte
}

// NewByteWriter creates an empty ByteWriter.
func NewByteWriter() ByteWriter {
	return ByteWriter{}
}

// Count returns the number of bytes written so far.
func (w *ByteWriter) Count() int { return len(w.buf) }

// Data returns the written bytes.
func (w *ByteWriter) Data() []byte { return w.buf }

func (w *ByteWriter) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *ByteWriter) Uint16(v uint16) {
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

func (w *ByteWriter) Uint32(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (w *ByteWriter) Uint64(v uint64) {
	w.Uint32(uint32(v >> 32))
	w.Uint32(uint32(v))
}

func (w *ByteWriter) Int32(v int32) { w.Uint32(uint32(v)) }
func (w *ByteWriter) Int64(v int64) { w.Uint64(uint64(v)) }

// FourCC pads s to 4 bytes with 0x20 if shorter, truncates if longer.
func (w *ByteWriter) FourCC(s string) {
	var b [4]byte
	for i := range b {
		b[i] = ' '
	}
	copy(b[:], s)
	w.buf = append(w.buf, b[:]...)
}

func (w *ByteWriter) Zeros(n int) {
	for range n {
		w.buf = append(w.buf, 0)
	}
}

func (w *ByteWriter) Bytes(p []byte) { w.buf = append(w.buf, p...) }

// Fixed1616 writes v as a 16.16 fixed-point uint32.
func (w *ByteWriter) Fixed1616(v float64) {
	w.Uint32(uint32(math.Round(v * 65536.0)))
}

// Fixed88 writes v as an 8.8 fixed-point uint16.
func (w *ByteWriter) Fixed88(v float64) {
	w.Uint16(uint16(math.Round(v * 256.0)))
}

// CString writes s followed by a null terminator.
func (w *ByteWriter) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Box writes a standard-header box: size (u32) + type + payload.
func (w *ByteWriter) Box(t BoxType, payload []byte) {
	w.Uint32(uint32(8 + len(payload)))
	w.buf = append(w.buf, t[:]...)
	w.buf = append(w.buf, payload...)
}

// FullBox writes a full box: size + type + version/flags + payload.
func (w *ByteWriter) FullBox(t BoxType, version uint8, flags uint32, payload []byte) {
	vf := make([]byte, 4)
	vf[0] = version
	vf[1] = byte(flags >> 16)
	vf[2] = byte(flags >> 8)
	vf[3] = byte(flags)
	full := append(vf, payload...)
	w.Box(t, full)
}

// ContainerBox concatenates children under one header.
func (w *ByteWriter) ContainerBox(t BoxType, children [][]byte) {
	total := 0
	for _, c := range children {
		total += len(c)
	}
	w.Uint32(uint32(8 + total))
	w.buf = append(w.buf, t[:]...)
	for _, c := range children {
		w.buf = append(w.buf, c...)
	}
}
