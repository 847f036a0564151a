package bits

import "math/bits"

// Writer writes MSB-first bit fields into a byte slice of fixed capacity.
//
// With escaping enabled every completed byte is passed through emulation
// prevention (0x000000..0x000003 become 0x00000300..0x00000303) as it is
// emitted, so the output is a NAL unit payload ready for Annex-B framing.
// Running out of capacity is a sizing bug in the caller and panics.
type Writer struct {
	buf    []byte
	cur    byte
	nCur   int
	escape bool
	zeros  int
}

// NewWriter allocates a writer that can hold capacity bytes.
func NewWriter(capacity int, escape bool) *Writer {
	return &Writer{buf: make([]byte, 0, capacity), escape: escape}
}

func (w *Writer) emit(b byte) {
	if w.escape && w.zeros >= 2 && b <= 3 {
		w.push(0x03) //nolint:mnd
		w.zeros = 0
	}
	w.push(b)
	if b == 0 {
		w.zeros++
	} else {
		w.zeros = 0
	}
}

func (w *Writer) push(b byte) {
	if len(w.buf) == cap(w.buf) {
		panic("bits: writer overrun")
	}
	w.buf = append(w.buf, b)
}

// WriteBits64 writes the n (0..64) low bits of v.
func (w *Writer) WriteBits64(v uint64, n int) {
	if n < 0 || n > 64 || (n < 64 && v>>n != 0) {
		panic("bits: value does not fit field width")
	}
	for n > 0 {
		room := 8 - w.nCur
		take := min(room, n)
		chunk := byte(v>>(n-take)) & byte(1<<take-1)
		w.cur = w.cur<<take | chunk
		w.nCur += take
		n -= take
		if w.nCur == 8 { //nolint:mnd
			w.emit(w.cur)
			w.cur, w.nCur = 0, 0
		}
	}
}

func (w *Writer) WriteBits(v uint, n int) {
	w.WriteBits64(uint64(v), n)
}

func (w *Writer) WriteBit(b uint) {
	w.WriteBits64(uint64(b&1), 1)
}

func (w *Writer) WriteFlag(f bool) {
	if f {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

// WriteExponentialGolombCode writes ue(v).
func (w *Writer) WriteExponentialGolombCode(v uint) {
	if v >= 1<<32-1 {
		panic("bits: ue(v) out of range")
	}
	x := uint64(v) + 1
	n := bits.Len64(x)
	w.WriteBits64(0, n-1)
	w.WriteBits64(x, n)
}

// WriteSE writes se(v).
func (w *Writer) WriteSE(v int) {
	if v > 0 {
		w.WriteExponentialGolombCode(uint(2*v - 1)) //nolint:gosec
	} else {
		w.WriteExponentialGolombCode(uint(-2 * v)) //nolint:gosec
	}
}

// WriteRawBytes appends whole bytes bypassing emulation prevention. The writer
// must be byte aligned; used for start codes and NAL unit headers.
func (w *Writer) WriteRawBytes(p []byte) {
	if w.nCur != 0 {
		panic("bits: raw write on unaligned writer")
	}
	for _, b := range p {
		w.push(b)
	}
	w.zeros = 0
}

// WriteTrailingBits writes rbsp_trailing_bits(): a stop bit then zero alignment.
func (w *Writer) WriteTrailingBits() {
	w.WriteBit(1)
	w.AlignZero()
}

// AlignZero pads with zero bits up to the next byte boundary.
func (w *Writer) AlignZero() {
	if w.nCur != 0 {
		w.WriteBits64(0, 8-w.nCur)
	}
}

// AlignOne pads with one bits up to the next byte boundary (cabac_alignment_one_bit).
func (w *Writer) AlignOne() {
	if w.nCur != 0 {
		n := 8 - w.nCur
		w.WriteBits64(1<<n-1, n)
	}
}

func (w *Writer) ByteAligned() bool {
	return w.nCur == 0
}

// BitLen returns the number of bits written, emulation prevention bytes included.
func (w *Writer) BitLen() int {
	return len(w.buf)*8 + w.nCur
}

func (w *Writer) Escaped() bool {
	return w.escape
}

// Bytes returns the output; a partial last byte is zero padded but not consumed.
func (w *Writer) Bytes() []byte {
	if w.nCur == 0 {
		return w.buf
	}
	out := make([]byte, len(w.buf), len(w.buf)+1)
	copy(out, w.buf)
	return append(out, w.cur<<(8-w.nCur))
}
