package bits

import (
	"errors"
	"io"
)

// ErrGolombOverflow is returned when an Exp-Golomb prefix is longer than 31 zero bits.
var ErrGolombOverflow = errors.New("bits: exp-golomb code exceeds 32 bits")

// GolombBitReader reads MSB-first bit fields and Exp-Golomb codes from an RBSP
// (emulation prevention bytes already removed).
type GolombBitReader struct {
	buf []byte
	pos int // in bits
}

func NewGolombBitReader(rbsp []byte) *GolombBitReader {
	return &GolombBitReader{buf: rbsp}
}

// ReadBits64 reads n (0..64) bits.
func (r *GolombBitReader) ReadBits64(n int) (bits uint64, err error) {
	if n == 0 {
		return
	}
	if n < 0 || n > 64 {
		panic("bits: invalid read width")
	}
	if r.pos+n > len(r.buf)*8 {
		r.pos = len(r.buf) * 8
		err = io.ErrUnexpectedEOF
		return
	}
	for n > 0 {
		byteIdx := r.pos >> 3
		bitOff := r.pos & 7
		avail := 8 - bitOff
		take := min(avail, n)
		v := uint64(r.buf[byteIdx]>>(avail-take)) & (1<<take - 1)
		bits = bits<<take | v
		r.pos += take
		n -= take
	}
	return
}

func (r *GolombBitReader) ReadBits(n int) (bits uint, err error) {
	var v uint64
	v, err = r.ReadBits64(n)
	bits = uint(v)
	return
}

func (r *GolombBitReader) ReadBits32(n int) (bits uint32, err error) {
	var v uint64
	v, err = r.ReadBits64(n)
	bits = uint32(v) //nolint:gosec // n is at most 32 for callers of ReadBits32
	return
}

func (r *GolombBitReader) ReadBit() (bit uint, err error) {
	return r.ReadBits(1)
}

func (r *GolombBitReader) ReadFlag() (flag bool, err error) {
	var bit uint
	bit, err = r.ReadBits(1)
	flag = bit == 1
	return
}

// ReadExponentialGolombCode reads ue(v).
func (r *GolombBitReader) ReadExponentialGolombCode() (v uint, err error) {
	leadingZeros := 0
	for {
		var bit uint
		if bit, err = r.ReadBit(); err != nil {
			return
		}
		if bit == 1 {
			break
		}
		leadingZeros++
		if leadingZeros > 31 { //nolint:mnd
			err = ErrGolombOverflow
			return
		}
	}
	var suffix uint
	if suffix, err = r.ReadBits(leadingZeros); err != nil {
		return
	}
	v = (1 << leadingZeros) - 1 + suffix
	return
}

// ReadSE reads se(v): 0, 1, -1, 2, -2, ...
func (r *GolombBitReader) ReadSE() (v int, err error) {
	var ue uint
	if ue, err = r.ReadExponentialGolombCode(); err != nil {
		return
	}
	if ue&1 == 1 {
		v = int((ue + 1) / 2) //nolint:gosec // ue < 2^32
	} else {
		v = -int(ue / 2) //nolint:gosec // ue < 2^32
	}
	return
}

func (r *GolombBitReader) SkipBits(n int) error {
	if r.pos+n > len(r.buf)*8 {
		r.pos = len(r.buf) * 8
		return io.ErrUnexpectedEOF
	}
	r.pos += n
	return nil
}

// BitPos returns the number of bits consumed so far.
func (r *GolombBitReader) BitPos() int {
	return r.pos
}

func (r *GolombBitReader) BitsLeft() int {
	return len(r.buf)*8 - r.pos
}

func (r *GolombBitReader) ByteAligned() bool {
	return r.pos&7 == 0
}

// MoreRBSPData implements more_rbsp_data() from 7.2: true while anything other
// than the rbsp_stop_one_bit and its alignment zeros remains.
func (r *GolombBitReader) MoreRBSPData() bool {
	left := r.BitsLeft()
	if left <= 0 {
		return false
	}
	last := len(r.buf) - 1
	for last >= 0 && r.buf[last] == 0 {
		last--
	}
	if last < 0 {
		return false
	}
	stopBit := last*8 + 7
	for b := r.buf[last]; b&1 == 0; b >>= 1 {
		stopBit--
	}
	return r.pos < stopBit
}
