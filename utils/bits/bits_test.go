package bits

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpGolombRoundTrip(t *testing.T) {
	t.Parallel()

	values := []uint{0, 1, 2, 3, 7, 8, 254, 255, 256, 65535, 1 << 20, 1<<32 - 2}
	w := NewWriter(256, false)
	for _, v := range values {
		w.WriteExponentialGolombCode(v)
	}
	signed := []int{0, 1, -1, 2, -2, 51, -51, 1 << 16, -(1 << 16)}
	for _, v := range signed {
		w.WriteSE(v)
	}
	w.WriteTrailingBits()

	r := NewGolombBitReader(w.Bytes())
	for _, want := range values {
		got, err := r.ReadExponentialGolombCode()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	for _, want := range signed {
		got, err := r.ReadSE()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.False(t, r.MoreRBSPData())
}

func TestKnownCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ue   uint
		want []byte
	}{
		{name: "zero", ue: 0, want: []byte{0x80}},
		{name: "one", ue: 1, want: []byte{0x40}},
		{name: "two", ue: 2, want: []byte{0x60}},
		{name: "seven", ue: 7, want: []byte{0x10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := NewWriter(4, false)
			w.WriteExponentialGolombCode(tt.ue)
			require.Equal(t, tt.want, w.Bytes())
		})
	}
}

func TestFixedWidthFields(t *testing.T) {
	t.Parallel()

	w := NewWriter(16, false)
	w.WriteBits(0x5, 3)
	w.WriteBits(0x1ff, 9)
	w.WriteBits64(0xdeadbeef, 32)
	w.WriteFlag(true)
	require.Equal(t, 45, w.BitLen())

	r := NewGolombBitReader(w.Bytes())
	v, err := r.ReadBits(3)
	require.NoError(t, err)
	require.Equal(t, uint(5), v)
	v, err = r.ReadBits(9)
	require.NoError(t, err)
	require.Equal(t, uint(0x1ff), v)
	v32, err := r.ReadBits32(32)
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), v32)
	f, err := r.ReadFlag()
	require.NoError(t, err)
	require.True(t, f)
}

func TestReaderEOF(t *testing.T) {
	t.Parallel()

	r := NewGolombBitReader([]byte{0x00})
	_, err := r.ReadExponentialGolombCode()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	r = NewGolombBitReader([]byte{0, 0, 0, 0, 0x01})
	_, err = r.ReadExponentialGolombCode()
	require.ErrorIs(t, err, ErrGolombOverflow)
}

func TestEscapingWriter(t *testing.T) {
	t.Parallel()

	w := NewWriter(16, true)
	w.WriteRawBytes([]byte{0, 0, 0, 1})
	w.WriteBits(0, 16)
	w.WriteBits(1, 8)
	w.WriteBits(0, 16)
	w.WriteBits(0, 8)
	require.Equal(t, []byte{0, 0, 0, 1, 0, 0, 3, 1, 0, 0, 3, 0}, w.Bytes())
	require.True(t, w.Escaped())
	require.Equal(t, 96, w.BitLen())
}

func TestWriterPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		w := NewWriter(1, false)
		w.WriteBits(0xffff, 16)
	})
	require.Panics(t, func() {
		w := NewWriter(4, false)
		w.WriteBits(4, 2)
	})
}

func TestMoreRBSPData(t *testing.T) {
	t.Parallel()

	w := NewWriter(4, false)
	w.WriteFlag(true)
	w.WriteBits(0, 3)
	w.WriteTrailingBits()

	r := NewGolombBitReader(w.Bytes())
	require.True(t, r.MoreRBSPData())
	_, err := r.ReadBits(4)
	require.NoError(t, err)
	require.False(t, r.MoreRBSPData())
}

func TestAlignOne(t *testing.T) {
	t.Parallel()

	w := NewWriter(2, false)
	w.WriteBits(0, 3)
	w.AlignOne()
	require.True(t, w.ByteAligned())
	require.Equal(t, []byte{0x1f}, w.Bytes())
}
