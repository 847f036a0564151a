package nal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitNALUs(t *testing.T) {
	t.Parallel()

	sps := []byte{0x67, 0x64, 0x00, 0x28}
	pps := []byte{0x68, 0xee, 0x3c, 0x80}

	tests := []struct {
		name string
		in   []byte
		typ  Format
		want [][]byte
	}{
		{
			name: "annexb_4byte",
			in:   JoinAnnexB([][]byte{sps, pps}),
			typ:  AnnexB,
			want: [][]byte{sps, pps},
		},
		{
			name: "annexb_3byte_trailing_zeros",
			in:   append(append([]byte{0, 0, 1}, sps...), 0, 0, 0, 1, 0x68, 0xee, 0x3c, 0x80, 0, 0),
			typ:  AnnexB,
			want: [][]byte{sps, pps},
		},
		{
			name: "avcc",
			in:   append(append([]byte{0, 0, 0, 4}, sps...), append([]byte{0, 0, 0, 4}, pps...)...),
			typ:  AVCC,
			want: [][]byte{sps, pps},
		},
		{
			name: "raw",
			in:   sps,
			typ:  Raw,
			want: [][]byte{sps},
		},
		{
			name: "short",
			in:   []byte{0x09, 0xf0},
			typ:  Raw,
			want: [][]byte{{0x09, 0xf0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			nalus, typ := SplitNALUs(tt.in)
			require.Equal(t, tt.typ, typ)
			require.Equal(t, tt.want, nalus)
		})
	}
}

func TestEscapeUnescape(t *testing.T) {
	t.Parallel()

	rbsp := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x03, 0xff, 0x00, 0x00}
	ebsp := Escape(rbsp)
	require.Equal(t, []byte{0x00, 0x00, 0x03, 0x00, 0x00, 0x03, 0x00, 0x01, 0x00, 0x00, 0x03, 0x03, 0xff, 0x00, 0x00}, ebsp)
	require.Equal(t, rbsp, Unescape(ebsp))
}

func TestHeaderFields(t *testing.T) {
	t.Parallel()

	require.Equal(t, byte(7), Type([]byte{0x67}))
	require.Equal(t, byte(3), RefIdc([]byte{0x67}))
	require.Equal(t, byte(0), Type(nil))
}
