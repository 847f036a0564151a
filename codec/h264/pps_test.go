package h264

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPPSRoundTrip(t *testing.T) {
	t.Parallel()

	scaled := testHighPPS()
	scaled.PicScalingMatrixPresent = true
	scaled.SecondChromaQpIndexOffset = 4
	scaled.ScalingMatrix.Present4x4[1] = true
	copy(scaled.ScalingMatrix.List4x4[1][:], rampList(scalingListSizeSmall, 10, 2, 30))
	scaled.ScalingMatrix.Present8x8[0] = true
	scaled.ScalingMatrix.UseDefault8x8[0] = true
	scaled.ScalingMatrix.List8x8[0] = defaultIntra8x8

	tests := []struct {
		name   string
		pps    *PPS
		escape bool
	}{
		{name: "baseline", pps: testBaselinePPS(), escape: true},
		{name: "high_transform8x8", pps: testHighPPS(), escape: true},
		{name: "high_deferred_escape", pps: testHighPPS()},
		{name: "high_scaling_matrix", pps: scaled, escape: true},
		{name: "interlaced_weighted", pps: testInterlacedPPS(), escape: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := tt.pps.Marshal(tt.escape)
			require.Equal(t, byte(NaluPPS), n.Type())
			require.Zero(t, n.BitLen%8)

			got, err := ParsePPS(n.EBSP())
			require.NoError(t, err)
			require.Equal(t, tt.pps, got)
		})
	}
}

func TestParsePPSRejects(t *testing.T) {
	t.Parallel()

	marshal := func(mutate func(*PPS)) []byte {
		p := testHighPPS()
		mutate(p)
		return p.Marshal(true).EBSP()
	}

	tests := []struct {
		name        string
		nalu        []byte
		unsupported bool
		syntax      string
	}{
		{
			// pps_id 0, sps_id 0, CAVLC, no bottom field POC, num_slice_groups_minus1 1
			name:        "slice_groups",
			nalu:        []byte{0x68, 0xc4, 0x80},
			unsupported: true,
			syntax:      "num_slice_groups_minus1",
		},
		{
			name:   "bipred_idc_reserved",
			nalu:   marshal(func(p *PPS) { p.WeightedBipredIdc = 3 }),
			syntax: "weighted_bipred_idc",
		},
		{
			name:   "chroma_offset",
			nalu:   marshal(func(p *PPS) { p.ChromaQpIndexOffset = 13 }),
			syntax: "chroma_qp_index_offset",
		},
		{
			name:   "init_qp",
			nalu:   marshal(func(p *PPS) { p.PicInitQpMinus26 = -27 }),
			syntax: "pic_init_qp_minus26",
		},
		{
			name:   "second_chroma_offset",
			nalu:   marshal(func(p *PPS) { p.SecondChromaQpIndexOffset = -13 }),
			syntax: "second_chroma_qp_index_offset",
		},
		{
			name:   "sps_instead_of_pps",
			nalu:   testHighSPS().Marshal(true).EBSP(),
			syntax: "nal_unit_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParsePPS(tt.nalu)
			require.ErrorIs(t, err, ErrMalformedBitstream)
			require.Equal(t, tt.unsupported, errors.Is(err, ErrUnsupportedSyntax))

			if tt.unsupported {
				var ue *UnsupportedSyntaxError
				require.ErrorAs(t, err, &ue)
				require.Equal(t, tt.syntax, ue.Syntax)
				return
			}
			var me *MalformedBitstreamError
			require.ErrorAs(t, err, &me)
			require.Equal(t, tt.syntax, me.Syntax)
		})
	}
}
