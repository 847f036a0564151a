package h264

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSliceHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sps  *SPS
		pps  *PPS
		hdr  *SliceHeader
	}{
		{
			name: "idr_i",
			sps:  testHighSPS(),
			pps:  testHighPPS(),
			hdr: &SliceHeader{
				NalRefIdc:               3,
				NalUnitType:             NaluCodedIDR,
				SliceType:               SliceI,
				SliceTypeFixed:          true,
				IdrPicID:                7,
				NumRefIdxL0ActiveMinus1: 2,
				LongTermReference:       true,
				SliceQPDelta:            2,
				SliceAlphaC0OffsetDiv2:  -1,
				SliceBetaOffsetDiv2:     2,
			},
		},
		{
			name: "cabac_p_with_modifications",
			sps:  testHighSPS(),
			pps:  testHighPPS(),
			hdr: &SliceHeader{
				NalRefIdc:               2,
				NalUnitType:             NaluNonIDR,
				FirstMbInSlice:          60,
				SliceType:               SliceP,
				FrameNum:                5,
				PicOrderCntLsb:          10,
				NumRefIdxActiveOverride: true,
				NumRefIdxL0ActiveMinus1: 1,
				RefPicListModL0: []RefPicListModification{
					{ModificationOfPicNumsIdc: 0, AbsDiffPicNumMinus1: 2},
					{ModificationOfPicNumsIdc: 2, LongTermPicNum: 1},
				},
				MMCO: []MMCO{
					{Op: 1},
					{Op: 2, LongTermPicNum: 1},
					{Op: 3, DifferenceOfPicNumsMinus1: 1, LongTermFrameIdx: 0},
					{Op: 4, MaxLongTermFrameIdxPlus1: 2},
					{Op: 6, LongTermFrameIdx: 1},
				},
				CabacInitIdc:               2,
				SliceQPDelta:               -4,
				DisableDeblockingFilterIdc: 1,
			},
		},
		{
			name: "mbaff_b_weighted",
			sps:  testInterlacedSPS(),
			pps:  testInterlacedPPS(),
			hdr: &SliceHeader{
				NalUnitType:             NaluNonIDR,
				FirstMbInSlice:          10,
				SliceType:               SliceB,
				PPSID:                   1,
				FrameNum:                3,
				DeltaPicOrderCnt:        [2]int32{-2, 1},
				DirectSpatialMvPred:     true,
				NumRefIdxL0ActiveMinus1: 1,
				PredWeightTable: &PredWeightTable{
					LumaLog2WeightDenom:   5,
					ChromaLog2WeightDenom: 3,
					L0: []WeightEntry{
						{LumaWeightFlag: true, LumaWeight: 40, LumaOffset: -3},
						{ChromaWeightFlag: true, ChromaWeight: [2]int32{8, 9}, ChromaOffset: [2]int32{-1, 2}},
					},
					L1: []WeightEntry{{}},
				},
			},
		},
		{
			name: "bottom_field_p",
			sps:  testInterlacedSPS(),
			pps:  testInterlacedPPS(),
			hdr: &SliceHeader{
				NalRefIdc:               1,
				NalUnitType:             NaluNonIDR,
				FirstMbInSlice:          400,
				SliceType:               SliceP,
				PPSID:                   1,
				FrameNum:                1,
				FieldPic:                true,
				BottomField:             true,
				DeltaPicOrderCnt:        [2]int32{3, 0},
				RedundantPicCnt:         1,
				NumRefIdxL0ActiveMinus1: 1,
				PredWeightTable: &PredWeightTable{
					LumaLog2WeightDenom: 6,
					L0: []WeightEntry{
						{LumaWeightFlag: true, LumaWeight: 64, LumaOffset: 5},
						{},
					},
				},
				SliceQPDelta: 5,
			},
		},
		{
			name: "baseline_cavlc_p",
			sps:  testBaselineSPS(),
			pps:  testBaselinePPS(),
			hdr: &SliceHeader{
				NalRefIdc:   1,
				NalUnitType: NaluNonIDR,
				SliceType:   SliceP,
				FrameNum:    1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := tt.hdr.Marshal(tt.sps, tt.pps, false)
			require.False(t, n.Escaped)
			require.Equal(t, tt.hdr.NalUnitType, n.Type())

			got, off, err := ParseSliceHeader(n.EBSP(), tt.sps, tt.pps)
			require.NoError(t, err)
			require.Equal(t, tt.hdr, got)
			// start code and NAL header are 40 bits
			require.Equal(t, n.BitLen-40, off)
		})
	}
}

func TestParseSliceHeaderRejects(t *testing.T) {
	t.Parallel()

	idr := func() *SliceHeader {
		return &SliceHeader{NalRefIdc: 3, NalUnitType: NaluCodedIDR, SliceType: SliceI}
	}
	p := func() *SliceHeader {
		return &SliceHeader{NalRefIdc: 2, NalUnitType: NaluNonIDR, SliceType: SliceP, FrameNum: 1}
	}

	tests := []struct {
		name        string
		hdr         *SliceHeader
		unsupported bool
		syntax      string
	}{
		{
			name:   "idr_not_reference",
			hdr:    func() *SliceHeader { h := idr(); h.NalRefIdc = 0; return h }(),
			syntax: "nal_ref_idc",
		},
		{
			name:   "idr_inter",
			hdr:    func() *SliceHeader { h := idr(); h.SliceType = SliceP; return h }(),
			syntax: "slice_type",
		},
		{
			name:   "idr_frame_num",
			hdr:    func() *SliceHeader { h := idr(); h.FrameNum = 3; return h }(),
			syntax: "frame_num",
		},
		{
			name:        "sp_slice",
			hdr:         func() *SliceHeader { h := p(); h.SliceType = SliceSP; return h }(),
			unsupported: true,
			syntax:      "slice_type",
		},
		{
			name:   "foreign_pps",
			hdr:    func() *SliceHeader { h := p(); h.PPSID = 1; return h }(),
			syntax: "pic_parameter_set_id",
		},
		{
			name:   "first_mb_outside",
			hdr:    func() *SliceHeader { h := p(); h.FirstMbInSlice = 120 * 68; return h }(),
			syntax: "first_mb_in_slice",
		},
		{
			name:   "qp_above_51",
			hdr:    func() *SliceHeader { h := p(); h.SliceQPDelta = 30; return h }(),
			syntax: "slice_qp_delta",
		},
	}

	sps, pps := testHighSPS(), testHighPPS()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := ParseSliceHeader(tt.hdr.Marshal(sps, pps, true).EBSP(), sps, pps)
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

func TestParseSliceHeaderMismatchedSPS(t *testing.T) {
	t.Parallel()

	h := &SliceHeader{NalRefIdc: 1, NalUnitType: NaluNonIDR, SliceType: SliceP, PPSID: 1}
	n := h.Marshal(testInterlacedSPS(), testInterlacedPPS(), true)

	_, _, err := ParseSliceHeader(n.EBSP(), testHighSPS(), testInterlacedPPS())
	var me *MalformedBitstreamError
	require.ErrorAs(t, err, &me)
	require.Equal(t, "seq_parameter_set_id", me.Syntax)
}
