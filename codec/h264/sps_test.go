package h264

import (
	"io"
	"testing"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/ugparu/avchw/codec/h264/limits"
)

func scaledHighSPS() *SPS {
	s := testHighSPS()
	s.ScalingMatrixPresent = true
	m := &s.ScalingMatrix
	for _, i := range []int{0, 2, 5} {
		m.Present4x4[i] = true
		copy(m.List4x4[i][:], rampList(scalingListSizeSmall, uint8(6+i), 3, 40))
	}
	m.Present8x8 = [2]bool{true, true}
	copy(m.List8x8[0][:], rampList(scalingListSizeLarge, 9, 1, 30))
	m.UseDefault8x8[1] = true
	m.List8x8[1] = defaultInter8x8
	return s
}

func TestSPSRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sps    *SPS
		escape bool
	}{
		{name: "baseline_cif", sps: testBaselineSPS(), escape: true},
		{name: "high_1080p_vui_hrd", sps: testHighSPS(), escape: true},
		{name: "high_deferred_escape", sps: testHighSPS(), escape: false},
		{name: "high_scaling_matrix", sps: scaledHighSPS(), escape: true},
		{name: "main_mbaff_poc1", sps: testInterlacedSPS(), escape: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := tt.sps.Marshal(tt.escape)
			require.Equal(t, tt.escape, n.Escaped)
			require.Equal(t, byte(NaluSPS), n.Type())
			require.Zero(t, n.BitLen%8)

			got, err := ParseSPS(n.EBSP())
			require.NoError(t, err)
			require.Equal(t, tt.sps, got)
		})
	}
}

func TestSPSInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sps  *SPS
		want FrameInfo
	}{
		{
			name: "1080p_cropped",
			sps:  testHighSPS(),
			want: FrameInfo{MbWidth: 120, MbHeight: 68, CropBottom: 8, Width: 1920, Height: 1080, FPS: 29},
		},
		{
			name: "cif",
			sps:  testBaselineSPS(),
			want: FrameInfo{MbWidth: 22, MbHeight: 18, Width: 352, Height: 288},
		},
		{
			name: "576i",
			sps:  testInterlacedSPS(),
			want: FrameInfo{MbWidth: 45, MbHeight: 36, Width: 720, Height: 576, FPS: 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.sps.Info())
		})
	}
}

func TestSPSAgainstMP4FF(t *testing.T) {
	t.Parallel()

	s := testHighSPS()
	ref, err := avc.ParseSPSNALUnit(s.Marshal(true).EBSP(), true)
	require.NoError(t, err)

	require.EqualValues(t, 100, ref.Profile)
	require.EqualValues(t, 40, ref.Level)
	require.EqualValues(t, 1920, ref.Width)
	require.EqualValues(t, 1080, ref.Height)
	require.EqualValues(t, 4, ref.NumRefFrames)
	require.True(t, ref.FrameMbsOnlyFlag)
	require.NotNil(t, ref.VUI)
	require.True(t, ref.VUI.BitstreamRestrictionFlag)
	require.EqualValues(t, 2, ref.VUI.MaxNumReorderFrames)
	require.EqualValues(t, 4, ref.VUI.MaxDecFrameBuffering)

	b := testBaselineSPS()
	ref, err = avc.ParseSPSNALUnit(b.Marshal(true).EBSP(), true)
	require.NoError(t, err)
	require.EqualValues(t, 66, ref.Profile)
	require.EqualValues(t, 352, ref.Width)
	require.EqualValues(t, 288, ref.Height)
}

func TestSPSProfileAndLevel(t *testing.T) {
	t.Parallel()

	s := testBaselineSPS()
	require.Equal(t, limits.ProfileConstrainedBaseline, s.Profile())
	require.Equal(t, limits.Level3, s.Level())

	h := testHighSPS()
	require.Equal(t, limits.ProfileHigh, h.Profile())
	require.Equal(t, limits.Level4, h.Level())
}

func TestParseSPSRejects(t *testing.T) {
	t.Parallel()

	marshal := func(mutate func(*SPS)) []byte {
		s := testHighSPS()
		mutate(s)
		return s.Marshal(true).EBSP()
	}

	tests := []struct {
		name        string
		nalu        []byte
		unsupported bool
		syntax      string
	}{
		{
			name:        "chroma_422",
			nalu:        marshal(func(s *SPS) { s.ChromaFormatIdc = 2 }),
			unsupported: true,
			syntax:      "chroma_format_idc",
		},
		{
			name:        "bit_depth_10",
			nalu:        marshal(func(s *SPS) { s.BitDepthLumaMinus8 = 2 }),
			unsupported: true,
			syntax:      "bit_depth_luma_minus8",
		},
		{
			name:        "high_444_profile",
			nalu:        marshal(func(s *SPS) { s.ProfileIdc = 244 }),
			unsupported: true,
			syntax:      "profile_idc",
		},
		{
			name:        "reserved_nal_type",
			nalu:        []byte{0x78, 0x64, 0x00, 0x28, 0xac},
			unsupported: true,
			syntax:      "nal_unit_type",
		},
		{
			name:   "pps_instead_of_sps",
			nalu:   testHighPPS().Marshal(true).EBSP(),
			syntax: "nal_unit_type",
		},
		{
			name:   "forbidden_zero_bit",
			nalu:   []byte{0xe7, 0x64, 0x00, 0x28, 0xac},
			syntax: "forbidden_zero_bit",
		},
		{
			name:   "log2_max_frame_num",
			nalu:   marshal(func(s *SPS) { s.Log2MaxFrameNumMinus4 = 13 }),
			syntax: "log2_max_frame_num_minus4",
		},
		{
			name:   "crop_exceeds_height",
			nalu:   marshal(func(s *SPS) { s.FrameCropBottom = 544 }),
			syntax: "frame_crop_bottom_offset",
		},
		{
			name: "crop_sum_wraps",
			nalu: marshal(func(s *SPS) {
				s.FrameCropLeft, s.FrameCropRight = 1<<31, 1<<31
			}),
			syntax: "frame_crop_right_offset",
		},
		{
			name:   "zero_time_scale",
			nalu:   marshal(func(s *SPS) { s.VUI.TimeScale = 0 }),
			syntax: "time_scale",
		},
		{
			name:   "dpb_below_ref_frames",
			nalu:   marshal(func(s *SPS) { s.VUI.MaxDecFrameBuffering = 3; s.VUI.MaxNumReorderFrames = 1 }),
			syntax: "max_dec_frame_buffering",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseSPS(tt.nalu)
			require.Error(t, err)
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

func TestParseSPSTruncated(t *testing.T) {
	t.Parallel()

	full := testHighSPS().Marshal(true).EBSP()
	for _, n := range []int{2, 6, 12, len(full) / 2} {
		_, err := ParseSPS(full[:n])
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.ErrorIs(t, err, ErrMalformedBitstream)
	}
}

func TestHRDScaledValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value uint64
		exact bool
	}{
		{name: "6mbps", value: 6_000_000, exact: true},
		{name: "odd", value: 1_000_001},
		{name: "one", value: 1},
		{name: "large", value: 800_000_000, exact: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var h HRD
			h.SetBitRate(tt.value)
			h.SetCpbSize(tt.value)
			require.GreaterOrEqual(t, h.BitRate(), tt.value)
			require.Less(t, h.BitRate()-tt.value, uint64(1)<<(6+h.BitRateScale))
			require.GreaterOrEqual(t, h.CpbSize(), tt.value)
			require.Less(t, h.CpbSize()-tt.value, uint64(1)<<(4+h.CpbSizeScale))
			if tt.exact {
				require.Equal(t, tt.value, h.BitRate())
				require.Equal(t, tt.value, h.CpbSize())
			}
		})
	}
}
