package limits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelForFrameSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		width, height uint32
		want          Level
	}{
		{name: "qcif", width: 176, height: 144, want: Level1},
		{name: "cif", width: 352, height: 288, want: Level11},
		{name: "vga", width: 640, height: 480, want: Level22},
		{name: "720p", width: 1280, height: 720, want: Level31},
		{name: "1080p", width: 1920, height: 1080, want: Level4},
		{name: "2048x1088", width: 2048, height: 1088, want: Level42},
		{name: "4k", width: 3840, height: 2160, want: Level51},
		{name: "too_large", width: 8192, height: 8192, want: Level52},
		{name: "zero_width", width: 0, height: 1080, want: LevelUnknown},
		{name: "thin_strip", width: 16 * 100, height: 16, want: Level22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, LevelForFrameSize(tt.width, tt.height))
		})
	}
}

func TestLevelForMacroblockRate(t *testing.T) {
	t.Parallel()

	require.Equal(t, Level4, LevelForMacroblockRate(1920, 1080, 30, 1))
	require.Equal(t, Level42, LevelForMacroblockRate(1920, 1080, 60, 1))
	// 8160 * 30000 / 1001 is just below 245760.
	require.Equal(t, Level4, LevelForMacroblockRate(1920, 1080, 30000, 1001))
	require.Equal(t, Level31, LevelForMacroblockRate(1280, 720, 30, 1))
	require.Equal(t, Level32, LevelForMacroblockRate(1280, 720, 60, 1))
	require.Equal(t, LevelUnknown, LevelForMacroblockRate(1920, 1080, 30, 0))
}

func TestMaxRefFrames(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint32(4), MaxRefFrames(Level4, 1920, 1080))
	require.Equal(t, uint32(5), MaxRefFrames(Level31, 1280, 720))
	require.Equal(t, uint32(16), MaxRefFrames(Level52, 320, 240))
	require.Equal(t, uint32(1), MaxRefFrames(Level1, 1920, 1080))
	require.Equal(t, uint32(13), MaxRefFrames(Level5, 1920, 1080))
	require.Equal(t, uint32(16), MaxRefFrames(Level51, 1920, 1080))
}

func TestLevelForDpbSize(t *testing.T) {
	t.Parallel()

	require.Equal(t, Level4, LevelForDpbSize(1920, 1080, 4))
	require.Equal(t, Level5, LevelForDpbSize(1920, 1080, 5))
	require.Equal(t, Level5, LevelForDpbSize(1920, 1080, 8))
	require.Equal(t, Level51, LevelForDpbSize(1920, 1080, 16))
	require.Equal(t, LevelUnknown, LevelForDpbSize(1920, 1080, 0))
}

func TestLevelForBitrate(t *testing.T) {
	t.Parallel()

	// NAL HRD: 1200 bit/s per unit for Main, 1500 for High.
	require.Equal(t, Level3, LevelForBitrate(ProfileMain, 12000))
	require.Equal(t, Level31, LevelForBitrate(ProfileMain, 12001))
	require.Equal(t, Level3, LevelForBitrate(ProfileHigh, 15000))
	require.Equal(t, Level21, LevelForBitrate(ProfileHigh, 4000))
	require.Equal(t, Level21, LevelForVclBitrate(ProfileMain, 4000))
	require.Equal(t, Level52, LevelForBitrate(ProfileHigh, 1_000_000))
	require.Equal(t, LevelUnknown, LevelForBitrate(ProfileHigh, 0))
}

func TestLevelForBitrateMonotonic(t *testing.T) {
	t.Parallel()

	for _, p := range []Profile{ProfileBaseline, ProfileMain, ProfileHigh} {
		prev := LevelForBitrate(p, 1)
		for kbps := uint32(2); kbps < 400_000; kbps += 997 {
			cur := LevelForBitrate(p, kbps)
			require.False(t, cur.Less(prev), "%s: %d kbps -> %s after %s", p, kbps, cur, prev)
			prev = cur
		}
	}
}

func TestLevelForBufferSize(t *testing.T) {
	t.Parallel()

	// Level 3 MaxCPB for High NAL: 10000 * 1500 bits = 1875000 bytes.
	require.Equal(t, Level3, LevelForBufferSize(ProfileHigh, 1875))
	require.Equal(t, Level31, LevelForBufferSize(ProfileHigh, 1876))
	require.Equal(t, LevelUnknown, LevelForBufferSize(ProfileHigh, 0))
}

func TestMaxBitrateAndBuffer(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint64(20_000_000), MaxBitrate(ProfileMain, Level4, VCL))
	require.Equal(t, uint64(24_000_000), MaxBitrate(ProfileMain, Level4, NAL))
	require.Equal(t, uint64(25_000_000), MaxBitrate(ProfileHigh, Level4, VCL))
	require.Equal(t, uint64(30_000_000), MaxBitrate(ProfileHigh, Level4, NAL))
	require.Equal(t, uint32(30000), MaxBitrateKbps(ProfileHigh, Level4, NAL))
	require.Equal(t, uint64(37_500_000), MaxBufferSize(ProfileHigh, Level4, NAL))
	require.Equal(t, uint32(4687), MaxBufferSizeKB(ProfileHigh, Level4, NAL))
	require.Equal(t, uint64(128_000), MaxBitrate(ProfileBaseline, Level1b, VCL))
}

func TestMinCompressionRatio(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint32(2), MinCompressionRatio(Level3))
	require.Equal(t, uint32(4), MinCompressionRatio(Level31))
	require.Equal(t, uint32(4), MinCompressionRatio(Level4))
	require.Equal(t, uint32(2), MinCompressionRatio(Level41))
	require.Equal(t, uint64(8160*384/4), MaxCodedFrameBytes(Level4, 8160))
	require.Equal(t, uint32(512), MaxVerticalMvRange(Level4))
	require.Equal(t, uint32(64), MaxVerticalMvRange(Level1b))
}

func TestMinimumLevelForAllParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Demand
		want Level
	}{
		{
			name: "1080p_high_4mbps",
			d:    Demand{Profile: ProfileHigh, Width: 1920, Height: 1088, FrameRateN: 30, FrameRateD: 1, NumRefFrame: 2, Kbps: 6000},
			want: Level4,
		},
		{
			name: "1080p60",
			d:    Demand{Profile: ProfileHigh, Width: 1920, Height: 1088, FrameRateN: 60, FrameRateD: 1, NumRefFrame: 2, Kbps: 6000},
			want: Level42,
		},
		{
			name: "bitrate_dominates",
			d:    Demand{Profile: ProfileMain, Width: 352, Height: 288, FrameRateN: 30, FrameRateD: 1, NumRefFrame: 1, Kbps: 20000},
			want: Level32,
		},
		{
			name: "dpb_dominates",
			d:    Demand{Profile: ProfileHigh, Width: 1920, Height: 1088, FrameRateN: 25, FrameRateD: 1, NumRefFrame: 8},
			want: Level5,
		},
		{
			name: "short_circuit",
			d:    Demand{Profile: ProfileHigh, Width: 4096, Height: 2304, FrameRateN: 60, FrameRateD: 1, Kbps: 1},
			want: Level52,
		},
		{
			name: "unknown_size",
			d:    Demand{Profile: ProfileHigh, Kbps: 4000},
			want: LevelUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MinimumLevelForAllParameters(tt.d)
			require.Equal(t, tt.want, got)
			if got != LevelUnknown && got != MaxLevel {
				require.True(t, tt.d.SatisfiedBy(got))
				idx := got.Index()
				if idx > 0 {
					require.False(t, tt.d.SatisfiedBy(Levels[idx-1]))
				}
			}
		})
	}
}

func TestLevelSignalling(t *testing.T) {
	t.Parallel()

	idc, cs3 := Level1b.IDC(ProfileMain)
	require.Equal(t, uint8(11), idc)
	require.True(t, cs3)
	require.Equal(t, Level1b, LevelFromIDC(idc, cs3, ProfileMain))

	idc, cs3 = Level1b.IDC(ProfileHigh)
	require.Equal(t, uint8(9), idc)
	require.False(t, cs3)
	require.Equal(t, Level1b, LevelFromIDC(idc, cs3, ProfileHigh))

	require.Equal(t, Level11, LevelFromIDC(11, false, ProfileMain))
	require.Equal(t, "3.1", Level31.String())
	require.Equal(t, "4", Level4.String())
	require.Equal(t, "1b", Level1b.String())
	require.True(t, Level1.Less(Level1b))
	require.Equal(t, Level11, Level1b.Next())
	require.Equal(t, Level52, Level52.Next())
}

func TestProfileFlags(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint8(0x40), ProfileConstrainedBaseline.ConstraintFlags())
	require.Equal(t, uint8(0x0c), ProfileConstrainedHigh.ConstraintFlags())
	require.Equal(t, ProfileConstrainedHigh, ProfileFromSPS(100, 0x0c))
	require.Equal(t, ProfileConstrainedBaseline, ProfileFromSPS(66, 0xc0))
	require.Equal(t, ProfileMain, ProfileFromSPS(77, 0x40))
	require.True(t, ProfileProgressiveHigh.IsHigh())
	require.False(t, ProfileHigh10.Supported())
	require.Equal(t, 2, ProfileConstrainedHigh.Rank())
}
