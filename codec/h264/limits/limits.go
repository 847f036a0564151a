// Package limits implements the H.264 Annex A level limits (Table A-1, A.3.1, A.3.3)
// and the inverse derivations that pick the minimal level for a set of demands.
package limits

import "math"

// Entry is one row of Table A-1.
type Entry struct {
	MaxMBPS   uint32 // macroblocks per second
	MaxFS     uint32 // macroblocks per frame
	MaxDpbMbs uint32 // macroblocks of decoded picture buffer
	MaxBR     uint32 // in cpbBrVclFactor bits/s (1000 for Baseline/Main)
	MaxCPB    uint32 // in cpbBrVclFactor bits
	MaxVmvR   uint32 // vertical MV range, luma frame samples
	MinCR     uint32
}

// table follows the order of Levels.
var table = [...]Entry{
	{MaxMBPS: 1485, MaxFS: 99, MaxDpbMbs: 396, MaxBR: 64, MaxCPB: 175, MaxVmvR: 64, MinCR: 2},                // 1
	{MaxMBPS: 1485, MaxFS: 99, MaxDpbMbs: 396, MaxBR: 128, MaxCPB: 350, MaxVmvR: 64, MinCR: 2},               // 1b
	{MaxMBPS: 3000, MaxFS: 396, MaxDpbMbs: 900, MaxBR: 192, MaxCPB: 500, MaxVmvR: 128, MinCR: 2},             // 1.1
	{MaxMBPS: 6000, MaxFS: 396, MaxDpbMbs: 2376, MaxBR: 384, MaxCPB: 1000, MaxVmvR: 128, MinCR: 2},           // 1.2
	{MaxMBPS: 11880, MaxFS: 396, MaxDpbMbs: 2376, MaxBR: 768, MaxCPB: 2000, MaxVmvR: 128, MinCR: 2},          // 1.3
	{MaxMBPS: 11880, MaxFS: 396, MaxDpbMbs: 2376, MaxBR: 2000, MaxCPB: 2000, MaxVmvR: 128, MinCR: 2},         // 2
	{MaxMBPS: 19800, MaxFS: 792, MaxDpbMbs: 4752, MaxBR: 4000, MaxCPB: 4000, MaxVmvR: 256, MinCR: 2},         // 2.1
	{MaxMBPS: 20250, MaxFS: 1620, MaxDpbMbs: 8100, MaxBR: 4000, MaxCPB: 4000, MaxVmvR: 256, MinCR: 2},        // 2.2
	{MaxMBPS: 40500, MaxFS: 1620, MaxDpbMbs: 8100, MaxBR: 10000, MaxCPB: 10000, MaxVmvR: 256, MinCR: 2},      // 3
	{MaxMBPS: 108000, MaxFS: 3600, MaxDpbMbs: 18000, MaxBR: 14000, MaxCPB: 14000, MaxVmvR: 512, MinCR: 4},    // 3.1
	{MaxMBPS: 216000, MaxFS: 5120, MaxDpbMbs: 20480, MaxBR: 20000, MaxCPB: 20000, MaxVmvR: 512, MinCR: 4},    // 3.2
	{MaxMBPS: 245760, MaxFS: 8192, MaxDpbMbs: 32768, MaxBR: 20000, MaxCPB: 25000, MaxVmvR: 512, MinCR: 4},    // 4
	{MaxMBPS: 245760, MaxFS: 8192, MaxDpbMbs: 32768, MaxBR: 50000, MaxCPB: 62500, MaxVmvR: 512, MinCR: 2},    // 4.1
	{MaxMBPS: 522240, MaxFS: 8704, MaxDpbMbs: 34816, MaxBR: 50000, MaxCPB: 62500, MaxVmvR: 512, MinCR: 2},    // 4.2
	{MaxMBPS: 589824, MaxFS: 22080, MaxDpbMbs: 110400, MaxBR: 135000, MaxCPB: 135000, MaxVmvR: 512, MinCR: 2}, // 5
	{MaxMBPS: 983040, MaxFS: 36864, MaxDpbMbs: 184320, MaxBR: 240000, MaxCPB: 240000, MaxVmvR: 512, MinCR: 2}, // 5.1
	{MaxMBPS: 2073600, MaxFS: 36864, MaxDpbMbs: 184320, MaxBR: 240000, MaxCPB: 240000, MaxVmvR: 512, MinCR: 2}, // 5.2
}

// HRD selects which conformance point the bitrate/CPB limits apply to.
type HRD int

const (
	VCL HRD = iota
	NAL
)

const (
	mbSize        = 16
	bytesPerMb    = 384 // 256 luma + 128 chroma samples at 4:2:0, 8 bit
	maxRefFrames  = 16
	bitsPerKB     = 8000
	bitsPerKbit   = 1000
	cpbBrVclBase  = 1000
	cpbBrNalBase  = 1200
	cpbBrVclHigh  = 1250
	cpbBrNalHigh  = 1500
	dimensionMult = 8
)

// Lookup returns the Table A-1 row for l.
func Lookup(l Level) (Entry, bool) {
	i := l.Index()
	if i < 0 {
		return Entry{}, false
	}
	return table[i], true
}

func mustLookup(l Level) Entry {
	e, ok := Lookup(l)
	if !ok {
		e = table[len(table)-1]
	}
	return e
}

// brFactor returns cpbBrVclFactor / cpbBrNalFactor (A.3.1 item i, Table A-2).
func brFactor(p Profile, h HRD) uint64 {
	switch {
	case p.IsHigh() && h == NAL:
		return cpbBrNalHigh
	case p.IsHigh():
		return cpbBrVclHigh
	case h == NAL:
		return cpbBrNalBase
	}
	return cpbBrVclBase
}

func mbs(pixels uint32) uint64 {
	return (uint64(pixels) + mbSize - 1) / mbSize
}

// FrameSizeInMbs is PicSizeInMbs for a frame of the given luma dimensions.
func FrameSizeInMbs(width, height uint32) uint64 {
	return mbs(width) * mbs(height)
}

// MaxBitrate returns the maximum bitrate in bits/s for profile p at level l.
func MaxBitrate(p Profile, l Level, h HRD) uint64 {
	return uint64(mustLookup(l).MaxBR) * brFactor(p, h)
}

// MaxBitrateKbps is MaxBitrate in units of 1000 bits/s.
func MaxBitrateKbps(p Profile, l Level, h HRD) uint32 {
	return uint32(MaxBitrate(p, l, h) / bitsPerKbit) //nolint:gosec // max 360000
}

// MaxBufferSize returns the maximum CPB size in bits.
func MaxBufferSize(p Profile, l Level, h HRD) uint64 {
	return uint64(mustLookup(l).MaxCPB) * brFactor(p, h)
}

// MaxBufferSizeKB is MaxBufferSize in units of 1000 bytes.
func MaxBufferSizeKB(p Profile, l Level, h HRD) uint32 {
	return uint32(MaxBufferSize(p, l, h) / bitsPerKB) //nolint:gosec // max 45000
}

// MaxDpbBytes returns the DPB capacity of l in bytes (MaxDpbMbs * 384).
func MaxDpbBytes(l Level) uint64 {
	return uint64(mustLookup(l).MaxDpbMbs) * bytesPerMb
}

// MaxRefFrames returns clamp(maxDpbBytes / frameBytes, 1, 16).
func MaxRefFrames(l Level, width, height uint32) uint32 {
	frameBytes := uint64(width) * uint64(height) * 3 / 2 //nolint:mnd
	if frameBytes == 0 {
		return maxRefFrames
	}
	n := MaxDpbBytes(l) / frameBytes
	return uint32(max(1, min(n, maxRefFrames))) //nolint:gosec
}

// MaxVerticalMvRange returns MaxVmvR in full luma samples.
func MaxVerticalMvRange(l Level) uint32 {
	return mustLookup(l).MaxVmvR
}

// MinCompressionRatio returns MinCR.
func MinCompressionRatio(l Level) uint32 {
	return mustLookup(l).MinCR
}

// MaxCodedFrameBytes is the largest coded picture allowed at level l for a
// picture of picSizeInMbs macroblocks: 384 * PicSizeInMbs / MinCR.
func MaxCodedFrameBytes(l Level, picSizeInMbs uint64) uint64 {
	return bytesPerMb * picSizeInMbs / uint64(MinCompressionRatio(l))
}

// firstLevel returns the first level satisfying fits, or MaxLevel when none does.
func firstLevel(fits func(Entry, Level) bool) Level {
	for i, l := range Levels {
		if fits(table[i], l) {
			return l
		}
	}
	return MaxLevel
}

// LevelForFrameSize returns the minimal level whose MaxFS (and the
// sqrt(8*MaxFS) per-dimension bound) covers a width x height frame.
func LevelForFrameSize(width, height uint32) Level {
	if width == 0 || height == 0 {
		return LevelUnknown
	}
	w, h := mbs(width), mbs(height)
	return firstLevel(func(e Entry, _ Level) bool {
		bound := uint64(math.Sqrt(float64(e.MaxFS) * dimensionMult))
		return w*h <= uint64(e.MaxFS) && w <= bound && h <= bound
	})
}

// LevelForMacroblockRate returns the minimal level whose MaxMBPS covers the
// frame at frameRateN/frameRateD frames per second.
func LevelForMacroblockRate(width, height, frameRateN, frameRateD uint32) Level {
	if width == 0 || height == 0 || frameRateN == 0 || frameRateD == 0 {
		return LevelUnknown
	}
	perFrame := FrameSizeInMbs(width, height)
	return firstLevel(func(e Entry, _ Level) bool {
		return perFrame*uint64(frameRateN) <= uint64(e.MaxMBPS)*uint64(frameRateD)
	})
}

// LevelForDpbSize returns the minimal level able to hold numRef reference frames.
func LevelForDpbSize(width, height, numRef uint32) Level {
	if width == 0 || height == 0 || numRef == 0 {
		return LevelUnknown
	}
	return firstLevel(func(_ Entry, l Level) bool {
		return MaxRefFrames(l, width, height) >= numRef
	})
}

// LevelForBitrate returns the minimal level whose NAL HRD MaxBR covers kbps.
func LevelForBitrate(p Profile, kbps uint32) Level {
	return levelForBitrate(p, kbps, NAL)
}

// LevelForVclBitrate is LevelForBitrate against the VCL HRD limits.
func LevelForVclBitrate(p Profile, kbps uint32) Level {
	return levelForBitrate(p, kbps, VCL)
}

func levelForBitrate(p Profile, kbps uint32, h HRD) Level {
	if kbps == 0 {
		return LevelUnknown
	}
	return firstLevel(func(_ Entry, l Level) bool {
		return uint64(kbps)*bitsPerKbit <= MaxBitrate(p, l, h)
	})
}

// LevelForBufferSize returns the minimal level whose NAL HRD MaxCPB covers bufKB.
func LevelForBufferSize(p Profile, bufKB uint32) Level {
	if bufKB == 0 {
		return LevelUnknown
	}
	return firstLevel(func(_ Entry, l Level) bool {
		return uint64(bufKB)*bitsPerKB <= MaxBufferSize(p, l, NAL)
	})
}

// Demand collects everything that constrains the level of a stream.
type Demand struct {
	Profile     Profile
	Width       uint32 // frame width in luma samples
	Height      uint32 // frame height in luma samples (MB-pair aligned for interlace)
	FrameRateN  uint32
	FrameRateD  uint32
	NumRefFrame uint32
	Kbps        uint32 // peak bitrate; 0 when bitrate is not constrained (CQP)
	BufferKB    uint32 // 0 when not constrained
}

// MinimumLevelForAllParameters returns the maximum over the per-limit minimal
// levels, short-circuiting once any sub-check already demands MaxLevel.
// LevelUnknown is returned when the frame size is not known.
func MinimumLevelForAllParameters(d Demand) Level {
	level := LevelForFrameSize(d.Width, d.Height)
	if level == LevelUnknown || level == MaxLevel {
		return level
	}
	checks := []func() Level{
		func() Level { return LevelForMacroblockRate(d.Width, d.Height, d.FrameRateN, d.FrameRateD) },
		func() Level { return LevelForDpbSize(d.Width, d.Height, d.NumRefFrame) },
		func() Level { return LevelForBitrate(d.Profile, d.Kbps) },
		func() Level { return LevelForBufferSize(d.Profile, d.BufferKB) },
	}
	for _, check := range checks {
		level = Max(level, check())
		if level == MaxLevel {
			break
		}
	}
	return level
}

// SatisfiedBy reports whether every limit of d holds at level l.
func (d Demand) SatisfiedBy(l Level) bool {
	e, ok := Lookup(l)
	if !ok {
		return false
	}
	if d.Width != 0 && d.Height != 0 {
		w, h := mbs(d.Width), mbs(d.Height)
		bound := uint64(math.Sqrt(float64(e.MaxFS) * dimensionMult))
		if w*h > uint64(e.MaxFS) || w > bound || h > bound {
			return false
		}
		if d.FrameRateN != 0 && d.FrameRateD != 0 &&
			w*h*uint64(d.FrameRateN) > uint64(e.MaxMBPS)*uint64(d.FrameRateD) {
			return false
		}
		if d.NumRefFrame != 0 && MaxRefFrames(l, d.Width, d.Height) < d.NumRefFrame {
			return false
		}
	}
	if d.Kbps != 0 && uint64(d.Kbps)*bitsPerKbit > MaxBitrate(d.Profile, l, NAL) {
		return false
	}
	if d.BufferKB != 0 && uint64(d.BufferKB)*bitsPerKB > MaxBufferSize(d.Profile, l, NAL) {
		return false
	}
	return true
}
