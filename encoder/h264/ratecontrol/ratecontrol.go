// Package ratecontrol fills the bitrate, buffer and delay parameters a caller
// left unset, from the ones it did set and the level limits.
package ratecontrol

import (
	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/utils/logger"
)

const (
	vbrPeakNum = 3 // MaxKbps = 1.5 * TargetKbps for the VBR family
	vbrPeakDen = 2

	// bufferMillis is the CPB duration assumed when sizing the buffer from the peak rate.
	bufferMillis = 2000
	bitsPerKB    = 8000
	bitsPerKbit  = 1000
	bytesPerKB   = 1000

	// timeScale90k is the HRD clock of buffering_period delays.
	timeScale90k = 90000
)

// Field names a parameter Derive filled.
type Field string

const (
	FieldMaxKbps          Field = "MaxKbps"
	FieldBufferSizeInKB   Field = "BufferSizeInKB"
	FieldInitialDelayInKB Field = "InitialDelayInKB"
	FieldLevel            Field = "Level"
)

// Derive fills only the unset rate-control fields of c and returns the ones it
// changed. Explicit values are never overridden. Except for constant QP, every
// HRD-relevant field is non-zero afterwards once the frame size is known.
func Derive(c *params.Config) []Field {
	var changed []Field
	if c.RateControlMethod == params.RCCQP {
		return deriveLevel(c, changed)
	}

	level := c.Level
	if !level.Valid() {
		level = limits.MinimumLevelForAllParameters(c.Demand())
	}

	if c.MaxKbps == 0 && c.TargetKbps != 0 {
		c.MaxKbps = peakKbps(c, level)
		changed = append(changed, FieldMaxKbps)
	}
	if c.BufferSizeInKB == 0 {
		if b := bufferKB(c, level); b != 0 {
			c.BufferSizeInKB = b
			changed = append(changed, FieldBufferSizeInKB)
		}
	}
	if c.InitialDelayInKB == 0 && c.BufferSizeInKB != 0 {
		c.InitialDelayInKB = initialDelayKB(c)
		changed = append(changed, FieldInitialDelayInKB)
	}
	if len(changed) != 0 {
		logger.Debugf("ratecontrol", "%s: max %d kbps, buffer %d KB, delay %d KB (%v)",
			c.RateControlMethod, c.MaxKbps, c.BufferSizeInKB, c.InitialDelayInKB, changed)
	}
	return deriveLevel(c, changed)
}

func deriveLevel(c *params.Config, changed []Field) []Field {
	if c.Level != limits.LevelUnknown {
		return changed
	}
	if l := limits.MinimumLevelForAllParameters(c.Demand()); l != limits.LevelUnknown {
		c.Level = l
		changed = append(changed, FieldLevel)
		logger.Debugf("ratecontrol", "level %s for %dx%d", l, c.Width, c.Height)
	}
	return changed
}

// peakKbps is the MaxKbps a method implies for TargetKbps.
func peakKbps(c *params.Config, level limits.Level) uint32 {
	if !c.RateControlMethod.IsVBRFamily() {
		return c.TargetKbps
	}
	peak := uint32(uint64(c.TargetKbps) * vbrPeakNum / vbrPeakDen) //nolint:gosec
	if c.HasHRD() || c.NalHrdConformance.IsOn() {
		peak = min(peak, limits.MaxBitrateKbps(c.Profile, level, limits.NAL))
	}
	return max(peak, c.TargetKbps)
}

func bufferKB(c *params.Config, level limits.Level) uint32 {
	if c.RateControlMethod.IsLookAhead() {
		frame := limits.FrameSizeInMbs(c.Width, c.Height)
		b := (limits.MaxCodedFrameBytes(level, frame) + bytesPerKB - 1) / bytesPerKB
		return max(uint32(b), c.InitialDelayInKB) //nolint:gosec
	}
	b := limits.MaxBufferSizeKB(c.Profile, level, limits.NAL)
	if c.MaxKbps != 0 {
		b = min(b, uint32(uint64(c.MaxKbps)*bufferMillis/bitsPerKB)) //nolint:gosec
	}
	return max(b, c.InitialDelayInKB)
}

func initialDelayKB(c *params.Config) uint32 {
	if c.ExtBRC.IsOn() && c.RateControlMethod == params.RCVBR {
		return c.BufferSizeInKB * 3 / 4 //nolint:mnd
	}
	return c.BufferSizeInKB / 2 //nolint:mnd
}

// HRDRates returns the bit rate (bits/s) and CPB size (bits) signalled in the
// HRD parameters of c. CBR streams signal the target rate, others the peak.
func HRDRates(c *params.Config) (bitRate, cpbSize uint64) {
	kbps := c.MaxKbps
	if c.RateControlMethod == params.RCCBR || kbps == 0 {
		kbps = c.TargetKbps
	}
	return uint64(kbps) * bitsPerKbit, uint64(c.BufferSizeInKB) * bitsPerKB
}

// InitialCpbRemovalDelay returns initial_cpb_removal_delay in 90 kHz ticks:
// the time to fill InitialDelayInKB at the signalled bit rate.
func InitialCpbRemovalDelay(c *params.Config) uint32 {
	bitRate, _ := HRDRates(c)
	if bitRate == 0 {
		return 0
	}
	return uint32(uint64(c.InitialDelayInKB) * bitsPerKB * timeScale90k / bitRate) //nolint:gosec
}
