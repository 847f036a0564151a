package h264

import (
	"fmt"

	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/encoder/h264/params"
)

type triStateField struct {
	name          string
	p             *params.TriState
	allowAdaptive bool
}

// triStates lists every tri-state option of cfg.
func triStates(cfg *params.Config) []triStateField {
	return []triStateField{
		{"LowPower", &cfg.LowPower, false},
		{"MBBRC", &cfg.MBBRC, true},
		{"ExtBRC", &cfg.ExtBRC, false},
		{"LowDelayBRC", &cfg.LowDelayBRC, false},
		{"BitrateLimit", &cfg.BitrateLimit, false},
		{"NalHrdConformance", &cfg.NalHrdConformance, false},
		{"VuiNalHrdParameters", &cfg.VuiNalHrdParameters, false},
		{"VuiVclHrdParameters", &cfg.VuiVclHrdParameters, false},
		{"CAVLC", &cfg.CAVLC, false},
		{"Transform8x8", &cfg.Transform8x8, false},
		{"RateDistortionOpt", &cfg.RateDistortionOpt, false},
		{"FramePicture", &cfg.FramePicture, false},
		{"AdaptiveI", &cfg.AdaptiveI, true},
		{"AdaptiveB", &cfg.AdaptiveB, true},
		{"EnableMBQP", &cfg.EnableMBQP, false},
		{"EnableMBForceIntra", &cfg.EnableMBForceIntra, false},
		{"MBDisableSkipMap", &cfg.MBDisableSkipMap, false},
		{"AUDelimiter", &cfg.AUDelimiter, false},
		{"PicTimingSEI", &cfg.PicTimingSEI, false},
		{"BufferingPeriodSEI", &cfg.BufferingPeriodSEI, false},
		{"RecoveryPointSEI", &cfg.RecoveryPointSEI, false},
		{"RepeatPPS", &cfg.RepeatPPS, false},
		{"DisableVUI", &cfg.DisableVUI, false},
		{"AspectRatioInfoPresent", &cfg.AspectRatioInfoPresent, false},
		{"OverscanInfoPresent", &cfg.OverscanInfoPresent, false},
		{"OverscanAppropriate", &cfg.OverscanAppropriate, false},
		{"TimingInfoPresent", &cfg.TimingInfoPresent, false},
		{"FixedFrameRate", &cfg.FixedFrameRate, false},
		{"LowDelayHrd", &cfg.LowDelayHrd, false},
		{"BitstreamRestriction", &cfg.BitstreamRestriction, false},
		{"VideoSignal.Present", &cfg.VideoSignal.Present, false},
		{"VideoSignal.VideoFullRange", &cfg.VideoSignal.VideoFullRange, false},
		{"VideoSignal.ColourDescriptionPresent", &cfg.VideoSignal.ColourDescriptionPresent, false},
	}
}

// checkTriStates resets out-of-range tri-states to Unknown.
func checkTriStates(c *checker) {
	for _, f := range triStates(c.cfg) {
		if !f.p.Valid(f.allowAdaptive) {
			set(c, f.name, f.p, params.Unknown, ReasonTriState)
		}
	}
}

func checkChroma(c *checker) {
	cfg := c.cfg
	if cfg.ChromaFormat != params.ChromaFormatUnset && cfg.ChromaFormat != params.ChromaFormat420 {
		c.unsupported("ChromaFormat", ReasonHardware, fmt.Sprintf("chroma_format_idc %d", cfg.ChromaFormat.IDC()))
	}
	if cfg.BitDepthLuma != 0 && cfg.BitDepthLuma != bitDepth8 {
		c.unsupported("BitDepthLuma", ReasonHardware, fmt.Sprintf("%d bit", cfg.BitDepthLuma))
	}
	if cfg.BitDepthChroma != 0 && cfg.BitDepthChroma != bitDepth8 {
		c.unsupported("BitDepthChroma", ReasonHardware, fmt.Sprintf("%d bit", cfg.BitDepthChroma))
	}
	fill(c, "ChromaFormat", &cfg.ChromaFormat, params.ChromaFormat420)
	fill(c, "BitDepthLuma", &cfg.BitDepthLuma, bitDepth8)
	fill(c, "BitDepthChroma", &cfg.BitDepthChroma, bitDepth8)
}

func checkProfile(c *checker) {
	cfg := c.cfg
	if cfg.Profile != limits.ProfileUnknown && !cfg.Profile.Supported() {
		c.unsupported("Profile", ReasonProfile, cfg.Profile.String())
	}
	if cfg.Level != limits.LevelUnknown && !cfg.Level.Valid() {
		set(c, "Level", &cfg.Level, limits.LevelUnknown, ReasonLevel)
	}
	fill(c, "Profile", &cfg.Profile, limits.ProfileHigh)
}

func checkPicStruct(c *checker) {
	cfg := c.cfg
	if !cfg.PicStruct.Valid() {
		set(c, "PicStruct", &cfg.PicStruct, params.PicStructUnknown, ReasonRange)
	}
	if c.interlaced() {
		if c.caps.NoInterlacedField {
			c.unsupported("PicStruct", ReasonHardware, "interlaced coding")
		}
		// Field coding needs frame_mbs_only_flag 0, which these profiles forbid.
		switch cfg.Profile {
		case limits.ProfileBaseline, limits.ProfileConstrainedBaseline:
			set(c, "Profile", &cfg.Profile, limits.ProfileMain, ReasonProfile)
		case limits.ProfileProgressiveHigh, limits.ProfileConstrainedHigh:
			set(c, "Profile", &cfg.Profile, limits.ProfileHigh, ReasonProfile)
		}
		fill(c, "FramePicture", &cfg.FramePicture, params.Off)
	} else {
		if cfg.FramePicture.IsOff() {
			set(c, "FramePicture", &cfg.FramePicture, params.On, ReasonRange)
		}
		fill(c, "FramePicture", &cfg.FramePicture, params.On)
	}
	fill(c, "PicStruct", &cfg.PicStruct, params.PicStructProgressive)
}

func checkResolution(c *checker) {
	cfg := c.cfg
	if !c.query {
		if cfg.Width == 0 {
			c.unsupported("Width", ReasonMandatory, "not set")
		}
		if cfg.Height == 0 {
			c.unsupported("Height", ReasonMandatory, "not set")
		}
	}
	if c.caps.MaxPicWidth != 0 && cfg.Width > c.caps.MaxPicWidth {
		c.unsupported("Width", ReasonHardware, fmt.Sprintf("%d exceeds %d", cfg.Width, c.caps.MaxPicWidth))
	}
	if c.caps.MaxPicHeight != 0 && cfg.Height > c.caps.MaxPicHeight {
		c.unsupported("Height", ReasonHardware, fmt.Sprintf("%d exceeds %d", cfg.Height, c.caps.MaxPicHeight))
	}
	// Single macroblock wide or high pictures hang the hardware.
	if cfg.Width != 0 && alignUp(cfg.Width, mbSize) == mbSize {
		c.unsupported("Width", ReasonHardware, "one macroblock wide")
	}
	if cfg.Height != 0 && alignUp(cfg.Height, mbSize) == mbSize {
		c.unsupported("Height", ReasonHardware, "one macroblock high")
	}
}

// checkAlignment rounds the coded size up to whole macroblocks (macroblock pairs
// when interlaced). The original size is kept as the crop.
func checkAlignment(c *checker) {
	cfg := c.cfg
	unitY := uint32(mbSize)
	if c.interlaced() {
		unitY = fieldPairHeight
	}
	if w := alignUp(cfg.Width, mbSize); w != cfg.Width {
		if cfg.CropW == 0 {
			set(c, "CropW", &cfg.CropW, cfg.Width, ReasonAlignment)
		}
		set(c, "Width", &cfg.Width, w, ReasonAlignment)
	}
	if h := alignUp(cfg.Height, unitY); h != cfg.Height {
		if cfg.CropH == 0 {
			set(c, "CropH", &cfg.CropH, cfg.Height, ReasonAlignment)
		}
		set(c, "Height", &cfg.Height, h, ReasonAlignment)
	}
}

// checkCrop keeps the crop window inside the frame and on chroma sample
// boundaries (two lines per field when interlaced).
func checkCrop(c *checker) {
	cfg := c.cfg
	if cfg.Width == 0 || cfg.Height == 0 {
		return
	}
	unitY := uint32(2)
	if c.interlaced() {
		unitY = 4
	}
	cropAxis(c, "CropX", "CropW", &cfg.CropX, &cfg.CropW, cfg.Width, 2) //nolint:mnd // 4:2:0 horizontal crop unit
	cropAxis(c, "CropY", "CropH", &cfg.CropY, &cfg.CropH, cfg.Height, unitY)
	fill(c, "CropW", &cfg.CropW, cfg.Width-cfg.CropX)
	fill(c, "CropH", &cfg.CropH, cfg.Height-cfg.CropY)
}

func cropAxis(c *checker, offName, sizeName string, off, size *uint32, full, unit uint32) {
	if *off >= full {
		set(c, offName, off, 0, ReasonRange)
	}
	if *off%unit != 0 {
		set(c, offName, off, *off/unit*unit, ReasonAlignment)
	}
	if *size == 0 {
		return
	}
	if *off+*size > full {
		set(c, sizeName, size, full-*off, ReasonRange)
	}
	if *size%unit != 0 {
		set(c, sizeName, size, max(*size/unit*unit, unit), ReasonAlignment)
	}
}

func checkFrameRate(c *checker) {
	cfg := c.cfg
	if cfg.FrameRateN == 0 {
		if !c.query {
			c.unsupported("FrameRateN", ReasonMandatory, "not set")
		}
		return
	}
	fill(c, "FrameRateD", &cfg.FrameRateD, 1)
}

// checkLowPower selects between the VDEnc (low power) and VME encode paths.
func checkLowPower(c *checker) {
	cfg := c.cfg
	switch {
	case cfg.LowPower.IsOn() && !c.caps.LowPower:
		c.unsupported("LowPower", ReasonHardware, "device has no low power encoder")
	case cfg.LowPower.IsOff() && c.caps.LowPower:
		c.unsupported("LowPower", ReasonHardware, "device only has a low power encoder")
	}
	fill(c, "LowPower", &cfg.LowPower, params.Bool(c.caps.LowPower))

	if c.lowPower() && (c.platform == params.PlatformGen9 || c.platform == params.PlatformGen11) &&
		cfg.GopRefDist > 1 {
		set(c, "GopRefDist", &cfg.GopRefDist, 1, ReasonHardware)
	}
}
