package h264

import (
	"github.com/ugparu/avchw/encoder/h264/params"
)

// checkVUI applies the E.2.1 presence dependencies between VUI fields and the
// SEI messages that read them.
//
//nolint:gocyclo,cyclop,funlen // one branch per VUI dependency
func checkVUI(c *checker) {
	cfg := c.cfg
	vuiOff := cfg.DisableVUI.IsOn()
	if vuiOff {
		for _, f := range []struct {
			name string
			p    *params.TriState
		}{
			{"AspectRatioInfoPresent", &cfg.AspectRatioInfoPresent},
			{"OverscanInfoPresent", &cfg.OverscanInfoPresent},
			{"TimingInfoPresent", &cfg.TimingInfoPresent},
			{"BitstreamRestriction", &cfg.BitstreamRestriction},
			{"VideoSignal.Present", &cfg.VideoSignal.Present},
			{"PicTimingSEI", &cfg.PicTimingSEI},
		} {
			set(c, f.name, f.p, off(*f.p), ReasonVUI)
		}
	}

	if cfg.AspectRatioW == 0 || cfg.AspectRatioH == 0 {
		set(c, "AspectRatioW", &cfg.AspectRatioW, 0, ReasonVUI)
		set(c, "AspectRatioH", &cfg.AspectRatioH, 0, ReasonVUI)
	}
	fill(c, "AspectRatioInfoPresent", &cfg.AspectRatioInfoPresent,
		params.Bool(!vuiOff && cfg.AspectRatioW != 0))
	if cfg.AspectRatioInfoPresent.IsOn() {
		fill(c, "AspectRatioW", &cfg.AspectRatioW, 1)
		fill(c, "AspectRatioH", &cfg.AspectRatioH, 1)
	}

	if !cfg.OverscanInfoPresent.IsOn() {
		set(c, "OverscanAppropriate", &cfg.OverscanAppropriate, off(cfg.OverscanAppropriate), ReasonVUI)
	}

	fill(c, "TimingInfoPresent", &cfg.TimingInfoPresent, params.Bool(!vuiOff))
	if !cfg.TimingInfoPresent.IsOn() {
		set(c, "FixedFrameRate", &cfg.FixedFrameRate, off(cfg.FixedFrameRate), ReasonVUI)
	}
	fill(c, "FixedFrameRate", &cfg.FixedFrameRate, params.Bool(cfg.TimingInfoPresent.IsOn()))

	if !cfg.HasHRD() {
		set(c, "LowDelayHrd", &cfg.LowDelayHrd, off(cfg.LowDelayHrd), ReasonHRD)
		set(c, "BufferingPeriodSEI", &cfg.BufferingPeriodSEI, off(cfg.BufferingPeriodSEI), ReasonHRD)
	}
	fill(c, "BufferingPeriodSEI", &cfg.BufferingPeriodSEI, params.Bool(cfg.HasHRD()))
	fill(c, "PicTimingSEI", &cfg.PicTimingSEI, params.Bool(cfg.HasHRD() && !vuiOff))

	fill(c, "BitstreamRestriction", &cfg.BitstreamRestriction, params.Bool(!vuiOff))
	checkVideoSignal(c, vuiOff)
}

func checkVideoSignal(c *checker, vuiOff bool) {
	vs := &c.cfg.VideoSignal
	colour := vs.ColourPrimaries != 0 || vs.TransferCharacteristics != 0 || vs.MatrixCoefficients != 0
	fill(c, "VideoSignal.Present", &vs.Present, params.Bool(!vuiOff && (colour || vs.VideoFullRange.IsOn())))

	if vs.Present.IsOff() {
		set(c, "VideoSignal.VideoFormat", &vs.VideoFormat, 0, ReasonVUI)
		set(c, "VideoSignal.VideoFullRange", &vs.VideoFullRange, off(vs.VideoFullRange), ReasonVUI)
		set(c, "VideoSignal.ColourDescriptionPresent", &vs.ColourDescriptionPresent,
			off(vs.ColourDescriptionPresent), ReasonVUI)
	}
	if vs.VideoFormat > unspecifiedVideoFmt {
		set(c, "VideoSignal.VideoFormat", &vs.VideoFormat, unspecifiedVideoFmt, ReasonRange)
	}
	fill(c, "VideoSignal.VideoFullRange", &vs.VideoFullRange, params.Off)
	fill(c, "VideoSignal.ColourDescriptionPresent", &vs.ColourDescriptionPresent,
		params.Bool(vs.Present.IsOn() && colour))

	if vs.ColourDescriptionPresent.IsOn() {
		// Zero is reserved for primaries and transfer; matrix 0 is identity (RGB).
		if vs.ColourPrimaries == 0 {
			set(c, "VideoSignal.ColourPrimaries", &vs.ColourPrimaries, unspecifiedColour, ReasonVUI)
		}
		if vs.TransferCharacteristics == 0 {
			set(c, "VideoSignal.TransferCharacteristics", &vs.TransferCharacteristics, unspecifiedColour, ReasonVUI)
		}
	} else if vs.ColourDescriptionPresent.IsOff() {
		set(c, "VideoSignal.ColourPrimaries", &vs.ColourPrimaries, 0, ReasonVUI)
		set(c, "VideoSignal.TransferCharacteristics", &vs.TransferCharacteristics, 0, ReasonVUI)
		set(c, "VideoSignal.MatrixCoefficients", &vs.MatrixCoefficients, 0, ReasonVUI)
	}
}

// fillTriStates resolves every option still left to the encoder.
func fillTriStates(c *checker) {
	cfg := c.cfg
	fill(c, "MBBRC", &cfg.MBBRC, params.Bool(c.caps.MBBRCSupport && cfg.RateControlMethod != params.RCCQP))
	fill(c, "BitrateLimit", &cfg.BitrateLimit, params.On)
	for _, f := range triStates(cfg) {
		fill(c, f.name, f.p, params.Off)
	}
}
