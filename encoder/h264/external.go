package h264

import (
	"fmt"

	"github.com/ugparu/avchw/codec/h264"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/utils/nal"
)

// external holds caller supplied parameter sets. Both are reproduced verbatim by
// the packer; every field they imply is locked for the rest of the pass.
type external struct {
	sps     *h264.SPS
	pps     *h264.PPS
	spsNALU []byte
	ppsNALU []byte
}

// sampleAspectRatios is Table E-1, indexed by aspect_ratio_idc.
var sampleAspectRatios = [...][2]uint32{
	{0, 0}, {1, 1}, {12, 11}, {10, 11}, {16, 11}, {40, 33}, {24, 11}, {20, 11},
	{32, 11}, {80, 33}, {18, 11}, {15, 11}, {64, 33}, {160, 99}, {4, 3}, {3, 2}, {2, 1},
}

const extendedSAR = 255

// splitParameterSets finds the first SPS and PPS in the caller's buffers. The PPS
// may follow the SPS in the same buffer.
func splitParameterSets(spsBuf, ppsBuf []byte) (sps, pps []byte) {
	find := func(buf []byte, typ byte) []byte {
		nalus, _ := nal.SplitNALUs(buf)
		for _, n := range nalus {
			if nal.Type(n) == typ {
				return n
			}
		}
		return nil
	}
	sps = find(spsBuf, h264.NaluSPS)
	if pps = find(ppsBuf, h264.NaluPPS); pps == nil {
		pps = find(spsBuf, h264.NaluPPS)
	}
	return sps, pps
}

// adoptExternalHeaders parses the caller's SPS/PPS and copies every field they
// imply into the config. A buffer that does not parse makes the whole pass
// Incompatible; it reports false in that case.
func (c *checker) adoptExternalHeaders() bool {
	c.rule = "external"
	spsNALU, ppsNALU := splitParameterSets(c.cfg.SPSBuffer, c.cfg.PPSBuffer)
	if spsNALU == nil {
		c.incompatible("SPSBuffer", ReasonExternalHeader, "no sequence parameter set", nil)
		return false
	}
	sps, err := h264.ParseSPS(spsNALU)
	if err != nil {
		c.incompatible("SPSBuffer", ReasonExternalHeader, "cannot be parsed", err)
		return false
	}
	ext := &external{sps: sps, spsNALU: spsNALU}
	if ppsNALU != nil {
		pps, err := h264.ParsePPS(ppsNALU)
		if err != nil {
			c.incompatible("PPSBuffer", ReasonExternalHeader, "cannot be parsed", err)
			return false
		}
		if pps.SPSID != sps.ID {
			c.incompatible("PPSBuffer", ReasonExternalHeader, fmt.Sprintf("refers to SPS %d, buffer carries SPS %d", pps.SPSID, sps.ID), nil)
			return false
		}
		ext.pps, ext.ppsNALU = pps, ppsNALU
	} else if len(c.cfg.PPSBuffer) != 0 {
		c.incompatible("PPSBuffer", ReasonExternalHeader, "no picture parameter set", nil)
		return false
	}
	c.ext = ext
	c.adoptSPS(sps)
	if ext.pps != nil {
		c.adoptPPS(ext.pps)
	}
	return true
}

// adopt copies v into an unset field or checks that the caller's value agrees.
func adopt[T comparable](c *checker, field string, p *T, v T) {
	var zero T
	if *p != zero && *p != v {
		c.incompatible(field, ReasonExternalHeader, fmt.Sprintf("configured %v, caller headers carry %v", *p, v), nil)
	} else {
		set(c, field, p, v, ReasonExternalHeader)
	}
	c.locked[field] = true
}

// adoptDimension is adopt for sizes the caller may give before MB alignment.
func adoptDimension(c *checker, field string, p *uint32, v, unit uint32) {
	if *p != 0 && alignUp(*p, unit) == v {
		set(c, field, p, v, ReasonAlignment)
	}
	adopt(c, field, p, v)
}

//nolint:funlen // one adoption per syntax element
func (c *checker) adoptSPS(sps *h264.SPS) {
	cfg := c.cfg
	adopt(c, "Profile", &cfg.Profile, sps.Profile())
	adopt(c, "Level", &cfg.Level, sps.Level())
	adopt(c, "SPSID", &cfg.SPSID, uint8(sps.ID)) //nolint:gosec // ue(v) range checked to 31
	adopt(c, "ChromaFormat", &cfg.ChromaFormat, params.ChromaFormatFromIDC(sps.ChromaFormatIdc))
	adopt(c, "BitDepthLuma", &cfg.BitDepthLuma, uint8(sps.BitDepthLumaMinus8)+bitDepth8)     //nolint:gosec
	adopt(c, "BitDepthChroma", &cfg.BitDepthChroma, uint8(sps.BitDepthChromaMinus8)+bitDepth8) //nolint:gosec

	unitY := uint32(mbSize)
	cropUnitY := uint32(2)
	if !sps.FrameMbsOnly {
		unitY, cropUnitY = fieldPairHeight, 4
		if !cfg.PicStruct.Interlaced() {
			if cfg.PicStruct == params.PicStructProgressive {
				c.incompatible("PicStruct", ReasonExternalHeader, "caller headers code field pictures", nil)
			} else {
				set(c, "PicStruct", &cfg.PicStruct, params.PicStructFieldTFF, ReasonExternalHeader)
			}
		}
		adopt(c, "FramePicture", &cfg.FramePicture, params.Bool(sps.MbAdaptiveFrameField))
	} else if cfg.PicStruct.Interlaced() {
		c.incompatible("PicStruct", ReasonExternalHeader, "caller headers code frames only", nil)
	} else {
		set(c, "PicStruct", &cfg.PicStruct, params.PicStructProgressive, ReasonExternalHeader)
	}
	c.locked["PicStruct"] = true

	width := sps.WidthInMbs() * mbSize
	height := sps.FrameHeightInMbs() * mbSize
	adoptDimension(c, "Width", &cfg.Width, width, mbSize)
	adoptDimension(c, "Height", &cfg.Height, height, unitY)

	var left, right, top, bottom uint32
	if sps.FrameCropping {
		left, right = sps.FrameCropLeft*2, sps.FrameCropRight*2
		top, bottom = sps.FrameCropTop*cropUnitY, sps.FrameCropBottom*cropUnitY
	}
	adopt(c, "CropX", &cfg.CropX, left)
	adopt(c, "CropY", &cfg.CropY, top)
	adopt(c, "CropW", &cfg.CropW, width-left-right)
	adopt(c, "CropH", &cfg.CropH, height-top-bottom)

	adopt(c, "NumRefFrame", &cfg.NumRefFrame, sps.MaxNumRefFrames)

	if sps.ScalingMatrixPresent {
		switch {
		case cfg.ScalingMatrix == nil:
			m := sps.ScalingMatrix
			c.replace("ScalingMatrix", ReasonExternalHeader, nil, "sps", func() { cfg.ScalingMatrix = &m })
		case *cfg.ScalingMatrix != sps.ScalingMatrix:
			c.incompatible("ScalingMatrix", ReasonExternalHeader, "differs from the caller's sequence scaling matrix", nil)
		}
	} else if cfg.ScalingMatrix != nil {
		c.incompatible("ScalingMatrix", ReasonExternalHeader, "caller headers carry no sequence scaling matrix", nil)
	}
	c.locked["ScalingMatrix"] = true

	adopt(c, "DisableVUI", &cfg.DisableVUI, params.Bool(!sps.VUIParametersPresent))
	if sps.VUIParametersPresent {
		c.adoptVUI(&sps.VUI)
	}
}

//nolint:funlen // one adoption per syntax element
func (c *checker) adoptVUI(v *h264.VUI) {
	cfg := c.cfg
	adopt(c, "AspectRatioInfoPresent", &cfg.AspectRatioInfoPresent, params.Bool(v.AspectRatioInfoPresent))
	if v.AspectRatioInfoPresent {
		var sar [2]uint32
		switch {
		case v.AspectRatioIdc == extendedSAR:
			sar = [2]uint32{uint32(v.SarWidth), uint32(v.SarHeight)}
		case int(v.AspectRatioIdc) < len(sampleAspectRatios):
			sar = sampleAspectRatios[v.AspectRatioIdc]
		}
		adopt(c, "AspectRatioW", &cfg.AspectRatioW, sar[0])
		adopt(c, "AspectRatioH", &cfg.AspectRatioH, sar[1])
	}

	adopt(c, "OverscanInfoPresent", &cfg.OverscanInfoPresent, params.Bool(v.OverscanInfoPresent))
	adopt(c, "OverscanAppropriate", &cfg.OverscanAppropriate, params.Bool(v.OverscanAppropriate))

	vs := &cfg.VideoSignal
	adopt(c, "VideoSignal.Present", &vs.Present, params.Bool(v.VideoSignalTypePresent))
	if v.VideoSignalTypePresent {
		adopt(c, "VideoSignal.VideoFormat", &vs.VideoFormat, v.VideoFormat)
		adopt(c, "VideoSignal.VideoFullRange", &vs.VideoFullRange, params.Bool(v.VideoFullRange))
		adopt(c, "VideoSignal.ColourDescriptionPresent", &vs.ColourDescriptionPresent,
			params.Bool(v.ColourDescriptionPresent))
		if v.ColourDescriptionPresent {
			adopt(c, "VideoSignal.ColourPrimaries", &vs.ColourPrimaries, v.ColourPrimaries)
			adopt(c, "VideoSignal.TransferCharacteristics", &vs.TransferCharacteristics, v.TransferCharacteristics)
			adopt(c, "VideoSignal.MatrixCoefficients", &vs.MatrixCoefficients, v.MatrixCoefficients)
		}
	}

	adopt(c, "TimingInfoPresent", &cfg.TimingInfoPresent, params.Bool(v.TimingInfoPresent))
	adopt(c, "FixedFrameRate", &cfg.FixedFrameRate, params.Bool(v.TimingInfoPresent && v.FixedFrameRate))
	if v.TimingInfoPresent && v.NumUnitsInTick != 0 && v.TimeScale != 0 {
		c.adoptFrameRate(v.TimeScale, 2*v.NumUnitsInTick) //nolint:mnd // two ticks per frame
	}

	adopt(c, "VuiNalHrdParameters", &cfg.VuiNalHrdParameters, params.Bool(v.NalHrdPresent))
	adopt(c, "VuiVclHrdParameters", &cfg.VuiVclHrdParameters, params.Bool(v.VclHrdPresent))
	adopt(c, "LowDelayHrd", &cfg.LowDelayHrd, params.Bool(v.LowDelayHrd))
	adopt(c, "PicTimingSEI", &cfg.PicTimingSEI, params.Bool(v.PicStructPresent))

	adopt(c, "BitstreamRestriction", &cfg.BitstreamRestriction, params.Bool(v.BitstreamRestriction))
	if v.BitstreamRestriction {
		adopt(c, "MaxDecFrameBuffering", &cfg.MaxDecFrameBuffering, v.MaxDecFrameBuffering)
	}
}

// adoptFrameRate compares rates as ratios so 60000/2002 matches 30000/1001. An
// unset denominator means 1.
func (c *checker) adoptFrameRate(n, d uint32) {
	cfg := c.cfg
	switch den := max(cfg.FrameRateD, 1); {
	case cfg.FrameRateN == 0 && cfg.FrameRateD <= 1:
		g := gcd(n, d)
		set(c, "FrameRateN", &cfg.FrameRateN, n/g, ReasonExternalHeader)
		set(c, "FrameRateD", &cfg.FrameRateD, d/g, ReasonExternalHeader)
	case uint64(cfg.FrameRateN)*uint64(d) != uint64(n)*uint64(den):
		c.incompatible("FrameRateN", ReasonExternalHeader, fmt.Sprintf("configured %d/%d, caller headers carry %d/%d",
			cfg.FrameRateN, cfg.FrameRateD, n, d), nil)
	default:
		set(c, "FrameRateD", &cfg.FrameRateD, den, ReasonExternalHeader)
	}
	c.locked["FrameRateN"] = true
	c.locked["FrameRateD"] = true
}

func (c *checker) adoptPPS(pps *h264.PPS) {
	cfg := c.cfg
	adopt(c, "PPSID", &cfg.PPSID, uint8(pps.ID)) //nolint:gosec // ue(v) range checked to 255
	adopt(c, "CAVLC", &cfg.CAVLC, params.Bool(!pps.EntropyCodingMode))
	adopt(c, "Transform8x8", &cfg.Transform8x8, params.Bool(pps.Transform8x8Mode))

	wp := params.WeightedPredDefault
	if pps.WeightedPred {
		wp = params.WeightedPredExplicit
	}
	adopt(c, "WeightedPred", &cfg.WeightedPred, wp)
	bipred := [...]params.WeightedPred{
		params.WeightedPredDefault, params.WeightedPredExplicit, params.WeightedPredImplicit,
	}
	if int(pps.WeightedBipredIdc) < len(bipred) {
		adopt(c, "WeightedBiPred", &cfg.WeightedBiPred, bipred[pps.WeightedBipredIdc])
	}
}

func alignUp(v, unit uint32) uint32 {
	return (v + unit - 1) / unit * unit
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return max(a, 1)
}
