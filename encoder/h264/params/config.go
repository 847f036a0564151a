// Package params holds the negotiable encode configuration, the hardware
// capability snapshot and the per-frame task record shared by the encoder packages.
package params

import (
	"slices"

	"github.com/ugparu/avchw/codec/h264"
	"github.com/ugparu/avchw/codec/h264/limits"
)

// Rect is a macroblock-addressable region in luma samples. Right and Bottom are exclusive.
type Rect struct {
	Left   uint32 `yaml:"left" json:"left"`
	Top    uint32 `yaml:"top" json:"top"`
	Right  uint32 `yaml:"right" json:"right"`
	Bottom uint32 `yaml:"bottom" json:"bottom"`
	// DeltaQP is a QP delta, an absolute QP or a priority depending on ROIMode.
	DeltaQP int16 `yaml:"deltaQP,omitempty" json:"deltaQP,omitempty"`
}

func (r Rect) Empty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// MovingRect is a destination rect copied from (SourceLeft, SourceTop) of the reference.
type MovingRect struct {
	Rect       `yaml:",inline"`
	SourceLeft uint32 `yaml:"sourceLeft" json:"sourceLeft"`
	SourceTop  uint32 `yaml:"sourceTop" json:"sourceTop"`
}

// VideoSignal is the video_signal_type part of the VUI.
type VideoSignal struct {
	Present                  TriState `yaml:"present" json:"present"`
	VideoFormat              uint8    `yaml:"videoFormat" json:"videoFormat"`
	VideoFullRange           TriState `yaml:"videoFullRange" json:"videoFullRange"`
	ColourDescriptionPresent TriState `yaml:"colourDescriptionPresent" json:"colourDescriptionPresent"`
	ColourPrimaries          uint8    `yaml:"colourPrimaries" json:"colourPrimaries"`
	TransferCharacteristics  uint8    `yaml:"transferCharacteristics" json:"transferCharacteristics"`
	MatrixCoefficients       uint8    `yaml:"matrixCoefficients" json:"matrixCoefficients"`
}

// Config is the complete set of negotiable encode parameters. Zero values mean
// "let the encoder decide". Canonicalization never mutates the caller's copy.
type Config struct {
	// Frame
	Width          uint32       `yaml:"width" json:"width"`
	Height         uint32       `yaml:"height" json:"height"`
	CropX          uint32       `yaml:"cropX" json:"cropX"`
	CropY          uint32       `yaml:"cropY" json:"cropY"`
	CropW          uint32       `yaml:"cropW" json:"cropW"`
	CropH          uint32       `yaml:"cropH" json:"cropH"`
	FrameRateN     uint32       `yaml:"frameRateN" json:"frameRateN"`
	FrameRateD     uint32       `yaml:"frameRateD" json:"frameRateD"`
	AspectRatioW   uint32       `yaml:"aspectRatioW" json:"aspectRatioW"`
	AspectRatioH   uint32       `yaml:"aspectRatioH" json:"aspectRatioH"`
	PicStruct      PicStruct    `yaml:"picStruct" json:"picStruct"`
	ChromaFormat   ChromaFormat `yaml:"chromaFormat" json:"chromaFormat"`
	BitDepthLuma   uint8        `yaml:"bitDepthLuma" json:"bitDepthLuma"`
	BitDepthChroma uint8        `yaml:"bitDepthChroma" json:"bitDepthChroma"`

	// Codec
	Profile       limits.Profile `yaml:"profile" json:"profile"`
	Level         limits.Level   `yaml:"level" json:"level"`
	TargetUsage   uint8          `yaml:"targetUsage" json:"targetUsage"`
	GopPicSize    uint32         `yaml:"gopPicSize" json:"gopPicSize"`
	GopRefDist    uint32         `yaml:"gopRefDist" json:"gopRefDist"`
	GopOptFlag    GopOptFlag     `yaml:"gopOptFlag" json:"gopOptFlag"`
	IdrInterval   uint32         `yaml:"idrInterval" json:"idrInterval"`
	NumRefFrame   uint32         `yaml:"numRefFrame" json:"numRefFrame"`
	NumSlice      uint32         `yaml:"numSlice" json:"numSlice"`
	NumSliceI     uint32         `yaml:"numSliceI" json:"numSliceI"`
	NumSliceP     uint32         `yaml:"numSliceP" json:"numSliceP"`
	NumSliceB     uint32         `yaml:"numSliceB" json:"numSliceB"`
	NumMbPerSlice uint32         `yaml:"numMbPerSlice" json:"numMbPerSlice"`
	MaxSliceSize  uint32         `yaml:"maxSliceSize" json:"maxSliceSize"`
	LowPower      TriState       `yaml:"lowPower" json:"lowPower"`
	EncodedOrder  bool           `yaml:"encodedOrder" json:"encodedOrder"`

	// Rate control
	RateControlMethod   RateControlMethod `yaml:"rateControlMethod" json:"rateControlMethod"`
	TargetKbps          uint32            `yaml:"targetKbps" json:"targetKbps"`
	MaxKbps             uint32            `yaml:"maxKbps" json:"maxKbps"`
	BufferSizeInKB      uint32            `yaml:"bufferSizeInKB" json:"bufferSizeInKB"`
	InitialDelayInKB    uint32            `yaml:"initialDelayInKB" json:"initialDelayInKB"`
	QPI                 uint8             `yaml:"qpi" json:"qpi"`
	QPP                 uint8             `yaml:"qpp" json:"qpp"`
	QPB                 uint8             `yaml:"qpb" json:"qpb"`
	Accuracy            uint32            `yaml:"accuracy" json:"accuracy"`
	Convergence         uint32            `yaml:"convergence" json:"convergence"`
	ICQQuality          uint32            `yaml:"icqQuality" json:"icqQuality"`
	QVBRQuality         uint32            `yaml:"qvbrQuality" json:"qvbrQuality"`
	LookAheadDepth      uint32            `yaml:"lookAheadDepth" json:"lookAheadDepth"`
	LookAheadDS         LookAheadDS       `yaml:"lookAheadDS" json:"lookAheadDS"`
	MBBRC               TriState          `yaml:"mbbrc" json:"mbbrc"`
	ExtBRC              TriState          `yaml:"extBRC" json:"extBRC"`
	LowDelayBRC         TriState          `yaml:"lowDelayBRC" json:"lowDelayBRC"`
	BitrateLimit        TriState          `yaml:"bitrateLimit" json:"bitrateLimit"`
	MaxFrameSize        uint32            `yaml:"maxFrameSize" json:"maxFrameSize"`
	MaxFrameSizeI       uint32            `yaml:"maxFrameSizeI" json:"maxFrameSizeI"`
	MaxFrameSizeP       uint32            `yaml:"maxFrameSizeP" json:"maxFrameSizeP"`
	MinQPI              uint8             `yaml:"minQPI" json:"minQPI"`
	MinQPP              uint8             `yaml:"minQPP" json:"minQPP"`
	MinQPB              uint8             `yaml:"minQPB" json:"minQPB"`
	MaxQPI              uint8             `yaml:"maxQPI" json:"maxQPI"`
	MaxQPP              uint8             `yaml:"maxQPP" json:"maxQPP"`
	MaxQPB              uint8             `yaml:"maxQPB" json:"maxQPB"`
	WinBRCSize          uint32            `yaml:"winBRCSize" json:"winBRCSize"`
	WinBRCMaxAvgKbps    uint32            `yaml:"winBRCMaxAvgKbps" json:"winBRCMaxAvgKbps"`
	NalHrdConformance   TriState          `yaml:"nalHrdConformance" json:"nalHrdConformance"`
	VuiNalHrdParameters TriState          `yaml:"vuiNalHrdParameters" json:"vuiNalHrdParameters"`
	VuiVclHrdParameters TriState          `yaml:"vuiVclHrdParameters" json:"vuiVclHrdParameters"`

	// Coding tools
	CAVLC                TriState     `yaml:"cavlc" json:"cavlc"`
	Trellis              Trellis      `yaml:"trellis" json:"trellis"`
	Transform8x8         TriState     `yaml:"transform8x8" json:"transform8x8"`
	WeightedPred         WeightedPred `yaml:"weightedPred" json:"weightedPred"`
	WeightedBiPred       WeightedPred `yaml:"weightedBiPred" json:"weightedBiPred"`
	DisableDeblockingIdc uint8        `yaml:"disableDeblockingIdc" json:"disableDeblockingIdc"`
	RateDistortionOpt    TriState     `yaml:"rateDistortionOpt" json:"rateDistortionOpt"`
	FramePicture         TriState     `yaml:"framePicture" json:"framePicture"`
	MaxDecFrameBuffering uint32       `yaml:"maxDecFrameBuffering" json:"maxDecFrameBuffering"`
	BRefType             BRefType     `yaml:"bRefType" json:"bRefType"`
	PRefType             PRefType     `yaml:"pRefType" json:"pRefType"`
	AdaptiveI            TriState     `yaml:"adaptiveI" json:"adaptiveI"`
	AdaptiveB            TriState     `yaml:"adaptiveB" json:"adaptiveB"`
	NumRefActiveP        uint32       `yaml:"numRefActiveP" json:"numRefActiveP"`
	NumRefActiveBL0      uint32       `yaml:"numRefActiveBL0" json:"numRefActiveBL0"`
	NumRefActiveBL1      uint32       `yaml:"numRefActiveBL1" json:"numRefActiveBL1"`
	IntRefType           IntRefType   `yaml:"intRefType" json:"intRefType"`
	IntRefCycleSize      uint32       `yaml:"intRefCycleSize" json:"intRefCycleSize"`
	IntRefCycleDist      uint32       `yaml:"intRefCycleDist" json:"intRefCycleDist"`
	IntRefQPDelta        int16        `yaml:"intRefQPDelta" json:"intRefQPDelta"`
	SkipFrame            SkipFrame    `yaml:"skipFrame" json:"skipFrame"`
	EnableMBQP           TriState     `yaml:"enableMBQP" json:"enableMBQP"`
	EnableMBForceIntra   TriState     `yaml:"enableMBForceIntra" json:"enableMBForceIntra"`
	MBDisableSkipMap     TriState     `yaml:"mbDisableSkipMap" json:"mbDisableSkipMap"`

	// ScalingMatrix, when set, is signalled in the SPS as the sequence scaling matrix.
	ScalingMatrix *h264.ScalingMatrix `yaml:"scalingMatrix,omitempty" json:"scalingMatrix,omitempty"`

	// Headers
	AUDelimiter            TriState    `yaml:"auDelimiter" json:"auDelimiter"`
	PicTimingSEI           TriState    `yaml:"picTimingSEI" json:"picTimingSEI"`
	BufferingPeriodSEI     TriState    `yaml:"bufferingPeriodSEI" json:"bufferingPeriodSEI"`
	RecoveryPointSEI       TriState    `yaml:"recoveryPointSEI" json:"recoveryPointSEI"`
	RepeatPPS              TriState    `yaml:"repeatPPS" json:"repeatPPS"`
	DisableVUI             TriState    `yaml:"disableVUI" json:"disableVUI"`
	AspectRatioInfoPresent TriState    `yaml:"aspectRatioInfoPresent" json:"aspectRatioInfoPresent"`
	OverscanInfoPresent    TriState    `yaml:"overscanInfoPresent" json:"overscanInfoPresent"`
	OverscanAppropriate    TriState    `yaml:"overscanAppropriate" json:"overscanAppropriate"`
	TimingInfoPresent      TriState    `yaml:"timingInfoPresent" json:"timingInfoPresent"`
	FixedFrameRate         TriState    `yaml:"fixedFrameRate" json:"fixedFrameRate"`
	LowDelayHrd            TriState    `yaml:"lowDelayHrd" json:"lowDelayHrd"`
	BitstreamRestriction   TriState    `yaml:"bitstreamRestriction" json:"bitstreamRestriction"`
	VideoSignal            VideoSignal `yaml:"videoSignal" json:"videoSignal"`
	SPSID                  uint8       `yaml:"spsID" json:"spsID"`
	PPSID                  uint8       `yaml:"ppsID" json:"ppsID"`

	// Regions and layers
	ROIMode        ROIMode      `yaml:"roiMode" json:"roiMode"`
	ROI            []Rect       `yaml:"roi,omitempty" json:"roi,omitempty"`
	DirtyRects     []Rect       `yaml:"dirtyRects,omitempty" json:"dirtyRects,omitempty"`
	MovingRects    []MovingRect `yaml:"movingRects,omitempty" json:"movingRects,omitempty"`
	TemporalLayers []uint32     `yaml:"temporalLayers,omitempty" json:"temporalLayers,omitempty"`

	// SPSBuffer and PPSBuffer are caller headers to be reproduced verbatim.
	SPSBuffer []byte `yaml:"spsBuffer,omitempty" json:"spsBuffer,omitempty"`
	PPSBuffer []byte `yaml:"ppsBuffer,omitempty" json:"ppsBuffer,omitempty"`
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.ROI = slices.Clone(c.ROI)
	out.DirtyRects = slices.Clone(c.DirtyRects)
	out.MovingRects = slices.Clone(c.MovingRects)
	out.TemporalLayers = slices.Clone(c.TemporalLayers)
	out.SPSBuffer = slices.Clone(c.SPSBuffer)
	out.PPSBuffer = slices.Clone(c.PPSBuffer)
	if c.ScalingMatrix != nil {
		m := *c.ScalingMatrix
		out.ScalingMatrix = &m
	}
	return out
}

// WidthInMbs and HeightInMbs describe the frame MB grid.
func (c *Config) WidthInMbs() uint32 { return (c.Width + 15) / 16 }

func (c *Config) HeightInMbs() uint32 { return (c.Height + 15) / 16 }

// PicHeightInMbs is the MB height of one coded picture (a field when interlaced).
func (c *Config) PicHeightInMbs() uint32 {
	if c.PicStruct.Interlaced() {
		return (c.Height + 31) / 32
	}
	return c.HeightInMbs()
}

// FrameSizeInMbs is the number of MBs in a frame.
func (c *Config) FrameSizeInMbs() uint32 { return c.WidthInMbs() * c.HeightInMbs() }

// CropWidth and CropHeight fall back to the aligned size when no crop is set.
func (c *Config) CropWidth() uint32 {
	if c.CropW == 0 {
		return c.Width
	}
	return c.CropW
}

func (c *Config) CropHeight() uint32 {
	if c.CropH == 0 {
		return c.Height
	}
	return c.CropH
}

// HasHRD reports whether HRD parameters are signalled for the current rate control.
func (c *Config) HasHRD() bool {
	return c.VuiNalHrdParameters.IsOn() || c.VuiVclHrdParameters.IsOn()
}

// HasExternalHeaders reports whether the caller committed to verbatim SPS/PPS.
func (c *Config) HasExternalHeaders() bool {
	return len(c.SPSBuffer) > 0
}

// Demand projects the config onto the level-limit inputs.
func (c *Config) Demand() limits.Demand {
	d := limits.Demand{
		Profile:     c.Profile,
		Width:       c.Width,
		Height:      c.Height,
		FrameRateN:  c.FrameRateN,
		FrameRateD:  c.FrameRateD,
		NumRefFrame: c.NumRefFrame,
	}
	if c.RateControlMethod.IsBitrateDriven() {
		d.Kbps = max(c.TargetKbps, c.MaxKbps)
		d.BufferKB = c.BufferSizeInKB
	}
	return d
}

// NumSliceFor returns the slice count requested for a frame type, falling back to NumSlice.
func (c *Config) NumSliceFor(t h264.SliceType) uint32 {
	var n uint32
	switch t {
	case h264.SliceI:
		n = c.NumSliceI
	case h264.SliceP:
		n = c.NumSliceP
	case h264.SliceB:
		n = c.NumSliceB
	}
	if n == 0 {
		return c.NumSlice
	}
	return n
}
