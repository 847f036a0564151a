package h264

// NAL unit types (Table 7-1) used by the header codec.
const (
	NaluNonIDR       = 1
	NaluCodedIDR     = 5
	NaluSEI          = 6
	NaluSPS          = 7
	NaluPPS          = 8
	NaluAUD          = 9
	NaluEndOfSeq     = 10
	NaluEndOfStream  = 11
	NaluFiller       = 12
	NaluSPSExt       = 13
	NaluPrefix       = 14
	NaluSubsetSPS    = 15
	NaluSliceExt     = 20
	naluTypeReserved = 24
)

// SliceType is slice_type modulo 5.
type SliceType uint8

const (
	SliceP  SliceType = 0
	SliceB  SliceType = 1
	SliceI  SliceType = 2
	SliceSP SliceType = 3
	SliceSI SliceType = 4
)

func (t SliceType) String() string {
	switch t {
	case SliceP:
		return "P"
	case SliceB:
		return "B"
	case SliceI:
		return "I"
	case SliceSP:
		return "SP"
	case SliceSI:
		return "SI"
	}
	return "?"
}

func (t SliceType) IsIntra() bool { return t == SliceI || t == SliceSI }

// Primary picture types of access_unit_delimiter_rbsp (Table 7-5).
const (
	PrimaryPicI   = 0
	PrimaryPicIP  = 1
	PrimaryPicIPB = 2
)

// Common magic numbers used in the package
const (
	// Bit masks
	maskLengthSizeMinusOne    = 0x03
	maskSPSCount              = 0x1f
	maskLengthSizeMinusOneInv = 0xfc
	maskSPSCountInv           = 0xe0
	maskNaluType              = 0x1f
	maskForbiddenZero         = 0x80

	// Scaling lists
	defaultScaleValue    = 8
	maxScaleValue        = 256
	scalingListSizeSmall = 16
	scalingListSizeLarge = 64
	numScalingLists4x4   = 6
	numScalingLists8x8   = 2

	// Aspect ratio values
	aspectRatioExtended = 255

	// Macroblock size
	mbSize = 16

	// Length field size in AVCDecoderConfRecord
	lengthFieldSize = 2
	// NAL header plus profile_idc, constraint flags and level_idc
	minSPSLength    = 4

	// SPS/PPS limits (7.4.2.1.1, 7.4.2.2)
	maxSPSID           = 31
	maxPPSID           = 255
	maxLog2Minus4      = 12
	maxRefFrames       = 16
	maxPocCycle        = 255
	maxRefIdxActive    = 31
	maxChromaQpOffset  = 12
	maxDeltaScale      = 127
	maxDeblockIdc      = 2
	maxHrdBitRateScale = 15
	maxCabacInitIdc    = 2
	maxSliceQP         = 51
	minSliceQP8bit     = 0
)

// FrameInfo is what a stream's SPS says about its pictures.
type FrameInfo struct {
	MbWidth  uint // Width of macroblocks in the SPS.
	MbHeight uint // Height of frame macroblocks in the SPS.

	CropLeft   uint // Left cropping value for the SPS.
	CropRight  uint // Right cropping value for the SPS.
	CropTop    uint // Top cropping value for the SPS.
	CropBottom uint // Bottom cropping value for the SPS.

	Width  uint // Width of the video frame after cropping.
	Height uint // Height of the video frame after cropping.
	FPS    uint // Frames per second, when timing info is present.
}
