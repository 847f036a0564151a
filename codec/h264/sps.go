//nolint:mnd // field widths below are the H.264 syntax widths
package h264

import (
	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/utils/bits"
)

// HRD is hrd_parameters() restricted to a single CPB specification.
type HRD struct {
	BitRateScale                       uint8
	CpbSizeScale                       uint8
	BitRateValueMinus1                 uint32
	CpbSizeValueMinus1                 uint32
	CbrFlag                            bool
	InitialCpbRemovalDelayLengthMinus1 uint8
	CpbRemovalDelayLengthMinus1        uint8
	DpbOutputDelayLengthMinus1         uint8
	TimeOffsetLength                   uint8
}

// BitRate returns the CPB bit rate in bits/s (E-37).
func (h *HRD) BitRate() uint64 {
	return (uint64(h.BitRateValueMinus1) + 1) << (6 + h.BitRateScale)
}

// CpbSize returns the CPB size in bits (E-38).
func (h *HRD) CpbSize() uint64 {
	return (uint64(h.CpbSizeValueMinus1) + 1) << (4 + h.CpbSizeScale)
}

// SetBitRate picks the smallest scale representing bitsPerSec without loss where possible.
func (h *HRD) SetBitRate(bitsPerSec uint64) {
	h.BitRateScale, h.BitRateValueMinus1 = scaledValue(bitsPerSec, 6)
}

// SetCpbSize is SetBitRate for the CPB size in bits.
func (h *HRD) SetCpbSize(sizeBits uint64) {
	h.CpbSizeScale, h.CpbSizeValueMinus1 = scaledValue(sizeBits, 4)
}

func scaledValue(v uint64, base uint8) (scale uint8, minus1 uint32) {
	v = max(v, 1)
	for scale < maxHrdBitRateScale && v%(1<<(base+scale+1)) == 0 {
		scale++
	}
	for scale < maxHrdBitRateScale && ceilShift(v, base+scale) > 1<<32-1 {
		scale++
	}
	return scale, uint32(ceilShift(v, base+scale) - 1) //nolint:gosec
}

func ceilShift(v uint64, s uint8) uint64 {
	return (v + 1<<s - 1) >> s
}

// VUI is vui_parameters().
type VUI struct {
	AspectRatioInfoPresent bool
	AspectRatioIdc         uint8
	SarWidth               uint16
	SarHeight              uint16

	OverscanInfoPresent bool
	OverscanAppropriate bool

	VideoSignalTypePresent   bool
	VideoFormat              uint8
	VideoFullRange           bool
	ColourDescriptionPresent bool
	ColourPrimaries          uint8
	TransferCharacteristics  uint8
	MatrixCoefficients       uint8

	ChromaLocInfoPresent           bool
	ChromaSampleLocTypeTopField    uint32
	ChromaSampleLocTypeBottomField uint32

	TimingInfoPresent bool
	NumUnitsInTick    uint32
	TimeScale         uint32
	FixedFrameRate    bool

	NalHrdPresent    bool
	NalHrd           HRD
	VclHrdPresent    bool
	VclHrd           HRD
	LowDelayHrd      bool
	PicStructPresent bool

	BitstreamRestriction           bool
	MotionVectorsOverPicBoundaries bool
	MaxBytesPerPicDenom            uint32
	MaxBitsPerMbDenom              uint32
	Log2MaxMvLengthHorizontal      uint32
	Log2MaxMvLengthVertical        uint32
	MaxNumReorderFrames            uint32
	MaxDecFrameBuffering           uint32
}

// Hrd returns the HRD used for SEI delay lengths: NAL if present, else VCL.
func (v *VUI) Hrd() (*HRD, bool) {
	switch {
	case v.NalHrdPresent:
		return &v.NalHrd, true
	case v.VclHrdPresent:
		return &v.VclHrd, true
	}
	return nil, false
}

// SPS is seq_parameter_set_rbsp() for Baseline, Main and High 8-bit 4:2:0 streams.
type SPS struct {
	ProfileIdc      uint8
	ConstraintFlags uint8 // constraint_set0..5_flag in bits 7..2
	LevelIdc        uint8
	ID              uint32

	ChromaFormatIdc      uint32
	BitDepthLumaMinus8   uint32
	BitDepthChromaMinus8 uint32
	ScalingMatrixPresent bool
	ScalingMatrix        ScalingMatrix

	Log2MaxFrameNumMinus4       uint32
	PicOrderCntType             uint32
	Log2MaxPicOrderCntLsbMinus4 uint32
	DeltaPicOrderAlwaysZero     bool
	OffsetForNonRefPic          int32
	OffsetForTopToBottomField   int32
	OffsetForRefFrame           []int32

	MaxNumRefFrames           uint32
	GapsInFrameNumAllowed     bool
	PicWidthInMbsMinus1       uint32
	PicHeightInMapUnitsMinus1 uint32
	FrameMbsOnly              bool
	MbAdaptiveFrameField      bool
	Direct8x8Inference        bool

	FrameCropping        bool
	FrameCropLeft        uint32
	FrameCropRight       uint32
	FrameCropTop         uint32
	FrameCropBottom      uint32
	VUIParametersPresent bool
	VUI                  VUI
}

// Profile returns profile_idc with the constraint flags that select a profile variant.
func (s *SPS) Profile() limits.Profile {
	return limits.ProfileFromSPS(s.ProfileIdc, s.ConstraintFlags)
}

// Level resolves level_idc, including the constraint_set3 spelling of level 1b.
func (s *SPS) Level() limits.Level {
	return limits.LevelFromIDC(s.LevelIdc, s.ConstraintFlags&0x10 != 0, s.Profile())
}

// hasChromaInfo reports profiles that carry chroma_format_idc and bit depths.
func hasChromaInfo(profileIdc uint8) bool {
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		return true
	}
	return false
}

func (s *SPS) WidthInMbs() uint32 { return s.PicWidthInMbsMinus1 + 1 }

// FrameHeightInMbs is FrameHeightInMbs (7-18).
func (s *SPS) FrameHeightInMbs() uint32 {
	h := s.PicHeightInMapUnitsMinus1 + 1
	if !s.FrameMbsOnly {
		h *= 2
	}
	return h
}

func (s *SPS) MaxFrameNum() uint32 { return 1 << (s.Log2MaxFrameNumMinus4 + 4) }

// Info summarises frame geometry the way callers display it.
func (s *SPS) Info() FrameInfo {
	fi := FrameInfo{MbWidth: uint(s.WidthInMbs()), MbHeight: uint(s.FrameHeightInMbs())}
	cropUnitY := uint(2)
	if s.FrameMbsOnly {
		cropUnitY = 1
	}
	if s.FrameCropping {
		fi.CropLeft = uint(s.FrameCropLeft) * 2
		fi.CropRight = uint(s.FrameCropRight) * 2
		fi.CropTop = uint(s.FrameCropTop) * 2 * cropUnitY
		fi.CropBottom = uint(s.FrameCropBottom) * 2 * cropUnitY
	}
	fi.Width = fi.MbWidth*mbSize - fi.CropLeft - fi.CropRight
	fi.Height = fi.MbHeight*mbSize - fi.CropTop - fi.CropBottom
	if s.VUI.TimingInfoPresent && s.VUI.NumUnitsInTick != 0 {
		fi.FPS = uint(s.VUI.TimeScale / (2 * s.VUI.NumUnitsInTick))
	}
	return fi
}

// ParseSPS decodes an escaped SPS NAL unit (header byte included, no start code).
//
//nolint:gocyclo,cyclop,funlen // mirrors the seq_parameter_set_rbsp syntax table
func ParseSPS(nalu []byte) (*SPS, error) {
	r, _, err := newSyntaxReader(nalu, NaluSPS, "sps")
	if err != nil {
		return nil, err
	}
	s := &SPS{ChromaFormatIdc: 1}
	s.ProfileIdc = uint8(r.u(8, "profile_idc"))               //nolint:gosec
	s.ConstraintFlags = uint8(r.u(8, "constraint_set_flags")) //nolint:gosec
	s.LevelIdc = uint8(r.u(8, "level_idc"))                   //nolint:gosec
	s.ID = r.ueMax("seq_parameter_set_id", maxSPSID)
	if r.err != nil {
		return nil, r.err
	}
	switch limits.Profile(s.ProfileIdc) {
	case limits.ProfileBaseline, limits.ProfileMain, limits.ProfileHigh:
	default:
		r.unsupported("profile_idc", int64(s.ProfileIdc))
		return nil, r.err
	}

	if hasChromaInfo(s.ProfileIdc) {
		s.ChromaFormatIdc = r.ueMax("chroma_format_idc", 3)
		if r.err == nil && s.ChromaFormatIdc != 1 {
			r.unsupported("chroma_format_idc", int64(s.ChromaFormatIdc))
		}
		s.BitDepthLumaMinus8 = r.ueMax("bit_depth_luma_minus8", 6)
		if r.err == nil && s.BitDepthLumaMinus8 != 0 {
			r.unsupported("bit_depth_luma_minus8", int64(s.BitDepthLumaMinus8))
		}
		s.BitDepthChromaMinus8 = r.ueMax("bit_depth_chroma_minus8", 6)
		if r.err == nil && s.BitDepthChromaMinus8 != 0 {
			r.unsupported("bit_depth_chroma_minus8", int64(s.BitDepthChromaMinus8))
		}
		if r.flag("qpprime_y_zero_transform_bypass_flag") {
			r.unsupported("qpprime_y_zero_transform_bypass_flag", 1)
		}
		s.ScalingMatrixPresent = r.flag("seq_scaling_matrix_present_flag")
		if s.ScalingMatrixPresent {
			r.scalingMatrix(&s.ScalingMatrix, true)
		}
	}

	s.Log2MaxFrameNumMinus4 = r.ueMax("log2_max_frame_num_minus4", maxLog2Minus4)
	s.PicOrderCntType = r.ueMax("pic_order_cnt_type", 2)
	switch s.PicOrderCntType {
	case 0:
		s.Log2MaxPicOrderCntLsbMinus4 = r.ueMax("log2_max_pic_order_cnt_lsb_minus4", maxLog2Minus4)
	case 1:
		s.DeltaPicOrderAlwaysZero = r.flag("delta_pic_order_always_zero_flag")
		s.OffsetForNonRefPic = r.se("offset_for_non_ref_pic", -1<<31+1, 1<<31-1)
		s.OffsetForTopToBottomField = r.se("offset_for_top_to_bottom_field", -1<<31+1, 1<<31-1)
		n := r.ueMax("num_ref_frames_in_pic_order_cnt_cycle", maxPocCycle)
		s.OffsetForRefFrame = make([]int32, n)
		for i := range s.OffsetForRefFrame {
			s.OffsetForRefFrame[i] = r.se("offset_for_ref_frame", -1<<31+1, 1<<31-1)
		}
	}

	s.MaxNumRefFrames = r.ueMax("max_num_ref_frames", maxRefFrames)
	s.GapsInFrameNumAllowed = r.flag("gaps_in_frame_num_value_allowed_flag")
	s.PicWidthInMbsMinus1 = r.ueMax("pic_width_in_mbs_minus1", 1<<16)
	s.PicHeightInMapUnitsMinus1 = r.ueMax("pic_height_in_map_units_minus1", 1<<16)
	s.FrameMbsOnly = r.flag("frame_mbs_only_flag")
	if !s.FrameMbsOnly {
		s.MbAdaptiveFrameField = r.flag("mb_adaptive_frame_field_flag")
	}
	s.Direct8x8Inference = r.flag("direct_8x8_inference_flag")
	r.check(s.FrameMbsOnly || s.Direct8x8Inference,
		"direct_8x8_inference_flag", 0, "required when frame_mbs_only_flag is 0")

	s.FrameCropping = r.flag("frame_cropping_flag")
	if s.FrameCropping {
		s.FrameCropLeft = r.ue("frame_crop_left_offset")
		s.FrameCropRight = r.ue("frame_crop_right_offset")
		s.FrameCropTop = r.ue("frame_crop_top_offset")
		s.FrameCropBottom = r.ue("frame_crop_bottom_offset")
		if r.err == nil {
			cropUnitY := uint32(2)
			if !s.FrameMbsOnly {
				cropUnitY = 4
			}
			// ue(v) reads up to 2^32-2, so the sums are taken in 64 bits.
			r.check(2*(uint64(s.FrameCropLeft)+uint64(s.FrameCropRight)) < uint64(s.WidthInMbs())*mbSize,
				"frame_crop_right_offset", int64(s.FrameCropRight), "crop exceeds picture width")
			r.check(uint64(cropUnitY)*(uint64(s.FrameCropTop)+uint64(s.FrameCropBottom)) < uint64(s.FrameHeightInMbs())*mbSize,
				"frame_crop_bottom_offset", int64(s.FrameCropBottom), "crop exceeds picture height")
		}
	}

	s.VUIParametersPresent = r.flag("vui_parameters_present_flag")
	if s.VUIParametersPresent {
		r.vui(&s.VUI, s.MaxNumRefFrames)
	}
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

//nolint:gocyclo,cyclop // vui_parameters syntax table
func (r *syntaxReader) vui(v *VUI, maxNumRefFrames uint32) {
	v.AspectRatioInfoPresent = r.flag("aspect_ratio_info_present_flag")
	if v.AspectRatioInfoPresent {
		v.AspectRatioIdc = uint8(r.u(8, "aspect_ratio_idc")) //nolint:gosec
		if v.AspectRatioIdc == aspectRatioExtended {
			v.SarWidth = uint16(r.u(16, "sar_width"))   //nolint:gosec
			v.SarHeight = uint16(r.u(16, "sar_height")) //nolint:gosec
		}
	}
	v.OverscanInfoPresent = r.flag("overscan_info_present_flag")
	if v.OverscanInfoPresent {
		v.OverscanAppropriate = r.flag("overscan_appropriate_flag")
	}
	v.VideoSignalTypePresent = r.flag("video_signal_type_present_flag")
	if v.VideoSignalTypePresent {
		v.VideoFormat = uint8(r.u(3, "video_format")) //nolint:gosec
		v.VideoFullRange = r.flag("video_full_range_flag")
		v.ColourDescriptionPresent = r.flag("colour_description_present_flag")
		if v.ColourDescriptionPresent {
			v.ColourPrimaries = uint8(r.u(8, "colour_primaries"))                 //nolint:gosec
			v.TransferCharacteristics = uint8(r.u(8, "transfer_characteristics")) //nolint:gosec
			v.MatrixCoefficients = uint8(r.u(8, "matrix_coefficients"))           //nolint:gosec
		}
	}
	v.ChromaLocInfoPresent = r.flag("chroma_loc_info_present_flag")
	if v.ChromaLocInfoPresent {
		v.ChromaSampleLocTypeTopField = r.ueMax("chroma_sample_loc_type_top_field", 5)
		v.ChromaSampleLocTypeBottomField = r.ueMax("chroma_sample_loc_type_bottom_field", 5)
	}
	v.TimingInfoPresent = r.flag("timing_info_present_flag")
	if v.TimingInfoPresent {
		v.NumUnitsInTick = r.u(32, "num_units_in_tick")
		v.TimeScale = r.u(32, "time_scale")
		v.FixedFrameRate = r.flag("fixed_frame_rate_flag")
		r.check(v.NumUnitsInTick != 0, "num_units_in_tick", 0, "must be positive")
		r.check(v.TimeScale != 0, "time_scale", 0, "must be positive")
	}
	v.NalHrdPresent = r.flag("nal_hrd_parameters_present_flag")
	if v.NalHrdPresent {
		r.hrd(&v.NalHrd)
	}
	v.VclHrdPresent = r.flag("vcl_hrd_parameters_present_flag")
	if v.VclHrdPresent {
		r.hrd(&v.VclHrd)
	}
	if v.NalHrdPresent || v.VclHrdPresent {
		v.LowDelayHrd = r.flag("low_delay_hrd_flag")
	}
	v.PicStructPresent = r.flag("pic_struct_present_flag")
	v.BitstreamRestriction = r.flag("bitstream_restriction_flag")
	if v.BitstreamRestriction {
		v.MotionVectorsOverPicBoundaries = r.flag("motion_vectors_over_pic_boundaries_flag")
		v.MaxBytesPerPicDenom = r.ueMax("max_bytes_per_pic_denom", 16)
		v.MaxBitsPerMbDenom = r.ueMax("max_bits_per_mb_denom", 16)
		v.Log2MaxMvLengthHorizontal = r.ueMax("log2_max_mv_length_horizontal", 16)
		v.Log2MaxMvLengthVertical = r.ueMax("log2_max_mv_length_vertical", 16)
		v.MaxNumReorderFrames = r.ueMax("max_num_reorder_frames", maxRefFrames)
		v.MaxDecFrameBuffering = r.ueMax("max_dec_frame_buffering", maxRefFrames)
		r.check(v.MaxNumReorderFrames <= v.MaxDecFrameBuffering, "max_num_reorder_frames",
			int64(v.MaxNumReorderFrames), "exceeds max_dec_frame_buffering")
		r.check(v.MaxDecFrameBuffering >= maxNumRefFrames, "max_dec_frame_buffering",
			int64(v.MaxDecFrameBuffering), "below max_num_ref_frames")
	}
}

func (r *syntaxReader) hrd(h *HRD) {
	cpbCnt := r.ueMax("cpb_cnt_minus1", 31)
	if r.err == nil && cpbCnt != 0 {
		r.unsupported("cpb_cnt_minus1", int64(cpbCnt))
		return
	}
	h.BitRateScale = uint8(r.u(4, "bit_rate_scale")) //nolint:gosec
	h.CpbSizeScale = uint8(r.u(4, "cpb_size_scale")) //nolint:gosec
	h.BitRateValueMinus1 = r.ue("bit_rate_value_minus1")
	h.CpbSizeValueMinus1 = r.ue("cpb_size_value_minus1")
	h.CbrFlag = r.flag("cbr_flag")
	h.InitialCpbRemovalDelayLengthMinus1 = uint8(r.u(5, "initial_cpb_removal_delay_length_minus1")) //nolint:gosec
	h.CpbRemovalDelayLengthMinus1 = uint8(r.u(5, "cpb_removal_delay_length_minus1"))               //nolint:gosec
	h.DpbOutputDelayLengthMinus1 = uint8(r.u(5, "dpb_output_delay_length_minus1"))                 //nolint:gosec
	h.TimeOffsetLength = uint8(r.u(5, "time_offset_length"))                                       //nolint:gosec
}

// maxSPSBytes bounds an SPS with a full scaling matrix, VUI and HRD.
const maxSPSBytes = 1024

// Marshal writes the SPS RBSP into a new NAL unit.
func (s *SPS) Marshal(escape bool) NALU {
	w := newNALUWriter(maxSPSBytes, escape, true, 3, NaluSPS)
	s.write(w)
	w.WriteTrailingBits()
	return finishNALU(w)
}

//nolint:gocyclo,cyclop // seq_parameter_set_rbsp syntax table
func (s *SPS) write(w *bits.Writer) {
	w.WriteBits(uint(s.ProfileIdc), 8)
	w.WriteBits(uint(s.ConstraintFlags), 8)
	w.WriteBits(uint(s.LevelIdc), 8)
	w.WriteExponentialGolombCode(uint(s.ID))
	if hasChromaInfo(s.ProfileIdc) {
		w.WriteExponentialGolombCode(uint(s.ChromaFormatIdc))
		w.WriteExponentialGolombCode(uint(s.BitDepthLumaMinus8))
		w.WriteExponentialGolombCode(uint(s.BitDepthChromaMinus8))
		w.WriteFlag(false) // qpprime_y_zero_transform_bypass_flag
		w.WriteFlag(s.ScalingMatrixPresent)
		if s.ScalingMatrixPresent {
			writeScalingMatrix(w, &s.ScalingMatrix, true)
		}
	}
	w.WriteExponentialGolombCode(uint(s.Log2MaxFrameNumMinus4))
	w.WriteExponentialGolombCode(uint(s.PicOrderCntType))
	switch s.PicOrderCntType {
	case 0:
		w.WriteExponentialGolombCode(uint(s.Log2MaxPicOrderCntLsbMinus4))
	case 1:
		w.WriteFlag(s.DeltaPicOrderAlwaysZero)
		w.WriteSE(int(s.OffsetForNonRefPic))
		w.WriteSE(int(s.OffsetForTopToBottomField))
		w.WriteExponentialGolombCode(uint(len(s.OffsetForRefFrame)))
		for _, o := range s.OffsetForRefFrame {
			w.WriteSE(int(o))
		}
	}
	w.WriteExponentialGolombCode(uint(s.MaxNumRefFrames))
	w.WriteFlag(s.GapsInFrameNumAllowed)
	w.WriteExponentialGolombCode(uint(s.PicWidthInMbsMinus1))
	w.WriteExponentialGolombCode(uint(s.PicHeightInMapUnitsMinus1))
	w.WriteFlag(s.FrameMbsOnly)
	if !s.FrameMbsOnly {
		w.WriteFlag(s.MbAdaptiveFrameField)
	}
	w.WriteFlag(s.Direct8x8Inference)
	w.WriteFlag(s.FrameCropping)
	if s.FrameCropping {
		w.WriteExponentialGolombCode(uint(s.FrameCropLeft))
		w.WriteExponentialGolombCode(uint(s.FrameCropRight))
		w.WriteExponentialGolombCode(uint(s.FrameCropTop))
		w.WriteExponentialGolombCode(uint(s.FrameCropBottom))
	}
	w.WriteFlag(s.VUIParametersPresent)
	if s.VUIParametersPresent {
		s.VUI.write(w)
	}
}

func (v *VUI) write(w *bits.Writer) {
	w.WriteFlag(v.AspectRatioInfoPresent)
	if v.AspectRatioInfoPresent {
		w.WriteBits(uint(v.AspectRatioIdc), 8)
		if v.AspectRatioIdc == aspectRatioExtended {
			w.WriteBits(uint(v.SarWidth), 16)
			w.WriteBits(uint(v.SarHeight), 16)
		}
	}
	w.WriteFlag(v.OverscanInfoPresent)
	if v.OverscanInfoPresent {
		w.WriteFlag(v.OverscanAppropriate)
	}
	w.WriteFlag(v.VideoSignalTypePresent)
	if v.VideoSignalTypePresent {
		w.WriteBits(uint(v.VideoFormat), 3)
		w.WriteFlag(v.VideoFullRange)
		w.WriteFlag(v.ColourDescriptionPresent)
		if v.ColourDescriptionPresent {
			w.WriteBits(uint(v.ColourPrimaries), 8)
			w.WriteBits(uint(v.TransferCharacteristics), 8)
			w.WriteBits(uint(v.MatrixCoefficients), 8)
		}
	}
	w.WriteFlag(v.ChromaLocInfoPresent)
	if v.ChromaLocInfoPresent {
		w.WriteExponentialGolombCode(uint(v.ChromaSampleLocTypeTopField))
		w.WriteExponentialGolombCode(uint(v.ChromaSampleLocTypeBottomField))
	}
	w.WriteFlag(v.TimingInfoPresent)
	if v.TimingInfoPresent {
		w.WriteBits(uint(v.NumUnitsInTick), 32)
		w.WriteBits(uint(v.TimeScale), 32)
		w.WriteFlag(v.FixedFrameRate)
	}
	w.WriteFlag(v.NalHrdPresent)
	if v.NalHrdPresent {
		v.NalHrd.write(w)
	}
	w.WriteFlag(v.VclHrdPresent)
	if v.VclHrdPresent {
		v.VclHrd.write(w)
	}
	if v.NalHrdPresent || v.VclHrdPresent {
		w.WriteFlag(v.LowDelayHrd)
	}
	w.WriteFlag(v.PicStructPresent)
	w.WriteFlag(v.BitstreamRestriction)
	if v.BitstreamRestriction {
		w.WriteFlag(v.MotionVectorsOverPicBoundaries)
		w.WriteExponentialGolombCode(uint(v.MaxBytesPerPicDenom))
		w.WriteExponentialGolombCode(uint(v.MaxBitsPerMbDenom))
		w.WriteExponentialGolombCode(uint(v.Log2MaxMvLengthHorizontal))
		w.WriteExponentialGolombCode(uint(v.Log2MaxMvLengthVertical))
		w.WriteExponentialGolombCode(uint(v.MaxNumReorderFrames))
		w.WriteExponentialGolombCode(uint(v.MaxDecFrameBuffering))
	}
}

func (h *HRD) write(w *bits.Writer) {
	w.WriteExponentialGolombCode(0) // cpb_cnt_minus1
	w.WriteBits(uint(h.BitRateScale), 4)
	w.WriteBits(uint(h.CpbSizeScale), 4)
	w.WriteExponentialGolombCode(uint(h.BitRateValueMinus1))
	w.WriteExponentialGolombCode(uint(h.CpbSizeValueMinus1))
	w.WriteFlag(h.CbrFlag)
	w.WriteBits(uint(h.InitialCpbRemovalDelayLengthMinus1), 5)
	w.WriteBits(uint(h.CpbRemovalDelayLengthMinus1), 5)
	w.WriteBits(uint(h.DpbOutputDelayLengthMinus1), 5)
	w.WriteBits(uint(h.TimeOffsetLength), 5)
}
