package h264

import (
	"math/bits"

	"github.com/pkg/errors"
	"github.com/ugparu/avchw/codec/h264"
	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/encoder/h264/ratecontrol"
	"github.com/ugparu/avchw/encoder/h264/slicediv"
	"github.com/ugparu/avchw/utils/logger"
)

const (
	minLog2FrameNum = 4
	maxLog2FrameNum = 16
	// 24-bit HRD delays, the width most decoders and muxers expect.
	hrdDelayLengthMinus1 = 23
	hrdTimeOffsetLength  = 24
	log2MaxMvLengthHoriz = 13 // [-2048, 2047.75] luma samples in quarter units
	quarterSamples       = 4
	bottomFieldPocDelta  = 1
	nalRefIdcIDR         = 3
	nalRefIdcRef         = 2
)

var startCode = []byte{0, 0, 0, 1}

// ceilLog2 returns the number of bits needed to index v values.
func ceilLog2(v uint32) uint32 {
	if v <= 1 {
		return 0
	}
	return uint32(bits.Len32(v - 1)) //nolint:gosec
}

// BuildSPS derives the sequence parameter set of a canonical configuration.
//
//nolint:funlen // one assignment per syntax element
func BuildSPS(cfg *params.Config) *h264.SPS {
	profile := cfg.Profile
	idc, cs3 := cfg.Level.IDC(profile)
	s := &h264.SPS{
		ProfileIdc:      profile.IDC(),
		ConstraintFlags: profile.ConstraintFlags(),
		LevelIdc:        idc,
		ID:              uint32(cfg.SPSID),
		ChromaFormatIdc: cfg.ChromaFormat.IDC(),
		MaxNumRefFrames: cfg.NumRefFrame,
	}
	if cs3 {
		s.ConstraintFlags |= 0x10
	}
	if cfg.BitDepthLuma > bitDepth8 {
		s.BitDepthLumaMinus8 = uint32(cfg.BitDepthLuma - bitDepth8)
	}
	if cfg.BitDepthChroma > bitDepth8 {
		s.BitDepthChromaMinus8 = uint32(cfg.BitDepthChroma - bitDepth8)
	}
	if cfg.ScalingMatrix != nil {
		s.ScalingMatrixPresent = true
		s.ScalingMatrix = *cfg.ScalingMatrix
	}

	frameNumBits := min(max(ceilLog2(cfg.GopPicSize), minLog2FrameNum), maxLog2FrameNum)
	s.Log2MaxFrameNumMinus4 = frameNumBits - minLog2FrameNum
	interlaced := cfg.PicStruct.Interlaced()
	// Output order equals decode order only without B frames and fields.
	if cfg.GopRefDist > 1 || interlaced {
		s.PicOrderCntType = 0
		s.Log2MaxPicOrderCntLsbMinus4 = min(frameNumBits+1, maxLog2FrameNum) - minLog2FrameNum
	} else {
		s.PicOrderCntType = 2 //nolint:mnd
	}

	s.PicWidthInMbsMinus1 = cfg.WidthInMbs() - 1
	s.PicHeightInMapUnitsMinus1 = cfg.PicHeightInMbs() - 1
	s.FrameMbsOnly = !interlaced
	s.MbAdaptiveFrameField = interlaced && cfg.FramePicture.IsOn()
	s.Direct8x8Inference = true

	cropUnitY := uint32(2) //nolint:mnd
	if interlaced {
		cropUnitY = 4 //nolint:mnd
	}
	if w, h := cfg.CropWidth(), cfg.CropHeight(); cfg.CropX+w <= cfg.Width && cfg.CropY+h <= cfg.Height {
		s.FrameCropLeft = cfg.CropX / 2
		s.FrameCropRight = (cfg.Width - cfg.CropX - w) / 2
		s.FrameCropTop = cfg.CropY / cropUnitY
		s.FrameCropBottom = (cfg.Height - cfg.CropY - h) / cropUnitY
		s.FrameCropping = s.FrameCropLeft|s.FrameCropRight|s.FrameCropTop|s.FrameCropBottom != 0
	}

	if !cfg.DisableVUI.IsOn() {
		s.VUIParametersPresent = true
		s.VUI = buildVUI(cfg)
	}
	return s
}

//nolint:funlen // one assignment per syntax element
func buildVUI(cfg *params.Config) h264.VUI {
	v := h264.VUI{
		AspectRatioInfoPresent: cfg.AspectRatioInfoPresent.IsOn(),
		OverscanInfoPresent:    cfg.OverscanInfoPresent.IsOn(),
		OverscanAppropriate:    cfg.OverscanInfoPresent.IsOn() && cfg.OverscanAppropriate.IsOn(),
		TimingInfoPresent:      cfg.TimingInfoPresent.IsOn() && cfg.FrameRateN != 0,
		NalHrdPresent:          cfg.VuiNalHrdParameters.IsOn(),
		VclHrdPresent:          cfg.VuiVclHrdParameters.IsOn(),
		PicStructPresent:       cfg.PicTimingSEI.IsOn(),
		BitstreamRestriction:   cfg.BitstreamRestriction.IsOn(),
	}
	if v.AspectRatioInfoPresent {
		v.AspectRatioIdc = extendedSAR
		v.SarWidth, v.SarHeight = uint16(cfg.AspectRatioW), uint16(cfg.AspectRatioH) //nolint:gosec
		for i := 1; i < len(sampleAspectRatios); i++ {
			if sampleAspectRatios[i] == [2]uint32{cfg.AspectRatioW, cfg.AspectRatioH} {
				v.AspectRatioIdc, v.SarWidth, v.SarHeight = uint8(i), 0, 0 //nolint:gosec
				break
			}
		}
	}

	if vs := cfg.VideoSignal; vs.Present.IsOn() {
		v.VideoSignalTypePresent = true
		v.VideoFormat = vs.VideoFormat
		v.VideoFullRange = vs.VideoFullRange.IsOn()
		if vs.ColourDescriptionPresent.IsOn() {
			v.ColourDescriptionPresent = true
			v.ColourPrimaries = vs.ColourPrimaries
			v.TransferCharacteristics = vs.TransferCharacteristics
			v.MatrixCoefficients = vs.MatrixCoefficients
		}
	}

	if v.TimingInfoPresent {
		// Two ticks per frame: time_scale counts fields.
		v.NumUnitsInTick = max(cfg.FrameRateD, 1)
		v.TimeScale = 2 * cfg.FrameRateN //nolint:mnd
		v.FixedFrameRate = cfg.FixedFrameRate.IsOn()
	}

	if v.NalHrdPresent || v.VclHrdPresent {
		hrd := buildHRD(cfg)
		if v.NalHrdPresent {
			v.NalHrd = hrd
		}
		if v.VclHrdPresent {
			v.VclHrd = hrd
		}
		v.LowDelayHrd = cfg.LowDelayHrd.IsOn()
	}

	if v.BitstreamRestriction {
		v.MotionVectorsOverPicBoundaries = true
		v.Log2MaxMvLengthHorizontal = log2MaxMvLengthHoriz
		v.Log2MaxMvLengthVertical = ceilLog2(limits.MaxVerticalMvRange(cfg.Level) * quarterSamples)
		v.MaxDecFrameBuffering = min(max(cfg.MaxDecFrameBuffering, cfg.NumRefFrame), maxRefFrames)
		v.MaxNumReorderFrames = min(reorderDepth(cfg), v.MaxDecFrameBuffering)
	}
	return v
}

func buildHRD(cfg *params.Config) h264.HRD {
	h := h264.HRD{
		CbrFlag:                            cfg.RateControlMethod == params.RCCBR,
		InitialCpbRemovalDelayLengthMinus1: hrdDelayLengthMinus1,
		CpbRemovalDelayLengthMinus1:        hrdDelayLengthMinus1,
		DpbOutputDelayLengthMinus1:         hrdDelayLengthMinus1,
		TimeOffsetLength:                   hrdTimeOffsetLength,
	}
	bitRate, cpbSize := ratecontrol.HRDRates(cfg)
	h.SetBitRate(bitRate)
	h.SetCpbSize(cpbSize)
	return h
}

// reorderDepth is the number of frames a decoder must hold back for output.
func reorderDepth(cfg *params.Config) uint32 {
	switch {
	case cfg.GopRefDist <= 1:
		return 0
	case cfg.BRefType == params.BRefPyramid:
		return ceilLog2(cfg.GopRefDist)
	}
	return 1
}

// BuildPPS derives the picture parameter set of a canonical configuration.
func BuildPPS(cfg *params.Config) *h264.PPS {
	p := &h264.PPS{
		ID:                                uint32(cfg.PPSID),
		SPSID:                             uint32(cfg.SPSID),
		EntropyCodingMode:                 !cfg.CAVLC.IsOn(),
		BottomFieldPicOrderInFramePresent: cfg.PicStruct.Interlaced(),
		NumRefIdxL0DefaultActiveMinus1:    max(cfg.NumRefActiveP, 1) - 1,
		NumRefIdxL1DefaultActiveMinus1:    max(cfg.NumRefActiveBL1, 1) - 1,
		WeightedPred:                      cfg.WeightedPred == params.WeightedPredExplicit,
		DeblockingFilterControlPresent:    true,
	}
	switch cfg.WeightedBiPred {
	case params.WeightedPredExplicit:
		p.WeightedBipredIdc = 1
	case params.WeightedPredImplicit:
		p.WeightedBipredIdc = 2 //nolint:mnd
	}
	if cfg.Transform8x8.IsOn() && cfg.Profile.IsHigh() {
		p.ExtensionPresent = true
		p.Transform8x8Mode = true
	}
	return p
}

// Packer writes the non-VCL units and slice headers of one encoder instance.
// It is not safe for concurrent use; independent instances share nothing.
type Packer struct {
	cfg     params.Config
	class   slicediv.Class
	sps     *h264.SPS
	pps     *h264.PPS
	spsNALU h264.NALU
	ppsNALU h264.NALU
	escape  bool
}

func (p *Packer) String() string {
	return "h264.Packer"
}

// ErrNotCanonical is returned by NewPacker for configurations that were not
// resolved by Canonicalize.
var ErrNotCanonical = errors.New("h264 packer: configuration is not canonical")

// NewPacker prepares the parameter sets of a canonical configuration. Caller
// supplied SPS/PPS buffers are reproduced byte for byte.
func NewPacker(cfg *params.Config, caps *params.Caps) (*Packer, error) {
	if cfg.Width == 0 || cfg.Height == 0 || cfg.Level == limits.LevelUnknown ||
		(cfg.NumSlice == 0 && cfg.MaxSliceSize == 0) {
		return nil, errors.WithStack(ErrNotCanonical)
	}
	p := &Packer{cfg: cfg.Clone(), class: caps.SliceStructure, escape: true}

	var spsRaw, ppsRaw []byte
	if cfg.HasExternalHeaders() {
		spsRaw, ppsRaw = splitParameterSets(cfg.SPSBuffer, cfg.PPSBuffer)
	}
	if spsRaw != nil {
		sps, err := h264.ParseSPS(spsRaw)
		if err != nil {
			return nil, errors.Wrap(err, "h264 packer: caller sps")
		}
		p.sps, p.spsNALU = sps, verbatim(spsRaw)
	} else {
		p.sps = BuildSPS(&p.cfg)
		p.spsNALU = p.sps.Marshal(true)
	}
	if ppsRaw != nil {
		pps, err := h264.ParsePPS(ppsRaw)
		if err != nil {
			return nil, errors.Wrap(err, "h264 packer: caller pps")
		}
		p.pps, p.ppsNALU = pps, verbatim(ppsRaw)
	} else {
		p.pps = BuildPPS(&p.cfg)
		p.ppsNALU = p.pps.Marshal(true)
	}
	logger.Debugf(p, "sps %d/pps %d, %s level %s, %dx%d MBs", p.sps.ID, p.pps.ID,
		p.sps.Profile(), p.sps.Level(), p.sps.WidthInMbs(), p.sps.FrameHeightInMbs())
	return p, nil
}

func verbatim(ebsp []byte) h264.NALU {
	data := append(append(make([]byte, 0, len(startCode)+len(ebsp)), startCode...), ebsp...)
	return h264.NALU{Data: data, BitLen: len(data) * 8, Escaped: true} //nolint:mnd
}

// DeferEscaping leaves emulation prevention of slice headers and SEI to the
// caller, who joins them with the slice data before escaping. Parameter sets are
// always escaped.
func (p *Packer) DeferEscaping(on bool) {
	p.escape = !on
}

// SPS and PPS return the active parameter sets.
func (p *Packer) SPS() *h264.SPS { return p.sps }

func (p *Packer) PPS() *h264.PPS { return p.pps }

func (p *Packer) PackSPS() h264.NALU { return p.spsNALU }

func (p *Packer) PackPPS() h264.NALU { return p.ppsNALU }

func (p *Packer) PackAUD(t params.FrameType) h264.NALU {
	return h264.MarshalAUD(t.PrimaryPicType())
}

// CodecParameters wraps the active parameter sets in an avcC record.
func (p *Packer) CodecParameters() (h264.CodecParameters, error) {
	return h264.NewCodecDataFromSPSAndPPS(p.spsNALU.EBSP(), p.ppsNALU.EBSP())
}

// Slices returns the slice partition used for pictures of type t.
func (p *Packer) Slices(t params.FrameType) []slicediv.Slice {
	w, h := p.sps.WidthInMbs(), p.sps.PicHeightInMapUnitsMinus1+1
	switch {
	case p.cfg.NumMbPerSlice != 0:
		return slicediv.NewBySize(p.class, p.cfg.NumMbPerSlice, w, h).Slices()
	case p.cfg.MaxSliceSize != 0:
		return slicediv.New(slicediv.OneSlice, 1, w, h).Slices()
	}
	return slicediv.New(p.class, max(p.cfg.NumSliceFor(t.SliceType()), 1), w, h).Slices()
}

// PackSliceHeaders returns one slice header NAL unit per slice of the picture.
// The last byte of each is partial; BitLen marks where slice_data() begins.
func (p *Packer) PackSliceHeaders(task *params.FrameTask) []h264.NALU {
	div := p.Slices(task.Type)
	out := make([]h264.NALU, 0, len(div))
	for i, s := range div {
		h := p.sliceHeader(task, i, s.FirstMb)
		out = append(out, h.Marshal(p.sps, p.pps, p.escape))
	}
	logger.Tracef(p, "%s frame_num %d: %d slice headers", task.Type, task.FrameNum, len(out))
	return out
}

// PackSkippedSlices returns complete slices in which every macroblock is skipped.
// It panics for intra pictures.
func (p *Packer) PackSkippedSlices(task *params.FrameTask) []h264.NALU {
	div := p.Slices(task.Type)
	out := make([]h264.NALU, 0, len(div))
	for i, s := range div {
		h := p.sliceHeader(task, i, s.FirstMb)
		numMbs := s.NumMb
		if p.sps.MbAdaptiveFrameField && !h.FieldPic {
			numMbs *= 2 // slices address macroblock pairs
		}
		out = append(out, h264.MarshalSkippedSlice(h, p.sps, p.pps, numMbs, p.escape))
	}
	logger.Tracef(p, "%s frame_num %d: %d skipped slices", task.Type, task.FrameNum, len(out))
	return out
}

//nolint:funlen // one assignment per syntax element
func (p *Packer) sliceHeader(task *params.FrameTask, i int, firstMb uint32) *h264.SliceHeader {
	sps, pps := p.sps, p.pps
	h := &h264.SliceHeader{
		NalUnitType:             h264.NaluNonIDR,
		FirstMbInSlice:          firstMb,
		SliceType:               task.Type.SliceType(),
		SliceTypeFixed:          true,
		PPSID:                   pps.ID,
		FrameNum:                task.FrameNum % sps.MaxFrameNum(),
		NumRefIdxL0ActiveMinus1: pps.NumRefIdxL0DefaultActiveMinus1,
		NumRefIdxL1ActiveMinus1: pps.NumRefIdxL1DefaultActiveMinus1,
		CabacInitIdc:            task.CabacInitIdc,
	}
	switch {
	case task.Type.IsIDR():
		h.NalRefIdc, h.NalUnitType = nalRefIdcIDR, h264.NaluCodedIDR
		h.IdrPicID = task.IDRPicID
		h.NoOutputOfPriorPics = task.NoOutputOfPriorPics
		h.LongTermReference = task.LongTermReference
	case task.Type.IsRef():
		h.NalRefIdc = nalRefIdcRef
		h.MMCO = task.MMCO
	}

	if !sps.FrameMbsOnly && task.Field != params.FieldFrame {
		h.FieldPic = true
		h.BottomField = task.Field == params.FieldBottom
	}
	if sps.PicOrderCntType == 0 {
		h.PicOrderCntLsb = task.PicOrderCntLsb(sps.Log2MaxPicOrderCntLsbMinus4 + minLog2FrameNum)
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			h.DeltaPicOrderCntBottom = bottomFieldPocDelta
		}
	}

	if st := h.SliceType; !st.IsIntra() {
		if n := task.NumRefIdxActive[0]; n != 0 && n-1 != h.NumRefIdxL0ActiveMinus1 {
			h.NumRefIdxActiveOverride = true
			h.NumRefIdxL0ActiveMinus1 = n - 1
		}
		h.RefPicListModL0 = task.RefPicListMod[0]
		if st == h264.SliceB {
			if n := task.NumRefIdxActive[1]; n != 0 && n-1 != h.NumRefIdxL1ActiveMinus1 {
				h.NumRefIdxActiveOverride = true
				h.NumRefIdxL1ActiveMinus1 = n - 1
			}
			h.RefPicListModL1 = task.RefPicListMod[1]
			h.DirectSpatialMvPred = task.DirectSpatialMvPred
		}
		if (pps.WeightedPred && st == h264.SliceP) || (pps.WeightedBipredIdc == 1 && st == h264.SliceB) {
			h.PredWeightTable = task.PredWeightTable
		}
	}
	if !pps.EntropyCodingMode || h.SliceType.IsIntra() {
		h.CabacInitIdc = 0
	}

	o := task.Override(i)
	initQP := int32(26) + pps.PicInitQpMinus26 //nolint:mnd
	qp := initQP
	if task.QP != 0 {
		qp = int32(task.QP)
	}
	h.SliceQPDelta = min(max(qp+o.QPDelta, 0), maxQP) - initQP

	h.DisableDeblockingFilterIdc = uint32(p.cfg.DisableDeblockingIdc)
	if d := o.Deblocking; d != nil {
		h.DisableDeblockingFilterIdc = d.DisableIdc
		h.SliceAlphaC0OffsetDiv2 = d.AlphaC0Div2
		h.SliceBetaOffsetDiv2 = d.BetaOffsDiv2
	}
	if h.DisableDeblockingFilterIdc == 1 {
		h.SliceAlphaC0OffsetDiv2, h.SliceBetaOffsetDiv2 = 0, 0
	}
	return h
}

// PackAccessUnitHeaders returns the units that precede the slices of a picture:
// the delimiter, repeated parameter sets and the SEI messages the config enables.
func (p *Packer) PackAccessUnitHeaders(task *params.FrameTask) []h264.NALU {
	cfg := &p.cfg
	var out []h264.NALU
	if cfg.AUDelimiter.IsOn() {
		out = append(out, p.PackAUD(task.Type))
	}
	switch {
	case task.NeedsHeaders():
		out = append(out, p.spsNALU, p.ppsNALU)
	case cfg.RepeatPPS.IsOn():
		out = append(out, p.ppsNALU)
	}
	if msgs := p.seiMessages(task); len(msgs) > 0 {
		out = append(out, h264.MarshalSEI(msgs, p.escape))
	}
	logger.Tracef(p, "%s frame_num %d: %d access unit header units", task.Type, task.FrameNum, len(out))
	return out
}

func (p *Packer) seiMessages(task *params.FrameTask) []h264.SEIMessage {
	cfg, v := &p.cfg, &p.sps.VUI
	_, hasHRD := v.Hrd()
	var msgs []h264.SEIMessage
	if task.Type.IsIDR() && cfg.BufferingPeriodSEI.IsOn() && hasHRD {
		delay := task.InitialCpbRemovalDelay
		if delay == 0 {
			delay = ratecontrol.InitialCpbRemovalDelay(cfg)
		}
		bp := h264.BufferingPeriod{
			SPSID:                           p.sps.ID,
			NalInitialCpbRemovalDelay:       delay,
			NalInitialCpbRemovalDelayOffset: task.InitialCpbRemovalDelayOffset,
			VclInitialCpbRemovalDelay:       delay,
			VclInitialCpbRemovalDelayOffset: task.InitialCpbRemovalDelayOffset,
		}
		msgs = append(msgs, bp.Message(p.sps))
	}
	if cfg.PicTimingSEI.IsOn() && (hasHRD || v.PicStructPresent) {
		pt := h264.PicTiming{
			CpbRemovalDelay: task.CpbRemovalDelay,
			DpbOutputDelay:  task.DpbOutputDelay,
			PicStruct:       uint8(task.Field), // 0 frame, 1 top field, 2 bottom field
		}
		msgs = append(msgs, pt.Message(p.sps))
	}
	if cfg.RecoveryPointSEI.IsOn() && task.Type.SliceType() == h264.SliceI && !task.Type.IsIDR() {
		rp := h264.RecoveryPoint{RecoveryFrameCnt: task.RecoveryFrameCnt, ExactMatch: true}
		msgs = append(msgs, rp.Message())
	}
	return msgs
}
