//nolint:mnd // field widths below are the H.264 syntax widths
package h264

import (
	"github.com/ugparu/avchw/utils/bits"
	"github.com/ugparu/avchw/utils/nal"
)

// RefPicListModification is one modification_of_pic_nums_idc entry (0, 1 or 2);
// the terminating idc 3 is implicit.
type RefPicListModification struct {
	ModificationOfPicNumsIdc uint32
	AbsDiffPicNumMinus1      uint32
	LongTermPicNum           uint32
}

// MMCO is one memory_management_control_operation (1..6); the terminating 0 is implicit.
type MMCO struct {
	Op                        uint32
	DifferenceOfPicNumsMinus1 uint32
	LongTermPicNum            uint32
	LongTermFrameIdx          uint32
	MaxLongTermFrameIdxPlus1  uint32
}

// WeightEntry holds the explicit weights of one reference index. Weights and
// offsets are only meaningful when the matching flag is set.
type WeightEntry struct {
	LumaWeightFlag   bool
	LumaWeight       int32
	LumaOffset       int32
	ChromaWeightFlag bool
	ChromaWeight     [2]int32
	ChromaOffset     [2]int32
}

// PredWeightTable is pred_weight_table() for 4:2:0 content.
type PredWeightTable struct {
	LumaLog2WeightDenom   uint32
	ChromaLog2WeightDenom uint32
	L0                    []WeightEntry
	L1                    []WeightEntry
}

// SliceHeader is slice_header() for non-partitioned slices (NAL types 1 and 5).
type SliceHeader struct {
	NalRefIdc   uint8
	NalUnitType uint8

	FirstMbInSlice uint32
	SliceType      SliceType
	SliceTypeFixed bool // slice_type signalled as type+5
	PPSID          uint32
	FrameNum       uint32
	FieldPic       bool
	BottomField    bool
	IdrPicID       uint32

	PicOrderCntLsb         uint32
	DeltaPicOrderCntBottom int32
	DeltaPicOrderCnt       [2]int32
	RedundantPicCnt        uint32

	DirectSpatialMvPred     bool
	NumRefIdxActiveOverride bool
	NumRefIdxL0ActiveMinus1 uint32
	NumRefIdxL1ActiveMinus1 uint32
	RefPicListModL0         []RefPicListModification
	RefPicListModL1         []RefPicListModification
	PredWeightTable         *PredWeightTable

	NoOutputOfPriorPics bool
	LongTermReference   bool
	MMCO                []MMCO

	CabacInitIdc               uint32
	SliceQPDelta               int32
	DisableDeblockingFilterIdc uint32
	SliceAlphaC0OffsetDiv2     int32
	SliceBetaOffsetDiv2        int32
}

func (h *SliceHeader) IDR() bool { return h.NalUnitType == NaluCodedIDR }

func (h *SliceHeader) isP() bool { return h.SliceType == SliceP || h.SliceType == SliceSP }

func (h *SliceHeader) isB() bool { return h.SliceType == SliceB }

// hasWeightTable reports whether pred_weight_table() is present for the slice.
func (h *SliceHeader) hasWeightTable(pps *PPS) bool {
	return (pps.WeightedPred && h.isP()) || (pps.WeightedBipredIdc == 1 && h.isB())
}

// SliceQP returns SliceQPY.
func (h *SliceHeader) SliceQP(pps *PPS) int32 {
	return 26 + pps.PicInitQpMinus26 + h.SliceQPDelta
}

const (
	maxSliceHeaderBytes = 2048
	maxMMCOOps          = 66
	maxIdrPicID         = 65535
	maxRedundantPicCnt  = 127
	maxLog2WeightDenom  = 7
)

// ParseSliceHeader decodes the header of an escaped coded slice NAL unit against
// its active parameter sets. It returns the header and the bit offset of slice_data()
// within the unescaped RBSP.
//
//nolint:gocyclo,cyclop,funlen // mirrors the slice_header syntax table
func ParseSliceHeader(nalu []byte, sps *SPS, pps *PPS) (*SliceHeader, int, error) {
	want := byte(NaluNonIDR)
	if nal.Type(nalu) == NaluCodedIDR {
		want = NaluCodedIDR
	}
	r, hdr, err := newSyntaxReader(nalu, want, "slice_header")
	if err != nil {
		return nil, 0, err
	}
	h := &SliceHeader{NalRefIdc: hdr >> 5 & 3, NalUnitType: want}
	r.check(!h.IDR() || h.NalRefIdc != 0, "nal_ref_idc", 0, "IDR picture must be a reference")

	h.FirstMbInSlice = r.ue("first_mb_in_slice")
	st := r.ueMax("slice_type", 9)
	h.SliceType, h.SliceTypeFixed = SliceType(st%5), st >= 5
	if r.err == nil && (h.SliceType == SliceSP || h.SliceType == SliceSI) {
		r.unsupported("slice_type", int64(st))
	}
	r.check(!h.IDR() || h.SliceType.IsIntra(), "slice_type", int64(st), "IDR picture with inter slice")
	h.PPSID = r.ueMax("pic_parameter_set_id", maxPPSID)
	r.check(h.PPSID == pps.ID, "pic_parameter_set_id", int64(h.PPSID), "does not match active PPS")
	r.check(pps.SPSID == sps.ID, "seq_parameter_set_id", int64(pps.SPSID), "does not match active SPS")

	h.FrameNum = r.u(int(sps.Log2MaxFrameNumMinus4)+4, "frame_num")
	if !sps.FrameMbsOnly {
		h.FieldPic = r.flag("field_pic_flag")
		if h.FieldPic {
			h.BottomField = r.flag("bottom_field_flag")
		}
	}
	if r.err == nil {
		picSize := sps.WidthInMbs() * sps.FrameHeightInMbs()
		mbaff := uint32(1)
		if h.FieldPic {
			picSize /= 2
		} else if sps.MbAdaptiveFrameField {
			mbaff = 2
		}
		r.check(h.FirstMbInSlice*mbaff < picSize, "first_mb_in_slice", int64(h.FirstMbInSlice), "outside picture")
	}
	if h.IDR() {
		r.check(h.FrameNum == 0, "frame_num", int64(h.FrameNum), "must be 0 in IDR picture")
		h.IdrPicID = r.ueMax("idr_pic_id", maxIdrPicID)
	}
	switch sps.PicOrderCntType {
	case 0:
		h.PicOrderCntLsb = r.u(int(sps.Log2MaxPicOrderCntLsbMinus4)+4, "pic_order_cnt_lsb")
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			h.DeltaPicOrderCntBottom = r.se("delta_pic_order_cnt_bottom", -1<<31+1, 1<<31-1)
		}
	case 1:
		if !sps.DeltaPicOrderAlwaysZero {
			h.DeltaPicOrderCnt[0] = r.se("delta_pic_order_cnt", -1<<31+1, 1<<31-1)
			if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
				h.DeltaPicOrderCnt[1] = r.se("delta_pic_order_cnt", -1<<31+1, 1<<31-1)
			}
		}
	}
	if pps.RedundantPicCntPresent {
		h.RedundantPicCnt = r.ueMax("redundant_pic_cnt", maxRedundantPicCnt)
	}
	if h.isB() {
		h.DirectSpatialMvPred = r.flag("direct_spatial_mv_pred_flag")
	}
	h.NumRefIdxL0ActiveMinus1 = pps.NumRefIdxL0DefaultActiveMinus1
	h.NumRefIdxL1ActiveMinus1 = pps.NumRefIdxL1DefaultActiveMinus1
	if h.isP() || h.isB() {
		h.NumRefIdxActiveOverride = r.flag("num_ref_idx_active_override_flag")
		if h.NumRefIdxActiveOverride {
			h.NumRefIdxL0ActiveMinus1 = r.ueMax("num_ref_idx_l0_active_minus1", maxRefIdxActive)
			if h.isB() {
				h.NumRefIdxL1ActiveMinus1 = r.ueMax("num_ref_idx_l1_active_minus1", maxRefIdxActive)
			}
		}
	}
	if !h.SliceType.IsIntra() {
		h.RefPicListModL0 = r.refPicListModification(h.NumRefIdxL0ActiveMinus1)
		if h.isB() {
			h.RefPicListModL1 = r.refPicListModification(h.NumRefIdxL1ActiveMinus1)
		}
	}
	if h.hasWeightTable(pps) {
		h.PredWeightTable = r.predWeightTable(h)
	}
	if h.NalRefIdc != 0 {
		r.decRefPicMarking(h)
	}
	if pps.EntropyCodingMode && !h.SliceType.IsIntra() {
		h.CabacInitIdc = r.ueMax("cabac_init_idc", maxCabacInitIdc)
	}
	h.SliceQPDelta = r.se("slice_qp_delta", -maxSliceQP, maxSliceQP)
	if r.err == nil {
		qp := h.SliceQP(pps)
		r.check(qp >= minSliceQP8bit && qp <= maxSliceQP, "slice_qp_delta", int64(h.SliceQPDelta), "SliceQPY out of range")
	}
	if pps.DeblockingFilterControlPresent {
		h.DisableDeblockingFilterIdc = r.ueMax("disable_deblocking_filter_idc", maxDeblockIdc)
		if h.DisableDeblockingFilterIdc != 1 {
			h.SliceAlphaC0OffsetDiv2 = r.se("slice_alpha_c0_offset_div2", -6, 6)
			h.SliceBetaOffsetDiv2 = r.se("slice_beta_offset_div2", -6, 6)
		}
	}
	if r.err != nil {
		return nil, 0, r.err
	}
	return h, r.bitPos(), nil
}

func (r *syntaxReader) refPicListModification(numRefIdxActiveMinus1 uint32) []RefPicListModification {
	if !r.flag("ref_pic_list_modification_flag") {
		return nil
	}
	var mods []RefPicListModification
	for r.err == nil {
		idc := r.ueMax("modification_of_pic_nums_idc", 3)
		if idc == 3 || r.err != nil {
			break
		}
		m := RefPicListModification{ModificationOfPicNumsIdc: idc}
		if idc == 2 {
			m.LongTermPicNum = r.ue("long_term_pic_num")
		} else {
			m.AbsDiffPicNumMinus1 = r.ue("abs_diff_pic_num_minus1")
		}
		mods = append(mods, m)
		r.check(uint32(len(mods)) <= numRefIdxActiveMinus1+1, //nolint:gosec
			"modification_of_pic_nums_idc", int64(idc), "more modifications than active references")
	}
	return mods
}

func (r *syntaxReader) predWeightTable(h *SliceHeader) *PredWeightTable {
	t := &PredWeightTable{}
	t.LumaLog2WeightDenom = r.ueMax("luma_log2_weight_denom", maxLog2WeightDenom)
	t.ChromaLog2WeightDenom = r.ueMax("chroma_log2_weight_denom", maxLog2WeightDenom)
	t.L0 = r.weightEntries(h.NumRefIdxL0ActiveMinus1 + 1)
	if h.isB() {
		t.L1 = r.weightEntries(h.NumRefIdxL1ActiveMinus1 + 1)
	}
	return t
}

func (r *syntaxReader) weightEntries(n uint32) []WeightEntry {
	if r.err != nil {
		return nil
	}
	entries := make([]WeightEntry, n)
	for i := range entries {
		e := &entries[i]
		e.LumaWeightFlag = r.flag("luma_weight_flag")
		if e.LumaWeightFlag {
			e.LumaWeight = r.se("luma_weight", -128, 127)
			e.LumaOffset = r.se("luma_offset", -128, 127)
		}
		e.ChromaWeightFlag = r.flag("chroma_weight_flag")
		if e.ChromaWeightFlag {
			for j := range 2 {
				e.ChromaWeight[j] = r.se("chroma_weight", -128, 127)
				e.ChromaOffset[j] = r.se("chroma_offset", -128, 127)
			}
		}
	}
	return entries
}

func (r *syntaxReader) decRefPicMarking(h *SliceHeader) {
	if h.IDR() {
		h.NoOutputOfPriorPics = r.flag("no_output_of_prior_pics_flag")
		h.LongTermReference = r.flag("long_term_reference_flag")
		return
	}
	if !r.flag("adaptive_ref_pic_marking_mode_flag") {
		return
	}
	for r.err == nil {
		op := r.ueMax("memory_management_control_operation", 6)
		if op == 0 || r.err != nil {
			break
		}
		m := MMCO{Op: op}
		if op == 1 || op == 3 {
			m.DifferenceOfPicNumsMinus1 = r.ue("difference_of_pic_nums_minus1")
		}
		if op == 2 {
			m.LongTermPicNum = r.ue("long_term_pic_num")
		}
		if op == 3 || op == 6 {
			m.LongTermFrameIdx = r.ueMax("long_term_frame_idx", maxRefFrames-1)
		}
		if op == 4 {
			m.MaxLongTermFrameIdxPlus1 = r.ueMax("max_long_term_frame_idx_plus1", maxRefFrames)
		}
		h.MMCO = append(h.MMCO, m)
		r.check(len(h.MMCO) <= maxMMCOOps, "memory_management_control_operation", int64(op), "too many operations")
	}
}

// Marshal writes a slice NAL unit holding only slice_header(); the
// last byte is partial and BitLen marks where slice_data() starts.
func (h *SliceHeader) Marshal(sps *SPS, pps *PPS, escape bool) NALU {
	w := newNALUWriter(maxSliceHeaderBytes, escape, true, h.NalRefIdc, h.NalUnitType)
	h.write(w, sps, pps)
	return finishNALU(w)
}

//nolint:gocyclo,cyclop // slice_header syntax table
func (h *SliceHeader) write(w *bits.Writer, sps *SPS, pps *PPS) {
	w.WriteExponentialGolombCode(uint(h.FirstMbInSlice))
	st := uint(h.SliceType)
	if h.SliceTypeFixed {
		st += 5
	}
	w.WriteExponentialGolombCode(st)
	w.WriteExponentialGolombCode(uint(h.PPSID))
	w.WriteBits(uint(h.FrameNum), int(sps.Log2MaxFrameNumMinus4)+4)
	if !sps.FrameMbsOnly {
		w.WriteFlag(h.FieldPic)
		if h.FieldPic {
			w.WriteFlag(h.BottomField)
		}
	}
	if h.IDR() {
		w.WriteExponentialGolombCode(uint(h.IdrPicID))
	}
	switch sps.PicOrderCntType {
	case 0:
		w.WriteBits(uint(h.PicOrderCntLsb), int(sps.Log2MaxPicOrderCntLsbMinus4)+4)
		if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
			w.WriteSE(int(h.DeltaPicOrderCntBottom))
		}
	case 1:
		if !sps.DeltaPicOrderAlwaysZero {
			w.WriteSE(int(h.DeltaPicOrderCnt[0]))
			if pps.BottomFieldPicOrderInFramePresent && !h.FieldPic {
				w.WriteSE(int(h.DeltaPicOrderCnt[1]))
			}
		}
	}
	if pps.RedundantPicCntPresent {
		w.WriteExponentialGolombCode(uint(h.RedundantPicCnt))
	}
	if h.isB() {
		w.WriteFlag(h.DirectSpatialMvPred)
	}
	if h.isP() || h.isB() {
		w.WriteFlag(h.NumRefIdxActiveOverride)
		if h.NumRefIdxActiveOverride {
			w.WriteExponentialGolombCode(uint(h.NumRefIdxL0ActiveMinus1))
			if h.isB() {
				w.WriteExponentialGolombCode(uint(h.NumRefIdxL1ActiveMinus1))
			}
		}
	}
	if !h.SliceType.IsIntra() {
		writeRefPicListModification(w, h.RefPicListModL0)
		if h.isB() {
			writeRefPicListModification(w, h.RefPicListModL1)
		}
	}
	if h.hasWeightTable(pps) {
		h.writePredWeightTable(w)
	}
	if h.NalRefIdc != 0 {
		h.writeDecRefPicMarking(w)
	}
	if pps.EntropyCodingMode && !h.SliceType.IsIntra() {
		w.WriteExponentialGolombCode(uint(h.CabacInitIdc))
	}
	w.WriteSE(int(h.SliceQPDelta))
	if pps.DeblockingFilterControlPresent {
		w.WriteExponentialGolombCode(uint(h.DisableDeblockingFilterIdc))
		if h.DisableDeblockingFilterIdc != 1 {
			w.WriteSE(int(h.SliceAlphaC0OffsetDiv2))
			w.WriteSE(int(h.SliceBetaOffsetDiv2))
		}
	}
}

func writeRefPicListModification(w *bits.Writer, mods []RefPicListModification) {
	w.WriteFlag(len(mods) > 0)
	if len(mods) == 0 {
		return
	}
	for _, m := range mods {
		w.WriteExponentialGolombCode(uint(m.ModificationOfPicNumsIdc))
		if m.ModificationOfPicNumsIdc == 2 {
			w.WriteExponentialGolombCode(uint(m.LongTermPicNum))
		} else {
			w.WriteExponentialGolombCode(uint(m.AbsDiffPicNumMinus1))
		}
	}
	w.WriteExponentialGolombCode(3)
}

func (h *SliceHeader) writePredWeightTable(w *bits.Writer) {
	t := h.PredWeightTable
	if t == nil {
		t = &PredWeightTable{}
	}
	w.WriteExponentialGolombCode(uint(t.LumaLog2WeightDenom))
	w.WriteExponentialGolombCode(uint(t.ChromaLog2WeightDenom))
	writeWeightEntries(w, t.L0, h.NumRefIdxL0ActiveMinus1+1)
	if h.isB() {
		writeWeightEntries(w, t.L1, h.NumRefIdxL1ActiveMinus1+1)
	}
}

// writeWeightEntries writes n entries; entries missing from list use default weights.
func writeWeightEntries(w *bits.Writer, list []WeightEntry, n uint32) {
	for i := range int(n) {
		var e WeightEntry
		if i < len(list) {
			e = list[i]
		}
		w.WriteFlag(e.LumaWeightFlag)
		if e.LumaWeightFlag {
			w.WriteSE(int(e.LumaWeight))
			w.WriteSE(int(e.LumaOffset))
		}
		w.WriteFlag(e.ChromaWeightFlag)
		if e.ChromaWeightFlag {
			for j := range 2 {
				w.WriteSE(int(e.ChromaWeight[j]))
				w.WriteSE(int(e.ChromaOffset[j]))
			}
		}
	}
}

func (h *SliceHeader) writeDecRefPicMarking(w *bits.Writer) {
	if h.IDR() {
		w.WriteFlag(h.NoOutputOfPriorPics)
		w.WriteFlag(h.LongTermReference)
		return
	}
	w.WriteFlag(len(h.MMCO) > 0)
	if len(h.MMCO) == 0 {
		return
	}
	for _, m := range h.MMCO {
		w.WriteExponentialGolombCode(uint(m.Op))
		if m.Op == 1 || m.Op == 3 {
			w.WriteExponentialGolombCode(uint(m.DifferenceOfPicNumsMinus1))
		}
		if m.Op == 2 {
			w.WriteExponentialGolombCode(uint(m.LongTermPicNum))
		}
		if m.Op == 3 || m.Op == 6 {
			w.WriteExponentialGolombCode(uint(m.LongTermFrameIdx))
		}
		if m.Op == 4 {
			w.WriteExponentialGolombCode(uint(m.MaxLongTermFrameIdxPlus1))
		}
	}
	w.WriteExponentialGolombCode(0)
}
