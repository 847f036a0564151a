//nolint:mnd // field widths below are the H.264 syntax widths
package h264

import "github.com/ugparu/avchw/utils/bits"

// PPS is pic_parameter_set_rbsp() without slice groups.
type PPS struct {
	ID                                uint32
	SPSID                             uint32
	EntropyCodingMode                 bool // CABAC when set
	BottomFieldPicOrderInFramePresent bool
	NumRefIdxL0DefaultActiveMinus1    uint32
	NumRefIdxL1DefaultActiveMinus1    uint32
	WeightedPred                      bool
	WeightedBipredIdc                 uint32
	PicInitQpMinus26                  int32
	PicInitQsMinus26                  int32
	ChromaQpIndexOffset               int32
	DeblockingFilterControlPresent    bool
	ConstrainedIntraPred              bool
	RedundantPicCntPresent            bool

	// The High profile tail, present when ExtensionPresent is set.
	ExtensionPresent          bool
	Transform8x8Mode          bool
	PicScalingMatrixPresent   bool
	ScalingMatrix             ScalingMatrix
	SecondChromaQpIndexOffset int32
}

// ParsePPS decodes an escaped PPS NAL unit (header byte included, no start code).
func ParsePPS(nalu []byte) (*PPS, error) {
	r, _, err := newSyntaxReader(nalu, NaluPPS, "pps")
	if err != nil {
		return nil, err
	}
	p := &PPS{}
	p.ID = r.ueMax("pic_parameter_set_id", maxPPSID)
	p.SPSID = r.ueMax("seq_parameter_set_id", maxSPSID)
	p.EntropyCodingMode = r.flag("entropy_coding_mode_flag")
	p.BottomFieldPicOrderInFramePresent = r.flag("bottom_field_pic_order_in_frame_present_flag")
	if n := r.ueMax("num_slice_groups_minus1", 7); n != 0 {
		r.unsupported("num_slice_groups_minus1", int64(n))
	}
	p.NumRefIdxL0DefaultActiveMinus1 = r.ueMax("num_ref_idx_l0_default_active_minus1", maxRefIdxActive)
	p.NumRefIdxL1DefaultActiveMinus1 = r.ueMax("num_ref_idx_l1_default_active_minus1", maxRefIdxActive)
	p.WeightedPred = r.flag("weighted_pred_flag")
	p.WeightedBipredIdc = r.u(2, "weighted_bipred_idc")
	r.check(p.WeightedBipredIdc <= 2, "weighted_bipred_idc", int64(p.WeightedBipredIdc), "reserved value")
	p.PicInitQpMinus26 = r.se("pic_init_qp_minus26", -26, 25)
	p.PicInitQsMinus26 = r.se("pic_init_qs_minus26", -26, 25)
	p.ChromaQpIndexOffset = r.se("chroma_qp_index_offset", -maxChromaQpOffset, maxChromaQpOffset)
	p.DeblockingFilterControlPresent = r.flag("deblocking_filter_control_present_flag")
	p.ConstrainedIntraPred = r.flag("constrained_intra_pred_flag")
	p.RedundantPicCntPresent = r.flag("redundant_pic_cnt_present_flag")
	p.SecondChromaQpIndexOffset = p.ChromaQpIndexOffset

	if r.moreRBSPData() {
		p.ExtensionPresent = true
		p.Transform8x8Mode = r.flag("transform_8x8_mode_flag")
		p.PicScalingMatrixPresent = r.flag("pic_scaling_matrix_present_flag")
		if p.PicScalingMatrixPresent {
			r.scalingMatrix(&p.ScalingMatrix, p.Transform8x8Mode)
		}
		p.SecondChromaQpIndexOffset = r.se("second_chroma_qp_index_offset", -maxChromaQpOffset, maxChromaQpOffset)
	}
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

const maxPPSBytes = 512

// Marshal writes the PPS RBSP into a new NAL unit.
func (p *PPS) Marshal(escape bool) NALU {
	w := newNALUWriter(maxPPSBytes, escape, true, 3, NaluPPS)
	p.write(w)
	w.WriteTrailingBits()
	return finishNALU(w)
}

func (p *PPS) write(w *bits.Writer) {
	w.WriteExponentialGolombCode(uint(p.ID))
	w.WriteExponentialGolombCode(uint(p.SPSID))
	w.WriteFlag(p.EntropyCodingMode)
	w.WriteFlag(p.BottomFieldPicOrderInFramePresent)
	w.WriteExponentialGolombCode(0) // num_slice_groups_minus1
	w.WriteExponentialGolombCode(uint(p.NumRefIdxL0DefaultActiveMinus1))
	w.WriteExponentialGolombCode(uint(p.NumRefIdxL1DefaultActiveMinus1))
	w.WriteFlag(p.WeightedPred)
	w.WriteBits(uint(p.WeightedBipredIdc), 2)
	w.WriteSE(int(p.PicInitQpMinus26))
	w.WriteSE(int(p.PicInitQsMinus26))
	w.WriteSE(int(p.ChromaQpIndexOffset))
	w.WriteFlag(p.DeblockingFilterControlPresent)
	w.WriteFlag(p.ConstrainedIntraPred)
	w.WriteFlag(p.RedundantPicCntPresent)
	if !p.ExtensionPresent {
		return
	}
	w.WriteFlag(p.Transform8x8Mode)
	w.WriteFlag(p.PicScalingMatrixPresent)
	if p.PicScalingMatrixPresent {
		writeScalingMatrix(w, &p.ScalingMatrix, p.Transform8x8Mode)
	}
	w.WriteSE(int(p.SecondChromaQpIndexOffset))
}
