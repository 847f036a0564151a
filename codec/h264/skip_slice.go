package h264

// MarshalSkippedSlice writes a complete P or B slice whose numMbs macroblocks are
// all skipped. With CAVLC the slice data is a single mb_skip_run; with CABAC every
// macroblock codes mb_skip_flag=1 followed by end_of_slice_flag, starting from the
// contexts a full encoder would initialise for the slice's cabac_init_idc and QP.
//
// Skipped neighbours never raise ctxIdxInc, so only the first mb_skip_flag
// context of the slice type is ever used.
func MarshalSkippedSlice(h *SliceHeader, sps *SPS, pps *PPS, numMbs uint32, escape bool) NALU {
	if h.SliceType.IsIntra() || numMbs == 0 {
		panic("h264: skipped slice needs an inter slice type and at least one macroblock")
	}
	w := newNALUWriter(maxSliceHeaderBytes+2*int(numMbs)+16, escape, true, h.NalRefIdc, h.NalUnitType) //nolint:mnd
	h.write(w, sps, pps)

	if !pps.EntropyCodingMode {
		w.WriteExponentialGolombCode(uint(numMbs))
		w.WriteTrailingBits()
		return finishNALU(w)
	}

	w.AlignOne() // cabac_alignment_one_bit
	isB := 0
	if h.isB() {
		isB = 1
	}
	mn := mbSkipInit[isB][0][h.CabacInitIdc]
	ctx := newCabacContext(mn[0], mn[1], h.SliceQP(pps))
	mbaff := sps.MbAdaptiveFrameField && !h.FieldPic
	if mbaff && numMbs%2 != 0 {
		panic("h264: skipped MBAFF slice must cover whole macroblock pairs")
	}

	enc := newCabacEncoder(w)
	for i := range numMbs {
		enc.EncodeDecision(&ctx, 1)
		if mbaff && i%2 == 0 {
			continue
		}
		var last uint8
		if i == numMbs-1 {
			last = 1
		}
		enc.EncodeTerminate(last)
	}
	w.AlignZero()
	return finishNALU(w)
}
