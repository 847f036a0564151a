package h264

// testHighSPS is a 1080p High profile SPS with timing, NAL HRD and bitstream restriction.
func testHighSPS() *SPS {
	s := &SPS{
		ProfileIdc:                  100,
		LevelIdc:                    40,
		ChromaFormatIdc:             1,
		Log2MaxFrameNumMinus4:       4,
		Log2MaxPicOrderCntLsbMinus4: 6,
		MaxNumRefFrames:             4,
		PicWidthInMbsMinus1:         119,
		PicHeightInMapUnitsMinus1:   67,
		FrameMbsOnly:                true,
		Direct8x8Inference:          true,
		FrameCropping:               true,
		FrameCropBottom:             4,
		VUIParametersPresent:        true,
		VUI: VUI{
			AspectRatioInfoPresent:   true,
			AspectRatioIdc:           1,
			VideoSignalTypePresent:   true,
			VideoFormat:              5,
			ColourDescriptionPresent: true,
			ColourPrimaries:          1,
			TransferCharacteristics:  1,
			MatrixCoefficients:       1,
			TimingInfoPresent:        true,
			NumUnitsInTick:           1001,
			TimeScale:                60000,
			FixedFrameRate:           true,
			NalHrdPresent:            true,
			NalHrd: HRD{
				InitialCpbRemovalDelayLengthMinus1: 23,
				CpbRemovalDelayLengthMinus1:        23,
				DpbOutputDelayLengthMinus1:         23,
				TimeOffsetLength:                   24,
			},
			PicStructPresent:               true,
			BitstreamRestriction:           true,
			MotionVectorsOverPicBoundaries: true,
			MaxBytesPerPicDenom:            2,
			MaxBitsPerMbDenom:              1,
			Log2MaxMvLengthHorizontal:      16,
			Log2MaxMvLengthVertical:        16,
			MaxNumReorderFrames:            2,
			MaxDecFrameBuffering:           4,
		},
	}
	s.VUI.NalHrd.SetBitRate(6_000_000)
	s.VUI.NalHrd.SetCpbSize(12_000_000)
	return s
}

// testBaselineSPS is a CIF Baseline SPS without VUI.
func testBaselineSPS() *SPS {
	return &SPS{
		ProfileIdc:                66,
		ConstraintFlags:           0xc0,
		LevelIdc:                  30,
		ChromaFormatIdc:           1,
		PicOrderCntType:           2,
		MaxNumRefFrames:           1,
		PicWidthInMbsMinus1:       21,
		PicHeightInMapUnitsMinus1: 17,
		FrameMbsOnly:              true,
	}
}

// testInterlacedSPS is a 576i Main SPS with MBAFF, POC type 1 and a VCL HRD.
func testInterlacedSPS() *SPS {
	s := &SPS{
		ProfileIdc:                77,
		LevelIdc:                  31,
		ID:                        1,
		ChromaFormatIdc:           1,
		Log2MaxFrameNumMinus4:     2,
		PicOrderCntType:           1,
		OffsetForNonRefPic:        -1,
		OffsetForTopToBottomField: 1,
		OffsetForRefFrame:         []int32{-2, 4},
		MaxNumRefFrames:           2,
		PicWidthInMbsMinus1:       44,
		PicHeightInMapUnitsMinus1: 17,
		MbAdaptiveFrameField:      true,
		Direct8x8Inference:        true,
		VUIParametersPresent:      true,
		VUI: VUI{
			AspectRatioInfoPresent:         true,
			AspectRatioIdc:                 aspectRatioExtended,
			SarWidth:                       64,
			SarHeight:                      45,
			OverscanInfoPresent:            true,
			OverscanAppropriate:            true,
			ChromaLocInfoPresent:           true,
			ChromaSampleLocTypeTopField:    1,
			ChromaSampleLocTypeBottomField: 1,
			TimingInfoPresent:              true,
			NumUnitsInTick:                 1,
			TimeScale:                      50,
			VclHrdPresent:                  true,
			VclHrd: HRD{
				CbrFlag:                            true,
				InitialCpbRemovalDelayLengthMinus1: 17,
				CpbRemovalDelayLengthMinus1:        15,
				DpbOutputDelayLengthMinus1:         7,
			},
			LowDelayHrd: true,
		},
	}
	s.VUI.VclHrd.SetBitRate(2_000_000)
	s.VUI.VclHrd.SetCpbSize(2_000_000)
	return s
}

func testHighPPS() *PPS {
	return &PPS{
		EntropyCodingMode:              true,
		NumRefIdxL0DefaultActiveMinus1: 2,
		ChromaQpIndexOffset:            -2,
		DeblockingFilterControlPresent: true,
		ExtensionPresent:               true,
		Transform8x8Mode:               true,
		SecondChromaQpIndexOffset:      -2,
	}
}

func testBaselinePPS() *PPS {
	return &PPS{
		PicInitQpMinus26:               -4,
		DeblockingFilterControlPresent: true,
	}
}

func testInterlacedPPS() *PPS {
	return &PPS{
		ID:                                1,
		SPSID:                             1,
		BottomFieldPicOrderInFramePresent: true,
		WeightedPred:                      true,
		WeightedBipredIdc:                 1,
		NumRefIdxL0DefaultActiveMinus1:    1,
		ChromaQpIndexOffset:               3,
		SecondChromaQpIndexOffset:         3,
		ConstrainedIntraPred:              true,
		RedundantPicCntPresent:            true,
	}
}

// rampList fills n entries starting at from, stepping by step and then holding the last value.
func rampList(n int, from, step, stopAt uint8) []uint8 {
	out := make([]uint8, n)
	v := from
	for i := range out {
		out[i] = v
		if v < stopAt {
			v += step
		}
	}
	return out
}
