package h264

import (
	"testing"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/stretchr/testify/require"
	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/utils/nal"
)

func TestCodecParameters(t *testing.T) {
	t.Parallel()

	sps := testHighSPS().Marshal(true).EBSP()
	pps := testHighPPS().Marshal(true).EBSP()

	par, err := NewCodecDataFromSPSAndPPS(sps, pps)
	require.NoError(t, err)
	require.Equal(t, "avc1.640028", par.Tag())
	require.EqualValues(t, 1920, par.Width())
	require.EqualValues(t, 1080, par.Height())
	require.EqualValues(t, 29, par.FPS())
	require.Equal(t, limits.ProfileHigh, par.Profile())
	require.Equal(t, limits.Level4, par.Level())
	require.EqualValues(t, nal.MinNaluSize-1, par.RecordInfo.LengthSizeMinusOne)

	back, err := NewCodecDataFromAVCDecoderConfRecord(par.AVCDecoderConfRecordBytes())
	require.NoError(t, err)
	require.Equal(t, sps, back.SPS())
	require.Equal(t, pps, back.PPS())
	require.Equal(t, par.SPSInfo, back.SPSInfo)
	require.Equal(t, par.PPSInfo, back.PPSInfo)
}

func TestCodecParametersRejects(t *testing.T) {
	t.Parallel()

	sps := testHighSPS().Marshal(true).EBSP()

	t.Run("foreign_pps", func(t *testing.T) {
		t.Parallel()
		_, err := NewCodecDataFromSPSAndPPS(sps, testInterlacedPPS().Marshal(true).EBSP())
		require.ErrorIs(t, err, ErrMalformedBitstream)
	})

	t.Run("record_version", func(t *testing.T) {
		t.Parallel()
		_, err := NewCodecDataFromAVCDecoderConfRecord([]byte{0, 0x64, 0, 0x28, 0xff, 0xe0, 0})
		require.ErrorIs(t, err, ErrDecconfInvalid)
	})

	t.Run("record_without_pps", func(t *testing.T) {
		t.Parallel()
		rec := AVCDecoderConfRecord{AVCProfileIndication: 0x64, AVCLevelIndication: 0x28, SPS: [][]byte{sps}}
		_, err := NewCodecDataFromAVCDecoderConfRecord(rec.Bytes())
		require.ErrorIs(t, err, ErrDecconfInvalid)
	})
}

func TestAVCDecoderConfRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sps  *SPS
		ext  bool
	}{
		{name: "high", sps: testHighSPS(), ext: true},
		{name: "baseline", sps: testBaselineSPS()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sps := tt.sps.Marshal(true).EBSP()
			pps := testHighPPS().Marshal(true).EBSP()

			rec, err := NewAVCDecoderConfRecord(sps, pps, nal.MinNaluSize)
			require.NoError(t, err)
			require.Equal(t, tt.ext, rec.HasExtension)
			if tt.ext {
				require.EqualValues(t, 1, rec.ChromaFormat)
				require.Zero(t, rec.BitDepthLumaMinus8)
			}

			b := rec.Bytes()
			var back AVCDecoderConfRecord
			n, err := back.Unmarshal(b)
			require.NoError(t, err)
			require.Equal(t, len(b), n)
			require.Equal(t, *rec, back)

			ref, err := avc.DecodeAVCDecConfRec(b)
			require.NoError(t, err)
			require.Equal(t, [][]byte{sps}, ref.SPSnalus)
			require.Equal(t, [][]byte{pps}, ref.PPSnalus)
			require.Equal(t, rec.AVCLevelIndication, ref.AVCLevelIndication)
		})
	}
}

func TestAVCDecoderConfRecordWithoutTrailer(t *testing.T) {
	t.Parallel()

	rec, err := NewAVCDecoderConfRecord(testHighSPS().Marshal(true).EBSP(), testHighPPS().Marshal(true).EBSP(), 4)
	require.NoError(t, err)
	b := rec.Bytes()
	legacy := b[:len(b)-recordExtensionSize]

	var back AVCDecoderConfRecord
	n, err := back.Unmarshal(legacy)
	require.NoError(t, err)
	require.Equal(t, len(legacy), n)
	require.False(t, back.HasExtension)
	require.Equal(t, rec.SPS, back.SPS)
	require.Equal(t, rec.PPS, back.PPS)

	b[len(b)-1] = 1 // one SPS extension announced, none follows
	_, err = back.Unmarshal(b)
	require.ErrorIs(t, err, ErrDecconfInvalid)
}
