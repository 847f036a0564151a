package h264

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/utils/nal"
)

// CodecParameters describes a stream by its active parameter sets.
type CodecParameters struct {
	Record     []byte
	RecordInfo AVCDecoderConfRecord
	SPSInfo    *SPS
	PPSInfo    *PPS
}

// NewCodecDataFromSPSAndPPS parses escaped SPS and PPS NAL units and wraps them in an avcC record.
func NewCodecDataFromSPSAndPPS(sps, pps []byte) (codecPar CodecParameters, err error) {
	if codecPar.SPSInfo, err = ParseSPS(sps); err != nil {
		return
	}
	if codecPar.PPSInfo, err = ParsePPS(pps); err != nil {
		return
	}
	if codecPar.PPSInfo.SPSID != codecPar.SPSInfo.ID {
		err = errors.Wrapf(malformed("seq_parameter_set_id", int64(codecPar.PPSInfo.SPSID),
			"PPS refers to another SPS"), "h264: pps")
		return
	}
	record, err := NewAVCDecoderConfRecord(sps, pps, nal.MinNaluSize)
	if err != nil {
		return
	}
	codecPar.RecordInfo = *record
	codecPar.Record = record.Bytes()
	return
}

// NewCodecDataFromAVCDecoderConfRecord parses an avcC record and its first SPS and PPS.
func NewCodecDataFromAVCDecoderConfRecord(record []byte) (codecPar CodecParameters, err error) {
	codecPar.Record = record
	if _, err = (&codecPar.RecordInfo).Unmarshal(record); err != nil {
		return
	}
	if len(codecPar.RecordInfo.SPS) == 0 {
		err = errors.Wrap(ErrDecconfInvalid, "no SPS found")
		return
	}
	if len(codecPar.RecordInfo.PPS) == 0 {
		err = errors.Wrap(ErrDecconfInvalid, "no PPS found")
		return
	}
	if codecPar.SPSInfo, err = ParseSPS(codecPar.RecordInfo.SPS[0]); err != nil {
		err = errors.Wrap(err, "h264parser: parse SPS failed")
		return
	}
	if codecPar.PPSInfo, err = ParsePPS(codecPar.RecordInfo.PPS[0]); err != nil {
		err = errors.Wrap(err, "h264parser: parse PPS failed")
		return
	}
	return
}

func (par *CodecParameters) AVCDecoderConfRecordBytes() []byte {
	return par.Record
}

func (par *CodecParameters) SPS() []byte {
	return par.RecordInfo.SPS[0]
}

func (par *CodecParameters) PPS() []byte {
	return par.RecordInfo.PPS[0]
}

func (par *CodecParameters) Width() uint {
	return par.SPSInfo.Info().Width
}

func (par *CodecParameters) Height() uint {
	return par.SPSInfo.Info().Height
}

func (par *CodecParameters) FPS() uint {
	return par.SPSInfo.Info().FPS
}

func (par *CodecParameters) Profile() limits.Profile {
	return par.SPSInfo.Profile()
}

func (par *CodecParameters) Level() limits.Level {
	return par.SPSInfo.Level()
}

// Tag returns the RFC 6381 codec string, e.g. avc1.640028.
func (par *CodecParameters) Tag() string {
	return fmt.Sprintf("avc1.%02X%02X%02X",
		par.RecordInfo.AVCProfileIndication, par.RecordInfo.ProfileCompatibility, par.RecordInfo.AVCLevelIndication)
}
