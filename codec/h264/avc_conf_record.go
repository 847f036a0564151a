package h264

import (
	"github.com/pkg/errors"
	"github.com/ugparu/avchw/utils/bits/pio"
)

// AVCDecoderConfRecord is the avcC box payload (ISO/IEC 14496-15 5.3.3.1) carrying
// the escaped SPS and PPS NAL units without start codes.
type AVCDecoderConfRecord struct {
	AVCProfileIndication uint8
	ProfileCompatibility uint8
	AVCLevelIndication   uint8
	LengthSizeMinusOne   uint8
	SPS                  [][]byte
	PPS                  [][]byte

	// High profile trailer. Absent in records written by older muxers.
	HasExtension         bool
	ChromaFormat         uint8
	BitDepthLumaMinus8   uint8
	BitDepthChromaMinus8 uint8
}

const (
	recordHeaderSize    = 6
	recordExtensionSize = 4

	maskChromaFormat = 0x03
	maskBitDepth     = 0x07
	reservedChroma   = 0xfc
	reservedBitDepth = 0xf8
)

// NewAVCDecoderConfRecord builds a record from escaped SPS and PPS NAL units.
func NewAVCDecoderConfRecord(sps, pps []byte, lengthSize int) (*AVCDecoderConfRecord, error) {
	if len(sps) < minSPSLength || len(pps) < 2 { //nolint:mnd
		return nil, ErrDecconfInvalid
	}
	rec := &AVCDecoderConfRecord{
		AVCProfileIndication: sps[1],
		ProfileCompatibility: sps[2],
		AVCLevelIndication:   sps[3],
		LengthSizeMinusOne:   uint8(lengthSize-1) & maskLengthSizeMinusOne, //nolint:gosec
		SPS:                  [][]byte{sps},
		PPS:                  [][]byte{pps},
	}
	if rec.highProfile() {
		info, err := ParseSPS(sps)
		if err != nil {
			return nil, errors.Wrap(err, "avcC")
		}
		rec.HasExtension = true
		rec.ChromaFormat = uint8(info.ChromaFormatIdc)              //nolint:gosec
		rec.BitDepthLumaMinus8 = uint8(info.BitDepthLumaMinus8)     //nolint:gosec
		rec.BitDepthChromaMinus8 = uint8(info.BitDepthChromaMinus8) //nolint:gosec
	}
	return rec, nil
}

func (avc *AVCDecoderConfRecord) highProfile() bool {
	return hasChromaInfo(avc.AVCProfileIndication)
}

// Bytes returns the marshalled record.
func (avc *AVCDecoderConfRecord) Bytes() []byte {
	b := make([]byte, avc.Len())
	avc.Marshal(b)
	return b
}

func readParameterSets(b []byte, n, count int) (sets [][]byte, next int, err error) {
	for range count {
		if len(b) < n+lengthFieldSize {
			return nil, n, ErrDecconfInvalid
		}
		size := int(pio.U16BE(b[n:]))
		n += lengthFieldSize
		if len(b) < n+size {
			return nil, n, ErrDecconfInvalid
		}
		sets = append(sets, b[n:n+size])
		n += size
	}
	return sets, n, nil
}

func putParameterSets(b []byte, sets [][]byte) (n int) {
	for _, ps := range sets {
		pio.PutU16BE(b[n:], uint16(len(ps))) //nolint:gosec // parameter sets are far below 64 KiB
		n += lengthFieldSize
		n += copy(b[n:], ps)
	}
	return
}

// Unmarshal decodes a record and returns the number of bytes consumed. The High
// profile trailer is read when present.
func (avc *AVCDecoderConfRecord) Unmarshal(b []byte) (n int, err error) {
	if len(b) < recordHeaderSize+1 || b[0] != 1 {
		return 0, ErrDecconfInvalid
	}
	avc.AVCProfileIndication = b[1]
	avc.ProfileCompatibility = b[2]
	avc.AVCLevelIndication = b[3]
	avc.LengthSizeMinusOne = b[4] & maskLengthSizeMinusOne

	if avc.SPS, n, err = readParameterSets(b, recordHeaderSize, int(b[5]&maskSPSCount)); err != nil {
		return
	}
	if len(b) < n+1 {
		return n, ErrDecconfInvalid
	}
	count := int(b[n])
	if avc.PPS, n, err = readParameterSets(b, n+1, count); err != nil {
		return
	}

	if !avc.highProfile() || len(b) < n+recordExtensionSize {
		return
	}
	avc.HasExtension = true
	avc.ChromaFormat = b[n] & maskChromaFormat
	avc.BitDepthLumaMinus8 = b[n+1] & maskBitDepth
	avc.BitDepthChromaMinus8 = b[n+2] & maskBitDepth
	// SPS extension units are skipped.
	_, n, err = readParameterSets(b, n+recordExtensionSize, int(b[n+3]))
	return
}

// Len returns the size of the marshalled record.
func (avc *AVCDecoderConfRecord) Len() (n int) {
	n = recordHeaderSize + 1
	for _, sps := range avc.SPS {
		n += lengthFieldSize + len(sps)
	}
	for _, pps := range avc.PPS {
		n += lengthFieldSize + len(pps)
	}
	if avc.HasExtension {
		n += recordExtensionSize
	}
	return
}

// Marshal writes the record into b, which must hold Len bytes, and returns the
// number of bytes written.
func (avc *AVCDecoderConfRecord) Marshal(b []byte) (n int) {
	b[0] = 1
	b[1] = avc.AVCProfileIndication
	b[2] = avc.ProfileCompatibility
	b[3] = avc.AVCLevelIndication
	b[4] = avc.LengthSizeMinusOne | maskLengthSizeMinusOneInv
	b[5] = uint8(len(avc.SPS)) | maskSPSCountInv //nolint:gosec // at most 31 sets
	n = recordHeaderSize
	n += putParameterSets(b[n:], avc.SPS)
	b[n] = uint8(len(avc.PPS)) //nolint:gosec // at most 255 sets
	n++
	n += putParameterSets(b[n:], avc.PPS)

	if avc.HasExtension {
		b[n] = reservedChroma | avc.ChromaFormat&maskChromaFormat
		b[n+1] = reservedBitDepth | avc.BitDepthLumaMinus8&maskBitDepth
		b[n+2] = reservedBitDepth | avc.BitDepthChromaMinus8&maskBitDepth
		b[n+3] = 0
		n += recordExtensionSize
	}
	return
}
