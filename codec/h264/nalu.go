package h264

import (
	"bytes"

	"github.com/ugparu/avchw/utils/bits"
	"github.com/ugparu/avchw/utils/nal"
)

var (
	startCode3 = []byte{0, 0, 1}
	startCode4 = []byte{0, 0, 0, 1}
)

// NALU is one Annex-B NAL unit produced by the writer. Data starts with the start
// code; BitLen counts every written bit and may end mid-byte for slice headers.
// When Escaped is false emulation prevention was deferred to the caller.
type NALU struct {
	Data    []byte
	BitLen  int
	Escaped bool
}

// Payload returns the NAL unit without its start code.
func (n NALU) Payload() []byte {
	switch {
	case bytes.HasPrefix(n.Data, startCode4):
		return n.Data[len(startCode4):]
	case bytes.HasPrefix(n.Data, startCode3):
		return n.Data[len(startCode3):]
	}
	return n.Data
}

// EBSP returns the NAL unit without start code and with emulation prevention applied.
func (n NALU) EBSP() []byte {
	if n.Escaped {
		return n.Payload()
	}
	return nal.Escape(n.Payload())
}

// Type returns nal_unit_type.
func (n NALU) Type() byte {
	return nal.Type(n.Payload())
}

// JoinAccessUnit concatenates NAL units into an Annex-B access unit, applying
// deferred emulation prevention.
func JoinAccessUnit(nalus []NALU) []byte {
	size := 0
	for _, n := range nalus {
		size += len(n.Data) + len(n.Data)/2
	}
	out := make([]byte, 0, size)
	for _, n := range nalus {
		if n.Escaped {
			out = append(out, n.Data...)
			continue
		}
		out = append(out, n.Data[:len(n.Data)-len(n.Payload())]...)
		out = append(out, nal.Escape(n.Payload())...)
	}
	return out
}

func newNALUWriter(capacity int, escape, longStartCode bool, refIdc, typ byte) *bits.Writer {
	w := bits.NewWriter(capacity+len(startCode4)+1, escape)
	if longStartCode {
		w.WriteRawBytes(startCode4)
	} else {
		w.WriteRawBytes(startCode3)
	}
	w.WriteRawBytes([]byte{refIdc<<5 | typ&maskNaluType})
	return w
}

func finishNALU(w *bits.Writer) NALU {
	return NALU{Data: w.Bytes(), BitLen: w.BitLen(), Escaped: w.Escaped()}
}

// MarshalAUD writes access_unit_delimiter_rbsp.
func MarshalAUD(primaryPicType uint8) NALU {
	w := newNALUWriter(1, false, true, 0, NaluAUD)
	w.WriteBits(uint(primaryPicType), 3) //nolint:mnd
	w.WriteTrailingBits()
	return finishNALU(w)
}

// ParseAUD returns primary_pic_type.
func ParseAUD(nalu []byte) (uint8, error) {
	r, _, err := newSyntaxReader(nalu, NaluAUD, "aud")
	if err != nil {
		return 0, err
	}
	t := uint8(r.u(3, "primary_pic_type")) //nolint:gosec,mnd
	return t, r.err
}

// MarshalEndOfSequence and MarshalEndOfStream write the payload-less terminator units.
func MarshalEndOfSequence() NALU {
	return finishNALU(newNALUWriter(0, false, true, 0, NaluEndOfSeq))
}

func MarshalEndOfStream() NALU {
	return finishNALU(newNALUWriter(0, false, true, 0, NaluEndOfStream))
}
