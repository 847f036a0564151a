//nolint:mnd // field widths below are the H.264 syntax widths
package h264

import (
	"github.com/ugparu/avchw/utils/bits"
)

// SEI payload types (Annex D) produced by the packer.
const (
	SEIBufferingPeriod = 0
	SEIPicTiming       = 1
	SEIRecoveryPoint   = 6
)

// SEIMessage is one sei_message() with its byte-aligned payload.
type SEIMessage struct {
	Type    uint32
	Payload []byte
}

// BufferingPeriod is buffering_period() for a single CPB.
type BufferingPeriod struct {
	SPSID                           uint32
	NalInitialCpbRemovalDelay       uint32
	NalInitialCpbRemovalDelayOffset uint32
	VclInitialCpbRemovalDelay       uint32
	VclInitialCpbRemovalDelayOffset uint32
}

// ClockTimestamp is one clock timestamp set of pic_timing().
type ClockTimestamp struct {
	CtType         uint8
	NuitFieldBased bool
	CountingType   uint8
	FullTimestamp  bool
	Discontinuity  bool
	CntDropped     bool
	NFrames        uint8
	SecondsFlag    bool
	Seconds        uint8
	MinutesFlag    bool
	Minutes        uint8
	HoursFlag      bool
	Hours          uint8
	TimeOffset     int32
}

// PicTiming is pic_timing(); which fields are coded depends on the SPS VUI.
type PicTiming struct {
	CpbRemovalDelay uint32
	DpbOutputDelay  uint32
	PicStruct       uint8
	ClockTimestamps []*ClockTimestamp // nil entries have clock_timestamp_flag 0
}

// RecoveryPoint is recovery_point().
type RecoveryPoint struct {
	RecoveryFrameCnt      uint32
	ExactMatch            bool
	BrokenLink            bool
	ChangingSliceGroupIdc uint8
}

// numClockTS is NumClockTS of Table D-1, indexed by pic_struct.
var numClockTS = [...]int{1, 1, 1, 2, 2, 3, 3, 2, 3}

const (
	maxSEIPayloadBytes = 256
	maxPicStruct       = 8
)

// MarshalSEI writes an SEI NAL unit carrying msgs in order.
func MarshalSEI(msgs []SEIMessage, escape bool) NALU {
	size := 0
	for _, m := range msgs {
		size += len(m.Payload) + int(m.Type)/255 + len(m.Payload)/255 + 2
	}
	w := newNALUWriter(size+size/2+1, escape, true, 0, NaluSEI)
	for _, m := range msgs {
		writeSEIValue(w, m.Type)
		writeSEIValue(w, uint32(len(m.Payload))) //nolint:gosec
		for _, b := range m.Payload {
			w.WriteBits(uint(b), 8)
		}
	}
	w.WriteTrailingBits()
	return finishNALU(w)
}

func writeSEIValue(w *bits.Writer, v uint32) {
	for ; v >= 255; v -= 255 {
		w.WriteBits(0xff, 8)
	}
	w.WriteBits(uint(v), 8)
}

// ParseSEI splits an escaped SEI NAL unit into its messages.
func ParseSEI(nalu []byte) ([]SEIMessage, error) {
	r, _, err := newSyntaxReader(nalu, NaluSEI, "sei")
	if err != nil {
		return nil, err
	}
	var msgs []SEIMessage
	for r.moreRBSPData() {
		m := SEIMessage{Type: r.seiValue("last_payload_type_byte")}
		n := r.seiValue("last_payload_size_byte")
		r.check(int(n)*8 <= r.br.BitsLeft(), "payloadSize", int64(n), "exceeds NAL unit")
		if r.err != nil {
			break
		}
		m.Payload = make([]byte, n)
		for i := range m.Payload {
			m.Payload[i] = byte(r.u(8, "sei_payload"))
		}
		msgs = append(msgs, m)
	}
	if r.err != nil {
		return nil, r.err
	}
	return msgs, nil
}

func (r *syntaxReader) seiValue(syntax string) uint32 {
	var v uint32
	for r.err == nil {
		b := r.u(8, syntax)
		v += b
		if b != 0xff {
			break
		}
	}
	return v
}

// payloadWriter collects a bit-level payload and closes it with the
// bit_equal_to_one alignment of sei_payload().
type payloadWriter struct {
	*bits.Writer
}

func newPayloadWriter() payloadWriter {
	return payloadWriter{bits.NewWriter(maxSEIPayloadBytes, false)}
}

func (w payloadWriter) finish(typ uint32) SEIMessage {
	if !w.ByteAligned() {
		w.WriteBit(1)
		w.AlignZero()
	}
	return SEIMessage{Type: typ, Payload: w.Bytes()}
}

func newPayloadReader(payload []byte, unit string) *syntaxReader {
	return &syntaxReader{br: bits.NewGolombBitReader(payload), unit: unit}
}

// Message encodes the buffering period against the SPS's HRD parameters.
func (bp *BufferingPeriod) Message(sps *SPS) SEIMessage {
	w := newPayloadWriter()
	w.WriteExponentialGolombCode(uint(bp.SPSID))
	v := &sps.VUI
	if v.NalHrdPresent {
		n := int(v.NalHrd.InitialCpbRemovalDelayLengthMinus1) + 1
		w.WriteBits(uint(bp.NalInitialCpbRemovalDelay), n)
		w.WriteBits(uint(bp.NalInitialCpbRemovalDelayOffset), n)
	}
	if v.VclHrdPresent {
		n := int(v.VclHrd.InitialCpbRemovalDelayLengthMinus1) + 1
		w.WriteBits(uint(bp.VclInitialCpbRemovalDelay), n)
		w.WriteBits(uint(bp.VclInitialCpbRemovalDelayOffset), n)
	}
	return w.finish(SEIBufferingPeriod)
}

// ParseBufferingPeriod decodes a buffering_period() payload.
func ParseBufferingPeriod(payload []byte, sps *SPS) (*BufferingPeriod, error) {
	r := newPayloadReader(payload, "buffering_period")
	bp := &BufferingPeriod{SPSID: r.ueMax("seq_parameter_set_id", maxSPSID)}
	r.check(bp.SPSID == sps.ID, "seq_parameter_set_id", int64(bp.SPSID), "does not match active SPS")
	v := &sps.VUI
	if v.NalHrdPresent {
		n := int(v.NalHrd.InitialCpbRemovalDelayLengthMinus1) + 1
		bp.NalInitialCpbRemovalDelay = r.u(n, "initial_cpb_removal_delay")
		bp.NalInitialCpbRemovalDelayOffset = r.u(n, "initial_cpb_removal_delay_offset")
	}
	if v.VclHrdPresent {
		n := int(v.VclHrd.InitialCpbRemovalDelayLengthMinus1) + 1
		bp.VclInitialCpbRemovalDelay = r.u(n, "initial_cpb_removal_delay")
		bp.VclInitialCpbRemovalDelayOffset = r.u(n, "initial_cpb_removal_delay_offset")
	}
	if r.err != nil {
		return nil, r.err
	}
	return bp, nil
}

// Message encodes the picture timing against the SPS's VUI.
func (pt *PicTiming) Message(sps *SPS) SEIMessage {
	w := newPayloadWriter()
	v := &sps.VUI
	if h, ok := v.Hrd(); ok {
		w.WriteBits(uint(pt.CpbRemovalDelay), int(h.CpbRemovalDelayLengthMinus1)+1)
		w.WriteBits(uint(pt.DpbOutputDelay), int(h.DpbOutputDelayLengthMinus1)+1)
	}
	if v.PicStructPresent {
		w.WriteBits(uint(pt.PicStruct), 4)
		timeOffsetLength := 24
		if h, ok := v.Hrd(); ok {
			timeOffsetLength = int(h.TimeOffsetLength)
		}
		for i := range numClockTS[pt.PicStruct] {
			var ts *ClockTimestamp
			if i < len(pt.ClockTimestamps) {
				ts = pt.ClockTimestamps[i]
			}
			w.WriteFlag(ts != nil)
			if ts != nil {
				ts.write(w.Writer, timeOffsetLength)
			}
		}
	}
	return w.finish(SEIPicTiming)
}

func (ts *ClockTimestamp) write(w *bits.Writer, timeOffsetLength int) {
	w.WriteBits(uint(ts.CtType), 2)
	w.WriteFlag(ts.NuitFieldBased)
	w.WriteBits(uint(ts.CountingType), 5)
	w.WriteFlag(ts.FullTimestamp)
	w.WriteFlag(ts.Discontinuity)
	w.WriteFlag(ts.CntDropped)
	w.WriteBits(uint(ts.NFrames), 8)
	if ts.FullTimestamp {
		w.WriteBits(uint(ts.Seconds), 6)
		w.WriteBits(uint(ts.Minutes), 6)
		w.WriteBits(uint(ts.Hours), 5)
	} else {
		w.WriteFlag(ts.SecondsFlag)
		if ts.SecondsFlag {
			w.WriteBits(uint(ts.Seconds), 6)
			w.WriteFlag(ts.MinutesFlag)
			if ts.MinutesFlag {
				w.WriteBits(uint(ts.Minutes), 6)
				w.WriteFlag(ts.HoursFlag)
				if ts.HoursFlag {
					w.WriteBits(uint(ts.Hours), 5)
				}
			}
		}
	}
	if timeOffsetLength > 0 {
		mask := uint64(1)<<timeOffsetLength - 1
		w.WriteBits64(uint64(int64(ts.TimeOffset))&mask, timeOffsetLength) //nolint:gosec
	}
}

// ParsePicTiming decodes a pic_timing() payload.
func ParsePicTiming(payload []byte, sps *SPS) (*PicTiming, error) {
	r := newPayloadReader(payload, "pic_timing")
	pt := &PicTiming{}
	v := &sps.VUI
	if h, ok := v.Hrd(); ok {
		pt.CpbRemovalDelay = r.u(int(h.CpbRemovalDelayLengthMinus1)+1, "cpb_removal_delay")
		pt.DpbOutputDelay = r.u(int(h.DpbOutputDelayLengthMinus1)+1, "dpb_output_delay")
	}
	if v.PicStructPresent {
		pt.PicStruct = uint8(r.u(4, "pic_struct")) //nolint:gosec
		r.check(pt.PicStruct <= maxPicStruct, "pic_struct", int64(pt.PicStruct), "reserved value")
		timeOffsetLength := 24
		if h, ok := v.Hrd(); ok {
			timeOffsetLength = int(h.TimeOffsetLength)
		}
		if r.err != nil {
			return nil, r.err
		}
		pt.ClockTimestamps = make([]*ClockTimestamp, numClockTS[pt.PicStruct])
		for i := range pt.ClockTimestamps {
			if r.flag("clock_timestamp_flag") {
				pt.ClockTimestamps[i] = r.clockTimestamp(timeOffsetLength)
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return pt, nil
}

//nolint:gosec // every value is read from a field no wider than its destination
func (r *syntaxReader) clockTimestamp(timeOffsetLength int) *ClockTimestamp {
	ts := &ClockTimestamp{}
	ts.CtType = uint8(r.u(2, "ct_type"))
	ts.NuitFieldBased = r.flag("nuit_field_based_flag")
	ts.CountingType = uint8(r.u(5, "counting_type"))
	ts.FullTimestamp = r.flag("full_timestamp_flag")
	ts.Discontinuity = r.flag("discontinuity_flag")
	ts.CntDropped = r.flag("cnt_dropped_flag")
	ts.NFrames = uint8(r.u(8, "n_frames"))
	if ts.FullTimestamp {
		ts.Seconds = uint8(r.u(6, "seconds_value"))
		ts.Minutes = uint8(r.u(6, "minutes_value"))
		ts.Hours = uint8(r.u(5, "hours_value"))
	} else {
		ts.SecondsFlag = r.flag("seconds_flag")
		if ts.SecondsFlag {
			ts.Seconds = uint8(r.u(6, "seconds_value"))
			ts.MinutesFlag = r.flag("minutes_flag")
			if ts.MinutesFlag {
				ts.Minutes = uint8(r.u(6, "minutes_value"))
				ts.HoursFlag = r.flag("hours_flag")
				if ts.HoursFlag {
					ts.Hours = uint8(r.u(5, "hours_value"))
				}
			}
		}
	}
	r.check(ts.Seconds <= 59, "seconds_value", int64(ts.Seconds), "out of range")
	r.check(ts.Minutes <= 59, "minutes_value", int64(ts.Minutes), "out of range")
	r.check(ts.Hours <= 23, "hours_value", int64(ts.Hours), "out of range")
	if timeOffsetLength > 0 {
		raw := r.u(timeOffsetLength, "time_offset")
		shift := 32 - timeOffsetLength
		ts.TimeOffset = int32(raw<<shift) >> shift
	}
	return ts
}

// Message encodes the recovery point.
func (rp *RecoveryPoint) Message() SEIMessage {
	w := newPayloadWriter()
	w.WriteExponentialGolombCode(uint(rp.RecoveryFrameCnt))
	w.WriteFlag(rp.ExactMatch)
	w.WriteFlag(rp.BrokenLink)
	w.WriteBits(uint(rp.ChangingSliceGroupIdc), 2)
	return w.finish(SEIRecoveryPoint)
}

// ParseRecoveryPoint decodes a recovery_point() payload.
func ParseRecoveryPoint(payload []byte) (*RecoveryPoint, error) {
	r := newPayloadReader(payload, "recovery_point")
	rp := &RecoveryPoint{}
	rp.RecoveryFrameCnt = r.ue("recovery_frame_cnt")
	rp.ExactMatch = r.flag("exact_match_flag")
	rp.BrokenLink = r.flag("broken_link_flag")
	rp.ChangingSliceGroupIdc = uint8(r.u(2, "changing_slice_group_idc")) //nolint:gosec
	if r.err != nil {
		return nil, r.err
	}
	return rp, nil
}
