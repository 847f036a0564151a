package h264

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/avchw/utils/bits"
)

func TestBufferingPeriodRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sps  *SPS
		bp   *BufferingPeriod
	}{
		{
			name: "nal_hrd",
			sps:  testHighSPS(),
			bp:   &BufferingPeriod{NalInitialCpbRemovalDelay: 180000, NalInitialCpbRemovalDelayOffset: 1234},
		},
		{
			name: "vcl_hrd",
			sps:  testInterlacedSPS(),
			bp:   &BufferingPeriod{SPSID: 1, VclInitialCpbRemovalDelay: 200000, VclInitialCpbRemovalDelayOffset: 17},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := tt.bp.Message(tt.sps)
			require.EqualValues(t, SEIBufferingPeriod, m.Type)

			got, err := ParseBufferingPeriod(m.Payload, tt.sps)
			require.NoError(t, err)
			require.Equal(t, tt.bp, got)
		})
	}
}

func TestPicTimingRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sps  *SPS
		pt   *PicTiming
	}{
		{
			name: "frame_full_timestamp",
			sps:  testHighSPS(),
			pt: &PicTiming{
				CpbRemovalDelay: 2,
				DpbOutputDelay:  4,
				ClockTimestamps: []*ClockTimestamp{{
					NuitFieldBased: true,
					FullTimestamp:  true,
					NFrames:        12,
					Seconds:        30,
					Minutes:        59,
					Hours:          23,
					TimeOffset:     -5,
				}},
			},
		},
		{
			name: "bottom_top_partial_timestamp",
			sps:  testHighSPS(),
			pt: &PicTiming{
				CpbRemovalDelay: 1 << 20,
				PicStruct:       3,
				ClockTimestamps: []*ClockTimestamp{
					nil,
					{CtType: 1, CountingType: 4, CntDropped: true, SecondsFlag: true, Seconds: 5, MinutesFlag: true, Minutes: 2},
				},
			},
		},
		{
			name: "frame_tripling_no_timestamps",
			sps:  testHighSPS(),
			pt:   &PicTiming{PicStruct: 8, ClockTimestamps: make([]*ClockTimestamp, 3)},
		},
		{
			name: "vcl_delays_only",
			sps:  testInterlacedSPS(),
			pt:   &PicTiming{CpbRemovalDelay: 40000, DpbOutputDelay: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := tt.pt.Message(tt.sps)
			require.EqualValues(t, SEIPicTiming, m.Type)

			got, err := ParsePicTiming(m.Payload, tt.sps)
			require.NoError(t, err)
			require.Equal(t, tt.pt, got)
		})
	}
}

func TestRecoveryPointRoundTrip(t *testing.T) {
	t.Parallel()

	rp := &RecoveryPoint{RecoveryFrameCnt: 10, ExactMatch: true}
	m := rp.Message()
	require.EqualValues(t, SEIRecoveryPoint, m.Type)

	got, err := ParseRecoveryPoint(m.Payload)
	require.NoError(t, err)
	require.Equal(t, rp, got)
}

func TestSEIFraming(t *testing.T) {
	t.Parallel()

	sps := testHighSPS()
	msgs := []SEIMessage{
		(&BufferingPeriod{NalInitialCpbRemovalDelay: 90000, NalInitialCpbRemovalDelayOffset: 0}).Message(sps),
		(&PicTiming{PicStruct: 3, ClockTimestamps: make([]*ClockTimestamp, 2)}).Message(sps),
		(&RecoveryPoint{}).Message(),
		{Type: 300, Payload: bytes.Repeat([]byte{0xaa}, 260)},
		{Type: 5, Payload: make([]byte, 64)},
	}

	for _, escape := range []bool{true, false} {
		n := MarshalSEI(msgs, escape)
		require.Equal(t, byte(NaluSEI), n.Type())

		got, err := ParseSEI(n.EBSP())
		require.NoError(t, err)
		require.Len(t, got, len(msgs))
		for i := range msgs {
			require.Equal(t, msgs[i].Type, got[i].Type)
			require.Equal(t, msgs[i].Payload, got[i].Payload)
		}
	}
	require.NotContains(t, string(MarshalSEI(msgs, true).Payload()), "\x00\x00\x00")
}

func TestParseSEIRejects(t *testing.T) {
	t.Parallel()

	sps := testHighSPS()

	t.Run("payload_size_exceeds_unit", func(t *testing.T) {
		t.Parallel()
		_, err := ParseSEI([]byte{0x06, 0x05, 0x10, 0xaa, 0x80})
		var me *MalformedBitstreamError
		require.ErrorAs(t, err, &me)
		require.Equal(t, "payloadSize", me.Syntax)
	})

	t.Run("reserved_pic_struct", func(t *testing.T) {
		t.Parallel()
		w := bits.NewWriter(16, false)
		w.WriteBits(0, 24)
		w.WriteBits(0, 24)
		w.WriteBits(9, 4)
		w.WriteTrailingBits()
		_, err := ParsePicTiming(w.Bytes(), sps)
		var me *MalformedBitstreamError
		require.ErrorAs(t, err, &me)
		require.Equal(t, "pic_struct", me.Syntax)
	})

	t.Run("hours_value", func(t *testing.T) {
		t.Parallel()
		pt := &PicTiming{ClockTimestamps: []*ClockTimestamp{{FullTimestamp: true, Hours: 24}}}
		_, err := ParsePicTiming(pt.Message(sps).Payload, sps)
		var me *MalformedBitstreamError
		require.ErrorAs(t, err, &me)
		require.Equal(t, "hours_value", me.Syntax)
	})

	t.Run("buffering_period_foreign_sps", func(t *testing.T) {
		t.Parallel()
		bp := &BufferingPeriod{SPSID: 3}
		_, err := ParseBufferingPeriod(bp.Message(sps).Payload, sps)
		require.ErrorIs(t, err, ErrMalformedBitstream)
	})
}
