package params

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ugparu/avchw/codec/h264"
	"github.com/ugparu/avchw/codec/h264/limits"
	"gopkg.in/yaml.v3"
)

func TestTriStateText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TriState
		wantErr bool
	}{
		{in: "on", want: On},
		{in: " OFF ", want: Off},
		{in: "adaptive", want: Adaptive},
		{in: "unknown", want: Unknown},
		{in: "0x55", want: TriState(0x55)},
		{in: "TriState(7)", want: TriState(7)},
		{in: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			var got TriState
			err := got.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			text, err := got.MarshalText()
			require.NoError(t, err)
			var back TriState
			require.NoError(t, back.UnmarshalText(text))
			require.Equal(t, got, back)
		})
	}
}

func TestTriStateValid(t *testing.T) {
	t.Parallel()

	require.True(t, Unknown.Valid(false))
	require.True(t, On.Valid(false))
	require.True(t, Off.Valid(false))
	require.False(t, Adaptive.Valid(false))
	require.True(t, Adaptive.Valid(true))
	require.False(t, TriState(0x55).Valid(true))
	require.Equal(t, On, Bool(true))
	require.Equal(t, Off, Bool(false))
}

func TestRateControlMethod(t *testing.T) {
	t.Parallel()

	var m RateControlMethod
	require.NoError(t, m.UnmarshalText([]byte("LA_ICQ")))
	require.Equal(t, RCLAICQ, m)
	require.True(t, m.IsLookAhead())
	require.True(t, m.IsQualityDriven())
	require.False(t, m.IsBitrateDriven())
	require.Error(t, m.UnmarshalText([]byte("abr")))

	require.False(t, RCUnknown.Valid())
	require.False(t, RateControlMethod(99).Valid())
	require.Equal(t, "RateControlMethod(99)", RateControlMethod(99).String())
	for _, m := range []RateControlMethod{RCCBR, RCVBR, RCVCM, RCLAHRD, RCQVBR} {
		require.True(t, m.IsHRDConformant(), m.String())
	}
	require.False(t, RCCQP.IsHRDConformant())
	require.False(t, RCAVBR.IsVBRFamily())
}

func TestCapsPreset(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"gen12", "gen12-lp", "gen9", "xe2"}, CapsPresetNames())

	caps, err := CapsPreset("gen12-lp")
	require.NoError(t, err)
	require.True(t, caps.LowPower)
	require.True(t, caps.SupportsRC(RCQVBR))
	require.False(t, caps.SupportsRC(RCLA))
	require.False(t, caps.IPOnly())

	caps.RateControl[0] = RCLA
	again, err := CapsPreset("gen12-lp")
	require.NoError(t, err)
	require.Equal(t, RCCBR, again.RateControl[0])

	_, err = CapsPreset("gen7")
	require.Error(t, err)
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	for _, p := range []Platform{PlatformGen9, PlatformGen11, PlatformGen12, PlatformXe2} {
		got, err := ParsePlatform(p.String())
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
	got, err := ParsePlatform("XE2")
	require.NoError(t, err)
	require.Equal(t, PlatformXe2, got)
	_, err = ParsePlatform("gen8")
	require.Error(t, err)
}

func TestConfigGeometry(t *testing.T) {
	t.Parallel()

	c := Config{Width: 1920, Height: 1080}
	require.Equal(t, uint32(120), c.WidthInMbs())
	require.Equal(t, uint32(68), c.HeightInMbs())
	require.Equal(t, uint32(68), c.PicHeightInMbs())
	require.Equal(t, uint32(8160), c.FrameSizeInMbs())
	require.Equal(t, uint32(1920), c.CropWidth())

	c.PicStruct = PicStructFieldBFF
	require.Equal(t, uint32(34), c.PicHeightInMbs())

	c.CropH = 1072
	require.Equal(t, uint32(1072), c.CropHeight())
}

func TestConfigClone(t *testing.T) {
	t.Parallel()

	m := h264.FlatScalingMatrix()
	c := Config{
		ROI:            []Rect{{Right: 16, Bottom: 16}},
		TemporalLayers: []uint32{1, 2},
		SPSBuffer:      []byte{0, 0, 0, 1, 0x67},
		ScalingMatrix:  &m,
	}
	d := c.Clone()
	require.Equal(t, c, d)

	d.ROI[0].Right = 32
	d.TemporalLayers[1] = 4
	d.SPSBuffer[4] = 0x68
	d.ScalingMatrix.List4x4[0][0] = 6
	require.Equal(t, uint32(16), c.ROI[0].Right)
	require.Equal(t, uint32(2), c.TemporalLayers[1])
	require.Equal(t, byte(0x67), c.SPSBuffer[4])
	require.Equal(t, m, *c.ScalingMatrix)
	require.NotEqual(t, c, d)
}

func TestConfigDemand(t *testing.T) {
	t.Parallel()

	c := Config{
		Width: 1280, Height: 720, FrameRateN: 60, FrameRateD: 1, Profile: limits.ProfileMain,
		NumRefFrame: 4, RateControlMethod: RCVBR, TargetKbps: 4000, MaxKbps: 6000, BufferSizeInKB: 1500,
	}
	d := c.Demand()
	require.Equal(t, uint32(6000), d.Kbps)
	require.Equal(t, uint32(1500), d.BufferKB)
	require.Equal(t, uint32(4), d.NumRefFrame)

	c.RateControlMethod = RCCQP
	d = c.Demand()
	require.Zero(t, d.Kbps)
	require.Zero(t, d.BufferKB)
}

func TestNumSliceFor(t *testing.T) {
	t.Parallel()

	c := Config{NumSlice: 4, NumSliceB: 2}
	require.Equal(t, uint32(4), c.NumSliceFor(h264.SliceI))
	require.Equal(t, uint32(4), c.NumSliceFor(h264.SliceP))
	require.Equal(t, uint32(2), c.NumSliceFor(h264.SliceB))
}

func TestFrameType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ     FrameType
		slice   h264.SliceType
		primary uint8
		name    string
		ref     bool
	}{
		{FrameI | FrameIDR, h264.SliceI, h264.PrimaryPicI, "IDR", true},
		{FrameI | FrameRef, h264.SliceI, h264.PrimaryPicI, "Iref", true},
		{FrameP | FrameRef, h264.SliceP, h264.PrimaryPicIP, "Pref", true},
		{FrameP, h264.SliceP, h264.PrimaryPicIP, "P", false},
		{FrameB, h264.SliceB, h264.PrimaryPicIPB, "B", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.slice, tt.typ.SliceType())
			require.Equal(t, tt.primary, tt.typ.PrimaryPicType())
			require.Equal(t, tt.name, tt.typ.String())
			require.Equal(t, tt.ref, tt.typ.IsRef())
		})
	}
}

func TestFrameTaskOverrides(t *testing.T) {
	t.Parallel()

	pic := &Deblocking{DisableIdc: 1}
	own := &Deblocking{DisableIdc: 2}
	task := FrameTask{
		Type:       FrameP,
		POC:        -3,
		Deblocking: pic,
		Slices:     []SliceOverride{{QPDelta: -2}, {QPDelta: 3, Deblocking: own}},
	}
	require.Equal(t, SliceOverride{QPDelta: -2, Deblocking: pic}, task.Override(0))
	require.Equal(t, SliceOverride{QPDelta: 3, Deblocking: own}, task.Override(1))
	require.Equal(t, SliceOverride{Deblocking: pic}, task.Override(2))

	require.False(t, task.NeedsHeaders())
	task.InsertHeaders = true
	require.True(t, task.NeedsHeaders())

	require.Equal(t, uint32(13), task.PicOrderCntLsb(4))
}

func TestConfigYAML(t *testing.T) {
	t.Parallel()

	src := `
width: 1920
height: 1080
frameRateN: 30
rateControlMethod: vbr
targetKbps: 4000
mbbrc: adaptive
cavlc: "off"
picStruct: 2
roi:
  - {left: 0, top: 0, right: 64, bottom: 64, deltaQP: -4}
movingRects:
  - {left: 16, top: 16, right: 32, bottom: 32, sourceLeft: 0, sourceTop: 0}
videoSignal:
  present: "on"
  colourPrimaries: 1
`
	var c Config
	require.NoError(t, yaml.Unmarshal([]byte(src), &c))
	require.Equal(t, uint32(1920), c.Width)
	require.Equal(t, RCVBR, c.RateControlMethod)
	require.Equal(t, Adaptive, c.MBBRC)
	require.Equal(t, Off, c.CAVLC)
	require.Equal(t, PicStructFieldTFF, c.PicStruct)
	require.Equal(t, []Rect{{Right: 64, Bottom: 64, DeltaQP: -4}}, c.ROI)
	require.Equal(t, uint32(16), c.MovingRects[0].Left)
	require.Equal(t, On, c.VideoSignal.Present)
	require.Equal(t, uint8(1), c.VideoSignal.ColourPrimaries)

	out, err := yaml.Marshal(&c)
	require.NoError(t, err)
	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, c, back)
}
