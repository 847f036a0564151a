package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/ugparu/avchw/codec/h264"
	encoder "github.com/ugparu/avchw/encoder/h264"
	"github.com/ugparu/avchw/utils/nal"
)

const vbr1080p = `
width: 1920
height: 1080
frameRateN: 30
frameRateD: 1
profile: 100
rateControlMethod: vbr
targetKbps: %d
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func vbrConfig(t *testing.T, kbps string) string {
	t.Helper()
	return writeFile(t, "cfg.yaml", strings.Replace(vbr1080p, "%d", kbps, 1))
}

func execute(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd := newRootCmd(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.Bytes(), err
}

//nolint:paralleltest // commands reset the global logger
func TestCanonCommand(t *testing.T) {
	out, err := execute(t, "canon", vbrConfig(t, "4000"))
	require.NoError(t, err)

	var report struct {
		Config struct {
			Height uint32 `json:"height"`
			CropH  uint32 `json:"cropH"`
			Level  uint16 `json:"level"`
		} `json:"config"`
		Outcome struct {
			Status string `json:"status"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(out, &report))
	require.Equal(t, "AcceptedWithCorrection", report.Outcome.Status)
	require.Equal(t, uint32(1088), report.Config.Height)
	require.Equal(t, uint32(1080), report.Config.CropH)
	require.Equal(t, uint16(40), report.Config.Level)
}

//nolint:paralleltest // commands reset the global logger
func TestCanonCommandRejects(t *testing.T) {
	cfg := writeFile(t, "cfg.yaml", "height: 1080\nframeRateN: 30\nrateControlMethod: cqp\n")
	out, err := execute(t, "canon", cfg)
	require.ErrorContains(t, err, "unsupported")
	require.Contains(t, string(out), `"Unsupported"`)

	_, err = execute(t, "canon", "--caps", "gen7", cfg)
	require.ErrorContains(t, err, "gen7")
}

//nolint:paralleltest // commands reset the global logger
func TestHeadersProbe(t *testing.T) {
	annexB, err := execute(t, "headers", vbrConfig(t, "4000"))
	require.NoError(t, err)

	units := unitsByType(annexB)
	require.Contains(t, units, byte(h264.NaluSPS))
	require.Contains(t, units, byte(h264.NaluPPS))

	out, err := execute(t, "probe", writeFile(t, "hdr.264", string(annexB)))
	require.NoError(t, err)
	var info streamInfo
	require.NoError(t, json.Unmarshal(out, &info))
	require.Equal(t, uint(1920), info.Width)
	require.Equal(t, uint(1080), info.Height)
	require.Equal(t, uint(30), info.FPS)
	require.Equal(t, "4", info.Level)
	require.True(t, strings.HasPrefix(info.Tag, "avc1.64"), info.Tag)
	require.True(t, info.CABAC)
	for _, u := range info.Units {
		require.Empty(t, u.Error)
	}

	record, err := execute(t, "headers", "--avcc", vbrConfig(t, "4000"))
	require.NoError(t, err)
	par, err := h264.NewCodecDataFromAVCDecoderConfRecord(record)
	require.NoError(t, err)
	require.Equal(t, info.Tag, par.Tag())
}

//nolint:paralleltest // commands reset the global logger
func TestHeadersVerbatim(t *testing.T) {
	annexB, err := execute(t, "headers", vbrConfig(t, "4000"))
	require.NoError(t, err)
	hdr := writeFile(t, "hdr.264", string(annexB))

	out, err := execute(t, "headers", "--sps", hdr, "--pps", hdr, vbrConfig(t, "4000"))
	require.NoError(t, err)
	want, got := unitsByType(annexB), unitsByType(out)
	require.Equal(t, want[h264.NaluSPS], got[h264.NaluSPS])
	require.Equal(t, want[h264.NaluPPS], got[h264.NaluPPS])

	_, err = execute(t, "headers", "--sps", writeFile(t, "empty.264", "\x00\x00\x00\x01\x09\xf0"), vbrConfig(t, "4000"))
	require.ErrorIs(t, err, encoder.ErrIncompatible)
}

func unitsByType(b []byte) map[byte][]byte {
	nalus, _ := nal.SplitNALUs(b)
	return lo.SliceToMap(nalus, func(n []byte) (byte, []byte) { return nal.Type(n), n })
}

//nolint:paralleltest // commands reset the global logger
func TestProbeWithoutParameterSets(t *testing.T) {
	out, err := execute(t, "probe", writeFile(t, "aud.264", string(h264.MarshalAUD(h264.PrimaryPicI).Data)))
	require.Error(t, err)
	var info streamInfo
	require.NoError(t, json.Unmarshal(out, &info))
	require.Len(t, info.Units, 1)
	require.Equal(t, byte(h264.NaluAUD), info.Units[0].Type)
}

//nolint:paralleltest // commands reset the global logger
func TestResetCommand(t *testing.T) {
	out, err := execute(t, "reset", vbrConfig(t, "4000"), vbrConfig(t, "5000"))
	require.NoError(t, err)
	var report struct {
		NewHeaders bool `json:"newHeaders"`
		Outcome    struct {
			Status string `json:"status"`
		} `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(out, &report))
	require.True(t, report.NewHeaders)
	require.Equal(t, "Accepted", report.Outcome.Status)
}

func TestLoadCaps(t *testing.T) {
	t.Parallel()

	caps, err := loadCaps("gen9")
	require.NoError(t, err)
	require.False(t, caps.LowPower)

	caps, err = loadCaps(writeFile(t, "caps.yaml", "preset: gen12-lp\nmaxNumSlices: 2\n"))
	require.NoError(t, err)
	require.True(t, caps.LowPower)
	require.Equal(t, uint32(2), caps.MaxNumSlices)

	_, err = loadCaps(writeFile(t, "caps.yaml", "preset: gen8\n"))
	require.Error(t, err)
	_, err = loadCaps(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
