package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/ugparu/avchw/codec/h264"
	"github.com/ugparu/avchw/utils/logger"
	"github.com/ugparu/avchw/utils/nal"
)

type streamInfo struct {
	Profile string `json:"profile,omitempty"`
	Level   string `json:"level,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Width   uint   `json:"width,omitempty"`
	Height  uint   `json:"height,omitempty"`
	FPS     uint   `json:"fps,omitempty"`
	CABAC   bool   `json:"cabac"`

	Units []unitInfo `json:"units"`
}

type unitInfo struct {
	Type   byte     `json:"type"`
	RefIdc byte     `json:"refIdc"`
	Size   int      `json:"size"`
	SEI    []uint32 `json:"sei,omitempty"`

	SliceType    string `json:"sliceType,omitempty"`
	FirstMb      uint32 `json:"firstMb,omitempty"`
	FrameNum     uint32 `json:"frameNum,omitempty"`
	PicOrderLsb  uint32 `json:"picOrderLsb,omitempty"`
	SliceQP      int32  `json:"sliceQP,omitempty"`
	BottomField  bool   `json:"bottomField,omitempty"`
	SliceDataBit int    `json:"sliceDataBit,omitempty"`

	Error string `json:"error,omitempty"`
}

// probe describes every NAL unit of an elementary stream or parameter set
// file. Slice headers are decoded against the last SPS and PPS seen.
func probe(b []byte) (info streamInfo, err error) {
	nalus, _ := nal.SplitNALUs(b)

	var (
		sps            *h264.SPS
		pps            *h264.PPS
		rawSPS, rawPPS []byte
	)
	for _, n := range nalus {
		u := unitInfo{Type: nal.Type(n), RefIdc: nal.RefIdc(n), Size: len(n)}
		var uerr error
		switch u.Type {
		case h264.NaluSPS:
			if sps, uerr = h264.ParseSPS(n); uerr == nil {
				rawSPS = n
			}
		case h264.NaluPPS:
			if pps, uerr = h264.ParsePPS(n); uerr == nil {
				rawPPS = n
			}
		case h264.NaluSEI:
			var msgs []h264.SEIMessage
			if msgs, uerr = h264.ParseSEI(n); uerr == nil {
				u.SEI = lo.Map(msgs, func(m h264.SEIMessage, _ int) uint32 { return m.Type })
			}
		case h264.NaluNonIDR, h264.NaluCodedIDR:
			if sps == nil || pps == nil {
				uerr = errors.New("slice before parameter sets")
				break
			}
			var hdr *h264.SliceHeader
			if hdr, u.SliceDataBit, uerr = h264.ParseSliceHeader(n, sps, pps); uerr == nil {
				u.SliceType = hdr.SliceType.String()
				u.FirstMb = hdr.FirstMbInSlice
				u.FrameNum = hdr.FrameNum
				u.PicOrderLsb = hdr.PicOrderCntLsb
				u.SliceQP = hdr.SliceQP(pps)
				u.BottomField = hdr.BottomField
			}
		}
		if uerr != nil {
			logger.Warningf("probe", "nal type %d: %v", u.Type, uerr)
			u.Error = uerr.Error()
		}
		info.Units = append(info.Units, u)
	}

	if rawSPS == nil || rawPPS == nil {
		return info, errors.New("stream carries no usable SPS and PPS")
	}
	par, err := h264.NewCodecDataFromSPSAndPPS(rawSPS, rawPPS)
	if err != nil {
		return info, err
	}
	info.Profile = par.Profile().String()
	info.Level = par.Level().String()
	info.Tag = par.Tag()
	info.Width = par.Width()
	info.Height = par.Height()
	info.FPS = par.FPS()
	info.CABAC = par.PPSInfo.EntropyCodingMode
	return info, nil
}

func doProbe(w io.Writer, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	info, err := probe(b)
	if werr := writeJSON(w, info); werr != nil {
		return werr
	}
	return err
}
