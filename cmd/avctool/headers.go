package main

import (
	"io"

	codec "github.com/ugparu/avchw/codec/h264"
	"github.com/ugparu/avchw/encoder/h264"
	"github.com/ugparu/avchw/encoder/h264/params"
)

// doHeaders writes the parameter sets of a canonical configuration, either as
// the Annex B header units of an IDR access unit or as an avcC record.
func doHeaders(w io.Writer, o *options, cfgPath string, avcc bool) error {
	cfg, caps, out, err := o.canonicalize(cfgPath, false)
	if err != nil {
		return err
	}
	if err = out.Err(); err != nil {
		return err
	}

	p, err := h264.NewPacker(&cfg, caps)
	if err != nil {
		return err
	}

	if avcc {
		par, err := p.CodecParameters()
		if err != nil {
			return err
		}
		_, err = w.Write(par.AVCDecoderConfRecordBytes())
		return err
	}

	idr := &params.FrameTask{Type: params.FrameI | params.FrameIDR}
	_, err = w.Write(codec.JoinAccessUnit(p.PackAccessUnitHeaders(idr)))
	return err
}
