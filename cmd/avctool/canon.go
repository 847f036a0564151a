package main

import (
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/ugparu/avchw/encoder/h264"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/utils/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type canonReport struct {
	Config  params.Config `json:"config"`
	Outcome *h264.Outcome `json:"outcome"`
}

type resetReport struct {
	NewHeaders bool          `json:"newHeaders"`
	Outcome    *h264.Outcome `json:"outcome"`
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// canonicalize loads cfgPath and runs it through the rules for the selected device.
func (o *options) canonicalize(cfgPath string, query bool) (params.Config, *params.Caps, *h264.Outcome, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	if err = loadHeaders(&cfg, o.sps, o.pps); err != nil {
		return cfg, nil, nil, err
	}
	caps, err := loadCaps(o.caps)
	if err != nil {
		return cfg, nil, nil, err
	}
	platform, err := params.ParsePlatform(o.platform)
	if err != nil {
		return cfg, nil, nil, err
	}

	var out *h264.Outcome
	if query {
		cfg, out = h264.Query(cfg, &caps, platform)
	} else {
		cfg, out = h264.Canonicalize(cfg, &caps, platform)
	}
	logger.Infof("avctool", "%s: %s, %d corrections", cfgPath, out.Status, len(out.Corrections))
	return cfg, &caps, out, nil
}

func doCanon(w io.Writer, o *options, cfgPath string, query bool) error {
	cfg, _, out, err := o.canonicalize(cfgPath, query)
	if err != nil {
		return err
	}
	if err = writeJSON(w, canonReport{Config: cfg, Outcome: out}); err != nil {
		return err
	}
	return out.Err()
}

func doReset(w io.Writer, o *options, oldPath, nextPath string) error {
	old, caps, out, err := o.canonicalize(oldPath, false)
	if err != nil {
		return err
	}
	if err = out.Err(); err != nil {
		return errors.Wrap(err, oldPath)
	}
	next, _, out, err := o.canonicalize(nextPath, false)
	if err != nil {
		return err
	}
	if err = out.Err(); err != nil {
		return errors.Wrap(err, nextPath)
	}

	newHeaders, out := h264.CheckReset(&old, &next, caps)
	if err = writeJSON(w, resetReport{NewHeaders: newHeaders, Outcome: out}); err != nil {
		return err
	}
	return out.Err()
}
