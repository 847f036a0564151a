package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/ugparu/avchw/encoder/h264/params"
	"gopkg.in/yaml.v3"
)

func loadConfig(path string) (cfg params.Config, err error) {
	var b []byte
	if b, err = os.ReadFile(path); err != nil {
		return
	}
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		err = errors.Wrapf(err, "config %s", path)
	}
	return
}

// loadCaps accepts a preset name or a YAML file. A file may start from a
// preset with a top-level "preset" key and override single fields.
func loadCaps(src string) (caps params.Caps, err error) {
	if caps, err = params.CapsPreset(src); err == nil {
		return
	}
	b, ferr := os.ReadFile(src)
	if ferr != nil {
		err = errors.Errorf("caps %q is neither a preset %v nor a readable file", src, params.CapsPresetNames())
		return
	}

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err = yaml.Unmarshal(b, &head); err != nil {
		err = errors.Wrapf(err, "caps %s", src)
		return
	}
	caps = params.Caps{}
	if head.Preset != "" {
		if caps, err = params.CapsPreset(head.Preset); err != nil {
			return
		}
	}
	if err = yaml.Unmarshal(b, &caps); err != nil {
		err = errors.Wrapf(err, "caps %s", src)
	}
	return
}

// loadHeaders fills the verbatim SPS/PPS buffers from files in any framing.
func loadHeaders(cfg *params.Config, spsPath, ppsPath string) (err error) {
	if spsPath != "" {
		if cfg.SPSBuffer, err = os.ReadFile(spsPath); err != nil {
			return
		}
	}
	if ppsPath != "" {
		cfg.PPSBuffer, err = os.ReadFile(ppsPath)
	}
	return
}
