package h264

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/encoder/h264/ratecontrol"
)

// rcFallback maps a method the device lacks onto the closest one without the
// missing feature (usually look-ahead).
var rcFallback = map[params.RateControlMethod]params.RateControlMethod{
	params.RCLA:    params.RCVBR,
	params.RCLAICQ: params.RCICQ,
	params.RCLAHRD: params.RCCBR,
	params.RCAVBR:  params.RCVBR,
	params.RCQVBR:  params.RCVBR,
	params.RCVCM:   params.RCVBR,
}

var rcDefaults = []params.RateControlMethod{params.RCCBR, params.RCVBR, params.RCCQP}

func checkRateControlMethod(c *checker) {
	cfg := c.cfg
	m := cfg.RateControlMethod
	switch {
	case m == params.RCUnknown:
		if c.query {
			return
		}
		if d, ok := lo.Find(rcDefaults, c.caps.SupportsRC); ok {
			fill(c, "RateControlMethod", &cfg.RateControlMethod, d)
			return
		}
		c.unsupported("RateControlMethod", ReasonHardware, "device implements no rate control")
	case !m.Valid():
		c.unsupported("RateControlMethod", ReasonRateControl, fmt.Sprintf("unknown method %d", m))
	case !c.caps.SupportsRC(m):
		if fb, ok := rcFallback[m]; ok && c.caps.SupportsRC(fb) {
			set(c, "RateControlMethod", &cfg.RateControlMethod, fb, ReasonRateControl|ReasonHardware)
			return
		}
		c.unsupported("RateControlMethod", ReasonHardware, m.String())
	}
}

//nolint:gocyclo,cyclop,funlen // one branch per rate control parameter
func checkRateControlParams(c *checker) {
	cfg := c.cfg
	m := cfg.RateControlMethod
	if m == params.RCUnknown || !m.Valid() {
		return
	}

	if m == params.RCCQP {
		checkConstantQP(c)
	} else {
		for _, f := range []struct {
			name string
			p    *uint8
		}{{"QPI", &cfg.QPI}, {"QPP", &cfg.QPP}, {"QPB", &cfg.QPB}} {
			set(c, f.name, f.p, 0, ReasonRateControl)
		}
	}

	switch {
	case m.IsBitrateDriven():
		if cfg.TargetKbps == 0 && !c.query {
			c.unsupported("TargetKbps", ReasonMandatory, "not set")
		}
		if m == params.RCCBR && cfg.MaxKbps != 0 {
			set(c, "MaxKbps", &cfg.MaxKbps, cfg.TargetKbps, ReasonRateControl)
		}
		if cfg.MaxKbps != 0 && cfg.MaxKbps < cfg.TargetKbps {
			set(c, "MaxKbps", &cfg.MaxKbps, cfg.TargetKbps, ReasonRateControl)
		}
	case m != params.RCCQP:
		set(c, "TargetKbps", &cfg.TargetKbps, 0, ReasonRateControl)
		set(c, "MaxKbps", &cfg.MaxKbps, 0, ReasonRateControl)
	}

	if m == params.RCAVBR {
		if cfg.Accuracy > maxAccuracy {
			set(c, "Accuracy", &cfg.Accuracy, maxAccuracy, ReasonRange)
		}
		fill(c, "Accuracy", &cfg.Accuracy, defaultAccuracy)
		fill(c, "Convergence", &cfg.Convergence, defaultConvergence)
	} else {
		set(c, "Accuracy", &cfg.Accuracy, 0, ReasonRateControl)
		set(c, "Convergence", &cfg.Convergence, 0, ReasonRateControl)
	}

	checkQuality(c, "ICQQuality", &cfg.ICQQuality, m == params.RCICQ || m == params.RCLAICQ, defaultICQQuality)
	checkQuality(c, "QVBRQuality", &cfg.QVBRQuality, m == params.RCQVBR, defaultQVBRQuality)

	if m.IsLookAhead() {
		if cfg.LookAheadDepth != 0 {
			set(c, "LookAheadDepth", &cfg.LookAheadDepth,
				lo.Clamp(cfg.LookAheadDepth, minLookAhead, maxLookAhead), ReasonRange)
		}
		if cfg.LookAheadDS > params.LookAheadDS4x {
			set(c, "LookAheadDS", &cfg.LookAheadDS, params.LookAheadDSUnknown, ReasonRange)
		}
		fill(c, "LookAheadDepth", &cfg.LookAheadDepth, defaultLookAhead)
		fill(c, "LookAheadDS", &cfg.LookAheadDS, params.LookAheadDS2x)
	} else {
		set(c, "LookAheadDepth", &cfg.LookAheadDepth, 0, ReasonRateControl)
		set(c, "LookAheadDS", &cfg.LookAheadDS, params.LookAheadDSUnknown, ReasonRateControl)
	}

	if cfg.BufferSizeInKB != 0 && cfg.InitialDelayInKB > cfg.BufferSizeInKB {
		set(c, "InitialDelayInKB", &cfg.InitialDelayInKB, cfg.BufferSizeInKB, ReasonRateControl)
	}

	if cfg.MBBRC.IsOn() || cfg.MBBRC == params.Adaptive {
		switch {
		case !c.caps.MBBRCSupport:
			set(c, "MBBRC", &cfg.MBBRC, params.Off, ReasonHardware)
		case m == params.RCCQP:
			set(c, "MBBRC", &cfg.MBBRC, params.Off, ReasonRateControl)
		}
	}
	if cfg.LowDelayBRC.IsOn() && (!c.caps.LowDelayBRC || m == params.RCCQP) {
		set(c, "LowDelayBRC", &cfg.LowDelayBRC, params.Off, ReasonHardware)
	}
	if cfg.ExtBRC.IsOn() && m != params.RCCBR && m != params.RCVBR {
		set(c, "ExtBRC", &cfg.ExtBRC, params.Off, ReasonRateControl)
	}

	if !c.caps.UserMaxFrameSize || m == params.RCCQP {
		set(c, "MaxFrameSize", &cfg.MaxFrameSize, 0, ReasonHardware)
		set(c, "MaxFrameSizeI", &cfg.MaxFrameSizeI, 0, ReasonHardware)
		set(c, "MaxFrameSizeP", &cfg.MaxFrameSizeP, 0, ReasonHardware)
	}

	if m == params.RCVBR || m == params.RCQVBR {
		if cfg.WinBRCMaxAvgKbps != 0 && cfg.WinBRCMaxAvgKbps < cfg.TargetKbps {
			set(c, "WinBRCMaxAvgKbps", &cfg.WinBRCMaxAvgKbps, cfg.TargetKbps, ReasonRateControl)
		}
	} else {
		set(c, "WinBRCSize", &cfg.WinBRCSize, 0, ReasonRateControl)
		set(c, "WinBRCMaxAvgKbps", &cfg.WinBRCMaxAvgKbps, 0, ReasonRateControl)
	}

	checkQPRange(c)
}

func checkConstantQP(c *checker) {
	cfg := c.cfg
	for _, f := range []struct {
		name string
		p    *uint8
		def  uint8
	}{{"QPI", &cfg.QPI, defaultQPI}, {"QPP", &cfg.QPP, defaultQPP}, {"QPB", &cfg.QPB, defaultQPB}} {
		if *f.p > maxQP {
			set(c, f.name, f.p, maxQP, ReasonRange)
		}
		fill(c, f.name, f.p, f.def)
	}
	set(c, "TargetKbps", &cfg.TargetKbps, 0, ReasonRateControl)
	set(c, "MaxKbps", &cfg.MaxKbps, 0, ReasonRateControl)
	set(c, "BufferSizeInKB", &cfg.BufferSizeInKB, 0, ReasonRateControl)
	set(c, "InitialDelayInKB", &cfg.InitialDelayInKB, 0, ReasonRateControl)
	for _, f := range qpBounds(cfg) {
		set(c, f.name, f.p, 0, ReasonRateControl)
	}
}

func checkQuality(c *checker, name string, p *uint32, used bool, def uint32) {
	if !used {
		set(c, name, p, 0, ReasonRateControl)
		return
	}
	if *p > maxQP {
		set(c, name, p, maxQP, ReasonRange)
	}
	fill(c, name, p, def)
}

type qpBound struct {
	name string
	p    *uint8
}

func qpBounds(cfg *params.Config) []qpBound {
	return []qpBound{
		{"MinQPI", &cfg.MinQPI}, {"MinQPP", &cfg.MinQPP}, {"MinQPB", &cfg.MinQPB},
		{"MaxQPI", &cfg.MaxQPI}, {"MaxQPP", &cfg.MaxQPP}, {"MaxQPB", &cfg.MaxQPB},
	}
}

// checkQPRange clamps the BRC QP bounds; a zero bound is unbounded.
func checkQPRange(c *checker) {
	b := qpBounds(c.cfg)
	for _, f := range b {
		if *f.p > maxQP {
			set(c, f.name, f.p, maxQP, ReasonRange)
		}
	}
	for i := range 3 {
		lower, upper := b[i], b[i+3]
		if *upper.p != 0 && *lower.p > *upper.p {
			set(c, lower.name, lower.p, *upper.p, ReasonRange)
		}
	}
}

// checkHRD keeps HRD signalling to methods that honour a CPB.
func checkHRD(c *checker) {
	cfg := c.cfg
	m := cfg.RateControlMethod
	if m == params.RCUnknown || !m.Valid() {
		return
	}
	conformant := m.IsHRDConformant()
	if !conformant {
		set(c, "NalHrdConformance", &cfg.NalHrdConformance, off(cfg.NalHrdConformance), ReasonHRD)
	}
	if !conformant || cfg.NalHrdConformance.IsOff() || cfg.DisableVUI.IsOn() {
		set(c, "VuiNalHrdParameters", &cfg.VuiNalHrdParameters, off(cfg.VuiNalHrdParameters), ReasonHRD)
		set(c, "VuiVclHrdParameters", &cfg.VuiVclHrdParameters, off(cfg.VuiVclHrdParameters), ReasonHRD)
	}
	fill(c, "DisableVUI", &cfg.DisableVUI, params.Off)
	fill(c, "NalHrdConformance", &cfg.NalHrdConformance, params.Bool(conformant))
	fill(c, "VuiNalHrdParameters", &cfg.VuiNalHrdParameters,
		params.Bool(cfg.NalHrdConformance.IsOn() && !cfg.DisableVUI.IsOn()))
	fill(c, "VuiVclHrdParameters", &cfg.VuiVclHrdParameters, params.Off)
}

// off turns On into Off and leaves Unknown for the defaults pass.
func off(t params.TriState) params.TriState {
	if t.IsOn() {
		return params.Off
	}
	return t
}

// deriveRateControl fills bitrate, buffer and level from what the caller set.
func deriveRateControl(c *checker) {
	before := *c.cfg
	for _, f := range ratecontrol.Derive(c.cfg) {
		from, to := derivedValue(&before, f), derivedValue(c.cfg, f)
		if c.locked[string(f)] {
			c.incompatible(string(f), ReasonExternalHeader, fmt.Sprintf("needs %v", to), nil)
			continue
		}
		c.record(string(f), ReasonRateControl, from, to)
	}
}

func derivedValue(cfg *params.Config, f ratecontrol.Field) any {
	switch f {
	case ratecontrol.FieldMaxKbps:
		return cfg.MaxKbps
	case ratecontrol.FieldBufferSizeInKB:
		return cfg.BufferSizeInKB
	case ratecontrol.FieldInitialDelayInKB:
		return cfg.InitialDelayInKB
	case ratecontrol.FieldLevel:
		return cfg.Level
	}
	return nil
}
