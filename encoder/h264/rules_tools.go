package h264

import (
	"github.com/samber/lo"
	"github.com/ugparu/avchw/encoder/h264/params"
)

const (
	maxDeblockingIdc = 2
	maxIntRefQPDelta = 51
)

//nolint:gocyclo,cyclop // one branch per coding tool
func checkCodingTools(c *checker) {
	cfg := c.cfg

	if !cfg.CAVLC.IsOn() && cfg.CAVLC != params.Unknown {
		switch {
		case c.caps.NoCABAC:
			c.unsupported("CAVLC", ReasonHardware, "device has no CABAC encoder")
		case c.baseline():
			set(c, "CAVLC", &cfg.CAVLC, params.On, ReasonProfile)
		}
	}
	fill(c, "CAVLC", &cfg.CAVLC, params.Bool(c.cavlc()))

	if cfg.Transform8x8.IsOn() && !c.profile().IsHigh() {
		set(c, "Transform8x8", &cfg.Transform8x8, params.Off, ReasonProfile)
	}
	fill(c, "Transform8x8", &cfg.Transform8x8, params.Bool(c.transform8x8()))

	if m := cfg.ScalingMatrix; m != nil {
		var reason Reason
		switch {
		case !c.caps.ScalingMatrix:
			reason = ReasonHardware
		case !c.profile().IsHigh():
			reason = ReasonProfile
		case !m.Valid():
			reason = ReasonRange
		}
		if reason != 0 {
			c.replace("ScalingMatrix", reason, "custom", nil, func() { cfg.ScalingMatrix = nil })
		}
	}

	checkWeightedPred(c, "WeightedPred", &cfg.WeightedPred, false)
	checkWeightedPred(c, "WeightedBiPred", &cfg.WeightedBiPred, true)

	if !cfg.Trellis.Valid() {
		set(c, "Trellis", &cfg.Trellis, params.TrellisUnknown, ReasonRange)
	}
	if cfg.Trellis != params.TrellisUnknown && cfg.Trellis != params.TrellisOff && !c.caps.TrellisSupport {
		set(c, "Trellis", &cfg.Trellis, params.TrellisOff, ReasonHardware)
	}
	fill(c, "Trellis", &cfg.Trellis, params.TrellisOff)

	if cfg.DisableDeblockingIdc > maxDeblockingIdc {
		set(c, "DisableDeblockingIdc", &cfg.DisableDeblockingIdc, 0, ReasonRange)
	}

	lookAhead := cfg.RateControlMethod.IsLookAhead()
	if (cfg.AdaptiveI.IsOn() || cfg.AdaptiveI == params.Adaptive) && !lookAhead {
		set(c, "AdaptiveI", &cfg.AdaptiveI, params.Off, ReasonRateControl)
	}
	if cfg.AdaptiveB.IsOn() || cfg.AdaptiveB == params.Adaptive {
		switch {
		case !lookAhead:
			set(c, "AdaptiveB", &cfg.AdaptiveB, params.Off, ReasonRateControl)
		case c.gopRefDist() < 2: //nolint:mnd
			set(c, "AdaptiveB", &cfg.AdaptiveB, params.Off, ReasonGop)
		}
	}

	if cfg.TargetUsage > maxTargetUsage {
		set(c, "TargetUsage", &cfg.TargetUsage, defaultTargetUsage, ReasonRange)
	}
	fill(c, "TargetUsage", &cfg.TargetUsage, defaultTargetUsage)
}

// checkWeightedPred validates weighted_pred_flag (P) or weighted_bipred_idc (B).
// Implicit weights exist for B slices only.
func checkWeightedPred(c *checker, name string, p *params.WeightedPred, bipred bool) {
	switch {
	case *p > params.WeightedPredImplicit:
		set(c, name, p, params.WeightedPredUnknown, ReasonRange)
	case *p == params.WeightedPredImplicit && !bipred:
		set(c, name, p, params.WeightedPredDefault, ReasonCodingTool)
	}
	if *p == params.WeightedPredExplicit || *p == params.WeightedPredImplicit {
		switch {
		case c.baseline():
			set(c, name, p, params.WeightedPredDefault, ReasonProfile)
		case bipred && c.noBFrames():
			set(c, name, p, params.WeightedPredDefault, ReasonGop)
		case *p == params.WeightedPredExplicit && c.caps.NoWeightedPred:
			c.unsupported(name, ReasonHardware, "explicit weighted prediction")
		}
	}
	fill(c, name, p, params.WeightedPredDefault)
}

func checkIntraRefresh(c *checker) {
	cfg := c.cfg
	if cfg.IntRefType > params.IntRefSlice {
		set(c, "IntRefType", &cfg.IntRefType, params.IntRefNone, ReasonRange)
	}
	if cfg.IntRefType == params.IntRefNone {
		set(c, "IntRefCycleSize", &cfg.IntRefCycleSize, 0, ReasonCodingTool)
		set(c, "IntRefCycleDist", &cfg.IntRefCycleDist, 0, ReasonCodingTool)
		set(c, "IntRefQPDelta", &cfg.IntRefQPDelta, 0, ReasonCodingTool)
		return
	}
	if !c.caps.IntraRefresh {
		c.unsupported("IntRefType", ReasonHardware, "intra refresh")
		return
	}
	if cfg.IntRefCycleSize != 0 && cfg.IntRefCycleSize < minIntRefCycleSize {
		set(c, "IntRefCycleSize", &cfg.IntRefCycleSize, minIntRefCycleSize, ReasonRange)
	}
	fill(c, "IntRefCycleSize", &cfg.IntRefCycleSize, minIntRefCycleSize)
	if cfg.IntRefCycleDist != 0 && cfg.IntRefCycleDist < cfg.IntRefCycleSize {
		set(c, "IntRefCycleDist", &cfg.IntRefCycleDist, cfg.IntRefCycleSize, ReasonRange)
	}
	set(c, "IntRefQPDelta", &cfg.IntRefQPDelta,
		lo.Clamp(cfg.IntRefQPDelta, -maxIntRefQPDelta, maxIntRefQPDelta), ReasonRange)
}

// checkMBControl rejects per-macroblock controls the device cannot apply.
func checkMBControl(c *checker) {
	cfg := c.cfg
	if cfg.SkipFrame > params.SkipFrameBRCOnly {
		set(c, "SkipFrame", &cfg.SkipFrame, params.SkipFrameNone, ReasonRange)
	}
	if cfg.SkipFrame != params.SkipFrameNone && !c.caps.SkipFrameSupport {
		c.unsupported("SkipFrame", ReasonHardware, "frame skipping")
	}
	for _, f := range []struct {
		name string
		v    params.TriState
		ok   bool
	}{
		{"EnableMBQP", cfg.EnableMBQP, c.caps.MBQPSupport},
		{"EnableMBForceIntra", cfg.EnableMBForceIntra, c.caps.ForceIntraSupport},
		{"MBDisableSkipMap", cfg.MBDisableSkipMap, c.caps.SkipMapSupport},
	} {
		if f.v.IsOn() && !f.ok {
			c.unsupported(f.name, ReasonHardware, "macroblock control map")
		}
	}
}
