// Package h264 validates H.264 encode configurations against device
// capabilities and Annex A, and packs the headers of the resulting stream.
package h264

import (
	"fmt"

	"github.com/ugparu/avchw/codec/h264/limits"
	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/utils/logger"
)

// checker carries one canonicalization pass. Rules read and write cfg in place;
// cfg is always a private clone of the caller's configuration.
type checker struct {
	cfg      *params.Config
	caps     *params.Caps
	platform params.Platform
	query    bool
	rule     string
	locked   map[string]bool
	ext      *external
	out      Outcome
}

func (c *checker) String() string {
	return "h264.Canonicalize"
}

// rule is one local check. Rules run in the order of the rules slice and later
// rules see the corrections of earlier ones.
type rule struct {
	name string
	// fill marks rules that only run when defaults are resolved (not in Query).
	fill  bool
	apply func(c *checker)
}

var rules = []rule{
	{name: "tristate", apply: checkTriStates},
	{name: "chroma", apply: checkChroma},
	{name: "profile", apply: checkProfile},
	{name: "picstruct", apply: checkPicStruct},
	{name: "resolution", apply: checkResolution},
	{name: "alignment", apply: checkAlignment},
	{name: "crop", apply: checkCrop},
	{name: "framerate", apply: checkFrameRate},
	{name: "lowpower", apply: checkLowPower},
	{name: "ratecontrol.method", apply: checkRateControlMethod},
	{name: "ratecontrol.params", apply: checkRateControlParams},
	{name: "hrd", apply: checkHRD},
	{name: "temporallayers", apply: checkTemporalLayers},
	{name: "gop", apply: checkGop},
	{name: "references", apply: checkReferences},
	{name: "slices", apply: checkSlices},
	{name: "codingtools", apply: checkCodingTools},
	{name: "intrarefresh", apply: checkIntraRefresh},
	{name: "mbcontrol", apply: checkMBControl},
	{name: "regions", apply: checkRegions},
	{name: "ratecontrol.derive", fill: true, apply: deriveRateControl},
	{name: "level", apply: checkLevel},
	{name: "vui", apply: checkVUI},
	{name: "defaults", fill: true, apply: fillTriStates},
}

// Canonicalize validates cfg against caps and returns the corrected copy. The
// caller's configuration is never modified. Every option left to the encoder is
// resolved, so the result is a fixed point: canonicalizing it again yields Accepted.
func Canonicalize(cfg params.Config, caps *params.Caps, platform params.Platform) (params.Config, *Outcome) {
	return run(cfg, caps, platform, false)
}

// Query runs the same rules without requiring mandatory fields and without
// resolving defaults. It reports what the device would change or reject.
func Query(cfg params.Config, caps *params.Caps, platform params.Platform) (params.Config, *Outcome) {
	return run(cfg, caps, platform, true)
}

func run(cfg params.Config, caps *params.Caps, platform params.Platform, query bool) (params.Config, *Outcome) {
	out := cfg.Clone()
	c := &checker{
		cfg:      &out,
		caps:     caps,
		platform: platform,
		query:    query,
		locked:   make(map[string]bool),
	}
	if cfg.HasExternalHeaders() && !c.adoptExternalHeaders() {
		return out, &c.out
	}
	for _, r := range rules {
		if r.fill && query {
			continue
		}
		c.rule = r.name
		r.apply(c)
	}
	if c.out.Status.Fatal() {
		logger.Warningf(c, "%s: %v", c.out.Status, c.out.Err())
	}
	return out, &c.out
}

// set assigns v to *p, recording a correction. Fields implied by caller supplied
// headers cannot change; trying to is Incompatible. It reports whether *p holds v.
func set[T comparable](c *checker, field string, p *T, v T, reason Reason) bool {
	if *p == v {
		return true
	}
	if c.locked[field] {
		c.incompatible(field, ReasonExternalHeader, fmt.Sprintf("needs %v, caller headers carry %v", v, *p), nil)
		return false
	}
	c.record(field, reason, *p, v)
	*p = v
	return true
}

// fill assigns a default to an unset field. Query never fills.
func fill[T comparable](c *checker, field string, p *T, v T) {
	var zero T
	if c.query || *p != zero {
		return
	}
	set(c, field, p, v, ReasonDefault)
}

// replace is set for values that are not comparable.
func (c *checker) replace(field string, reason Reason, from, to any, apply func()) {
	if c.locked[field] {
		c.incompatible(field, ReasonExternalHeader, "caller headers fix this value", nil)
		return
	}
	c.record(field, reason, from, to)
	apply()
}

func (c *checker) record(field string, reason Reason, from, to any) {
	logger.Debugf(c, "%s: %s %v -> %v (%s)", c.rule, field, from, to, reason)
	c.out.correct(Correction{
		Rule:   c.rule,
		Field:  field,
		Reason: reason,
		From:   fmt.Sprint(from),
		To:     fmt.Sprint(to),
	})
}

func (c *checker) unsupported(field string, reason Reason, detail string) {
	logger.Warningf(c, "%s: %s unsupported: %s", c.rule, field, detail)
	c.out.reject(Rejection{Rule: c.rule, Field: field, Reason: reason, Status: Unsupported, Detail: detail})
}

func (c *checker) incompatible(field string, reason Reason, detail string, err error) {
	logger.Warningf(c, "%s: %s incompatible: %s", c.rule, field, detail)
	c.out.reject(Rejection{
		Rule:   c.rule,
		Field:  field,
		Reason: reason,
		Status: Incompatible,
		Detail: detail,
		Err:    err,
	})
}

// Effective values: what the encoder will use for a field, whether or not the
// caller set it.

func (c *checker) profile() limits.Profile {
	if c.cfg.Profile == limits.ProfileUnknown {
		return limits.ProfileHigh
	}
	return c.cfg.Profile
}

func (c *checker) baseline() bool {
	return c.profile().Base() == limits.ProfileBaseline
}

func (c *checker) lowPower() bool {
	if c.cfg.LowPower == params.Unknown {
		return c.caps.LowPower
	}
	return c.cfg.LowPower.IsOn()
}

func (c *checker) interlaced() bool {
	return c.cfg.PicStruct.Interlaced()
}

// noBFrames reports whether B frames are ruled out by the device or profile.
func (c *checker) noBFrames() bool {
	if c.caps.IPOnly() || c.baseline() {
		return true
	}
	// VDEnc before Gen12 has no B frame support.
	return c.lowPower() && (c.platform == params.PlatformGen9 || c.platform == params.PlatformGen11)
}

func (c *checker) gopRefDist() uint32 {
	if c.cfg.GopRefDist != 0 {
		return c.cfg.GopRefDist
	}
	if c.noBFrames() {
		return 1
	}
	d := uint32(defaultGopRefDist)
	if c.cfg.GopPicSize != 0 {
		d = min(d, c.cfg.GopPicSize)
	}
	return d
}

func (c *checker) numRefFrame() uint32 {
	if c.cfg.NumRefFrame != 0 {
		return c.cfg.NumRefFrame
	}
	n := uint32(defaultNumRefP)
	if c.gopRefDist() > 1 {
		n = defaultNumRefB
	}
	if c.cfg.Width != 0 && c.cfg.Height != 0 {
		n = min(n, limits.MaxRefFrames(limits.MaxLevel, c.cfg.Width, c.cfg.Height))
	}
	return n
}

func (c *checker) cavlc() bool {
	if c.cfg.CAVLC == params.Unknown {
		return c.caps.NoCABAC || c.baseline()
	}
	return c.cfg.CAVLC.IsOn()
}

func (c *checker) transform8x8() bool {
	if c.cfg.Transform8x8 == params.Unknown {
		return c.profile().IsHigh()
	}
	return c.cfg.Transform8x8.IsOn()
}

// Defaults the encoder resolves for unset fields.
const (
	defaultGopPicSize   = 256
	defaultGopRefDist   = 3
	defaultNumRefP      = 2
	defaultNumRefB      = 3
	defaultTargetUsage  = 4
	defaultQPI          = 26
	defaultQPP          = 28
	defaultQPB          = 30
	defaultICQQuality   = 23
	defaultQVBRQuality  = 26
	defaultAccuracy     = 100
	defaultConvergence  = 100
	defaultLookAhead    = 40
	minLookAhead        = 10
	maxLookAhead        = 100
	maxQP               = 51
	maxGopRefDist       = 16
	maxRefFrames        = 16
	maxAccuracy         = 1000
	maxTargetUsage      = 7
	bitDepth8           = 8
	mbSize              = 16
	fieldPairHeight     = 32
	minIntRefCycleSize  = 2
	minBPyramidRefDist  = 3
	unspecifiedColour   = 2
	unspecifiedVideoFmt = 5
)
