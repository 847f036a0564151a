package h264

import (
	"fmt"

	"github.com/ugparu/avchw/codec/h264/limits"
)

// profileLadder is searched upwards when the top level cannot carry the bitrate
// or buffer: High allows 25% more than Baseline and Main.
var profileLadder = []limits.Profile{limits.ProfileBaseline, limits.ProfileMain, limits.ProfileHigh}

// checkLevel re-checks every level-bound field. An insufficient level is raised;
// at the top level the DPB is shrunk and then the profile climbed.
func checkLevel(c *checker) {
	cfg := c.cfg
	if cfg.Level == limits.LevelUnknown || cfg.Width == 0 || cfg.Height == 0 {
		return
	}
	d := cfg.Demand()
	d.Profile = c.profile()
	if d.SatisfiedBy(cfg.Level) {
		return
	}
	if need := limits.MinimumLevelForAllParameters(d); d.SatisfiedBy(need) {
		set(c, "Level", &cfg.Level, need, ReasonLevel)
		return
	}

	if dpb := limits.MaxRefFrames(limits.MaxLevel, cfg.Width, cfg.Height); cfg.NumRefFrame > dpb {
		set(c, "NumRefFrame", &cfg.NumRefFrame, dpb, ReasonReferences|ReasonLevel)
		c.clampActiveRefs()
		d.NumRefFrame = cfg.NumRefFrame
	}
	if !d.SatisfiedBy(limits.MaxLevel) && cfg.Profile != limits.ProfileUnknown {
		for _, p := range profileLadder {
			if p.Rank() <= d.Profile.Rank() {
				continue
			}
			d.Profile = p
			if d.SatisfiedBy(limits.MaxLevel) {
				set(c, "Profile", &cfg.Profile, p, ReasonProfile|ReasonLevel)
				break
			}
		}
	}
	if !d.SatisfiedBy(limits.MaxLevel) {
		c.unsupported("Level", ReasonLevel, fmt.Sprintf("%dx%d at %d kbps exceeds level %s",
			cfg.Width, cfg.Height, d.Kbps, limits.MaxLevel))
		return
	}
	need := limits.MinimumLevelForAllParameters(d)
	if !d.SatisfiedBy(need) {
		need = limits.MaxLevel
	}
	set(c, "Level", &cfg.Level, need, ReasonLevel)
}
