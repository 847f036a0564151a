package h264

import (
	"bytes"
	"fmt"

	"github.com/ugparu/avchw/encoder/h264/params"
)

// CheckReset decides whether an encoder initialised with old can switch to next
// without a full re-initialisation. Both must be canonical for caps. Changes that
// need new surfaces, a new look-ahead pipeline or a new HRD model are
// Incompatible. newHeaders reports whether the SPS or PPS change, in which case
// the next picture must be an IDR carrying them.
func CheckReset(old, next *params.Config, caps *params.Caps) (newHeaders bool, out *Outcome) {
	c := &checker{cfg: next, caps: caps, rule: "reset", locked: map[string]bool{}}
	grows := func(field string, from, to uint32, reason Reason) {
		if to > from {
			c.incompatible(field, reason, fmt.Sprintf("grows from %d to %d", from, to), nil)
		}
	}
	differs := func(field string, changed bool, reason Reason) {
		if changed {
			c.incompatible(field, reason, "cannot change without re-initialisation", nil)
		}
	}

	grows("Width", old.Width, next.Width, ReasonAlignment)
	grows("Height", old.Height, next.Height, ReasonAlignment)
	differs("ChromaFormat", old.ChromaFormat != next.ChromaFormat, ReasonRange)
	differs("PicStruct", old.PicStruct.Interlaced() != next.PicStruct.Interlaced(), ReasonRange)
	differs("RateControlMethod", old.RateControlMethod != next.RateControlMethod &&
		(old.HasHRD() || next.HasHRD()), ReasonRateControl|ReasonHRD)
	grows("GopRefDist", old.GopRefDist, next.GopRefDist, ReasonGop)
	grows("NumRefFrame", old.NumRefFrame, next.NumRefFrame, ReasonReferences)
	differs("LookAheadDepth", old.LookAheadDepth != next.LookAheadDepth, ReasonRateControl)
	differs("LowPower", old.LowPower != next.LowPower, ReasonHardware)
	differs("SPSBuffer", old.HasExternalHeaders() != next.HasExternalHeaders(), ReasonExternalHeader)

	if c.out.Status.Fatal() {
		return false, &c.out
	}
	return headersChanged(old, next), &c.out
}

func headersChanged(old, next *params.Config) bool {
	if old.HasExternalHeaders() {
		return !bytes.Equal(old.SPSBuffer, next.SPSBuffer) || !bytes.Equal(old.PPSBuffer, next.PPSBuffer)
	}
	return !bytes.Equal(BuildSPS(old).Marshal(true).Data, BuildSPS(next).Marshal(true).Data) ||
		!bytes.Equal(BuildPPS(old).Marshal(true).Data, BuildPPS(next).Marshal(true).Data)
}
