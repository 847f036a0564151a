package h264

import (
	"slices"

	"github.com/ugparu/avchw/encoder/h264/params"
	"github.com/ugparu/avchw/encoder/h264/slicediv"
)

// checkTemporalLayers runs ahead of the GOP rules: scalable streams are coded
// without B frames.
func checkTemporalLayers(c *checker) {
	cfg := c.cfg
	layers := cfg.TemporalLayers
	if len(layers) == 0 {
		return
	}
	if n := int(c.caps.MaxTemporalLayers); len(layers) > n {
		c.replace("TemporalLayers", ReasonHardware, len(layers), n, func() {
			cfg.TemporalLayers = slices.Clone(layers[:n])
		})
		layers = cfg.TemporalLayers
	}
	if !validLayerScales(layers) {
		c.replace("TemporalLayers", ReasonRange, layers, nil, func() { cfg.TemporalLayers = nil })
		return
	}
	if len(layers) > 1 && cfg.GopRefDist != 1 {
		set(c, "GopRefDist", &cfg.GopRefDist, 1, ReasonGop)
	}
}

// validLayerScales reports whether scales start at 1 and each divides the next.
func validLayerScales(scales []uint32) bool {
	if len(scales) == 0 || scales[0] != 1 {
		return false
	}
	for i := 1; i < len(scales); i++ {
		if scales[i] <= scales[i-1] || scales[i]%scales[i-1] != 0 {
			return false
		}
	}
	return true
}

func checkGop(c *checker) {
	cfg := c.cfg
	if f := cfg.GopOptFlag & (params.GopClosed | params.GopStrict); f != cfg.GopOptFlag {
		set(c, "GopOptFlag", &cfg.GopOptFlag, f, ReasonRange)
	}
	if cfg.GopRefDist > maxGopRefDist {
		set(c, "GopRefDist", &cfg.GopRefDist, maxGopRefDist, ReasonRange)
	}
	if cfg.GopRefDist > 1 && c.noBFrames() {
		set(c, "GopRefDist", &cfg.GopRefDist, 1, ReasonHardware)
	}
	if cfg.GopPicSize != 0 && cfg.GopRefDist > cfg.GopPicSize {
		set(c, "GopRefDist", &cfg.GopRefDist, cfg.GopPicSize, ReasonGop)
	}
	// B frames need a second reference in the DPB.
	if c.locked["NumRefFrame"] && cfg.NumRefFrame < 2 && cfg.GopRefDist != 1 {
		set(c, "GopRefDist", &cfg.GopRefDist, 1, ReasonReferences)
	}

	if cfg.BRefType > params.BRefPyramid {
		set(c, "BRefType", &cfg.BRefType, params.BRefUnknown, ReasonRange)
	}
	if cfg.BRefType == params.BRefPyramid && c.gopRefDist() < minBPyramidRefDist {
		set(c, "BRefType", &cfg.BRefType, params.BRefOff, ReasonGop)
	}
	if cfg.PRefType > params.PRefPyramid {
		set(c, "PRefType", &cfg.PRefType, params.PRefUnknown, ReasonRange)
	}
	if cfg.PRefType == params.PRefPyramid && c.gopRefDist() > 1 {
		set(c, "PRefType", &cfg.PRefType, params.PRefSimple, ReasonGop)
	}

	fill(c, "GopPicSize", &cfg.GopPicSize, defaultGopPicSize)
	fill(c, "GopRefDist", &cfg.GopRefDist, c.gopRefDist())
	bref := params.BRefOff
	if cfg.GopRefDist >= minBPyramidRefDist {
		bref = params.BRefPyramid
	}
	fill(c, "BRefType", &cfg.BRefType, bref)
	fill(c, "PRefType", &cfg.PRefType, params.PRefSimple)
}

func checkReferences(c *checker) {
	cfg := c.cfg
	if cfg.NumRefFrame > maxRefFrames {
		set(c, "NumRefFrame", &cfg.NumRefFrame, maxRefFrames, ReasonReferences)
	}
	if cfg.NumRefFrame == 1 && c.gopRefDist() > 1 {
		set(c, "NumRefFrame", &cfg.NumRefFrame, 2, ReasonReferences) //nolint:mnd // one reference per direction
	}
	fill(c, "NumRefFrame", &cfg.NumRefFrame, c.numRefFrame())

	if cfg.MaxDecFrameBuffering > maxRefFrames {
		set(c, "MaxDecFrameBuffering", &cfg.MaxDecFrameBuffering, maxRefFrames, ReasonReferences)
	}
	if cfg.MaxDecFrameBuffering != 0 && cfg.MaxDecFrameBuffering < cfg.NumRefFrame {
		set(c, "MaxDecFrameBuffering", &cfg.MaxDecFrameBuffering, cfg.NumRefFrame, ReasonReferences)
	}

	l0, l1 := c.clampActiveRefs()
	fill(c, "NumRefActiveP", &cfg.NumRefActiveP, l0)
	fill(c, "NumRefActiveBL0", &cfg.NumRefActiveBL0, l0)
	fill(c, "NumRefActiveBL1", &cfg.NumRefActiveBL1, l1)
}

// clampActiveRefs bounds the active reference counts by the device and the DPB
// and returns the bounds.
func (c *checker) clampActiveRefs() (maxL0, maxL1 uint32) {
	cfg := c.cfg
	nrf := c.numRefFrame()
	maxL0, maxL1 = min(c.caps.MaxNumRefL0, nrf), min(c.caps.MaxNumRefL1, nrf)
	maxL0 = max(maxL0, 1)
	for _, f := range []struct {
		name string
		p    *uint32
		max  uint32
	}{
		{"NumRefActiveP", &cfg.NumRefActiveP, maxL0},
		{"NumRefActiveBL0", &cfg.NumRefActiveBL0, maxL0},
		{"NumRefActiveBL1", &cfg.NumRefActiveBL1, maxL1},
	} {
		if *f.p > f.max {
			set(c, f.name, f.p, f.max, ReasonReferences)
		}
	}
	return maxL0, maxL1
}

// checkSlices resolves the requested partition to one the slice divider can
// produce for the device's slice structure.
func checkSlices(c *checker) {
	cfg := c.cfg
	if cfg.Width == 0 || cfg.Height == 0 {
		return
	}
	class := c.caps.SliceStructure
	w, h := cfg.WidthInMbs(), cfg.PicHeightInMbs()
	limit := c.caps.MaxNumSlices
	if limit == 0 {
		limit = h
	}

	if cfg.MaxSliceSize != 0 {
		if !c.caps.SliceByteSizeCtrl {
			set(c, "MaxSliceSize", &cfg.MaxSliceSize, 0, ReasonHardware)
		} else {
			// The device cuts slices by size on its own.
			for _, f := range sliceCounts(cfg) {
				set(c, f.name, f.p, 0, ReasonSlices)
			}
			set(c, "NumMbPerSlice", &cfg.NumMbPerSlice, 0, ReasonSlices)
			return
		}
	}

	if cfg.NumMbPerSlice != 0 {
		size := cfg.NumMbPerSlice
		if class.RowAligned() {
			size = alignUp(size, w)
		}
		size = min(size, w*h)
		d := slicediv.NewBySize(class, size, w, h)
		if d.NumSlice() <= limit {
			set(c, "NumMbPerSlice", &cfg.NumMbPerSlice, size, ReasonSlices)
			set(c, "NumSlice", &cfg.NumSlice, d.NumSlice(), ReasonSlices)
			for _, f := range sliceCounts(cfg)[1:] {
				set(c, f.name, f.p, 0, ReasonSlices)
			}
			return
		}
		set(c, "NumMbPerSlice", &cfg.NumMbPerSlice, 0, ReasonHardware)
		set(c, "NumSlice", &cfg.NumSlice, limit, ReasonHardware)
	}

	for _, f := range sliceCounts(cfg) {
		if *f.p != 0 {
			set(c, f.name, f.p, achievableSlices(class, *f.p, limit, w, h), ReasonSlices)
		}
	}
	fill(c, "NumSlice", &cfg.NumSlice, 1)
}

type countField struct {
	name string
	p    *uint32
}

func sliceCounts(cfg *params.Config) []countField {
	return []countField{
		{"NumSlice", &cfg.NumSlice},
		{"NumSliceI", &cfg.NumSliceI},
		{"NumSliceP", &cfg.NumSliceP},
		{"NumSliceB", &cfg.NumSliceB},
	}
}

// achievableSlices is the largest count not above limit that the divider
// produces when asked for n. It is a fixed point of itself.
func achievableSlices(class slicediv.Class, n, limit, w, h uint32) uint32 {
	n = min(n, limit)
	for n > 1 && slicediv.Count(class, n, w, h) > limit {
		n--
	}
	return slicediv.Count(class, n, w, h)
}
