package h264

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/ugparu/avchw/encoder/h264/params"
)

const (
	maxROIPriority = 3
	minROIQP       = 1
)

func checkRegions(c *checker) {
	checkROI(c)
	checkDirtyRects(c)
	checkMovingRects(c)
}

// alignRect clips r to the frame and widens it to whole macroblocks.
func alignRect(r params.Rect, width, height uint32) params.Rect {
	r.Left = min(r.Left, width) / mbSize * mbSize
	r.Top = min(r.Top, height) / mbSize * mbSize
	r.Right = alignUp(min(r.Right, width), mbSize)
	r.Bottom = alignUp(min(r.Bottom, height), mbSize)
	return r
}

// alignRects returns the aligned list, or nil when any rect collapses.
func alignRects(rects []params.Rect, width, height uint32) []params.Rect {
	out := lo.Map(rects, func(r params.Rect, _ int) params.Rect { return alignRect(r, width, height) })
	if lo.SomeBy(out, params.Rect.Empty) {
		return nil
	}
	return out
}

func truncate[T any](c *checker, field string, list *[]T, n uint32) {
	if uint32(len(*list)) <= n { //nolint:gosec
		return
	}
	c.replace(field, ReasonRegion|ReasonHardware, len(*list), n, func() {
		*list = slices.Clone((*list)[:n])
	})
}

func checkROI(c *checker) {
	cfg := c.cfg
	if len(cfg.ROI) == 0 {
		return
	}
	truncate(c, "ROI", &cfg.ROI, c.caps.MaxNumOfROI)
	if len(cfg.ROI) == 0 {
		return
	}

	switch cfg.ROIMode {
	case params.ROIModePriority:
		if !c.caps.ROIBRCPriority || cfg.RateControlMethod == params.RCCQP {
			if c.caps.ROIDeltaQP {
				set(c, "ROIMode", &cfg.ROIMode, params.ROIModeQPDelta, ReasonRegion)
			} else {
				c.unsupported("ROIMode", ReasonHardware, "priority regions")
				return
			}
		}
	case params.ROIModeQPDelta:
		if !c.caps.ROIDeltaQP {
			c.unsupported("ROIMode", ReasonHardware, "QP delta regions")
			return
		}
	case params.ROIModeQPValue:
		if cfg.RateControlMethod != params.RCCQP {
			c.unsupported("ROIMode", ReasonRateControl, "absolute QP regions need constant QP")
			return
		}
	default:
		c.unsupported("ROIMode", ReasonRange, fmt.Sprintf("mode %d", cfg.ROIMode))
		return
	}

	lower, upper := int16(-maxQP), int16(maxQP)
	switch cfg.ROIMode {
	case params.ROIModePriority:
		lower, upper = -maxROIPriority, maxROIPriority
	case params.ROIModeQPValue:
		lower = minROIQP
	}
	out := lo.Map(cfg.ROI, func(r params.Rect, _ int) params.Rect {
		r.DeltaQP = lo.Clamp(r.DeltaQP, lower, upper)
		return r
	})
	if cfg.Width != 0 && cfg.Height != 0 {
		out = alignRects(out, cfg.Width, cfg.Height)
	}
	if !slices.Equal(out, cfg.ROI) {
		c.replace("ROI", ReasonRegion, cfg.ROI, out, func() { cfg.ROI = out })
	}
}

func checkDirtyRects(c *checker) {
	cfg := c.cfg
	if len(cfg.DirtyRects) == 0 {
		return
	}
	truncate(c, "DirtyRects", &cfg.DirtyRects, c.caps.MaxNumOfDirtyRect)
	if len(cfg.DirtyRects) == 0 || cfg.Width == 0 || cfg.Height == 0 {
		return
	}
	if out := alignRects(cfg.DirtyRects, cfg.Width, cfg.Height); !slices.Equal(out, cfg.DirtyRects) {
		c.replace("DirtyRects", ReasonRegion|ReasonAlignment, cfg.DirtyRects, out, func() { cfg.DirtyRects = out })
	}
}

// checkMovingRects aligns destinations like the other regions. The source is
// aligned down and must keep the whole rect inside the frame.
func checkMovingRects(c *checker) {
	cfg := c.cfg
	if len(cfg.MovingRects) == 0 {
		return
	}
	truncate(c, "MovingRects", &cfg.MovingRects, c.caps.MaxNumOfMoveRect)
	if len(cfg.MovingRects) == 0 || cfg.Width == 0 || cfg.Height == 0 {
		return
	}
	out := lo.Map(cfg.MovingRects, func(m params.MovingRect, _ int) params.MovingRect {
		m.Rect = alignRect(m.Rect, cfg.Width, cfg.Height)
		m.SourceLeft = m.SourceLeft / mbSize * mbSize
		m.SourceTop = m.SourceTop / mbSize * mbSize
		return m
	})
	broken := lo.SomeBy(out, func(m params.MovingRect) bool {
		return m.Empty() ||
			m.SourceLeft+m.Right-m.Left > cfg.Width ||
			m.SourceTop+m.Bottom-m.Top > cfg.Height
	})
	if broken {
		out = nil
	}
	if !slices.Equal(out, cfg.MovingRects) {
		c.replace("MovingRects", ReasonRegion|ReasonAlignment, len(cfg.MovingRects), len(out),
			func() { cfg.MovingRects = out })
	}
}
