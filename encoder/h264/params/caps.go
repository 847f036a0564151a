package params

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/ugparu/avchw/encoder/h264/slicediv"
)

// Caps is the capability snapshot of one encode device. It is queried once and
// shared read-only between encoder instances.
type Caps struct {
	MaxPicWidth       uint32              `yaml:"maxPicWidth" json:"maxPicWidth"`
	MaxPicHeight      uint32              `yaml:"maxPicHeight" json:"maxPicHeight"`
	SliceStructure    slicediv.Class      `yaml:"sliceStructure" json:"sliceStructure"`
	MaxNumSlices      uint32              `yaml:"maxNumSlices" json:"maxNumSlices"`
	SliceByteSizeCtrl bool                `yaml:"sliceByteSizeCtrl" json:"sliceByteSizeCtrl"`
	NoInterlacedField bool                `yaml:"noInterlacedField" json:"noInterlacedField"`
	NoWeightedPred    bool                `yaml:"noWeightedPred" json:"noWeightedPred"`
	NoCABAC           bool                `yaml:"noCABAC" json:"noCABAC"`
	MBBRCSupport      bool                `yaml:"mbbrcSupport" json:"mbbrcSupport"`
	TrellisSupport    bool                `yaml:"trellisSupport" json:"trellisSupport"`
	SkipFrameSupport  bool                `yaml:"skipFrameSupport" json:"skipFrameSupport"`
	MBQPSupport       bool                `yaml:"mbqpSupport" json:"mbqpSupport"`
	ForceIntraSupport bool                `yaml:"forceIntraSupport" json:"forceIntraSupport"`
	SkipMapSupport    bool                `yaml:"skipMapSupport" json:"skipMapSupport"`
	IntraRefresh      bool                `yaml:"intraRefresh" json:"intraRefresh"`
	LowDelayBRC       bool                `yaml:"lowDelayBRC" json:"lowDelayBRC"`
	UserMaxFrameSize  bool                `yaml:"userMaxFrameSize" json:"userMaxFrameSize"`
	ScalingMatrix     bool                `yaml:"scalingMatrix" json:"scalingMatrix"`
	RateControl       []RateControlMethod `yaml:"rateControl" json:"rateControl"`
	MaxNumOfROI       uint32              `yaml:"maxNumOfROI" json:"maxNumOfROI"`
	ROIDeltaQP        bool                `yaml:"roiDeltaQP" json:"roiDeltaQP"`
	ROIBRCPriority    bool                `yaml:"roiBRCPriority" json:"roiBRCPriority"`
	MaxNumOfDirtyRect uint32              `yaml:"maxNumOfDirtyRect" json:"maxNumOfDirtyRect"`
	MaxNumOfMoveRect  uint32              `yaml:"maxNumOfMoveRect" json:"maxNumOfMoveRect"`
	MaxNumRefL0       uint32              `yaml:"maxNumRefL0" json:"maxNumRefL0"`
	MaxNumRefL1       uint32              `yaml:"maxNumRefL1" json:"maxNumRefL1"`
	MaxTemporalLayers uint32              `yaml:"maxTemporalLayers" json:"maxTemporalLayers"`
	LowPower          bool                `yaml:"lowPower" json:"lowPower"`
}

// SupportsRC reports whether the device implements method m.
func (c *Caps) SupportsRC(m RateControlMethod) bool {
	return slices.Contains(c.RateControl, m)
}

// IPOnly reports devices that cannot encode B frames.
func (c *Caps) IPOnly() bool {
	return c.MaxNumRefL1 == 0
}

var allRC = []RateControlMethod{RCCBR, RCVBR, RCCQP, RCAVBR, RCLA, RCICQ, RCVCM, RCLAICQ, RCLAHRD, RCQVBR}

var presets = map[string]Caps{
	"gen9": {
		MaxPicWidth:       4096,
		MaxPicHeight:      4096,
		SliceStructure:    slicediv.ArbitraryRowSlice,
		MaxNumSlices:      128,
		SliceByteSizeCtrl: true,
		MBBRCSupport:      true,
		TrellisSupport:    true,
		SkipFrameSupport:  true,
		MBQPSupport:       true,
		ForceIntraSupport: true,
		SkipMapSupport:    true,
		IntraRefresh:      true,
		UserMaxFrameSize:  true,
		ScalingMatrix:     true,
		RateControl:       allRC,
		MaxNumOfROI:       3,
		ROIDeltaQP:        true,
		ROIBRCPriority:    true,
		MaxNumOfDirtyRect: 4,
		MaxNumOfMoveRect:  4,
		MaxNumRefL0:       4,
		MaxNumRefL1:       2,
		MaxTemporalLayers: 4,
	},
	"gen12": {
		MaxPicWidth:       4096,
		MaxPicHeight:      4096,
		SliceStructure:    slicediv.ArbitraryMbSlice,
		MaxNumSlices:      256,
		SliceByteSizeCtrl: true,
		MBBRCSupport:      true,
		TrellisSupport:    true,
		SkipFrameSupport:  true,
		MBQPSupport:       true,
		ForceIntraSupport: true,
		SkipMapSupport:    true,
		IntraRefresh:      true,
		LowDelayBRC:       true,
		UserMaxFrameSize:  true,
		ScalingMatrix:     true,
		RateControl:       allRC,
		MaxNumOfROI:       16,
		ROIDeltaQP:        true,
		ROIBRCPriority:    true,
		MaxNumOfDirtyRect: 16,
		MaxNumOfMoveRect:  16,
		MaxNumRefL0:       4,
		MaxNumRefL1:       2,
		MaxTemporalLayers: 4,
	},
	"gen12-lp": {
		MaxPicWidth:       4096,
		MaxPicHeight:      4096,
		SliceStructure:    slicediv.LowPower,
		MaxNumSlices:      68,
		NoInterlacedField: true,
		MBBRCSupport:      true,
		SkipFrameSupport:  true,
		MBQPSupport:       true,
		IntraRefresh:      true,
		LowDelayBRC:       true,
		RateControl:       []RateControlMethod{RCCBR, RCVBR, RCCQP, RCICQ, RCQVBR},
		MaxNumOfROI:       8,
		ROIDeltaQP:        true,
		MaxNumOfDirtyRect: 8,
		MaxNumRefL0:       3,
		MaxNumRefL1:       1,
		MaxTemporalLayers: 4,
		LowPower:          true,
	},
	"xe2": {
		MaxPicWidth:       4096,
		MaxPicHeight:      4096,
		SliceStructure:    slicediv.LowPower,
		MaxNumSlices:      128,
		NoInterlacedField: true,
		MBBRCSupport:      true,
		SkipFrameSupport:  true,
		MBQPSupport:       true,
		ForceIntraSupport: true,
		IntraRefresh:      true,
		LowDelayBRC:       true,
		UserMaxFrameSize:  true,
		RateControl:       []RateControlMethod{RCCBR, RCVBR, RCCQP, RCAVBR, RCICQ, RCQVBR},
		MaxNumOfROI:       16,
		ROIDeltaQP:        true,
		MaxNumOfDirtyRect: 16,
		MaxNumRefL0:       4,
		MaxNumRefL1:       2,
		MaxTemporalLayers: 4,
		LowPower:          true,
	},
}

// CapsPreset returns a copy of a built-in capability snapshot.
func CapsPreset(name string) (Caps, error) {
	c, ok := presets[name]
	if !ok {
		return Caps{}, errors.Errorf("params: unknown caps preset %q", name)
	}
	c.RateControl = slices.Clone(c.RateControl)
	return c, nil
}

// CapsPresetNames lists the built-in presets in a stable order.
func CapsPresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
