package params

import (
	"github.com/ugparu/avchw/codec/h264"
)

// FrameType is a bitmask describing a coded picture: one of I, P or B plus the
// reference and IDR markers.
type FrameType uint16

const (
	FrameI   FrameType = 0x0001
	FrameP   FrameType = 0x0002
	FrameB   FrameType = 0x0004
	FrameRef FrameType = 0x0040
	FrameIDR FrameType = 0x0080
)

func (t FrameType) IsIDR() bool { return t&FrameIDR != 0 }

func (t FrameType) IsRef() bool { return t&(FrameRef|FrameIDR) != 0 }

// SliceType maps the picture type onto slice_type.
func (t FrameType) SliceType() h264.SliceType {
	switch {
	case t&FrameI != 0 || t.IsIDR():
		return h264.SliceI
	case t&FrameB != 0:
		return h264.SliceB
	}
	return h264.SliceP
}

// PrimaryPicType is primary_pic_type for the access unit delimiter.
func (t FrameType) PrimaryPicType() uint8 {
	switch t.SliceType() {
	case h264.SliceI:
		return h264.PrimaryPicI
	case h264.SliceP:
		return h264.PrimaryPicIP
	}
	return h264.PrimaryPicIPB
}

func (t FrameType) String() string {
	s := t.SliceType().String()
	switch {
	case t.IsIDR():
		s = "IDR"
	case t&FrameRef != 0:
		s += "ref"
	}
	return s
}

// Field selects which part of a frame a picture covers.
type Field uint8

const (
	FieldFrame  Field = 0
	FieldTop    Field = 1
	FieldBottom Field = 2
)

// Deblocking overrides the deblocking filter of one slice.
type Deblocking struct {
	DisableIdc   uint32
	AlphaC0Div2  int32
	BetaOffsDiv2 int32
}

// SliceOverride carries per-slice QP and deblocking changes, indexed like the
// slices of the frame's SliceDivision.
type SliceOverride struct {
	QPDelta    int32
	Deblocking *Deblocking
}

// FrameTask is everything the header packer needs to know about one picture.
// It is owned by the caller and never modified by the packer.
type FrameTask struct {
	Type     FrameType
	Field    Field
	FrameNum uint32
	POC      int32 // picture order count of the picture (the field's, for field pictures)
	IDRPicID uint32

	// NumRefIdxActive are num_ref_idx_lX_active; zero selects the PPS default.
	NumRefIdxActive [2]uint32
	RefPicListMod   [2][]h264.RefPicListModification
	MMCO            []h264.MMCO

	LongTermReference   bool
	NoOutputOfPriorPics bool

	// QP is the slice QP of the picture; zero keeps the PPS initial QP.
	QP              uint8
	Deblocking      *Deblocking
	Slices          []SliceOverride
	CabacInitIdc    uint32
	PredWeightTable *h264.PredWeightTable

	DirectSpatialMvPred bool

	// HRD timing for the SEI messages of this access unit.
	InitialCpbRemovalDelay       uint32
	InitialCpbRemovalDelayOffset uint32
	CpbRemovalDelay              uint32
	DpbOutputDelay               uint32

	// InsertHeaders repeats SPS and PPS in front of the picture; IDR pictures
	// always carry them.
	InsertHeaders    bool
	RecoveryFrameCnt uint32
}

// Override returns the overrides of slice i, falling back to the picture-wide values.
func (t *FrameTask) Override(i int) SliceOverride {
	o := SliceOverride{Deblocking: t.Deblocking}
	if i < len(t.Slices) {
		o.QPDelta = t.Slices[i].QPDelta
		if t.Slices[i].Deblocking != nil {
			o.Deblocking = t.Slices[i].Deblocking
		}
	}
	return o
}

// NeedsHeaders reports whether SPS and PPS precede this picture.
func (t *FrameTask) NeedsHeaders() bool {
	return t.InsertHeaders || t.Type.IsIDR()
}

// PicOrderCntLsb returns pic_order_cnt_lsb for log2MaxPocLsb bits.
func (t *FrameTask) PicOrderCntLsb(log2MaxPocLsb uint32) uint32 {
	return uint32(t.POC) & (1<<log2MaxPocLsb - 1) //nolint:gosec
}
