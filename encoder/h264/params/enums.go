package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TriState is a feature flag that may be left for the encoder to decide.
type TriState uint16

const (
	Unknown  TriState = 0
	On       TriState = 0x10
	Off      TriState = 0x20
	Adaptive TriState = 0x30
)

// Valid reports whether t is one of the defined states.
func (t TriState) Valid(allowAdaptive bool) bool {
	switch t {
	case Unknown, On, Off:
		return true
	case Adaptive:
		return allowAdaptive
	}
	return false
}

func (t TriState) IsOn() bool  { return t == On }
func (t TriState) IsOff() bool { return t == Off }

// Bool converts on into On or Off.
func Bool(on bool) TriState {
	if on {
		return On
	}
	return Off
}

var triStateNames = map[TriState]string{Unknown: "unknown", On: "on", Off: "off", Adaptive: "adaptive"}

func (t TriState) String() string {
	if s, ok := triStateNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TriState(%d)", uint16(t))
}

func (t TriState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TriState) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for v, name := range triStateNames {
		if name == s {
			*t = v
			return nil
		}
	}
	v, err := parseEnumNumber(s)
	if err != nil {
		return errors.Errorf("params: invalid tri-state %q", s)
	}
	*t = TriState(v)
	return nil
}

func parseEnumNumber(s string) (uint16, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "tristate("), ")")
	v, err := strconv.ParseUint(s, 0, 16)
	return uint16(v), err
}

// RateControlMethod values follow the numbering used by hardware encode APIs.
type RateControlMethod uint16

const (
	RCUnknown RateControlMethod = 0
	RCCBR     RateControlMethod = 1
	RCVBR     RateControlMethod = 2
	RCCQP     RateControlMethod = 3
	RCAVBR    RateControlMethod = 4
	RCLA      RateControlMethod = 8
	RCICQ     RateControlMethod = 9
	RCVCM     RateControlMethod = 10
	RCLAICQ   RateControlMethod = 11
	RCLAHRD   RateControlMethod = 13
	RCQVBR    RateControlMethod = 14
)

var rcNames = map[RateControlMethod]string{
	RCUnknown: "unknown", RCCBR: "cbr", RCVBR: "vbr", RCCQP: "cqp", RCAVBR: "avbr",
	RCLA: "la", RCICQ: "icq", RCVCM: "vcm", RCLAICQ: "la_icq", RCLAHRD: "la_hrd", RCQVBR: "qvbr",
}

func (m RateControlMethod) String() string {
	if s, ok := rcNames[m]; ok {
		return s
	}
	return fmt.Sprintf("RateControlMethod(%d)", uint16(m))
}

func (m RateControlMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *RateControlMethod) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for v, name := range rcNames {
		if name == s {
			*m = v
			return nil
		}
	}
	return errors.Errorf("params: unknown rate control method %q", s)
}

// Valid reports whether m is a known method other than RCUnknown.
func (m RateControlMethod) Valid() bool {
	_, ok := rcNames[m]
	return ok && m != RCUnknown
}

// IsLookAhead reports the methods that run a look-ahead pass.
func (m RateControlMethod) IsLookAhead() bool {
	return m == RCLA || m == RCLAICQ || m == RCLAHRD
}

// IsBitrateDriven reports methods that consume TargetKbps.
func (m RateControlMethod) IsBitrateDriven() bool {
	switch m {
	case RCCBR, RCVBR, RCAVBR, RCLA, RCVCM, RCLAHRD, RCQVBR:
		return true
	}
	return false
}

// IsVBRFamily reports methods whose MaxKbps may exceed TargetKbps.
func (m RateControlMethod) IsVBRFamily() bool {
	return m == RCVBR || m == RCLA || m == RCVCM || m == RCQVBR
}

// IsHRDConformant reports methods that can produce a stream with HRD signalling.
func (m RateControlMethod) IsHRDConformant() bool {
	switch m {
	case RCCBR, RCVBR, RCVCM, RCLAHRD, RCQVBR:
		return true
	}
	return false
}

// IsQualityDriven reports methods steered by a quality factor rather than bitrate.
func (m RateControlMethod) IsQualityDriven() bool {
	return m == RCICQ || m == RCLAICQ || m == RCCQP
}

type PicStruct uint16

const (
	PicStructUnknown     PicStruct = 0
	PicStructProgressive PicStruct = 1
	PicStructFieldTFF    PicStruct = 2
	PicStructFieldBFF    PicStruct = 4
)

func (p PicStruct) Interlaced() bool {
	return p == PicStructFieldTFF || p == PicStructFieldBFF
}

func (p PicStruct) Valid() bool {
	switch p {
	case PicStructUnknown, PicStructProgressive, PicStructFieldTFF, PicStructFieldBFF:
		return true
	}
	return false
}

// ChromaFormat is chroma_format_idc + 1 so that zero means "not set".
type ChromaFormat uint8

const (
	ChromaFormatUnset ChromaFormat = iota
	ChromaFormat400
	ChromaFormat420
	ChromaFormat422
	ChromaFormat444
)

// ChromaFormatFromIDC converts chroma_format_idc.
func ChromaFormatFromIDC(idc uint32) ChromaFormat {
	return ChromaFormat(idc + 1) //nolint:gosec
}

func (c ChromaFormat) IDC() uint32 {
	if c == ChromaFormatUnset {
		return 1
	}
	return uint32(c) - 1
}

type GopOptFlag uint16

const (
	GopClosed GopOptFlag = 1
	GopStrict GopOptFlag = 2
)

type Trellis uint16

const (
	TrellisUnknown Trellis = 0
	TrellisOff     Trellis = 0x01
	TrellisI       Trellis = 0x02
	TrellisP       Trellis = 0x04
	TrellisB       Trellis = 0x08
)

func (t Trellis) Valid() bool {
	if t == TrellisUnknown || t == TrellisOff {
		return true
	}
	return t&^(TrellisI|TrellisP|TrellisB) == 0
}

type BRefType uint16

const (
	BRefUnknown BRefType = 0
	BRefOff     BRefType = 1
	BRefPyramid BRefType = 2
)

type PRefType uint16

const (
	PRefUnknown PRefType = 0
	PRefSimple  PRefType = 1
	PRefPyramid PRefType = 2
)

type IntRefType uint16

const (
	IntRefNone       IntRefType = 0
	IntRefVertical   IntRefType = 1
	IntRefHorizontal IntRefType = 2
	IntRefSlice      IntRefType = 3
)

type WeightedPred uint16

const (
	WeightedPredUnknown  WeightedPred = 0
	WeightedPredDefault  WeightedPred = 1
	WeightedPredExplicit WeightedPred = 2
	WeightedPredImplicit WeightedPred = 3
)

type SkipFrame uint16

const (
	SkipFrameNone          SkipFrame = 0
	SkipFrameInsertDummy   SkipFrame = 1
	SkipFrameInsertNothing SkipFrame = 2
	SkipFrameBRCOnly       SkipFrame = 3
)

type ROIMode uint16

const (
	ROIModePriority ROIMode = 0
	ROIModeQPDelta  ROIMode = 1
	ROIModeQPValue  ROIMode = 2
)

type LookAheadDS uint16

const (
	LookAheadDSUnknown LookAheadDS = 0
	LookAheadDSOff     LookAheadDS = 1
	LookAheadDS2x      LookAheadDS = 2
	LookAheadDS4x      LookAheadDS = 3
)

// Platform is the hardware generation the configuration targets.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformGen9
	PlatformGen11
	PlatformGen12
	PlatformXe2
)

func (p Platform) String() string {
	switch p {
	case PlatformGen9:
		return "gen9"
	case PlatformGen11:
		return "gen11"
	case PlatformGen12:
		return "gen12"
	case PlatformXe2:
		return "xe2"
	}
	return "unknown"
}

// ParsePlatform is the inverse of Platform.String.
func ParsePlatform(s string) (Platform, error) {
	for p := PlatformGen9; p <= PlatformXe2; p++ {
		if p.String() == strings.ToLower(s) {
			return p, nil
		}
	}
	return PlatformUnknown, errors.Errorf("params: unknown platform %q", s)
}
