package limits

import "fmt"

// Profile is profile_idc in the low byte plus constraint_set flags in the high byte,
// matching how encoder parameter blocks carry it.
type Profile uint16

const (
	constraintSet0 Profile = 0x100 << iota
	constraintSet1
	constraintSet2
	constraintSet3
	constraintSet4
	constraintSet5
)

const (
	ProfileUnknown             Profile = 0
	ProfileBaseline            Profile = 66
	ProfileConstrainedBaseline         = ProfileBaseline | constraintSet1
	ProfileMain                Profile = 77
	ProfileExtended            Profile = 88
	ProfileHigh                Profile = 100
	ProfileProgressiveHigh             = ProfileHigh | constraintSet4
	ProfileConstrainedHigh             = ProfileHigh | constraintSet4 | constraintSet5
	ProfileHigh10              Profile = 110
	ProfileHigh422             Profile = 122
	ProfileHigh444             Profile = 244
	ProfileCAVLC444            Profile = 44
)

// IDC returns profile_idc.
func (p Profile) IDC() uint8 {
	return uint8(p & 0xff) //nolint:mnd
}

// ConstraintFlags returns constraint_set0..5_flag packed as bits 7..2 of the SPS byte.
func (p Profile) ConstraintFlags() uint8 {
	var f uint8
	for i := range 6 {
		if p&(constraintSet0<<i) != 0 {
			f |= 0x80 >> i
		}
	}
	return f
}

// Base strips constraint flags.
func (p Profile) Base() Profile {
	return Profile(p.IDC())
}

// IsHigh reports whether the profile belongs to the High family (larger
// cpbBrNalFactor, chroma_format_idc present in the SPS).
func (p Profile) IsHigh() bool {
	switch p.Base() {
	case ProfileHigh, ProfileHigh10, ProfileHigh422, ProfileHigh444, ProfileCAVLC444:
		return true
	}
	return false
}

// Supported reports whether the profile is one of the 8-bit 4:2:0 progressive/interlaced
// profiles handled by this encoder: Baseline, Main and High (and their constrained variants).
func (p Profile) Supported() bool {
	switch p {
	case ProfileBaseline, ProfileConstrainedBaseline, ProfileMain,
		ProfileHigh, ProfileProgressiveHigh, ProfileConstrainedHigh:
		return true
	}
	return false
}

// Rank orders the supported profiles along the Baseline -> Main -> High ladder.
func (p Profile) Rank() int {
	switch p.Base() {
	case ProfileBaseline:
		return 0
	case ProfileMain:
		return 1
	case ProfileHigh:
		return 2 //nolint:mnd
	}
	return -1
}

// ProfileFromSPS rebuilds a Profile from profile_idc and the SPS constraint byte.
func ProfileFromSPS(profileIdc, constraintByte uint8) Profile {
	p := Profile(profileIdc)
	switch p {
	case ProfileBaseline:
		if constraintByte&0x40 != 0 {
			p |= constraintSet1
		}
	case ProfileHigh:
		if constraintByte&0x08 != 0 {
			p |= constraintSet4
			if constraintByte&0x04 != 0 {
				p |= constraintSet5
			}
		}
	}
	return p
}

func (p Profile) String() string {
	switch p {
	case ProfileUnknown:
		return "Unknown"
	case ProfileBaseline:
		return "Baseline"
	case ProfileConstrainedBaseline:
		return "ConstrainedBaseline"
	case ProfileMain:
		return "Main"
	case ProfileExtended:
		return "Extended"
	case ProfileHigh:
		return "High"
	case ProfileProgressiveHigh:
		return "ProgressiveHigh"
	case ProfileConstrainedHigh:
		return "ConstrainedHigh"
	case ProfileHigh10:
		return "High10"
	case ProfileHigh422:
		return "High422"
	case ProfileHigh444:
		return "High444"
	case ProfileCAVLC444:
		return "CAVLC444"
	}
	return fmt.Sprintf("Profile(%d)", uint16(p))
}
