package limits

import "fmt"

// Level is level_idc, with 1b encoded as 9 (the High profile spelling).
type Level uint16

const (
	LevelUnknown Level = 0
	Level1b      Level = 9
	Level1       Level = 10
	Level11      Level = 11
	Level12      Level = 12
	Level13      Level = 13
	Level2       Level = 20
	Level21      Level = 21
	Level22      Level = 22
	Level3       Level = 30
	Level31      Level = 31
	Level32      Level = 32
	Level4       Level = 40
	Level41      Level = 41
	Level42      Level = 42
	Level5       Level = 50
	Level51      Level = 51
	Level52      Level = 52
)

// MaxLevel is the highest level this encoder signals.
const MaxLevel = Level52

// Levels lists every level in ascending capability order.
var Levels = []Level{
	Level1, Level1b, Level11, Level12, Level13,
	Level2, Level21, Level22,
	Level3, Level31, Level32,
	Level4, Level41, Level42,
	Level5, Level51, Level52,
}

// Index returns the position of l in Levels, or -1.
func (l Level) Index() int {
	for i, v := range Levels {
		if v == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool {
	return l.Index() >= 0
}

// Less orders levels by capability (1 < 1b < 1.1).
func (l Level) Less(o Level) bool {
	return l.Index() < o.Index()
}

// Max returns the more capable of two levels; unknown loses to anything.
func Max(a, b Level) Level {
	if a.Index() >= b.Index() {
		return a
	}
	return b
}

// Next returns the following level, or l itself at the top.
func (l Level) Next() Level {
	i := l.Index()
	if i < 0 || i+1 >= len(Levels) {
		return l
	}
	return Levels[i+1]
}

// IDC returns level_idc and constraint_set3_flag for signalling l in a stream of profile p.
// Level 1b is level_idc 11 + constraint_set3_flag for Baseline/Main and 9 for High.
func (l Level) IDC(p Profile) (idc uint8, constraintSet3 bool) {
	if l == Level1b && !p.IsHigh() {
		return uint8(Level11), true
	}
	return uint8(l), false //nolint:gosec // levels fit a byte
}

// LevelFromIDC is the inverse of IDC.
func LevelFromIDC(idc uint8, constraintSet3 bool, p Profile) Level {
	if idc == uint8(Level11) && constraintSet3 && !p.IsHigh() {
		return Level1b
	}
	return Level(idc)
}

func (l Level) String() string {
	switch {
	case l == LevelUnknown:
		return "Unknown"
	case l == Level1b:
		return "1b"
	case !l.Valid():
		return fmt.Sprintf("Level(%d)", uint16(l))
	case l%10 == 0:
		return fmt.Sprintf("%d", l/10)
	}
	return fmt.Sprintf("%d.%d", l/10, l%10)
}
