package h264

import "github.com/ugparu/avchw/utils/bits"

// ScalingMatrix holds the sequence or picture scaling lists in coded (zig-zag) order.
// Lists 0..2 of each size are intra Y/Cb/Cr, 3..5 inter; 8x8 lists are intra Y, inter Y.
type ScalingMatrix struct {
	Present4x4    [numScalingLists4x4]bool                       `yaml:"present4x4" json:"present4x4"`
	Present8x8    [numScalingLists8x8]bool                       `yaml:"present8x8" json:"present8x8"`
	UseDefault4x4 [numScalingLists4x4]bool                       `yaml:"useDefault4x4" json:"useDefault4x4"`
	UseDefault8x8 [numScalingLists8x8]bool                       `yaml:"useDefault8x8" json:"useDefault8x8"`
	List4x4       [numScalingLists4x4][scalingListSizeSmall]uint8 `yaml:"list4x4" json:"list4x4"`
	List8x8       [numScalingLists8x8][scalingListSizeLarge]uint8 `yaml:"list8x8" json:"list8x8"`
}

var (
	defaultIntra4x4 = [scalingListSizeSmall]uint8{6, 13, 13, 20, 20, 20, 28, 28, 28, 28, 32, 32, 32, 37, 37, 42}
	defaultInter4x4 = [scalingListSizeSmall]uint8{10, 14, 14, 20, 20, 20, 24, 24, 24, 24, 27, 27, 27, 30, 30, 34}
	defaultIntra8x8 = [scalingListSizeLarge]uint8{
		6, 10, 10, 13, 11, 13, 16, 16, 16, 16, 18, 18, 18, 18, 18, 23,
		23, 23, 23, 23, 23, 25, 25, 25, 25, 25, 25, 25, 27, 27, 27, 27,
		27, 27, 27, 27, 29, 29, 29, 29, 29, 29, 29, 31, 31, 31, 31, 31,
		31, 33, 33, 33, 33, 33, 36, 36, 36, 36, 38, 38, 38, 40, 40, 42,
	}
	defaultInter8x8 = [scalingListSizeLarge]uint8{
		9, 13, 13, 15, 13, 15, 17, 17, 17, 17, 19, 19, 19, 19, 19, 21,
		21, 21, 21, 21, 21, 22, 22, 22, 22, 22, 22, 22, 24, 24, 24, 24,
		24, 24, 24, 24, 25, 25, 25, 25, 25, 25, 25, 27, 27, 27, 27, 27,
		27, 28, 28, 28, 28, 28, 30, 30, 30, 30, 32, 32, 32, 33, 33, 35,
	}
)

// FlatScalingMatrix returns a matrix with every list present and equal to 16.
func FlatScalingMatrix() ScalingMatrix {
	var m ScalingMatrix
	for i := range m.List4x4 {
		m.Present4x4[i] = true
		for j := range m.List4x4[i] {
			m.List4x4[i][j] = 16
		}
	}
	for i := range m.List8x8 {
		m.Present8x8[i] = true
		for j := range m.List8x8[i] {
			m.List8x8[i][j] = 16
		}
	}
	return m
}

// Valid reports whether every present explicit list holds non-zero weights.
func (m *ScalingMatrix) Valid() bool {
	for i := range m.List4x4 {
		if m.Present4x4[i] && !m.UseDefault4x4[i] && contains(m.List4x4[i][:], 0) {
			return false
		}
	}
	for i := range m.List8x8 {
		if m.Present8x8[i] && !m.UseDefault8x8[i] && contains(m.List8x8[i][:], 0) {
			return false
		}
	}
	return true
}

func contains(list []uint8, v uint8) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (r *syntaxReader) scalingMatrix(m *ScalingMatrix, with8x8 bool) {
	for i := range m.List4x4 {
		m.Present4x4[i] = r.flag("scaling_list_present_flag")
		if m.Present4x4[i] {
			def := defaultIntra4x4
			if i >= 3 { //nolint:mnd
				def = defaultInter4x4
			}
			m.UseDefault4x4[i] = r.scalingList(m.List4x4[i][:], def[:])
		}
	}
	if !with8x8 {
		return
	}
	for i := range m.List8x8 {
		m.Present8x8[i] = r.flag("scaling_list_present_flag")
		if m.Present8x8[i] {
			def := defaultIntra8x8
			if i == 1 {
				def = defaultInter8x8
			}
			m.UseDefault8x8[i] = r.scalingList(m.List8x8[i][:], def[:])
		}
	}
}

// scalingList decodes scaling_list() (7.3.2.1.1.1).
func (r *syntaxReader) scalingList(list, def []uint8) (useDefault bool) {
	last, next := int32(defaultScaleValue), int32(defaultScaleValue)
	for j := range list {
		if next != 0 {
			delta := r.se("delta_scale", -maxDeltaScale-1, maxDeltaScale)
			next = (last + delta + maxScaleValue) % maxScaleValue
			useDefault = j == 0 && next == 0
		}
		if next != 0 {
			list[j] = uint8(next) //nolint:gosec
		} else {
			list[j] = uint8(last) //nolint:gosec
		}
		last = int32(list[j])
	}
	if useDefault {
		copy(list, def)
	}
	return useDefault
}

func writeScalingMatrix(w *bits.Writer, m *ScalingMatrix, with8x8 bool) {
	for i := range m.List4x4 {
		w.WriteFlag(m.Present4x4[i])
		if m.Present4x4[i] {
			writeScalingList(w, m.List4x4[i][:], m.UseDefault4x4[i])
		}
	}
	if !with8x8 {
		return
	}
	for i := range m.List8x8 {
		w.WriteFlag(m.Present8x8[i])
		if m.Present8x8[i] {
			writeScalingList(w, m.List8x8[i][:], m.UseDefault8x8[i])
		}
	}
}

// writeScalingList codes list differentially, ending early with a zero next
// scale once the remaining entries repeat the last one.
func writeScalingList(w *bits.Writer, list []uint8, useDefault bool) {
	if useDefault {
		w.WriteSE(-defaultScaleValue)
		return
	}
	last := defaultScaleValue
	for j := range list {
		if j > 0 && repeats(list[j:], list[j-1]) {
			w.WriteSE(wrapDelta(-last))
			return
		}
		w.WriteSE(wrapDelta(int(list[j]) - last))
		last = int(list[j])
	}
}

func repeats(list []uint8, v uint8) bool {
	for _, x := range list {
		if x != v {
			return false
		}
	}
	return true
}

func wrapDelta(d int) int {
	d = (d + maxScaleValue) % maxScaleValue
	if d > maxDeltaScale {
		d -= maxScaleValue
	}
	return d
}
