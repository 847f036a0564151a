package nal

import (
	"github.com/ugparu/avchw/utils/bits/pio"
)

// Format is the framing detected by SplitNALUs.
type Format int

const (
	Raw    Format = iota // Single NALU without framing.
	AVCC                 // 4-byte big-endian length prefixes.
	AnnexB               // 0x000001 / 0x00000001 start codes.
)

// MinNaluSize is the minimum size of a Network Abstraction Layer Unit (NALU).
const MinNaluSize = 4

// StartCode is the 4-byte Annex-B prefix written in front of every generated NALU.
var StartCode = []byte{0, 0, 0, 1}

// isStartCode checks if there's a NALU start code (0x000001 or 0x00000001) at the given position
// and returns the length of the start code found.
func isStartCode(b []byte, pos int) (startCodeLength int, found bool) {
	if pos+2 >= len(b) || b[pos] != 0 {
		return 0, false
	}

	val3 := pio.U24BE(b[pos:])
	if val3 == 1 {
		return 3, true //nolint:mnd
	}

	if val3 == 0 && pos+3 < len(b) && b[pos+3] == 1 {
		return 4, true //nolint:mnd
	}

	return 0, false
}

// splitAnnexB cuts b at every start code. Trailing zero bytes of a NALU
// (trailing_zero_8bits) are dropped.
func splitAnnexB(b []byte) (nalus [][]byte) {
	start := -1
	for pos := 0; pos < len(b); {
		if n, found := isStartCode(b, pos); found {
			if start >= 0 {
				nalus = appendTrimmed(nalus, b[start:pos])
			}
			pos += n
			start = pos
			continue
		}
		pos++
	}
	if start >= 0 && start < len(b) {
		nalus = appendTrimmed(nalus, b[start:])
	}
	return
}

func appendTrimmed(nalus [][]byte, n []byte) [][]byte {
	end := len(n)
	for end > 0 && n[end-1] == 0 {
		end--
	}
	if end == 0 {
		return nalus
	}
	return append(nalus, n[:end])
}

func splitAVCC(b []byte) (nalus [][]byte, ok bool) {
	for len(b) >= MinNaluSize {
		size := pio.U32BE(b)
		b = b[MinNaluSize:]
		if size == 0 || size > uint32(len(b)) { //nolint:gosec
			return nil, false
		}
		nalus = append(nalus, b[:size])
		b = b[size:]
	}
	return nalus, len(b) == 0 && len(nalus) > 0
}

// SplitNALUs splits a byte slice into NALUs based on its framing (Raw, AVCC or
// Annex-B) and returns the NALUs and the detected format. Caller supplied
// parameter set buffers arrive in any of the three forms.
func SplitNALUs(b []byte) (nalus [][]byte, typ Format) {
	if len(b) < MinNaluSize {
		return [][]byte{b}, Raw
	}

	if val3 := pio.U24BE(b); val3 == 1 || (val3 == 0 && b[3] == 1) {
		return splitAnnexB(b), AnnexB
	}

	if nalus, ok := splitAVCC(b); ok {
		return nalus, AVCC
	}

	return [][]byte{b}, Raw
}

// Type returns nal_unit_type of a NALU (without start code).
func Type(b []byte) byte {
	if len(b) > 0 {
		return b[0] & 0x1f //nolint:mnd
	}
	return 0
}

// RefIdc returns nal_ref_idc of a NALU (without start code).
func RefIdc(b []byte) byte {
	if len(b) > 0 {
		return (b[0] >> 5) & 0x3 //nolint:mnd
	}
	return 0
}

// Unescape removes emulation_prevention_three_byte from an EBSP and returns the RBSP.
func Unescape(b []byte) []byte {
	out := make([]byte, 0, len(b))
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c == 0x03 {
			zeros = 0
			continue
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// Escape inserts emulation_prevention_three_byte where the RBSP would otherwise
// contain a start code prefix. Used for whole access units whose escaping was deferred.
func Escape(b []byte) []byte {
	out := make([]byte, 0, len(b)+len(b)/2)
	zeros := 0
	for _, c := range b {
		if zeros >= 2 && c <= 0x03 {
			out = append(out, 0x03) //nolint:mnd
			zeros = 0
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}

// JoinAnnexB prefixes each NALU with a 4-byte start code.
func JoinAnnexB(nalus [][]byte) []byte {
	size := 0
	for _, n := range nalus {
		size += len(StartCode) + len(n)
	}
	out := make([]byte, 0, size)
	for _, n := range nalus {
		out = append(out, StartCode...)
		out = append(out, n...)
	}
	return out
}
