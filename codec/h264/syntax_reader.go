package h264

import (
	"math"

	"github.com/pkg/errors"
	"github.com/ugparu/avchw/utils/bits"
	"github.com/ugparu/avchw/utils/nal"
)

// syntaxReader decodes named syntax elements and keeps the first failure; every
// read after a failure returns zero so parsers can check the error once per
// structure.
type syntaxReader struct {
	br   *bits.GolombBitReader
	unit string
	err  error
}

// newSyntaxReader checks the one-byte NAL unit header of an escaped NALU against
// wantType and returns a reader positioned on the RBSP.
func newSyntaxReader(nalu []byte, wantType byte, unit string) (*syntaxReader, byte, error) {
	if len(nalu) < 2 { //nolint:mnd
		return nil, 0, errors.Wrapf(malformed("nal_unit", int64(len(nalu)), "too short"), "h264: %s", unit)
	}
	if nalu[0]&maskForbiddenZero != 0 {
		return nil, 0, errors.Wrapf(malformed("forbidden_zero_bit", 1, "must be 0"), "h264: %s", unit)
	}
	typ := nal.Type(nalu)
	if typ != wantType {
		if typ == 0 || typ >= naluTypeReserved {
			return nil, 0, errors.Wrapf(unsupported("nal_unit_type", int64(typ)), "h264: %s", unit)
		}
		return nil, 0, errors.Wrapf(malformed("nal_unit_type", int64(typ), "unexpected unit"), "h264: %s", unit)
	}
	return &syntaxReader{br: bits.NewGolombBitReader(nal.Unescape(nalu[1:])), unit: unit}, nalu[0], nil
}

func (r *syntaxReader) fail(err error) {
	if r.err == nil {
		r.err = errors.Wrapf(err, "h264: %s", r.unit)
	}
}

func (r *syntaxReader) readErr(syntax string, err error) {
	r.fail(&MalformedBitstreamError{Syntax: syntax, Reason: "read failed", Err: err})
}

func (r *syntaxReader) u(n int, syntax string) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.br.ReadBits32(n)
	if err != nil {
		r.readErr(syntax, err)
		return 0
	}
	return v
}

func (r *syntaxReader) flag(syntax string) bool {
	return r.u(1, syntax) == 1
}

func (r *syntaxReader) ue(syntax string) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.br.ReadExponentialGolombCode()
	if err != nil {
		r.readErr(syntax, err)
		return 0
	}
	if v > math.MaxUint32-1 {
		r.fail(malformed(syntax, int64(v), "exceeds 2^32-2")) //nolint:gosec
		return 0
	}
	return uint32(v) //nolint:gosec
}

// ueMax reads ue(v) and rejects values above hi.
func (r *syntaxReader) ueMax(syntax string, hi uint32) uint32 {
	v := r.ue(syntax)
	if r.err == nil && v > hi {
		r.fail(malformed(syntax, int64(v), "out of range"))
		return 0
	}
	return v
}

// se reads se(v) and rejects values outside [lo, hi].
func (r *syntaxReader) se(syntax string, lo, hi int32) int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.br.ReadSE()
	if err != nil {
		r.readErr(syntax, err)
		return 0
	}
	if v < int(lo) || v > int(hi) {
		r.fail(malformed(syntax, int64(v), "out of range"))
		return 0
	}
	return int32(v) //nolint:gosec
}

// check records a range failure when cond is false.
func (r *syntaxReader) check(cond bool, syntax string, v int64, reason string) {
	if !cond && r.err == nil {
		r.fail(malformed(syntax, v, reason))
	}
}

func (r *syntaxReader) unsupported(syntax string, v int64) {
	if r.err == nil {
		r.fail(unsupported(syntax, v))
	}
}

func (r *syntaxReader) moreRBSPData() bool {
	return r.err == nil && r.br.MoreRBSPData()
}

func (r *syntaxReader) bitPos() int {
	return r.br.BitPos()
}
