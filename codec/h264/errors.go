package h264

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedBitstream is matched by every reader failure.
	ErrMalformedBitstream = errors.New("h264: malformed bitstream")
	// ErrUnsupportedSyntax is matched by syntax outside Baseline/Main/High 8-bit 4:2:0.
	ErrUnsupportedSyntax = errors.New("h264: unsupported syntax")
	ErrDecconfInvalid    = errors.New("h264parser: AVCDecoderConfRecord invalid")
)

// MalformedBitstreamError reports a syntax element whose decoded value is out of range.
type MalformedBitstreamError struct {
	Syntax string
	Value  int64
	Reason string
	Err    error // underlying read error, if any
}

func (e *MalformedBitstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("h264: malformed bitstream: %s: %s: %v", e.Syntax, e.Reason, e.Err)
	}
	return fmt.Sprintf("h264: malformed bitstream: %s=%d: %s", e.Syntax, e.Value, e.Reason)
}

func (e *MalformedBitstreamError) Unwrap() error {
	return e.Err
}

func (e *MalformedBitstreamError) Is(target error) bool {
	return target == ErrMalformedBitstream //nolint:errorlint,err113
}

// UnsupportedSyntaxError reports a legal value this codec does not handle.
type UnsupportedSyntaxError struct {
	Syntax string
	Value  int64
}

func (e *UnsupportedSyntaxError) Error() string {
	return fmt.Sprintf("h264: unsupported %s=%d", e.Syntax, e.Value)
}

func (e *UnsupportedSyntaxError) Is(target error) bool {
	return target == ErrMalformedBitstream || target == ErrUnsupportedSyntax //nolint:errorlint,err113
}

func malformed(syntax string, v int64, reason string) error {
	return &MalformedBitstreamError{Syntax: syntax, Value: v, Reason: reason}
}

func unsupported(syntax string, v int64) error {
	return &UnsupportedSyntaxError{Syntax: syntax, Value: v}
}
