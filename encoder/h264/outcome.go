package h264

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Status is the verdict of a canonicalization pass, ordered by severity.
type Status int

const (
	Accepted Status = iota
	AcceptedWithCorrection
	Unsupported
	Incompatible
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "Accepted"
	case AcceptedWithCorrection:
		return "AcceptedWithCorrection"
	case Unsupported:
		return "Unsupported"
	case Incompatible:
		return "Incompatible"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Fatal reports whether the configuration must not be used.
func (s Status) Fatal() bool {
	return s >= Unsupported
}

// Reason is a bit set describing why a field was corrected or rejected.
type Reason uint32

const (
	ReasonAlignment Reason = 1 << iota
	ReasonTriState
	ReasonRange
	ReasonHardware
	ReasonRateControl
	ReasonGop
	ReasonReferences
	ReasonSlices
	ReasonProfile
	ReasonLevel
	ReasonHRD
	ReasonVUI
	ReasonRegion
	ReasonCodingTool
	ReasonMandatory
	ReasonDefault
	ReasonExternalHeader
)

var reasonNames = []string{
	"alignment", "tristate", "range", "hardware", "ratecontrol", "gop", "references",
	"slices", "profile", "level", "hrd", "vui", "region", "codingtool", "mandatory",
	"default", "externalheader",
}

func (r Reason) String() string {
	if r == 0 {
		return "none"
	}
	var names []string
	for i, name := range reasonNames {
		if r&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, "|")
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Correction is one field a rule changed.
type Correction struct {
	Rule   string `json:"rule"`
	Field  string `json:"field"`
	Reason Reason `json:"reason"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Rejection is one field a rule could not repair.
type Rejection struct {
	Rule   string `json:"rule"`
	Field  string `json:"field"`
	Reason Reason `json:"reason"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
	Err    error  `json:"-"`
}

// Outcome accumulates the corrections and rejections of one pass. Status is the
// maximum severity seen and ReasonMask the union of every reason.
type Outcome struct {
	Status      Status       `json:"status"`
	ReasonMask  Reason       `json:"reasonMask"`
	Corrections []Correction `json:"corrections,omitempty"`
	Rejections  []Rejection  `json:"rejections,omitempty"`
}

func (o *Outcome) escalate(s Status) {
	o.Status = max(o.Status, s)
}

func (o *Outcome) correct(c Correction) {
	o.Corrections = append(o.Corrections, c)
	o.ReasonMask |= c.Reason
	o.escalate(AcceptedWithCorrection)
}

func (o *Outcome) reject(r Rejection) {
	o.Rejections = append(o.Rejections, r)
	o.ReasonMask |= r.Reason
	o.escalate(r.Status)
}

// Corrected reports whether field was changed during the pass.
func (o *Outcome) Corrected(field string) bool {
	for _, c := range o.Corrections {
		if c.Field == field {
			return true
		}
	}
	return false
}

// Err returns nil unless the outcome is fatal. Incompatible takes precedence
// over Unsupported.
func (o *Outcome) Err() error {
	switch o.Status {
	case Incompatible:
		for _, r := range o.Rejections {
			if r.Status == Incompatible {
				return &IncompatibleError{Field: r.Field, Detail: r.Detail, Err: r.Err}
			}
		}
	case Unsupported:
		e := &UnsupportedError{}
		for _, r := range o.Rejections {
			if r.Status == Unsupported {
				e.Mask |= r.Reason
				e.Fields = append(e.Fields, r.Field)
			}
		}
		return e
	}
	return nil
}

var (
	// ErrUnsupported is matched by every UnsupportedError.
	ErrUnsupported = errors.New("h264 encoder: unsupported configuration")
	// ErrIncompatible is matched by every IncompatibleError.
	ErrIncompatible = errors.New("h264 encoder: incompatible configuration")
)

// UnsupportedError lists the fields the hardware or the level ladder cannot serve.
type UnsupportedError struct {
	Mask   Reason
	Fields []string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("h264 encoder: unsupported %s (%s)", strings.Join(e.Fields, ", "), e.Mask)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported //nolint:errorlint,err113
}

// IncompatibleError names the field that contradicts caller supplied headers or
// the configuration an encoder was initialised with.
type IncompatibleError struct {
	Field  string
	Detail string
	Err    error
}

func (e *IncompatibleError) Error() string {
	msg := "h264 encoder: incompatible " + e.Field
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IncompatibleError) Unwrap() error {
	return e.Err
}

func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible //nolint:errorlint,err113
}
