package core

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	ErrInvalidSequenceSyntax = errors.New("invalid sequence syntax")
	ErrEntryMismatch         = errors.New("localizer entry does not match report sequence")
	ErrMissingColumn         = errors.New("missing required column")
	ErrThresholdRange        = errors.New("threshold out of range")
	ErrIO                    = errors.New("i/o failure")
)

// SequenceError reports an annotated sequence that cannot be parsed.
type SequenceError struct {
	Sequence string
	Reason   string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("peptide sequence '%s' is not supported: %s", e.Sequence, e.Reason)
}

func (e *SequenceError) Unwrap() error { return ErrInvalidSequenceSyntax }

// MismatchError reports a predicted sequence that cannot be merged with the
// original annotated sequence of the same PSM.
type MismatchError struct {
	PsmID     string
	Predicted string
	Original  string
	Reason    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("psm %s: predicted '%s' vs original '%s': %s", e.PsmID, e.Predicted, e.Original, e.Reason)
}

func (e *MismatchError) Unwrap() error { return ErrEntryMismatch }

// ColumnError reports a header row lacking a column the rewrite depends on.
type ColumnError struct {
	Header string // which header row, e.g. "PSM" or "locus"
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s header has no column '%s'", e.Header, e.Column)
}

func (e *ColumnError) Unwrap() error { return ErrMissingColumn }

// ThresholdError reports an FLR ceiling outside [0,1] or not finite.
type ThresholdError struct {
	Name  string
	Value float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s threshold not valid (%v): it must be a real number between 0 and 1.0", e.Name, e.Value)
}

func (e *ThresholdError) Unwrap() error { return ErrThresholdRange }

// IOFailure wraps a filesystem failure. It matches ErrIO with errors.Is and
// unwraps to the underlying error.
type IOFailure struct {
	Op  string
	Err error
}

func (e *IOFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOFailure) Unwrap() error { return e.Err }

func (e *IOFailure) Is(target error) bool { return target == ErrIO }

// IOError returns err wrapped as an *IOFailure, or nil when err is nil.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOFailure{Op: op, Err: err}
}
