package gskel

import (
	"errors"
	"fmt"
)

// Kind classifies the errors returned by the meshing pipeline.
type Kind uint8

const (
	_ Kind = iota
	// KindDegenerate means the input has no volume to mesh, such as a zero sized bounding box.
	KindDegenerate
	// KindOverflow means the output mesh has too many vertices or indices for 32 bit indexing.
	KindOverflow
	// KindNonFinite means an input coordinate or radius was NaN or infinite.
	KindNonFinite
	// KindInvalidParameter means a parameter is outside its valid range.
	KindInvalidParameter
	// KindNoData means an input that must not be empty was empty.
	KindNoData
)

func (k Kind) String() string {
	switch k {
	case KindDegenerate:
		return "degenerate geometry"
	case KindOverflow:
		return "index overflow"
	case KindNonFinite:
		return "non-finite value"
	case KindInvalidParameter:
		return "invalid parameter"
	case KindNoData:
		return "no data"
	}
	return "unknown error kind"
}

// Error is the error type returned by gskel and the packages built on it.
// Two errors match with [errors.Is] when their kinds are equal.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel errors for use with [errors.Is].
var (
	ErrDegenerate       = &Error{Kind: KindDegenerate}
	ErrOverflow         = &Error{Kind: KindOverflow}
	ErrNonFinite        = &Error{Kind: KindNonFinite}
	ErrInvalidParameter = &Error{Kind: KindInvalidParameter}
	ErrNoData           = &Error{Kind: KindNoData}
)

// Errorf formats an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
