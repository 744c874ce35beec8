// Package errkind defines the single tagged error type shared by the markovnet model.
//
// Every failure raised by the model packages carries a Kind discriminant plus a
// message. Callers branch on the kind instead of on concrete error types:
//
//	if err := net.DoEdit(edit); err != nil {
//		switch errkind.KindOf(err) {
//		case errkind.ConstraintViolation:
//			// the edit was vetoed, the network is unchanged
//		case errkind.DoEditFailed:
//			// the edit started but could not complete
//		}
//	}
//
// Sentinels are provided for use with errors.Is:
//
//	if errors.Is(err, errkind.ErrIncompatibleEvidence) { ... }
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies a model error.
type Kind int

const (
	// Unknown is returned by KindOf for errors that do not come from this package.
	Unknown Kind = iota
	ConstraintViolation
	CanNotDoEdit
	NonProjectable
	WrongCriterion
	DoEditFailed
	IncompatibleEvidence
	InvalidState
	NoFinding
	NodeNotFound
	ProbNodeNotFound
	WrongGraphStructure
	InvalidArgument
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	ConstraintViolation:  "constraint violation",
	CanNotDoEdit:         "can not do edit",
	NonProjectable:       "non projectable potential",
	WrongCriterion:       "wrong criterion",
	DoEditFailed:         "do edit failed",
	IncompatibleEvidence: "incompatible evidence",
	InvalidState:         "invalid state",
	NoFinding:            "no finding",
	NodeNotFound:         "node not found",
	ProbNodeNotFound:     "prob node not found",
	WrongGraphStructure:  "wrong graph structure",
	InvalidArgument:      "invalid argument",
}

// String returns the human readable kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the tagged error carried through the model.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return e.Kind.String() + ": " + e.Msg
	case e.Msg == "":
		return e.Kind.String() + ": " + e.Err.Error()
	default:
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets the sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels, one per kind.
var (
	ErrConstraintViolation  = &Error{Kind: ConstraintViolation}
	ErrCanNotDoEdit         = &Error{Kind: CanNotDoEdit}
	ErrNonProjectable       = &Error{Kind: NonProjectable}
	ErrWrongCriterion       = &Error{Kind: WrongCriterion}
	ErrDoEditFailed         = &Error{Kind: DoEditFailed}
	ErrIncompatibleEvidence = &Error{Kind: IncompatibleEvidence}
	ErrInvalidState         = &Error{Kind: InvalidState}
	ErrNoFinding            = &Error{Kind: NoFinding}
	ErrNodeNotFound         = &Error{Kind: NodeNotFound}
	ErrProbNodeNotFound     = &Error{Kind: ProbNodeNotFound}
	ErrWrongGraphStructure  = &Error{Kind: WrongGraphStructure}
	ErrInvalidArgument      = &Error{Kind: InvalidArgument}
)

// New builds an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around an existing cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
