package report

import "errors"

// OutcomeKind tags the three ways a per-product step can end.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeValidationError
	OutcomeTransientFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationError:
		return "validation_error"
	case OutcomeTransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

// Outcome is Success(T) | ValidationError(kind, detail) | TransientFailure(detail).
// Value is only meaningful on success; Err is set otherwise.
type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Err   error
}

func Success[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: OutcomeSuccess, Value: v}
}

func Invalid[T any](err *Error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeValidationError, Err: err}
}

func Transient[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: OutcomeTransientFailure, Err: err}
}

func (o Outcome[T]) OK() bool {
	return o.Kind == OutcomeSuccess
}

// ErrorKind returns the domain kind of a validation error, or 0.
func (o Outcome[T]) ErrorKind() Kind {
	var re *Error
	if errors.As(o.Err, &re) {
		return re.Kind
	}
	return 0
}
