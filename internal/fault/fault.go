// Package fault defines the error vocabulary shared by the pipeline engine:
// every failure is classified by a Kind that decides whether it may be
// retried and how far it escalates.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindStage is a stage body failure not otherwise classified.
	KindStage Kind = iota
	// KindConfiguration is an invalid DAG or missing setup; fatal, never retried.
	KindConfiguration
	// KindValidation is a structural check failure on a stage's input or output.
	KindValidation
	// KindTransient is a rate-limit, timeout or network failure; retryable.
	KindTransient
	// KindCircuitOpen means the breaker rejected the call without attempting it.
	KindCircuitOpen
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindCircuitOpen:
		return "circuit_open"
	default:
		return "stage"
	}
}

// Error is a classified pipeline error, optionally carrying the stage it
// occurred in and the number of attempts made before it was surfaced.
type Error struct {
	Kind      Kind
	Stage     string
	Attempts  int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Stage != "" {
		msg = fmt.Sprintf("stage %s: %s", e.Stage, msg)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, e.Attempts)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Configurationf returns a fatal configuration error.
func Configurationf(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}

// Validationf returns a non-retryable structural validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

// Transientf returns a retryable availability error.
func Transientf(format string, args ...any) error {
	return &Error{Kind: KindTransient, Retryable: true, Err: fmt.Errorf(format, args...)}
}

// Transient wraps err as a retryable availability error.
func Transient(err error) error {
	return &Error{Kind: KindTransient, Retryable: true, Err: err}
}

// Stagef returns an unclassified, non-retryable stage error.
func Stagef(format string, args ...any) error {
	return &Error{Kind: KindStage, Err: fmt.Errorf(format, args...)}
}

// CircuitOpenf returns a breaker-rejection error. The caller must wait for
// the breaker's recovery timeout; retrying immediately is pointless.
func CircuitOpenf(format string, args ...any) error {
	return &Error{Kind: KindCircuitOpen, Err: fmt.Errorf(format, args...)}
}

// WithRetryable overrides the retryability of a stage error. Kinds with a
// fixed policy (configuration, validation, circuit-open) are not changed.
func WithRetryable(err error, retryable bool) error {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Kind == KindStage || fe.Kind == KindTransient {
			fe.Retryable = retryable
		}
		return err
	}
	return &Error{Kind: KindStage, Retryable: retryable, Err: err}
}

// WithStage annotates err with the stage it occurred in and the attempt
// count, preserving its kind. Unclassified errors become stage errors.
func WithStage(err error, stage string, attempts int) error {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Stage == "" {
			fe.Stage = stage
		}
		if attempts > fe.Attempts {
			fe.Attempts = attempts
		}
		return err
	}
	return &Error{Kind: KindStage, Stage: stage, Attempts: attempts, Err: err}
}

// KindOf reports the kind of err. Errors that carry no classification are
// treated as stage errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindStage
}

// IsRetryable reports whether a retry policy may re-attempt the operation
// that produced err. Unclassified errors are not retried.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case KindConfiguration, KindValidation, KindCircuitOpen:
			return false
		case KindTransient:
			return true
		default:
			return fe.Retryable
		}
	}
	return false
}
