// Package gate runs a non-deterministic stage body behind a validate-or-retry
// loop: the body is re-invoked (a fresh generation, not a replay) while its
// output fails validation, and a safe fallback is returned once the attempt
// budget is spent. The pipeline therefore always ends with a structurally
// valid result, even when the generator never produces an acceptable one.
package gate

import (
	"context"
	"log/slog"
)

// Validator inspects an output and returns the list of violations, empty
// when the output is acceptable.
type Validator[T any] func(output T) []string

// Config bounds the gate.
type Config struct {
	// MaxAttempts is the total number of body invocations allowed.
	MaxAttempts int
	// Stage names the gated stage for logging.
	Stage string
	// Logger records retries and fallback use. Nil disables logging.
	Logger *slog.Logger
}

// Run invokes body and validates its output. Violations trigger a fresh body
// invocation while attempts remain; once exhausted the fallback value is
// returned (and logged, a fallback is never silent). Body errors are not the
// gate's concern and propagate immediately.
func Run[T any](ctx context.Context, cfg Config, body func(ctx context.Context) (T, error), validate Validator[T], fallback func() T) (T, error) {
	var zero T
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var violations []string
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := body(ctx)
		if err != nil {
			return zero, err
		}

		violations = validate(out)
		if len(violations) == 0 {
			return out, nil
		}

		if cfg.Logger != nil && attempt < attempts {
			cfg.Logger.Warn("output failed validation, regenerating",
				"stage", cfg.Stage,
				"attempt", attempt,
				"max_attempts", attempts,
				"violations", violations)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("validation attempts exhausted, using fallback output",
			"stage", cfg.Stage,
			"attempts", attempts,
			"violations", violations)
	}
	return fallback(), nil
}
