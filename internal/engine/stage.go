package engine

import (
	"context"
	"time"

	"github.com/contentsmith/pipewright/internal/dag"
)

// Stage couples a graph node with its executable body. Bodies read their
// inputs from and write their outputs to the run's state manager, so a
// resumed run rehydrates everything a later stage needs.
type Stage struct {
	ID           dag.StageID
	Dependencies []dag.StageID
	Description  string

	// Generator marks a stage that calls an external content generator.
	// Generator stages are followed by the configured cooldown and their
	// calls are expected to go through Generate.
	Generator bool

	// Timeout bounds one execution of the body, zero means no limit. The
	// deadline covers the whole stage including retries and regeneration:
	// individual call timeouts surface as transient faults and are retried,
	// but once the stage deadline expires the next backoff wait aborts and
	// the stage fails with the context's error.
	Timeout time.Duration

	// Run executes the stage. The engine owns retries, checkpointing and
	// tracking; the body owns only the stage's work.
	Run func(ctx context.Context, e *Engine) error
}
