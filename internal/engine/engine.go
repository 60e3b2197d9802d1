// Package engine executes a stage graph with checkpointed resume, bounded
// retries, circuit breaking and validated generation. One Engine instance
// drives one run at a time.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/contentsmith/pipewright/internal/breaker"
	"github.com/contentsmith/pipewright/internal/dag"
	"github.com/contentsmith/pipewright/internal/fault"
	"github.com/contentsmith/pipewright/internal/gate"
	"github.com/contentsmith/pipewright/internal/retry"
	"github.com/contentsmith/pipewright/internal/state"
	"github.com/contentsmith/pipewright/internal/track"
)

// Config assembles an Engine.
type Config struct {
	Stages  []Stage
	State   *state.Manager
	Tracker *track.Tracker
	Logger  *slog.Logger

	// Retry applies to each generation call made through Generate.
	Retry retry.Policy
	// GateAttempts bounds regeneration when generated output fails
	// validation.
	GateAttempts int
	// BreakerThreshold and BreakerTimeout configure the per-stage circuit
	// breakers guarding generator calls.
	BreakerThreshold int
	BreakerTimeout   time.Duration
	// Cooldown is the pause after each generator stage, rate-limit headroom
	// for the next one. Zero disables it.
	Cooldown time.Duration

	// Sleep is injectable for tests. Nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Engine runs the pipeline.
type Engine struct {
	def    *dag.Definition
	stages map[dag.StageID]Stage
	cfg    Config

	mu       sync.Mutex
	breakers map[dag.StageID]*breaker.Breaker
	attempts map[dag.StageID]int
}

// New builds an engine from the configured stages. The stage list doubles as
// the graph declaration; declaration order breaks ordering ties.
func New(cfg Config) (*Engine, error) {
	nodes := make([]dag.Node, 0, len(cfg.Stages))
	stages := make(map[dag.StageID]Stage, len(cfg.Stages))
	for _, s := range cfg.Stages {
		nodes = append(nodes, dag.Node{
			Stage:        s.ID,
			Dependencies: s.Dependencies,
			Description:  s.Description,
		})
		stages[s.ID] = s
	}

	def, err := dag.NewDefinition(nodes)
	if err != nil {
		return nil, err
	}
	if ok, errs := def.Validate(); !ok {
		return nil, fault.Configurationf("invalid stage graph: %s", strings.Join(errs, "; "))
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.GateAttempts < 1 {
		cfg.GateAttempts = 1
	}

	return &Engine{
		def:      def,
		stages:   stages,
		cfg:      cfg,
		breakers: make(map[dag.StageID]*breaker.Breaker),
		attempts: make(map[dag.StageID]int),
	}, nil
}

// Definition exposes the stage graph for plan rendering.
func (e *Engine) Definition() *dag.Definition { return e.def }

// State exposes the run's state manager to stage bodies.
func (e *Engine) State() *state.Manager { return e.cfg.State }

// Logger exposes the engine's logger to stage bodies.
func (e *Engine) Logger() *slog.Logger { return e.cfg.Logger }

// Tracker exposes the execution ledger for CLI rendering.
func (e *Engine) Tracker() *track.Tracker { return e.cfg.Tracker }

// Run executes every stage in dependency order. A non-empty resumeID
// rehydrates the matching checkpoint first and skips the stages it already
// committed; an unknown checkpoint falls back to a fresh run, while a
// checkpoint that already completed is refused untouched. The returned
// report is non-nil even when the run fails.
func (e *Engine) Run(ctx context.Context, resumeID string) (*Report, error) {
	st, err := e.startOrResume(resumeID)
	if err != nil {
		return e.report(st, err), err
	}
	logger := e.cfg.Logger.With("run_id", st.RunID)
	logger.Info("pipeline starting", "stages", e.def.Len())

	order := e.def.ExecutionOrder()
	for i, id := range order {
		stage := e.stages[id]

		if e.cfg.State.CanResumeFrom(string(id)) {
			logger.Info("stage already completed, skipping", "stage", id)
			e.cfg.Tracker.Skip(string(id))
			continue
		}

		logger.Info("stage starting", "stage", id)
		e.cfg.Tracker.Start(string(id))

		err := e.runStage(ctx, stage)
		attempts := e.takeAttempts(id)
		if err != nil {
			err = fault.WithStage(err, string(id), attempts)
			e.cfg.Tracker.Fail(string(id), attempts, err)
			logger.Error("stage failed", "stage", id, "attempts", attempts, "error", err)
			return e.fail(st, err)
		}

		if err := e.cfg.State.Checkpoint(string(id)); err != nil {
			e.cfg.Tracker.Fail(string(id), attempts, err)
			return e.fail(st, err)
		}
		e.cfg.Tracker.Complete(string(id), attempts)
		logger.Info("stage completed", "stage", id, "attempts", attempts)

		if stage.Generator && e.cfg.Cooldown > 0 && i < len(order)-1 {
			logger.Info("cooling down after generator stage", "stage", id, "cooldown", e.cfg.Cooldown)
			if err := e.cfg.Sleep(ctx, e.cfg.Cooldown); err != nil {
				return e.fail(st, err)
			}
		}
	}

	if err := e.cfg.State.Complete(); err != nil {
		return e.fail(st, err)
	}
	logger.Info("pipeline completed", "stages", len(order))
	return e.report(st, nil), nil
}

func (e *Engine) startOrResume(resumeID string) (*state.RunState, error) {
	if resumeID != "" {
		if e.cfg.State.LoadCheckpoint(resumeID) {
			st := e.cfg.State.State()
			// A completed run is immutable; re-running it would re-stamp
			// its terminal snapshot.
			if st.Status == state.StatusCompleted {
				return st, fault.Configurationf("run %s already completed, start a new run instead", resumeID)
			}
			st.Status = state.StatusRunning
			st.CompletedAt = nil
			e.cfg.Logger.Info("resuming from checkpoint",
				"run_id", resumeID,
				"completed_stages", len(st.CompletedStages))
			return st, nil
		}
		e.cfg.Logger.Warn("checkpoint not found, starting fresh run", "run_id", resumeID)
	}
	return e.cfg.State.StartRun(), nil
}

func (e *Engine) runStage(ctx context.Context, s Stage) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Run(ctx, e)
}

// fail finalises the run as failed. An interrupted run is not persisted as
// failed: its checkpoints stay intact for resume and the cause is the
// context's error.
func (e *Engine) fail(st *state.RunState, err error) (*Report, error) {
	if !errors.Is(err, context.Canceled) {
		if perr := e.cfg.State.Fail(err); perr != nil {
			e.cfg.Logger.Error("failed to persist failure state", "run_id", st.RunID, "error", perr)
		}
	}
	return e.report(st, err), err
}

// breakerFor lazily creates the breaker guarding a generator stage.
func (e *Engine) breakerFor(id dag.StageID) *breaker.Breaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.breakers[id]
	if !ok {
		b = breaker.New(string(id), e.cfg.BreakerThreshold, e.cfg.BreakerTimeout,
			breaker.WithLogger(e.cfg.Logger))
		e.breakers[id] = b
	}
	return b
}

func (e *Engine) noteAttempt(id dag.StageID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts[id]++
}

func (e *Engine) takeAttempts(id dag.StageID) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.attempts[id]
	delete(e.attempts, id)
	if n < 1 {
		n = 1
	}
	return n
}

// Generate runs one generator call with the engine's full protection stack:
// the output is validated and regenerated up to the gate budget, every
// generation attempt is retried with backoff on transient failures, and all
// calls flow through the stage's circuit breaker. When the gate budget is
// spent the fallback output is used so the pipeline still completes.
func Generate[T any](ctx context.Context, e *Engine, stageID dag.StageID, op func(ctx context.Context) (T, error), validate gate.Validator[T], fallback func() T) (T, error) {
	body := func(ctx context.Context) (T, error) {
		return retry.Do(ctx, e.cfg.Retry, e.cfg.Logger, func(ctx context.Context) (T, error) {
			e.noteAttempt(stageID)
			return breaker.Call(e.breakerFor(stageID), ctx, op)
		})
	}
	return gate.Run(ctx, gate.Config{
		MaxAttempts: e.cfg.GateAttempts,
		Stage:       string(stageID),
		Logger:      e.cfg.Logger,
	}, body, validate, fallback)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
