package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/contentsmith/pipewright/internal/dag"
	"github.com/contentsmith/pipewright/internal/fault"
	"github.com/contentsmith/pipewright/internal/retry"
	"github.com/contentsmith/pipewright/internal/state"
	"github.com/contentsmith/pipewright/internal/track"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newTestEngine builds an engine over a temp-dir file store with instant
// sleeps everywhere.
func newTestEngine(t *testing.T, stages []Stage, mut func(*Config)) (*Engine, *state.Manager) {
	t.Helper()
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	mgr := state.NewManager(store)
	cfg := Config{
		Stages:  stages,
		State:   mgr,
		Tracker: track.New(nil),
		Logger:  discardLogger(),
		Retry: retry.Policy{
			MaxRetries: 2,
			BaseDelay:  time.Second,
			Sleep:      func(context.Context, time.Duration) error { return nil },
		},
		GateAttempts:     2,
		BreakerThreshold: 3,
		BreakerTimeout:   time.Minute,
		Sleep:            func(context.Context, time.Duration) error { return nil },
	}
	if mut != nil {
		mut(&cfg)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return e, mgr
}

func noop(context.Context, *Engine) error { return nil }

func TestRun_LinearPipelineCompletes(t *testing.T) {
	var ran []string
	mark := func(name string) func(context.Context, *Engine) error {
		return func(ctx context.Context, e *Engine) error {
			ran = append(ran, name)
			return e.State().SetData(name, name+"-output")
		}
	}
	e, mgr := newTestEngine(t, []Stage{
		{ID: "a", Run: mark("a")},
		{ID: "b", Dependencies: []dag.StageID{"a"}, Run: mark("b")},
		{ID: "c", Dependencies: []dag.StageID{"b"}, Run: mark("c")},
	}, nil)

	report, err := e.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Success {
		t.Errorf("report = %+v", report)
	}
	if len(ran) != 3 || ran[0] != "a" || ran[2] != "c" {
		t.Errorf("execution order = %v", ran)
	}
	if len(report.CompletedStages) != 3 {
		t.Errorf("completed = %v", report.CompletedStages)
	}
	if mgr.State().Status != state.StatusCompleted {
		t.Errorf("status = %s", mgr.State().Status)
	}

	var out string
	if ok, _ := mgr.GetData("b", &out); !ok || out != "b-output" {
		t.Errorf("data b = %q ok=%v", out, ok)
	}
}

func TestRun_TransientFailureRecoversViaRetry(t *testing.T) {
	calls := 0
	stages := []Stage{
		{ID: "gen", Generator: true, Run: func(ctx context.Context, e *Engine) error {
			out, err := Generate(ctx, e, "gen", func(context.Context) (string, error) {
				calls++
				if calls < 3 {
					return "", fault.Transientf("rate limited")
				}
				return "content", nil
			}, func(string) []string { return nil }, func() string { return "fallback" })
			if err != nil {
				return err
			}
			return e.State().SetData("gen", out)
		}},
	}
	e, mgr := newTestEngine(t, stages, nil)

	report, err := e.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 3 {
		t.Errorf("generator called %d times, want 3", calls)
	}
	if report.Steps[0].Attempts != 3 {
		t.Errorf("recorded attempts = %d, want 3", report.Steps[0].Attempts)
	}
	var out string
	if ok, _ := mgr.GetData("gen", &out); !ok || out != "content" {
		t.Errorf("output = %q", out)
	}
}

func TestRun_ResumeSkipsCompletedStages(t *testing.T) {
	dir := t.TempDir()
	store, err := state.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	var ran []string
	stage := func(name string, fail *bool) Stage {
		return Stage{ID: dag.StageID(name), Run: func(context.Context, *Engine) error {
			if fail != nil && *fail {
				return errors.New("boom")
			}
			ran = append(ran, name)
			return nil
		}}
	}
	failC := true
	build := func() *Engine {
		e, err := New(Config{
			Stages: []Stage{
				stage("a", nil),
				{ID: "b", Dependencies: []dag.StageID{"a"}, Run: stage("b", nil).Run},
				{ID: "c", Dependencies: []dag.StageID{"b"}, Run: stage("c", &failC).Run},
			},
			State:            state.NewManager(store),
			Tracker:          track.New(nil),
			Logger:           discardLogger(),
			BreakerThreshold: 3,
			BreakerTimeout:   time.Minute,
		})
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	first := build()
	report, err := first.Run(context.Background(), "")
	if err == nil {
		t.Fatal("first run should fail at c")
	}
	if len(report.CompletedStages) != 2 {
		t.Fatalf("completed = %v", report.CompletedStages)
	}

	failC = false
	ran = nil
	second := build()
	report2, err := second.Run(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if report2.RunID != report.RunID {
		t.Errorf("resume changed run id: %s -> %s", report.RunID, report2.RunID)
	}
	if len(ran) != 1 || ran[0] != "c" {
		t.Errorf("resumed run executed %v, want only c", ran)
	}
	for _, step := range report2.Steps {
		if (step.Stage == "a" || step.Stage == "b") && step.Status != track.StatusSkipped {
			t.Errorf("stage %s status = %s, want skipped", step.Stage, step.Status)
		}
	}
}

func TestRun_ResumeRefusesCompletedRun(t *testing.T) {
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	build := func() *Engine {
		e, err := New(Config{
			Stages:           []Stage{{ID: "a", Run: noop}},
			State:            state.NewManager(store),
			Tracker:          track.New(nil),
			Logger:           discardLogger(),
			BreakerThreshold: 3,
			BreakerTimeout:   time.Minute,
		})
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	report, err := build().Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	before := state.NewManager(store)
	if !before.LoadCheckpoint(report.RunID) {
		t.Fatal("terminal snapshot should exist")
	}
	completedAt := *before.State().CompletedAt

	_, err = build().Run(context.Background(), report.RunID)
	if fault.KindOf(err) != fault.KindConfiguration {
		t.Fatalf("kind = %v, want configuration", fault.KindOf(err))
	}

	after := state.NewManager(store)
	if !after.LoadCheckpoint(report.RunID) {
		t.Fatal("terminal snapshot should survive the refused resume")
	}
	if after.State().Status != state.StatusCompleted {
		t.Errorf("status = %s, want completed", after.State().Status)
	}
	if !after.State().CompletedAt.Equal(completedAt) {
		t.Error("refused resume must not re-stamp the completion time")
	}
}

func TestRun_ResumeWithUnknownCheckpointStartsFresh(t *testing.T) {
	e, _ := newTestEngine(t, []Stage{{ID: "a", Run: noop}}, nil)

	report, err := e.Run(context.Background(), "20990101_000000_deadbeef")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.RunID == "20990101_000000_deadbeef" {
		t.Error("unknown checkpoint id must not be reused")
	}
	if !report.Success {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_CancellationDoesNotPersistFailure(t *testing.T) {
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	mgr := state.NewManager(store)

	ctx, cancel := context.WithCancel(context.Background())
	e, err := New(Config{
		Stages: []Stage{
			{ID: "a", Run: noop},
			{ID: "b", Dependencies: []dag.StageID{"a"}, Run: func(ctx context.Context, _ *Engine) error {
				cancel()
				return ctx.Err()
			}},
		},
		State:            mgr,
		Tracker:          track.New(nil),
		Logger:           discardLogger(),
		BreakerThreshold: 3,
		BreakerTimeout:   time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Run(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// the last snapshot stays "running" so the run can be resumed
	runID := mgr.State().RunID
	fresh := state.NewManager(store)
	if !fresh.LoadCheckpoint(runID) {
		t.Fatal("checkpoint should exist after stage a")
	}
	if fresh.State().Status == state.StatusFailed {
		t.Error("interrupted run must not be persisted as failed")
	}
	if !fresh.CanResumeFrom("a") {
		t.Error("stage a should be resumable")
	}
}

func TestRun_StageTimeoutFailsRun(t *testing.T) {
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	mgr := state.NewManager(store)

	e, err := New(Config{
		Stages: []Stage{
			{ID: "a", Run: noop},
			{ID: "slow", Dependencies: []dag.StageID{"a"}, Timeout: 10 * time.Millisecond,
				Run: func(ctx context.Context, _ *Engine) error {
					<-ctx.Done()
					return ctx.Err()
				}},
		},
		State:            mgr,
		Tracker:          track.New(nil),
		Logger:           discardLogger(),
		BreakerThreshold: 3,
		BreakerTimeout:   time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := e.Run(context.Background(), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if report.Success {
		t.Error("report should not be successful")
	}
	// the stage deadline is local: the run is failed, not left hanging
	if mgr.State().Status != state.StatusFailed {
		t.Errorf("status = %s, want failed", mgr.State().Status)
	}
	if !mgr.CanResumeFrom("a") {
		t.Error("stage a should remain checkpointed")
	}
}

func TestRun_CooldownAfterGeneratorStages(t *testing.T) {
	var pauses []time.Duration
	e, _ := newTestEngine(t, []Stage{
		{ID: "plain", Run: noop},
		{ID: "gen1", Generator: true, Dependencies: []dag.StageID{"plain"}, Run: noop},
		{ID: "gen2", Generator: true, Dependencies: []dag.StageID{"gen1"}, Run: noop},
	}, func(cfg *Config) {
		cfg.Cooldown = 15 * time.Second
		cfg.Sleep = func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}
	})

	if _, err := e.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// gen1 cools down, gen2 is last so it does not
	if len(pauses) != 1 || pauses[0] != 15*time.Second {
		t.Errorf("pauses = %v", pauses)
	}
}

func TestRun_GateFallbackKeepsPipelineAlive(t *testing.T) {
	e, mgr := newTestEngine(t, []Stage{
		{ID: "gen", Generator: true, Run: func(ctx context.Context, e *Engine) error {
			out, err := Generate(ctx, e, "gen", func(context.Context) (string, error) {
				return "garbage", nil
			}, func(s string) []string {
				return []string{"not valid content"}
			}, func() string { return "fallback" })
			if err != nil {
				return err
			}
			return e.State().SetData("gen", out)
		}},
	}, nil)

	report, err := e.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Success {
		t.Errorf("report = %+v", report)
	}
	var out string
	if ok, _ := mgr.GetData("gen", &out); !ok || out != "fallback" {
		t.Errorf("output = %q, want fallback", out)
	}
}

func TestRun_BreakerOpensAndFailsStage(t *testing.T) {
	calls := 0
	e, _ := newTestEngine(t, []Stage{
		{ID: "gen", Generator: true, Run: func(ctx context.Context, e *Engine) error {
			_, err := Generate(ctx, e, "gen", func(context.Context) (string, error) {
				calls++
				return "", fault.Transientf("down")
			}, func(string) []string { return nil }, func() string { return "fallback" })
			return err
		}},
	}, func(cfg *Config) {
		cfg.BreakerThreshold = 2
		cfg.Retry.MaxRetries = 5
	})

	_, err := e.Run(context.Background(), "")
	if err == nil {
		t.Fatal("run should fail once the breaker opens")
	}
	if fault.KindOf(err) != fault.KindCircuitOpen {
		t.Errorf("kind = %v, want circuit_open", fault.KindOf(err))
	}
	// two real calls trip the breaker, the third attempt is rejected unsent
	if calls != 2 {
		t.Errorf("generator called %d times, want 2", calls)
	}
}

func TestNew_RejectsInvalidGraph(t *testing.T) {
	_, err := New(Config{
		Stages: []Stage{
			{ID: "a", Dependencies: []dag.StageID{"b"}, Run: noop},
			{ID: "b", Dependencies: []dag.StageID{"a"}, Run: noop},
		},
		State:   state.NewManager(mustFileStore(t)),
		Tracker: track.New(nil),
		Logger:  discardLogger(),
	})
	if fault.KindOf(err) != fault.KindConfiguration {
		t.Errorf("kind = %v, want configuration", fault.KindOf(err))
	}
}

func mustFileStore(t *testing.T) state.Store {
	t.Helper()
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}
