package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/contentsmith/pipewright/internal/engine"
	"github.com/contentsmith/pipewright/internal/generate"
	"github.com/contentsmith/pipewright/internal/loader"
	"github.com/contentsmith/pipewright/internal/logging"
	"github.com/contentsmith/pipewright/internal/pipeline"
	"github.com/contentsmith/pipewright/internal/retry"
	"github.com/contentsmith/pipewright/internal/schema"
	"github.com/contentsmith/pipewright/internal/state"
	"github.com/contentsmith/pipewright/internal/track"
)

// app bundles everything the commands share: resolved config, logger and
// the pipeline collaborators.
type app struct {
	cfg       loader.Config
	logger    *slog.Logger
	generator generate.Generator
	schema    *schema.Validator
	closeFns  []func() error
}

// newApp loads the config file and applies flag overrides.
func newApp() (*app, error) {
	cfg, err := loader.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if outputDir != "" {
		cfg.Paths.OutputDir = outputDir
	}
	if stateDir != "" {
		cfg.Paths.StateDir = stateDir
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.Logging.Level, cfg.Logging.Format),
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	a.schema = validator

	if offline || cfg.Generator.Provider != "openai" {
		a.generator = generate.Static{}
	} else {
		gen, err := generate.NewOpenAI(os.Getenv("OPENAI_API_KEY"), cfg.Generator.Model, a.logger)
		if err != nil {
			return nil, err
		}
		a.generator = gen
	}
	return a, nil
}

// newStore opens the checkpoint store selected by --store.
func (a *app) newStore() (state.Store, error) {
	switch storeKind {
	case "", "file":
		return state.NewFileStore(a.cfg.Paths.StateDir)
	case "badger":
		store, err := state.NewBadgerStore(a.cfg.Paths.StateDir)
		if err != nil {
			return nil, err
		}
		a.closeFns = append(a.closeFns, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q (want file or badger)", storeKind)
	}
}

// newEngine builds a fresh engine over the given store. One engine drives
// one run.
func (a *app) newEngine(store state.Store, metrics *track.Metrics) (*engine.Engine, error) {
	cooldown := a.cfg.Generator.Cooldown.Std()
	if _, static := a.generator.(generate.Static); static {
		cooldown = 0 // nothing to rate-limit offline
	}
	return engine.New(engine.Config{
		Stages: pipeline.Stages(pipeline.Options{
			DataDir:      a.cfg.Paths.DataDir,
			OutputDir:    a.cfg.Paths.OutputDir,
			Generator:    a.generator,
			Schema:       a.schema,
			StageTimeout: a.cfg.Generator.StageTimeout.Std(),
		}),
		State:   state.NewManager(store),
		Tracker: track.New(metrics),
		Logger:  a.logger,
		Retry: retry.Policy{
			MaxRetries:  a.cfg.Retry.MaxRetries,
			BaseDelay:   a.cfg.Retry.RetryDelay.Std(),
			Exponential: a.cfg.Retry.ExponentialBackoff,
		},
		GateAttempts:     a.cfg.Validation.MaxAttempts,
		BreakerThreshold: a.cfg.Breaker.FailureThreshold,
		BreakerTimeout:   a.cfg.Breaker.RecoveryTimeout.Std(),
		Cooldown:         cooldown,
	})
}

// close releases any resources opened while wiring (the badger store).
func (a *app) close() {
	for _, fn := range a.closeFns {
		if err := fn(); err != nil {
			a.logger.Warn("cleanup failed", "error", err)
		}
	}
}
