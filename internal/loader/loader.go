// Package loader reads product data files and the engine configuration.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/contentsmith/pipewright/internal/fault"
	"github.com/contentsmith/pipewright/internal/model"
)

// requiredFields must be present in every raw product file.
var requiredFields = []string{"productName", "keyIngredients", "benefits", "price"}

// LoadProduct reads and parses a product data file. JSON and YAML are both
// accepted; the extension decides the decoder.
func LoadProduct(path string) (model.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Product{}, fmt.Errorf("failed to read product file: %w", err)
	}

	var fields map[string]any
	var raw model.RawProduct
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &fields); err != nil {
			return model.Product{}, fmt.Errorf("failed to parse product JSON: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return model.Product{}, fmt.Errorf("failed to parse product JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &fields); err != nil {
			return model.Product{}, fmt.Errorf("failed to parse product YAML: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return model.Product{}, fmt.Errorf("failed to parse product YAML: %w", err)
		}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return model.Product{}, fault.Validationf("product %s missing required fields: %s",
			filepath.Base(path), strings.Join(missing, ", "))
	}

	return Normalize(raw), nil
}

// Normalize converts raw product data into the internal model, filling
// defaults for optional fields.
func Normalize(raw model.RawProduct) model.Product {
	p := model.Product{
		ProductName:    raw.ProductName,
		Concentration:  raw.Concentration,
		SkinType:       emptyIfNil(raw.SkinType),
		KeyIngredients: emptyIfNil(raw.KeyIngredients),
		Benefits:       emptyIfNil(raw.Benefits),
		HowToUse:       raw.HowToUse,
		SideEffects:    raw.SideEffects,
		Price:          raw.Price,
	}
	if p.Price.Currency == "" {
		p.Price.Currency = "INR"
	}
	return p
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the engine configuration, read from pipewright.yaml.
type Config struct {
	Paths struct {
		DataDir   string `yaml:"data_dir"`
		OutputDir string `yaml:"output_dir"`
		StateDir  string `yaml:"state_dir"`
	} `yaml:"paths"`
	Retry struct {
		MaxRetries         int      `yaml:"max_retries"`
		RetryDelay         Duration `yaml:"retry_delay"`
		ExponentialBackoff bool     `yaml:"exponential_backoff"`
	} `yaml:"retry"`
	Breaker struct {
		FailureThreshold int      `yaml:"failure_threshold"`
		RecoveryTimeout  Duration `yaml:"recovery_timeout"`
	} `yaml:"breaker"`
	Validation struct {
		MaxAttempts int `yaml:"max_attempts"`
	} `yaml:"validation"`
	Generator struct {
		Provider     string   `yaml:"provider"` // "openai" or "static"
		Model        string   `yaml:"model"`
		Cooldown     Duration `yaml:"cooldown"`
		StageTimeout Duration `yaml:"stage_timeout"`
	} `yaml:"generator"`
	Server struct {
		Addr    string `yaml:"addr"`
		MaxJobs int    `yaml:"max_jobs"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "text" or "json"
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	var cfg Config
	cfg.Paths.DataDir = "data"
	cfg.Paths.OutputDir = "output"
	cfg.Paths.StateDir = "state"
	cfg.Retry.MaxRetries = 3
	cfg.Retry.RetryDelay = Duration(time.Second)
	cfg.Retry.ExponentialBackoff = true
	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.RecoveryTimeout = Duration(60 * time.Second)
	cfg.Validation.MaxAttempts = 2
	cfg.Generator.Provider = "static"
	cfg.Generator.Cooldown = Duration(15 * time.Second)
	cfg.Generator.StageTimeout = Duration(2 * time.Minute)
	cfg.Server.Addr = ":8080"
	cfg.Server.MaxJobs = 100
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return cfg
}

// LoadConfig reads a config file, layered over the defaults. A missing file
// is not an error; everything then comes from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if cfg.Retry.MaxRetries < 0 {
		return cfg, fault.Configurationf("retry.max_retries must not be negative")
	}
	if cfg.Breaker.FailureThreshold < 1 {
		return cfg, fault.Configurationf("breaker.failure_threshold must be at least 1")
	}
	return cfg, nil
}
