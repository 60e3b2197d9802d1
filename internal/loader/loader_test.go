package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/contentsmith/pipewright/internal/fault"
	"github.com/contentsmith/pipewright/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProduct_JSON(t *testing.T) {
	path := writeFile(t, "serum.json", `{
		"productName": "GlowLab Vitamin C Serum",
		"concentration": "10% Vitamin C",
		"skinType": ["oily"],
		"keyIngredients": ["Vitamin C", "Hyaluronic Acid"],
		"benefits": ["Brightening"],
		"howToUse": "Apply 2-3 drops in the morning",
		"price": {"amount": 699, "currency": "INR"}
	}`)

	p, err := LoadProduct(path)
	if err != nil {
		t.Fatalf("LoadProduct: %v", err)
	}
	if p.ProductName != "GlowLab Vitamin C Serum" || p.Price.Amount != 699 {
		t.Errorf("product = %+v", p)
	}
}

func TestLoadProduct_YAML(t *testing.T) {
	path := writeFile(t, "serum.yaml", `
productName: GlowLab Niacinamide Serum
keyIngredients: [Niacinamide]
benefits: [Oil control]
price:
  amount: 799
`)
	p, err := LoadProduct(path)
	if err != nil {
		t.Fatalf("LoadProduct: %v", err)
	}
	if p.Price.Currency != "INR" {
		t.Errorf("currency = %q, want default INR", p.Price.Currency)
	}
	if p.SkinType == nil {
		t.Error("optional lists should default to empty, not nil")
	}
}

func TestLoadProduct_MissingRequiredFields(t *testing.T) {
	path := writeFile(t, "bad.yaml", "productName: X\n")

	_, err := LoadProduct(path)
	if err == nil {
		t.Fatal("expected an error for missing fields")
	}
	if fault.KindOf(err) != fault.KindValidation {
		t.Errorf("kind = %v, want validation", fault.KindOf(err))
	}
}

func TestNormalize_ScalarDefaults(t *testing.T) {
	p := Normalize(model.RawProduct{ProductName: "X", Price: model.Price{Amount: 100}})
	if p.Price.Currency != "INR" {
		t.Errorf("currency = %q", p.Price.Currency)
	}
	if p.KeyIngredients == nil || p.Benefits == nil {
		t.Error("lists should be non-nil")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Breaker.FailureThreshold != 3 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Generator.Cooldown.Std() != 15*time.Second {
		t.Errorf("cooldown = %v", cfg.Generator.Cooldown)
	}
	if cfg.Generator.StageTimeout.Std() != 2*time.Minute {
		t.Errorf("stage timeout = %v", cfg.Generator.StageTimeout)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeFile(t, "pipewright.yaml", `
retry:
  max_retries: 5
  retry_delay: 250ms
breaker:
  failure_threshold: 2
  recovery_timeout: 30s
generator:
  provider: openai
  model: gpt-4o-mini
  stage_timeout: 45s
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Retry.MaxRetries != 5 || cfg.Retry.RetryDelay.Std() != 250*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Breaker.RecoveryTimeout.Std() != 30*time.Second {
		t.Errorf("breaker = %+v", cfg.Breaker)
	}
	if cfg.Generator.StageTimeout.Std() != 45*time.Second {
		t.Errorf("stage timeout = %v", cfg.Generator.StageTimeout)
	}
	// untouched sections keep their defaults
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	path := writeFile(t, "pipewright.yaml", "breaker:\n  failure_threshold: 0\n")

	_, err := LoadConfig(path)
	if fault.KindOf(err) != fault.KindConfiguration {
		t.Errorf("kind = %v, want configuration", fault.KindOf(err))
	}
}
