package suppressor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SimilarityThreshold != 0.6 {
		t.Errorf("expected threshold 0.6, got %v", cfg.SimilarityThreshold)
	}
	if cfg.PowerRatioCeiling != 1.3 {
		t.Errorf("expected power ratio 1.3, got %v", cfg.PowerRatioCeiling)
	}
	if cfg.AttenuationDB != -80 {
		t.Errorf("expected -80 dB attenuation, got %v", cfg.AttenuationDB)
	}
	if cfg.HangoverBlocks != 20 {
		t.Errorf("expected 20 hangover blocks, got %d", cfg.HangoverBlocks)
	}
	if cfg.Metric != MetricNCC {
		t.Errorf("expected ncc metric, got %q", cfg.Metric)
	}
	if cfg.MaxLagMS != 80 || cfg.LagStepMS != 1 {
		t.Errorf("expected 80 ms window at 1 ms steps, got %d/%d", cfg.MaxLagMS, cfg.LagStepMS)
	}
}

func TestLoadConfigFromReaderPartial(t *testing.T) {
	doc := `
similarity_threshold: 0.75
metric: amdf
hangover_blocks: 10
`
	cfg, err := LoadConfigFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SimilarityThreshold != 0.75 {
		t.Errorf("expected overridden threshold 0.75, got %v", cfg.SimilarityThreshold)
	}
	if cfg.Metric != MetricAMDF {
		t.Errorf("expected amdf, got %q", cfg.Metric)
	}
	if cfg.HangoverBlocks != 10 {
		t.Errorf("expected 10 hangover blocks, got %d", cfg.HangoverBlocks)
	}
	// Untouched fields keep their defaults.
	if cfg.PowerRatioCeiling != 1.3 || cfg.AttenuationDB != -80 {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadConfigFromReaderRejectsUnknownField(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("rho_tresh: 0.9\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadConfigFromReaderRejectsBadMetric(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("metric: fft\n"))
	if err == nil {
		t.Fatal("expected error for invalid metric")
	}
	if !strings.Contains(err.Error(), "fft") {
		t.Errorf("error should name the bad metric: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("attack: 0.5\nrelease: 0.02\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Attack != 0.5 || cfg.Release != 0.02 {
		t.Errorf("expected attack/release 0.5/0.02, got %v/%v", cfg.Attack, cfg.Release)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
