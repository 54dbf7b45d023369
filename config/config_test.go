package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TileSize != 8 {
		t.Errorf("TileSize should be 8, but got %d", cfg.TileSize)
	}

	if cfg.DiffThreshold != 0.90 {
		t.Errorf("DiffThreshold should be 0.90, but got %f", cfg.DiffThreshold)
	}

	if cfg.MinRegionArea != 64 {
		t.Errorf("MinRegionArea should be 64, but got %d", cfg.MinRegionArea)
	}

	if cfg.MaxRegions != 50 {
		t.Errorf("MaxRegions should be 50, but got %d", cfg.MaxRegions)
	}

	if cfg.ResizePolicy != ResizeStretch {
		t.Errorf("ResizePolicy should be stretch, but got %s", cfg.ResizePolicy)
	}

	if cfg.IoUThreshold != 0.5 {
		t.Errorf("IoUThreshold should be 0.5, but got %f", cfg.IoUThreshold)
	}

	if cfg.MaxElements != 200 {
		t.Errorf("MaxElements should be 200, but got %d", cfg.MaxElements)
	}

	if cfg.Weights.Structural != 0.6 || cfg.Weights.Elements != 0.2 || cfg.Weights.Text != 0.2 {
		t.Errorf("Weights should be 0.6/0.2/0.2, but got %+v", cfg.Weights)
	}

	if !cfg.ElementDetection {
		t.Errorf("ElementDetection should be true")
	}

	if !cfg.TextDiff {
		t.Errorf("TextDiff should be true")
	}
}

func TestValidateAcceptsDefault(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestValidateNormalizesWeights(t *testing.T) {
	// 合計1.0でない重みは正規化される
	cfg := DefaultConfig()
	cfg.Weights = ScoreWeights{Structural: 3.0, Elements: 1.0, Text: 1.0}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := cfg.Weights.Structural + cfg.Weights.Elements + cfg.Weights.Text
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("weights should sum to 1.0 after validation, got %f", sum)
	}
	if math.Abs(cfg.Weights.Structural-0.6) > 1e-9 {
		t.Errorf("Structural weight should normalize to 0.6, got %f", cfg.Weights.Structural)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := map[string]func(*ComparisonConfig){
		"zero tile size":     func(c *ComparisonConfig) { c.TileSize = 0 },
		"negative tile size": func(c *ComparisonConfig) { c.TileSize = -1 },
		"threshold above 1":  func(c *ComparisonConfig) { c.DiffThreshold = 1.5 },
		"threshold below 0":  func(c *ComparisonConfig) { c.DiffThreshold = -0.1 },
		"iou above 1":        func(c *ComparisonConfig) { c.IoUThreshold = 1.1 },
		"negative min area":  func(c *ComparisonConfig) { c.MinRegionArea = -1 },
		"zero max regions":   func(c *ComparisonConfig) { c.MaxRegions = 0 },
		"zero max elements":  func(c *ComparisonConfig) { c.MaxElements = 0 },
		"unknown policy":     func(c *ComparisonConfig) { c.ResizePolicy = "mirror" },
		"negative weight":    func(c *ComparisonConfig) { c.Weights.Text = -0.2 },
		"all weights zero":   func(c *ComparisonConfig) { c.Weights = ScoreWeights{} },
	}

	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("tile_size: 16\ndiff_threshold: 0.8\nresize_policy: pad\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.TileSize != 16 {
		t.Errorf("TileSize should be 16, but got %d", cfg.TileSize)
	}
	if cfg.DiffThreshold != 0.8 {
		t.Errorf("DiffThreshold should be 0.8, but got %f", cfg.DiffThreshold)
	}
	if cfg.ResizePolicy != ResizePad {
		t.Errorf("ResizePolicy should be pad, but got %s", cfg.ResizePolicy)
	}

	// ファイルにない項目はデフォルト値のまま
	if cfg.MaxRegions != 50 {
		t.Errorf("MaxRegions should keep default 50, but got %d", cfg.MaxRegions)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tile_size: -4\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Errorf("expected validation error, got nil")
	}
}
