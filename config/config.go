package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ResizePolicy はサイズが異なる2枚の画像の扱い方を指定する
type ResizePolicy string

const (
	// ResizeReject サイズが一致しない場合はエラーにする
	ResizeReject ResizePolicy = "reject"
	// ResizeStretch 比較対象画像をベースライン画像のサイズに引き伸ばす
	ResizeStretch ResizePolicy = "stretch"
	// ResizePad 両画像を大きい方のサイズまで黒で埋める
	ResizePad ResizePolicy = "pad"
)

// ScoreWeights は忠実度スコアを構成する各要素の重み
// 合計が1.0でない場合はValidateで自動的に正規化される
type ScoreWeights struct {
	Structural float64 `yaml:"structural" json:"structural"` // タイル構造類似度の重み
	Elements   float64 `yaml:"elements" json:"elements"`     // UI要素一致率の重み
	Text       float64 `yaml:"text" json:"text"`             // テキスト一致率の重み
}

// ComparisonConfig は画像比較エンジンの設定を保持する構造体
type ComparisonConfig struct {
	// タイル分割の設定
	// 画像の端がTileSizeで割り切れない場合、端のタイルは画像内に収まる範囲だけで
	// 評価する（トリム方式）。パディングすると存在しないピクセル同士を比較して
	// 端のスコアが歪むため、この方式に固定する。
	TileSize int `yaml:"tile_size" json:"tile_size"` // 構造類似度を計算するタイルの一辺（ピクセル）

	// 差分領域抽出の設定
	DiffThreshold float64 `yaml:"diff_threshold" json:"diff_threshold"`   // このスコア未満のタイルを差分とみなす (0.0-1.0)
	MinRegionArea int     `yaml:"min_region_area" json:"min_region_area"` // これ未満のピクセル面積の領域はノイズとして除外
	MaxRegions    int     `yaml:"max_regions" json:"max_regions"`         // レポートに含める差分領域の最大数

	// 画像正規化の設定
	ResizePolicy ResizePolicy `yaml:"resize_policy" json:"resize_policy"` // サイズ不一致時の方針

	// UI要素照合の設定
	IoUThreshold float64 `yaml:"iou_threshold" json:"iou_threshold"` // 要素同士を一致とみなすIoUの下限
	MaxElements  int     `yaml:"max_elements" json:"max_elements"`   // 1画像あたりの要素候補の上限

	// 忠実度スコアの重み
	Weights ScoreWeights `yaml:"weights" json:"weights"`

	// オプションステージの有効化
	ElementDetection bool `yaml:"element_detection" json:"element_detection"` // UI要素検出・照合を行うか
	TextDiff         bool `yaml:"text_diff" json:"text_diff"`                 // テキスト差分を行うか
}

// DefaultConfig はデフォルト設定を持つ新しいComparisonConfigを返す
//
// DiffThresholdの既定値は0.90とする。参考資料には画像全体の類似判定用として
// 0.95という値も登場するが、それは呼び出し側がOverallScoreから導く判定であり、
// タイル単位の差分マーキング閾値としては0.90を正とする。
func DefaultConfig() ComparisonConfig {
	return ComparisonConfig{
		TileSize:         8,
		DiffThreshold:    0.90,
		MinRegionArea:    64,
		MaxRegions:       50,
		ResizePolicy:     ResizeStretch,
		IoUThreshold:     0.5,
		MaxElements:      200,
		Weights:          ScoreWeights{Structural: 0.6, Elements: 0.2, Text: 0.2},
		ElementDetection: true,
		TextDiff:         true,
	}
}

// Validate は設定値を検証し、不正な値があればエラーを返す
// 重みの合計が1.0でない場合（ただし正の合計を持つ場合）はその場で正規化する
func (c *ComparisonConfig) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("tile_size must be positive, got %d", c.TileSize)
	}
	if c.DiffThreshold < 0.0 || c.DiffThreshold > 1.0 {
		return fmt.Errorf("diff_threshold must be in [0.0, 1.0], got %f", c.DiffThreshold)
	}
	if c.IoUThreshold < 0.0 || c.IoUThreshold > 1.0 {
		return fmt.Errorf("iou_threshold must be in [0.0, 1.0], got %f", c.IoUThreshold)
	}
	if c.MinRegionArea < 0 {
		return fmt.Errorf("min_region_area must not be negative, got %d", c.MinRegionArea)
	}
	if c.MaxRegions <= 0 {
		return fmt.Errorf("max_regions must be positive, got %d", c.MaxRegions)
	}
	if c.MaxElements <= 0 {
		return fmt.Errorf("max_elements must be positive, got %d", c.MaxElements)
	}

	switch c.ResizePolicy {
	case ResizeReject, ResizeStretch, ResizePad:
	default:
		return fmt.Errorf("unknown resize_policy: %q", c.ResizePolicy)
	}

	w := c.Weights
	if w.Structural < 0 || w.Elements < 0 || w.Text < 0 {
		return fmt.Errorf("score weights must not be negative: %+v", w)
	}
	sum := w.Structural + w.Elements + w.Text
	if sum <= 0 {
		return fmt.Errorf("score weights must have a positive sum: %+v", w)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		// 合計が1.0になるよう正規化
		c.Weights.Structural = w.Structural / sum
		c.Weights.Elements = w.Elements / sum
		c.Weights.Text = w.Text / sum
	}

	return nil
}

// LoadConfig はYAMLファイルから設定を読み込む
// ファイルに存在しない項目はデフォルト値のまま残る
func LoadConfig(path string) (ComparisonConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}
