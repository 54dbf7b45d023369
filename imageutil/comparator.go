package imageutil

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/xshoji/go-img-compare/config"
)

// Comparator はスクリーンショット比較処理全体を統括する構造体
// 1回の比較は純粋な同期計算で、呼び出し間で状態を共有しないため、
// 複数の比較を同一インスタンスで並行実行しても安全
type Comparator struct {
	cfg      config.ComparisonConfig
	contours ContourProvider
	texts    TextProvider
	logger   *slog.Logger
}

// Option はComparatorの生成オプション
type Option func(*Comparator)

// WithContourProvider は輪郭候補プロバイダを設定する
func WithContourProvider(p ContourProvider) Option {
	return func(c *Comparator) { c.contours = p }
}

// WithTextProvider はOCRプロバイダを設定する
// 設定すると、転写が明示的に渡されない場合のテキスト抽出と、
// UI要素ごとのテキスト断片の関連付けに使われる
func WithTextProvider(p TextProvider) Option {
	return func(c *Comparator) { c.texts = p }
}

// WithLogger はロガーを設定する（省略時はslog.Default()）
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparator) { c.logger = l }
}

// NewComparator は設定を検証して新しいComparatorを作成する
func NewComparator(cfg config.ComparisonConfig, opts ...Option) (*Comparator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	c := &Comparator{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// CompareInput は1回の比較の入力
type CompareInput struct {
	Baseline image.Image // ベースライン（期待される見た目）
	Current  image.Image // 現状（実装の見た目）

	// 外部OCRによる転写。nilの場合はTextProviderがあればそちらを使う
	BaselineText *string
	CurrentText  *string
}

// ElementSection はレポートのUI要素照合セクション
type ElementSection struct {
	Status       StageStatus        `json:"status"`
	Baseline     []UIElement        `json:"baseline,omitempty"`
	Current      []UIElement        `json:"current,omitempty"`
	Entries      []ElementDiffEntry `json:"entries,omitempty"`
	MissingRatio float64            `json:"missing_ratio"`
}

// TextSection はレポートのテキスト差分セクション
type TextSection struct {
	Status    StageStatus     `json:"status"`
	Entries   []TextDiffEntry `json:"entries,omitempty"`
	DiffRatio float64         `json:"diff_ratio"`
}

// ComparisonReport は1回の比較の最終結果
// DiffImage以外の全フィールドはそのままJSONなどにシリアライズできる
type ComparisonReport struct {
	OverallScore float64                 `json:"overall_score"` // 全タイルのSSIM平均 (0.0-1.0)
	Fidelity     float64                 `json:"fidelity"`      // 重み付き複合スコア (0-100)
	PercentDiff  float64                 `json:"percent_diff"`  // 閾値未満のタイルの割合 (0-100)
	Regions      []DiffRegion            `json:"regions"`
	Elements     ElementSection          `json:"elements"`
	Text         TextSection             `json:"text"`
	Config       config.ComparisonConfig `json:"config"` // 再現性のため使用した設定を記録

	// 差分を強調した描画結果。バイト列が必要な場合はDiffImagePNGを使う
	DiffImage *image.RGBA `json:"-"`
}

// DiffImagePNG は差分画像をPNGバイト列として返す
func (r *ComparisonReport) DiffImagePNG() ([]byte, error) {
	return EncodePNG(r.DiffImage)
}

// Compare は2枚の画像を比較してレポートを生成する
//
// 処理の流れ：
//  1. 正規化 → タイルSSIM → 差分領域抽出 → 差分画像の描画
//  2. （これと独立に）両画像のUI要素検出 → 照合
//  3. テキストが得られれば行単位差分
//  4. 忠実度を計算してレポートを組み立てる
//
// オプションステージ（2, 3）の失敗は比較全体を失敗させず、該当セクションを
// unavailableにして重みを再正規化する。エラーが返るのは入力画像・サイズ・
// 設定の問題で中核の比較自体が成立しない場合のみ
func (c *Comparator) Compare(ctx context.Context, in CompareInput) (*ComparisonReport, error) {
	baseline, current, err := NormalizePair(in.Baseline, in.Current, c.cfg.ResizePolicy)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("images normalized",
		"width", baseline.Bounds().Dx(), "height", baseline.Bounds().Dy(),
		"policy", string(c.cfg.ResizePolicy))

	grid, err := ScoreTiles(baseline, current, c.cfg.TileSize)
	if err != nil {
		return nil, err
	}

	regions := ExtractRegions(grid, &c.cfg)
	diffImage := RenderDiff(current, regions)

	c.logger.Debug("structural comparison done",
		"overall_score", grid.Overall(), "regions", len(regions))

	report := &ComparisonReport{
		OverallScore: grid.Overall(),
		PercentDiff:  100.0 * grid.FractionBelow(c.cfg.DiffThreshold),
		Regions:      regions,
		Elements:     c.compareElements(ctx, baseline, current),
		Text:         c.compareText(ctx, in, baseline, current),
		Config:       c.cfg,
		DiffImage:    diffImage,
	}
	report.Fidelity = c.fidelity(report)

	return report, nil
}

// CompareBytes は生の画像バイト列から比較を行う
func (c *Comparator) CompareBytes(ctx context.Context, baselineData, currentData []byte) (*ComparisonReport, error) {
	baseline, err := DecodeImage(baselineData)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	current, err := DecodeImage(currentData)
	if err != nil {
		return nil, fmt.Errorf("current: %w", err)
	}
	return c.Compare(ctx, CompareInput{Baseline: baseline, Current: current})
}

// CompareFiles は画像ファイルのパスから比較を行う
func (c *Comparator) CompareFiles(ctx context.Context, baselinePath, currentPath string) (*ComparisonReport, error) {
	baseline, err := LoadImage(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("baseline: %w", err)
	}
	current, err := LoadImage(currentPath)
	if err != nil {
		return nil, fmt.Errorf("current: %w", err)
	}
	return c.Compare(ctx, CompareInput{Baseline: baseline, Current: current})
}

// compareElements はUI要素の検出と照合を行う
// 失敗はセクションのunavailable化で吸収し、エラーは返さない
func (c *Comparator) compareElements(ctx context.Context, baseline, current *image.RGBA) ElementSection {
	if !c.cfg.ElementDetection {
		return ElementSection{Status: StageUnavailable("element detection disabled")}
	}
	if c.contours == nil {
		return ElementSection{Status: StageUnavailable("no contour provider configured")}
	}

	baseElems, err := DetectElements(ctx, baseline, c.contours, &c.cfg)
	if err != nil {
		c.logger.Warn("element detection degraded", "image", "baseline", "error", err)
		return ElementSection{Status: StageUnavailable(fmt.Sprintf("baseline detection failed: %v", err))}
	}
	currElems, err := DetectElements(ctx, current, c.contours, &c.cfg)
	if err != nil {
		c.logger.Warn("element detection degraded", "image", "current", "error", err)
		return ElementSection{Status: StageUnavailable(fmt.Sprintf("current detection failed: %v", err))}
	}

	// OCRプロバイダがあれば要素ごとのテキスト断片を関連付ける
	if c.texts != nil {
		c.annotateElementText(ctx, baseline, baseElems)
		c.annotateElementText(ctx, current, currElems)
	}

	entries := MatchElements(baseElems, currElems, c.cfg.IoUThreshold)

	return ElementSection{
		Status:       StageOK(),
		Baseline:     baseElems,
		Current:      currElems,
		Entries:      entries,
		MissingRatio: missingRatio(entries),
	}
}

// annotateElementText は各要素の矩形を切り出してOCRにかけ、テキスト断片を付与する
// 個々の要素のOCR失敗はテキストなしとして扱う
func (c *Comparator) annotateElementText(ctx context.Context, img *image.RGBA, elements []UIElement) {
	for i := range elements {
		roi := img.SubImage(elements[i].Rect())
		text, err := c.texts.Text(ctx, roi)
		if err != nil {
			continue
		}
		elements[i].Text = text
	}
}

// compareText はOCRテキストの行単位差分を行う
// 転写が明示的に渡されていればそれを優先し、なければOCRプロバイダを使う
// どちらも得られない場合はセクションをunavailableにする
func (c *Comparator) compareText(ctx context.Context, in CompareInput, baseline, current *image.RGBA) TextSection {
	if !c.cfg.TextDiff {
		return TextSection{Status: StageUnavailable("text diff disabled")}
	}

	baseText, err := c.resolveText(ctx, in.BaselineText, baseline)
	if err != nil {
		c.logger.Warn("text diff degraded", "image", "baseline", "error", err)
		return TextSection{Status: StageUnavailable(fmt.Sprintf("baseline transcript unavailable: %v", err))}
	}
	currText, err := c.resolveText(ctx, in.CurrentText, current)
	if err != nil {
		c.logger.Warn("text diff degraded", "image", "current", "error", err)
		return TextSection{Status: StageUnavailable(fmt.Sprintf("current transcript unavailable: %v", err))}
	}

	entries := DiffText(baseText, currText)

	return TextSection{
		Status:    StageOK(),
		Entries:   entries,
		DiffRatio: textDiffRatio(entries),
	}
}

// resolveText は転写テキストを決定する
func (c *Comparator) resolveText(ctx context.Context, supplied *string, img *image.RGBA) (string, error) {
	if supplied != nil {
		return *supplied, nil
	}
	if c.texts == nil {
		return "", fmt.Errorf("no transcript supplied and no text provider configured")
	}
	text, err := c.texts.Text(ctx, img)
	if err != nil {
		return "", fmt.Errorf("text provider failed: %w", err)
	}
	return text, nil
}

// fidelity は重み付き複合スコア（0-100）を計算する
// unavailableなセクションの重みは0にし、残りの重みを合計1に再正規化する
func (c *Comparator) fidelity(report *ComparisonReport) float64 {
	type term struct {
		weight float64
		value  float64
	}

	terms := []term{{c.cfg.Weights.Structural, report.OverallScore}}
	if report.Elements.Status.Available {
		terms = append(terms, term{c.cfg.Weights.Elements, 1.0 - report.Elements.MissingRatio})
	}
	if report.Text.Status.Available {
		terms = append(terms, term{c.cfg.Weights.Text, 1.0 - report.Text.DiffRatio})
	}

	weightSum := 0.0
	weighted := 0.0
	for _, t := range terms {
		weightSum += t.weight
		weighted += t.weight * t.value
	}
	if weightSum == 0 {
		return 0.0
	}

	return 100.0 * weighted / weightSum
}
