package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/xshoji/go-img-compare/config"
	"github.com/xshoji/go-img-compare/imageutil"
)

// 定数定義
const (
	UsageRequiredPrefix = "\033[33m(REQ)\033[0m "
)

// アプリケーション設定とオプション
var (
	// コマンドオプション表示に関する設定
	commandDescription      = "Screenshot comparison tool: structural similarity, diff regions, element and text reconciliation."
	commandOptionFieldWidth = "12"

	// 必須オプション
	optionBaseline = flag.String("b", "", UsageRequiredPrefix+"Baseline image path")
	optionCurrent  = flag.String("c", "", UsageRequiredPrefix+"Current image path")

	// 出力設定
	optionOutput     = flag.String("o", "", "Output diff image path (png/jpg)")
	optionJSONReport = flag.String("j", "", "Output report path (json)")

	// 設定ファイルと個別の上書き
	optionConfigFile = flag.String("f", "", "Config file path (yaml)")
	optionPolicy     = flag.String("p", "", "Resize policy override (reject|stretch|pad)")
	optionThreshold  = flag.Float64("d", -1, "Diff threshold override (0.0-1.0)")
	optionTileSize   = flag.Int("s", 0, "Tile size override (pixels)")

	// OCR転写の入力（テキスト差分は外部で生成された転写を使う）
	optionBaselineText = flag.String("bt", "", "Baseline OCR transcript file path")
	optionCurrentText  = flag.String("ct", "", "Current OCR transcript file path")

	// ログ設定
	optionVerbose = flag.Bool("v", false, "Enable debug logging")
)

func init() {
	// ヘルプメッセージのカスタマイズ
	customizeHelpMessage()
}

// main エントリポイント
func main() {
	flag.Parse()

	// 必須オプションのチェック
	if err := validateRequiredOptions(); err != nil {
		fmt.Println(err)
		flag.Usage()
		os.Exit(1)
	}

	// 設定情報の表示
	printFlagInfo()

	// ロガーの準備
	level := slog.LevelInfo
	if *optionVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// 設定オブジェクトの作成
	cfg, err := buildConfig()
	if err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}

	// 比較の実行
	if err := runComparison(cfg, logger); err != nil {
		fmt.Printf("[ERROR] %v\n", err)
		os.Exit(1)
	}
}

// validateRequiredOptions 必須オプションが指定されているかチェック
func validateRequiredOptions() error {
	var missingOptions []string

	if *optionBaseline == "" {
		missingOptions = append(missingOptions, "b")
	}
	if *optionCurrent == "" {
		missingOptions = append(missingOptions, "c")
	}

	if len(missingOptions) > 0 {
		return fmt.Errorf("\n[ERROR] Missing required option(s): %s\n",
			strings.Join(missingOptions, ", "))
	}

	return nil
}

// printFlagInfo 設定情報を表示
func printFlagInfo() {
	fmt.Printf("[ Command options ]\n")
	flag.VisitAll(func(a *flag.Flag) {
		fmt.Printf("  -%-30s %s\n",
			fmt.Sprintf("%s %v", a.Name, a.Value),
			strings.Trim(a.Usage, "\n"))
	})

	fmt.Printf("\n\n")
}

// buildConfig は設定ファイルとコマンドラインの上書きから設定を組み立てる
func buildConfig() (config.ComparisonConfig, error) {
	cfg := config.DefaultConfig()

	if *optionConfigFile != "" {
		loaded, err := config.LoadConfig(*optionConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if *optionPolicy != "" {
		cfg.ResizePolicy = config.ResizePolicy(*optionPolicy)
	}
	if *optionThreshold >= 0 {
		cfg.DiffThreshold = *optionThreshold
	}
	if *optionTileSize > 0 {
		cfg.TileSize = *optionTileSize
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// runComparison 比較処理のメインフロー
func runComparison(cfg config.ComparisonConfig, logger *slog.Logger) error {
	startTime := time.Now()

	comparator, err := imageutil.NewComparator(cfg, imageutil.WithLogger(logger))
	if err != nil {
		return err
	}

	// 1. 画像の読み込み
	fmt.Printf("[INFO] Loading images...\n")
	baseline, err := imageutil.LoadImage(*optionBaseline)
	if err != nil {
		return fmt.Errorf("failed to load baseline image: %w", err)
	}
	current, err := imageutil.LoadImage(*optionCurrent)
	if err != nil {
		return fmt.Errorf("failed to load current image: %w", err)
	}

	fmt.Printf("Baseline: %s (%dx%d)\n", *optionBaseline,
		baseline.Bounds().Dx(), baseline.Bounds().Dy())
	fmt.Printf("Current:  %s (%dx%d)\n", *optionCurrent,
		current.Bounds().Dx(), current.Bounds().Dy())

	// 2. 転写ファイルの読み込み（あれば）
	input := imageutil.CompareInput{Baseline: baseline, Current: current}
	if text, ok := readTranscript(*optionBaselineText); ok {
		input.BaselineText = &text
	}
	if text, ok := readTranscript(*optionCurrentText); ok {
		input.CurrentText = &text
	}

	// 3. 比較の実行
	fmt.Printf("[INFO] Comparing images...\n")
	report, err := comparator.Compare(context.Background(), input)
	if err != nil {
		return err
	}

	// 4. 結果の表示
	printReport(report)

	// 5. 差分画像の保存
	if *optionOutput != "" {
		if err := imageutil.SaveImage(report.DiffImage, *optionOutput); err != nil {
			return fmt.Errorf("failed to save diff image: %w", err)
		}
		fmt.Printf("[INFO] Diff image saved to %s\n", *optionOutput)
	}

	// 6. JSONレポートの保存
	if *optionJSONReport != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := os.WriteFile(*optionJSONReport, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("[INFO] Report saved to %s\n", *optionJSONReport)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("[INFO] Total processing completed in %.2f seconds\n", elapsed.Seconds())

	return nil
}

// readTranscript は転写ファイルを読み込む（パスが空なら何もしない）
func readTranscript(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("[WARNING] Failed to read transcript %s: %v\n", path, err)
		return "", false
	}
	return string(data), true
}

// printReport は比較結果のサマリを表示する
func printReport(report *imageutil.ComparisonReport) {
	fmt.Printf("\n[ Comparison result ]\n")
	fmt.Printf("  Overall score : %.4f\n", report.OverallScore)
	fmt.Printf("  Fidelity      : %.1f%%\n", report.Fidelity)
	fmt.Printf("  Percent diff  : %.1f%%\n", report.PercentDiff)
	fmt.Printf("  Diff regions  : %d\n", len(report.Regions))

	for _, region := range report.Regions {
		fmt.Printf("    #%d [%d,%d %dx%d] severity=%.2f (%s)\n",
			region.ID, region.X, region.Y, region.W, region.H, region.Severity, region.Level)
	}

	if report.Elements.Status.Available {
		fmt.Printf("  Elements      : %d entries (missing ratio %.2f)\n",
			len(report.Elements.Entries), report.Elements.MissingRatio)
	} else {
		fmt.Printf("  Elements      : unavailable (%s)\n", report.Elements.Status.Reason)
	}

	if report.Text.Status.Available {
		fmt.Printf("  Text diff     : %d lines (diff ratio %.2f)\n",
			len(report.Text.Entries), report.Text.DiffRatio)
	} else {
		fmt.Printf("  Text diff     : unavailable (%s)\n", report.Text.Status.Reason)
	}

	fmt.Printf("\n")
}

// customizeHelpMessage ヘルプメッセージの表示形式をカスタマイズする
func customizeHelpMessage() {
	b := new(bytes.Buffer)
	func() { flag.CommandLine.SetOutput(b); flag.Usage(); flag.CommandLine.SetOutput(os.Stderr) }()
	usage := strings.Replace(strings.Replace(b.String(), ":", " [OPTIONS] [-h, --help]\n\nDescription:\n  "+commandDescription+"\n\nOptions:\n", 1), "Usage of", "Usage:", 1)
	re := regexp.MustCompile(`[^,] +(-\S+)(?: (\S+))?\n*(\s+)(.*)\n`)
	flag.Usage = func() {
		_, _ = fmt.Fprint(flag.CommandLine.Output(), re.ReplaceAllStringFunc(usage, func(m string) string {
			return fmt.Sprintf("  %-"+commandOptionFieldWidth+"s %s\n", re.FindStringSubmatch(m)[1]+" "+strings.TrimSpace(re.FindStringSubmatch(m)[2]), re.FindStringSubmatch(m)[4])
		}))
	}
}
