package imageutil

import (
	"fmt"
	"image"

	"github.com/xshoji/go-img-compare/utils"
)

// SSIM安定化定数（ピクセル値域255に対する標準的な係数から導出）
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255) // 輝度項の安定化定数
	ssimC2 = (0.03 * 255) * (0.03 * 255) // コントラスト・構造項の安定化定数
)

// TileScoreGrid はタイルごとの構造類似度スコアを保持するグリッド
// スコアは0.0～1.0の範囲（1.0が完全一致）
type TileScoreGrid struct {
	Rows     int         `json:"rows"`
	Cols     int         `json:"cols"`
	TileSize int         `json:"tile_size"`
	Width    int         `json:"width"`  // 元画像の幅（ピクセル）
	Height   int         `json:"height"` // 元画像の高さ（ピクセル）
	Scores   [][]float64 `json:"scores"` // [row][col]
}

// TileRect は指定タイルが占めるピクセル矩形を返す
// 画像の端がTileSizeで割り切れない場合、端のタイルは画像内に収まる範囲に
// 切り詰められる（パディングはしない）
func (g *TileScoreGrid) TileRect(row, col int) image.Rectangle {
	x0 := col * g.TileSize
	y0 := row * g.TileSize
	x1 := utils.Min(x0+g.TileSize, g.Width)
	y1 := utils.Min(y0+g.TileSize, g.Height)
	return image.Rect(x0, y0, x1, y1)
}

// Overall は全タイルのスコアの算術平均（重みなし）を返す
func (g *TileScoreGrid) Overall() float64 {
	total := 0.0
	count := 0
	for _, row := range g.Scores {
		for _, score := range row {
			total += score
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return total / float64(count)
}

// FractionBelow は閾値未満のタイルの割合を返す
func (g *TileScoreGrid) FractionBelow(threshold float64) float64 {
	below := 0
	count := 0
	for _, row := range g.Scores {
		for _, score := range row {
			if score < threshold {
				below++
			}
			count++
		}
	}
	if count == 0 {
		return 0.0
	}
	return float64(below) / float64(count)
}

// ScoreTiles は正規化済みの2枚の画像をタイル単位で比較し、スコアグリッドを返す
// 各タイルについてR/G/Bチャンネルごとに局所平均・分散・共分散を求めてSSIMを計算し、
// タイルのスコアは3チャンネルのSSIMの最小値とする。タイルは最も異なるチャンネルの
// 分しか似ていない、という保守的な評価になる（例：純赤と純青はGチャンネルだけ見れば
// 同一だが、平均を取るとその分スコアが吊り上がってしまう）。
// 計算式は対称なので ScoreTiles(a, b) と ScoreTiles(b, a) は同じ結果になる。
func ScoreTiles(a, b *image.RGBA, tileSize int) (*TileScoreGrid, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: tile size must be positive, got %d", ErrConfig, tileSize)
	}
	if a.Bounds() != b.Bounds() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrDimensionMismatch, a.Bounds(), b.Bounds())
	}

	width := a.Bounds().Dx()
	height := a.Bounds().Dy()

	grid := &TileScoreGrid{
		Rows:     (height + tileSize - 1) / tileSize,
		Cols:     (width + tileSize - 1) / tileSize,
		TileSize: tileSize,
		Width:    width,
		Height:   height,
	}

	grid.Scores = make([][]float64, grid.Rows)
	for row := 0; row < grid.Rows; row++ {
		grid.Scores[row] = make([]float64, grid.Cols)
		for col := 0; col < grid.Cols; col++ {
			grid.Scores[row][col] = tileScore(a, b, grid.TileRect(row, col))
		}
	}

	return grid, nil
}

// tileScore は1タイル分のスコア（3チャンネルSSIMの最小値）を計算する
func tileScore(a, b *image.RGBA, rect image.Rectangle) float64 {
	score := 1.0
	for channel := 0; channel < 3; channel++ {
		s := channelSSIM(a, b, rect, channel)
		if s < score {
			score = s
		}
	}
	return score
}

// channelSSIM は1タイル・1チャンネル分のSSIM値を計算する
// channel: 0=R, 1=G, 2=B
func channelSSIM(a, b *image.RGBA, rect image.Rectangle, channel int) float64 {
	var sumA, sumB, sumAA, sumBB, sumAB float64

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			va := float64(a.Pix[a.PixOffset(x, y)+channel])
			vb := float64(b.Pix[b.PixOffset(x, y)+channel])
			sumA += va
			sumB += vb
			sumAA += va * va
			sumBB += vb * vb
			sumAB += va * vb
		}
	}

	n := float64(rectArea(rect))
	if n == 0 {
		return 0.0
	}

	meanA := sumA / n
	meanB := sumB / n
	varA := sumAA/n - meanA*meanA
	varB := sumBB/n - meanB*meanB
	cov := sumAB/n - meanA*meanB

	numerator := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	denominator := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)

	// SSIMは負になりうるため [0.0, 1.0] に丸める
	return utils.ClampFloat64(numerator/denominator, 0.0, 1.0)
}
