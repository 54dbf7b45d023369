package imageutil

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/xshoji/go-img-compare/config"
	"github.com/xshoji/go-img-compare/utils"
)

// ContourProvider は輪郭検出機能の境界インターフェース
// 実装は外部（OpenCVバインディングや端末側ツールなど）が提供し、
// 画像に対する矩形候補のリストを返すことだけを契約とする
type ContourProvider interface {
	Contours(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// TextProvider はOCR機能の境界インターフェース
// 実装は外部が提供し、画像1枚に対するUTF-8テキストを返すことだけを契約とする
type TextProvider interface {
	Text(ctx context.Context, img image.Image) (string, error)
}

// ElementType は検出されたUI要素の種別
type ElementType string

const (
	ElementTextLike   ElementType = "text-like"
	ElementButtonLike ElementType = "button-like"
	ElementImageLike  ElementType = "image-like"
	ElementContainer  ElementType = "container"
)

// UIElement は分類済みのUI要素
type UIElement struct {
	ID         int         `json:"id"` // 読み順に1から振られる安定ID
	Type       ElementType `json:"type"`
	X          int         `json:"x"`
	Y          int         `json:"y"`
	W          int         `json:"w"`
	H          int         `json:"h"`
	Confidence float64     `json:"confidence"`     // 分類の確信度 (0.0-1.0)
	Text       string      `json:"text,omitempty"` // 対応するテキスト断片（あれば）
}

// Rect は要素のピクセル矩形を返す
func (e UIElement) Rect() image.Rectangle {
	return image.Rect(e.X, e.Y, e.X+e.W, e.Y+e.H)
}

// 要素分類の固定閾値。これらは既定設定の一部であり、変更すると照合結果が
// 変わるため、実装側の裁量には委ねない
const (
	minCandidateSize = 10 // これ未満の幅・高さの候補は無視する（ピクセル）

	edgeGradientStep = 32 // 隣接ピクセルの輝度差がこれを超えたらエッジとみなす

	textAspectMin      = 3.0  // text-like: 横長判定のアスペクト比下限
	textEdgeDensityMin = 0.08 // text-like: 内部エッジ密度の下限

	buttonAspectMin = 0.8  // button-like: 正方形に近いアスペクト比の下限
	buttonAspectMax = 1.25 // button-like: 同上限
	buttonBorderMin = 0.5  // button-like: 縁のエッジ被覆率の下限
	buttonMaxArea   = 2500 // button-like: 面積の上限（ピクセル）

	imageMinArea        = 10000 // image-like: 面積の下限（ピクセル）
	imageEdgeDensityMax = 0.05  // image-like: 内部エッジ密度の上限
)

// DetectElements は輪郭候補プロバイダの出力を分類済みのUI要素リストに変換する
//
// 分類は候補ごとに以下の固定優先順で判定する：
//  1. 横長かつ内部エッジ密度が高い → text-like
//  2. 正方形に近く、縁がはっきりしていて、中程度の大きさ → button-like
//  3. 面積が大きく内部エッジ密度が低い → image-like
//  4. それ以外 → container
//
// 結果は読み順（上から下、次に左から右）にソートされ、後段の照合が
// 決定的になるようにする
func DetectElements(ctx context.Context, img *image.RGBA, provider ContourProvider, cfg *config.ComparisonConfig) ([]UIElement, error) {
	if provider == nil {
		return nil, fmt.Errorf("no contour provider configured")
	}

	candidates, err := provider.Contours(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("contour provider failed: %w", err)
	}

	bounds := img.Bounds()

	var elements []UIElement
	for _, candidate := range candidates {
		rect := candidate.Intersect(bounds)
		if rect.Dx() < minCandidateSize || rect.Dy() < minCandidateSize {
			continue
		}
		if len(elements) >= cfg.MaxElements {
			// 病的な入力（ノイズ画像など）でも処理コストが予測可能に収まるよう、
			// 候補数はここで打ち切る
			break
		}

		elementType, confidence := classifyCandidate(img, rect)
		elements = append(elements, UIElement{
			Type:       elementType,
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			W:          rect.Dx(),
			H:          rect.Dy(),
			Confidence: confidence,
		})
	}

	sortReadingOrder(elements)
	for i := range elements {
		elements[i].ID = i + 1
	}

	return elements, nil
}

// classifyCandidate は候補矩形を種別と確信度に分類する
func classifyCandidate(img *image.RGBA, rect image.Rectangle) (ElementType, float64) {
	aspect := float64(rect.Dx()) / float64(rect.Dy())
	area := rectArea(rect)
	edgeDensity := interiorEdgeDensity(img, rect)
	borderCoverage := borderEdgeCoverage(img, rect)

	switch {
	case aspect >= textAspectMin && edgeDensity >= textEdgeDensityMin:
		// 横長でエッジが多い＝文字が詰まった帯
		confidence := 0.5*utils.ClampFloat64(edgeDensity/(2*textEdgeDensityMin), 0.0, 1.0) +
			0.5*utils.ClampFloat64(aspect/(2*textAspectMin), 0.0, 1.0)
		return ElementTextLike, confidence

	case aspect >= buttonAspectMin && aspect <= buttonAspectMax &&
		borderCoverage >= buttonBorderMin && area <= buttonMaxArea:
		// 縁取りのある小さめの正方形
		return ElementButtonLike, utils.ClampFloat64(borderCoverage, 0.0, 1.0)

	case area >= imageMinArea && edgeDensity < imageEdgeDensityMax:
		// 大きくて内部が平坦
		return ElementImageLike, utils.ClampFloat64(1.0-edgeDensity/imageEdgeDensityMax, 0.0, 1.0)

	default:
		return ElementContainer, 0.5
	}
}

// interiorEdgeDensity は矩形内部のエッジピクセルの割合を返す
// 右隣・下隣との輝度差がedgeGradientStepを超えるピクセルをエッジとみなす
func interiorEdgeDensity(img *image.RGBA, rect image.Rectangle) float64 {
	edges := 0
	total := 0

	for y := rect.Min.Y; y < rect.Max.Y-1; y++ {
		for x := rect.Min.X; x < rect.Max.X-1; x++ {
			lum := luminanceAt(img, x, y)
			right := luminanceAt(img, x+1, y)
			down := luminanceAt(img, x, y+1)
			if utils.AbsInt(lum-right) > edgeGradientStep || utils.AbsInt(lum-down) > edgeGradientStep {
				edges++
			}
			total++
		}
	}

	if total == 0 {
		return 0.0
	}
	return float64(edges) / float64(total)
}

// borderEdgeCoverage は矩形の縁のうち、1ピクセル内側との輝度差が
// edgeGradientStepを超える部分の割合を返す。縁取りの明瞭さの指標になる
func borderEdgeCoverage(img *image.RGBA, rect image.Rectangle) float64 {
	if rect.Dx() < 3 || rect.Dy() < 3 {
		return 0.0
	}

	edges := 0
	total := 0

	// 上辺・下辺
	for x := rect.Min.X; x < rect.Max.X; x++ {
		if utils.AbsInt(luminanceAt(img, x, rect.Min.Y)-luminanceAt(img, x, rect.Min.Y+1)) > edgeGradientStep {
			edges++
		}
		if utils.AbsInt(luminanceAt(img, x, rect.Max.Y-1)-luminanceAt(img, x, rect.Max.Y-2)) > edgeGradientStep {
			edges++
		}
		total += 2
	}

	// 左辺・右辺（角の重複カウントは許容する）
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		if utils.AbsInt(luminanceAt(img, rect.Min.X, y)-luminanceAt(img, rect.Min.X+1, y)) > edgeGradientStep {
			edges++
		}
		if utils.AbsInt(luminanceAt(img, rect.Max.X-1, y)-luminanceAt(img, rect.Max.X-2, y)) > edgeGradientStep {
			edges++
		}
		total += 2
	}

	return float64(edges) / float64(total)
}

// luminanceAt は指定ピクセルの輝度（0-255）を返す
func luminanceAt(img *image.RGBA, x, y int) int {
	idx := img.PixOffset(x, y)
	r := float64(img.Pix[idx])
	g := float64(img.Pix[idx+1])
	b := float64(img.Pix[idx+2])
	return int(0.299*r + 0.587*g + 0.114*b)
}

// sortReadingOrder は要素を読み順（上から下、次に左から右）にソートする
// 厳密なY座標順ではなく、高さの中央値の半分を許容幅とする行バンドで
// グルーピングし、同じバンド内ではX座標順にする
func sortReadingOrder(elements []UIElement) {
	if len(elements) <= 1 {
		return
	}

	heights := make([]int, len(elements))
	for i, e := range elements {
		heights[i] = e.H
	}
	sort.Ints(heights)
	band := utils.Max(1, heights[len(heights)/2]/2)

	sort.Slice(elements, func(i, j int) bool {
		bi, bj := elements[i].Y/band, elements[j].Y/band
		if bi != bj {
			return bi < bj
		}
		if elements[i].X != elements[j].X {
			return elements[i].X < elements[j].X
		}
		return elements[i].Y < elements[j].Y
	})
}
