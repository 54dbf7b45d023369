package imageutil

import (
	"image"

	"github.com/xshoji/go-img-compare/utils"
)

// rectArea は矩形の面積を計算
func rectArea(rect image.Rectangle) int {
	if !isValidRect(rect) {
		return 0
	}
	return (rect.Max.X - rect.Min.X) * (rect.Max.Y - rect.Min.Y)
}

// isValidRect は矩形が有効かどうかをチェック
func isValidRect(rect image.Rectangle) bool {
	return rect.Min.X < rect.Max.X && rect.Min.Y < rect.Max.Y
}

// unionRectangles は2つの矩形を包含する最小の矩形を返す
func unionRectangles(r1, r2 image.Rectangle) image.Rectangle {
	return image.Rect(
		utils.Min(r1.Min.X, r2.Min.X),
		utils.Min(r1.Min.Y, r2.Min.Y),
		utils.Max(r1.Max.X, r2.Max.X),
		utils.Max(r1.Max.Y, r2.Max.Y),
	)
}

// intersectionArea は2つの矩形の交差領域の面積を返す（交差しない場合は0）
func intersectionArea(r1, r2 image.Rectangle) int {
	intersection := image.Rect(
		utils.Max(r1.Min.X, r2.Min.X),
		utils.Max(r1.Min.Y, r2.Min.Y),
		utils.Min(r1.Max.X, r2.Max.X),
		utils.Min(r1.Max.Y, r2.Max.Y),
	)
	if !isValidRect(intersection) {
		return 0
	}
	return rectArea(intersection)
}

// IoU は2つの矩形のIntersection-over-Union（重なり率）を計算する
// 0.0（全く重ならない）～1.0（完全一致）の値を返す
func IoU(r1, r2 image.Rectangle) float64 {
	inter := intersectionArea(r1, r2)
	if inter == 0 {
		return 0.0
	}

	union := rectArea(r1) + rectArea(r2) - inter
	if union <= 0 {
		return 0.0
	}

	return float64(inter) / float64(union)
}

// boundingBoxOf は矩形の集合を包含する最小の矩形を返す
func boundingBoxOf(rects []image.Rectangle) image.Rectangle {
	if len(rects) == 0 {
		return image.Rectangle{}
	}
	result := rects[0]
	for _, r := range rects[1:] {
		result = unionRectangles(result, r)
	}
	return result
}
