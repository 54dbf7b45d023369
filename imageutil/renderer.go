package imageutil

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// 深刻度ラベルごとの表示色（固定の3色。regions.goの3段階と対応する）
var severityColors = map[SeverityLevel]color.RGBA{
	SeverityLow:    {255, 204, 0, 255}, // 黄
	SeverityMedium: {255, 128, 0, 255}, // 橙
	SeverityHigh:   {255, 0, 0, 255},   // 赤
}

// 描画パラメータ
const (
	overlayAlpha    = 0.35 // 領域内の塗りつぶしの不透明度
	borderThickness = 3.0  // 枠線の太さ（ピクセル）
)

// RenderDiff は比較対象画像のコピーの上に差分領域を描画した画像を返す
// 各領域は深刻度に応じた色の半透明矩形と不透明な枠線で強調される
// 描画はID順（抽出順）に行うため、同じ入力からは常に同じ出力が得られる
// 入力画像は変更しない
func RenderDiff(current *image.RGBA, regions []DiffRegion) *image.RGBA {
	result := image.NewRGBA(current.Bounds())
	copy(result.Pix, current.Pix)

	if len(regions) == 0 {
		return result
	}

	dc := gg.NewContextForRGBA(result)

	for _, region := range regions {
		col := severityColors[region.Level]
		r := float64(col.R) / 255.0
		g := float64(col.G) / 255.0
		b := float64(col.B) / 255.0

		// 領域内の半透明塗りつぶし
		dc.SetRGBA(r, g, b, overlayAlpha)
		dc.DrawRectangle(float64(region.X), float64(region.Y), float64(region.W), float64(region.H))
		dc.Fill()

		// 枠線
		dc.SetRGBA(r, g, b, 1.0)
		dc.SetLineWidth(borderThickness)
		dc.DrawRectangle(float64(region.X), float64(region.Y), float64(region.W), float64(region.H))
		dc.Stroke()
	}

	return result
}
