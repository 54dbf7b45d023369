package imageutil

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	"github.com/xshoji/go-img-compare/config"
	"github.com/xshoji/go-img-compare/utils"
)

// NormalizePair は2枚の画像を共通の形式・サイズに正規化する
// 戻り値の2枚は同一サイズ・原点(0,0)のRGBA画像で、以降の全ステージの入力になる
// 入力画像は変更しない
func NormalizePair(baseline, current image.Image, policy config.ResizePolicy) (*image.RGBA, *image.RGBA, error) {
	if err := checkInput(baseline, "baseline"); err != nil {
		return nil, nil, err
	}
	if err := checkInput(current, "current"); err != nil {
		return nil, nil, err
	}

	bw, bh := baseline.Bounds().Dx(), baseline.Bounds().Dy()
	cw, ch := current.Bounds().Dx(), current.Bounds().Dy()

	if bw != cw || bh != ch {
		switch policy {
		case config.ResizeReject:
			return nil, nil, fmt.Errorf("%w: baseline=%dx%d current=%dx%d",
				ErrDimensionMismatch, bw, bh, cw, ch)

		case config.ResizeStretch:
			// 比較対象画像をベースライン画像のサイズに引き伸ばす
			current = resize.Resize(uint(bw), uint(bh), current, resize.Bilinear)

		case config.ResizePad:
			// 両画像を大きい方のサイズまで拡張し、余白を不透明な黒で埋める
			w := utils.Max(bw, cw)
			h := utils.Max(bh, ch)
			baseline = padToSize(baseline, w, h)
			current = padToSize(current, w, h)

		default:
			return nil, nil, fmt.Errorf("%w: unknown resize policy %q", ErrConfig, policy)
		}
	}

	return toRGBA(baseline), toRGBA(current), nil
}

// checkInput は入力画像の妥当性を検証する
func checkInput(img image.Image, name string) error {
	if img == nil {
		return fmt.Errorf("%w: %s image is nil", ErrInput, name)
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return fmt.Errorf("%w: %s image is empty", ErrInput, name)
	}
	return nil
}

// toRGBA は画像を原点(0,0)のRGBA形式に変換する
// すでに条件を満たすRGBA画像であってもコピーを作り、入力の不変性を保つ
func toRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
	return dst
}

// padToSize は画像を指定サイズまで拡張し、余白を不透明な黒で埋める
// 元画像は左上に配置する
func padToSize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	black := image.NewUniform(color.RGBA{0, 0, 0, 255})
	xdraw.Draw(dst, dst.Bounds(), black, image.Point{}, xdraw.Src)
	xdraw.Draw(dst, image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()), img, img.Bounds().Min, xdraw.Src)
	return dst
}
