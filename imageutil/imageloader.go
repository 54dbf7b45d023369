package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// LoadImage 指定されたパスから画像を読み込む
func LoadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", ErrInput, err)
	}
	defer file.Close()

	var img image.Image
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".png":
		img, err = png.Decode(file)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
	default:
		return nil, fmt.Errorf("%w: unsupported image format: %s", ErrInput, ext)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInput, err)
	}

	return img, nil
}

// DecodeImage はバイト列から画像をデコードする（PNG/JPEG自動判別）
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image buffer", ErrInput)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrInput, err)
	}

	return img, nil
}

// EncodePNG は画像をPNG形式のバイト列にエンコードする
// レポートの差分画像を取得可能なバイト列として公開するための関数
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInput)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// SaveImage 画像をファイルに保存する（拡張子で形式を判別）
func SaveImage(img image.Image, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(outputPath))

	var saveErr error
	switch ext {
	case ".png":
		saveErr = png.Encode(file, img)
	case ".jpg", ".jpeg":
		saveErr = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported output format: %s", ext)
	}

	if saveErr != nil {
		return fmt.Errorf("failed to save image: %w", saveErr)
	}

	return nil
}
