package imageutil

import (
	"math"
	"testing"

	"github.com/xshoji/go-img-compare/config"
)

// createScoreGrid 全タイルが同一スコアのグリッドを生成する
func createScoreGrid(rows, cols, tileSize int, score float64) *TileScoreGrid {
	grid := &TileScoreGrid{
		Rows:     rows,
		Cols:     cols,
		TileSize: tileSize,
		Width:    cols * tileSize,
		Height:   rows * tileSize,
	}
	grid.Scores = make([][]float64, rows)
	for row := range grid.Scores {
		grid.Scores[row] = make([]float64, cols)
		for col := range grid.Scores[row] {
			grid.Scores[row][col] = score
		}
	}
	return grid
}

func TestExtractRegionsNoDifference(t *testing.T) {
	grid := createScoreGrid(10, 10, 10, 1.0)
	cfg := config.DefaultConfig()

	regions := ExtractRegions(grid, &cfg)
	if len(regions) != 0 {
		t.Errorf("identical grid should produce no regions, but got %d", len(regions))
	}
}

func TestExtractRegionsAllDifferent(t *testing.T) {
	grid := createScoreGrid(10, 10, 10, 0.0)
	cfg := config.DefaultConfig()

	regions := ExtractRegions(grid, &cfg)
	if len(regions) != 1 {
		t.Fatalf("fully different grid should produce one region, but got %d", len(regions))
	}

	r := regions[0]
	if r.ID != 1 {
		t.Errorf("region ID should be 1, but got %d", r.ID)
	}
	if r.X != 0 || r.Y != 0 || r.W != 100 || r.H != 100 {
		t.Errorf("region should cover the full image, but got %+v", r)
	}
	if r.Severity != 1.0 {
		t.Errorf("severity should be 1.0, but got %f", r.Severity)
	}
	if r.Level != SeverityHigh {
		t.Errorf("level should be high, but got %s", r.Level)
	}
	if r.Tiles != 100 {
		t.Errorf("region should contain 100 tiles, but got %d", r.Tiles)
	}
}

func TestExtractRegionsRightHalf(t *testing.T) {
	grid := createScoreGrid(10, 10, 10, 1.0)
	for row := 0; row < 10; row++ {
		for col := 5; col < 10; col++ {
			grid.Scores[row][col] = 0.0
		}
	}
	cfg := config.DefaultConfig()

	regions := ExtractRegions(grid, &cfg)
	if len(regions) != 1 {
		t.Fatalf("right half should produce one region, but got %d", len(regions))
	}

	r := regions[0]
	if r.X != 50 || r.Y != 0 || r.W != 50 || r.H != 100 {
		t.Errorf("region should be (50,0) 50x100, but got %+v", r)
	}
}

func TestExtractRegionsMinAreaFilter(t *testing.T) {
	// 孤立した1タイル (100px) はMinRegionArea=200で除外される
	grid := createScoreGrid(10, 10, 10, 1.0)
	grid.Scores[3][3] = 0.0

	cfg := config.DefaultConfig()
	cfg.MinRegionArea = 200

	regions := ExtractRegions(grid, &cfg)
	if len(regions) != 0 {
		t.Errorf("region below minimum area should be filtered, but got %d regions", len(regions))
	}

	// 閾値を下げれば残る
	cfg.MinRegionArea = 64
	regions = ExtractRegions(grid, &cfg)
	if len(regions) != 1 {
		t.Errorf("region above minimum area should survive, but got %d regions", len(regions))
	}
}

func TestExtractRegionsSortAndTruncate(t *testing.T) {
	// 大きさの異なる3つの孤立クラスタを作る
	grid := createScoreGrid(10, 10, 10, 1.0)
	// 2x2タイルのクラスタ
	grid.Scores[0][0] = 0.0
	grid.Scores[0][1] = 0.0
	grid.Scores[1][0] = 0.0
	grid.Scores[1][1] = 0.0
	// 横2タイルのクラスタ
	grid.Scores[5][5] = 0.0
	grid.Scores[5][6] = 0.0
	// 1タイルのクラスタ
	grid.Scores[9][9] = 0.0

	cfg := config.DefaultConfig()

	regions := ExtractRegions(grid, &cfg)
	if len(regions) != 3 {
		t.Fatalf("should extract 3 regions, but got %d", len(regions))
	}

	// 面積の降順、IDは1から連番
	for i, r := range regions {
		if r.ID != i+1 {
			t.Errorf("region %d should have ID %d, but got %d", i, i+1, r.ID)
		}
	}
	if regions[0].W*regions[0].H < regions[1].W*regions[1].H {
		t.Errorf("regions should be sorted by area descending")
	}
	if regions[0].X != 0 || regions[0].Y != 0 {
		t.Errorf("largest region should be at (0,0), but got (%d,%d)", regions[0].X, regions[0].Y)
	}

	// MaxRegionsで切り詰め（大きい領域が優先して残る）
	cfg.MaxRegions = 2
	regions = ExtractRegions(grid, &cfg)
	if len(regions) != 2 {
		t.Fatalf("should truncate to 2 regions, but got %d", len(regions))
	}
	if regions[0].W != 20 || regions[0].H != 20 {
		t.Errorf("largest region should survive truncation, but got %+v", regions[0])
	}
}

func TestExtractRegionsNonOverlapping(t *testing.T) {
	// L字型の成分の外接矩形が別の成分を覆うケース
	grid := createScoreGrid(10, 10, 10, 1.0)
	// L字型：左の縦棒と下の横棒
	for row := 0; row < 5; row++ {
		grid.Scores[row][0] = 0.0
	}
	for col := 0; col < 5; col++ {
		grid.Scores[4][col] = 0.0
	}
	// L字の外接矩形の内側に孤立クラスタ
	grid.Scores[1][3] = 0.0

	cfg := config.DefaultConfig()

	regions := ExtractRegions(grid, &cfg)
	for i := 0; i < len(regions); i++ {
		for j := i + 1; j < len(regions); j++ {
			if intersectionArea(regions[i].Rect(), regions[j].Rect()) != 0 {
				t.Errorf("regions %d and %d should not overlap: %v vs %v",
					regions[i].ID, regions[j].ID, regions[i].Rect(), regions[j].Rect())
			}
		}
	}
}

func TestExtractRegionsSeverity(t *testing.T) {
	// スコア0.5と0.7のタイルからなるクラスタ → 深刻度 (0.5+0.3)/2 = 0.4
	grid := createScoreGrid(10, 10, 10, 1.0)
	grid.Scores[2][2] = 0.5
	grid.Scores[2][3] = 0.7

	cfg := config.DefaultConfig()

	regions := ExtractRegions(grid, &cfg)
	if len(regions) != 1 {
		t.Fatalf("should extract one region, but got %d", len(regions))
	}

	if math.Abs(regions[0].Severity-0.4) > 1e-9 {
		t.Errorf("severity should be 0.4, but got %f", regions[0].Severity)
	}
	if regions[0].Level != SeverityMedium {
		t.Errorf("level should be medium, but got %s", regions[0].Level)
	}
}

func TestSeverityLevelOf(t *testing.T) {
	if got := severityLevelOf(0.1); got != SeverityLow {
		t.Errorf("0.1 should be low, but got %s", got)
	}
	if got := severityLevelOf(0.5); got != SeverityMedium {
		t.Errorf("0.5 should be medium, but got %s", got)
	}
	if got := severityLevelOf(0.9); got != SeverityHigh {
		t.Errorf("0.9 should be high, but got %s", got)
	}
}
