package imageutil

import (
	"image"
	"sort"

	"github.com/xshoji/go-img-compare/config"
)

// SeverityLevel は差分領域の深刻度ラベル
type SeverityLevel string

const (
	SeverityLow    SeverityLevel = "low"
	SeverityMedium SeverityLevel = "medium"
	SeverityHigh   SeverityLevel = "high"
)

// severityLevelOf は深刻度の数値を3段階のラベルに変換する
// この区分はレンダラーの色分けと共通（renderer.goを参照）
func severityLevelOf(severity float64) SeverityLevel {
	switch {
	case severity < 0.33:
		return SeverityLow
	case severity < 0.66:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// DiffRegion は差分としてクラスタリングされた矩形領域
type DiffRegion struct {
	ID       int           `json:"id"` // 抽出順に1から振られる安定ID
	X        int           `json:"x"`
	Y        int           `json:"y"`
	W        int           `json:"w"`
	H        int           `json:"h"`
	Severity float64       `json:"severity"` // 構成タイルの mean(1-score)
	Level    SeverityLevel `json:"level"`    // Severityの3段階ラベル
	Tiles    int           `json:"tiles"`    // 構成タイル数
}

// Rect は領域のピクセル矩形を返す
func (r DiffRegion) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// clusterEntry はクラスタリング途中の領域候補
type clusterEntry struct {
	rect     image.Rectangle
	severity float64 // 構成タイルの (1-score) の合計
	tiles    int
}

// ExtractRegions は閾値未満のタイルをクラスタリングして差分領域を抽出する
//
// アルゴリズム：
//  1. スコアが閾値未満のタイルをマークする
//  2. マークされたタイルを4連結でクラスタリングし、各クラスタのピクセル矩形の
//     和集合を領域候補とする
//  3. 候補の外接矩形同士が重なる場合は統合する（出力領域は互いに重ならない）
//  4. 面積がMinRegionArea未満の候補をノイズとして除外する
//  5. 面積の降順（同値なら左上優先）でソートし、IDを振り、MaxRegions件に切り詰める
func ExtractRegions(grid *TileScoreGrid, cfg *config.ComparisonConfig) []DiffRegion {
	marked := make([][]bool, grid.Rows)
	for row := range marked {
		marked[row] = make([]bool, grid.Cols)
		for col := range marked[row] {
			marked[row][col] = grid.Scores[row][col] < cfg.DiffThreshold
		}
	}

	clusters := collectClusters(grid, marked)
	clusters = mergeOverlappingClusters(clusters)

	// ノイズ除外
	var filtered []clusterEntry
	for _, c := range clusters {
		if rectArea(c.rect) >= cfg.MinRegionArea {
			filtered = append(filtered, c)
		}
	}

	// 面積の降順にソート。同面積なら上、次に左の領域を優先する
	sort.Slice(filtered, func(i, j int) bool {
		ai, aj := rectArea(filtered[i].rect), rectArea(filtered[j].rect)
		if ai != aj {
			return ai > aj
		}
		if filtered[i].rect.Min.Y != filtered[j].rect.Min.Y {
			return filtered[i].rect.Min.Y < filtered[j].rect.Min.Y
		}
		return filtered[i].rect.Min.X < filtered[j].rect.Min.X
	})

	if len(filtered) > cfg.MaxRegions {
		filtered = filtered[:cfg.MaxRegions]
	}

	regions := make([]DiffRegion, 0, len(filtered))
	for i, c := range filtered {
		severity := c.severity / float64(c.tiles)
		regions = append(regions, DiffRegion{
			ID:       i + 1,
			X:        c.rect.Min.X,
			Y:        c.rect.Min.Y,
			W:        c.rect.Dx(),
			H:        c.rect.Dy(),
			Severity: severity,
			Level:    severityLevelOf(severity),
			Tiles:    c.tiles,
		})
	}

	return regions
}

// collectClusters はマークされたタイルを4連結の連結成分にまとめる
// 走査順（上から下、左から右）が固定なので結果は決定的
func collectClusters(grid *TileScoreGrid, marked [][]bool) []clusterEntry {
	visited := make([][]bool, grid.Rows)
	for row := range visited {
		visited[row] = make([]bool, grid.Cols)
	}

	var clusters []clusterEntry

	for row := 0; row < grid.Rows; row++ {
		for col := 0; col < grid.Cols; col++ {
			if !marked[row][col] || visited[row][col] {
				continue
			}

			// 新しい連結成分を幅優先で収集する
			entry := clusterEntry{}
			queue := []image.Point{{X: col, Y: row}}
			visited[row][col] = true

			for len(queue) > 0 {
				tile := queue[0]
				queue = queue[1:]

				tileRect := grid.TileRect(tile.Y, tile.X)
				if entry.tiles == 0 {
					entry.rect = tileRect
				} else {
					entry.rect = unionRectangles(entry.rect, tileRect)
				}
				entry.severity += 1.0 - grid.Scores[tile.Y][tile.X]
				entry.tiles++

				// 上下左右の4近傍のみを辿る
				neighbors := []image.Point{
					{X: tile.X, Y: tile.Y - 1},
					{X: tile.X, Y: tile.Y + 1},
					{X: tile.X - 1, Y: tile.Y},
					{X: tile.X + 1, Y: tile.Y},
				}
				for _, n := range neighbors {
					if n.X < 0 || n.X >= grid.Cols || n.Y < 0 || n.Y >= grid.Rows {
						continue
					}
					if !marked[n.Y][n.X] || visited[n.Y][n.X] {
						continue
					}
					visited[n.Y][n.X] = true
					queue = append(queue, n)
				}
			}

			clusters = append(clusters, entry)
		}
	}

	return clusters
}

// mergeOverlappingClusters は外接矩形同士が重なる候補を統合する
// 連結成分自体は互いに素だが、L字型の成分の外接矩形が別の成分を覆うことが
// あるため、出力の非重複を保証するにはこの統合が必要になる
// 統合後の深刻度はタイル数で重み付けした合計をそのまま引き継ぐ
func mergeOverlappingClusters(clusters []clusterEntry) []clusterEntry {
	if len(clusters) <= 1 {
		return clusters
	}

	result := make([]clusterEntry, len(clusters))
	copy(result, clusters)

	// 統合が発生しなくなるまで繰り返す
	changed := true
	for changed {
		changed = false

		for i := 0; i < len(result); i++ {
			for j := i + 1; j < len(result); j++ {
				if intersectionArea(result[i].rect, result[j].rect) == 0 {
					continue
				}

				// 統合して小さい方を取り除く
				result[i] = clusterEntry{
					rect:     unionRectangles(result[i].rect, result[j].rect),
					severity: result[i].severity + result[j].severity,
					tiles:    result[i].tiles + result[j].tiles,
				}
				result = append(result[:j], result[j+1:]...)
				changed = true
				j--
			}
		}
	}

	return result
}
