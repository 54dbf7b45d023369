package imageutil

// MatchStatus はベースラインと現状の要素照合の結果種別
type MatchStatus string

const (
	MatchMatched MatchStatus = "matched" // 両画像に存在する
	MatchMissing MatchStatus = "missing" // ベースラインにのみ存在する
	MatchExtra   MatchStatus = "extra"   // 現状画像にのみ存在する
)

// ElementDiffEntry はUI要素照合の1件分の結果
type ElementDiffEntry struct {
	Status     MatchStatus `json:"status"`
	Type       ElementType `json:"type"`
	BaselineID int         `json:"baseline_id,omitempty"` // ベースライン側の要素ID（missing/matched）
	CurrentID  int         `json:"current_id,omitempty"`  // 現状側の要素ID（extra/matched）
	IoU        float64     `json:"iou,omitempty"`         // matchedの場合の重なり率
	Text       string      `json:"text,omitempty"`        // 要素に対応するテキスト断片（あれば）
}

// MatchElements はベースラインと現状のUI要素リストを空間的な重なりで照合する
//
// ベースラインの要素を読み順に走査し、それぞれについて未照合の現状要素のうち
// IoUが閾値以上かつ同種別で最大のものを対応付ける。IoUが同値の場合は
// 現状リストの先頭に近い方を優先する（決定的なタイブレーク）。
// 対応が付かなかったベースライン要素はmissing、現状要素はextraになる
func MatchElements(baseline, current []UIElement, iouThreshold float64) []ElementDiffEntry {
	matchedCurrent := make([]bool, len(current))
	entries := make([]ElementDiffEntry, 0, len(baseline)+len(current))

	for _, base := range baseline {
		bestIdx := -1
		bestIoU := 0.0

		for i, cand := range current {
			if matchedCurrent[i] || cand.Type != base.Type {
				continue
			}
			overlap := IoU(base.Rect(), cand.Rect())
			if overlap == 0 || overlap < iouThreshold {
				// 全く重ならない要素は閾値が0でも対応付けない
				continue
			}
			// 同値タイは先に現れたインデックスを保持する
			if overlap > bestIoU {
				bestIoU = overlap
				bestIdx = i
			}
		}

		if bestIdx >= 0 {
			matchedCurrent[bestIdx] = true
			entries = append(entries, ElementDiffEntry{
				Status:     MatchMatched,
				Type:       base.Type,
				BaselineID: base.ID,
				CurrentID:  current[bestIdx].ID,
				IoU:        bestIoU,
				Text:       base.Text,
			})
		} else {
			entries = append(entries, ElementDiffEntry{
				Status:     MatchMissing,
				Type:       base.Type,
				BaselineID: base.ID,
				Text:       base.Text,
			})
		}
	}

	for i, cand := range current {
		if matchedCurrent[i] {
			continue
		}
		entries = append(entries, ElementDiffEntry{
			Status:    MatchExtra,
			Type:      cand.Type,
			CurrentID: cand.ID,
			Text:      cand.Text,
		})
	}

	return entries
}

// missingRatio は照合結果からベースライン要素の欠落率を計算する
// ベースライン要素が1つもない場合は0とする
func missingRatio(entries []ElementDiffEntry) float64 {
	baselineTotal := 0
	missing := 0
	for _, e := range entries {
		switch e.Status {
		case MatchMatched:
			baselineTotal++
		case MatchMissing:
			baselineTotal++
			missing++
		}
	}
	if baselineTotal == 0 {
		return 0.0
	}
	return float64(missing) / float64(baselineTotal)
}
