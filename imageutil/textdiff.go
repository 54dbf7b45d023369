package imageutil

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/xshoji/go-img-compare/utils"
)

// TextDiffStatus はテキスト差分の1行分の結果種別
type TextDiffStatus string

const (
	TextUnchanged TextDiffStatus = "unchanged"
	TextAdded     TextDiffStatus = "added"
	TextRemoved   TextDiffStatus = "removed"
	TextChanged   TextDiffStatus = "changed"
)

// TextDiffEntry はテキスト差分の1行分の結果
// Lineはunchanged/changed/removedではベースライン側の行番号（0始まり）、
// addedでは現状側の行番号を指す
type TextDiffEntry struct {
	Line     int            `json:"line"`
	Status   TextDiffStatus `json:"status"`
	Baseline string         `json:"baseline,omitempty"`
	Current  string         `json:"current,omitempty"`
}

// DiffText は2つのOCRテキストを行単位で比較する
// 最長共通部分列に基づく差分を取り、各行をunchanged/added/removed/changedに分類する
func DiffText(baseline, current string) []TextDiffEntry {
	baseLines := splitLines(baseline)
	currLines := splitLines(current)

	matcher := difflib.NewMatcher(baseLines, currLines)

	var entries []TextDiffEntry
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e': // 一致ブロック
			for k := 0; k < op.I2-op.I1; k++ {
				entries = append(entries, TextDiffEntry{
					Line:     op.I1 + k,
					Status:   TextUnchanged,
					Baseline: baseLines[op.I1+k],
					Current:  currLines[op.J1+k],
				})
			}

		case 'r': // 置換ブロック：対になる行はchanged、余りはremoved/added
			pairs := utils.Min(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < pairs; k++ {
				entries = append(entries, TextDiffEntry{
					Line:     op.I1 + k,
					Status:   TextChanged,
					Baseline: baseLines[op.I1+k],
					Current:  currLines[op.J1+k],
				})
			}
			for k := pairs; k < op.I2-op.I1; k++ {
				entries = append(entries, TextDiffEntry{
					Line:     op.I1 + k,
					Status:   TextRemoved,
					Baseline: baseLines[op.I1+k],
				})
			}
			for k := pairs; k < op.J2-op.J1; k++ {
				entries = append(entries, TextDiffEntry{
					Line:    op.J1 + k,
					Status:  TextAdded,
					Current: currLines[op.J1+k],
				})
			}

		case 'd': // 削除ブロック
			for k := op.I1; k < op.I2; k++ {
				entries = append(entries, TextDiffEntry{
					Line:     k,
					Status:   TextRemoved,
					Baseline: baseLines[k],
				})
			}

		case 'i': // 挿入ブロック
			for k := op.J1; k < op.J2; k++ {
				entries = append(entries, TextDiffEntry{
					Line:    k,
					Status:  TextAdded,
					Current: currLines[k],
				})
			}
		}
	}

	return entries
}

// textDiffRatio は差分結果から変更行の割合を計算する
// 行が1つもない場合は0とする
func textDiffRatio(entries []TextDiffEntry) float64 {
	if len(entries) == 0 {
		return 0.0
	}
	differing := 0
	for _, e := range entries {
		if e.Status != TextUnchanged {
			differing++
		}
	}
	return float64(differing) / float64(len(entries))
}

// splitLines はテキストを行に分割する
// 末尾の改行は行としてカウントしない。空文字列は0行とする
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}
