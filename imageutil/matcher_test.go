package imageutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countByStatus 照合結果を種別ごとに数える
func countByStatus(entries []ElementDiffEntry) (matched, missing, extra int) {
	for _, e := range entries {
		switch e.Status {
		case MatchMatched:
			matched++
		case MatchMissing:
			missing++
		case MatchExtra:
			extra++
		}
	}
	return matched, missing, extra
}

func TestMatchElementsShiftedPlusExtra(t *testing.T) {
	// ベースラインの3要素が現状では2ピクセル平行移動し、さらに1要素が追加された
	baseline := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 10, W: 30, H: 30},
		{ID: 2, Type: ElementTextLike, X: 60, Y: 10, W: 30, H: 30},
		{ID: 3, Type: ElementContainer, X: 10, Y: 60, W: 30, H: 30},
	}
	current := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 12, Y: 10, W: 30, H: 30},
		{ID: 2, Type: ElementTextLike, X: 62, Y: 10, W: 30, H: 30},
		{ID: 3, Type: ElementContainer, X: 12, Y: 60, W: 30, H: 30},
		{ID: 4, Type: ElementImageLike, X: 150, Y: 150, W: 40, H: 40},
	}

	entries := MatchElements(baseline, current, 0.5)
	matched, missing, extra := countByStatus(entries)

	assert.Equal(t, 3, matched)
	assert.Equal(t, 0, missing)
	assert.Equal(t, 1, extra)
	assert.InDelta(t, 0.0, missingRatio(entries), 1e-9)

	// matchedエントリが先頭に並び、対応IDとIoUが埋まる
	require.GreaterOrEqual(t, len(entries), 3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, MatchMatched, entries[i].Status)
		assert.Equal(t, baseline[i].ID, entries[i].BaselineID)
		assert.Equal(t, current[i].ID, entries[i].CurrentID)
		assert.Greater(t, entries[i].IoU, 0.5)
	}

	// extraは現状側のIDを持つ
	last := entries[len(entries)-1]
	assert.Equal(t, MatchExtra, last.Status)
	assert.Equal(t, 4, last.CurrentID)
}

func TestMatchElementsTypeMismatch(t *testing.T) {
	// 同じ位置でも種別が違えば対応付けない
	baseline := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 10, W: 30, H: 30},
	}
	current := []UIElement{
		{ID: 1, Type: ElementTextLike, X: 10, Y: 10, W: 30, H: 30},
	}

	entries := MatchElements(baseline, current, 0.5)
	matched, missing, extra := countByStatus(entries)

	assert.Equal(t, 0, matched)
	assert.Equal(t, 1, missing)
	assert.Equal(t, 1, extra)
	assert.InDelta(t, 1.0, missingRatio(entries), 1e-9)
}

func TestMatchElementsZeroIoUNeverMatches(t *testing.T) {
	// 閾値0でも全く重ならない要素は対応付けない
	baseline := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 0, Y: 0, W: 10, H: 10},
	}
	current := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 100, Y: 100, W: 10, H: 10},
	}

	entries := MatchElements(baseline, current, 0.0)
	matched, missing, extra := countByStatus(entries)

	assert.Equal(t, 0, matched)
	assert.Equal(t, 1, missing)
	assert.Equal(t, 1, extra)
}

func TestMatchElementsTieBreak(t *testing.T) {
	// IoUが同値の候補が2つある場合、現状リストの先頭に近い方を選ぶ
	baseline := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 10, W: 20, H: 20},
	}
	current := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 12, W: 20, H: 20},
		{ID: 2, Type: ElementButtonLike, X: 10, Y: 8, W: 20, H: 20},
	}

	entries := MatchElements(baseline, current, 0.1)

	require.Equal(t, MatchMatched, entries[0].Status)
	assert.Equal(t, 1, entries[0].CurrentID)
}

func TestMatchElementsSwappedInputs(t *testing.T) {
	// 入力を入れ替えるとmissingとextraが入れ替わる
	a := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 10, W: 30, H: 30},
		{ID: 2, Type: ElementTextLike, X: 60, Y: 10, W: 30, H: 30},
	}
	b := []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 10, W: 30, H: 30},
	}

	_, missingAB, extraAB := countByStatus(MatchElements(a, b, 0.5))
	_, missingBA, extraBA := countByStatus(MatchElements(b, a, 0.5))

	assert.Equal(t, 1, missingAB)
	assert.Equal(t, 0, extraAB)
	assert.Equal(t, 0, missingBA)
	assert.Equal(t, 1, extraBA)
}

func TestMissingRatioEmptyBaseline(t *testing.T) {
	entries := MatchElements(nil, []UIElement{
		{ID: 1, Type: ElementButtonLike, X: 10, Y: 10, W: 30, H: 30},
	}, 0.5)

	assert.InDelta(t, 0.0, missingRatio(entries), 1e-9)
}
