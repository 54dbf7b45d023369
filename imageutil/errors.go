package imageutil

import "errors"

// 比較処理で発生しうる致命的エラーの種別
// これらのいずれかが返された場合、レポートは生成されない
// errors.Is で判別できるよう、常に %w でラップして返す
var (
	// ErrInput は画像が読み込めない・壊れている・空である場合のエラー
	ErrInput = errors.New("invalid input image")

	// ErrDimensionMismatch は ResizeReject 方針のもとで画像サイズが一致しない場合のエラー
	ErrDimensionMismatch = errors.New("image dimensions do not match")

	// ErrConfig は設定値が不正な場合のエラー
	ErrConfig = errors.New("invalid configuration")
)

// StageStatus はレポート内のオプションステージの状態を表す
// 要素検出やテキスト差分が実行できなかった場合、比較全体を失敗させる代わりに
// 該当セクションをunavailableとしてマークし、理由を記録する
type StageStatus struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"` // unavailableの場合の理由
}

// StageOK は実行済みステージの状態を返す
func StageOK() StageStatus {
	return StageStatus{Available: true}
}

// StageUnavailable は理由付きで未実行ステージの状態を返す
func StageUnavailable(reason string) StageStatus {
	return StageStatus{Available: false, Reason: reason}
}
