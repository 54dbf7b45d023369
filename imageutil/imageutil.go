// imageutil パッケージはスクリーンショット比較エンジンを提供します
package imageutil

// このファイルは、imageutil パッケージのエントリーポイントとして機能し、
// 各ファイルに分割された機能へのアクセスポイントを提供します。
//
// 機能は以下のファイルに分割されています：
// - comparator.go: 比較処理全体の統括とレポート組み立て
// - normalizer.go: 2枚の画像の形式・サイズの正規化
// - similarity.go: タイル単位の構造類似度（SSIM）の計算
// - regions.go: 低類似度タイルのクラスタリングと差分領域の抽出
// - renderer.go: 差分領域の視覚的表現
// - elements.go: 輪郭候補からのUI要素の分類
// - matcher.go: ベースラインと現状のUI要素の照合
// - textdiff.go: OCRテキストの行単位差分
// - rectangles.go: 矩形処理ユーティリティ
// - imageloader.go: 画像の読み込み・保存
// - errors.go: エラー種別の定義
