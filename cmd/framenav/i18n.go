// Package main provides localization for the framenav CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Logging":       "ログ",

		// Root command
		"Frame-accurate navigation and extraction for media files": "メディアファイルのフレーム単位のナビゲーションと抽出",

		// Commands
		"Show streams and index completeness":                     "ストリームとインデックスの完全性を表示",
		"List index entries that match a predicate":               "条件に一致するインデックスエントリを一覧表示",
		"Decode the first frame at or after a time into an image": "指定時刻以降の最初のフレームを画像にデコード",
		"Render keyframes into a contact sheet":                   "キーフレームをコンタクトシートに描画",
		"Show version information":                                "バージョン情報を表示",
		"framenav version %s":                                     "framenav バージョン %s",

		// Global flags
		"YAML configuration file":                  "YAML設定ファイル",
		"Path to the ffmpeg binary used for H.264": "H.264のデコードに使うffmpegのパス",
		"Log level (debug, info, warn, error)":     "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                  "全てのログ出力を抑制",

		// Command flags
		"Entries to list (keyframes, all, every-nth)": "一覧表示するエントリ（keyframes, all, every-nth）",
		"Step for the every-nth predicate":            "every-nth の間隔",
		"Stream index (default: first video stream)":  "ストリーム番号（デフォルト: 最初の映像ストリーム）",
		"Target time in seconds":                      "対象時刻（秒）",
		"Output image path (.png or .jpg)":            "出力画像パス（.png または .jpg）",
		"Output width (default: source width)":        "出力の幅（デフォルト: 元の幅）",
		"Output height (default: source height)":      "出力の高さ（デフォルト: 元の高さ）",
		"JPEG quality (1-100)":                        "JPEG品質（1-100）",
		"Number of columns (min: 1)":                  "カラム数（最小: 1）",
		"Thumbnail width in pixels":                   "サムネイルの幅（ピクセル）",
		"Maximum number of thumbnails":                "サムネイルの最大数",
		"TrueType font for labels":                    "ラベル用のTrueTypeフォント",

		// Summary
		"Scan the whole file and write a Markdown summary (- for stdout)": "ファイル全体を走査してMarkdownサマリーを出力（- で標準出力）",

		"Summary saved to %s": "サマリーを %s に保存しました",
		"Media Summary":       "メディアサマリー",
		"Generated":           "生成日時",
		"File":                "ファイル",
		"Item":                "項目",
		"Value":               "値",
		"Path":                "パス",
		"Container":           "コンテナ",
		"File Size":           "ファイルサイズ",
		"Duration":            "再生時間",
		"Streams":             "ストリーム",
		"Type":                "種類",
		"Codec":               "コーデック",
		"Time Base":           "タイムベース",
		"Frames":              "フレーム数",
		"Index":               "インデックス",
		"Keyframes":           "キーフレーム数",
		"Decoder":             "デコーダ",
		"complete":            "完全",
		"None":                "なし",
		"Generated by":        "生成:",

		// Error messages
		"Error: %v":                  "エラー: %v",
		"FILE argument is required":  "FILE引数が必要です",
		"No frame at or after %.3fs": "%.3f秒以降のフレームがありません",
	})
}
