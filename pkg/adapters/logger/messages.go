package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session level messages (info)
		"Opened %s (%s): %d streams":               "%s を開きました (%s): %d ストリーム",
		"Extracted frame at %.3fs to %s":           "%.3f秒のフレームを %s に書き出しました",
		"Rendering %d frames into a contact sheet": "%d フレームをコンタクトシートに描画中",
		"Output saved to %s":                       "出力を %s に保存しました",
		"Interrupted, shutting down...":            "中断されました。シャットダウン中...",

		// Session warnings
		"Stream %d (%s %s) cannot be decoded: %v": "ストリーム %d (%s %s) はデコードできません: %v",

		// Demuxers (mp4demux, y4mdemux components)
		"Opened MP4: %d streams, %d samples, fragmented=%v": "MP4を開きました: %d ストリーム, %d サンプル, fragmented=%v",
		"Opened Y4M: %dx%d %s, %d frames":                   "Y4Mを開きました: %dx%d %s, %d フレーム",
		"Sample at offset %d has timestamp %d, expected %d": "オフセット %d のサンプルのタイムスタンプは %d です (期待値 %d)",
		"Frame at offset %d is %d, expected %d":             "オフセット %d のフレームは %d です (期待値 %d)",

		// Frame index (frameindex component)
		"Index of stream %d has %d of %d entries, scanning container": "ストリーム %d のインデックスは %d / %d エントリです。コンテナを走査中",
		"Index of stream %d has %d entries after scan":                "走査後のストリーム %d のインデックス: %d エントリ",
		"Rewind failed before index scan: %v":                         "インデックス走査前の巻き戻しに失敗しました: %v",
		"Index scan stopped early: %v":                                "インデックス走査が途中で停止しました: %v",

		// Decode pipeline (decode component)
		"Scale configured: %dx%d %s, stride %d (%s)": "スケール設定: %dx%d %s, ストライド %d (%s)",
		"Decoded frame at %.3fs for target %.3fs":    "目標 %.3f秒 に対して %.3f秒 のフレームをデコードしました",
		"Audio decode stopped at offset %d: %v":      "オフセット %d で音声デコードが停止しました: %v",
	})
}
