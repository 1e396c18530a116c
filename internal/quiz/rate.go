package quiz

import "math"

// Rate は正答率（%）を小数第1位で丸めて返す。
// 分母が0の場合は0.0。セッション完了時・統計・一覧表示の
// すべての正答率計算はこの関数を経由する。
func Rate(correct, attempted int) float64 {
	if attempted == 0 {
		return 0.0
	}
	percent := float64(correct) / float64(attempted) * 100
	return math.Round(percent*10) / 10
}
