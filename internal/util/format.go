package util

import (
	"fmt"
	"math"
)

// Percentage round(obtained/total*100)，总分为 0 时返回 0
func Percentage(obtained, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(obtained) / float64(total) * 100))
}

// FormatClock 倒计时显示，如 05:07；超过一小时显示 1:02:03
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatDuration 用时显示，如 "12m 05s"
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}
