// Package format 提供了面向展示层的文本与时间格式化工具。
package format

import "time"

// FormatMessageTime 将时间戳渲染为简短的展示文本：
// 距今不足 24 小时显示当天时刻，不足 7 天显示星期缩写，
// 更早则显示月份缩写加日期。任何情况下都不显示年份。
func FormatMessageTime(t, now time.Time) string {
	age := now.Sub(t)

	switch {
	case age < 24*time.Hour:
		return t.Format("15:04")
	case age < 7*24*time.Hour:
		return t.Format("Mon")
	default:
		return t.Format("Jan 2")
	}
}

// Truncate 将超出 maxLen 个字符的文本截断并追加省略号。
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
