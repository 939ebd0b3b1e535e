package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatMessageTime(t *testing.T) {
	now := time.Date(2025, time.March, 20, 18, 0, 0, 0, time.UTC) // 星期四

	// 24 小时以内显示时刻
	assert.Equal(t, "09:30", FormatMessageTime(time.Date(2025, time.March, 20, 9, 30, 0, 0, time.UTC), now))

	// 7 天以内显示星期缩写
	assert.Equal(t, "Tue", FormatMessageTime(time.Date(2025, time.March, 18, 12, 0, 0, 0, time.UTC), now))

	// 更早显示月份与日期，不带年份
	assert.Equal(t, "Feb 1", FormatMessageTime(time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC), now))
	assert.Equal(t, "Dec 25", FormatMessageTime(time.Date(2010, time.December, 25, 12, 0, 0, 0, time.UTC), now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "hello...", Truncate("hello world", 5))
}
