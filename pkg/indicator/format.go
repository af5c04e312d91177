// Package indicator 决定何时重新生成16×16状态徽标，并始终给出一行状态文本
package indicator

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

const (
	// AppName 状态行前缀使用的应用名
	AppName = "GoNetWatch"
	// NeutralStatusLine 指示器关闭时的状态行
	NeutralStatusLine = AppName
	// StatusLineLimit 状态行最大字符数
	StatusLineLimit = 63

	statusPrefix = AppName + " - Ping: "
)

// FormatIndicatorText 返回徽标上显示的短文本
func FormatIndicatorText(rec core.MetricsRecord) string {
	if !rec.PingSuccess || rec.PingLatencyMs < 0 {
		return "X"
	}
	if rec.PingLatencyMs > 999 {
		return "1K"
	}
	return strconv.FormatInt(rec.PingLatencyMs, 10)
}

// FormatStatusLine 返回状态行，超出 StatusLineLimit 的部分直接截断
func FormatStatusLine(rec core.MetricsRecord) string {
	if !rec.PingSuccess || rec.PingLatencyMs < 0 {
		return TrimStatusLine(statusPrefix + "unavailable")
	}
	return TrimStatusLine(fmt.Sprintf("%s%d ms", statusPrefix, rec.PingLatencyMs))
}

// TrimStatusLine 将文本截断到 StatusLineLimit 个字符，不加省略号
func TrimStatusLine(s string) string {
	if len(s) <= StatusLineLimit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= StatusLineLimit {
		return s
	}
	return string(runes[:StatusLineLimit])
}

// ShouldRefresh 判断是否需要重新生成徽标
// 从未渲染过则总是刷新；文本相同则不刷新；否则距上次渲染至少 minInterval 才刷新。
// 节流窗口内的变化直接丢弃，下一个tick重新判断
func ShouldRefresh(now, lastRenderedAt time.Time, newText, oldText string, minInterval time.Duration) bool {
	if lastRenderedAt.IsZero() {
		return true
	}
	if newText == oldText {
		return false
	}
	return now.Sub(lastRenderedAt) >= minInterval
}

// FormatLossText 返回丢包率徽标文本
func FormatLossText(percent float64) string {
	switch {
	case percent >= 100:
		return "99+"
	case percent >= 10:
		return strconv.Itoa(int(percent))
	case percent >= 1:
		return strconv.FormatFloat(percent, 'f', 1, 64)
	default:
		return "0"
	}
}

// FormatRate 将字节/秒格式化为带单位的文本，负值按0处理
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	switch {
	case bytesPerSec < 1024:
		return fmt.Sprintf("%.2f B/s", bytesPerSec)
	case bytesPerSec < 1024*1024:
		return fmt.Sprintf("%.2f KB/s", bytesPerSec/1024)
	default:
		return fmt.Sprintf("%.2f MB/s", bytesPerSec/(1024*1024))
	}
}
