// Package tui 工具函数和辅助类型
package tui

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
)

// 半格字符，前景色画一个像素，背景色画另一个
const (
	upperHalf = '▀'
	lowerHalf = '▄'
)

// formatLatency 提供自适应的延迟格式化
func formatLatency(latency float64) string {
	if math.IsNaN(latency) || math.IsInf(latency, 0) {
		return "N/A"
	}

	if latency < 1.0 {
		// 小于1ms，显示为微秒
		return fmt.Sprintf("%.0fµs", latency*1000)
	} else if latency < 1000.0 {
		// 1ms到1000ms之间，显示为毫秒
		return fmt.Sprintf("%.1fms", latency)
	} else {
		// 大于等于1000ms，显示为秒
		return fmt.Sprintf("%.2fs", latency/1000)
	}
}

// formatUptime 把运行时长格式化为 时:分:秒
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatAlertLine 生成一条带颜色的告警日志
func formatAlertLine(ev core.AlertEvent) string {
	color := "red"
	if ev.Kind.IsRestore() {
		color = "green"
	}
	return fmt.Sprintf("[gray]%s[-] [%s]%s[-] %s",
		ev.Record.Timestamp.Format("15:04:05"), color, ev.Title(), tview.Escape(ev.Message()))
}

// levelTag 返回级别对应的tview颜色标签
func levelTag(level indicator.Level) string {
	c := level.Color()
	return fmt.Sprintf("[#%02x%02x%02x]", c.R, c.G, c.B)
}

// levelColor 返回级别对应的表格单元颜色
func levelColor(level indicator.Level) tcell.Color {
	c := level.Color()
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// hexColor 把像素颜色转为tview颜色名，透明像素使用默认色
func hexColor(c color.Color) string {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return "-"
	}
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

// badgeText 用半格字符把徽标图像画成终端文本
// 每个字符单元对应上下两个像素
func badgeText(img image.Image) string {
	bounds := img.Bounds()
	var sb strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := "-"
			if y+1 < bounds.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			switch {
			case top == "-" && bottom == "-":
				sb.WriteString("[-:-] ")
			case top == "-":
				fmt.Fprintf(&sb, "[%s:-]%c", bottom, lowerHalf)
			default:
				fmt.Fprintf(&sb, "[%s:%s]%c", top, bottom, upperHalf)
			}
		}
		sb.WriteString("[-:-]\n")
	}
	return sb.String()
}

// indicatorText 生成徽标面板的内容
func indicatorText(update indicator.Update, rec core.MetricsRecord) string {
	status := tview.Escape(update.StatusLine)
	switch {
	case update.Image != nil:
		return badgeText(update.Image) + status
	case update.UseFallbackOnly:
		return fmt.Sprintf("%s[::b]%s[-:-:-]\n%s", levelTag(indicator.LatencyLevel(rec)), update.Text, status)
	default:
		return status
	}
}
