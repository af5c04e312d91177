// Package tui 数据处理模块
package tui

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
)

// sessionStats 本次运行的延迟统计
type sessionStats struct {
	PacketsSent int
	PacketsRecv int
	MinLatency  float64
	MaxLatency  float64

	// Welford在线算法累加器
	WelfordCount int
	WelfordMean  float64
	WelfordM2    float64
}

func newSessionStats() sessionStats {
	return sessionStats{
		MinLatency: math.Inf(1),
		MaxLatency: math.Inf(-1),
	}
}

// handleRecord 处理一条监控记录：更新统计、评估告警、生成徽标
func (t *TUI) handleRecord(rec core.MetricsRecord) {
	var events []core.AlertEvent
	if t.engine != nil {
		events = t.engine.Evaluate(rec)
	}

	t.mu.Lock()
	t.updateStats(rec)
	t.last = rec
	t.hasLast = true
	for _, ev := range events {
		t.appendAlertLocked(ev)
	}
	enabled := t.indicatorEnabled
	t.mu.Unlock()

	for _, ev := range events {
		t.notify(ev)
	}

	t.rebuildIndicator(rec, enabled)
}

// rebuildIndicator 根据记录重新计算徽标显示
func (t *TUI) rebuildIndicator(rec core.MetricsRecord, enabled bool) {
	if t.renderer == nil {
		return
	}
	update := t.renderer.BuildUpdate(rec, enabled, t.renderer.Supported())

	t.mu.Lock()
	t.update = update
	t.mu.Unlock()
}

// toggleIndicator 切换徽标显示开关，返回切换后的状态
func (t *TUI) toggleIndicator() bool {
	t.mu.Lock()
	t.indicatorEnabled = !t.indicatorEnabled
	enabled := t.indicatorEnabled
	rec, hasLast := t.last, t.hasLast
	t.mu.Unlock()

	if hasLast {
		t.rebuildIndicator(rec, enabled)
	} else if !enabled {
		t.mu.Lock()
		t.update = indicator.Update{StatusLine: indicator.NeutralStatusLine}
		t.mu.Unlock()
	}
	return enabled
}

// updateStats 更新会话统计，调用方持有写锁
func (t *TUI) updateStats(rec core.MetricsRecord) {
	stats := &t.stats
	stats.PacketsSent++
	if !rec.HasLatency() {
		return
	}

	latency := float64(rec.PingLatencyMs)
	stats.PacketsRecv++
	t.updateWelfordAccumulator(stats, latency)

	// 更新最大最小值
	if latency < stats.MinLatency {
		stats.MinLatency = latency
	}
	if latency > stats.MaxLatency {
		stats.MaxLatency = latency
	}
}

// updateWelfordAccumulator 使用Welford在线算法更新统计累加器
func (t *TUI) updateWelfordAccumulator(stats *sessionStats, newValue float64) {
	stats.WelfordCount++
	delta := newValue - stats.WelfordMean
	stats.WelfordMean += delta / float64(stats.WelfordCount)
	delta2 := newValue - stats.WelfordMean
	stats.WelfordM2 += delta * delta2
}

// appendAlertLocked 写入一条告警日志，超出上限时丢弃最旧的
func (t *TUI) appendAlertLocked(ev core.AlertEvent) {
	t.alerts = append(t.alerts, formatAlertLine(ev))
	if over := len(t.alerts) - t.tuiConfig.AlertLogSize; over > 0 {
		t.alerts = t.alerts[over:]
	}
}

// summaryRow 统计表中的一行
type summaryRow struct {
	Key   string
	Value string
	Color tcell.Color
}

// summaryRows 生成统计表内容，调用方持有读锁
func (t *TUI) summaryRows() []summaryRow {
	stats := t.stats

	// 会话丢包率
	var lossRate float64
	if stats.PacketsSent > 0 {
		lossRate = float64(stats.PacketsSent-stats.PacketsRecv) / float64(stats.PacketsSent) * 100
	}

	rows := []summaryRow{
		{"发送/接收", fmt.Sprintf("%d/%d", stats.PacketsSent, stats.PacketsRecv), tcell.ColorWhite},
		{"会话丢包率", fmt.Sprintf("%.1f%%", lossRate), tcell.ColorWhite},
	}

	avg, minL, maxL, stddev := "N/A", "N/A", "N/A", "N/A"
	if stats.PacketsRecv > 0 {
		avg = formatLatency(stats.WelfordMean)
		minL = formatLatency(stats.MinLatency)
		maxL = formatLatency(stats.MaxLatency)

		// 标准差
		if stats.WelfordCount > 1 {
			variance := stats.WelfordM2 / float64(stats.WelfordCount-1)
			stddev = formatLatency(math.Sqrt(variance))
		}
	}
	rows = append(rows,
		summaryRow{"平均延迟", avg, tcell.ColorWhite},
		summaryRow{"最小延迟", minL, tcell.ColorWhite},
		summaryRow{"最大延迟", maxL, tcell.ColorWhite},
		summaryRow{"标准差", stddev, tcell.ColorWhite},
	)

	window, down, up := "N/A", "N/A", "N/A"
	windowColor := tcell.ColorWhite
	if t.hasLast {
		window = indicator.FormatLossText(t.last.PacketLossPercent) + "%"
		windowColor = levelColor(indicator.LossLevel(t.last.PacketLossPercent))
		down = indicator.FormatRate(t.last.DownloadBytesPerSec)
		up = indicator.FormatRate(t.last.UploadBytesPerSec)
	}
	rows = append(rows,
		summaryRow{"窗口丢包率", window, windowColor},
		summaryRow{"下行", down, tcell.ColorWhite},
		summaryRow{"上行", up, tcell.ColorWhite},
	)

	return rows
}
