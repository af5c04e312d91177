// Package tui 布局管理模块
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
)

// 徽标面板宽度：徽标本身加边框
const badgePanelWidth = indicator.BadgeSize + 4

// setupUI 设置用户界面布局
func (t *TUI) setupUI() {
	t.header.SetDynamicColors(true)
	t.header.SetText(fmt.Sprintf("[green]%s 已启动[white] - [yellow]等待第一次采样...[white]", indicator.AppName))

	t.badge.SetDynamicColors(true)
	t.badge.SetWordWrap(false)
	t.badge.SetBorder(true)
	t.badge.SetTitle(" 徽标 ")
	t.badge.SetText(indicator.NeutralStatusLine)

	t.table.SetBorder(true)
	t.table.SetTitle(" 会话统计 ")

	t.alertLog.SetDynamicColors(true)
	t.alertLog.SetBorder(true)
	t.alertLog.SetTitle(" 告警 ")
	t.alertLog.SetChangedFunc(func() {
		t.alertLog.ScrollToEnd()
	})

	footer := tview.NewTextView()
	footer.SetDynamicColors(true)
	footer.SetText("[yellow]q[white] 退出  [yellow]i[white] 切换徽标")

	middle := tview.NewFlex()
	middle.SetDirection(tview.FlexColumn)
	middle.AddItem(t.badge, badgePanelWidth, 0, false)
	middle.AddItem(t.table, 0, 1, false)

	// 创建主垂直布局
	t.flex = tview.NewFlex()
	t.flex.SetDirection(tview.FlexRow)
	t.flex.AddItem(t.header, 1, 0, false)
	t.flex.AddItem(middle, indicator.BadgeSize/2+3, 0, false)
	t.flex.AddItem(t.alertLog, 0, 1, false)
	t.flex.AddItem(footer, 1, 0, false)

	t.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		t.checkColors(screen.Colors())
		return false
	})
	t.app.SetRoot(t.flex, true)
}

// checkColors 首次绘制时检查终端颜色能力，不足时降级为文本状态
func (t *TUI) checkColors(colors int) {
	t.mu.Lock()
	if t.colorsChecked {
		t.mu.Unlock()
		return
	}
	t.colorsChecked = true
	rec, hasLast, enabled := t.last, t.hasLast, t.indicatorEnabled
	t.mu.Unlock()

	if t.renderer == nil || colors >= t.tuiConfig.MinColors {
		return
	}
	t.renderer.ReportUnsupported(fmt.Errorf("终端仅支持%d色，需要%d色", colors, t.tuiConfig.MinColors))
	if hasLast {
		t.rebuildIndicator(rec, enabled)
	}
}

// redraw 用当前数据刷新所有面板，在UI goroutine中执行
func (t *TUI) redraw() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	t.header.SetText(t.headerText(time.Since(t.startTime)))
	t.badge.SetText(t.drawIndicator(t.update, t.last))

	t.table.Clear()
	for i, row := range t.summaryRows() {
		t.table.SetCell(i, 0, tview.NewTableCell(row.Key).SetTextColor(tcell.ColorYellow))
		t.table.SetCell(i, 1, tview.NewTableCell(row.Value).SetTextColor(row.Color).SetAlign(tview.AlignRight))
	}

	if len(t.alerts) == 0 {
		t.alertLog.SetText("[gray]暂无告警[-]")
	} else {
		t.alertLog.SetText(strings.Join(t.alerts, "\n"))
	}
}

// headerText 生成头部信息，调用方持有读锁
func (t *TUI) headerText(uptime time.Duration) string {
	target := "-"
	state := "[yellow]等待采样[white]"
	loss := "-"
	if t.hasLast {
		target = t.last.Target
		loss = fmt.Sprintf("%s%s%%[white]", levelTag(indicator.LossLevel(t.last.PacketLossPercent)),
			indicator.FormatLossText(t.last.PacketLossPercent))
		if t.last.HasLatency() {
			state = fmt.Sprintf("%s%s[white]", levelTag(indicator.LatencyLevel(t.last)), formatLatency(float64(t.last.PingLatencyMs)))
		} else {
			state = "[red]不可达[white]"
		}
	}

	mode := indicator.ModeDisabled
	if t.renderer != nil {
		mode = t.renderer.Mode(t.indicatorEnabled)
	}

	return fmt.Sprintf("[green]%s[white]  目标: %s  状态: %s  丢包: %s  运行: %s  徽标: %s",
		indicator.AppName, tview.Escape(target), state, loss, formatUptime(uptime), mode)
}

// drawIndicator 生成徽标面板内容，绘制panic时降级为文本状态
func (t *TUI) drawIndicator(update indicator.Update, rec core.MetricsRecord) (text string) {
	defer func() {
		if p := recover(); p != nil {
			if t.renderer != nil {
				t.renderer.ReportUnsupported(fmt.Errorf("终端绘制徽标panic: %v", p))
			}
			text = tview.Escape(update.StatusLine)
		}
	}()
	return indicatorText(update, rec)
}

// safeUIUpdate 安全地执行UI更新操作
func (t *TUI) safeUIUpdate(updateFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			// 如果应用已经停止，忽略panic
		}
	}()
	t.app.QueueUpdateDraw(updateFunc)
}
