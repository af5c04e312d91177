// Package tui 交互控制模块
package tui

import (
	"time"

	"github.com/gdamore/tcell/v2"
)

// 切换徽标的最小间隔，避免按住按键时反复重绘
const toggleDebounce = 200 * time.Millisecond

// setupKeyBindings 设置键盘绑定
func (t *TUI) setupKeyBindings() {
	t.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			t.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q', 'Q':
				t.Stop()
				return nil
			case 'i', 'I':
				if t.shouldHandleToggle(time.Now()) {
					t.handleToggle()
				}
				return nil
			}
		}
		return event
	})
}

// shouldHandleToggle 判断是否应该处理切换事件
func (t *TUI) shouldHandleToggle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.lastToggle.IsZero() && now.Sub(t.lastToggle) < toggleDebounce {
		return false
	}
	t.lastToggle = now
	return true
}

// handleToggle 切换徽标并刷新界面
func (t *TUI) handleToggle() {
	enabled := t.toggleIndicator()
	logger.Info("切换徽标显示", "enabled", enabled)

	if !t.testMode {
		// 已在UI goroutine中，直接重绘
		t.redraw()
	}
}
