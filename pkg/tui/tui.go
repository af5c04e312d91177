// Package tui 提供终端仪表盘
// 订阅监控记录，驱动告警引擎与徽标渲染器，并展示会话统计
package tui

import (
	"context"
	"sync"
	"time"

	"github.com/rivo/tview"

	"github.com/Kevin-Rudy/gonetwatch/pkg/alert"
	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("tui")

// TUI 主界面结构
type TUI struct {
	app      *tview.Application
	header   *tview.TextView
	badge    *tview.TextView
	table    *tview.Table
	alertLog *tview.TextView
	flex     *tview.Flex

	records  <-chan core.MetricsRecord
	engine   *alert.Engine
	renderer *indicator.Renderer
	notifier alert.Notifier

	// 配置信息
	tuiConfig *Config

	// 数据存储
	mu               sync.RWMutex
	stats            sessionStats
	last             core.MetricsRecord
	hasLast          bool
	update           indicator.Update
	alerts           []string
	indicatorEnabled bool
	colorsChecked    bool
	lastToggle       time.Time

	// 控制
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once

	// 测试模式标志
	testMode bool

	startTime time.Time
}

// NewTUI 创建新的TUI实例
// notifier可以为nil，此时告警只写入界面日志
func NewTUI(records <-chan core.MetricsRecord, engine *alert.Engine, renderer *indicator.Renderer, tuiConfig *Config, notifier alert.Notifier) *TUI {
	tui := newTUI(records, engine, renderer, tuiConfig, notifier)
	tui.app = tview.NewApplication()
	tui.header = tview.NewTextView()
	tui.badge = tview.NewTextView()
	tui.table = tview.NewTable()
	tui.alertLog = tview.NewTextView()

	tui.setupUI()
	tui.setupKeyBindings()

	return tui
}

// NewTUIForTest 创建用于测试的TUI实例（不初始化图形组件）
func NewTUIForTest(records <-chan core.MetricsRecord, engine *alert.Engine, renderer *indicator.Renderer, tuiConfig *Config, notifier alert.Notifier) *TUI {
	tui := newTUI(records, engine, renderer, tuiConfig, notifier)
	tui.testMode = true
	return tui
}

func newTUI(records <-chan core.MetricsRecord, engine *alert.Engine, renderer *indicator.Renderer, tuiConfig *Config, notifier alert.Notifier) *TUI {
	if tuiConfig == nil {
		tuiConfig = DefaultConfig()
	}
	return &TUI{
		records:          records,
		engine:           engine,
		renderer:         renderer,
		notifier:         notifier,
		tuiConfig:        tuiConfig,
		stats:            newSessionStats(),
		update:           indicator.Update{StatusLine: indicator.NeutralStatusLine},
		indicatorEnabled: tuiConfig.IndicatorEnabled,
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
		startTime:        time.Now(),
	}
}

// Run 启动TUI界面，直到用户退出或调用Stop
func (t *TUI) Run() error {
	// 启动数据处理goroutine
	go t.processData()

	// 运行应用
	err := t.app.Run()

	// processData 可能仍在等待记录
	t.signalStop()
	<-t.doneChan

	return err
}

// Stop 停止TUI界面，可重复调用
func (t *TUI) Stop() {
	t.signalStop()

	if t.app != nil {
		t.app.Stop()
	}
}

// Done 返回界面退出时关闭的通道
func (t *TUI) Done() <-chan struct{} {
	return t.stopChan
}

func (t *TUI) signalStop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
	})
}

// processData 处理来自监控器的记录
func (t *TUI) processData() {
	defer close(t.doneChan)

	uiTicker := time.NewTicker(t.tuiConfig.RefreshInterval)
	defer uiTicker.Stop()

	// 初始UI刷新
	t.handleUIRefresh()

	for {
		select {
		case rec, ok := <-t.records:
			if !ok {
				return
			}
			t.handleRecord(rec)
			t.handleUIRefresh()

		case <-uiTicker.C:
			t.handleUIRefresh()

		case <-t.stopChan:
			return
		}
	}
}

// handleUIRefresh 处理UI刷新
func (t *TUI) handleUIRefresh() {
	if !t.testMode && t.app != nil {
		t.safeUIUpdate(t.redraw)
	}
}

// notify 把告警事件转发给外部通知器
func (t *TUI) notify(ev core.AlertEvent) {
	if t.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.notifier.Notify(ctx, ev); err != nil {
		logger.Warn("发送告警通知失败", "kind", ev.Kind.String(), "err", err)
	}
}
