package tui

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/alert"
	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
)

// recordingNotifier 记录收到的告警事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []core.AlertEvent
}

func (r *recordingNotifier) Notify(ctx context.Context, ev core.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingNotifier) kinds() []core.AlertKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kinds []core.AlertKind
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func okRecord(ms int64) core.MetricsRecord {
	return core.MetricsRecord{
		Timestamp:     time.Now(),
		Target:        "1.1.1.1",
		PingSuccess:   true,
		PingLatencyMs: ms,
	}
}

// newTestTUI 创建带有告警引擎和渲染器的测试实例
func newTestTUI(t *testing.T, mock *clock.Mock, config *Config, notifier alert.Notifier) *TUI {
	t.Helper()

	alertConfig := alert.DefaultConfig()
	alertConfig.Cooldown = 0
	engine, err := alert.NewEngine(alertConfig, mock)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	renderer, err := indicator.NewRendererWithOptions(indicator.WithClock(mock))
	if err != nil {
		t.Fatalf("NewRendererWithOptions failed: %v", err)
	}

	return NewTUIForTest(nil, engine, renderer, config, notifier)
}

// TestNewTUI 测试TUI实例创建
func TestNewTUI(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	if !tui.testMode {
		t.Error("TUI should be in test mode")
	}

	if tui.tuiConfig.AlertLogSize != DefaultConfig().AlertLogSize {
		t.Errorf("Expected AlertLogSize=%d, got %d", DefaultConfig().AlertLogSize, tui.tuiConfig.AlertLogSize)
	}

	if !tui.indicatorEnabled {
		t.Error("Indicator should be enabled by default")
	}

	if tui.update.StatusLine != indicator.NeutralStatusLine {
		t.Errorf("Expected neutral status line, got %q", tui.update.StatusLine)
	}
}

// TestTUIUpdateStats 测试统计数据更新功能
func TestTUIUpdateStats(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	tui.handleRecord(okRecord(10))
	tui.handleRecord(okRecord(20))
	tui.handleRecord(core.FailureRecord(time.Now(), "1.1.1.1"))

	stats := tui.stats
	if stats.PacketsSent != 3 {
		t.Errorf("Expected PacketsSent=3, got %d", stats.PacketsSent)
	}
	if stats.PacketsRecv != 2 {
		t.Errorf("Expected PacketsRecv=2, got %d", stats.PacketsRecv)
	}
	if stats.MinLatency != 10 || stats.MaxLatency != 20 {
		t.Errorf("Expected min=10 max=20, got min=%f max=%f", stats.MinLatency, stats.MaxLatency)
	}
	if math.Abs(stats.WelfordMean-15) > 1e-9 {
		t.Errorf("Expected mean=15, got %f", stats.WelfordMean)
	}
}

// TestWelfordAlgorithm 测试Welford算法的准确性
func TestWelfordAlgorithm(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	values := []float64{10, 20, 30, 40, 50}
	stats := newSessionStats()
	for _, v := range values {
		tui.updateWelfordAccumulator(&stats, v)
	}

	if math.Abs(stats.WelfordMean-30) > 1e-9 {
		t.Errorf("Expected mean=30, got %f", stats.WelfordMean)
	}

	variance := stats.WelfordM2 / float64(stats.WelfordCount-1)
	if math.Abs(variance-250) > 1e-9 {
		t.Errorf("Expected variance=250, got %f", variance)
	}
}

// TestSummaryRows 测试统计表内容
func TestSummaryRows(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	rows := tui.summaryRows()
	values := make(map[string]string)
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	if values["平均延迟"] != "N/A" || values["下行"] != "N/A" {
		t.Errorf("Expected N/A before data, got %v", values)
	}

	rec := okRecord(20)
	rec.PacketLossPercent = 5
	rec.DownloadBytesPerSec = 2048
	tui.handleRecord(rec)
	tui.handleRecord(okRecord(40))

	values = make(map[string]string)
	for _, row := range tui.summaryRows() {
		values[row.Key] = row.Value
	}

	expected := map[string]string{
		"发送/接收": "2/2",
		"会话丢包率": "0.0%",
		"平均延迟":  "30.0ms",
		"最小延迟":  "20.0ms",
		"最大延迟":  "40.0ms",
		"窗口丢包率": "0%",
		"下行":    "0.00 B/s",
	}
	for key, want := range expected {
		if values[key] != want {
			t.Errorf("%s: expected %q, got %q", key, want, values[key])
		}
	}
	if values["标准差"] == "N/A" {
		t.Error("Expected stddev after two samples")
	}
}

// TestWindowLossRowColored 测试窗口丢包率按级别着色
func TestWindowLossRowColored(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	cases := []struct {
		loss  float64
		value string
		level indicator.Level
	}{
		{0, "0%", indicator.LevelGood},
		{2.5, "2.5%", indicator.LevelFair},
		{7, "7.0%", indicator.LevelDegraded},
		{15, "15%", indicator.LevelBad},
		{100, "99+%", indicator.LevelBad},
	}

	for _, tc := range cases {
		rec := okRecord(20)
		rec.PacketLossPercent = tc.loss
		tui.handleRecord(rec)

		var row summaryRow
		for _, r := range tui.summaryRows() {
			if r.Key == "窗口丢包率" {
				row = r
			}
		}
		if row.Value != tc.value {
			t.Errorf("loss %.1f: expected %q, got %q", tc.loss, tc.value, row.Value)
		}
		if row.Color != levelColor(tc.level) {
			t.Errorf("loss %.1f: expected color %v, got %v", tc.loss, levelColor(tc.level), row.Color)
		}

		header := tui.headerText(time.Second)
		want := "丢包: " + levelTag(tc.level) + tc.value
		if !strings.Contains(header, want) {
			t.Errorf("loss %.1f: expected header to contain %q, got %q", tc.loss, want, header)
		}
	}
}

// TestHandleRecordRaisesAlerts 测试告警事件写入日志并转发
func TestHandleRecordRaisesAlerts(t *testing.T) {
	mock := clock.NewMock()
	notifier := &recordingNotifier{}
	tui := newTestTUI(t, mock, nil, notifier)

	tui.handleRecord(okRecord(20))
	tui.handleRecord(okRecord(500))
	mock.Add(time.Second)
	tui.handleRecord(okRecord(30))

	kinds := notifier.kinds()
	if len(kinds) != 2 || kinds[0] != core.LatencyPoor || kinds[1] != core.LatencyRestored {
		t.Fatalf("Expected [LatencyPoor LatencyRestored], got %v", kinds)
	}

	if len(tui.alerts) != 2 {
		t.Fatalf("Expected 2 alert log lines, got %d", len(tui.alerts))
	}
	if !strings.Contains(tui.alerts[0], "Connection Issue") || !strings.Contains(tui.alerts[0], "500ms") {
		t.Errorf("Unexpected alert line: %q", tui.alerts[0])
	}
	if !strings.Contains(tui.alerts[1], "Connection Restored") {
		t.Errorf("Unexpected alert line: %q", tui.alerts[1])
	}
}

// TestAlertLogBounded 测试告警日志条数上限
func TestAlertLogBounded(t *testing.T) {
	mock := clock.NewMock()
	tui := newTestTUI(t, mock, NewConfigWithOptions(WithAlertLogSize(2)), nil)

	for i := 0; i < 3; i++ {
		tui.handleRecord(core.FailureRecord(mock.Now(), "1.1.1.1"))
		mock.Add(time.Second)
		tui.handleRecord(okRecord(10))
		mock.Add(time.Second)
	}

	if len(tui.alerts) != 2 {
		t.Fatalf("Expected 2 alert log lines, got %d", len(tui.alerts))
	}
	if !strings.Contains(tui.alerts[1], "Connection Restored") {
		t.Errorf("Expected newest line to be a restore, got %q", tui.alerts[1])
	}
}

// TestIndicatorToggle 测试徽标开关
func TestIndicatorToggle(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	tui.handleRecord(okRecord(42))
	if tui.update.Image == nil {
		t.Fatal("Expected badge image when indicator is enabled")
	}

	if enabled := tui.toggleIndicator(); enabled {
		t.Fatal("Expected indicator to be disabled after toggle")
	}
	if tui.update.Image != nil || tui.update.StatusLine != indicator.NeutralStatusLine {
		t.Errorf("Expected neutral update, got %+v", tui.update)
	}

	if enabled := tui.toggleIndicator(); !enabled {
		t.Fatal("Expected indicator to be enabled after second toggle")
	}
	if tui.update.Image == nil || tui.update.Text != "42" {
		t.Errorf("Expected badge for 42 after re-enabling, got %+v", tui.update)
	}
}

// TestToggleBeforeData 测试没有数据时切换
func TestToggleBeforeData(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), NewConfigWithOptions(WithIndicator(false)), nil)

	if !tui.toggleIndicator() {
		t.Error("Expected indicator to be enabled")
	}
	if tui.update.StatusLine != indicator.NeutralStatusLine {
		t.Errorf("Expected neutral status line, got %q", tui.update.StatusLine)
	}
}

// TestShouldHandleToggle 测试切换去抖
func TestShouldHandleToggle(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)
	now := time.Now()

	if !tui.shouldHandleToggle(now) {
		t.Error("First toggle should be handled")
	}
	if tui.shouldHandleToggle(now.Add(toggleDebounce / 2)) {
		t.Error("Toggle inside debounce window should be ignored")
	}
	if !tui.shouldHandleToggle(now.Add(2 * toggleDebounce)) {
		t.Error("Toggle after debounce window should be handled")
	}
}

// TestCheckColorsDowngrades 测试颜色不足时降级
func TestCheckColorsDowngrades(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)
	tui.handleRecord(okRecord(42))

	tui.checkColors(16)

	if tui.renderer.Supported() {
		t.Fatal("Renderer should be downgraded on a 16 color terminal")
	}
	if !tui.update.UseFallbackOnly || tui.update.Image != nil {
		t.Errorf("Expected fallback update, got %+v", tui.update)
	}
	if mode := tui.renderer.Mode(true); mode != indicator.ModeFallback {
		t.Errorf("Expected fallback mode, got %s", mode)
	}
}

// TestCheckColorsOnlyOnce 测试颜色检查只执行一次
func TestCheckColorsOnlyOnce(t *testing.T) {
	tui := newTestTUI(t, clock.NewMock(), nil, nil)

	tui.checkColors(256)
	tui.checkColors(8)

	if !tui.renderer.Supported() {
		t.Error("Renderer should stay supported after the first successful check")
	}
}

// TestBadgeText 测试半格字符绘制
func TestBadgeText(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	img.Set(0, 0, red)
	img.Set(0, 1, blue)
	img.Set(1, 1, blue)
	img.Set(0, 2, red)

	text := badgeText(img)
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines for 3 pixel rows, got %d", len(lines))
	}

	if !strings.HasPrefix(lines[0], "[#ff0000:#0000ff]▀") {
		t.Errorf("Unexpected first cell: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[#0000ff:-]▄") {
		t.Errorf("Expected lower half block for transparent top pixel: %q", lines[0])
	}
	if !strings.Contains(lines[1], "[#ff0000:-]▀") || !strings.Contains(lines[1], "[-:-] ") {
		t.Errorf("Unexpected last line: %q", lines[1])
	}
}

// TestIndicatorText 测试徽标面板内容
func TestIndicatorText(t *testing.T) {
	rec := okRecord(42)
	status := indicator.FormatStatusLine(rec)

	fallback := indicatorText(indicator.Update{StatusLine: status, UseFallbackOnly: true, Text: "42"}, rec)
	if !strings.Contains(fallback, "42") || !strings.Contains(fallback, status) {
		t.Errorf("Fallback text should contain badge text and status, got %q", fallback)
	}

	disabled := indicatorText(indicator.Update{StatusLine: indicator.NeutralStatusLine}, rec)
	if disabled != indicator.NeutralStatusLine {
		t.Errorf("Expected neutral status line, got %q", disabled)
	}

	img := image.NewRGBA(image.Rect(0, 0, indicator.BadgeSize, indicator.BadgeSize))
	overlay := indicatorText(indicator.Update{Image: img, StatusLine: status}, rec)
	if got := strings.Count(overlay, "\n"); got != indicator.BadgeSize/2 {
		t.Errorf("Expected %d badge lines, got %d", indicator.BadgeSize/2, got)
	}
}

// TestFormatLatency 测试延迟格式化
func TestFormatLatency(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.5, "500µs"},
		{15.34, "15.3ms"},
		{1500, "1.50s"},
		{math.NaN(), "N/A"},
		{math.Inf(1), "N/A"},
	}
	for _, tc := range cases {
		if got := formatLatency(tc.in); got != tc.want {
			t.Errorf("formatLatency(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestFormatUptime 测试运行时长格式化
func TestFormatUptime(t *testing.T) {
	if got := formatUptime(3*time.Hour + 4*time.Minute + 5*time.Second + 600*time.Millisecond); got != "03:04:05" {
		t.Errorf("Expected 03:04:05, got %s", got)
	}
}

// TestProcessDataStopsWhenClosed 测试记录通道关闭后处理循环退出
func TestProcessDataStopsWhenClosed(t *testing.T) {
	records := make(chan core.MetricsRecord, 1)
	tui := NewTUIForTest(records, nil, nil, nil, nil)

	go tui.processData()
	records <- okRecord(10)
	close(records)

	select {
	case <-tui.doneChan:
	case <-time.After(time.Second):
		t.Fatal("processData did not exit after the channel was closed")
	}

	if tui.stats.PacketsSent != 1 {
		t.Errorf("Expected 1 processed record, got %d", tui.stats.PacketsSent)
	}
}

// TestTUIStop 测试TUI停止功能
func TestTUIStop(t *testing.T) {
	tui := NewTUIForTest(make(chan core.MetricsRecord), nil, nil, nil, nil)

	go tui.processData()
	tui.Stop()
	tui.Stop()

	select {
	case <-tui.doneChan:
	case <-time.After(time.Second):
		t.Fatal("processData did not exit after Stop")
	}

	select {
	case <-tui.Done():
	default:
		t.Error("Done channel should be closed after Stop")
	}
}

// TestConfigValidate 测试配置验证
func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	invalid := []*Config{
		NewConfigWithOptions(WithRefreshInterval(0)),
		NewConfigWithOptions(WithRefreshInterval(time.Millisecond)),
		NewConfigWithOptions(WithAlertLogSize(0)),
		NewConfigWithOptions(WithAlertLogSize(5000)),
		NewConfigWithOptions(WithMinColors(-1)),
	}
	for i, c := range invalid {
		if err := c.Validate(); err == nil {
			t.Errorf("Config %d should be invalid", i)
		}
	}
}

func BenchmarkUpdateStats(b *testing.B) {
	tui := NewTUIForTest(nil, nil, nil, nil, nil)
	rec := okRecord(15)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tui.handleRecord(rec)
	}
}
