// Package monitor 周期性采样网络路径并发布指标记录
//
// 每个采样tick产生恰好一条 core.MetricsRecord：采样结果、滑动窗口丢包率
// 以及吞吐量跟踪器最近一次的速率。记录通过 Broadcaster 分发给所有订阅者。
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
	"github.com/Kevin-Rudy/gonetwatch/pkg/loss"
	"github.com/Kevin-Rudy/gonetwatch/pkg/traffic"
)

var logger = log.Logger("monitor")

var (
	// ErrAlreadyRunning 监控器已在运行
	ErrAlreadyRunning = errors.New("监控器已在运行")
	// ErrInvalidTarget 目标地址为空
	ErrInvalidTarget = errors.New("目标地址不能为空")
	// ErrInvalidInterval 采样周期非法
	ErrInvalidInterval = errors.New("采样周期必须大于0")
)

// State 监控器运行状态
type State int32

const (
	Stopped State = iota
	Running
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Monitor 网络健康监控器
type Monitor struct {
	sampler core.Sampler
	config  *Config
	clock   clock.Clock
	tracker *traffic.Tracker
	bus     *Broadcaster

	target  atomic.Pointer[string]
	skipped atomic.Uint64

	// runMu 串行化 Start/Stop/UpdateInterval，tick路径从不获取它
	runMu sync.Mutex

	mu        sync.Mutex
	state     State
	interval  time.Duration
	session   uint64
	estimator *loss.Estimator
	cancel    context.CancelFunc
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New 创建监控器
func New(sampler core.Sampler, config *Config) (*Monitor, error) {
	if sampler == nil {
		return nil, errors.New("采样器不能为空")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Monitor{
		sampler:   sampler,
		config:    config,
		clock:     config.Clock,
		tracker:   traffic.NewTracker(config.Enumerator, config.Clock),
		bus:       NewBroadcaster(),
		interval:  DefaultInterval,
		estimator: loss.NewEstimator(config.LossWindowSize),
	}
	empty := ""
	m.target.Store(&empty)
	return m, nil
}

// Start 以给定目标和周期开始监控，第一次采样立即进行
func (m *Monitor) Start(target string, interval time.Duration) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrInvalidTarget
	}
	if interval <= 0 {
		return ErrInvalidInterval
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.State() == Running {
		return ErrAlreadyRunning
	}
	m.target.Store(&target)
	m.startLocked(interval)
	return nil
}

// startLocked 在持有runMu时启动tick循环
func (m *Monitor) startLocked(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())

	if err := m.tracker.Start(ctx, m.config.ThroughputInterval); err != nil {
		logger.Warn("吞吐量跟踪启动失败", "err", err)
	}

	m.mu.Lock()
	m.session++
	session := m.session
	m.state = Running
	m.interval = interval
	m.cancel = cancel
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	stop, done := m.stopCh, m.doneCh
	m.mu.Unlock()

	ticker := m.clock.Ticker(interval)
	go m.loop(ctx, session, ticker, stop, done)

	logger.Info("开始监控", "target", m.Target(), "interval", interval)
}

// loop 驱动tick，每个tick只负责派发，采样在独立goroutine中进行
func (m *Monitor) loop(ctx context.Context, session uint64, ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	inflight := new(atomic.Bool)
	m.dispatch(ctx, session, inflight)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.dispatch(ctx, session, inflight)
		}
	}
}

// dispatch 派发一次采样；上一次采样未完成时跳过本次tick
func (m *Monitor) dispatch(ctx context.Context, session uint64, inflight *atomic.Bool) {
	if !inflight.CompareAndSwap(false, true) {
		n := m.skipped.Add(1)
		logger.Debug("上一次采样未完成，跳过本次tick", "skipped", n)
		return
	}

	ts := m.clock.Now()
	target := *m.target.Load()
	go m.runSample(ctx, session, inflight, ts, target)
}

// runSample 执行采样并在会话仍有效时发布记录
func (m *Monitor) runSample(ctx context.Context, session uint64, inflight *atomic.Bool, ts time.Time, target string) {
	ok, rtt, err := m.sample(ctx, target)
	if err != nil {
		logger.Debug("采样失败", "target", target, "err", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != session || m.state != Running {
		inflight.Store(false)
		logger.Debug("丢弃过期的采样结果", "target", target)
		return
	}

	m.estimator.Record(ok)
	rec := m.assemble(ts, target, ok, rtt, m.estimator.CurrentLossPercent())

	inflight.Store(false)
	m.bus.Publish(rec)
}

// sample 调用采样器并将panic和异常值转换为失败结果
func (m *Monitor) sample(ctx context.Context, target string) (ok bool, rtt int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, rtt, err = false, core.NoLatency, fmt.Errorf("采样器panic: %v", r)
		}
	}()

	ok, rtt, err = m.sampler.Sample(ctx, target, m.config.SampleTimeout)
	if !ok {
		return false, core.NoLatency, err
	}
	if rtt < 0 {
		rtt = 0
	}
	return true, rtt, err
}

// assemble 组装一条指标记录，吞吐量取跟踪器最近一次速率并截断负值
func (m *Monitor) assemble(ts time.Time, target string, ok bool, rtt int64, lossPercent float64) core.MetricsRecord {
	rates := m.tracker.Latest().Clamped()
	return core.MetricsRecord{
		Timestamp:           ts,
		Target:              target,
		PingSuccess:         ok,
		PingLatencyMs:       rtt,
		DownloadBytesPerSec: rates.DownloadBytesPerSec,
		UploadBytesPerSec:   rates.UploadBytesPerSec,
		PacketLossPercent:   lossPercent,
	}
}

// Stop 停止监控，可重复调用
// 等待tick循环退出，不等待进行中的采样；其结果到达后被丢弃
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return
	}
	m.state = Stopped
	m.session++
	cancel, stop, done := m.cancel, m.stopCh, m.doneCh
	m.cancel, m.stopCh, m.doneCh = nil, nil, nil
	m.mu.Unlock()

	close(stop)
	<-done
	cancel()
	m.tracker.Stop()

	logger.Info("停止监控")
}

// UpdateInterval 修改采样周期；运行中则以新周期重启
func (m *Monitor) UpdateInterval(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.State() != Running {
		m.mu.Lock()
		m.interval = interval
		m.mu.Unlock()
		return nil
	}

	m.stopLocked()
	m.startLocked(interval)
	return nil
}

// UpdateTarget 修改采样目标，不重启；空白目标被忽略并返回false
func (m *Monitor) UpdateTarget(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	m.target.Store(&target)
	logger.Info("更新采样目标", "target", target)
	return true
}

// Probe 立即执行一次采样，不进入丢包窗口也不发布
func (m *Monitor) Probe(ctx context.Context) core.MetricsRecord {
	target := m.Target()
	ts := m.clock.Now()
	if target == "" {
		return core.FailureRecord(ts, target)
	}

	ok, rtt, err := m.sample(ctx, target)
	if err != nil {
		logger.Debug("探测失败", "target", target, "err", err)
	}

	m.mu.Lock()
	lossPercent := m.estimator.CurrentLossPercent()
	m.mu.Unlock()

	return m.assemble(ts, target, ok, rtt, lossPercent)
}

// Subscribe 订阅指标记录，buffer<0时使用配置的默认缓冲
func (m *Monitor) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = m.config.SubscriberBuffer
	}
	return m.bus.Subscribe(buffer)
}

// State 返回运行状态
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Target 返回当前采样目标
func (m *Monitor) Target() string {
	return *m.target.Load()
}

// Interval 返回当前采样周期
func (m *Monitor) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// Skipped 返回因上一次采样未完成而跳过的tick数
func (m *Monitor) Skipped() uint64 {
	return m.skipped.Load()
}

// Close 停止监控并关闭所有订阅
func (m *Monitor) Close() {
	m.Stop()
	m.bus.Close()
}
