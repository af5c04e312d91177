// Package alert 将指标记录转换为带滞回和冷却的告警事件
//
// 延迟与丢包是两个独立的通道，各自在 Normal 与 Alerting 之间切换。
// 进入 Alerting 时仅在距上次告警超过冷却时间后才发出事件，但状态无论如何都会切换；
// 回到 Normal 时总是发出恢复事件。
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("alert")

// Notifier 接收告警事件
type Notifier interface {
	Notify(ctx context.Context, ev core.AlertEvent) error
}

// NotifierFunc 允许普通函数作为Notifier使用
type NotifierFunc func(ctx context.Context, ev core.AlertEvent) error

// Notify 实现Notifier接口
func (f NotifierFunc) Notify(ctx context.Context, ev core.AlertEvent) error {
	return f(ctx, ev)
}

// channel 单个告警通道的状态
type channel struct {
	active      bool
	lastFiredAt time.Time
}

// transition 根据本次是否异常推进状态，返回应发出的事件类型
func (ch *channel) transition(bad bool, now time.Time, cooldown time.Duration, raise, restore core.AlertKind) (core.AlertKind, bool) {
	switch {
	case bad && !ch.active:
		ch.active = true
		if ch.lastFiredAt.IsZero() || now.Sub(ch.lastFiredAt) > cooldown {
			ch.lastFiredAt = now
			return raise, true
		}
		return 0, false
	case !bad && ch.active:
		ch.active = false
		return restore, true
	default:
		return 0, false
	}
}

// Engine 告警引擎
type Engine struct {
	clock clock.Clock

	mu      sync.Mutex
	config  Config
	latency channel
	loss    channel
}

// NewEngine 创建告警引擎，clk为nil时使用系统时钟
func NewEngine(config Config, clk clock.Clock) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Engine{clock: clk, config: config}, nil
}

// Evaluate 处理一条记录，返回本次产生的事件（延迟通道在前）
func (e *Engine) Evaluate(rec core.MetricsRecord) []core.AlertEvent {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var events []core.AlertEvent

	latencyBad := !rec.PingSuccess || rec.PingLatencyMs > e.config.LatencyThresholdMs
	if kind, fire := e.latency.transition(latencyBad, now, e.config.Cooldown, core.LatencyPoor, core.LatencyRestored); fire {
		events = append(events, core.AlertEvent{Kind: kind, Record: rec})
	}

	lossBad := rec.PacketLossPercent > e.config.LossThresholdPercent
	if kind, fire := e.loss.transition(lossBad, now, e.config.Cooldown, core.LossHigh, core.LossRestored); fire {
		events = append(events, core.AlertEvent{Kind: kind, Record: rec})
	}

	return events
}

// SetLatencyThreshold 修改延迟阈值，下一条记录生效
func (e *Engine) SetLatencyThreshold(ms int64) error {
	if ms <= 0 {
		return ErrInvalidLatencyThreshold
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.LatencyThresholdMs = ms
	return nil
}

// SetLossThreshold 修改丢包阈值
func (e *Engine) SetLossThreshold(percent float64) error {
	if percent < 0 || percent > 100 {
		return ErrInvalidLossThreshold
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.LossThresholdPercent = percent
	return nil
}

// SetCooldown 修改冷却时间
func (e *Engine) SetCooldown(d time.Duration) error {
	if d < 0 {
		return ErrInvalidCooldown
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Cooldown = d
	return nil
}

// Config 返回当前配置
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// LatencyAlerting 延迟通道是否处于告警状态
func (e *Engine) LatencyAlerting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latency.active
}

// LossAlerting 丢包通道是否处于告警状态
func (e *Engine) LossAlerting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loss.active
}

// Run 持续消费记录并把事件交给notifier，直到ctx结束或通道关闭
// 通知失败只记录日志
func (e *Engine) Run(ctx context.Context, records <-chan core.MetricsRecord, notifier Notifier) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			for _, ev := range e.Evaluate(rec) {
				logger.Info("告警事件", "kind", ev.Kind, "message", ev.Message())
				if notifier == nil {
					continue
				}
				if err := notifier.Notify(ctx, ev); err != nil {
					logger.Warn("发送通知失败", "kind", ev.Kind, "err", err)
				}
			}
		}
	}
}
