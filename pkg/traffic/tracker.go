// Package traffic 根据网络接口字节计数的周期差值计算吞吐速率
package traffic

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("traffic")

// DefaultInterval 默认测量周期
const DefaultInterval = 2 * time.Second

// ErrInvalidInterval 测量周期非法
var ErrInvalidInterval = errors.New("吞吐量测量周期必须大于0")

// Rates 上下行速率（字节/秒）
type Rates struct {
	DownloadBytesPerSec float64
	UploadBytesPerSec   float64
}

// Clamped 将负速率（计数器重置或回绕）截断为0
func (r Rates) Clamped() Rates {
	if r.DownloadBytesPerSec < 0 {
		r.DownloadBytesPerSec = 0
	}
	if r.UploadBytesPerSec < 0 {
		r.UploadBytesPerSec = 0
	}
	return r
}

// Tracker 吞吐量跟踪器
// 按接口保存上一次的计数，每次测量时计算差值速率
type Tracker struct {
	enum  Enumerator
	clock clock.Clock

	mu     sync.Mutex
	last   map[string]Counter
	lastAt time.Time
	latest Rates

	runMu   sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewTracker 创建跟踪器，enum为nil时使用系统枚举器
func NewTracker(enum Enumerator, clk clock.Clock) *Tracker {
	if enum == nil {
		enum = SystemEnumerator{}
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{
		enum:  enum,
		clock: clk,
		last:  make(map[string]Counter),
	}
}

// Measure 执行一次测量并返回原始速率（可能为负）
// 枚举失败时返回零速率并记录日志，不向上传播错误
func (t *Tracker) Measure(ctx context.Context) Rates {
	counters, err := t.enum.Counters(ctx)
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		logger.Warn("吞吐量测量失败", "err", err)
		t.latest = Rates{}
		return t.latest
	}

	current := make(map[string]Counter, len(counters))
	for _, c := range counters {
		current[c.Name] = c
	}

	seeded := !t.lastAt.IsZero()
	var deltaSent, deltaRecv float64
	for name, c := range current {
		prev, tracked := t.last[name]
		if !tracked {
			// 新接口：以当前值作为基线，首个差值为0
			continue
		}
		deltaSent += float64(c.BytesSent) - float64(prev.BytesSent)
		deltaRecv += float64(c.BytesRecv) - float64(prev.BytesRecv)
	}

	// 丢弃已消失的接口，登记新接口
	t.last = current

	elapsed := now.Sub(t.lastAt).Seconds()
	t.lastAt = now
	if !seeded || elapsed <= 0 {
		t.latest = Rates{}
		return t.latest
	}

	t.latest = Rates{
		DownloadBytesPerSec: deltaRecv / elapsed,
		UploadBytesPerSec:   deltaSent / elapsed,
	}
	return t.latest
}

// Latest 返回最近一次测量的原始速率
func (t *Tracker) Latest() Rates {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Tracked 返回当前跟踪的接口数
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// reset 清空所有接口基线
func (t *Tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[string]Counter)
	t.lastAt = time.Time{}
	t.latest = Rates{}
}

// Start 以独立周期启动后台测量
// 基线在Start内同步建立，第一次速率在一个周期之后产生
func (t *Tracker) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.running {
		return nil
	}

	t.reset()
	t.Measure(ctx)

	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.running = true

	ticker := t.clock.Ticker(interval)
	go t.loop(ctx, ticker, t.stopCh, t.doneCh)
	return nil
}

func (t *Tracker) loop(ctx context.Context, ticker *clock.Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Measure(ctx)
		}
	}
}

// Stop 停止后台测量，可重复调用
func (t *Tracker) Stop() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stopCh)
	<-t.doneCh
}
