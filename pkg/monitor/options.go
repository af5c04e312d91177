package monitor

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/traffic"
)

// Option 配置选项函数类型
type Option func(*Config)

// WithClock 设置时间源
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// WithSampleTimeout 设置单次采样超时
func WithSampleTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.SampleTimeout = timeout
	}
}

// WithThroughputInterval 设置吞吐量测量周期
func WithThroughputInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.ThroughputInterval = interval
	}
}

// WithLossWindowSize 设置丢包率窗口容量
func WithLossWindowSize(size int) Option {
	return func(c *Config) {
		c.LossWindowSize = size
	}
}

// WithSubscriberBuffer 设置订阅通道默认缓冲
func WithSubscriberBuffer(size int) Option {
	return func(c *Config) {
		c.SubscriberBuffer = size
	}
}

// WithEnumerator 设置网络接口枚举器
func WithEnumerator(enum traffic.Enumerator) Option {
	return func(c *Config) {
		c.Enumerator = enum
	}
}

// NewWithOptions 使用选项模式创建监控器
func NewWithOptions(sampler core.Sampler, opts ...Option) (*Monitor, error) {
	config := DefaultConfig()

	for _, opt := range opts {
		opt(config)
	}

	return New(sampler, config)
}
