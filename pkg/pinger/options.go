// Package pinger 选项模式支持
package pinger

import (
	"time"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// Option 配置选项函数类型
type Option func(*Config)

// WithIPVersion 设置IP版本
func WithIPVersion(version int) Option {
	return func(c *Config) {
		c.IPVersion = version
	}
}

// WithTimeout 设置默认超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithTCPPort 设置TCP回退端口
func WithTCPPort(port int) Option {
	return func(c *Config) {
		c.TCPPort = port
	}
}

// WithTCPFallback 设置是否允许TCP回退
func WithTCPFallback(enabled bool) Option {
	return func(c *Config) {
		c.AllowTCPFallback = enabled
	}
}

// WithPayload 设置ICMP负载
func WithPayload(payload string) Option {
	return func(c *Config) {
		c.Payload = payload
	}
}

// NewSamplerWithOptions 使用选项模式创建采样器
func NewSamplerWithOptions(opts ...Option) (core.Sampler, error) {
	config := DefaultConfig()

	for _, opt := range opts {
		opt(config)
	}

	return NewSampler(config)
}
