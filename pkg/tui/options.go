// Package tui 选项模式支持
package tui

import (
	"time"
)

// Option TUI配置选项函数类型
type Option func(*Config)

// WithRefreshInterval 设置UI刷新间隔
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.RefreshInterval = interval
	}
}

// WithAlertLogSize 设置告警日志保留条数
func WithAlertLogSize(size int) Option {
	return func(c *Config) {
		c.AlertLogSize = size
	}
}

// WithIndicator 设置启动时是否显示徽标
func WithIndicator(enabled bool) Option {
	return func(c *Config) {
		c.IndicatorEnabled = enabled
	}
}

// WithMinColors 设置绘制徽标所需的最少颜色数
func WithMinColors(colors int) Option {
	return func(c *Config) {
		c.MinColors = colors
	}
}

// NewConfigWithOptions 使用选项模式创建TUI配置
func NewConfigWithOptions(opts ...Option) *Config {
	config := DefaultConfig()

	for _, opt := range opts {
		opt(config)
	}

	return config
}
