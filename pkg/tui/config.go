// Package tui 配置定义
package tui

import (
	"errors"
	"time"
)

// Config TUI组件的配置结构
type Config struct {
	RefreshInterval  time.Duration // 头部运行时长等信息的刷新间隔
	AlertLogSize     int           // 告警日志保留条数
	IndicatorEnabled bool          // 启动时是否显示徽标
	MinColors        int           // 绘制徽标所需的最少终端颜色数
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		RefreshInterval:  time.Second,
		AlertLogSize:     100,
		IndicatorEnabled: true,
		MinColors:        256,
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return errors.New("UI刷新间隔必须大于0")
	}

	if c.RefreshInterval < 10*time.Millisecond {
		return errors.New("UI刷新间隔不能小于10ms")
	}

	if c.AlertLogSize <= 0 {
		return errors.New("告警日志条数必须大于0")
	}

	if c.AlertLogSize > 1000 {
		return errors.New("告警日志条数不能超过1000")
	}

	if c.MinColors < 0 {
		return errors.New("最少颜色数不能为负数")
	}

	return nil
}
