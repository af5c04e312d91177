package alert

import (
	"errors"
	"time"
)

// 默认阈值
const (
	DefaultLatencyThresholdMs   int64   = 200
	DefaultLossThresholdPercent float64 = 10
	DefaultCooldown                     = 5 * time.Minute
)

var (
	// ErrInvalidLatencyThreshold 延迟阈值非法
	ErrInvalidLatencyThreshold = errors.New("延迟阈值必须大于0")
	// ErrInvalidLossThreshold 丢包阈值非法
	ErrInvalidLossThreshold = errors.New("丢包阈值必须在0到100之间")
	// ErrInvalidCooldown 冷却时间非法
	ErrInvalidCooldown = errors.New("冷却时间不能为负数")
)

// Config 告警引擎配置
type Config struct {
	LatencyThresholdMs   int64         // 延迟超过该值视为异常
	LossThresholdPercent float64       // 丢包率超过该值视为异常
	Cooldown             time.Duration // 两次异常告警之间的最小间隔
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		LatencyThresholdMs:   DefaultLatencyThresholdMs,
		LossThresholdPercent: DefaultLossThresholdPercent,
		Cooldown:             DefaultCooldown,
	}
}

// Validate 验证配置的合理性
func (c Config) Validate() error {
	if c.LatencyThresholdMs <= 0 {
		return ErrInvalidLatencyThreshold
	}
	if c.LossThresholdPercent < 0 || c.LossThresholdPercent > 100 {
		return ErrInvalidLossThreshold
	}
	if c.Cooldown < 0 {
		return ErrInvalidCooldown
	}
	return nil
}
