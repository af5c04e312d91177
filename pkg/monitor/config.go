package monitor

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/loss"
	"github.com/Kevin-Rudy/gonetwatch/pkg/traffic"
)

// 默认配置值
const (
	DefaultInterval      = 10 * time.Second
	DefaultSampleTimeout = 5 * time.Second
)

// Config 监控器配置
type Config struct {
	SampleTimeout      time.Duration      // 单次采样超时
	ThroughputInterval time.Duration      // 吞吐量测量周期，独立于采样周期
	LossWindowSize     int                // 丢包率窗口容量
	SubscriberBuffer   int                // 订阅输出通道的默认缓冲
	Clock              clock.Clock        // 时间源，测试中替换为mock
	Enumerator         traffic.Enumerator // 网络接口枚举器，nil时使用系统实现
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		SampleTimeout:      DefaultSampleTimeout,
		ThroughputInterval: traffic.DefaultInterval,
		LossWindowSize:     loss.DefaultCapacity,
		SubscriberBuffer:   16,
		Clock:              clock.New(),
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.SampleTimeout <= 0 {
		return errors.New("采样超时必须大于0")
	}
	if c.ThroughputInterval <= 0 {
		return errors.New("吞吐量测量周期必须大于0")
	}
	if c.LossWindowSize <= 0 {
		return errors.New("丢包窗口容量必须大于0")
	}
	if c.SubscriberBuffer < 0 {
		return errors.New("订阅缓冲不能为负数")
	}
	if c.Clock == nil {
		return errors.New("时间源不能为空")
	}
	return nil
}
