// Package pinger 配置定义
package pinger

import (
	"errors"
	"strings"
	"time"
)

// 默认配置值
const (
	DefaultTimeout = 5 * time.Second
	DefaultTCPPort = 443
	DefaultPayload = "gonetwatch"
)

// ErrEmptyTarget 目标地址为空
var ErrEmptyTarget = errors.New("目标地址不能为空")

// Config 采样器的配置结构
type Config struct {
	IPVersion        int           // IP版本，4或6
	Timeout          time.Duration // 单次采样的默认超时，调用方未给出时使用
	TCPPort          int           // TCP回退模式连接的端口
	AllowTCPFallback bool          // ICMP不可用时是否回退到TCP连接测时
	Payload          string        // ICMP回显负载
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		IPVersion:        4,
		Timeout:          DefaultTimeout,
		TCPPort:          DefaultTCPPort,
		AllowTCPFallback: true,
		Payload:          DefaultPayload,
	}
}

// GetIPProtocol 获取IP协议字符串，用于网络操作
func (c *Config) GetIPProtocol() string {
	if c.IPVersion == 6 {
		return "ip6"
	}
	return "ip4"
}

// ValidateTarget 验证目标地址
// 只做语法检查，解析推迟到每次采样时进行，解析失败计为一次失败的采样
func ValidateTarget(target string) error {
	if strings.TrimSpace(target) == "" {
		return ErrEmptyTarget
	}
	return nil
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.IPVersion != 4 && c.IPVersion != 6 {
		return errors.New("IP版本必须是4或6")
	}

	if c.Timeout <= 0 {
		return errors.New("超时时间必须大于0")
	}

	if c.Timeout < 100*time.Millisecond {
		return errors.New("超时时间不能小于100ms")
	}

	if c.TCPPort <= 0 || c.TCPPort > 65535 {
		return errors.New("TCP端口必须在1-65535之间")
	}

	if len(c.Payload) > 1024 {
		return errors.New("负载长度不能超过1024字节")
	}

	return nil
}
