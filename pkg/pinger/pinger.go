// Package pinger 实现了core.Sampler接口，提供单次可达性与往返时延采样
// 根据操作系统和用户权限自动选择最合适的底层实现，ICMP不可用时可回退到TCP连接测时
package pinger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("pinger")

// KnownTarget 常用的探测目标
type KnownTarget struct {
	Name    string
	Address string
}

// KnownTargets 内置的公共DNS探测目标
var KnownTargets = []KnownTarget{
	{Name: "Cloudflare", Address: "1.1.1.1"},
	{Name: "Google", Address: "8.8.8.8"},
	{Name: "Quad9", Address: "9.9.9.9"},
}

// errNoReply 在截止时间内没有收到匹配的回复
var errNoReply = errors.New("在超时时间内未收到回复")

// NewSampler 创建新的采样器
// 优先特权模式，其次平台相关的非特权实现，都不可用时按配置回退到TCP
func NewSampler(config *Config) (core.Sampler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	platform := getPlatformCapability()

	if platform.hasPrivilegedAccess() {
		s, err := platform.createPrivilegedSampler(config)
		if err == nil {
			return s, nil
		}
		logger.Warn("特权模式采样器创建失败", "err", err)
	}

	s, err := platform.createUnprivilegedSampler(config)
	if err == nil {
		return s, nil
	}

	if !config.AllowTCPFallback {
		return nil, fmt.Errorf("无可用的ICMP实现: %w", err)
	}
	logger.Warn("ICMP不可用，回退到TCP连接测时", "err", err, "port", config.TCPPort)
	return newTCPSampler(config), nil
}

// sampleContext 计算单次采样的截止时间：取调用方ctx截止时间与now+timeout中较早者
func sampleContext(ctx context.Context, timeout, fallback time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = fallback
	}
	return context.WithTimeout(ctx, timeout)
}

// resolve 将目标解析为network（ip4或ip6）对应版本的地址
func resolve(ctx context.Context, network, target string) (net.IP, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}

	ipVersion := 4
	if network == "ip6" {
		ipVersion = 6
	}

	if ip := net.ParseIP(target); ip != nil {
		if (ip.To4() != nil) != (ipVersion == 4) {
			return nil, fmt.Errorf("'%s' 不是IPv%d地址", target, ipVersion)
		}
		return ip, nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, network, target)
	if err != nil {
		return nil, fmt.Errorf("无法将 '%s' 解析为IPv%d地址: %w", target, ipVersion, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("'%s' 没有IPv%d地址", target, ipVersion)
	}
	return ips[0], nil
}

// failed 返回失败采样的统一结果
func failed(err error) (bool, int64, error) {
	return false, core.NoLatency, err
}

// toMillis 将往返时间转换为毫秒
func toMillis(rtt time.Duration) int64 {
	if rtt < 0 {
		return 0
	}
	return rtt.Milliseconds()
}

// GetSystemInfo 获取完整的系统信息
// 返回操作系统名称、权限状态和实现类型
func GetSystemInfo() (osName, privilegeStatus, implementationType string) {
	switch runtime.GOOS {
	case "windows":
		osName = "Windows"
	case "linux":
		osName = "Linux"
	case "darwin":
		osName = "macOS"
	default:
		osName = runtime.GOOS
	}

	platform := getPlatformCapability()
	hasPriv := platform.hasPrivilegedAccess()

	switch runtime.GOOS {
	case "windows":
		if hasPriv {
			privilegeStatus = "管理员模式 (Raw Socket)"
			implementationType = "Raw Socket"
		} else {
			privilegeStatus = "普通用户模式 (Windows API)"
			implementationType = "Windows ICMP API"
		}
	case "linux":
		if hasPriv {
			privilegeStatus = "特权模式 (Raw Socket)"
			implementationType = "Linux Raw Socket"
		} else {
			privilegeStatus = "非特权模式 (DGRAM Socket)"
			implementationType = "Linux DGRAM Socket"
		}
	case "darwin":
		if hasPriv {
			privilegeStatus = "特权模式 (Root权限)"
			implementationType = "macOS Raw Socket"
		} else {
			privilegeStatus = "权限不足 (TCP回退)"
			implementationType = "TCP Connect"
		}
	default:
		if hasPriv {
			privilegeStatus = "特权模式"
			implementationType = "通用Raw Socket"
		} else {
			privilegeStatus = "权限不足 (TCP回退)"
			implementationType = "TCP Connect"
		}
	}

	return
}

// GetOSName 获取操作系统名称
func GetOSName() string {
	osName, _, _ := GetSystemInfo()
	return osName
}

// GetPrivilegeStatus 获取权限状态描述
func GetPrivilegeStatus() string {
	_, privilegeStatus, _ := GetSystemInfo()
	return privilegeStatus
}

// GetImplementationType 获取采样实现类型描述
func GetImplementationType() string {
	_, _, implementationType := GetSystemInfo()
	return implementationType
}

// HasPrivilegedAccess 检查是否有特权访问能力
func HasPrivilegedAccess() bool {
	return getPlatformCapability().hasPrivilegedAccess()
}
