//go:build windows

package pinger

import (
	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// windowsCapability Windows平台能力实现
type windowsCapability struct{}

// hasPrivilegedAccess 检查Windows管理员权限
func (w *windowsCapability) hasPrivilegedAccess() bool {
	return checkWindowsAdmin()
}

// createPrivilegedSampler 创建raw socket采样器
func (w *windowsCapability) createPrivilegedSampler(config *Config) (core.Sampler, error) {
	return newRawSampler(config)
}

// createUnprivilegedSampler 创建Icmp.dll采样器
func (w *windowsCapability) createUnprivilegedSampler(config *Config) (core.Sampler, error) {
	return newWindowsSampler(config)
}

// getPlatformCapability 获取Windows平台的能力实现
func getPlatformCapability() platformCapability {
	return &windowsCapability{}
}
