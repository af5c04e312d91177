//go:build linux

package pinger

import (
	"net"
	"os"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// linuxCapability Linux平台能力实现
type linuxCapability struct{}

func (l *linuxCapability) hasPrivilegedAccess() bool {
	return checkLinuxCapNetRaw()
}

func (l *linuxCapability) createPrivilegedSampler(config *Config) (core.Sampler, error) {
	return newRawSampler(config)
}

// createUnprivilegedSampler 创建Linux DGRAM采样器
func (l *linuxCapability) createUnprivilegedSampler(config *Config) (core.Sampler, error) {
	return newDgramSampler(config)
}

// checkLinuxCapNetRaw 检查CAP_NET_RAW权限或root权限
func checkLinuxCapNetRaw() bool {
	if os.Geteuid() == 0 {
		return true
	}

	// 尝试创建原始套接字来检测CAP_NET_RAW权限
	conn, err := net.Dial("ip4:icmp", "127.0.0.1")
	if err != nil {
		return false
	}
	if err := conn.Close(); err != nil {
		logger.Debug("关闭探测套接字失败", "err", err)
	}
	return true
}

// getPlatformCapability 获取Linux平台的能力实现
func getPlatformCapability() platformCapability {
	return &linuxCapability{}
}
