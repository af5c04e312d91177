//go:build darwin

package pinger

import (
	"os"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// darwinCapability macOS平台能力实现
type darwinCapability struct{}

func (d *darwinCapability) hasPrivilegedAccess() bool {
	return os.Geteuid() == 0
}

func (d *darwinCapability) createPrivilegedSampler(config *Config) (core.Sampler, error) {
	return newRawSampler(config)
}

// createUnprivilegedSampler macOS与Linux一样走DGRAM ICMP，不需要root
func (d *darwinCapability) createUnprivilegedSampler(config *Config) (core.Sampler, error) {
	return newDgramSampler(config)
}

// getPlatformCapability 获取macOS平台的能力实现
func getPlatformCapability() platformCapability {
	return &darwinCapability{}
}
