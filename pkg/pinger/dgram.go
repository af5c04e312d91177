//go:build linux || darwin

// Package pinger - 非特权DGRAM ICMP实现
// Linux需要net.ipv4.ping_group_range包含当前用户组，macOS默认允许普通用户使用
package pinger

import (
	"fmt"
	"os"

	"golang.org/x/net/icmp"
)

// newDgramSampler 创建非特权模式的采样器
// 创建时先打开一次套接字，确认内核允许当前用户使用DGRAM ICMP
func newDgramSampler(config *Config) (*echoSampler, error) {
	s := &echoSampler{
		config:     config,
		name:       "dgram",
		network:    "udp4",
		listenAddr: "0.0.0.0",
		id:         os.Getpid() & 0xffff,
	}
	if config.IPVersion == 6 {
		s.network = "udp6"
		s.listenAddr = "::"
	}

	probe, err := icmp.ListenPacket(s.network, s.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("DGRAM ICMP套接字不可用: %w", err)
	}
	if err := probe.Close(); err != nil {
		logger.Debug("关闭探测套接字失败", "err", err)
	}
	return s, nil
}
