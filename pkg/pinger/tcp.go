package pinger

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// tcpSampler 以TCP三次握手耗时近似往返时延
// 用于没有ICMP权限的环境，目标必须在TCPPort上监听
type tcpSampler struct {
	config *Config
	dialer net.Dialer
}

// newTCPSampler 创建TCP回退采样器
func newTCPSampler(config *Config) *tcpSampler {
	return &tcpSampler{config: config}
}

// String 返回实现名称
func (s *tcpSampler) String() string {
	return "tcp-connect"
}

// Sample 实现core.Sampler接口
func (s *tcpSampler) Sample(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
	ctx, cancel := sampleContext(ctx, timeout, s.config.Timeout)
	defer cancel()

	ip, err := resolve(ctx, s.config.GetIPProtocol(), target)
	if err != nil {
		return failed(err)
	}

	network := "tcp4"
	if s.config.IPVersion == 6 {
		network = "tcp6"
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(s.config.TCPPort))

	start := time.Now()
	conn, err := s.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return failed(fmt.Errorf("TCP连接 %s 失败: %w", addr, err))
	}
	rtt := time.Since(start)
	if err := conn.Close(); err != nil {
		logger.Debug("关闭TCP连接失败", "addr", addr, "err", err)
	}
	return true, toMillis(rtt), nil
}
