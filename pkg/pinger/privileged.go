// Package pinger - ICMP回显实现
// 特权模式使用原始套接字，需要管理员/root权限，但支持所有操作系统；
// Linux与macOS非特权模式复用同一套收发逻辑，只是换成DGRAM类型的ICMP套接字
package pinger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// ICMP协议号，用于icmp.ParseMessage
const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

// echoSampler 基于icmp.PacketConn的回显采样器
// 每次采样使用独立的套接字，采样结束即关闭，采样之间不共享状态
type echoSampler struct {
	config     *Config
	name       string
	network    string // ip4:icmp, ip6:ipv6-icmp, udp4, udp6
	listenAddr string
	matchID    bool // DGRAM套接字的ID由内核改写，只能按序号匹配
	id         int
	seq        atomic.Uint32
}

// newRawSampler 创建特权模式的采样器
func newRawSampler(config *Config) (*echoSampler, error) {
	s := &echoSampler{
		config:     config,
		name:       "raw",
		network:    "ip4:icmp",
		listenAddr: "0.0.0.0",
		matchID:    true,
		id:         os.Getpid() & 0xffff,
	}
	if config.IPVersion == 6 {
		s.network = "ip6:ipv6-icmp"
		s.listenAddr = "::"
	}
	return s, nil
}

// String 返回实现名称
func (s *echoSampler) String() string {
	return "icmp-" + s.name
}

// Sample 实现core.Sampler接口，发送一个回显请求并等待匹配的回复
func (s *echoSampler) Sample(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
	ctx, cancel := sampleContext(ctx, timeout, s.config.Timeout)
	defer cancel()

	ip, err := resolve(ctx, s.config.GetIPProtocol(), target)
	if err != nil {
		return failed(err)
	}

	conn, err := icmp.ListenPacket(s.network, s.listenAddr)
	if err != nil {
		return failed(fmt.Errorf("创建ICMP套接字失败: %w", err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return failed(err)
		}
	}
	// ctx被取消时让阻塞中的读取立即返回
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	seq := int(s.seq.Add(1) & 0xffff)
	data, err := s.request(seq).Marshal(nil)
	if err != nil {
		return failed(err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(data, s.destination(ip)); err != nil {
		return failed(fmt.Errorf("发送回显请求失败: %w", err))
	}

	reply := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			var netErr net.Error
			if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
				return failed(errNoReply)
			}
			return failed(fmt.Errorf("读取回复失败: %w", err))
		}
		if !samePeer(peer, ip) {
			continue
		}
		if matchEchoReply(reply[:n], s.config.IPVersion, s.id, seq, s.matchID) {
			return true, toMillis(time.Since(start)), nil
		}
	}
}

// request 构建回显请求
func (s *echoSampler) request(seq int) *icmp.Message {
	var typ icmp.Type = ipv4.ICMPTypeEcho
	if s.config.IPVersion == 6 {
		typ = ipv6.ICMPTypeEchoRequest
	}
	return &icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   s.id,
			Seq:  seq,
			Data: []byte(s.config.Payload),
		},
	}
}

// destination 按套接字类型构造目的地址
func (s *echoSampler) destination(ip net.IP) net.Addr {
	if s.network == "udp4" || s.network == "udp6" {
		return &net.UDPAddr{IP: ip}
	}
	return &net.IPAddr{IP: ip}
}

// samePeer 判断回复是否来自目标地址
func samePeer(peer net.Addr, ip net.IP) bool {
	switch a := peer.(type) {
	case *net.IPAddr:
		return a.IP.Equal(ip)
	case *net.UDPAddr:
		return a.IP.Equal(ip)
	default:
		return true
	}
}

// matchEchoReply 判断报文是否是本次请求的回显回复
func matchEchoReply(b []byte, ipVersion, id, seq int, checkID bool) bool {
	proto := protocolICMP
	var want icmp.Type = ipv4.ICMPTypeEchoReply
	if ipVersion == 6 {
		proto = protocolIPv6ICMP
		want = ipv6.ICMPTypeEchoReply
	}

	msg, err := icmp.ParseMessage(proto, b)
	if err != nil || msg.Type != want {
		return false
	}
	echo, ok := msg.Body.(*icmp.Echo)
	if !ok || echo.Seq != seq {
		return false
	}
	return !checkID || echo.ID == id
}
