package traffic

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// Counter 单个网络接口的累计字节计数
type Counter struct {
	Name      string // 接口名
	BytesSent uint64 // 累计发送字节
	BytesRecv uint64 // 累计接收字节
}

// Enumerator 枚举当前符合条件的网络接口及其计数器
type Enumerator interface {
	Counters(ctx context.Context) ([]Counter, error)
}

// EnumeratorFunc 允许普通函数作为Enumerator使用
type EnumeratorFunc func(ctx context.Context) ([]Counter, error)

// Counters 实现Enumerator接口
func (f EnumeratorFunc) Counters(ctx context.Context) ([]Counter, error) {
	return f(ctx)
}

// 虚拟隧道接口名前缀
var tunnelPrefixes = []string{"tun", "tap", "wg", "utun", "ppp", "ipsec", "gif", "stf"}

// SystemEnumerator 基于gopsutil读取系统网络接口
type SystemEnumerator struct{}

// Counters 返回所有已启用、非回环、非隧道且具有IPv4地址的接口计数
func (SystemEnumerator) Counters(ctx context.Context) ([]Counter, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("枚举网络接口失败: %w", err)
	}

	eligible := make(map[string]bool, len(ifaces))
	for _, iface := range ifaces {
		if isEligible(iface) {
			eligible[iface.Name] = true
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	stats, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("读取接口计数失败: %w", err)
	}

	counters := make([]Counter, 0, len(eligible))
	for _, s := range stats {
		if !eligible[s.Name] {
			continue
		}
		counters = append(counters, Counter{
			Name:      s.Name,
			BytesSent: s.BytesSent,
			BytesRecv: s.BytesRecv,
		})
	}
	return counters, nil
}

// isEligible 判断接口是否参与吞吐量统计
func isEligible(iface psnet.InterfaceStat) bool {
	up := false
	for _, flag := range iface.Flags {
		switch flag {
		case "up":
			up = true
		case "loopback", "pointtopoint":
			return false
		}
	}
	if !up || isTunnelName(iface.Name) {
		return false
	}
	return hasIPv4(iface.Addrs)
}

func isTunnelName(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range tunnelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func hasIPv4(addrs psnet.InterfaceAddrList) bool {
	for _, a := range addrs {
		s := a.Addr
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		ip, err := netip.ParseAddr(s)
		if err == nil && ip.Is4() {
			return true
		}
	}
	return false
}
