//go:build windows

// Package pinger - Windows非特权模式实现
// 使用Icmp.dll系统调用，适用于Windows系统
package pinger

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	icmpDLL = windows.NewLazySystemDLL("Icmp.dll")

	icmpCreateFile  = icmpDLL.NewProc("IcmpCreateFile")
	icmpCloseHandle = icmpDLL.NewProc("IcmpCloseHandle")
	icmpSendEcho    = icmpDLL.NewProc("IcmpSendEcho")
)

// icmpEchoReply Windows ICMP_ECHO_REPLY结构体
type icmpEchoReply struct {
	Address       uint32
	Status        uint32
	RoundTripTime uint32
	DataSize      uint16
	Reserved      uint16
	Data          uintptr
	Options       icmpOptions
}

// icmpOptions Windows IP_OPTION_INFORMATION结构体
type icmpOptions struct {
	Ttl         uint8
	Tos         uint8
	Flags       uint8
	OptionsSize uint8
	OptionsData uintptr
}

// windowsSampler Windows非特权模式的采样实现
type windowsSampler struct {
	config     *Config
	icmpHandle syscall.Handle
}

// newWindowsSampler 创建Windows非特权模式的采样器
func newWindowsSampler(config *Config) (*windowsSampler, error) {
	if config.IPVersion == 6 {
		return nil, errors.New("Icmp.dll模式仅支持IPv4")
	}

	ret, _, err := icmpCreateFile.Call()
	if ret == 0 || ret == uintptr(syscall.InvalidHandle) {
		return nil, fmt.Errorf("IcmpCreateFile失败: %w", err)
	}

	return &windowsSampler{config: config, icmpHandle: syscall.Handle(ret)}, nil
}

// String 返回实现名称
func (s *windowsSampler) String() string {
	return "icmp-windows"
}

// Sample 实现core.Sampler接口
// IcmpSendEcho本身按毫秒超时阻塞，超时取ctx剩余时间与timeout中较小者
func (s *windowsSampler) Sample(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
	ctx, cancel := sampleContext(ctx, timeout, s.config.Timeout)
	defer cancel()

	dst, err := resolve(ctx, "ip4", target)
	if err != nil {
		return failed(err)
	}

	deadline, _ := ctx.Deadline()
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return failed(errNoReply)
	}

	// 网络字节序
	ip := dst.To4()
	destAddr := uint32(ip[0]) | (uint32(ip[1]) << 8) | (uint32(ip[2]) << 16) | (uint32(ip[3]) << 24)

	sendData := []byte(s.config.Payload)
	if len(sendData) == 0 {
		sendData = []byte(DefaultPayload)
	}
	replySize := unsafe.Sizeof(icmpEchoReply{}) + uintptr(len(sendData)) + 8
	replyBuffer := make([]byte, replySize)

	start := time.Now()
	ret, _, _ := icmpSendEcho.Call(
		uintptr(s.icmpHandle),
		uintptr(destAddr),
		uintptr(unsafe.Pointer(&sendData[0])),
		uintptr(len(sendData)),
		0,
		uintptr(unsafe.Pointer(&replyBuffer[0])),
		uintptr(len(replyBuffer)),
		uintptr(uint32(remaining.Milliseconds())),
	)
	elapsed := time.Since(start)

	if ret == 0 {
		return failed(errNoReply)
	}

	reply := (*icmpEchoReply)(unsafe.Pointer(&replyBuffer[0]))
	if reply.Status != 0 { // IP_SUCCESS
		return failed(fmt.Errorf("ICMP回复状态异常: %d", reply.Status))
	}

	if reply.RoundTripTime > 0 {
		return true, int64(reply.RoundTripTime), nil
	}
	return true, toMillis(elapsed), nil
}

// Close 关闭ICMP句柄
func (s *windowsSampler) Close() error {
	if s.icmpHandle == syscall.InvalidHandle {
		return nil
	}
	icmpCloseHandle.Call(uintptr(s.icmpHandle))
	s.icmpHandle = syscall.InvalidHandle
	return nil
}

// checkWindowsAdmin 检查是否具有Windows管理员权限
func checkWindowsAdmin() bool {
	var sid *windows.SID

	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	isMember, err := windows.Token(0).IsMember(sid)
	if err != nil {
		return false
	}
	return isMember
}
