// Package core 定义了监控流水线的核心接口和数据结构
// 采样器、监控器、告警引擎与指示器之间只通过这些类型通信
package core

import (
	"context"
	"fmt"
	"time"
)

// NoLatency 表示没有测量值（失败或超时）
const NoLatency int64 = -1

// MetricsRecord 表示一次采样周期产生的不可变指标快照
// 每个采样tick恰好产生一条记录，失败时用 PingSuccess=false、PingLatencyMs=-1 表示
type MetricsRecord struct {
	Timestamp           time.Time // 采集时间
	Target              string    // 本次采样使用的目标地址
	PingSuccess         bool      // 是否收到回复
	PingLatencyMs       int64     // 往返时延(ms)，NoLatency表示无测量值
	DownloadBytesPerSec float64   // 下行速率，未知时为0
	UploadBytesPerSec   float64   // 上行速率，未知时为0
	PacketLossPercent   float64   // 滑动窗口丢包率 [0, 100]
	Latitude            *float64  // 可选位置信息，由外部提供
	Longitude           *float64  // 可选位置信息，由外部提供
	Context             string    // 环境标签（如"Home"），由消费者设置
}

// HasLatency 判断记录是否携带有效的延迟测量值
func (r MetricsRecord) HasLatency() bool {
	return r.PingSuccess && r.PingLatencyMs >= 0
}

// WithContext 返回设置了环境标签的副本
func (r MetricsRecord) WithContext(label string) MetricsRecord {
	r.Context = label
	return r
}

// FailureRecord 构造一条采样失败的记录
func FailureRecord(ts time.Time, target string) MetricsRecord {
	return MetricsRecord{
		Timestamp:     ts,
		Target:        target,
		PingSuccess:   false,
		PingLatencyMs: NoLatency,
	}
}

// Sampler 定义单次可达性/往返时延采样的标准接口
// 实现者每次调用只做一次尝试，不做重试，且不能阻塞超过timeout
type Sampler interface {
	// Sample 对target发起一次探测
	// 失败时返回 ok=false、rttMs=NoLatency，err仅用于诊断
	Sample(ctx context.Context, target string, timeout time.Duration) (ok bool, rttMs int64, err error)
}

// SamplerFunc 允许普通函数作为Sampler使用
type SamplerFunc func(ctx context.Context, target string, timeout time.Duration) (bool, int64, error)

// Sample 实现Sampler接口
func (f SamplerFunc) Sample(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
	return f(ctx, target, timeout)
}

// AlertKind 告警事件类型
type AlertKind int

const (
	LatencyPoor     AlertKind = iota // 延迟过高或不可达
	LatencyRestored                  // 延迟恢复正常
	LossHigh                         // 丢包率过高
	LossRestored                     // 丢包率恢复正常
)

// String 返回告警类型名称
func (k AlertKind) String() string {
	switch k {
	case LatencyPoor:
		return "latency_poor"
	case LatencyRestored:
		return "latency_restored"
	case LossHigh:
		return "loss_high"
	case LossRestored:
		return "loss_restored"
	default:
		return fmt.Sprintf("alert_kind(%d)", int(k))
	}
}

// IsRestore 判断是否为恢复类事件
func (k AlertKind) IsRestore() bool {
	return k == LatencyRestored || k == LossRestored
}

// AlertEvent 告警引擎产生的事件，携带触发它的记录
type AlertEvent struct {
	Kind   AlertKind
	Record MetricsRecord
}

// Title 返回通知标题
func (e AlertEvent) Title() string {
	if e.Kind.IsRestore() {
		return "Connection Restored"
	}
	return "Connection Issue"
}

// Message 返回通知正文
func (e AlertEvent) Message() string {
	switch e.Kind {
	case LatencyPoor:
		if !e.Record.HasLatency() {
			return "Connection lost!"
		}
		return fmt.Sprintf("High latency detected: %dms", e.Record.PingLatencyMs)
	case LatencyRestored:
		return fmt.Sprintf("Connection is back to normal (%dms)", e.Record.PingLatencyMs)
	case LossHigh:
		return fmt.Sprintf("High packet loss detected: %.1f%%", e.Record.PacketLossPercent)
	case LossRestored:
		return fmt.Sprintf("Packet loss is back to normal (%.1f%%)", e.Record.PacketLossPercent)
	default:
		return e.Kind.String()
	}
}
