// Package metrics 以Prometheus格式导出最新的网络健康指标
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("metrics")

const namespace = "gonetwatch"

// Exporter 指标导出器，使用独立的注册表
type Exporter struct {
	registry *prometheus.Registry

	latency  prometheus.Gauge
	success  prometheus.Gauge
	loss     prometheus.Gauge
	download prometheus.Gauge
	upload   prometheus.Gauge
	samples  *prometheus.CounterVec
	alerts   *prometheus.CounterVec
}

// NewExporter 创建导出器并注册所有指标
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ping_latency_ms",
			Help:      "Round-trip latency of the latest sample in milliseconds, -1 when unavailable.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ping_success",
			Help:      "1 if the latest sample received a reply, otherwise 0.",
		}),
		loss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packet_loss_percent",
			Help:      "Packet loss over the sliding sample window.",
		}),
		download: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "download_bytes_per_second",
			Help:      "Aggregate receive rate over eligible interfaces.",
		}),
		upload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upload_bytes_per_second",
			Help:      "Aggregate transmit rate over eligible interfaces.",
		}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Number of published samples by result.",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Number of alert events by kind.",
		}, []string{"kind"}),
	}

	e.registry.MustRegister(e.latency, e.success, e.loss, e.download, e.upload, e.samples, e.alerts)
	return e
}

// Registry 返回底层注册表
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Observe 用一条记录更新指标
func (e *Exporter) Observe(rec core.MetricsRecord) {
	result := "failure"
	if rec.PingSuccess {
		result = "success"
		e.success.Set(1)
	} else {
		e.success.Set(0)
	}
	e.samples.WithLabelValues(result).Inc()

	latency := float64(rec.PingLatencyMs)
	if !rec.HasLatency() {
		latency = float64(core.NoLatency)
	}
	e.latency.Set(latency)
	e.loss.Set(rec.PacketLossPercent)
	e.download.Set(rec.DownloadBytesPerSec)
	e.upload.Set(rec.UploadBytesPerSec)
}

// ObserveAlert 记录一次告警事件
func (e *Exporter) ObserveAlert(ev core.AlertEvent) {
	e.alerts.WithLabelValues(ev.Kind.String()).Inc()
}

// Run 持续消费记录，直到ctx结束或通道关闭
func (e *Exporter) Run(ctx context.Context, records <-chan core.MetricsRecord) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			e.Observe(rec)
		}
	}
}

// Handler 返回/metrics的HTTP处理器
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve 在addr上提供/metrics，ctx结束时优雅关闭
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("指标服务已启动", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
