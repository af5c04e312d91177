package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Kevin-Rudy/gonetwatch/pkg/alert"
	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/history"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
	"github.com/Kevin-Rudy/gonetwatch/pkg/metrics"
	"github.com/Kevin-Rudy/gonetwatch/pkg/monitor"
	"github.com/Kevin-Rudy/gonetwatch/pkg/pinger"
	"github.com/Kevin-Rudy/gonetwatch/pkg/tui"
)

var logger = log.Logger("app")

// runApp 主要应用逻辑处理函数
func runApp(c *cli.Context) error {
	// 构建配置
	appConfig, err := buildConfigFromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("参数错误: %v", err), 1)
	}

	// 验证配置
	if err := validateConfig(appConfig); err != nil {
		return cli.Exit(fmt.Sprintf("配置验证失败: %v", err), 1)
	}

	// 界面模式下日志不能写到终端
	logOptions := appConfig.LogOptions
	if !appConfig.Headless {
		logOptions.Output = io.Discard
	}
	if err := log.Setup(logOptions); err != nil {
		return cli.Exit(fmt.Sprintf("初始化日志失败: %v", err), 1)
	}
	defer log.Close()

	// 显示运行配置
	printRunningConfig(appConfig)

	// 显示系统环境信息
	showSystemInfo()

	fmt.Println("\n正在初始化采样器...")

	sampler, err := pinger.NewSampler(appConfig.PingerConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法创建采样器: %v", err), 1)
	}
	if closer, ok := sampler.(io.Closer); ok {
		defer closer.Close()
	}
	fmt.Printf("采样器初始化成功: %v\n", sampler)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, appConfig, sampler)
}

// run 组装监控流水线并运行，直到ctx结束或用户退出界面
func run(ctx context.Context, appConfig *AppConfig, sampler core.Sampler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mon, err := monitor.New(sampler, appConfig.MonitorConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法创建监控器: %v", err), 1)
	}
	defer mon.Close()

	engine, err := alert.NewEngine(appConfig.AlertConfig, nil)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法创建告警引擎: %v", err), 1)
	}

	g, gctx := errgroup.WithContext(ctx)

	var exporter *metrics.Exporter
	if appConfig.MetricsAddr != "" {
		exporter = metrics.NewExporter()
		sub := mon.Subscribe(-1)
		g.Go(func() error { return ignoreCanceled(exporter.Run(gctx, sub.C())) })
		g.Go(func() error { return exporter.Serve(gctx, appConfig.MetricsAddr) })
	}
	notifier := newAlertNotifier(exporter)

	if appConfig.DBPath != "" {
		store, err := history.Open(ctx, appConfig.DBPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("无法打开历史数据库: %v", err), 1)
		}
		defer store.Close()

		recorder := history.NewRecorder(store, appConfig.ContextLabel, appConfig.RetentionDays)
		logger.Info("历史记录已开启", "db", appConfig.DBPath, "session", recorder.SessionID())
		sub := mon.Subscribe(-1)
		g.Go(func() error { return ignoreCanceled(recorder.Run(gctx, sub.C())) })
	}

	if appConfig.Headless {
		alertSub := mon.Subscribe(-1)
		g.Go(func() error { return ignoreCanceled(engine.Run(gctx, alertSub.C(), notifier)) })
		statusSub := mon.Subscribe(-1)
		g.Go(func() error { return ignoreCanceled(logStatus(gctx, statusSub.C())) })
	} else {
		renderer, err := indicator.NewRenderer(appConfig.IndicatorConfig)
		if err != nil {
			return cli.Exit(fmt.Sprintf("无法创建徽标渲染器: %v", err), 1)
		}

		fmt.Println("\n正在启动TUI界面...")

		// 显示使用说明
		printUsageInstructions()

		ui := tui.NewTUI(mon.Subscribe(-1).C(), engine, renderer, appConfig.TUIConfig, notifier)
		g.Go(func() error {
			defer cancel()
			return ui.Run()
		})
		g.Go(func() error {
			<-gctx.Done()
			ui.Stop()
			return nil
		})
	}

	if err := mon.Start(appConfig.Target, appConfig.Interval); err != nil {
		cancel()
		_ = g.Wait()
		return cli.Exit(fmt.Sprintf("无法启动监控: %v", err), 1)
	}
	logger.Info("监控已启动", "target", appConfig.Target, "interval", appConfig.Interval)

	err = g.Wait()
	mon.Stop()
	if err != nil {
		return cli.Exit(fmt.Sprintf("运行出错: %v", err), 1)
	}

	fmt.Println("\n程序已退出")
	return nil
}

// newAlertNotifier 告警事件计入指标并写日志
func newAlertNotifier(exporter *metrics.Exporter) alert.Notifier {
	return alert.NotifierFunc(func(ctx context.Context, ev core.AlertEvent) error {
		if exporter != nil {
			exporter.ObserveAlert(ev)
		}
		logger.Warn(ev.Title(), "kind", ev.Kind.String(), "message", ev.Message())
		return nil
	})
}

// logStatus 无界面模式下逐条输出状态行
func logStatus(ctx context.Context, records <-chan core.MetricsRecord) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			logger.Info(indicator.FormatStatusLine(rec),
				"loss", rec.PacketLossPercent,
				"down", indicator.FormatRate(rec.DownloadBytesPerSec),
				"up", indicator.FormatRate(rec.UploadBytesPerSec))
		}
	}
}

// ignoreCanceled 正常退出时的取消错误不算失败
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runProbe 对目标执行一次采样并打印结果，不可达时以非零状态退出
func runProbe(c *cli.Context) error {
	appConfig, err := buildConfigFromCLI(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("参数错误: %v", err), 1)
	}
	if err := validateConfig(appConfig); err != nil {
		return cli.Exit(fmt.Sprintf("配置验证失败: %v", err), 1)
	}

	sampler, err := pinger.NewSampler(appConfig.PingerConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法创建采样器: %v", err), 1)
	}
	if closer, ok := sampler.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := sampleOnce(ctx, sampler, appConfig.Target, appConfig.MonitorConfig)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	printSample(os.Stdout, sampler, rec)
	if !rec.PingSuccess {
		return cli.Exit("", 2)
	}
	return nil
}

// sampleOnce 用一个未启动的监控器对目标采样一次
func sampleOnce(ctx context.Context, sampler core.Sampler, target string, config *monitor.Config) (core.MetricsRecord, error) {
	mon, err := monitor.New(sampler, config)
	if err != nil {
		return core.MetricsRecord{}, fmt.Errorf("创建监控器失败: %w", err)
	}
	defer mon.Close()

	if !mon.UpdateTarget(target) {
		return core.MetricsRecord{}, errors.New("目标地址不能为空")
	}
	return mon.Probe(ctx), nil
}

// printSample 输出单次采样结果
func printSample(w io.Writer, sampler core.Sampler, rec core.MetricsRecord) {
	fmt.Fprintln(w, indicator.FormatStatusLine(rec))
	latency := "不可达"
	if rec.HasLatency() {
		latency = fmt.Sprintf("%dms", rec.PingLatencyMs)
	}
	fmt.Fprintf(w, "目标: %s  延迟: %s  采样器: %v  时间: %s\n",
		rec.Target, latency, sampler, rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
}

// runHistory 打印历史记录
func runHistory(c *cli.Context) error {
	path := c.String("db")
	if path == "" {
		return cli.Exit("错误: 必须指定数据库路径", 1)
	}

	store, err := history.Open(c.Context, path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("无法打开历史数据库: %v", err), 1)
	}
	defer store.Close()

	var entries []history.Entry
	if since := c.Duration("since"); since > 0 {
		from, to := sinceRange(time.Now(), since)
		entries, err = store.Query(c.Context, from, to, c.Int("limit"))
	} else {
		entries, err = store.Recent(c.Context, c.Int("limit"))
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("查询失败: %v", err), 1)
	}

	printEntries(os.Stdout, entries)
	return nil
}

// printEntries 以表格形式输出记录
func printEntries(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "没有记录")
		return
	}

	fmt.Fprintf(w, "%-19s  %-16s  %8s  %6s  %12s  %12s  %s\n", "时间", "目标", "延迟", "丢包", "下行", "上行", "环境")
	for _, e := range entries {
		rec := e.Record
		latency := "X"
		if rec.HasLatency() {
			latency = fmt.Sprintf("%dms", rec.PingLatencyMs)
		}
		fmt.Fprintf(w, "%-19s  %-16s  %8s  %5.1f%%  %12s  %12s  %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
			rec.Target,
			latency,
			rec.PacketLossPercent,
			indicator.FormatRate(rec.DownloadBytesPerSec),
			indicator.FormatRate(rec.UploadBytesPerSec),
			rec.Context,
		)
	}
}

// printRunningConfig 打印运行配置信息
func printRunningConfig(config *AppConfig) {
	fmt.Printf("目标地址: %s\n", config.Target)
	fmt.Printf("采样间隔: %v\n", config.Interval)
	fmt.Printf("采样超时: %v\n", config.PingerConfig.Timeout)
	fmt.Printf("丢包窗口: %d\n", config.MonitorConfig.LossWindowSize)
	if config.DBPath != "" {
		fmt.Printf("历史数据库: %s\n", config.DBPath)
	}
	if config.MetricsAddr != "" {
		fmt.Printf("指标地址: %s\n", config.MetricsAddr)
	}
}
