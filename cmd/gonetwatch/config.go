package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Kevin-Rudy/gonetwatch/pkg/alert"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
	"github.com/Kevin-Rudy/gonetwatch/pkg/monitor"
	"github.com/Kevin-Rudy/gonetwatch/pkg/pinger"
	"github.com/Kevin-Rudy/gonetwatch/pkg/tui"
)

// AppConfig 应用层配置聚合
type AppConfig struct {
	Target   string
	Interval time.Duration

	PingerConfig    *pinger.Config
	MonitorConfig   *monitor.Config
	AlertConfig     alert.Config
	IndicatorConfig *indicator.Config
	TUIConfig       *tui.Config

	DBPath        string // 为空表示不持久化
	RetentionDays int
	ContextLabel  string
	MetricsAddr   string // 为空表示不提供/metrics
	Headless      bool

	LogOptions log.Options
}

// buildConfigFromCLI 从命令行参数构建配置
func buildConfigFromCLI(c *cli.Context) (*AppConfig, error) {
	target := c.String("target")
	if c.NArg() > 0 && !c.IsSet("target") {
		target = c.Args().First()
	}

	// 构建 pinger 配置
	pingerConfig := pinger.DefaultConfig()
	if c.Bool("ipv6") {
		pingerConfig.IPVersion = 6
	}
	pingerConfig.Timeout = c.Duration("timeout")
	pingerConfig.TCPPort = c.Int("tcp-port")
	pingerConfig.AllowTCPFallback = !c.Bool("no-tcp-fallback")

	// 构建 monitor 配置
	monitorConfig := monitor.DefaultConfig()
	monitorConfig.SampleTimeout = c.Duration("timeout")
	monitorConfig.ThroughputInterval = c.Duration("throughput-interval")
	monitorConfig.LossWindowSize = c.Int("loss-window")

	// 构建告警配置
	alertConfig := alert.Config{
		LatencyThresholdMs:   c.Int64("latency-threshold"),
		LossThresholdPercent: c.Float64("loss-threshold"),
		Cooldown:             c.Duration("cooldown"),
	}

	indicatorConfig := indicator.DefaultConfig()
	indicatorConfig.MinInterval = c.Duration("indicator-refresh")

	tuiConfig := tui.NewConfigWithOptions(tui.WithIndicator(c.Bool("indicator")))

	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		Target:          target,
		Interval:        c.Duration("interval"),
		PingerConfig:    pingerConfig,
		MonitorConfig:   monitorConfig,
		AlertConfig:     alertConfig,
		IndicatorConfig: indicatorConfig,
		TUIConfig:       tuiConfig,
		DBPath:          c.String("db"),
		RetentionDays:   c.Int("retention-days"),
		ContextLabel:    c.String("context"),
		MetricsAddr:     c.String("metrics-addr"),
		Headless:        c.Bool("headless"),
		LogOptions: log.Options{
			Level: level,
			File:  c.String("log-file"),
			JSON:  c.Bool("log-json"),
		},
	}, nil
}

// validateConfig 验证配置的合理性
func validateConfig(config *AppConfig) error {
	if err := pinger.ValidateTarget(config.Target); err != nil {
		return err
	}

	if config.Interval <= 0 {
		return monitor.ErrInvalidInterval
	}

	// 验证 pinger 配置
	if err := config.PingerConfig.Validate(); err != nil {
		return fmt.Errorf("pinger配置错误: %w", err)
	}

	// 验证 monitor 配置
	if err := config.MonitorConfig.Validate(); err != nil {
		return fmt.Errorf("monitor配置错误: %w", err)
	}

	if err := config.AlertConfig.Validate(); err != nil {
		return fmt.Errorf("告警配置错误: %w", err)
	}

	if err := config.IndicatorConfig.Validate(); err != nil {
		return fmt.Errorf("徽标配置错误: %w", err)
	}

	// 验证 TUI 配置
	if err := config.TUIConfig.Validate(); err != nil {
		return fmt.Errorf("tui配置错误: %w", err)
	}

	if config.RetentionDays < 0 {
		return errors.New("保留天数不能为负数")
	}

	return nil
}
