package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/Kevin-Rudy/gonetwatch/pkg/alert"
	"github.com/Kevin-Rudy/gonetwatch/pkg/indicator"
	"github.com/Kevin-Rudy/gonetwatch/pkg/loss"
	"github.com/Kevin-Rudy/gonetwatch/pkg/monitor"
	"github.com/Kevin-Rudy/gonetwatch/pkg/pinger"
	"github.com/Kevin-Rudy/gonetwatch/pkg/traffic"
)

// envPrefix 环境变量前缀
const envPrefix = "GONETWATCH_"

func env(name string) []string {
	return []string{envPrefix + name}
}

// createCliApp 创建CLI应用实例
func createCliApp() *cli.App {
	app := &cli.App{
		Name:    AppName,
		Version: AppVersion,
		Usage:   AppDesc,
		Flags:   createCliFlags(),
		Action:  runApp,
		Before: func(c *cli.Context) error {
			// .env 不存在时忽略，已有的环境变量优先
			if err := godotenv.Load(); err == nil {
				fmt.Println("已加载 .env")
			}
			return nil
		},
		ArgsUsage: "[目标主机]",
	}

	// 添加子命令
	app.Commands = createCommands()

	return app
}

// createCliFlags 创建CLI参数定义
func createCliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Value:   "8.8.8.8",
			Usage:   knownTargetsUsage(),
			EnvVars: env("TARGET"),
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"n"},
			Value:   monitor.DefaultInterval,
			Usage:   "采样间隔 (例如: 5s, 1m)",
			EnvVars: env("INTERVAL"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Value:   monitor.DefaultSampleTimeout,
			Usage:   "单次采样超时 (例如: 3s, 1000ms)",
			EnvVars: env("TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "ipv6",
			Aliases: []string{"6"},
			Usage:   "使用IPv6进行探测",
			EnvVars: env("IPV6"),
		},
		&cli.IntFlag{
			Name:    "tcp-port",
			Value:   pinger.DefaultTCPPort,
			Usage:   "ICMP不可用时TCP连接测时使用的端口",
			EnvVars: env("TCP_PORT"),
		},
		&cli.BoolFlag{
			Name:    "no-tcp-fallback",
			Usage:   "ICMP不可用时不回退到TCP连接测时",
			EnvVars: env("NO_TCP_FALLBACK"),
		},
		&cli.DurationFlag{
			Name:    "throughput-interval",
			Value:   traffic.DefaultInterval,
			Usage:   "吞吐量测量周期",
			EnvVars: env("THROUGHPUT_INTERVAL"),
		},
		&cli.IntFlag{
			Name:    "loss-window",
			Value:   loss.DefaultCapacity,
			Usage:   "丢包率滑动窗口大小",
			EnvVars: env("LOSS_WINDOW"),
		},
		&cli.Int64Flag{
			Name:    "latency-threshold",
			Value:   alert.DefaultLatencyThresholdMs,
			Usage:   "延迟告警阈值 (ms)",
			EnvVars: env("LATENCY_THRESHOLD"),
		},
		&cli.Float64Flag{
			Name:    "loss-threshold",
			Value:   alert.DefaultLossThresholdPercent,
			Usage:   "丢包率告警阈值 (%)",
			EnvVars: env("LOSS_THRESHOLD"),
		},
		&cli.DurationFlag{
			Name:    "cooldown",
			Value:   alert.DefaultCooldown,
			Usage:   "两次异常告警之间的最小间隔",
			EnvVars: env("COOLDOWN"),
		},
		&cli.BoolFlag{
			Name:    "indicator",
			Value:   true,
			Usage:   "显示延迟徽标",
			EnvVars: env("INDICATOR"),
		},
		&cli.DurationFlag{
			Name:    "indicator-refresh",
			Value:   indicator.DefaultMinInterval,
			Usage:   "徽标最小刷新间隔",
			EnvVars: env("INDICATOR_REFRESH"),
		},
		&cli.StringFlag{
			Name:    "db",
			Value:   defaultDBPath(),
			Usage:   "历史数据库路径，为空表示不保存",
			EnvVars: env("DB"),
		},
		&cli.IntFlag{
			Name:    "retention-days",
			Value:   30,
			Usage:   "历史记录保留天数，0表示不清理",
			EnvVars: env("RETENTION_DAYS"),
		},
		&cli.StringFlag{
			Name:    "context",
			Usage:   "写入每条记录的环境标签 (例如: Home)",
			EnvVars: env("CONTEXT"),
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Prometheus指标监听地址 (例如: :9105)，为空表示关闭",
			EnvVars: env("METRICS_ADDR"),
		},
		&cli.BoolFlag{
			Name:    "headless",
			Usage:   "不启动界面，只输出日志",
			EnvVars: env("HEADLESS"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "日志级别 (debug/info/warn/error)",
			EnvVars: env("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "追加写入的日志文件",
			EnvVars: env("LOG_FILE"),
		},
		&cli.BoolFlag{
			Name:    "log-json",
			Usage:   "使用JSON格式输出日志",
			EnvVars: env("LOG_JSON"),
		},
	}
}

// createCommands 创建子命令
func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "显示详细版本信息",
			Action: func(c *cli.Context) error {
				fmt.Printf("%s v%s\n", AppName, AppVersion)
				fmt.Printf("描述: %s\n", AppDesc)
				fmt.Printf("系统: %s\n", pinger.GetOSName())
				fmt.Printf("实现: %s\n", pinger.GetImplementationType())
				return nil
			},
		},
		{
			Name:      "probe",
			Usage:     "对目标采样一次并输出结果，不进入界面",
			ArgsUsage: "[目标地址]",
			Action:    runProbe,
		},
		{
			Name:   "history",
			Usage:  "显示已保存的历史记录",
			Action: runHistory,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "db",
					Value:   defaultDBPath(),
					Usage:   "历史数据库路径",
					EnvVars: env("DB"),
				},
				&cli.IntFlag{
					Name:    "limit",
					Aliases: []string{"l"},
					Value:   20,
					Usage:   "最多显示的记录数",
				},
				&cli.DurationFlag{
					Name:  "since",
					Usage: "只显示最近这段时间内的记录 (例如: 1h)，0表示不限",
				},
			},
		},
	}
}

// sinceRange 把 --since 转换为查询区间
func sinceRange(now time.Time, since time.Duration) (from, to time.Time) {
	return now.Add(-since), now
}
