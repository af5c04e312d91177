package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Kevin-Rudy/gonetwatch/pkg/alert"
	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/history"
	"github.com/Kevin-Rudy/gonetwatch/pkg/monitor"
)

func parseConfig(t *testing.T, args ...string) (*AppConfig, error) {
	t.Helper()
	var config *AppConfig
	app := &cli.App{
		Name:  AppName,
		Flags: createCliFlags(),
		Action: func(c *cli.Context) error {
			var err error
			config, err = buildConfigFromCLI(c)
			return err
		},
	}
	err := app.Run(append([]string{AppName}, args...))
	return config, err
}

func TestDefaultConfig(t *testing.T) {
	config, err := parseConfig(t)
	require.NoError(t, err)
	require.NoError(t, validateConfig(config))

	assert.Equal(t, "8.8.8.8", config.Target)
	assert.Equal(t, monitor.DefaultInterval, config.Interval)
	assert.Equal(t, 4, config.PingerConfig.IPVersion)
	assert.True(t, config.PingerConfig.AllowTCPFallback)
	assert.Equal(t, alert.DefaultConfig(), config.AlertConfig)
	assert.True(t, config.TUIConfig.IndicatorEnabled)
	assert.Equal(t, 30, config.RetentionDays)
	assert.Empty(t, config.MetricsAddr)
}

func TestTargetFromArgument(t *testing.T) {
	config, err := parseConfig(t, "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", config.Target)

	config, err = parseConfig(t, "--target", "9.9.9.9", "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "9.9.9.9", config.Target)
}

func TestFlagsAndEnv(t *testing.T) {
	t.Setenv("GONETWATCH_INTERVAL", "30s")
	t.Setenv("GONETWATCH_CONTEXT", "Home")

	config, err := parseConfig(t, "-6", "--no-tcp-fallback", "--loss-window", "50", "--cooldown", "1m", "--db", "")
	require.NoError(t, err)
	require.NoError(t, validateConfig(config))

	assert.Equal(t, 30*time.Second, config.Interval)
	assert.Equal(t, "Home", config.ContextLabel)
	assert.Equal(t, 6, config.PingerConfig.IPVersion)
	assert.False(t, config.PingerConfig.AllowTCPFallback)
	assert.Equal(t, 50, config.MonitorConfig.LossWindowSize)
	assert.Equal(t, time.Minute, config.AlertConfig.Cooldown)
	assert.Empty(t, config.DBPath)
}

func TestInvalidConfig(t *testing.T) {
	config, err := parseConfig(t, "--loss-threshold", "150")
	require.NoError(t, err)
	assert.ErrorIs(t, validateConfig(config), alert.ErrInvalidLossThreshold)

	config, err = parseConfig(t, "--interval", "0s")
	require.NoError(t, err)
	assert.ErrorIs(t, validateConfig(config), monitor.ErrInvalidInterval)

	config, err = parseConfig(t, "--target", " ")
	require.NoError(t, err)
	assert.Error(t, validateConfig(config))

	_, err = parseConfig(t, "--log-level", "loud")
	assert.Error(t, err)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, ignoreCanceled(context.Canceled))
	assert.NoError(t, ignoreCanceled(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.NoError(t, ignoreCanceled(nil))

	boom := errors.New("boom")
	assert.ErrorIs(t, ignoreCanceled(boom), boom)
}

func TestSinceRange(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	from, to := sinceRange(now, time.Hour)
	assert.Equal(t, now.Add(-time.Hour), from)
	assert.Equal(t, now, to)
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	printEntries(&buf, nil)
	assert.Contains(t, buf.String(), "没有记录")

	buf.Reset()
	printEntries(&buf, []history.Entry{
		{Record: core.MetricsRecord{
			Timestamp:           time.Now(),
			Target:              "1.1.1.1",
			PingSuccess:         true,
			PingLatencyMs:       23,
			PacketLossPercent:   5,
			DownloadBytesPerSec: 2048,
			Context:             "Office",
		}},
		{Record: core.FailureRecord(time.Now(), "8.8.8.8")},
	})

	out := buf.String()
	assert.Contains(t, out, "23ms")
	assert.Contains(t, out, "5.0%")
	assert.Contains(t, out, "2.00 KB/s")
	assert.Contains(t, out, "Office")
	assert.Contains(t, out, "8.8.8.8")
}

func TestSampleOnce(t *testing.T) {
	var gotTarget string
	sampler := core.SamplerFunc(func(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
		gotTarget = target
		return true, 12, nil
	})

	rec, err := sampleOnce(context.Background(), sampler, " 1.1.1.1 ", monitor.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", gotTarget)
	assert.Equal(t, "1.1.1.1", rec.Target)
	assert.True(t, rec.PingSuccess)
	assert.Equal(t, int64(12), rec.PingLatencyMs)
	assert.Equal(t, 0.0, rec.PacketLossPercent)

	var buf bytes.Buffer
	printSample(&buf, sampler, rec)
	assert.Contains(t, buf.String(), "GoNetWatch - Ping: 12 ms")
	assert.Contains(t, buf.String(), "延迟: 12ms")
}

func TestSampleOnceUnreachable(t *testing.T) {
	sampler := core.SamplerFunc(func(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
		return false, core.NoLatency, errors.New("unreachable")
	})

	rec, err := sampleOnce(context.Background(), sampler, "10.255.255.1", monitor.DefaultConfig())
	require.NoError(t, err)
	assert.False(t, rec.PingSuccess)

	var buf bytes.Buffer
	printSample(&buf, sampler, rec)
	assert.Contains(t, buf.String(), "GoNetWatch - Ping: unavailable")
	assert.Contains(t, buf.String(), "不可达")
}

func TestSampleOnceRejectsEmptyTarget(t *testing.T) {
	called := false
	sampler := core.SamplerFunc(func(ctx context.Context, target string, timeout time.Duration) (bool, int64, error) {
		called = true
		return true, 1, nil
	})

	_, err := sampleOnce(context.Background(), sampler, "  ", monitor.DefaultConfig())
	assert.Error(t, err)
	assert.False(t, called)
}

func TestSampleCommandUsesGlobalFlags(t *testing.T) {
	var config *AppConfig
	app := &cli.App{
		Name:  AppName,
		Flags: createCliFlags(),
		Commands: []*cli.Command{{
			Name: "probe",
			Action: func(c *cli.Context) error {
				var err error
				config, err = buildConfigFromCLI(c)
				return err
			},
		}},
	}
	require.NoError(t, app.Run([]string{AppName, "--ipv6", "--timeout", "2s", "probe", "::1"}))
	require.NotNil(t, config)
	assert.Equal(t, "::1", config.Target)
	assert.Equal(t, 6, config.PingerConfig.IPVersion)
	assert.Equal(t, 2*time.Second, config.PingerConfig.Timeout)

	var found bool
	for _, cmd := range createCommands() {
		if cmd.Name == "probe" {
			found = cmd.Action != nil
		}
	}
	assert.True(t, found, "probe command should be registered")
}
