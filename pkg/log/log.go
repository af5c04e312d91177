// Package log 提供统一的结构化日志接口
//
// 基于标准库 log/slog 封装。各组件通过 Logger(component) 获取懒加载的 logger，
// 每次调用都使用当前的 slog.Default()，因此 Setup 可以在运行时切换输出目标。
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	logFile *os.File
	setupMu sync.Mutex
)

// Options 日志初始化选项
type Options struct {
	Level  slog.Level // 最低输出级别
	File   string     // 追加写入的日志文件，为空表示只输出到 Output
	JSON   bool       // 使用JSON格式
	Output io.Writer  // 主输出，默认 os.Stderr
}

// Setup 初始化默认 logger
//
// 日志同时写入 Output 和 File（若指定）。重复调用会关闭之前打开的文件。
func Setup(opts Options) error {
	setupMu.Lock()
	defer setupMu.Unlock()

	closeFileLocked()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		logFile = f
		out = io.MultiWriter(out, f)
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(handler).With("app", "gonetwatch"))
	return nil
}

// Close 关闭日志文件
func Close() {
	setupMu.Lock()
	defer setupMu.Unlock()
	closeFileLocked()
}

func closeFileLocked() {
	if logFile == nil {
		return
	}
	_ = logFile.Sync()
	_ = logFile.Close()
	logFile = nil
}

// ParseLevel 解析日志级别字符串（debug/info/warn/error）
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("未知的日志级别: %q", s)
	}
}

// LazyLogger 懒加载 logger
//
// 使用方式：
//
//	var logger = log.Logger("monitor")
//	logger.Info("started", "target", target)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.base().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.base().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.base().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.base().Error(msg, args...)
}

// ErrorContext 带 context 的 Error 日志
func (l *LazyLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.base().ErrorContext(ctx, msg, args...)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}
