package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kevin-Rudy/gonetwatch/pkg/pinger"
)

// 程序信息常量
const (
	AppName    = "gonetwatch"
	AppVersion = "0.1.0"
	AppDesc    = "网络路径健康监控：延迟、丢包率与吞吐量"
)

// defaultDBPath 返回默认的历史数据库路径
func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", AppName, "metrics.db")
	}
	return filepath.Join(dir, AppName, "metrics.db")
}

// knownTargetsUsage 生成常用目标的帮助文本
func knownTargetsUsage() string {
	s := "探测目标地址，常用:"
	for _, t := range pinger.KnownTargets {
		s += fmt.Sprintf(" %s(%s)", t.Address, t.Name)
	}
	return s
}

// showSystemInfo 显示系统环境和配置信息
func showSystemInfo() {
	fmt.Println("\n系统信息:")
	fmt.Printf("  操作系统: %s\n", pinger.GetOSName())
	fmt.Printf("  权限状态: %s\n", pinger.GetPrivilegeStatus())
	fmt.Printf("  实现方式: %s\n", pinger.GetImplementationType())
}

// printUsageInstructions 显示TUI操作说明
func printUsageInstructions() {
	fmt.Println("操作说明:")
	fmt.Println("  i           - 切换徽标显示")
	fmt.Println("  q 或 Ctrl+C - 退出程序")
	fmt.Println("========================================")
}
