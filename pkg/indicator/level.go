package indicator

import (
	"image/color"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// Level 指标严重程度
type Level int

const (
	LevelGood     Level = iota // 良好
	LevelFair                  // 可接受
	LevelDegraded              // 需要关注
	LevelBad                   // 差或不可达
)

// String 返回级别名称
func (l Level) String() string {
	switch l {
	case LevelGood:
		return "good"
	case LevelFair:
		return "fair"
	case LevelDegraded:
		return "degraded"
	default:
		return "bad"
	}
}

// Color 返回级别对应的徽标背景色
func (l Level) Color() color.RGBA {
	switch l {
	case LevelGood:
		return color.RGBA{R: 0, G: 150, B: 0, A: 255}
	case LevelFair:
		return color.RGBA{R: 100, G: 180, B: 0, A: 255}
	case LevelDegraded:
		return color.RGBA{R: 230, G: 180, B: 0, A: 255}
	default:
		return color.RGBA{R: 200, G: 0, B: 0, A: 255}
	}
}

// LatencyLevel 按延迟划分级别，失败记录为 LevelBad
func LatencyLevel(rec core.MetricsRecord) Level {
	if !rec.PingSuccess || rec.PingLatencyMs < 0 {
		return LevelBad
	}
	switch {
	case rec.PingLatencyMs < 50:
		return LevelGood
	case rec.PingLatencyMs < 100:
		return LevelFair
	case rec.PingLatencyMs < 200:
		return LevelDegraded
	default:
		return LevelBad
	}
}

// LossLevel 按丢包率划分级别
func LossLevel(percent float64) Level {
	switch {
	case percent < 1:
		return LevelGood
	case percent < 5:
		return LevelFair
	case percent < 10:
		return LevelDegraded
	default:
		return LevelBad
	}
}
