package indicator

// Mode 指示器的呈现方式
type Mode int

const (
	// ModeDisabled 功能关闭，只显示中性状态行
	ModeDisabled Mode = iota
	// ModeFallback 渲染面不可用，只显示状态行文本
	ModeFallback
	// ModeOverlay 绘制徽标
	ModeOverlay
)

// String 返回模式名称
func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeFallback:
		return "fallback"
	case ModeOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// ResolveMode 根据功能开关和渲染能力决定模式
func ResolveMode(featureEnabled, rendererSupported bool) Mode {
	switch {
	case !featureEnabled:
		return ModeDisabled
	case !rendererSupported:
		return ModeFallback
	default:
		return ModeOverlay
	}
}
