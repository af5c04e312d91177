package indicator

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("indicator")

// DefaultMinInterval 两次徽标刷新之间的默认最小间隔
const DefaultMinInterval = 2 * time.Second

// ErrUnsupported 渲染面不支持绘制徽标
var ErrUnsupported = errors.New("渲染面不支持徽标")

// Config 渲染器配置
type Config struct {
	MinInterval time.Duration
	Painter     Painter
	Clock       clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MinInterval: DefaultMinInterval,
		Painter:     NewBadgePainter(),
		Clock:       clock.New(),
	}
}

// Validate 验证配置的合理性
func (c *Config) Validate() error {
	if c.MinInterval < 0 {
		return errors.New("最小刷新间隔不能为负数")
	}
	if c.Painter == nil {
		return errors.New("绘制器不能为空")
	}
	if c.Clock == nil {
		return errors.New("时间源不能为空")
	}
	return nil
}

// Option 配置选项函数类型
type Option func(*Config)

// WithMinInterval 设置最小刷新间隔
func WithMinInterval(d time.Duration) Option {
	return func(c *Config) { c.MinInterval = d }
}

// WithPainter 设置绘制器
func WithPainter(p Painter) Option {
	return func(c *Config) { c.Painter = p }
}

// WithClock 设置时间源
func WithClock(clk clock.Clock) Option {
	return func(c *Config) { c.Clock = clk }
}

// State 渲染器缓存状态
type State struct {
	LastRenderedAt   time.Time   // 上次生成徽标的时间，零值表示从未生成
	LastRenderedText string      // 上次徽标上的文本
	CachedImage      image.Image // 上次生成的徽标
}

// Update 一次渲染决策的结果
type Update struct {
	Image           image.Image // 需要显示的徽标，nil表示不显示
	StatusLine      string      // 状态行文本，总是有值
	UseFallbackOnly bool        // 渲染面不可用，调用方只能使用状态行
	Text            string      // 徽标文本，关闭时为空
	Refreshed       bool        // 本次是否重新生成了徽标
	Mode            Mode        // 本次采用的呈现方式
}

// Renderer 指示器渲染器
// 缓存状态只由 BuildUpdate 修改
type Renderer struct {
	config *Config

	mu         sync.Mutex
	state      State
	downgraded bool
	reason     error
}

// NewRenderer 创建渲染器
func NewRenderer(config *Config) (*Renderer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Renderer{config: config}, nil
}

// NewRendererWithOptions 使用选项模式创建渲染器
func NewRendererWithOptions(opts ...Option) (*Renderer, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return NewRenderer(config)
}

// BuildUpdate 根据记录生成本次的显示决策
func (r *Renderer) BuildUpdate(rec core.MetricsRecord, featureEnabled, rendererSupported bool) Update {
	r.mu.Lock()
	defer r.mu.Unlock()

	text := FormatIndicatorText(rec)
	status := FormatStatusLine(rec)
	fallback := Update{StatusLine: status, UseFallbackOnly: true, Text: text, Mode: ModeFallback}

	switch ResolveMode(featureEnabled, rendererSupported && !r.downgraded) {
	case ModeDisabled:
		r.state = State{}
		return Update{StatusLine: NeutralStatusLine, Mode: ModeDisabled}
	case ModeFallback:
		return fallback
	}

	now := r.config.Clock.Now()
	refreshed := false
	if ShouldRefresh(now, r.state.LastRenderedAt, text, r.state.LastRenderedText, r.config.MinInterval) {
		img, err := r.paint(text, LatencyLevel(rec))
		if err != nil {
			r.downgradeLocked(err)
			return fallback
		}
		r.state = State{LastRenderedAt: now, LastRenderedText: text, CachedImage: img}
		refreshed = true
	}

	return Update{
		Image:      r.state.CachedImage,
		StatusLine: status,
		Text:       text,
		Refreshed:  refreshed,
		Mode:       ModeOverlay,
	}
}

// paint 调用绘制器，panic按错误处理
func (r *Renderer) paint(text string, level Level) (img image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("绘制徽标panic: %v", p)
		}
	}()
	img, err = r.config.Painter.Paint(text, level)
	if err == nil && img == nil {
		err = ErrUnsupported
	}
	return img, err
}

// ReportUnsupported 报告渲染失败，本会话内永久降级为文本模式
func (r *Renderer) ReportUnsupported(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downgradeLocked(err)
}

func (r *Renderer) downgradeLocked(err error) {
	if r.downgraded {
		return
	}
	if err == nil {
		err = ErrUnsupported
	}
	r.downgraded = true
	r.reason = err
	r.state.CachedImage = nil
	logger.Warn("徽标渲染不可用，降级为文本状态", "err", err)
}

// Supported 返回渲染面是否仍可用
func (r *Renderer) Supported() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.downgraded
}

// DowngradeReason 返回降级原因，未降级时为nil
func (r *Renderer) DowngradeReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Mode 返回在给定功能开关下的实际呈现方式
func (r *Renderer) Mode(featureEnabled bool) Mode {
	return ResolveMode(featureEnabled, r.Supported())
}

// State 返回缓存状态的副本
func (r *Renderer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
