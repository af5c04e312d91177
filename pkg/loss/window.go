// Package loss 基于固定容量滑动窗口估算丢包率
package loss

// DefaultCapacity 默认窗口容量
const DefaultCapacity = 20

// Window 固定容量的FIFO结果窗口
// 满了之后先淘汰最旧的结果再写入新结果。非并发安全，由单个tick循环独占。
type Window struct {
	buf   []bool
	head  int // 最旧元素的位置
	size  int
	fails int
}

// NewWindow 创建指定容量的窗口，capacity<=0时使用默认容量
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{buf: make([]bool, capacity)}
}

// Push 写入一个结果
func (w *Window) Push(ok bool) {
	if w.size == len(w.buf) {
		// 淘汰最旧的
		if !w.buf[w.head] {
			w.fails--
		}
		w.buf[w.head] = ok
		w.head = (w.head + 1) % len(w.buf)
	} else {
		w.buf[(w.head+w.size)%len(w.buf)] = ok
		w.size++
	}
	if !ok {
		w.fails++
	}
}

// Len 当前结果数
func (w *Window) Len() int { return w.size }

// Cap 窗口容量
func (w *Window) Cap() int { return len(w.buf) }

// Failures 窗口内失败次数
func (w *Window) Failures() int { return w.fails }

// LossPercent 返回 100*失败数/结果数，空窗口为0
func (w *Window) LossPercent() float64 {
	if w.size == 0 {
		return 0
	}
	return 100 * float64(w.fails) / float64(w.size)
}

// Outcomes 按从旧到新的顺序返回窗口内容的副本
func (w *Window) Outcomes() []bool {
	out := make([]bool, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Reset 清空窗口
func (w *Window) Reset() {
	w.head, w.size, w.fails = 0, 0, 0
}

// Estimator 丢包率估算器
type Estimator struct {
	window *Window
}

// NewEstimator 创建估算器
func NewEstimator(capacity int) *Estimator {
	return &Estimator{window: NewWindow(capacity)}
}

// Record 记录一次采样结果
func (e *Estimator) Record(ok bool) {
	e.window.Push(ok)
}

// CurrentLossPercent 返回当前窗口的丢包率
func (e *Estimator) CurrentLossPercent() float64 {
	return e.window.LossPercent()
}

// Window 返回底层窗口
func (e *Estimator) Window() *Window {
	return e.window
}

// Reset 清空历史
func (e *Estimator) Reset() {
	e.window.Reset()
}
