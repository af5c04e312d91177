package monitor

import (
	"sync"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// Broadcaster 将每条记录分发给所有订阅者
// 每个订阅者拥有无界邮箱和独立的投递goroutine，慢订阅者不会阻塞发布方或其他订阅者
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBroadcaster 创建分发器
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscription 一个订阅，按发布顺序接收记录
type Subscription struct {
	b   *Broadcaster
	out chan core.MetricsRecord

	mu       sync.Mutex
	queue    []core.MetricsRecord
	draining bool // 分发器已关闭：投递完剩余记录后关闭输出通道

	signal    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe 新建订阅，buffer为输出通道缓冲大小
func (b *Broadcaster) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	s := &Subscription{
		b:      b,
		out:    make(chan core.MetricsRecord, buffer),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		s.draining = true
		s.notify()
	} else {
		b.subs[s] = struct{}{}
	}
	b.mu.Unlock()

	go s.pump()
	return s
}

// Publish 将记录放入每个订阅者的邮箱，不会阻塞
func (b *Broadcaster) Publish(rec core.MetricsRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		s.enqueue(rec)
	}
}

// Len 当前订阅者数量
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close 关闭分发器，订阅者收完已发布的记录后通道关闭
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.mu.Lock()
		s.draining = true
		s.mu.Unlock()
		s.notify()
	}
	b.subs = nil
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}

// C 返回接收记录的通道
func (s *Subscription) C() <-chan core.MetricsRecord {
	return s.out
}

// Close 取消订阅，未投递的记录被丢弃，可重复调用
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.b.remove(s)
		close(s.done)
	})
}

// Pending 邮箱中尚未投递的记录数
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subscription) enqueue(rec core.MetricsRecord) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, rec)
	s.mu.Unlock()
	s.notify()
}

func (s *Subscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// next 取出邮箱中最旧的记录；finished表示邮箱已空且不会再有新记录
func (s *Subscription) next() (rec core.MetricsRecord, ok, finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return rec, false, s.draining
	}
	rec = s.queue[0]
	s.queue[0] = core.MetricsRecord{}
	s.queue = s.queue[1:]
	return rec, true, false
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		select {
		case <-s.signal:
		case <-s.done:
			return
		}

		for {
			rec, ok, finished := s.next()
			if finished {
				return
			}
			if !ok {
				break
			}
			select {
			case s.out <- rec:
			case <-s.done:
				return
			}
		}
	}
}
