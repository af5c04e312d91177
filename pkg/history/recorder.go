package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

// saveTimeout 单条记录的写入超时
const saveTimeout = 2 * time.Second

// Recorder 消费订阅中的记录并写入存储
// 每次运行使用新的会话ID，写入失败只记录日志，不中断消费
type Recorder struct {
	store         *Store
	label         string
	retentionDays int
	sessionID     string
}

// NewRecorder 创建记录器，label写入每条记录的Context字段
func NewRecorder(store *Store, label string, retentionDays int) *Recorder {
	return &Recorder{
		store:         store,
		label:         label,
		retentionDays: retentionDays,
		sessionID:     uuid.NewString(),
	}
}

// SessionID 返回本次运行的会话ID
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Run 先清理过期数据，再持续写入记录，直到ctx结束或通道关闭
func (r *Recorder) Run(ctx context.Context, records <-chan core.MetricsRecord) error {
	if r.retentionDays > 0 {
		n, err := r.store.DeleteOlderThan(ctx, r.retentionDays)
		if err != nil {
			logger.Error("清理过期记录失败", "err", err)
		} else if n > 0 {
			logger.Info("已清理过期记录", "count", n, "days", r.retentionDays)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			r.save(ctx, rec.WithContext(r.label))
		}
	}
}

func (r *Recorder) save(ctx context.Context, rec core.MetricsRecord) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()
	if err := r.store.Save(ctx, rec, r.sessionID); err != nil {
		logger.Error("保存记录失败", "err", err)
	}
}
