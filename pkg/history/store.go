// Package history 将指标记录持久化到本地SQLite数据库
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	_ "modernc.org/sqlite"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
	"github.com/Kevin-Rudy/gonetwatch/pkg/log"
)

var logger = log.Logger("history")

// DefaultLimit 查询未指定数量时的默认上限
const DefaultLimit = 1000

const schema = `
CREATE TABLE IF NOT EXISTS metrics (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	ts_ms               INTEGER NOT NULL,
	target              TEXT    NOT NULL DEFAULT '',
	ping_success        INTEGER NOT NULL,
	ping_latency_ms     INTEGER NOT NULL,
	download_bps        REAL    NOT NULL,
	upload_bps          REAL    NOT NULL,
	packet_loss_percent REAL    NOT NULL,
	latitude            REAL,
	longitude           REAL,
	context             TEXT    NOT NULL DEFAULT '',
	session_id          TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_metrics_ts ON metrics(ts_ms);`

const selectColumns = `id, ts_ms, target, ping_success, ping_latency_ms, download_bps, upload_bps,
	packet_loss_percent, latitude, longitude, context, session_id`

// dsnPathEscaper SQLite URI文件名中?和#会截断路径，%会被当作转义前缀
var dsnPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn 构造带pragma参数的SQLite URI
func dsn(path string) string {
	return "file:" + dsnPathEscaper.Replace(path) + "?_pragma=busy_timeout=5000&_pragma=journal_mode=WAL"
}

// Entry 一条已持久化的记录
type Entry struct {
	ID        int64
	SessionID string
	Record    core.MetricsRecord
}

// Store SQLite存储
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Option 存储选项
type Option func(*Store)

// WithClock 设置清理过期数据时使用的时间源
func WithClock(clk clock.Clock) Option {
	return func(s *Store) { s.clock = clk }
}

// Open 打开（必要时创建）数据库文件并初始化表结构
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("数据库路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}

	s := &Store{db: db, clock: clock.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Save 写入一条记录
func (s *Store) Save(ctx context.Context, rec core.MetricsRecord, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metrics(ts_ms, target, ping_success, ping_latency_ms, download_bps, upload_bps,
			packet_loss_percent, latitude, longitude, context, session_id)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Timestamp.UnixMilli(),
		rec.Target,
		rec.PingSuccess,
		rec.PingLatencyMs,
		rec.DownloadBytesPerSec,
		rec.UploadBytesPerSec,
		rec.PacketLossPercent,
		nullFloat(rec.Latitude),
		nullFloat(rec.Longitude),
		rec.Context,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("写入记录失败: %w", err)
	}
	return nil
}

// Query 返回[from, to]区间内的记录，按时间从新到旧，to早于from时返回空
func (s *Store) Query(ctx context.Context, from, to time.Time, limit int) ([]Entry, error) {
	if to.Before(from) {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx,
		`SELECT `+selectColumns+` FROM metrics WHERE ts_ms >= ? AND ts_ms <= ? ORDER BY ts_ms DESC, id DESC LIMIT ?`,
		from.UnixMilli(), to.UnixMilli(), limit)
}

// Recent 返回最近的limit条记录，按时间从新到旧
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx,
		`SELECT `+selectColumns+` FROM metrics ORDER BY ts_ms DESC, id DESC LIMIT ?`, limit)
}

// DeleteOlderThan 删除早于days天前的记录，返回删除条数
func (s *Store) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("保留天数必须大于0")
	}
	cutoff := s.clock.Now().AddDate(0, 0, -days)
	res, err := s.db.ExecContext(ctx, `DELETE FROM metrics WHERE ts_ms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("清理过期记录失败: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("查询记录失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			tsMs     int64
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &tsMs, &e.Record.Target, &e.Record.PingSuccess, &e.Record.PingLatencyMs,
			&e.Record.DownloadBytesPerSec, &e.Record.UploadBytesPerSec, &e.Record.PacketLossPercent,
			&lat, &lon, &e.Record.Context, &e.SessionID); err != nil {
			return nil, fmt.Errorf("读取记录失败: %w", err)
		}
		e.Record.Timestamp = time.UnixMilli(tsMs)
		e.Record.Latitude = floatPtr(lat)
		e.Record.Longitude = floatPtr(lon)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
