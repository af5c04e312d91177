package history

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kevin-Rudy/gonetwatch/pkg/core"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "metrics.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(ts time.Time, latency int64) core.MetricsRecord {
	return core.MetricsRecord{
		Timestamp:           ts,
		Target:              "8.8.8.8",
		PingSuccess:         latency >= 0,
		PingLatencyMs:       latency,
		DownloadBytesPerSec: 2048,
		UploadBytesPerSec:   512,
		PacketLossPercent:   5,
	}
}

func TestSaveAndQueryRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	lat, lon := 52.52, 13.405
	rec := sample(base, 23)
	rec.Latitude, rec.Longitude = &lat, &lon
	rec.Context = "Home"
	require.NoError(t, s.Save(ctx, rec, "session-1"))
	require.NoError(t, s.Save(ctx, sample(base.Add(time.Minute), core.NoLatency), "session-1"))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// 从新到旧
	assert.False(t, entries[0].Record.PingSuccess)
	assert.Equal(t, core.NoLatency, entries[0].Record.PingLatencyMs)
	assert.Nil(t, entries[0].Record.Latitude)

	got := entries[1]
	assert.Equal(t, "session-1", got.SessionID)
	assert.True(t, got.Record.Timestamp.Equal(base))
	assert.True(t, got.Record.PingSuccess)
	assert.Equal(t, int64(23), got.Record.PingLatencyMs)
	assert.Equal(t, "8.8.8.8", got.Record.Target)
	assert.Equal(t, "Home", got.Record.Context)
	assert.Equal(t, 2048.0, got.Record.DownloadBytesPerSec)
	assert.Equal(t, 512.0, got.Record.UploadBytesPerSec)
	assert.Equal(t, 5.0, got.Record.PacketLossPercent)
	require.NotNil(t, got.Record.Latitude)
	assert.InDelta(t, lat, *got.Record.Latitude, 1e-9)
	assert.InDelta(t, lon, *got.Record.Longitude, 1e-9)
}

func TestQueryRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Save(ctx, sample(base.Add(time.Duration(i)*time.Hour), int64(i)), "s"))
	}

	entries, err := s.Query(ctx, base.Add(2*time.Hour), base.Add(5*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, int64(5), entries[0].Record.PingLatencyMs)
	assert.Equal(t, int64(2), entries[3].Record.PingLatencyMs)

	entries, err = s.Query(ctx, base, base.Add(9*time.Hour), 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = s.Query(ctx, base.Add(5*time.Hour), base.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteOlderThan(t *testing.T) {
	mock := clock.NewMock()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	mock.Set(now)
	s := openTestStore(t, WithClock(mock))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample(now.AddDate(0, 0, -40), 1), "s"))
	require.NoError(t, s.Save(ctx, sample(now.AddDate(0, 0, -31), 2), "s"))
	require.NoError(t, s.Save(ctx, sample(now.AddDate(0, 0, -1), 3), "s"))

	n, err := s.DeleteOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].Record.PingLatencyMs)

	_, err = s.DeleteOlderThan(ctx, 0)
	assert.Error(t, err)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sample(time.Now(), 10), "s"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDSNEscapesPath(t *testing.T) {
	assert.Equal(t,
		"file:/tmp/a%3fb%23c%25d.db?_pragma=busy_timeout=5000&_pragma=journal_mode=WAL",
		dsn("/tmp/a?b#c%d.db"))
}

func TestOpenPathWithURIChars(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Windows文件名不允许?字符")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "odd?name#1%20.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, sample(time.Now(), 10), "s"))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "odd"))
	assert.True(t, os.IsNotExist(err))

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecorderStampsLabelAndSession(t *testing.T) {
	mock := clock.NewMock()
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	mock.Set(now)
	s := openTestStore(t, WithClock(mock))
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample(now.AddDate(0, 0, -90), 1), "old"))

	r := NewRecorder(s, "Office", 30)
	assert.Len(t, r.SessionID(), 36)

	records := make(chan core.MetricsRecord, 3)
	records <- sample(now, 11)
	records <- sample(now.Add(time.Second), 12)
	close(records)
	require.NoError(t, r.Run(ctx, records))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "Office", e.Record.Context)
		assert.Equal(t, r.SessionID(), e.SessionID)
	}

	other := NewRecorder(s, "", 0)
	assert.NotEqual(t, r.SessionID(), other.SessionID())
}

func TestRecorderStopsOnCancel(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRecorder(s, "", 0).Run(ctx, make(chan core.MetricsRecord))
	assert.ErrorIs(t, err, context.Canceled)
}
