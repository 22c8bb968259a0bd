package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/conversation"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/vector"
)

func TestScheduler_AddValidation(t *testing.T) {
	s := New(zap.NewNop())
	noop := func(context.Context) error { return nil }

	if err := s.Add("bad", "every now and then", noop); err == nil {
		t.Error("expected invalid schedule error")
	}
	if err := s.Add("ok", "*/5 * * * *", noop); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("ok", "@hourly", noop); err == nil {
		t.Error("expected duplicate job error")
	}
	if got := s.Jobs(); len(got) != 1 || got[0] != "ok" {
		t.Errorf("Jobs() = %v", got)
	}
	if err := s.Run(context.Background(), "missing"); err == nil {
		t.Error("expected unknown job error")
	}
}

func TestScheduler_Fires(t *testing.T) {
	s := New(zap.NewNop())
	var runs atomic.Int32
	if err := s.Add("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("failures are logged, not fatal")
	}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	deadline := time.Now().Add(4 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runs.Load() < 2 {
		t.Errorf("job ran %d times, want at least 2", runs.Load())
	}
}

func TestReapSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := conversation.NewManager(nil, nil, conversation.WithClock(clock), conversation.WithTimeout(30*time.Minute))
	ctx := context.Background()
	if err := m.AddUserMessage(ctx, "old", "hello"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(31 * time.Minute)
	if err := m.AddUserMessage(ctx, "fresh", "hello"); err != nil {
		t.Fatal(err)
	}

	s := New(zap.NewNop())
	if err := s.Add(JobReapSessions, "@every 1h", ReapSessions(m)); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(ctx, JobReapSessions); err != nil {
		t.Fatal(err)
	}
	n, err := m.Reap(ctx)
	if err != nil || n != 0 {
		t.Errorf("second reap removed %d (%v); first run should have removed the idle session", n, err)
	}
}

func TestSnapshotVectors(t *testing.T) {
	idx, err := vector.NewMemoryIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := idx.Upsert(ctx, []vector.Item{{ID: "course:cs-149", Tag: "course", Vector: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "vectors.bin")
	if err := SnapshotVectors(idx, path, zap.NewNop())(ctx); err != nil {
		t.Fatal(err)
	}

	loaded, _ := vector.NewMemoryIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 1 {
		t.Errorf("loaded size = %d", loaded.Size())
	}
}
