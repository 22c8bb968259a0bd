package conversation

import (
	"context"
	"os"
	"testing"
	"time"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	addr := os.Getenv("HAL_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	s := NewRedisStore(addr, "", 15, "hal:test:"+t.Name()+":", time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	c := NewContext("r1", time.Now().UTC())
	c.CurrentTopic = "CS 149"
	c.MentionedCourses = []string{"CS 149"}
	if err := s.Save(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.CurrentTopic != "CS 149" {
		t.Fatalf("Load() = %+v", got)
	}
	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Load(ctx, "r1"); got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestRedisStore_EmptySession(t *testing.T) {
	s := NewRedisStore("localhost:0", "", 0, "", time.Minute)
	defer s.Close()
	if _, err := s.Load(context.Background(), ""); err == nil {
		t.Error("expected error for empty session id")
	}
}
