package conversation

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	m := NewManager(NewMemoryStore(), entity.NewExtractor(nil), WithClock(clock.Now), WithLogger(zap.NewNop()))
	return m, clock
}

func TestManager_TracksCourses(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.AddUserMessage(ctx, "s1", "What's the prerequisite for CS 149?"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddUserMessage(ctx, "s1", "and cmpe 120 or CS 146?"); err != nil {
		t.Fatal(err)
	}
	c, err := m.GetContext(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if c.CurrentTopic != "CS 146" {
		t.Errorf("CurrentTopic = %q, want CS 146", c.CurrentTopic)
	}
	want := []string{"CS 149", "CMPE 120", "CS 146"}
	if !reflect.DeepEqual(c.MentionedCourses, want) {
		t.Errorf("MentionedCourses = %v, want %v", c.MentionedCourses, want)
	}
}

func TestManager_AssistantMessagesDoNotSetTopic(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_ = m.AddAssistantMessage(ctx, "s1", "CS 149 requires CS 146.")
	c, _ := m.GetContext(ctx, "s1")
	if c.CurrentTopic != "" || len(c.MentionedCourses) != 0 {
		t.Errorf("assistant turn changed topic: %+v", c)
	}
	if len(c.Messages) != 1 || c.Messages[0].Role != models.RoleAssistant {
		t.Errorf("messages = %+v", c.Messages)
	}
}

func TestManager_SessionTimeout(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	_ = m.AddUserMessage(ctx, "s1", "Tell me about CS 149")
	clock.Advance(31 * time.Minute)

	c, err := m.GetContext(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.MentionedCourses) != 0 || len(c.Messages) != 0 || c.CurrentTopic != "" {
		t.Errorf("expired context was not replaced: %+v", c)
	}
}

func TestManager_ActivityWithinTimeoutKeepsContext(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	_ = m.AddUserMessage(ctx, "s1", "Tell me about CS 149")
	clock.Advance(29 * time.Minute)
	c, _ := m.GetContext(ctx, "s1")
	if c.CurrentTopic != "CS 149" {
		t.Errorf("context lost before timeout: %+v", c)
	}
}

func TestManager_ResolveReferences(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	got, modified, err := m.ResolveReferences(ctx, "s1", "that class")
	if err != nil {
		t.Fatal(err)
	}
	if modified || got != "that class" {
		t.Errorf("no antecedent: got %q, %v", got, modified)
	}

	_ = m.AddUserMessage(ctx, "s1", "What's the prerequisite for CS 149?")
	got, modified, _ = m.ResolveReferences(ctx, "s1", "Is That Class hard?")
	if !modified || got != "Is CS 149 hard?" {
		t.Errorf("got %q, %v", got, modified)
	}

	again, modified, _ := m.ResolveReferences(ctx, "s1", got)
	if modified || again != got {
		t.Errorf("re-resolving should be a no-op, got %q, %v", again, modified)
	}
}

func TestContext_ResolvePlural(t *testing.T) {
	c := NewContext("s", time.Now())
	c.MentionedCourses = []string{"CS 46A", "CS 46B", "CS 146", "CS 149"}
	c.CurrentTopic = "CS 149"

	got, modified := c.Resolve("do I need all of them")
	if !modified || got != "do I need all of CS 46B, CS 146, CS 149" {
		t.Errorf("got %q, %v", got, modified)
	}
}

func TestManager_ResolveTopicWithPronounDepartment(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	if err := m.AddUserMessage(ctx, "s1", "Tell me about IT 101"); err != nil {
		t.Fatal(err)
	}

	got, modified, err := m.ResolveReferences(ctx, "s1", "is that class hard?")
	if err != nil {
		t.Fatal(err)
	}
	if !modified || got != "is IT 101 hard?" {
		t.Fatalf("got %q, %v", got, modified)
	}

	again, modified, err := m.ResolveReferences(ctx, "s1", got)
	if err != nil {
		t.Fatal(err)
	}
	if modified || again != got {
		t.Errorf("re-resolving changed the query: %q, %v", again, modified)
	}
}

func TestContext_ResolveSinglePass(t *testing.T) {
	c := NewContext("s", time.Now())
	c.MentionedCourses = []string{"IT 101"}
	c.CurrentTopic = "IT 101"

	tests := []struct {
		query    string
		want     string
		modified bool
	}{
		{"is it hard?", "is IT 101 hard?", true},
		{"is it like this one?", "is IT 101 like IT 101 one?", true},
		{"do those count?", "do IT 101 count?", true},
		{"IT 101 prereqs", "IT 101 prereqs", false},
		{"it 101 and it", "it 101 and IT 101", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, modified := c.Resolve(tt.query)
			if got != tt.want || modified != tt.modified {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.query, got, modified, tt.want, tt.modified)
			}
		})
	}
}

func TestNeedsContext(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"that class", true},
		{"What about CS 146", true},
		{"Is there a waitlist for the fall semester", true},
		{"what's next", true},
		{"CS 149 prereqs", true},
		{"How do I apply for graduation this semester", true},
		{"How do I apply for graduation in spring", false},
		{"What are the prerequisites for CS 149", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := NeedsContext(tt.query); got != tt.want {
				t.Errorf("NeedsContext(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestTruncateHistory(t *testing.T) {
	ext := entity.NewExtractor(nil)
	long := strings.Repeat("x", 2000)
	msgs := []models.Message{
		{Role: models.RoleUser, Content: "Tell me about CS 149 " + long},
		{Role: models.RoleAssistant, Content: long},
		{Role: models.RoleUser, Content: "and CMPE 120? " + long},
		{Role: models.RoleAssistant, Content: long},
		{Role: models.RoleUser, Content: "ok"},
		{Role: models.RoleAssistant, Content: "fine"},
		{Role: models.RoleUser, Content: "thanks"},
		{Role: models.RoleAssistant, Content: "sure"},
	}

	out := TruncateHistory(msgs, 10, 2000, ext)
	if len(out) != 5 {
		t.Fatalf("len = %d, want 5", len(out))
	}
	if out[0].Role != models.RoleSystem || out[0].Content != "Earlier in this conversation: Discussed: CS 149, CMPE 120" {
		t.Errorf("summary = %+v", out[0])
	}
	if out[4].Content != "sure" {
		t.Errorf("last message = %q", out[4].Content)
	}

	short := TruncateHistory(msgs[6:], 10, 2000, ext)
	if len(short) != 2 || short[0].Role != models.RoleUser {
		t.Errorf("under budget history should pass through, got %+v", short)
	}

	capped := TruncateHistory(msgs, 2, 2000, ext)
	if len(capped) != 2 || capped[1].Content != "sure" {
		t.Errorf("maxMessages not applied: %+v", capped)
	}
}

func TestTruncateHistory_TokenBudgetBoundary(t *testing.T) {
	msgs := make([]models.Message, 5)
	for i := range msgs {
		msgs[i] = models.Message{Role: models.RoleUser, Content: strings.Repeat("z", 400)}
	}
	ext := entity.NewExtractor(nil)

	// 2000 characters estimate to 500 tokens.
	if out := TruncateHistory(msgs, 10, 500, ext); len(out) != 5 || out[0].Role != models.RoleUser {
		t.Errorf("history at budget should pass through, got %d messages", len(out))
	}
	if out := TruncateHistory(msgs, 10, 499, ext); len(out) != keepRecent+1 || out[0].Role != models.RoleSystem {
		t.Errorf("history over budget should be compressed, got %d messages", len(out))
	}
}

func TestTruncateHistory_NoCourses(t *testing.T) {
	long := strings.Repeat("y", 3000)
	msgs := []models.Message{
		{Role: models.RoleUser, Content: long},
		{Role: models.RoleAssistant, Content: long},
		{Role: models.RoleUser, Content: long},
		{Role: models.RoleAssistant, Content: "a"},
		{Role: models.RoleUser, Content: "b"},
	}
	out := TruncateHistory(msgs, 10, 2000, entity.NewExtractor(nil))
	if out[0].Content != "Earlier in this conversation: General advising questions" {
		t.Errorf("summary = %q", out[0].Content)
	}
}

func TestContext_Summary(t *testing.T) {
	c := NewContext("s", time.Now())
	if c.Summary() != "" {
		t.Errorf("empty context summary = %q", c.Summary())
	}
	c.MentionedCourses = []string{"CS 46A", "CS 146", "CS 149", "CS 146", "CS 151", "CS 160"}
	c.CurrentTopic = "CS 160"
	c.LastIntent = "prerequisite"
	want := "Current topic: CS 160 | Recently discussed courses: CS 146, CS 149, CS 151, CS 160 | Last question type: prerequisite"
	if got := c.Summary(); got != want {
		t.Errorf("Summary() =\n%q\nwant\n%q", got, want)
	}
}

func TestManager_ClearAndReap(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
	m := NewManager(store, nil, WithClock(clock.Now))
	ctx := context.Background()

	_ = m.AddUserMessage(ctx, "old", "hi")
	clock.Advance(20 * time.Minute)
	_ = m.AddUserMessage(ctx, "new", "hi")
	clock.Advance(15 * time.Minute)

	n, err := m.Reap(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || store.Len() != 1 {
		t.Errorf("reaped %d, remaining %d", n, store.Len())
	}

	if err := m.Clear(ctx, "new"); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("Clear left %d contexts", store.Len())
	}
}

func TestManager_InvalidSession(t *testing.T) {
	m, _ := newTestManager(t)
	if _, err := m.Open(context.Background(), ""); err != ErrInvalidSession {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestManager_ConcurrentSameSession(t *testing.T) {
	m := NewManager(nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.AddUserMessage(ctx, "shared", "question about CS 149")
		}()
	}
	wg.Wait()

	c, _ := m.GetContext(ctx, "shared")
	if len(c.Messages) != 50 {
		t.Errorf("lost updates: %d messages, want 50", len(c.Messages))
	}
	if len(m.locks) != 0 {
		t.Errorf("session locks leaked: %d", len(m.locks))
	}
}
