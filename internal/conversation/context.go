// Package conversation tracks per-session dialogue state and rewrites follow-up questions
// into self-contained queries.
package conversation

import (
	"strings"
	"time"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/entity"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// Context is the dialogue state of one session.
type Context struct {
	SessionID        string           `json:"session_id"`
	Messages         []models.Message `json:"messages"`
	CurrentTopic     string           `json:"current_topic,omitempty"`
	MentionedCourses []string         `json:"mentioned_courses"`
	LastIntent       string           `json:"last_intent,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	LastActivity     time.Time        `json:"last_activity"`
}

// NewContext returns an empty context created at now.
func NewContext(sessionID string, now time.Time) *Context {
	return &Context{
		SessionID:        sessionID,
		Messages:         []models.Message{},
		MentionedCourses: []string{},
		CreatedAt:        now,
		LastActivity:     now,
	}
}

// Expired reports whether the context has been idle for longer than timeout.
func (c *Context) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.LastActivity) > timeout
}

// AddMessage appends a turn. User turns also update the course topic tracking.
func (c *Context) AddMessage(role models.Role, content string, now time.Time, extractor entity.Extractor) {
	c.Messages = append(c.Messages, models.Message{Role: role, Content: content, Timestamp: now})
	if now.After(c.LastActivity) {
		c.LastActivity = now
	}
	if role != models.RoleUser || extractor == nil {
		return
	}
	if courses := extractor.CourseCodes(content); len(courses) > 0 {
		c.MentionedCourses = append(c.MentionedCourses, courses...)
		c.CurrentTopic = courses[len(courses)-1]
	}
}

// RecentMessages returns up to the last limit messages.
func (c *Context) RecentMessages(limit int) []models.Message {
	if limit <= 0 || len(c.Messages) <= limit {
		return append([]models.Message(nil), c.Messages...)
	}
	return append([]models.Message(nil), c.Messages[len(c.Messages)-limit:]...)
}

// RecentCourses returns the distinct courses among the last n mentions, oldest first.
func (c *Context) RecentCourses(n int) []string {
	tail := c.MentionedCourses
	if len(tail) > n {
		tail = tail[len(tail)-n:]
	}
	return distinct(tail)
}

// Summary renders the context for the generation prompt, or "" when nothing is known yet.
func (c *Context) Summary() string {
	var parts []string
	if c.CurrentTopic != "" {
		parts = append(parts, "Current topic: "+c.CurrentTopic)
	}
	if len(c.MentionedCourses) > 0 {
		parts = append(parts, "Recently discussed courses: "+strings.Join(c.RecentCourses(5), ", "))
	}
	if c.LastIntent != "" {
		parts = append(parts, "Last question type: "+c.LastIntent)
	}
	return strings.Join(parts, " | ")
}

// Clone returns a deep copy.
func (c *Context) Clone() *Context {
	cp := *c
	cp.Messages = append([]models.Message(nil), c.Messages...)
	cp.MentionedCourses = append([]string(nil), c.MentionedCourses...)
	return &cp
}

func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
