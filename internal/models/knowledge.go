// Package models defines core data structures for knowledge documents, conversations, and advising responses.
package models

import (
	"fmt"
	"strings"
	"time"
)

// SourceType tags a knowledge document with the category used for retrieval filtering.
type SourceType string

const (
	SourceCourse   SourceType = "course"
	SourceAdvisor  SourceType = "advisor"
	SourcePolicy   SourceType = "policy"
	SourceDeadline SourceType = "deadline"
)

// Valid reports whether s is one of the known source types.
func (s SourceType) Valid() bool {
	switch s {
	case SourceCourse, SourceAdvisor, SourcePolicy, SourceDeadline:
		return true
	}
	return false
}

// Document is one indexed knowledge-base passage.
type Document struct {
	ID         string                 `json:"id" db:"id"`
	SourceType SourceType             `json:"source_type" db:"source_type"`
	Title      string                 `json:"title" db:"title"`
	Content    string                 `json:"content" db:"content"`
	Metadata   map[string]interface{} `json:"metadata" db:"metadata"`
	Origin     string                 `json:"origin,omitempty" db:"origin"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}

// DocumentInput is the input for creating or replacing a knowledge document.
type DocumentInput struct {
	ID         string                 `json:"id,omitempty"`
	SourceType SourceType             `json:"source_type"`
	Title      string                 `json:"title,omitempty"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Validate checks required fields and defaults the source type to policy.
func (in *DocumentInput) Validate() error {
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	if in.SourceType == "" {
		in.SourceType = SourcePolicy
	}
	if !in.SourceType.Valid() {
		return fmt.Errorf("unknown source_type %q", in.SourceType)
	}
	return nil
}

// Course is a catalog entry.
type Course struct {
	Code              string `yaml:"code" json:"code"`
	Name              string `yaml:"name" json:"name"`
	Description       string `yaml:"description" json:"description"`
	Prerequisites     string `yaml:"prerequisites" json:"prerequisites"`
	PrerequisitesCMPE string `yaml:"prerequisites_cmpe" json:"prerequisites_cmpe"`
	PrerequisitesSE   string `yaml:"prerequisites_se" json:"prerequisites_se"`
	Units             int    `yaml:"units" json:"units"`
}

// ToDocument renders the course in its indexed form.
func (c Course) ToDocument() *DocumentInput {
	parts := []string{fmt.Sprintf("Course: %s - %s", c.Code, c.Name)}
	if c.Description != "" {
		parts = append(parts, "Description: "+c.Description)
	}
	if c.Prerequisites != "" {
		parts = append(parts, "Prerequisites: "+c.Prerequisites)
	}
	if c.PrerequisitesCMPE != "" {
		parts = append(parts, "Prerequisites for CMPE majors: "+c.PrerequisitesCMPE)
	}
	if c.PrerequisitesSE != "" {
		parts = append(parts, "Prerequisites for SE majors: "+c.PrerequisitesSE)
	}
	meta := map[string]interface{}{"type": string(SourceCourse), "code": c.Code, "name": c.Name}
	if c.Units > 0 {
		meta["units"] = c.Units
	}
	return &DocumentInput{
		ID:         "course:" + slug(c.Code),
		SourceType: SourceCourse,
		Title:      c.Code,
		Content:    strings.Join(parts, "\n"),
		Metadata:   meta,
	}
}

// Advisor is an advisor assignment by last-name range.
type Advisor struct {
	Name          string `yaml:"name" json:"name"`
	Email         string `yaml:"email" json:"email"`
	BookingURL    string `yaml:"booking_url" json:"booking_url"`
	LastNameStart string `yaml:"last_name_start" json:"last_name_start"`
	LastNameEnd   string `yaml:"last_name_end" json:"last_name_end"`
	Department    string `yaml:"department" json:"department"`
}

// ToDocument renders the advisor in its indexed form.
func (a Advisor) ToDocument() *DocumentInput {
	dept := a.Department
	if dept == "" {
		dept = "CMPE/SE"
	}
	content := fmt.Sprintf("Advisor: %s\nHandles students with last names starting with %s through %s\nDepartment: %s\nBooking URL: %s",
		a.Name, a.LastNameStart, a.LastNameEnd, dept, a.BookingURL)
	return &DocumentInput{
		ID:         "advisor:" + slug(a.Name),
		SourceType: SourceAdvisor,
		Title:      a.Name,
		Content:    content,
		Metadata: map[string]interface{}{
			"type":            string(SourceAdvisor),
			"name":            a.Name,
			"email":           a.Email,
			"last_name_range": strings.ToUpper(a.LastNameStart) + "-" + strings.ToUpper(a.LastNameEnd),
		},
	}
}

// Policy is an advising question/answer pair.
type Policy struct {
	Category string `yaml:"category" json:"category"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
	URL      string `yaml:"url" json:"url"`
}

// ToDocument renders the policy in its indexed form.
func (p Policy) ToDocument() *DocumentInput {
	content := fmt.Sprintf("Category: %s\nQuestion: %s\nAnswer: %s", p.Category, p.Question, p.Answer)
	if p.URL != "" {
		content += "\nMore info: " + p.URL
	}
	return &DocumentInput{
		ID:         "policy:" + slug(p.Category+" "+p.Question),
		SourceType: SourcePolicy,
		Title:      p.Question,
		Content:    content,
		Metadata:   map[string]interface{}{"type": string(SourcePolicy), "category": p.Category},
	}
}

// Deadline is a dated academic deadline.
type Deadline struct {
	Semester     string    `yaml:"semester" json:"semester"`
	DeadlineType string    `yaml:"deadline_type" json:"deadline_type"`
	Date         time.Time `yaml:"date" json:"date"`
	Description  string    `yaml:"description" json:"description"`
	URL          string    `yaml:"url" json:"url"`
}

// ToDocument renders the deadline in its indexed form.
func (d Deadline) ToDocument() *DocumentInput {
	content := fmt.Sprintf("Deadline: %s\nSemester: %s\nDate: %s\nDescription: %s",
		d.DeadlineType, d.Semester, d.Date.Format("January 02, 2006"), d.Description)
	return &DocumentInput{
		ID:         "deadline:" + slug(d.Semester+" "+d.DeadlineType),
		SourceType: SourceDeadline,
		Title:      d.Semester + " " + d.DeadlineType,
		Content:    content,
		Metadata: map[string]interface{}{
			"type":     string(SourceDeadline),
			"semester": d.Semester,
			"date":     d.Date.Format("2006-01-02"),
		},
	}
}

func slug(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
