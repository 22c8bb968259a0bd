package entity

import (
	"reflect"
	"testing"
)

func TestCourseCodes(t *testing.T) {
	e := NewExtractor(nil)
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"strict", "What are the prerequisites for CS 149?", []string{"CS 149"}},
		{"no space", "Can I take CMPE120 next term?", []string{"CMPE 120"}},
		{"lower case department", "is cs146 hard", []string{"CS 146"}},
		{"suffix letter", "Tell me about CS 46B", []string{"CS 46B"}},
		{"order and dedupe", "CS 149 vs CS 146 and CS 149 again", []string{"CS 149", "CS 146"}},
		{"unknown lower-case dept", "what about abc 123", []string{}},
		{"none", "hello there", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.CourseCodes(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CourseCodes(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHasCourseCode(t *testing.T) {
	e := NewExtractor([]string{"CS"})
	if !e.HasCourseCode("cs 149") {
		t.Error("expected lower-case CS to match")
	}
	if e.HasCourseCode("what about math 42") {
		t.Error("math is not a configured department")
	}
}

func TestLastNameInitial(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"Who is my advisor? My last name starts with S", "S", true},
		{"my last name is k", "K", true},
		{"Who is my advisor?", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := LastNameInitial(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("LastNameInitial(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
