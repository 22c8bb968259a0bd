package intent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/llm"
	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

func TestRules_Match(t *testing.T) {
	r := NewRules(nil)
	tests := []struct {
		name            string
		query           string
		want            Intent
		confidence      float64
		requiresContext bool
		codes           []string
	}{
		{"greeting", "Hello!", Greeting, 0.99, false, nil},
		{"prerequisite with code", "What's the prerequisite for CS 149?", Prerequisite, 0.95, false, []string{"CS 149"}},
		{"prerequisite without code", "what are the prereqs", Prerequisite, 0.95, true, []string{}},
		{"advisor", "Who is my advisor?", AdvisorLookup, 0.95, false, nil},
		{"enrollment", "How do I add a class?", Enrollment, 0.95, false, []string{}},
		{"drop", "how do i drop CMPE 120", DropClass, 0.95, false, []string{"CMPE 120"}},
		{"refund", "Can I get a refund?", Refund, 0.95, false, nil},
		{"units", "How many units can I take?", Units, 0.95, false, nil},
		{"context", "that class", GeneralQuestion, 0.7, true, []string{}},
		{"what about", "what about CS 146", GeneralQuestion, 0.7, true, []string{"CS 146"}},
		{"course code only", "CS 146", CourseInfo, 0.75, false, []string{"CS 146"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Match(tt.query)
			if res == nil {
				t.Fatalf("Match(%q) = nil", tt.query)
			}
			if res.Intent != tt.want || res.Confidence != tt.confidence || res.RequiresContext != tt.requiresContext {
				t.Errorf("Match(%q) = %s/%v/%v, want %s/%v/%v", tt.query,
					res.Intent, res.Confidence, res.RequiresContext, tt.want, tt.confidence, tt.requiresContext)
			}
			if tt.codes != nil && !reflect.DeepEqual(res.CourseCodes(), tt.codes) {
				t.Errorf("codes = %v, want %v", res.CourseCodes(), tt.codes)
			}
		})
	}
}

func TestRules_NoMatch(t *testing.T) {
	if res := NewRules(nil).Match("Tell me about graduation requirements"); res != nil {
		t.Errorf("expected no rule match, got %s", res.Intent)
	}
}

func TestRules_ContextWordBoundary(t *testing.T) {
	if res := NewRules(nil).Match("Explain transfer credit limits"); res != nil {
		t.Errorf("'limits' should not match the 'it' indicator, got %s", res.Intent)
	}
}

func TestRules_AdvisorInitial(t *testing.T) {
	res := NewRules(nil).Match("Who is my advisor? My last name starts with S")
	if res == nil || res.Intent != AdvisorLookup {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.LastNameInitial() != "S" {
		t.Errorf("initial = %q, want S", res.LastNameInitial())
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0.95, High},
		{0.8, High},
		{0.79, Medium},
		{0.5, Medium},
		{0.49, Low},
		{0, Low},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSourceFilter(t *testing.T) {
	tests := map[Intent]string{
		Prerequisite:    "course",
		CourseInfo:      "course",
		AdvisorLookup:   "advisor",
		Refund:          "policy",
		Waitlist:        "policy",
		Greeting:        "",
		GeneralQuestion: "",
		Transfer:        "",
	}
	for i, want := range tests {
		if got := i.SourceFilter(); got != want {
			t.Errorf("%s.SourceFilter() = %q, want %q", i, got, want)
		}
	}
}

func TestParseModelOutput(t *testing.T) {
	raw := "```json\n{\"intent\": \"graduation\", \"confidence_score\": 0.85, \"entities\": {\"course_codes\": [\"CS 149\"], \"last_name_initial\": null}, \"requires_context\": false, \"escalate_to_human\": false, \"escalation_reason\": null}\n```"
	res, err := ParseModelOutput(raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != Graduation || res.Level != High || res.Source != "model" {
		t.Errorf("unexpected result %+v", res)
	}
	if !reflect.DeepEqual(res.CourseCodes(), []string{"CS 149"}) {
		t.Errorf("codes = %v", res.CourseCodes())
	}
	if _, ok := res.Entities[EntityLastNameInitial]; ok {
		t.Error("null entity should be dropped")
	}
}

func TestParseModelOutput_UnknownIntent(t *testing.T) {
	res, err := ParseModelOutput(`Sure! {"intent": "housing", "confidence_score": 0.6}`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != GeneralQuestion {
		t.Errorf("intent = %s, want general_question", res.Intent)
	}
}

func TestParseModelOutput_Malformed(t *testing.T) {
	if _, err := ParseModelOutput("I think this is about grades"); err == nil {
		t.Error("expected error for non-JSON output")
	}
}

func TestBuildPrompt_History(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
		{Role: models.RoleAssistant, Content: "four"},
		{Role: models.RoleUser, Content: "five"},
	}
	p := BuildPrompt("what next", history)
	if !strings.HasPrefix(p, "Recent conversation:\nassistant: two\n") {
		t.Errorf("prompt should start with the last four turns, got %q", p[:60])
	}
	if strings.Contains(p, "user: one") {
		t.Error("oldest turn should be dropped")
	}
	if !strings.HasSuffix(p, "Student query: what next") {
		t.Error("prompt should end with the query")
	}
}

func TestClassifier_RuleTierSkipsModel(t *testing.T) {
	mock := llm.NewMock("classifier")
	c := NewClassifier(nil, mock)
	res := c.Classify(context.Background(), "What's the prerequisite for CS 149?", nil)
	if res.Intent != Prerequisite || res.Confidence != 0.95 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(mock.Calls()) != 0 {
		t.Errorf("model tier called %d times", len(mock.Calls()))
	}
}

func TestClassifier_ModelTier(t *testing.T) {
	mock := llm.NewMock("classifier")
	mock.Respond = func(req llm.Request) (string, error) {
		if !req.JSON {
			t.Error("classifier should request JSON output")
		}
		return `{"intent":"course_info","confidence_score":0.82,"entities":{},"requires_context":true,"escalate_to_human":false}`, nil
	}
	c := NewClassifier(nil, mock)
	res := c.Classify(context.Background(), "tell me more about CS 146", nil)
	if res.Intent != CourseInfo || res.Confidence != 0.82 {
		t.Errorf("unexpected result %+v", res)
	}
	if !reflect.DeepEqual(res.CourseCodes(), []string{"CS 146"}) {
		t.Errorf("rule-tier codes should be carried over, got %v", res.CourseCodes())
	}
}

func TestClassifier_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		respond    func(llm.Request) (string, error)
		confidence float64
	}{
		{"malformed", func(llm.Request) (string, error) { return "not json", nil }, 0.5},
		{"provider error", func(llm.Request) (string, error) { return "", errors.New("timeout") }, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMock("classifier")
			mock.Respond = tt.respond
			res := NewClassifier(nil, mock).Classify(context.Background(), "what are graduation requirements", nil)
			if res.Intent != GeneralQuestion || res.Confidence != tt.confidence {
				t.Errorf("got %s/%v, want general_question/%v", res.Intent, res.Confidence, tt.confidence)
			}
			if !res.RequiresContext || res.EscalateToHuman {
				t.Errorf("unexpected flags %+v", res)
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, i := range All {
		got, err := Parse(string(i))
		if err != nil || got != i {
			t.Errorf("Parse(%q) = %q, %v", i, got, err)
		}
	}
	if _, err := Parse("nope"); err == nil {
		t.Error("expected error")
	}
}
