package indexer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
)

// Seed is a structured knowledge file: any mix of courses, advisors, policies and deadlines.
type Seed struct {
	Courses   []models.Course   `yaml:"courses"`
	Advisors  []models.Advisor  `yaml:"advisors"`
	Policies  []models.Policy   `yaml:"policies"`
	Deadlines []models.Deadline `yaml:"deadlines"`
}

// LoadSeed parses a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &s, nil
}

// Documents renders every seed entry in its indexed form.
func (s *Seed) Documents() []*models.DocumentInput {
	docs := make([]*models.DocumentInput, 0, len(s.Courses)+len(s.Advisors)+len(s.Policies)+len(s.Deadlines))
	for _, c := range s.Courses {
		docs = append(docs, c.ToDocument())
	}
	for _, a := range s.Advisors {
		docs = append(docs, a.ToDocument())
	}
	for _, p := range s.Policies {
		docs = append(docs, p.ToDocument())
	}
	for _, d := range s.Deadlines {
		docs = append(docs, d.ToDocument())
	}
	return docs
}
