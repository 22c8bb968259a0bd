// Package cli renders advisor answers and system status for the hal command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/models"
	"github.com/akumar23/HAL-AI-AdvisorBot/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to a format; anything unknown is text.
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), string(OutputJSON)) {
		return OutputJSON
	}
	return OutputText
}

const rule = "─────────────────────────────────────────────────────────"

// WriteAnswer writes an advisor response to w in the given format.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	writeAnswerText(w, resp)
	return nil
}

func writeAnswerText(w io.Writer, resp *models.AskResponse) {
	fmt.Fprintf(w, "\n%s\n\n", resp.Answer)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Intent: %s | Confidence: %.2f (%s) | %dms\n",
		resp.Intent, resp.Confidence, resp.ConfidenceLevel, resp.QueryTime)
	if resp.QueryRewritten && resp.ResolvedQuery != "" {
		fmt.Fprintf(w, "Interpreted as: %s\n", resp.ResolvedQuery)
	}
	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "Sources:")
		for i, src := range resp.Sources {
			label := SourceLabel(src)
			if label != "" {
				label = " " + label
			}
			fmt.Fprintf(w, "  %d. [%s]%s (%.3f)\n", i+1, src.Type, label, src.Score)
		}
	}
	if resp.EscalateToHuman {
		fmt.Fprintf(w, "Escalated to an advisor: %s", resp.EscalationReason)
		if resp.HandoffID != "" {
			fmt.Fprintf(w, " (ticket %s)", resp.HandoffID)
		}
		fmt.Fprintln(w)
	}
	if len(resp.QuickReplies) > 0 {
		fmt.Fprintf(w, "Try asking: %s\n", strings.Join(resp.QuickReplies, " | "))
	}
}

// SourceLabel picks a short human label from a source's metadata.
func SourceLabel(src models.Source) string {
	for _, key := range []string{"code", "name", "title", "source_path"} {
		if v, ok := src.Metadata[key].(string); ok && v != "" {
			return utils.Truncate(v, 60)
		}
	}
	return ""
}

// Status summarises the knowledge base and runtime state.
type Status struct {
	Documents        int64            `json:"documents"`
	DocumentsByType  map[string]int64 `json:"documents_by_type"`
	OpenHandoffs     int              `json:"open_handoffs"`
	VectorIndexSize  int              `json:"vector_index_size"`
	KeywordIndexSize uint64           `json:"keyword_index_size"`
	DiskUsageBytes   int64            `json:"disk_usage_bytes"`
	Provider         string           `json:"llm_provider,omitempty"`
	MainModel        string           `json:"main_model,omitempty"`
	DatabasePath     string           `json:"database_path,omitempty"`
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Documents:       %d\n", st.Documents)
	types := make([]string, 0, len(st.DocumentsByType))
	for t := range st.DocumentsByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-14s %d\n", t+":", st.DocumentsByType[t])
	}
	fmt.Fprintf(w, "Vector index:    %d\n", st.VectorIndexSize)
	fmt.Fprintf(w, "Keyword index:   %d\n", st.KeywordIndexSize)
	fmt.Fprintf(w, "Open handoffs:   %d\n", st.OpenHandoffs)
	fmt.Fprintf(w, "Disk usage:      %s\n", FormatBytes(st.DiskUsageBytes))
	if st.Provider != "" {
		fmt.Fprintf(w, "LLM:             %s (%s)\n", st.Provider, st.MainModel)
	}
	if st.DatabasePath != "" {
		fmt.Fprintf(w, "Database:        %s\n", st.DatabasePath)
	}
	return nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
