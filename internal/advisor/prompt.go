package advisor

import (
	"fmt"
	"strings"

	"github.com/akumar23/HAL-AI-AdvisorBot/internal/retrieval"
)

// SystemPrompt holds the answering rules given to the main model.
const SystemPrompt = `You are HAL, an academic advisor assistant for SJSU CMPE (Computer Engineering) and SE (Software Engineering) students.

RULES:
1. Only answer using information from the provided CONTEXT
2. If the answer is not in the context, say: "I don't have that specific information. Please contact your academic advisor."
3. For prerequisites, always cite the exact course code and requirements
4. Never guess or make up information not explicitly stated in the context
5. Be helpful, concise, and accurate
6. If asked about course prerequisites, mention if requirements differ for CMPE vs SE majors

Always prioritize accuracy over being helpful. It's better to say you don't know than to give incorrect academic advice.`

const noContext = "No relevant information found in the knowledge base."

// ContextBlock renders retrieved candidates for the prompt, prefixed by the session summary when known.
func ContextBlock(candidates []retrieval.Candidate, summary string) string {
	block := noContext
	if len(candidates) > 0 {
		parts := make([]string, len(candidates))
		for i, c := range candidates {
			parts[i] = fmt.Sprintf("[Source %d - %s]\n%s", i+1, c.SourceType, c.Content)
		}
		block = strings.Join(parts, "\n\n")
	}
	if summary != "" {
		block = "[Conversation Context: " + summary + "]\n\n" + block
	}
	return block
}

// UserMessage is the final user turn sent to the main model.
func UserMessage(contextBlock, question string) string {
	return "CONTEXT:\n" + contextBlock +
		"\n\nSTUDENT QUESTION: " + question +
		"\n\nPlease answer based only on the context provided above."
}
