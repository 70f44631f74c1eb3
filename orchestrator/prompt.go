package orchestrator

import (
	"strings"

	"github.com/troupehq/troupe/agent"
)

// BuildInstructions joins the manager's role text with a delegation
// clause cataloguing each specialist. The catalog lists specialists in
// roster order under their function names so the model's tool calls and
// the prose stay consistent.
func BuildInstructions(role string, specialists []*agent.Specialist) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(role))

	if len(specialists) == 0 {
		return b.String()
	}

	b.WriteString("\n\nYou coordinate a team of specialists. Delegate by calling the matching function:\n")
	for _, s := range specialists {
		b.WriteString("- " + s.FunctionName())
		if role := strings.TrimSpace(s.Role()); role != "" {
			b.WriteString(": " + role)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nDelegate whenever a specialist covers the request. " +
		"Use the specialist's result to answer the user; do not invent results yourself. " +
		"If no specialist fits, answer directly.")

	return b.String()
}
