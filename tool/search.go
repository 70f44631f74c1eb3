package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/troupehq/troupe/troupe"
)

var searchPrefix = regexp.MustCompile(`(?i)^(?:search\s+for|search|find|look\s+up)\s+`)

// Search echoes a templated mock result list for a query. No real search
// backend is involved.
type Search struct{}

// NewSearch creates the search tool.
func NewSearch() *Search {
	return &Search{}
}

func (s *Search) Name() string {
	return "search"
}

func (s *Search) Description() string {
	return "Searches the web for information on a topic."
}

func (s *Search) Spec() troupe.ToolSpec {
	return troupe.ToolSpec{
		Name:        s.Name(),
		Description: s.Description(),
		Parameters: map[string]troupe.ParamSpec{
			"query": {
				Type:        "string",
				Description: "What to search for",
			},
			"task": {
				Type:        "string",
				Description: "Free-text request to extract a query from",
			},
		},
	}
}

// ExtractArguments strips a leading "search for" / "find" / "look up"
// prefix; the remainder is the query.
func (s *Search) ExtractArguments(task string) map[string]interface{} {
	query := strings.TrimSpace(searchPrefix.ReplaceAllString(strings.TrimSpace(task), ""))
	query = strings.Trim(query, `.,!?'"`)
	return map[string]interface{}{"query": query}
}

// Execute returns a three-entry mock result list for the query.
func (s *Search) Execute(_ context.Context, args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if query == "" {
		if task, ok := args["task"].(string); ok && task != "" {
			extracted := s.ExtractArguments(task)
			query, _ = extracted["query"].(string)
		}
	}
	if query == "" {
		return "Error: no search query provided.", nil
	}

	return fmt.Sprintf("Search results for %q:\n1. %s - Overview and background\n2. Latest news and updates about %s\n3. %s explained: guides, tutorials and FAQs",
		query, query, query, query), nil
}
