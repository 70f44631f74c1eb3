package tool

import (
	"context"
	"strings"
	"testing"
)

func TestSearch_ExplicitQuery(t *testing.T) {
	result, err := NewSearch().Execute(context.Background(), map[string]interface{}{"query": "go generics"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "go generics") {
		t.Errorf("expected query echoed, got %q", result)
	}
	if got := strings.Count(result, "\n"); got != 3 {
		t.Errorf("expected a 3-entry result list (3 newlines), got %d:\n%s", got, result)
	}
}

func TestSearch_ExtractArguments_StripsPrefix(t *testing.T) {
	tests := []struct {
		task string
		want string
	}{
		{"search for cheap flights", "cheap flights"},
		{"search cheap flights", "cheap flights"},
		{"find the best tapas in town", "the best tapas in town"},
		{"look up golang slices", "golang slices"},
		{"quantum computing", "quantum computing"},
	}
	s := NewSearch()
	for _, tt := range tests {
		args := s.ExtractArguments(tt.task)
		if args["query"] != tt.want {
			t.Errorf("%q: expected query %q, got %v", tt.task, tt.want, args["query"])
		}
	}
}

func TestSearch_TaskArgument(t *testing.T) {
	result, _ := NewSearch().Execute(context.Background(), map[string]interface{}{"task": "search for train schedules"})
	if !strings.Contains(result, "train schedules") {
		t.Errorf("expected extracted query, got %q", result)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	result, _ := NewSearch().Execute(context.Background(), map[string]interface{}{})
	if !strings.HasPrefix(result, "Error:") {
		t.Errorf("expected textual error, got %q", result)
	}
}
