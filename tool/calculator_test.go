package tool

import (
	"context"
	"strings"
	"testing"
)

func calcExecute(t *testing.T, args map[string]interface{}) string {
	t.Helper()
	result, err := NewCalculator().Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("calculator must not return an error, got %v", err)
	}
	return result
}

// ============================================================================
// Structured Arguments
// ============================================================================

func TestCalculator_Add(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "add",
		"numbers":   []interface{}{2.0, 3.0},
	})
	if !strings.Contains(result, "5") {
		t.Errorf("expected result containing 5, got %q", result)
	}
}

func TestCalculator_LeftToRightFold(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "subtract",
		"numbers":   []interface{}{10.0, 3.0, 2.0},
	})
	if !strings.Contains(result, "5") {
		t.Errorf("expected 10-3-2=5, got %q", result)
	}
}

func TestCalculator_DivideByZero(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "divide",
		"numbers":   []interface{}{10.0, 0.0},
	})
	if result != "Cannot divide by zero." {
		t.Errorf("expected divide-by-zero message, got %q", result)
	}
	if strings.Contains(result, "Inf") || strings.Contains(result, "NaN") {
		t.Errorf("result must never contain Inf/NaN: %q", result)
	}
}

func TestCalculator_DivideByZeroLaterOperand(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "divide",
		"numbers":   []interface{}{100.0, 5.0, 0.0},
	})
	if !strings.Contains(strings.ToLower(result), "zero") {
		t.Errorf("expected zero mentioned, got %q", result)
	}
}

func TestCalculator_LeadingZeroOperandIsFine(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "divide",
		"numbers":   []interface{}{0.0, 5.0},
	})
	if !strings.Contains(result, "0") || strings.Contains(strings.ToLower(result), "cannot") {
		t.Errorf("0/5 is a valid division, got %q", result)
	}
}

func TestCalculator_UnknownOperation(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "bogus",
		"numbers":   []interface{}{1.0, 2.0},
	})
	if !strings.Contains(result, "Unknown operation") {
		t.Errorf("expected unknown-operation message, got %q", result)
	}
}

func TestCalculator_TooFewNumbers(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "add",
		"numbers":   []interface{}{1.0},
	})
	if !strings.HasPrefix(result, "Error:") {
		t.Errorf("expected textual error, got %q", result)
	}
}

func TestCalculator_NonNumericOperand(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "add",
		"numbers":   []interface{}{1.0, "banana"},
	})
	if !strings.HasPrefix(result, "Error:") {
		t.Errorf("expected textual error, got %q", result)
	}
}

func TestCalculator_StringNumbersCoerced(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{
		"operation": "multiply",
		"numbers":   []interface{}{"6", "7"},
	})
	if !strings.Contains(result, "42") {
		t.Errorf("expected 42, got %q", result)
	}
}

func TestCalculator_Deterministic(t *testing.T) {
	args := map[string]interface{}{
		"operation": "multiply",
		"numbers":   []interface{}{3.0, 4.0, 2.0},
	}
	first := calcExecute(t, args)
	for i := 0; i < 5; i++ {
		if got := calcExecute(t, args); got != first {
			t.Fatalf("non-deterministic result: %q vs %q", first, got)
		}
	}
}

// ============================================================================
// Expression Grammar
// ============================================================================

func TestCalculator_Expression(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"-3 + 5", "2"},
		{"2 * (3 + (4 - 1))", "12"},
	}
	for _, tt := range tests {
		result := calcExecute(t, map[string]interface{}{"expression": tt.expr})
		if !strings.Contains(result, tt.want) {
			t.Errorf("%s: expected %s in %q", tt.expr, tt.want, result)
		}
	}
}

func TestCalculator_ExpressionDivideByZero(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{"expression": "5 / (2 - 2)"})
	if result != "Cannot divide by zero." {
		t.Errorf("expected divide-by-zero message, got %q", result)
	}
}

func TestCalculator_ExpressionRejectsGeneralCode(t *testing.T) {
	for _, expr := range []string{"system('ls')", "2 + foo", "1;2", "pow(2,3)"} {
		result := calcExecute(t, map[string]interface{}{"expression": expr})
		if !strings.HasPrefix(result, "Error:") {
			t.Errorf("%s: expected rejection, got %q", expr, result)
		}
	}
}

// ============================================================================
// Free-Text Extraction
// ============================================================================

func TestCalculator_ExtractArguments_Phrasings(t *testing.T) {
	tests := []struct {
		task string
		want string
	}{
		{"add 2 and 3", "5"},
		{"what is 2 + 3", "5"},
		{"please sum of 2 and 3", "5"},
		{"subtract 3 from 10", "7"},
		{"10 - 3", "7"},
		{"multiply 6 by 7", "42"},
		{"what is 6 times 7", "42"},
		{"divide 10 by 4", "2.5"},
		{"10 / 4", "2.5"},
	}
	for _, tt := range tests {
		result := calcExecute(t, map[string]interface{}{"task": tt.task})
		if !strings.Contains(result, tt.want) {
			t.Errorf("%q: expected %s in %q", tt.task, tt.want, result)
		}
	}
}

func TestCalculator_NothingToDo(t *testing.T) {
	result := calcExecute(t, map[string]interface{}{})
	if !strings.HasPrefix(result, "Error:") {
		t.Errorf("expected textual error for empty args, got %q", result)
	}
}
