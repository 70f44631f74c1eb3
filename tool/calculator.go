package tool

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/troupehq/troupe/troupe"
)

const (
	errDivideByZero    = "Cannot divide by zero."
	errUnknownOp       = "Unknown operation: %s"
	errNeedTwoNumbers  = "Error: at least two numbers are required."
	errNothingToDo     = "Error: provide an operation with numbers, an expression, or a task to calculate."
	errBadExpression   = "Error: could not evaluate expression %q: %s"
	errNotANumber      = "Error: %v is not a number."
	opAdd              = "add"
	opSubtract         = "subtract"
	opMultiply         = "multiply"
	opDivide           = "divide"
)

var (
	symbolicExpr = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([+\-*/x×])\s*(-?\d+(?:\.\d+)?)`)
	numberToken  = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

	verbalOps = []struct {
		pattern   *regexp.Regexp
		operation string
	}{
		{regexp.MustCompile(`(?i)\b(add|plus|sum\s+of|total\s+of)\b`), opAdd},
		{regexp.MustCompile(`(?i)\b(subtract|minus|take\s+away|difference)\b`), opSubtract},
		{regexp.MustCompile(`(?i)\b(multiply|multiplied|times|product\s+of)\b`), opMultiply},
		{regexp.MustCompile(`(?i)\b(divide|divided|quotient|split)\b`), opDivide},
	}

	symbolOps = map[string]string{
		"+": opAdd, "-": opSubtract, "*": opMultiply, "x": opMultiply, "×": opMultiply, "/": opDivide,
	}
)

// Calculator performs the four basic arithmetic operations.
//
// It accepts three argument shapes, tried in order: an explicit
// {operation, numbers} pair, an "expression" string evaluated against a
// constrained grammar (numbers, + - * /, parentheses — deliberately not a
// general evaluator), or a free-text "task" parsed with natural-language
// heuristics ("add 2 and 3", "what is 7 times 6").
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Name() string {
	return "calculator"
}

func (c *Calculator) Description() string {
	return "Performs addition, subtraction, multiplication and division."
}

func (c *Calculator) Spec() troupe.ToolSpec {
	return troupe.ToolSpec{
		Name:        c.Name(),
		Description: c.Description(),
		Parameters: map[string]troupe.ParamSpec{
			"operation": {
				Type:        "string",
				Description: "One of add, subtract, multiply, divide",
				Enum:        []string{opAdd, opSubtract, opMultiply, opDivide},
			},
			"numbers": {
				Type:        "array",
				Description: "Operands, applied left to right",
				Items:       &troupe.ParamSpec{Type: "float"},
			},
			"expression": {
				Type:        "string",
				Description: "Arithmetic expression, e.g. (2+3)*4",
			},
			"task": {
				Type:        "string",
				Description: "Free-text request to parse, e.g. 'add 2 and 3'",
			},
		},
	}
}

// ExtractArguments parses a free-text task into either an operation with
// numbers or a raw expression. Symbolic forms ("12 / 4") win over verbal
// ones; an unrecognized task falls through as an expression so the
// grammar gets the last word.
func (c *Calculator) ExtractArguments(task string) map[string]interface{} {
	if m := symbolicExpr.FindStringSubmatch(task); m != nil {
		left, _ := strconv.ParseFloat(m[1], 64)
		right, _ := strconv.ParseFloat(m[3], 64)
		return map[string]interface{}{
			"operation": symbolOps[m[2]],
			"numbers":   []interface{}{left, right},
		}
	}

	for _, v := range verbalOps {
		if v.pattern.MatchString(task) {
			tokens := numberToken.FindAllString(task, -1)
			numbers := make([]interface{}, 0, len(tokens))
			for _, tok := range tokens {
				n, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					continue
				}
				numbers = append(numbers, n)
			}
			// "subtract 3 from 10" names the operands in reverse order.
			if v.operation == opSubtract && len(numbers) == 2 &&
				regexp.MustCompile(`(?i)\bfrom\b`).MatchString(task) {
				numbers[0], numbers[1] = numbers[1], numbers[0]
			}
			return map[string]interface{}{"operation": v.operation, "numbers": numbers}
		}
	}

	return map[string]interface{}{"expression": strings.TrimSpace(task)}
}

// Execute performs the calculation described by args. All numeric inputs
// are coerced to floating point; the result uses the shortest exact
// decimal representation.
func (c *Calculator) Execute(_ context.Context, args map[string]interface{}) (string, error) {
	if op, ok := args["operation"].(string); ok {
		numbers, errText := coerceNumbers(args["numbers"])
		if errText != "" {
			return errText, nil
		}
		return c.apply(op, numbers), nil
	}

	if expr, ok := args["expression"].(string); ok && strings.TrimSpace(expr) != "" {
		return c.evaluate(expr), nil
	}

	if task, ok := args["task"].(string); ok && strings.TrimSpace(task) != "" {
		return c.Execute(context.Background(), c.ExtractArguments(task))
	}

	return errNothingToDo, nil
}

// apply folds the operation over the operands left to right.
func (c *Calculator) apply(operation string, numbers []float64) string {
	if len(numbers) < 2 {
		return errNeedTwoNumbers
	}

	result := numbers[0]
	for _, n := range numbers[1:] {
		switch operation {
		case opAdd:
			result += n
		case opSubtract:
			result -= n
		case opMultiply:
			result *= n
		case opDivide:
			if n == 0 {
				return errDivideByZero
			}
			result /= n
		default:
			return fmt.Sprintf(errUnknownOp, operation)
		}
	}

	return fmt.Sprintf("The result of %s is %s.", operation, formatNumber(result))
}

// evaluate parses and evaluates a constrained arithmetic expression.
func (c *Calculator) evaluate(expr string) string {
	p := &exprParser{input: expr}
	value, err := p.parse()
	if err != nil {
		if err.Error() == "division by zero" {
			return errDivideByZero
		}
		return fmt.Sprintf(errBadExpression, expr, err)
	}
	return fmt.Sprintf("The result of %s is %s.", strings.TrimSpace(expr), formatNumber(value))
}

// coerceNumbers converts an argument value into a float64 slice,
// returning an "Error: ..." text on failure.
func coerceNumbers(value interface{}) ([]float64, string) {
	raw, ok := value.([]interface{})
	if !ok {
		if typed, ok := value.([]float64); ok {
			return typed, ""
		}
		return nil, errNeedTwoNumbers
	}

	numbers := make([]float64, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			numbers = append(numbers, n)
		case int:
			numbers = append(numbers, float64(n))
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, fmt.Sprintf(errNotANumber, v)
			}
			numbers = append(numbers, parsed)
		default:
			return nil, fmt.Sprintf(errNotANumber, v)
		}
	}
	return numbers, ""
}

// formatNumber renders a float with no trailing zeros ("5", "2.5").
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// exprParser is a recursive-descent parser for the constrained grammar:
//
//	expr   := term   { ('+' | '-') term }
//	term   := factor { ('*' | '/') factor }
//	factor := number | '(' expr ')' | '-' factor
type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parse() (float64, error) {
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch p.input[p.pos] {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		switch p.input[p.pos] {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	if p.input[p.pos] == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}

	if p.input[p.pos] == '-' {
		p.pos++
		value, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number at position %d", start)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
