package orchestrator

import (
	"fmt"
	"strings"

	"github.com/troupehq/troupe/agent"
	"github.com/troupehq/troupe/troupe"
)

// SchemaFor builds the function schema exposed to the model for a
// specialist. The parameter shape follows the specialist's domain tag
// so the model supplies structured arguments (a location, an
// expression) instead of restating the whole request.
func SchemaFor(s *agent.Specialist) troupe.ToolSpec {
	spec := troupe.ToolSpec{
		Name:        s.FunctionName(),
		Description: delegationDescription(s),
	}

	switch s.Domain() {
	case agent.DomainWeather:
		spec.Parameters = map[string]troupe.ParamSpec{
			"location": {
				Type:        "string",
				Description: "City or place to report the weather for.",
				Required:    true,
			},
		}
	case agent.DomainMath:
		spec.Parameters = map[string]troupe.ParamSpec{
			"expression": {
				Type:        "string",
				Description: "Arithmetic expression to evaluate, e.g. \"2 + 3 * 4\".",
				Required:    true,
			},
		}
	case agent.DomainTranslation:
		spec.Parameters = map[string]troupe.ParamSpec{
			"text": {
				Type:        "string",
				Description: "Word or phrase to translate.",
				Required:    true,
			},
			"direction": {
				Type:        "string",
				Description: "Translation direction.",
				Required:    true,
				Enum:        []string{"to_spanish", "to_english"},
			},
		}
	case agent.DomainSearch:
		spec.Parameters = map[string]troupe.ParamSpec{
			"query": {
				Type:        "string",
				Description: "What to search for.",
				Required:    true,
			},
		}
	default:
		spec.Parameters = map[string]troupe.ParamSpec{
			"task": {
				Type:        "string",
				Description: "The task for this specialist, in plain language.",
				Required:    true,
			},
		}
	}

	return spec
}

func delegationDescription(s *agent.Specialist) string {
	role := strings.TrimSpace(s.Role())
	if role == "" {
		return fmt.Sprintf("Delegate a task to %s.", s.Name())
	}
	return fmt.Sprintf("Delegate to %s: %s", s.Name(), role)
}

// TaskFor converts model-supplied arguments into the task string passed
// to the specialist. Missing or malformed arguments degrade to whatever
// text is available; the specialist's own extraction handles the rest.
func TaskFor(s *agent.Specialist, args map[string]interface{}) string {
	switch s.Domain() {
	case agent.DomainWeather:
		if location := stringArg(args, "location"); location != "" {
			return "weather in " + location
		}
	case agent.DomainMath:
		if expression := stringArg(args, "expression"); expression != "" {
			return expression
		}
	case agent.DomainTranslation:
		text := stringArg(args, "text")
		if text != "" {
			switch stringArg(args, "direction") {
			case "to_english":
				return fmt.Sprintf("translate '%s' to english", text)
			default:
				return fmt.Sprintf("translate '%s' to spanish", text)
			}
		}
	case agent.DomainSearch:
		if query := stringArg(args, "query"); query != "" {
			return "search for " + query
		}
	}

	if task := stringArg(args, "task"); task != "" {
		return task
	}
	// Last resort: concatenate whatever string arguments arrived.
	var parts []string
	for _, value := range args {
		if text, ok := value.(string); ok && text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func stringArg(args map[string]interface{}, key string) string {
	value, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
