// Package tool provides the built-in specialist capabilities: weather
// lookup, arithmetic, translation, and search.
//
// All tools are mocks in the sense that they fabricate plausible answers
// instead of calling real backends, but their argument handling is real:
// each tool accepts either structured arguments or a free-text "task"
// field and owns the heuristics for extracting structure from the latter.
// That extraction is isolated behind each tool's ExtractArguments method
// so it can be property-tested against a phrasing corpus and swapped
// without touching execution logic.
//
// Execute never fails for malformed input. Missing or invalid required
// arguments produce a human-readable "Error: ..." result string; the
// error return is reserved for infrastructure failures and is always nil
// for the built-in tools.
package tool

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/troupehq/troupe/troupe"
)

// DefaultLocation is used when no location can be extracted from the
// arguments or the task text.
const DefaultLocation = "New York"

var weatherConditions = []string{"sunny", "partly cloudy", "cloudy", "rainy", "windy", "stormy"}

var weatherTemperatures = []int{12, 15, 18, 20, 22, 25, 28, 31}

// Ordered from most to least specific; the first capturing match wins.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)weather\s+(?:in|for|at)\s+(.+?)\s*(?:[?.!,]|$)`),
	regexp.MustCompile(`(?i)\bin\s+([a-zA-ZÀ-ÿ][a-zA-ZÀ-ÿ\s]*?)\s*(?:[?.!,]|$)`),
	regexp.MustCompile(`(?i)\bfor\s+([a-zA-ZÀ-ÿ][a-zA-ZÀ-ÿ\s]*?)\s*(?:[?.!,]|$)`),
}

// Weather reports fabricated weather for a location.
type Weather struct {
	rng *rand.Rand
}

// NewWeather creates the weather tool.
func NewWeather() *Weather {
	return &Weather{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (w *Weather) Name() string {
	return "weather"
}

func (w *Weather) Description() string {
	return "Provides current weather conditions and temperature for a location."
}

func (w *Weather) Spec() troupe.ToolSpec {
	return troupe.ToolSpec{
		Name:        w.Name(),
		Description: w.Description(),
		Parameters: map[string]troupe.ParamSpec{
			"location": {
				Type:        "string",
				Description: "City or place to report the weather for",
			},
			"task": {
				Type:        "string",
				Description: "Free-text request to extract a location from",
			},
		},
	}
}

// ExtractArguments pulls a location out of a free-text task. It tries the
// "weather in/for X" form first, then bare "in X" / "for X" trailers, and
// falls back to DefaultLocation.
func (w *Weather) ExtractArguments(task string) map[string]interface{} {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(task); m != nil {
			location := strings.TrimSpace(m[1])
			if location != "" {
				return map[string]interface{}{"location": titleCase(location)}
			}
		}
	}
	return map[string]interface{}{"location": DefaultLocation}
}

// Execute reports the weather. The report is pseudo-random over a fixed
// condition and temperature set; it is not real weather.
func (w *Weather) Execute(_ context.Context, args map[string]interface{}) (string, error) {
	location, _ := args["location"].(string)
	if location == "" {
		if task, ok := args["task"].(string); ok && task != "" {
			extracted := w.ExtractArguments(task)
			location, _ = extracted["location"].(string)
		}
	}
	if location == "" {
		location = DefaultLocation
	}

	condition := weatherConditions[w.rng.Intn(len(weatherConditions))]
	temperature := weatherTemperatures[w.rng.Intn(len(weatherTemperatures))]

	return fmt.Sprintf("The weather in %s is currently %s with a temperature of %d°C.",
		location, condition, temperature), nil
}

// titleCase capitalizes each word of a location name.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			words[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
		}
	}
	return strings.Join(words, " ")
}
