package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/troupehq/troupe/troupe"
)

// Translation directions.
const (
	DirectionToSpanish = "to_spanish"
	DirectionToEnglish = "to_english"
)

// englishToSpanish is the fixed phrase dictionary; the reverse direction
// is derived from it. This is a mock, not a real translator.
var englishToSpanish = map[string]string{
	"hello":        "hola",
	"goodbye":      "adiós",
	"thank you":    "gracias",
	"please":       "por favor",
	"good morning": "buenos días",
	"good night":   "buenas noches",
	"how are you":  "cómo estás",
	"yes":          "sí",
	"no":           "no",
	"friend":       "amigo",
	"water":        "agua",
	"food":         "comida",
	"help":         "ayuda",
	"welcome":      "bienvenido",
	"excuse me":    "disculpe",
}

// spanishIndicators are heuristic markers that a free-text phrase is
// already Spanish, flipping the inferred direction to to_english.
var spanishIndicators = []string{
	"hola", "gracias", "adiós", "por favor", "buenos", "buenas",
	"cómo", "estás", "sí", "amigo", "agua", "comida", "ayuda",
	"bienvenido", "disculpe", "días", "noches",
}

var translatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)translate\s+['"]?(.+?)['"]?\s+(?:to|into)\s+(spanish|english)`),
	regexp.MustCompile(`(?i)(?:how\s+do\s+(?:you|i)\s+say|say)\s+['"]?(.+?)['"]?\s+in\s+(spanish|english)`),
	regexp.MustCompile(`(?i)what\s+is\s+['"]?(.+?)['"]?\s+in\s+(spanish|english)`),
}

// Translator translates a fixed set of phrases between English and
// Spanish.
type Translator struct {
	spanishToEnglish map[string]string
}

// NewTranslator creates the translator tool.
func NewTranslator() *Translator {
	reverse := make(map[string]string, len(englishToSpanish))
	for en, es := range englishToSpanish {
		reverse[es] = en
	}
	return &Translator{spanishToEnglish: reverse}
}

func (t *Translator) Name() string {
	return "translator"
}

func (t *Translator) Description() string {
	return "Translates common phrases between English and Spanish."
}

func (t *Translator) Spec() troupe.ToolSpec {
	return troupe.ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: map[string]troupe.ParamSpec{
			"text": {
				Type:        "string",
				Description: "Phrase to translate",
			},
			"direction": {
				Type:        "string",
				Description: "Translation direction",
				Enum:        []string{DirectionToSpanish, DirectionToEnglish},
			},
			"task": {
				Type:        "string",
				Description: "Free-text request to extract text and direction from",
			},
		},
	}
}

// ExtractArguments infers text and direction from a free-text task.
// Explicit "translate X to spanish" forms win; otherwise the whole task
// is the text and the direction is guessed from Spanish indicator words.
func (t *Translator) ExtractArguments(task string) map[string]interface{} {
	for _, re := range translatePatterns {
		if m := re.FindStringSubmatch(task); m != nil {
			direction := DirectionToSpanish
			if strings.EqualFold(m[2], "english") {
				direction = DirectionToEnglish
			}
			return map[string]interface{}{
				"text":      strings.TrimSpace(m[1]),
				"direction": direction,
			}
		}
	}

	direction := DirectionToSpanish
	lowered := strings.ToLower(task)
	for _, indicator := range spanishIndicators {
		if strings.Contains(lowered, indicator) {
			direction = DirectionToEnglish
			break
		}
	}
	return map[string]interface{}{
		"text":      strings.TrimSpace(task),
		"direction": direction,
	}
}

// Execute translates the given text. Phrases outside the dictionary get
// a templated fallback rather than an error.
func (t *Translator) Execute(_ context.Context, args map[string]interface{}) (string, error) {
	text, _ := args["text"].(string)
	direction, _ := args["direction"].(string)

	if text == "" {
		if task, ok := args["task"].(string); ok && task != "" {
			extracted := t.ExtractArguments(task)
			text, _ = extracted["text"].(string)
			direction, _ = extracted["direction"].(string)
		}
	}
	if text == "" {
		return "Error: no text to translate.", nil
	}
	if direction == "" {
		direction = DirectionToSpanish
	}

	dictionary := englishToSpanish
	targetLanguage := "Spanish"
	if direction == DirectionToEnglish {
		dictionary = t.spanishToEnglish
		targetLanguage = "English"
	} else if direction != DirectionToSpanish {
		return fmt.Sprintf("Error: unknown direction %q.", direction), nil
	}

	normalized := normalizePhrase(text)

	if translated, ok := dictionary[normalized]; ok {
		return fmt.Sprintf("%q in %s is %q.", text, targetLanguage, translated), nil
	}

	// Substring fallback: translate the longest known phrase contained
	// in the text.
	best := ""
	for phrase := range dictionary {
		if strings.Contains(normalized, phrase) && len(phrase) > len(best) {
			best = phrase
		}
	}
	if best != "" {
		return fmt.Sprintf("%q in %s is %q.", best, targetLanguage, dictionary[best]), nil
	}

	return fmt.Sprintf("I can help translate common phrases between English and Spanish, but I don't know %q yet.", text), nil
}

// normalizePhrase lowercases and strips surrounding punctuation for
// dictionary lookup.
func normalizePhrase(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), `.,!?'"¡¿`)
}
