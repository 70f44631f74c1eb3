// Package guardrail provides pre-flight input validators for orchestrated
// turns.
//
// Guardrails veto processing before any remote model call is made. They
// are evaluated in registration order against the latest user message;
// the first failing guardrail's message becomes the entire system
// response for the turn. A rejection is a normal, user-visible refusal,
// not an error.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/troupehq/troupe/troupe"
)

// Length rejects input longer than a configured character count.
type Length struct {
	max     int
	message string
}

// NewLength creates a length guardrail. The message template may contain
// a single %d verb which is substituted with the configured maximum.
func NewLength(max int, message string) *Length {
	if message == "" {
		message = "Input exceeds the maximum length of %d characters."
	}
	return &Length{max: max, message: message}
}

func (g *Length) Name() string {
	return "length"
}

func (g *Length) Validate(input string) troupe.Verdict {
	if len([]rune(input)) > g.max {
		return troupe.Reject(fmt.Sprintf(g.message, g.max))
	}
	return troupe.Accept()
}

// Regex rejects input based on the presence of a pattern match.
//
// With mustMatch true the input is valid only when the pattern matches;
// with mustMatch false the input is valid only when it does not.
type Regex struct {
	pattern   *regexp.Regexp
	mustMatch bool
	message   string
}

// NewRegex creates a regex guardrail. The pattern must compile; a bad
// pattern is a configuration error, not a runtime condition.
func NewRegex(pattern string, mustMatch bool, message string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid guardrail pattern %q: %w", pattern, err)
	}
	if message == "" {
		message = "Input does not satisfy the required format."
	}
	return &Regex{pattern: re, mustMatch: mustMatch, message: message}, nil
}

func (g *Regex) Name() string {
	return "regex"
}

func (g *Regex) Validate(input string) troupe.Verdict {
	if g.pattern.MatchString(input) != g.mustMatch {
		return troupe.Reject(g.message)
	}
	return troupe.Accept()
}

// Keywords rejects input containing any of a configured keyword set as a
// substring. Matching is case-insensitive; the first match short-circuits.
type Keywords struct {
	blocked       []string
	caseSensitive bool
	message       string
}

// KeywordsOption configures a Keywords guardrail.
type KeywordsOption func(*Keywords)

// CaseSensitive makes keyword matching case-sensitive.
func CaseSensitive() KeywordsOption {
	return func(g *Keywords) { g.caseSensitive = true }
}

// WithMessage overrides the rejection message. A single %s verb is
// substituted with the matched keyword.
func WithMessage(message string) KeywordsOption {
	return func(g *Keywords) { g.message = message }
}

// NewKeywords creates a keyword-blocklist guardrail.
func NewKeywords(blocked []string, opts ...KeywordsOption) *Keywords {
	g := &Keywords{
		blocked: blocked,
		message: "Input contains a blocked keyword: %s",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Keywords) Name() string {
	return "keywords"
}

func (g *Keywords) Validate(input string) troupe.Verdict {
	haystack := input
	if !g.caseSensitive {
		haystack = strings.ToLower(input)
	}
	for _, keyword := range g.blocked {
		needle := keyword
		if !g.caseSensitive {
			needle = strings.ToLower(keyword)
		}
		if needle != "" && strings.Contains(haystack, needle) {
			return troupe.Reject(fmt.Sprintf(g.message, keyword))
		}
	}
	return troupe.Accept()
}

// Apply evaluates a roster of guardrails in order against the input and
// returns the first rejection, or an accepting verdict when all pass.
func Apply(roster []troupe.Guardrail, input string) troupe.Verdict {
	for _, g := range roster {
		if verdict := g.Validate(input); !verdict.Valid {
			return verdict
		}
	}
	return troupe.Accept()
}
