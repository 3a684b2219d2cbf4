// Package reply decides whether a group message deserves a joke and
// builds the reply text.
package reply

import (
	"regexp"
	"strings"
)

// Trigger names the reply path a message selects.
type Trigger string

const (
	TriggerNone    Trigger = ""
	TriggerGeneric Trigger = "generic"
	TriggerTopic   Trigger = "topic"
)

// maxTermRunes bounds the search term taken from a topic request.
const maxTermRunes = 80

var (
	topicPattern   = regexp.MustCompile(`(?:joke(?:\s+please)?\s+about|do you have a joke about)\s+(.+)`)
	genericPhrases = regexp.MustCompile(`\b(?:joke please|tell me a joke)\b`)
	leadingJoke    = regexp.MustCompile(`^joke\b`)
	trailingPunct  = regexp.MustCompile(`[?.!]+$`)
)

// Normalize trims and lower-cases message text before matching.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Classify maps message text to a trigger and, for topic requests, the
// search term.
//
// The "about" form is checked before the bare leading "joke" rule, so
// "joke about cats" is a topic request for "cats" rather than a generic
// one. A topic request whose term is empty once punctuation is stripped
// ("joke about ???") is treated as generic.
func Classify(text string) (Trigger, string) {
	lower := Normalize(text)
	if lower == "" {
		return TriggerNone, ""
	}

	if m := topicPattern.FindStringSubmatch(lower); m != nil {
		if term := extractTerm(m[1]); term != "" {
			return TriggerTopic, term
		}
	}

	if genericPhrases.MatchString(lower) || leadingJoke.MatchString(lower) {
		return TriggerGeneric, ""
	}
	return TriggerNone, ""
}

func extractTerm(raw string) string {
	term := trailingPunct.ReplaceAllString(strings.TrimSpace(raw), "")
	term = strings.TrimSpace(term)
	if r := []rune(term); len(r) > maxTermRunes {
		term = strings.TrimSpace(string(r[:maxTermRunes]))
	}
	return term
}
