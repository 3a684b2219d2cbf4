package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		trigger Trigger
		term    string
	}{
		{"joke please", "joke please", TriggerGeneric, ""},
		{"tell me a joke", "tell me a joke", TriggerGeneric, ""},
		{"bare joke", "joke", TriggerGeneric, ""},
		{"leading joke with tail", "joke time everyone", TriggerGeneric, ""},
		{"phrase inside sentence", "hey bot, joke please!", TriggerGeneric, ""},
		{"padded and shouted", "   TELL ME A JOKE  ", TriggerGeneric, ""},
		{"joke about", "joke about coffee", TriggerTopic, "coffee"},
		{"do you have a joke about", "do you have a joke about coffee", TriggerTopic, "coffee"},
		{"joke please about", "joke please about cats", TriggerTopic, "cats"},
		{"case folded and punctuation", "JOKE ABOUT Coffee???", TriggerTopic, "coffee"},
		{"mixed trailing punctuation", "joke about dogs?!.", TriggerTopic, "dogs"},
		{"multi word term", "do you have a joke about space cats?", TriggerTopic, "space cats"},
		{"about inside tell me", "tell me a joke about pizza", TriggerTopic, "pizza"},
		{"term stops at newline", "joke about tea\nand more", TriggerTopic, "tea"},
		{"empty term falls back to generic", "joke about ???", TriggerGeneric, ""},
		{"about with nothing after", "joke about", TriggerGeneric, ""},
		{"plural does not trigger", "jokes are fun", TriggerNone, ""},
		{"unrelated", "hello there", TriggerNone, ""},
		{"empty", "", TriggerNone, ""},
		{"whitespace", "   ", TriggerNone, ""},
		{"joke later in sentence", "that was a joke", TriggerNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, term := Classify(tt.text)
			assert.Equal(t, tt.trigger, trigger)
			assert.Equal(t, tt.term, term)
		})
	}
}

func TestClassify_TermTruncatedTo80Runes(t *testing.T) {
	long := strings.Repeat("a", 120)
	trigger, term := Classify("joke about " + long + "!!!")
	assert.Equal(t, TriggerTopic, trigger)
	assert.Len(t, []rune(term), 80)

	multibyte := strings.Repeat("é", 100)
	_, term = Classify("joke about " + multibyte)
	assert.Len(t, []rune(term), 80)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "joke please", Normalize("  Joke PLEASE \t"))
}
