package reply

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jokebot/internal/domain"
)

// recordingTeller returns fixed jokes and remembers which path was used.
type recordingTeller struct {
	randomCalls int
	searchTerms []string
}

func (r *recordingTeller) RandomJoke(ctx context.Context) string {
	r.randomCalls++
	return "random joke"
}

func (r *recordingTeller) SearchJoke(ctx context.Context, term string) string {
	r.searchTerms = append(r.searchTerms, term)
	return "joke about " + term
}

func userMsg(name, text string) domain.IncomingMessage {
	return domain.IncomingMessage{ID: "1", SenderType: domain.SenderUser, Name: name, Text: text}
}

func TestDecide_NonUserNeverAnswered(t *testing.T) {
	teller := &recordingTeller{}
	d := NewDecider(teller, testLogger())

	for _, st := range []domain.SenderType{domain.SenderBot, domain.SenderSystem, domain.SenderUnknown, ""} {
		msg := userMsg("Sam", "joke please")
		msg.SenderType = st
		_, ok := d.Decide(context.Background(), msg)
		assert.False(t, ok, "sender %q", st)
	}
	assert.Zero(t, teller.randomCalls)
	assert.Empty(t, teller.searchTerms)
}

func TestDecide_GenericPath(t *testing.T) {
	for _, text := range []string{"joke please", "tell me a joke", "joke of the day"} {
		teller := &recordingTeller{}
		d := NewDecider(teller, testLogger())

		dec, ok := d.Decide(context.Background(), userMsg("Sam", text))
		require.True(t, ok, text)
		assert.Equal(t, TriggerGeneric, dec.Trigger)
		assert.Equal(t, "Hey Sam — random joke", dec.Text)
		assert.Equal(t, 1, teller.randomCalls)
	}
}

func TestDecide_TopicPath(t *testing.T) {
	for _, text := range []string{"joke about coffee", "do you have a joke about coffee", "JOKE ABOUT Coffee???"} {
		teller := &recordingTeller{}
		d := NewDecider(teller, testLogger())

		dec, ok := d.Decide(context.Background(), userMsg("Sam", text))
		require.True(t, ok, text)
		assert.Equal(t, TriggerTopic, dec.Trigger)
		assert.Equal(t, "coffee", dec.Term)
		assert.Equal(t, []string{"coffee"}, teller.searchTerms)
		assert.Equal(t, "Hey Sam — joke about coffee", dec.Text)
		assert.Zero(t, teller.randomCalls)
	}
}

func TestDecide_NoTrigger(t *testing.T) {
	d := NewDecider(&recordingTeller{}, testLogger())
	_, ok := d.Decide(context.Background(), userMsg("Sam", "hello there"))
	assert.False(t, ok)
}

func TestDecide_FallbackKeepsName(t *testing.T) {
	teller := NewTeller(TellerConfig{Source: &fakeSource{random: ""}, Logger: testLogger()})
	d := NewDecider(teller, testLogger())

	dec, ok := d.Decide(context.Background(), userMsg("Ana", "joke please"))
	require.True(t, ok)
	assert.Contains(t, dec.Text, NoJokeFallback)
	assert.Contains(t, dec.Text, "Ana")
}

func TestDecide_StableForDeterministicSource(t *testing.T) {
	d := NewDecider(&recordingTeller{}, testLogger())
	msg := userMsg("Sam", "joke please")

	first, _ := d.Decide(context.Background(), msg)
	second, _ := d.Decide(context.Background(), msg)
	assert.Equal(t, first, second)
}

func TestFormat_DefaultName(t *testing.T) {
	assert.Equal(t, "Hey there — x", Format("", "x"))
	assert.Equal(t, "Hey there — x", Format("   ", "x"))
	assert.Equal(t, "Hey Bo — x", Format("  Bo ", "x"))
}
