package provider

import (
	"context"
	"errors"
	"testing"

	"jokebot/internal/domain"
)

// mockSource implements domain.JokeSource for testing.
type mockSource struct {
	name     string
	random   string
	matches  []string
	err      error
	searched int
}

func (m *mockSource) Name() string { return m.name }

func (m *mockSource) Random(context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.random, nil
}

func (m *mockSource) Search(context.Context, string, int) ([]string, error) {
	m.searched++
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

func TestFailoverSource_UsesFirstWorkingSource(t *testing.T) {
	s1 := &mockSource{name: "primary", random: "from-primary"}
	s2 := &mockSource{name: "secondary", random: "from-secondary"}
	fs := NewFailoverSource([]domain.JokeSource{s1, s2}, testLogger())

	joke, err := fs.Random(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if joke != "from-primary" {
		t.Errorf("expected primary joke, got %q", joke)
	}
}

func TestFailoverSource_FallsBackOnErrorOrEmpty(t *testing.T) {
	for name, first := range map[string]*mockSource{
		"error": {name: "primary", err: errors.New("503")},
		"empty": {name: "primary", random: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			s2 := &mockSource{name: "secondary", random: "from-secondary"}
			fs := NewFailoverSource([]domain.JokeSource{first, s2}, testLogger())

			joke, err := fs.Random(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if joke != "from-secondary" {
				t.Errorf("expected fallback joke, got %q", joke)
			}
		})
	}
}

func TestFailoverSource_AllFail(t *testing.T) {
	fs := NewFailoverSource([]domain.JokeSource{
		&mockSource{name: "a", err: errors.New("down")},
		&mockSource{name: "b", err: errors.New("also down")},
	}, testLogger())

	if _, err := fs.Random(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := fs.Search(context.Background(), "cats", 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestFailoverSource_EmptySearchIsAnAnswer(t *testing.T) {
	s1 := &mockSource{name: "primary"}
	s2 := &mockSource{name: "secondary", matches: []string{"cat joke"}}
	fs := NewFailoverSource([]domain.JokeSource{s1, s2}, testLogger())

	jokes, err := fs.Search(context.Background(), "cats", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(jokes) != 0 {
		t.Errorf("expected primary's empty result, got %v", jokes)
	}
	if s2.searched != 0 {
		t.Error("secondary should not be asked")
	}
}

func TestFailoverSource_SearchFallsBackOnError(t *testing.T) {
	s1 := &mockSource{name: "primary", err: errors.New("timeout")}
	s2 := &mockSource{name: "secondary", matches: []string{"cat joke"}}
	fs := NewFailoverSource([]domain.JokeSource{s1, s2}, testLogger())

	jokes, err := fs.Search(context.Background(), "cats", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(jokes) != 1 || jokes[0] != "cat joke" {
		t.Errorf("unexpected jokes %v", jokes)
	}
}

func TestFailoverSource_Name(t *testing.T) {
	fs := NewFailoverSource([]domain.JokeSource{&mockSource{name: "a"}, &mockSource{name: "b"}}, nil)
	if fs.Name() != "failover(a→b)" {
		t.Errorf("unexpected name %q", fs.Name())
	}
}
