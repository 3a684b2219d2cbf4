package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileJoke is one entry of a YAML joke pack.
type FileJoke struct {
	Text string   `yaml:"text"`
	Tags []string `yaml:"tags,omitempty"`
}

type jokePack struct {
	Jokes []FileJoke `yaml:"jokes"`
}

// JokeFile is an offline domain.JokeSource over a fixed joke list.
type JokeFile struct {
	jokes []FileJoke
	pick  func(n int) int
}

// NewJokeFile serves the given jokes. Entries with blank text are dropped.
func NewJokeFile(jokes []FileJoke) *JokeFile {
	kept := make([]FileJoke, 0, len(jokes))
	for _, j := range jokes {
		if strings.TrimSpace(j.Text) == "" {
			continue
		}
		kept = append(kept, j)
	}
	return &JokeFile{jokes: kept, pick: rand.IntN}
}

// LoadJokeFile reads a YAML joke pack:
//
//	jokes:
//	  - text: "Why did the coffee file a police report? It got mugged."
//	    tags: [coffee]
func LoadJokeFile(path string) (*JokeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read joke file: %w", err)
	}
	var pack jokePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse joke file %s: %w", path, err)
	}
	jf := NewJokeFile(pack.Jokes)
	if len(jf.jokes) == 0 {
		return nil, fmt.Errorf("joke file %s has no jokes", path)
	}
	return jf, nil
}

func (f *JokeFile) Name() string { return "file" }

// Len reports how many jokes are loaded.
func (f *JokeFile) Len() int { return len(f.jokes) }

func (f *JokeFile) Random(ctx context.Context) (string, error) {
	if len(f.jokes) == 0 {
		return "", errors.New("joke file is empty")
	}
	return f.jokes[f.pick(len(f.jokes))].Text, nil
}

// Search matches term case-insensitively against tags and joke text.
func (f *JokeFile) Search(ctx context.Context, term string, limit int) ([]string, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}
	var out []string
	for _, j := range f.jokes {
		if limit > 0 && len(out) >= limit {
			break
		}
		tagged := slices.ContainsFunc(j.Tags, func(tag string) bool {
			return strings.EqualFold(strings.TrimSpace(tag), term)
		})
		if tagged || strings.Contains(strings.ToLower(j.Text), term) {
			out = append(out, j.Text)
		}
	}
	return out, nil
}
