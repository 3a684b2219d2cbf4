package domain

import "context"

// JokeSource is a backend that can produce jokes.
type JokeSource interface {
	Name() string
	// Random returns a single joke. An empty string with a nil error
	// means the backend answered without content.
	Random(ctx context.Context) (string, error)
	// Search returns up to limit jokes related to term.
	Search(ctx context.Context, term string, limit int) ([]string, error)
}
