package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultDadJokeAPIBase   = "https://icanhazdadjoke.com"
	DefaultDadJokeUserAgent = "jokebot (https://github.com/jokebot/jokebot)"
)

type DadJokeConfig struct {
	APIBase    string
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// DadJoke is a domain.JokeSource backed by icanhazdadjoke.com.
type DadJoke struct {
	apiBase   string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

func NewDadJoke(cfg DadJokeConfig) *DadJoke {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultDadJokeAPIBase
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultDadJokeUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &DadJoke{
		apiBase:   strings.TrimRight(cfg.APIBase, "/"),
		userAgent: cfg.UserAgent,
		client:    cfg.HTTPClient,
		logger:    cfg.Logger,
	}
}

func (d *DadJoke) Name() string { return "icanhazdadjoke" }

type dadJoke struct {
	ID   string `json:"id"`
	Joke string `json:"joke"`
}

type dadJokeSearch struct {
	Results []dadJoke `json:"results"`
}

func (d *DadJoke) Random(ctx context.Context) (string, error) {
	var j dadJoke
	if err := d.getJSON(ctx, d.apiBase+"/", &j); err != nil {
		return "", err
	}
	return j.Joke, nil
}

func (d *DadJoke) Search(ctx context.Context, term string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("term", term)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res dadJokeSearch
	if err := d.getJSON(ctx, d.apiBase+"/search?"+q.Encode(), &res); err != nil {
		return nil, err
	}
	jokes := make([]string, 0, len(res.Results))
	for _, r := range res.Results {
		jokes = append(jokes, r.Joke)
	}
	d.logger.Debug("joke search", "term", term, "results", len(jokes))
	return jokes, nil
}

func (d *DadJoke) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build joke request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("joke request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read joke response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("joke request: HTTP %d: %s", resp.StatusCode, snippet(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse joke response: %w", err)
	}
	return nil
}
