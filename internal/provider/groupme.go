package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jokebot/internal/domain"
	"jokebot/internal/metrics"
)

const (
	DefaultGroupMeAPIBase = "https://api.groupme.com/v3"
	groupMeMaxHistory     = 100
)

// ErrMissingBotID is returned by Post when no bot is configured.
var ErrMissingBotID = errors.New("groupme: bot id not configured")

type GroupMeConfig struct {
	APIBase    string
	Token      string // access token, needed to read messages
	GroupID    string
	BotID      string // bot id, needed to post
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// GroupMe talks to the GroupMe v3 REST API. It reads group history with
// an access token and posts as a bot.
type GroupMe struct {
	apiBase string
	token   string
	groupID string
	botID   string
	client  *http.Client
	logger  *slog.Logger
}

func NewGroupMe(cfg GroupMeConfig) *GroupMe {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultGroupMeAPIBase
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GroupMe{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		token:   cfg.Token,
		groupID: cfg.GroupID,
		botID:   cfg.BotID,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

type groupMeMessage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SenderType string `json:"sender_type"`
	Text       string `json:"text"`
}

type groupMeMessagesEnvelope struct {
	Response struct {
		Messages []groupMeMessage `json:"messages"`
	} `json:"response"`
}

// LatestMessages returns up to limit of the group's most recent messages,
// newest first as GroupMe orders them. limit is clamped to 1..100.
func (g *GroupMe) LatestMessages(ctx context.Context, limit int) ([]domain.IncomingMessage, error) {
	limit = min(max(limit, 1), groupMeMaxHistory)

	u := fmt.Sprintf("%s/groups/%s/messages?%s", g.apiBase, url.PathEscape(g.groupID),
		url.Values{"limit": {strconv.Itoa(limit)}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build messages request: %w", err)
	}
	req.Header.Set("X-Access-Token", g.token)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("groupme messages: %w", err)
	}
	defer resp.Body.Close()

	// 304 means the group has no messages yet.
	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read messages response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("groupme messages: HTTP %d: %s", resp.StatusCode, snippet(body))
	}

	var env groupMeMessagesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse messages response: %w", err)
	}

	msgs := make([]domain.IncomingMessage, 0, len(env.Response.Messages))
	for _, m := range env.Response.Messages {
		msgs = append(msgs, domain.IncomingMessage{
			ID:         m.ID,
			SenderType: domain.ParseSenderType(m.SenderType),
			Name:       m.Name,
			Text:       m.Text,
		})
	}
	return msgs, nil
}

// Post sends text to the group as the configured bot.
func (g *GroupMe) Post(ctx context.Context, text string) error {
	if g.botID == "" {
		return ErrMissingBotID
	}
	if r := []rune(text); len(r) > domain.MaxPostRunes {
		text = string(r[:domain.MaxPostRunes])
	}

	payload, err := json.Marshal(map[string]string{"bot_id": g.botID, "text": text})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+"/bots/post", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("groupme post: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("groupme post: HTTP %d: %s", resp.StatusCode, snippet(body))
	}
	return nil
}

// PostReply implements domain.Notifier. Failures are logged and counted.
func (g *GroupMe) PostReply(ctx context.Context, text string) bool {
	if err := g.Post(ctx, text); err != nil {
		metrics.PostFailures.Inc()
		g.logger.Error("post reply failed", "err", err)
		return false
	}
	metrics.RepliesPosted.Inc()
	return true
}
