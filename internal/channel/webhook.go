package channel

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"jokebot/internal/bus"
	"jokebot/internal/domain"
	"jokebot/internal/metrics"
)

const (
	DefaultWebhookPath      = "/webhook"
	DefaultWebhookPort      = 8787
	DefaultWebhookQueueSize = 64

	// DiagnosticText is posted by GET /test to prove the bot can reach the group.
	DiagnosticText = "diag: /test OK"

	maxCallbackBody = 64 << 10
)

// Submitter runs work detached from the request that triggered it.
type Submitter interface {
	Submit(ctx context.Context, name string, fn func(ctx context.Context) error) string
}

// WebhookConfig configures the callback server.
type WebhookConfig struct {
	Host string
	Port int
	Path string
	// Secret, when set, must match the callback URL's token query parameter.
	Secret    string
	QueueSize int

	// Notifier and Dispatcher back the GET /test diagnostic post.
	Notifier   domain.Notifier
	Dispatcher Submitter
	Events     *bus.EventLog
	// Metrics is served on GET /metrics when non-nil.
	Metrics http.Handler

	Logger *slog.Logger
}

// Webhook receives GroupMe bot callbacks over HTTP and queues them for the
// processor. Callbacks are acknowledged before any reply work happens.
type Webhook struct {
	addr       string
	path       string
	secret     string
	queue      *bus.Queue
	notifier   domain.Notifier
	dispatcher Submitter
	events     *bus.EventLog
	metrics    http.Handler
	logger     *slog.Logger
	server     *http.Server
}

// callbackPayload is the subset of the GroupMe callback body the bot reads.
type callbackPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SenderType string `json:"sender_type"`
	Text       string `json:"text"`
}

func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Path == "" {
		cfg.Path = DefaultWebhookPath
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultWebhookPort
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultWebhookQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Webhook{
		addr:       net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		path:       cfg.Path,
		secret:     cfg.Secret,
		queue:      bus.NewQueue(cfg.QueueSize, cfg.Logger),
		notifier:   cfg.Notifier,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

func (w *Webhook) Name() string { return "webhook" }

// Addr is the listen address.
func (w *Webhook) Addr() string { return w.addr }

// FetchBatch blocks until at least one callback is queued, then returns
// everything currently queued.
func (w *Webhook) FetchBatch(ctx context.Context) ([]domain.IncomingMessage, error) {
	batch := w.queue.Drain(ctx)
	if len(batch) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.queue.Closed() {
			return nil, domain.ErrSourceClosed
		}
	}
	return batch, nil
}

// Handler returns the HTTP routes.
func (w *Webhook) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(rw http.ResponseWriter, _ *http.Request) {
		writeText(rw, http.StatusOK, "jokebot alive")
	})
	mux.HandleFunc("GET "+w.path, func(rw http.ResponseWriter, _ *http.Request) {
		writeText(rw, http.StatusOK, "ok")
	})
	mux.HandleFunc("POST "+w.path, w.handleCallback)
	mux.HandleFunc("GET /test", w.handleTest)
	mux.HandleFunc("GET /debug/events", w.handleEvents)
	if w.metrics != nil {
		mux.Handle("GET /metrics", w.metrics)
	}
	mux.HandleFunc("/", func(rw http.ResponseWriter, _ *http.Request) {
		writeText(rw, http.StatusNotFound, "not found")
	})
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// closes the inbound queue.
func (w *Webhook) Start(ctx context.Context) error {
	w.server = &http.Server{
		Addr:              w.addr,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	defer w.queue.Close()

	w.logger.Info("webhook server starting", "addr", w.addr, "path", w.path)

	errCh := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return w.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

func (w *Webhook) handleCallback(rw http.ResponseWriter, r *http.Request) {
	metrics.WebhookRequests.Inc()
	defer r.Body.Close()

	if w.secret != "" && !tokenMatches(r.URL.Query().Get("token"), w.secret) {
		w.logger.Warn("webhook token mismatch", "remote", r.RemoteAddr)
		writeText(rw, http.StatusForbidden, "forbidden")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		w.logger.Warn("webhook body read failed", "err", err)
	}
	msg := ParseCallback(raw)
	w.logger.Debug("webhook received", "msg_id", msg.ID, "sender_type", msg.SenderType, "text_len", len(msg.Text))

	if !w.queue.Publish(msg) {
		metrics.WebhookDropped.Inc()
		w.logger.Warn("inbound queue full, callback dropped", "msg_id", msg.ID)
	}
	writeText(rw, http.StatusOK, "ok")
}

func (w *Webhook) handleTest(rw http.ResponseWriter, r *http.Request) {
	if w.notifier == nil || w.dispatcher == nil {
		writeText(rw, http.StatusServiceUnavailable, "notifier not configured")
		return
	}
	notifier := w.notifier
	id := w.dispatcher.Submit(r.Context(), "diagnostic", func(ctx context.Context) error {
		if !notifier.PostReply(ctx, DiagnosticText) {
			return errors.New("diagnostic post failed")
		}
		return nil
	})
	w.events.Record(bus.Event{Type: bus.EventWebhookDiag, Detail: id, Time: time.Now()})
	writeText(rw, http.StatusOK, "sent")
}

func (w *Webhook) handleEvents(rw http.ResponseWriter, _ *http.Request) {
	events := w.events.Recent()
	if events == nil {
		events = []bus.Event{}
	}
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(map[string]any{"events": events}); err != nil {
		w.logger.Warn("encode events failed", "err", err)
	}
}

// ParseCallback turns a raw callback body into a message. Malformed or
// empty bodies become an empty message from an unknown sender, which the
// decider ignores.
func ParseCallback(raw []byte) domain.IncomingMessage {
	var p callbackPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			p = callbackPayload{}
		}
	}
	return domain.IncomingMessage{
		ID:         p.ID,
		SenderType: domain.ParseSenderType(p.SenderType),
		Name:       p.Name,
		Text:       p.Text,
	}
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeText(rw http.ResponseWriter, status int, body string) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	rw.WriteHeader(status)
	io.WriteString(rw, body)
}
