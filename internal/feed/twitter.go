package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// defaultTwitterWSURL is the TwitterAPI.io tweet stream endpoint.
const defaultTwitterWSURL = "wss://ws.twitterapi.io/twitter/tweet/websocket"

// TwitterConfig holds the live feed parameters.
type TwitterConfig struct {
	URL           string
	APIKey        string
	Accounts      []string      // optional author allow-list (handles, case-insensitive)
	ReconnectBase time.Duration // first retry delay, doubled per attempt
	MaxReconnects int
}

// TwitterSource streams posts from the TwitterAPI.io WebSocket. It reconnects
// with exponential backoff on disconnect; after the attempt budget is spent
// it gives up and returns, leaving the engine running on whatever other
// surfaces remain.
type TwitterSource struct {
	cfg     TwitterConfig
	allowed map[string]bool // empty means every author passes
	logger  *slog.Logger
}

// NewTwitterSource creates a live feed source.
func NewTwitterSource(cfg TwitterConfig, logger *slog.Logger) *TwitterSource {
	if cfg.URL == "" {
		cfg.URL = defaultTwitterWSURL
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = 90 * time.Second
	}
	if cfg.MaxReconnects <= 0 {
		cfg.MaxReconnects = 5
	}
	allowed := make(map[string]bool, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		a = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(a), "@"))
		if a != "" {
			allowed[a] = true
		}
	}
	return &TwitterSource{
		cfg:     cfg,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "twitter_feed")),
	}
}

// wants reports whether the author handle passes the allow-list.
func (s *TwitterSource) wants(handle string) bool {
	return len(s.allowed) == 0 || s.allowed[strings.ToLower(handle)]
}

// Run implements Source.
func (s *TwitterSource) Run(ctx context.Context, emit func(domain.Event)) error {
	attempts := 0
	for {
		err := s.runConnection(ctx, emit)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		if attempts > s.cfg.MaxReconnects {
			s.logger.Error("max reconnection attempts reached, feed stopping",
				slog.Int("attempts", attempts-1),
			)
			return fmt.Errorf("feed: twitter stream: %w", domain.ErrWSDisconnect)
		}

		delay := s.cfg.ReconnectBase << (attempts - 1)
		s.logger.Warn("twitter stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
			slog.Int("attempt", attempts),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runConnection dials, then reads frames until the connection breaks.
func (s *TwitterSource) runConnection(ctx context.Context, emit func(domain.Event)) error {
	header := http.Header{}
	header.Set("x-api-key", s.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("feed: dial twitter stream: %w", err)
	}
	defer conn.Close()

	// Unblock ReadMessage on shutdown.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	s.logger.Info("twitter stream connected", slog.String("url", s.cfg.URL))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read twitter stream: %w", err)
		}
		s.handleFrame(data, emit)
	}
}

// handleFrame dispatches one stream frame. Malformed frames are dropped with
// a log line; they never take the connection down.
func (s *TwitterSource) handleFrame(data []byte, emit func(domain.Event)) {
	if !gjson.ValidBytes(data) {
		s.logger.Warn("dropping non-JSON frame", slog.Int("bytes", len(data)))
		return
	}
	doc := gjson.ParseBytes(data)

	switch typ := pick(doc, "type", "event_type").String(); typ {
	case "connected":
		s.logger.Info("twitter stream handshake complete")
	case "ping":
		s.logger.Debug("twitter stream ping", slog.String("timestamp", doc.Get("timestamp").String()))
	case "tweet":
		// The stream puts the tweet in the frame root; some variants use a
		// tweets array instead.
		if doc.Get("text").Exists() {
			if event, ok := parseTweet(doc, doc); ok {
				s.deliver(event, emit)
			} else {
				s.logger.Warn("dropping malformed tweet frame")
			}
			return
		}
		for _, raw := range doc.Get("tweets").Array() {
			if event, ok := parseTweet(raw, doc); ok {
				s.deliver(event, emit)
			} else {
				s.logger.Warn("dropping malformed tweet entry")
			}
		}
	default:
		s.logger.Debug("ignoring unknown stream event", slog.String("type", typ))
	}
}

// deliver applies the author allow-list before handing the event on.
func (s *TwitterSource) deliver(event domain.Event, emit func(domain.Event)) {
	if !s.wants(event.Author.Handle) {
		s.logger.Debug("skipping tweet from unwatched account",
			slog.String("handle", event.Author.Handle),
		)
		return
	}
	emit(event)
}

// pick returns the first existing value among the given paths.
func pick(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// parseTweet normalizes one raw tweet document. Field names have drifted
// across API versions between camelCase and snake_case; every known alias is
// accepted. Tweets without text are rejected.
func parseTweet(data, envelope gjson.Result) (domain.Event, bool) {
	text := data.Get("text").String()
	if text == "" {
		return domain.Event{}, false
	}

	id := pick(data, "id", "id_str", "tweet_id").String()
	if id == "" {
		id = "tweet-" + uuid.NewString()
	}

	author := pick(data, "author", "user")
	verified := pick(author, "isBlueVerified", "verified", "is_blue_verified").Bool()

	timestamp := time.Now().UTC()
	if v := pick(data, "createdAt", "created_at"); v.Exists() {
		if t, err := time.Parse(time.RubyDate, v.String()); err == nil {
			timestamp = t.UTC()
		} else if t, err := time.Parse(time.RFC3339, v.String()); err == nil {
			timestamp = t.UTC()
		}
	} else if ms := envelope.Get("timestamp").Int(); ms > 0 {
		timestamp = time.UnixMilli(ms).UTC()
	}

	name := pick(author, "name", "display_name").String()
	if name == "" {
		name = "Unknown"
	}
	handle := pick(author, "userName", "username", "screen_name").String()
	if handle == "" {
		handle = "unknown"
	}

	return domain.Event{
		ID:   id,
		Text: text,
		Author: domain.Author{
			Name:     name,
			Handle:   handle,
			Avatar:   pick(author, "profilePicture", "profile_image_url_https", "profile_image_url", "profileImageUrl").String(),
			Verified: verified,
		},
		Timestamp: timestamp,
		Engagement: domain.Engagement{
			Likes:   int(pick(data, "likeCount", "favorite_count").Int()),
			Shares:  int(pick(data, "retweetCount", "retweet_count").Int()),
			Replies: int(pick(data, "replyCount", "reply_count").Int()),
		},
	}, true
}
