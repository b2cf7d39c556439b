// Package oracle implements the LLM-backed decision service behind the
// analyzer's filter, analyze, and select stages. Every operation is one
// chat-completion round trip in JSON mode; retries are the caller's concern
// and the client never performs them.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// Per-stage sampling parameters. The filter stage runs coolest because its
// output is a short structured list; selection runs warmest because it has to
// break ties between close candidates.
const (
	filterTemperature  = 0.2
	filterMaxTokens    = 500
	analyzeTemperature = 0.3
	analyzeMaxTokens   = 600
	selectTemperature  = 0.4
	selectMaxTokens    = 400
)

// ErrEmptyCompletion is returned when the model responds with no content.
var ErrEmptyCompletion = errors.New("oracle: empty completion")

// Config holds the chat-completion endpoint parameters.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements domain.Oracle against an OpenAI-compatible
// chat-completions endpoint.
type Client struct {
	cfg    Config
	httpc  *http.Client
	logger *slog.Logger
}

// New creates an oracle client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(slog.String("component", "oracle")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string            `json:"model"`
	Messages            []chatMessage     `json:"messages"`
	ResponseFormat      map[string]string `json:"response_format"`
	Temperature         float64           `json:"temperature"`
	MaxCompletionTokens int               `json:"max_completion_tokens"`
}

// complete performs one JSON-mode chat completion and returns the raw
// assistant content.
func (c *Client) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat:      map[string]string{"type": "json_object"},
		Temperature:         temperature,
		MaxCompletionTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("oracle: marshal request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle: completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("oracle: completion status %d: %s", resp.StatusCode, msg)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("oracle: decode completion: %w", err)
	}
	if len(r.Choices) == 0 || strings.TrimSpace(r.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return r.Choices[0].Message.Content, nil
}

// FilterMarkets implements domain.Oracle.
func (c *Client) FilterMarkets(ctx context.Context, event domain.Event, markets []domain.Market) (domain.FilterResult, error) {
	user, err := filterUserPrompt(event, markets)
	if err != nil {
		return domain.FilterResult{}, err
	}

	content, err := c.complete(ctx, filterSystemPrompt, user, filterTemperature, filterMaxTokens)
	if err != nil {
		return domain.FilterResult{}, err
	}

	result, err := parseFilterResult(content)
	if err != nil {
		return domain.FilterResult{}, err
	}

	c.logger.InfoContext(ctx, "filter completed",
		slog.String("event_id", event.ID),
		slog.Bool("relevant", result.IsRelevant),
		slog.Int("markets", len(result.RelevantMarketIDs)),
	)
	return result, nil
}

// AnalyzeImpact implements domain.Oracle.
func (c *Client) AnalyzeImpact(ctx context.Context, event domain.Event, market domain.Market) (domain.ImpactJudgment, error) {
	content, err := c.complete(ctx, analyzeSystemPrompt, analyzeUserPrompt(event, market), analyzeTemperature, analyzeMaxTokens)
	if err != nil {
		return domain.ImpactJudgment{}, err
	}

	judgment, err := parseImpactJudgment(content)
	if err != nil {
		return domain.ImpactJudgment{}, err
	}
	judgment.MarketID = market.ID
	judgment.Market = market

	c.logger.InfoContext(ctx, "impact analyzed",
		slog.String("event_id", event.ID),
		slog.String("market_id", market.ID),
		slog.String("sentiment", string(judgment.Sentiment)),
		slog.String("action", string(judgment.TradeDecision.Action)),
		slog.Float64("impact", judgment.ImpactScore),
	)
	return judgment, nil
}

// SelectBestMarket implements domain.Oracle.
func (c *Client) SelectBestMarket(ctx context.Context, event domain.Event, impacts []domain.ImpactJudgment) (domain.MarketSelection, error) {
	user, err := selectUserPrompt(event, impacts)
	if err != nil {
		return domain.MarketSelection{}, err
	}

	content, err := c.complete(ctx, selectSystemPrompt, user, selectTemperature, selectMaxTokens)
	if err != nil {
		return domain.MarketSelection{}, err
	}

	selection, err := parseMarketSelection(content)
	if err != nil {
		return domain.MarketSelection{}, err
	}

	c.logger.InfoContext(ctx, "market selected",
		slog.String("event_id", event.ID),
		slog.String("market_id", selection.MarketID),
		slog.Float64("confidence", selection.Confidence),
	)
	return selection, nil
}
