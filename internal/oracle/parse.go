package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// ErrBadCompletion is returned when the model's output is not the requested
// JSON shape.
var ErrBadCompletion = errors.New("oracle: malformed completion")

// Models occasionally wrap JSON-mode output in a fenced block, and some
// drift between snake_case and camelCase keys across responses. Parsing is
// alias-tolerant on both counts rather than failing the whole stage.

// stripFences removes a Markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
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

func parseFilterResult(content string) (domain.FilterResult, error) {
	content = stripFences(content)
	if !gjson.Valid(content) {
		return domain.FilterResult{}, fmt.Errorf("%w: filter result is not JSON", ErrBadCompletion)
	}
	doc := gjson.Parse(content)

	var ids []string
	for _, v := range pick(doc, "relevant_market_ids", "relevantMarketIds").Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			ids = append(ids, s)
		}
	}

	return domain.FilterResult{
		IsRelevant:        pick(doc, "is_relevant", "isRelevant").Bool(),
		RelevantMarketIDs: ids,
		Summary:           pick(doc, "reasoning_summary", "reasoningSummary", "summary").String(),
	}, nil
}

func parseImpactJudgment(content string) (domain.ImpactJudgment, error) {
	content = stripFences(content)
	if !gjson.Valid(content) {
		return domain.ImpactJudgment{}, fmt.Errorf("%w: impact judgment is not JSON", ErrBadCompletion)
	}
	doc := gjson.Parse(content)

	sentiment, err := parseSentiment(pick(doc, "sentiment").String())
	if err != nil {
		return domain.ImpactJudgment{}, err
	}

	decision := pick(doc, "trade_decision", "tradeDecision")
	if !decision.Exists() {
		return domain.ImpactJudgment{}, fmt.Errorf("%w: missing trade_decision", ErrBadCompletion)
	}
	action, err := parseAction(pick(decision, "action").String())
	if err != nil {
		return domain.ImpactJudgment{}, err
	}

	var steps []string
	for _, v := range pick(doc, "reasoning_steps", "reasoningSteps").Array() {
		steps = append(steps, v.String())
	}

	return domain.ImpactJudgment{
		MarketID:       pick(doc, "market_id", "marketId").String(),
		Sentiment:      sentiment,
		ImpactScore:    clamp01(pick(doc, "impact_score", "impactScore").Float()),
		Confidence:     clamp01(pick(doc, "confidence").Float()),
		ReasoningSteps: steps,
		TradeDecision: domain.TradeDecision{
			Action:         action,
			Side:           strings.TrimSpace(pick(decision, "side").String()),
			SuggestedPrice: pick(decision, "suggested_price", "suggestedPrice").Float(),
			SizeUSDC:       pick(decision, "size_usdc", "sizeUsdc").Float(),
		},
		Reason: pick(doc, "human_readable_reason", "humanReadableReason", "reason").String(),
	}, nil
}

func parseMarketSelection(content string) (domain.MarketSelection, error) {
	content = stripFences(content)
	if !gjson.Valid(content) {
		return domain.MarketSelection{}, fmt.Errorf("%w: selection is not JSON", ErrBadCompletion)
	}
	doc := gjson.Parse(content)

	id := strings.TrimSpace(pick(doc, "selected_market_id", "selectedMarketId", "market_id", "marketId").String())
	if id == "" {
		return domain.MarketSelection{}, fmt.Errorf("%w: missing selected_market_id", ErrBadCompletion)
	}

	return domain.MarketSelection{
		MarketID:    id,
		Reasoning:   pick(doc, "selection_reasoning", "selectionReasoning", "reasoning").String(),
		Comparative: pick(doc, "comparative_analysis", "comparativeAnalysis").String(),
		Confidence:  clamp01(pick(doc, "confidence_in_selection", "confidenceInSelection", "confidence").Float()),
	}, nil
}

func parseSentiment(s string) (domain.Sentiment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(domain.SentimentPositive):
		return domain.SentimentPositive, nil
	case string(domain.SentimentNegative):
		return domain.SentimentNegative, nil
	case string(domain.SentimentNeutral), "":
		return domain.SentimentNeutral, nil
	}
	return "", fmt.Errorf("%w: unknown sentiment %q", ErrBadCompletion, s)
}

func parseAction(s string) (domain.TradeAction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(domain.ActionBuy):
		return domain.ActionBuy, nil
	case string(domain.ActionSell):
		return domain.ActionSell, nil
	case string(domain.ActionHold), "":
		return domain.ActionHold, nil
	}
	return "", fmt.Errorf("%w: unknown trade action %q", ErrBadCompletion, s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
