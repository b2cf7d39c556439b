package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

const filterSystemPrompt = `You are a market relevance filter for a prediction market trading system.

Your task: Analyze the incoming post and identify which prediction markets from the given list could be impacted by this news.

Rules:
1. Be selective - only return markets with clear, direct relevance
2. Maximum 5 markets (prefer 2-3 highly relevant ones)
3. Consider both direct mentions AND indirect implications
4. If the post is clearly irrelevant to ALL markets, return an empty list

Output ONLY valid JSON in this exact format:
{
  "is_relevant": boolean,
  "relevant_market_ids": ["market_id_1", "market_id_2"],
  "reasoning_summary": "Brief explanation of why these markets are relevant"
}`

const analyzeSystemPrompt = `You are an expert prediction market trader. Your task is to analyze how a specific news event impacts a prediction market and provide a trading decision WITH A CONFIDENCE SCORE.

IMPORTANT: We will ONLY trade on the SINGLE most impacted market with a FIXED $5 amount. Your analysis helps identify which market has the highest impact.

Analysis Framework:
1. CREDIBILITY: Assume the post content is TRUE and IMPACTFUL unless proven otherwise. Trust the signal.
2. DIRECTNESS: How directly does this news affect the market question?
3. MAGNITUDE: How significant is the impact? Minor update vs game-changer?
4. TIMING: Act fast. Assume this is new information that the market needs to react to.
5. EDGE: Is there a gap between current price and fair value?

Output ONLY valid JSON in this exact format (no prose):
{
  "market_id": "string",
  "sentiment": "POSITIVE" | "NEGATIVE" | "NEUTRAL",
  "impact_score": number (0.0 to 1.0),
  "confidence": number (0.0 to 1.0),
  "reasoning_steps": ["step 1", "step 2", "step 3"],
  "trade_decision": {
    "action": "BUY" | "SELL" | "HOLD",
    "side": "string or null",
    "suggested_price": number (0.01 to 0.99) REQUIRED even for HOLD decisions,
    "size_usdc": 5
  },
  "human_readable_reason": "Clear explanation in natural language"
}

sentiment:
- POSITIVE = increases likelihood of the primary outcome
- NEGATIVE = decreases likelihood of the primary outcome
- NEUTRAL = no significant impact

TRADING DECISION:
- Bias towards ACTION over inaction. If there is a plausible link, TAKE THE TRADE.
- Use the actual outcome labels of the market in the "side" field.
- Reasoning should be concise, 3 steps: (1) signal, (2) impact direction and magnitude, (3) trade rationale.`

const selectSystemPrompt = `You are an expert prediction market trader making the FINAL decision on which single market to trade.

You have already analyzed multiple markets for their impact from a news event. Now you must select the ONE best market to place a $5 trade on.

Consider:
1. Impact Score: Higher impact = more likely the news moves this market
2. Confidence: Higher confidence = more certain about the analysis
3. Edge Quality: Is there a clear mispricing opportunity?
4. Market Liquidity: Can we execute at the desired price?
5. Risk/Reward: Best asymmetric opportunity

Output ONLY valid JSON in this exact format (no prose):
{
  "selected_market_id": "string",
  "selection_reasoning": "Why this market is the best choice among all candidates",
  "comparative_analysis": "Brief comparison explaining why this beats other options",
  "confidence_in_selection": number (0.0 to 1.0)
}

Be decisive. Pick the ONE market with the best combination of high impact, high confidence, and clear edge.`

// eventHeader renders the post block shared by all three user prompts.
func eventHeader(event domain.Event) string {
	badge := ""
	if event.Author.Verified {
		badge = " [verified]"
	}
	return fmt.Sprintf("Post from @%s%s:\n%q\n\nPosted: %s\nEngagement: %d likes, %d shares",
		event.Author.Handle, badge, event.Text,
		event.Timestamp.Format(time.RFC3339),
		event.Engagement.Likes, event.Engagement.Shares)
}

func filterUserPrompt(event domain.Event, markets []domain.Market) (string, error) {
	type compact struct {
		ID       string `json:"id"`
		Question string `json:"question"`
		Category string `json:"category"`
	}
	summary := make([]compact, 0, len(markets))
	for _, m := range markets {
		summary = append(summary, compact{ID: m.ID, Question: m.Question, Category: m.Category})
	}
	blob, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("oracle: marshal market summary: %w", err)
	}

	var b strings.Builder
	b.WriteString(eventHeader(event))
	fmt.Fprintf(&b, "\n\nAvailable Markets (%d total):\n%s\n\nAnalyze and return relevant market IDs.", len(markets), blob)
	return b.String(), nil
}

func analyzeUserPrompt(event domain.Event, market domain.Market) string {
	primary, secondary := market.Outcomes[0], market.Outcomes[1]

	tradeable := "NO - Cannot execute trades (no token IDs)"
	if market.Tradeable() {
		tradeable = "YES - Ready for trading"
	}

	var b strings.Builder
	b.WriteString(eventHeader(event))
	fmt.Fprintf(&b, "\n\nMarket Details:\n")
	fmt.Fprintf(&b, "- ID: %s\n", market.ID)
	fmt.Fprintf(&b, "- Question: %s\n", market.Question)
	fmt.Fprintf(&b, "- Category: %s\n", market.Category)
	fmt.Fprintf(&b, "- Outcome Labels: %q vs %q\n", primary.Label, secondary.Label)
	fmt.Fprintf(&b, "- Current %s price: %.1f%%\n", primary.Label, primary.Probability*100)
	fmt.Fprintf(&b, "- Current %s price: %.1f%%\n", secondary.Label, secondary.Probability*100)
	fmt.Fprintf(&b, "- 24h Change: %+.1f%%\n", primary.Change24h)
	fmt.Fprintf(&b, "- Volume: $%.0f\n", market.Volume)
	fmt.Fprintf(&b, "- End Date: %s\n", market.EndDate.Format(time.RFC3339))
	fmt.Fprintf(&b, "- TRADEABLE: %s\n\n", tradeable)
	fmt.Fprintf(&b, "Analyze the impact and provide your trading decision.\n")
	fmt.Fprintf(&b, "IMPORTANT: Use the actual outcome labels %q or %q in your trade_decision.side field.", primary.Label, secondary.Label)
	return b.String()
}

func selectUserPrompt(event domain.Event, impacts []domain.ImpactJudgment) (string, error) {
	type candidate struct {
		Index          int     `json:"index"`
		MarketID       string  `json:"market_id"`
		Question       string  `json:"question"`
		Category       string  `json:"category"`
		PrimaryPrice   float64 `json:"current_primary_price"`
		Volume         float64 `json:"volume"`
		Liquidity      float64 `json:"liquidity"`
		ImpactScore    float64 `json:"impact_score"`
		Confidence     float64 `json:"confidence"`
		Sentiment      string  `json:"sentiment"`
		Action         string  `json:"action"`
		Side           string  `json:"side"`
		SuggestedPrice float64 `json:"suggested_price"`
		Reasoning      string  `json:"reasoning"`
	}

	candidates := make([]candidate, 0, len(impacts))
	for i, imp := range impacts {
		candidates = append(candidates, candidate{
			Index:          i + 1,
			MarketID:       imp.MarketID,
			Question:       imp.Market.Question,
			Category:       imp.Market.Category,
			PrimaryPrice:   imp.Market.Outcomes[0].Probability,
			Volume:         imp.Market.Volume,
			Liquidity:      imp.Market.Liquidity,
			ImpactScore:    imp.ImpactScore,
			Confidence:     imp.Confidence,
			Sentiment:      string(imp.Sentiment),
			Action:         string(imp.TradeDecision.Action),
			Side:           imp.TradeDecision.Side,
			SuggestedPrice: imp.TradeDecision.SuggestedPrice,
			Reasoning:      imp.Reason,
		})
	}
	blob, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("oracle: marshal candidates: %w", err)
	}

	var b strings.Builder
	b.WriteString(eventHeader(event))
	fmt.Fprintf(&b, "\n\nCandidate Markets (%d total):\n%s\n\nSelect the ONE best market to trade $5 on. Be decisive and explain your choice clearly.", len(impacts), blob)
	return b.String(), nil
}
