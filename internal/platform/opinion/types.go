package opinion

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// The market list endpoint has drifted between camelCase and snake_case keys
// across API versions, so normalization reads every known alias via gjson
// rather than a fixed struct.

// pick returns the first existing value among the given paths.
func pick(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// isActivated reports whether a raw market is in the ACTIVATED state with
// both outcome token IDs assigned. Only such markets can take orders.
func isActivated(raw gjson.Result) bool {
	status := strings.ToLower(pick(raw, "statusEnum", "status_enum", "status").String())
	if !strings.Contains(status, "activated") {
		return false
	}
	return pick(raw, "yesTokenId", "yes_token_id").String() != "" &&
		pick(raw, "noTokenId", "no_token_id").String() != ""
}

// normalizeMarket converts one raw market document into the domain shape.
// The second return is false for markets that are closed, malformed, or not
// tradeable.
func normalizeMarket(raw gjson.Result) (domain.Market, bool) {
	status := strings.ToLower(pick(raw, "statusEnum", "status_enum", "status").String())
	switch {
	case strings.Contains(status, "resolved"),
		strings.Contains(status, "canceled"),
		strings.Contains(status, "closed"):
		return domain.Market{}, false
	}

	id := pick(raw, "marketId", "market_id", "id").String()
	if id == "" {
		return domain.Market{}, false
	}

	question := pick(raw, "marketTitle", "market_title", "question").String()
	if question == "" {
		question = "Untitled market"
	}

	category := pick(raw, "category").String()
	if category == "" {
		category = "General"
	}

	primaryLabel := strings.ToUpper(pick(raw, "yesLabel", "yes_label").String())
	if primaryLabel == "" {
		primaryLabel = "YES"
	}
	secondaryLabel := strings.ToUpper(pick(raw, "noLabel", "no_label").String())
	if secondaryLabel == "" {
		secondaryLabel = "NO"
	}

	primaryPrice := pick(raw, "yesPrice", "yes_price").Float()
	if primaryPrice <= 0 || primaryPrice >= 1 {
		primaryPrice = 0.5
	}
	change := pick(raw, "change24h", "change_24h").Float()

	primaryToken := pick(raw, "yesTokenId", "yes_token_id").String()
	secondaryToken := pick(raw, "noTokenId", "no_token_id").String()

	var endDate time.Time
	if v := pick(raw, "cutoffAt", "cutoff_at", "endDate", "end_date"); v.Exists() {
		if v.Type == gjson.Number {
			endDate = time.Unix(v.Int(), 0).UTC()
		} else if t, err := time.Parse(time.RFC3339, v.String()); err == nil {
			endDate = t
		}
	}

	m := domain.Market{
		ID:        id,
		Question:  question,
		Category:  category,
		Volume:    pick(raw, "volume").Float(),
		Liquidity: pick(raw, "liquidity").Float(),
		EndDate:   endDate,
		Status:    domain.MarketStatusActive,
		Outcomes: [2]domain.Outcome{
			{
				ID:          id + "-primary",
				Label:       primaryLabel,
				Probability: primaryPrice,
				Change24h:   change,
				TokenID:     primaryToken,
			},
			{
				ID:          id + "-secondary",
				Label:       secondaryLabel,
				Probability: 1 - primaryPrice,
				Change24h:   -change,
				TokenID:     secondaryToken,
			},
		},
	}
	if primaryToken != "" && secondaryToken != "" {
		m.Tokens = &domain.TradeTokens{Primary: primaryToken, Secondary: secondaryToken}
	}
	return m, true
}
