package opinion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNormalizeMarketCamelCase(t *testing.T) {
	raw := gjson.Parse(`{
		"marketId": 42,
		"marketTitle": "Will BTC close above 100k this week?",
		"category": "Crypto",
		"statusEnum": "Activated",
		"yesLabel": "up",
		"noLabel": "down",
		"yesPrice": 0.62,
		"change24h": 3.5,
		"volume": 120000,
		"liquidity": 45000,
		"yesTokenId": "tok-up",
		"noTokenId": "tok-down",
		"cutoffAt": 1767225600
	}`)

	m, ok := normalizeMarket(raw)
	require.True(t, ok)
	assert.Equal(t, "42", m.ID)
	assert.Equal(t, "Will BTC close above 100k this week?", m.Question)
	assert.Equal(t, "Crypto", m.Category)
	assert.Equal(t, "UP", m.Outcomes[0].Label)
	assert.Equal(t, "DOWN", m.Outcomes[1].Label)
	assert.InDelta(t, 0.62, m.Outcomes[0].Probability, 1e-9)
	assert.InDelta(t, 0.38, m.Outcomes[1].Probability, 1e-9)
	assert.InDelta(t, 3.5, m.Outcomes[0].Change24h, 1e-9)
	assert.InDelta(t, -3.5, m.Outcomes[1].Change24h, 1e-9)
	require.NotNil(t, m.Tokens)
	assert.Equal(t, "tok-up", m.Tokens.Primary)
	assert.Equal(t, "tok-down", m.Tokens.Secondary)
	assert.True(t, m.Tradeable())

	token, found := m.TokenForSide("up")
	require.True(t, found)
	assert.Equal(t, "tok-up", token)
}

func TestNormalizeMarketSnakeCase(t *testing.T) {
	raw := gjson.Parse(`{
		"market_id": "7",
		"market_title": "Fed cuts rates in March?",
		"status": "activated",
		"yes_price": 0.3,
		"yes_token_id": "t-yes",
		"no_token_id": "t-no"
	}`)

	m, ok := normalizeMarket(raw)
	require.True(t, ok)
	assert.Equal(t, "7", m.ID)
	assert.Equal(t, "General", m.Category)
	assert.Equal(t, "YES", m.Outcomes[0].Label)
	assert.Equal(t, "NO", m.Outcomes[1].Label)
	assert.InDelta(t, 0.3, m.Outcomes[0].Probability, 1e-9)
	assert.True(t, m.Tradeable())
}

func TestNormalizeMarketRejectsClosed(t *testing.T) {
	for _, status := range []string{"Resolved", "canceled", "closed"} {
		raw := gjson.Parse(`{"marketId": 1, "statusEnum": "` + status + `"}`)
		_, ok := normalizeMarket(raw)
		assert.False(t, ok, "status %s should be rejected", status)
	}
}

func TestNormalizeMarketMissingIDRejected(t *testing.T) {
	_, ok := normalizeMarket(gjson.Parse(`{"marketTitle": "no id", "statusEnum": "Activated"}`))
	assert.False(t, ok)
}

func TestNormalizeMarketDefaultsBadPrice(t *testing.T) {
	raw := gjson.Parse(`{"marketId": 9, "statusEnum": "Activated", "yesPrice": 0, "yesTokenId": "a", "noTokenId": "b"}`)
	m, ok := normalizeMarket(raw)
	require.True(t, ok)
	assert.InDelta(t, 0.5, m.Outcomes[0].Probability, 1e-9)
}

func TestIsActivated(t *testing.T) {
	assert.True(t, isActivated(gjson.Parse(`{"statusEnum": "Activated", "yesTokenId": "a", "noTokenId": "b"}`)))
	assert.False(t, isActivated(gjson.Parse(`{"statusEnum": "Created", "yesTokenId": "a", "noTokenId": "b"}`)), "created markets have no order book")
	assert.False(t, isActivated(gjson.Parse(`{"statusEnum": "Activated", "yesTokenId": "a"}`)), "missing token id")
}
