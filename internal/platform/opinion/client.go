// Package opinion is the REST adapter for the Opinion Trade venue on BNB
// Smart Chain. It implements order placement, balance reads, and the market
// list feed consumed by the catalog.
package opinion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// usdtAddress is the BSC USDT contract; the venue settles in USDT even
// though sizes are quoted in USDC terms.
const usdtAddress = "0x55d398326f99059ff775485246999027b3197955"

// Config holds the venue connection parameters.
type Config struct {
	Host        string
	APIKey      string
	PrivateKey  string
	WalletAddr  string // multi-sig wallet holding the balance
	ChainID     int
	Timeout     time.Duration
	MarketLimit int
}

// Client talks to the Opinion Trade REST API. It implements domain.Venue and
// serves the catalog's market fetches.
type Client struct {
	cfg    Config
	httpc  *http.Client
	signer *Signer
	logger *slog.Logger
}

// New creates a venue client. The private key is required: orders must be
// signed, so a client without signing material cannot be constructed (run
// without a venue instead).
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = "https://proxy.opinion.trade:8443"
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MarketLimit <= 0 {
		cfg.MarketLimit = 20
	}

	signer, err := NewSigner(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: cfg.Timeout},
		signer: signer,
		logger: logger.With(slog.String("component", "opinion")),
	}, nil
}

// FetchMarkets returns the venue's tradeable markets: ACTIVATED status with
// both outcome token IDs assigned. Closed and unactivated markets are
// dropped during normalization.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	path := fmt.Sprintf("/openapi/market/list?limit=%d&status=activated", c.cfg.MarketLimit)
	result, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("opinion: fetch markets: %w", err)
	}

	raws := result.Get("list").Array()
	markets := make([]domain.Market, 0, len(raws))
	for _, raw := range raws {
		if !isActivated(raw) {
			continue
		}
		if m, ok := normalizeMarket(raw); ok && m.Tradeable() {
			markets = append(markets, m)
		}
	}

	c.logger.InfoContext(ctx, "markets fetched",
		slog.Int("total", len(raws)),
		slog.Int("tradeable", len(markets)),
	)
	return markets, nil
}

// PlaceOrder implements domain.Venue. Orders are always MARKET orders buying
// the outcome token for the requested side; selling an outcome is expressed
// as buying the opposite token upstream. The call is made exactly once with
// no retry, so one logical order can never be placed twice.
func (c *Client) PlaceOrder(ctx context.Context, marketID, side string, amount, price float64, tokenID string) (domain.TradeExecution, error) {
	if tokenID == "" {
		return domain.TradeExecution{}, domain.ErrMissingToken
	}
	mid, err := strconv.Atoi(marketID)
	if err != nil {
		return domain.TradeExecution{}, fmt.Errorf("opinion: non-numeric market id %q: %w", marketID, err)
	}

	body := map[string]any{
		"marketId":                mid,
		"tokenId":                 tokenID,
		"side":                    "BUY",
		"price":                   "0",
		"makerAmountInQuoteToken": amount,
		"orderType":               "MARKET_ORDER",
	}

	c.logger.InfoContext(ctx, "placing market order",
		slog.String("market_id", marketID),
		slog.String("side", side),
		slog.Float64("amount", amount),
	)

	result, err := c.do(ctx, http.MethodPost, "/openapi/order/place", body)
	if err != nil {
		return domain.TradeExecution{}, fmt.Errorf("opinion: place order: %w", err)
	}

	data := result.Get("data")
	exec := domain.TradeExecution{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Side:      side,
		Amount:    amount,
		Price:     price,
		Status:    domain.TradeStatusConfirmed,
		TxHash:    pick(data, "tx_hash", "transactionHash", "txHash").String(),
		Timestamp: time.Now().UTC(),
	}
	return exec, nil
}

// GetBalance implements domain.Venue. The venue reports per-token balances;
// the USDT entry is preferred, falling back to the first positive balance.
func (c *Client) GetBalance(ctx context.Context) (domain.Balance, error) {
	result, err := c.do(ctx, http.MethodGet, "/openapi/balance/list", nil)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("opinion: get balance: %w", err)
	}

	balances := result.Get("balances").Array()
	if len(balances) == 0 {
		balances = result.Get("data.balances").Array()
	}

	out := domain.Balance{Symbol: "USDC"}
	for _, bal := range balances {
		addr := strings.ToLower(pick(bal, "quote_token", "quoteToken").String())
		avail := pick(bal, "available_balance", "availableBalance").Float()
		total := pick(bal, "total_balance", "totalBalance").Float()

		if addr == usdtAddress {
			return domain.Balance{Available: avail, Total: total, Symbol: "USDT"}, nil
		}
		if avail > 0 && out.Available == 0 {
			out.Available = avail
			out.Total = total
		}
	}
	return out, nil
}

// do sends one request and unwraps the standard {errno, errmsg, result}
// envelope, returning the result document. Mutating requests carry a wallet
// signature over the body.
func (c *Client) do(ctx context.Context, method, path string, body any) (gjson.Result, error) {
	var bodyBytes []byte
	var bodyReader io.Reader
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Host+path, bodyReader)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")

		sig, err := c.signer.SignPayload(bodyBytes)
		if err != nil {
			return gjson.Result{}, err
		}
		req.Header.Set("x-signature", sig)
		req.Header.Set("x-wallet", c.cfg.WalletAddr)
		req.Header.Set("x-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	doc := gjson.ParseBytes(respBody)
	if errno := doc.Get("errno").Int(); errno != 0 {
		return gjson.Result{}, fmt.Errorf("venue error %d: %s", errno, doc.Get("errmsg").String())
	}
	return doc.Get("result"), nil
}
