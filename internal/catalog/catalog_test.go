package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

type fakeFetcher struct {
	markets []domain.Market
	err     error
	calls   int
}

func (f *fakeFetcher) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func market(id string) domain.Market {
	return domain.Market{ID: id, Status: domain.MarketStatusActive}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	fetcher := &fakeFetcher{markets: []domain.Market{market("m1"), market("m2")}}
	c := New(fetcher, nil, 0, testLogger())

	got, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	fetcher.markets = []domain.Market{market("m3")}
	got, err = c.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m3", got[0].ID)

	all := c.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "m3", all[0].ID)
}

func TestRefreshFailureKeepsPreviousSet(t *testing.T) {
	fetcher := &fakeFetcher{markets: []domain.Market{market("m1")}}
	c := New(fetcher, nil, 0, testLogger())

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	fetcher.err = errors.New("venue unreachable")
	_, err = c.Refresh(context.Background())
	require.Error(t, err)

	all := c.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "m1", all[0].ID)
}

func TestGetAllReturnsCopy(t *testing.T) {
	fetcher := &fakeFetcher{markets: []domain.Market{market("m1")}}
	c := New(fetcher, nil, 0, testLogger())

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	first := c.GetAll()
	first[0].ID = "mutated"

	second := c.GetAll()
	assert.Equal(t, "m1", second[0].ID)
}

func TestGetAllEmptyBeforeFirstRefresh(t *testing.T) {
	c := New(&fakeFetcher{}, nil, 0, testLogger())
	assert.Empty(t, c.GetAll())
}
