package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/jmorrell/coingecko-data/internal/model"
)

// ListTopAssets fetches the top limit assets by market capitalization,
// paginating through coins/markets until limit rows or a short page.
// The result is ordered by ascending rank.
func (c *Client) ListTopAssets(ctx context.Context, limit int) ([]model.AssetMetadata, error) {
	assets := make([]model.AssetMetadata, 0, limit)

	for page := 1; len(assets) < limit; page++ {
		query := url.Values{}
		query.Set("vs_currency", "usd")
		query.Set("order", "market_cap_desc")
		// per_page must stay constant across pages: the upstream offset is
		// page * per_page, so a shrunken final page would re-fetch earlier
		// ranks instead of the tail. Overshoot is trimmed below.
		query.Set("per_page", strconv.Itoa(c.pageSize))
		query.Set("page", strconv.Itoa(page))

		var coins []APICoin
		if err := c.get(ctx, "/coins/markets", query, &coins); err != nil {
			return nil, err
		}

		c.logger.Debug("fetched coins/markets page",
			"page", page,
			"count", len(coins),
		)

		now := time.Now().Unix()
		for _, coin := range coins {
			assets = append(assets, coin.ToModel(now))
		}

		// Short page means the upstream list is exhausted.
		if len(coins) < c.pageSize {
			break
		}
	}

	if len(assets) > limit {
		assets = assets[:limit]
	}

	return assets, nil
}

// ToModel converts an APICoin to model.AssetMetadata.
func (a *APICoin) ToModel(now int64) model.AssetMetadata {
	return model.AssetMetadata{
		AssetID:       a.ID,
		Symbol:        a.Symbol,
		Name:          a.Name,
		Rank:          a.MarketCapRank,
		FirstSeenAt:   now,
		LastUpdatedAt: now,
	}
}
