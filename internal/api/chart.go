package api

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/jmorrell/coingecko-data/internal/model"
)

// GetMarketChart fetches the hourly market-data series for one asset over
// [from, to] (unix seconds, inclusive). The upstream may return sparse data
// near the current hour; an empty result is not an error.
func (c *Client) GetMarketChart(ctx context.Context, assetID string, from, to int64) ([]model.MarketDataPoint, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("from", strconv.FormatInt(from, 10))
	query.Set("to", strconv.FormatInt(to, 10))

	var resp MarketChartResponse
	if err := c.get(ctx, "/coins/"+url.PathEscape(assetID)+"/market_chart/range", query, &resp); err != nil {
		return nil, err
	}

	points, err := resp.ToPoints(assetID)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched market chart",
		"asset_id", assetID,
		"from", from,
		"to", to,
		"points", len(points),
	)

	return points, nil
}

// ToPoints converts the three index-aligned metric arrays into hour-aligned
// data points, ascending by timestamp. Upstream timestamps land at arbitrary
// offsets within the hour; each is truncated to its hour bucket and the last
// observation per bucket wins. Misaligned array lengths are a protocol error.
func (r *MarketChartResponse) ToPoints(assetID string) ([]model.MarketDataPoint, error) {
	if len(r.MarketCaps) != len(r.Prices) || len(r.TotalVolumes) != len(r.Prices) {
		return nil, &ProtocolError{Message: fmt.Sprintf(
			"misaligned series arrays: prices=%d market_caps=%d total_volumes=%d",
			len(r.Prices), len(r.MarketCaps), len(r.TotalVolumes),
		)}
	}

	byHour := make(map[int64]model.MarketDataPoint, len(r.Prices))
	for i, p := range r.Prices {
		ts := hourAlign(int64(p[0]) / 1000)
		byHour[ts] = model.MarketDataPoint{
			AssetID:       assetID,
			TimestampUnix: ts,
			PriceUSD:      p[1],
			MarketCapUSD:  r.MarketCaps[i][1],
			VolumeUSD:     r.TotalVolumes[i][1],
		}
	}

	points := make([]model.MarketDataPoint, 0, len(byHour))
	for _, dp := range byHour {
		points = append(points, dp)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].TimestampUnix < points[j].TimestampUnix
	})

	return points, nil
}

// hourAlign truncates a unix-seconds timestamp to the top of its hour.
func hourAlign(ts int64) int64 {
	return ts - ts%3600
}
