package api

// APICoin represents one row from GET /coins/markets.
type APICoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// MarketChartResponse from GET /coins/{id}/market_chart/range.
//
// Each metric is a series of [timestamp_ms, value] pairs. The three arrays
// are index-aligned and of equal length; anything else is a protocol error.
type MarketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}
