// Package api provides the CoinGecko REST client.
//
// Endpoints consumed:
//   - GET /coins/markets (top-N assets by market cap, paginated)
//   - GET /coins/{id}/market_chart/range (hourly price/cap/volume series)
//
// The client classifies failures (RateLimitError, TransientError,
// ProtocolError) and performs no retries of its own; the ingest loop owns
// the retry and backoff policy.
package api
