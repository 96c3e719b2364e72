package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-key")

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.apiKey != "test-key" {
			t.Errorf("apiKey = %q, want %q", c.apiKey, "test-key")
		}
		if c.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 30*time.Second)
		}
		if c.pageSize != 250 {
			t.Errorf("pageSize = %d, want 250", c.pageSize)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		hc := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", "",
			WithTimeout(5*time.Second),
			WithPageSize(100),
			WithHTTPClient(hc),
		)
		if c.httpClient != hc {
			t.Error("custom HTTP client not set")
		}
		if c.pageSize != 100 {
			t.Errorf("pageSize = %d, want 100", c.pageSize)
		}
	})
}

// TestErrorClassification tests that response codes map to the right
// error types.
func TestErrorClassification(t *testing.T) {
	t.Run("429 with Retry-After", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "17")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), "/coins/markets", nil)

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("error = %v, want RateLimitError", err)
		}
		if rl.RetryAfter != 17*time.Second {
			t.Errorf("RetryAfter = %v, want %v", rl.RetryAfter, 17*time.Second)
		}
	})

	t.Run("429 without Retry-After", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), "/coins/markets", nil)

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatalf("error = %v, want RateLimitError", err)
		}
		if rl.RetryAfter != 0 {
			t.Errorf("RetryAfter = %v, want 0", rl.RetryAfter)
		}
	})

	t.Run("5xx is transient", func(t *testing.T) {
		for _, code := range []int{500, 502, 503} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))

			c := NewClient(server.URL, "")
			_, err := c.doRequest(context.Background(), "/coins/markets", nil)
			server.Close()

			var te *TransientError
			if !errors.As(err, &te) {
				t.Fatalf("status %d: error = %v, want TransientError", code, err)
			}
			if te.StatusCode != code {
				t.Errorf("StatusCode = %d, want %d", te.StatusCode, code)
			}
		}
	})

	t.Run("connection refused is transient", func(t *testing.T) {
		// Point at a server that is already closed.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), "/coins/markets", nil)

		var te *TransientError
		if !errors.As(err, &te) {
			t.Fatalf("error = %v, want TransientError", err)
		}
	})

	t.Run("4xx is protocol error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), "/coins/does-not-exist", nil)

		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want ProtocolError", err)
		}
		if pe.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want 404", pe.StatusCode)
		}
	})

	t.Run("malformed body is protocol error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not json</html>"))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		var out []APICoin
		err := c.get(context.Background(), "/coins/markets", nil, &out)

		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want ProtocolError", err)
		}
	})
}

// TestAPIKeyHeader tests that the key header is sent only when configured.
func TestAPIKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(apiKeyHeader)
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "cg-secret")
	if _, err := c.doRequest(context.Background(), "/coins/markets", nil); err != nil {
		t.Fatalf("doRequest failed: %v", err)
	}
	if gotKey != "cg-secret" {
		t.Errorf("api key header = %q, want %q", gotKey, "cg-secret")
	}

	c = NewClient(server.URL, "")
	if _, err := c.doRequest(context.Background(), "/coins/markets", nil); err != nil {
		t.Fatalf("doRequest failed: %v", err)
	}
	if gotKey != "" {
		t.Errorf("api key header = %q, want empty", gotKey)
	}
}

// TestListTopAssets tests coins/markets pagination.
func TestListTopAssets(t *testing.T) {
	// rankServer serves a fixed universe of total coins with standard
	// offset pagination: page p of size n covers ranks (p-1)*n+1 .. p*n.
	rankServer := func(t *testing.T, total int, perPages *[]int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
			if r.URL.Query().Get("order") != "market_cap_desc" {
				t.Errorf("order = %q, want market_cap_desc", r.URL.Query().Get("order"))
			}
			if perPages != nil {
				*perPages = append(*perPages, perPage)
			}

			start := (page - 1) * perPage
			coins := []APICoin{}
			for rank := start + 1; rank <= start+perPage && rank <= total; rank++ {
				coins = append(coins, APICoin{
					ID:            "coin-" + strconv.Itoa(rank),
					Symbol:        "c" + strconv.Itoa(rank),
					Name:          "Coin " + strconv.Itoa(rank),
					MarketCapRank: rank,
				})
			}
			json.NewEncoder(w).Encode(coins)
		}))
	}

	t.Run("paginates until limit", func(t *testing.T) {
		server := rankServer(t, 8, nil)
		defer server.Close()

		c := NewClient(server.URL, "", WithPageSize(2))
		assets, err := c.ListTopAssets(context.Background(), 5)
		if err != nil {
			t.Fatalf("ListTopAssets failed: %v", err)
		}

		if len(assets) != 5 {
			t.Fatalf("len(assets) = %d, want 5", len(assets))
		}
		for i, a := range assets {
			if a.Rank != i+1 {
				t.Errorf("assets[%d].Rank = %d, want %d", i, a.Rank, i+1)
			}
		}
		if assets[0].AssetID != "coin-1" {
			t.Errorf("assets[0].AssetID = %q, want coin-1", assets[0].AssetID)
		}
	})

	t.Run("limit not a multiple of page size", func(t *testing.T) {
		// A shrunken final page would shift the upstream offset and re-fetch
		// earlier ranks; per_page must stay constant and the tail must be
		// the true tail.
		var perPages []int
		server := rankServer(t, 400, &perPages)
		defer server.Close()

		c := NewClient(server.URL, "", WithPageSize(250))
		assets, err := c.ListTopAssets(context.Background(), 300)
		if err != nil {
			t.Fatalf("ListTopAssets failed: %v", err)
		}

		for i, pp := range perPages {
			if pp != 250 {
				t.Errorf("request %d: per_page = %d, want constant 250", i+1, pp)
			}
		}
		if len(assets) != 300 {
			t.Fatalf("len(assets) = %d, want 300", len(assets))
		}
		seen := make(map[string]bool, len(assets))
		for i, a := range assets {
			if seen[a.AssetID] {
				t.Errorf("duplicate asset %q at index %d", a.AssetID, i)
			}
			seen[a.AssetID] = true
			if a.Rank != i+1 {
				t.Errorf("assets[%d].Rank = %d, want %d", i, a.Rank, i+1)
			}
		}
		if got := assets[len(assets)-1].Rank; got != 300 {
			t.Errorf("last rank = %d, want 300", got)
		}
	})

	t.Run("short page ends pagination", func(t *testing.T) {
		var pages int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pages++
			// Upstream only has 3 coins regardless of the requested limit.
			json.NewEncoder(w).Encode([]APICoin{
				{ID: "bitcoin", MarketCapRank: 1},
				{ID: "ethereum", MarketCapRank: 2},
				{ID: "tether", MarketCapRank: 3},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithPageSize(10))
		assets, err := c.ListTopAssets(context.Background(), 10)
		if err != nil {
			t.Fatalf("ListTopAssets failed: %v", err)
		}

		if len(assets) != 3 {
			t.Errorf("len(assets) = %d, want 3", len(assets))
		}
		if pages != 1 {
			t.Errorf("pages fetched = %d, want 1", pages)
		}
	})
}

// TestGetMarketChart tests series conversion from the range endpoint.
func TestGetMarketChart(t *testing.T) {
	t.Run("hour alignment and ordering", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/coins/bitcoin/market_chart/range" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.URL.Query().Get("from") != "7200" || r.URL.Query().Get("to") != "14400" {
				t.Errorf("range = %s..%s, want 7200..14400",
					r.URL.Query().Get("from"), r.URL.Query().Get("to"))
			}
			// Timestamps in ms, deliberately off the hour and out of order.
			json.NewEncoder(w).Encode(MarketChartResponse{
				Prices:       [][2]float64{{10_801_000, 101}, {7_205_000, 100}},
				MarketCaps:   [][2]float64{{10_801_000, 2001}, {7_205_000, 2000}},
				TotalVolumes: [][2]float64{{10_801_000, 31}, {7_205_000, 30}},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		points, err := c.GetMarketChart(context.Background(), "bitcoin", 7200, 14400)
		if err != nil {
			t.Fatalf("GetMarketChart failed: %v", err)
		}

		if len(points) != 2 {
			t.Fatalf("len(points) = %d, want 2", len(points))
		}
		if points[0].TimestampUnix != 7200 || points[1].TimestampUnix != 10800 {
			t.Errorf("timestamps = %d, %d; want 7200, 10800",
				points[0].TimestampUnix, points[1].TimestampUnix)
		}
		if points[0].PriceUSD != 100 || points[0].MarketCapUSD != 2000 || points[0].VolumeUSD != 30 {
			t.Errorf("points[0] = %+v", points[0])
		}
	})

	t.Run("last observation per hour wins", func(t *testing.T) {
		resp := MarketChartResponse{
			Prices:       [][2]float64{{3_600_000, 1}, {3_900_000, 2}},
			MarketCaps:   [][2]float64{{3_600_000, 10}, {3_900_000, 20}},
			TotalVolumes: [][2]float64{{3_600_000, 100}, {3_900_000, 200}},
		}
		points, err := resp.ToPoints("bitcoin")
		if err != nil {
			t.Fatalf("ToPoints failed: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("len(points) = %d, want 1", len(points))
		}
		if points[0].TimestampUnix != 3600 || points[0].PriceUSD != 2 {
			t.Errorf("points[0] = %+v, want ts=3600 price=2", points[0])
		}
	})

	t.Run("misaligned arrays are protocol error", func(t *testing.T) {
		resp := MarketChartResponse{
			Prices:       [][2]float64{{3_600_000, 1}},
			MarketCaps:   [][2]float64{},
			TotalVolumes: [][2]float64{{3_600_000, 100}},
		}
		_, err := resp.ToPoints("bitcoin")

		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Fatalf("error = %v, want ProtocolError", err)
		}
	})

	t.Run("empty series is not an error", func(t *testing.T) {
		resp := MarketChartResponse{}
		points, err := resp.ToPoints("bitcoin")
		if err != nil {
			t.Fatalf("ToPoints failed: %v", err)
		}
		if len(points) != 0 {
			t.Errorf("len(points) = %d, want 0", len(points))
		}
	})
}
