package model

// TradeSide is the direction of a trade execution.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Valid reports whether s is a known trade side.
func (s TradeSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade is one execution in the append-only trade ledger. Trades are
// immutable after creation.
type Trade struct {
	TradeID        string    // UUID primary key
	AssetID        string    // CoinGecko asset id
	Symbol         string    // Ticker symbol at execution time
	Side           TradeSide // BUY or SELL
	Quantity       float64   // Amount traded, > 0
	PriceUSD       float64   // Execution price per unit
	TradeValueUSD  float64   // Quantity * PriceUSD
	ExecutedAt     int64     // Execution time (s since epoch)
	FeesUSD        float64   // Transaction fees
	RealizedPnLUSD float64   // Populated on sells only, 0 for buys
	CreatedAt      int64     // Record creation time (s since epoch)
}

// Position is the net holding for one asset. The average cost basis follows
// the average cost method: each buy re-weights it, sells leave it unchanged.
type Position struct {
	AssetID         string  // CoinGecko asset id
	Symbol          string  // Ticker symbol
	Quantity        float64 // Net quantity held, > 0 while open
	AvgCostBasisUSD float64 // Weighted average cost per unit
	OpenedAt        int64   // First buy time (s since epoch)
	LastUpdatedAt   int64   // Last mutation time (s since epoch)
}
