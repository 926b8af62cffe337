package domain

// MarketSnapshot is the per-tick market condition for one subject, supplied
// by the external market-data provider. Read-only input; never persisted
// beyond the current decision.
type MarketSnapshot struct {
	SubjectKey         string
	Price              float64
	PriceHistory       []float64 // most recent last
	SpreadBps          float64   // quoted spread in basis points
	RollingVolume      float64   // rolling window volume, quote units
	LiquidityReserves  float64   // pool reserves, quote units
	Volatility         float64   // rolling relative volatility, [0,+inf)
	OrderBookImbalance float64   // [-1,1], positive means bid-heavy
	TimestampMs        int64     // Unix timestamp in milliseconds
}

// ChaosSignal is an optional externally supplied disruption hint, ephemeral
// and per-tick.
type ChaosSignal struct {
	Magnitude   float64 // [0,1]
	Synchronize bool    // request coordinated suppression
}
