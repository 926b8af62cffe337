package domain

// Signal types tracked by the pattern detector.
const (
	SignalPrice      = "PRICE"
	SignalVolume     = "VOLUME"
	SignalLiquidity  = "LIQUIDITY"
	SignalVolatility = "VOLATILITY"
)

// Observation is one magnitude sample for a (subject, signal type) stream.
// Corresponds to observations table in ClickHouse.
type Observation struct {
	SubjectKey  string
	SignalType  string
	Value       float64
	TimestampMs int64 // Unix timestamp in milliseconds
}

// AnomalyReport is the result of scoring one observation against its
// stream's running statistics. Corresponds to anomalies table in ClickHouse.
type AnomalyReport struct {
	SubjectKey  string
	SignalType  string
	Value       float64
	Mean        float64
	Stddev      float64
	Deviation   float64 // (value - mean) / stddev
	IsAnomaly   bool    // |Deviation| > 2
	Severity    float64 // clamp(|Deviation|/4, 0, 1)
	Confidence  float64 // min(windowSize/50, 0.95)
	TimestampMs int64   // Unix timestamp in milliseconds
}

// Forecast is a short-horizon linear extrapolation of a stream.
type Forecast struct {
	SubjectKey string
	SignalType string
	Steps      int     // lookahead k
	Value      float64 // clamped to [0,1]
	Confidence float64 // max(0.4, 0.9/(1+0.5k))
}
