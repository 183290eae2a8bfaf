package model

// GateResult is the per-tick gate snapshot of one symbol.
// Side is always reported, even when Passed is false.
type GateResult struct {
	Side      Side     `json:"side"`
	M5Side    Side     `json:"m5_side"`
	H1Side    Side     `json:"h1_side"`
	M15Score  float64  `json:"m15_score"`
	H1Score   float64  `json:"h1_score"`
	HeavyHits int      `json:"heavy_hits"`
	ADXH1     float64  `json:"adx_h1"`
	Passed    bool     `json:"passed"`
	Failures  []string `json:"failures,omitempty"`
}
