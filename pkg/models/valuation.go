package models

// Default spread applied around the mid multiple when low/high are absent.
const (
	DefaultLowFactor  = 0.8
	DefaultHighFactor = 1.2
)

// MultipleSet is the revenue-multiplier triple behind a valuation.
// Low and High are optional and a non-positive value counts as absent; consumers
// must apply the defaults via LowOrDefault/HighOrDefault.
type MultipleSet struct {
	Mid       float64  `json:"mid"`
	Low       *float64 `json:"low,omitempty"`
	High      *float64 `json:"high,omitempty"`
	AsOf      string   `json:"asOf"`
	Rationale string   `json:"rationale,omitempty"`
}

// LowOrDefault returns Low, or 0.8 × Mid when Low is absent or not positive.
func (m MultipleSet) LowOrDefault() float64 {
	if m.Low != nil && *m.Low > 0 {
		return *m.Low
	}
	return DefaultLowFactor * m.Mid
}

// HighOrDefault returns High, or 1.2 × Mid when High is absent or not positive.
func (m MultipleSet) HighOrDefault() float64 {
	if m.High != nil && *m.High > 0 {
		return *m.High
	}
	return DefaultHighFactor * m.Mid
}

// Clone returns a copy that shares no pointers with m.
func (m MultipleSet) Clone() MultipleSet {
	out := m
	if m.Low != nil {
		out.Low = Float(*m.Low)
	}
	if m.High != nil {
		out.High = Float(*m.High)
	}
	return out
}

// ValuationSnapshot is the complete valuation state round-tripped between client and server.
// Revenue is annualized.
type ValuationSnapshot struct {
	Revenue     float64     `json:"revenue"`
	Sector      string      `json:"sector"`
	Region      string      `json:"region"`
	Stage       string      `json:"stage"`
	Currency    string      `json:"currency"`
	MultipleSet MultipleSet `json:"multipleSet"`
}

// Clone returns a deep copy.
func (s ValuationSnapshot) Clone() ValuationSnapshot {
	out := s
	out.MultipleSet = s.MultipleSet.Clone()
	return out
}

// ValuationRange is derived from a snapshot and never stored.
type ValuationRange struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// Citation is a grounding source, indexed from 1 in response order.
type Citation struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Float returns a pointer to f, for the optional multiple fields.
func Float(f float64) *float64 { return &f }
