// Package intent turns a chat utterance into an ordered list of snapshot edits
// and applies them as a pure transformation.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"startup_valuation/pkg/core/amount"
	"startup_valuation/pkg/models"
)

type Kind int

// Kinds are declared in application order.
const (
	SetRevenue Kind = iota
	SetMultiple
	UseLow
	UseHigh
	PercentDelta
	FreshData
)

func (k Kind) String() string {
	switch k {
	case SetRevenue:
		return "set_revenue"
	case SetMultiple:
		return "set_multiple"
	case UseLow:
		return "use_low"
	case UseHigh:
		return "use_high"
	case PercentDelta:
		return "percent_delta"
	case FreshData:
		return "fresh_data"
	default:
		return "unknown"
	}
}

type Target int

const (
	TargetRevenue Target = iota
	TargetMultiple
)

// Intent is one recognized edit. Only the fields relevant to Kind are set.
type Intent struct {
	Kind Kind

	// SetRevenue
	Amount  string
	Monthly bool

	// SetMultiple (the new mid) and PercentDelta (whole percent)
	Value float64

	// PercentDelta
	Target Target
}

var (
	revenuePattern   = regexp.MustCompile(`(?i)(?:make\s+(arr|mrr)|set\s+(arr|mrr)\s+to|(arr|mrr))\s+([0-9.,]+\s*(?:k|lakh|l|crore|cr)?)`)
	multiplePattern  = regexp.MustCompile(`(?i)(?:use|set\s+multiple\s+to)\s+([0-9.]+)\s*[×x]`)
	useLowPattern    = regexp.MustCompile(`(?i)use\s+low\s+multiple`)
	useHighPattern   = regexp.MustCompile(`(?i)use\s+high\s+multiple`)
	percentPattern   = regexp.MustCompile(`(?i)(?:^|[^\d.])([+-]?\d+)%\s+(arr|revenue|multiple)`)
	freshDataPattern = regexp.MustCompile(`(?i)latest.*multiples|market\s+multiple\s+now|fresh\s+multiples`)
)

type matcher func(text string) (Intent, bool)

// matchers run in this order; each decides only its own intent.
var matchers = []matcher{
	matchRevenue,
	matchMultiple,
	matchFlag(useLowPattern, UseLow),
	matchFlag(useHighPattern, UseHigh),
	matchPercent,
	matchFlag(freshDataPattern, FreshData),
}

// Parse returns every intent found in text, in application order.
func Parse(text string) []Intent {
	var found []Intent
	for _, match := range matchers {
		if in, ok := match(text); ok {
			found = append(found, in)
		}
	}
	return found
}

func matchRevenue(text string) (Intent, bool) {
	m := revenuePattern.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	keyword := strings.ToLower(m[1] + m[2] + m[3])
	return Intent{
		Kind:    SetRevenue,
		Amount:  strings.TrimSpace(m[4]),
		Monthly: keyword == "mrr",
	}, true
}

func matchMultiple(text string) (Intent, bool) {
	m := multiplePattern.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return Intent{}, false
	}
	return Intent{Kind: SetMultiple, Value: v}, true
}

func matchPercent(text string) (Intent, bool) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return Intent{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Intent{}, false
	}
	target := TargetRevenue
	if strings.EqualFold(m[2], "multiple") {
		target = TargetMultiple
	}
	return Intent{Kind: PercentDelta, Value: float64(n), Target: target}, true
}

func matchFlag(pattern *regexp.Regexp, kind Kind) matcher {
	return func(text string) (Intent, bool) {
		if pattern.MatchString(text) {
			return Intent{Kind: kind}, true
		}
		return Intent{}, false
	}
}

// Outcome is the result of applying a turn's intents.
type Outcome struct {
	Snapshot             models.ValuationSnapshot
	NeedsFreshMarketData bool
	Applied              []Kind
}

// Apply runs intents in order against a copy of snapshot. The input is never
// modified. An unparseable amount fails the whole turn with apperr.ErrInvalidAmount.
func Apply(snapshot models.ValuationSnapshot, intents []Intent) (Outcome, error) {
	out := Outcome{Snapshot: snapshot.Clone()}
	for _, in := range intents {
		next, err := in.apply(out.Snapshot)
		if err != nil {
			return Outcome{}, err
		}
		out.Snapshot = next
		if in.Kind == FreshData {
			out.NeedsFreshMarketData = true
		}
		out.Applied = append(out.Applied, in.Kind)
	}
	return out, nil
}

// Interpret parses an already sanitized utterance and applies it.
func Interpret(snapshot models.ValuationSnapshot, text string) (Outcome, error) {
	return Apply(snapshot, Parse(text))
}

func (in Intent) apply(s models.ValuationSnapshot) (models.ValuationSnapshot, error) {
	s = s.Clone()
	ms := &s.MultipleSet

	switch in.Kind {
	case SetRevenue:
		v, err := amount.Parse(in.Amount)
		if err != nil {
			return s, err
		}
		if in.Monthly {
			v *= 12
		}
		s.Revenue = v

	case SetMultiple:
		ms.Mid = in.Value
		ms.Low = models.Float(in.Value * models.DefaultLowFactor)
		ms.High = models.Float(in.Value * models.DefaultHighFactor)

	case UseLow:
		ms.Mid = ms.LowOrDefault()

	case UseHigh:
		ms.Mid = ms.HighOrDefault()

	case PercentDelta:
		factor := 1 + in.Value/100
		if in.Target == TargetRevenue {
			s.Revenue *= factor
			break
		}
		low, high := ms.LowOrDefault(), ms.HighOrDefault()
		ms.Mid *= factor
		ms.Low = models.Float(low * factor)
		ms.High = models.Float(high * factor)
	}
	return s, nil
}
