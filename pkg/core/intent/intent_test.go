package intent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startup_valuation/pkg/core/apperr"
	"startup_valuation/pkg/models"
)

func baseSnapshot() models.ValuationSnapshot {
	return models.ValuationSnapshot{
		Revenue:  1e6,
		Sector:   "SaaS",
		Region:   "India",
		Stage:    "Seed",
		Currency: "INR",
		MultipleSet: models.MultipleSet{
			Mid:       10,
			Low:       models.Float(8),
			High:      models.Float(12),
			AsOf:      "2025-06",
			Rationale: "comps",
		},
	}
}

func TestInterpret_NoIntentIsIdentity(t *testing.T) {
	in := baseSnapshot()
	out, err := Interpret(in, "what does this number mean?")
	require.NoError(t, err)

	assert.Equal(t, in, out.Snapshot)
	assert.False(t, out.NeedsFreshMarketData)
	assert.Empty(t, out.Applied)
}

func TestInterpret_CombinedRevenueAndMultiple(t *testing.T) {
	out, err := Interpret(baseSnapshot(), "make ARR 2Cr and use 9×")
	require.NoError(t, err)

	assert.Equal(t, []Kind{SetRevenue, SetMultiple}, out.Applied)
	assert.Equal(t, 2e7, out.Snapshot.Revenue)
	assert.Equal(t, 9.0, out.Snapshot.MultipleSet.Mid)
	assert.InDelta(t, 7.2, *out.Snapshot.MultipleSet.Low, 1e-9)
	assert.InDelta(t, 10.8, *out.Snapshot.MultipleSet.High, 1e-9)
}

func TestInterpret_SetRevenueForms(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"set arr to 15L", 1.5e6},
		{"arr 85k please", 85000},
		{"make arr 2,50,000", 250000},
		{"make mrr 5L", 6e6},
		{"set MRR to 1 lakh", 1.2e6},
		{"make arr 15 lakhs", 1.5e6},
		{"arr 2crores", 2e7},
		{"arr 3 crores please", 3e7},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			out, err := Interpret(baseSnapshot(), tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, out.Snapshot.Revenue, 1e-6)
		})
	}
}

func TestInterpret_InvalidAmountAbortsTurn(t *testing.T) {
	in := baseSnapshot()
	out, err := Interpret(in, "make arr 1.2.3 and use 9x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidAmount))
	assert.Equal(t, Outcome{}, out)
	assert.Equal(t, baseSnapshot(), in)
}

func TestInterpret_SetMultipleIgnoresNonPositive(t *testing.T) {
	out, err := Interpret(baseSnapshot(), "use 0x")
	require.NoError(t, err)
	assert.Empty(t, out.Applied)
	assert.Equal(t, baseSnapshot(), out.Snapshot)
}

func TestInterpret_UseLowAndHigh(t *testing.T) {
	out, err := Interpret(baseSnapshot(), "use low multiple")
	require.NoError(t, err)
	assert.Equal(t, 8.0, out.Snapshot.MultipleSet.Mid)

	out, err = Interpret(baseSnapshot(), "use high multiple")
	require.NoError(t, err)
	assert.Equal(t, 12.0, out.Snapshot.MultipleSet.Mid)

	bare := baseSnapshot()
	bare.MultipleSet.Low = nil
	bare.MultipleSet.High = nil
	out, err = Interpret(bare, "use low multiple")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, out.Snapshot.MultipleSet.Mid, 1e-9)
	out, err = Interpret(bare, "use high multiple")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, out.Snapshot.MultipleSet.Mid, 1e-9)
}

func TestInterpret_UseLowThenHigh(t *testing.T) {
	out, err := Interpret(baseSnapshot(), "use high multiple, no wait, use low multiple")
	require.NoError(t, err)
	assert.Equal(t, []Kind{UseLow, UseHigh}, out.Applied)
	assert.Equal(t, 12.0, out.Snapshot.MultipleSet.Mid)
}

func TestInterpret_PercentDelta(t *testing.T) {
	out, err := Interpret(baseSnapshot(), "+20% arr")
	require.NoError(t, err)
	assert.InDelta(t, 1.2e6, out.Snapshot.Revenue, 1e-6)
	assert.Equal(t, 10.0, out.Snapshot.MultipleSet.Mid)

	bare := baseSnapshot()
	bare.MultipleSet.Low = nil
	bare.MultipleSet.High = nil
	out, err = Interpret(bare, "-10% multiple")
	require.NoError(t, err)
	ms := out.Snapshot.MultipleSet
	assert.InDelta(t, 9.0, ms.Mid, 1e-9)
	require.NotNil(t, ms.Low)
	require.NotNil(t, ms.High)
	assert.InDelta(t, 7.2, *ms.Low, 1e-9)
	assert.InDelta(t, 10.8, *ms.High, 1e-9)
	assert.Equal(t, 1e6, out.Snapshot.Revenue)
}

func TestInterpret_PercentDeltaRejectsFractions(t *testing.T) {
	for _, text := range []string{"grow 10.5% arr", "cut .5% multiple"} {
		out, err := Interpret(baseSnapshot(), text)
		require.NoError(t, err, text)
		assert.Empty(t, out.Applied, text)
		assert.Equal(t, baseSnapshot(), out.Snapshot, text)
	}
}

func TestInterpret_ZeroBoundsCountAsAbsent(t *testing.T) {
	zeroed := baseSnapshot()
	zeroed.MultipleSet.Low = models.Float(0)
	zeroed.MultipleSet.High = models.Float(0)

	out, err := Interpret(zeroed, "use low multiple")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, out.Snapshot.MultipleSet.Mid, 1e-9)
	assert.InDelta(t, 6.4, out.Snapshot.MultipleSet.LowOrDefault(), 1e-9)
	assert.InDelta(t, 9.6, out.Snapshot.MultipleSet.HighOrDefault(), 1e-9)

	out, err = Interpret(zeroed, "use high multiple")
	require.NoError(t, err)
	assert.InDelta(t, 12.0, out.Snapshot.MultipleSet.Mid, 1e-9)
}

func TestInterpret_FreshData(t *testing.T) {
	for _, text := range []string{"fetch latest multiples", "what is the market multiple now", "get fresh multiples"} {
		out, err := Interpret(baseSnapshot(), text)
		require.NoError(t, err, text)
		assert.True(t, out.NeedsFreshMarketData, text)
		assert.Equal(t, baseSnapshot(), out.Snapshot, text)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := baseSnapshot()
	_, err := Apply(in, []Intent{
		{Kind: PercentDelta, Target: TargetMultiple, Value: 50},
		{Kind: SetMultiple, Value: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 8.0, *in.MultipleSet.Low)
	assert.Equal(t, 12.0, *in.MultipleSet.High)
	assert.Equal(t, 10.0, in.MultipleSet.Mid)
}

func TestParse_Order(t *testing.T) {
	got := Parse("fresh multiples, +5% multiple, use high multiple, use low multiple, set multiple to 4x, arr 2cr")
	kinds := make([]Kind, 0, len(got))
	for _, in := range got {
		kinds = append(kinds, in.Kind)
	}
	assert.Equal(t, []Kind{SetRevenue, SetMultiple, UseLow, UseHigh, PercentDelta, FreshData}, kinds)
	assert.Equal(t, "set_multiple", SetMultiple.String())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "use 9x", Sanitize("  <b>use</b> 9x  "))
	assert.Equal(t, "", Sanitize("   "))

	stray := Sanitize("make arr 2cr <and use 9x")
	assert.Equal(t, "make arr 2cr <and use 9x", stray)
	out, err := Interpret(baseSnapshot(), stray)
	require.NoError(t, err)
	assert.Equal(t, []Kind{SetRevenue, SetMultiple}, out.Applied)
	assert.Equal(t, "arr 5L  use 9x", Sanitize("arr 5L <i></i> use 9x"))

	long := Sanitize(strings.Repeat("a", MaxUtteranceLength+500))
	assert.Len(t, long, MaxUtteranceLength)
}
