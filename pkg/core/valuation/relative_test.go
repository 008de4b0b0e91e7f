package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"startup_valuation/pkg/models"
)

func TestCompute_DefaultsLowHigh(t *testing.T) {
	for _, mid := range []float64{0.5, 1, 6, 12.5} {
		got := Compute(2e7, models.MultipleSet{Mid: mid})
		assert.InDelta(t, 2e7*mid, got.Mid, 1e-6)
		assert.InDelta(t, 2e7*mid*0.8, got.Low, 1e-6)
		assert.InDelta(t, 2e7*mid*1.2, got.High, 1e-6)
	}
}

func TestCompute_UsesExplicitLowHigh(t *testing.T) {
	got := Compute(1e6, models.MultipleSet{Mid: 8, Low: models.Float(5), High: models.Float(11)})
	assert.Equal(t, models.ValuationRange{Low: 5e6, Mid: 8e6, High: 11e6}, got)
}

func TestCompute_PartialDefaults(t *testing.T) {
	got := Compute(100, models.MultipleSet{Mid: 10, High: models.Float(20)})
	assert.InDelta(t, 800, got.Low, 1e-9)
	assert.InDelta(t, 2000, got.High, 1e-9)
}

func TestCompute_AcceptsNonPositiveInputs(t *testing.T) {
	got := Compute(-10, models.MultipleSet{Mid: 0})
	assert.Equal(t, 0.0, got.Mid)
	assert.Equal(t, 0.0, got.Low)
}

func TestCompute_NonPositiveBoundsUseDefaults(t *testing.T) {
	got := Compute(1e7, models.MultipleSet{Mid: 10, Low: models.Float(0), High: models.Float(-1)})
	assert.InDelta(t, 8e7, got.Low, 1e-6)
	assert.InDelta(t, 1e8, got.Mid, 1e-6)
	assert.InDelta(t, 1.2e8, got.High, 1e-6)
}

func TestComputeSnapshot(t *testing.T) {
	s := models.ValuationSnapshot{Revenue: 1.5e7, MultipleSet: models.MultipleSet{Mid: 6}}
	assert.Equal(t, Compute(1.5e7, models.MultipleSet{Mid: 6}), ComputeSnapshot(s))
}
