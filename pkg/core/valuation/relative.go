package valuation

import (
	"startup_valuation/pkg/models"
)

// Compute derives the valuation range from annualized revenue and a multiple set.
// Missing or non-positive low/high multiples fall back to 0.8×/1.2× mid. Inputs
// are not validated.
func Compute(revenue float64, multiples models.MultipleSet) models.ValuationRange {
	return models.ValuationRange{
		Low:  revenue * multiples.LowOrDefault(),
		Mid:  revenue * multiples.Mid,
		High: revenue * multiples.HighOrDefault(),
	}
}

// ComputeSnapshot is Compute applied to a snapshot's own revenue and multiples.
func ComputeSnapshot(s models.ValuationSnapshot) models.ValuationRange {
	return Compute(s.Revenue, s.MultipleSet)
}
