package service

import (
	"math"

	"votemaster-backend/model"
)

// VoteImpact is the flat weight, in percentage points, that a viewer's own
// ballot adds to their chosen option in percentage mode. It is deliberately
// not scaled by the real vote count; the displayed distribution is a
// configured narrative, not a tally.
const VoteImpact = 1.0

// BlendDisplayedResults folds the current viewer's own vote into the
// configured displayed results. It is a display-only transformation computed
// per viewer; the stored configuration is never mutated.
//
// votedIndex is the zero-based option the viewer chose, or negative if they
// have not voted. An out-of-range index fails open: the configured results
// are returned unchanged.
//
// Percentage mode adds VoteImpact to the voted option (capped at 100),
// removes VoteImpact/(n-1) from every other option (floored at 0), rounds
// each value to the nearest integer, and then pushes the integer residual
// into the voted option so the total is exactly 100 again.
//
// Count mode adds exactly 1 to the voted option and leaves the rest alone.
func BlendDisplayedResults(displayed []float64, mode model.ResultMode, votedIndex int) []float64 {
	out := make([]float64, len(displayed))
	copy(out, displayed)

	if votedIndex < 0 || votedIndex >= len(displayed) {
		return out
	}

	if mode == model.ResultModeCount {
		out[votedIndex]++
		return out
	}

	n := len(displayed)
	if n < 2 {
		return out
	}

	reduction := VoteImpact / float64(n-1)
	for i := range out {
		if i == votedIndex {
			out[i] = math.Min(out[i]+VoteImpact, 100)
		} else {
			out[i] = math.Max(out[i]-reduction, 0)
		}
	}

	var total float64
	for i := range out {
		out[i] = math.Round(out[i])
		total += out[i]
	}
	// Rounding drift lands on the voted option so the total stays at 100.
	out[votedIndex] += 100 - total

	return out
}
