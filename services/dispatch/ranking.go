package dispatch

import (
	"sort"

	"tradely/models"
)

// nearbyBands are the distance windows tried in order by the nearby mode,
// in kilometres, inclusive on both ends.
var nearbyBands = [][2]float64{{1, 5}, {0, 8}, {0, 12}, {0, 15}}

// Fallback notes surfaced on the booking when the preferred band or filter
// produced nothing and the full candidate set was used instead.
const (
	noteRatingFallback = "No highly rated providers nearby; showing closest available."
	noteNearbyFallback = "No providers within range; widening the search."
)

// RankResult is a totally ordered candidate sequence; the head is the best
// match and becomes the first offer.
type RankResult struct {
	Candidates []Candidate
	Fallback   bool
	Note       string
}

// Rank orders candidates according to the customer's sort preference. It is
// a pure function: the input slice is never mutated and equal inputs yield
// identical orderings (ties break on provider ID ascending).
func Rank(candidates []Candidate, mode string) (RankResult, error) {
	if len(candidates) == 0 {
		return RankResult{}, NewNoProvidersError("no providers available")
	}

	switch mode {
	case models.SortRating:
		return rankByRating(candidates), nil
	case models.SortNearby:
		return rankByNearby(candidates), nil
	case models.SortCheapest:
		return rankByCheapest(candidates), nil
	default:
		return rankByMix(candidates), nil
	}
}

func rankByRating(candidates []Candidate) RankResult {
	filtered := filterCandidates(candidates, func(c Candidate) bool { return c.Rating() >= 4 })
	if len(filtered) == 0 {
		filtered = filterCandidates(candidates, func(c Candidate) bool { return c.Rating() >= 3 })
	}
	if len(filtered) == 0 {
		// Nobody clears the rating bar; fall back to the full set by distance.
		out := sortCandidates(candidates, func(a, b Candidate) (bool, bool) {
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm, true
			}
			return false, false
		})
		return RankResult{Candidates: out, Fallback: true, Note: noteRatingFallback}
	}
	out := sortCandidates(filtered, func(a, b Candidate) (bool, bool) {
		if a.Rating() != b.Rating() {
			return a.Rating() > b.Rating(), true
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm, true
		}
		return false, false
	})
	return RankResult{Candidates: out}
}

func rankByNearby(candidates []Candidate) RankResult {
	var banded []Candidate
	for _, band := range nearbyBands {
		lo, hi := band[0], band[1]
		banded = filterCandidates(candidates, func(c Candidate) bool {
			return c.DistanceKm >= lo && c.DistanceKm <= hi
		})
		if len(banded) > 0 {
			break
		}
	}
	fallback := false
	note := ""
	if len(banded) == 0 {
		banded = candidates
		fallback = true
		note = noteNearbyFallback
	}
	out := sortCandidates(banded, func(a, b Candidate) (bool, bool) {
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm, true
		}
		if a.Rating() != b.Rating() {
			return a.Rating() > b.Rating(), true
		}
		return false, false
	})
	return RankResult{Candidates: out, Fallback: fallback, Note: note}
}

func rankByCheapest(candidates []Candidate) RankResult {
	out := sortCandidates(candidates, func(a, b Candidate) (bool, bool) {
		if a.Price() != b.Price() {
			return a.Price() < b.Price(), true
		}
		if a.Rating() != b.Rating() {
			return a.Rating() > b.Rating(), true
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm, true
		}
		return false, false
	})
	return RankResult{Candidates: out}
}

func rankByMix(candidates []Candidate) RankResult {
	out := sortCandidates(candidates, func(a, b Candidate) (bool, bool) {
		sa := MixScore(a.Rating(), a.DistanceKm)
		sb := MixScore(b.Rating(), b.DistanceKm)
		if sa != sb {
			return sa > sb, true
		}
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm, true
		}
		return false, false
	})
	return RankResult{Candidates: out}
}

func filterCandidates(in []Candidate, keep func(Candidate) bool) []Candidate {
	var out []Candidate
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// sortCandidates copies the input and sorts it with the given comparator,
// breaking remaining ties on provider ID ascending so ordering is
// reproducible.
func sortCandidates(in []Candidate, less func(a, b Candidate) (bool, bool)) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if result, decided := less(out[i], out[j]); decided {
			return result
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}
