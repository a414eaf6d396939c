package grading

import (
	"math"
	"sort"
	"sync/atomic"
)

// Band maps a contiguous score range to a grade code and label.
type Band struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Code  string  `json:"code"`
	Label string  `json:"label"`
}

// Contains reports whether score lies inside the band, bounds inclusive.
func (b Band) Contains(score float64) bool {
	return score >= b.Min && score <= b.Max
}

// defaultBands is the WAEC-style scale active until a school sets its own.
var defaultBands = []Band{
	{Min: 75, Max: 100, Code: "A1", Label: "Excellent"},
	{Min: 70, Max: 74, Code: "B2", Label: "Very Good"},
	{Min: 65, Max: 69, Code: "B3", Label: "Good"},
	{Min: 60, Max: 64, Code: "C4", Label: "Credit"},
	{Min: 55, Max: 59, Code: "C5", Label: "Credit"},
	{Min: 50, Max: 54, Code: "C6", Label: "Credit"},
	{Min: 45, Max: 49, Code: "D7", Label: "Pass"},
	{Min: 40, Max: 44, Code: "E8", Label: "Pass"},
	{Min: 0, Max: 39, Code: "F9", Label: "Fail"},
}

// failBand is returned for scores that are not finite numbers.
var failBand = Band{Code: "F9", Label: "Fail"}

// Scale is an ordered table of score bands, highest band first. The active
// band list is replaced by atomic swap, so readers never observe a torn
// scale; a grade computation in flight during a swap reads whichever list
// was current when it started. Each Scale is owned by its aggregator rather
// than held as process-global state, so tests and tenants can carry their
// own.
type Scale struct {
	bands atomic.Value // []Band
}

// NewScale returns a scale seeded with bands, falling back to the default
// table when bands is invalid or empty.
func NewScale(bands []Band) *Scale {
	s := &Scale{}
	s.bands.Store(cloneSorted(defaultBands))
	s.Set(bands)
	return s
}

// Set replaces the active band list. A candidate list is rejected as a whole
// when any entry has a non-finite bound, min above max, an empty code or
// label, or overlaps a sibling; the previous scale stays active and no error
// is surfaced. Callers that need validation feedback must pre-validate.
func (s *Scale) Set(bands []Band) {
	if len(bands) == 0 {
		return
	}
	for _, b := range bands {
		if !finite(b.Min) || !finite(b.Max) || b.Min > b.Max || b.Code == "" || b.Label == "" {
			return
		}
	}
	sorted := cloneSorted(bands)
	for i := 1; i < len(sorted); i++ {
		// Descending by min: the lower band must end below the higher one.
		if sorted[i].Max >= sorted[i-1].Min {
			return
		}
	}
	s.bands.Store(sorted)
}

// Bands returns a read-only snapshot of the active band list.
func (s *Scale) Bands() []Band {
	active := s.bands.Load().([]Band)
	out := make([]Band, len(active))
	copy(out, active)
	return out
}

// GradeFor maps a score onto the active scale. Non-finite scores grade as a
// plain fail. A score lying in a gap between configured bands falls through
// to the last band in the list regardless of numeric distance; downstream
// reporting depends on this exact behaviour, so it is kept rather than
// replaced with nearest-match.
func (s *Scale) GradeFor(score float64) Band {
	if !finite(score) {
		return failBand
	}
	active := s.bands.Load().([]Band)
	for _, b := range active {
		if b.Contains(score) {
			return b
		}
	}
	return active[len(active)-1]
}

func cloneSorted(bands []Band) []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min > out[j].Min })
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
