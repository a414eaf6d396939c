package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleGradeForMatchesContainingBand(t *testing.T) {
	s := NewScale(nil)

	cases := []struct {
		score float64
		code  string
	}{
		{100, "A1"},
		{75, "A1"},
		{74, "B2"},
		{60, "C4"},
		{45, "D7"},
		{39, "F9"},
		{0, "F9"},
	}
	for _, tc := range cases {
		band := s.GradeFor(tc.score)
		assert.Equal(t, tc.code, band.Code, "score %v", tc.score)
		assert.True(t, band.Contains(tc.score))
	}
}

func TestScaleGradeForGapFallsToLastBand(t *testing.T) {
	s := NewScale([]Band{
		{Min: 90, Max: 100, Code: "A", Label: "Distinction"},
		{Min: 0, Max: 49, Code: "F", Label: "Fail"},
	})

	// 70 sits in the configured gap; the last band wins, not the nearest.
	band := s.GradeFor(70)
	assert.Equal(t, "F", band.Code)
	assert.Equal(t, "Fail", band.Label)
}

func TestScaleGradeForNonFiniteScores(t *testing.T) {
	s := NewScale(nil)

	for _, score := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		band := s.GradeFor(score)
		assert.Equal(t, "F9", band.Code)
		assert.Equal(t, "Fail", band.Label)
	}
}

func TestScaleSetRejectsMalformedBands(t *testing.T) {
	s := NewScale(nil)
	before := s.Bands()

	s.Set([]Band{{Min: 50, Max: 100, Code: "", Label: "Missing code"}})
	s.Set([]Band{{Min: math.NaN(), Max: 100, Code: "A", Label: "NaN min"}})
	s.Set([]Band{{Min: 80, Max: 60, Code: "A", Label: "Inverted"}})
	s.Set([]Band{
		{Min: 50, Max: 100, Code: "A", Label: "Upper"},
		{Min: 0, Max: 60, Code: "B", Label: "Overlapping"},
	})

	assert.Equal(t, before, s.Bands())
}

func TestScaleSetStoresSortedDescending(t *testing.T) {
	s := NewScale(nil)
	s.Set([]Band{
		{Min: 0, Max: 49, Code: "F", Label: "Fail"},
		{Min: 50, Max: 100, Code: "P", Label: "Pass"},
	})

	bands := s.Bands()
	require.Len(t, bands, 2)
	assert.Equal(t, "P", bands[0].Code)
	assert.Equal(t, "F", bands[1].Code)
}

func TestScaleBandsReturnsSnapshot(t *testing.T) {
	s := NewScale(nil)
	snapshot := s.Bands()
	snapshot[0].Code = "mutated"
	assert.NotEqual(t, "mutated", s.Bands()[0].Code)
}
