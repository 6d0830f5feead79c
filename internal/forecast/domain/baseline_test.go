package forecast

import (
	"math"
	"testing"
	"time"
)

func assertMonotonicBounded(t *testing.T, fractions []float64) {
	t.Helper()
	prev := 0.0
	for i, f := range fractions {
		if f < 0 || f > 1 {
			t.Fatalf("fraction %d out of bounds: %v", i, f)
		}
		if f < prev {
			t.Fatalf("fraction %d decreased: %v < %v", i, f, prev)
		}
		prev = f
	}
}

func TestBuildBaselineFractionsFallback(t *testing.T) {
	for _, series := range [][][]int64{nil, {}, {{0, 0, 0}, {0}}} {
		got := BuildBaselineFractions(series)
		if len(got) != 1 || got[0] != EmptyBaselineFraction {
			t.Fatalf("expected sentinel fallback, got %v", got)
		}
	}
}

func TestBuildBaselineFractionsPadsShorterNights(t *testing.T) {
	got := BuildBaselineFractions([][]int64{{100, 100}, {100, 100, 100, 100}})
	want := []float64{0.375, 0.75, 0.875, 1}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: %v", got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("fraction %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestBuildBaselineFractionsMonotonic(t *testing.T) {
	series := [][]int64{
		{10, 0, 30, 60},
		{0, 50, 50},
		{5, 5},
		{0, 0, 0, 0, 0},
		{-10, 40, 0, 70},
	}
	got := BuildBaselineFractions(series)
	if len(got) != 5 {
		t.Fatalf("expected max length 5, got %d", len(got))
	}
	assertMonotonicBounded(t, got)
}

func TestNormalizeFractions(t *testing.T) {
	truncated := NormalizeFractions([]float64{0.1, 0.2, 0.3, 0.4}, 2)
	if len(truncated) != 2 || truncated[1] != 0.2 {
		t.Fatalf("expected truncation, got %v", truncated)
	}

	extended := NormalizeFractions([]float64{0.5}, 3)
	want := []float64{0.5, 0.75, 1}
	for i := range want {
		if math.Abs(extended[i]-want[i]) > 1e-9 {
			t.Fatalf("extended %d: got %v want %v", i, extended[i], want[i])
		}
	}

	linear := NormalizeFractions(nil, 4)
	if linear[0] != 0.25 || linear[3] != 1 {
		t.Fatalf("expected linear ramp, got %v", linear)
	}

	messy := NormalizeFractions([]float64{0.3, 0.2, math.NaN(), 1.4}, 6)
	assertMonotonicBounded(t, messy)

	if got := NormalizeFractions([]float64{0.5}, 0); len(got) != 0 {
		t.Fatalf("expected empty for zero count, got %v", got)
	}
}

func TestRollingAverageAndHistoricalWage(t *testing.T) {
	date := LocalDate{2026, time.October, 9}
	nights := []ComparableNight{
		NewComparableNight(date, []int64{0, 1000, 1000}, []int64{100, 100, 100}),
		NewComparableNight(date.AddDays(-7), []int64{500, 500, 1000}, []int64{100, 100, 200}),
	}
	if got := RollingAverageRevenue(nights); got != 2000 {
		t.Fatalf("expected rolling average 2000, got %d", got)
	}
	if RollingAverageRevenue(nil) != 0 {
		t.Fatalf("expected zero rolling average without nights")
	}

	hist := HistoricalWagePercents(nights, 4, 30)
	if hist[0] != 20 {
		t.Fatalf("bucket 0 should only average nights with revenue, got %v", hist[0])
	}
	if math.Abs(hist[1]-20) > 1e-9 {
		t.Fatalf("bucket 1 expected 20, got %v", hist[1])
	}
	if math.Abs(hist[3]-hist[2]) > 1e-9 {
		t.Fatalf("bucket beyond history should hold last value")
	}
	if got := HistoricalWagePercents(nil, 2, 30); got[0] != 30 || got[1] != 30 {
		t.Fatalf("expected fallback without history, got %v", got)
	}
}
