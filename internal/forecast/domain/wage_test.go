package forecast

import "testing"

func TestToPercentNullSafety(t *testing.T) {
	for _, num := range []int64{-5, 0, 5, 1 << 40} {
		if ToPercent(num, 0) != nil {
			t.Fatalf("expected nil for zero denominator")
		}
		if ToPercent(num, -1) != nil {
			t.Fatalf("expected nil for negative denominator")
		}
	}
	if got := ToPercent(0, 100); got == nil || *got != 0 {
		t.Fatalf("expected 0%%, got %v", got)
	}
	if got := ToPercent(25, 100); got == nil || *got != 25 {
		t.Fatalf("expected 25%%, got %v", got)
	}
}

func TestComputeWageSeriesAlignment(t *testing.T) {
	labels := []string{"17:00", "17:15", "17:30", "17:45"}
	points := ComputeWageSeries(labels, []int64{0, 100, 200}, []int64{10, 20, 50}, 30, []float64{28, 29})
	if len(points) != len(labels) {
		t.Fatalf("expected %d points, got %d", len(labels), len(points))
	}
	if points[0].CurrentPercent != nil {
		t.Fatalf("expected nil wage percent with zero revenue")
	}
	if points[1].CurrentPercent == nil || *points[1].CurrentPercent != 20 {
		t.Fatalf("bucket 1 expected 20%%, got %v", points[1].CurrentPercent)
	}
	if points[2].CurrentPercent == nil || *points[2].CurrentPercent != 25 {
		t.Fatalf("bucket 2 expected 25%%, got %v", points[2].CurrentPercent)
	}
	if points[3].CurrentPercent != nil {
		t.Fatalf("expected future bucket to be nil")
	}
	if points[0].HistoricalPercent != 28 || points[2].HistoricalPercent != 30 {
		t.Fatalf("historical percent mismatch: %+v", points)
	}
	for _, p := range points {
		if p.TargetPercent != 30 {
			t.Fatalf("target percent mismatch: %+v", p)
		}
	}
	if got := ComputeWageSeries(nil, nil, nil, 30, nil); len(got) != 0 {
		t.Fatalf("expected empty series")
	}
}
