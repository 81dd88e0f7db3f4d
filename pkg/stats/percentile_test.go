package stats

import "testing"

func TestPercentileEmptyAndSingle(t *testing.T) {
	if got := Percentile(nil, 50); got != 0 {
		t.Fatalf("empty set should yield 0, got %v", got)
	}

	single := []float64{42}
	for _, p := range []float64{50, 95, 99} {
		if got := Percentile(single, p); got != 42 {
			t.Fatalf("single sample should yield itself for p%v, got %v", p, got)
		}
	}
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{100, 200, 300}

	if got := Percentile(sorted, 50); got != 200 {
		t.Fatalf("p50 of [100 200 300] should be 200, got %v", got)
	}
	if got := Percentile(sorted, 95); got != 300 {
		t.Fatalf("p95 of [100 200 300] should be 300, got %v", got)
	}
	if got := Percentile(sorted, 99); got != 300 {
		t.Fatalf("p99 of [100 200 300] should be 300, got %v", got)
	}
}

func TestPercentileMonotonic(t *testing.T) {
	sets := [][]float64{
		{5},
		{1, 2},
		{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		{100, 100, 100, 5000},
	}

	for _, sorted := range sets {
		p50 := Percentile(sorted, 50)
		p95 := Percentile(sorted, 95)
		p99 := Percentile(sorted, 99)
		if p50 > p95 || p95 > p99 {
			t.Fatalf("percentiles not monotonic for %v: p50=%v p95=%v p99=%v", sorted, p50, p95, p99)
		}
	}
}
