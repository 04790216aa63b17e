package processor

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSortByKeyDayTimeStableTieBreak(t *testing.T) {
	keys := []string{"B", "A", "A", "A"}
	days := []int{1, 2, 1, 1}
	depTime := []float64{600, 600, 480, 480}

	order := sortByKeyDayTime(keys, days, depTime)

	// A rows first, day 1 before day 2; the two (A, 1, 480) ties keep row
	// order 2 then 3.
	want := []int{2, 3, 1, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDailyRollingMeanShiftsOneDay(t *testing.T) {
	// One key, one row per day, four consecutive days.
	keys := []string{"A", "A", "A", "A"}
	days := []int{100, 101, 102, 103}
	values := []float64{10, 20, 30, 40}

	feat := dailyRollingMean(keys, days, values, 7)

	if !math.IsNaN(feat[0]) {
		t.Errorf("first day should have no history, got %v", feat[0])
	}
	if !almostEqual(feat[1], 10) {
		t.Errorf("day 101 = %v, want 10", feat[1])
	}
	if !almostEqual(feat[2], 15) {
		t.Errorf("day 102 = %v, want 15", feat[2])
	}
	if !almostEqual(feat[3], 20) {
		t.Errorf("day 103 = %v, want 20", feat[3])
	}
}

func TestDailyRollingMeanWindowBound(t *testing.T) {
	keys := []string{"A", "A", "A", "A"}
	days := []int{100, 101, 102, 103}
	values := []float64{10, 20, 30, 40}

	feat := dailyRollingMean(keys, days, values, 2)

	// Day 103 with window 2 sees days 101 and 102 only.
	if !almostEqual(feat[3], 25) {
		t.Errorf("day 103 with window 2 = %v, want 25", feat[3])
	}
}

func TestDailyRollingMeanExcludesOwnDay(t *testing.T) {
	keys := []string{"A", "A", "A"}
	days := []int{100, 101, 102}
	values := []float64{10, 20, 30}

	base := dailyRollingMean(keys, days, values, 7)

	// Changing a row's own value must not change that row's feature.
	values[2] = 1000
	again := dailyRollingMean(keys, days, values, 7)
	if !almostEqual(base[2], again[2]) {
		t.Errorf("feature on day 102 moved from %v to %v when its own value changed", base[2], again[2])
	}
}

func TestDailyRollingMeanFillsDayGaps(t *testing.T) {
	// Days 100 and 102 observed, 101 missing; the gap forward-fills from 100.
	keys := []string{"A", "A"}
	days := []int{100, 102}
	values := []float64{10, 30}

	feat := dailyRollingMean(keys, days, values, 2)
	// Day 102 sees days 100 (=10) and 101 (filled to 10).
	if !almostEqual(feat[1], 10) {
		t.Errorf("day 102 = %v, want 10", feat[1])
	}
}

func TestDailyRollingMeanSameDayRowsAverage(t *testing.T) {
	keys := []string{"A", "A", "A"}
	days := []int{100, 100, 101}
	values := []float64{10, 30, 0}

	feat := dailyRollingMean(keys, days, values, 7)
	// Both day-100 rows average to 20 for day 101, and both day-100 rows
	// themselves stay NaN.
	if !math.IsNaN(feat[0]) || !math.IsNaN(feat[1]) {
		t.Errorf("first day rows should be NaN, got %v %v", feat[0], feat[1])
	}
	if !almostEqual(feat[2], 20) {
		t.Errorf("day 101 = %v, want 20", feat[2])
	}
}

func TestDailyRollingMeanKeysAreIndependent(t *testing.T) {
	keys := []string{"A", "B", "A"}
	days := []int{100, 100, 101}
	values := []float64{10, 999, 0}

	feat := dailyRollingMean(keys, days, values, 7)
	if !almostEqual(feat[2], 10) {
		t.Errorf("day 101 for key A = %v, want 10 (B must not leak)", feat[2])
	}
}

func TestSequenceRollingMean(t *testing.T) {
	keys := []string{"A", "A", "A", "A"}
	days := []int{100, 100, 100, 100}
	depTime := []float64{400, 500, 600, 700}
	delays := []float64{10, 20, 30, 40}

	order := sortByKeyDayTime(keys, days, depTime)
	feat := sequenceRollingMean(order, keys, delays, 2)

	if !math.IsNaN(feat[0]) {
		t.Errorf("first flight should have no history, got %v", feat[0])
	}
	if !almostEqual(feat[1], 10) {
		t.Errorf("second flight = %v, want 10", feat[1])
	}
	if !almostEqual(feat[2], 15) {
		t.Errorf("third flight = %v, want 15", feat[2])
	}
	// Fourth flight sees the last 2 only.
	if !almostEqual(feat[3], 25) {
		t.Errorf("fourth flight = %v, want 25", feat[3])
	}
}

func TestSequenceRollingMeanNullsHoldSlots(t *testing.T) {
	keys := []string{"A", "A", "A"}
	days := []int{100, 100, 100}
	depTime := []float64{400, 500, 600}
	delays := []float64{10, math.NaN(), 30}

	order := sortByKeyDayTime(keys, days, depTime)
	feat := sequenceRollingMean(order, keys, delays, 2)

	// Third flight's window holds {10, NaN}; the NaN occupies a slot but is
	// skipped in the mean.
	if !almostEqual(feat[2], 10) {
		t.Errorf("third flight = %v, want 10", feat[2])
	}
}

func TestSequenceRollingMeanResetsPerKey(t *testing.T) {
	keys := []string{"A", "A", "B"}
	days := []int{100, 100, 100}
	depTime := []float64{400, 500, 600}
	delays := []float64{10, 20, 30}

	order := sortByKeyDayTime(keys, days, depTime)
	feat := sequenceRollingMean(order, keys, delays, 10)

	if !math.IsNaN(feat[2]) {
		t.Errorf("first flight of key B should be NaN, got %v", feat[2])
	}
}

func TestSameDaySequence(t *testing.T) {
	keys := []string{"A", "A", "A", "B"}
	days := []int{100, 100, 101, 100}
	depTime := []float64{600, 480, 500, 700}

	order := sortByKeyDayTime(keys, days, depTime)
	feat := sameDaySequence(order, keys, days)

	// Ranks follow departure order within (key, day): row 1 departs before
	// row 0 on day 100.
	if feat[1] != 0 || feat[0] != 1 {
		t.Errorf("day-100 ranks = %v %v, want 0 and 1", feat[1], feat[0])
	}
	if feat[2] != 0 {
		t.Errorf("new day should restart at 0, got %v", feat[2])
	}
	if feat[3] != 0 {
		t.Errorf("new key should restart at 0, got %v", feat[3])
	}
}

func TestGroupFill(t *testing.T) {
	keys := []string{"A", "A", "A", "B"}
	days := []int{100, 101, 102, 100}
	depTime := []float64{500, 500, 500, 500}
	vals := []float64{math.NaN(), 20, math.NaN(), math.NaN()}

	order := sortByKeyDayTime(keys, days, depTime)
	groupFill(order, keys, vals)

	// Leading NaN takes the next valid value, trailing NaN the previous one.
	if !almostEqual(vals[0], 20) {
		t.Errorf("leading gap = %v, want 20", vals[0])
	}
	if !almostEqual(vals[2], 20) {
		t.Errorf("trailing gap = %v, want 20", vals[2])
	}
	// Key B has no valid entry at all and stays NaN.
	if !math.IsNaN(vals[3]) {
		t.Errorf("all-NaN key should stay NaN, got %v", vals[3])
	}
}
