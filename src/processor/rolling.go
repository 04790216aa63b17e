package processor

import (
	"math"
	"sort"
)

// sortByKeyDayTime returns row indices ordered by (key, day,
// scheduled-departure minutes). Ties keep original row order (stable sort),
// which is the documented reproducibility tie-break.
func sortByKeyDayTime(keys []string, days []int, depTime []float64) []int {
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if keys[i] != keys[j] {
			return keys[i] < keys[j]
		}
		if days[i] != days[j] {
			return days[i] < days[j]
		}
		return depTime[i] < depTime[j]
	})
	return order
}

// dailyRollingMean computes, for every row, the trailing mean of values over
// the window calendar days before the row's own day, per grouping key. The
// per-key daily series averages same-day rows, is gap-filled forward then
// backward, and the rolling result is shifted one day: a row on day D sees
// days [D-window, D-1] only. Rows on a key's first observed day stay NaN for
// the caller's fill pass.
func dailyRollingMean(keys []string, days []int, values []float64, window int) []float64 {
	n := len(keys)
	feat := make([]float64, n)
	for i := range feat {
		feat[i] = math.NaN()
	}

	groups := make(map[string][]int)
	for i := range keys {
		groups[keys[i]] = append(groups[keys[i]], i)
	}

	for _, rows := range groups {
		minDay, maxDay := days[rows[0]], days[rows[0]]
		anyValid := false
		for _, r := range rows {
			if days[r] < minDay {
				minDay = days[r]
			}
			if days[r] > maxDay {
				maxDay = days[r]
			}
			if !math.IsNaN(values[r]) {
				anyValid = true
			}
		}
		if !anyValid {
			continue
		}

		nDays := maxDay - minDay + 1
		sums := make([]float64, nDays)
		counts := make([]int, nDays)
		for _, r := range rows {
			if math.IsNaN(values[r]) {
				continue
			}
			d := days[r] - minDay
			sums[d] += values[r]
			counts[d]++
		}

		daily := make([]float64, nDays)
		for d := 0; d < nDays; d++ {
			if counts[d] > 0 {
				daily[d] = sums[d] / float64(counts[d])
			} else {
				daily[d] = math.NaN()
			}
		}

		// Forward fill first so interior gaps always take the past; backward
		// fill then only touches days before the first observation.
		prev := math.NaN()
		for d := 0; d < nDays; d++ {
			if math.IsNaN(daily[d]) {
				daily[d] = prev
			} else {
				prev = daily[d]
			}
		}
		next := math.NaN()
		for d := nDays - 1; d >= 0; d-- {
			if math.IsNaN(daily[d]) {
				daily[d] = next
			} else {
				next = daily[d]
			}
		}

		prefix := make([]float64, nDays+1)
		for d := 0; d < nDays; d++ {
			prefix[d+1] = prefix[d] + daily[d]
		}

		for _, r := range rows {
			d := days[r] - minDay
			if d == 0 {
				continue // no history before the first day
			}
			lo := d - window
			if lo < 0 {
				lo = 0
			}
			feat[r] = (prefix[d] - prefix[lo]) / float64(d-lo)
		}
	}
	return feat
}

// sequenceRollingMean computes, for every row, the mean delay of up to n
// strictly prior same-key flights in sorted order. Null delays occupy window
// slots but are skipped in the mean; a row with no valid history stays NaN.
func sequenceRollingMean(order []int, keys []string, delays []float64, n int) []float64 {
	feat := make([]float64, len(order))
	for i := range feat {
		feat[i] = math.NaN()
	}

	curKey := ""
	first := true
	var buf []float64
	var sum float64
	var valid int

	for _, r := range order {
		if first || keys[r] != curKey {
			curKey = keys[r]
			first = false
			buf = buf[:0]
			sum = 0
			valid = 0
		}
		if valid > 0 {
			feat[r] = sum / float64(valid)
		}

		v := delays[r]
		buf = append(buf, v)
		if !math.IsNaN(v) {
			sum += v
			valid++
		}
		if len(buf) > n {
			evicted := buf[0]
			buf = buf[1:]
			if !math.IsNaN(evicted) {
				sum -= evicted
				valid--
			}
		}
	}
	return feat
}

// sameDaySequence assigns each row its zero-based rank among same-(key, day)
// rows in sorted order.
func sameDaySequence(order []int, keys []string, days []int) []float64 {
	feat := make([]float64, len(order))
	curKey := ""
	curDay := 0
	first := true
	rank := 0

	for _, r := range order {
		if first || keys[r] != curKey || days[r] != curDay {
			curKey = keys[r]
			curDay = days[r]
			first = false
			rank = 0
		}
		feat[r] = float64(rank)
		rank++
	}
	return feat
}

// groupFill fills NaN entries of vals in place, per contiguous key run of the
// sorted order: backward fill first, then forward fill. Keys with no valid
// entry at all keep their NaN and fall out at the finalizer's null drop.
func groupFill(order []int, keys []string, vals []float64) {
	i := 0
	for i < len(order) {
		j := i
		for j < len(order) && keys[order[j]] == keys[order[i]] {
			j++
		}

		next := math.NaN()
		for k := j - 1; k >= i; k-- {
			v := vals[order[k]]
			if !math.IsNaN(v) {
				next = v
			} else if !math.IsNaN(next) {
				vals[order[k]] = next
			}
		}
		prev := math.NaN()
		for k := i; k < j; k++ {
			v := vals[order[k]]
			if !math.IsNaN(v) {
				prev = v
			} else if !math.IsNaN(prev) {
				vals[order[k]] = prev
			}
		}
		i = j
	}
}
