package histogram

import (
	"math"
	"sort"
)

// binAccumulator is the sparse, growable bin table for one output plane: a
// map from bin index to per-item counts, grounded on das2_histo.c's
// lin_ary_s/find_val/grow_for_idx/right_shift trio but reworked around a Go
// map plus a sort pass at flush time rather than a manually maintained sorted
// array, since nothing here needs the array's O(log n) insertion-point search
// once a hash map already gives O(1) lookup by bin index.
type binAccumulator struct {
	items     int
	begin     float64
	width     float64
	haveBegin bool
	bins      map[int64][]float64
}

func newBinAccumulator(items int, cfg Config) *binAccumulator {
	a := &binAccumulator{items: items, width: cfg.BinWidth, bins: map[int64][]float64{}}
	if cfg.Begin != nil {
		a.begin = *cfg.Begin
		a.haveBegin = true
	}

	return a
}

func (a *binAccumulator) binIndex(v float64) int64 {
	if !a.haveBegin {
		a.begin = v
		a.haveBegin = true
	}

	return int64(math.Floor((v - a.begin) / a.width))
}

// add records one observation of v in item column col.
func (a *binAccumulator) add(v float64, col int) {
	idx := a.binIndex(v)
	row, ok := a.bins[idx]
	if !ok {
		row = make([]float64, a.items)
		a.bins[idx] = row
	}
	row[col]++
}

// sortedIndices returns the occupied bin indices in ascending order.
func (a *binAccumulator) sortedIndices() []int64 {
	idxs := make([]int64, 0, len(a.bins))
	for idx := range a.bins {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	return idxs
}

// applyFracBelow converts raw counts into a per-column cumulative fraction at
// or below each bin, grounded on das2_histo.c's writeHisto FRAC_BELOW pass.
func (a *binAccumulator) applyFracBelow(idxs []int64) {
	if len(idxs) == 0 {
		return
	}
	for i := 1; i < len(idxs); i++ {
		prev, cur := a.bins[idxs[i-1]], a.bins[idxs[i]]
		for col := range cur {
			cur[col] += prev[col]
		}
	}
	total := a.bins[idxs[len(idxs)-1]]
	for _, idx := range idxs {
		row := a.bins[idx]
		for col := range row {
			if total[col] > 0 {
				row[col] /= total[col]
			}
		}
	}
}

// applyFracAbove converts raw counts into a per-column cumulative fraction at
// or above each bin, grounded on das2_histo.c's writeHisto FRAC_ABOVE pass.
func (a *binAccumulator) applyFracAbove(idxs []int64) {
	if len(idxs) == 0 {
		return
	}
	for i := len(idxs) - 2; i >= 0; i-- {
		next, cur := a.bins[idxs[i+1]], a.bins[idxs[i]]
		for col := range cur {
			cur[col] += next[col]
		}
	}
	total := a.bins[idxs[0]]
	for _, idx := range idxs {
		row := a.bins[idx]
		for col := range row {
			if total[col] > 0 {
				row[col] /= total[col]
			}
		}
	}
}

// valueAt returns the bin's representative X value: its center, consistent
// with the binning reducer's own bin-center convention rather than
// das2_histo.c's "emit the last observed exact value" behavior, since this
// package bins by fixed width rather than exact value equality.
func (a *binAccumulator) valueAt(idx int64) float64 {
	return a.begin + float64(idx)*a.width + a.width/2
}
