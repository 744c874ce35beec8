package algebra

// Interval is the half-open range [Start, End) of output cells owned by one
// worker.
type Interval struct {
	Start int
	End   int
}

// Len returns the number of cells.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Partition splits [0, size) into at most workers contiguous intervals. The
// first size%workers intervals get one extra cell. Empty intervals are not
// returned.
func Partition(size, workers int) []Interval {
	if size <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > size {
		workers = size
	}
	chunk, rest := size/workers, size%workers
	intervals := make([]Interval, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		n := chunk
		if i < rest {
			n++
		}
		intervals = append(intervals, Interval{Start: start, End: start + n})
		start += n
	}
	return intervals
}

// StartCoordinate decodes a cell index into one coordinate per variable:
// coords[j] = (position / offsets[j]) % dims[j].
func StartCoordinate(position int, offsets, dims, coords []int) {
	for j := range dims {
		coords[j] = (position / offsets[j]) % dims[j]
	}
}
