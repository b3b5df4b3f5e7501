package jsonstat

// computeStrides derives the row-major stride table from per-dimension
// cardinalities: the last dimension has stride 1, and each earlier dimension
// strides over everything after it. Computed once per decode, never per cell.
func computeStrides(sizes []int) []int {
	strides := make([]int, len(sizes))
	if len(sizes) == 0 {
		return strides
	}
	strides[len(sizes)-1] = 1
	for i := len(sizes) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * sizes[i+1]
	}
	return strides
}

// offsetFor maps a full set of per-dimension indices to the position in the
// flat value array. indices and strides are parallel to the dataset's
// declared dimension order.
func offsetFor(indices, strides []int) int {
	offset := 0
	for i, idx := range indices {
		offset += idx * strides[i]
	}
	return offset
}
