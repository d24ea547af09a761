package scanner

// clampWindow returns the [start, end) bounds of a window of the given radius
// centered on index, clamped to [0, total). It never fails: a radius larger
// than the available lines simply clamps to the text bounds.
func clampWindow(index, total, radius int) (start, end int) {
	if total < 0 {
		total = 0
	}
	if radius < 0 {
		radius = 0
	}
	start = index - radius
	if start < 0 {
		start = 0
	}
	end = index + radius + 1
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}

// window slices lines to the clamped window around index, center included.
func window(lines []string, index, radius int) []string {
	start, end := clampWindow(index, len(lines), radius)
	return lines[start:end]
}
