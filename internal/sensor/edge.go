package sensor

// edgeDetector remembers the previous active flag of each button.
// It is owned by the Sensor Worker goroutine.
type edgeDetector struct {
	prev []bool
}

func newEdgeDetector(n int) *edgeDetector {
	return &edgeDetector{prev: make([]bool, n)}
}

// rising records active as the new state of button i and reports whether it
// went from inactive to active.
func (d *edgeDetector) rising(i int, active bool) bool {
	edge := active && !d.prev[i]
	d.prev[i] = active
	return edge
}
