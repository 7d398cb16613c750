package cluster

// AutoK picks a cluster count from the number of records when the caller
// does not supply one.
func AutoK(n int) int {
	switch {
	case n < 500:
		return 10
	case n < 2000:
		return 15
	default:
		return 20
	}
}
