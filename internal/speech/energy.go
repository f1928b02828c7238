package speech

// Frequency bands on the analyser's bin scale.
const (
	fundamentalFirst = 2
	fundamentalLast  = 14
	formantFirst     = 16
	formantLast      = 89
	formantWeight    = 1.2
)

// Energy is the weighted mean magnitude across the speech bands. Bins that
// the snapshot does not have are left out of both the sum and the count.
func Energy(freq []byte) float64 {
	var sum float64
	count := 0

	for i := fundamentalFirst; i <= fundamentalLast && i < len(freq); i++ {
		sum += float64(freq[i])
		count++
	}
	for i := formantFirst; i <= formantLast && i < len(freq); i++ {
		sum += float64(freq[i]) * formantWeight
		count++
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
