package stats

// WeightedMean calculates the weighted mean of values. Missing weights count
// as 0. When the weights sum to 0 the mean is undefined and 0 is returned
// with ok set to false.
func WeightedMean(values, weights []float64) (mean float64, ok bool) {
	var sumWeighted, sumWeights float64
	for i, v := range values {
		if i >= len(weights) {
			break
		}
		sumWeighted += v * weights[i]
		sumWeights += weights[i]
	}

	if sumWeights == 0 {
		return 0, false
	}

	return sumWeighted / sumWeights, true
}
