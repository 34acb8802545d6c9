package genstudio

import "math"

// SimpleTokenEstimator is a fast chars/4 approximation with a safety
// margin, good enough for rate-limit accounting.
type SimpleTokenEstimator struct {
	SafetyMargin float64
}

// NewSimpleTokenEstimator returns an estimator with a 20% safety margin.
func NewSimpleTokenEstimator() *SimpleTokenEstimator {
	return &SimpleTokenEstimator{SafetyMargin: 1.2}
}

func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	estimate := float64(len([]rune(text))) / 4.0 * e.SafetyMargin
	return int(math.Ceil(estimate)) + 3
}
