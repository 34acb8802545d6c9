package genstudio

import "testing"

func TestSimpleTokenEstimator(t *testing.T) {
	estimator := NewSimpleTokenEstimator()

	if got := estimator.EstimateTokens(""); got != 0 {
		t.Errorf("empty text must estimate 0, got %d", got)
	}

	// 100 runes at chars/4 with a 20% margin is 30, plus the overhead of 3.
	long := make([]rune, 100)
	for i := range long {
		long[i] = 'a'
	}
	if got := estimator.EstimateTokens(string(long)); got != 33 {
		t.Errorf("expected 33 tokens for 100 chars, got %d", got)
	}

	// Multi-byte runes count as runes, not bytes.
	if got := estimator.EstimateTokens("привет"); got != estimator.EstimateTokens("abcdef") {
		t.Error("estimate must be rune-based, not byte-based")
	}
}
