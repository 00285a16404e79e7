package llm

import "testing"

func TestEstimateCounter(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"héllo wörld!", 3},
	}
	for _, tt := range tests {
		if got := (EstimateCounter{}).Count(tt.text); got != tt.want {
			t.Errorf("Count(%q) = %d; want %d", tt.text, got, tt.want)
		}
	}
}
