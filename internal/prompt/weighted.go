// Package prompt validates weighted prompt lists and picks the prompt for
// each new session.
package prompt

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Tolerance is how far the probabilities of a weighted list may sum from 1.
const Tolerance = 0.01

// epsilon absorbs float64 rounding so sums such as 0.33*3 count as 0.99.
const epsilon = 1e-9

// Weighted is one entry of a weighted prompt list.
type Weighted struct {
	Text        string  `json:"text" yaml:"text" toml:"text"`
	Probability float64 `json:"probability" yaml:"probability" toml:"probability"`
}

// ErrEmpty is returned by Validate for an empty list.
var ErrEmpty = errors.New("prompt list is empty")

// Validate checks that every entry has text and a probability in [0,1] and
// that the probabilities sum to 1 within Tolerance.
func Validate(prompts []Weighted) error {
	if len(prompts) == 0 {
		return ErrEmpty
	}

	sum := 0.0
	for i, p := range prompts {
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("prompt %d: text is empty", i+1)
		}
		if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 1 {
			return fmt.Errorf("prompt %d: probability %v is outside [0, 1]", i+1, p.Probability)
		}
		sum += p.Probability
	}

	if sum < 1-Tolerance-epsilon || sum > 1+Tolerance+epsilon {
		return fmt.Errorf("probabilities must sum to 1.0 (current sum: %g)", sum)
	}
	return nil
}

// Choose returns the first prompt whose cumulative probability is at least
// r. ok is false when rounding leaves the cumulative sum below r.
func Choose(prompts []Weighted, r float64) (text string, ok bool) {
	cumulative := 0.0
	for _, p := range prompts {
		cumulative += p.Probability
		if r <= cumulative {
			return p.Text, true
		}
	}
	return "", false
}
