package prompt

import (
	"math/rand/v2"

	"github.com/CodexForgeBR/jules-loop/internal/logging"
)

// Selector picks the prompt for each session: the static prompt when no
// weighted list is configured, otherwise a weighted random draw.
type Selector struct {
	Static  string
	Prompts []Weighted

	// Rand returns a uniform value in [0, 1). Defaults to math/rand/v2.
	Rand   func() float64
	Events *logging.EventLog
}

// Next returns the prompt for the next session. A draw that falls past the
// cumulative sum because of floating-point drift selects the first entry
// and logs a warning.
func (s *Selector) Next() string {
	if len(s.Prompts) == 0 {
		return s.Static
	}

	draw := rand.Float64
	if s.Rand != nil {
		draw = s.Rand
	}
	r := draw()

	if text, ok := Choose(s.Prompts, r); ok {
		s.emitf(logging.EventInfo, "Selected prompt (p=%.6f): %s...", r, truncate(text, 50))
		return text
	}

	s.emitf(logging.EventWarning, "Prompt selection failed (p=%.6f), using first prompt as fallback", r)
	return s.Prompts[0].Text
}

func (s *Selector) emitf(event, format string, args ...any) {
	if s.Events != nil {
		s.Events.Emitf(event, format, args...)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
