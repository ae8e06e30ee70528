package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name        string
		event       string
		repo        string
		runID       string
		merged      int
		detail      string
		wantContain []string
	}{
		{
			name:        "paused event",
			event:       EventPaused,
			repo:        "acme/widgets",
			runID:       "01J0RUN",
			merged:      4,
			detail:      "5 consecutive failures",
			wantContain: []string{"⏸️", "acme/widgets", "[01J0RUN]", "paused", "4 merges", "5 consecutive failures", "--resume"},
		},
		{
			name:        "interrupted event",
			event:       EventInterrupted,
			repo:        "acme/widgets",
			runID:       "01J0RUN",
			merged:      2,
			wantContain: []string{"🛑", "acme/widgets", "[01J0RUN]", "interrupted", "2 merges"},
		},
		{
			name:        "quota event",
			event:       EventQuotaExhausted,
			repo:        "acme/widgets",
			runID:       "01J0RUN",
			detail:      "10/10",
			wantContain: []string{"⏳", "daily quota", "(10/10)", "--resume"},
		},
		{
			name:        "max iterations event",
			event:       EventMaxIterations,
			repo:        "acme/widgets",
			runID:       "01J0RUN",
			merged:      3,
			detail:      "3",
			wantContain: []string{"✅", "finished 3 iterations", "3 merges"},
		},
		{
			name:        "unknown event",
			event:       "unknown_event",
			repo:        "test/proj",
			runID:       "run-xyz",
			detail:      "extra",
			wantContain: []string{"ℹ️", "test/proj", "[run-xyz]", "event: unknown_event", "extra"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatEvent(tt.event, tt.repo, tt.runID, tt.merged, tt.detail)

			for _, want := range tt.wantContain {
				assert.Contains(t, result, want, "message should contain %q", want)
			}
		})
	}
}

func TestEventConstants(t *testing.T) {
	assert.Equal(t, "paused", EventPaused)
	assert.Equal(t, "interrupted", EventInterrupted)
	assert.Equal(t, "quota_exhausted", EventQuotaExhausted)
	assert.Equal(t, "max_iterations", EventMaxIterations)
}
