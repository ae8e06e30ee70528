package exitcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodexForgeBR/jules-loop/internal/exitcode"
)

func TestExitCodeValues(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", exitcode.Success, 0},
		{"Error", exitcode.Error, 1},
		{"Paused", exitcode.Paused, 2},
		{"Interrupted", exitcode.Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.code)
			assert.Equal(t, tt.name, exitcode.Name(tt.code))
		})
	}
}

func TestExitCodeNameUnknown(t *testing.T) {
	assert.Equal(t, "unknown", exitcode.Name(99))
	assert.Equal(t, "unknown", exitcode.Name(-1))
	assert.Equal(t, "unknown", exitcode.Name(3))
}
