package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		prompts []Weighted
		wantErr bool
	}{
		{"exact sum", []Weighted{{"a", 0.3}, {"b", 0.7}}, false},
		{"within tolerance below", []Weighted{{"a", 0.332}, {"b", 0.332}, {"c", 0.332}}, false},
		{"within tolerance above", []Weighted{{"a", 0.504}, {"b", 0.504}}, false},
		{"single entry", []Weighted{{"only", 1}}, false},
		{"lower bound", []Weighted{{"a", 0.33}, {"b", 0.33}, {"c", 0.33}}, false},
		{"lower bound two entries", []Weighted{{"a", 0.5}, {"b", 0.49}}, false},
		{"upper bound", []Weighted{{"a", 0.5}, {"b", 0.51}}, false},
		{"just below lower bound", []Weighted{{"a", 0.5}, {"b", 0.489}}, true},
		{"just above upper bound", []Weighted{{"a", 0.5}, {"b", 0.511}}, true},
		{"sum 0.5", []Weighted{{"a", 0.25}, {"b", 0.25}}, true},
		{"sum 1.5", []Weighted{{"a", 0.75}, {"b", 0.75}}, true},
		{"empty list", nil, true},
		{"empty text", []Weighted{{"", 0.5}, {"b", 0.5}}, true},
		{"blank text", []Weighted{{"   ", 0.5}, {"b", 0.5}}, true},
		{"negative probability", []Weighted{{"a", -0.5}, {"b", 1.5}}, true},
		{"probability above one", []Weighted{{"a", 1.2}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.prompts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ReportsSum(t *testing.T) {
	err := Validate([]Weighted{{"a", 0.25}, {"b", 0.25}})
	assert.EqualError(t, err, "probabilities must sum to 1.0 (current sum: 0.5)")
}

func TestChoose_CumulativeThreshold(t *testing.T) {
	prompts := []Weighted{{"first", 0.3}, {"second", 0.7}}

	tests := []struct {
		draw float64
		want string
	}{
		{0.0, "first"},
		{0.2, "first"},
		{0.3, "first"},
		{0.5, "second"},
		{0.99, "second"},
	}
	for _, tt := range tests {
		got, ok := Choose(prompts, tt.draw)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "draw %v", tt.draw)
	}
}

func TestChoose_Undershoot(t *testing.T) {
	_, ok := Choose([]Weighted{{"a", 0.495}, {"b", 0.495}}, 0.995)
	assert.False(t, ok)
}

func TestChoose_AlwaysReturnsMember(t *testing.T) {
	prompts := []Weighted{{"a", 0.1}, {"b", 0.2}, {"c", 0.3}, {"d", 0.4}}
	members := map[string]bool{"a": true, "b": true, "c": true, "d": true}

	for i := 0; i < 1000; i++ {
		r := float64(i) / 1000
		got, ok := Choose(prompts, r)
		assert.True(t, ok)
		assert.True(t, members[got], "draw %v returned %q", r, got)
	}
}
