package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	prompts, err := ParseJSON([]byte(`[{"text": "Add tests", "probability": 0.3}, {"text": "Fix bugs", "probability": 0.7}]`))
	require.NoError(t, err)
	assert.Equal(t, []Weighted{{"Add tests", 0.3}, {"Fix bugs", 0.7}}, prompts)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"invalid json", `[{`, "prompts must be valid JSON"},
		{"not an array", `{"text": "a"}`, "prompts must be a JSON array"},
		{"missing probability", `[{"text": "a"}]`, "must have 'text' and 'probability'"},
		{"missing text", `[{"probability": 1}]`, "must have 'text' and 'probability'"},
		{"entry not an object", `["a"]`, "must have 'text' and 'probability'"},
		{"string probability", `[{"text": "a", "probability": "1"}]`, "probability must be numeric"},
		{"numeric text", `[{"text": 5, "probability": 1}]`, "text must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile_YAMLList(t *testing.T) {
	path := writeFile(t, "prompts.yaml", `
- text: Improve documentation
  probability: 0.25
- text: Refactor one module
  probability: 0.75
`)
	prompts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Weighted{{"Improve documentation", 0.25}, {"Refactor one module", 0.75}}, prompts)
}

func TestLoadFile_YAMLWithPromptsKey(t *testing.T) {
	path := writeFile(t, "prompts.yml", `
prompts:
  - text: Only one
    probability: 1
`)
	prompts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Weighted{{"Only one", 1}}, prompts)
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "prompts.json", `[{"text": "a", "probability": 0.5}, {"text": "b", "probability": 0.5}]`)
	prompts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, prompts, 2)
}

func TestLoadFile_JSONWithComments(t *testing.T) {
	path := writeFile(t, "prompts.jsonc", `{
	// weights must sum to 1
	"prompts": [
		{"text": "a", "probability": 0.25},
		{"text": "b", "probability": 0.75}, /* trailing comma */
	],
}`)
	prompts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Weighted{{"a", 0.25}, {"b", 0.75}}, prompts)
}

func TestLoadFile_TOML(t *testing.T) {
	path := writeFile(t, "prompts.toml", `
[[prompt]]
text = "Add tests"
probability = 0.4

[[prompt]]
text = "Fix lint"
probability = 0.6
`)
	prompts, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Weighted{{"Add tests", 0.4}, {"Fix lint", 0.6}}, prompts)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "scalar.yaml", "just a string"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "bad.toml", "[[prompt]\ntext ="))
	assert.Error(t, err)
}
