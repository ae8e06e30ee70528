package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ParseJSON parses a JSON array of {"text", "probability"} objects, as
// given in the PROMPTS setting.
func ParseJSON(data []byte) ([]Weighted, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("prompts must be valid JSON: %w", err)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("prompts must be a JSON array")
	}
	return fromEntries(list)
}

// LoadFile reads a prompt list from path. Files ending in .toml hold
// [[prompt]] tables; .json and .jsonc files may carry comments and
// trailing commas; anything else is parsed as YAML.
func LoadFile(path string) ([]Weighted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".toml" {
		var doc struct {
			Prompt []map[string]any `toml:"prompt"`
		}
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("parse prompts file: %w", err)
		}
		entries := make([]any, len(doc.Prompt))
		for i, p := range doc.Prompt {
			entries[i] = p
		}
		return fromEntries(entries)
	}

	var raw any
	if ext == ".json" || ext == ".jsonc" {
		err = json.Unmarshal(jsonc.ToJSON(data), &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	if m, ok := raw.(map[string]any); ok {
		// Allow a top-level "prompts:" key as well as a bare list.
		raw = m["prompts"]
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("prompts file must contain a list of prompts")
	}
	return fromEntries(list)
}

func fromEntries(list []any) ([]Weighted, error) {
	out := make([]Weighted, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("prompt %d: each prompt must have 'text' and 'probability' fields", i+1)
		}
		textVal, hasText := m["text"]
		probVal, hasProb := m["probability"]
		if !hasText || !hasProb {
			return nil, fmt.Errorf("prompt %d: each prompt must have 'text' and 'probability' fields", i+1)
		}
		text, ok := textVal.(string)
		if !ok {
			return nil, fmt.Errorf("prompt %d: text must be a string", i+1)
		}
		prob, ok := toFloat(probVal)
		if !ok {
			return nil, fmt.Errorf("prompt %d: probability must be numeric", i+1)
		}
		out = append(out, Weighted{Text: text, Probability: prob})
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
