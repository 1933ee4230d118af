package cliconfig

import (
	"encoding/json"
	"slices"
)

// Entry is one effective setting and where it came from.
type Entry struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// Entries lists every setting of c by dotted key, sorted.
func (c *Config) Entries() []Entry {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	values := make(map[string]any)
	flattenValues("", doc, values)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		src := c.Sources[k]
		if src == "" {
			src = SourceDefault
		}
		entries = append(entries, Entry{Key: k, Value: values[k], Source: src})
	}
	return entries
}

func flattenValues(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenValues(key, sub, out)
			continue
		}
		out[key] = v
	}
}
