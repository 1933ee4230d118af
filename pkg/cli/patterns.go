package cli

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// expandSensors resolves glob patterns such as "oil-*" against names.
// Plain names pass through unchanged so the server can report them as
// unknown. The result keeps first-seen order without duplicates.
func expandSensors(patterns, names []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	for _, p := range patterns {
		if !hasMeta(p) {
			add(p)
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid sensor pattern %q", p)
		}
		matched := false
		for _, name := range names {
			if ok, _ := doublestar.Match(p, name); ok {
				add(name)
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("pattern %q matches no sensors", p)
		}
	}
	return out, nil
}

// needsExpansion reports whether any pattern is a glob.
func needsExpansion(patterns []string) bool {
	for _, p := range patterns {
		if hasMeta(p) {
			return true
		}
	}
	return false
}

var titleCaser = cases.Title(language.English)

// sensorTitle turns "oil-pressure" into "Oil Pressure".
func sensorTitle(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "-", " "))
}
