package id

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUUID_Format(t *testing.T) {
	uuidRegex := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	for i := 0; i < 50; i++ {
		got := UUID()
		assert.Regexp(t, uuidRegex, got)
	}
}

func TestShort(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		s := Short()
		assert.Regexp(t, hex, s)
		seen[s] = struct{}{}
	}
	// 200 draws from 2^32 should not collide in practice.
	assert.Greater(t, len(seen), 195)
}

func TestPrefixed(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"websocket", "ws", "ws-"},
		{"sse", "sse", "sse-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prefixed(tt.prefix)
			assert.True(t, strings.HasPrefix(got, tt.want), got)
			assert.Len(t, got, len(tt.want)+8)
		})
	}

	t.Run("empty prefix", func(t *testing.T) {
		assert.Len(t, Prefixed(""), 8)
	})
}
