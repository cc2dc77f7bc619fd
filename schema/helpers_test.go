package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOwners(t *testing.T) {
	tests := []struct {
		name   string
		owners []string
		want   []string
	}{
		{"nil", nil, []string{}},
		{"sorted", []string{"carol", "alice", "bob"}, []string{"alice", "bob", "carol"}},
		{"duplicates", []string{"bob", "alice", "bob"}, []string{"alice", "bob"}},
		{"blank handles", []string{"", " alice ", "  "}, []string{"alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOwners(tt.owners))
		})
	}
}

func TestOwnersEqual(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected bool
	}{
		{"both empty", []string{}, []string{}, true},
		{"nil and empty", nil, []string{}, true},
		{"same order", []string{"alice", "bob"}, []string{"alice", "bob"}, true},
		{"different order", []string{"bob", "alice"}, []string{"alice", "bob"}, true},
		{"duplicate handle", []string{"alice", "alice"}, []string{"alice"}, true},
		{"owner replaced", []string{"a", "b"}, []string{"a", "c"}, false},
		{"owner added", []string{"a"}, []string{"a", "b"}, false},
		{"case sensitive", []string{"Alice"}, []string{"alice"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OwnersEqual(tt.a, tt.b))
		})
	}
}

func TestFormatOwners(t *testing.T) {
	assert.Equal(t, "(none)", FormatOwners(nil))
	assert.Equal(t, "alice", FormatOwners([]string{"alice"}))
	assert.Equal(t, "alice, bob", FormatOwners([]string{"alice", "bob"}))
}
