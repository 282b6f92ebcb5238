package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Steel Bolt", "steel bolt"},
		{"drops punctuation", "steel-bolt (M8)", "steel bolt m8"},
		{"drops units and quantities words", "10 Pieces of Steel Bolt", "10 steel bolt"},
		{"drops stopwords", "the bolt and the nut", "bolt nut"},
		{"drops single characters", "a b bolt", "bolt"},
		{"collapses whitespace", "  steel   bolt  ", "steel bolt"},
		{"empty input", "", ""},
		{"only stopwords", "the a an of", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeKey(tt.input))
		})
	}
}

func TestNormalizeKey_Idempotent(t *testing.T) {
	inputs := []string{
		"10 Pieces of Steel Bolt (M8)",
		"Consulting Services - Q3",
		"qty 5 units PAPER a4",
	}
	for _, input := range inputs {
		once := NormalizeKey(input)
		assert.Equal(t, once, NormalizeKey(once), "input %q", input)
	}
}
