package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "plain terms",
			input:    "invoice overdue",
			expected: Query{RawInput: "invoice overdue", Terms: "invoice overdue", Limit: 10},
		},
		{
			name:     "author filter",
			input:    "hello --author sara",
			expected: Query{RawInput: "hello --author sara", Terms: "hello", Author: "sara", Limit: 10},
		},
		{
			name:     "custom limit",
			input:    "spam --limit 3",
			expected: Query{RawInput: "spam --limit 3", Terms: "spam", Limit: 3},
		},
		{
			name:     "invalid limit keeps default",
			input:    "spam --limit zero",
			expected: Query{RawInput: "spam --limit zero", Terms: "spam", Limit: 10},
		},
		{
			name:     "flags interleaved with terms",
			input:    "--author mo project update --limit 5",
			expected: Query{RawInput: "--author mo project update --limit 5", Terms: "project update", Author: "mo", Limit: 5},
		},
		{
			name:     "slash command prefix ignored",
			input:    "/find invoice",
			expected: Query{RawInput: "/find invoice", Terms: "invoice", Limit: 10},
		},
		{
			name:     "empty input",
			input:    "",
			expected: Query{RawInput: "", Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, ParseQuery(tt.input))
		})
	}
}
