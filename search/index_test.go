package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/blugelabs/bluge"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/a7al3le-dotcom/chat7ob/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewIndex(writer, log)
}

func TestIndex_AddAndSearch(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Add(domain.Message{ID: 1, Author: "sara", Body: "the invoice is overdue"}))
	req.NoError(index.Add(domain.Message{ID: 2, Author: "mo", Body: "lunch anyone"}))

	hits, err := index.Search(ctx, ParseQuery("invoice"))

	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(int64(1), hits[0].ID)
	req.Equal("sara", hits[0].Author)
	req.Equal("the invoice is overdue", hits[0].Body)
}

func TestIndex_Search_AuthorFilter(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Add(domain.Message{ID: 1, Author: "sara", Body: "shipping update"}))
	req.NoError(index.Add(domain.Message{ID: 2, Author: "mo", Body: "shipping delayed"}))

	hits, err := index.Search(ctx, ParseQuery("shipping --author mo"))

	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(int64(2), hits[0].ID)
}

func TestIndex_Remove(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	ctx := context.Background()

	req.NoError(index.Add(domain.Message{ID: 1, Author: "sara", Body: "ephemeral"}))
	index.Remove(1)

	hits, err := index.Search(ctx, ParseQuery("ephemeral"))

	req.NoError(err)
	req.Empty(hits)
}

func TestParseQuery_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "Plain terms",
			input:    "hello world",
			expected: Query{RawInput: "hello world", Terms: "hello world", Limit: 10},
		},
		{
			name:     "Author and limit flags",
			input:    "invoice --author sara --limit 5",
			expected: Query{RawInput: "invoice --author sara --limit 5", Terms: "invoice", Author: "sara", Limit: 5},
		},
		{
			name:     "Invalid limit keeps default",
			input:    "x y --limit zero",
			expected: Query{RawInput: "x y --limit zero", Terms: "x y", Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ParseQuery(tt.input))
		})
	}
}
