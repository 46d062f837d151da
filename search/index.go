// Package search maintains a full-text index over the live message window.
// Entries are removed when their message leaves the log (deletion, clear,
// FIFO eviction) so search never resurrects an evicted message.
package search

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/blugelabs/bluge"

	"github.com/a7al3le-dotcom/chat7ob/domain"
)

type Hit struct {
	ID     int64
	Author string
	Body   string
}

type Index struct {
	log    *slog.Logger
	writer *bluge.Writer
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{log: log, writer: writer}
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Add indexes a message body under its log id.
func (i *Index) Add(m domain.Message) error {
	doc := bluge.NewDocument(docID(m.ID)).
		AddField(bluge.NewTextField("body", m.Body).StoreValue()).
		AddField(bluge.NewKeywordField("author", m.Author).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Remove drops messages from the index. Errors are logged, not returned:
// a stale index entry is filtered against the live log at query time.
func (i *Index) Remove(ids ...int64) {
	for _, id := range ids {
		if err := i.writer.Delete(bluge.Identifier(docID(id))); err != nil {
			i.log.Warn("Failed to remove message from search index", "id", id, "err", err)
		}
	}
}

// Search runs the parsed query against the index and returns up to
// query.Limit hits, best match first.
func (i *Index) Search(ctx context.Context, query Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	match := bluge.NewMatchQuery(query.Terms).SetField("body")
	var blugeQuery bluge.Query = match
	if query.Author != "" {
		blugeQuery = bluge.NewBooleanQuery().
			AddMust(match).
			AddMust(bluge.NewTermQuery(query.Author).SetField("author"))
	}

	request := bluge.NewTopNSearch(query.Limit, blugeQuery)
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		next, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		var hit Hit
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID, _ = strconv.ParseInt(string(value), 10, 64)
			case "author":
				hit.Author = string(value)
			case "body":
				hit.Body = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
