package search

import (
	"strconv"
	"strings"
)

// Query represents the structured parameters of a moderator search.
// It decouples the raw chat input from the index engine requirements.
type Query struct {
	RawInput string // the original request from the moderator
	Terms    string // the text to match against message bodies
	Author   string // optional author filter
	Limit    int    // number of results
}

// ParseQuery extracts command-line style arguments from a raw string.
// Example: invoice overdue --author sara --limit 5
func ParseQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    10, // default limit
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "author":
				query.Author = val
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = n
				}
			}
			i++ // skip the value part
			continue
		}

		// Leading /commands (e.g. "/find") are not search terms
		if strings.HasPrefix(part, "/") {
			continue
		}

		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
