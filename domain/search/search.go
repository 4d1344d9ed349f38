package search

import (
	"strconv"
	"strings"
)

// Prefix marks a chat body as a search command instead of a message.
const Prefix = "/find"

// Query decouples the raw chat input from the index engine requirements.
type Query struct {
	RawInput string // the original chat body
	Terms    string // the text to match against stored bodies
	Limit    int    // number of results
}

// NewSearchQuery parses command-line style arguments out of a chat body.
// Example: /find invoice --limit 5
func NewSearchQuery(input string) *Query {
	query := &Query{
		RawInput: input,
		Limit:    10,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			if strings.TrimPrefix(part, "--") == "limit" {
				if limit, err := strconv.Atoi(parts[i+1]); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++
			continue
		}

		// Skip the command itself, keep everything else as search terms
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

// IsSearch reports whether a chat body is a search command.
func IsSearch(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), Prefix)
}
