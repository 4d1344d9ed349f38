// Package search maintains the bluge full-text index over stored messages.
package search

import (
	"chat-relay/contract"
	"chat-relay/domain"
	dsearch "chat-relay/domain/search"
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(log *slog.Logger, path string) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one canonical message. Only the canonical body is
// indexed; translations are renderings, not content.
func (i *Index) IndexMessage(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("body", msg.Body).StoreValue()).
		AddField(bluge.NewKeywordField("author", msg.Author).StoreValue()).
		AddField(bluge.NewStoredOnlyField("createdAt", []byte(msg.CreatedAt.Format(time.RFC3339Nano))))
	return i.writer.Update(doc.ID(), doc)
}

// Search answers a parsed /find query with matching canonical messages,
// best match first.
func (i *Index) Search(ctx context.Context, query dsearch.Query) ([]domain.Message, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil {
			i.log.Warn("Index reader close failed", "error", closeErr)
		}
	}()

	match := bluge.NewMatchQuery(query.Terms).SetField("body")
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(query.Limit, match))
	if err != nil {
		return nil, err
	}

	var hits []domain.Message
	for {
		next, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}

		var hit domain.Message
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					hit.ID = id
				}
			case "author":
				hit.Author = string(value)
			case "body":
				hit.Body = string(value)
			case "createdAt":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.CreatedAt = at
				}
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

var _ contract.ISearcher = (*Index)(nil)
