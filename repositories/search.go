package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"chat-backend/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type ISearchRepository interface {
	Index(msg domain.Message) error
	Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]SearchHit, error)
}

// SearchRepository maintains a full-text index over message contents.
// Indexing happens off the hot path, fed by a sink on the broadcast
// pipeline, so a slow disk never delays delivery.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger) ISearchRepository {
	return &SearchRepository{writer: writer, log: log}
}

type SearchHit struct {
	MessageID uuid.UUID
	Room      domain.RoomID
	Content   string
	Score     float64
}

func (s SearchRepository) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("room", strconv.Itoa(int(msg.Room))).StoreValue())

	return s.writer.Update(doc.ID(), doc)
}

// Search runs a match query scoped to one room and returns the best hits.
func (s SearchRepository) Search(ctx context.Context, room domain.RoomID, query string, limit int) ([]SearchHit, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			s.log.Error("Error while closing index reader", "err", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("content")).
		AddMust(bluge.NewTermQuery(strconv.Itoa(int(room))).SetField("room"))

	it, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	var hits []SearchHit
	match, err := it.Next()
	for err == nil && match != nil {
		hit := SearchHit{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					hit.MessageID = id
				}
			case "content":
				hit.Content = string(value)
			case "room":
				if n, parseErr := strconv.Atoi(string(value)); parseErr == nil {
					hit.Room = domain.RoomID(n)
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
		match, err = it.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
