// Package content serves the browsable proverbs, quotes, idioms and similes.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"wisdom-empire/internal/models"
)

var ErrNotFound = errors.New("content item not found")

type Store struct {
	DB *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search lists items of one category newest first. A non-empty query matches
// case-insensitively anywhere in the text or origin.
func (s *Store) Search(ctx context.Context, category models.ContentCategory, query string, limit, offset int) ([]models.ContentItem, int, error) {
	where := ` WHERE category = ?`
	args := []any{category}
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		where += ` AND (LOWER(text) LIKE ? ESCAPE '\' OR LOWER(origin) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.DB.GetContext(ctx, &total, s.DB.Rebind(`SELECT COUNT(*) FROM content_items`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count content: %w", err)
	}

	items := []models.ContentItem{}
	q := s.DB.Rebind(`SELECT id, category, text, meaning, origin, created_at FROM content_items` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.DB.SelectContext(ctx, &items, q, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("search content: %w", err)
	}
	return items, total, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.ContentItem, error) {
	var item models.ContentItem
	err := s.DB.GetContext(ctx, &item,
		s.DB.Rebind(`SELECT id, category, text, meaning, origin, created_at FROM content_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return &item, nil
}
