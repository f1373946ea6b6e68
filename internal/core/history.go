package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edvin/oportunia/internal/db"
	"github.com/edvin/oportunia/internal/model"
)

// DefaultHistoryLimit is how many searches History returns by default.
const DefaultHistoryLimit = 20

// HistoryService manages search_history rows.
type HistoryService struct {
	db  db.DB
	now func() time.Time
}

func NewHistoryService(db db.DB) *HistoryService {
	return &HistoryService{db: db, now: time.Now}
}

// Record inserts a history entry for a completed search.
func (s *HistoryService) Record(ctx context.Context, userID, categoryID, categoryName string, resultCount int) (*model.SearchHistory, error) {
	h := &model.SearchHistory{
		ID:           uuid.NewString(),
		UserID:       userID,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		ResultCount:  resultCount,
		CreatedAt:    s.now().UTC(),
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO search_history (id, user_id, category_id, category_name, result_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.UserID, h.CategoryID, h.CategoryName, h.ResultCount, h.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert search history: %w", err)
	}
	return h, nil
}

// List returns the most recent searches of a user, newest first.
func (s *HistoryService) List(ctx context.Context, userID string, limit int) ([]model.SearchHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, category_id, category_name, result_count, created_at
		 FROM search_history WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list search history for %s: %w", userID, err)
	}
	defer rows.Close()

	var entries []model.SearchHistory
	for rows.Next() {
		var h model.SearchHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.CategoryID, &h.CategoryName, &h.ResultCount, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search history: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search history: %w", err)
	}
	return entries, nil
}

// Clear deletes every history entry of a user.
func (s *HistoryService) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM search_history WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear search history for %s: %w", userID, err)
	}
	return nil
}
