package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edvin/oportunia/internal/db"
	"github.com/edvin/oportunia/internal/model"
)

// FavoritesService manages the niches users have saved.
type FavoritesService struct {
	db  db.DB
	now func() time.Time
}

func NewFavoritesService(db db.DB) *FavoritesService {
	return &FavoritesService{db: db, now: time.Now}
}

// Toggle removes nicheID from the user's favorites if present, otherwise
// saves it with the given snapshot. It reports whether the niche is a
// favorite afterwards. A snapshot is only required when adding.
func (s *FavoritesService) Toggle(ctx context.Context, userID, nicheID string, niche *model.NicheResult) (bool, error) {
	nicheID = strings.TrimSpace(nicheID)
	if nicheID == "" {
		return false, fmt.Errorf("%w: niche_id is required", ErrInvalidInput)
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND niche_id = $2`, userID, nicheID)
	if err != nil {
		return false, fmt.Errorf("remove favorite %s: %w", nicheID, err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	if niche == nil {
		return false, fmt.Errorf("%w: niche_data is required to add a favorite", ErrInvalidInput)
	}
	data, err := json.Marshal(niche)
	if err != nil {
		return false, fmt.Errorf("encode favorite %s: %w", nicheID, err)
	}
	// A concurrent toggle may have inserted the same niche; either way it is saved.
	_, err = s.db.Exec(ctx,
		`INSERT INTO favorites (id, user_id, niche_id, niche_data, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, niche_id) DO NOTHING`,
		uuid.NewString(), userID, nicheID, data, s.now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert favorite %s: %w", nicheID, err)
	}
	return true, nil
}

// List returns the user's favorites, newest first.
func (s *FavoritesService) List(ctx context.Context, userID string) ([]model.Favorite, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, niche_id, niche_data, created_at
		 FROM favorites WHERE user_id = $1
		 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorites for %s: %w", userID, err)
	}
	defer rows.Close()

	favorites := []model.Favorite{}
	for rows.Next() {
		var (
			f    model.Favorite
			data []byte
		)
		if err := rows.Scan(&f.ID, &f.UserID, &f.NicheID, &data, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		if err := json.Unmarshal(data, &f.Niche); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", f.NicheID, err)
		}
		favorites = append(favorites, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return favorites, nil
}

// IsFavorite reports whether the user has saved nicheID.
func (s *FavoritesService) IsFavorite(ctx context.Context, userID, nicheID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND niche_id = $2)`,
		userID, nicheID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite %s: %w", nicheID, err)
	}
	return exists, nil
}
