package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/oportunia/internal/db/dbtest"
	"github.com/edvin/oportunia/internal/model"
)

func TestFavoritesToggle_Add(t *testing.T) {
	e := newEnv(t)
	e.favDB.On("Exec", mock.Anything, mock.Anything, []any{"user_1", "funda iphone"}).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)
	e.favDB.On("Exec", mock.Anything, mock.Anything, mock.MatchedBy(func(args []any) bool { return len(args) == 5 })).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	h := NewFavorites(e.services.Favorites)
	rec := httptest.NewRecorder()
	h.Toggle(rec, withUser(newRequest(http.MethodPost, "/favorites", map[string]any{
		"niche_id":   "funda iphone",
		"niche_data": model.NicheResult{Niche: "funda iphone", Score: 72},
	}), "user_1"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body favoriteStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.IsFavorite)
	e.favDB.AssertExpectations(t)
}

func TestFavoritesToggle_AddWithoutSnapshot(t *testing.T) {
	e := newEnv(t)
	e.favDB.On("Exec", mock.Anything, mock.Anything, mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	h := NewFavorites(e.services.Favorites)
	rec := httptest.NewRecorder()
	h.Toggle(rec, withUser(newRequest(http.MethodPost, "/favorites", map[string]any{"niche_id": "funda iphone"}), "user_1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decodeErrorResponse(rec)["error"])
}

func TestFavoritesToggle_MissingID(t *testing.T) {
	e := newEnv(t)
	h := NewFavorites(e.services.Favorites)
	rec := httptest.NewRecorder()
	h.Toggle(rec, withUser(newRequest(http.MethodPost, "/favorites", map[string]any{}), "user_1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e.favDB.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestFavoritesList(t *testing.T) {
	e := newEnv(t)
	data, err := json.Marshal(model.NicheResult{Niche: "funda iphone", Score: 72})
	require.NoError(t, err)
	e.favDB.On("Query", mock.Anything, mock.Anything, []any{"user_1"}).
		Return(dbtest.NewRows([]any{"f1", "user_1", "funda iphone", data, time.Now()}), nil)

	h := NewFavorites(e.services.Favorites)
	rec := httptest.NewRecorder()
	h.List(rec, withUser(newRequest(http.MethodGet, "/favorites", nil), "user_1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var favs []model.Favorite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, 72, favs[0].Niche.Score)
}

func TestFavoritesStatus(t *testing.T) {
	e := newEnv(t)
	e.favDB.On("QueryRow", mock.Anything, mock.Anything, []any{"user_1", "MLA-funda"}).
		Return(dbtest.RowFunc(func(dest ...any) error {
			*(dest[0].(*bool)) = true
			return nil
		}))

	h := NewFavorites(e.services.Favorites)
	rec := httptest.NewRecorder()
	h.Status(rec, withUser(withChiURLParam(newRequest(http.MethodGet, "/", nil), "nicheID", "MLA-funda"), "user_1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"niche_id":"MLA-funda","is_favorite":true}`, rec.Body.String())
}

func TestFavoritesStatus_StoreError(t *testing.T) {
	e := newEnv(t)
	e.favDB.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(dbtest.ErrRow(errors.New("db down")))

	h := NewFavorites(e.services.Favorites)
	rec := httptest.NewRecorder()
	h.Status(rec, withUser(withChiURLParam(newRequest(http.MethodGet, "/", nil), "nicheID", "MLA-funda"), "user_1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSubscriptionAdminUpdate(t *testing.T) {
	e := newEnv(t)
	_, ok, err := e.subs.IncrementIfBelow(t.Context(), "user_9", 5, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	h := NewSubscriptionAdmin(e.services.SubscriptionAdmin)
	rec := httptest.NewRecorder()
	h.Update(rec, withChiURLParam(newRequest(http.MethodPut, "/", map[string]any{
		"tier":                     "pro",
		"status":                   "authorized",
		"external_subscription_id": "preapproval-77",
	}), "userID", "user_9"))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sub model.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, model.TierPro, sub.Tier)
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, 1, sub.UsageCount)

	stored, err := e.subs.GetByUser(t.Context(), "user_9")
	require.NoError(t, err)
	assert.Equal(t, model.TierPro, stored.Tier)
}

func TestSubscriptionAdminUpdate_Validation(t *testing.T) {
	e := newEnv(t)
	h := NewSubscriptionAdmin(e.services.SubscriptionAdmin)

	for name, body := range map[string]map[string]any{
		"unknown tier":   {"tier": "platinum", "status": "authorized"},
		"missing status": {"tier": "pro"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Update(rec, withChiURLParam(newRequest(http.MethodPut, "/", body), "userID", "user_9"))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
