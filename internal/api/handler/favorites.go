package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/oportunia/internal/api/request"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/core"
)

type Favorites struct {
	svc *core.FavoritesService
}

func NewFavorites(svc *core.FavoritesService) *Favorites {
	return &Favorites{svc: svc}
}

type favoriteStatus struct {
	NicheID    string `json:"niche_id"`
	IsFavorite bool   `json:"is_favorite"`
}

func (h *Favorites) List(w http.ResponseWriter, r *http.Request) {
	favs, err := h.svc.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, favs)
}

// Toggle adds or removes a niche and returns the resulting state.
func (h *Favorites) Toggle(w http.ResponseWriter, r *http.Request) {
	var req request.ToggleFavorite
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	fav, err := h.svc.Toggle(r.Context(), userID(r), req.NicheID, req.Niche)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, favoriteStatus{NicheID: req.NicheID, IsFavorite: fav})
}

func (h *Favorites) Status(w http.ResponseWriter, r *http.Request) {
	nicheID, err := request.RequireID(chi.URLParam(r, "nicheID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	fav, err := h.svc.IsFavorite(r.Context(), userID(r), nicheID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, favoriteStatus{NicheID: nicheID, IsFavorite: fav})
}
