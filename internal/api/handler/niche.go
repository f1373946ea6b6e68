package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/oportunia/internal/api/request"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/core"
)

type Niche struct {
	svc     *core.NicheService
	history *core.HistoryService
}

func NewNiche(svc *core.NicheService, history *core.HistoryService) *Niche {
	return &Niche{svc: svc, history: history}
}

func (h *Niche) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, cats)
}

func (h *Niche) Category(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	cat, err := h.svc.Category(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, cat)
}

// Search runs a niche analysis for ?category_id=&category_name=.
func (h *Niche) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, err := request.RequireID(q.Get("category_id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "missing category_id")
		return
	}

	res, err := h.svc.Search(r.Context(), userID(r), categoryID, q.Get("category_name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *Niche) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.history.List(r.Context(), userID(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, entries)
}

func (h *Niche) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context(), userID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
