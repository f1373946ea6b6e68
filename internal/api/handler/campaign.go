package handler

import (
	"net/http"

	"github.com/edvin/oportunia/internal/api/request"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/core"
)

type Campaign struct {
	svc *core.CampaignService
}

func NewCampaign(svc *core.CampaignService) *Campaign {
	return &Campaign{svc: svc}
}

func (h *Campaign) Generate(w http.ResponseWriter, r *http.Request) {
	var req request.GenerateCampaign
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.Generate(r.Context(), userID(r), req.Niche, req.CategoryID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}
