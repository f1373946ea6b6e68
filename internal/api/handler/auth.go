package handler

import (
	"net/http"

	"github.com/edvin/oportunia/internal/api/request"
	"github.com/edvin/oportunia/internal/api/response"
	"github.com/edvin/oportunia/internal/core"
)

type Auth struct {
	svc *core.AuthService
}

func NewAuth(svc *core.AuthService) *Auth {
	return &Auth{svc: svc}
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login authenticates the admin and returns a JWT token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.svc.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}
