package handler

import (
	"net/http"

	"github.com/cradoe/puddle/internal/context"
	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/service"
)

// HandleAuthUser returns the caller's user, creating it on first login.
func (h *RouteHandler) HandleAuthUser(w http.ResponseWriter, r *http.Request) {
	identity := context.ContextGetIdentity(r)

	user, err := h.Service.ResolveUser(r.Context(), identity)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, service.NewUserView(user), "User retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
