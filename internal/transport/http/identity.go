package http

import (
	"net/http"

	"course-ledger-service/internal/domain"
)

// Identity headers set by the gateway after authentication.
const (
	HeaderUserID   = "X-User-ID"
	HeaderTenantID = "X-Tenant-ID"
	HeaderRole     = "X-Role"
)

func actorFromRequest(r *http.Request) (domain.Actor, bool) {
	actor := domain.Actor{
		UserID:   r.Header.Get(HeaderUserID),
		TenantID: r.Header.Get(HeaderTenantID),
		Role:     domain.Role(r.Header.Get(HeaderRole)),
	}
	if actor.UserID == "" || actor.TenantID == "" || !actor.Role.Valid() {
		return domain.Actor{}, false
	}
	return actor, true
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor domain.Actor)

func (h *Handler) withActor(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: "missing or invalid identity headers"})
			return
		}
		next(w, r, actor)
	}
}
