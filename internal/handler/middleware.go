package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/cipher-arena/internal/auth"
	"github.com/cipher-arena/internal/domain"
	"github.com/cipher-arena/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// authenticate resolves the bearer token into a verified identity and
// stores it on the request context
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}

		identity, err := h.verifier.Verify(token)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireGamemaster rejects callers without the gamemaster role
func (h *Handler) requireGamemaster(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.actor(r).Gamemaster {
			h.writeError(w, http.StatusForbidden, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// actor maps the request's verified identity to an engine actor. An
// unauthenticated request yields a zero actor, which the engine
// rejects.
func (h *Handler) actor(r *http.Request) service.Actor {
	identity, ok := r.Context().Value(identityKey).(auth.Identity)
	if !ok {
		return service.Actor{}
	}
	return service.Actor{
		ExternalID: identity.Subject,
		Email:      identity.Email,
		Gamemaster: identity.IsGamemaster(),
	}
}
