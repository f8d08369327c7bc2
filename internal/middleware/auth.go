// Package middleware holds the HTTP middleware of the request gateway.
package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasksync/internal/auth"
	"github.com/BuzzLyutic/tasksync/pkg/respond"
)

type contextKey string

var (
	ownerIDContextKey   = contextKey("owner_id")
	ownerSlotContextKey = contextKey("owner_slot")
)

// Verifier is the credential check shared with the WebSocket handshake.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Authenticate verifies the bearer token and puts the owner id in the
// request context. Anything else is rejected with 401 before the handler runs.
func Authenticate(v Verifier, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r)
			if token == "" {
				respond.Error(w, r, http.StatusUnauthorized, "no token provided")
				return
			}

			identity, err := v.Verify(token)
			if err != nil {
				logger.Debug("rejected bearer token", zap.Error(err))
				respond.Error(w, r, http.StatusUnauthorized, "invalid token")
				return
			}

			if slot, ok := r.Context().Value(ownerSlotContextKey).(*string); ok {
				*slot = identity.OwnerID
			}
			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), identity.OwnerID)))
		})
	}
}

// OwnerID returns the authenticated owner. Only set behind Authenticate.
func OwnerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerIDContextKey).(string)
	return id, ok && id != ""
}

func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDContextKey, ownerID)
}

// withOwnerSlot lets an outer middleware learn the owner set further in.
func withOwnerSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, ownerSlotContextKey, slot)
}
