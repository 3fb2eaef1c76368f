// Package interceptors holds the HTTP middleware shared by every route.
package interceptors

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/pkg/httpjson"
)

// GroupIDHeader carries the caller's couple group, set by the authenticating gateway
const GroupIDHeader = "X-Group-ID"

type groupIDKey struct{}

// WithGroupID stores the group in ctx
func WithGroupID(ctx context.Context, groupID uuid.UUID) context.Context {
	return context.WithValue(ctx, groupIDKey{}, groupID)
}

// GroupIDFromContext returns the group set by RequireGroup
func GroupIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(groupIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// RequireGroup rejects requests without a valid group header with 401
func RequireGroup(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(GroupIDHeader)
		if raw == "" {
			httpjson.Error(w, http.StatusUnauthorized, "missing group")
			return
		}
		groupID, err := uuid.Parse(raw)
		if err != nil || groupID == uuid.Nil {
			httpjson.Error(w, http.StatusUnauthorized, "invalid group")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithGroupID(r.Context(), groupID)))
	})
}
