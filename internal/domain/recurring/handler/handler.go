// Package handler exposes the recurring materialization sweep over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring/service"
	"github.com/FACorreiaa/couple-finance/pkg/httpjson"
	"github.com/FACorreiaa/couple-finance/pkg/interceptors"
)

// Sweeper materializes the group's rules due today
type Sweeper interface {
	Sweep(ctx context.Context, groupID uuid.UUID) (*service.SweepResult, error)
}

// RecurringHandler serves the recurring endpoints
type RecurringHandler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

// NewRecurringHandler creates a new recurring handler
func NewRecurringHandler(sweeper Sweeper, logger *slog.Logger) *RecurringHandler {
	return &RecurringHandler{sweeper: sweeper, logger: logger}
}

// Routes mounts the handler under /v1/recurring
func (h *RecurringHandler) Routes(r chi.Router) {
	r.Post("/process", h.Process)
}

// Process runs the sweep for the caller's group. Clients call it on app open; calling it
// again the same day is a no-op.
func (h *RecurringHandler) Process(w http.ResponseWriter, r *http.Request) {
	groupID, ok := interceptors.GroupIDFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "missing group")
		return
	}

	result, err := h.sweeper.Sweep(r.Context(), groupID)
	if err != nil {
		h.logger.Error("failed to process recurring rules",
			slog.String("group_id", groupID.String()),
			slog.Any("error", err),
		)
		httpjson.Error(w, http.StatusInternalServerError, "couldn't process recurring rules")
		return
	}

	httpjson.Write(w, http.StatusOK, result)
}
