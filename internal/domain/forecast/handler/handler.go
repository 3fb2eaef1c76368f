// Package handler exposes balance projections over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	"github.com/FACorreiaa/couple-finance/internal/domain/forecast/export"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/pkg/httpjson"
	"github.com/FACorreiaa/couple-finance/pkg/interceptors"
	"github.com/FACorreiaa/couple-finance/pkg/money"
)

const projectionFailedMessage = "couldn't compute projection"

// ProjectionService computes projections for a group
type ProjectionService interface {
	GetProjection(ctx context.Context, groupID uuid.UUID, hyp forecast.Hypothetical) (*forecast.Projection, error)
	Options() forecast.Options
}

// Settings are the client-facing engine settings
type Settings struct {
	Timezone            string
	PartnerSyncInterval time.Duration
	EuropeanAmounts     bool
}

// ForecastHandler serves the projection endpoints
type ForecastHandler struct {
	service  ProjectionService
	settings Settings
	logger   *slog.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service ProjectionService, settings Settings, logger *slog.Logger) *ForecastHandler {
	return &ForecastHandler{service: service, settings: settings, logger: logger}
}

// Routes mounts the handler under /v1/forecast
func (h *ForecastHandler) Routes(r chi.Router) {
	r.Post("/projections", h.CreateProjection)
	r.Get("/projections/export", h.ExportProjection)
	r.Get("/settings", h.GetSettings)
}

// CreateProjection projects the group's balance, optionally with a what-if entry in the body
func (h *ForecastHandler) CreateProjection(w http.ResponseWriter, r *http.Request) {
	groupID, ok := interceptors.GroupIDFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "missing group")
		return
	}

	var req *hypotheticalRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hyp, err := h.parseHypothetical(req)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	projection, err := h.service.GetProjection(r.Context(), groupID, hyp)
	if err != nil {
		h.writeProjectionError(w, groupID, err)
		return
	}

	httpjson.Write(w, http.StatusOK, toProjectionResponse(projection))
}

// ExportProjection downloads the projection as CSV or XLSX. The what-if entry, if
// any, is given as query parameters with the same names as the JSON body.
func (h *ForecastHandler) ExportProjection(w http.ResponseWriter, r *http.Request) {
	groupID, ok := interceptors.GroupIDFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "missing group")
		return
	}

	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req *hypotheticalRequest
	if q.Get("kind") != "" {
		req = &hypotheticalRequest{
			Kind:        q.Get("kind"),
			Description: q.Get("description"),
			Amount:      amountInput(q.Get("amount")),
			Date:        q.Get("date"),
			Frequency:   q.Get("frequency"),
		}
	}
	hyp, err := h.parseHypothetical(req)
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	projection, err := h.service.GetProjection(r.Context(), groupID, hyp)
	if err != nil {
		h.writeProjectionError(w, groupID, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(projection.StartDate)))
	if err := export.Write(w, format, projection); err != nil {
		// Headers are already sent
		h.logger.Error("failed to export projection",
			slog.String("group_id", groupID.String()),
			slog.String("format", string(format)),
			slog.Any("error", err),
		)
	}
}

// GetSettings returns the projection settings clients need to render and poll
func (h *ForecastHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	opts := h.service.Options()
	httpjson.Write(w, http.StatusOK, settingsResponse{
		HorizonDays:                opts.HorizonDays,
		LowBalanceThreshold:        money.New(opts.LowBalanceThresholdMinor, opts.CurrencyCode),
		Currency:                   opts.CurrencyCode,
		Timezone:                   h.settings.Timezone,
		PartnerSyncIntervalSeconds: int(h.settings.PartnerSyncInterval / time.Second),
	})
}

func (h *ForecastHandler) parseHypothetical(req *hypotheticalRequest) (forecast.Hypothetical, error) {
	if req == nil || (req.Kind == "" && req.Description == "" && req.Amount == "" && req.Date == "") {
		return nil, nil
	}

	if strings.TrimSpace(req.Date) == "" {
		return nil, forecast.ErrMissingDate
	}
	date, err := recurring.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", req.Date)
	}

	if strings.TrimSpace(string(req.Amount)) == "" {
		return nil, recurring.ErrInvalidAmount
	}
	amount, err := money.Parse(string(req.Amount), h.service.Options().CurrencyCode, h.settings.EuropeanAmounts)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", recurring.ErrInvalidAmount, req.Amount)
	}

	return forecast.NewHypothetical(
		forecast.HypotheticalKind(req.Kind),
		req.Description,
		amount.Amount(),
		date,
		req.Frequency,
	)
}

func (h *ForecastHandler) writeProjectionError(w http.ResponseWriter, groupID uuid.UUID, err error) {
	if isValidationError(err) {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("failed to compute projection",
		slog.String("group_id", groupID.String()),
		slog.Any("error", err),
	)
	httpjson.Error(w, http.StatusInternalServerError, projectionFailedMessage)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		forecast.ErrUnknownKind,
		forecast.ErrEmptyDescription,
		forecast.ErrMissingDate,
		forecast.ErrFrequencyRequired,
		forecast.ErrFrequencyForbidden,
		recurring.ErrInvalidAmount,
		recurring.ErrInvalidFrequency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
