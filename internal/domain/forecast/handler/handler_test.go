package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	forecastservice "github.com/FACorreiaa/couple-finance/internal/domain/forecast/service"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/pkg/interceptors"
)

var today = recurring.Date(2026, time.October, 15)

// stubService projects a fixed rule set with a real projector
type stubService struct {
	projector *forecast.Projector
	err       error
	lastHyp   forecast.Hypothetical
	lastGroup uuid.UUID
}

func (s *stubService) GetProjection(ctx context.Context, groupID uuid.UUID, hyp forecast.Hypothetical) (*forecast.Projection, error) {
	s.lastGroup = groupID
	s.lastHyp = hyp
	if s.err != nil {
		return nil, s.err
	}
	day := 15
	accounts := []recurring.Account{{ID: uuid.New(), CurrentBalanceMinor: 100000, IsActive: true}}
	rules := []recurring.Rule{{
		ID:          uuid.New(),
		Description: "Rent",
		AmountMinor: 150000,
		Direction:   recurring.DirectionExpense,
		Frequency:   recurring.FrequencyMonthly,
		DayOfMonth:  &day,
		StartDate:   recurring.Date(2026, time.October, 1),
		IsActive:    true,
	}}
	return s.projector.Project(accounts, rules, hyp, today), nil
}

func (s *stubService) Options() forecast.Options {
	return s.projector.Options()
}

func newRouter(svc ProjectionService) http.Handler {
	h := NewForecastHandler(svc, Settings{Timezone: "UTC-3", PartnerSyncInterval: time.Minute}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/v1/forecast", func(r chi.Router) {
		r.Use(interceptors.RequireGroup)
		h.Routes(r)
	})
	return r
}

func do(t *testing.T, router http.Handler, method, target string, body string, groupID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if groupID != uuid.Nil {
		req.Header.Set(interceptors.GroupIDHeader, groupID.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// POST /v1/forecast/projections
// ============================================================================

func TestCreateProjection_NoHypothetical(t *testing.T) {
	svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
	groupID := uuid.New()

	rec := do(t, newRouter(svc), http.MethodPost, "/v1/forecast/projections", "", groupID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp projectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// money.Money does not decode; check the flat fields
	assert.Equal(t, "2026-10-15", resp.StartDate)
	assert.Len(t, resp.Days, 31)
	assert.Equal(t, int64(-50000), resp.Days[0].BalanceMinor)
	require.Len(t, resp.Days[0].Transactions, 1)
	assert.True(t, resp.Days[0].Transactions[0].IsRecurring)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, forecast.AlertNegative, resp.Alerts[0].Kind)
	assert.Equal(t, "balance will go negative", resp.Alerts[0].Message)

	assert.Nil(t, svc.lastHyp)
	assert.Equal(t, groupID, svc.lastGroup)
}

func TestCreateProjection_WithHypothetical(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind forecast.HypotheticalKind
		wantAmt  int64
	}{
		{
			name:     "one-time numeric amount",
			body:     `{"kind":"one-time","description":"Phone","amount":300,"date":"2026-10-25"}`,
			wantKind: forecast.KindOneTime,
			wantAmt:  30000,
		},
		{
			name:     "recurring string amount",
			body:     `{"kind":"recurring","description":"Gym","amount":"80.50","date":"2026-10-20","frequency":"weekly"}`,
			wantKind: forecast.KindRecurring,
			wantAmt:  8050,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
			rec := do(t, newRouter(svc), http.MethodPost, "/v1/forecast/projections", tt.body, uuid.New())
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			require.NotNil(t, svc.lastHyp)
			assert.Equal(t, tt.wantKind, svc.lastHyp.Kind())

			var resp projectionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			var simulated int64
			for _, d := range resp.Days {
				for _, tx := range d.Transactions {
					if tx.IsSimulation {
						assert.Equal(t, tt.wantAmt, tx.AmountMinor)
						simulated++
					}
				}
			}
			assert.Positive(t, simulated)
		})
	}
}

func TestCreateProjection_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"kind":`},
		{"unknown field", `{"kind":"one-time","foo":1}`},
		{"unknown kind", `{"kind":"sometimes","description":"x","amount":1,"date":"2026-10-20"}`},
		{"missing date", `{"kind":"one-time","description":"x","amount":1}`},
		{"bad date", `{"kind":"one-time","description":"x","amount":1,"date":"20/10/2026"}`},
		{"zero amount", `{"kind":"one-time","description":"x","amount":0,"date":"2026-10-20"}`},
		{"bad amount", `{"kind":"one-time","description":"x","amount":"lots","date":"2026-10-20"}`},
		{"amount beyond int64 cents", `{"kind":"one-time","description":"x","amount":"184467440737095516.17","date":"2026-10-20"}`},
		{"exponent amount overflows", `{"kind":"one-time","description":"x","amount":1e20,"date":"2026-10-20"}`},
		{"frequency on one-time", `{"kind":"one-time","description":"x","amount":1,"date":"2026-10-20","frequency":"weekly"}`},
		{"recurring without frequency", `{"kind":"recurring","description":"x","amount":1,"date":"2026-10-20"}`},
		{"empty description", `{"kind":"one-time","description":" ","amount":1,"date":"2026-10-20"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
			rec := do(t, newRouter(svc), http.MethodPost, "/v1/forecast/projections", tt.body, uuid.New())
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateProjection_MissingGroup(t *testing.T) {
	svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
	rec := do(t, newRouter(svc), http.MethodPost, "/v1/forecast/projections", "", uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateProjection_UpstreamFailure(t *testing.T) {
	svc := &stubService{
		projector: forecast.NewProjector(forecast.DefaultOptions()),
		err:       fmt.Errorf("%w: failed to load accounts: %w", forecastservice.ErrSourcesUnavailable, errors.New("connection refused")),
	}
	rec := do(t, newRouter(svc), http.MethodPost, "/v1/forecast/projections", "", uuid.New())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"couldn't compute projection"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

// ============================================================================
// GET /v1/forecast/projections/export
// ============================================================================

func TestExportProjection_CSV(t *testing.T) {
	svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
	rec := do(t, newRouter(svc), http.MethodGet, "/v1/forecast/projections/export?format=csv", "", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "projection-2026-10-15.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 32)
	assert.True(t, strings.HasPrefix(lines[1], "2026-10-15,-500.00,-50000"))
}

func TestExportProjection_XLSXWithWhatIf(t *testing.T) {
	svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
	target := "/v1/forecast/projections/export?format=xlsx&kind=one-time&description=Phone&amount=300&date=2026-10-17"
	rec := do(t, newRouter(svc), http.MethodGet, target, "", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, svc.lastHyp)
	assert.Equal(t, forecast.KindOneTime, svc.lastHyp.Kind())

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Projection")
	require.NoError(t, err)
	assert.Len(t, rows, 32)
}

func TestExportProjection_BadFormat(t *testing.T) {
	svc := &stubService{projector: forecast.NewProjector(forecast.DefaultOptions())}
	rec := do(t, newRouter(svc), http.MethodGet, "/v1/forecast/projections/export?format=pdf", "", uuid.New())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============================================================================
// GET /v1/forecast/settings
// ============================================================================

func TestGetSettings(t *testing.T) {
	opts := forecast.DefaultOptions()
	opts.LowBalanceThresholdMinor = 25000
	svc := &stubService{projector: forecast.NewProjector(opts)}

	rec := do(t, newRouter(svc), http.MethodGet, "/v1/forecast/settings", "", uuid.New())
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(30), body["horizon_days"])
	assert.Equal(t, "BRL", body["currency"])
	assert.Equal(t, "UTC-3", body["timezone"])
	assert.Equal(t, float64(60), body["partner_sync_interval_seconds"])

	threshold, ok := body["low_balance_threshold"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(25000), threshold["amount_minor"])
}
