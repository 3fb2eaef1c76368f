package push

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsValidToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]", true},
		{"ExpoPushToken[yyyyyyyyyyyyyy]", true},
		{"ExponentPushToken[", false},
		{"fcm:abcdef", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidToken(tt.token), tt.token)
	}
}

func TestNotifyBalanceAlert(t *testing.T) {
	var received []Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(Response{Data: []TicketResponse{
			{Status: "ok", ID: "1"},
			{Status: "error", Message: "DeviceNotRegistered"},
		}})
	}))
	defer srv.Close()

	svc := NewService(discardLogger()).WithEndpoint(srv.URL)
	res, err := svc.NotifyBalanceAlert(context.Background(),
		[]string{"ExponentPushToken[partner-one]", "ExponentPushToken[partner-two]", "not-a-token"},
		BalanceAlert{
			GroupID:      "g1",
			Kind:         "negative",
			Date:         time.Date(2026, time.October, 30, 0, 0, 0, 0, time.UTC),
			Message:      "balance will go negative",
			BalanceLabel: "R$-120,00",
		})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, 1, res.Skipped)

	require.Len(t, received, 2)
	assert.Equal(t, "balance will go negative on Oct 30 (R$-120,00)", received[0].Body)
	assert.Equal(t, "default", received[0].Sound)
	assert.Equal(t, "negative", received[0].Data["kind"])
	assert.Equal(t, "2026-10-30", received[0].Data["date"])
}

func TestSendBatch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := NewService(discardLogger()).WithEndpoint(srv.URL)
	_, err := svc.SendBatch(context.Background(), []*Message{{To: "ExponentPushToken[abc]", Body: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendBatch_NothingValid(t *testing.T) {
	svc := NewService(discardLogger()).WithEndpoint("http://127.0.0.1:0")
	res, err := svc.SendBatch(context.Background(), []*Message{{To: "bogus"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Sent)
}
