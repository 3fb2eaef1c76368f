// Package push delivers Expo push notifications to group members.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// ExpoPushURL is the Expo Push API endpoint
	ExpoPushURL = "https://exp.host/--/api/v2/push/send"

	// RequestTimeout for push requests
	RequestTimeout = 10 * time.Second

	// maxBatchSize is the Expo limit of messages per request
	maxBatchSize = 100
)

// Message represents an Expo push notification message
type Message struct {
	To       string         `json:"to"`
	Title    string         `json:"title,omitempty"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
	Sound    string         `json:"sound,omitempty"`
	Priority string         `json:"priority,omitempty"` // "default", "normal", "high"
}

// Response represents the Expo Push API response
type Response struct {
	Data []TicketResponse `json:"data"`
}

// TicketResponse represents a single push ticket
type TicketResponse struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

// BatchResult counts accepted and rejected tickets of a batch
type BatchResult struct {
	Sent     int
	Rejected int
	Skipped  int
}

// Service handles Expo Push notifications
type Service struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

// NewService creates a new push notification service
func NewService(logger *slog.Logger) *Service {
	return &Service{
		client:   &http.Client{Timeout: RequestTimeout},
		endpoint: ExpoPushURL,
		logger:   logger,
	}
}

// WithEndpoint points the service at another push gateway
func (s *Service) WithEndpoint(url string) *Service {
	s.endpoint = url
	return s
}

// SendBatch sends messages in chunks of at most 100, skipping invalid tokens
func (s *Service) SendBatch(ctx context.Context, messages []*Message) (*BatchResult, error) {
	result := &BatchResult{}

	valid := make([]*Message, 0, len(messages))
	for _, msg := range messages {
		if !IsValidToken(msg.To) {
			result.Skipped++
			continue
		}
		if msg.Sound == "" {
			msg.Sound = "default"
		}
		valid = append(valid, msg)
	}

	for start := 0; start < len(valid); start += maxBatchSize {
		chunk := valid[start:min(start+maxBatchSize, len(valid))]
		tickets, err := s.post(ctx, chunk)
		if err != nil {
			return result, err
		}
		for i, ticket := range tickets {
			if ticket.Status == "error" {
				result.Rejected++
				reason := ticket.Message
				if ticket.Details.Error != "" {
					reason = ticket.Details.Error
				}
				token := ""
				if i < len(chunk) {
					token = redact(chunk[i].To)
				}
				s.logger.Warn("push notification rejected",
					slog.String("token", token),
					slog.String("error", reason),
				)
				continue
			}
			result.Sent++
		}
	}

	s.logger.Info("push batch sent",
		slog.Int("sent", result.Sent),
		slog.Int("rejected", result.Rejected),
		slog.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Service) post(ctx context.Context, messages []*Message) ([]TicketResponse, error) {
	payload, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send push notifications: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("push batch failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("push batch failed with status: %d", resp.StatusCode)
	}

	var pushResp Response
	if err := json.Unmarshal(body, &pushResp); err != nil {
		return nil, fmt.Errorf("failed to parse push response: %w", err)
	}
	return pushResp.Data, nil
}

// IsValidToken checks if a token is a valid Expo push token
func IsValidToken(token string) bool {
	return strings.HasSuffix(token, "]") &&
		(strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken["))
}

func redact(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
