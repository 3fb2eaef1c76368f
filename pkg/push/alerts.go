package push

import (
	"context"
	"time"
)

// BalanceAlert is the projection alert delivered to group members
type BalanceAlert struct {
	GroupID      string
	Kind         string
	Date         time.Time
	Message      string
	BalanceLabel string
}

// NotifyBalanceAlert sends the alert to every token of the group
func (s *Service) NotifyBalanceAlert(ctx context.Context, tokens []string, alert BalanceAlert) (*BatchResult, error) {
	messages := make([]*Message, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, &Message{
			To:       token,
			Title:    "Heads up on your balance",
			Body:     alertBody(alert),
			Priority: "high",
			Data: map[string]any{
				"type":     "balance_alert",
				"kind":     alert.Kind,
				"date":     alert.Date.Format(time.DateOnly),
				"group_id": alert.GroupID,
			},
		})
	}
	return s.SendBatch(ctx, messages)
}

func alertBody(a BalanceAlert) string {
	body := a.Message + " on " + a.Date.Format("Jan 2")
	if a.BalanceLabel != "" {
		body += " (" + a.BalanceLabel + ")"
	}
	return body
}
