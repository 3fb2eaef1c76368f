package handler

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
	"github.com/FACorreiaa/couple-finance/pkg/money"
)

// amountInput accepts either a JSON number or a string such as "1.500,50"
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountInput(n.String())
	return nil
}

// hypotheticalRequest is the optional what-if body of a projection request
type hypotheticalRequest struct {
	Kind        string      `json:"kind"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
	Date        string      `json:"date"`
	Frequency   string      `json:"frequency,omitempty"`
}

type transactionResponse struct {
	RuleID            *uuid.UUID          `json:"rule_id,omitempty"`
	Description       string              `json:"description"`
	AmountMinor       int64               `json:"amount_minor"`
	SignedAmountMinor int64               `json:"signed_amount_minor"`
	Direction         recurring.Direction `json:"direction"`
	IsRecurring       bool                `json:"is_recurring"`
	IsSimulation      bool                `json:"is_simulation"`
}

type dayResponse struct {
	Date           string                `json:"date"`
	BalanceMinor   int64                 `json:"balance_minor"`
	Balance        *money.Money          `json:"balance"`
	NetChangeMinor int64                 `json:"net_change_minor"`
	IsNegative     bool                  `json:"is_negative"`
	Transactions   []transactionResponse `json:"transactions"`
}

type alertResponse struct {
	Date         string             `json:"date"`
	Kind         forecast.AlertKind `json:"kind"`
	Message      string             `json:"message"`
	BalanceMinor int64              `json:"balance_minor"`
}

type projectionResponse struct {
	StartDate           string          `json:"start_date"`
	Currency            string          `json:"currency"`
	StartingBalance     *money.Money    `json:"starting_balance"`
	EndingBalance       *money.Money    `json:"ending_balance"`
	LowBalanceThreshold *money.Money    `json:"low_balance_threshold"`
	LowestBalanceDate   string          `json:"lowest_balance_date,omitempty"`
	LowestBalanceMinor  int64           `json:"lowest_balance_minor"`
	Days                []dayResponse   `json:"days"`
	Alerts              []alertResponse `json:"alerts"`
}

type settingsResponse struct {
	HorizonDays                int          `json:"horizon_days"`
	LowBalanceThreshold        *money.Money `json:"low_balance_threshold"`
	Currency                   string       `json:"currency"`
	Timezone                   string       `json:"timezone"`
	PartnerSyncIntervalSeconds int          `json:"partner_sync_interval_seconds"`
}

func toProjectionResponse(p *forecast.Projection) projectionResponse {
	resp := projectionResponse{
		StartDate:           p.StartDate.Format(time.DateOnly),
		Currency:            p.CurrencyCode,
		StartingBalance:     money.New(p.StartingBalanceMinor, p.CurrencyCode),
		EndingBalance:       money.New(p.EndingBalanceMinor(), p.CurrencyCode),
		LowBalanceThreshold: money.New(p.LowBalanceThresholdMinor, p.CurrencyCode),
		Days:                make([]dayResponse, 0, len(p.Days)),
		Alerts:              make([]alertResponse, 0, len(p.Alerts)),
	}

	if lowest, ok := p.LowestPoint(); ok {
		resp.LowestBalanceDate = lowest.Date.Format(time.DateOnly)
		resp.LowestBalanceMinor = lowest.BalanceMinor
	}

	for _, d := range p.Days {
		day := dayResponse{
			Date:           d.Date.Format(time.DateOnly),
			BalanceMinor:   d.BalanceMinor,
			Balance:        money.New(d.BalanceMinor, p.CurrencyCode),
			NetChangeMinor: d.NetChange(),
			IsNegative:     d.IsNegative,
			Transactions:   make([]transactionResponse, 0, len(d.Transactions)),
		}
		for _, tx := range d.Transactions {
			day.Transactions = append(day.Transactions, transactionResponse{
				RuleID:            tx.RuleID,
				Description:       tx.Description,
				AmountMinor:       tx.AmountMinor,
				SignedAmountMinor: tx.SignedAmount(),
				Direction:         tx.Direction,
				IsRecurring:       tx.IsRecurring,
				IsSimulation:      tx.IsSimulation,
			})
		}
		resp.Days = append(resp.Days, day)
	}

	for _, a := range p.Alerts {
		resp.Alerts = append(resp.Alerts, alertResponse{
			Date:         a.Date.Format(time.DateOnly),
			Kind:         a.Kind,
			Message:      a.Message,
			BalanceMinor: a.BalanceMinor,
		})
	}
	return resp
}
