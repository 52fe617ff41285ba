/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures that are not plain domain types. Records,
  steps, receipts, ledger and audit entries are served as the generic
  types themselves; their JSON names are the storage names, so a client
  sees exactly what is persisted.

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Wrappers returning more than one value

MONEY:
  Every amount is accepted either as integer minor units ("amountCents")
  or as a decimal string ("amount": "12.50", "CHF 12.-"). Responses always
  use amountCents.

SEE ALSO:
  - handlers.go: Uses these types
  - generic/money.go: Decimal parsing
*/
package api

import (
	"strings"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/lostitem"
)

// =============================================================================
// MONEY
// =============================================================================

// Money is an amount given as cents or as a decimal string.
type Money struct {
	AmountCents *int64 `json:"amountCents,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

// Cents resolves m. A decimal string must be positive with at most two
// decimals; cents are passed through for the service to check.
func (m Money) Cents() (int64, bool, error) {
	if m.AmountCents != nil {
		return *m.AmountCents, true, nil
	}
	if strings.TrimSpace(m.Amount) == "" {
		return 0, false, nil
	}
	c, err := generic.ParseCents(m.Amount)
	if err != nil {
		return 0, false, err
	}
	return c, true, nil
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type StatusRequest struct {
	Status string `json:"status"`
}

type CollectorRequest struct {
	Collector    *generic.Party `json:"collector"`
	SameAsFinder bool           `json:"sameAsFinder"`
}

type PostEntryRequest struct {
	Money
	Type       generic.EntryType   `json:"type"`
	CaseID     string              `json:"caseId"`
	Reason     string              `json:"reason"`
	CaseWorker *generic.CaseWorker `json:"caseWorker"`
	Actor      string              `json:"actor"`
}

type RewardRequest struct {
	Money
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

// ReceiptRequest mirrors lostitem.ReceiptInput with Money amounts.
type ReceiptRequest struct {
	Money
	Type               generic.ReceiptType `json:"type"`
	Recipient          string              `json:"recipient"`
	Notes              string              `json:"notes"`
	FinderRewardPayout *RewardRequest      `json:"finderRewardPayout,omitempty"`
	OwnerReward        *RewardRequest      `json:"ownerReward,omitempty"`
	Actor              string              `json:"actor"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type DraftResponse struct {
	Draft  *generic.CaseRecord `json:"draft"`
	Errors map[string]string   `json:"errors,omitempty"`
}

type StepResponse struct {
	Record *generic.CaseRecord `json:"record"`
	Step   generic.Step        `json:"step"`
}

type ReceiptResponse struct {
	Record  *generic.CaseRecord `json:"record"`
	Receipt generic.Receipt     `json:"receipt"`
}

type PayoutResponse struct {
	Record *generic.CaseRecord `json:"record,omitempty"`
	Entry  generic.LedgerEntry `json:"entry"`
}

type NextNumberResponse struct {
	FundNo string `json:"fundNo"`
}

// TotalsResponse adds display strings to the computed totals.
type TotalsResponse struct {
	generic.Totals
	In      string `json:"in"`
	Out     string `json:"out"`
	Balance string `json:"balance"`
}

func newTotalsResponse(t generic.Totals) TotalsResponse {
	return TotalsResponse{
		Totals:  t,
		In:      generic.FormatCents(t.InCents),
		Out:     generic.FormatCents(t.OutCents),
		Balance: generic.FormatCents(t.BalanceCents),
	}
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (r ReceiptRequest) input() (lostitem.ReceiptInput, error) {
	in := lostitem.ReceiptInput{
		Type:      r.Type,
		Recipient: r.Recipient,
		Notes:     r.Notes,
		Actor:     r.Actor,
	}
	c, ok, err := r.Cents()
	if err != nil {
		return in, err
	}
	if ok {
		in.AmountCents = &c
	}
	if in.FinderRewardPayout, err = r.FinderRewardPayout.reward(); err != nil {
		return in, err
	}
	if in.OwnerReward, err = r.OwnerReward.reward(); err != nil {
		return in, err
	}
	return in, nil
}

func (r *RewardRequest) reward() (*lostitem.RewardRequest, error) {
	if r == nil {
		return nil, nil
	}
	c, _, err := r.Cents()
	if err != nil {
		return nil, err
	}
	return &lostitem.RewardRequest{AmountCents: c, Reason: r.Reason}, nil
}
