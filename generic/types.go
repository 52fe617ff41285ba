/*
Package generic provides the core of the LostTrack case engine.

PURPOSE:
  This package contains the storage-agnostic building blocks used by the
  lost-and-found service: record types, the append-only audit log, the
  hash-chained cash ledger, the year-scoped numbering service and the
  snapshot differ that feeds every audit entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - CaseRecord: one found item ("Fundsache") with its parties and history
  - Party: person reference (finder, owner, collector)
  - Step / Receipt / Payout: append-only sub-records of a case
  - AuditEntry: immutable "who did what when" record with a diff
  - LedgerEntry: immutable cash movement, linked by hash to its predecessor

DESIGN PRINCIPLES:
  1. Append-only: audit entries and ledger entries are never edited
  2. Integer money: amounts are minor units (Rappen/cents), never floats
  3. Snapshots over references: ledger text is copied at posting time
  4. Normalize at ingress: structs are fully populated after Normalize()

SEE ALSO:
  - store.go: Key-value persistence contract
  - hashchain.go: Ledger digest and verification
  - diff.go: Before/after change tracking
  - counter.go: Case, receipt and ledger numbering
*/
package generic

import (
	"strings"
	"time"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusOpen        Status = "OPEN"
	StatusReturned    Status = "RETURNED"
	StatusDisposed    Status = "DISPOSED"
	StatusTransferred Status = "TRANSFERRED"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusOpen, StatusReturned, StatusDisposed, StatusTransferred}

// ParseStatus uppercases s and checks it against the known statuses.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return st, false
}

// =============================================================================
// PARTIES
// =============================================================================

// Party is a person reference with contact and address fields.
// RewardRequested is only meaningful for the finder.
type Party struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Street          string `json:"street"`
	StreetNo        string `json:"streetNo"`
	Zip             string `json:"zip"`
	City            string `json:"city"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	RewardRequested bool   `json:"rewardRequested,omitempty"`

	// Legacy shapes written by older clients. Folded into the fields
	// above by NormalizeParty and never written back.
	Name     string `json:"name,omitempty"`
	Address  string `json:"address,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// DisplayName returns "First Last", or "" when both are empty.
func (p *Party) DisplayName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(nonEmpty(p.FirstName, p.LastName), " "))
}

// AddressLine returns "Street No, Zip City".
func (p *Party) AddressLine() string {
	if p == nil {
		return ""
	}
	line1 := strings.Join(nonEmpty(p.Street, p.StreetNo), " ")
	line2 := strings.Join(nonEmpty(p.Zip, p.City), " ")
	return strings.Join(nonEmpty(line1, line2), ", ")
}

// HasData reports whether any contact or address field is set.
func (p *Party) HasData() bool {
	if p == nil {
		return false
	}
	return len(nonEmpty(p.FirstName, p.LastName, p.Street, p.StreetNo, p.Zip, p.City, p.Phone, p.Email)) > 0
}

// Clone returns a copy of p (nil-safe).
func (p *Party) Clone() *Party {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// CASE RECORD
// =============================================================================

type CaseWorker struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type FoundAt struct {
	Date     string `json:"date"`     // DD.MM.YYYY
	Time     string `json:"time"`     // HH.MM
	Location string `json:"location"` // free text
}

type Item struct {
	PredefinedKey string `json:"predefinedKey"`
	ManualLabel   string `json:"manualLabel"`
	Category      string `json:"category"`
	Brand         string `json:"brand"`
	Type          string `json:"type"`
	Color         string `json:"color"`
	SerialNumber  string `json:"serialNumber"`
	Description   string `json:"description"`
	Condition     string `json:"condition"`
}

// Label returns the manual label, falling back to the predefined key.
func (it Item) Label() string {
	if it.ManualLabel != "" {
		return it.ManualLabel
	}
	return it.PredefinedKey
}

// Step is one investigation step. Steps are appended or deleted, never edited.
type Step struct {
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
	Who  string    `json:"who"`
	What string    `json:"what"`
}

type ReceiptType string

const (
	ReceiptFund   ReceiptType = "FUND_RECEIPT"   // finder hands the item in
	ReceiptOwner  ReceiptType = "OWNER_RECEIPT"  // owner/collector takes the item
	ReceiptFinder ReceiptType = "FINDER_RECEIPT" // finder takes the item or the reward
)

// ReceiptCashbook links a receipt to the ledger entry that financed it.
type ReceiptCashbook struct {
	LedgerID    string    `json:"ledgerId"`
	Type        EntryType `json:"type"`
	AmountCents int64     `json:"amountCents"`
}

type Receipt struct {
	ID          string           `json:"id"` // Q-YYYY-NNNN
	Type        ReceiptType      `json:"type"`
	Recipient   string           `json:"recipient"`
	AmountCents *int64           `json:"amountCents"`
	Notes       string           `json:"notes"`
	PrintedAt   time.Time        `json:"printedAt"`
	PrintedBy   string           `json:"printedBy"`
	Cashbook    *ReceiptCashbook `json:"cashbook,omitempty"`
}

// Payout is the finder reward lock. Once Paid is true no further payout
// may be posted for the case.
type Payout struct {
	Paid        bool      `json:"paid"`
	PaidAt      time.Time `json:"paidAt"`
	AmountCents int64     `json:"amountCents"`
	LedgerID    string    `json:"ledgerId"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
}

// CaseRecord is the aggregate root ("Fundsache").
type CaseRecord struct {
	ID         string     `json:"id"`
	CaseNumber string     `json:"fundNo"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Status     Status     `json:"status"`
	CaseWorker CaseWorker `json:"caseWorker"`
	FoundAt    FoundAt    `json:"foundAt"`
	Item       Item       `json:"item"`
	Notes      string     `json:"notes"`

	Finder                *Party `json:"finder"`
	Owner                 *Party `json:"owner"`
	Collector             *Party `json:"collector"`
	CollectorSameAsFinder bool   `json:"collectorSameAsFinder"`

	InvestigationSteps []Step    `json:"investigationSteps"`
	Receipts           []Receipt `json:"receipts"`

	FinderRewardPayout *Payout `json:"finderRewardPayout"`
}

// RewardPaid reports whether the finder reward lock is set.
func (r *CaseRecord) RewardPaid() bool {
	return r != nil && r.FinderRewardPayout != nil && r.FinderRewardPayout.Paid
}

// Clone returns a deep copy of r.
func (r *CaseRecord) Clone() *CaseRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Finder = r.Finder.Clone()
	c.Owner = r.Owner.Clone()
	c.Collector = r.Collector.Clone()
	if r.InvestigationSteps != nil {
		c.InvestigationSteps = append([]Step{}, r.InvestigationSteps...)
	}
	if r.Receipts != nil {
		c.Receipts = make([]Receipt, len(r.Receipts))
		for i, rc := range r.Receipts {
			if rc.AmountCents != nil {
				v := *rc.AmountCents
				rc.AmountCents = &v
			}
			if rc.Cashbook != nil {
				cb := *rc.Cashbook
				rc.Cashbook = &cb
			}
			c.Receipts[i] = rc
		}
	}
	if r.FinderRewardPayout != nil {
		p := *r.FinderRewardPayout
		c.FinderRewardPayout = &p
	}
	return &c
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditType string

const (
	AuditDraftSaved       AuditType = "DRAFT_SAVED"
	AuditItemCommitted    AuditType = "ITEM_COMMITTED"
	AuditItemUpdated      AuditType = "ITEM_UPDATED"
	AuditStatusChanged    AuditType = "STATUS_CHANGED"
	AuditStepAdded        AuditType = "INVESTIGATION_STEP_ADDED"
	AuditStepAddedAuto    AuditType = "INVESTIGATION_STEP_ADDED_AUTO"
	AuditStepDeleted      AuditType = "INVESTIGATION_STEP_DELETED"
	AuditFinderUpdated    AuditType = "FINDER_UPDATED"
	AuditOwnerUpdated     AuditType = "OWNER_UPDATED"
	AuditCollectorUpdated AuditType = "COLLECTOR_UPDATED"
	AuditReceiptPrinted   AuditType = "RECEIPT_PRINTED"
	AuditCashbookPosted   AuditType = "CASHBOOK_POSTED"
	AuditFinderRewardPaid AuditType = "FINDER_REWARD_PAID"
	AuditOwnerRewardIn    AuditType = "OWNER_REWARD_RECEIVED"
)

// AuditEntry is immutable once appended.
type AuditEntry struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Type     AuditType `json:"type"`
	FundNo   string    `json:"fundNo"`
	RecordID string    `json:"recordId"`
	Actor    string    `json:"actor"`
	Snapshot any       `json:"snapshot"`
	Diff     []Change  `json:"diff"`
}

// =============================================================================
// CASH LEDGER
// =============================================================================

type EntryType string

const (
	EntryIn  EntryType = "IN"
	EntryOut EntryType = "OUT"
)

// LedgerEntry is one cash movement. Label, Description and FundNo are
// copied from the case at posting time.
type LedgerEntry struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	Type        EntryType  `json:"type"`
	AmountCents int64      `json:"amountCents"`
	FundID      string     `json:"fundId"`
	FundNo      string     `json:"fundNo"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	CaseWorker  CaseWorker `json:"caseWorker"`
	Reason      string     `json:"reason"`
	Actor       string     `json:"actor"`
	PrevHash    string     `json:"prevHash"`
	Hash        string     `json:"hash"`
}
