package lostitem

import (
	"time"

	"github.com/Streuli81/LostTrack/generic"
)

// Snapshot is the slim view of a case stored in audit entries. Item is
// reduced to the fields that identify it; free-form item details and
// notes are left out to keep the log small.
type Snapshot struct {
	ID                    string             `json:"id"`
	FundNo                string             `json:"fundNo"`
	Status                generic.Status     `json:"status"`
	CreatedAt             string             `json:"createdAt"`
	UpdatedAt             string             `json:"updatedAt"`
	CaseWorker            generic.CaseWorker `json:"caseWorker"`
	FoundAt               generic.FoundAt    `json:"foundAt"`
	Item                  SnapshotItem       `json:"item"`
	Finder                *generic.Party     `json:"finder"`
	Owner                 *generic.Party     `json:"owner"`
	Collector             *generic.Party     `json:"collector"`
	CollectorSameAsFinder bool               `json:"collectorSameAsFinder"`
	InvestigationSteps    []generic.Step     `json:"investigationSteps"`
	Receipts              []generic.Receipt  `json:"receipts"`
	FinderRewardPayout    *generic.Payout    `json:"finderRewardPayout"`
}

type SnapshotItem struct {
	PredefinedKey string `json:"predefinedKey"`
	ManualLabel   string `json:"manualLabel"`
	Description   string `json:"description"`
}

// slim returns nil for nil so a new record diffs against null.
func slim(r *generic.CaseRecord) *Snapshot {
	if r == nil {
		return nil
	}
	c := r.Clone()
	steps := c.InvestigationSteps
	if steps == nil {
		steps = []generic.Step{}
	}
	receipts := c.Receipts
	if receipts == nil {
		receipts = []generic.Receipt{}
	}
	return &Snapshot{
		ID:         c.ID,
		FundNo:     c.CaseNumber,
		Status:     c.Status,
		CreatedAt:  stamp(c.CreatedAt),
		UpdatedAt:  stamp(c.UpdatedAt),
		CaseWorker: c.CaseWorker,
		FoundAt:    c.FoundAt,
		Item: SnapshotItem{
			PredefinedKey: c.Item.PredefinedKey,
			ManualLabel:   c.Item.ManualLabel,
			Description:   c.Item.Description,
		},
		Finder:                c.Finder,
		Owner:                 c.Owner,
		Collector:             c.Collector,
		CollectorSameAsFinder: c.CollectorSameAsFinder,
		InvestigationSteps:    steps,
		Receipts:              receipts,
		FinderRewardPayout:    c.FinderRewardPayout,
	}
}

// stamp renders instants fixed-width so equal times diff as equal strings.
func stamp(t time.Time) string {
	return generic.FormatInstant(t)
}
