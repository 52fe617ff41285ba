package lostitem

import (
	"context"
	"strings"

	"github.com/Streuli81/LostTrack/generic"
)

// =============================================================================
// PARTIES - Finder, owner and collector
// =============================================================================
//
// Each update replaces the party wholesale and writes two audit entries:
// the structured <PARTY>_UPDATED entry with the diff, and
// INVESTIGATION_STEP_ADDED_AUTO for the narrative step that is appended to
// the case in the same write.

// PartyDetail is the audit detail of party updates.
type PartyDetail struct {
	Party                 *generic.Party `json:"party"`
	CollectorSameAsFinder bool           `json:"collectorSameAsFinder,omitempty"`
}

// UpdateFinder replaces the finder of case id. A nil or empty party removes
// it. A collector marked "same as finder" follows the new finder.
func (s *Service) UpdateFinder(ctx context.Context, id string, p *generic.Party) (*generic.CaseRecord, error) {
	return s.updateParty(ctx, "updateFinder", id, generic.AuditFinderUpdated, func(rec *generic.CaseRecord) (string, any, error) {
		rec.Finder = partyOrNil(p)
		if rec.CollectorSameAsFinder {
			rec.Collector = collectorFrom(rec.Finder)
			if rec.Collector == nil {
				rec.CollectorSameAsFinder = false
			}
		}
		return summary("Finder", rec.Finder), PartyDetail{Party: rec.Finder}, nil
	})
}

// UpdateOwner replaces the owner of case id. A nil or empty party removes it.
func (s *Service) UpdateOwner(ctx context.Context, id string, p *generic.Party) (*generic.CaseRecord, error) {
	return s.updateParty(ctx, "updateOwner", id, generic.AuditOwnerUpdated, func(rec *generic.CaseRecord) (string, any, error) {
		rec.Owner = partyOrNil(p)
		return summary("Eigentümer", rec.Owner), PartyDetail{Party: rec.Owner}, nil
	})
}

// UpdateCollector replaces the collector of case id. With sameAsFinder the
// collector is copied from the current finder (ErrMissingParty without
// one) and the flag is stored on the case.
func (s *Service) UpdateCollector(ctx context.Context, id string, p *generic.Party, sameAsFinder bool) (*generic.CaseRecord, error) {
	return s.updateParty(ctx, "updateCollector", id, generic.AuditCollectorUpdated, func(rec *generic.CaseRecord) (string, any, error) {
		if sameAsFinder {
			if !rec.Finder.HasData() {
				return "", nil, generic.ErrMissingParty
			}
			rec.Collector = collectorFrom(rec.Finder)
			rec.CollectorSameAsFinder = true
			return "Abholer = Finder gesetzt", PartyDetail{Party: rec.Collector, CollectorSameAsFinder: true}, nil
		}
		rec.CollectorSameAsFinder = false
		rec.Collector = partyOrNil(p)
		if rec.Collector == nil {
			return "Abholer entfernt", PartyDetail{}, nil
		}
		return summary("Abholer", rec.Collector), PartyDetail{Party: rec.Collector}, nil
	})
}

func (s *Service) updateParty(ctx context.Context, op, id string, typ generic.AuditType,
	change func(rec *generic.CaseRecord) (string, any, error)) (*generic.CaseRecord, error) {

	var out *generic.CaseRecord
	err := s.run(ctx, op, func(tx *txn) error {
		records, current, err := tx.load(id)
		if err != nil {
			return err
		}
		next := current.Clone()
		text, detail, err := change(next)
		if err != nil {
			return err
		}
		step := s.autoStep(ctx, text)
		next.InvestigationSteps = append(next.InvestigationSteps, step)

		saved, err := tx.save(records, next)
		if err != nil {
			return err
		}
		if err := tx.auditChange(typ, "", current, saved, detail); err != nil {
			return err
		}
		if err := tx.audit(generic.AuditEntry{
			Type:     generic.AuditStepAddedAuto,
			FundNo:   saved.CaseNumber,
			RecordID: saved.ID,
			Actor:    step.Who,
			Snapshot: generic.AuditSnapshot{Detail: StepDetail{StepID: step.ID, Step: &step}},
		}); err != nil {
			return err
		}
		out = saved
		return nil
	})
	return out, err
}

// partyOrNil normalizes p and drops it when no field is filled in.
func partyOrNil(p *generic.Party) *generic.Party {
	n := generic.NormalizeParty(p)
	if !n.HasData() {
		return nil
	}
	return n
}

// collectorFrom copies the finder's person data; the reward flag stays
// with the finder.
func collectorFrom(finder *generic.Party) *generic.Party {
	if !finder.HasData() {
		return nil
	}
	c := finder.Clone()
	c.RewardRequested = false
	return c
}

// summary renders "<Role> erfasst/aktualisiert (Name: …, Tel: …)".
func summary(role string, p *generic.Party) string {
	if p == nil {
		return role + " entfernt"
	}
	var parts []string
	if name := p.DisplayName(); name != "" {
		parts = append(parts, "Name: "+name)
	}
	if p.Phone != "" {
		parts = append(parts, "Tel: "+p.Phone)
	}
	if p.Email != "" {
		parts = append(parts, "E-Mail: "+p.Email)
	}
	text := role + " erfasst/aktualisiert"
	if len(parts) > 0 {
		text += " (" + strings.Join(parts, ", ") + ")"
	}
	return text
}
