package lostitem

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Streuli81/LostTrack/generic"
)

// StepInput is a new investigation step. An empty At means now.
type StepInput struct {
	At   string `json:"at"`
	Who  string `json:"who"`
	What string `json:"what"`
}

// StepDetail is the audit detail of step additions and deletions.
type StepDetail struct {
	StepID string        `json:"stepId"`
	Step   *generic.Step `json:"step,omitempty"`
}

// AddInvestigationStep appends a step to case id.
func (s *Service) AddInvestigationStep(ctx context.Context, id string, in StepInput) (*generic.CaseRecord, generic.Step, error) {
	var (
		out  *generic.CaseRecord
		step generic.Step
	)
	err := s.run(ctx, "addInvestigationStep", func(tx *txn) error {
		who, what := strings.TrimSpace(in.Who), strings.TrimSpace(in.What)
		if who == "" {
			return fmt.Errorf("%w: who", generic.ErrEmptyField)
		}
		if what == "" {
			return fmt.Errorf("%w: what", generic.ErrEmptyField)
		}
		at := s.now()
		if strings.TrimSpace(in.At) != "" {
			t, err := generic.ParseInstant(in.At, s.loc)
			if err != nil {
				return err
			}
			at = t
		}
		step = generic.Step{ID: uuid.NewString(), At: at, Who: who, What: what}

		rec, err := tx.mutate(id, generic.AuditStepAdded, "", func(rec *generic.CaseRecord) (any, error) {
			rec.InvestigationSteps = append(rec.InvestigationSteps, step)
			return StepDetail{StepID: step.ID, Step: &step}, nil
		})
		out = rec
		return err
	})
	if err != nil {
		return nil, generic.Step{}, err
	}
	return out, step, nil
}

// DeleteInvestigationStep removes step stepID from case id. Unknown steps
// fail with ErrStepNotFound.
func (s *Service) DeleteInvestigationStep(ctx context.Context, id, stepID string) (*generic.CaseRecord, error) {
	var out *generic.CaseRecord
	err := s.run(ctx, "deleteInvestigationStep", func(tx *txn) error {
		stepID = strings.TrimSpace(stepID)
		if stepID == "" {
			return fmt.Errorf("%w: stepId", generic.ErrMissingID)
		}
		rec, err := tx.mutate(id, generic.AuditStepDeleted, "", func(rec *generic.CaseRecord) (any, error) {
			kept := make([]generic.Step, 0, len(rec.InvestigationSteps))
			var removed *generic.Step
			for i, st := range rec.InvestigationSteps {
				if st.ID == stepID {
					removed = &rec.InvestigationSteps[i]
					continue
				}
				kept = append(kept, st)
			}
			if removed == nil {
				return nil, fmt.Errorf("step %s: %w", stepID, generic.ErrStepNotFound)
			}
			detail := StepDetail{StepID: stepID, Step: removed}
			rec.InvestigationSteps = kept
			return detail, nil
		})
		out = rec
		return err
	})
	return out, err
}

// autoStep is the narrative step written next to party changes.
func (s *Service) autoStep(ctx context.Context, what string) generic.Step {
	return generic.Step{
		ID:   uuid.NewString(),
		At:   s.now(),
		Who:  generic.ResolveActor(ctx, ""),
		What: what,
	}
}
