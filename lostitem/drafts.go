package lostitem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/validation"
)

// =============================================================================
// DRAFTS - Incomplete cases kept apart from committed records
// =============================================================================

// SaveDraft stores input as a draft. Drafts only get format checks, so
// saving never fails for missing fields; format problems are returned as
// field errors next to the stored draft.
func (s *Service) SaveDraft(ctx context.Context, input *generic.CaseRecord) (*generic.CaseRecord, map[string]string, error) {
	id := ""
	if input != nil {
		id = strings.TrimSpace(input.ID)
	}
	if id == "" {
		id = uuid.NewString()
	}

	var (
		out  *generic.CaseRecord
		errs map[string]string
	)
	err := s.run(ctx, "saveDraft", func(tx *txn) error {
		res := validation.Validate(input, validation.ModeDraft)
		draft := res.Value
		draft.ID = id
		errs = res.Errors

		drafts, err := loadCases(ctx, tx, generic.KeyDrafts, generic.LoadList[generic.CaseRecord])
		if err != nil {
			return err
		}
		previous, err := findRecord(drafts, id)
		if err != nil && !generic.IsNotFound(err) {
			return err
		}
		now := s.now()
		draft.CreatedAt = now
		if previous != nil && !previous.CreatedAt.IsZero() {
			draft.CreatedAt = previous.CreatedAt
		}
		draft.UpdatedAt = now

		if err := generic.SetJSON(ctx, tx, generic.KeyDrafts, upsert(drafts, draft)); err != nil {
			return err
		}
		if err := tx.auditChange(generic.AuditDraftSaved, "", previous, draft, nil); err != nil {
			return err
		}
		out = draft
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return out, errs, nil
}

// ListDrafts returns all drafts, most recently saved first.
func (s *Service) ListDrafts(ctx context.Context) ([]generic.CaseRecord, error) {
	drafts, err := loadCases(ctx, s.store, generic.KeyDrafts, generic.LoadListLenient[generic.CaseRecord])
	if err != nil {
		return nil, err
	}
	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})
	return drafts, nil
}

func (s *Service) GetDraft(ctx context.Context, id string) (*generic.CaseRecord, error) {
	drafts, err := loadCases(ctx, s.store, generic.KeyDrafts, generic.LoadListLenient[generic.CaseRecord])
	if err != nil {
		return nil, err
	}
	d, err := findRecord(drafts, id)
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	return d, nil
}

// DeleteDraft removes a draft. Drafts are not part of the audit trail, so
// nothing is logged beyond the operation itself.
func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	return s.run(ctx, "deleteDraft", func(tx *txn) error {
		drafts, err := loadCases(ctx, tx, generic.KeyDrafts, generic.LoadList[generic.CaseRecord])
		if err != nil {
			return err
		}
		if _, err := findRecord(drafts, id); err != nil {
			return fmt.Errorf("draft: %w", err)
		}
		return removeDraft(ctx, tx, id)
	})
}

// removeDraft drops the draft with id if there is one. A corrupt drafts
// collection is left as it is and does not block the commit.
func removeDraft(ctx context.Context, st generic.Store, id string) error {
	drafts, err := loadCases(ctx, st, generic.KeyDrafts, generic.LoadList[generic.CaseRecord])
	if errors.Is(err, generic.ErrCorruptCollection) {
		logrus.WithError(err).Warn("drafts unreadable, draft not removed")
		return nil
	}
	if err != nil {
		return err
	}
	kept := make([]generic.CaseRecord, 0, len(drafts))
	for _, d := range drafts {
		if d.ID != strings.TrimSpace(id) {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(drafts) {
		return nil
	}
	return generic.SetJSON(ctx, st, generic.KeyDrafts, kept)
}
