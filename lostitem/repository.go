package lostitem

import (
	"context"
	"fmt"
	"strings"

	"github.com/Streuli81/LostTrack/generic"
)

// =============================================================================
// COLLECTION ACCESS
// =============================================================================

// loadRecords reads the committed records for a write. A corrupt
// collection fails with ErrCorruptCollection and is left untouched.
func loadRecords(ctx context.Context, st generic.Store) ([]generic.CaseRecord, error) {
	return loadCases(ctx, st, generic.KeyRecords, generic.LoadList[generic.CaseRecord])
}

// readRecords is loadRecords for read-only paths: a corrupt collection is
// logged and read as empty.
func readRecords(ctx context.Context, st generic.Store) ([]generic.CaseRecord, error) {
	return loadCases(ctx, st, generic.KeyRecords, generic.LoadListLenient[generic.CaseRecord])
}

func saveRecords(ctx context.Context, st generic.Store, records []generic.CaseRecord) error {
	return generic.SetJSON(ctx, st, generic.KeyRecords, records)
}

type listLoader func(ctx context.Context, st generic.Store, key string) ([]generic.CaseRecord, error)

// loadCases reads key with load and normalizes every record, so legacy
// party shapes never reach callers.
func loadCases(ctx context.Context, st generic.Store, key string, load listLoader) ([]generic.CaseRecord, error) {
	list, err := load(ctx, st, key)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = *generic.NormalizeRecord(&list[i])
	}
	return list, nil
}

// findRecord returns a copy of the record with id.
func findRecord(records []generic.CaseRecord, id string) (*generic.CaseRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, generic.ErrMissingID
	}
	for i := range records {
		if records[i].ID == id {
			return records[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("case %s: %w", id, generic.ErrNotFound)
}

// upsert replaces the record with rec's id in place, or prepends rec.
func upsert(records []generic.CaseRecord, rec *generic.CaseRecord) []generic.CaseRecord {
	for i := range records {
		if records[i].ID == rec.ID {
			out := append([]generic.CaseRecord{}, records...)
			out[i] = *rec
			return out
		}
	}
	return append([]generic.CaseRecord{*rec}, records...)
}

// caseNumberTaken reports whether number belongs to a record other than id.
func caseNumberTaken(records []generic.CaseRecord, id string) func(string) bool {
	return func(number string) bool {
		for _, r := range records {
			if r.CaseNumber == number && r.ID != id {
				return true
			}
		}
		return false
	}
}

// receiptTaken reports whether any record already holds receipt number.
func receiptTaken(records []generic.CaseRecord) func(string) bool {
	return func(number string) bool {
		for _, r := range records {
			for _, rc := range r.Receipts {
				if rc.ID == number {
					return true
				}
			}
		}
		return false
	}
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// List returns all committed records in stored order (newest commit first).
func (s *Service) List(ctx context.Context) ([]generic.CaseRecord, error) {
	return readRecords(ctx, s.store)
}

// Get returns one committed record.
func (s *Service) Get(ctx context.Context, id string) (*generic.CaseRecord, error) {
	records, err := readRecords(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return findRecord(records, id)
}

// AuditLog returns the audit entries of one case, or of all cases when id
// is empty, in append order.
func (s *Service) AuditLog(ctx context.Context, id string) ([]generic.AuditEntry, error) {
	return generic.ListAudit(ctx, s.store, strings.TrimSpace(id))
}
