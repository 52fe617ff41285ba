/*
Package lostitem implements the case record store of LostTrack.

PURPOSE:
  Service is the single entry point for reading and mutating found-item
  cases ("Fundsachen"): drafts, commits, edits, status changes,
  investigation steps, parties, receipts and the cash ledger postings tied
  to a case.

OPERATION TEMPLATE:
  Every mutation runs inside one TxStore.WithTx:
    1. load the current record (fail if absent)
    2. compute the "before" slim snapshot
    3. apply the change, normalize, refresh updatedAt
    4. compute the "after" slim snapshot
    5. upsert by id (replace in place, new records are prepended)
    6. append one audit entry with {before, after} and the diff
  Ledger postings and counter increments happen in the same transaction,
  so a failing step leaves no partial state behind on stores that roll
  back.

ACTOR:
  The acting user is taken from the input where an operation has one,
  then from generic.ActorFrom(ctx), then "System".

SEE ALSO:
  - generic/store.go: TxStore contract
  - generic/audit.go: Audit log
  - cashbook.go: Ledger postings and the finder reward lock
*/
package lostitem

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/telemetry"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store   generic.TxStore
	clock   generic.Clock
	loc     *time.Location
	log     logrus.FieldLogger
	metrics *telemetry.Metrics
}

type Option func(*Service)

// WithClock pins "now", mainly for tests.
func WithClock(c generic.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the zone used for counter years and local timestamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service on st.
func New(st generic.TxStore, opts ...Option) *Service {
	s := &Service{
		store: st,
		clock: generic.SystemClock,
		loc:   time.UTC,
		log:   logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithField("module", "lostitem")
	return s
}

// now is the current instant at storage precision.
func (s *Service) now() time.Time {
	return generic.Instant(s.clock())
}

// year is the counter year of now in the configured zone.
func (s *Service) year() int {
	return s.clock().In(s.loc).Year()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// txn is the store view of one operation. Audit entries and postings are
// collected so metrics are recorded only after the commit succeeded.
type txn struct {
	generic.Store
	ctx      context.Context
	svc      *Service
	fundNo   string
	audits   []generic.AuditType
	postings []generic.LedgerEntry
}

// run executes fn in one store transaction and logs the outcome.
func (s *Service) run(ctx context.Context, op string, fn func(tx *txn) error) error {
	var done *txn
	err := s.store.WithTx(ctx, func(st generic.Store) error {
		done = &txn{Store: st, ctx: ctx, svc: s}
		return fn(done)
	})

	log := s.log.WithField("op", op)
	if done != nil && done.fundNo != "" {
		log = log.WithField("fundNo", done.fundNo)
	}
	if err != nil {
		s.metrics.OperationFailed(op)
		if generic.IsClientError(err) || generic.IsNotFound(err) || generic.IsConflict(err) {
			log.WithError(err).Info("operation rejected")
		} else {
			log.WithError(err).Error("operation failed")
		}
		return err
	}

	for _, t := range done.audits {
		s.metrics.AuditAppended(string(t))
	}
	for _, e := range done.postings {
		s.metrics.LedgerPosted(string(e.Type), e.AmountCents)
	}
	log.WithField("audits", len(done.audits)).Debug("operation committed")
	return nil
}

// audit appends entry with the resolved actor and the current instant.
func (tx *txn) audit(entry generic.AuditEntry) error {
	if entry.At.IsZero() {
		entry.At = tx.svc.now()
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Actor == "" {
		entry.Actor = generic.ResolveActor(tx.ctx, "")
	}
	if _, err := generic.AppendAudit(tx.ctx, tx, entry); err != nil {
		return err
	}
	tx.audits = append(tx.audits, entry.Type)
	return nil
}

// auditChange writes one entry carrying {before, after} and their diff.
func (tx *txn) auditChange(typ generic.AuditType, actor string, before, after *generic.CaseRecord, detail any) error {
	b, a := slim(before), slim(after)
	diff, err := generic.Diff(b, a)
	if err != nil {
		return err
	}
	return tx.audit(generic.AuditEntry{
		Type:     typ,
		FundNo:   after.CaseNumber,
		RecordID: after.ID,
		Actor:    actor,
		Snapshot: generic.AuditSnapshot{Before: b, After: a, Detail: detail},
		Diff:     diff,
	})
}

// mutate loads record id, applies change to a copy and persists it with
// one audit entry of type typ. change may return a detail value for the
// audit snapshot.
func (tx *txn) mutate(id string, typ generic.AuditType, actor string,
	change func(rec *generic.CaseRecord) (any, error)) (*generic.CaseRecord, error) {

	records, current, err := tx.load(id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	detail, err := change(next)
	if err != nil {
		return nil, err
	}
	next, err = tx.save(records, next)
	if err != nil {
		return nil, err
	}
	if err := tx.auditChange(typ, actor, current, next, detail); err != nil {
		return nil, err
	}
	return next, nil
}

// load returns the stored collection and a copy of record id.
func (tx *txn) load(id string) ([]generic.CaseRecord, *generic.CaseRecord, error) {
	records, err := loadRecords(tx.ctx, tx)
	if err != nil {
		return nil, nil, err
	}
	current, err := findRecord(records, id)
	if err != nil {
		return nil, nil, err
	}
	tx.fundNo = current.CaseNumber
	return records, current, nil
}

// save normalizes rec, stamps updatedAt and upserts it into records.
func (tx *txn) save(records []generic.CaseRecord, rec *generic.CaseRecord) (*generic.CaseRecord, error) {
	rec = generic.NormalizeRecord(rec)
	rec.UpdatedAt = tx.svc.now()
	if err := saveRecords(tx.ctx, tx, upsert(records, rec)); err != nil {
		return nil, err
	}
	return rec, nil
}
