/*
audit.go - Append-only audit log and actor resolution

PURPOSE:
  Every mutation of a case writes exactly one AuditEntry: who, when, which
  event type, a {before, after} snapshot and the structural diff between
  them. Entries are never edited or removed.

ACTOR RESOLUTION:
  1. Explicit actor passed by the caller
  2. Actor attached to the context (API middleware, CLI flag)
  3. "System"

SEE ALSO:
  - diff.go: Produces AuditEntry.Diff
  - lostitem/snapshot.go: Slim snapshots stored in AuditEntry.Snapshot
*/
package generic

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// SystemActor is recorded when no user is known.
const SystemActor = "System"

type actorKey struct{}

// WithActor attaches the acting user to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actor))
}

// ActorFrom returns the actor attached to ctx, or "".
func ActorFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	a, _ := ctx.Value(actorKey{}).(string)
	return a
}

// ResolveActor picks explicit, then the context actor, then SystemActor.
func ResolveActor(ctx context.Context, explicit string) string {
	if a := strings.TrimSpace(explicit); a != "" {
		return a
	}
	if a := ActorFrom(ctx); a != "" {
		return a
	}
	return SystemActor
}

// AuditSnapshot is the {before, after} pair stored with mutations.
// Detail carries event specific data, e.g. the status change or the
// printed receipt.
type AuditSnapshot struct {
	Before any `json:"before"`
	After  any `json:"after"`
	Detail any `json:"detail,omitempty"`
}

// AppendAudit assigns an id when missing and appends entry to the log.
func AppendAudit(ctx context.Context, st Store, entry AuditEntry) (AuditEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Actor == "" {
		entry.Actor = ResolveActor(ctx, "")
	}
	// strict: a corrupt log is never replaced by a fresh one
	log, err := LoadList[AuditEntry](ctx, st, KeyAudit)
	if err != nil {
		return AuditEntry{}, err
	}
	log = append(log, entry)
	if err := SetJSON(ctx, st, KeyAudit, log); err != nil {
		return AuditEntry{}, err
	}
	return entry, nil
}

// ListAudit returns the log in append order. A non-empty recordID filters
// to one case.
func ListAudit(ctx context.Context, st Store, recordID string) ([]AuditEntry, error) {
	log, err := LoadListLenient[AuditEntry](ctx, st, KeyAudit)
	if err != nil {
		return nil, err
	}
	if recordID == "" {
		return log, nil
	}
	out := make([]AuditEntry, 0)
	for _, e := range log {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}
