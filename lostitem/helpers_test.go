package lostitem_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/generic/store"
	"github.com/Streuli81/LostTrack/lostitem"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// tickingClock advances one second per reading so creation order is
// visible in timestamps.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newService(t *testing.T, opts ...lostitem.Option) (*lostitem.Service, *store.TxMemory) {
	t.Helper()
	st := store.NewTxMemory()
	clock := &tickingClock{t: t0}
	all := append([]lostitem.Option{lostitem.WithClock(clock.Now)}, opts...)
	return lostitem.New(st, all...), st
}

// newCase is a complete case ready to commit.
func newCase() *generic.CaseRecord {
	return &generic.CaseRecord{
		CaseWorker: generic.CaseWorker{ID: "ms", Name: "M. Streuli"},
		FoundAt:    generic.FoundAt{Date: "2026-03-01", Time: "0930", Location: "Bahnhof Zürich"},
		Item:       generic.Item{PredefinedKey: "wallet", Description: "Schwarzes Portemonnaie"},
		Finder: &generic.Party{
			FirstName:       "Hans",
			LastName:        "Muster",
			Phone:           "079 123 45 67",
			RewardRequested: true,
		},
	}
}

func commitCase(t *testing.T, svc *lostitem.Service) *generic.CaseRecord {
	t.Helper()
	rec, err := svc.Commit(context.Background(), newCase())
	require.NoError(t, err)
	return rec
}

// auditTypes lists the event types of the log in order.
func auditTypes(t *testing.T, svc *lostitem.Service, id string) []generic.AuditType {
	t.Helper()
	entries, err := svc.AuditLog(context.Background(), id)
	require.NoError(t, err)
	out := make([]generic.AuditType, len(entries))
	for i, e := range entries {
		out[i] = e.Type
	}
	return out
}

// lastAudit returns the newest entry of the given type.
func lastAudit(t *testing.T, svc *lostitem.Service, typ generic.AuditType) generic.AuditEntry {
	t.Helper()
	entries, err := svc.AuditLog(context.Background(), "")
	require.NoError(t, err)
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == typ {
			return entries[i]
		}
	}
	t.Fatalf("no audit entry of type %s", typ)
	return generic.AuditEntry{}
}

// detail decodes the snapshot detail of a stored audit entry into dst.
func detail(t *testing.T, e generic.AuditEntry, dst any) {
	t.Helper()
	raw, err := json.Marshal(e.Snapshot)
	require.NoError(t, err)
	var snap struct {
		Detail json.RawMessage `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(raw, &snap))
	require.NoError(t, json.Unmarshal(snap.Detail, dst))
}

func diffPaths(changes []generic.Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Path
	}
	return out
}
