package lostitem_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/lostitem"
)

// =============================================================================
// COMMIT
// =============================================================================

func TestCommit_AssignsCaseNumber(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	rec, err := svc.Commit(ctx, newCase())

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "2026-00001", rec.CaseNumber)
	assert.Equal(t, generic.StatusOpen, rec.Status)
	assert.Equal(t, "01.03.2026", rec.FoundAt.Date)
	assert.Equal(t, "09.30", rec.FoundAt.Time)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Empty(t, rec.Receipts)

	entry := lastAudit(t, svc, generic.AuditItemCommitted)
	assert.Equal(t, rec.CaseNumber, entry.FundNo)
	assert.Equal(t, rec.ID, entry.RecordID)
	assert.Equal(t, generic.SystemActor, entry.Actor)
	assert.Nil(t, entry.Diff, "a new case has no diff")

	next, err := svc.Commit(ctx, newCase())
	require.NoError(t, err)
	assert.Equal(t, "2026-00002", next.CaseNumber)
}

func TestCommit_SameIDTwiceKeepsNumber(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	input := newCase()
	input.ID = "case-1"
	first, err := svc.Commit(ctx, input)
	require.NoError(t, err)
	second, err := svc.Commit(ctx, input)
	require.NoError(t, err)

	assert.Equal(t, first.CaseNumber, second.CaseNumber)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	peek, err := svc.PeekCaseNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-00002", peek, "double submission must not consume a number")
}

func TestCommit_ResubmissionKeepsStepsAndDiffs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	// GIVEN a committed case with one investigation step
	input := newCase()
	input.ID = "case-1"
	first, err := svc.Commit(ctx, input)
	require.NoError(t, err)
	_, _, err = svc.AddInvestigationStep(ctx, first.ID, lostitem.StepInput{Who: "ms", What: "Anruf Finder"})
	require.NoError(t, err)

	// WHEN the same id is committed again with another finder and no steps
	again := newCase()
	again.ID = "case-1"
	again.Finder = &generic.Party{Phone: "1"}
	second, err := svc.Commit(ctx, again)

	// THEN the step survives and the audit entry shows what changed
	require.NoError(t, err)
	assert.Equal(t, first.CaseNumber, second.CaseNumber)
	require.Len(t, second.InvestigationSteps, 1)
	assert.Equal(t, "Anruf Finder", second.InvestigationSteps[0].What)
	require.NotNil(t, second.Finder)
	assert.Equal(t, "1", second.Finder.Phone)

	entry := lastAudit(t, svc, generic.AuditItemCommitted)
	require.NotNil(t, entry.Diff)
	paths := diffPaths(entry.Diff)
	assert.Contains(t, paths, "finder.phone")
	assert.Contains(t, paths, "finder.lastName")
	for _, p := range paths {
		assert.NotContains(t, p, "investigationSteps", "steps are unchanged")
	}
	assert.Equal(t, first.CaseNumber, entry.FundNo)
}

func TestCommit_ResubmissionKeepsOmittedParties(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	input := newCase()
	input.ID = "case-1"
	input.Owner = &generic.Party{LastName: "Eigentümer", Phone: "044 000 00 00"}
	_, err := svc.Commit(ctx, input)
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, "case-1", "RETURNED")
	require.NoError(t, err)

	// no owner, no status
	again := newCase()
	again.ID = "case-1"
	second, err := svc.Commit(ctx, again)

	require.NoError(t, err)
	require.NotNil(t, second.Owner)
	assert.Equal(t, "Eigentümer", second.Owner.LastName)
	assert.Equal(t, generic.StatusReturned, second.Status)
}

func TestCommit_MalformedNumberIsReplaced(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, number := range []string{"not-a-number", "26-00001", "2026-1", "2026-000001"} {
		input := newCase()
		input.CaseNumber = number
		rec, err := svc.Commit(ctx, input)

		require.NoError(t, err, number)
		assert.True(t, generic.IsCaseNumber(rec.CaseNumber), number)
		assert.NotEqual(t, number, rec.CaseNumber)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)
	peek, err := svc.PeekCaseNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-00005", peek)
}

func TestCommit_WellFormedNumberIsKept(t *testing.T) {
	svc, _ := newService(t)

	input := newCase()
	input.CaseNumber = "2025-00042"
	rec, err := svc.Commit(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "2025-00042", rec.CaseNumber)
}

func TestCommit_CorruptRecordsAreNotOverwritten(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	// GIVEN a records collection that was cut off mid-write
	const corrupt = `[{"id":"a","fundNo":"2026-00001"},{"id":"b","fundNo":"2026-00002"`
	require.NoError(t, st.Set(ctx, generic.KeyRecords, []byte(corrupt)))

	// WHEN a new case is committed
	_, err := svc.Commit(ctx, newCase())

	// THEN nothing is written and both cases stay recoverable from the raw value
	assert.ErrorIs(t, err, generic.ErrCorruptCollection)
	raw, _, err := st.Get(ctx, generic.KeyRecords)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(raw))

	_, found, err := st.Get(ctx, generic.KeyCounters)
	require.NoError(t, err)
	assert.False(t, found, "counter must not advance")

	list, err := svc.List(ctx)
	require.NoError(t, err, "reads degrade to empty")
	assert.Empty(t, list)
}

func TestCommit_NumberOfOtherCaseIsReplaced(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a := commitCase(t, svc)

	input := newCase()
	input.CaseNumber = a.CaseNumber
	b, err := svc.Commit(ctx, input)

	require.NoError(t, err)
	assert.NotEqual(t, a.CaseNumber, b.CaseNumber)
	assert.Equal(t, "2026-00002", b.CaseNumber)
}

func TestCommit_SkipsImportedNumbers(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	// GIVEN: a restored record the counter does not know about
	imported := []generic.CaseRecord{{ID: "old", CaseNumber: "2026-00001", Status: generic.StatusOpen}}
	require.NoError(t, generic.SetJSON(ctx, st, generic.KeyRecords, imported))

	peek, err := svc.PeekCaseNumber(ctx)
	require.NoError(t, err)

	// WHEN
	rec, err := svc.Commit(ctx, newCase())

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "2026-00002", rec.CaseNumber)
	assert.Equal(t, peek, rec.CaseNumber)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, rec.ID, list[0].ID, "new records are prepended")
}

func TestCommit_YearFollowsLocation(t *testing.T) {
	// 23:30 UTC on new year's eve is already next year in Zürich (UTC+1)
	clock := generic.FixedClock(time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC))
	svc, _ := newService(t, lostitem.WithClock(clock), lostitem.WithLocation(time.FixedZone("CET", 3600)))

	rec, err := svc.Commit(context.Background(), newCase())

	require.NoError(t, err)
	assert.Equal(t, "2027-00001", rec.CaseNumber)
}

func TestCommit_Invalid(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Commit(ctx, &generic.CaseRecord{})

	var verr *generic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "foundAt.location")

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, auditTypes(t, svc, ""))
}

func TestCommit_RemovesDraft(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	draft, _, err := svc.SaveDraft(ctx, newCase())
	require.NoError(t, err)

	rec, err := svc.Commit(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, rec.ID)

	_, err = svc.GetDraft(ctx, draft.ID)
	assert.True(t, generic.IsNotFound(err))
}

func TestCommit_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := svc.Commit(ctx, newCase())
			if assert.NoError(t, err) {
				numbers <- rec.CaseNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen[fmt.Sprintf("2026-%05d", n)])
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_CaseNumberIsImmutable(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	input := rec.Clone()
	input.CaseNumber = "1999-99999"
	input.CreatedAt = time.Time{}
	input.FoundAt.Location = "Paradeplatz"

	updated, err := svc.Update(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, rec.CaseNumber, updated.CaseNumber)
	assert.Equal(t, rec.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Paradeplatz", updated.FoundAt.Location)
	assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt))

	entry := lastAudit(t, svc, generic.AuditItemUpdated)
	assert.Contains(t, diffPaths(entry.Diff), "foundAt.location")
	assert.NotContains(t, diffPaths(entry.Diff), "fundNo")
}

func TestUpdate_OmittedPartsKeepStoredValues(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)
	rec, _, err := svc.AddInvestigationStep(ctx, rec.ID, lostitem.StepInput{Who: "ms", What: "Anruf Finder"})
	require.NoError(t, err)
	rec, err = svc.ChangeStatus(ctx, rec.ID, "RETURNED")
	require.NoError(t, err)

	// partial form: no steps, no parties, no status
	input := &generic.CaseRecord{
		ID:         rec.ID,
		CaseWorker: rec.CaseWorker,
		FoundAt:    rec.FoundAt,
		Item:       rec.Item,
		Notes:      "Im Tresor",
	}
	updated, err := svc.Update(ctx, input)

	require.NoError(t, err)
	require.Len(t, updated.InvestigationSteps, 1)
	assert.Equal(t, "Anruf Finder", updated.InvestigationSteps[0].What)
	require.NotNil(t, updated.Finder)
	assert.Equal(t, "Muster", updated.Finder.LastName)
	assert.Equal(t, generic.StatusReturned, updated.Status)
	assert.Equal(t, "Im Tresor", updated.Notes)
}

func TestUpdate_EmptyStepListClears(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)
	rec, _, err := svc.AddInvestigationStep(ctx, rec.ID, lostitem.StepInput{Who: "ms", What: "Anruf"})
	require.NoError(t, err)

	input := rec.Clone()
	input.InvestigationSteps = []generic.Step{}
	updated, err := svc.Update(ctx, input)

	require.NoError(t, err)
	assert.Empty(t, updated.InvestigationSteps)
}

func TestUpdate_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	_, err := svc.Update(ctx, nil)
	assert.ErrorIs(t, err, generic.ErrMissingID)

	missing := rec.Clone()
	missing.ID = "nope"
	_, err = svc.Update(ctx, missing)
	assert.ErrorIs(t, err, generic.ErrNotFound)

	invalid := rec.Clone()
	invalid.FoundAt.Location = "  "
	_, err = svc.Update(ctx, invalid)
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// STATUS
// =============================================================================

func TestChangeStatus(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	updated, err := svc.ChangeStatus(ctx, rec.ID, "returned")
	require.NoError(t, err)
	assert.Equal(t, generic.StatusReturned, updated.Status)

	// no transition guard: any status may follow any other
	updated, err = svc.ChangeStatus(ctx, rec.ID, "OPEN")
	require.NoError(t, err)
	assert.Equal(t, generic.StatusOpen, updated.Status)

	entry := lastAudit(t, svc, generic.AuditStatusChanged)
	var change lostitem.StatusChange
	detail(t, entry, &change)
	assert.Equal(t, generic.StatusReturned, change.From)
	assert.Equal(t, generic.StatusOpen, change.To)
	assert.Contains(t, diffPaths(entry.Diff), "status")
}

func TestChangeStatus_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	_, err := svc.ChangeStatus(ctx, rec.ID, "LOST")
	assert.ErrorIs(t, err, generic.ErrInvalidStatus)

	_, err = svc.ChangeStatus(ctx, "nope", "OPEN")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	_, err = svc.ChangeStatus(ctx, "", "OPEN")
	assert.ErrorIs(t, err, generic.ErrMissingID)

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, generic.StatusOpen, got.Status)
}

func TestActorFromContext(t *testing.T) {
	svc, _ := newService(t)
	ctx := generic.WithActor(context.Background(), "m.streuli")
	rec, err := svc.Commit(ctx, newCase())
	require.NoError(t, err)

	entries, err := svc.AuditLog(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "m.streuli", entries[0].Actor)
}
