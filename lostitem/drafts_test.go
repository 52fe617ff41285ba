package lostitem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
)

func TestSaveDraft_IncompleteIsStored(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	draft, errs, err := svc.SaveDraft(ctx, &generic.CaseRecord{Notes: "Schirm, blau"})

	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.NotEmpty(t, draft.ID)
	assert.Empty(t, draft.CaseNumber, "drafts never consume a case number")

	got, err := svc.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Schirm, blau", got.Notes)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	peek, err := svc.PeekCaseNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-00001", peek)
}

func TestSaveDraft_ReportsFormatErrors(t *testing.T) {
	svc, _ := newService(t)

	input := newCase()
	input.Finder.Email = "hans@"
	draft, errs, err := svc.SaveDraft(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "E-Mail Format ist ungültig.", errs["finder.email"])
	assert.Equal(t, "hans@", draft.Finder.Email, "invalid input is kept as typed")
}

func TestSaveDraft_ResaveKeepsCreatedAt(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, _, err := svc.SaveDraft(ctx, &generic.CaseRecord{ID: "d-1", Notes: "eins"})
	require.NoError(t, err)
	second, _, err := svc.SaveDraft(ctx, &generic.CaseRecord{ID: "d-1", Notes: "zwei"})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	drafts, err := svc.ListDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "zwei", drafts[0].Notes)

	// notes stay out of audit snapshots, so only the timestamp shows up
	entry := lastAudit(t, svc, generic.AuditDraftSaved)
	assert.Contains(t, diffPaths(entry.Diff), "updatedAt")
	assert.NotContains(t, diffPaths(entry.Diff), "notes")
}

func TestSaveDraft_CorruptDraftsAreNotOverwritten(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	// GIVEN a truncated drafts collection
	const corrupt = `[{"id":"d-1","notes":"eins"},{"id":"d-2"`
	require.NoError(t, st.Set(ctx, generic.KeyDrafts, []byte(corrupt)))

	// WHEN a draft is saved
	_, _, err := svc.SaveDraft(ctx, &generic.CaseRecord{Notes: "drei"})

	// THEN the write fails and the stored bytes survive
	assert.ErrorIs(t, err, generic.ErrCorruptCollection)
	raw, _, err := st.Get(ctx, generic.KeyDrafts)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(raw))

	drafts, err := svc.ListDrafts(ctx)
	require.NoError(t, err, "reads degrade to empty")
	assert.Empty(t, drafts)
}

func TestListDrafts_NewestFirst(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := svc.SaveDraft(ctx, &generic.CaseRecord{ID: id})
		require.NoError(t, err)
	}
	// touching "a" again makes it the newest
	_, _, err := svc.SaveDraft(ctx, &generic.CaseRecord{ID: "a", Notes: "nochmals"})
	require.NoError(t, err)

	drafts, err := svc.ListDrafts(ctx)
	require.NoError(t, err)
	ids := make([]string, len(drafts))
	for i, d := range drafts {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"a", "c", "b"}, ids)
}

func TestDeleteDraft(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	draft, _, err := svc.SaveDraft(ctx, &generic.CaseRecord{})
	require.NoError(t, err)
	before := auditTypes(t, svc, "")

	require.NoError(t, svc.DeleteDraft(ctx, draft.ID))

	_, err = svc.GetDraft(ctx, draft.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)
	assert.Equal(t, before, auditTypes(t, svc, ""), "deleting a draft is not audited")

	err = svc.DeleteDraft(ctx, draft.ID)
	assert.ErrorIs(t, err, generic.ErrNotFound)
}
