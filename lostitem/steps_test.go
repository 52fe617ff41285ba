package lostitem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/lostitem"
)

func TestAddInvestigationStep(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	updated, step, err := svc.AddInvestigationStep(ctx, rec.ID, lostitem.StepInput{
		At:   "2026-03-02T08:15:00Z",
		Who:  "  M. Streuli ",
		What: "Finder telefonisch kontaktiert",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, step.ID)
	assert.Equal(t, "M. Streuli", step.Who)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC), step.At)
	require.Len(t, updated.InvestigationSteps, 1)
	assert.Equal(t, step, updated.InvestigationSteps[0])

	entry := lastAudit(t, svc, generic.AuditStepAdded)
	var d lostitem.StepDetail
	detail(t, entry, &d)
	assert.Equal(t, step.ID, d.StepID)
	assert.Contains(t, diffPaths(entry.Diff), "investigationSteps.length")
}

func TestAddInvestigationStep_DefaultsToNow(t *testing.T) {
	clock := generic.FixedClock(time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC))
	svc, _ := newService(t, lostitem.WithClock(clock))
	rec := commitCase(t, svc)

	_, step, err := svc.AddInvestigationStep(context.Background(), rec.ID, lostitem.StepInput{Who: "ms", What: "Aushang"})

	require.NoError(t, err)
	assert.Equal(t, clock(), step.At)
}

func TestAddInvestigationStep_LocalTimestamp(t *testing.T) {
	svc, _ := newService(t, lostitem.WithLocation(time.FixedZone("CET", 3600)))
	rec := commitCase(t, svc)

	_, step, err := svc.AddInvestigationStep(context.Background(), rec.ID, lostitem.StepInput{
		At: "02.03.2026 09:00", Who: "ms", What: "Fundbüro SBB angefragt",
	})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), step.At)
}

func TestAddInvestigationStep_Errors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	tests := []struct {
		name string
		id   string
		in   lostitem.StepInput
		want error
	}{
		{"empty who", rec.ID, lostitem.StepInput{Who: " ", What: "x"}, generic.ErrEmptyField},
		{"empty what", rec.ID, lostitem.StepInput{Who: "ms"}, generic.ErrEmptyField},
		{"bad timestamp", rec.ID, lostitem.StepInput{At: "gestern", Who: "ms", What: "x"}, generic.ErrInvalidTimestamp},
		{"unknown case", "nope", lostitem.StepInput{Who: "ms", What: "x"}, generic.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.AddInvestigationStep(ctx, tt.id, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.InvestigationSteps)
}

func TestDeleteInvestigationStep(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)
	_, first, err := svc.AddInvestigationStep(ctx, rec.ID, lostitem.StepInput{Who: "ms", What: "eins"})
	require.NoError(t, err)
	_, second, err := svc.AddInvestigationStep(ctx, rec.ID, lostitem.StepInput{Who: "ms", What: "zwei"})
	require.NoError(t, err)

	updated, err := svc.DeleteInvestigationStep(ctx, rec.ID, first.ID)

	require.NoError(t, err)
	require.Len(t, updated.InvestigationSteps, 1)
	assert.Equal(t, second.ID, updated.InvestigationSteps[0].ID)

	entry := lastAudit(t, svc, generic.AuditStepDeleted)
	var d lostitem.StepDetail
	detail(t, entry, &d)
	assert.Equal(t, first.ID, d.StepID)
	require.NotNil(t, d.Step)
	assert.Equal(t, "eins", d.Step.What)
}

func TestDeleteInvestigationStep_Unknown(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)
	before := auditTypes(t, svc, rec.ID)

	_, err := svc.DeleteInvestigationStep(ctx, rec.ID, "nope")

	assert.ErrorIs(t, err, generic.ErrStepNotFound)
	assert.True(t, generic.IsNotFound(err))
	assert.Equal(t, before, auditTypes(t, svc, rec.ID), "failed delete writes no audit entry")
}
