package lostitem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/lostitem"
)

func seedSearch(t *testing.T, svc *lostitem.Service) (wallet, umbrella, phone *generic.CaseRecord) {
	t.Helper()
	ctx := context.Background()

	wallet = commitCase(t, svc)

	in := newCase()
	in.FoundAt = generic.FoundAt{Date: "12.03.2026", Time: "18.00", Location: "Tram 11, Escher-Wyss-Platz"}
	in.Item = generic.Item{ManualLabel: "Regenschirm", Description: "Knirps, rot"}
	in.Finder = &generic.Party{FirstName: "Lea", LastName: "Graf", Email: "LEA.GRAF@example.ch"}
	umbrella, err := svc.Commit(ctx, in)
	require.NoError(t, err)

	in = newCase()
	in.FoundAt = generic.FoundAt{Date: "2026-04-02", Time: "07:45", Location: "Hauptbahnhof Zürich, Gleis 7"}
	in.Item = generic.Item{PredefinedKey: "phone", Description: "iPhone mit STRASSE-Aufkleber"}
	phone, err = svc.Commit(ctx, in)
	require.NoError(t, err)
	return wallet, umbrella, phone
}

func ids(records []generic.CaseRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	wallet, umbrella, phone := seedSearch(t, svc)

	tests := []struct {
		name string
		q    lostitem.Query
		want []string
	}{
		{"no criteria returns all newest first", lostitem.Query{}, []string{phone.ID, umbrella.ID, wallet.ID}},
		{"case number substring", lostitem.Query{FundNo: "00002"}, []string{umbrella.ID}},
		{"finder name case-insensitive", lostitem.Query{Finder: "muster"}, []string{phone.ID, wallet.ID}},
		{"finder phone", lostitem.Query{Finder: "123 45"}, []string{phone.ID, wallet.ID}},
		{"finder email folded", lostitem.Query{Finder: "lea.graf@"}, []string{umbrella.ID}},
		{"item label", lostitem.Query{Item: "regenschirm"}, []string{umbrella.ID}},
		{"item key", lostitem.Query{Item: "WALLET"}, []string{wallet.ID}},
		{"item description", lostitem.Query{Item: "aufkleber"}, []string{phone.ID}},
		{"location", lostitem.Query{Location: "zürich"}, []string{phone.ID, wallet.ID}},
		{"criteria are combined", lostitem.Query{Location: "zürich", Item: "phone"}, []string{phone.ID}},
		{"date range inclusive", lostitem.Query{DateFrom: "2026-03-01", DateTo: "2026-03-12"}, []string{umbrella.ID, wallet.ID}},
		{"open lower bound", lostitem.Query{DateTo: "2026-03-01"}, []string{wallet.ID}},
		{"open upper bound", lostitem.Query{DateFrom: "2026-04-01"}, []string{phone.ID}},
		{"nothing matches", lostitem.Query{Finder: "niemand"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Search(context.Background(), tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSearch_FinderCriterionSkipsCasesWithoutFinder(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()
	rec := commitCase(t, svc)

	// an imported case without a finder
	orphan := generic.CaseRecord{ID: "orphan", CaseNumber: "2025-00001", FoundAt: generic.FoundAt{Location: "Bahnhof"}}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.NoError(t, generic.SetJSON(ctx, st, generic.KeyRecords, append(list, orphan)))

	got, err := svc.Search(ctx, lostitem.Query{Finder: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(got))

	got, err = svc.Search(ctx, lostitem.Query{Location: "bahnhof", DateFrom: "2020-01-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, ids(got), "an undated case never matches a date bound")
}
