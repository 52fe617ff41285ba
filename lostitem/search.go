package lostitem

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Streuli81/LostTrack/generic"
)

// Query filters committed records. All non-empty criteria must match.
// DateFrom/DateTo are YYYY-MM-DD and bound foundAt.date inclusively.
type Query struct {
	FundNo   string `json:"fundNo"`
	Finder   string `json:"finder"`   // name, phone or e-mail
	Item     string `json:"item"`     // key, label or description
	Location string `json:"location"` // foundAt.location
	DateFrom string `json:"dateFrom"`
	DateTo   string `json:"dateTo"`
}

// Search returns matching records, newest first by creation time.
// Text criteria are case-folded substring matches.
func (s *Service) Search(ctx context.Context, q Query) ([]generic.CaseRecord, error) {
	records, err := readRecords(ctx, s.store)
	if err != nil {
		return nil, err
	}

	m := newMatcher(q)
	out := make([]generic.CaseRecord, 0)
	for _, r := range records {
		if m.match(&r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// matcher holds the folded query. A cases.Caser is stateful, so each
// search gets its own.
type matcher struct {
	fold     cases.Caser
	fundNo   string
	finder   string
	item     string
	location string
	from, to string
}

func newMatcher(q Query) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.fundNo = m.norm(q.FundNo)
	m.finder = m.norm(q.Finder)
	m.item = m.norm(q.Item)
	m.location = m.norm(q.Location)
	m.from = strings.TrimSpace(q.DateFrom)
	m.to = strings.TrimSpace(q.DateTo)
	return m
}

func (m *matcher) norm(s string) string {
	return m.fold.String(strings.TrimSpace(s))
}

// anyContains reports whether one of fields contains needle.
func (m *matcher) anyContains(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(m.norm(f), needle) {
			return true
		}
	}
	return false
}

func (m *matcher) match(r *generic.CaseRecord) bool {
	if m.fundNo != "" && !m.anyContains(m.fundNo, r.CaseNumber) {
		return false
	}
	if m.finder != "" {
		if r.Finder == nil || !m.anyContains(m.finder, r.Finder.DisplayName(), r.Finder.Phone, r.Finder.Email) {
			return false
		}
	}
	if m.item != "" && !m.anyContains(m.item, r.Item.PredefinedKey, r.Item.ManualLabel, r.Item.Description) {
		return false
	}
	if m.location != "" && !m.anyContains(m.location, r.FoundAt.Location) {
		return false
	}
	return m.inRange(r.FoundAt.Date)
}

// inRange compares ISO dates lexicographically. Without bounds every
// record matches; with bounds an unparseable date never does.
func (m *matcher) inRange(date string) bool {
	if m.from == "" && m.to == "" {
		return true
	}
	d := generic.DateToISO(date)
	if d == "" {
		return false
	}
	if m.from != "" && d < m.from {
		return false
	}
	if m.to != "" && d > m.to {
		return false
	}
	return true
}
