/*
counter.go - Year-scoped sequential numbering with collision skip

PURPOSE:
  Hands out human-readable identifiers for case numbers, receipts and
  ledger entries. Each (namespace, year) pair has its own counter that
  starts at 1 every calendar year.

FORMATS:
  FUND     -> 2026-00042    (case number)
  RECEIPT  -> Q-2026-0007   (receipt)
  CASHBOOK -> K-2026-00003  (ledger entry)

COLLISION SKIP:
  Data can be imported or restored behind the counter's back. Next keeps
  incrementing while the caller's taken() predicate reports the candidate
  as already used, and persists only the accepted value.

PEEK:
  Peek applies the same skip without writing, so the number shown in the
  UI before commit is the number Next will hand out (absent concurrent
  commits).

SEE ALSO:
  - lostitem/service.go: Commit assigns the case number
  - lostitem/cashbook.go: Ledger entry ids
*/
package generic

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/sirupsen/logrus"
)

type Namespace string

const (
	NamespaceFund     Namespace = "FUND"
	NamespaceReceipt  Namespace = "RECEIPT"
	NamespaceCashbook Namespace = "CASHBOOK"
)

// maxSkip bounds the collision walk so a predicate that always reports
// "taken" cannot loop forever.
const maxSkip = 100000

// FormatNumber renders the n-th number of ns in year.
func FormatNumber(ns Namespace, year, n int) string {
	switch ns {
	case NamespaceFund:
		return fmt.Sprintf("%04d-%05d", year, n)
	case NamespaceReceipt:
		return fmt.Sprintf("Q-%04d-%04d", year, n)
	case NamespaceCashbook:
		return fmt.Sprintf("K-%04d-%05d", year, n)
	}
	return fmt.Sprintf("%s-%04d-%05d", ns, year, n)
}

var reCaseNumber = regexp.MustCompile(`^\d{4}-\d{5}$`)

// IsCaseNumber reports whether s has the FUND format YYYY-NNNNN.
func IsCaseNumber(s string) bool {
	return reCaseNumber.MatchString(s)
}

func counterKey(ns Namespace, year int) string {
	return string(ns) + ":" + strconv.Itoa(year)
}

func loadCounters(ctx context.Context, st Store) (map[string]int, error) {
	counters := map[string]int{}
	if _, err := GetJSON(ctx, st, KeyCounters, &counters); err != nil {
		if !errors.Is(err, ErrCorruptCollection) {
			return nil, err
		}
		logrus.WithField("key", KeyCounters).WithError(err).Warn("counters unreadable, restarting from stored data")
		counters = map[string]int{}
	}
	if counters == nil {
		counters = map[string]int{}
	}
	return counters, nil
}

// resolve finds the first free number after the stored counter value.
func resolve(counters map[string]int, ns Namespace, year int, taken func(string) bool) (string, int, error) {
	n := counters[counterKey(ns, year)]
	for i := 0; i < maxSkip; i++ {
		n++
		candidate := FormatNumber(ns, year, n)
		if taken == nil || !taken(candidate) {
			return candidate, n, nil
		}
	}
	return "", 0, fmt.Errorf("%w: %s %d", ErrNumberExhausted, ns, year)
}

// Peek returns the number Next would issue, without persisting anything.
func Peek(ctx context.Context, st Store, ns Namespace, year int, taken func(string) bool) (string, error) {
	counters, err := loadCounters(ctx, st)
	if err != nil {
		return "", err
	}
	id, _, err := resolve(counters, ns, year, taken)
	return id, err
}

// Next issues the next free number of ns in year and persists the counter.
// Must run inside TxStore.WithTx.
func Next(ctx context.Context, st Store, ns Namespace, year int, taken func(string) bool) (string, error) {
	counters, err := loadCounters(ctx, st)
	if err != nil {
		return "", err
	}
	id, n, err := resolve(counters, ns, year, taken)
	if err != nil {
		return "", err
	}
	counters[counterKey(ns, year)] = n
	if err := SetJSON(ctx, st, KeyCounters, counters); err != nil {
		return "", err
	}
	return id, nil
}
