/*
errors.go - Centralized error types for the case engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every operation returns (T, error); expected failures (bad input,
  missing record, broken business rule) are values of these types,
  never panics.

ERROR CATEGORIES:
  1. Validation errors - field path -> message map (*ValidationError)
  2. Not-found errors  - missing record, draft or step
  3. Invariant errors  - double payment, invalid amount, missing party
  4. Store errors      - corrupt collections, backend failures

USAGE:
  if errors.Is(err, generic.ErrAlreadyPaid) {
      // second payout attempt, nothing was posted
  }

  var verr *generic.ValidationError
  if errors.As(err, &verr) {
      // verr.Fields["foundAt.location"] == "Fundort ist Pflicht."
  }

SEE ALSO:
  - hashchain.go: ChainReport is a diagnostic, not an error
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the sentinel behind every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrMissingID is returned when an operation needs a record id.
	ErrMissingID = errors.New("missing id")

	// ErrNotFound is returned when a record or draft does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStepNotFound is returned when deleting an unknown investigation step.
	ErrStepNotFound = errors.New("step not found")

	// ErrEmptyField is returned when a required free-text field is blank.
	ErrEmptyField = errors.New("required field is empty")

	// ErrInvalidTimestamp is returned when a date/time cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid date/time")

	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidAmount is returned for non-positive, non-integer or
	// sub-cent monetary amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidEntryType is returned for ledger types other than IN/OUT.
	ErrInvalidEntryType = errors.New("invalid ledger entry type")

	// ErrInvalidReceiptType is returned for unknown receipt types.
	ErrInvalidReceiptType = errors.New("invalid receipt type")

	// ErrMissingParty is returned when an operation needs a party that is
	// not recorded (e.g. collector = finder without a finder).
	ErrMissingParty = errors.New("required party missing")

	// ErrMissingCaseNumber is returned when a receipt is requested for a
	// record without a committed case number.
	ErrMissingCaseNumber = errors.New("case number missing")

	// ErrRewardNotRequested is returned for a payout receipt when the
	// finder did not request a reward.
	ErrRewardNotRequested = errors.New("finder did not request a reward")

	// ErrAlreadyPaid is returned when the finder reward lock is set.
	ErrAlreadyPaid = errors.New("finder reward already paid")

	// ErrCorruptCollection is returned when a stored collection cannot be
	// decoded and must not be overwritten.
	ErrCorruptCollection = errors.New("corrupt stored collection")

	// ErrNumberExhausted is returned when the counter cannot find a free number.
	ErrNumberExhausted = errors.New("no free number available")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError maps field paths to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// DoublePaymentError describes the existing payout that blocked a new one.
type DoublePaymentError struct {
	CaseID   string
	FundNo   string
	LedgerID string
	Existing Payout
}

func (e *DoublePaymentError) Error() string {
	return fmt.Sprintf("finder reward for %s already paid (ledger %s, %d cents)",
		e.FundNo, e.LedgerID, e.Existing.AmountCents)
}

func (e *DoublePaymentError) Unwrap() error {
	return ErrAlreadyPaid
}

// AmountError describes a rejected monetary input.
type AmountError struct {
	Input  string
	Reason string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

func (e *AmountError) Unwrap() error {
	return ErrInvalidAmount
}

// ChainError describes the first broken link of a ledger.
type ChainError struct {
	Index  int
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("ledger chain broken at entry %d: %s", e.Index, e.Reason)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStepNotFound)
}

// IsConflict returns true if the error is a broken business invariant
// against existing state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyPaid)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrMissingID) ||
		errors.Is(err, ErrEmptyField) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidEntryType) ||
		errors.Is(err, ErrInvalidReceiptType) ||
		errors.Is(err, ErrMissingParty) ||
		errors.Is(err, ErrMissingCaseNumber) ||
		errors.Is(err, ErrRewardNotRequested)
}
