package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/memo-adelApis/noqta-core/internal/validation"
)

// ValidationError carries field-level violations for a rejected draft.
// Surfaced verbatim at the boundary; never retried.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid draft: %d violation(s)", len(e.Violations))
}

// InstallmentMismatchError rejects an explicit schedule whose total strays
// from the computed balance by more than one cent.
type InstallmentMismatchError struct {
	ScheduleTotal decimal.Decimal
	Balance       decimal.Decimal
}

func (e *InstallmentMismatchError) Error() string {
	return fmt.Sprintf("installment schedule totals %s but the invoice balance is %s", e.ScheduleTotal, e.Balance)
}

// AlreadySettledError rejects a second settlement of the same installment.
type AlreadySettledError struct {
	InstallmentID string
}

func (e *AlreadySettledError) Error() string {
	return fmt.Sprintf("installment %s is already paid", e.InstallmentID)
}

// ExceedsInstallmentError rejects a payment above the installment's
// original amount.
type ExceedsInstallmentError struct {
	InstallmentID string
	Amount        decimal.Decimal
	Paid          decimal.Decimal
}

func (e *ExceedsInstallmentError) Error() string {
	return fmt.Sprintf("payment %s exceeds installment %s amount %s", e.Paid, e.InstallmentID, e.Amount)
}

type NotFoundError struct {
	Entity string
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
}

// ConflictError wraps a serialization failure or deadlock from the store.
// Nothing was persisted, so the caller may retry the same draft.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string { return "settlement conflicted with a concurrent operation" }
func (e *ConflictError) Unwrap() error { return e.Err }

// TimeoutError wraps a settlement transaction that hit its deadline.
// Safe to retry: the transaction rolled back.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "settlement timed out" }
func (e *TimeoutError) Unwrap() error { return e.Err }

// Postgres error codes surfaced as conflicts.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// classifyStorageErr maps low-level store failures onto the retryable
// kinds. Business errors and unknown failures pass through unchanged.
func classifyStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return &ConflictError{Err: err}
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Err: err}
	}
	return err
}
