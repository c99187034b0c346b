package handlers

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError rejects malformed or non-positive input. Nothing was
// mutated when it is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// InsufficientStockError rejects an exit that exceeds available stock. The
// ledger refuses over-withdrawal instead of clamping so the movement trail
// stays truthful.
type InsufficientStockError struct {
	Material  string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of %s: requested %s, available %s",
		e.Material, e.Requested.String(), e.Available.String())
}

// DuplicateSaleError rejects a second sale for an already processed
// commercial operation and carries the id of the sale that already exists.
type DuplicateSaleError struct {
	OpKey          string
	ExistingSaleID uuid.UUID
}

func (e *DuplicateSaleError) Error() string {
	return fmt.Sprintf("operation %s already billed by sale %s", e.OpKey, e.ExistingSaleID)
}

// PersistenceError wraps a store failure. The operation it interrupted was
// rolled back entirely.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// wrapPersistence passes domain errors through untouched and wraps anything
// else (driver, context, constraint failures) as a PersistenceError.
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	var sErr *InsufficientStockError
	var dErr *DuplicateSaleError
	var pErr *PersistenceError
	if errors.As(err, &vErr) || errors.As(err, &sErr) || errors.As(err, &dErr) || errors.As(err, &pErr) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
