package accounting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Sentinels are declared in shared and matched there by httpx.
var (
	ErrValidation      = shared.ErrValidation
	ErrUnbalanced      = shared.ErrUnbalanced
	ErrMappingNotFound = shared.ErrMappingNotFound
	ErrNotFound        = shared.ErrNotFound
	ErrConflict        = shared.ErrConflict
)

// ValidationError reports a malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// BalanceError reports the currency whose lines do not net to zero.
type BalanceError struct {
	Currency string
	Net      decimal.Decimal
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("journal is not balanced for currency %s: net amount %s", e.Currency, e.Net.String())
}

func (e *BalanceError) Unwrap() error { return ErrUnbalanced }

// MappingRole names the account role a document needs resolved.
type MappingRole string

const (
	RoleReceivable MappingRole = "RECEIVABLE"
	RolePayable    MappingRole = "PAYABLE"
	RoleSales      MappingRole = "SALES"
	RoleInventory  MappingRole = "INVENTORY"
	RoleExpense    MappingRole = "EXPENSE"
)

// MappingError names the missing role and the document line that needed it.
// Line is -1 for header level roles.
type MappingError struct {
	Role      MappingRole
	Document  SourceType
	Reference string
	Line      int
	Entity    string
	EntityID  int64
}

func (e *MappingError) Error() string {
	where := fmt.Sprintf("%s %q", e.Document, e.Reference)
	if e.Line >= 0 {
		where = fmt.Sprintf("%s line %d", where, e.Line+1)
	}
	return fmt.Sprintf("missing %s account on %s %d (%s)", e.Role, e.Entity, e.EntityID, where)
}

func (e *MappingError) Unwrap() error { return ErrMappingNotFound }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a status transition that lost a race or was already applied.
type ConflictError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConflictError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s conflict: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s %d conflict: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFound is shorthand for a NotFoundError keyed by a numeric id.
func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: fmt.Sprintf("%d", id)}
}
