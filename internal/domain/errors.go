package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so a transport can choose a status code without
// knowing which component produced it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is caller-correctable and never retried automatically.
	KindValidation
	// KindNotFound names a missing product, profile, order or cart line.
	KindNotFound
	// KindPersistence means a store could not durably read or write data.
	KindPersistence
	// KindConflict means another request for the same user holds the work.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyCart              = errors.New("cart is empty, nothing to checkout")
	ErrMissingShippingProfile = errors.New("shipping profile is required to place an order")
	ErrInvalidQuantity        = errors.New("quantity must be between 0 and 2147483647")
	ErrInvalidDiscount        = errors.New("discount must be between 0 and 1 with at most 4 decimal places")
	ErrLineNotFound           = errors.New("product not found in cart")
	ErrProductNotFound        = errors.New("product not found")
	ErrCategoryNotFound       = errors.New("category not found")
	ErrProfileNotFound        = errors.New("profile not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrNoOrderID              = errors.New("order store returned no identifier")
	ErrOrderSealed            = errors.New("order is sealed")
	ErrCheckoutInProgress     = errors.New("another checkout for this user is in progress")
	ErrRequestInProgress      = errors.New("a request with this idempotency key is still being processed")
)

// Error carries a Kind plus enough context (operation, entity, id) to log the
// failure and decide between retry and abort.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	ID     string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Entity != "" {
		b.WriteString(e.Entity)
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op, entity string, id any, err error) *Error {
	e := &Error{Kind: kind, Op: op, Entity: entity, Err: err}
	if id != nil {
		e.ID = fmt.Sprint(id)
	}
	return e
}

func Validation(op, entity string, id any, err error) *Error {
	return newError(KindValidation, op, entity, id, err)
}

func NotFound(op, entity string, id any, err error) *Error {
	return newError(KindNotFound, op, entity, id, err)
}

func Persistence(op, entity string, id any, err error) *Error {
	return newError(KindPersistence, op, entity, id, err)
}

func Conflict(op, entity string, id any, err error) *Error {
	return newError(KindConflict, op, entity, id, err)
}

// KindOf returns the Kind of the outermost *Error in the chain, or
// KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
