package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionExpired is returned when a payment session passed its deadline
	ErrSessionExpired = errors.New("payment session has expired")
	// ErrAlreadyVerified is returned when a payment session is already PAID
	ErrAlreadyVerified = errors.New("payment session already verified")
)

// ValidationError reports malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports an unknown hotel, room type, room, booking, session or coupon
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidStateError reports a lifecycle action attempted from a disallowed state
type InvalidStateError struct {
	Resource string
	ID       string
	Current  string
	Action   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Action, e.Resource, e.ID, e.Current)
}

func NewInvalidStateError(resource, id, current, action string) *InvalidStateError {
	return &InvalidStateError{Resource: resource, ID: id, Current: current, Action: action}
}

// CapacityError reports that no inventory is left for the requested stay
type CapacityError struct {
	RoomTypeID string
	CheckIn    time.Time
	CheckOut   time.Time
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("no rooms of type %s available from %s to %s",
		e.RoomTypeID, FormatDate(e.CheckIn), FormatDate(e.CheckOut))
}

// CouponReason identifies why a coupon was rejected
type CouponReason string

const (
	CouponInvalidCode  CouponReason = "INVALID_CODE"
	CouponExpired      CouponReason = "EXPIRED_OR_NOT_YET_VALID"
	CouponWrongHotel   CouponReason = "WRONG_HOTEL"
	CouponLimitReached CouponReason = "LIMIT_REACHED"
	CouponBelowMinimum CouponReason = "BELOW_MINIMUM"
	CouponAlreadyUsed  CouponReason = "ALREADY_USED"
)

var couponMessages = map[CouponReason]string{
	CouponInvalidCode:  "coupon code is not valid",
	CouponExpired:      "coupon has expired or is not yet valid",
	CouponWrongHotel:   "coupon is not valid for this hotel",
	CouponLimitReached: "coupon usage limit has been reached",
	CouponBelowMinimum: "booking amount is below the coupon minimum",
	CouponAlreadyUsed:  "coupon has already been used by this user",
}

// Message is a human-readable description of the reason
func (r CouponReason) Message() string {
	if m, ok := couponMessages[r]; ok {
		return m
	}
	return string(r)
}

// CouponError reports a coupon rejected by one of the validator checks
type CouponError struct {
	Code   string
	Reason CouponReason
}

func (e *CouponError) Error() string {
	return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason.Message())
}

func NewCouponError(code string, reason CouponReason) *CouponError {
	return &CouponError{Code: code, Reason: reason}
}

// PaymentFailedError reports a definitive failure from the payment rail
type PaymentFailedError struct {
	SessionID string
	Reason    string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment for session %s failed: %s", e.SessionID, e.Reason)
}

// DuplicateTransactionError reports an external transaction that already
// settled another payment session
type DuplicateTransactionError struct {
	Method                PaymentMethod
	ExternalTransactionID string
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("%s transaction %s already settled another payment", e.Method, e.ExternalTransactionID)
}

func NewDuplicateTransactionError(method PaymentMethod, externalTxnID string) *DuplicateTransactionError {
	return &DuplicateTransactionError{Method: method, ExternalTransactionID: externalTxnID}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInvalidStateError(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

func IsCapacityError(err error) bool {
	var target *CapacityError
	return errors.As(err, &target)
}

// AsCouponError returns the coupon error in err's chain, if any
func AsCouponError(err error) (*CouponError, bool) {
	var target *CouponError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func IsCouponError(err error) bool {
	_, ok := AsCouponError(err)
	return ok
}

func IsPaymentFailedError(err error) bool {
	var target *PaymentFailedError
	return errors.As(err, &target)
}

func IsDuplicateTransactionError(err error) bool {
	var target *DuplicateTransactionError
	return errors.As(err, &target)
}
