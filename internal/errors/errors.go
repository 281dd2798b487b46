package errors

import (
	"errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// NotFoundError reports a missing order or configuration row.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}

// ConflictError reports a conditional update that matched no row because
// another transition moved the order first, or a busy per-order lock.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// InvalidDeliveryStateError reports a confirmation attempted on an order
// that is not shipped-and-unreceived.
type InvalidDeliveryStateError struct {
	OrderID       string
	ConsignStatus int
}

func (e *InvalidDeliveryStateError) Error() string {
	return fmt.Sprintf("order %s has consign status %d, expected shipped", e.OrderID, e.ConsignStatus)
}

func NewInvalidDeliveryStateError(orderID string, consignStatus int) *InvalidDeliveryStateError {
	return &InvalidDeliveryStateError{OrderID: orderID, ConsignStatus: consignStatus}
}

func IsInvalidDeliveryStateError(err error) (*InvalidDeliveryStateError, bool) {
	var ie *InvalidDeliveryStateError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

type EmptyCartError struct {
	UserID string
}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("cart of user %s is empty", e.UserID)
}

func NewEmptyCartError(userID string) *EmptyCartError {
	return &EmptyCartError{UserID: userID}
}

func IsEmptyCartError(err error) (*EmptyCartError, bool) {
	var ee *EmptyCartError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// InventoryUnavailableError is always retryable by the caller.
type InventoryUnavailableError struct {
	Message string
	Cause   error
}

func (e *InventoryUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InventoryUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *InventoryUnavailableError) Retryable() bool {
	return true
}

func NewInventoryUnavailableError(message string, cause error) *InventoryUnavailableError {
	return &InventoryUnavailableError{Message: message, Cause: cause}
}

func IsInventoryUnavailableError(err error) (*InventoryUnavailableError, bool) {
	var ie *InventoryUnavailableError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

type PaymentGatewayError struct {
	Message string
	Cause   error
}

func (e *PaymentGatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PaymentGatewayError) Unwrap() error {
	return e.Cause
}

func NewPaymentGatewayError(message string, cause error) *PaymentGatewayError {
	return &PaymentGatewayError{Message: message, Cause: cause}
}

func IsPaymentGatewayError(err error) (*PaymentGatewayError, bool) {
	var pe *PaymentGatewayError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type CartUnavailableError struct {
	Message string
	Cause   error
}

func (e *CartUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CartUnavailableError) Unwrap() error {
	return e.Cause
}

func NewCartUnavailableError(message string, cause error) *CartUnavailableError {
	return &CartUnavailableError{Message: message, Cause: cause}
}

func IsCartUnavailableError(err error) (*CartUnavailableError, bool) {
	var ce *CartUnavailableError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
