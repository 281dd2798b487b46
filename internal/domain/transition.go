package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrTransitionNotAllowed = errors.New("transition not allowed")

type TransitionKind string

const (
	TransitionPay     TransitionKind = "PAY"
	TransitionShip    TransitionKind = "SHIP"
	TransitionConfirm TransitionKind = "CONFIRM"
	TransitionClose   TransitionKind = "CLOSE"
)

// Transition is a status change guarded by the statuses it was computed
// from. Stores apply it only while the row still holds From.
type Transition struct {
	Kind          TransitionKind
	OrderID       string
	From          StatusSet
	To            StatusSet
	At            time.Time
	TransactionID string
	ShippingCode  string
	ShippingName  string
}

func (o *Order) Pay(transactionRef string, at time.Time) (Transition, error) {
	if o.PayStatus != PayStatusUnpaid || o.OrderStatus != OrderStatusUnpaid {
		return Transition{}, o.notAllowed(TransitionPay)
	}
	return Transition{
		Kind:          TransitionPay,
		OrderID:       o.ID,
		From:          o.Statuses(),
		To:            StatusSet{Order: OrderStatusPaid, Pay: PayStatusPaid, Consign: o.ConsignStatus},
		At:            at,
		TransactionID: transactionRef,
	}, nil
}

func (o *Order) Ship(shippingCode, shippingName string, at time.Time) (Transition, error) {
	if o.ConsignStatus != ConsignStatusPending || o.OrderStatus != OrderStatusPaid {
		return Transition{}, o.notAllowed(TransitionShip)
	}
	return Transition{
		Kind:         TransitionShip,
		OrderID:      o.ID,
		From:         o.Statuses(),
		To:           StatusSet{Order: OrderStatusShipped, Pay: o.PayStatus, Consign: ConsignStatusShipped},
		At:           at,
		ShippingCode: shippingCode,
		ShippingName: shippingName,
	}, nil
}

func (o *Order) Confirm(at time.Time) (Transition, error) {
	if o.ConsignStatus != ConsignStatusShipped {
		return Transition{}, o.notAllowed(TransitionConfirm)
	}
	return Transition{
		Kind:    TransitionConfirm,
		OrderID: o.ID,
		From:    o.Statuses(),
		To:      StatusSet{Order: OrderStatusCompleted, Pay: o.PayStatus, Consign: ConsignStatusReceived},
		At:      at,
	}, nil
}

// Close is only reachable from an unpaid order.
func (o *Order) Close(at time.Time) (Transition, error) {
	if o.OrderStatus != OrderStatusUnpaid || o.PayStatus != PayStatusUnpaid {
		return Transition{}, o.notAllowed(TransitionClose)
	}
	return Transition{
		Kind:    TransitionClose,
		OrderID: o.ID,
		From:    o.Statuses(),
		To:      StatusSet{Order: OrderStatusClosed, Pay: o.PayStatus, Consign: o.ConsignStatus},
		At:      at,
	}, nil
}

// Apply copies the effect of t onto o.
func (o *Order) Apply(t Transition) {
	o.OrderStatus = t.To.Order
	o.PayStatus = t.To.Pay
	o.ConsignStatus = t.To.Consign
	o.UpdatedAt = t.At

	at := t.At
	switch t.Kind {
	case TransitionPay:
		o.PaidAt = &at
		o.TransactionID = t.TransactionID
	case TransitionShip:
		o.ShippedAt = &at
		o.ShippingCode = t.ShippingCode
		o.ShippingName = t.ShippingName
	case TransitionConfirm:
		o.CompletedAt = &at
	case TransitionClose:
		o.ClosedAt = &at
	}
}

func (o *Order) notAllowed(kind TransitionKind) error {
	return fmt.Errorf("%w: %s on order %s with status %s/%s/%s",
		ErrTransitionNotAllowed, kind, o.ID, o.OrderStatus, o.PayStatus, o.ConsignStatus)
}
