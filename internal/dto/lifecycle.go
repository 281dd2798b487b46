package dto

import (
	"time"

	"orderflow/internal/domain"
)

type ShipmentItem struct {
	OrderID      string
	ShippingCode string
	ShippingName string
}

// ShipmentReport aggregates a batch shipment. Success is true only when
// every order shipped.
type ShipmentReport struct {
	Success  bool
	Message  string
	Shipped  []string
	Failures []string
}

type OrderFailure struct {
	OrderID string
	Reason  string
}

type SweepReport struct {
	Cutoff    time.Time
	Confirmed []string
	Failures  []OrderFailure
}

type OrderDetails struct {
	Order *domain.Order
	Lines []domain.OrderLine
	Logs  []domain.StatusLogEntry
}
