package domain

import "time"

const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
)

type StatusLogEntry struct {
	ID            string
	OrderID       string
	Operator      string
	OrderStatus   OrderStatus
	PayStatus     PayStatus
	ConsignStatus ConsignStatus
	OperatedAt    time.Time
	Remarks       string
}

// NewStatusLogEntry records the statuses an order holds after t.
func NewStatusLogEntry(id string, t Transition, operator, remarks string) StatusLogEntry {
	return StatusLogEntry{
		ID:            id,
		OrderID:       t.OrderID,
		Operator:      operator,
		OrderStatus:   t.To.Order,
		PayStatus:     t.To.Pay,
		ConsignStatus: t.To.Consign,
		OperatedAt:    t.At,
		Remarks:       remarks,
	}
}
