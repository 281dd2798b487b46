package domain

// The three status fields evolve on different triggers and are stored
// independently; StatusSet groups them for conditional updates.

type OrderStatus int

const (
	OrderStatusUnpaid OrderStatus = iota
	OrderStatusPaid
	OrderStatusShipped
	OrderStatusCompleted
	OrderStatusClosed
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusUnpaid:
		return "UNPAID"
	case OrderStatusPaid:
		return "PAID"
	case OrderStatusShipped:
		return "SHIPPED"
	case OrderStatusCompleted:
		return "COMPLETED"
	case OrderStatusClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

type PayStatus int

const (
	PayStatusUnpaid PayStatus = iota
	PayStatusPaid
)

func (s PayStatus) String() string {
	if s == PayStatusPaid {
		return "PAID"
	}
	return "UNPAID"
}

type ConsignStatus int

const (
	ConsignStatusPending ConsignStatus = iota
	ConsignStatusShipped
	ConsignStatusReceived
)

func (s ConsignStatus) String() string {
	switch s {
	case ConsignStatusPending:
		return "PENDING"
	case ConsignStatusShipped:
		return "SHIPPED"
	case ConsignStatusReceived:
		return "RECEIVED"
	default:
		return "UNKNOWN"
	}
}

type StatusSet struct {
	Order   OrderStatus
	Pay     PayStatus
	Consign ConsignStatus
}
