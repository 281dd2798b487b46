package domain

import "time"

type Order struct {
	ID              string
	UserID          string
	TotalNum        int
	TotalMoney      int64
	PayMoney        int64
	PayType         string
	SourceType      string
	ReceiverContact string
	ReceiverMobile  string
	ReceiverAddress string
	BuyerMessage    string
	TransactionID   string
	OrderStatus     OrderStatus
	PayStatus       PayStatus
	ConsignStatus   ConsignStatus
	ShippingName    string
	ShippingCode    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
	ShippedAt       *time.Time
	CompletedAt     *time.Time
	ClosedAt        *time.Time
}

type OrderLine struct {
	ID       string
	OrderID  string
	SkuID    string
	SpuID    string
	Name     string
	Price    int64
	Quantity int
	Money    int64
	Returned bool
}

// OrderDraft carries the caller-supplied shipping and contact fields.
type OrderDraft struct {
	ReceiverContact string
	ReceiverMobile  string
	ReceiverAddress string
	BuyerMessage    string
	PayType         string
	SourceType      string
}

func NewOrder(id, userID string, draft OrderDraft, cart Cart, now time.Time) *Order {
	return &Order{
		ID:              id,
		UserID:          userID,
		TotalNum:        cart.TotalQuantity,
		TotalMoney:      cart.TotalAmount,
		PayMoney:        cart.TotalAmount,
		PayType:         draft.PayType,
		SourceType:      draft.SourceType,
		ReceiverContact: draft.ReceiverContact,
		ReceiverMobile:  draft.ReceiverMobile,
		ReceiverAddress: draft.ReceiverAddress,
		BuyerMessage:    draft.BuyerMessage,
		OrderStatus:     OrderStatusUnpaid,
		PayStatus:       PayStatusUnpaid,
		ConsignStatus:   ConsignStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NewOrderLine(id, orderID string, line CartLine) OrderLine {
	return OrderLine{
		ID:       id,
		OrderID:  orderID,
		SkuID:    line.SkuID,
		SpuID:    line.SpuID,
		Name:     line.Name,
		Price:    line.Price,
		Quantity: line.Quantity,
		Money:    line.Money,
	}
}

func (o *Order) Statuses() StatusSet {
	return StatusSet{Order: o.OrderStatus, Pay: o.PayStatus, Consign: o.ConsignStatus}
}

func (o *Order) IsPaid() bool {
	return o.PayStatus == PayStatusPaid
}

func (o *Order) IsClosed() bool {
	return o.OrderStatus == OrderStatusClosed
}
