package domain

// CloseCheck is the delayed message that asks for an order's timeout
// reconciliation. Attempt starts at 1 and grows with each redelivery.
type CloseCheck struct {
	OrderID string `json:"orderId"`
	Attempt int    `json:"attempt"`
}
