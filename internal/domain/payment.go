package domain

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentUnknown PaymentStatus = "UNKNOWN"
)

// PaymentState is the gateway's authoritative view of an order's payment.
type PaymentState struct {
	Status         PaymentStatus
	TransactionRef string
}
