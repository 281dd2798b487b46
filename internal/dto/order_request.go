package dto

type CreateOrderRequest struct {
	ReceiverContact string `json:"receiverContact"`
	ReceiverMobile  string `json:"receiverMobile"`
	ReceiverAddress string `json:"receiverAddress"`
	BuyerMessage    string `json:"buyerMessage"`
	PayType         string `json:"payType"`
	SourceType      string `json:"sourceType"`
}

type PaymentNotificationRequest struct {
	TransactionID string `json:"transactionId"`
}

type BatchShipRequest struct {
	Orders []ShipmentRequestItem `json:"orders"`
}

type ShipmentRequestItem struct {
	ID           string `json:"id"`
	ShippingCode string `json:"shippingCode"`
	ShippingName string `json:"shippingName"`
}
