package dto

import "time"

type CreateOrderResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   string    `json:"orderId"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderActionResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderResponse struct {
	TraceID   string         `json:"traceId"`
	Order     OrderDTO       `json:"order"`
	Lines     []OrderLineDTO `json:"lines"`
	Logs      []StatusLogDTO `json:"logs"`
	Timestamp time.Time      `json:"timestamp"`
}

type OrderDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	TotalNum        int        `json:"totalNum"`
	TotalMoney      int64      `json:"totalMoney"`
	PayMoney        int64      `json:"payMoney"`
	PayType         string     `json:"payType"`
	SourceType      string     `json:"sourceType"`
	ReceiverContact string     `json:"receiverContact"`
	ReceiverMobile  string     `json:"receiverMobile"`
	ReceiverAddress string     `json:"receiverAddress"`
	BuyerMessage    string     `json:"buyerMessage"`
	TransactionID   string     `json:"transactionId"`
	OrderStatus     int        `json:"orderStatus"`
	PayStatus       int        `json:"payStatus"`
	ConsignStatus   int        `json:"consignStatus"`
	ShippingName    string     `json:"shippingName"`
	ShippingCode    string     `json:"shippingCode"`
	CreateTime      time.Time  `json:"createTime"`
	UpdateTime      time.Time  `json:"updateTime"`
	PayTime         *time.Time `json:"payTime,omitempty"`
	ConsignTime     *time.Time `json:"consignTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	CloseTime       *time.Time `json:"closeTime,omitempty"`
}

type OrderLineDTO struct {
	ID       string `json:"id"`
	SkuID    string `json:"skuId"`
	SpuID    string `json:"spuId"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Num      int    `json:"num"`
	Money    int64  `json:"money"`
	Returned bool   `json:"returned"`
}

type StatusLogDTO struct {
	ID            string    `json:"id"`
	Operator      string    `json:"operator"`
	OrderStatus   int       `json:"orderStatus"`
	PayStatus     int       `json:"payStatus"`
	ConsignStatus int       `json:"consignStatus"`
	OperateTime   time.Time `json:"operateTime"`
	Remarks       string    `json:"remarks"`
}

type ShipmentResponse struct {
	TraceID   string    `json:"traceId"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Shipped   []string  `json:"shipped"`
	Failures  []string  `json:"failures"`
	Timestamp time.Time `json:"timestamp"`
}

type SweepResponse struct {
	TraceID   string            `json:"traceId"`
	Cutoff    time.Time         `json:"cutoff"`
	Confirmed []string          `json:"confirmed"`
	Failures  []OrderFailureDTO `json:"failures"`
	Timestamp time.Time         `json:"timestamp"`
}

type OrderFailureDTO struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

type StatisticsResponse struct {
	TraceID   string    `json:"traceId"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Unpaid    int       `json:"unpaid"`
	Paid      int       `json:"paid"`
	Shipped   int       `json:"shipped"`
	Completed int       `json:"completed"`
	Closed    int       `json:"closed"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	OrderID   string    `json:"orderId,omitempty"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
