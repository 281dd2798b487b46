package payment

import (
	"context"
	"net/http"
	"net/url"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
	"orderflow/internal/infrastructure/httpclient"
)

const (
	tradeStateSuccess = "SUCCESS"
	tradeStateNotPay  = "NOTPAY"
)

type queryResponse struct {
	TradeState    string `json:"trade_state"`
	TransactionID string `json:"transaction_id"`
}

type Client struct {
	http    *httpclient.Client
	baseURL string
}

func NewClient(http *httpclient.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: baseURL}
}

// QueryPaymentState maps the gateway trade state: SUCCESS is paid, NOTPAY
// is unpaid and anything else is unknown.
func (c *Client) QueryPaymentState(ctx context.Context, orderID string) (domain.PaymentState, error) {
	var resp queryResponse
	endpoint := c.baseURL + "/payments/" + url.PathEscape(orderID)

	if err := c.http.Do(ctx, http.MethodGet, endpoint, &resp); err != nil {
		return domain.PaymentState{}, apperrors.NewPaymentGatewayError("querying payment state", err)
	}

	state := domain.PaymentState{Status: domain.PaymentUnknown, TransactionRef: resp.TransactionID}
	switch resp.TradeState {
	case tradeStateSuccess:
		state.Status = domain.PaymentPaid
	case tradeStateNotPay:
		state.Status = domain.PaymentUnpaid
	}

	return state, nil
}

func (c *Client) ClosePayment(ctx context.Context, orderID string) error {
	endpoint := c.baseURL + "/payments/" + url.PathEscape(orderID) + "/close"

	if err := c.http.Do(ctx, http.MethodPost, endpoint, nil); err != nil {
		return apperrors.NewPaymentGatewayError("closing payment", err)
	}
	return nil
}
