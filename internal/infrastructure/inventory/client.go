package inventory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apperrors "orderflow/internal/errors"
	"orderflow/internal/infrastructure/httpclient"
)

// Client calls the goods service, which owns stock counts.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

func NewClient(http *httpclient.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: baseURL}
}

// DecrementStock removes the stock held by the user's current cart.
func (c *Client) DecrementStock(ctx context.Context, userID string) error {
	q := url.Values{"username": {userID}}
	endpoint := c.baseURL + "/inventory/decrement?" + q.Encode()

	if err := c.http.Do(ctx, http.MethodPost, endpoint, nil); err != nil {
		return apperrors.NewInventoryUnavailableError("decrementing stock", err)
	}
	return nil
}

func (c *Client) RestoreStock(ctx context.Context, skuID string, quantity int) error {
	q := url.Values{"skuId": {skuID}, "num": {strconv.Itoa(quantity)}}
	endpoint := c.baseURL + "/inventory/restore?" + q.Encode()

	if err := c.http.Do(ctx, http.MethodPost, endpoint, nil); err != nil {
		return fmt.Errorf("restoring stock of sku %s: %w", skuID, err)
	}
	return nil
}
