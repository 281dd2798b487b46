package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"orderflow/internal/domain"
	apperrors "orderflow/internal/errors"
)

const cartKeyPrefix = "cart_"

// cartItem is one hash field value of cart_<userID>, keyed by sku id.
type cartItem struct {
	SkuID string `json:"skuId"`
	SpuID string `json:"spuId"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Num   int    `json:"num"`
	Money int64  `json:"money"`
}

type CartStore struct {
	client goredis.Cmdable
}

func NewCartStore(client goredis.Cmdable) *CartStore {
	return &CartStore{client: client}
}

func (s *CartStore) ReadCart(ctx context.Context, userID string) (domain.Cart, error) {
	values, err := s.client.HVals(ctx, cartKey(userID)).Result()
	if err != nil {
		return domain.Cart{}, apperrors.NewCartUnavailableError("reading cart", err)
	}

	lines := make([]domain.CartLine, 0, len(values))
	for _, v := range values {
		var item cartItem
		if err := json.Unmarshal([]byte(v), &item); err != nil {
			return domain.Cart{}, apperrors.NewCartUnavailableError(fmt.Sprintf("decoding cart item of user %s", userID), err)
		}

		money := item.Money
		if money == 0 {
			money = item.Price * int64(item.Num)
		}

		lines = append(lines, domain.CartLine{
			SkuID:    item.SkuID,
			SpuID:    item.SpuID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Num,
			Money:    money,
		})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].SkuID < lines[j].SkuID })

	return domain.NewCart(lines), nil
}

func (s *CartStore) InvalidateCart(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}
