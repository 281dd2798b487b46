package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type TaskStatus int

const (
	TaskStatusPending TaskStatus = iota
	TaskStatusDone
)

type DeferredTask struct {
	ID         int64
	Exchange   string
	RoutingKey string
	Payload    []byte
	Status     TaskStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PointsAward is the payload of the loyalty-point task created with every order.
type PointsAward struct {
	Username string `json:"username"`
	OrderID  string `json:"orderId"`
	Point    int64  `json:"point"`
}

func NewPointsTask(exchange, routingKey string, order *Order, now time.Time) (DeferredTask, error) {
	payload, err := json.Marshal(PointsAward{
		Username: order.UserID,
		OrderID:  order.ID,
		Point:    order.PayMoney,
	})
	if err != nil {
		return DeferredTask{}, fmt.Errorf("encoding points award: %w", err)
	}

	return DeferredTask{
		Exchange:   exchange,
		RoutingKey: routingKey,
		Payload:    payload,
		Status:     TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
