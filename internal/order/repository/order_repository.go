package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/domain"
	"orderflow/internal/errors"
)

const orderColumns = `id, user_id, total_num, total_money, pay_money, pay_type, source_type,
	receiver_contact, receiver_mobile, receiver_address, buyer_message, transaction_id,
	order_status, pay_status, consign_status, shipping_name, shipping_code,
	create_time, update_time, pay_time, consign_time, end_time, close_time`

type rowScanner interface {
	Scan(dest ...any) error
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, user_id, total_num, total_money, pay_money, pay_type, source_type,
			receiver_contact, receiver_mobile, receiver_address, buyer_message, transaction_id,
			order_status, pay_status, consign_status, shipping_name, shipping_code,
			create_time, update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		order.ID, order.UserID, order.TotalNum, order.TotalMoney, order.PayMoney, order.PayType, order.SourceType,
		order.ReceiverContact, order.ReceiverMobile, order.ReceiverAddress, order.BuyerMessage, order.TransactionID,
		int(order.OrderStatus), int(order.PayStatus), int(order.ConsignStatus), order.ShippingName, order.ShippingCode,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

// ApplyTransition updates the order only while it still holds t.From.
func (r *MySQLOrderRepository) ApplyTransition(ctx context.Context, tx *sql.Tx, t domain.Transition) error {
	set := []string{"order_status = ?", "pay_status = ?", "consign_status = ?", "update_time = ?"}
	args := []any{int(t.To.Order), int(t.To.Pay), int(t.To.Consign), t.At}

	switch t.Kind {
	case domain.TransitionPay:
		set = append(set, "pay_time = ?", "transaction_id = ?")
		args = append(args, t.At, t.TransactionID)
	case domain.TransitionShip:
		set = append(set, "consign_time = ?", "shipping_code = ?", "shipping_name = ?")
		args = append(args, t.At, t.ShippingCode, t.ShippingName)
	case domain.TransitionConfirm:
		set = append(set, "end_time = ?")
		args = append(args, t.At)
	case domain.TransitionClose:
		set = append(set, "close_time = ?")
		args = append(args, t.At)
	}

	query := `UPDATE orders SET ` + strings.Join(set, ", ") +
		` WHERE id = ? AND order_status = ? AND pay_status = ? AND consign_status = ?`
	args = append(args, t.OrderID, int(t.From.Order), int(t.From.Pay), int(t.From.Consign))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewConflictError(fmt.Sprintf("order %s no longer in status %s/%s/%s",
			t.OrderID, t.From.Order, t.From.Pay, t.From.Consign))
	}

	return nil
}

func (r *MySQLOrderRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}

	return nil
}

// FindShippedBefore lists shipped, unconfirmed orders whose shipment is older than cutoff.
func (r *MySQLOrderRepository) FindShippedBefore(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE order_status = ? AND consign_time < ?
		ORDER BY consign_time`

	rows, err := r.db.QueryContext(ctx, query, int(domain.OrderStatusShipped), cutoff)
	if err != nil {
		return nil, fmt.Errorf("querying shipped orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning shipped order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shipped orders: %w", err)
	}

	return orders, nil
}

func (r *MySQLOrderRepository) CountByStatus(ctx context.Context, start, end time.Time) (map[domain.OrderStatus]int, error) {
	query := `
		SELECT order_status, COUNT(*)
		FROM orders
		WHERE create_time BETWEEN ? AND ?
		GROUP BY order_status
	`

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[domain.OrderStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return counts, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var orderStatus, payStatus, consignStatus int
	var payTime, consignTime, endTime, closeTime sql.NullTime

	err := row.Scan(
		&order.ID, &order.UserID, &order.TotalNum, &order.TotalMoney, &order.PayMoney, &order.PayType, &order.SourceType,
		&order.ReceiverContact, &order.ReceiverMobile, &order.ReceiverAddress, &order.BuyerMessage, &order.TransactionID,
		&orderStatus, &payStatus, &consignStatus, &order.ShippingName, &order.ShippingCode,
		&order.CreatedAt, &order.UpdatedAt, &payTime, &consignTime, &endTime, &closeTime,
	)
	if err != nil {
		return nil, err
	}

	order.OrderStatus = domain.OrderStatus(orderStatus)
	order.PayStatus = domain.PayStatus(payStatus)
	order.ConsignStatus = domain.ConsignStatus(consignStatus)
	order.PaidAt = timePtr(payTime)
	order.ShippedAt = timePtr(consignTime)
	order.CompletedAt = timePtr(endTime)
	order.ClosedAt = timePtr(closeTime)

	return &order, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
