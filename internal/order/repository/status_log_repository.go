package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderflow/internal/domain"
)

// MySQLStatusLogRepository is append-only: entries are never updated or deleted.
type MySQLStatusLogRepository struct {
	db *sql.DB
}

func NewMySQLStatusLogRepository(db *sql.DB) *MySQLStatusLogRepository {
	return &MySQLStatusLogRepository{db: db}
}

func (r *MySQLStatusLogRepository) Insert(ctx context.Context, tx *sql.Tx, entry domain.StatusLogEntry) error {
	query := `
		INSERT INTO order_status_logs (id, order_id, operator, order_status, pay_status, consign_status, operate_time, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		entry.ID, entry.OrderID, entry.Operator,
		int(entry.OrderStatus), int(entry.PayStatus), int(entry.ConsignStatus),
		entry.OperatedAt, entry.Remarks,
	)
	if err != nil {
		return fmt.Errorf("inserting status log: %w", err)
	}

	return nil
}

func (r *MySQLStatusLogRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.StatusLogEntry, error) {
	query := `
		SELECT id, order_id, operator, order_status, pay_status, consign_status, operate_time, remarks
		FROM order_status_logs
		WHERE order_id = ?
		ORDER BY operate_time, id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying status logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.StatusLogEntry
	for rows.Next() {
		var entry domain.StatusLogEntry
		var orderStatus, payStatus, consignStatus int
		if err := rows.Scan(
			&entry.ID, &entry.OrderID, &entry.Operator,
			&orderStatus, &payStatus, &consignStatus,
			&entry.OperatedAt, &entry.Remarks,
		); err != nil {
			return nil, fmt.Errorf("scanning status log: %w", err)
		}
		entry.OrderStatus = domain.OrderStatus(orderStatus)
		entry.PayStatus = domain.PayStatus(payStatus)
		entry.ConsignStatus = domain.ConsignStatus(consignStatus)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status logs: %w", err)
	}

	return entries, nil
}
