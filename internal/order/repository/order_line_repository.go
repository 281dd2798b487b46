package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderflow/internal/domain"
)

type MySQLOrderLineRepository struct {
	db *sql.DB
}

func NewMySQLOrderLineRepository(db *sql.DB) *MySQLOrderLineRepository {
	return &MySQLOrderLineRepository{db: db}
}

func (r *MySQLOrderLineRepository) Insert(ctx context.Context, tx *sql.Tx, line domain.OrderLine) error {
	query := `
		INSERT INTO order_lines (id, order_id, sku_id, spu_id, name, price, num, money, is_returned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		line.ID, line.OrderID, line.SkuID, line.SpuID, line.Name, line.Price, line.Quantity, line.Money, line.Returned,
	)
	if err != nil {
		return fmt.Errorf("inserting order line: %w", err)
	}

	return nil
}

func (r *MySQLOrderLineRepository) FindByOrderID(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	query := `
		SELECT id, order_id, sku_id, spu_id, name, price, num, money, is_returned
		FROM order_lines
		WHERE order_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.SkuID, &line.SpuID, &line.Name,
			&line.Price, &line.Quantity, &line.Money, &line.Returned,
		); err != nil {
			return nil, fmt.Errorf("scanning order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order lines: %w", err)
	}

	return lines, nil
}

func (r *MySQLOrderLineRepository) DeleteByOrderID(ctx context.Context, tx *sql.Tx, orderID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("deleting order lines: %w", err)
	}
	return nil
}
