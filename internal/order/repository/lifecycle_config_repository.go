package repository

import (
	"context"
	"database/sql"
	"fmt"

	"orderflow/internal/domain"
	"orderflow/internal/errors"
)

type MySQLLifecycleConfigRepository struct {
	db *sql.DB
}

func NewMySQLLifecycleConfigRepository(db *sql.DB) *MySQLLifecycleConfigRepository {
	return &MySQLLifecycleConfigRepository{db: db}
}

func (r *MySQLLifecycleConfigRepository) Get(ctx context.Context) (*domain.LifecycleConfig, error) {
	query := `
		SELECT id, take_timeout_days, order_timeout_minutes, updated_at
		FROM lifecycle_config
		WHERE id = ?
	`

	var cfg domain.LifecycleConfig
	err := r.db.QueryRowContext(ctx, query, domain.LifecycleConfigID).Scan(
		&cfg.ID, &cfg.TakeTimeoutDays, &cfg.OrderTimeoutMinutes, &cfg.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("lifecycle config %d not found", domain.LifecycleConfigID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying lifecycle config: %w", err)
	}

	return &cfg, nil
}
