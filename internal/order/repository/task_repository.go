package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orderflow/internal/domain"
	"orderflow/internal/errors"
)

type MySQLTaskRepository struct {
	db *sql.DB
}

func NewMySQLTaskRepository(db *sql.DB) *MySQLTaskRepository {
	return &MySQLTaskRepository{db: db}
}

func (r *MySQLTaskRepository) Insert(ctx context.Context, tx *sql.Tx, task domain.DeferredTask) (int64, error) {
	query := `
		INSERT INTO deferred_tasks (exchange, routing_key, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		task.Exchange, task.RoutingKey, task.Payload, int(task.Status), task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting deferred task: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}

func (r *MySQLTaskRepository) FindPending(ctx context.Context, limit int) ([]domain.DeferredTask, error) {
	query := `
		SELECT id, exchange, routing_key, payload, status, created_at, updated_at
		FROM deferred_tasks
		WHERE status = ?
		ORDER BY id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, int(domain.TaskStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("querying pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.DeferredTask
	for rows.Next() {
		var (
			task   domain.DeferredTask
			status int
		)
		if err := rows.Scan(&task.ID, &task.Exchange, &task.RoutingKey, &task.Payload, &status, &task.CreatedAt, &task.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending task: %w", err)
		}
		task.Status = domain.TaskStatus(status)
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending tasks: %w", err)
	}

	return tasks, nil
}

func (r *MySQLTaskRepository) MarkDone(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE deferred_tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.ExecContext(ctx, query, int(domain.TaskStatusDone), at, id, int(domain.TaskStatusPending))
	if err != nil {
		return fmt.Errorf("marking task done: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("pending task with id %d not found", id))
	}

	return nil
}
