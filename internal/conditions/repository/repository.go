package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loan_pipeline_backend/internal/conditions/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("condition not found")
	ErrVersionConflict = errors.New("condition was modified concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conditionColumns = `id, lead_id, title, status, document_id, due_date, priority, needed_from, notes, created_at, updated_at, version`

// saveConditionQuery writes the mutable columns guarded by the version the
// caller read.
const saveConditionQuery = `
	UPDATE loan_conditions SET
		title = $2, status = $3, document_id = $4, due_date = $5,
		priority = $6, needed_from = $7, notes = $8, updated_at = $9,
		version = version + 1
	WHERE id = $1 AND version = $10
	RETURNING ` + conditionColumns

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCondition(row rowScanner) (domain.Condition, error) {
	var (
		c        domain.Condition
		status   string
		priority string
	)
	if err := row.Scan(
		&c.ID,
		&c.LeadID,
		&c.Title,
		&status,
		&c.DocumentID,
		&c.DueDate,
		&priority,
		&c.NeededFrom,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.Version,
	); err != nil {
		return domain.Condition{}, err
	}
	c.Status = domain.Status(status)
	c.Priority = domain.Priority(priority)
	return c, nil
}

// LeadExists reports whether the lead a condition attaches to exists.
func (r *Repository) LeadExists(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists)
	return exists, err
}

// Create inserts one or more conditions in a single transaction.
func (r *Repository) Create(ctx context.Context, conditions ...domain.Condition) error {
	if len(conditions) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range conditions {
		batch.Queue(`
			INSERT INTO loan_conditions (`+conditionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			c.ID, c.LeadID, c.Title, string(c.Status), c.DocumentID, c.DueDate,
			string(c.Priority), c.NeededFrom, c.Notes, c.CreatedAt, c.UpdatedAt, c.Version,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range conditions {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert condition: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to insert condition: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Condition, error) {
	c, err := scanCondition(r.pool.QueryRow(ctx, `SELECT `+conditionColumns+` FROM loan_conditions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Condition{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Condition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conditionColumns+`
		FROM loan_conditions
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Condition, 0)
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// Save writes every mutable column of c when the stored version still equals
// c.Version and, when present, appends the history entry in the same
// transaction. The stored condition is returned with its new version.
func (r *Repository) Save(ctx context.Context, c domain.Condition, history *domain.HistoryEntry) (domain.Condition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Condition{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	saved, err := scanCondition(tx.QueryRow(ctx, saveConditionQuery, saveArgs(c)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Condition{}, missingRowError(ctx, tx, c.ID)
	}
	if err != nil {
		return domain.Condition{}, fmt.Errorf("failed to update condition: %w", err)
	}

	if history != nil {
		if err := appendHistory(ctx, tx, *history); err != nil {
			return domain.Condition{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Condition{}, err
	}
	return saved, nil
}

func saveArgs(c domain.Condition) []any {
	return []any{
		c.ID, c.Title, string(c.Status), c.DocumentID, c.DueDate,
		string(c.Priority), c.NeededFrom, c.Notes, c.UpdatedAt, c.Version,
	}
}

// missingRowError tells a stale version apart from a deleted condition.
func missingRowError(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM loan_conditions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func appendHistory(ctx context.Context, tx pgx.Tx, entry domain.HistoryEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO loan_condition_history (id, condition_id, actor_id, old_status, new_status, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ConditionID, nullableUUID(entry.ActorID), string(entry.OldStatus), string(entry.NewStatus), entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append condition history: %w", err)
	}
	return nil
}

// Delete removes the condition. Its history is kept.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM loan_conditions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, conditionID uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, condition_id, actor_id, old_status, new_status, changed_at
		FROM loan_condition_history
		WHERE condition_id = $1
		ORDER BY changed_at ASC, id ASC
	`, conditionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var (
			entry     domain.HistoryEntry
			actorID   *uuid.UUID
			oldStatus string
			newStatus string
			changedAt time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.ConditionID, &actorID, &oldStatus, &newStatus, &changedAt); err != nil {
			return nil, err
		}
		if actorID != nil {
			entry.ActorID = *actorID
		}
		entry.OldStatus = domain.Status(oldStatus)
		entry.NewStatus = domain.Status(newStatus)
		entry.ChangedAt = changedAt
		entries = append(entries, entry)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return entries, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
