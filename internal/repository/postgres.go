package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tree-growth-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// txMaxAttempts bounds how often a conflicting transaction is retried
// before the failure is surfaced as ErrTxRetryExhausted.
const txMaxAttempts = 5

// PostgresStore implements Store on top of serializable pgx transactions.
// Conflicting commits surface as SQLSTATE 40001/40P01 and are retried with
// a fresh snapshot, which gives the read-then-write bodies optimistic
// transaction semantics.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new Postgres-backed store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunTx implements Store.
func (s *PostgresStore) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("Transaction conflict, retrying")
	}
	return fmt.Errorf("%w: %v", ErrTxRetryExhausted, lastErr)
}

func (s *PostgresStore) runOnce(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isRetryable reports whether err is a serialization failure or deadlock,
// the two outcomes Postgres asks clients to retry.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// pgTx implements Tx for the duration of one transaction attempt.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetLedger(ctx context.Context, userID string) (*models.GrowthLedger, error) {
	query := `
		SELECT user_id, level, fed, pending, gift_received, gift_date, updated_at
		FROM growth_ledgers
		WHERE user_id = $1
	`
	var l models.GrowthLedger
	err := t.tx.QueryRow(ctx, query, userID).Scan(
		&l.UserID, &l.Level, &l.Fed, &l.Pending, &l.GiftReceived, &l.GiftDate, &l.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return &l, nil
}

func (t *pgTx) PutLedger(ctx context.Context, l *models.GrowthLedger) error {
	query := `
		INSERT INTO growth_ledgers (user_id, level, fed, pending, gift_received, gift_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			level = EXCLUDED.level,
			fed = EXCLUDED.fed,
			pending = EXCLUDED.pending,
			gift_received = EXCLUDED.gift_received,
			gift_date = EXCLUDED.gift_date,
			updated_at = EXCLUDED.updated_at
	`
	_, err := t.tx.Exec(ctx, query,
		l.UserID, l.Level, l.Fed, l.Pending, l.GiftReceived, l.GiftDate, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put ledger: %w", err)
	}
	return nil
}

func (t *pgTx) GetDailyTask(ctx context.Context, userID, day, taskID string) (*models.DailyTask, error) {
	query := `
		SELECT user_id, day, task_id, completed, claimed, reward
		FROM daily_tasks
		WHERE user_id = $1 AND day = $2 AND task_id = $3
	`
	var d models.DailyTask
	err := t.tx.QueryRow(ctx, query, userID, day, taskID).Scan(
		&d.UserID, &d.Day, &d.TaskID, &d.Completed, &d.Claimed, &d.Reward,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily task: %w", err)
	}
	return &d, nil
}

func (t *pgTx) PutDailyTask(ctx context.Context, d *models.DailyTask) error {
	query := `
		INSERT INTO daily_tasks (user_id, day, task_id, completed, claimed, reward)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, day, task_id) DO UPDATE SET
			completed = EXCLUDED.completed,
			claimed = EXCLUDED.claimed,
			reward = EXCLUDED.reward
	`
	_, err := t.tx.Exec(ctx, query,
		d.UserID, d.Day, d.TaskID, d.Completed, d.Claimed, d.Reward)
	if err != nil {
		return fmt.Errorf("failed to put daily task: %w", err)
	}
	return nil
}

func (t *pgTx) ListDailyTasks(ctx context.Context, userID, day string) ([]models.DailyTask, error) {
	query := `
		SELECT user_id, day, task_id, completed, claimed, reward
		FROM daily_tasks
		WHERE user_id = $1 AND day = $2
	`
	rows, err := t.tx.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily tasks: %w", err)
	}
	defer rows.Close()

	var out []models.DailyTask
	for rows.Next() {
		var d models.DailyTask
		if err := rows.Scan(&d.UserID, &d.Day, &d.TaskID, &d.Completed, &d.Claimed, &d.Reward); err != nil {
			return nil, fmt.Errorf("failed to scan daily task: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list daily tasks: %w", err)
	}
	return out, nil
}

func (t *pgTx) GetFriendEdge(ctx context.Context, ownerID, friendID string) (*models.FriendEdge, error) {
	query := `
		SELECT owner_id, friend_id, unique_id, tree_level, pending_from_friend,
		       last_gift_to_friend, last_gift_from_friend
		FROM friend_edges
		WHERE owner_id = $1 AND friend_id = $2
	`
	var e models.FriendEdge
	err := t.tx.QueryRow(ctx, query, ownerID, friendID).Scan(
		&e.OwnerID, &e.FriendID, &e.UniqueID, &e.TreeLevel, &e.PendingFromFriend,
		&e.LastGiftToFriend, &e.LastGiftFromFriend,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("friend edge %s->%s: %w", ownerID, friendID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get friend edge: %w", err)
	}
	return &e, nil
}

func (t *pgTx) MarkGiftSent(ctx context.Context, ownerID, friendID string, at time.Time) error {
	query := `
		UPDATE friend_edges
		SET last_gift_to_friend = $3
		WHERE owner_id = $1 AND friend_id = $2
	`
	result, err := t.tx.Exec(ctx, query, ownerID, friendID, at)
	if err != nil {
		return fmt.Errorf("failed to mark gift sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friend edge %s->%s: %w", ownerID, friendID, ErrNotFound)
	}
	return nil
}

// AddPendingGift is increment-only: the receiver's row is never read, so
// concurrent sends to the same user do not conflict with each other.
func (t *pgTx) AddPendingGift(ctx context.Context, ownerID, friendID string, amount int, at time.Time) error {
	query := `
		INSERT INTO friend_edges (owner_id, friend_id, pending_from_friend, last_gift_from_friend)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id, friend_id) DO UPDATE SET
			pending_from_friend = friend_edges.pending_from_friend + EXCLUDED.pending_from_friend,
			last_gift_from_friend = EXCLUDED.last_gift_from_friend
	`
	_, err := t.tx.Exec(ctx, query, ownerID, friendID, amount, at)
	if err != nil {
		return fmt.Errorf("failed to add pending gift: %w", err)
	}
	return nil
}

func (t *pgTx) SetPendingGift(ctx context.Context, ownerID, friendID string, pending int) error {
	query := `
		UPDATE friend_edges
		SET pending_from_friend = $3
		WHERE owner_id = $1 AND friend_id = $2
	`
	result, err := t.tx.Exec(ctx, query, ownerID, friendID, pending)
	if err != nil {
		return fmt.Errorf("failed to set pending gift: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("friend edge %s->%s: %w", ownerID, friendID, ErrNotFound)
	}
	return nil
}
