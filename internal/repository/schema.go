package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	code       CHAR(6) NOT NULL UNIQUE,
	token      TEXT NOT NULL,
	push_token TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS growth_ledgers (
	user_id       UUID PRIMARY KEY,
	level         BIGINT NOT NULL DEFAULT 1,
	fed           BIGINT NOT NULL DEFAULT 0,
	pending       BIGINT NOT NULL DEFAULT 0,
	gift_received BIGINT NOT NULL DEFAULT 0,
	gift_date     TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_tasks (
	user_id   UUID NOT NULL,
	day       TEXT NOT NULL,
	task_id   TEXT NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	claimed   BOOLEAN NOT NULL DEFAULT FALSE,
	reward    BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, day, task_id)
);

CREATE TABLE IF NOT EXISTS friend_edges (
	owner_id              UUID NOT NULL,
	friend_id             UUID NOT NULL,
	unique_id             TEXT NOT NULL DEFAULT '',
	tree_level            BIGINT NOT NULL DEFAULT 1,
	pending_from_friend   BIGINT NOT NULL DEFAULT 0,
	last_gift_to_friend   TIMESTAMPTZ,
	last_gift_from_friend TIMESTAMPTZ,
	PRIMARY KEY (owner_id, friend_id)
);

CREATE TABLE IF NOT EXISTS friend_requests (
	id          UUID PRIMARY KEY,
	sender_id   UUID NOT NULL,
	receiver_id UUID NOT NULL,
	status      VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_friend_requests_receiver
	ON friend_requests (receiver_id, status);
`

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
