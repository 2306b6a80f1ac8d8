package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`create table if not exists webhook_accounts (
		id uuid primary key default gen_random_uuid(),
		key_id text unique not null,
		secret_hash text not null,
		label text not null default '',
		active boolean not null default true,
		created_at timestamptz not null default now()
	)`,
	`create table if not exists trading_signals (
		id uuid primary key default gen_random_uuid(),
		account_id text not null,
		raw_text text not null,
		status text not null,
		error_message text not null default '',
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	)`,
	`create table if not exists orders (
		id uuid primary key default gen_random_uuid(),
		signal_id text unique not null,
		side text not null,
		instrument text not null,
		entry_price numeric,
		stop_loss numeric not null,
		take_profit numeric not null,
		raw_text text not null default '',
		status text not null,
		fill_price numeric,
		closed_price numeric,
		reject_reason text not null default '',
		version bigint not null default 0,
		created_at timestamptz not null,
		executed_at timestamptz,
		closed_at timestamptz
	)`,
	`create index if not exists orders_status_idx on orders (status)`,
	`create table if not exists order_history (
		id uuid primary key default gen_random_uuid(),
		order_id text not null,
		status text not null,
		detail text not null default '',
		created_at timestamptz not null default now()
	)`,
	`create index if not exists order_history_order_idx on order_history (order_id)`,
	`create table if not exists signal_queue (
		id bigserial primary key,
		signal_id text not null,
		payload bytea not null,
		attempts int not null default 0,
		visible_at timestamptz not null default now(),
		created_at timestamptz not null default now()
	)`,
	`create index if not exists signal_queue_visible_idx on signal_queue (visible_at)`,
}

// Migrate creates the schema idempotently at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
