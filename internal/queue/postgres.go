package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps queue messages in the signal_queue table. Claiming a message
// uses FOR UPDATE SKIP LOCKED and pushes visible_at forward, so a crashed
// worker's claim expires and the row is redelivered.
type Postgres struct {
	pool       *pgxpool.Pool
	visibility time.Duration
	poll       time.Duration
}

func NewPostgres(pool *pgxpool.Pool, visibility time.Duration) *Postgres {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &Postgres{pool: pool, visibility: visibility, poll: 250 * time.Millisecond}
}

func (q *Postgres) Enqueue(ctx context.Context, signalID string, payload []byte) error {
	_, err := q.pool.Exec(ctx, "insert into signal_queue (signal_id, payload, visible_at, created_at) values ($1, $2, now(), now())", signalID, payload)
	return err
}

func (q *Postgres) Dequeue(ctx context.Context) (*Message, error) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		msg, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Postgres) claim(ctx context.Context) (*Message, error) {
	var msg Message
	var id int64
	err := q.pool.QueryRow(ctx,
		`with next as (
			select id from signal_queue
			where visible_at <= now()
			order by id
			limit 1
			for update skip locked
		)
		update signal_queue q
		set visible_at = now() + make_interval(secs => $1), attempts = attempts + 1
		from next
		where q.id = next.id
		returning q.id, q.signal_id, q.payload, q.attempts`,
		q.visibility.Seconds()).Scan(&id, &msg.SignalID, &msg.Payload, &msg.Attempts)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg.ID = strconv.FormatInt(id, 10)
	return &msg, nil
}

func (q *Postgres) Ack(ctx context.Context, msgID string) error {
	_, err := q.pool.Exec(ctx, "delete from signal_queue where id = $1", msgID)
	return err
}

func (q *Postgres) Nack(ctx context.Context, msgID string) error {
	_, err := q.pool.Exec(ctx, "update signal_queue set visible_at = now() where id = $1", msgID)
	return err
}
