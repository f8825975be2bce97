package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// outboxClaimTTL is how long a fetched batch stays invisible to other
// dispatchers. A replica that dies mid-batch leaves its rows to be picked up
// once the claim lapses.
const outboxClaimTTL = 30 * time.Second

type PgOutboxRepository struct {
	db       *sql.DB
	claimTTL time.Duration
}

func NewPgOutboxRepository(db *sql.DB) *PgOutboxRepository {
	return &PgOutboxRepository{db: db, claimTTL: outboxClaimTTL}
}

func (r *PgOutboxRepository) Insert(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	occurred := time.Now().UTC()
	if msg.OccurredAtUtc != 0 {
		occurred = time.Unix(msg.OccurredAtUtc, 0).UTC()
	}

	const q = `
        insert into outbox_messages (id, type, payload_json, occurred_at_utc, retry_count)
        values ($1, $2, $3, $4, $5)
    `
	_, err := r.db.ExecContext(ctx, q, msg.ID, msg.Type, msg.PayloadJSON, occurred, msg.RetryCount)
	return mapUnique(err, domain.ErrAlreadyExists)
}

// GetPendingBatch claims up to batchSize unprocessed rows below maxRetry,
// oldest first. Rows claimed by another dispatcher are skipped, so replicas
// sharing the table do not publish the same message twice.
func (r *PgOutboxRepository) GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]domain.OutboxMessage, error) {
	const q = `
        with next as (
            select id
            from outbox_messages
            where processed_at_utc is null
              and retry_count < $1
              and (claimed_until is null or claimed_until < now())
            order by occurred_at_utc
            limit $2
            for update skip locked
        )
        , claimed as (
            update outbox_messages m
            set claimed_until = now() + make_interval(secs => $3)
            from next
            where m.id = next.id
            returning m.id, m.type, m.payload_json, m.occurred_at_utc, m.retry_count
        )
        select id, type, payload_json, occurred_at_utc, retry_count
        from claimed
        order by occurred_at_utc
    `
	rows, err := r.db.QueryContext(ctx, q, maxRetry, batchSize, r.claimTTL.Seconds())
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var batch []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		var occurred time.Time
		if err := rows.Scan(&msg.ID, &msg.Type, &msg.PayloadJSON, &occurred, &msg.RetryCount); err != nil {
			return nil, err
		}
		msg.OccurredAtUtc = occurred.Unix()
		batch = append(batch, msg)
	}
	return batch, mapErr(rows.Err())
}

// Save records the dispatch attempt and drops the claim. A processed row
// never goes back to pending.
func (r *PgOutboxRepository) Save(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		return errors.New("outbox message id is empty")
	}
	var processed sql.NullTime
	if msg.ProcessedAtUtc != nil {
		processed = sql.NullTime{Time: time.Unix(*msg.ProcessedAtUtc, 0).UTC(), Valid: true}
	}

	const q = `
        update outbox_messages
        set retry_count = $2,
            processed_at_utc = coalesce(processed_at_utc, $3),
            claimed_until = null
        where id = $1
    `
	res, err := r.db.ExecContext(ctx, q, msg.ID, msg.RetryCount, processed)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
