// Package postgres stores the roster audit log.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activities/internal/consumer"
)

// AuditRepository appends consumed roster events to roster_event_log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append inserts the record. Redelivered events with a known event_id are ignored.
func (r *AuditRepository) Append(ctx context.Context, rec consumer.AuditRecord) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx,
		`INSERT INTO roster_event_log (event_id, event_type, activity, participant, roster_size, occurred_at, topic, partition, record_offset, schema_id)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
         ON CONFLICT (event_id) DO NOTHING`,
		rec.Event.EventID,
		rec.Event.EventType,
		rec.Event.Activity,
		rec.Event.Participant,
		rec.Event.RosterSize,
		rec.Event.OccurredAt,
		rec.Topic,
		rec.Partition,
		rec.Offset,
		rec.SchemaID,
	)
	return err
}

var _ consumer.AuditStore = (*AuditRepository)(nil)
