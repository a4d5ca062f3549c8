package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifier/pkg/notification"
	"github.com/dmitrymomot/notifier/pkg/pg"
)

// Postgres implements Store on a pgx connection pool. Schema lives in the
// migrations directory and is applied with pg.Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// CreateRequest implements Store. Idempotency-key uniqueness is enforced by
// the unique index; SQLSTATE 23505 maps to notification.ErrDuplicateRequest.
func (s *Postgres) CreateRequest(ctx context.Context, req notification.Request) error {
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_requests
			(id, idempotency_key, producer_name, recipient_id, channel, target_address, priority, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)`,
		req.ID, req.IdempotencyKey, req.ProducerName, req.RecipientID,
		req.Channel, req.TargetAddress, req.Priority, req.Payload, createdAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return notification.ErrDuplicateRequest
		}
		return err
	}
	return nil
}

// GetRequest implements Store.
func (s *Postgres) GetRequest(ctx context.Context, id uuid.UUID) (*notification.Request, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, idempotency_key, producer_name, recipient_id, channel, target_address, priority, payload, created_at
		FROM notification_requests
		WHERE id = $1`, id)

	req, err := scanRequest(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notification.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// CreateDeliveryLog implements Store. ON CONFLICT DO NOTHING keeps the
// insert race-free under concurrent redelivery; when the insert is skipped
// the existing record is loaded and returned with ErrDeliveryLogExists.
func (s *Postgres) CreateDeliveryLog(ctx context.Context, log *notification.DeliveryLog) error {
	now := time.Now()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = log.CreatedAt

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO delivery_logs
			(id, request_id, recipient_id, channel, target_address, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)
		ON CONFLICT (request_id, channel) DO NOTHING`,
		log.ID, log.RequestID, log.RecipientID, log.Channel, log.TargetAddress,
		log.Status, log.ErrorMessage, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	existing, err := s.GetDeliveryLog(ctx, log.RequestID, log.Channel)
	if err != nil {
		return err
	}
	*log = *existing
	return notification.ErrDeliveryLogExists
}

// GetDeliveryLog implements Store.
func (s *Postgres) GetDeliveryLog(ctx context.Context, requestID uuid.UUID, channel notification.Channel) (*notification.DeliveryLog, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, request_id, recipient_id, channel, target_address, status, COALESCE(error_message, ''), created_at, updated_at
		FROM delivery_logs
		WHERE request_id = $1 AND channel = $2`, requestID, channel)

	log, err := scanDeliveryLog(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, notification.ErrDeliveryLogNotFound
		}
		return nil, err
	}
	return log, nil
}

// UpdateDeliveryStatus implements Store. The WHERE guard restricts the
// update to rows whose current status may legally precede the target, which
// serializes concurrent writers at row level and keeps the state machine
// forward-only without a read-modify-write cycle.
func (s *Postgres) UpdateDeliveryStatus(ctx context.Context, logID uuid.UUID, status notification.Status, errorMessage string) error {
	sources := transitionSources(status)
	if len(sources) == 0 {
		return notification.ErrInvalidTransition
	}

	from := make([]string, len(sources))
	for i, src := range sources {
		from[i] = string(src)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_logs
		SET status = $2, error_message = NULLIF($3, ''), updated_at = now()
		WHERE id = $1 AND status = ANY($4)`,
		logID, status, errorMessage, from,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivery_logs WHERE id = $1)`, logID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notification.ErrDeliveryLogNotFound
	}
	return notification.ErrInvalidTransition
}

// ListUnroutedRequests implements Store.
func (s *Postgres) ListUnroutedRequests(ctx context.Context, olderThan time.Time) ([]notification.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.idempotency_key, r.producer_name, r.recipient_id, r.channel, r.target_address, r.priority, r.payload, r.created_at
		FROM notification_requests r
		LEFT JOIN delivery_logs d ON d.request_id = r.id
		WHERE d.id IS NULL AND r.created_at < $1
		ORDER BY r.created_at`, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []notification.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// ListDeliveryLogs implements Store.
func (s *Postgres) ListDeliveryLogs(ctx context.Context, requestID uuid.UUID) ([]notification.DeliveryLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, request_id, recipient_id, channel, target_address, status, COALESCE(error_message, ''), created_at, updated_at
		FROM delivery_logs
		WHERE request_id = $1
		ORDER BY created_at`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []notification.DeliveryLog
	for rows.Next() {
		log, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

func scanRequest(row pgx.Row) (*notification.Request, error) {
	var req notification.Request
	var targetAddress *string
	if err := row.Scan(
		&req.ID, &req.IdempotencyKey, &req.ProducerName, &req.RecipientID,
		&req.Channel, &targetAddress, &req.Priority, &req.Payload, &req.CreatedAt,
	); err != nil {
		return nil, err
	}
	if targetAddress != nil {
		req.TargetAddress = *targetAddress
	}
	return &req, nil
}

func scanDeliveryLog(row pgx.Row) (*notification.DeliveryLog, error) {
	var log notification.DeliveryLog
	var targetAddress *string
	if err := row.Scan(
		&log.ID, &log.RequestID, &log.RecipientID, &log.Channel,
		&targetAddress, &log.Status, &log.ErrorMessage, &log.CreatedAt, &log.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if targetAddress != nil {
		log.TargetAddress = *targetAddress
	}
	return &log, nil
}
