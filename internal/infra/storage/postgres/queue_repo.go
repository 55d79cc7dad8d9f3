package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage"
)

// QueueRepo is the durable sync queue backed by Postgres.
type QueueRepo struct {
	db *DB
}

func NewQueueRepo(db *DB) *QueueRepo {
	return &QueueRepo{db: db}
}

type queueRow struct {
	ID             string    `db:"id"`
	Kind           string    `db:"kind"`
	Priority       string    `db:"priority"`
	PriorityRank   int       `db:"priority_rank"`
	Payload        []byte    `db:"payload"`
	CreatedAt      time.Time `db:"created_at"`
	Attempts       int       `db:"attempts"`
	NextEligibleAt time.Time `db:"next_eligible_at"`
	Status         string    `db:"status"`
	LastError      string    `db:"last_error"`
}

func (r queueRow) toDomain() *domain.QueueItem {
	return &domain.QueueItem{
		ID:             r.ID,
		Kind:           domain.ItemKind(r.Kind),
		Priority:       domain.Priority(r.Priority),
		Payload:        r.Payload,
		CreatedAt:      r.CreatedAt,
		Attempts:       r.Attempts,
		NextEligibleAt: r.NextEligibleAt,
		Status:         domain.QueueStatus(r.Status),
		LastError:      r.LastError,
	}
}

func (r *QueueRepo) Add(ctx context.Context, item *domain.QueueItem) error {
	query := `
		INSERT INTO sync_queue
			(id, kind, priority, priority_rank, payload, created_at, attempts, next_eligible_at, status, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, string(item.Kind), string(item.Priority), item.Priority.Rank(),
		item.Payload, item.CreatedAt, item.Attempts, item.NextEligibleAt,
		string(item.Status), item.LastError,
	)
	return err
}

// ClaimNext flips the single best eligible item to in-flight.
// SKIP LOCKED keeps concurrent drain passes from claiming the same row.
func (r *QueueRepo) ClaimNext(ctx context.Context, now time.Time, criticalOnly bool) (*domain.QueueItem, error) {
	query := `
		UPDATE sync_queue SET status = 'in-flight'
		WHERE id = (
			SELECT id FROM sync_queue
			WHERE status = 'pending' AND next_eligible_at <= $1
			  AND ($2 = FALSE OR priority = 'critical')
			ORDER BY priority_rank ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, priority, priority_rank, payload, created_at, attempts, next_eligible_at, status, last_error
	`
	var row queueRow
	err := r.db.GetContext(ctx, &row, query, now, criticalOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *QueueRepo) MarkDelivered(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *QueueRepo) Release(ctx context.Context, id string, nextEligibleAt time.Time, lastError string) error {
	query := `
		UPDATE sync_queue
		SET status = 'pending', attempts = attempts + 1, next_eligible_at = $2, last_error = $3
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, nextEligibleAt, lastError)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *QueueRepo) MarkDead(ctx context.Context, id string, lastError string) error {
	query := `
		UPDATE sync_queue
		SET status = 'dead', attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, lastError)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (r *QueueRepo) RequeueInFlight(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = 'pending' WHERE status = 'in-flight'`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *QueueRepo) DeadLetters(ctx context.Context) ([]*domain.QueueItem, error) {
	query := `
		SELECT id, kind, priority, priority_rank, payload, created_at, attempts, next_eligible_at, status, last_error
		FROM sync_queue WHERE status = 'dead' ORDER BY created_at ASC
	`
	var rows []queueRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	items := make([]*domain.QueueItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, nil
}

func (r *QueueRepo) PurgeDead(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE status = 'dead'`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *QueueRepo) Counts(ctx context.Context) (domain.QueueCounts, error) {
	query := `SELECT status, count(*) AS count FROM sync_queue GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return domain.QueueCounts{}, err
	}
	defer rows.Close()

	var counts domain.QueueCounts
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return domain.QueueCounts{}, err
		}
		switch domain.QueueStatus(status) {
		case domain.QueueStatusPending:
			counts.Pending = count
		case domain.QueueStatusInFlight:
			counts.InFlight = count
		case domain.QueueStatusDead:
			counts.Dead = count
		}
	}
	return counts, rows.Err()
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
