package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// HistoryRepo persists recovery episode records.
type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Append(ctx context.Context, rec *domain.RecoveryRecord) error {
	strategies, err := json.Marshal(rec.StrategiesTried)
	if err != nil {
		return fmt.Errorf("marshal strategies: %w", err)
	}
	query := `
		INSERT INTO recovery_history (id, ts, cause, proactive, attempt_number, strategies, outcome, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, string(rec.Cause), rec.Proactive,
		rec.AttemptNumber, strategies, string(rec.Outcome), rec.Duration.Milliseconds(),
	)
	return err
}

func (r *HistoryRepo) Recent(ctx context.Context, cause domain.Cause, limit int) ([]*domain.RecoveryRecord, error) {
	query := `
		SELECT id, ts, cause, proactive, attempt_number, strategies, outcome, duration_ms
		FROM recovery_history WHERE cause = $1 ORDER BY ts DESC LIMIT $2
	`
	rows, err := r.db.QueryxContext(ctx, query, string(cause), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RecoveryRecord
	for rows.Next() {
		var (
			rec        domain.RecoveryRecord
			causeStr   string
			outcome    string
			strategies []byte
			durationMs int64
			ts         time.Time
		)
		if err := rows.Scan(&rec.ID, &ts, &causeStr, &rec.Proactive,
			&rec.AttemptNumber, &strategies, &outcome, &durationMs); err != nil {
			return nil, err
		}
		rec.Timestamp = ts
		rec.Cause = domain.Cause(causeStr)
		rec.Outcome = domain.RecoveryOutcome(outcome)
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(strategies, &rec.StrategiesTried); err != nil {
			return nil, fmt.Errorf("unmarshal strategies: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
