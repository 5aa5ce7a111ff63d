package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"logsweep/internal/aggregate"
)

// Pass is one stored pass row.
type Pass struct {
	ID         int64     `json:"id"`
	PassID     string    `json:"pass_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	SourceDir  string    `json:"source_dir"`
	DestDir    string    `json:"dest_dir"`
	Discovered int       `json:"discovered"`
	Appended   int       `json:"appended"`
	Skipped    int       `json:"skipped"`
	Deleted    int       `json:"deleted"`
	Bytes      int64     `json:"bytes"`
	Error      string    `json:"error,omitempty"`
}

// DataLoss reports whether files were deleted without being aggregated.
func (p Pass) DataLoss() bool {
	return p.Deleted > 0 && p.Appended < p.Discovered
}

// Totals aggregates every stored pass.
type Totals struct {
	Passes     int   `json:"passes"`
	Appended   int   `json:"appended"`
	Deleted    int   `json:"deleted"`
	Bytes      int64 `json:"bytes"`
	LossPasses int   `json:"loss_passes"`
}

// Record stores result. It satisfies aggregate.Recorder.
func (s *Store) Record(ctx context.Context, result aggregate.Result) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO passes (
                pass_id, started_at, finished_at, source_dir, dest_dir,
                discovered, appended, skipped, deleted, bytes, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID,
			result.StartedAt.UTC().Format(timeLayout),
			result.FinishedAt.UTC().Format(timeLayout),
			result.SourceDir,
			result.DestDir,
			result.Discovered,
			result.Appended,
			result.Skipped,
			result.Deleted,
			result.Bytes,
			nullableString(result.Error),
		)
		if err != nil {
			return fmt.Errorf("insert pass: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit passes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pass_id, started_at, finished_at, source_dir, dest_dir,
                discovered, appended, skipped, deleted, bytes, error_message
         FROM passes ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var passes []Pass
	for rows.Next() {
		var (
			p                 Pass
			started, finished string
			errMsg            sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.PassID, &started, &finished, &p.SourceDir, &p.DestDir,
			&p.Discovered, &p.Appended, &p.Skipped, &p.Deleted, &p.Bytes, &errMsg); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		p.StartedAt = parseTime(started)
		p.FinishedAt = parseTime(finished)
		p.Error = errMsg.String
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}
	return passes, nil
}

// Totals sums every stored pass.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(appended), 0),
                COALESCE(SUM(deleted), 0),
                COALESCE(SUM(bytes), 0),
                COALESCE(SUM(CASE WHEN deleted > 0 AND appended < discovered THEN 1 ELSE 0 END), 0)
         FROM passes`).Scan(&t.Passes, &t.Appended, &t.Deleted, &t.Bytes, &t.LossPasses)
	if err != nil {
		return Totals{}, fmt.Errorf("sum passes: %w", err)
	}
	return t, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
