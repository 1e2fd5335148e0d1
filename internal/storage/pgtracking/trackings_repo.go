package pgtracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/upstrack/internal/models"
)

const trackingColumns = `
  id, track_number,
  status, status_raw, status_description, flags,
  status_at, last_checked_at, next_check_at,
  check_fail_count, last_error,
  created_at, updated_at`

// Trackings in a final status are not polled again.
var finalStatuses = []string{
	string(models.TrackingStatusDelivered),
	string(models.TrackingStatusReturnToSender),
}

func scanTracking(row pgx.Row) (*models.Tracking, error) {
	var t models.Tracking
	var flags []byte
	if err := row.Scan(
		&t.ID, &t.TrackNumber,
		&t.Status, &t.StatusRaw, &t.StatusDescription, &flags,
		&t.StatusAt, &t.LastCheckedAt, &t.NextCheckAt,
		&t.CheckFailCount, &t.LastError,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &t.Flags); err != nil {
			return nil, errors.Wrap(err, "decode flags")
		}
	}
	return &t, nil
}

func (s *Storage) CreateOrGetTrackings(ctx context.Context, items []models.TrackingCreateInput) ([]*models.Tracking, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		var id uint64
		err := tx.QueryRow(ctx, `
INSERT INTO trackings (
  track_number, status, next_check_at, created_at, updated_at
)
VALUES ($1,$2,$3,$3,$3)
ON CONFLICT (track_number)
DO UPDATE SET updated_at = trackings.updated_at
RETURNING id
`, it.TrackNumber, models.TrackingStatusUnknown, now).Scan(&id)
		if err != nil {
			return nil, errors.Wrap(err, "insert tracking")
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return s.GetTrackingsByIDs(ctx, ids)
}

func (s *Storage) GetTrackingsByIDs(ctx context.Context, ids []uint64) ([]*models.Tracking, error) {
	if len(ids) == 0 {
		return []*models.Tracking{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT`+trackingColumns+` FROM trackings WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "select trackings")
	}
	defer rows.Close()

	out := make([]*models.Tracking, 0, len(ids))
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan tracking")
		}
		out = append(out, t)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// RefreshTracking makes the tracking due now. It reports ErrNotFound for unknown ids.
func (s *Storage) RefreshTracking(ctx context.Context, trackingID uint64) error {
	tag, err := s.db.Exec(ctx, `UPDATE trackings SET next_check_at = now(), updated_at = now() WHERE id = $1`, trackingID)
	if err != nil {
		return errors.Wrap(err, "refresh tracking")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimDueTrackings выбирает пачку треков, готовых к проверке, и "бронирует" их,
// чтобы они не попадали в повторную выборку, пока воркер их обрабатывает.
// Использует SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueTrackings(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Tracking, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT`+trackingColumns+`
FROM trackings
WHERE next_check_at <= $1
  AND status <> ALL($2)
ORDER BY next_check_at ASC
LIMIT $3
FOR UPDATE SKIP LOCKED
`, now.UTC(), finalStatuses, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due trackings")
	}

	var picked []*models.Tracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan due tracking")
		}
		picked = append(picked, t)
	}
	rows.Close()
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, t := range picked {
		_, err := tx.Exec(ctx, `UPDATE trackings SET next_check_at = $2, updated_at = now() WHERE id = $1`, t.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease tracking")
		}
		t.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}
