package pgtracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/upstrack/internal/models"
)

var ErrNotFound = errors.New("tracking not found")

type TrackingUpdate struct {
	// MessageID makes the update idempotent; empty disables the check.
	MessageID string

	TrackingID uint64

	CheckedAt time.Time

	Status            models.TrackingStatus
	StatusRaw         string
	StatusDescription string
	Flags             models.AdvisoryFlags
	StatusAt          *time.Time

	NextCheckAt time.Time

	Events []*models.TrackingEvent

	Error *string
}

func (u TrackingUpdate) Failed() bool { return u.Error != nil && *u.Error != "" }

func (s *Storage) ListTrackingEvents(ctx context.Context, trackingID uint64, limit, offset int) ([]*models.TrackingEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, tracking_id, status, status_raw,
  event_time, location, message, payload, created_at
FROM tracking_events
WHERE tracking_id = $1
ORDER BY event_time DESC, id DESC
LIMIT $2 OFFSET $3
`, trackingID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	out := []*models.TrackingEvent{}
	for rows.Next() {
		var e models.TrackingEvent
		var location, message string
		var payload []byte
		if err := rows.Scan(
			&e.ID, &e.TrackingID, &e.Status, &e.StatusRaw,
			&e.EventTime, &location, &message, &payload, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}

		if location != "" {
			e.Location = &location
		}
		if message != "" {
			e.Message = &message
		}
		if len(payload) > 0 {
			p := string(payload)
			e.PayloadJSON = &p
		}

		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ApplyTrackingUpdate stores the result of one UPS check. An update whose MessageID
// was already applied is skipped and reported as (false, nil).
func (s *Storage) ApplyTrackingUpdate(ctx context.Context, upd TrackingUpdate) (bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The row lock also orders concurrent updates of one tracking.
	var locked uint64
	err = tx.QueryRow(ctx, `SELECT id FROM trackings WHERE id = $1 FOR UPDATE`, upd.TrackingID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, errors.Wrap(err, "lock tracking")
	}

	if upd.MessageID != "" {
		id, err := uuid.Parse(upd.MessageID)
		if err != nil {
			return false, errors.Wrap(err, "parse message id")
		}
		tag, err := tx.Exec(ctx, `
INSERT INTO applied_updates (message_id, tracking_id, applied_at)
VALUES ($1, $2, now())
ON CONFLICT (message_id) DO NOTHING
`, id, upd.TrackingID)
		if err != nil {
			return false, errors.Wrap(err, "record applied update")
		}
		if tag.RowsAffected() == 0 {
			return false, nil
		}
	}

	var tag interface{ RowsAffected() int64 }
	if upd.Failed() {
		tag, err = tx.Exec(ctx, `
UPDATE trackings
SET
  last_checked_at = $2,
  check_fail_count = check_fail_count + 1,
  last_error = $3,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.TrackingID, upd.CheckedAt.UTC(), *upd.Error, upd.NextCheckAt.UTC())
		if err != nil {
			return false, errors.Wrap(err, "update tracking (error)")
		}
	} else {
		flags, err := json.Marshal(upd.Flags)
		if err != nil {
			return false, errors.Wrap(err, "encode flags")
		}
		tag, err = tx.Exec(ctx, `
UPDATE trackings
SET
  status = $3,
  status_raw = $4,
  status_description = $5,
  flags = $6,
  status_at = $7,
  last_checked_at = $2,
  check_fail_count = 0,
  last_error = NULL,
  next_check_at = $8,
  updated_at = now()
WHERE id = $1
`, upd.TrackingID, upd.CheckedAt.UTC(), upd.Status, upd.StatusRaw, upd.StatusDescription, flags, upd.StatusAt, upd.NextCheckAt.UTC())
		if err != nil {
			return false, errors.Wrap(err, "update tracking (ok)")
		}
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}

	if !upd.Failed() {
		if err := insertEvents(ctx, tx, upd.TrackingID, upd.Events); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, errors.Wrap(err, "commit tx")
	}
	return true, nil
}

func insertEvents(ctx context.Context, tx pgx.Tx, trackingID uint64, events []*models.TrackingEvent) error {
	for _, e := range events {
		var payload []byte
		if e.PayloadJSON != nil && json.Valid([]byte(*e.PayloadJSON)) {
			payload = []byte(*e.PayloadJSON)
		}

		loc := ""
		if e.Location != nil {
			loc = *e.Location
		}
		msgText := ""
		if e.Message != nil {
			msgText = *e.Message
		}

		_, err := tx.Exec(ctx, `
INSERT INTO tracking_events (
  tracking_id, status, status_raw, event_time, location, message, payload, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7, now())
ON CONFLICT (tracking_id, status_raw, event_time, location, message) DO NOTHING
`, trackingID, e.Status, e.StatusRaw, e.EventTime.UTC(), loc, msgText, payload)
		if err != nil {
			return errors.Wrap(err, "insert tracking event")
		}
	}
	return nil
}
