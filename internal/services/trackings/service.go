package trackings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/upstrack/internal/broker/messages"
	"github.com/BearBump/upstrack/internal/cache"
	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/models"
	"github.com/BearBump/upstrack/internal/storage/pgtracking"
)

const MaxCreateItems = 10_000

// ErrInvalidArgument marks errors caused by the caller's input.
var ErrInvalidArgument = errors.New("invalid argument")

type Repository interface {
	CreateOrGetTrackings(ctx context.Context, items []models.TrackingCreateInput) ([]*models.Tracking, error)
	GetTrackingsByIDs(ctx context.Context, ids []uint64) ([]*models.Tracking, error)
	ListTrackingEvents(ctx context.Context, trackingID uint64, limit, offset int) ([]*models.TrackingEvent, error)
	RefreshTracking(ctx context.Context, trackingID uint64) error
	ApplyTrackingUpdate(ctx context.Context, upd pgtracking.TrackingUpdate) (bool, error)
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, currentTTL: currentTTL}
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// CreateTrackings registers inquiry numbers for polling. Numbers are trimmed and
// upper-cased, duplicates are collapsed, and already known numbers return their
// existing tracking.
func (s *Service) CreateTrackings(ctx context.Context, items []models.TrackingCreateInput) ([]*models.Tracking, error) {
	if len(items) == 0 {
		return nil, invalid("items is empty")
	}
	if len(items) > MaxCreateItems {
		return nil, invalid("too many items (max %d)", MaxCreateItems)
	}

	clean := make([]models.TrackingCreateInput, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		n := strings.ToUpper(strings.TrimSpace(it.TrackNumber))
		if err := ups.ValidateInquiryNumber(n); err != nil {
			return nil, invalid("trackNumber %q: must be 1-35 letters or digits", it.TrackNumber)
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		clean = append(clean, models.TrackingCreateInput{TrackNumber: n})
	}

	return s.repo.CreateOrGetTrackings(ctx, clean)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func (s *Service) GetTrackingsByIDs(ctx context.Context, ids []uint64) ([]*models.Tracking, error) {
	if len(ids) == 0 {
		return []*models.Tracking{}, nil
	}
	// Best-effort cache: any redis error is treated as a miss.
	miss := make([]uint64, 0, len(ids))
	got := make(map[uint64]*models.Tracking, len(ids))

	if s.cacheEnabled() {
		for _, id := range ids {
			b, ok, err := s.cache.Get(ctx, currentKey(id))
			if err != nil || !ok {
				miss = append(miss, id)
				continue
			}
			var t models.Tracking
			if json.Unmarshal(b, &t) != nil {
				miss = append(miss, id)
				continue
			}
			got[id] = &t
		}
	} else {
		miss = ids
	}

	if len(miss) > 0 {
		fromDB, err := s.repo.GetTrackingsByIDs(ctx, miss)
		if err != nil {
			return nil, err
		}
		for _, t := range fromDB {
			s.storeCurrent(ctx, t)
			got[t.ID] = t
		}
	}

	// Собираем ответ в том же порядке, что ids.
	out := make([]*models.Tracking, 0, len(ids))
	for _, id := range ids {
		if t, ok := got[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) ListTrackingEvents(ctx context.Context, trackingID uint64, limit, offset int) ([]*models.TrackingEvent, error) {
	if trackingID == 0 {
		return nil, invalid("trackingId is required")
	}
	return s.repo.ListTrackingEvents(ctx, trackingID, limit, offset)
}

func (s *Service) RefreshTracking(ctx context.Context, trackingID uint64) error {
	if trackingID == 0 {
		return invalid("trackingId is required")
	}
	if err := s.repo.RefreshTracking(ctx, trackingID); err != nil {
		return err
	}
	if s.cacheEnabled() {
		if err := s.cache.Delete(ctx, currentKey(trackingID)); err != nil {
			slog.Warn("drop cached tracking", "tracking_id", trackingID, "error", err.Error())
		}
	}
	return nil
}

// StatusAdvisory classifies a UPS activity status code.
func (s *Service) StatusAdvisory(code string) models.StatusAdvisory {
	return ups.Classify(code)
}

// ApplyUpdate stores a TrackingUpdated message published by track-worker.
// Redelivered messages are skipped by the repository.
func (s *Service) ApplyUpdate(ctx context.Context, msg messages.TrackingUpdated) error {
	if msg.TrackingID == 0 {
		return invalid("tracking_id is required")
	}
	if msg.CheckedAt.IsZero() {
		msg.CheckedAt = time.Now().UTC()
	}
	if msg.NextCheckAt.IsZero() {
		// fallback: если воркер не послал next_check_at, ставим "через час"
		msg.NextCheckAt = msg.CheckedAt.Add(60 * time.Minute)
	}

	upd := pgtracking.TrackingUpdate{
		MessageID:         msg.MessageID,
		TrackingID:        msg.TrackingID,
		CheckedAt:         msg.CheckedAt,
		Status:            msg.Status,
		StatusRaw:         msg.StatusRaw,
		StatusDescription: msg.StatusDescription,
		StatusAt:          msg.StatusAt,
		NextCheckAt:       msg.NextCheckAt,
		Error:             msg.Error,
	}
	if msg.Flags != nil {
		upd.Flags = *msg.Flags
	}
	if !msg.Failed() && !upd.Status.Valid() {
		// messages carrying only a raw code are classified here
		adv := ups.Classify(msg.StatusRaw)
		upd.Status, upd.StatusDescription, upd.Flags = adv.ShorthandStatus, adv.Description, adv.Flags
	}
	for _, e := range msg.Events {
		var payloadStr *string
		if len(e.Payload) > 0 {
			p := string(e.Payload)
			payloadStr = &p
		}
		upd.Events = append(upd.Events, &models.TrackingEvent{
			Status:      e.Status,
			StatusRaw:   e.StatusRaw,
			EventTime:   e.EventTime,
			Location:    e.Location,
			Message:     e.Message,
			PayloadJSON: payloadStr,
		})
	}

	applied, err := s.repo.ApplyTrackingUpdate(ctx, upd)
	if err != nil {
		return err
	}
	if !applied {
		slog.Debug("tracking update already applied", "tracking_id", msg.TrackingID, "message_id", msg.MessageID)
		return nil
	}

	// Инвалидируем/обновляем кэш текущего статуса.
	if s.cacheEnabled() {
		ts, err := s.repo.GetTrackingsByIDs(ctx, []uint64{msg.TrackingID})
		if err == nil && len(ts) == 1 {
			s.storeCurrent(ctx, ts[0])
		}
	}

	return nil
}

func (s *Service) storeCurrent(ctx context.Context, t *models.Tracking) {
	if !s.cacheEnabled() {
		return
	}
	b, err := json.Marshal(t)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, currentKey(t.ID), b, s.currentTTL)
}

func currentKey(id uint64) string {
	return fmt.Sprintf("tracking:%d:current", id)
}
