package trackings_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
	"github.com/BearBump/upstrack/internal/models"
	"github.com/BearBump/upstrack/internal/services/trackings"
	"github.com/BearBump/upstrack/internal/storage/pgtracking"
)

const maxBodyBytes = 8 << 20

type Service interface {
	CreateTrackings(ctx context.Context, items []models.TrackingCreateInput) ([]*models.Tracking, error)
	GetTrackingsByIDs(ctx context.Context, ids []uint64) ([]*models.Tracking, error)
	ListTrackingEvents(ctx context.Context, trackingID uint64, limit, offset int) ([]*models.TrackingEvent, error)
	RefreshTracking(ctx context.Context, trackingID uint64) error
	StatusAdvisory(code string) models.StatusAdvisory
}

type TrackingsAPI struct {
	svc Service
}

func New(svc Service) *TrackingsAPI {
	return &TrackingsAPI{svc: svc}
}

// Register mounts the /v1 routes on r.
func (a *TrackingsAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/trackings", a.CreateTrackings)
		r.Get("/trackings", a.GetTrackingsByIDs)
		r.Get("/trackings/{id}/events", a.ListTrackingEvents)
		r.Post("/trackings/{id}/refresh", a.RefreshTracking)
		r.Get("/status-codes", a.ListStatusCodes)
		r.Get("/status-codes/{code}", a.GetStatusCode)
	})
}

func (a *TrackingsAPI) CreateTrackings(w http.ResponseWriter, r *http.Request) {
	var req createTrackingsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(trackings.ErrInvalidArgument, "decode body: "+err.Error()))
		return
	}

	in := make([]models.TrackingCreateInput, 0, len(req.Items))
	for _, it := range req.Items {
		in = append(in, models.TrackingCreateInput{TrackNumber: it.TrackNumber})
	}
	ts, err := a.svc.CreateTrackings(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingsResponse{Trackings: toTrackingDTOs(ts)})
}

// GetTrackingsByIDs accepts ids=1,2,3 as well as repeated ids parameters.
func (a *TrackingsAPI) GetTrackingsByIDs(w http.ResponseWriter, r *http.Request) {
	var ids []uint64
	for _, raw := range r.URL.Query()["ids"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				writeError(w, errors.Wrapf(trackings.ErrInvalidArgument, "ids: bad id %q", part))
				return
			}
			ids = append(ids, id)
		}
	}

	ts, err := a.svc.GetTrackingsByIDs(r.Context(), ids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trackingsResponse{Trackings: toTrackingDTOs(ts)})
}

func (a *TrackingsAPI) ListTrackingEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	evs, err := a.svc.ListTrackingEvents(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: toEventDTOs(evs)})
}

func (a *TrackingsAPI) RefreshTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.svc.RefreshTracking(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (a *TrackingsAPI) GetStatusCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	writeJSON(w, http.StatusOK, statusCodeResponse{Code: code, StatusAdvisory: a.svc.StatusAdvisory(code)})
}

func (a *TrackingsAPI) ListStatusCodes(w http.ResponseWriter, r *http.Request) {
	codes := ups.KnownStatusCodes()
	out := statusCodesResponse{Codes: make([]statusCodeResponse, 0, len(codes))}
	for _, c := range codes {
		out.Codes = append(out.Codes, statusCodeResponse{Code: c, StatusAdvisory: a.svc.StatusAdvisory(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(trackings.ErrInvalidArgument, "id: bad value %q", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(trackings.ErrInvalidArgument, "%s: bad value %q", name, raw)
	}
	return v, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, trackings.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, pgtracking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("api request failed", "error", msg)
		msg = http.StatusText(code)
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
