package trackings_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/upstrack/internal/models"
	"github.com/BearBump/upstrack/internal/services/trackings"
	"github.com/BearBump/upstrack/internal/storage/pgtracking"
)

type repo struct {
	created []*models.Tracking
	events  []*models.TrackingEvent

	createIn   []models.TrackingCreateInput
	getIn      []uint64
	eventsArgs [3]int
	refreshErr error
	getErr     error
}

func (r *repo) CreateOrGetTrackings(ctx context.Context, items []models.TrackingCreateInput) ([]*models.Tracking, error) {
	r.createIn = items
	return r.created, nil
}
func (r *repo) GetTrackingsByIDs(ctx context.Context, ids []uint64) ([]*models.Tracking, error) {
	r.getIn = ids
	return r.created, r.getErr
}
func (r *repo) ListTrackingEvents(ctx context.Context, trackingID uint64, limit, offset int) ([]*models.TrackingEvent, error) {
	r.eventsArgs = [3]int{int(trackingID), limit, offset}
	return r.events, nil
}
func (r *repo) RefreshTracking(ctx context.Context, trackingID uint64) error { return r.refreshErr }
func (r *repo) ApplyTrackingUpdate(ctx context.Context, upd pgtracking.TrackingUpdate) (bool, error) {
	return true, nil
}

func newServer(t *testing.T, r *repo) *httptest.Server {
	t.Helper()
	router := chi.NewRouter()
	New(trackings.New(r, nil, 0)).Register(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestTrackingsAPI_Flow(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	lastErr := "ups: tracking request failed"
	loc := "Atlanta, GA, US"
	r := &repo{
		created: []*models.Tracking{{
			ID:                1,
			TrackNumber:       "1Z023E2X0214323462",
			Status:            models.TrackingStatusDelivered,
			StatusRaw:         "011",
			StatusDescription: "Delivered.",
			Flags:             models.AdvisoryFlags{Delivered: true},
			NextCheckAt:       now,
			LastError:         &lastErr,
			CreatedAt:         now,
			UpdatedAt:         now,
		}},
		events: []*models.TrackingEvent{{
			ID:         10,
			TrackingID: 1,
			Status:     models.TrackingStatusInTransit,
			StatusRaw:  "005",
			EventTime:  now,
			Location:   &loc,
			CreatedAt:  now,
		}},
	}
	srv := newServer(t, r)

	resp, err := http.Post(srv.URL+"/v1/trackings", "application/json",
		strings.NewReader(`{"items":[{"trackNumber":" 1z023e2x0214323462 "}]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode[trackingsResponse](t, resp)
	require.Len(t, created.Trackings, 1)
	require.Equal(t, models.TrackingStatusDelivered, created.Trackings[0].Status)
	require.True(t, created.Trackings[0].Flags.Delivered)
	require.Equal(t, lastErr, created.Trackings[0].LastError)
	require.Equal(t, []models.TrackingCreateInput{{TrackNumber: "1Z023E2X0214323462"}}, r.createIn)

	resp, err = http.Get(srv.URL + "/v1/trackings?ids=1,2&ids=3")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[trackingsResponse](t, resp)
	require.Len(t, got.Trackings, 1)
	require.Equal(t, []uint64{1, 2, 3}, r.getIn)

	resp, err = http.Get(srv.URL + "/v1/trackings/1/events?limit=20&offset=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	evs := decode[eventsResponse](t, resp)
	require.Len(t, evs.Events, 1)
	require.Equal(t, "Atlanta, GA, US", evs.Events[0].Location)
	require.Equal(t, [3]int{1, 20, 5}, r.eventsArgs)

	resp, err = http.Post(srv.URL+"/v1/trackings/1/refresh", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestTrackingsAPI_StatusCodes(t *testing.T) {
	srv := newServer(t, &repo{})

	resp, err := http.Get(srv.URL + "/v1/status-codes/011")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sc := decode[map[string]any](t, resp)
	require.Equal(t, "011", sc["code"])
	require.Equal(t, "delivered", sc["shorthandStatus"])
	require.Equal(t, "Delivered.", sc["description"])

	resp, err = http.Get(srv.URL + "/v1/status-codes/ZZZ")
	require.NoError(t, err)
	unknown := decode[statusCodeResponse](t, resp)
	require.Equal(t, models.TrackingStatusUnknown, unknown.ShorthandStatus)
	require.True(t, unknown.Flags.RecipientShouldCheckCarrier)

	resp, err = http.Get(srv.URL + "/v1/status-codes")
	require.NoError(t, err)
	all := decode[statusCodesResponse](t, resp)
	require.NotEmpty(t, all.Codes)
	for _, c := range all.Codes {
		require.NotEqual(t, models.TrackingStatusUnknown, c.ShorthandStatus, c.Code)
	}
}

func TestTrackingsAPI_Errors(t *testing.T) {
	r := &repo{}
	srv := newServer(t, r)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"bad json", http.MethodPost, "/v1/trackings", `{`, http.StatusBadRequest},
		{"empty items", http.MethodPost, "/v1/trackings", `{"items":[]}`, http.StatusBadRequest},
		{"bad inquiry number", http.MethodPost, "/v1/trackings", `{"items":[{"trackNumber":"1Z/??"}]}`, http.StatusBadRequest},
		{"bad ids", http.MethodGet, "/v1/trackings?ids=abc", "", http.StatusBadRequest},
		{"bad path id", http.MethodGet, "/v1/trackings/x/events", "", http.StatusBadRequest},
		{"zero id", http.MethodPost, "/v1/trackings/0/refresh", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/v1/trackings/1/events?limit=many", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			require.NotEmpty(t, body.Error)
		})
	}
}

func TestTrackingsAPI_NotFoundAndInternal(t *testing.T) {
	r := &repo{refreshErr: pgtracking.ErrNotFound, getErr: errors.New("pool closed")}
	srv := newServer(t, r)

	resp, err := http.Post(srv.URL+"/v1/trackings/42/refresh", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(srv.URL + "/v1/trackings?ids=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	require.Equal(t, "Internal Server Error", body.Error)
}
