package pgtracking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BearBump/upstrack/internal/models"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "upstrack_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/upstrack_test?sslmode=disable"
	st, err := New(dsn, WithApplicationName("upstrack-test"), WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Ping(ctx))
	return st
}

func TestPGTracking_RepoFlow(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	created, err := st.CreateOrGetTrackings(ctx, []models.TrackingCreateInput{
		{TrackNumber: "1Z023E2X0214323462"},
		{TrackNumber: "1Z999AA10123456784"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.NotZero(t, created[0].ID)
	require.Equal(t, models.TrackingStatusUnknown, created[0].Status)

	again, err := st.CreateOrGetTrackings(ctx, []models.TrackingCreateInput{{TrackNumber: "1Z023E2X0214323462"}})
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, created[0].ID, again[0].ID)

	// Делаем ровно один трек "due" и проверяем ClaimDueTrackings + lease
	_, err = st.db.Exec(ctx, `UPDATE trackings SET next_check_at = now() - interval '1 minute' WHERE id = $1`, created[0].ID)
	require.NoError(t, err)
	_, err = st.db.Exec(ctx, `UPDATE trackings SET next_check_at = now() + interval '1 hour' WHERE id = $1`, created[1].ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	lease := 10 * time.Second
	due, err := st.ClaimDueTrackings(ctx, now, 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, created[0].ID, due[0].ID)
	require.WithinDuration(t, now.Add(lease), due[0].NextCheckAt, 2*time.Second)

	// апдейт статуса + событие
	evTime := now.Add(-time.Hour).Truncate(time.Second)
	loc := "Alpharetta, GA, US"
	msgID := uuid.NewString()
	upd := TrackingUpdate{
		MessageID:         msgID,
		TrackingID:        created[0].ID,
		CheckedAt:         now,
		Status:            models.TrackingStatusDelivered,
		StatusRaw:         "011",
		StatusDescription: "Delivered.",
		Flags:             models.AdvisoryFlags{Delivered: true},
		StatusAt:          &evTime,
		NextCheckAt:       now.Add(30 * time.Minute),
		Events: []*models.TrackingEvent{
			{Status: models.TrackingStatusDelivered, StatusRaw: "011", EventTime: evTime, Location: &loc, PayloadJSON: ptr(`{"date":"20230104"}`)},
		},
	}
	applied, err := st.ApplyTrackingUpdate(ctx, upd)
	require.NoError(t, err)
	require.True(t, applied)

	// redelivery of the same message changes nothing
	applied, err = st.ApplyTrackingUpdate(ctx, upd)
	require.NoError(t, err)
	require.False(t, applied)

	got, err := st.GetTrackingsByIDs(ctx, []uint64{created[0].ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.TrackingStatusDelivered, got[0].Status)
	require.Equal(t, "011", got[0].StatusRaw)
	require.Equal(t, "Delivered.", got[0].StatusDescription)
	require.True(t, got[0].Flags.Delivered)
	require.Zero(t, got[0].CheckFailCount)

	evs, err := st.ListTrackingEvents(ctx, created[0].ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.WithinDuration(t, evTime, evs[0].EventTime, time.Second)
	require.Equal(t, loc, *evs[0].Location)
	require.Nil(t, evs[0].Message)
	require.JSONEq(t, `{"date":"20230104"}`, *evs[0].PayloadJSON)

	// delivered trackings are no longer claimed
	_, err = st.db.Exec(ctx, `UPDATE trackings SET next_check_at = now() - interval '1 minute'`)
	require.NoError(t, err)
	due, err = st.ClaimDueTrackings(ctx, time.Now().UTC(), 10, lease)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, created[1].ID, due[0].ID)

	// refresh
	require.NoError(t, st.RefreshTracking(ctx, created[0].ID))
	require.ErrorIs(t, st.RefreshTracking(ctx, 999999), ErrNotFound)
}

func TestPGTracking_FailedCheck(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	created, err := st.CreateOrGetTrackings(ctx, []models.TrackingCreateInput{{TrackNumber: "1Z0000000000000000"}})
	require.NoError(t, err)

	now := time.Now().UTC()
	errText := "ups: tracking request failed: Invalid tracking number"
	for i := 0; i < 2; i++ {
		applied, err := st.ApplyTrackingUpdate(ctx, TrackingUpdate{
			TrackingID:  created[0].ID,
			CheckedAt:   now,
			NextCheckAt: now.Add(15 * time.Minute),
			Error:       &errText,
		})
		require.NoError(t, err)
		require.True(t, applied)
	}

	got, err := st.GetTrackingsByIDs(ctx, []uint64{created[0].ID})
	require.NoError(t, err)
	require.EqualValues(t, 2, got[0].CheckFailCount)
	require.Equal(t, errText, *got[0].LastError)
	require.Equal(t, models.TrackingStatusUnknown, got[0].Status)

	_, err = st.ApplyTrackingUpdate(ctx, TrackingUpdate{TrackingID: 424242, CheckedAt: now, NextCheckAt: now})
	require.ErrorIs(t, err, ErrNotFound)

	// with a message id the missing tracking must not surface as a foreign key error
	applied, err := st.ApplyTrackingUpdate(ctx, TrackingUpdate{
		MessageID:   uuid.NewString(),
		TrackingID:  424242,
		CheckedAt:   now,
		NextCheckAt: now,
		Status:      models.TrackingStatusInTransit,
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, applied)

	var recorded int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM applied_updates WHERE tracking_id = 424242`).Scan(&recorded))
	require.Zero(t, recorded)
}

func TestPGTracking_SchemaIsIdempotent(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	v, err := st.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, migrations[len(migrations)-1].version, v)

	// a second run applies nothing
	require.NoError(t, st.initSchema(ctx))
	var applied int
	require.NoError(t, st.db.QueryRow(ctx, `SELECT count(*) FROM schema_migrations`).Scan(&applied))
	require.Equal(t, len(migrations), applied)
}

func TestMigrations_VersionsAscending(t *testing.T) {
	for i := 1; i < len(migrations); i++ {
		require.Greater(t, migrations[i].version, migrations[i-1].version)
	}
}

func ptr(s string) *string { return &s }
