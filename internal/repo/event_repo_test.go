package repo_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smsline/smsline/internal/config"
	"github.com/smsline/smsline/internal/db"
	"github.com/smsline/smsline/internal/model"
	"github.com/smsline/smsline/internal/repo"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := db.Open(config.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "smsline",
		Password: "smsline_pass",
		DBName:   "smsline_test",
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() {
		_, _ = conn.Exec("DELETE FROM sms_events")
		_ = conn.Close()
	})
	return conn
}

func TestEventRepoInsertAndList(t *testing.T) {
	conn := openTestDB(t)
	events := repo.NewEventRepo(conn)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, events.Insert(ctx, &model.SMSEvent{
		ID:             "ev-1",
		CorrelationID:  "cust-1",
		VerificationID: "V1",
		PhoneNumber:    "14066097428",
		EventType:      model.EventTypeNewCode,
		Code:           "482911",
		Status:         string(model.StatusCodeReceived),
		Ctime:          now,
	}))
	require.NoError(t, events.Insert(ctx, &model.SMSEvent{
		ID:             "ev-2",
		CorrelationID:  "cust-1",
		VerificationID: "V1",
		PhoneNumber:    "14066097428",
		EventType:      model.EventTypeTerminal,
		Status:         string(model.StatusCancelled),
		Ctime:          now + 1,
	}))
	require.NoError(t, events.Insert(ctx, &model.SMSEvent{
		ID:             "ev-3",
		CorrelationID:  "cust-2",
		VerificationID: "V2",
		PhoneNumber:    "14065550000",
		EventType:      model.EventTypeTerminal,
		Status:         string(model.StatusExpired),
		Ctime:          now + 2,
	}))

	byCorr, err := events.ListByCorrelation(ctx, "cust-1", 10)
	require.NoError(t, err)
	require.Len(t, byCorr, 2)
	require.Equal(t, "ev-2", byCorr[0].ID)
	require.Empty(t, byCorr[0].Code)
	require.Equal(t, "482911", byCorr[1].Code)

	recent, err := events.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "ev-3", recent[0].ID)
}

func TestEventRepoInsertConflict(t *testing.T) {
	conn := openTestDB(t)
	events := repo.NewEventRepo(conn)
	ctx := context.Background()

	ev := &model.SMSEvent{
		ID:             "ev-dup",
		CorrelationID:  "cust-1",
		VerificationID: "V1",
		PhoneNumber:    "14066097428",
		EventType:      model.EventTypeNewCode,
		Code:           "111111",
		Status:         string(model.StatusCodeReceived),
		Ctime:          time.Now().UnixMilli(),
	}
	require.NoError(t, events.Insert(ctx, ev))
	require.Error(t, events.Insert(ctx, ev))
}

func TestEventRepoPrune(t *testing.T) {
	conn := openTestDB(t)
	events := repo.NewEventRepo(conn)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	require.NoError(t, events.Insert(ctx, &model.SMSEvent{
		ID: "ev-old", CorrelationID: "c", VerificationID: "V1", PhoneNumber: "1",
		EventType: model.EventTypeTerminal, Status: string(model.StatusExpired), Ctime: now - 10_000,
	}))
	require.NoError(t, events.Insert(ctx, &model.SMSEvent{
		ID: "ev-new", CorrelationID: "c", VerificationID: "V2", PhoneNumber: "1",
		EventType: model.EventTypeTerminal, Status: string(model.StatusExpired), Ctime: now,
	}))

	pruned, err := events.PruneBefore(ctx, now-5_000)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)

	remaining, err := events.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "ev-new", remaining[0].ID)
}
