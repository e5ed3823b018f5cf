package services

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineup_server/models"
)

func TestBuildElimination(t *testing.T) {
	eliminatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	elimination := BuildElimination("bob", "s1", "pop threshold reached", eliminatedAt, 48*time.Hour)

	assert.Equal(t, "bob", elimination.UserID)
	assert.Equal(t, "s1", elimination.SessionID)
	assert.Equal(t, "2026-03-01T12:00:00Z", elimination.EliminatedAt)
	assert.Equal(t, "2026-03-03T12:00:00Z", elimination.EligibleAt)
}

func eliminationFixture(t *testing.T, records []models.ContestantJoinRecord, captured *[]types.TransactWriteItem) (*EliminationService, *recordingBroadcaster) {
	t.Helper()
	db := &fakeDB{
		QueryItemsFn: func(_ context.Context, _, _ string, _ map[string]types.AttributeValue, _ map[string]string, _ int32) ([]map[string]types.AttributeValue, error) {
			var items []map[string]types.AttributeValue
			for _, r := range records {
				items = append(items, mustMarshal(t, r))
			}
			return items, nil
		},
		TransactWriteItemsFn: func(_ context.Context, items []types.TransactWriteItem) error {
			*captured = items
			return nil
		},
	}
	broadcaster := &recordingBroadcaster{}
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	rotation := &RotationService{Dynamo: db, Broadcast: broadcaster, SpotlightDuration: 3 * time.Minute, Now: now}
	return &EliminationService{
		Dynamo:       db,
		Rotation:     rotation,
		PopThreshold: 20,
		Cooldown:     48 * time.Hour,
		Now:          now,
	}, broadcaster
}

func TestEliminateLiveContestantRotates(t *testing.T) {
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "dave", models.GenderMale, "2026-03-01T10:05:00Z", false),
	}
	var captured []types.TransactWriteItem
	es, broadcaster := eliminationFixture(t, records, &captured)

	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
	}
	require.NoError(t, es.Eliminate(context.Background(), session, records[0]))

	// Rotation (session update, completion, event, your-turn notification)
	// plus the cooldown record and the eliminated notification, all atomic.
	require.Len(t, captured, 6)
	assert.Contains(t, *captured[1].Update.UpdateExpression, "eliminatedAt")

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, EventRotation, broadcaster.events[0].Event)
}

func TestEliminateLoneLiveContestantClearsSpotlight(t *testing.T) {
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
	}
	var captured []types.TransactWriteItem
	es, broadcaster := eliminationFixture(t, records, &captured)

	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
		CurrentContestantID:     "bob",
	}
	require.NoError(t, es.Eliminate(context.Background(), session, records[0]))

	// Spotlight clear, record completion, cooldown record, notification.
	require.Len(t, captured, 4)
	clear := captured[0].Update
	require.NotNil(t, clear)
	assert.Equal(t, "#cur = :expected", *clear.ConditionExpression)
	assert.Contains(t, *clear.UpdateExpression, "#legacy = :empty")
	assert.Contains(t, *captured[1].Update.UpdateExpression, "eliminatedAt")

	// No rotation happened, so nothing was broadcast.
	assert.Empty(t, broadcaster.events)
}

func TestEliminateOffSpotlightOnlyCompletes(t *testing.T) {
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "dave", models.GenderMale, "2026-03-01T10:05:00Z", false),
	}
	var captured []types.TransactWriteItem
	es, _ := eliminationFixture(t, records, &captured)

	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
	}
	// dave does not hold the spotlight.
	require.NoError(t, es.Eliminate(context.Background(), session, records[1]))

	require.Len(t, captured, 3)
	require.NotNil(t, captured[0].Update)
	assert.Contains(t, *captured[0].Update.UpdateExpression, "eliminatedAt")
	require.NotNil(t, captured[1].Put)
	require.NotNil(t, captured[2].Put)
}

func TestRunSweepEliminatesAtThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
	}
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "dave", models.GenderMale, "2026-03-01T10:05:00Z", false),
		joinRecord("s1", "earl", models.GenderMale, "2026-03-01T10:10:00Z", true),
	}
	stats := []models.SpotlightStat{
		{SessionID: "s1", UserID: "bob", PopCount: 20},  // exactly at threshold
		{SessionID: "s1", UserID: "dave", PopCount: 19}, // under
		{SessionID: "s1", UserID: "earl", PopCount: 50}, // already completed
	}

	var eliminations int
	db := &fakeDB{
		ScanWithFilterFn: func(_ context.Context, _ string, _ func(map[string]types.AttributeValue) bool, _ map[string]string, result interface{}) error {
			*result.(*[]models.LineupSession) = []models.LineupSession{session}
			return nil
		},
		QueryItemsFn: func(_ context.Context, tableName, _ string, _ map[string]types.AttributeValue, _ map[string]string, _ int32) ([]map[string]types.AttributeValue, error) {
			var items []map[string]types.AttributeValue
			if tableName == models.SpotlightStatsTable {
				for _, s := range stats {
					items = append(items, mustMarshal(t, s))
				}
				return items, nil
			}
			for _, r := range records {
				items = append(items, mustMarshal(t, r))
			}
			return items, nil
		},
		TransactWriteItemsFn: func(_ context.Context, _ []types.TransactWriteItem) error {
			eliminations++
			return nil
		},
	}
	rotation := &RotationService{Dynamo: db, SpotlightDuration: 3 * time.Minute, Now: func() time.Time { return now }}
	es := &EliminationService{
		Dynamo:       db,
		Rotation:     rotation,
		PopThreshold: 20,
		Cooldown:     48 * time.Hour,
		Now:          func() time.Time { return now },
	}

	require.NoError(t, es.RunSweep(context.Background()))
	assert.Equal(t, 1, eliminations)
}

func TestCanRejoin(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	elimination := BuildElimination("bob", "s1", "pop threshold reached",
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 48*time.Hour)

	newService := func(record bool, clock time.Time) *EliminationService {
		db := &fakeDB{}
		if record {
			db.GetItemFn = func(_ context.Context, _ string, _ map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
				return mustMarshal(t, elimination), nil
			}
		}
		return &EliminationService{Dynamo: db, Cooldown: 48 * time.Hour, Now: func() time.Time { return clock }}
	}

	t.Run("no record means eligible", func(t *testing.T) {
		ok, record, err := newService(false, now).CanRejoin(context.Background(), "bob")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Nil(t, record)
	})

	t.Run("inside the cooldown blocks", func(t *testing.T) {
		ok, record, err := newService(true, now).CanRejoin(context.Background(), "bob")
		require.NoError(t, err)
		assert.False(t, ok)
		require.NotNil(t, record)
		assert.Equal(t, elimination.EligibleAt, record.EligibleAt)
	})

	t.Run("exactly at eligibleAt admits", func(t *testing.T) {
		at := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
		ok, _, err := newService(true, at).CanRejoin(context.Background(), "bob")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
