package services

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineup_server/models"
)

type recordedEvent struct {
	Room  string
	Event string
	Data  interface{}
}

// recordingBroadcaster captures broadcasts for assertions.
type recordingBroadcaster struct {
	events []recordedEvent
}

func (rb *recordingBroadcaster) BroadcastTo(room, event string, data interface{}) {
	rb.events = append(rb.events, recordedEvent{Room: room, Event: event, Data: data})
}

func mustMarshal(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

func joinRecord(sessionID, userID, gender, joinedAt string, completed bool) models.ContestantJoinRecord {
	return models.ContestantJoinRecord{
		SessionID: sessionID,
		UserID:    userID,
		Gender:    gender,
		JoinedAt:  joinedAt,
		Completed: completed,
	}
}

func TestNextContestantFIFO(t *testing.T) {
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "alice", models.GenderFemale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "bella", models.GenderFemale, "2026-03-01T10:05:00Z", false),
		joinRecord("s1", "clara", models.GenderFemale, "2026-03-01T10:10:00Z", false),
	}

	tests := []struct {
		name      string
		currentID string
		expected  string
		ok        bool
	}{
		{"empty spotlight selects the head", "", "alice", true},
		{"middle advances to next join", "bella", "clara", true},
		{"tail wraps to the front", "clara", "alice", true},
		{"unknown current still picks the head", "ghost", "alice", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, ok := nextContestant(records, models.GenderFemale, tc.currentID)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, next)
		})
	}
}

func TestNextContestantExclusions(t *testing.T) {
	t.Run("lone contestant has no successor", func(t *testing.T) {
		records := []models.ContestantJoinRecord{
			joinRecord("s1", "alice", models.GenderFemale, "2026-03-01T10:00:00Z", false),
		}
		_, ok := nextContestant(records, models.GenderFemale, "alice")
		assert.False(t, ok)
	})

	t.Run("other gender track is invisible", func(t *testing.T) {
		records := []models.ContestantJoinRecord{
			joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		}
		_, ok := nextContestant(records, models.GenderFemale, "")
		assert.False(t, ok)
	})

	t.Run("completed contestants are skipped", func(t *testing.T) {
		records := []models.ContestantJoinRecord{
			joinRecord("s1", "alice", models.GenderFemale, "2026-03-01T10:00:00Z", true),
			joinRecord("s1", "bella", models.GenderFemale, "2026-03-01T10:05:00Z", false),
		}
		next, ok := nextContestant(records, models.GenderFemale, "")
		require.True(t, ok)
		assert.Equal(t, "bella", next)
	})

	t.Run("no records at all", func(t *testing.T) {
		_, ok := nextContestant(nil, models.GenderMale, "")
		assert.False(t, ok)
	})
}

func TestRotateBuildsOneTransaction(t *testing.T) {
	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
	}
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "dave", models.GenderMale, "2026-03-01T10:05:00Z", false),
	}

	var captured []types.TransactWriteItem
	db := &fakeDB{
		QueryItemsFn: func(_ context.Context, tableName, _ string, _ map[string]types.AttributeValue, _ map[string]string, _ int32) ([]map[string]types.AttributeValue, error) {
			require.Equal(t, models.LineupContestantsTable, tableName)
			var items []map[string]types.AttributeValue
			for _, r := range records {
				items = append(items, mustMarshal(t, r))
			}
			return items, nil
		},
		TransactWriteItemsFn: func(_ context.Context, items []types.TransactWriteItem) error {
			captured = items
			return nil
		},
	}
	broadcaster := &recordingBroadcaster{}
	rs := &RotationService{
		Dynamo:            db,
		Broadcast:         broadcaster,
		SpotlightDuration: 3 * time.Minute,
		Now:               func() time.Time { return time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC) },
	}

	event, err := rs.Rotate(context.Background(), session, models.GenderMale, "bob", models.RotationReasonTimer)
	require.NoError(t, err)

	assert.Equal(t, "bob", event.PreviousContestantID)
	assert.Equal(t, "dave", event.NewContestantID)
	assert.Equal(t, models.RotationReasonTimer, event.Reason)
	assert.Equal(t, models.RotationEventDocID, event.DocID)

	// Session update, outgoing completion, event put, your-turn notification.
	require.Len(t, captured, 4)
	require.NotNil(t, captured[0].Update)
	assert.Equal(t, "#cur = :expected", *captured[0].Update.ConditionExpression)
	require.NotNil(t, captured[1].Update)
	assert.Equal(t, "SET completed = :true, completedAt = :now", *captured[1].Update.UpdateExpression)
	require.NotNil(t, captured[2].Put)
	require.NotNil(t, captured[3].Put)

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, "s1", broadcaster.events[0].Room)
	assert.Equal(t, EventRotation, broadcaster.events[0].Event)
}

func TestRotateDeclinesWithoutSuccessor(t *testing.T) {
	db := &fakeDB{
		QueryItemsFn: func(_ context.Context, _, _ string, _ map[string]types.AttributeValue, _ map[string]string, _ int32) ([]map[string]types.AttributeValue, error) {
			return []map[string]types.AttributeValue{
				mustMarshal(t, joinRecord("s1", "alice", models.GenderFemale, "2026-03-01T10:00:00Z", false)),
			}, nil
		},
		TransactWriteItemsFn: func(_ context.Context, _ []types.TransactWriteItem) error {
			t.Fatal("no transaction expected when nobody is eligible")
			return nil
		},
	}
	rs := &RotationService{Dynamo: db}

	session := models.LineupSession{SessionID: "s1", CurrentFemaleContestantID: "alice"}
	_, err := rs.Rotate(context.Background(), session, models.GenderFemale, "alice", models.RotationReasonTimer)
	assert.ErrorIs(t, err, ErrNoEligibleContestant)
}

func TestRunSweepRotatesElapsedAndAutoSelects(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
		MaleLastRotationTime:    now.Add(-10 * time.Minute).Format(time.RFC3339),
	}
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "dave", models.GenderMale, "2026-03-01T10:05:00Z", false),
		joinRecord("s1", "alice", models.GenderFemale, "2026-03-01T10:02:00Z", false),
	}

	var transactions [][]types.TransactWriteItem
	db := &fakeDB{
		ScanWithFilterFn: func(_ context.Context, tableName string, filterFunc func(map[string]types.AttributeValue) bool, _ map[string]string, result interface{}) error {
			require.Equal(t, models.LineupSessionsTable, tableName)
			require.True(t, filterFunc(mustMarshal(t, session)))
			*result.(*[]models.LineupSession) = []models.LineupSession{session}
			return nil
		},
		QueryItemsFn: func(_ context.Context, _, _ string, _ map[string]types.AttributeValue, _ map[string]string, _ int32) ([]map[string]types.AttributeValue, error) {
			var items []map[string]types.AttributeValue
			for _, r := range records {
				items = append(items, mustMarshal(t, r))
			}
			return items, nil
		},
		TransactWriteItemsFn: func(_ context.Context, items []types.TransactWriteItem) error {
			transactions = append(transactions, items)
			return nil
		},
	}
	rs := &RotationService{
		Dynamo:            db,
		SpotlightDuration: 3 * time.Minute,
		Now:               func() time.Time { return now },
	}

	require.NoError(t, rs.RunSweep(context.Background()))

	// Male track rotated on elapsed spotlight, female track auto-selected.
	require.Len(t, transactions, 2)
}

func TestRunSweepResetsBadAnchor(t *testing.T) {
	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
		MaleLastRotationTime:    "not-a-timestamp",
	}

	var resetExpr string
	db := &fakeDB{
		ScanWithFilterFn: func(_ context.Context, _ string, _ func(map[string]types.AttributeValue) bool, _ map[string]string, result interface{}) error {
			*result.(*[]models.LineupSession) = []models.LineupSession{session}
			return nil
		},
		UpdateItemFn: func(_ context.Context, tableName, updateExpression string, _, _ map[string]types.AttributeValue, names map[string]string) (map[string]types.AttributeValue, error) {
			require.Equal(t, models.LineupSessionsTable, tableName)
			resetExpr = updateExpression
			assert.Equal(t, "maleLastRotationTime", names["#time"])
			return nil, nil
		},
		TransactWriteItemsFn: func(_ context.Context, _ []types.TransactWriteItem) error {
			t.Fatal("a bad anchor must reset the clock, not rotate")
			return nil
		},
	}
	rs := &RotationService{Dynamo: db, SpotlightDuration: 3 * time.Minute}

	require.NoError(t, rs.RunSweep(context.Background()))
	assert.Equal(t, "SET #time = :now", resetExpr)
}

func TestProcessRequests(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := models.LineupSession{
		SessionID:               "s1",
		Status:                  models.LineupStatusActive,
		CurrentMaleContestantID: "bob",
	}
	requests := []models.RotationRequest{
		{RequestID: "r-stale", SessionID: "s1", UserID: "bob", Gender: models.GenderMale,
			RequestTime: now.Add(-30 * time.Minute).Format(time.RFC3339), Status: models.RequestStatusPending},
		{RequestID: "r-gone", SessionID: "missing", UserID: "bob", Gender: models.GenderMale,
			RequestTime: now.Add(-1 * time.Minute).Format(time.RFC3339), Status: models.RequestStatusPending},
		{RequestID: "r-not-current", SessionID: "s1", UserID: "dave", Gender: models.GenderMale,
			RequestTime: now.Add(-1 * time.Minute).Format(time.RFC3339), Status: models.RequestStatusPending},
		{RequestID: "r-ok", SessionID: "s1", UserID: "bob", Gender: models.GenderMale,
			RequestTime: now.Add(-30 * time.Second).Format(time.RFC3339), Status: models.RequestStatusPending},
	}
	records := []models.ContestantJoinRecord{
		joinRecord("s1", "bob", models.GenderMale, "2026-03-01T10:00:00Z", false),
		joinRecord("s1", "dave", models.GenderMale, "2026-03-01T10:05:00Z", false),
	}

	stamps := map[string]string{}
	reasons := map[string]string{}
	db := &fakeDB{
		ScanWithFilterFn: func(_ context.Context, tableName string, _ func(map[string]types.AttributeValue) bool, _ map[string]string, result interface{}) error {
			require.Equal(t, models.RotationRequestsTable, tableName)
			*result.(*[]models.RotationRequest) = requests
			return nil
		},
		GetItemFn: func(_ context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
			require.Equal(t, models.LineupSessionsTable, tableName)
			id := key["sessionId"].(*types.AttributeValueMemberS).Value
			if id != "s1" {
				return nil, ErrItemNotFound
			}
			return mustMarshal(t, session), nil
		},
		QueryItemsFn: func(_ context.Context, _, _ string, _ map[string]types.AttributeValue, _ map[string]string, _ int32) ([]map[string]types.AttributeValue, error) {
			var items []map[string]types.AttributeValue
			for _, r := range records {
				items = append(items, mustMarshal(t, r))
			}
			return items, nil
		},
		UpdateItemFn: func(_ context.Context, tableName, _ string, key, values map[string]types.AttributeValue, _ map[string]string) (map[string]types.AttributeValue, error) {
			require.Equal(t, models.RotationRequestsTable, tableName)
			id := key["requestId"].(*types.AttributeValueMemberS).Value
			stamps[id] = values[":status"].(*types.AttributeValueMemberS).Value
			if reason, ok := values[":reason"]; ok {
				reasons[id] = reason.(*types.AttributeValueMemberS).Value
			}
			return nil, nil
		},
	}
	rs := &RotationService{
		Dynamo:            db,
		SpotlightDuration: 3 * time.Minute,
		RequestMaxAge:     10 * time.Minute,
		Now:               func() time.Time { return now },
	}

	require.NoError(t, rs.ProcessRequests(context.Background()))

	assert.Equal(t, models.RequestStatusInvalid, stamps["r-stale"])
	assert.Equal(t, "stale request", reasons["r-stale"])
	assert.Equal(t, models.RequestStatusInvalid, stamps["r-gone"])
	assert.Equal(t, "session not found", reasons["r-gone"])
	assert.Equal(t, models.RequestStatusInvalid, stamps["r-not-current"])
	assert.Equal(t, "not the current contestant", reasons["r-not-current"])
	assert.Equal(t, models.RequestStatusCompleted, stamps["r-ok"])
}

func TestSubmitRequestStoresPending(t *testing.T) {
	var stored models.RotationRequest
	db := &fakeDB{
		PutItemFn: func(_ context.Context, tableName string, item interface{}) error {
			require.Equal(t, models.RotationRequestsTable, tableName)
			stored = item.(models.RotationRequest)
			return nil
		},
	}
	rs := &RotationService{Dynamo: db}

	request, err := rs.SubmitRequest(context.Background(), "s1", "bob", models.GenderMale)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, stored.RequestID, request.RequestID)
	assert.NotEmpty(t, request.RequestID)
}
