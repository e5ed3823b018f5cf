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

func profileFixture(userID, gender string, age int) models.UserProfile {
	return models.UserProfile{
		UserID:          userID,
		DisplayName:     userID,
		Gender:          gender,
		Age:             age,
		Interests:       []string{"travel"},
		ProfileComplete: true,
	}
}

func matcherFixture(t *testing.T, profiles map[string]models.UserProfile, sessions []models.SpeedDatingSession, now time.Time) *SpeedDatingService {
	t.Helper()
	db := &fakeDB{
		GetItemFn: func(_ context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
			require.Equal(t, models.UserProfilesTable, tableName)
			id := key["userId"].(*types.AttributeValueMemberS).Value
			profile, ok := profiles[id]
			if !ok {
				return nil, ErrItemNotFound
			}
			return mustMarshal(t, profile), nil
		},
		ScanWithFilterFn: func(_ context.Context, tableName string, _ func(map[string]types.AttributeValue) bool, _ map[string]string, result interface{}) error {
			require.Equal(t, models.SpeedDatingSessionsTable, tableName)
			*result.(*[]models.SpeedDatingSession) = sessions
			return nil
		},
	}
	return &SpeedDatingService{
		Dynamo:        db,
		Profiles:      &UserProfileService{Dynamo: db},
		Compatibility: fixedJitter(0),
		SessionMaxAge: 5 * time.Minute,
		Now:           func() time.Time { return now },
	}
}

func searchingSession(userID string, createdAt time.Time) models.SpeedDatingSession {
	return models.SpeedDatingSession{
		UserID:    userID,
		SessionID: "sess-" + userID,
		Status:    models.SessionStatusSearching,
		CreatedAt: createdAt.Format(time.RFC3339),
		SyncGroup: SyncGroupFor(createdAt),
	}
}

func TestFindMatchesFiltersThePool(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	profiles := map[string]models.UserProfile{
		"alice":  profileFixture("alice", models.GenderFemale, 30),
		"bob":    profileFixture("bob", models.GenderMale, 31),
		"stale":  profileFixture("stale", models.GenderMale, 32),
		"clara":  profileFixture("clara", models.GenderFemale, 29),
		"hidden": {UserID: "hidden", Gender: models.GenderMale, ProfileComplete: false},
	}
	sessions := []models.SpeedDatingSession{
		searchingSession("alice", now.Add(-time.Minute)),
		searchingSession("bob", now.Add(-time.Minute)),
		searchingSession("stale", now.Add(-time.Hour)), // past the session max age
		searchingSession("clara", now.Add(-time.Minute)),  // same gender as searcher
		searchingSession("hidden", now.Add(-time.Minute)), // incomplete profile
		{UserID: "matched", Status: models.SessionStatusMatched, CreatedAt: now.Format(time.RFC3339)},
	}
	s := matcherFixture(t, profiles, sessions, now)

	results, err := s.FindMatches(context.Background(), "alice")
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].Profile.UserID)
}

func TestFindMatchesEmptyPool(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	profiles := map[string]models.UserProfile{
		"alice": profileFixture("alice", models.GenderFemale, 30),
	}
	s := matcherFixture(t, profiles, []models.SpeedDatingSession{searchingSession("alice", now)}, now)

	_, err := s.FindMatches(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNoUsersAvailable)
}

func TestRankCandidatesDedupesAndSorts(t *testing.T) {
	s := &SpeedDatingService{Compatibility: fixedJitter(0)}
	user := models.UserProfile{
		UserID:    "alice",
		Gender:    models.GenderFemale,
		Age:       30,
		Interests: []string{"travel", "music"},
	}

	strong := profileFixture("bob", models.GenderMale, 30)
	strong.Interests = []string{"travel", "music"}
	weak := profileFixture("carl", models.GenderMale, 30)
	weak.Interests = []string{"chess"}

	ranked := s.rankCandidates(user, []models.UserProfile{
		weak,
		strong,
		strong, // duplicate entry from overlapping scans
		user,   // searcher leaked into their own pool
	})

	require.Len(t, ranked, 2)
	assert.Equal(t, "bob", ranked[0].Profile.UserID)
	assert.Equal(t, "carl", ranked[1].Profile.UserID)
	assert.Greater(t, ranked[0].Score.MatchPercentage, ranked[1].Score.MatchPercentage)
}

func TestRankCandidatesKeepsTopThree(t *testing.T) {
	s := &SpeedDatingService{Compatibility: fixedJitter(0)}
	user := profileFixture("alice", models.GenderFemale, 30)

	candidates := []models.UserProfile{
		profileFixture("b1", models.GenderMale, 30),
		profileFixture("b2", models.GenderMale, 31),
		profileFixture("b3", models.GenderMale, 32),
		profileFixture("b4", models.GenderMale, 33),
		profileFixture("b5", models.GenderMale, 34),
	}
	ranked := s.rankCandidates(user, candidates)
	assert.Len(t, ranked, maxMatchResults)
}

func TestStartSessionReplacesStaleSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var puts, deletes int
	db := &fakeDB{
		PutItemConditionalFn: func(_ context.Context, tableName string, _ interface{}, condition string, _ map[string]string) error {
			require.Equal(t, models.SpeedDatingSessionsTable, tableName)
			require.Equal(t, "attribute_not_exists(userId)", condition)
			puts++
			if puts == 1 {
				return ErrConditionFailed
			}
			return nil
		},
		DeleteItemFn: func(_ context.Context, tableName string, _ map[string]types.AttributeValue) error {
			require.Equal(t, models.SpeedDatingSessionsTable, tableName)
			deletes++
			return nil
		},
	}
	s := &SpeedDatingService{Dynamo: db, Now: func() time.Time { return now }}

	session, err := s.StartSession(context.Background(), "alice", 28, 34)
	require.NoError(t, err)

	assert.Equal(t, 2, puts)
	assert.Equal(t, 1, deletes)
	assert.Equal(t, models.SessionStatusSearching, session.Status)
	assert.Equal(t, SyncGroupFor(now), session.SyncGroup)
	assert.Equal(t, 28, session.AgeMin)
	assert.Equal(t, 34, session.AgeMax)
}

func TestStartSessionFirstTry(t *testing.T) {
	db := &fakeDB{
		DeleteItemFn: func(_ context.Context, _ string, _ map[string]types.AttributeValue) error {
			t.Fatal("no delete expected on a clean create")
			return nil
		},
	}
	s := &SpeedDatingService{Dynamo: db}

	session, err := s.StartSession(context.Background(), "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "alice", session.UserID)
	assert.NotEmpty(t, session.SessionID)
}
