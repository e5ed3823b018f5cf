package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"lineup_server/models"
)

// ErrNoUsersAvailable signals an evaluation round that found zero candidates;
// the coordinator retries instead of failing terminally.
var ErrNoUsersAvailable = errors.New("no users available")

// maxMatchResults is how many top-scored candidates a round returns.
const maxMatchResults = 3

// SpeedDatingService owns the search-session records and the matcher.
type SpeedDatingService struct {
	Dynamo        DB
	Profiles      *UserProfileService
	Compatibility *CompatibilityService
	SessionMaxAge time.Duration    // candidate sessions older than this are stale
	Now           func() time.Time // injectable clock
}

func (s *SpeedDatingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// StartSession creates the user's search session. One active session per user
// is enforced by a conditional put; a leftover session is deleted and the put
// retried once, so the query-then-delete race collapses to a single
// conditional write.
func (s *SpeedDatingService) StartSession(ctx context.Context, userID string, ageMin, ageMax int) (*models.SpeedDatingSession, error) {
	now := s.now()
	session := models.SpeedDatingSession{
		UserID:    userID,
		SessionID: uuid.NewString(),
		Status:    models.SessionStatusSearching,
		CreatedAt: now.Format(time.RFC3339),
		SyncGroup: SyncGroupFor(now),
		AgeMin:    ageMin,
		AgeMax:    ageMax,
	}

	err := s.Dynamo.PutItemConditional(ctx, models.SpeedDatingSessionsTable, session,
		"attribute_not_exists(userId)", nil)
	if errors.Is(err, ErrConditionFailed) {
		log.Printf("🔄 Stale session found for %s, replacing", userID)
		if err := s.CancelSession(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to clear stale session: %w", err)
		}
		err = s.Dynamo.PutItemConditional(ctx, models.SpeedDatingSessionsTable, session,
			"attribute_not_exists(userId)", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", userID, err)
	}

	log.Printf("✅ Search session created for %s (syncGroup=%d)", userID, session.SyncGroup)
	return &session, nil
}

// GetSession fetches the user's active session, if any.
func (s *SpeedDatingService) GetSession(ctx context.Context, userID string) (*models.SpeedDatingSession, error) {
	item, err := s.Dynamo.GetItem(ctx, models.SpeedDatingSessionsTable, map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	})
	if err != nil {
		return nil, err
	}

	var session models.SpeedDatingSession
	if err := attributevalue.UnmarshalMap(item, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	return &session, nil
}

// CancelSession removes the user's session (cancel, match, or timeout all end
// the same way).
func (s *SpeedDatingService) CancelSession(ctx context.Context, userID string) error {
	return s.Dynamo.DeleteItem(ctx, models.SpeedDatingSessionsTable, map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	})
}

// MarkMatched flips the session status once the user picked a match.
func (s *SpeedDatingService) MarkMatched(ctx context.Context, userID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.SpeedDatingSessionsTable,
		"SET #status = :matched",
		map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
		map[string]types.AttributeValue{
			":matched": &types.AttributeValueMemberS{Value: models.SessionStatusMatched},
		},
		map[string]string{"#status": "status"},
	)
	return err
}

// FindMatches runs one matching evaluation for the user: every currently
// searching opposite-gender session younger than the max age is resolved to a
// completed profile, scored, deduplicated, and the top results returned.
// The candidate pool ignores sync groups on purpose; groups only pace when
// this runs.
func (s *SpeedDatingService) FindMatches(ctx context.Context, userID string) ([]models.ScoredCandidate, error) {
	user, err := s.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch searcher profile: %w", err)
	}

	var sessions []models.SpeedDatingSession
	if err := s.Dynamo.ScanWithFilter(ctx, models.SpeedDatingSessionsTable, nil, nil, &sessions); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	now := s.now()
	var candidates []models.UserProfile
	for _, session := range sessions {
		if session.UserID == userID || session.Status != models.SessionStatusSearching {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, session.CreatedAt)
		if err != nil || now.Sub(createdAt) > s.SessionMaxAge {
			continue
		}

		profile, err := s.Profiles.GetUserProfile(ctx, session.UserID)
		if err != nil {
			log.Printf("⚠️ Skipping candidate %s: %v", session.UserID, err)
			continue
		}
		if !profile.ProfileComplete || profile.Gender == user.Gender {
			continue
		}
		candidates = append(candidates, *profile)
	}

	ranked := s.rankCandidates(*user, candidates)
	if len(ranked) == 0 {
		return nil, ErrNoUsersAvailable
	}

	log.Printf("✅ Matching round for %s produced %d results", userID, len(ranked))
	return ranked, nil
}

// rankCandidates scores, dedupes (first occurrence wins, self excluded),
// sorts descending, and keeps the top results.
func (s *SpeedDatingService) rankCandidates(user models.UserProfile, candidates []models.UserProfile) []models.ScoredCandidate {
	seen := map[string]bool{user.UserID: true}
	var scored []models.ScoredCandidate
	for _, candidate := range candidates {
		if seen[candidate.UserID] {
			continue
		}
		seen[candidate.UserID] = true
		scored = append(scored, models.ScoredCandidate{
			Profile: candidate,
			Score:   s.Compatibility.Score(user, candidate),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score.MatchPercentage > scored[j].Score.MatchPercentage
	})

	if len(scored) > maxMatchResults {
		scored = scored[:maxMatchResults]
	}
	return scored
}
