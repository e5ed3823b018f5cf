package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"lineup_server/models"
)

// ErrOnCooldown is returned when an eliminated user tries to rejoin before
// their eligibleAt has passed.
var ErrOnCooldown = errors.New("user is on elimination cooldown")

// LineupService owns lineup room membership: creating rooms, admitting
// contestants (after the elimination cooldown check), and leaving.
type LineupService struct {
	Dynamo       DB
	Rotation     *RotationService
	Eliminations *EliminationService
	Now          func() time.Time
}

func (ls *LineupService) now() time.Time {
	if ls.Now != nil {
		return ls.Now()
	}
	return time.Now().UTC()
}

// CreateSession opens a new lineup room.
func (ls *LineupService) CreateSession(ctx context.Context, primaryGender string) (*models.LineupSession, error) {
	session := models.LineupSession{
		SessionID:     uuid.NewString(),
		Status:        models.LineupStatusActive,
		PrimaryGender: primaryGender,
		CreatedAt:     ls.now().Format(time.RFC3339),
	}
	if err := ls.Dynamo.PutItem(ctx, models.LineupSessionsTable, session); err != nil {
		return nil, fmt.Errorf("failed to create lineup session: %w", err)
	}
	log.Printf("✅ Lineup session %s created", session.SessionID)
	return &session, nil
}

// EndSession marks a room ended; the schedulers skip it from then on.
func (ls *LineupService) EndSession(ctx context.Context, sessionID string) error {
	_, err := ls.Dynamo.UpdateItem(ctx, models.LineupSessionsTable,
		"SET #status = :ended",
		map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
		map[string]types.AttributeValue{
			":ended": &types.AttributeValueMemberS{Value: models.LineupStatusEnded},
		},
		map[string]string{"#status": "status"},
	)
	return err
}

// Join admits a contestant to a room. Admission consults the elimination
// cooldown first; a join while one is active is refused, not queued.
func (ls *LineupService) Join(ctx context.Context, sessionID, userID, gender string) (*models.ContestantJoinRecord, error) {
	eligible, elimination, err := ls.Eliminations.CanRejoin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		log.Printf("🚫 %s refused lineup entry until %s", userID, elimination.EligibleAt)
		return nil, ErrOnCooldown
	}

	record := models.ContestantJoinRecord{
		SessionID: sessionID,
		UserID:    userID,
		Gender:    gender,
		JoinedAt:  ls.now().Format(time.RFC3339Nano),
		Completed: false,
	}
	err = ls.Dynamo.PutItemConditional(ctx, models.LineupContestantsTable, record,
		"attribute_not_exists(userId)", nil)
	if errors.Is(err, ErrConditionFailed) {
		// Already joined; keep the original join time so FIFO order holds.
		return nil, fmt.Errorf("user %s already joined session %s", userID, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join lineup: %w", err)
	}
	return &record, nil
}

// Leave completes the contestant's run without an elimination.
func (ls *LineupService) Leave(ctx context.Context, sessionID, userID string) error {
	_, err := ls.Dynamo.UpdateItem(ctx, models.LineupContestantsTable,
		"SET completed = :true, completedAt = :now",
		map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: sessionID},
			"userId":    &types.AttributeValueMemberS{Value: userID},
		},
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: ls.now().Format(time.RFC3339)},
		}, nil)
	return err
}

// LineupState is the UI snapshot of a room.
type LineupState struct {
	Session     models.LineupSession          `json:"session"`
	Contestants []models.ContestantJoinRecord `json:"contestants"`
	LatestEvent *models.RotationEvent         `json:"latestEvent,omitempty"`
}

// State returns the room, its contestants, and the latest rotation event.
func (ls *LineupService) State(ctx context.Context, sessionID string) (*LineupState, error) {
	session, err := ls.Rotation.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	contestants, err := ls.Rotation.Contestants(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := &LineupState{Session: *session, Contestants: contestants}

	item, err := ls.Dynamo.GetItem(ctx, models.RotationEventsTable, map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		"docId":     &types.AttributeValueMemberS{Value: models.RotationEventDocID},
	})
	if err == nil {
		var event models.RotationEvent
		if err := attributevalue.UnmarshalMap(item, &event); err == nil {
			state.LatestEvent = &event
		}
	} else if !errors.Is(err, ErrItemNotFound) {
		log.Printf("⚠️ Failed to fetch latest rotation event for %s: %v", sessionID, err)
	}

	return state, nil
}
