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

// EliminationService enforces the pop-count threshold: a contestant whose
// spotlight stats cross it is rotated out (when live), completed, and locked
// out of lineups for the cooldown window. popCount is a one-way trigger,
// never decremented.
type EliminationService struct {
	Dynamo       DB
	Rotation     *RotationService
	PopThreshold int
	Cooldown     time.Duration
	Now          func() time.Time
}

func (es *EliminationService) now() time.Time {
	if es.Now != nil {
		return es.Now()
	}
	return time.Now().UTC()
}

// BuildElimination assembles the cooldown record for one elimination.
func BuildElimination(userID, sessionID, reason string, eliminatedAt time.Time, cooldown time.Duration) models.UserElimination {
	return models.UserElimination{
		UserID:       userID,
		SessionID:    sessionID,
		EliminatedAt: eliminatedAt.Format(time.RFC3339),
		EligibleAt:   eliminatedAt.Add(cooldown).Format(time.RFC3339),
		Reason:       reason,
	}
}

// SpotlightStats lists a session's per-contestant stats.
func (es *EliminationService) SpotlightStats(ctx context.Context, sessionID string) ([]models.SpotlightStat, error) {
	items, err := es.Dynamo.QueryItems(ctx, models.SpotlightStatsTable,
		"sessionId = :sessionId",
		map[string]types.AttributeValue{
			":sessionId": &types.AttributeValueMemberS{Value: sessionID},
		}, nil, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to list spotlight stats: %w", err)
	}
	var stats []models.SpotlightStat
	if err := attributevalue.UnmarshalListOfMaps(items, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse spotlight stats: %w", err)
	}
	return stats, nil
}

// RunSweep scans every active session for contestants at or past the pop
// threshold, skipping ones already completed, and eliminates each in its own
// transaction. Per-item failures are logged and the sweep continues.
func (es *EliminationService) RunSweep(ctx context.Context) error {
	sessions, err := es.Rotation.ActiveSessions(ctx)
	if err != nil {
		return err
	}

	for _, session := range sessions {
		stats, err := es.SpotlightStats(ctx, session.SessionID)
		if err != nil {
			log.Printf("⚠️ Skipping session %s: %v", session.SessionID, err)
			continue
		}

		records, err := es.Rotation.Contestants(ctx, session.SessionID)
		if err != nil {
			log.Printf("⚠️ Skipping session %s: %v", session.SessionID, err)
			continue
		}
		recordsByUser := map[string]models.ContestantJoinRecord{}
		for _, r := range records {
			recordsByUser[r.UserID] = r
		}

		for _, stat := range stats {
			if stat.PopCount < es.PopThreshold {
				continue
			}
			record, ok := recordsByUser[stat.UserID]
			if !ok || record.Completed {
				continue
			}
			if err := es.Eliminate(ctx, session, record); err != nil &&
				!errors.Is(err, ErrConditionFailed) {
				log.Printf("⚠️ Elimination of %s in %s failed: %v", stat.UserID, session.SessionID, err)
			}
		}
	}
	return nil
}

// Eliminate removes one contestant in a single transaction: when they hold
// the live spotlight the same FIFO-advance rotation as the timer path runs
// (falling back to clearing the track when nobody else is eligible, including
// the legacy general field); the join record is completed with eliminatedAt;
// the cooldown record and the elimination notification are written alongside.
func (es *EliminationService) Eliminate(ctx context.Context, session models.LineupSession, record models.ContestantJoinRecord) error {
	now := es.now()
	eliminatedAt := now.Format(time.RFC3339)

	var items []types.TransactWriteItem
	var rotationEvent *models.RotationEvent

	live := session.CurrentFor(record.Gender) == record.UserID
	if live {
		records, err := es.Rotation.Contestants(ctx, session.SessionID)
		if err != nil {
			return err
		}
		nextID, ok := nextContestant(records, record.Gender, record.UserID)
		if ok && nextID != record.UserID {
			event := models.RotationEvent{
				SessionID:            session.SessionID,
				DocID:                models.RotationEventDocID,
				RotationID:           uuid.NewString(),
				Timestamp:            now.Format(time.RFC3339Nano),
				PreviousContestantID: record.UserID,
				NewContestantID:      nextID,
				Gender:               record.Gender,
				Reason:               models.RotationReasonElimination,
			}
			rotationItems, err := es.Rotation.buildRotationTransaction(session, record.Gender, record.UserID, nextID, event, now, eliminatedAt)
			if err != nil {
				return err
			}
			items = append(items, rotationItems...)
			rotationEvent = &event
		} else {
			// No eligible successor: no rotation, but the spotlight must not
			// keep pointing at an eliminated contestant.
			items = append(items, es.clearSpotlightItem(session, record.Gender, record.UserID, now))
			items = append(items, es.completeRecordItem(session.SessionID, record.UserID, now, eliminatedAt))
		}
	} else {
		items = append(items, es.completeRecordItem(session.SessionID, record.UserID, now, eliminatedAt))
	}

	elimination := BuildElimination(record.UserID, session.SessionID, "pop threshold reached", now, es.Cooldown)
	eliminationItem, err := attributevalue.MarshalMap(elimination)
	if err != nil {
		return fmt.Errorf("failed to marshal elimination: %w", err)
	}
	eliminationsTable := models.UserEliminationsTable
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{TableName: &eliminationsTable, Item: eliminationItem},
	})

	notification := BuildNotification(record.UserID, models.NotificationEliminated, session.SessionID,
		"You've been eliminated from the lineup. You can rejoin in 48 hours.", now)
	notificationItem, err := attributevalue.MarshalMap(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	notificationsTable := models.NotificationsTable
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{TableName: &notificationsTable, Item: notificationItem},
	})

	if err := es.Dynamo.TransactWriteItems(ctx, items); err != nil {
		return err
	}

	if rotationEvent != nil && es.Rotation.Broadcast != nil {
		es.Rotation.Broadcast.BroadcastTo(session.SessionID, EventRotation, *rotationEvent)
	}
	log.Printf("🚫 Contestant %s eliminated from %s (eligible again %s)", record.UserID, session.SessionID, elimination.EligibleAt)
	return nil
}

// clearSpotlightItem empties a track's current-contestant fields, conditioned
// on the eliminated contestant still holding them.
func (es *EliminationService) clearSpotlightItem(session models.LineupSession, gender, userID string, now time.Time) types.TransactWriteItem {
	currentField := "currentMaleContestantId"
	timeField := "maleLastRotationTime"
	if gender == models.GenderFemale {
		currentField = "currentFemaleContestantId"
		timeField = "femaleLastRotationTime"
	}

	expr := "SET #cur = :empty, #time = :now"
	names := map[string]string{"#cur": currentField, "#time": timeField}
	values := map[string]types.AttributeValue{
		":empty":    &types.AttributeValueMemberS{Value: ""},
		":now":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":expected": &types.AttributeValueMemberS{Value: userID},
	}
	if session.CurrentContestantID == userID {
		expr += ", #legacy = :empty"
		names["#legacy"] = "currentContestantId"
	}
	condition := "#cur = :expected"

	table := models.LineupSessionsTable
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName: &table,
			Key: map[string]types.AttributeValue{
				"sessionId": &types.AttributeValueMemberS{Value: session.SessionID},
			},
			UpdateExpression:          &expr,
			ConditionExpression:       &condition,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		},
	}
}

func (es *EliminationService) completeRecordItem(sessionID, userID string, now time.Time, eliminatedAt string) types.TransactWriteItem {
	expr := "SET completed = :true, completedAt = :now, eliminatedAt = :eliminatedAt"
	table := models.LineupContestantsTable
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName: &table,
			Key: map[string]types.AttributeValue{
				"sessionId": &types.AttributeValueMemberS{Value: sessionID},
				"userId":    &types.AttributeValueMemberS{Value: userID},
			},
			UpdateExpression: &expr,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":true":         &types.AttributeValueMemberBOOL{Value: true},
				":now":          &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
				":eliminatedAt": &types.AttributeValueMemberS{Value: eliminatedAt},
			},
		},
	}
}

// GetElimination fetches the user's cooldown record, if any.
func (es *EliminationService) GetElimination(ctx context.Context, userID string) (*models.UserElimination, error) {
	item, err := es.Dynamo.GetItem(ctx, models.UserEliminationsTable, map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	})
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var elimination models.UserElimination
	if err := attributevalue.UnmarshalMap(item, &elimination); err != nil {
		return nil, fmt.Errorf("failed to parse elimination: %w", err)
	}
	return &elimination, nil
}

// CanRejoin reports whether the user's cooldown, if any, has passed.
func (es *EliminationService) CanRejoin(ctx context.Context, userID string) (bool, *models.UserElimination, error) {
	elimination, err := es.GetElimination(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	if elimination == nil {
		return true, nil, nil
	}
	eligibleAt, err := time.Parse(time.RFC3339, elimination.EligibleAt)
	if err != nil {
		return false, elimination, fmt.Errorf("failed to parse eligibleAt: %w", err)
	}
	return !es.now().Before(eligibleAt), elimination, nil
}
