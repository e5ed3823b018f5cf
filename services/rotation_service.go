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

// ErrNoEligibleContestant means the FIFO computation found nobody to advance
// to; the rotation declines rather than looping a lone contestant.
var ErrNoEligibleContestant = errors.New("no eligible contestant")

// requestBatchSize bounds how many pending rotation requests one sweep takes.
const requestBatchSize = 25

// RotationService advances the lineup spotlight. The timer sweep and the
// client request path both reduce to the one transactional rotate routine so
// the two code paths cannot drift.
type RotationService struct {
	Dynamo            DB
	Broadcast         Broadcaster
	SpotlightDuration time.Duration
	RequestMaxAge     time.Duration
	Now               func() time.Time
}

func (rs *RotationService) now() time.Time {
	if rs.Now != nil {
		return rs.Now()
	}
	return time.Now().UTC()
}

func (rs *RotationService) broadcast(room, event string, data interface{}) {
	if rs.Broadcast != nil {
		rs.Broadcast.BroadcastTo(room, event, data)
	}
}

// ActiveSessions lists lineup rooms still rotating.
func (rs *RotationService) ActiveSessions(ctx context.Context) ([]models.LineupSession, error) {
	var sessions []models.LineupSession
	err := rs.Dynamo.ScanWithFilter(ctx, models.LineupSessionsTable, func(item map[string]types.AttributeValue) bool {
		if status, ok := item["status"].(*types.AttributeValueMemberS); ok {
			return status.Value == models.LineupStatusActive
		}
		return false
	}, nil, &sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return sessions, nil
}

// GetSession fetches one lineup room.
func (rs *RotationService) GetSession(ctx context.Context, sessionID string) (*models.LineupSession, error) {
	item, err := rs.Dynamo.GetItem(ctx, models.LineupSessionsTable, map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
	})
	if err != nil {
		return nil, err
	}
	var session models.LineupSession
	if err := attributevalue.UnmarshalMap(item, &session); err != nil {
		return nil, fmt.Errorf("failed to parse lineup session: %w", err)
	}
	return &session, nil
}

// Contestants lists a session's join records.
func (rs *RotationService) Contestants(ctx context.Context, sessionID string) ([]models.ContestantJoinRecord, error) {
	items, err := rs.Dynamo.QueryItems(ctx, models.LineupContestantsTable,
		"sessionId = :sessionId",
		map[string]types.AttributeValue{
			":sessionId": &types.AttributeValueMemberS{Value: sessionID},
		}, nil, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to list contestants: %w", err)
	}
	var records []models.ContestantJoinRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, fmt.Errorf("failed to parse contestants: %w", err)
	}
	return records, nil
}

// nextContestant computes the FIFO successor within a gender track. Eligible
// records are not-completed, ordered by join time ascending; the outgoing
// contestant is excluded and the order wraps to the front. An empty currentID
// selects the head of the queue.
func nextContestant(records []models.ContestantJoinRecord, gender, currentID string) (string, bool) {
	var eligible []models.ContestantJoinRecord
	var current *models.ContestantJoinRecord
	for i := range records {
		r := records[i]
		if r.Gender != gender {
			continue
		}
		if r.UserID == currentID {
			current = &records[i]
			continue
		}
		if r.Completed {
			continue
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return "", false
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].JoinedAt < eligible[j].JoinedAt
	})

	if currentID == "" || current == nil {
		return eligible[0].UserID, true
	}

	for _, r := range eligible {
		if r.JoinedAt > current.JoinedAt {
			return r.UserID, true
		}
	}
	// Outgoing was last in line; wrap to the start.
	return eligible[0].UserID, true
}

// Rotate is the shared transactional rotation routine, parameterized by
// (sessionID, gender, expectedCurrentID, reason). In one transaction it
// advances the session's current contestant (conditioned on the expected
// previous value so concurrent writers lose cleanly), completes the outgoing
// join record, overwrites the "latest" rotation event, and enqueues the
// incoming contestant's your-turn notification.
func (rs *RotationService) Rotate(ctx context.Context, session models.LineupSession, gender, expectedCurrentID, reason string) (*models.RotationEvent, error) {
	records, err := rs.Contestants(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}

	nextID, ok := nextContestant(records, gender, expectedCurrentID)
	if !ok || nextID == expectedCurrentID {
		return nil, ErrNoEligibleContestant
	}

	now := rs.now()
	event := models.RotationEvent{
		SessionID:            session.SessionID,
		DocID:                models.RotationEventDocID,
		RotationID:           uuid.NewString(),
		Timestamp:            now.Format(time.RFC3339Nano),
		PreviousContestantID: expectedCurrentID,
		NewContestantID:      nextID,
		Gender:               gender,
		Reason:               reason,
	}

	items, err := rs.buildRotationTransaction(session, gender, expectedCurrentID, nextID, event, now, "")
	if err != nil {
		return nil, err
	}

	if err := rs.Dynamo.TransactWriteItems(ctx, items); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			// Somebody else rotated this track first; nothing to do.
			log.Printf("🔁 Rotation for %s/%s lost the current-contestant check", session.SessionID, gender)
		}
		return nil, err
	}

	rs.broadcast(session.SessionID, EventRotation, event)
	log.Printf("✅ Rotated %s/%s: %s → %s (%s)", session.SessionID, gender, expectedCurrentID, nextID, reason)
	return &event, nil
}

// buildRotationTransaction assembles the transact items for one rotation.
// A non-empty eliminatedAt stamps the outgoing join record as an elimination
// in the same completion update.
func (rs *RotationService) buildRotationTransaction(session models.LineupSession, gender, expectedCurrentID, nextID string, event models.RotationEvent, now time.Time, eliminatedAt string) ([]types.TransactWriteItem, error) {
	currentField := "currentMaleContestantId"
	timeField := "maleLastRotationTime"
	if gender == models.GenderFemale {
		currentField = "currentFemaleContestantId"
		timeField = "femaleLastRotationTime"
	}

	sessionsTable := models.LineupSessionsTable
	contestantsTable := models.LineupContestantsTable
	eventsTable := models.RotationEventsTable
	notificationsTable := models.NotificationsTable

	updateExpr := "SET #cur = :next, #time = :now"
	names := map[string]string{
		"#cur":  currentField,
		"#time": timeField,
	}
	values := map[string]types.AttributeValue{
		":next": &types.AttributeValueMemberS{Value: nextID},
		":now":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}

	// The legacy single-track field follows whenever it pointed at the
	// outgoing contestant or the track is the session's primary gender.
	if (expectedCurrentID != "" && session.CurrentContestantID == expectedCurrentID) ||
		(session.PrimaryGender != "" && session.PrimaryGender == gender) {
		updateExpr += ", #legacy = :next"
		names["#legacy"] = "currentContestantId"
	}

	var condition string
	if expectedCurrentID == "" {
		condition = "attribute_not_exists(#cur) OR #cur = :empty"
		values[":empty"] = &types.AttributeValueMemberS{Value: ""}
	} else {
		condition = "#cur = :expected"
		values[":expected"] = &types.AttributeValueMemberS{Value: expectedCurrentID}
	}

	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName: &sessionsTable,
				Key: map[string]types.AttributeValue{
					"sessionId": &types.AttributeValueMemberS{Value: session.SessionID},
				},
				UpdateExpression:          &updateExpr,
				ConditionExpression:       &condition,
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			},
		},
	}

	// Completing the outgoing contestant is part of the same transaction;
	// the completed flag is one-way and never reset afterwards.
	if expectedCurrentID != "" {
		completeExpr := "SET completed = :true, completedAt = :now"
		completeValues := map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		}
		if eliminatedAt != "" {
			completeExpr += ", eliminatedAt = :eliminatedAt"
			completeValues[":eliminatedAt"] = &types.AttributeValueMemberS{Value: eliminatedAt}
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName: &contestantsTable,
				Key: map[string]types.AttributeValue{
					"sessionId": &types.AttributeValueMemberS{Value: session.SessionID},
					"userId":    &types.AttributeValueMemberS{Value: expectedCurrentID},
				},
				UpdateExpression:          &completeExpr,
				ExpressionAttributeValues: completeValues,
			},
		})
	}

	eventItem, err := attributevalue.MarshalMap(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rotation event: %w", err)
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{TableName: &eventsTable, Item: eventItem},
	})

	notification := BuildNotification(nextID, models.NotificationYourTurn, session.SessionID,
		"You're up! It's your turn in the lineup.", now)
	notificationItem, err := attributevalue.MarshalMap(notification)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{TableName: &notificationsTable, Item: notificationItem},
	})

	return items, nil
}

// RunSweep is the timer-driven rotation job: for every active session and
// each gender track, auto-select a contestant for an empty spotlight, or
// advance one whose spotlight time has elapsed. Per-item failures are logged
// and the sweep moves on.
func (rs *RotationService) RunSweep(ctx context.Context) error {
	sessions, err := rs.ActiveSessions(ctx)
	if err != nil {
		return err
	}

	now := rs.now()
	for _, session := range sessions {
		for _, gender := range []string{models.GenderMale, models.GenderFemale} {
			currentID := session.CurrentFor(gender)

			if currentID == "" {
				if _, err := rs.Rotate(ctx, session, gender, "", models.RotationReasonTimer); err != nil &&
					!errors.Is(err, ErrNoEligibleContestant) && !errors.Is(err, ErrConditionFailed) {
					log.Printf("⚠️ Auto-select failed for %s/%s: %v", session.SessionID, gender, err)
				}
				continue
			}

			lastRotation := session.LastRotationFor(gender)
			anchor, err := time.Parse(time.RFC3339, lastRotation)
			if err != nil {
				// Missing or malformed anchor: start the clock now instead
				// of rotating on garbage.
				log.Printf("⚠️ Bad rotation anchor for %s/%s (%q), resetting", session.SessionID, gender, lastRotation)
				rs.resetRotationClock(ctx, session.SessionID, gender, now)
				continue
			}

			if now.Sub(anchor) > rs.SpotlightDuration {
				if _, err := rs.Rotate(ctx, session, gender, currentID, models.RotationReasonTimer); err != nil &&
					!errors.Is(err, ErrNoEligibleContestant) && !errors.Is(err, ErrConditionFailed) {
					log.Printf("⚠️ Rotation failed for %s/%s: %v", session.SessionID, gender, err)
				}
			}
		}
	}
	return nil
}

func (rs *RotationService) resetRotationClock(ctx context.Context, sessionID, gender string, now time.Time) {
	timeField := "maleLastRotationTime"
	if gender == models.GenderFemale {
		timeField = "femaleLastRotationTime"
	}
	_, err := rs.Dynamo.UpdateItem(ctx, models.LineupSessionsTable,
		"SET #time = :now",
		map[string]types.AttributeValue{
			"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		},
		map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		map[string]string{"#time": timeField},
	)
	if err != nil {
		log.Printf("⚠️ Failed to reset rotation clock for %s/%s: %v", sessionID, gender, err)
	}
}

// SubmitRequest records a client's out-of-band rotation ask.
func (rs *RotationService) SubmitRequest(ctx context.Context, sessionID, userID, gender string) (*models.RotationRequest, error) {
	request := models.RotationRequest{
		RequestID:   uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		Gender:      gender,
		RequestTime: rs.now().Format(time.RFC3339),
		Status:      models.RequestStatusPending,
	}
	if err := rs.Dynamo.PutItem(ctx, models.RotationRequestsTable, request); err != nil {
		return nil, fmt.Errorf("failed to store rotation request: %w", err)
	}
	return &request, nil
}

// ProcessRequests honors pending client rotation requests in small batches.
// A request must be younger than the max age and must name the track's actual
// current contestant; anything else is stamped invalid with a reason instead
// of raising an error.
func (rs *RotationService) ProcessRequests(ctx context.Context) error {
	var requests []models.RotationRequest
	err := rs.Dynamo.ScanWithFilter(ctx, models.RotationRequestsTable, func(item map[string]types.AttributeValue) bool {
		if status, ok := item["status"].(*types.AttributeValueMemberS); ok {
			return status.Value == models.RequestStatusPending
		}
		return false
	}, nil, &requests)
	if err != nil {
		return fmt.Errorf("failed to scan rotation requests: %w", err)
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].RequestTime < requests[j].RequestTime
	})
	if len(requests) > requestBatchSize {
		requests = requests[:requestBatchSize]
	}

	now := rs.now()
	for _, request := range requests {
		requestTime, err := time.Parse(time.RFC3339, request.RequestTime)
		if err != nil || now.Sub(requestTime) > rs.RequestMaxAge {
			rs.stampRequest(ctx, request.RequestID, models.RequestStatusInvalid, "stale request")
			continue
		}

		session, err := rs.GetSession(ctx, request.SessionID)
		if err != nil {
			rs.stampRequest(ctx, request.RequestID, models.RequestStatusInvalid, "session not found")
			continue
		}

		if session.CurrentFor(request.Gender) != request.UserID {
			rs.stampRequest(ctx, request.RequestID, models.RequestStatusInvalid, "not the current contestant")
			continue
		}

		// Same transactional routine the timer path uses.
		if _, err := rs.Rotate(ctx, *session, request.Gender, request.UserID, models.RotationReasonRequest); err != nil {
			rs.stampRequest(ctx, request.RequestID, models.RequestStatusFailed, err.Error())
			continue
		}
		rs.stampRequest(ctx, request.RequestID, models.RequestStatusCompleted, "")
	}
	return nil
}

func (rs *RotationService) stampRequest(ctx context.Context, requestID, status, reason string) {
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
	}
	expr := "SET #status = :status"
	if reason != "" {
		expr += ", reason = :reason"
		values[":reason"] = &types.AttributeValueMemberS{Value: reason}
	}
	_, err := rs.Dynamo.UpdateItem(ctx, models.RotationRequestsTable, expr,
		map[string]types.AttributeValue{
			"requestId": &types.AttributeValueMemberS{Value: requestID},
		},
		values,
		map[string]string{"#status": "status"},
	)
	if err != nil {
		log.Printf("⚠️ Failed to stamp request %s as %s: %v", requestID, status, err)
	}
}
