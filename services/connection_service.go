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

const welcomeMessage = "You're connected! You have 4 hours to get to know each other."
const permanentMessage = "Congratulations! You both chose to continue. This chat is now permanent."

// ConnectionService owns temporary chat rooms, their messages, and the
// promotion handshake into permanent matches.
type ConnectionService struct {
	Dynamo    DB
	Profiles  *UserProfileService
	Broadcast Broadcaster
	Now       func() time.Time
}

func (cs *ConnectionService) now() time.Time {
	if cs.Now != nil {
		return cs.Now()
	}
	return time.Now().UTC()
}

func (cs *ConnectionService) broadcast(room, event string, data interface{}) {
	if cs.Broadcast != nil {
		cs.Broadcast.BroadcastTo(room, event, data)
	}
}

// FindBetween looks for an existing temporary room between two users,
// checking both directions since either side could have initiated.
func (cs *ConnectionService) FindBetween(ctx context.Context, userA, userB string) (*models.Connection, error) {
	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		items, err := cs.Dynamo.QueryItemsWithIndex(ctx, models.ConnectionsTable, models.ConnectionUser1Index,
			"user1Id = :user1",
			map[string]types.AttributeValue{
				":user1": &types.AttributeValueMemberS{Value: pair[0]},
			}, nil, 25)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections: %w", err)
		}
		for _, item := range items {
			var conn models.Connection
			if err := attributevalue.UnmarshalMap(item, &conn); err != nil {
				log.Printf("⚠️ Skipping unparseable connection: %v", err)
				continue
			}
			if conn.User2ID == pair[1] {
				return &conn, nil
			}
		}
	}
	return nil, nil
}

// FindPermanentBetween looks for an existing permanent match between two
// users, in both directions.
func (cs *ConnectionService) FindPermanentBetween(ctx context.Context, userA, userB string) (*models.PermanentMatch, error) {
	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		items, err := cs.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, models.ConnectionUser1Index,
			"user1Id = :user1",
			map[string]types.AttributeValue{
				":user1": &types.AttributeValueMemberS{Value: pair[0]},
			}, nil, 25)
		if err != nil {
			return nil, fmt.Errorf("failed to query matches: %w", err)
		}
		for _, item := range items {
			var match models.PermanentMatch
			if err := attributevalue.UnmarshalMap(item, &match); err != nil {
				continue
			}
			if match.User2ID == pair[1] {
				return &match, nil
			}
		}
	}
	return nil, nil
}

// Connect returns the room for the two users, creating it only when neither a
// temporary nor a permanent one exists. The welcome system message is
// appended only on creation.
func (cs *ConnectionService) Connect(ctx context.Context, userID, targetID string) (*models.Connection, bool, error) {
	if existing, err := cs.FindBetween(ctx, userID, targetID); err != nil {
		return nil, false, err
	} else if existing != nil {
		log.Printf("🔁 Reusing existing connection %s", existing.ConnectionID)
		return existing, false, nil
	}

	if match, err := cs.FindPermanentBetween(ctx, userID, targetID); err != nil {
		return nil, false, err
	} else if match != nil {
		log.Printf("🔁 Permanent match %s already exists", match.MatchID)
		return &models.Connection{
			ConnectionID: match.MatchID,
			User1ID:      match.User1ID,
			User2ID:      match.User2ID,
			Users:        match.Users,
			UserProfiles: match.UserProfiles,
			Status:       models.ConnectionStatusPermanent,
			StartedAt:    match.CreatedAt,
		}, false, nil
	}

	userProfile, err := cs.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch initiator profile: %w", err)
	}
	targetProfile, err := cs.Profiles.GetUserProfile(ctx, targetID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch target profile: %w", err)
	}

	now := cs.now()
	conn := models.Connection{
		ConnectionID: uuid.NewString(),
		User1ID:      userID,
		User2ID:      targetID,
		Users:        []string{userID, targetID},
		UserProfiles: map[string]models.ConnectionProfile{
			userID:   cs.Profiles.ConnectionProfileFor(*userProfile),
			targetID: cs.Profiles.ConnectionProfileFor(*targetProfile),
		},
		Status:    models.ConnectionStatusTemporary,
		StartedAt: now.Format(time.RFC3339), // server anchor for the chat countdown
	}

	if err := cs.Dynamo.PutItem(ctx, models.ConnectionsTable, conn); err != nil {
		return nil, false, fmt.Errorf("failed to create connection: %w", err)
	}

	if _, err := cs.AddMessage(ctx, conn.ConnectionID, "", welcomeMessage, true); err != nil {
		log.Printf("⚠️ Failed to append welcome message: %v", err)
	}

	log.Printf("✅ Connection %s created for %s and %s", conn.ConnectionID, userID, targetID)
	return &conn, true, nil
}

// GetConnection fetches one room by id.
func (cs *ConnectionService) GetConnection(ctx context.Context, connectionID string) (*models.Connection, error) {
	item, err := cs.Dynamo.GetItem(ctx, models.ConnectionsTable, map[string]types.AttributeValue{
		"connectionId": &types.AttributeValueMemberS{Value: connectionID},
	})
	if err != nil {
		return nil, err
	}
	var conn models.Connection
	if err := attributevalue.UnmarshalMap(item, &conn); err != nil {
		return nil, fmt.Errorf("failed to parse connection: %w", err)
	}
	return &conn, nil
}

// AddMessage appends a message to a room and relays it to subscribers.
func (cs *ConnectionService) AddMessage(ctx context.Context, conversationID, senderID, content string, isSystem bool) (models.Message, error) {
	message := models.Message{
		ConversationID: conversationID,
		CreatedAt:      cs.now().Format(time.RFC3339Nano),
		MessageID:      uuid.NewString(),
		SenderID:       senderID,
		Content:        content,
		IsSystem:       isSystem,
	}

	if err := cs.Dynamo.PutItem(ctx, models.MessagesTable, message); err != nil {
		return models.Message{}, fmt.Errorf("failed to store message: %w", err)
	}

	cs.broadcast(conversationID, EventNewMessage, message)
	return message, nil
}

// GetMessages fetches the latest messages for a room sorted newest first,
// then reverses them so the latest message lands at the bottom in the UI.
func (cs *ConnectionService) GetMessages(ctx context.Context, conversationID string, limit int32) ([]models.Message, error) {
	items, err := cs.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable,
		"conversationId = :conversationId",
		map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		}, nil, limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// messagePageSize bounds a single messages query; rooms can outgrow it.
const messagePageSize = 200

// allMessages pages through every message in a room in ascending order.
// Promotion and teardown need the complete set; the bounded GetMessages is
// for the UI only.
func (cs *ConnectionService) allMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var all []models.Message
	after := ""
	for {
		keyCondition := "conversationId = :conversationId"
		values := map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		}
		if after != "" {
			keyCondition += " AND createdAt > :after"
			values[":after"] = &types.AttributeValueMemberS{Value: after}
		}

		items, err := cs.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable,
			keyCondition, values, nil, messagePageSize, false)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}

		var page []models.Message
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return nil, fmt.Errorf("failed to parse messages: %w", err)
		}
		all = append(all, page...)
		if len(page) < messagePageSize {
			return all, nil
		}
		after = page[len(page)-1].CreatedAt
	}
}

// SetContinuePermanently records one side's opt-in. Promotion happens only
// after both sides have opted in; until then the room stays temporary. The
// second caller observes both flags and drives the promotion, so there is no
// time bound on the handshake.
func (cs *ConnectionService) SetContinuePermanently(ctx context.Context, connectionID, userID string) (*models.Connection, bool, error) {
	_, err := cs.Dynamo.UpdateItem(ctx, models.ConnectionsTable,
		"SET userProfiles.#uid.continuePermanently = :true",
		map[string]types.AttributeValue{
			"connectionId": &types.AttributeValueMemberS{Value: connectionID},
		},
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
		map[string]string{"#uid": userID},
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to set continue flag: %w", err)
	}

	conn, err := cs.GetConnection(ctx, connectionID)
	if err != nil {
		return nil, false, err
	}

	if !conn.BothContinue() {
		return conn, false, nil
	}

	match, err := cs.Promote(ctx, *conn)
	if err != nil {
		return nil, false, err
	}

	cs.broadcast(connectionID, EventConnectionUpdated, map[string]string{
		"status":  models.ConnectionStatusPermanent,
		"matchId": match.MatchID,
	})
	return conn, true, nil
}

// Promote atomically turns a temporary connection into a permanent match:
// copy messages to the new room, append the success system message, then in
// one transaction create the match and delete the connection. A concurrent
// promotion loses the transaction's condition checks and finds the match
// already there on re-read.
func (cs *ConnectionService) Promote(ctx context.Context, conn models.Connection) (*models.PermanentMatch, error) {
	now := cs.now()
	match := models.PermanentMatch{
		MatchID:      uuid.NewString(),
		User1ID:      conn.User1ID,
		User2ID:      conn.User2ID,
		Users:        conn.Users,
		UserProfiles: conn.UserProfiles,
		Status:       models.ConnectionStatusPermanent,
		CreatedAt:    now.Format(time.RFC3339),
	}

	messages, err := cs.allMessages(ctx, conn.ConnectionID)
	if err != nil {
		return nil, err
	}

	var copies []types.WriteRequest
	for _, msg := range messages {
		copied := msg
		copied.ConversationID = match.MatchID
		item, err := attributevalue.MarshalMap(copied)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal copied message: %w", err)
		}
		copies = append(copies, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	success := models.Message{
		ConversationID: match.MatchID,
		CreatedAt:      now.Format(time.RFC3339Nano),
		MessageID:      uuid.NewString(),
		Content:        permanentMessage,
		IsSystem:       true,
	}
	successItem, err := attributevalue.MarshalMap(success)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal success message: %w", err)
	}
	copies = append(copies, types.WriteRequest{PutRequest: &types.PutRequest{Item: successItem}})

	if err := cs.Dynamo.BatchWriteItems(ctx, models.MessagesTable, copies); err != nil {
		return nil, fmt.Errorf("failed to copy messages: %w", err)
	}

	matchItem, err := attributevalue.MarshalMap(match)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match: %w", err)
	}

	tableMatches := models.MatchesTable
	tableConnections := models.ConnectionsTable
	putCondition := "attribute_not_exists(matchId)"
	deleteCondition := "attribute_exists(connectionId)"
	err = cs.Dynamo.TransactWriteItems(ctx, []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &tableMatches,
				Item:                matchItem,
				ConditionExpression: &putCondition,
			},
		},
		{
			Delete: &types.Delete{
				TableName: &tableConnections,
				Key: map[string]types.AttributeValue{
					"connectionId": &types.AttributeValueMemberS{Value: conn.ConnectionID},
				},
				ConditionExpression: &deleteCondition,
			},
		},
	})
	if errors.Is(err, ErrConditionFailed) {
		// The other side promoted first; the match already exists. Remove the
		// copies written under this side's never-created match id so they
		// don't linger as an orphaned room.
		log.Printf("🔁 Promotion of %s raced, other side won", conn.ConnectionID)
		if cleanupErr := cs.deleteMessages(ctx, match.MatchID); cleanupErr != nil {
			log.Printf("⚠️ Could not remove raced copies for %s: %v", match.MatchID, cleanupErr)
		}
		existing, findErr := cs.FindPermanentBetween(ctx, conn.User1ID, conn.User2ID)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// Original room's messages are gone with the room.
	if err := cs.deleteMessages(ctx, conn.ConnectionID); err != nil {
		log.Printf("⚠️ Failed to delete promoted room's messages: %v", err)
	}

	log.Printf("🎉 Connection %s promoted to match %s", conn.ConnectionID, match.MatchID)
	return &match, nil
}

// Reject marks the room rejected so the counterpart's subscription observes
// it and exits too. Missing room means the counterpart already tore it down.
func (cs *ConnectionService) Reject(ctx context.Context, connectionID string) error {
	_, err := cs.Dynamo.UpdateItem(ctx, models.ConnectionsTable,
		"SET #status = :rejected",
		map[string]types.AttributeValue{
			"connectionId": &types.AttributeValueMemberS{Value: connectionID},
		},
		map[string]types.AttributeValue{
			":rejected": &types.AttributeValueMemberS{Value: models.ConnectionStatusRejected},
		},
		map[string]string{"#status": "status"},
	)
	if err != nil {
		return fmt.Errorf("failed to mark connection rejected: %w", err)
	}
	cs.broadcast(connectionID, EventConnectionUpdated, map[string]string{
		"status": models.ConnectionStatusRejected,
	})
	return nil
}

// EndChat deletes the room's messages and then the room itself. Order
// matters: the subtree goes first so a crash leaves no orphaned messages
// under a missing room.
func (cs *ConnectionService) EndChat(ctx context.Context, connectionID string) error {
	if err := cs.deleteMessages(ctx, connectionID); err != nil {
		return err
	}
	if err := cs.Dynamo.DeleteItem(ctx, models.ConnectionsTable, map[string]types.AttributeValue{
		"connectionId": &types.AttributeValueMemberS{Value: connectionID},
	}); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	log.Printf("🧹 Connection %s removed", connectionID)
	return nil
}

func (cs *ConnectionService) deleteMessages(ctx context.Context, conversationID string) error {
	messages, err := cs.allMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	var deletes []types.WriteRequest
	for _, msg := range messages {
		deletes = append(deletes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{
				Key: map[string]types.AttributeValue{
					"conversationId": &types.AttributeValueMemberS{Value: msg.ConversationID},
					"createdAt":      &types.AttributeValueMemberS{Value: msg.CreatedAt},
				},
			},
		})
	}
	return cs.Dynamo.BatchWriteItems(ctx, models.MessagesTable, deletes)
}

// SubmitRejectionReview stores the leaving party's structured review; a skip
// is recorded too.
func (cs *ConnectionService) SubmitRejectionReview(ctx context.Context, review models.RejectionReview) error {
	review.ReviewID = uuid.NewString()
	review.CreatedAt = cs.now().Format(time.RFC3339Nano)
	if err := cs.Dynamo.PutItem(ctx, models.RejectionReviewsTable, review); err != nil {
		return fmt.Errorf("failed to store rejection review: %w", err)
	}
	return nil
}

// SubmitFeedback stores feature feedback in the global collection.
func (cs *ConnectionService) SubmitFeedback(ctx context.Context, feedback models.SpeedDatingFeedback) error {
	feedback.FeedbackID = uuid.NewString()
	feedback.CreatedAt = cs.now().Format(time.RFC3339)
	if err := cs.Dynamo.PutItem(ctx, models.SpeedDatingFeedbackTable, feedback); err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}
	return nil
}
