package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"lineup_server/models"
)

type NotificationService struct {
	Dynamo DB
}

// BuildNotification assembles a notification item; rotation and elimination
// enqueue it inside their transactions rather than as a separate write.
func BuildNotification(userID, notifType, sessionID, body string, now time.Time) models.Notification {
	return models.Notification{
		UserID:         userID,
		CreatedAt:      now.Format(time.RFC3339Nano),
		NotificationID: uuid.NewString(),
		Type:           notifType,
		SessionID:      sessionID,
		Body:           body,
		Seen:           false,
	}
}

// Enqueue writes a notification outside any transaction.
func (ns *NotificationService) Enqueue(ctx context.Context, notification models.Notification) error {
	if err := ns.Dynamo.PutItem(ctx, models.NotificationsTable, notification); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (ns *NotificationService) ListForUser(ctx context.Context, userID string, limit int32) ([]models.Notification, error) {
	items, err := ns.Dynamo.QueryItemsWithOptions(ctx, models.NotificationsTable,
		"userId = :userId",
		map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		},
		nil, limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	var notifications []models.Notification
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, fmt.Errorf("failed to parse notifications: %w", err)
	}
	return notifications, nil
}

// MarkSeen flips the seen flag on one notification.
func (ns *NotificationService) MarkSeen(ctx context.Context, userID, createdAt string) error {
	_, err := ns.Dynamo.UpdateItem(ctx, models.NotificationsTable,
		"SET seen = :seen",
		map[string]types.AttributeValue{
			"userId":    &types.AttributeValueMemberS{Value: userID},
			"createdAt": &types.AttributeValueMemberS{Value: createdAt},
		},
		map[string]types.AttributeValue{
			":seen": &types.AttributeValueMemberBOOL{Value: true},
		}, nil)
	return err
}
