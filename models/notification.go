package models

// Notification is an enqueued in-app notification ("your turn", eliminated).
type Notification struct {
	UserID         string `dynamodbav:"userId" json:"userId"`       // ✅ Partition Key
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"` // ✅ Sort Key
	NotificationID string `dynamodbav:"notificationId" json:"notificationId"`
	Type           string `dynamodbav:"type" json:"type"`
	SessionID      string `dynamodbav:"sessionId,omitempty" json:"sessionId,omitempty"`
	Body           string `dynamodbav:"body,omitempty" json:"body,omitempty"`
	Seen           bool   `dynamodbav:"seen" json:"seen"`
}

// NotificationsTable is the DynamoDB table name for notifications
const NotificationsTable = "Notifications"
