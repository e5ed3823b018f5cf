package models

// RejectionReview is the structured review the leaving party submits (or
// skips) when ending a chat.
type RejectionReview struct {
	UserID      string `dynamodbav:"userId" json:"userId"`       // ✅ Partition Key
	CreatedAt   string `dynamodbav:"createdAt" json:"createdAt"` // ✅ Sort Key
	ReviewID    string `dynamodbav:"reviewId" json:"reviewId"`
	PartnerID   string `dynamodbav:"partnerId" json:"partnerId"`
	Reason      string `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
	Skipped     bool   `dynamodbav:"skipped" json:"skipped"`
	ConnectionID string `dynamodbav:"connectionId,omitempty" json:"connectionId,omitempty"`
}

// RejectionReviewsTable is the DynamoDB table name for rejection reviews
const RejectionReviewsTable = "RejectionReviews"

// SpeedDatingFeedback is a global feedback entry about the feature itself.
type SpeedDatingFeedback struct {
	FeedbackID string `dynamodbav:"feedbackId" json:"feedbackId"` // ✅ Partition Key
	UserID     string `dynamodbav:"userId" json:"userId"`
	Rating     int    `dynamodbav:"rating,omitempty" json:"rating,omitempty"`
	Comments   string `dynamodbav:"comments,omitempty" json:"comments,omitempty"`
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"`
}

// SpeedDatingFeedbackTable is the DynamoDB table name for feature feedback
const SpeedDatingFeedbackTable = "SpeedDatingFeedback"
