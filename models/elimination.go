package models

// UserElimination gatekeeps lineup re-entry until eligibleAt passes.
type UserElimination struct {
	UserID       string `dynamodbav:"userId" json:"userId"` // ✅ Partition Key
	SessionID    string `dynamodbav:"sessionId" json:"sessionId"`
	EliminatedAt string `dynamodbav:"eliminatedAt" json:"eliminatedAt"`
	EligibleAt   string `dynamodbav:"eligibleAt" json:"eligibleAt"` // eliminatedAt + 48h
	Reason       string `dynamodbav:"reason" json:"reason"`
}

// UserEliminationsTable is the DynamoDB table name for elimination records
const UserEliminationsTable = "UserEliminations"
