package models

// LineupSession is one shared lineup room. The two gender tracks rotate
// independently; CurrentContestantID is the legacy single-track field still
// honored by the elimination path.
type LineupSession struct {
	SessionID                 string `dynamodbav:"sessionId" json:"sessionId"` // ✅ Partition Key
	Status                    string `dynamodbav:"status" json:"status"`       // active, ended
	CurrentMaleContestantID   string `dynamodbav:"currentMaleContestantId,omitempty" json:"currentMaleContestantId,omitempty"`
	CurrentFemaleContestantID string `dynamodbav:"currentFemaleContestantId,omitempty" json:"currentFemaleContestantId,omitempty"`
	CurrentContestantID       string `dynamodbav:"currentContestantId,omitempty" json:"currentContestantId,omitempty"` // legacy single-track field
	MaleLastRotationTime      string `dynamodbav:"maleLastRotationTime,omitempty" json:"maleLastRotationTime,omitempty"`
	FemaleLastRotationTime    string `dynamodbav:"femaleLastRotationTime,omitempty" json:"femaleLastRotationTime,omitempty"`
	PrimaryGender             string `dynamodbav:"primaryGender,omitempty" json:"primaryGender,omitempty"`
	CreatedAt                 string `dynamodbav:"createdAt" json:"createdAt"`
}

// CurrentFor returns the live contestant id for a gender track.
func (s LineupSession) CurrentFor(gender string) string {
	if gender == GenderFemale {
		return s.CurrentFemaleContestantID
	}
	return s.CurrentMaleContestantID
}

// LastRotationFor returns the rotation anchor timestamp for a gender track.
func (s LineupSession) LastRotationFor(gender string) string {
	if gender == GenderFemale {
		return s.FemaleLastRotationTime
	}
	return s.MaleLastRotationTime
}

// LineupSessionsTable is the DynamoDB table name for lineup rooms
const LineupSessionsTable = "LineupSessions"

// ContestantJoinRecord is the contestantJoinTimes subcollection entry, keyed
// by (sessionId, userId). FIFO rotation order per gender is joinedAt
// ascending among completed=false records. completed is never reset once set.
type ContestantJoinRecord struct {
	SessionID    string `dynamodbav:"sessionId" json:"sessionId"` // ✅ Partition Key
	UserID       string `dynamodbav:"userId" json:"userId"`       // ✅ Sort Key
	Gender       string `dynamodbav:"gender" json:"gender"`
	JoinedAt     string `dynamodbav:"joinedAt" json:"joinedAt"`
	Completed    bool   `dynamodbav:"completed" json:"completed"`
	CompletedAt  string `dynamodbav:"completedAt,omitempty" json:"completedAt,omitempty"`
	EliminatedAt string `dynamodbav:"eliminatedAt,omitempty" json:"eliminatedAt,omitempty"`
}

// LineupContestantsTable is the DynamoDB table name for contestant join times
const LineupContestantsTable = "LineupContestantJoinTimes"

// SpotlightStat is the spotlightStats subcollection entry. popCount is
// incremented by viewer interactions elsewhere; this service only reads it.
type SpotlightStat struct {
	SessionID string `dynamodbav:"sessionId" json:"sessionId"` // ✅ Partition Key
	UserID    string `dynamodbav:"userId" json:"userId"`       // ✅ Sort Key
	PopCount  int    `dynamodbav:"popCount" json:"popCount"`
}

// SpotlightStatsTable is the DynamoDB table name for spotlight stats
const SpotlightStatsTable = "LineupSpotlightStats"

// RotationEvent is the singleton "latest" doc per session that live UIs
// subscribe to; it is overwritten on every rotation.
type RotationEvent struct {
	SessionID            string `dynamodbav:"sessionId" json:"sessionId"` // ✅ Partition Key
	DocID                string `dynamodbav:"docId" json:"docId"`         // ✅ Sort Key, always "latest"
	RotationID           string `dynamodbav:"rotationId" json:"rotationId"`
	Timestamp            string `dynamodbav:"timestamp" json:"timestamp"`
	PreviousContestantID string `dynamodbav:"previousContestantId,omitempty" json:"previousContestantId,omitempty"`
	NewContestantID      string `dynamodbav:"newContestantId,omitempty" json:"newContestantId,omitempty"`
	Gender               string `dynamodbav:"gender" json:"gender"`
	Reason               string `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
}

// RotationEventDocID is the fixed sort key of the singleton rotation event
const RotationEventDocID = "latest"

// RotationEventsTable is the DynamoDB table name for rotation events
const RotationEventsTable = "LineupRotationEvents"

// RotationRequest is a client-submitted out-of-band rotation ask. Only
// requests younger than 10 minutes and still pending are honored.
type RotationRequest struct {
	RequestID   string `dynamodbav:"requestId" json:"requestId"` // ✅ Partition Key
	SessionID   string `dynamodbav:"sessionId" json:"sessionId"`
	UserID      string `dynamodbav:"userId" json:"userId"`
	Gender      string `dynamodbav:"gender" json:"gender"`
	RequestTime string `dynamodbav:"requestTime" json:"requestTime"`
	Status      string `dynamodbav:"status" json:"status"` // pending, completed, failed, invalid
	Reason      string `dynamodbav:"reason,omitempty" json:"reason,omitempty"`
}

// RotationRequestsTable is the DynamoDB table name for rotation requests
const RotationRequestsTable = "RotationRequests"
