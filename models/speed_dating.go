package models

// SpeedDatingSession is one user's live search for a round. The table is
// keyed by userId so a conditional put can enforce one active session per
// user.
type SpeedDatingSession struct {
	UserID    string `dynamodbav:"userId" json:"userId"` // ✅ Partition Key
	SessionID string `dynamodbav:"sessionId" json:"sessionId"`
	Status    string `dynamodbav:"status" json:"status"`       // searching, matched, expired
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"` // RFC3339
	SyncGroup int64  `dynamodbav:"syncGroup" json:"syncGroup"` // floor(epoch-ms / 2-minute window)
	AgeMin    int    `dynamodbav:"ageMin,omitempty" json:"ageMin,omitempty"`
	AgeMax    int    `dynamodbav:"ageMax,omitempty" json:"ageMax,omitempty"`
}

// SpeedDatingSessionsTable is the DynamoDB table name for active searches
const SpeedDatingSessionsTable = "SpeedDatingSessions"

// ConnectionProfile is the per-user slice of a connection document.
type ConnectionProfile struct {
	DisplayName         string `dynamodbav:"displayName" json:"displayName"`
	PhotoURL            string `dynamodbav:"photoURL,omitempty" json:"photoURL,omitempty"`
	ContinuePermanently bool   `dynamodbav:"continuePermanently" json:"continuePermanently"`
}

// Connection is a temporary chat room created after a match. Either side may
// have created it, so User1ID/User2ID carry no meaning beyond which GSI a
// lookup lands on.
type Connection struct {
	ConnectionID string                       `dynamodbav:"connectionId" json:"connectionId"` // ✅ Partition Key
	User1ID      string                       `dynamodbav:"user1Id" json:"user1Id"`           // Indexed via user1Id-index
	User2ID      string                       `dynamodbav:"user2Id" json:"user2Id"`           // Indexed via user2Id-index
	Users        []string                     `dynamodbav:"users" json:"users"`
	UserProfiles map[string]ConnectionProfile `dynamodbav:"userProfiles" json:"userProfiles"`
	Status       string                       `dynamodbav:"status" json:"status"`       // temporary, permanent, rejected
	StartedAt    string                       `dynamodbav:"startedAt" json:"startedAt"` // Server-recorded; anchors the chat countdown
}

// OtherUser returns the counterpart of userID in the room.
func (c Connection) OtherUser(userID string) string {
	for _, u := range c.Users {
		if u != userID {
			return u
		}
	}
	return ""
}

// BothContinue reports whether both sides opted into a permanent match.
func (c Connection) BothContinue() bool {
	if len(c.UserProfiles) < 2 {
		return false
	}
	for _, p := range c.UserProfiles {
		if !p.ContinuePermanently {
			return false
		}
	}
	return true
}

// ConnectionsTable is the DynamoDB table name for temporary connections
const ConnectionsTable = "SpeedDatingConnections"

// GSIs for finding an existing room from either direction
const (
	ConnectionUser1Index = "user1Id-index"
	ConnectionUser2Index = "user2Id-index"
)

// PermanentMatch is the promoted form of a connection. Immutable once
// created except for message appends.
type PermanentMatch struct {
	MatchID      string                       `dynamodbav:"matchId" json:"matchId"` // ✅ Partition Key
	User1ID      string                       `dynamodbav:"user1Id" json:"user1Id"`
	User2ID      string                       `dynamodbav:"user2Id" json:"user2Id"`
	Users        []string                     `dynamodbav:"users" json:"users"`
	UserProfiles map[string]ConnectionProfile `dynamodbav:"userProfiles" json:"userProfiles"`
	Status       string                       `dynamodbav:"status" json:"status"` // always "permanent"
	CreatedAt    string                       `dynamodbav:"createdAt" json:"createdAt"`
}

// MatchesTable is the DynamoDB table name for permanent matches
const MatchesTable = "Matches"

// Message lives in the messages subcollection of a connection or match;
// conversationId is the owning room's id.
type Message struct {
	ConversationID string `dynamodbav:"conversationId" json:"conversationId"` // ✅ Partition Key
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`           // ✅ Sort Key
	MessageID      string `dynamodbav:"messageId" json:"messageId"`
	SenderID       string `dynamodbav:"senderId" json:"senderId"` // empty for system messages
	Content        string `dynamodbav:"content" json:"content"`
	IsSystem       bool   `dynamodbav:"isSystem" json:"isSystem"`
}

// MessagesTable is the DynamoDB table name for chat messages
const MessagesTable = "Messages"
