package models

// ✅ Gender tracks
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// ✅ Speed-dating session statuses
const (
	SessionStatusSearching = "searching"
	SessionStatusMatched   = "matched"
	SessionStatusExpired   = "expired"
)

// ✅ Connection statuses
const (
	ConnectionStatusTemporary = "temporary"
	ConnectionStatusPermanent = "permanent"
	ConnectionStatusRejected  = "rejected"
)

// ✅ Lineup session statuses
const (
	LineupStatusActive = "active"
	LineupStatusEnded  = "ended"
)

// ✅ Rotation request statuses
const (
	RequestStatusPending   = "pending"
	RequestStatusCompleted = "completed"
	RequestStatusFailed    = "failed"
	RequestStatusInvalid   = "invalid"
)

// ✅ Rotation reasons
const (
	RotationReasonTimer       = "timer"
	RotationReasonRequest     = "request"
	RotationReasonElimination = "elimination"
)

// ✅ Notification types
const (
	NotificationYourTurn   = "yourTurn"
	NotificationEliminated = "eliminated"
)
