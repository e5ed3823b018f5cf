package services

// Broadcaster pushes live updates to subscribed clients. Rooms are keyed by
// connection id or lineup session id. The socket server implements this; a
// nil broadcaster disables pushes without touching store writes.
type Broadcaster interface {
	BroadcastTo(room, event string, data interface{})
}

// Broadcast events
const (
	EventConnectionUpdated = "connectionUpdated"
	EventNewMessage        = "newMessage"
	EventRotation          = "rotationEvent"
)
