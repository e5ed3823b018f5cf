package socket

import (
	"log"

	socketio "github.com/googollee/go-socket.io"
)

// Server wraps the Socket.IO server and implements the services.Broadcaster
// contract: rooms are keyed by connection id or lineup session id, and the
// domain services push connectionUpdated / newMessage / rotationEvent
// payloads into them.
type Server struct {
	io *socketio.Server
}

// NewServer initializes the Socket.IO server and its room handlers.
func NewServer() *Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(c socketio.Conn) error {
		log.Println("✅ Socket connected:", c.ID())
		return nil
	})

	// Clients join a room per connection or lineup session to receive its
	// live updates.
	io.OnEvent("/", "join", func(c socketio.Conn, room string) {
		if room == "" {
			log.Println("❌ Invalid room in join request")
			return
		}
		log.Printf("👥 Socket %s joined room %s", c.ID(), room)
		c.Join(room)
	})

	io.OnEvent("/", "leave", func(c socketio.Conn, room string) {
		c.Leave(room)
	})

	io.OnDisconnect("/", func(c socketio.Conn, reason string) {
		log.Println("❌ Socket disconnected:", c.ID(), reason)
	})

	return &Server{io: io}
}

// BroadcastTo pushes an event to every subscriber of a room.
func (s *Server) BroadcastTo(room, event string, data interface{}) {
	s.io.BroadcastToRoom("/", room, event, data)
}

// IO exposes the underlying server for HTTP mounting and lifecycle calls.
func (s *Server) IO() *socketio.Server {
	return s.io
}
