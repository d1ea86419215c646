package chat

import "time"

// SentinelTitle marks a session whose title has not yet been inferred.
// A session's title transitions away from the sentinel at most once.
const SentinelTitle = "New Chat"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of a conversation. Messages are append-only within a
// session.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session is one conversation with the assistant.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	Messages  []Message `json:"messages"`
}

func copySession(s Session) Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}

// Store persists the session list and the active-session id as two
// independent snapshots.
type Store interface {
	// Load returns the last persisted session list (most-recent-first)
	// and active id. A missing snapshot loads as empty.
	Load() ([]Session, string, error)

	// Save durably writes both snapshots.
	Save(sessions []Session, activeID string) error
}
