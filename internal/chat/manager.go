package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"scansave/internal/locale"
	"scansave/internal/receipt"
)

// Titler infers a short session title from the start of a conversation.
// Best-effort: on failure the session keeps its sentinel title.
type Titler interface {
	SessionTitle(ctx context.Context, conversation, lang string) (string, error)
}

// IDGenerator generates unique IDs for sessions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ErrBusy is returned when a send is already in flight. Concurrent sends
// are rejected, not queued.
var ErrBusy = errors.New("a message is already being sent")

// ErrNoSession is returned when an operation needs an active session and
// none exists.
var ErrNoSession = errors.New("no active session")

// Manager owns the conversation sessions and the active-session id. It is
// a single-writer structure; exactly one session is active at all times,
// and at most one send is in flight per manager.
type Manager struct {
	mu            sync.Mutex
	store         Store
	client        Client
	titler        Titler
	ledger        *receipt.Ledger
	grounding     bool
	idGen         IDGenerator
	clock         TimeSource
	inflight      *semaphore.Weighted
	sessions      []Session // most-recent-first
	activeID      string
	sourcesNotice bool
}

// NewManager loads persisted sessions and the active id, creating one
// fresh active session when none exist.
func NewManager(store Store, client Client, titler Titler, ledger *receipt.Ledger, grounding bool, lang string) *Manager {
	return NewManagerWithDeps(store, client, titler, ledger, grounding, lang, uuidGenerator{}, systemClock{})
}

// NewManagerWithDeps creates a Manager with custom dependencies for testing.
func NewManagerWithDeps(store Store, client Client, titler Titler, ledger *receipt.Ledger, grounding bool, lang string, idGen IDGenerator, clock TimeSource) *Manager {
	m := &Manager{
		store:     store,
		client:    client,
		titler:    titler,
		ledger:    ledger,
		grounding: grounding,
		idGen:     idGen,
		clock:     clock,
		inflight:  semaphore.NewWeighted(1),
	}

	sessions, activeID, err := store.Load()
	if err != nil {
		slog.Warn("Failed to load chat snapshot, starting empty", "error", err)
		sessions, activeID = nil, ""
	}
	m.sessions = sessions

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) == 0 {
		m.newSessionLocked(lang)
	} else {
		m.activeID = activeID
		if m.findLocked(m.activeID) == nil {
			m.activeID = m.sessions[0].ID
		}
		m.ensureGreetingLocked(m.findLocked(m.activeID), lang)
	}
	m.persistLocked()
	return m
}

// newSessionLocked creates a fresh session, makes it active, and applies
// the greeting. Callers hold the lock.
func (m *Manager) newSessionLocked(lang string) *Session {
	sess := Session{
		ID:        m.idGen.Generate(),
		Title:     SentinelTitle,
		StartTime: m.clock.Now(),
	}
	m.sessions = append([]Session{sess}, m.sessions...)
	m.activeID = sess.ID
	active := &m.sessions[0]
	m.ensureGreetingLocked(active, lang)
	return active
}

// ensureGreetingLocked appends the one-time model greeting to a session
// that becomes active with no history.
func (m *Manager) ensureGreetingLocked(sess *Session, lang string) {
	if sess == nil || len(sess.Messages) > 0 {
		return
	}
	greeting := locale.GreetingWithoutData(lang)
	if m.ledger.Len() > 0 {
		greeting = locale.GreetingWithData(lang)
	}
	sess.Messages = append(sess.Messages, Message{Role: RoleModel, Text: greeting})
}

func (m *Manager) findLocked(id string) *Session {
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return &m.sessions[i]
		}
	}
	return nil
}

func (m *Manager) persistLocked() {
	if err := m.store.Save(m.sessions, m.activeID); err != nil {
		slog.Warn("Failed to save chat snapshot", "error", err)
	}
}

// NewSession creates a fresh session and makes it active.
func (m *Manager) NewSession(lang string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.newSessionLocked(lang)
	m.persistLocked()
	return copySession(*sess)
}

// Activate switches the active session, applying the greeting when the
// session has no history yet.
func (m *Manager) Activate(id, lang string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.findLocked(id)
	if sess == nil {
		return Session{}, fmt.Errorf("session not found: %s", id)
	}
	m.activeID = id
	m.ensureGreetingLocked(sess, lang)
	m.persistLocked()
	return copySession(*sess), nil
}

// DeleteSession removes a session. Deleting the active session promotes
// the most recent remaining session, or creates a fresh one when none
// remain; the manager is never left without an active session.
func (m *Manager) DeleteSession(id, lang string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)

	if m.activeID == id {
		if len(m.sessions) > 0 {
			m.activeID = m.sessions[0].ID
			m.ensureGreetingLocked(&m.sessions[0], lang)
		} else {
			m.newSessionLocked(lang)
		}
	}
	m.persistLocked()
}

// Sessions returns a snapshot copy of all sessions, most-recent-first.
func (m *Manager) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = copySession(s)
	}
	return out
}

// ActiveSession returns a copy of the active session.
func (m *Manager) ActiveSession() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess := m.findLocked(m.activeID)
	if sess == nil {
		return Session{}, false
	}
	return copySession(*sess), true
}

// TakeSourcesNotice reports whether the last reply carried grounding
// sources, clearing the one-shot flag.
func (m *Manager) TakeSourcesNotice() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	notice := m.sourcesNotice
	m.sourcesNotice = false
	return notice
}

// Send appends the user's text to the active session, issues one chat call
// with the assembled context, and appends the model's reply. Empty text is
// a no-op; a send already in flight is rejected with ErrBusy. The user
// message is never rolled back: a failed call appends the localized error
// message instead. The completion is routed by the session id captured
// here, not by whichever session is active when the call returns.
func (m *Manager) Send(ctx context.Context, text, lang string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, nil
	}

	if !m.inflight.TryAcquire(1) {
		return Message{}, ErrBusy
	}
	defer m.inflight.Release(1)

	m.mu.Lock()
	sess := m.findLocked(m.activeID)
	if sess == nil {
		m.mu.Unlock()
		return Message{}, ErrNoSession
	}
	sessionID := sess.ID
	history := append([]Message(nil), sess.Messages...)
	sess.Messages = append(sess.Messages, Message{Role: RoleUser, Text: text})
	instruction := buildInstruction(m.ledger.All(), lang, m.grounding)
	m.persistLocked()
	m.mu.Unlock()

	reply, err := m.client.Send(ctx, instruction, history, text, m.grounding)

	m.mu.Lock()
	sess = m.findLocked(sessionID)
	if sess == nil {
		// Session deleted while the call was outstanding; drop the result.
		m.mu.Unlock()
		return Message{}, nil
	}

	if err != nil {
		slog.Error("Chat send failed", "session", sessionID, "error", err)
		msg := Message{Role: RoleModel, Text: locale.ChatError(lang)}
		sess.Messages = append(sess.Messages, msg)
		m.persistLocked()
		m.mu.Unlock()
		return msg, nil
	}

	body := reply.Text
	if len(reply.Places) > 0 {
		body += formatSources(reply.Places)
		m.sourcesNotice = true
	}
	msg := Message{Role: RoleModel, Text: body}
	sess.Messages = append(sess.Messages, msg)

	inferTitle := sess.Title == SentinelTitle && len(sess.Messages) >= 2
	var conversation string
	if inferTitle {
		conversation = sess.Messages[0].Text + " " + sess.Messages[1].Text
	}
	m.persistLocked()
	m.mu.Unlock()

	if inferTitle {
		m.inferTitle(ctx, sessionID, conversation, lang)
	}
	return msg, nil
}

// inferTitle replaces the sentinel title once, silently keeping it on
// failure.
func (m *Manager) inferTitle(ctx context.Context, sessionID, conversation, lang string) {
	title, err := m.titler.SessionTitle(ctx, conversation, lang)
	if err != nil {
		slog.Warn("Failed to infer session title", "session", sessionID, "error", err)
		return
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.findLocked(sessionID)
	if sess == nil || sess.Title != SentinelTitle {
		return
	}
	sess.Title = title
	m.persistLocked()
}

func formatSources(places []Place) string {
	var b strings.Builder
	b.WriteString("\n\nSources:")
	for _, p := range places {
		b.WriteString(fmt.Sprintf("\n[%s](%s)", p.Title, p.URI))
	}
	return b.String()
}
