// Package session drives the multi-step edit, delete and reset dialogs. One
// session exists per chat identity at most; while it lives, every inbound
// message of that chat is routed here instead of the command router.
package session

import (
	"sync"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
)

type Step int

const (
	StepEditChoice Step = iota + 1
	StepNewAmount
	StepNewNote
	StepDeleteChoice
	StepResetConfirm
	StepFinalResetConfirm
)

func (s Step) String() string {
	switch s {
	case StepEditChoice:
		return "awaiting_edit_choice"
	case StepNewAmount:
		return "awaiting_new_amount"
	case StepNewNote:
		return "awaiting_new_note"
	case StepDeleteChoice:
		return "awaiting_delete_choice"
	case StepResetConfirm:
		return "awaiting_reset_confirm"
	case StepFinalResetConfirm:
		return "awaiting_final_reset_confirm"
	}
	return "unknown"
}

// Session is the transient, in-memory state of one dialog. Which payload
// fields are meaningful depends on Step.
type Session struct {
	Step Step

	// Edit flow.
	Target        core.Transaction // snapshot of the transaction being edited
	Choice        string           // "1" amount, "2" note, "3" both
	PendingAmount *int64           // parsed amount awaiting the note step

	// Delete flow.
	Candidates []core.Transaction
}

// Manager is the explicit session store, one per process instance. Sessions
// are not persisted: a restart silently discards open dialogs.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Get returns the chat's open session, if any.
func (m *Manager) Get(chatJID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatJID]
	return s, ok
}

// Begin opens a session for the chat, replacing any existing one.
func (m *Manager) Begin(chatJID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatJID] = s
}

// End closes the chat's session.
func (m *Manager) End(chatJID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatJID)
}

// Active reports whether the chat has an open session.
func (m *Manager) Active(chatJID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[chatJID]
	return ok
}
