// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/network"
)

// Session is one connected player. ID is the session identifier; UserID is
// the player's account name and the id that appears on leaderboards.
type Session struct {
	ID         string
	Conn       network.Connection
	UserID     string
	UserName   string
	TownID     string
	CreatedAt  time.Time
	LastActive time.Time

	location models.PlayerLocation
	mutex    sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Location returns the player's current location.
func (s *Session) Location() models.PlayerLocation {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.location
}

// SetLocation replaces the player's location wholesale.
func (s *Session) SetLocation(loc models.PlayerLocation) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.location = loc
}

// SetInteractable updates only the area-membership reference. Pass an empty
// string for "none".
func (s *Session) SetInteractable(areaID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.location.InteractableID = areaID
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
