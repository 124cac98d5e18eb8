// town/town.go
package town

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/townserver/area"
	"github.com/wfunc/townserver/logger"
	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/session"
)

var (
	ErrAreaNotFound = errors.New("no dance area with that id in this town")
	ErrTownFull     = errors.New("town is full")
)

// Town 是一个共享虚拟空间: 玩家集合 + 从地图加载的可交互区域
type Town struct {
	ID           string
	FriendlyName string
	MaxPlayers   int
	CreatedAt    time.Time

	players     map[string]*session.Session // sessionID -> session
	areas       map[string]*area.DanceArea  // areaID -> area
	emitter     area.TownEmitter
	playerMutex sync.RWMutex
	areaMutex   sync.RWMutex
}

// NewTown creates an empty town. Areas come from LoadMap.
func NewTown(id, friendlyName string, maxPlayers int, emitter area.TownEmitter) *Town {
	return &Town{
		ID:           id,
		FriendlyName: friendlyName,
		MaxPlayers:   maxPlayers,
		CreatedAt:    time.Now(),
		players:      make(map[string]*session.Session),
		areas:        make(map[string]*area.DanceArea),
		emitter:      emitter,
	}
}

// LoadMap builds one dance area per map object. A descriptor with missing
// geometry aborts the whole load, per the map loader's contract.
func (t *Town) LoadMap(objects []models.MapObject) error {
	t.areaMutex.Lock()
	defer t.areaMutex.Unlock()

	for _, obj := range objects {
		a, err := area.NewDanceAreaFromMapObject(obj, t.emitter)
		if err != nil {
			return err
		}
		t.areas[a.ID()] = a
	}
	return nil
}

// AddPlayer admits a session into the town.
func (t *Town) AddPlayer(s *session.Session) error {
	t.playerMutex.Lock()
	defer t.playerMutex.Unlock()

	if len(t.players) >= t.MaxPlayers {
		return ErrTownFull
	}

	t.players[s.ID] = s
	s.TownID = t.ID
	return nil
}

// RemovePlayer drops a session from the town, removing it from any area it
// occupies first so the area's reset-on-empty logic runs.
func (t *Town) RemovePlayer(sessionID string) {
	t.playerMutex.Lock()
	s, exists := t.players[sessionID]
	if exists {
		s.TownID = ""
		delete(t.players, sessionID)
	}
	t.playerMutex.Unlock()

	if !exists {
		return
	}

	if areaID := s.Location().InteractableID; areaID != "" {
		if a, ok := t.GetArea(areaID); ok {
			a.Remove(s)
		}
	}
}

// GetPlayer looks up a session by id.
func (t *Town) GetPlayer(sessionID string) (*session.Session, bool) {
	t.playerMutex.RLock()
	defer t.playerMutex.RUnlock()
	s, exists := t.players[sessionID]
	return s, exists
}

// GetSessions returns a snapshot of every session in the town.
func (t *Town) GetSessions() []*session.Session {
	t.playerMutex.RLock()
	defer t.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(t.players))
	for _, s := range t.players {
		sessions = append(sessions, s)
	}
	return sessions
}

// PlayerCount returns how many players are in the town.
func (t *Town) PlayerCount() int {
	t.playerMutex.RLock()
	defer t.playerMutex.RUnlock()
	return len(t.players)
}

// GetArea looks up a dance area by id.
func (t *Town) GetArea(id string) (*area.DanceArea, bool) {
	t.areaMutex.RLock()
	defer t.areaMutex.RUnlock()
	a, exists := t.areas[id]
	return a, exists
}

// Areas returns a snapshot of every dance area in the town.
func (t *Town) Areas() []*area.DanceArea {
	t.areaMutex.RLock()
	defer t.areaMutex.RUnlock()

	areas := make([]*area.DanceArea, 0, len(t.areas))
	for _, a := range t.areas {
		areas = append(areas, a)
	}
	return areas
}

// Interactables is the initial-state payload sent to a newly joined client.
func (t *Town) Interactables() []models.DanceAreaModel {
	areas := t.Areas()
	out := make([]models.DanceAreaModel, 0, len(areas))
	for _, a := range areas {
		out = append(out, a.ToModel())
	}
	return out
}

// MovePlayer applies a location update and routes the player into or out of
// dance areas based on the new position. Area joins and leaves broadcast
// through the areas themselves; a plain move broadcasts the location here.
func (t *Town) MovePlayer(s *session.Session, loc models.PlayerLocation) {
	prevAreaID := s.Location().InteractableID

	var next *area.DanceArea
	for _, a := range t.Areas() {
		if a.Contains(loc) {
			next = a
			break
		}
	}

	loc.InteractableID = prevAreaID
	s.SetLocation(loc)

	switch {
	case next != nil && next.ID() != prevAreaID:
		if prevAreaID != "" {
			if prev, ok := t.GetArea(prevAreaID); ok {
				prev.Remove(s)
			}
		}
		next.Add(s)
	case next == nil && prevAreaID != "":
		if prev, ok := t.GetArea(prevAreaID); ok {
			prev.Remove(s)
		} else {
			s.SetInteractable("")
			t.emitter.EmitPlayerMoved(s)
		}
	default:
		t.emitter.EmitPlayerMoved(s)
	}
}

// UpdateArea validates the target id, bulk-replaces the area's state, and
// then broadcasts the change. Unknown ids are rejected before any mutation.
func (t *Town) UpdateArea(model models.DanceAreaModel) error {
	a, exists := t.GetArea(model.ID)
	if !exists {
		return ErrAreaNotFound
	}

	a.UpdateModel(model)
	if err := t.emitter.EmitAreaChanged(a.ToModel()); err != nil {
		logger.Log.Warnf("Failed to broadcast area %s update: %v", a.ID(), err)
	}
	return nil
}

// --- 城镇管理器 ---

// Manager 管理所有城镇
type Manager struct {
	towns map[string]*Town
	mutex sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		towns: make(map[string]*Town),
	}
}

// CreateTown creates a town, registers it, and loads its map.
func (m *Manager) CreateTown(id, friendlyName string, maxPlayers int, emitter area.TownEmitter, mapObjects []models.MapObject) (*Town, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	t := NewTown(id, friendlyName, maxPlayers, emitter)
	if err := t.LoadMap(mapObjects); err != nil {
		return nil, err
	}
	m.towns[id] = t
	return t, nil
}

func (m *Manager) RemoveTown(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.towns, id)
}

func (m *Manager) GetTown(id string) (*Town, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	t, exists := m.towns[id]
	return t, exists
}

// Towns returns a snapshot of every town.
func (m *Manager) Towns() []*Town {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	towns := make([]*Town, 0, len(m.towns))
	for _, t := range m.towns {
		towns = append(towns, t)
	}
	return towns
}

// Count returns the number of towns.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.towns)
}
