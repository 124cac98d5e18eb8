// area/area.go
package area

import (
	"sync"

	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/session"
)

// InteractableArea 是所有可交互区域的基础结构: 占用者集合 + 包围盒 + 广播
type InteractableArea struct {
	id        string
	box       models.BoundingBox
	occupants map[string]*session.Session // sessionID -> session
	emitter   TownEmitter
	mutex     sync.RWMutex
}

func newInteractableArea(id string, box models.BoundingBox, emitter TownEmitter) InteractableArea {
	return InteractableArea{
		id:        id,
		box:       box,
		occupants: make(map[string]*session.Session),
		emitter:   emitter,
	}
}

// ID returns the area's identifier. Immutable after construction.
func (a *InteractableArea) ID() string {
	return a.id
}

// BoundingBox returns the rectangle this area occupies on the town map.
func (a *InteractableArea) BoundingBox() models.BoundingBox {
	return a.box
}

// Contains reports whether the location falls inside the area's bounds.
func (a *InteractableArea) Contains(loc models.PlayerLocation) bool {
	return a.box.Contains(loc.X, loc.Y)
}

// OccupantIDs returns the session ids of everyone currently in the area.
func (a *InteractableArea) OccupantIDs() []string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	ids := make([]string, 0, len(a.occupants))
	for id := range a.occupants {
		ids = append(ids, id)
	}
	return ids
}

// OccupantCount returns how many players are in the area.
func (a *InteractableArea) OccupantCount() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return len(a.occupants)
}

// IsOccupied reports whether any player is in the area.
func (a *InteractableArea) IsOccupied() bool {
	return a.OccupantCount() > 0
}

// addOccupant records the player and points its location at this area.
func (a *InteractableArea) addOccupant(s *session.Session) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.occupants[s.GetID()] = s
	s.SetInteractable(a.id)
}

// removeOccupant drops the player and clears its area reference. Returns
// true when the area is empty afterward.
func (a *InteractableArea) removeOccupant(s *session.Session) bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if _, exists := a.occupants[s.GetID()]; exists {
		delete(a.occupants, s.GetID())
		s.SetInteractable("")
	}
	return len(a.occupants) == 0
}
