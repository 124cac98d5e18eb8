// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/network"
	"github.com/wfunc/townserver/session"
	"github.com/wfunc/townserver/town"
)

var (
	ErrTownNotFound = errors.New("town not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToTown(townID string, msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error
}

// TownBroadcaster fans packets out to every session in a town.
type TownBroadcaster struct {
	townManager    *town.Manager
	sessionManager *session.Manager
}

func NewTownBroadcaster(townManager *town.Manager, sessionManager *session.Manager) *TownBroadcaster {
	return &TownBroadcaster{
		townManager:    townManager,
		sessionManager: sessionManager,
	}
}

func (b *TownBroadcaster) BroadcastToTown(townID string, msgID uint16, data []byte) error {
	t, exists := b.townManager.GetTown(townID)
	if !exists {
		return ErrTownNotFound
	}

	// Get a thread-safe copy of the sessions
	for _, s := range t.GetSessions() {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由读循环负责清理
			continue
		}
	}

	return nil
}

func (b *TownBroadcaster) BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error {
	for _, userID := range userIDs {
		for _, s := range b.sessionManager.GetByUserID(userID) {
			if err := s.Send(msgID, data); err != nil {
				continue
			}
		}
	}
	return nil
}

// Emitter is a TownBroadcaster bound to one town. It satisfies
// area.TownEmitter, so areas broadcast without knowing which town they
// belong to.
type Emitter struct {
	townID      string
	broadcaster Broadcaster
}

// NewEmitter binds a broadcaster to a town id. The town does not have to
// exist yet; lookups happen per emit.
func NewEmitter(townID string, broadcaster Broadcaster) *Emitter {
	return &Emitter{townID: townID, broadcaster: broadcaster}
}

// EmitAreaChanged broadcasts the full area model to the town.
func (e *Emitter) EmitAreaChanged(model models.DanceAreaModel) error {
	data, err := json.Marshal(model)
	if err != nil {
		return err
	}
	return e.broadcaster.BroadcastToTown(e.townID, network.MsgTypeAreaChanged, data)
}

// EmitPlayerMoved broadcasts a player's updated location to the town.
func (e *Emitter) EmitPlayerMoved(s *session.Session) error {
	moved := models.PlayerMoved{
		PlayerID: s.GetID(),
		UserName: s.UserName,
		Location: s.Location(),
	}
	data, err := json.Marshal(moved)
	if err != nil {
		return err
	}
	return e.broadcaster.BroadcastToTown(e.townID, network.MsgTypePlayerMoved, data)
}
