package area

import (
	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/session"
)

// TownEmitter is the broadcast surface an area needs: a per-town emitter
// already bound to the town the area lives in. It is defined here to break
// the import cycle between area and broadcast.
type TownEmitter interface {
	// EmitAreaChanged sends the full area model to every client in the town.
	EmitAreaChanged(model models.DanceAreaModel) error
	// EmitPlayerMoved sends a player's updated location, including its
	// area-membership reference, to every client in the town.
	EmitPlayerMoved(player *session.Session) error
}
