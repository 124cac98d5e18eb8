// area/dance.go
package area

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/session"
)

var (
	// ErrInvalidMapObject is returned by NewDanceAreaFromMapObject when the
	// descriptor has no usable geometry.
	ErrInvalidMapObject = errors.New("malformed map object: missing width or height")
)

// defaultRand is the production randomness source for prompt sequences.
// Tests pass their own seeded source to GenerateArrowSequence. Guarded
// because areas can be built from concurrent connection handlers.
var (
	defaultRand  = rand.New(rand.NewSource(time.Now().UnixNano()))
	defaultRandM sync.Mutex
)

func newSequence() []models.Arrow {
	defaultRandM.Lock()
	defer defaultRandM.Unlock()
	return GenerateArrowSequence(defaultRand, models.SequenceLength)
}

// GenerateArrowSequence builds a prompt sequence of the given length. Each
// arrow gets an independently uniform direction, display glyph, and an
// integer duration in [1,10].
func GenerateArrowSequence(rng *rand.Rand, length int) []models.Arrow {
	arrows := make([]models.Arrow, length)
	for i := range arrows {
		arrows[i] = models.Arrow{
			Display:   models.Glyphs[rng.Intn(len(models.Glyphs))],
			Direction: models.Directions[rng.Intn(len(models.Directions))],
			Duration:  1 + rng.Intn(10),
		}
	}
	return arrows
}

// DanceArea owns the authoritative game state for one dance zone. Every
// mutation that changes visible state broadcasts the full model to the town.
type DanceArea struct {
	InteractableArea

	difficulty   models.Difficulty
	correct      []models.Arrow
	userClicks   []models.Arrow
	leaderboard  []models.ScoreObject
	currentScore models.ScoreObject
	timer        int

	stateMutex sync.RWMutex
}

// NewDanceArea builds an area from a persisted or incoming model. The
// difficulty defaults to normal when unset, the leaderboard to an empty
// list, and a fresh prompt sequence is always generated; currentScore is
// carried through verbatim.
func NewDanceArea(model models.DanceAreaModel, box models.BoundingBox, emitter TownEmitter) *DanceArea {
	difficulty := model.Difficulty
	if difficulty == 0 {
		difficulty = models.DifficultyNormal
	}

	leaderboard := model.Leaderboard
	if leaderboard == nil {
		leaderboard = []models.ScoreObject{}
	}

	return &DanceArea{
		InteractableArea: newInteractableArea(model.ID, box, emitter),
		difficulty:       difficulty,
		correct:          newSequence(),
		userClicks:       []models.Arrow{},
		leaderboard:      leaderboard,
		currentScore:     model.CurrentScore,
		timer:            models.TimerMultiplier * int(difficulty),
	}
}

// NewDanceAreaFromMapObject builds a fresh area from a map descriptor. The
// area id is the descriptor's name; all progress fields start at defaults.
func NewDanceAreaFromMapObject(obj models.MapObject, emitter TownEmitter) (*DanceArea, error) {
	if obj.Width == 0 || obj.Height == 0 {
		return nil, ErrInvalidMapObject
	}

	box := models.BoundingBox{X: obj.X, Y: obj.Y, Width: obj.Width, Height: obj.Height}
	return NewDanceArea(models.DanceAreaModel{ID: obj.Name}, box, emitter), nil
}

// Add puts the player into the area's occupant set, points the player's
// location at this area, and broadcasts both the updated area state and the
// player's new location.
func (d *DanceArea) Add(s *session.Session) {
	d.addOccupant(s)
	d.emitter.EmitAreaChanged(d.ToModel())
	d.emitter.EmitPlayerMoved(s)
}

// Remove takes the player out of the occupant set and broadcasts the
// cleared area reference. When the last occupant leaves, all game-progress
// fields reset to their defaults; the leaderboard is deliberately preserved
// across sessions. The area's full model is broadcast either way.
func (d *DanceArea) Remove(s *session.Session) {
	empty := d.removeOccupant(s)
	d.emitter.EmitPlayerMoved(s)

	if empty {
		d.stateMutex.Lock()
		d.difficulty = models.DifficultyNormal
		d.correct = []models.Arrow{}
		d.userClicks = []models.Arrow{}
		d.currentScore = models.ScoreObject{}
		d.timer = models.TimerMultiplier * int(models.DifficultyNormal)
		d.stateMutex.Unlock()
	}

	d.emitter.EmitAreaChanged(d.ToModel())
}

// UpdateModel bulk-replaces the game state from an incoming model. The id
// is never reassigned; an id in the update is ignored, not an error. No
// broadcast happens here: the caller decides when to emit the change.
func (d *DanceArea) UpdateModel(model models.DanceAreaModel) {
	d.stateMutex.Lock()
	defer d.stateMutex.Unlock()

	d.difficulty = model.Difficulty
	d.correct = model.Correct
	d.userClicks = model.UserClicks
	d.leaderboard = model.Leaderboard
	d.currentScore = model.CurrentScore
	d.timer = model.Timer
}

// ToModel returns a snapshot of the current state. The slices are copied so
// callers cannot alias the authoritative state.
func (d *DanceArea) ToModel() models.DanceAreaModel {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()

	return models.DanceAreaModel{
		ID:           d.ID(),
		Difficulty:   d.difficulty,
		Correct:      append([]models.Arrow(nil), d.correct...),
		UserClicks:   append([]models.Arrow(nil), d.userClicks...),
		Leaderboard:  append([]models.ScoreObject(nil), d.leaderboard...),
		CurrentScore: d.currentScore,
		Timer:        d.timer,
	}
}

// Difficulty returns the current difficulty tier.
func (d *DanceArea) Difficulty() models.Difficulty {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return d.difficulty
}

// Correct returns a copy of the prompt sequence.
func (d *DanceArea) Correct() []models.Arrow {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return append([]models.Arrow(nil), d.correct...)
}

// UserClicks returns a copy of the player input log.
func (d *DanceArea) UserClicks() []models.Arrow {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return append([]models.Arrow(nil), d.userClicks...)
}

// Leaderboard returns a copy of the leaderboard entries.
func (d *DanceArea) Leaderboard() []models.ScoreObject {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return append([]models.ScoreObject(nil), d.leaderboard...)
}

// CurrentScore returns the live running score.
func (d *DanceArea) CurrentScore() models.ScoreObject {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return d.currentScore
}

// Timer returns the seconds remaining. Plain data: nothing in this type
// advances it.
func (d *DanceArea) Timer() int {
	d.stateMutex.RLock()
	defer d.stateMutex.RUnlock()
	return d.timer
}
