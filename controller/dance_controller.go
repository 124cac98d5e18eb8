// controller/dance_controller.go
package controller

import (
	"slices"
	"sync"

	"github.com/wfunc/townserver/models"
)

// Event names a change-notification category. One per mutable field; events
// are independent, never batched.
type Event string

const (
	EventDifficultyChange  Event = "difficultyChange"
	EventTimerChange       Event = "timerChange"
	EventCurrentScore      Event = "currentScoreChange"
	EventCorrectSequence   Event = "correctSequenceChange"
	EventUserClicks        Event = "userClicksChange"
	EventLeaderboardChange Event = "leaderboardChange"
)

// Listener receives the new value of the field that changed.
type Listener func(value interface{})

// DanceAreaController is the client-local mirror of a dance area. Setters
// compare the incoming value to the cached one and emit the field's event
// exactly once when the value actually differs. Comparison is by deep value,
// so re-delivering an identical slice does not fire.
type DanceAreaController struct {
	model     models.DanceAreaModel
	listeners map[Event][]Listener
	mutex     sync.RWMutex
}

func NewDanceAreaController(model models.DanceAreaModel) *DanceAreaController {
	return &DanceAreaController{
		model:     model.Copy(),
		listeners: make(map[Event][]Listener),
	}
}

// On registers a listener for one event category.
func (c *DanceAreaController) On(event Event, fn Listener) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.listeners[event] = append(c.listeners[event], fn)
}

func (c *DanceAreaController) emit(event Event, value interface{}) {
	c.mutex.RLock()
	fns := append([]Listener(nil), c.listeners[event]...)
	c.mutex.RUnlock()

	for _, fn := range fns {
		fn(value)
	}
}

// ID returns the mirrored area's id.
func (c *DanceAreaController) ID() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.model.ID
}

func (c *DanceAreaController) Difficulty() models.Difficulty {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.model.Difficulty
}

func (c *DanceAreaController) SetDifficulty(difficulty models.Difficulty) {
	c.mutex.Lock()
	if c.model.Difficulty == difficulty {
		c.mutex.Unlock()
		return
	}
	c.model.Difficulty = difficulty
	c.mutex.Unlock()
	c.emit(EventDifficultyChange, difficulty)
}

func (c *DanceAreaController) Timer() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.model.Timer
}

func (c *DanceAreaController) SetTimer(timer int) {
	c.mutex.Lock()
	if c.model.Timer == timer {
		c.mutex.Unlock()
		return
	}
	c.model.Timer = timer
	c.mutex.Unlock()
	c.emit(EventTimerChange, timer)
}

func (c *DanceAreaController) CurrentScore() models.ScoreObject {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.model.CurrentScore
}

func (c *DanceAreaController) SetCurrentScore(score models.ScoreObject) {
	c.mutex.Lock()
	if c.model.CurrentScore == score {
		c.mutex.Unlock()
		return
	}
	c.model.CurrentScore = score
	c.mutex.Unlock()
	c.emit(EventCurrentScore, score)
}

func (c *DanceAreaController) Correct() []models.Arrow {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]models.Arrow(nil), c.model.Correct...)
}

func (c *DanceAreaController) SetCorrect(correct []models.Arrow) {
	c.mutex.Lock()
	if slices.Equal(c.model.Correct, correct) {
		c.mutex.Unlock()
		return
	}
	c.model.Correct = append([]models.Arrow(nil), correct...)
	c.mutex.Unlock()
	c.emit(EventCorrectSequence, correct)
}

func (c *DanceAreaController) UserClicks() []models.Arrow {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]models.Arrow(nil), c.model.UserClicks...)
}

func (c *DanceAreaController) SetUserClicks(clicks []models.Arrow) {
	c.mutex.Lock()
	if slices.Equal(c.model.UserClicks, clicks) {
		c.mutex.Unlock()
		return
	}
	c.model.UserClicks = append([]models.Arrow(nil), clicks...)
	c.mutex.Unlock()
	c.emit(EventUserClicks, clicks)
}

func (c *DanceAreaController) Leaderboard() []models.ScoreObject {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return append([]models.ScoreObject(nil), c.model.Leaderboard...)
}

func (c *DanceAreaController) SetLeaderboard(leaderboard []models.ScoreObject) {
	c.mutex.Lock()
	if slices.Equal(c.model.Leaderboard, leaderboard) {
		c.mutex.Unlock()
		return
	}
	c.model.Leaderboard = append([]models.ScoreObject(nil), leaderboard...)
	c.mutex.Unlock()
	c.emit(EventLeaderboardChange, leaderboard)
}

// Model returns a deep copy of the mirrored model.
func (c *DanceAreaController) Model() models.DanceAreaModel {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.model.Copy()
}

// UpdateFrom reconciles the mirror from a server broadcast. Only difficulty,
// timer, and currentScore propagate; correct, userClicks, and leaderboard
// changes in the snapshot are not applied here. Known scope limitation,
// kept deliberately.
func (c *DanceAreaController) UpdateFrom(updated models.DanceAreaModel) {
	c.SetDifficulty(updated.Difficulty)
	c.SetTimer(updated.Timer)
	c.SetCurrentScore(updated.CurrentScore)
}

