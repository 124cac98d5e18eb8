package controller

import (
	"testing"

	"github.com/wfunc/townserver/models"
)

func baseModel() models.DanceAreaModel {
	return models.DanceAreaModel{
		ID:         "floor",
		Difficulty: models.DifficultyNormal,
		Correct: []models.Arrow{
			{Display: "←", Direction: models.DirectionLeft, Duration: 2},
		},
		UserClicks:   []models.Arrow{},
		Leaderboard:  []models.ScoreObject{{UserID: "alice", Score: 10}},
		CurrentScore: models.ScoreObject{UserID: "bob", Score: 0},
		Timer:        300,
	}
}

// recorder counts emissions for one event and remembers the last value.
type recorder struct {
	calls int
	last  interface{}
}

func (r *recorder) listen(v interface{}) {
	r.calls++
	r.last = v
}

func TestController_SetDifficulty(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	rec := &recorder{}
	c.On(EventDifficultyChange, rec.listen)

	// Same value: no event.
	c.SetDifficulty(models.DifficultyNormal)
	if rec.calls != 0 {
		t.Fatalf("Setting the current value must not emit, got %d calls", rec.calls)
	}

	// New value: exactly one event carrying it.
	c.SetDifficulty(models.DifficultyHard)
	if rec.calls != 1 {
		t.Fatalf("Expected exactly one difficultyChange event, got %d", rec.calls)
	}
	if rec.last != models.DifficultyHard {
		t.Errorf("Event should carry the new value, got %v", rec.last)
	}
	if c.Difficulty() != models.DifficultyHard {
		t.Errorf("Accessor should return the new value, got %d", c.Difficulty())
	}
}

func TestController_SetTimer(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	rec := &recorder{}
	c.On(EventTimerChange, rec.listen)

	c.SetTimer(300)
	if rec.calls != 0 {
		t.Fatal("Setting the current timer must not emit")
	}

	c.SetTimer(299)
	if rec.calls != 1 || c.Timer() != 299 {
		t.Errorf("Expected one timerChange and timer 299, got %d calls, timer %d", rec.calls, c.Timer())
	}
}

func TestController_SetCurrentScore(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	rec := &recorder{}
	c.On(EventCurrentScore, rec.listen)

	c.SetCurrentScore(models.ScoreObject{UserID: "bob", Score: 0})
	if rec.calls != 0 {
		t.Fatal("Equal score must not emit")
	}

	score := models.ScoreObject{UserID: "bob", Score: 5}
	c.SetCurrentScore(score)
	if rec.calls != 1 {
		t.Fatalf("Expected one currentScoreChange event, got %d", rec.calls)
	}
	if c.CurrentScore() != score {
		t.Errorf("Accessor mismatch: %+v", c.CurrentScore())
	}
}

func TestController_SetCorrect_DeepEquality(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	rec := &recorder{}
	c.On(EventCorrectSequence, rec.listen)

	// A different slice with identical contents is not a change.
	same := []models.Arrow{{Display: "←", Direction: models.DirectionLeft, Duration: 2}}
	c.SetCorrect(same)
	if rec.calls != 0 {
		t.Fatal("Value-equal sequence must not emit")
	}

	next := []models.Arrow{{Display: "→", Direction: models.DirectionRight, Duration: 1}}
	c.SetCorrect(next)
	if rec.calls != 1 {
		t.Fatalf("Expected one correctSequenceChange event, got %d", rec.calls)
	}
	got := c.Correct()
	if len(got) != 1 || got[0] != next[0] {
		t.Errorf("Accessor must return the assigned parameter, got %v", got)
	}
}

func TestController_SetLeaderboard_AssignsIncoming(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	rec := &recorder{}
	c.On(EventLeaderboardChange, rec.listen)

	board := []models.ScoreObject{{UserID: "carol", Score: 42}}
	c.SetLeaderboard(board)

	if rec.calls != 1 {
		t.Fatalf("Expected one leaderboardChange event, got %d", rec.calls)
	}
	got := c.Leaderboard()
	if len(got) != 1 || got[0] != board[0] {
		t.Errorf("Setter must store the incoming board, got %v", got)
	}

	// Re-sending the same board is not a change.
	c.SetLeaderboard([]models.ScoreObject{{UserID: "carol", Score: 42}})
	if rec.calls != 1 {
		t.Errorf("Value-equal board must not emit again, got %d calls", rec.calls)
	}
}

func TestController_SetUserClicks(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	rec := &recorder{}
	c.On(EventUserClicks, rec.listen)

	clicks := []models.Arrow{{Display: "↑", Direction: models.DirectionUp, Duration: 1}}
	c.SetUserClicks(clicks)
	if rec.calls != 1 {
		t.Fatalf("Expected one userClicksChange event, got %d", rec.calls)
	}
	c.SetUserClicks(clicks)
	if rec.calls != 1 {
		t.Errorf("Identical clicks must not emit again, got %d calls", rec.calls)
	}
}

func TestController_UpdateFromIsPartial(t *testing.T) {
	c := NewDanceAreaController(baseModel())
	diffRec, timerRec, scoreRec := &recorder{}, &recorder{}, &recorder{}
	correctRec, clicksRec, boardRec := &recorder{}, &recorder{}, &recorder{}
	c.On(EventDifficultyChange, diffRec.listen)
	c.On(EventTimerChange, timerRec.listen)
	c.On(EventCurrentScore, scoreRec.listen)
	c.On(EventCorrectSequence, correctRec.listen)
	c.On(EventUserClicks, clicksRec.listen)
	c.On(EventLeaderboardChange, boardRec.listen)

	update := models.DanceAreaModel{
		ID:           "floor",
		Difficulty:   models.DifficultyHard,
		Correct:      []models.Arrow{{Display: "↓", Direction: models.DirectionDown, Duration: 9}},
		UserClicks:   []models.Arrow{{Display: "↓", Direction: models.DirectionDown, Duration: 9}},
		Leaderboard:  []models.ScoreObject{{UserID: "dave", Score: 1}},
		CurrentScore: models.ScoreObject{UserID: "bob", Score: 3},
		Timer:        120,
	}
	c.UpdateFrom(update)

	if diffRec.calls != 1 || timerRec.calls != 1 || scoreRec.calls != 1 {
		t.Errorf("difficulty/timer/currentScore must each emit once, got %d/%d/%d",
			diffRec.calls, timerRec.calls, scoreRec.calls)
	}
	if correctRec.calls != 0 || clicksRec.calls != 0 || boardRec.calls != 0 {
		t.Error("UpdateFrom must not propagate correct/userClicks/leaderboard")
	}
	if len(c.Correct()) != 1 || c.Correct()[0].Display != "←" {
		t.Error("Correct sequence must be untouched by UpdateFrom")
	}
}

func TestController_ModelIsACopy(t *testing.T) {
	c := NewDanceAreaController(baseModel())

	snapshot := c.Model()
	snapshot.Correct[0] = models.Arrow{Display: "x", Direction: "Nowhere", Duration: 0}
	snapshot.Timer = -1

	if c.Timer() == -1 {
		t.Error("Mutating the snapshot must not change the controller")
	}
	if c.Correct()[0].Display != "←" {
		t.Error("Mutating the snapshot's slices must not change the controller")
	}
}
