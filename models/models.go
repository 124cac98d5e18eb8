// models/models.go
package models

// ArrowDirection is one of the four directions a dance prompt can ask for.
type ArrowDirection string

const (
	DirectionLeft  ArrowDirection = "Left"
	DirectionRight ArrowDirection = "Right"
	DirectionUp    ArrowDirection = "Up"
	DirectionDown  ArrowDirection = "Down"
)

// Directions is the full set an arrow's direction is drawn from.
var Directions = [4]ArrowDirection{DirectionLeft, DirectionRight, DirectionUp, DirectionDown}

// Glyphs is the full set an arrow's display glyph is drawn from. The glyph is
// chosen independently of the direction.
var Glyphs = [4]string{"←", "→", "↑", "↓"}

// Arrow is a single dance prompt. Immutable once created.
type Arrow struct {
	Display   string         `json:"display"`
	Direction ArrowDirection `json:"direction"`
	Duration  int            `json:"duration"` // seconds, in [1,10]
}

// ScoreObject is either a live running score or a leaderboard entry.
// UserID may be empty for the zero score.
type ScoreObject struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// Difficulty controls the countdown length of a dance round.
type Difficulty int

const (
	DifficultyHard   Difficulty = 10
	DifficultyNormal Difficulty = 15
)

const (
	// SequenceLength is the fixed number of arrows in a prompt sequence.
	SequenceLength = 20
	// LeaderboardCapacity caps how many entries a leaderboard holds.
	LeaderboardCapacity = 10
	// TimerMultiplier derives the countdown from the difficulty:
	// timer = TimerMultiplier * difficulty.
	TimerMultiplier = 20
)

// DanceAreaModel is the serialized snapshot of a dance area, exchanged
// between server and clients in area-state broadcasts and in the
// initial-state payload sent to a newly joined client.
type DanceAreaModel struct {
	ID           string        `json:"id"`
	Difficulty   Difficulty    `json:"difficulty"`
	Correct      []Arrow       `json:"correct"`
	UserClicks   []Arrow       `json:"userClicks"`
	Leaderboard  []ScoreObject `json:"leaderboard"`
	CurrentScore ScoreObject   `json:"currentScore"`
	Timer        int           `json:"timer"` // seconds remaining
}

// Copy returns a deep copy of the model. Snapshot accessors hand out copies
// so callers cannot alias the authoritative state.
func (m DanceAreaModel) Copy() DanceAreaModel {
	c := m
	c.Correct = append([]Arrow(nil), m.Correct...)
	c.UserClicks = append([]Arrow(nil), m.UserClicks...)
	c.Leaderboard = append([]ScoreObject(nil), m.Leaderboard...)
	return c
}

// BoundingBox is the rectangular region an area occupies on the town map.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point (x, y) falls inside the box.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// MapObject is the map-editor descriptor an area is built from at town load.
type MapObject struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PlayerLocation is a player's position in the town, including which
// interactable area (if any) the player currently occupies.
type PlayerLocation struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Rotation       string  `json:"rotation"` // front/back/left/right
	Moving         bool    `json:"moving"`
	InteractableID string  `json:"interactableID,omitempty"` // empty means none
}

// PlayerMoved is the payload of a player-moved broadcast.
type PlayerMoved struct {
	PlayerID string         `json:"playerId"`
	UserName string         `json:"userName"`
	Location PlayerLocation `json:"location"`
}

// TownState is the initial-state payload: every interactable in the town,
// sent to a client right after it joins.
type TownState struct {
	TownID        string           `json:"townId"`
	FriendlyName  string           `json:"friendlyName"`
	Interactables []DanceAreaModel `json:"interactables"`
}
