package area

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/network"
	"github.com/wfunc/townserver/session"
)

// MockEmitter records every broadcast so tests can assert on them.
type MockEmitter struct {
	AreaEvents   []models.DanceAreaModel
	PlayerEvents []models.PlayerLocation
}

func (m *MockEmitter) EmitAreaChanged(model models.DanceAreaModel) error {
	m.AreaEvents = append(m.AreaEvents, model)
	return nil
}

func (m *MockEmitter) EmitPlayerMoved(s *session.Session) error {
	m.PlayerEvents = append(m.PlayerEvents, s.Location())
	return nil
}

func (m *MockEmitter) reset() {
	m.AreaEvents = nil
	m.PlayerEvents = nil
}

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func newTestSession(id string) *session.Session {
	return session.NewSession(id, &MockConnection{})
}

func testBox() models.BoundingBox {
	return models.BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}
}

func inDirectionSet(d models.ArrowDirection) bool {
	for _, dir := range models.Directions {
		if d == dir {
			return true
		}
	}
	return false
}

func inGlyphSet(g string) bool {
	for _, glyph := range models.Glyphs {
		if g == glyph {
			return true
		}
	}
	return false
}

func TestGenerateArrowSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	arrows := GenerateArrowSequence(rng, models.SequenceLength)

	if len(arrows) != 20 {
		t.Fatalf("Expected 20 arrows, got %d", len(arrows))
	}

	for i, a := range arrows {
		if a.Duration < 1 || a.Duration > 10 {
			t.Errorf("Arrow %d duration %d outside [1,10]", i, a.Duration)
		}
		if !inDirectionSet(a.Direction) {
			t.Errorf("Arrow %d has unknown direction %q", i, a.Direction)
		}
		if !inGlyphSet(a.Display) {
			t.Errorf("Arrow %d has unknown glyph %q", i, a.Display)
		}
	}
}

func TestGenerateArrowSequence_Deterministic(t *testing.T) {
	a := GenerateArrowSequence(rand.New(rand.NewSource(7)), models.SequenceLength)
	b := GenerateArrowSequence(rand.New(rand.NewSource(7)), models.SequenceLength)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Same seed produced different sequences at index %d", i)
		}
	}
}

func TestNewDanceArea_Defaults(t *testing.T) {
	emitter := &MockEmitter{}
	d := NewDanceArea(models.DanceAreaModel{ID: "floor1"}, testBox(), emitter)

	if d.ID() != "floor1" {
		t.Errorf("Expected id floor1, got %s", d.ID())
	}
	if d.Difficulty() != models.DifficultyNormal {
		t.Errorf("Expected default difficulty 15, got %d", d.Difficulty())
	}
	if d.Timer() != 300 {
		t.Errorf("Expected timer 300 for difficulty 15, got %d", d.Timer())
	}
	if len(d.Correct()) != models.SequenceLength {
		t.Errorf("Expected a fresh 20-entry sequence, got %d", len(d.Correct()))
	}
	if len(d.UserClicks()) != 0 {
		t.Errorf("Expected empty user clicks, got %d", len(d.UserClicks()))
	}
	if board := d.Leaderboard(); board == nil || len(board) != 0 {
		t.Errorf("Expected empty leaderboard, got %v", board)
	}
	if d.CurrentScore() != (models.ScoreObject{}) {
		t.Errorf("Expected zero current score, got %+v", d.CurrentScore())
	}
}

func TestNewDanceArea_CarriesModelFields(t *testing.T) {
	emitter := &MockEmitter{}
	board := []models.ScoreObject{{UserID: "alice", Score: 12}}
	score := models.ScoreObject{UserID: "bob", Score: 3}

	d := NewDanceArea(models.DanceAreaModel{
		ID:           "floor2",
		Difficulty:   models.DifficultyHard,
		Leaderboard:  board,
		CurrentScore: score,
	}, testBox(), emitter)

	if d.Difficulty() != models.DifficultyHard {
		t.Errorf("Expected difficulty 10, got %d", d.Difficulty())
	}
	if d.Timer() != 200 {
		t.Errorf("Expected timer 200 for difficulty 10, got %d", d.Timer())
	}
	if got := d.Leaderboard(); len(got) != 1 || got[0] != board[0] {
		t.Errorf("Expected leaderboard carried through, got %v", got)
	}
	if d.CurrentScore() != score {
		t.Errorf("Expected current score carried verbatim, got %+v", d.CurrentScore())
	}
}

func TestDanceArea_Add(t *testing.T) {
	emitter := &MockEmitter{}
	d := NewDanceArea(models.DanceAreaModel{ID: "floor"}, testBox(), emitter)
	p := newTestSession("player1")

	d.Add(p)

	if d.OccupantCount() != 1 {
		t.Fatalf("Expected 1 occupant, got %d", d.OccupantCount())
	}
	found := false
	for _, id := range d.OccupantIDs() {
		if id == "player1" {
			found = true
		}
	}
	if !found {
		t.Error("Occupant list should contain the added player")
	}
	if p.Location().InteractableID != "floor" {
		t.Errorf("Player location should reference the area, got %q", p.Location().InteractableID)
	}
	if len(emitter.AreaEvents) != 1 {
		t.Errorf("Expected one area-state broadcast, got %d", len(emitter.AreaEvents))
	}
	if len(emitter.PlayerEvents) != 1 {
		t.Errorf("Expected one player-location broadcast, got %d", len(emitter.PlayerEvents))
	}
	if len(emitter.PlayerEvents) == 1 && emitter.PlayerEvents[0].InteractableID != "floor" {
		t.Errorf("Broadcast location should reference the area, got %q", emitter.PlayerEvents[0].InteractableID)
	}
}

func TestDanceArea_RemoveLastOccupantResets(t *testing.T) {
	emitter := &MockEmitter{}
	d := NewDanceArea(models.DanceAreaModel{ID: "floor"}, testBox(), emitter)
	p := newTestSession("player1")
	d.Add(p)

	board := []models.ScoreObject{{UserID: "alice", Score: 99}}
	d.UpdateModel(models.DanceAreaModel{
		Difficulty:   models.DifficultyHard,
		Correct:      GenerateArrowSequence(rand.New(rand.NewSource(1)), models.SequenceLength),
		UserClicks:   []models.Arrow{{Display: "←", Direction: models.DirectionLeft, Duration: 1}},
		Leaderboard:  board,
		CurrentScore: models.ScoreObject{UserID: "player1", Score: 7},
		Timer:        42,
	})

	emitter.reset()
	d.Remove(p)

	if d.Difficulty() != models.DifficultyNormal {
		t.Errorf("Expected difficulty reset to 15, got %d", d.Difficulty())
	}
	if len(d.Correct()) != 0 {
		t.Errorf("Expected correct sequence cleared, got %d entries", len(d.Correct()))
	}
	if len(d.UserClicks()) != 0 {
		t.Errorf("Expected user clicks cleared, got %d entries", len(d.UserClicks()))
	}
	if d.CurrentScore() != (models.ScoreObject{}) {
		t.Errorf("Expected zero current score, got %+v", d.CurrentScore())
	}
	if d.Timer() != 300 {
		t.Errorf("Expected timer reset to 300, got %d", d.Timer())
	}
	if got := d.Leaderboard(); len(got) != 1 || got[0] != board[0] {
		t.Errorf("Leaderboard must survive the reset, got %v", got)
	}
	if p.Location().InteractableID != "" {
		t.Errorf("Player area reference should be cleared, got %q", p.Location().InteractableID)
	}
	if len(emitter.AreaEvents) != 1 {
		t.Fatalf("Expected one area-state broadcast after remove, got %d", len(emitter.AreaEvents))
	}
	if emitter.AreaEvents[0].Timer != 300 || len(emitter.AreaEvents[0].Correct) != 0 {
		t.Error("Broadcast after remove should reflect the reset state")
	}
}

func TestDanceArea_RemoveWithRemainingOccupants(t *testing.T) {
	emitter := &MockEmitter{}
	d := NewDanceArea(models.DanceAreaModel{ID: "floor"}, testBox(), emitter)
	p1 := newTestSession("player1")
	p2 := newTestSession("player2")
	d.Add(p1)
	d.Add(p2)

	d.UpdateModel(models.DanceAreaModel{
		Difficulty:   models.DifficultyHard,
		Correct:      GenerateArrowSequence(rand.New(rand.NewSource(2)), models.SequenceLength),
		UserClicks:   []models.Arrow{},
		Leaderboard:  []models.ScoreObject{},
		CurrentScore: models.ScoreObject{UserID: "player2", Score: 4},
		Timer:        150,
	})

	emitter.reset()
	d.Remove(p1)

	if d.OccupantCount() != 1 {
		t.Fatalf("Expected 1 occupant left, got %d", d.OccupantCount())
	}
	if d.Difficulty() != models.DifficultyHard || d.Timer() != 150 {
		t.Error("No reset may happen while occupants remain")
	}
	if len(d.Correct()) != models.SequenceLength {
		t.Errorf("Correct sequence must be untouched, got %d entries", len(d.Correct()))
	}
	if len(emitter.AreaEvents) != 1 {
		t.Errorf("Remove must still broadcast the area state, got %d events", len(emitter.AreaEvents))
	}
}

func TestDanceArea_UpdateModelKeepsID(t *testing.T) {
	emitter := &MockEmitter{}
	d := NewDanceArea(models.DanceAreaModel{ID: "floor"}, testBox(), emitter)

	update := models.DanceAreaModel{
		ID:           "some-other-id",
		Difficulty:   models.DifficultyHard,
		Correct:      []models.Arrow{{Display: "↑", Direction: models.DirectionUp, Duration: 2}},
		UserClicks:   []models.Arrow{{Display: "↓", Direction: models.DirectionDown, Duration: 3}},
		Leaderboard:  []models.ScoreObject{{UserID: "alice", Score: 5}},
		CurrentScore: models.ScoreObject{UserID: "bob", Score: 1},
		Timer:        77,
	}
	d.UpdateModel(update)

	if d.ID() != "floor" {
		t.Errorf("UpdateModel must not reassign the id, got %s", d.ID())
	}

	got := d.ToModel()
	want := update.Copy()
	want.ID = "floor"

	if got.Difficulty != want.Difficulty || got.Timer != want.Timer ||
		got.CurrentScore != want.CurrentScore {
		t.Errorf("ToModel after UpdateModel mismatch: got %+v want %+v", got, want)
	}
	if len(got.Correct) != 1 || got.Correct[0] != want.Correct[0] {
		t.Errorf("Correct mismatch: %v", got.Correct)
	}
	if len(got.UserClicks) != 1 || got.UserClicks[0] != want.UserClicks[0] {
		t.Errorf("UserClicks mismatch: %v", got.UserClicks)
	}
	if len(got.Leaderboard) != 1 || got.Leaderboard[0] != want.Leaderboard[0] {
		t.Errorf("Leaderboard mismatch: %v", got.Leaderboard)
	}
	if len(emitter.AreaEvents) != 0 {
		t.Error("UpdateModel must not broadcast; that is the caller's call")
	}
}

func TestDanceArea_ToModelCopies(t *testing.T) {
	emitter := &MockEmitter{}
	d := NewDanceArea(models.DanceAreaModel{ID: "floor"}, testBox(), emitter)

	snapshot := d.ToModel()
	if len(snapshot.Correct) == 0 {
		t.Fatal("Expected a generated sequence in the snapshot")
	}
	snapshot.Correct[0] = models.Arrow{Display: "x", Direction: "Nowhere", Duration: 999}

	if d.Correct()[0] == snapshot.Correct[0] {
		t.Error("Mutating a snapshot must not change the area's state")
	}
}

func TestNewDanceAreaFromMapObject(t *testing.T) {
	emitter := &MockEmitter{}

	_, err := NewDanceAreaFromMapObject(models.MapObject{Name: "broken", X: 1, Y: 2, Height: 30}, emitter)
	if err != ErrInvalidMapObject {
		t.Fatalf("Expected ErrInvalidMapObject for missing width, got %v", err)
	}

	_, err = NewDanceAreaFromMapObject(models.MapObject{Name: "broken", X: 1, Y: 2, Width: 30}, emitter)
	if err != ErrInvalidMapObject {
		t.Fatalf("Expected ErrInvalidMapObject for missing height, got %v", err)
	}

	d, err := NewDanceAreaFromMapObject(models.MapObject{Name: "floor", X: 5, Y: 10, Width: 20, Height: 40}, emitter)
	if err != nil {
		t.Fatalf("Expected a valid descriptor to succeed, got %v", err)
	}
	if d.ID() != "floor" {
		t.Errorf("Expected id to be the descriptor name, got %s", d.ID())
	}
	box := d.BoundingBox()
	if box.X != 5 || box.Y != 10 || box.Width != 20 || box.Height != 40 {
		t.Errorf("Bounding box mismatch: %+v", box)
	}
	if d.Difficulty() != models.DifficultyNormal || d.Timer() != 300 {
		t.Error("Factory-built area must start at defaults")
	}
	if len(d.UserClicks()) != 0 || len(d.Leaderboard()) != 0 {
		t.Error("Factory-built area must start with empty progress fields")
	}
}
