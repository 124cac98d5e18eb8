// services/leaderboard_service.go
package services

import (
	"sort"

	"github.com/wfunc/townserver/models"
	"github.com/wfunc/townserver/persistence"
)

// LeaderboardService owns score insertion and capping. Dance areas carry
// their leaderboard as plain data; the merge/sort/cap discipline lives here.
type LeaderboardService struct {
	db persistence.Database
}

func NewLeaderboardService(db persistence.Database) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// MergeScore inserts a score into a board, highest first, capped at the
// leaderboard capacity. The input board is not modified.
func MergeScore(board []models.ScoreObject, score models.ScoreObject) []models.ScoreObject {
	merged := append([]models.ScoreObject(nil), board...)
	merged = append(merged, score)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	if len(merged) > models.LeaderboardCapacity {
		merged = merged[:models.LeaderboardCapacity]
	}
	return merged
}

// RecordScore persists a finished round's score and returns the area's
// merged leaderboard. Scores without a player are dropped.
func (s *LeaderboardService) RecordScore(areaID string, board []models.ScoreObject, score models.ScoreObject) ([]models.ScoreObject, error) {
	if score.UserID == "" {
		return board, nil
	}

	if err := s.db.SubmitScore(areaID, score); err != nil {
		return board, err
	}
	return MergeScore(board, score), nil
}

// AreaLeaderboard loads an area's persisted leaderboard, used to seed the
// in-memory board when a town is created.
func (s *LeaderboardService) AreaLeaderboard(areaID string) ([]models.ScoreObject, error) {
	scores, err := s.db.TopScores(areaID, models.LeaderboardCapacity)
	if err != nil {
		return nil, err
	}
	if scores == nil {
		scores = []models.ScoreObject{}
	}
	return scores, nil
}

// PlayerBest returns a player's best score across all areas.
func (s *LeaderboardService) PlayerBest(userID string) (*models.PlayerBest, error) {
	return s.db.GetPlayerBest(userID)
}
