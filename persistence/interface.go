// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/townserver/models"
)

// Database 数据库接口
type Database interface {
	// SubmitScore records one finished round's score for an area.
	SubmitScore(areaID string, score models.ScoreObject) error
	// TopScores returns the best scores for an area, highest first.
	TopScores(areaID string, limit int) ([]models.ScoreObject, error)
	// SaveDanceRecord stores a full round record for later analysis.
	SaveDanceRecord(record *models.GormDanceRecord) error
	SaveTownState(townID, friendlyName string, state map[string]interface{}) error
	LoadTownState(townID string) (map[string]interface{}, error)
	// GetPlayerBest aggregates a player's best score across all areas.
	GetPlayerBest(userID string) (*models.PlayerBest, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
