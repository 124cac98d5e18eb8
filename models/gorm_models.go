// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormLeaderboardEntry 排行榜条目模型
type GormLeaderboardEntry struct {
	gorm.Model
	AreaID string `gorm:"index:idx_area_score,priority:1;not null"`
	UserID string `gorm:"not null"`
	Score  int    `gorm:"index:idx_area_score,priority:2;default:0"`
}

// GormDanceRecord 舞蹈游戏记录模型
type GormDanceRecord struct {
	gorm.Model
	TownID     string                 `gorm:"index;not null"`
	AreaID     string                 `gorm:"index;not null"`
	Difficulty int                    `gorm:"default:15"`
	Players    map[string]interface{} `gorm:"type:jsonb"`
	Result     map[string]interface{} `gorm:"type:jsonb"`
	Duration   int                    `gorm:"default:0"` // 游戏时长(秒)
}

// GormTown 城镇模型
type GormTown struct {
	gorm.Model
	TownID       string                 `gorm:"uniqueIndex;not null"`
	FriendlyName string                 `gorm:"not null"`
	State        map[string]interface{} `gorm:"type:jsonb"`
}

// PlayerBest 玩家最好成绩
type PlayerBest struct {
	UserID    string `json:"user_id"`
	BestScore int    `json:"best_score"`
	Rounds    int    `json:"rounds"`
}
