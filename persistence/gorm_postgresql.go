// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/townserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(
		&models.GormLeaderboardEntry{},
		&models.GormDanceRecord{},
		&models.GormTown{},
	); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SubmitScore 记录一局得分, 并裁剪到榜单容量
func (p *GormPostgreSQL) SubmitScore(areaID string, score models.ScoreObject) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		entry := models.GormLeaderboardEntry{
			AreaID: areaID,
			UserID: score.UserID,
			Score:  score.Score,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// 只保留前 LeaderboardCapacity 条
		var keep []uint
		if err := tx.Model(&models.GormLeaderboardEntry{}).
			Where("area_id = ?", areaID).
			Order("score DESC, created_at ASC").
			Limit(models.LeaderboardCapacity).
			Pluck("id", &keep).Error; err != nil {
			return err
		}

		return tx.Where("area_id = ? AND id NOT IN ?", areaID, keep).
			Delete(&models.GormLeaderboardEntry{}).Error
	})
}

// TopScores 查询区域排行榜
func (p *GormPostgreSQL) TopScores(areaID string, limit int) ([]models.ScoreObject, error) {
	var entries []models.GormLeaderboardEntry
	err := p.db.Where("area_id = ?", areaID).
		Order("score DESC, created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	scores := make([]models.ScoreObject, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, models.ScoreObject{UserID: e.UserID, Score: e.Score})
	}
	return scores, nil
}

// SaveDanceRecord 保存游戏记录
func (p *GormPostgreSQL) SaveDanceRecord(record *models.GormDanceRecord) error {
	return p.db.Create(record).Error
}

// SaveTownState 保存城镇状态
func (p *GormPostgreSQL) SaveTownState(townID, friendlyName string, state map[string]interface{}) error {
	var t models.GormTown
	result := p.db.Where("town_id = ?", townID).First(&t)

	if result.Error == gorm.ErrRecordNotFound {
		t = models.GormTown{
			TownID:       townID,
			FriendlyName: friendlyName,
			State:        state,
		}
		return p.db.Create(&t).Error
	} else if result.Error != nil {
		return result.Error
	}

	t.FriendlyName = friendlyName
	t.State = state
	return p.db.Save(&t).Error
}

// LoadTownState 加载城镇状态
func (p *GormPostgreSQL) LoadTownState(townID string) (map[string]interface{}, error) {
	var t models.GormTown
	if err := p.db.Where("town_id = ?", townID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return t.State, nil
}

// GetPlayerBest 查询玩家最好成绩
func (p *GormPostgreSQL) GetPlayerBest(userID string) (*models.PlayerBest, error) {
	var best models.PlayerBest
	err := p.db.Model(&models.GormLeaderboardEntry{}).
		Select("user_id, MAX(score) AS best_score, COUNT(*) AS rounds").
		Where("user_id = ?", userID).
		Group("user_id").
		Scan(&best).Error
	if err != nil {
		return nil, err
	}
	if best.UserID == "" {
		return nil, ErrRecordNotFound
	}
	return &best, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
