// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/townserver/models"
)

// PostgreSQL 纯 database/sql 实现, 不依赖GORM
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS leaderboard_entries (
            id SERIAL PRIMARY KEY,
            area_id VARCHAR(255) NOT NULL,
            user_id VARCHAR(255) NOT NULL,
            score INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS dance_records (
            id SERIAL PRIMARY KEY,
            town_id VARCHAR(255) NOT NULL,
            area_id VARCHAR(255) NOT NULL,
            difficulty INTEGER NOT NULL DEFAULT 15,
            players JSONB,
            result JSONB,
            duration INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS towns (
            id SERIAL PRIMARY KEY,
            town_id VARCHAR(255) UNIQUE NOT NULL,
            friendly_name VARCHAR(255) NOT NULL,
            state JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_leaderboard_area_score ON leaderboard_entries(area_id, score DESC);
        CREATE INDEX IF NOT EXISTS idx_leaderboard_user_id ON leaderboard_entries(user_id);
        CREATE INDEX IF NOT EXISTS idx_dance_records_area_id ON dance_records(area_id);
        CREATE INDEX IF NOT EXISTS idx_towns_town_id ON towns(town_id);
    `)

	return err
}

// SubmitScore 记录一局得分, 并裁剪到榜单容量
func (p *PostgreSQL) SubmitScore(areaID string, score models.ScoreObject) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (area_id, user_id, score) VALUES ($1, $2, $3)`,
		areaID, score.UserID, score.Score)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
        DELETE FROM leaderboard_entries
        WHERE area_id = $1 AND id NOT IN (
            SELECT id FROM leaderboard_entries
            WHERE area_id = $1
            ORDER BY score DESC, created_at ASC
            LIMIT $2
        )
    `, areaID, models.LeaderboardCapacity)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// TopScores 查询区域排行榜
func (p *PostgreSQL) TopScores(areaID string, limit int) ([]models.ScoreObject, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT user_id, score FROM leaderboard_entries
        WHERE area_id = $1
        ORDER BY score DESC, created_at ASC
        LIMIT $2
    `, areaID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.ScoreObject
	for rows.Next() {
		var s models.ScoreObject
		if err := rows.Scan(&s.UserID, &s.Score); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// SaveDanceRecord 保存游戏记录
func (p *PostgreSQL) SaveDanceRecord(record *models.GormDanceRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}
	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO dance_records (town_id, area_id, difficulty, players, result, duration)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, record.TownID, record.AreaID, record.Difficulty, playersJSON, resultJSON, record.Duration)

	return err
}

// SaveTownState 保存城镇状态
func (p *PostgreSQL) SaveTownState(townID, friendlyName string, state map[string]interface{}) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 使用 UPSERT 操作 (PostgreSQL 9.5+)
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO towns (town_id, friendly_name, state)
        VALUES ($1, $2, $3)
        ON CONFLICT (town_id)
        DO UPDATE SET friendly_name = $2, state = $3, updated_at = CURRENT_TIMESTAMP
    `, townID, friendlyName, stateJSON)

	return err
}

// LoadTownState 加载城镇状态
func (p *PostgreSQL) LoadTownState(townID string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT state FROM towns WHERE town_id = $1`, townID).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	var state map[string]interface{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetPlayerBest 查询玩家最好成绩
func (p *PostgreSQL) GetPlayerBest(userID string) (*models.PlayerBest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	best := models.PlayerBest{UserID: userID}
	err := p.db.QueryRowContext(ctx, `
        SELECT MAX(score), COUNT(*) FROM leaderboard_entries WHERE user_id = $1
        GROUP BY user_id
    `, userID).Scan(&best.BestScore, &best.Rounds)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return &best, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
