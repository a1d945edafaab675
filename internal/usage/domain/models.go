// Package domain contains persistence models for recorded practice sessions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// SessionRecord stores a single completed voice-practice session. Records are
// immutable once created; they are only ever removed by account deletion.
type SessionRecord struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID             snowflake.ID      `gorm:"not null;index" json:"user_id"`
	OrgID              *snowflake.ID     `gorm:"index" json:"org_id,omitempty"`
	RoleCode           string            `gorm:"type:text" json:"role_code"`
	ScenarioCode       string            `gorm:"type:text" json:"scenario_code"`
	StartedAt          time.Time         `gorm:"not null;index" json:"started_at"`
	EndedAt            time.Time         `gorm:"not null" json:"ended_at"`
	RawDurationSeconds int64             `gorm:"not null" json:"raw_duration_seconds"`
	IdempotencyKey     string            `gorm:"type:text" json:"idempotency_key,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (SessionRecord) TableName() string { return "session_records" }

// SimulationScore carries evaluation scores for a session window. It is a
// read-only analytics input and never contributes to metered usage.
type SimulationScore struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID      `gorm:"not null;index" json:"user_id"`
	SessionID    snowflake.ID      `gorm:"not null;index" json:"session_id"`
	RoleCode     string            `gorm:"type:text" json:"role_code"`
	ScenarioCode string            `gorm:"type:text" json:"scenario_code"`
	OverallScore float64           `gorm:"not null" json:"overall_score"`
	Breakdown    datatypes.JSONMap `gorm:"type:jsonb" json:"breakdown,omitempty"`
	StartedAt    time.Time         `gorm:"not null" json:"started_at"`
	EndedAt      time.Time         `gorm:"not null" json:"ended_at"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (SimulationScore) TableName() string { return "simulation_scores" }
