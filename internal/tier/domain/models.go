// Package domain defines practice tiers. Tiers are configuration: loaded
// whole, treated as read-only lookup data by the engine.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tier describes the limits and feature flags of a plan tier. A nil
// DailySecondsLimit means the tier itself imposes no daily cap; organization
// per-user caps still apply to enterprise accounts.
type Tier struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	Code              string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name              string       `gorm:"type:text;not null" json:"name"`
	DailySecondsLimit *int64       `json:"daily_seconds_limit"`
	PrioritySupport   bool         `gorm:"not null;default:false" json:"priority_support"`
	AdvancedAnalytics bool         `gorm:"not null;default:false" json:"advanced_analytics"`
	Active            bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Tier) TableName() string { return "tiers" }
