// Package seed installs the default tier catalog so a fresh install is
// usable without manual configuration.
package seed

import (
	"time"

	"github.com/bwmarrin/snowflake"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func int64ptr(v int64) *int64 { return &v }

// EnsureDefaultTiers inserts the built-in tiers if they are missing. Existing
// rows are left untouched so operator edits survive restarts.
func EnsureDefaultTiers(conn *gorm.DB, genID *snowflake.Node) error {
	now := time.Now().UTC()
	defaults := []tierdomain.Tier{
		{
			ID:                genID.Generate(),
			Code:              "starter",
			Name:              "Starter",
			DailySecondsLimit: int64ptr(900),
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			ID:                genID.Generate(),
			Code:              "pro",
			Name:              "Pro",
			DailySecondsLimit: int64ptr(3600),
			PrioritySupport:   true,
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		{
			ID:                genID.Generate(),
			Code:              "unlimited",
			Name:              "Unlimited",
			DailySecondsLimit: nil,
			PrioritySupport:   true,
			AdvancedAnalytics: true,
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
		},
	}

	return conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&defaults).Error
}
