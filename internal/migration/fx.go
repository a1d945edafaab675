package migration

import (
	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/config"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	"github.com/voxpractice/cadence/internal/seed"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module applies schema migrations and seeds the default tier catalog.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql installs are for development; let gorm build
			// the schema from the models.
			if err := conn.AutoMigrate(
				&tierdomain.Tier{},
				&orgdomain.Org{},
				&accountdomain.Profile{},
				&usagedomain.SessionRecord{},
				&usagedomain.SimulationScore{},
				&auditdomain.Fact{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDefaultTiers {
			return seed.EnsureDefaultTiers(conn, genID)
		}
		return nil
	}),
)
