package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/voxpractice/cadence/internal/account"
	"github.com/voxpractice/cadence/internal/audit"
	"github.com/voxpractice/cadence/internal/clock"
	"github.com/voxpractice/cadence/internal/config"
	"github.com/voxpractice/cadence/internal/entitlement"
	"github.com/voxpractice/cadence/internal/migration"
	"github.com/voxpractice/cadence/internal/observability/metrics"
	"github.com/voxpractice/cadence/internal/orgbilling"
	"github.com/voxpractice/cadence/internal/ratelimit"
	"github.com/voxpractice/cadence/internal/server"
	"github.com/voxpractice/cadence/internal/tier"
	"github.com/voxpractice/cadence/internal/usage"
	"github.com/voxpractice/cadence/pkg/db"
	"github.com/voxpractice/cadence/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		clock.Module,
		fx.Provide(newSnowflakeNode),

		db.Module,
		migration.Module,
		ratelimit.Module,
		metrics.Module,

		tier.Module,
		audit.Module,
		account.Module,
		usage.Module,
		orgbilling.Module,
		entitlement.Module,

		server.Module,
	)

	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
