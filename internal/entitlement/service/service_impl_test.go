package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	accountservice "github.com/voxpractice/cadence/internal/account/service"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	auditservice "github.com/voxpractice/cadence/internal/audit/service"
	"github.com/voxpractice/cadence/internal/clock"
	entitlementdomain "github.com/voxpractice/cadence/internal/entitlement/domain"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	orgservice "github.com/voxpractice/cadence/internal/orgbilling/service"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	tierservice "github.com/voxpractice/cadence/internal/tier/service"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	usageservice "github.com/voxpractice/cadence/internal/usage/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	entitlements entitlementdomain.Service
	accounts     accountdomain.Service
	usage        usagedomain.Service
	orgs         orgdomain.Service
	clock        *clock.FakeClock
	node         *snowflake.Node
	db           *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tierdomain.Tier{},
		&orgdomain.Org{},
		&accountdomain.Profile{},
		&usagedomain.SessionRecord{},
		&auditdomain.Fact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	limit := int64(900)
	require.NoError(t, db.Create(&tierdomain.Tier{
		ID: node.Generate(), Code: "starter", Name: "Starter",
		DailySecondsLimit: &limit, Active: true,
	}).Error)
	require.NoError(t, db.Create(&tierdomain.Tier{
		ID: node.Generate(), Code: "unlimited", Name: "Unlimited", Active: true,
	}).Error)

	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	tierSvc := tierservice.NewService(tierservice.ServiceParam{DB: db, Log: logger})
	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fake,
	})
	usageSvc := usageservice.NewService(usageservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fake,
	})
	accountSvc := accountservice.NewService(accountservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fake,
		TierSvc: tierSvc, AuditSvc: auditSvc,
	})
	orgSvc := orgservice.NewService(orgservice.ServiceParam{
		DB: db, Log: logger, GenID: node, Clock: fake,
		UsageSvc: usageSvc, AuditSvc: auditSvc,
	})
	entitlementSvc := NewService(ServiceParam{
		Log: logger, Clock: fake,
		AccountSvc: accountSvc, TierSvc: tierSvc, OrgSvc: orgSvc,
		UsageSvc: usageSvc, AuditSvc: auditSvc,
	})

	return &testEnv{
		entitlements: entitlementSvc,
		accounts:     accountSvc,
		usage:        usageSvc,
		orgs:         orgSvc,
		clock:        fake,
		node:         node,
		db:           db,
	}
}

func (e *testEnv) createProfile(t *testing.T, tierCode string) *accountdomain.Profile {
	t.Helper()
	profile, err := e.accounts.Create(context.Background(), accountdomain.CreateProfileRequest{
		TierCode:     tierCode,
		Timezone:     "America/New_York",
		PlanAnchorAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return profile
}

func (e *testEnv) recordUsage(t *testing.T, userID snowflake.ID, startedAt time.Time, rawSeconds float64) {
	t.Helper()
	_, err := e.usage.RecordSession(context.Background(), usagedomain.RecordSessionRequest{
		UserID:             userID.String(),
		StartedAt:          startedAt,
		RawDurationSeconds: rawSeconds,
	})
	require.NoError(t, err)
}

func TestResolve_AllowsWithinLimit(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "starter")

	env.recordUsage(t, profile.ID, env.clock.Now().Add(-time.Hour), 300)

	decision, err := env.entitlements.Resolve(context.Background(), profile.ID.String())
	require.NoError(t, err)

	assert.True(t, decision.CanStartSimulation)
	assert.Equal(t, int64(300), decision.BilledSecondsToday)
	require.NotNil(t, decision.DailySecondsRemaining)
	assert.Equal(t, int64(600), *decision.DailySecondsRemaining)
	assert.Nil(t, decision.LockReason)
}

func TestResolve_DeniesAndRecordsFact(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "starter")

	env.recordUsage(t, profile.ID, env.clock.Now().Add(-time.Hour), 900)

	decision, err := env.entitlements.Resolve(context.Background(), profile.ID.String())
	require.NoError(t, err)

	assert.False(t, decision.CanStartSimulation)
	assert.Equal(t, entitlementdomain.LockCodeDailyLimitReached, decision.LockCode)

	var facts int64
	require.NoError(t, env.db.Model(&auditdomain.Fact{}).
		Where("kind = ?", auditdomain.KindSimulationDenied).
		Count(&facts).Error)
	assert.Equal(t, int64(1), facts)
}

func TestResolve_YesterdaysUsageDoesNotCount(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "starter")

	// Exhausted yesterday in the user's zone; today starts fresh.
	env.recordUsage(t, profile.ID, env.clock.Now().Add(-24*time.Hour), 900)

	decision, err := env.entitlements.Resolve(context.Background(), profile.ID.String())
	require.NoError(t, err)

	assert.True(t, decision.CanStartSimulation)
	assert.Zero(t, decision.BilledSecondsToday)
	require.NotNil(t, decision.DailySecondsRemaining)
	assert.Equal(t, int64(900), *decision.DailySecondsRemaining)
	assert.Equal(t, int64(900), decision.BilledSecondsThisMonth)
}

func TestResolve_UnlimitedTier(t *testing.T) {
	env := newTestEnv(t)
	profile := env.createProfile(t, "unlimited")

	env.recordUsage(t, profile.ID, env.clock.Now().Add(-time.Hour), 100000)

	decision, err := env.entitlements.Resolve(context.Background(), profile.ID.String())
	require.NoError(t, err)

	assert.True(t, decision.CanStartSimulation)
	assert.Nil(t, decision.DailySecondsRemaining)
}

func TestResolve_OrphanedEnterpriseDenied(t *testing.T) {
	env := newTestEnv(t)
	missingOrg := env.node.Generate()
	profile, err := env.accounts.Create(context.Background(), accountdomain.CreateProfileRequest{
		TierCode:    "starter",
		AccountType: accountdomain.AccountTypeEnterprise,
		OrgID:       missingOrg.String(),
		Timezone:    "UTC",
	})
	require.NoError(t, err)

	decision, err := env.entitlements.Resolve(context.Background(), profile.ID.String())
	require.NoError(t, err)

	assert.False(t, decision.CanStartSimulation)
	assert.Equal(t, entitlementdomain.LockCodeAccountDisabled, decision.LockCode)
}

func TestResolve_OrgQuotaSharedAcrossUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org, err := env.orgs.Create(ctx, orgdomain.CreateOrgRequest{
		Name:              "Acme Health",
		Timezone:          "UTC",
		DailySecondsQuota: 600,
	})
	require.NoError(t, err)

	var members []*accountdomain.Profile
	for i := 0; i < 2; i++ {
		member, err := env.accounts.Create(ctx, accountdomain.CreateProfileRequest{
			TierCode:    "unlimited",
			AccountType: accountdomain.AccountTypeEnterprise,
			OrgID:       org.ID.String(),
			Timezone:    "UTC",
		})
		require.NoError(t, err)
		members = append(members, member)
	}

	// One colleague burns the whole org quota; the other is locked out too.
	_, err = env.usage.RecordSession(ctx, usagedomain.RecordSessionRequest{
		UserID:             members[0].ID.String(),
		OrgID:              org.ID.String(),
		StartedAt:          env.clock.Now().Add(-time.Hour),
		RawDurationSeconds: 600,
	})
	require.NoError(t, err)

	decision, err := env.entitlements.Resolve(ctx, members[1].ID.String())
	require.NoError(t, err)
	assert.False(t, decision.CanStartSimulation)
	assert.Equal(t, entitlementdomain.LockCodeOrgQuotaExhausted, decision.LockCode)
}

func TestResolve_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.entitlements.Resolve(context.Background(), env.node.Generate().String())
	assert.ErrorIs(t, err, accountdomain.ErrProfileNotFound)
}
