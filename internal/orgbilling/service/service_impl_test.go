package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	auditservice "github.com/voxpractice/cadence/internal/audit/service"
	"github.com/voxpractice/cadence/internal/clock"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	usageservice "github.com/voxpractice/cadence/internal/usage/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	orgs  orgdomain.Service
	usage usagedomain.Service
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Org{},
		&usagedomain.SessionRecord{},
		&auditdomain.Fact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	usageSvc := usageservice.NewService(usageservice.ServiceParam{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: fake,
	})
	auditSvc := auditservice.NewService(auditservice.ServiceParam{
		DB:    db,
		Log:   logger,
		GenID: node,
		Clock: fake,
	})
	orgSvc := NewService(ServiceParam{
		DB:       db,
		Log:      logger,
		GenID:    node,
		Clock:    fake,
		UsageSvc: usageSvc,
		AuditSvc: auditSvc,
	})
	return &testEnv{orgs: orgSvc, usage: usageSvc, clock: fake, node: node}
}

func (e *testEnv) createOrg(t *testing.T, allottedMinutes int64, thresholds []int) *orgdomain.Org {
	t.Helper()
	org, err := e.orgs.Create(context.Background(), orgdomain.CreateOrgRequest{
		Name:                   "Acme Health",
		Timezone:               "UTC",
		ContractSignedAt:       time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		MonthlyMinutesAllotted: allottedMinutes,
		SoftLimitPercents:      thresholds,
	})
	require.NoError(t, err)
	return org
}

func (e *testEnv) recordOrgUsage(t *testing.T, orgID snowflake.ID, startedAt time.Time, rawSeconds float64) {
	t.Helper()
	_, err := e.usage.RecordSession(context.Background(), usagedomain.RecordSessionRequest{
		UserID:             e.node.Generate().String(),
		OrgID:              orgID.String(),
		StartedAt:          startedAt,
		RawDurationSeconds: rawSeconds,
	})
	require.NoError(t, err)
}

func TestCreate_SanitizesThresholds(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrg(t, 1000, []int{150, 95, 80, 95, 0})

	require.NotNil(t, org.SoftLimit1Percent)
	require.NotNil(t, org.SoftLimit2Percent)
	assert.Equal(t, 80, *org.SoftLimit1Percent)
	assert.Equal(t, 95, *org.SoftLimit2Percent)
}

func TestComputeUsageBilling_ThresholdsReached(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrg(t, 1000, []int{80, 95})

	// 57000 raw seconds bill whole and read as 950 of 1000 minutes.
	env.recordOrgUsage(t, org.ID, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), 57000)

	view, err := env.orgs.ComputeUsageBilling(context.Background(), org.ID.String())
	require.NoError(t, err)

	assert.Equal(t, int64(950), view.UsedMinutes)
	assert.Equal(t, int64(1000), view.AllottedMinutes)
	assert.InDelta(t, 95.0, view.UsagePercent, 0.001)
	assert.True(t, view.QuotaConfigured)
	assert.True(t, view.PeriodStartAt.Equal(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, view.PeriodEndAt.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, view.NextRenewalAt.Equal(view.PeriodEndAt))

	require.Len(t, view.SoftLimits, 2)
	for _, limit := range view.SoftLimits {
		assert.True(t, limit.Reached, "threshold %d", limit.ThresholdPercent)
		assert.Equal(t, orgdomain.SoftLimitPending, limit.Status)
		assert.True(t, limit.NeedsNotification)
	}
}

func TestComputeUsageBilling_ZeroAllottedIsNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrg(t, 0, []int{80})
	env.recordOrgUsage(t, org.ID, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), 600000)

	view, err := env.orgs.ComputeUsageBilling(context.Background(), org.ID.String())
	require.NoError(t, err)

	assert.False(t, view.QuotaConfigured)
	assert.Zero(t, view.UsagePercent)
	require.Len(t, view.SoftLimits, 1)
	assert.False(t, view.SoftLimits[0].Reached)
	assert.False(t, view.SoftLimits[0].NeedsNotification)
}

func TestMarkSoftLimitNotified(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrg(t, 1000, []int{80, 95})
	env.recordOrgUsage(t, org.ID, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), 57000)
	ctx := context.Background()

	_, err := env.orgs.MarkSoftLimitNotified(ctx, org.ID.String(), 50)
	assert.ErrorIs(t, err, orgdomain.ErrInvalidThreshold)

	updated, err := env.orgs.MarkSoftLimitNotified(ctx, org.ID.String(), 80)
	require.NoError(t, err)
	require.NotNil(t, updated.SoftLimit1NotifiedAt)

	view, err := env.orgs.ComputeUsageBilling(ctx, org.ID.String())
	require.NoError(t, err)
	assert.Equal(t, orgdomain.SoftLimitNotified, view.SoftLimits[0].Status)
	assert.False(t, view.SoftLimits[0].NeedsNotification)
	assert.Equal(t, orgdomain.SoftLimitPending, view.SoftLimits[1].Status)
	assert.True(t, view.SoftLimits[1].NeedsNotification)

	// A threshold notifies once per contract period.
	_, err = env.orgs.MarkSoftLimitNotified(ctx, org.ID.String(), 80)
	assert.ErrorIs(t, err, orgdomain.ErrNotificationStale)
}

func TestSoftLimitRefiresInNewContractPeriod(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrg(t, 1000, []int{80})
	env.recordOrgUsage(t, org.ID, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), 57000)
	ctx := context.Background()

	_, err := env.orgs.MarkSoftLimitNotified(ctx, org.ID.String(), 80)
	require.NoError(t, err)

	// Next contract year with fresh usage past the threshold again.
	env.clock.Set(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	env.recordOrgUsage(t, org.ID, time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC), 57000)

	view, err := env.orgs.ComputeUsageBilling(ctx, org.ID.String())
	require.NoError(t, err)
	assert.True(t, view.PeriodStartAt.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.Len(t, view.SoftLimits, 1)
	assert.Equal(t, orgdomain.SoftLimitPending, view.SoftLimits[0].Status)
	assert.True(t, view.SoftLimits[0].NeedsNotification)

	_, err = env.orgs.MarkSoftLimitNotified(ctx, org.ID.String(), 80)
	assert.NoError(t, err)
}

func TestUpdateSoftLimits_PreservesNotifiedAtForKeptThreshold(t *testing.T) {
	env := newTestEnv(t)
	org := env.createOrg(t, 1000, []int{80, 95})
	env.recordOrgUsage(t, org.ID, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), 57000)
	ctx := context.Background()

	_, err := env.orgs.MarkSoftLimitNotified(ctx, org.ID.String(), 80)
	require.NoError(t, err)

	updated, err := env.orgs.UpdateSoftLimits(ctx, org.ID.String(), []int{80, 90})
	require.NoError(t, err)

	require.NotNil(t, updated.SoftLimit1Percent)
	assert.Equal(t, 80, *updated.SoftLimit1Percent)
	assert.NotNil(t, updated.SoftLimit1NotifiedAt, "kept threshold keeps its notified-at")
	require.NotNil(t, updated.SoftLimit2Percent)
	assert.Equal(t, 90, *updated.SoftLimit2Percent)
	assert.Nil(t, updated.SoftLimit2NotifiedAt)
}

func TestCreate_RejectsBlankName(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.orgs.Create(context.Background(), orgdomain.CreateOrgRequest{Name: "   "})
	assert.ErrorIs(t, err, orgdomain.ErrInvalidOrg)
}
