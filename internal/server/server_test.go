package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	"github.com/voxpractice/cadence/internal/config"
	entitlementservice "github.com/voxpractice/cadence/internal/entitlement/service"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	orgservice "github.com/voxpractice/cadence/internal/orgbilling/service"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	tierservice "github.com/voxpractice/cadence/internal/tier/service"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	usageservice "github.com/voxpractice/cadence/internal/usage/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*Server, *clock.FakeClock, accountdomain.Service, usagedomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&tierdomain.Tier{},
		&orgdomain.Org{},
		&accountdomain.Profile{},
		&usagedomain.SessionRecord{},
		&usagedomain.SimulationScore{},
		&auditdomain.Fact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	limit := int64(900)
	require.NoError(t, db.Create(&tierdomain.Tier{
		ID: node.Generate(), Code: "starter", Name: "Starter",
		DailySecondsLimit: &limit, Active: true,
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
	entitlementSvc := entitlementservice.NewService(entitlementservice.ServiceParam{
		Log: logger, Clock: fake,
		AccountSvc: accountSvc, TierSvc: tierSvc, OrgSvc: orgSvc,
		UsageSvc: usageSvc, AuditSvc: auditSvc,
	})

	srv := NewServer(Params{
		Config:       config.Config{AppName: "cadence", AppVersion: "test"},
		Log:          logger,
		Accounts:     accountSvc,
		Entitlements: entitlementSvc,
		Usage:        usageSvc,
		Orgs:         orgSvc,
		Tiers:        tierSvc,
		Audit:        auditSvc,
	})
	return srv, fake, accountSvc, usageSvc
}

func TestEntitlementEndpoint(t *testing.T) {
	srv, fake, accounts, usage := newTestServer(t)
	router := srv.Router()

	profile, err := accounts.Create(context.Background(), accountdomain.CreateProfileRequest{
		TierCode: "starter",
		Timezone: "America/New_York",
	})
	require.NoError(t, err)

	_, err = usage.RecordSession(context.Background(), usagedomain.RecordSessionRequest{
		UserID:             profile.ID.String(),
		StartedAt:          fake.Now().Add(-time.Hour),
		RawDurationSeconds: 300,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/"+profile.ID.String()+"/entitlement", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, float64(600), body.Data["dailySecondsRemaining"])
	assert.Equal(t, float64(300), body.Data["billedSecondsToday"])
	assert.Equal(t, true, body.Data["canStartSimulation"])
	assert.Nil(t, body.Data["lockReason"])
	assert.Contains(t, body.Data["nextDailyResetLabel"], "Resets")
	assert.Contains(t, body.Data, "nextRenewalAt")
}

func TestEntitlementEndpoint_UnknownUser(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	router := srv.Router()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/"+node.Generate().String()+"/entitlement", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error.Type)
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
