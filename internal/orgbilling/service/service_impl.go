package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/calendar"
	"github.com/voxpractice/cadence/internal/clock"
	obsmetrics "github.com/voxpractice/cadence/internal/observability/metrics"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	"github.com/voxpractice/cadence/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const contractStepMonths = 12

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	UsageSvc usagedomain.Service
	AuditSvc auditdomain.Service
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	usageSvc usagedomain.Service
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
	orgs     repository.Repository[orgdomain.Org]
}

func NewService(p ServiceParam) orgdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("orgbilling.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		usageSvc: p.UsageSvc,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
		orgs:     repository.ProvideStore[orgdomain.Org](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req orgdomain.CreateOrgRequest) (*orgdomain.Org, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, orgdomain.ErrInvalidOrg
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := calendar.Location(timezone); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	signedAt := req.ContractSignedAt
	if signedAt.IsZero() {
		signedAt = now
	}

	org := &orgdomain.Org{
		ID:                     s.genID.Generate(),
		Name:                   name,
		Timezone:               timezone,
		DailySecondsQuota:      max64(req.DailySecondsQuota, 0),
		PerUserDailyCap:        max64(req.PerUserDailyCap, 0),
		ContractSignedAt:       signedAt.UTC(),
		MonthlyMinutesAllotted: max64(req.MonthlyMinutesAllotted, 0),
		RenewalTotalCents:      max64(req.RenewalTotalCents, 0),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	applyThresholds(org, orgdomain.SanitizeThresholds(req.SoftLimitPercents))

	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}

	s.recordFact(ctx, auditdomain.KindOrgCreated, org, "enterprise organization created", map[string]any{
		"name":                     org.Name,
		"daily_seconds_quota":      org.DailySecondsQuota,
		"per_user_daily_cap":       org.PerUserDailyCap,
		"monthly_minutes_allotted": org.MonthlyMinutesAllotted,
	})
	return org, nil
}

func (s *Service) Get(ctx context.Context, id string) (*orgdomain.Org, error) {
	orgID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.FindOne(ctx, &orgdomain.Org{ID: orgID})
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrOrgNotFound
	}
	return org, nil
}

func (s *Service) ComputeUsageBilling(ctx context.Context, id string) (*orgdomain.UsageBillingView, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	periodStart, periodEnd, err := calendar.PeriodBounds(org.ContractSignedAt, now, contractStepMonths)
	if err != nil {
		return nil, err
	}

	rawSeconds, err := s.usageSvc.OrgRawSeconds(ctx, org.ID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	usedMinutes := usagedomain.BilledSeconds(rawSeconds) / 60

	view := &orgdomain.UsageBillingView{
		OrgID:           org.ID,
		UsedMinutes:     usedMinutes,
		AllottedMinutes: org.MonthlyMinutesAllotted,
		PeriodStartAt:   periodStart,
		PeriodEndAt:     periodEnd,
		NextRenewalAt:   periodEnd,
	}

	if org.MonthlyMinutesAllotted > 0 {
		view.QuotaConfigured = true
		view.UsagePercent = 100 * float64(usedMinutes) / float64(org.MonthlyMinutesAllotted)
	}

	for _, limit := range org.SoftLimits() {
		view.SoftLimits = append(view.SoftLimits, buildSoftLimitView(limit, view, periodStart))
	}
	return view, nil
}

func buildSoftLimitView(limit orgdomain.SoftLimit, view *orgdomain.UsageBillingView, periodStart time.Time) orgdomain.SoftLimitView {
	out := orgdomain.SoftLimitView{
		ThresholdPercent: limit.Percent,
		Status:           orgdomain.SoftLimitPending,
	}
	if view.QuotaConfigured {
		out.Reached = view.UsagePercent >= float64(limit.Percent)
	}
	// A notified-at from a previous contract period does not suppress the
	// threshold again: a new period lets it fire fresh.
	if limit.NotifiedAt != nil && !limit.NotifiedAt.Before(periodStart) {
		out.Status = orgdomain.SoftLimitNotified
		out.NotifiedAt = limit.NotifiedAt
	}
	out.NeedsNotification = out.Reached && out.Status != orgdomain.SoftLimitNotified
	return out
}

func (s *Service) UpdateSoftLimits(ctx context.Context, id string, percents []int) (*orgdomain.Org, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sanitized := orgdomain.SanitizeThresholds(percents)
	fields := map[string]any{
		"soft_limit_1_percent":     nil,
		"soft_limit_1_notified_at": nil,
		"soft_limit_2_percent":     nil,
		"soft_limit_2_notified_at": nil,
		"updated_at":               s.clock.Now(),
	}
	if len(sanitized) > 0 {
		fields["soft_limit_1_percent"] = sanitized[0]
		if org.SoftLimit1Percent != nil && *org.SoftLimit1Percent == sanitized[0] {
			fields["soft_limit_1_notified_at"] = org.SoftLimit1NotifiedAt
		}
	}
	if len(sanitized) > 1 {
		fields["soft_limit_2_percent"] = sanitized[1]
		if org.SoftLimit2Percent != nil && *org.SoftLimit2Percent == sanitized[1] {
			fields["soft_limit_2_notified_at"] = org.SoftLimit2NotifiedAt
		}
	}

	updated, err := s.update(ctx, org, fields)
	if err != nil {
		return nil, err
	}

	s.recordFact(ctx, auditdomain.KindSoftLimitsUpdated, updated, "soft-limit thresholds updated", map[string]any{
		"thresholds": sanitized,
	})
	return updated, nil
}

func (s *Service) MarkSoftLimitNotified(ctx context.Context, id string, percent int) (*orgdomain.Org, error) {
	view, err := s.ComputeUsageBilling(ctx, id)
	if err != nil {
		return nil, err
	}

	var due *orgdomain.SoftLimitView
	for i := range view.SoftLimits {
		if view.SoftLimits[i].ThresholdPercent == percent {
			due = &view.SoftLimits[i]
			break
		}
	}
	if due == nil {
		return nil, orgdomain.ErrInvalidThreshold
	}
	if !due.NeedsNotification {
		return nil, orgdomain.ErrNotificationStale
	}

	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	fields := map[string]any{"updated_at": now}
	switch {
	case org.SoftLimit1Percent != nil && *org.SoftLimit1Percent == percent:
		fields["soft_limit_1_notified_at"] = now
	case org.SoftLimit2Percent != nil && *org.SoftLimit2Percent == percent:
		fields["soft_limit_2_notified_at"] = now
	default:
		return nil, orgdomain.ErrInvalidThreshold
	}

	updated, err := s.update(ctx, org, fields)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSoftLimitReached(percent)
	s.recordFact(ctx, auditdomain.KindSoftLimitReached, updated, "usage crossed soft-limit threshold", map[string]any{
		"threshold_percent": percent,
		"usage_percent":     view.UsagePercent,
		"used_minutes":      view.UsedMinutes,
		"allotted_minutes":  view.AllottedMinutes,
		"period_start_at":   view.PeriodStartAt,
	})
	return updated, nil
}

func (s *Service) update(ctx context.Context, org *orgdomain.Org, fields map[string]any) (*orgdomain.Org, error) {
	if err := s.orgs.Update(ctx, org.ID.String(), fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, org.ID.String())
}

func (s *Service) recordFact(ctx context.Context, kind string, org *orgdomain.Org, message string, metadata map[string]any) {
	orgID := org.ID
	err := s.auditSvc.Record(ctx, kind,
		auditdomain.Actor{Type: "system"},
		auditdomain.Subject{Type: "organization", ID: org.ID.String(), OrgID: &orgID},
		message, metadata,
	)
	if err != nil {
		s.log.Warn("audit fact not recorded", zap.String("kind", kind), zap.Error(err))
	}
}

func applyThresholds(org *orgdomain.Org, sanitized []int) {
	if len(sanitized) > 0 {
		org.SoftLimit1Percent = &sanitized[0]
	}
	if len(sanitized) > 1 {
		org.SoftLimit2Percent = &sanitized[1]
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, orgdomain.ErrInvalidOrg
	}
	return id, nil
}

func max64(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}
