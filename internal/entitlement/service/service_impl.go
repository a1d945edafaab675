package service

import (
	"context"
	"errors"

	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/calendar"
	"github.com/voxpractice/cadence/internal/clock"
	entitlementdomain "github.com/voxpractice/cadence/internal/entitlement/domain"
	obsmetrics "github.com/voxpractice/cadence/internal/observability/metrics"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	AccountSvc accountdomain.Service
	TierSvc    tierdomain.Service
	OrgSvc     orgdomain.Service
	UsageSvc   usagedomain.Service
	AuditSvc   auditdomain.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	accountSvc accountdomain.Service
	tierSvc    tierdomain.Service
	orgSvc     orgdomain.Service
	usageSvc   usagedomain.Service
	auditSvc   auditdomain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p ServiceParam) entitlementdomain.Service {
	return &Service{
		log:        p.Log.Named("entitlement.service"),
		clock:      p.Clock,
		accountSvc: p.AccountSvc,
		tierSvc:    p.TierSvc,
		orgSvc:     p.OrgSvc,
		usageSvc:   p.UsageSvc,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

func (s *Service) Resolve(ctx context.Context, userID string) (*entitlementdomain.Decision, error) {
	profile, err := s.accountSvc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Unknown tier fails closed: deny rather than default to unlimited.
	tier, err := s.tierSvc.GetByCode(ctx, profile.TierCode)
	if err != nil {
		return nil, err
	}

	// Always the active zone; a staged pending zone is invisible here until
	// the caller promotes it at the cycle boundary.
	loc, err := calendar.Location(profile.Timezone)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	input := entitlementdomain.ResolveInput{
		Profile:  *profile,
		Tier:     tier,
		Location: loc,
		Now:      now,
	}

	dayStart, dayEnd := calendar.DayBounds(now, loc)
	if input.RawSecondsToday, err = s.usageSvc.UserRawSeconds(ctx, profile.ID, dayStart, dayEnd); err != nil {
		return nil, err
	}
	monthStart, monthEnd := calendar.MonthBounds(now, loc)
	if input.RawSecondsThisMonth, err = s.usageSvc.UserRawSeconds(ctx, profile.ID, monthStart, monthEnd); err != nil {
		return nil, err
	}

	if profile.IsEnterprise() && profile.OrgID != nil {
		org, err := s.orgSvc.Get(ctx, profile.OrgID.String())
		switch {
		case errors.Is(err, orgdomain.ErrOrgNotFound):
			// Left nil: resolver treats the orphaned account as disabled.
		case err != nil:
			return nil, err
		default:
			input.Org = org
			orgLoc, err := calendar.Location(org.Timezone)
			if err != nil {
				return nil, err
			}
			orgDayStart, orgDayEnd := calendar.DayBounds(now, orgLoc)
			if input.OrgRawSecondsToday, err = s.usageSvc.OrgRawSeconds(ctx, org.ID, orgDayStart, orgDayEnd); err != nil {
				return nil, err
			}
		}
	}

	decision, err := entitlementdomain.Resolve(input)
	if err != nil {
		return nil, err
	}

	if !decision.CanStartSimulation {
		s.metrics.IncEntitlementDenial(decision.LockCode)
		s.recordDenial(ctx, profile, &decision)
	}
	return &decision, nil
}

func (s *Service) recordDenial(ctx context.Context, profile *accountdomain.Profile, decision *entitlementdomain.Decision) {
	err := s.auditSvc.Record(ctx, auditdomain.KindSimulationDenied,
		auditdomain.Actor{Type: "system"},
		auditdomain.Subject{Type: "profile", ID: profile.ID.String(), OrgID: profile.OrgID},
		"simulation start denied",
		map[string]any{
			"lock_code":            decision.LockCode,
			"billed_seconds_today": decision.BilledSecondsToday,
		},
	)
	if err != nil {
		s.log.Warn("audit fact not recorded",
			zap.String("kind", auditdomain.KindSimulationDenied),
			zap.Error(err),
		)
	}
}
