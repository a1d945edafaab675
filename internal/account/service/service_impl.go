package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/calendar"
	"github.com/voxpractice/cadence/internal/clock"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	"github.com/voxpractice/cadence/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	TierSvc  tierdomain.Service
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	tierSvc  tierdomain.Service
	auditSvc auditdomain.Service
	profiles repository.Repository[accountdomain.Profile]
}

func NewService(p ServiceParam) accountdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("account.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		tierSvc:  p.TierSvc,
		auditSvc: p.AuditSvc,
		profiles: repository.ProvideStore[accountdomain.Profile](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req accountdomain.CreateProfileRequest) (*accountdomain.Profile, error) {
	if _, err := s.tierSvc.GetByCode(ctx, req.TierCode); err != nil {
		return nil, err
	}

	accountType := strings.TrimSpace(req.AccountType)
	if accountType == "" {
		accountType = accountdomain.AccountTypeIndividual
	}
	if accountType != accountdomain.AccountTypeIndividual && accountType != accountdomain.AccountTypeEnterprise {
		return nil, accountdomain.ErrInvalidAccountType
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := calendar.Location(timezone); err != nil {
		return nil, err
	}

	var orgID *snowflake.ID
	if strings.TrimSpace(req.OrgID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.OrgID))
		if err != nil || parsed == 0 {
			return nil, accountdomain.ErrInvalidProfile
		}
		orgID = &parsed
	}

	now := s.clock.Now()
	anchor := req.PlanAnchorAt
	if anchor.IsZero() {
		anchor = now
	}

	profile := &accountdomain.Profile{
		ID:           s.genID.Generate(),
		OrgID:        orgID,
		TierCode:     strings.TrimSpace(req.TierCode),
		AccountType:  accountType,
		Status:       accountdomain.StatusActive,
		Timezone:     timezone,
		PlanAnchorAt: anchor.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) Get(ctx context.Context, id string) (*accountdomain.Profile, error) {
	profileID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindOne(ctx, &accountdomain.Profile{ID: profileID})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, accountdomain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Service) StageTimezone(ctx context.Context, id string, timezone string) (*accountdomain.Profile, error) {
	timezone = strings.TrimSpace(timezone)
	if _, err := calendar.Location(timezone); err != nil {
		return nil, err
	}

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if timezone == profile.Timezone {
		// No-op change; clear any stale staging.
		return s.update(ctx, profile, map[string]any{
			"pending_timezone":     "",
			"pending_effective_at": nil,
			"updated_at":           now,
		})
	}

	effectiveAt, err := calendar.RollAnchorForward(profile.PlanAnchorAt, now, 1)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, profile, map[string]any{
		"pending_timezone":     timezone,
		"pending_effective_at": effectiveAt,
		"updated_at":           now,
	})
}

func (s *Service) PromoteTimezone(ctx context.Context, id string) (*accountdomain.Profile, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !profile.DueForPromotion(now) {
		return nil, accountdomain.ErrPromotionNotDue
	}

	previous := profile.Timezone
	updated, err := s.update(ctx, profile, map[string]any{
		"timezone":             profile.PendingTimezone,
		"pending_timezone":     "",
		"pending_effective_at": nil,
		"updated_at":           now,
	})
	if err != nil {
		return nil, err
	}

	s.recordFact(ctx, auditdomain.KindTimezonePromoted, profile, "staged timezone applied at cycle boundary", map[string]any{
		"previous_timezone": previous,
		"timezone":          updated.Timezone,
	})
	return updated, nil
}

func (s *Service) GrantBonusSeconds(ctx context.Context, id string, seconds int64, actorID string) (*accountdomain.Profile, error) {
	if seconds <= 0 {
		return nil, accountdomain.ErrInvalidBonus
	}

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, profile, map[string]any{
		"manual_bonus_seconds": profile.ManualBonusSeconds + seconds,
		"updated_at":           s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.recordFact(ctx, auditdomain.KindBonusGranted, profile, "manual bonus seconds granted", map[string]any{
		"granted_seconds": seconds,
		"total_seconds":   updated.ManualBonusSeconds,
		"granted_by":      actorID,
	})
	return updated, nil
}

func (s *Service) update(ctx context.Context, profile *accountdomain.Profile, fields map[string]any) (*accountdomain.Profile, error) {
	if err := s.profiles.Update(ctx, profile.ID.String(), fields); err != nil {
		return nil, err
	}
	return s.Get(ctx, profile.ID.String())
}

func (s *Service) recordFact(ctx context.Context, kind string, profile *accountdomain.Profile, message string, metadata map[string]any) {
	err := s.auditSvc.Record(ctx, kind,
		auditdomain.Actor{Type: "system"},
		auditdomain.Subject{Type: "profile", ID: profile.ID.String(), OrgID: profile.OrgID},
		message, metadata,
	)
	if err != nil {
		s.log.Warn("audit fact not recorded", zap.String("kind", kind), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, accountdomain.ErrInvalidProfile
	}
	return id, nil
}
