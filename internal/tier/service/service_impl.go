package service

import (
	"context"
	"strings"

	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	"github.com/voxpractice/cadence/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	log   *zap.Logger
	tiers repository.Repository[tierdomain.Tier]
}

func NewService(p ServiceParam) tierdomain.Service {
	return &Service{
		log:   p.Log.Named("tier.service"),
		tiers: repository.ProvideStore[tierdomain.Tier](p.DB),
	}
}

func (s *Service) List(ctx context.Context) ([]tierdomain.Tier, error) {
	items, err := s.tiers.Find(ctx, &tierdomain.Tier{Active: true})
	if err != nil {
		return nil, err
	}
	tiers := make([]tierdomain.Tier, 0, len(items))
	for _, item := range items {
		if item != nil {
			tiers = append(tiers, *item)
		}
	}
	return tiers, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*tierdomain.Tier, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, tierdomain.ErrInvalidCode
	}
	tier, err := s.tiers.FindOne(ctx, &tierdomain.Tier{Code: code})
	if err != nil {
		return nil, err
	}
	if tier == nil || !tier.Active {
		return nil, tierdomain.ErrTierNotFound
	}
	return tier, nil
}
