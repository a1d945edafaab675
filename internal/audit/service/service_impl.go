package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/clock"
	"github.com/voxpractice/cadence/pkg/db/option"
	"github.com/voxpractice/cadence/pkg/db/pagination"
	"github.com/voxpractice/cadence/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	facts repository.Repository[auditdomain.Fact]
}

func NewService(p ServiceParam) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		facts: repository.ProvideStore[auditdomain.Fact](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, kind string, actor auditdomain.Actor, subject auditdomain.Subject, message string, metadata map[string]any) error {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return auditdomain.ErrInvalidKind
	}
	if actor.Type == "" {
		actor.Type = "system"
	}
	if subject.Type == "" {
		subject.Type = "unknown"
	}

	fact := auditdomain.Emit(s.genID.Generate(), kind, actor, subject, message, metadata, s.clock.Now())
	if err := s.facts.Create(ctx, &fact); err != nil {
		s.log.Error("record audit fact", zap.String("kind", kind), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListFactsRequest) (auditdomain.ListFactsResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return auditdomain.ListFactsResponse{}, auditdomain.ErrInvalidTimeRange
	}

	filter := &auditdomain.Fact{
		Kind:       strings.TrimSpace(req.Kind),
		TargetType: strings.TrimSpace(req.TargetType),
		TargetID:   strings.TrimSpace(req.TargetID),
	}
	if orgValue := strings.TrimSpace(req.OrgID); orgValue != "" {
		orgID, err := snowflake.ParseString(orgValue)
		if err == nil && orgID != 0 {
			filter.OrgID = &orgID
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	opts := []option.QueryOption{
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  pageSize,
		}),
		option.OrderByNewest(),
	}
	if req.StartAt != nil {
		opts = append(opts, option.Where("occurred_at >= ?", req.StartAt.UTC()))
	}
	if req.EndAt != nil {
		opts = append(opts, option.Where("occurred_at < ?", req.EndAt.UTC()))
	}

	items, err := s.facts.Find(ctx, filter, opts...)
	if err != nil {
		return auditdomain.ListFactsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(fact *auditdomain.Fact) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        fact.ID.String(),
			CreatedAt: fact.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	facts := make([]auditdomain.Fact, 0, len(items))
	for _, item := range items {
		if item != nil {
			facts = append(facts, *item)
		}
	}

	resp := auditdomain.ListFactsResponse{Facts: facts}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}
