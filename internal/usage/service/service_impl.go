package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxpractice/cadence/internal/clock"
	obsmetrics "github.com/voxpractice/cadence/internal/observability/metrics"
	"github.com/voxpractice/cadence/internal/ratelimit"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	"github.com/voxpractice/cadence/pkg/db/option"
	"github.com/voxpractice/cadence/pkg/db/pagination"
	"github.com/voxpractice/cadence/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ingestLockTTL = 5 * time.Second

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Locker  *ratelimit.Locker   `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	locker  *ratelimit.Locker
	metrics *obsmetrics.Metrics

	sessions repository.Repository[usagedomain.SessionRecord]
	scores   repository.Repository[usagedomain.SimulationScore]
}

func NewService(p ServiceParam) usagedomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		locker:  p.Locker,
		metrics: p.Metrics,

		sessions: repository.ProvideStore[usagedomain.SessionRecord](p.DB),
		scores:   repository.ProvideStore[usagedomain.SimulationScore](p.DB),
	}
}

func (s *Service) RecordSession(ctx context.Context, req usagedomain.RecordSessionRequest) (*usagedomain.SessionRecord, error) {
	userID, err := parseID(req.UserID, usagedomain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	if req.StartedAt.IsZero() {
		return nil, usagedomain.ErrInvalidStartedAt
	}

	var orgID *snowflake.ID
	if strings.TrimSpace(req.OrgID) != "" {
		parsed, err := parseID(req.OrgID, usagedomain.ErrInvalidOrganization)
		if err != nil {
			return nil, err
		}
		orgID = &parsed
	}

	// Serialize writes per user so a concurrent entitlement check cannot run
	// against a snapshot that is missing this session.
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, "cadence:ingest:user:"+userID.String(), ingestLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, usagedomain.ErrIngestBusy
		}
		defer func() {
			_ = s.locker.Release(ctx, "cadence:ingest:user:"+userID.String(), token)
		}()
	}

	idempotencyKey := strings.TrimSpace(req.IdempotencyKey)
	if idempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, userID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.metrics.IncSessionIngested("deduplicated")
			return existing, nil
		}
	}

	now := s.clock.Now()
	endedAt := req.EndedAt
	if endedAt.IsZero() {
		endedAt = req.StartedAt
	}

	record := &usagedomain.SessionRecord{
		ID:                 s.genID.Generate(),
		UserID:             userID,
		OrgID:              orgID,
		RoleCode:           strings.TrimSpace(req.RoleCode),
		ScenarioCode:       strings.TrimSpace(req.ScenarioCode),
		StartedAt:          req.StartedAt.UTC(),
		EndedAt:            endedAt.UTC(),
		RawDurationSeconds: usagedomain.ClampRawSeconds(req.RawDurationSeconds),
		IdempotencyKey:     idempotencyKey,
		CreatedAt:          now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	db := s.db.WithContext(ctx)
	if idempotencyKey != "" {
		db = db.Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "user_id"}, {Name: "idempotency_key"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "idempotency_key IS NOT NULL AND idempotency_key <> ''"}}},
			DoNothing:   true,
		})
	}
	result := db.Create(record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 && idempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, userID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.metrics.IncSessionIngested("deduplicated")
			return existing, nil
		}
	}

	s.metrics.IncSessionIngested("accepted")
	return record, nil
}

func (s *Service) RecordScore(ctx context.Context, req usagedomain.RecordScoreRequest) (*usagedomain.SimulationScore, error) {
	userID, err := parseID(req.UserID, usagedomain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	sessionID, err := parseID(req.SessionID, usagedomain.ErrInvalidSession)
	if err != nil {
		return nil, err
	}

	score := &usagedomain.SimulationScore{
		ID:           s.genID.Generate(),
		UserID:       userID,
		SessionID:    sessionID,
		RoleCode:     strings.TrimSpace(req.RoleCode),
		ScenarioCode: strings.TrimSpace(req.ScenarioCode),
		OverallScore: req.OverallScore,
		StartedAt:    req.StartedAt.UTC(),
		EndedAt:      req.EndedAt.UTC(),
		CreatedAt:    s.clock.Now(),
	}
	if req.Breakdown != nil {
		score.Breakdown = datatypes.JSONMap(req.Breakdown)
	}

	if err := s.scores.Create(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

func (s *Service) List(ctx context.Context, req usagedomain.ListSessionsRequest) (usagedomain.ListSessionsResponse, error) {
	filter := &usagedomain.SessionRecord{}
	if strings.TrimSpace(req.UserID) != "" {
		userID, err := parseID(req.UserID, usagedomain.ErrInvalidUser)
		if err != nil {
			return usagedomain.ListSessionsResponse{}, err
		}
		filter.UserID = userID
	}
	if strings.TrimSpace(req.OrgID) != "" {
		orgID, err := parseID(req.OrgID, usagedomain.ErrInvalidOrganization)
		if err != nil {
			return usagedomain.ListSessionsResponse{}, err
		}
		filter.OrgID = &orgID
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.sessions.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.OrderByNewest(),
	)
	if err != nil {
		return usagedomain.ListSessionsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *usagedomain.SessionRecord) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]usagedomain.SessionRecord, 0, len(items))
	for _, item := range items {
		if item != nil {
			records = append(records, *item)
		}
	}

	resp := usagedomain.ListSessionsResponse{Sessions: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// UserRawSeconds sums clamped raw durations of the user's sessions whose
// StartedAt falls in [start, end).
func (s *Service) UserRawSeconds(ctx context.Context, userID snowflake.ID, start, end time.Time) (int64, error) {
	return s.sumRawSeconds(ctx, "user_id = ?", userID, start, end)
}

// OrgRawSeconds sums clamped raw durations across every user of an
// organization whose StartedAt falls in [start, end). Callers needing the
// org-wide total should compute it once per request, not once per user.
func (s *Service) OrgRawSeconds(ctx context.Context, orgID snowflake.ID, start, end time.Time) (int64, error) {
	return s.sumRawSeconds(ctx, "org_id = ?", orgID, start, end)
}

func (s *Service) sumRawSeconds(ctx context.Context, ownerCond string, ownerID snowflake.ID, start, end time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&usagedomain.SessionRecord{}).
		Where(ownerCond, ownerID).
		Where("started_at >= ? AND started_at < ?", start.UTC(), end.UTC()).
		Where("raw_duration_seconds > 0").
		Select("COALESCE(SUM(raw_duration_seconds), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) findByIdempotencyKey(ctx context.Context, userID snowflake.ID, key string) (*usagedomain.SessionRecord, error) {
	return s.sessions.FindOne(ctx, &usagedomain.SessionRecord{
		UserID:         userID,
		IdempotencyKey: key,
	})
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
