package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxpractice/cadence/pkg/db/pagination"
)

type RecordSessionRequest struct {
	UserID             string         `json:"user_id"`
	OrgID              string         `json:"org_id"`
	RoleCode           string         `json:"role_code"`
	ScenarioCode       string         `json:"scenario_code"`
	StartedAt          time.Time      `json:"started_at"`
	EndedAt            time.Time      `json:"ended_at"`
	RawDurationSeconds float64        `json:"raw_duration_seconds"`
	IdempotencyKey     string         `json:"idempotency_key"`
	Metadata           map[string]any `json:"metadata"`
}

type RecordScoreRequest struct {
	UserID       string         `json:"user_id"`
	SessionID    string         `json:"session_id"`
	RoleCode     string         `json:"role_code"`
	ScenarioCode string         `json:"scenario_code"`
	OverallScore float64        `json:"overall_score"`
	Breakdown    map[string]any `json:"breakdown"`
	StartedAt    time.Time      `json:"started_at"`
	EndedAt      time.Time      `json:"ended_at"`
}

type ListSessionsRequest struct {
	UserID    string `form:"user_id"`
	OrgID     string `form:"org_id"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListSessionsResponse struct {
	pagination.PageInfo
	Sessions []SessionRecord `json:"sessions"`
}

// Service records sessions and aggregates raw usage per period. Aggregation
// windows are [start, end) instants derived from the owner's own time zone;
// a session is attributed to the day its StartedAt falls in, never split.
type Service interface {
	RecordSession(ctx context.Context, req RecordSessionRequest) (*SessionRecord, error)
	RecordScore(ctx context.Context, req RecordScoreRequest) (*SimulationScore, error)
	List(ctx context.Context, req ListSessionsRequest) (ListSessionsResponse, error)

	UserRawSeconds(ctx context.Context, userID snowflake.ID, start, end time.Time) (int64, error)
	OrgRawSeconds(ctx context.Context, orgID snowflake.ID, start, end time.Time) (int64, error)
}

var (
	ErrInvalidUser           = errors.New("invalid_user")
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrInvalidSession        = errors.New("invalid_session")
	ErrInvalidStartedAt      = errors.New("invalid_started_at")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
	ErrIngestBusy            = errors.New("ingest_busy")
)
