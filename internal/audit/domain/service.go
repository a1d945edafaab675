package domain

import (
	"context"
	"errors"
	"time"

	"github.com/voxpractice/cadence/pkg/db/pagination"
)

type ListFactsRequest struct {
	pagination.Pagination
	Kind       string
	TargetType string
	TargetID   string
	OrgID      string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListFactsResponse struct {
	pagination.PageInfo
	Facts []Fact `json:"facts"`
}

type Service interface {
	// Record builds a fact via Emit and hands it to the storage collaborator.
	Record(ctx context.Context, kind string, actor Actor, subject Subject, message string, metadata map[string]any) error
	List(ctx context.Context, req ListFactsRequest) (ListFactsResponse, error)
}

var (
	ErrInvalidKind      = errors.New("invalid_fact_kind")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
