package domain

import (
	"context"
	"errors"
	"time"
)

type CreateOrgRequest struct {
	Name                   string    `json:"name"`
	Timezone               string    `json:"timezone"`
	DailySecondsQuota      int64     `json:"daily_seconds_quota"`
	PerUserDailyCap        int64     `json:"per_user_daily_cap"`
	ContractSignedAt       time.Time `json:"contract_signed_at"`
	MonthlyMinutesAllotted int64     `json:"monthly_minutes_allotted"`
	RenewalTotalCents      int64     `json:"renewal_total_cents"`
	SoftLimitPercents      []int     `json:"soft_limit_percents"`
}

type Service interface {
	Create(ctx context.Context, req CreateOrgRequest) (*Org, error)
	Get(ctx context.Context, id string) (*Org, error)
	// ComputeUsageBilling resolves the org's current annual contract period,
	// utilization against allotted minutes, and per-threshold soft-limit
	// state. It performs no writes.
	ComputeUsageBilling(ctx context.Context, id string) (*UsageBillingView, error)
	// UpdateSoftLimits replaces the configured thresholds after sanitizing
	// them; notified-at bookkeeping for removed thresholds is discarded.
	UpdateSoftLimits(ctx context.Context, id string, percents []int) (*Org, error)
	// MarkSoftLimitNotified stamps a threshold as notified for the current
	// contract period and emits the notification fact. It refuses to stamp a
	// threshold that is not currently due, keeping notification idempotent
	// per threshold per period.
	MarkSoftLimitNotified(ctx context.Context, id string, percent int) (*Org, error)
}

var (
	ErrInvalidOrg       = errors.New("invalid_organization")
	ErrOrgNotFound      = errors.New("organization_not_found")
	ErrInvalidThreshold = errors.New("invalid_threshold")
	ErrNotificationStale = errors.New("notification_not_due")
)
