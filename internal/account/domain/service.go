package domain

import (
	"context"
	"errors"
	"time"
)

type CreateProfileRequest struct {
	TierCode     string    `json:"tier_code"`
	AccountType  string    `json:"account_type"`
	OrgID        string    `json:"org_id"`
	Timezone     string    `json:"timezone"`
	PlanAnchorAt time.Time `json:"plan_anchor_at"`
}

type Service interface {
	Create(ctx context.Context, req CreateProfileRequest) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	// StageTimezone validates and stages a zone change effective at the
	// user's next monthly renewal.
	StageTimezone(ctx context.Context, id string, timezone string) (*Profile, error)
	// PromoteTimezone applies a due staged zone. It is explicit so the pure
	// resolver never mutates; callers invoke it when the resolver reports a
	// promotion is due.
	PromoteTimezone(ctx context.Context, id string) (*Profile, error)
	GrantBonusSeconds(ctx context.Context, id string, seconds int64, actorID string) (*Profile, error)
}

var (
	ErrInvalidProfile     = errors.New("invalid_profile")
	ErrProfileNotFound    = errors.New("profile_not_found")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrInvalidBonus       = errors.New("invalid_bonus_seconds")
	ErrPromotionNotDue    = errors.New("timezone_promotion_not_due")
)
