// Package domain defines user profiles as the entitlement engine sees them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	AccountTypeIndividual = "individual"
	AccountTypeEnterprise = "enterprise"

	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Profile carries the billing-relevant fields of a user. Timezone changes
// are staged: PendingTimezone only becomes Timezone once the clock crosses
// PendingEffectiveAt (the user's next monthly renewal), never mid-cycle.
type Profile struct {
	ID                 snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID              *snowflake.ID `gorm:"index" json:"org_id,omitempty"`
	TierCode           string        `gorm:"type:text;not null" json:"tier_code"`
	AccountType        string        `gorm:"type:text;not null;default:individual" json:"account_type"`
	Status             string        `gorm:"type:text;not null;default:active" json:"status"`
	Timezone           string        `gorm:"type:text;not null;default:UTC" json:"timezone"`
	PendingTimezone    string        `gorm:"type:text" json:"pending_timezone,omitempty"`
	PendingEffectiveAt *time.Time    `json:"pending_effective_at,omitempty"`
	PlanAnchorAt       time.Time     `gorm:"not null" json:"plan_anchor_at"`
	ManualBonusSeconds int64         `gorm:"not null;default:0" json:"manual_bonus_seconds"`
	CreatedAt          time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time     `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }

func (p Profile) IsEnterprise() bool {
	return p.AccountType == AccountTypeEnterprise
}

func (p Profile) IsDisabled() bool {
	return p.Status == StatusDisabled
}

// DueForPromotion reports whether the staged timezone should be applied.
// Pure; the mutation itself is the caller-driven PromoteTimezone so reading
// entitlements never changes state.
func (p Profile) DueForPromotion(now time.Time) bool {
	if p.PendingTimezone == "" || p.PendingEffectiveAt == nil {
		return false
	}
	return !now.Before(*p.PendingEffectiveAt)
}
