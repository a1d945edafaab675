// Package domain defines enterprise organizations, their annual contract
// accounting, and soft-limit notification state.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Org is an enterprise account. It is mutated only through explicit
// administrative patches; the engine reads it and reports which notification
// facts are due, it never flips "reached" state on its own.
type Org struct {
	ID                    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                  string       `gorm:"type:text;not null" json:"name"`
	Timezone              string       `gorm:"type:text;not null;default:UTC" json:"timezone"`
	DailySecondsQuota     int64        `gorm:"not null;default:0" json:"daily_seconds_quota"`
	PerUserDailyCap       int64        `gorm:"not null;default:0" json:"per_user_daily_cap"`
	ManualBonusSeconds    int64        `gorm:"not null;default:0" json:"manual_bonus_seconds"`
	ContractSignedAt      time.Time    `gorm:"not null" json:"contract_signed_at"`
	MonthlyMinutesAllotted int64       `gorm:"not null;default:0" json:"monthly_minutes_allotted"`
	RenewalTotalCents     int64        `gorm:"not null;default:0" json:"renewal_total_cents"`
	SoftLimit1Percent     *int         `gorm:"column:soft_limit_1_percent" json:"soft_limit_1_percent,omitempty"`
	SoftLimit1NotifiedAt  *time.Time   `gorm:"column:soft_limit_1_notified_at" json:"soft_limit_1_notified_at,omitempty"`
	SoftLimit2Percent     *int         `gorm:"column:soft_limit_2_percent" json:"soft_limit_2_percent,omitempty"`
	SoftLimit2NotifiedAt  *time.Time   `gorm:"column:soft_limit_2_notified_at" json:"soft_limit_2_notified_at,omitempty"`
	CreatedAt             time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Org) TableName() string { return "enterprise_orgs" }

// SoftLimitStatus distinguishes "notified in the current contract period"
// from "notified in a past period" at the type level instead of leaving the
// date comparison to every call site.
type SoftLimitStatus string

const (
	SoftLimitNotConfigured SoftLimitStatus = "not_configured"
	SoftLimitPending       SoftLimitStatus = "pending"
	SoftLimitNotified      SoftLimitStatus = "notified"
)

// SoftLimitView is the per-threshold slice of an org usage/billing view.
// The JSON names form the wire contract consumed by dashboard clients.
type SoftLimitView struct {
	ThresholdPercent  int             `json:"thresholdPercent"`
	Reached           bool            `json:"reached"`
	Status            SoftLimitStatus `json:"status"`
	NotifiedAt        *time.Time      `json:"notifiedAt,omitempty"`
	NeedsNotification bool            `json:"needsNotification"`
}

// UsageBillingView is the engine's answer for one org at one instant.
type UsageBillingView struct {
	OrgID           snowflake.ID    `json:"orgId"`
	UsedMinutes     int64           `json:"usedMinutes"`
	AllottedMinutes int64           `json:"allottedMinutes"`
	UsagePercent    float64         `json:"usagePercent"`
	QuotaConfigured bool            `json:"quotaConfigured"`
	PeriodStartAt   time.Time       `json:"periodStartAt"`
	PeriodEndAt     time.Time       `json:"periodEndAt"`
	NextRenewalAt   time.Time       `json:"nextRenewalAt"`
	SoftLimits      []SoftLimitView `json:"softLimits"`
}

// SoftLimits returns the configured thresholds with their notified-at
// values, ascending.
func (o Org) SoftLimits() []SoftLimit {
	var limits []SoftLimit
	if o.SoftLimit1Percent != nil {
		limits = append(limits, SoftLimit{Percent: *o.SoftLimit1Percent, NotifiedAt: o.SoftLimit1NotifiedAt})
	}
	if o.SoftLimit2Percent != nil {
		limits = append(limits, SoftLimit{Percent: *o.SoftLimit2Percent, NotifiedAt: o.SoftLimit2NotifiedAt})
	}
	return limits
}

type SoftLimit struct {
	Percent    int
	NotifiedAt *time.Time
}

// SanitizeThresholds validates administrative threshold input: values
// outside 1-100 are dropped, duplicates collapse, the list is truncated to
// two and sorted ascending.
func SanitizeThresholds(values []int) []int {
	seen := make(map[int]bool, len(values))
	var out []int
	for _, v := range values {
		if v < 1 || v > 100 || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}
