// Package domain defines the entitlement decision: the resolved set of
// remaining time, lock reason, and can-start flag for one user at one
// instant.
package domain

import (
	"errors"
	"time"
)

// Lock reason codes, in priority order. Only the most systemic applicable
// reason is surfaced.
const (
	LockCodeAccountDisabled   = "account_disabled"
	LockCodeOrgQuotaExhausted = "org_quota_exhausted"
	LockCodeDailyLimitReached = "daily_limit_reached"
)

// Human-readable lock messages, suitable for direct display. A legitimate
// lock is never reported as an error.
var lockMessages = map[string]string{
	LockCodeAccountDisabled:   "Your account is disabled. Contact support to restore access.",
	LockCodeOrgQuotaExhausted: "Your organization's daily practice quota has been used up for today.",
	LockCodeDailyLimitReached: "You've reached your daily practice limit. More time unlocks after the next reset.",
}

// LockMessage returns the display string for a lock code.
func LockMessage(code string) string {
	return lockMessages[code]
}

// Decision is the entitlement response. JSON names are the wire contract
// shared with clients that estimate remaining time locally.
type Decision struct {
	DailySecondsRemaining  *int64    `json:"dailySecondsRemaining"`
	BilledSecondsToday     int64     `json:"billedSecondsToday"`
	BilledSecondsThisMonth int64     `json:"billedSecondsThisMonth"`
	NextDailyResetLabel    string    `json:"nextDailyResetLabel"`
	NextRenewalAt          time.Time `json:"nextRenewalAt"`
	CanStartSimulation     bool      `json:"canStartSimulation"`
	LockReason             *string   `json:"lockReason"`

	// LockCode is the stable identifier behind LockReason, for metrics and
	// audit facts rather than display.
	LockCode string `json:"-"`
	// TimezonePromotionDue tells the caller to apply the user's staged
	// timezone transactionally; the resolver itself never mutates.
	TimezonePromotionDue bool `json:"-"`
}

var (
	ErrMissingTier = errors.New("missing_tier")
)
