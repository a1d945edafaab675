package domain

import (
	"fmt"
	"time"

	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	"github.com/voxpractice/cadence/internal/calendar"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
)

// ResolveInput is one consistent snapshot of everything the decision needs.
// OrgRawSecondsToday is the org-wide aggregate; callers compute it once per
// request, not per user.
type ResolveInput struct {
	Profile             accountdomain.Profile
	Tier                *tierdomain.Tier
	Org                 *orgdomain.Org
	Location            *time.Location
	RawSecondsToday     int64
	RawSecondsThisMonth int64
	OrgRawSecondsToday  int64
	Now                 time.Time
}

// Resolve merges tier limits, organization quotas, per-user caps, and manual
// bonus seconds into a single decision. It is deterministic, performs no
// I/O, and never mutates its input; the staged-timezone promotion it may
// report is applied by the caller.
func Resolve(in ResolveInput) (Decision, error) {
	if in.Tier == nil {
		return Decision{}, ErrMissingTier
	}

	profile := in.Profile
	decision := Decision{
		BilledSecondsToday:     usagedomain.BilledSeconds(in.RawSecondsToday),
		BilledSecondsThisMonth: usagedomain.BilledSeconds(in.RawSecondsThisMonth),
		TimezonePromotionDue:   profile.DueForPromotion(in.Now),
	}

	renewal, err := calendar.RollAnchorForward(profile.PlanAnchorAt, in.Now, 1)
	if err != nil {
		return Decision{}, err
	}
	decision.NextRenewalAt = renewal

	_, dayEnd := calendar.DayBounds(in.Now, in.Location)
	decision.NextDailyResetLabel = fmt.Sprintf("Resets %s at midnight (%s)",
		dayEnd.In(in.Location).Format("Jan 2"), profile.Timezone)

	// An enterprise account without its organization cannot be priced or
	// capped; it is treated as disabled rather than defaulting open.
	orphaned := profile.IsEnterprise() && in.Org == nil

	decision.DailySecondsRemaining = dailyRemaining(in)

	switch {
	case profile.IsDisabled() || orphaned:
		decision.LockCode = LockCodeAccountDisabled
	case orgQuotaExhausted(in):
		decision.LockCode = LockCodeOrgQuotaExhausted
	case decision.DailySecondsRemaining != nil && *decision.DailySecondsRemaining == 0:
		decision.LockCode = LockCodeDailyLimitReached
	}

	if decision.LockCode == "" {
		decision.CanStartSimulation = true
	} else {
		message := LockMessage(decision.LockCode)
		decision.LockReason = &message
	}
	return decision, nil
}

// dailyRemaining returns nil for a truly unlimited account: an unlimited
// tier with no organization per-user cap. An org cap always binds an
// unlimited tier when present.
func dailyRemaining(in ResolveInput) *int64 {
	var limits []int64
	if in.Tier.DailySecondsLimit != nil {
		limits = append(limits, *in.Tier.DailySecondsLimit)
	}
	if in.Profile.IsEnterprise() && in.Org != nil && in.Org.PerUserDailyCap > 0 {
		limits = append(limits, in.Org.PerUserDailyCap)
	}
	if len(limits) == 0 {
		return nil
	}

	limit := limits[0]
	for _, l := range limits[1:] {
		if l < limit {
			limit = l
		}
	}

	// Bonus seconds raise the effective limit; they are consumed before the
	// hard cap counts as exhausted.
	remaining := limit + in.Profile.ManualBonusSeconds - usagedomain.BilledSeconds(in.RawSecondsToday)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// orgQuotaExhausted checks the organization-wide daily quota. A quota of
// zero means the org has not configured one, mirroring how zero allotted
// minutes reads as "quota not configured" on the billing side.
func orgQuotaExhausted(in ResolveInput) bool {
	if !in.Profile.IsEnterprise() || in.Org == nil || in.Org.DailySecondsQuota <= 0 {
		return false
	}
	quota := in.Org.DailySecondsQuota + in.Org.ManualBonusSeconds
	return usagedomain.BilledSeconds(in.OrgRawSecondsToday) >= quota
}
