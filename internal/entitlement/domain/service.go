package domain

import "context"

type Service interface {
	// Resolve loads one consistent snapshot of the user's profile, tier,
	// organization, and aggregated usage, and returns the decision. It
	// fails closed on configuration errors (unknown tier, bad time zone).
	Resolve(ctx context.Context, userID string) (*Decision, error)
}
