package domain

import (
	"context"
	"errors"
)

type Service interface {
	List(ctx context.Context) ([]Tier, error)
	// GetByCode resolves a tier or fails with ErrTierNotFound. Callers must
	// fail closed on the error: an unknown tier denies simulation start, it
	// never defaults to unlimited.
	GetByCode(ctx context.Context, code string) (*Tier, error)
}

var (
	ErrInvalidCode  = errors.New("invalid_tier_code")
	ErrTierNotFound = errors.New("tier_not_found")
)
