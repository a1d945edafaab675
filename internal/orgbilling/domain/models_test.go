package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeThresholds(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{"nil", nil, nil},
		{"out of range dropped", []int{0, -10, 150, 101}, nil},
		{"duplicates collapse", []int{80, 80, 95}, []int{80, 95}},
		{"sorted ascending", []int{95, 80}, []int{80, 95}},
		{"truncated to two", []int{50, 80, 95}, []int{50, 80}},
		{"boundaries kept", []int{1, 100}, []int{1, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeThresholds(tt.input))
		})
	}
}

func TestSoftLimits_Accessor(t *testing.T) {
	assert.Empty(t, Org{}.SoftLimits())

	p80, p95 := 80, 95
	notified := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	org := Org{
		SoftLimit1Percent:    &p80,
		SoftLimit1NotifiedAt: &notified,
		SoftLimit2Percent:    &p95,
	}

	limits := org.SoftLimits()
	assert.Equal(t, []SoftLimit{
		{Percent: 80, NotifiedAt: &notified},
		{Percent: 95},
	}, limits)
}
