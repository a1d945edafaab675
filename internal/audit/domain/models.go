// Package domain defines immutable audit facts. The engine only produces
// facts; storage and retention are the collaborator's concern.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Fact kinds emitted by the engine's state-changing paths.
const (
	KindOrgCreated        = "org_created"
	KindOrgUpdated        = "org_updated"
	KindSoftLimitReached  = "soft_limit_reached"
	KindSoftLimitsUpdated = "soft_limits_updated"
	KindTimezonePromoted  = "timezone_promoted"
	KindBonusGranted      = "bonus_granted"
	KindSimulationDenied  = "simulation_denied"
	KindJoinApproved      = "join_approved"
)

// Fact is an immutable record of one state transition: what changed, who
// caused it, and why. It exists so "why was this user locked on date X" can
// be answered later.
type Fact struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      *snowflake.ID     `gorm:"index" json:"org_id,omitempty"`
	Kind       string            `gorm:"type:text;not null;index" json:"kind"`
	ActorType  string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID    string            `gorm:"type:text" json:"actor_id,omitempty"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   string            `gorm:"type:text" json:"target_id,omitempty"`
	Message    string            `gorm:"type:text;not null" json:"message"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	OccurredAt time.Time         `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Fact) TableName() string { return "audit_facts" }

// Actor describes who caused a transition.
type Actor struct {
	Type string
	ID   string
}

// Subject describes what the transition applied to.
type Subject struct {
	Type  string
	ID    string
	OrgID *snowflake.ID
}

// Emit constructs a fact. Pure: no clock or id generator is consulted, both
// arrive as arguments, so two calls with the same inputs build the same fact.
func Emit(id snowflake.ID, kind string, actor Actor, subject Subject, message string, metadata map[string]any, at time.Time) Fact {
	fact := Fact{
		ID:         id,
		OrgID:      subject.OrgID,
		Kind:       kind,
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		TargetType: subject.Type,
		TargetID:   subject.ID,
		Message:    message,
		OccurredAt: at.UTC(),
		CreatedAt:  at.UTC(),
	}
	if len(metadata) > 0 {
		payload := make(datatypes.JSONMap, len(metadata))
		for key, value := range metadata {
			if key == "" {
				continue
			}
			payload[key] = value
		}
		fact.Metadata = payload
	}
	return fact
}
