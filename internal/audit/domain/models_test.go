package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestEmit_Deterministic(t *testing.T) {
	id := snowflake.ID(42)
	at := time.Date(2026, 4, 1, 10, 30, 0, 0, time.UTC)
	actor := Actor{Type: "admin", ID: "7"}
	subject := Subject{Type: "profile", ID: "99"}
	metadata := map[string]any{"granted_seconds": int64(300)}

	first := Emit(id, KindBonusGranted, actor, subject, "manual bonus seconds granted", metadata, at)
	second := Emit(id, KindBonusGranted, actor, subject, "manual bonus seconds granted", metadata, at)

	assert.Equal(t, first, second)
	assert.Equal(t, KindBonusGranted, first.Kind)
	assert.Equal(t, "admin", first.ActorType)
	assert.Equal(t, "profile", first.TargetType)
	assert.Equal(t, at, first.OccurredAt)
}

func TestEmit_NormalizesMetadata(t *testing.T) {
	fact := Emit(1, KindOrgUpdated, Actor{Type: "system"}, Subject{Type: "organization"}, "m",
		map[string]any{"": "dropped", "kept": 1}, time.Now())

	assert.Len(t, fact.Metadata, 1)
	assert.Contains(t, fact.Metadata, "kept")

	empty := Emit(1, KindOrgUpdated, Actor{Type: "system"}, Subject{Type: "organization"}, "m", nil, time.Now())
	assert.Nil(t, empty.Metadata)
}

func TestEmit_CarriesSubjectOrg(t *testing.T) {
	orgID := snowflake.ID(5)
	fact := Emit(1, KindSoftLimitReached, Actor{Type: "system"},
		Subject{Type: "organization", ID: "5", OrgID: &orgID}, "m", nil,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("JST", 9*3600)))

	assert.Equal(t, &orgID, fact.OrgID)
	assert.Equal(t, time.UTC, fact.OccurredAt.Location())
}
