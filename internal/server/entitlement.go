package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResolveEntitlement answers whether the user may start a simulation right
// now. A due staged timezone is promoted first so the decision is computed
// in the zone that is actually in effect.
func (s *Server) ResolveEntitlement(c *gin.Context) {
	id := c.Param("id")

	decision, err := s.entitlements.Resolve(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if decision.TimezonePromotionDue {
		if _, err := s.accounts.PromoteTimezone(c.Request.Context(), id); err != nil {
			AbortWithError(c, err)
			return
		}
		if decision, err = s.entitlements.Resolve(c.Request.Context(), id); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": decision})
}

type stageTimezoneRequest struct {
	Timezone string `json:"timezone" binding:"required"`
}

// StageTimezone records a timezone change that takes effect at the user's
// next monthly renewal.
func (s *Server) StageTimezone(c *gin.Context) {
	var req stageTimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	profile, err := s.accounts.StageTimezone(c.Request.Context(), c.Param("id"), req.Timezone)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

// PromoteTimezone applies a staged timezone change once it is due.
func (s *Server) PromoteTimezone(c *gin.Context) {
	profile, err := s.accounts.PromoteTimezone(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

type grantBonusRequest struct {
	Seconds int64  `json:"seconds" binding:"required"`
	ActorID string `json:"actor_id"`
}

// GrantBonus adds manual bonus seconds on top of the user's daily limit.
func (s *Server) GrantBonus(c *gin.Context) {
	var req grantBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	profile, err := s.accounts.GrantBonusSeconds(c.Request.Context(), c.Param("id"), req.Seconds, req.ActorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}
