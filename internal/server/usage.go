package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
)

// RecordSession ingests one finished practice session. Retries with the
// same idempotency key return the stored record instead of double counting.
func (s *Server) RecordSession(c *gin.Context) {
	var req usagedomain.RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.usage.RecordSession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

func (s *Server) ListSessions(c *gin.Context) {
	var req usagedomain.ListSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.usage.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordScore(c *gin.Context) {
	var req usagedomain.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	score, err := s.usage.RecordScore(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": score})
}
