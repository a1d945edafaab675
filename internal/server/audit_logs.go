package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/pkg/db/pagination"
)

type listAuditFactsRequest struct {
	pagination.Pagination
	Kind       string `form:"kind"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	OrgID      string `form:"org_id"`
	StartAt    string `form:"start_at"`
	EndAt      string `form:"end_at"`
}

func (s *Server) ListAuditFacts(c *gin.Context) {
	var q listAuditFactsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req := auditdomain.ListFactsRequest{
		Pagination: q.Pagination,
		Kind:       q.Kind,
		TargetType: q.TargetType,
		TargetID:   q.TargetID,
		OrgID:      q.OrgID,
	}

	if q.StartAt != "" {
		t, err := time.Parse(time.RFC3339, q.StartAt)
		if err != nil {
			AbortWithError(c, auditdomain.ErrInvalidTimeRange)
			return
		}
		req.StartAt = &t
	}
	if q.EndAt != "" {
		t, err := time.Parse(time.RFC3339, q.EndAt)
		if err != nil {
			AbortWithError(c, auditdomain.ErrInvalidTimeRange)
			return
		}
		req.EndAt = &t
	}

	resp, err := s.audit.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
