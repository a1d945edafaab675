package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
)

func (s *Server) CreateOrg(c *gin.Context) {
	var req orgdomain.CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	org, err := s.orgs.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": org})
}

func (s *Server) GetOrg(c *gin.Context) {
	org, err := s.orgs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}

// OrgUsageBilling reports contract-period utilization and soft-limit state.
// It is a pure read; notification stamping is a separate explicit call.
func (s *Server) OrgUsageBilling(c *gin.Context) {
	view, err := s.orgs.ComputeUsageBilling(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

type updateSoftLimitsRequest struct {
	Percents []int `json:"percents"`
}

func (s *Server) UpdateSoftLimits(c *gin.Context) {
	var req updateSoftLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	org, err := s.orgs.UpdateSoftLimits(c.Request.Context(), c.Param("id"), req.Percents)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}

func (s *Server) MarkSoftLimitNotified(c *gin.Context) {
	percent, err := strconv.Atoi(c.Param("percent"))
	if err != nil {
		AbortWithError(c, orgdomain.ErrInvalidThreshold)
		return
	}

	org, err := s.orgs.MarkSoftLimitNotified(c.Request.Context(), c.Param("id"), percent)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}
