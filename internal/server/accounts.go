package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
)

func (s *Server) CreateProfile(c *gin.Context) {
	var req accountdomain.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	profile, err := s.accounts.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": profile})
}

func (s *Server) GetProfile(c *gin.Context) {
	profile, err := s.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}
