package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/voxpractice/cadence/internal/account/domain"
	auditdomain "github.com/voxpractice/cadence/internal/audit/domain"
	"github.com/voxpractice/cadence/internal/calendar"
	orgdomain "github.com/voxpractice/cadence/internal/orgbilling/domain"
	tierdomain "github.com/voxpractice/cadence/internal/tier/domain"
	usagedomain "github.com/voxpractice/cadence/internal/usage/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware converts deferred handler errors into one JSON
// error envelope.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConfigurationError(err):
		// Fail closed: a misconfigured tier or time zone denies rather than
		// guesses, and the client sees that usage data is unavailable.
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Code:    err.Error(),
			Message: "configuration error",
		}
	case errors.Is(err, usagedomain.ErrIngestBusy):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    "ingest_busy",
			Message: "another session is being recorded for this user",
		}
	case errors.Is(err, orgdomain.ErrNotificationStale):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    "notification_not_due",
			Message: "threshold already notified for this contract period",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, usagedomain.ErrInvalidUser),
		errors.Is(err, usagedomain.ErrInvalidOrganization),
		errors.Is(err, usagedomain.ErrInvalidSession),
		errors.Is(err, usagedomain.ErrInvalidStartedAt),
		errors.Is(err, usagedomain.ErrInvalidIdempotencyKey),
		errors.Is(err, accountdomain.ErrInvalidProfile),
		errors.Is(err, accountdomain.ErrInvalidAccountType),
		errors.Is(err, accountdomain.ErrInvalidBonus),
		errors.Is(err, accountdomain.ErrPromotionNotDue),
		errors.Is(err, orgdomain.ErrInvalidOrg),
		errors.Is(err, orgdomain.ErrInvalidThreshold),
		errors.Is(err, auditdomain.ErrInvalidKind),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, tierdomain.ErrInvalidCode):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, accountdomain.ErrProfileNotFound),
		errors.Is(err, orgdomain.ErrOrgNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConfigurationError(err error) bool {
	switch {
	case errors.Is(err, calendar.ErrUnknownTimezone),
		errors.Is(err, calendar.ErrInvalidStep),
		errors.Is(err, tierdomain.ErrTierNotFound):
		return true
	default:
		return false
	}
}
