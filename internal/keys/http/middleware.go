package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/pacharanero/checktick/internal/errors"
	"github.com/pacharanero/checktick/internal/httputil"
)

// UserIdentityMiddleware resolves the caller's identity from the X-User-ID
// header set by the upstream authentication proxy. The survey application in
// front of this service authenticates the user; this subsystem only needs a
// stable identity to scope unlock sessions and audit events.
//
// Error handling:
//   - Missing header → 401 Unauthorized
//   - Malformed UUID → 401 Unauthorized
func UserIdentityMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			logger.Debug("identity failed: missing X-User-ID header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		userID, err := uuid.Parse(header)
		if err != nil {
			logger.Debug("identity failed: malformed X-User-ID header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}
