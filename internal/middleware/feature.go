package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
	"github.com/noah-isme/sma-records-api/pkg/response"
)

// RequireFeature answers FEATURE_DISABLED for every route of a group whose
// feature flag is off.
func RequireFeature(name string, enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.WithDetails(appErrors.ErrDisabled, name+" are disabled", map[string]interface{}{
				"feature": name,
			}))
			c.Abort()
			return
		}
		c.Next()
	}
}
