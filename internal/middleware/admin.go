package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-casino/pkg/web"
	"github.com/rs/zerolog"
)

// AdminKeyHeader carries the operator API key.
const AdminKeyHeader = "X-Admin-Key"

// ErrInvalidAdminKey is returned when the admin key is missing or wrong.
var ErrInvalidAdminKey = errors.New("invalid admin key")

// AdminKey allows the request only when AdminKeyHeader matches key.
// An empty key disables the admin API.
func AdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(AdminKeyHeader)

		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			zerolog.Ctx(c.Request.Context()).Warn().Err(ErrInvalidAdminKey).Str("path", c.Request.URL.Path).Send()
			c.AbortWithStatusJSON(http.StatusForbidden, web.Error(ErrInvalidAdminKey))

			return
		}

		c.Next()
	}
}
