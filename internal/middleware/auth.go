package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/pet-casino/pkg/tokenpkg"
	"github.com/go-petr/pet-casino/pkg/web"
	"github.com/rs/zerolog"
)

// Authorization constants.
const (
	AuthHeaderKey  = "authorization"
	AuthTypeBearer = "bearer"
	AuthPayloadKey = "authorization_payload"
)

// Authorization errors.
var (
	ErrAuthHeaderNotFound  = errors.New("authorization header is not provided")
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
)

// AddAuthorization signs a token for the account and sets it on the request.
func AddAuthorization(r *http.Request, maker tokenpkg.Maker, authType string, accountID int64, duration time.Duration) error {
	token, _, err := maker.CreateToken(accountID, duration)
	if err != nil {
		return err
	}

	r.Header.Set(AuthHeaderKey, fmt.Sprintf("%s %s", authType, token))

	return nil
}

// AuthMiddleware verifies the bearer token and stores its payload in the gin context.
func AuthMiddleware(maker tokenpkg.Maker) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := zerolog.Ctx(c.Request.Context())

		header := c.GetHeader(AuthHeaderKey)
		if len(header) == 0 {
			l.Info().Err(ErrAuthHeaderNotFound).Send()
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))

			return
		}

		fields := strings.Fields(header)
		if len(fields) < 2 {
			l.Info().Err(ErrBadAuthHeaderFormat).Send()
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))

			return
		}

		if strings.ToLower(fields[0]) != AuthTypeBearer {
			l.Info().Err(ErrUnsupportedAuthType).Str("type", fields[0]).Send()
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))

			return
		}

		payload, err := maker.VerifyToken(fields[1])
		if err != nil {
			l.Info().Err(err).Send()
			c.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))

			return
		}

		c.Set(AuthPayloadKey, payload)
		c.Next()
	}
}

// AccountID returns the authenticated account id set by AuthMiddleware.
func AccountID(c *gin.Context) int64 {
	return c.MustGet(AuthPayloadKey).(*tokenpkg.Payload).AccountID
}
