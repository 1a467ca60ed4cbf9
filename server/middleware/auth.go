package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/dagflow/errors"
)

// SubjectKey is the Gin context key holding the authenticated subject.
const SubjectKey = "auth_subject"

// TokenValidator checks a bearer token and returns its subject.
type TokenValidator func(token string) (subject string, err error)

// AuthConfig configures the bearer token middleware.
type AuthConfig struct {
	Validate TokenValidator
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
}

// Auth validates Bearer tokens and stores the token subject under
// SubjectKey.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, apperrors.Unauthorized("Authorization header required"))
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abort(c, apperrors.Unauthorized("Invalid authorization header format"))
			return
		}

		subject, err := cfg.Validate(token)
		if err != nil {
			abort(c, apperrors.InvalidToken())
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated subject, or "" when the request was
// not authenticated.
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}
