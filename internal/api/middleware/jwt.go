package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
)

const (
	CtxIdentity = "identity"
	CtxUserID   = "user_id"
	CtxRole     = "role"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// JWTConfig describes the HS256 tokens issued by the identity provider.
type JWTConfig struct {
	Secret   string
	Issuer   string // optional
	Audience string // optional
}

// Claims carries the platform identity. The user id is in "sub".
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// ParseIdentity validates raw and returns the identity it asserts.
func (cfg JWTConfig) ParseIdentity(raw string) (models.Identity, error) {
	if raw == "" {
		return models.Identity{}, ErrMissingToken
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil || tok == nil || !tok.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return models.Identity{}, ErrInvalidToken
	}

	role := models.PlatformRole(strings.ToLower(strings.TrimSpace(claims.Role)))
	if !slices.Contains(platformRoles, role) {
		role = models.PlatformCandidate
	}
	return models.Identity{
		UserID:      claims.Subject,
		DisplayName: strings.TrimSpace(claims.Name),
		Role:        role,
	}, nil
}

var platformRoles = []models.PlatformRole{
	models.PlatformAdmin,
	models.PlatformManager,
	models.PlatformEmployer,
	models.PlatformInterviewer,
	models.PlatformCandidate,
}

// bearer reads the token from the Authorization header, or from the
// access_token query parameter for websocket upgrades that cannot set headers.
func bearer(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(c.Query("access_token"))
}

func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "JWT_SECRET is not set",
			})
			return
		}

		id, err := cfg.ParseIdentity(bearer(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: err.Error(),
			})
			return
		}

		c.Set(CtxIdentity, id)
		c.Set(CtxUserID, id.UserID)
		c.Set(CtxRole, string(id.Role))
		c.Next()
	}
}

// IdentityFrom returns the identity set by JWTAuth.
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok && id.UserID != ""
}
