package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/response"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyEmail  = "email"
	ContextKeyRole   = "role"

	RoleGuest = "guest"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the identity carried by an access token
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// AuthConfig configures bearer-token verification
type AuthConfig struct {
	Secret string
	// Issuer, when set, must match the token's iss claim
	Issuer string
}

// ParseToken verifies an HMAC-signed access token and extracts its claims
func ParseToken(cfg AuthConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, _ := mc["user_id"].(string)
	if userID == "" {
		userID, _ = mc["sub"].(string)
	}
	if userID == "" {
		return nil, ErrInvalidToken
	}

	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)
	if role == "" {
		role = RoleGuest
	}

	return &Claims{UserID: userID, Email: email, Role: role}, nil
}

// Auth rejects requests without a valid bearer token and stores the
// caller's identity in the gin context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorBody("UNAUTHORIZED", ErrMissingToken.Error()))
			return
		}

		claims, err := ParseToken(cfg, tokenString)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorBody(code, err.Error()))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a bearer token is present and
// lets anonymous requests through. A bad token is still rejected.
func OptionalAuth(cfg AuthConfig) gin.HandlerFunc {
	auth := Auth(cfg)
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		auth(c)
	}
}

// RequireRole allows only callers whose role is in roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextKeyRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorBody("FORBIDDEN", "insufficient role"))
	}
}

// GetUserID returns the authenticated user's ID
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}

// IsStaff reports whether the caller has an operator role
func IsStaff(c *gin.Context) bool {
	role := c.GetString(ContextKeyRole)
	return role == RoleStaff || role == RoleAdmin
}
