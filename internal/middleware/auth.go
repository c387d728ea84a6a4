package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/clindx-engine/internal/domain"
)

// DoctorIDKey is the gin context key holding the authenticated doctor ID.
const DoctorIDKey = "doctor_id"

// Claims are the bearer token claims. DoctorID identifies the caller.
type Claims struct {
	jwt.RegisteredClaims
	DoctorID int64 `json:"doctor_id"`
}

// JWTConfig configures bearer token verification.
type JWTConfig struct {
	Secret []byte
	Issuer string
}

// BearerAuth verifies HS256 bearer tokens and stores the doctor ID in the
// gin context. Requests without a valid token are rejected with 401.
func BearerAuth(cfg JWTConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			unauthorized(c, "missing or malformed authorization header")
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(parts[1], claims, func(*jwt.Token) (any, error) {
			return cfg.Secret, nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "invalid token")
			return
		}
		if claims.DoctorID <= 0 {
			unauthorized(c, "token has no doctor")
			return
		}

		c.Set(DoctorIDKey, claims.DoctorID)
		c.Next()
	}
}

// DoctorID returns the authenticated doctor ID set by BearerAuth.
func DoctorID(c *gin.Context) (int64, bool) {
	id, ok := c.Get(DoctorIDKey)
	if !ok {
		return 0, false
	}
	doctorID, ok := id.(int64)
	return doctorID, ok
}

// IssueToken signs a token for doctorID that expires after ttl.
func IssueToken(cfg JWTConfig, doctorID int64, ttl time.Duration) (string, error) {
	if len(cfg.Secret) == 0 {
		return "", errors.New("signing secret is required")
	}
	if doctorID <= 0 {
		return "", fmt.Errorf("invalid doctor id %d", doctorID)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   fmt.Sprintf("%d", doctorID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		DoctorID: doctorID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		domain.NewAPIError(domain.ErrAuthentication, message, "", c.GetString(RequestIDKey)))
}
