// Package middleware provides authentication, logging, tracing and rate limiting for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"murmur/internal/config"
	"murmur/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UserIDLocal is the Fiber locals key holding the authenticated identity.
const UserIDLocal = "userID"

var errRevoked = errors.New("token has been revoked")

// Authenticator verifies bearer tokens issued by the external auth service.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	rdb      *redis.Client
}

// NewAuthenticator builds an Authenticator from config. rdb may be nil, which disables revocation checks.
func NewAuthenticator(cfg *config.Config, rdb *redis.Client) *Authenticator {
	return &Authenticator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		rdb:      rdb,
	}
}

// ParseToken validates tokenString and returns the identity in its subject claim.
func (a *Authenticator) ParseToken(ctx context.Context, tokenString string) (uint, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("missing subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("invalid subject %q", sub)
	}

	if jti, _ := claims["jti"].(string); jti != "" && a.rdb != nil {
		revoked, err := a.rdb.Exists(ctx, "blacklist:"+jti).Result()
		if err == nil && revoked > 0 {
			return 0, errRevoked
		}
	}

	return uint(userID), nil
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithAppError(c, models.NewUnauthenticatedError())
		}

		userID, err := a.ParseToken(c.UserContext(), tokenString)
		if err != nil {
			appErr := models.NewUnauthenticatedError()
			if errors.Is(err, errRevoked) {
				appErr.Message = "Token has been revoked"
			}
			return models.RespondWithAppError(c, appErr)
		}

		setUser(c, userID)
		return c.Next()
	}
}

// Optional attaches the caller's identity when a valid token is present and
// otherwise lets the request through anonymously.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString := bearerToken(c); tokenString != "" {
			if userID, err := a.ParseToken(c.UserContext(), tokenString); err == nil {
				setUser(c, userID)
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated identity for the request, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals(UserIDLocal).(uint)
	return userID, ok && userID != 0
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals(UserIDLocal, userID)
	ctx := context.WithValue(c.UserContext(), UserIDKey, userID)
	c.SetUserContext(ctx)
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IssueToken signs a token in the shape the auth service issues. Used by dev tooling and tests.
func IssueToken(secret, issuer, audience string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.NewString(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	if audience != "" {
		claims["aud"] = audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
