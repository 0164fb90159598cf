// Package middleware provides authentication, logging, tracing, and rate limiting for the HTTP API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tandem/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var (
	cfg *config.Config
	rdb *redis.Client
)

// InitMiddleware initializes authentication middleware with the given config.
// The redis client is optional and enables token revocation checks.
func InitMiddleware(c *config.Config, client *redis.Client) {
	cfg = c
	rdb = client
}

// RevokedTokenKey is the Redis key marking a token id as revoked.
func RevokedTokenKey(jti string) string {
	return "auth:revoked:" + jti
}

// RevokeToken marks a token id as revoked until it would have expired anyway.
func RevokeToken(ctx context.Context, client *redis.Client, jti string, ttl time.Duration) error {
	if client == nil {
		return errors.New("redis client is nil")
	}
	return client.Set(ctx, RevokedTokenKey(jti), "1", ttl).Err()
}

// authFailure carries the message returned to the client when a token is rejected.
type authFailure string

func (f authFailure) Error() string { return string(f) }

const (
	errInvalidToken   authFailure = "Invalid or expired token"
	errMissingSubject authFailure = "Invalid token structure - missing subject"
	errRevoked        authFailure = "Token has been revoked"
)

// parseSubject validates the bearer token and returns the opaque user id from "sub".
func parseSubject(ctx context.Context, tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", errMissingSubject
	}

	if jti, ok := claims["jti"].(string); ok && jti != "" && rdb != nil {
		n, err := rdb.Exists(ctx, RevokedTokenKey(jti)).Result()
		if err == nil && n > 0 {
			return "", errRevoked
		}
	}

	return sub, nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	tokenString, ok := bearerToken(authHeader)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	userID, err := parseSubject(c.UserContext(), tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))

	return c.Next()
}

// WebSocketAuthRequired validates JWT tokens from the "token" query parameter or the
// Authorization header, for WebSocket upgrades.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
		var ok bool
		token, ok = bearerToken(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}
	}

	userID, err := parseSubject(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Locals("userID", userID)
	return c.Next()
}
