package middleware

import (
	"context"
	"net/http"
	"strings"

	"itp-scheduler/internal/service"
	"itp-scheduler/pkg/jwt"
	"itp-scheduler/pkg/response"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	StaffIDKey   contextKey = "staff_id"
	StaffNameKey contextKey = "staff_name"
	TokenIDKey   contextKey = "token_id"
)

// RevokedTokenKey is the Redis key marking a staff token as revoked.
func RevokedTokenKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

type AuthMiddleware struct {
	jwtService  *jwt.JWTService
	redisClient *redis.Client
	log         *logrus.Logger
}

// NewAuthMiddleware builds the staff authenticator. redisClient may be nil,
// in which case revocation is not checked.
func NewAuthMiddleware(jwtService *jwt.JWTService, redisClient *redis.Client, log *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:  jwtService,
		redisClient: redisClient,
		log:         log,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		if m.redisClient != nil {
			revoked, err := m.redisClient.Exists(r.Context(), RevokedTokenKey(claims.TokenID)).Result()
			if err != nil {
				// Redis being down must not lock staff out of the station.
				m.log.Warnf("Failed to check token revocation: %+v", err)
			} else if revoked > 0 {
				response.Unauthorized(w, "Token has been revoked")
				return
			}
		}

		ctx := context.WithValue(r.Context(), StaffIDKey, claims.StaffID)
		ctx = context.WithValue(ctx, StaffNameKey, claims.Name)
		ctx = context.WithValue(ctx, TokenIDKey, claims.TokenID)
		ctx = service.WithActor(ctx, claims.Actor())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetStaffIDFromContext extracts the staff ID from context
func GetStaffIDFromContext(ctx context.Context) (string, bool) {
	staffID, ok := ctx.Value(StaffIDKey).(string)
	return staffID, ok
}

// GetTokenIDFromContext extracts token ID from context
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	tokenID, ok := ctx.Value(TokenIDKey).(string)
	return tokenID, ok
}
