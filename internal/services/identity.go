package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"github.com/thereayou/ideaverse-chat/pkg/auth"
	"go.uber.org/zap"
)

const blacklistPrefix = "blacklist:"

// Identity - кто выполняет запрос. Оба шлюза (REST и WebSocket) получают её
// одним и тем же IdentityResolver.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Role   models.UserRole
	Token  string
}

func (i *Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type IdentityResolver struct {
	jwt   *auth.JWTManager
	users UserDirectory
	redis *redis.Client
	log   *zap.Logger
}

// NewIdentityResolver redis может быть nil, тогда чёрный список не проверяется
func NewIdentityResolver(jwtMgr *auth.JWTManager, users UserDirectory, rdb *redis.Client, log *zap.Logger) *IdentityResolver {
	return &IdentityResolver{jwt: jwtMgr, users: users, redis: rdb, log: log}
}

// Resolve проверяет bearer-токен и загружает пользователя
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, unauthenticated("missing token")
	}

	if r.redis != nil {
		exists, err := r.redis.Exists(ctx, blacklistPrefix+token).Result()
		if err != nil {
			r.log.Warn("blacklist lookup failed", zap.Error(err))
			return nil, unauthenticated("token is blacklisted")
		}
		if exists > 0 {
			return nil, unauthenticated("token is blacklisted")
		}
	}

	claims, err := r.jwt.Verify(token)
	if err != nil {
		return nil, unauthenticated("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, unauthenticated("invalid user id")
	}

	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, unauthenticated("user not found")
		}
		return nil, err
	}

	if user.IsBlocked {
		return nil, forbidden("account has been blocked")
	}

	return &Identity{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		Token:  token,
	}, nil
}

// Revoke кладёт токен в чёрный список до его истечения
func (r *IdentityResolver) Revoke(ctx context.Context, token string) error {
	if r.redis == nil {
		return errors.New("token blacklist is not configured")
	}

	exp, err := r.jwt.Expiry(token)
	if err != nil {
		return unauthenticated("invalid token")
	}

	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return r.redis.Set(ctx, blacklistPrefix+token, 1, ttl).Err()
}
