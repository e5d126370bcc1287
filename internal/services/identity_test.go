package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/ideaverse-chat/internal/database"
	"github.com/thereayou/ideaverse-chat/internal/models"
	"github.com/thereayou/ideaverse-chat/internal/services"
	"github.com/thereayou/ideaverse-chat/internal/testutil"
	"github.com/thereayou/ideaverse-chat/pkg/auth"
	"go.uber.org/zap"
)

type resolverEnv struct {
	resolver *services.IdentityResolver
	jwt      *auth.JWTManager
	redis    *miniredis.Miniredis
	db       *database.Database
}

func newResolverEnv(t *testing.T) *resolverEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	db := testutil.NewDatabase(t)
	return &resolverEnv{
		resolver: services.NewIdentityResolver(jwtMgr, db, rdb, zap.NewNop()),
		jwt:      jwtMgr,
		redis:    mr,
		db:       db,
	}
}

func TestResolve(t *testing.T) {
	env := newResolverEnv(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, env.db, "investor", models.RoleInvestor)
	token, err := env.jwt.Generate(user.ID.String(), string(user.Role))
	require.NoError(t, err)

	ident, err := env.resolver.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, ident.UserID)
	assert.Equal(t, models.RoleInvestor, ident.Role)
	assert.Equal(t, token, ident.Token)
	assert.False(t, ident.IsAdmin())

	_, err = env.resolver.Resolve(ctx, "")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	_, err = env.resolver.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	ghost, err := env.jwt.Generate(uuid.NewString(), "creator")
	require.NoError(t, err)
	_, err = env.resolver.Resolve(ctx, ghost)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}

func TestResolve_BlockedUser(t *testing.T) {
	env := newResolverEnv(t)
	ctx := context.Background()

	blocked := &models.User{
		Name:      "blocked",
		Email:     "blocked@ideaverse.test",
		Role:      models.RoleFreelancer,
		IsBlocked: true,
	}
	require.NoError(t, env.db.SaveUser(ctx, blocked))

	token, err := env.jwt.Generate(blocked.ID.String(), "freelancer")
	require.NoError(t, err)

	_, err = env.resolver.Resolve(ctx, token)
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestRevoke_BlacklistsUntilExpiry(t *testing.T) {
	env := newResolverEnv(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, env.db, "creator", models.RoleCreator)
	token, err := env.jwt.Generate(user.ID.String(), "creator")
	require.NoError(t, err)

	require.NoError(t, env.resolver.Revoke(ctx, token))
	assert.True(t, env.redis.Exists("blacklist:"+token))
	assert.InDelta(t, time.Hour.Seconds(), env.redis.TTL("blacklist:"+token).Seconds(), 5)

	_, err = env.resolver.Resolve(ctx, token)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)

	env.redis.FastForward(2 * time.Hour)
	assert.False(t, env.redis.Exists("blacklist:"+token))
}

func TestResolve_WithoutRedisSkipsBlacklist(t *testing.T) {
	db := testutil.NewDatabase(t)
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	resolver := services.NewIdentityResolver(jwtMgr, db, nil, zap.NewNop())

	user := testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	token, err := jwtMgr.Generate(user.ID.String(), "admin")
	require.NoError(t, err)

	ident, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, ident.IsAdmin())

	assert.Error(t, resolver.Revoke(context.Background(), token))
}

func TestResolve_RedisDownFailsClosed(t *testing.T) {
	env := newResolverEnv(t)
	user := testutil.CreateUser(t, env.db, "creator", models.RoleCreator)
	token, err := env.jwt.Generate(user.ID.String(), "creator")
	require.NoError(t, err)

	env.redis.Close()
	_, err = env.resolver.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, services.ErrUnauthenticated)
}
