package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-core/internal/mocks"
	"chat-core/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "test-secret"

func TestJWTResolver(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	ctx := context.Background()

	t.Run("should resolve a minted token", func(t *testing.T) {
		token, err := GenerateJWT(testSecret, "42", "alice", time.Hour)
		require.NoError(t, err)

		id, err := resolver.Resolve(ctx, token)
		require.NoError(t, err)
		require.Equal(t, models.Identity{UserID: "42", Username: "alice"}, id)
	})

	t.Run("should accept numeric user ids and sub", func(t *testing.T) {
		numeric := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()})
		signed, err := numeric.SignedString([]byte(testSecret))
		require.NoError(t, err)
		id, err := resolver.Resolve(ctx, signed)
		require.NoError(t, err)
		require.Equal(t, "7", id.UserID)

		sub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-9"})
		signed, err = sub.SignedString([]byte(testSecret))
		require.NoError(t, err)
		id, err = resolver.Resolve(ctx, signed)
		require.NoError(t, err)
		require.Equal(t, "u-9", id.UserID)
	})

	t.Run("should reject bad tokens", func(t *testing.T) {
		wrong, err := GenerateJWT("other-secret", "42", "alice", time.Hour)
		require.NoError(t, err)
		_, err = resolver.Resolve(ctx, wrong)
		require.Error(t, err)

		expired, err := GenerateJWT(testSecret, "42", "alice", -time.Minute)
		require.NoError(t, err)
		_, err = resolver.Resolve(ctx, expired)
		require.Error(t, err)

		anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "ghost"})
		signed, err := anonymous.SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = resolver.Resolve(ctx, signed)
		require.Error(t, err)

		_, err = resolver.Resolve(ctx, "not-a-jwt")
		require.Error(t, err)
	})
}

func TestAuthenticator(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockAuthResolver(ctrl)
	auth := NewAuthenticator(resolver, 50*time.Millisecond, zerolog.Nop())
	ctx := context.Background()

	t.Run("should strip the bearer prefix", func(t *testing.T) {
		resolver.EXPECT().Resolve(gomock.Any(), "tok").Return(models.Identity{UserID: "u1"}, nil)
		id, err := auth.Authenticate(ctx, "Bearer tok")
		require.NoError(t, err)
		require.Equal(t, "u1", id.UserID)
	})

	t.Run("should not call the resolver without a credential", func(t *testing.T) {
		resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)
		_, err := auth.Authenticate(ctx, "  ")
		require.ErrorIs(t, err, ErrAuth)
		require.Equal(t, KindAuth, KindOf(err))
	})

	t.Run("should wrap resolver failures", func(t *testing.T) {
		resolver.EXPECT().Resolve(gomock.Any(), "bad").Return(models.Identity{}, errors.New("signature invalid"))
		_, err := auth.Authenticate(ctx, "bad")
		require.ErrorIs(t, err, ErrAuth)
	})

	t.Run("should reject an empty identity", func(t *testing.T) {
		resolver.EXPECT().Resolve(gomock.Any(), "empty").Return(models.Identity{}, nil)
		_, err := auth.Authenticate(ctx, "empty")
		require.ErrorIs(t, err, ErrAuth)
	})

	t.Run("should give up after the timeout", func(t *testing.T) {
		resolver.EXPECT().Resolve(gomock.Any(), "slow").
			DoAndReturn(func(ctx context.Context, _ string) (models.Identity, error) {
				<-ctx.Done()
				return models.Identity{}, ctx.Err()
			})
		start := time.Now()
		_, err := auth.Authenticate(ctx, "slow")
		require.ErrorIs(t, err, ErrAuth)
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestUserService_Presence(t *testing.T) {
	h := newHarness(t)
	svc := NewUserService(h.store, h.registry)
	ctx := context.Background()

	h.connect(t, "bob")
	h.connect(t, "bob")

	p, err := svc.Presence(ctx, "bob")
	require.NoError(t, err)
	require.True(t, p.Online)
	require.Equal(t, 2, p.Connections)

	p, err = svc.Presence(ctx, "carol")
	require.NoError(t, err)
	require.False(t, p.Online)

	_, err = svc.Presence(ctx, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}
