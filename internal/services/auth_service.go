package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chat-core/internal/metrics"
	"chat-core/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const DefaultAuthTimeout = 10 * time.Second

// JWTResolver resolves HS256 tokens carrying a user_id (or sub) claim.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (r *JWTResolver) Resolve(_ context.Context, credential string) (models.Identity, error) {
	token, err := jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil {
		return models.Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Identity{}, errors.New("invalid token")
	}

	id := claimString(claims["user_id"])
	if id == "" {
		id = claimString(claims["sub"])
	}
	if id == "" {
		return models.Identity{}, errors.New("token has no subject")
	}
	username, _ := claims["username"].(string)
	return models.Identity{UserID: id, Username: username}, nil
}

// JSON numbers decode as float64.
func claimString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}

// GenerateJWT mints a token JWTResolver accepts. Used by the dev client and
// tests; real deployments get tokens from the account service.
func GenerateJWT(secret, userID, username string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Authenticator gates every session behind the resolver, with a bounded
// wait.
type Authenticator struct {
	resolver AuthResolver
	timeout  time.Duration
	log      zerolog.Logger
}

func NewAuthenticator(resolver AuthResolver, timeout time.Duration, log zerolog.Logger) *Authenticator {
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	return &Authenticator{
		resolver: resolver,
		timeout:  timeout,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

func (a *Authenticator) Timeout() time.Duration {
	return a.timeout
}

// Authenticate resolves a credential. An optional "Bearer " prefix is
// accepted. Every failure, including a timeout, wraps ErrAuth.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (models.Identity, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(credential), "Bearer "))
	if credential == "" {
		metrics.AuthFailures.WithLabelValues("missing").Inc()
		return models.Identity{}, fmt.Errorf("%w: missing credential", ErrAuth)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	identity, err := a.resolver.Resolve(ctx, credential)
	if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
		err = ctxErr
	}
	if err != nil {
		reason := "invalid"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.AuthFailures.WithLabelValues(reason).Inc()
		a.log.Debug().Err(err).Str("reason", reason).Msg("credential rejected")
		return models.Identity{}, fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if strings.TrimSpace(identity.UserID) == "" {
		metrics.AuthFailures.WithLabelValues("invalid").Inc()
		return models.Identity{}, fmt.Errorf("%w: empty identity", ErrAuth)
	}
	return identity, nil
}
