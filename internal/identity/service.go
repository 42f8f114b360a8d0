// Package identity validates tokens issued by the external identity
// provider and exchanges them for per-exam signature tokens. Sign-in UI
// and token issuance live outside the engine; only the verification
// contract is implemented here.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/config"
	"github.com/examforge/sessiond/internal/model"
)

// Common identity errors.
var (
	ErrTokenInvalid = errors.New("identity token invalid")
	ErrNoEmail      = errors.New("identity token carries no email")
)

// Claims are the identity-provider JWT claims the engine relies on.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Service verifies identity tokens and caches identity records plus
// per-exam signature tokens in Redis. rdb may be nil (no caching).
type Service struct {
	cfg   *config.Config
	rdb   *redis.Client
	httpc *http.Client
	log   zerolog.Logger
}

// NewService creates a Service.
func NewService(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) *Service {
	return &Service{
		cfg:   cfg,
		rdb:   rdb,
		httpc: &http.Client{Timeout: 15 * time.Second},
		log:   log.With().Str("component", "identity_service").Logger(),
	}
}

// Verify parses and validates an identity-provider token, returning the
// visitor identity. The identity record is cached best-effort so that it
// is shared across exams.
func (s *Service) Verify(ctx context.Context, tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return model.Identity{}, ErrTokenInvalid
	}
	if claims.Email == "" {
		return model.Identity{}, ErrNoEmail
	}

	ident := model.Identity{Email: claims.Email, Name: claims.Name}

	if s.rdb != nil {
		record, _ := json.Marshal(ident)
		if err := s.rdb.Set(ctx, config.CacheKey.VisitorIdentityKey(ident.Email), record, s.cfg.IdentityTTL).Err(); err != nil {
			s.log.Debug().Err(err).Msg("Identity record cache failed")
		}
	}

	return ident, nil
}

// ExamToken returns the visitor's pre-issued signature token for one
// exam, exchanging the sign-in credential with the provider on a cache
// miss (GET exchange per the provider contract).
func (s *Service) ExamToken(ctx context.Context, examID string, ident model.Identity, credential string) (string, error) {
	key := config.CacheKey.VisitorExamTokenKey(examID, ident.Email)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Exam token cache read failed")
		}
	}

	q := url.Values{}
	q.Set("quiz", examID)
	q.Set("email", ident.Email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.UpstreamBaseURL+"/examtoken?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build exchange request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange exam token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("exchange exam token: status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode exam token: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("exchange exam token: empty token")
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, body.Token, s.cfg.IdentityTTL).Err(); err != nil {
			s.log.Debug().Err(err).Msg("Exam token cache write failed")
		}
	}

	return body.Token, nil
}
