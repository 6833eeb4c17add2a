// Package services contains server-side business logic. This file implements
// AuthService: password login against the WordPress users table with
// migration of legacy hashes, JWT access tokens and server-stored refresh
// tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/logging"
	"github.com/dmitrijs2005/gophrewards/internal/server/auth"
	"github.com/dmitrijs2005/gophrewards/internal/server/config"
	"github.com/dmitrijs2005/gophrewards/internal/server/credentials"
	"github.com/dmitrijs2005/gophrewards/internal/server/metrics"
	"github.com/dmitrijs2005/gophrewards/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CredentialVerifier is satisfied by *credentials.Verifier.
type CredentialVerifier interface {
	Verify(ctx context.Context, secret string, record credentials.Record, accountHint string) credentials.Outcome
}

// CredentialHasher is satisfied by *credentials.Hasher.
type CredentialHasher interface {
	Hash(secret string) (string, error)
	HashWordPress(secret string) (string, error)
}

// LoginLimiter is satisfied by *ratelimit.LoginLimiter.
type LoginLimiter interface {
	Check(ctx context.Context, identifier, ip string) error
	Fail(ctx context.Context, identifier, ip string) error
	Reset(ctx context.Context, identifier string) error
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

func WithLoginLimiter(l LoginLimiter) AuthOption { return func(s *AuthService) { s.limiter = l } }
func WithAuthMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}
func WithAuthLogger(l logging.Logger) AuthOption { return func(s *AuthService) { s.logger = l } }

// AuthService provides authentication-related operations:
// - Login: verify a password, migrate its hash if stale and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Logout: revoke a refresh token
type AuthService struct {
	ledger                       *sql.DB
	wordpress                    *sql.DB
	repomanager                  repomanager.RepositoryManager
	verifier                     CredentialVerifier
	hasher                       CredentialHasher
	limiter                      LoginLimiter
	metrics                      *metrics.Metrics
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires AuthService to the ledger (refresh tokens) and the
// WordPress database (credentials).
func NewAuthService(ledger, wordpress *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	verifier CredentialVerifier, hasher CredentialHasher, opts ...AuthOption) *AuthService {
	s := &AuthService{
		ledger:                       ledger,
		wordpress:                    wordpress,
		repomanager:                  m,
		verifier:                     verifier,
		hasher:                       hasher,
		logger:                       logging.Nop{},
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login authenticates identifier (user_login or user_email) with secret.
// Every authentication failure is reported as common.ErrorUnauthorized,
// whichever hash format the account uses.
func (s *AuthService) Login(ctx context.Context, identifier, secret, clientIP string) (*TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return nil, common.ErrorUnauthorized
	}

	if err := s.checkLimit(ctx, identifier, clientIP); err != nil {
		s.metrics.Login("rate_limited", "")
		return nil, err
	}

	accounts := s.repomanager.Accounts(s.wordpress)
	account, err := accounts.GetByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnDummyHash(ctx, identifier, secret)
			s.loginFailed(ctx, identifier, clientIP)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "credential store lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	record := credentials.Record{AccountID: account.ID, HashText: account.PasswordHash}
	outcome := s.verifier.Verify(ctx, secret, record, account.Login)
	if !outcome.Matched {
		s.loginFailed(ctx, identifier, clientIP)
		return nil, common.ErrorUnauthorized
	}
	s.metrics.Login("success", outcome.Scheme.String())

	if outcome.NeedsMigration() {
		s.migrate(ctx, account.ID, secret, outcome.Scheme)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, identifier); err != nil {
			s.logger.Warn(ctx, "login limiter reset failed", "error", err)
		}
	}

	return s.generateTokenPair(ctx, account.ID, s.ledger)
}

// migrate rewrites the stored hash. A failed write does not fail the
// login: the next successful login retries it. Secrets longer than bcrypt
// accepts are stored in the "$wp" prehash form, which is final for them.
func (s *AuthService) migrate(ctx context.Context, accountID int64, secret string, from credentials.Scheme) {
	hash, err := s.hasher.Hash(secret)
	if errors.Is(err, credentials.ErrSecretTooLong) {
		if from == credentials.LegacyWithPrefixAndPrehash {
			return
		}
		hash, err = s.hasher.HashWordPress(secret)
	}
	if err != nil {
		s.logger.Warn(ctx, "canonical hash failed", "account_id", accountID, "from", from.String(), "error", err)
		s.metrics.Migration(from.String(), false)
		return
	}
	if err := s.repomanager.Accounts(s.wordpress).UpdatePasswordHash(ctx, accountID, hash); err != nil {
		s.logger.Error(ctx, "credential migration failed", "account_id", accountID, "from", from.String(), "error", err)
		s.metrics.Migration(from.String(), false)
		return
	}
	s.logger.Info(ctx, "credential migrated", "account_id", accountID, "from", from.String())
	s.metrics.Migration(from.String(), true)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.ledger)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "refresh token lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.ledger, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.AccountID, tx)
		return genErr
	}); err != nil {
		if errors.Is(err, common.ErrorInternal) || errors.Is(err, common.ErrorUnauthorized) {
			return nil, err
		}
		s.logger.Error(ctx, "refresh token rotation failed", "error", err)
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Logout revokes refreshToken. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.repomanager.RefreshTokens(s.ledger).Delete(ctx, refreshToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "refresh token revoke failed", "error", err)
		return common.ErrorInternal
	}
	return nil
}

// PurgeExpiredTokens deletes refresh tokens that expired before now.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.ledger).DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error(ctx, "refresh token purge failed", "error", err)
		return 0, common.ErrorInternal
	}
	return n, nil
}

// AccountIDFromAccessToken validates an access token.
func (s *AuthService) AccountIDFromAccessToken(token string) (int64, error) {
	return auth.GetAccountIDFromToken(token, s.jwtSecret)
}

// --- helpers below ---

func (s *AuthService) checkLimit(ctx context.Context, identifier, clientIP string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, identifier, clientIP)
	if errors.Is(err, ratelimit.ErrUnavailable) {
		s.logger.Warn(ctx, "login limiter unavailable, allowing attempt", "error", err)
		return nil
	}
	return err
}

func (s *AuthService) loginFailed(ctx context.Context, identifier, clientIP string) {
	s.metrics.Login("failure", "")
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Fail(ctx, identifier, clientIP); err != nil {
		s.logger.Warn(ctx, "login limiter update failed", "error", err)
	}
}

// burnDummyHash runs the same verification a known account with a wrong
// secret gets: one bcrypt comparison, then the remote fallback when one is
// configured. Its outcome is ignored.
func (s *AuthService) burnDummyHash(ctx context.Context, identifier, secret string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("gophrewards-dummy-secret")
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash == "" {
		return
	}
	_ = s.verifier.Verify(ctx, secret, credentials.Record{HashText: s.dummyHash}, identifier)
}

func (s *AuthService) generateAccessToken(accountID int64) (string, error) {
	return auth.GenerateToken(accountID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *AuthService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *AuthService) generateTokenPair(ctx context.Context, accountID int64, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(accountID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, accountID, refresh, s.refreshTokenValidityDuration); err != nil {
		s.logger.Error(ctx, "refresh token store failed", "account_id", accountID, "error", err)
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
