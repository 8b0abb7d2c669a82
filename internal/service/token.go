package service

import (
	"context" // Request scope
	"time"    // Expiry handling

	"crowdfund_system/internal/apperr"  // Typed core errors
	"crowdfund_system/internal/db"      // Transactions and lookups
	"crowdfund_system/internal/domain"  // Importing domain models
	"crowdfund_system/internal/metrics" // Prometheus counters
	"crowdfund_system/internal/utils"   // JWT and token helpers

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// refreshTokenBytes is the entropy of an opaque refresh token
const refreshTokenBytes = 40

// TokenConfig configures token issuance
type TokenConfig struct {
	Secret     string        // HS256 signing key
	AccessTTL  time.Duration // Access token lifetime
	RefreshTTL time.Duration // Refresh token lifetime
}

// AuthResult is returned by a successful authenticate or refresh
type AuthResult struct {
	Account          domain.Account // Authenticated account
	AccessToken      string         // Signed JWT
	AccessExpiresAt  time.Time      // JWT expiry
	RefreshToken     string         // Raw refresh token, never stored
	RefreshExpiresAt time.Time      // Refresh token expiry
}

// TokenService issues, rotates and revokes tokens
type TokenService struct {
	tx  *db.TxRunner
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService builds a TokenService
func NewTokenService(tx *db.TxRunner, cfg TokenConfig) *TokenService {
	return &TokenService{tx: tx, cfg: cfg, now: utcNow}
}

// Authenticate checks credentials and opens a new token lineage
func (s *TokenService) Authenticate(ctx context.Context, email, password, ip string) (*AuthResult, error) {
	var account domain.Account
	if err := s.tx.DB(ctx).Where("email = ?", normalizeEmail(email)).First(&account).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, storeErr("load account", err)
	}
	// Credentials first so status is never revealed to a wrong password
	if !utils.CheckPassword(account.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	switch account.Status {
	case domain.StatusUnverified:
		return nil, apperr.ErrAccountNotVerified
	case domain.StatusDisabled:
		return nil, apperr.ErrAccountDisabled
	}

	now := s.now()
	var raw string
	var row domain.RefreshToken
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var err error
		raw, row, err = s.mint(tx, account.ID, ip, now)
		return err
	})
	if err != nil {
		return nil, storeErr("issue refresh token", err)
	}
	res, err := s.result(account, raw, row, now)
	if err != nil {
		return nil, err
	}
	metrics.TokenIssued("authenticate")
	logrus.WithFields(logrus.Fields{
		"account_id": account.ID, // Account ID
		"ip":         ip,         // Client IP
	}).Info("Account authenticated")
	return res, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// token is revoked and linked to its successor. Presenting a token that was
// already revoked revokes every token minted after it.
func (s *TokenService) Refresh(ctx context.Context, rawToken, ip string) (*AuthResult, error) {
	hash := utils.HashToken(rawToken)
	now := s.now()

	var (
		account domain.Account
		raw     string
		next    domain.RefreshToken
		reused  *domain.RefreshToken
		revoked int64
	)
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		reused, revoked = nil, 0
		var old domain.RefreshToken
		if err := forUpdate(tx).Where("token_hash = ?", hash).First(&old).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrTokenNotFound
			}
			return err
		}
		if old.IsRevoked() {
			// Commit the chain revocation, report reuse afterwards
			n, err := revokeDescendants(tx, old, ip, now)
			if err != nil {
				return err
			}
			reused, revoked = &old, n
			return nil
		}
		if old.IsExpired(now) {
			return apperr.ErrTokenExpired
		}
		if err := tx.First(&account, old.AccountID).Error; err != nil {
			if db.IsNotFound(err) {
				return apperr.ErrTokenNotFound
			}
			return err
		}
		if account.Status == domain.StatusDisabled {
			return apperr.ErrAccountDisabled
		}

		var err error
		raw, next, err = s.mint(tx, account.ID, ip, now)
		if err != nil {
			return err
		}
		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", old.ID).
			Updates(map[string]any{
				"revoked_at":     now,
				"revoked_by_ip":  ip,
				"reason_revoked": domain.ReasonRotated,
				"replaced_by_id": next.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent refresh rotated it first
			return apperr.ErrTokenReuseDetected.WithContext("token_id", old.ID)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("refresh token", err)
	}
	if reused != nil {
		metrics.TokenReuseDetected()
		metrics.TokensRevoked(domain.ReasonReuse, revoked)
		logrus.WithFields(logrus.Fields{
			"security_event": "refresh_token_reuse", // Alerting hook
			"account_id":     reused.AccountID,      // Token owner
			"token_id":       reused.ID,             // Replayed token
			"revoked":        revoked,               // Descendants revoked
			"ip":             ip,                    // Client IP
		}).Warn("Refresh token reuse detected")
		return nil, apperr.ErrTokenReuseDetected.WithContext("token_id", reused.ID)
	}

	res, err := s.result(account, raw, next, now)
	if err != nil {
		return nil, err
	}
	metrics.TokenIssued("refresh")
	metrics.TokensRevoked(domain.ReasonRotated, 1)
	logrus.WithFields(logrus.Fields{
		"account_id": account.ID, // Account ID
		"token_id":   next.ID,    // New token
		"ip":         ip,         // Client IP
	}).Info("Refresh token rotated")
	return res, nil
}

// Revoke revokes one refresh token. Callers may revoke their own tokens;
// Admins may revoke any token. Unknown tokens look unauthorized to
// non-admins.
func (s *TokenService) Revoke(ctx context.Context, rawToken string, requester Principal, ip string) error {
	hash := utils.HashToken(rawToken)
	now := s.now()
	changed := false
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		changed = false
		var token domain.RefreshToken
		if err := forUpdate(tx).Where("token_hash = ?", hash).First(&token).Error; err != nil {
			if db.IsNotFound(err) {
				if requester.IsAdmin() {
					return apperr.ErrTokenNotFound
				}
				return apperr.ErrUnauthorized
			}
			return err
		}
		if !requester.CanActOn(token.AccountID) {
			return apperr.ErrUnauthorized
		}
		if token.IsRevoked() {
			return nil // Keep the first revocation record
		}
		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", token.ID).
			Updates(map[string]any{
				"revoked_at":     now,
				"revoked_by_ip":  ip,
				"reason_revoked": domain.ReasonRevoked,
			})
		changed = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		return storeErr("revoke token", err)
	}
	if changed {
		metrics.TokensRevoked(domain.ReasonRevoked, 1)
		logrus.WithFields(logrus.Fields{
			"requester_id": requester.AccountID, // Caller
			"ip":           ip,                  // Client IP
		}).Info("Refresh token revoked")
	}
	return nil
}

// RevokeAll revokes every active refresh token of an account
func (s *TokenService) RevokeAll(ctx context.Context, accountID uint, reason string) (int64, error) {
	var n int64
	err := s.tx.Run(ctx, func(tx *gorm.DB) error {
		var err error
		n, err = revokeAllTx(tx, accountID, reason, s.now())
		return err
	})
	if err != nil {
		return 0, storeErr("revoke tokens", err)
	}
	metrics.TokensRevoked(reason, n)
	return n, nil
}

// ListTokens returns the refresh tokens of an account, newest first
func (s *TokenService) ListTokens(ctx context.Context, requester Principal, accountID uint) ([]domain.RefreshToken, error) {
	if !requester.CanActOn(accountID) {
		return nil, apperr.ErrUnauthorized
	}
	var tokens []domain.RefreshToken
	if err := s.tx.DB(ctx).Where("account_id = ?", accountID).Order("id DESC").Find(&tokens).Error; err != nil {
		return nil, storeErr("list tokens", err)
	}
	return tokens, nil
}

// VerifyAccess checks an access token signature and expiry. It never
// touches the database.
func (s *TokenService) VerifyAccess(rawJWT string) (*utils.Claims, error) {
	claims, err := utils.ParseJWT(rawJWT, s.cfg.Secret)
	if err != nil {
		if err == utils.ErrExpiredJWT {
			return nil, apperr.ErrAccessTokenExpired
		}
		return nil, apperr.ErrInvalidAccessToken
	}
	return claims, nil
}

// mint inserts a new refresh token row and returns the raw value
func (s *TokenService) mint(tx *gorm.DB, accountID uint, ip string, now time.Time) (string, domain.RefreshToken, error) {
	raw, err := utils.RandomToken(refreshTokenBytes)
	if err != nil {
		return "", domain.RefreshToken{}, err
	}
	row := domain.RefreshToken{
		AccountID:   accountID,                 // Owner
		TokenHash:   utils.HashToken(raw),      // Only the hash is stored
		ExpiresAt:   now.Add(s.cfg.RefreshTTL), // Expiry
		CreatedAt:   now,                       // Issue time
		CreatedByIP: ip,                        // Client IP
	}
	if err := tx.Create(&row).Error; err != nil {
		return "", domain.RefreshToken{}, err
	}
	return raw, row, nil
}

func (s *TokenService) result(account domain.Account, raw string, row domain.RefreshToken, now time.Time) (*AuthResult, error) {
	access, accessExp, err := utils.GenerateJWT(account.ID, account.Role, s.cfg.Secret, s.cfg.AccessTTL, now)
	if err != nil {
		return nil, apperr.Internal("sign access token", err)
	}
	return &AuthResult{
		Account:          account,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     raw,
		RefreshExpiresAt: row.ExpiresAt,
	}, nil
}

// revokeDescendants walks replaced_by_id from a replayed token and revokes
// every successor that is still active
func revokeDescendants(tx *gorm.DB, from domain.RefreshToken, ip string, now time.Time) (int64, error) {
	var revoked int64
	seen := map[uint]bool{from.ID: true}
	next := from.ReplacedByID
	for next != nil && !seen[*next] {
		seen[*next] = true
		var t domain.RefreshToken
		if err := tx.First(&t, *next).Error; err != nil {
			if db.IsNotFound(err) {
				break
			}
			return revoked, err
		}
		if !t.IsRevoked() {
			res := tx.Model(&domain.RefreshToken{}).
				Where("id = ? AND revoked_at IS NULL", t.ID).
				Updates(map[string]any{
					"revoked_at":     now,
					"revoked_by_ip":  ip,
					"reason_revoked": domain.ReasonReuse,
				})
			if res.Error != nil {
				return revoked, res.Error
			}
			revoked += res.RowsAffected
		}
		next = t.ReplacedByID
	}
	return revoked, nil
}

// revokeAllTx revokes the active tokens of an account inside tx
func revokeAllTx(tx *gorm.DB, accountID uint, reason string, now time.Time) (int64, error) {
	res := tx.Model(&domain.RefreshToken{}).
		Where("account_id = ? AND revoked_at IS NULL AND expires_at > ?", accountID, now).
		Updates(map[string]any{
			"revoked_at":     now,
			"reason_revoked": reason,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
